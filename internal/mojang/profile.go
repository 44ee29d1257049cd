package mojang

import (
	"encoding/base64"
	"encoding/json"
	"log/slog"
)

// TextureType selects a texture entry in a profile.
type TextureType string

const (
	TextureSkin TextureType = "SKIN"
	TextureCape TextureType = "CAPE"
)

// Profile is the session server response for a UUID.
type Profile struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Properties []Property `json:"properties"`
}

// Property is a signed profile property. The "textures" property holds a
// base64 encoded TexturesPayload.
type Property struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Signature string `json:"signature,omitempty"`
}

// TexturesPayload is the decoded value of the "textures" property.
type TexturesPayload struct {
	Timestamp   int64  `json:"timestamp"`
	ProfileID   string `json:"profileId"`
	ProfileName string `json:"profileName"`
	Textures    struct {
		Skin *TextureEntry `json:"SKIN,omitempty"`
		Cape *TextureEntry `json:"CAPE,omitempty"`
	} `json:"textures"`
}

// TextureEntry is a single texture reference.
type TextureEntry struct {
	URL      string `json:"url"`
	Metadata *struct {
		Model string `json:"model"`
	} `json:"metadata,omitempty"`
}

// Textures decodes the "textures" property. Returns nil when the profile has
// no such property or it cannot be decoded.
func (p *Profile) Textures() *TexturesPayload {
	if p == nil {
		return nil
	}
	for _, prop := range p.Properties {
		if prop.Name != "textures" {
			continue
		}
		raw, err := base64.StdEncoding.DecodeString(prop.Value)
		if err != nil {
			slog.Warn("[MOJANG] failed to decode textures property",
				"profile", p.ID,
				"error", err,
			)
			return nil
		}
		var payload TexturesPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			slog.Warn("[MOJANG] malformed textures property",
				"profile", p.ID,
				"error", err,
			)
			return nil
		}
		return &payload
	}
	return nil
}

// TextureURL returns the URL of the given texture, or "" when the profile
// has none.
func (p *Profile) TextureURL(t TextureType) string {
	payload := p.Textures()
	if payload == nil {
		return ""
	}
	var entry *TextureEntry
	switch t {
	case TextureSkin:
		entry = payload.Textures.Skin
	case TextureCape:
		entry = payload.Textures.Cape
	}
	if entry == nil {
		return ""
	}
	return entry.URL
}

// SkinModel returns "slim" for Alex-model skins and "default" otherwise.
func (p *Profile) SkinModel() string {
	payload := p.Textures()
	if payload == nil || payload.Textures.Skin == nil || payload.Textures.Skin.Metadata == nil {
		return "default"
	}
	if payload.Textures.Skin.Metadata.Model == "" {
		return "default"
	}
	return payload.Textures.Skin.Metadata.Model
}
