package textures

import (
	"time"

	"Headshot/internal/mojang"
)

// Kind is a texture kind that can be resolved for an identity.
type Kind string

const (
	KindSkin Kind = "skin"
	KindCape Kind = "cape"
)

func (k Kind) textureType() mojang.TextureType {
	if k == KindCape {
		return mojang.TextureCape
	}
	return mojang.TextureSkin
}

// artifactKind is the artifact whose presence proves a texture was materialized.
func (k Kind) artifactKind() ArtifactKind {
	if k == KindCape {
		return ArtifactCape
	}
	return ArtifactFace
}

// ArtifactKind names a content-addressed directory.
type ArtifactKind string

const (
	ArtifactSkin   ArtifactKind = "skin"
	ArtifactFace   ArtifactKind = "face"
	ArtifactHelm   ArtifactKind = "helm"
	ArtifactCape   ArtifactKind = "cape"
	ArtifactRender ArtifactKind = "render"
)

// ArtifactKinds lists every artifact kind.
var ArtifactKinds = []ArtifactKind{ArtifactSkin, ArtifactFace, ArtifactHelm, ArtifactCape, ArtifactRender}

// Status describes how a result was obtained.
type Status int

const (
	StatusError      Status = -1
	StatusNoTexture  Status = 0
	StatusCached     Status = 1
	StatusDownloaded Status = 2
	StatusChecked    Status = 3
)

func (s Status) String() string {
	switch s {
	case StatusNoTexture:
		return "none"
	case StatusCached:
		return "cached"
	case StatusDownloaded:
		return "downloaded"
	case StatusChecked:
		return "checked"
	default:
		return "error"
	}
}

// FreshnessRecord is the last observed texture state of an identity.
// An empty hash means the identity was resolved and has no such texture.
type FreshnessRecord struct {
	SkinHash    string
	CapeHash    string
	LastChecked time.Time
}

// Hash returns the stored hash for kind.
func (r *FreshnessRecord) Hash(kind Kind) string {
	if r == nil {
		return ""
	}
	if kind == KindCape {
		return r.CapeHash
	}
	return r.SkinHash
}

// Result is the outcome of resolving one kind for an identity.
type Result struct {
	Status Status
	Hash   string
}

// ImageResult is returned by the image producing request handlers.
type ImageResult struct {
	Status Status
	Hash   string
	Image  []byte
}
