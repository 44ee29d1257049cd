package textures

import (
	"context"

	"Headshot/internal/mojang"
)

// FreshnessStore persists the last observed texture hashes of an identity.
// Implementations must treat missing or malformed records as absent
// (nil, nil) rather than failing.
type FreshnessStore interface {
	// Get returns the record for key, or nil when none exists.
	Get(ctx context.Context, key string) (*FreshnessRecord, error)

	// Touch marks the record as confirmed current without changing its hashes.
	Touch(ctx context.Context, key string) error

	// Put upserts both hashes and marks the record as confirmed current.
	Put(ctx context.Context, key, skinHash, capeHash string) error
}

// ArtifactStore stores immutable files addressed by kind and key.
// Writes must be published atomically: a key that exists is complete.
type ArtifactStore interface {
	Exists(kind ArtifactKind, key string) bool

	// Read returns the artifact, whether it was found, and any error.
	Read(kind ArtifactKind, key string) ([]byte, bool, error)

	Write(kind ArtifactKind, key string, data []byte) error
}

// TextureProvider is the remote identity/texture service.
type TextureProvider interface {
	FetchProfile(ctx context.Context, uuid string) (*mojang.Profile, error)
	ResolveUsernameURL(ctx context.Context, username string, t mojang.TextureType) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
	TextureURL(hash string) string
}

// Transformer derives images from texture bytes. All methods return PNG
// encoded bytes and fail with an error wrapping ErrImageProcessing on
// malformed input.
type Transformer interface {
	ExtractFace(skin []byte) ([]byte, error)
	ExtractHelm(face, skin []byte) ([]byte, error)
	Resize(img []byte, size int) ([]byte, error)
	RenderModel(skin []byte, scale int, helm, body bool) ([]byte, error)
}
