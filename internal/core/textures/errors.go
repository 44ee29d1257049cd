package textures

import "errors"

var (
	// ErrInvalidIdentity is returned when an identity is neither a UUID nor a username.
	ErrInvalidIdentity = errors.New("invalid identity")

	// ErrImageProcessing is returned when a transform rejects its input.
	ErrImageProcessing = errors.New("image processing failed")

	// ErrStore is returned when the freshness store or artifact storage fails.
	ErrStore = errors.New("store operation failed")

	// ErrTextureMissing is returned when upstream advertised a texture whose
	// bytes could not be downloaded.
	ErrTextureMissing = errors.New("texture advertised but not downloadable")

	// ErrSkinUnavailable is returned by GetRender when a skin hash is known
	// but the skin bytes cannot be obtained.
	ErrSkinUnavailable = errors.New("skin bytes unavailable")

	// ErrNilDependency is returned when a required dependency is nil.
	ErrNilDependency = errors.New("required dependency is nil")
)
