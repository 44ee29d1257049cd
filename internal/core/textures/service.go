// Package textures resolves player identities to their current skin and cape
// textures and serves the images derived from them.
//
// The package is organised around a freshness window:
//   - Resolver: decides whether a stored record can be trusted, revalidates
//     it upstream otherwise, and materializes changed textures
//   - FreshnessStore: remembers the last observed hashes per identity
//   - DiskStore: content-addressed artifact files with a background sweep
//   - Service: the request-level operations built on top of the Resolver
//
// Artifacts are addressed by the texture hash, so a changed texture never
// overwrites the files of the previous one.
package textures

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// Service implements the public request operations.
type Service struct {
	resolver *Resolver
}

// NewService creates a Service on top of a Resolver.
func NewService(resolver *Resolver) (*Service, error) {
	if resolver == nil {
		return nil, fmt.Errorf("%w: resolver", ErrNilDependency)
	}
	return &Service{resolver: resolver}, nil
}

// Config returns the configuration the service was built with.
func (s *Service) Config() Config {
	return s.resolver.config
}

// GetAvatar returns the face of an identity resized to size pixels, using
// the helm composite when helm is set and it is available.
//
// When resolution fails but a previous hash is known the image is still
// produced and returned alongside the error with StatusError.
func (s *Service) GetAvatar(ctx context.Context, id string, helm bool, size int) (ImageResult, error) {
	res, err := s.resolver.Resolve(ctx, id, KindSkin)
	out := ImageResult{Status: res.Status, Hash: res.Hash}
	if res.Hash == "" {
		return out, err
	}

	img, imgErr := s.faceImage(ctx, res.Hash, helm)
	if imgErr != nil {
		out.Status = StatusError
		return out, firstError(err, imgErr)
	}

	resized, resizeErr := s.resolver.transformer.Resize(img, s.resolver.config.ClampSize(size))
	if resizeErr != nil {
		slog.Error("[TEXTURES] failed to resize avatar",
			"identity", id,
			"hash", res.Hash,
			"error", resizeErr,
		)
		out.Status = StatusError
		return out, firstError(err, resizeErr)
	}

	out.Image = resized
	return out, err
}

// faceImage reads the face or helm artifact of hash. Artifacts removed by
// the sweep are rebuilt from a fresh download.
func (s *Service) faceImage(ctx context.Context, hash string, helm bool) ([]byte, error) {
	artifacts := s.resolver.artifacts

	if helm {
		data, found, err := artifacts.Read(ArtifactHelm, hash)
		if err != nil {
			slog.Warn("[TEXTURES] helm read failed, falling back to face",
				"hash", hash,
				"error", err,
			)
		} else if found {
			return data, nil
		}
	}

	data, found, err := artifacts.Read(ArtifactFace, hash)
	if err != nil {
		return nil, err
	}
	if found {
		return data, nil
	}

	slog.Info("[TEXTURES] face artifact missing, rebuilding", "hash", hash)
	skin, err := s.resolver.Rematerialize(ctx, KindSkin, hash)
	if err != nil {
		return nil, err
	}
	if skin == nil {
		return nil, fmt.Errorf("%w: %s", ErrTextureMissing, hash)
	}

	face, err := s.resolver.transformer.ExtractFace(skin)
	if err != nil || !helm {
		return face, err
	}
	return s.resolver.transformer.ExtractHelm(face, skin)
}

// GetSkin returns the hash and raw skin texture of an identity.
func (s *Service) GetSkin(ctx context.Context, id string) (string, []byte, error) {
	res, err := s.resolver.Resolve(ctx, id, KindSkin)
	if res.Hash == "" {
		return "", nil, err
	}

	data, dataErr := s.textureBytes(ctx, KindSkin, res.Hash)
	if dataErr != nil {
		return res.Hash, nil, firstError(err, dataErr)
	}
	if data == nil {
		return res.Hash, nil, firstError(err, fmt.Errorf("%w: skin %s", ErrTextureMissing, res.Hash))
	}
	return res.Hash, data, err
}

// GetCape returns the hash and raw cape texture of an identity. A cape that
// is advertised but not downloadable yields the hash without bytes.
func (s *Service) GetCape(ctx context.Context, id string) (string, []byte, error) {
	res, err := s.resolver.Resolve(ctx, id, KindCape)
	if res.Hash == "" {
		return "", nil, err
	}

	data, dataErr := s.textureBytes(ctx, KindCape, res.Hash)
	if dataErr != nil {
		return res.Hash, nil, firstError(err, dataErr)
	}
	if data == nil {
		slog.Warn("[TEXTURES] cape advertised but not downloadable", "hash", res.Hash)
	}
	return res.Hash, data, err
}

// textureBytes reads a stored texture, downloading it by hash when missing.
// Returns nil, nil when upstream no longer has it.
func (s *Service) textureBytes(ctx context.Context, kind Kind, hash string) ([]byte, error) {
	artifact := ArtifactSkin
	if kind == KindCape {
		artifact = ArtifactCape
	}

	data, found, err := s.resolver.artifacts.Read(artifact, hash)
	if err != nil {
		slog.Warn("[TEXTURES] texture read failed, downloading",
			"kind", kind,
			"hash", hash,
			"error", err,
		)
	} else if found {
		return data, nil
	}

	data, err = s.resolver.Rematerialize(ctx, kind, hash)
	if data != nil && err != nil {
		// The bytes are usable even if storing or deriving from them failed.
		slog.Warn("[TEXTURES] failed to store downloaded texture",
			"kind", kind,
			"hash", hash,
			"error", err,
		)
		return data, nil
	}
	return data, err
}

// GetRender returns a front view of the identity's skin model at scale,
// with the overlay layers when helm is set and the body when body is set.
//
// A known hash whose skin bytes cannot be obtained yields StatusNoTexture
// with an error wrapping ErrSkinUnavailable.
func (s *Service) GetRender(ctx context.Context, id string, scale int, helm, body bool) (ImageResult, error) {
	scale = s.resolver.config.ClampScale(scale)

	res, err := s.resolver.Resolve(ctx, id, KindSkin)
	if res.Hash == "" {
		return ImageResult{Status: res.Status}, err
	}

	key := RenderKey(res.Hash, scale, helm, body)
	data, found, readErr := s.resolver.artifacts.Read(ArtifactRender, key)
	if readErr != nil {
		slog.Warn("[TEXTURES] render read failed, redrawing", "key", key, "error", readErr)
	} else if found {
		return ImageResult{Status: servedStatus(StatusCached, err), Hash: res.Hash, Image: data}, err
	}

	skin, skinErr := s.textureBytes(ctx, KindSkin, res.Hash)
	if skin == nil {
		if skinErr != nil {
			skinErr = fmt.Errorf("%w: %s: %w", ErrSkinUnavailable, res.Hash, skinErr)
		} else {
			skinErr = fmt.Errorf("%w: %s", ErrSkinUnavailable, res.Hash)
		}
		return ImageResult{Status: StatusNoTexture, Hash: res.Hash}, skinErr
	}

	img, renderErr := s.resolver.transformer.RenderModel(skin, scale, helm, body)
	if renderErr != nil {
		slog.Error("[TEXTURES] failed to render model",
			"identity", id,
			"hash", res.Hash,
			"error", renderErr,
		)
		return ImageResult{Status: StatusError, Hash: res.Hash}, firstError(err, renderErr)
	}

	if writeErr := s.resolver.write(ArtifactRender, key, img); writeErr != nil {
		slog.Warn("[TEXTURES] failed to store render", "key", key, "error", writeErr)
	}
	return ImageResult{Status: servedStatus(StatusDownloaded, err), Hash: res.Hash, Image: img}, err
}

// RenderKey is the artifact key of a render.
func RenderKey(hash string, scale int, helm, body bool) string {
	kind := "head"
	if body {
		kind = "body"
	}
	if helm {
		kind += "helm"
	}
	return hash + "-" + strconv.Itoa(scale) + "-" + kind
}

// servedStatus downgrades status when the image is served despite err.
func servedStatus(status Status, err error) Status {
	if err != nil {
		return StatusError
	}
	return status
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
