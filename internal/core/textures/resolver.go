package textures

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"Headshot/internal/mojang"
)

var hashPattern = regexp.MustCompile(`[0-9a-fA-F]+$`)

// HashFromURL returns the lowercase hexadecimal suffix of a texture URL,
// or "" when the URL has none.
func HashFromURL(url string) string {
	return strings.ToLower(hashPattern.FindString(url))
}

// Resolver decides whether cached texture state is fresh, revalidates it
// upstream when it is not, and materializes changed textures.
type Resolver struct {
	freshness   FreshnessStore
	artifacts   ArtifactStore
	provider    TextureProvider
	transformer Transformer
	config      Config
	metrics     *Metrics

	group singleflight.Group
	now   func() time.Time
}

// NewResolver creates a Resolver. metrics may be nil.
func NewResolver(
	freshness FreshnessStore,
	artifacts ArtifactStore,
	provider TextureProvider,
	transformer Transformer,
	config Config,
	metrics *Metrics,
) (*Resolver, error) {
	if freshness == nil {
		return nil, fmt.Errorf("%w: freshness store", ErrNilDependency)
	}
	if artifacts == nil {
		return nil, fmt.Errorf("%w: artifact store", ErrNilDependency)
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: texture provider", ErrNilDependency)
	}
	if transformer == nil {
		return nil, fmt.Errorf("%w: transformer", ErrNilDependency)
	}

	return &Resolver{
		freshness:   freshness,
		artifacts:   artifacts,
		provider:    provider,
		transformer: transformer,
		config:      config,
		metrics:     metrics,
		now:         time.Now,
	}, nil
}

// kindOutcome is the result of one kind within a full resolution.
type kindOutcome struct {
	url    string
	hash   string
	status Status
	err    error
}

// resolution is the shared result of revalidating an identity upstream.
type resolution struct {
	skin kindOutcome
	cape kindOutcome
}

func (r *resolution) outcome(kind Kind) *kindOutcome {
	if kind == KindCape {
		return &r.cape
	}
	return &r.skin
}

// Resolve returns the status and hash of the requested texture kind.
//
// Inside the freshness window the stored record answers without network
// access. Otherwise the identity is revalidated upstream: both kinds are
// resolved, the record is updated as soon as the hashes are known, and
// changed textures are downloaded and derived. Concurrent revalidations of
// the same identity share one upstream pass.
//
// On failure the returned Result has StatusError and carries the best known
// hash, which may still be usable by the caller.
func (r *Resolver) Resolve(ctx context.Context, id string, kind Kind) (result Result, err error) {
	start := time.Now()
	defer func() {
		r.metrics.observeResolution(kind, result.Status, time.Since(start).Seconds())
	}()

	if !Valid(id) {
		return Result{Status: StatusError}, fmt.Errorf("%w: %q", ErrInvalidIdentity, id)
	}
	key := CacheKey(id)

	rec, err := r.freshness.Get(ctx, key)
	if err != nil {
		slog.Error("[TEXTURES] failed to read freshness record",
			"identity", key,
			"error", err,
		)
		return Result{Status: StatusError}, fmt.Errorf("%w: reading freshness record: %v", ErrStore, err)
	}

	if rec != nil && r.now().Sub(rec.LastChecked) < r.config.LocalCacheTime {
		hash := rec.Hash(kind)
		slog.Debug("[TEXTURES] identity cached and recently checked",
			"identity", key,
			"kind", kind,
			"hash", hash,
		)
		if hash == "" {
			return Result{Status: StatusNoTexture}, nil
		}
		return Result{Status: StatusCached, Hash: hash}, nil
	}

	if rec != nil {
		slog.Debug("[TEXTURES] identity cached but stale", "identity", key)
	} else {
		slog.Debug("[TEXTURES] identity not cached", "identity", key)
	}

	// The shared pass outlives any single caller.
	detached := context.WithoutCancel(ctx)
	v, _, shared := r.group.Do(key, func() (any, error) {
		return r.resolveFull(detached, id, key, rec), nil
	})
	r.metrics.observeFullResolution(shared)

	res := v.(*resolution)
	o := res.outcome(kind)
	if o.err != nil {
		hash := rec.Hash(kind)
		if hash == "" {
			hash = o.hash
		}
		return Result{Status: StatusError, Hash: hash}, o.err
	}

	slog.Debug("[TEXTURES] resolved",
		"identity", key,
		"kind", kind,
		"status", o.status,
		"old_hash", rec.Hash(kind),
		"hash", o.hash,
	)
	return Result{Status: o.status, Hash: o.hash}, nil
}

// resolveFull revalidates both kinds of an identity upstream.
func (r *Resolver) resolveFull(ctx context.Context, id, key string, prev *FreshnessRecord) *resolution {
	res := &resolution{}
	name := Normalize(id)
	isUsername := Classify(id) == IdentityUsername

	var profile *mojang.Profile
	if !isUsername {
		p, err := r.provider.FetchProfile(ctx, name)
		if err != nil {
			slog.Warn("[TEXTURES] profile lookup failed",
				"identity", key,
				"error", err,
			)
			res.skin = kindOutcome{status: StatusError, err: err}
			res.cape = kindOutcome{status: StatusError, err: err}
			return res
		}
		profile = p
	}

	var wg sync.WaitGroup
	for _, kind := range []Kind{KindSkin, KindCape} {
		wg.Add(1)
		go func(kind Kind) {
			defer wg.Done()
			o := res.outcome(kind)
			o.url, o.err = r.lookupURL(ctx, name, isUsername, profile, kind)
			if o.err != nil || o.url == "" {
				return
			}
			o.hash = HashFromURL(o.url)
			if o.hash == "" {
				o.err = fmt.Errorf("%w: no hash in texture url %q", mojang.ErrUpstream, o.url)
			}
		}(kind)
	}
	wg.Wait()

	// Record what was observed before materializing; a concurrent request
	// that sees the new record still checks artifact existence itself.
	r.persist(ctx, key, prev, res)

	for _, kind := range []Kind{KindSkin, KindCape} {
		wg.Add(1)
		go func(kind Kind) {
			defer wg.Done()
			r.settle(ctx, key, prev, kind, res.outcome(kind))
		}(kind)
	}
	wg.Wait()

	return res
}

func (r *Resolver) lookupURL(ctx context.Context, name string, isUsername bool, profile *mojang.Profile, kind Kind) (string, error) {
	if isUsername {
		return r.provider.ResolveUsernameURL(ctx, name, kind.textureType())
	}
	return profile.TextureURL(kind.textureType()), nil
}

// persist writes the observed hashes. A kind whose lookup failed keeps its
// previous hash; without a previous record nothing is written, so a failed
// lookup is never cached as "no texture".
func (r *Resolver) persist(ctx context.Context, key string, prev *FreshnessRecord, res *resolution) {
	skinHash, skinOK := persistedHash(prev, KindSkin, &res.skin)
	capeHash, capeOK := persistedHash(prev, KindCape, &res.cape)
	if !skinOK || !capeOK {
		slog.Debug("[TEXTURES] not saving freshness record after failed lookup", "identity", key)
		return
	}
	if res.skin.err != nil && res.cape.err != nil {
		return
	}

	var err error
	if prev != nil && prev.SkinHash == skinHash && prev.CapeHash == capeHash {
		err = r.freshness.Touch(ctx, key)
	} else {
		err = r.freshness.Put(ctx, key, skinHash, capeHash)
	}
	if err != nil {
		r.metrics.observeFreshnessFailure()
		slog.Warn("[TEXTURES] failed to save freshness record",
			"identity", key,
			"error", err,
		)
	}
}

// persistedHash returns the hash to store for kind and whether one is known.
func persistedHash(prev *FreshnessRecord, kind Kind, o *kindOutcome) (string, bool) {
	if o.err == nil {
		return o.hash, true
	}
	if prev == nil {
		return "", false
	}
	return prev.Hash(kind), true
}

// settle decides the final status of one kind, downloading and deriving
// when the hash changed or its artifact is missing.
func (r *Resolver) settle(ctx context.Context, key string, prev *FreshnessRecord, kind Kind, o *kindOutcome) {
	switch {
	case o.err != nil:
		o.status = StatusError
		return
	case o.url == "":
		o.status = StatusNoTexture
		return
	}

	if prev != nil && prev.Hash(kind) == o.hash && r.artifacts.Exists(kind.artifactKind(), o.hash) {
		slog.Debug("[TEXTURES] hash has not changed",
			"identity", key,
			"kind", kind,
			"hash", o.hash,
		)
		o.status = StatusChecked
		return
	}

	slog.Info("[TEXTURES] new hash",
		"identity", key,
		"kind", kind,
		"hash", o.hash,
	)
	if err := r.materialize(ctx, kind, o.url, o.hash); err != nil {
		slog.Error("[TEXTURES] failed to materialize texture",
			"identity", key,
			"kind", kind,
			"hash", o.hash,
			"error", err,
		)
		o.status = StatusError
		o.err = err
		return
	}
	o.status = StatusDownloaded
}

// materialize downloads a texture and writes its artifacts.
func (r *Resolver) materialize(ctx context.Context, kind Kind, url, hash string) error {
	data, err := r.provider.Download(ctx, url)
	if err != nil {
		return err
	}
	if data == nil {
		return fmt.Errorf("%w: %s", ErrTextureMissing, url)
	}
	if kind == KindCape {
		return r.write(ArtifactCape, hash, data)
	}
	return r.storeSkin(hash, data)
}

// Rematerialize downloads a texture by hash and rewrites its artifacts.
// It recovers artifacts removed by the sweep after the record was written.
// Returns nil, nil when upstream no longer has the texture.
func (r *Resolver) Rematerialize(ctx context.Context, kind Kind, hash string) ([]byte, error) {
	data, err := r.provider.Download(ctx, r.provider.TextureURL(hash))
	if err != nil || data == nil {
		return nil, err
	}
	if kind == KindCape {
		return data, r.write(ArtifactCape, hash, data)
	}
	return data, r.storeSkin(hash, data)
}

// storeSkin writes the skin and derives face and helm from the downloaded
// bytes. The face is written last since its presence marks the skin as
// materialized.
func (r *Resolver) storeSkin(hash string, skin []byte) error {
	if err := r.write(ArtifactSkin, hash, skin); err != nil {
		return err
	}

	face, err := r.transformer.ExtractFace(skin)
	if err != nil {
		return err
	}
	helm, err := r.transformer.ExtractHelm(face, skin)
	if err != nil {
		return err
	}
	if err := r.write(ArtifactHelm, hash, helm); err != nil {
		return err
	}
	return r.write(ArtifactFace, hash, face)
}

func (r *Resolver) write(kind ArtifactKind, key string, data []byte) error {
	err := r.artifacts.Write(kind, key, data)
	r.metrics.observeWrite(kind, err)
	if err != nil {
		return fmt.Errorf("%w: writing %s/%s: %v", ErrStore, kind, key, err)
	}
	return nil
}
