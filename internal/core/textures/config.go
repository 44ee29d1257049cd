package textures

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"
)

// Config validation errors
var (
	// ErrInvalidLocalCacheTime is returned when LocalCacheTime is negative
	ErrInvalidLocalCacheTime = errors.New("LocalCacheTime cannot be negative")
	// ErrInvalidHTTPTimeout is returned when HTTPTimeout is not positive
	ErrInvalidHTTPTimeout = errors.New("HTTPTimeout must be positive")
	// ErrInvalidSizeRange is returned when the avatar size bounds are inconsistent
	ErrInvalidSizeRange = errors.New("size bounds must satisfy 1 <= MinSize <= DefaultSize <= MaxSize")
	// ErrInvalidScaleRange is returned when the render scale bounds are inconsistent
	ErrInvalidScaleRange = errors.New("scale bounds must satisfy 1 <= MinScale <= DefaultScale <= MaxScale")
	// ErrMissingDirectory is returned when an artifact directory is empty
	ErrMissingDirectory = errors.New("artifact directory is required")
	// ErrInvalidCacheMaxGB is returned when CacheMaxGB is not positive
	ErrInvalidCacheMaxGB = errors.New("CacheMaxGB must be positive")
	// ErrInvalidCacheTTL is returned when CacheTTLDays is negative
	ErrInvalidCacheTTL = errors.New("CacheTTLDays cannot be negative")
)

// Config holds the configuration consumed by the texture core.
type Config struct {
	// LocalCacheTime is how long a freshness record is trusted before the
	// identity is revalidated upstream.
	LocalCacheTime time.Duration

	// HTTPTimeout is the per-operation timeout for upstream requests.
	HTTPTimeout time.Duration

	// BrowserCacheTime is advertised to clients via Cache-Control.
	BrowserCacheTime time.Duration

	// Avatar size bounds in pixels.
	MinSize     int
	MaxSize     int
	DefaultSize int

	// Render scale bounds.
	MinScale     int
	MaxScale     int
	DefaultScale int

	// Artifact directories, one per kind.
	FacesDir   string
	HelmsDir   string
	SkinsDir   string
	CapesDir   string
	RendersDir string

	// CacheMaxGB is the size above which the sweep evicts least recently
	// used artifacts.
	CacheMaxGB int

	// CacheTTLDays removes artifacts unused for this many days. 0 disables.
	CacheTTLDays int

	// SweepInterval is how often the artifact sweep runs. 0 disables it.
	SweepInterval time.Duration

	// RateLimitAsNotFound treats upstream 429 responses as absent textures.
	RateLimitAsNotFound bool

	// UpstreamRPS throttles upstream requests. 0 disables throttling.
	UpstreamRPS   float64
	UpstreamBurst int
}

// Validate checks the configuration for invalid values.
func (c Config) Validate() error {
	if c.LocalCacheTime < 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidLocalCacheTime, c.LocalCacheTime)
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidHTTPTimeout, c.HTTPTimeout)
	}
	if c.MinSize < 1 || c.MinSize > c.DefaultSize || c.DefaultSize > c.MaxSize {
		return fmt.Errorf("%w: got %d/%d/%d", ErrInvalidSizeRange, c.MinSize, c.DefaultSize, c.MaxSize)
	}
	if c.MinScale < 1 || c.MinScale > c.DefaultScale || c.DefaultScale > c.MaxScale {
		return fmt.Errorf("%w: got %d/%d/%d", ErrInvalidScaleRange, c.MinScale, c.DefaultScale, c.MaxScale)
	}
	for kind, dir := range c.Dirs() {
		if dir == "" {
			return fmt.Errorf("%w: %s", ErrMissingDirectory, kind)
		}
	}
	if c.CacheMaxGB <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCacheMaxGB, c.CacheMaxGB)
	}
	if c.CacheTTLDays < 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidCacheTTL, c.CacheTTLDays)
	}
	return nil
}

// Dirs maps each artifact kind to its directory.
func (c Config) Dirs() map[ArtifactKind]string {
	return map[ArtifactKind]string{
		ArtifactFace:   c.FacesDir,
		ArtifactHelm:   c.HelmsDir,
		ArtifactSkin:   c.SkinsDir,
		ArtifactCape:   c.CapesDir,
		ArtifactRender: c.RendersDir,
	}
}

// ClampSize bounds an avatar size, substituting the default for 0.
func (c Config) ClampSize(size int) int {
	if size == 0 {
		return c.DefaultSize
	}
	return clamp(size, c.MinSize, c.MaxSize)
}

// ClampScale bounds a render scale, substituting the default for 0.
func (c Config) ClampScale(scale int) int {
	if scale == 0 {
		return c.DefaultScale
	}
	return clamp(scale, c.MinScale, c.MaxScale)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		LocalCacheTime:   30 * time.Second,
		HTTPTimeout:      3 * time.Second,
		BrowserCacheTime: 30 * time.Second,
		MinSize:          1,
		MaxSize:          512,
		DefaultSize:      160,
		MinScale:         1,
		MaxScale:         10,
		DefaultScale:     6,
		FacesDir:         "skins/faces",
		HelmsDir:         "skins/helms",
		SkinsDir:         "skins/skins",
		CapesDir:         "skins/capes",
		RendersDir:       "skins/renders",
		CacheMaxGB:       10,
		CacheTTLDays:     0,
		SweepInterval:    10 * time.Minute,
	}
}

// ConfigFromEnv creates a Config from environment variables.
// Uses defaults for any missing or invalid environment variables.
//
// Environment variables:
//   - LOCAL_CACHE_TIME: seconds a freshness record is trusted (default: 30)
//   - HTTP_TIMEOUT_MS: upstream request timeout in ms (default: 3000)
//   - BROWSER_CACHE_TIME: Cache-Control max-age in seconds (default: 30)
//   - MIN_SIZE, MAX_SIZE, DEFAULT_SIZE: avatar size bounds (default: 1, 512, 160)
//   - MIN_SCALE, MAX_SCALE, DEFAULT_SCALE: render scale bounds (default: 1, 10, 6)
//   - FACES_DIR, HELMS_DIR, SKINS_DIR, CAPES_DIR, RENDERS_DIR: artifact directories
//   - CACHE_MAX_GB: artifact size limit in GB (default: 10)
//   - CACHE_TTL_DAYS: artifact max idle age in days, 0 to disable (default: 0)
//   - SWEEP_INTERVAL_MINUTES: sweep interval, 0 to disable (default: 10)
//   - RATE_LIMIT_AS_NOT_FOUND: "true"/"1" treats upstream 429 as absent (default: false)
//   - UPSTREAM_RPS, UPSTREAM_BURST: upstream throttle (default: 0, disabled)
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if n, ok := envInt("LOCAL_CACHE_TIME", int(cfg.LocalCacheTime.Seconds()), 0); ok {
		cfg.LocalCacheTime = time.Duration(n) * time.Second
	}
	if n, ok := envInt("HTTP_TIMEOUT_MS", int(cfg.HTTPTimeout.Milliseconds()), 1); ok {
		cfg.HTTPTimeout = time.Duration(n) * time.Millisecond
	}
	if n, ok := envInt("BROWSER_CACHE_TIME", int(cfg.BrowserCacheTime.Seconds()), 0); ok {
		cfg.BrowserCacheTime = time.Duration(n) * time.Second
	}

	if n, ok := envInt("MIN_SIZE", cfg.MinSize, 1); ok {
		cfg.MinSize = n
	}
	if n, ok := envInt("MAX_SIZE", cfg.MaxSize, 1); ok {
		cfg.MaxSize = n
	}
	if n, ok := envInt("DEFAULT_SIZE", cfg.DefaultSize, 1); ok {
		cfg.DefaultSize = n
	}
	if n, ok := envInt("MIN_SCALE", cfg.MinScale, 1); ok {
		cfg.MinScale = n
	}
	if n, ok := envInt("MAX_SCALE", cfg.MaxScale, 1); ok {
		cfg.MaxScale = n
	}
	if n, ok := envInt("DEFAULT_SCALE", cfg.DefaultScale, 1); ok {
		cfg.DefaultScale = n
	}

	if v := os.Getenv("FACES_DIR"); v != "" {
		cfg.FacesDir = v
	}
	if v := os.Getenv("HELMS_DIR"); v != "" {
		cfg.HelmsDir = v
	}
	if v := os.Getenv("SKINS_DIR"); v != "" {
		cfg.SkinsDir = v
	}
	if v := os.Getenv("CAPES_DIR"); v != "" {
		cfg.CapesDir = v
	}
	if v := os.Getenv("RENDERS_DIR"); v != "" {
		cfg.RendersDir = v
	}

	if n, ok := envInt("CACHE_MAX_GB", cfg.CacheMaxGB, 1); ok {
		cfg.CacheMaxGB = n
	}
	if n, ok := envInt("CACHE_TTL_DAYS", cfg.CacheTTLDays, 0); ok {
		cfg.CacheTTLDays = n
	}
	if n, ok := envInt("SWEEP_INTERVAL_MINUTES", int(cfg.SweepInterval.Minutes()), 0); ok {
		cfg.SweepInterval = time.Duration(n) * time.Minute
	}

	if v := os.Getenv("RATE_LIMIT_AS_NOT_FOUND"); v != "" {
		cfg.RateLimitAsNotFound = v == "true" || v == "1"
	}

	if v := os.Getenv("UPSTREAM_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 {
			cfg.UpstreamRPS = f
		} else {
			slog.Warn("[TEXTURES] invalid UPSTREAM_RPS value, using default",
				"value", v,
				"default", cfg.UpstreamRPS,
				"error", err,
			)
		}
	}
	if n, ok := envInt("UPSTREAM_BURST", cfg.UpstreamBurst, 0); ok {
		cfg.UpstreamBurst = n
	}

	return cfg
}

// envInt reads an integer environment variable that must be >= min.
// Returns ok=false when the variable is unset or invalid.
func envInt(name string, def, min int) (int, bool) {
	v := os.Getenv(name)
	if v == "" {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < min {
		slog.Warn("[TEXTURES] invalid "+name+" value, using default",
			"value", v,
			"default", def,
			"error", err,
		)
		return 0, false
	}
	return n, true
}
