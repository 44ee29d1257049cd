package mojang

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultSessionURL is the profile lookup endpoint; the UUID is appended.
	DefaultSessionURL = "https://sessionserver.mojang.com/session/minecraft/profile/"

	// DefaultSkinsURL is the legacy username skin endpoint; "{name}.png" is appended.
	DefaultSkinsURL = "https://skins.minecraft.net/MinecraftSkins/"

	// DefaultCapesURL is the legacy username cape endpoint; "{name}.png" is appended.
	DefaultCapesURL = "https://skins.minecraft.net/MinecraftCloaks/"

	// DefaultTexturesURL serves texture bytes by hash.
	DefaultTexturesURL = "http://textures.minecraft.net/texture/"

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 3 * time.Second

	// UserAgent is sent with every upstream request.
	UserAgent = "Headshot/1.0"

	// maxBodyBytes bounds how much of a response body is read.
	maxBodyBytes = 4 * 1024 * 1024
)

// Config holds client configuration.
type Config struct {
	SessionURL  string
	SkinsURL    string
	CapesURL    string
	TexturesURL string
	Timeout     time.Duration
	UserAgent   string

	// RequestsPerSecond throttles outbound requests. 0 disables throttling.
	RequestsPerSecond float64
	Burst             int

	// RateLimitAsNotFound makes 429 responses behave like 404 (no content, no
	// error) instead of returning ErrRateLimited.
	RateLimitAsNotFound bool
}

// Client talks to the Mojang session and texture servers.
// Redirects are never followed.
type Client struct {
	sessionURL          string
	skinsURL            string
	capesURL            string
	texturesURL         string
	userAgent           string
	timeout             time.Duration
	rateLimitAsNotFound bool
	httpClient          *http.Client
	limiter             *rate.Limiter
	observer            func(operation, outcome string)
}

// NewClient creates a new client, filling unset fields with defaults.
func NewClient(cfg Config) *Client {
	if cfg.SessionURL == "" {
		cfg.SessionURL = DefaultSessionURL
	}
	if cfg.SkinsURL == "" {
		cfg.SkinsURL = DefaultSkinsURL
	}
	if cfg.CapesURL == "" {
		cfg.CapesURL = DefaultCapesURL
	}
	if cfg.TexturesURL == "" {
		cfg.TexturesURL = DefaultTexturesURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = UserAgent
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	slog.Debug("[MOJANG] creating client",
		"session_url", cfg.SessionURL,
		"timeout", cfg.Timeout,
		"requests_per_second", cfg.RequestsPerSecond,
		"rate_limit_as_not_found", cfg.RateLimitAsNotFound,
	)

	return &Client{
		sessionURL:          cfg.SessionURL,
		skinsURL:            cfg.SkinsURL,
		capesURL:            cfg.CapesURL,
		texturesURL:         cfg.TexturesURL,
		userAgent:           cfg.UserAgent,
		timeout:             cfg.Timeout,
		rateLimitAsNotFound: cfg.RateLimitAsNotFound,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: limiter,
	}
}

// SetObserver registers a callback invoked once per upstream request with
// the operation name and its outcome ("ok", "not_found", "rate_limited",
// "timeout", "error").
func (c *Client) SetObserver(fn func(operation, outcome string)) {
	c.observer = fn
}

// FetchProfile looks up the profile of an undashed UUID.
// Returns nil, nil when uuid is empty or the profile does not exist.
func (c *Client) FetchProfile(ctx context.Context, uuid string) (*Profile, error) {
	if uuid == "" {
		return nil, nil
	}

	res, err := c.get(ctx, "profile", c.sessionURL+uuid, false)
	if err != nil {
		return nil, err
	}
	switch {
	case res.absent:
		return nil, nil
	case res.status == http.StatusNoContent:
		// the session server answers 204 for unknown UUIDs
		return nil, nil
	}

	var profile Profile
	if err := json.Unmarshal(res.body, &profile); err != nil {
		return nil, fmt.Errorf("%w: malformed profile for %s: %v", ErrUpstream, uuid, err)
	}
	return &profile, nil
}

// ResolveUsernameURL asks the legacy per-kind endpoint where the texture of
// a username lives and returns the redirect target without following it.
// Returns "" when the user has no such texture.
func (c *Client) ResolveUsernameURL(ctx context.Context, username string, t TextureType) (string, error) {
	base := c.skinsURL
	if t == TextureCape {
		base = c.capesURL
	}

	res, err := c.get(ctx, "username_redirect", base+username+".png", true)
	if err != nil {
		return "", err
	}
	if res.absent {
		return "", nil
	}
	return res.location, nil
}

// Download fetches raw texture bytes. Returns nil, nil on 404.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	res, err := c.get(ctx, "download", url, false)
	if err != nil {
		return nil, err
	}
	if res.absent {
		return nil, nil
	}
	return res.body, nil
}

// TextureURL returns the download URL of a texture hash.
func (c *Client) TextureURL(hash string) string {
	return c.texturesURL + hash
}

type response struct {
	status   int
	body     []byte
	location string
	absent   bool
}

// get performs a single GET under the configured timeout and maps the
// status code: 2xx succeeds, 3xx succeeds only when redirects is set,
// 404 (and 429 when configured) are absent, 429 is ErrRateLimited and
// anything else is an UpstreamError.
func (c *Client) get(ctx context.Context, operation, url string, redirects bool) (*response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	res, err := c.do(ctx, url, redirects)
	c.observe(operation, res, err)
	return res, err
}

func (c *Client) do(ctx context.Context, url string, redirects bool) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: waiting for rate limiter: %v", ErrTimeout, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create request: %v", ErrUpstream, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil || isTimeoutError(err) {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, url)
		}
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		if ctx.Err() != nil || isTimeoutError(err) {
			return nil, fmt.Errorf("%w: reading %s", ErrTimeout, url)
		}
		return nil, fmt.Errorf("%w: failed to read response body: %v", ErrUpstream, err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("%w: response body of %s exceeds %d bytes", ErrUpstream, url, maxBodyBytes)
	}

	res := &response{
		status:   resp.StatusCode,
		body:     body,
		location: resp.Header.Get("Location"),
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300,
		redirects && resp.StatusCode >= 300 && resp.StatusCode < 400:
		slog.Debug("[MOJANG] url received", "url", url, "status", resp.StatusCode)
		return res, nil

	case resp.StatusCode == http.StatusNotFound:
		slog.Debug("[MOJANG] url does not exist", "url", url)
		res.absent = true
		return res, nil

	case resp.StatusCode == http.StatusTooManyRequests:
		slog.Warn("[MOJANG] too many requests",
			"url", url,
			"body", truncate(string(body), 200),
		)
		if c.rateLimitAsNotFound {
			res.absent = true
			return res, nil
		}
		return nil, ErrRateLimited

	default:
		slog.Error("[MOJANG] unexpected status",
			"url", url,
			"status", resp.StatusCode,
		)
		return nil, NewUpstreamError(resp.StatusCode, truncate(string(body), 512))
	}
}

func (c *Client) observe(operation string, res *response, err error) {
	if c.observer == nil {
		return
	}
	outcome := "ok"
	switch {
	case errors.Is(err, ErrTimeout):
		outcome = "timeout"
	case errors.Is(err, ErrRateLimited):
		outcome = "rate_limited"
	case err != nil:
		outcome = "error"
	case res != nil && res.absent:
		outcome = "not_found"
	}
	c.observer(operation, outcome)
}

// isTimeoutError checks if the error is a timeout-related error.
func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	var te interface{ Timeout() bool }
	if errors.As(err, &te) {
		return te.Timeout()
	}
	return false
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
