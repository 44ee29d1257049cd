// Package textures provides HTTP handlers for player avatars, skins, capes
// and renders.
package textures

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"Headshot/internal/core/skins"
	"Headshot/internal/core/textures"
)

// Service defines the request operations of the texture core.
type Service interface {
	GetAvatar(ctx context.Context, id string, helm bool, size int) (textures.ImageResult, error)
	GetSkin(ctx context.Context, id string) (string, []byte, error)
	GetCape(ctx context.Context, id string) (string, []byte, error)
	GetRender(ctx context.Context, id string, scale int, helm, body bool) (textures.ImageResult, error)
}

// Defaults draws the images served when an identity has no texture.
type Defaults interface {
	DefaultAvatar(model string, size int) ([]byte, error)
	DefaultRender(model string, scale int, helm, body bool) ([]byte, error)
}

// Handler handles HTTP requests for textures.
type Handler struct {
	service  Service
	defaults Defaults
	config   textures.Config
}

// NewHandler creates a new texture handler.
func NewHandler(service Service, defaults Defaults, config textures.Config) *Handler {
	return &Handler{
		service:  service,
		defaults: defaults,
		config:   config,
	}
}

// result is what a route hands to respond.
type result struct {
	status textures.Status
	hash   string
	image  []byte
	err    error
}

// fallbackFunc draws the default image for a skin model.
type fallbackFunc func(model string) ([]byte, error)

// HandleAvatar handles GET /avatars/{id}?size=&helm=&default=
func (h *Handler) HandleAvatar(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	size, ok := intParam(w, r, "size", h.config.DefaultSize)
	if !ok {
		return
	}
	helm := boolParam(r, "helm")

	res, err := h.service.GetAvatar(r.Context(), id, helm, size)
	h.respond(w, r, start, id, result{res.Status, res.Hash, res.Image, err}, func(model string) ([]byte, error) {
		return h.defaults.DefaultAvatar(model, h.config.ClampSize(size))
	})
}

// HandleSkin handles GET /skins/{id}?default=
func (h *Handler) HandleSkin(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	hash, image, err := h.service.GetSkin(r.Context(), id)
	h.respond(w, r, start, id, result{storageStatus(hash, image, err), hash, image, err}, func(model string) ([]byte, error) {
		return skins.DefaultSkinPNG(model), nil
	})
}

// HandleCape handles GET /capes/{id}?default=
// There is no default cape, so a missing cape is a plain 404 unless a
// redirect target is given.
func (h *Handler) HandleCape(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	hash, image, err := h.service.GetCape(r.Context(), id)
	h.respond(w, r, start, id, result{storageStatus(hash, image, err), hash, image, err}, nil)
}

// HandleRender handles GET /renders/{type}/{id}?scale=&helm=&default=
// where type is head or body.
func (h *Handler) HandleRender(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var body bool
	switch chi.URLParam(r, "type") {
	case "head":
	case "body":
		body = true
	default:
		writeErrorResponse(w, http.StatusUnprocessableEntity, "422 Invalid Render Type")
		return
	}

	id, ok := h.identity(w, r)
	if !ok {
		return
	}
	scale, ok := intParam(w, r, "scale", h.config.DefaultScale)
	if !ok {
		return
	}
	helm := boolParam(r, "helm")

	res, err := h.service.GetRender(r.Context(), id, scale, helm, body)
	h.respond(w, r, start, id, result{res.Status, res.Hash, res.Image, err}, func(model string) ([]byte, error) {
		return h.defaults.DefaultRender(model, h.config.ClampScale(scale), helm, body)
	})
}

// identity reads and validates the {id} parameter. A ".png" suffix is
// accepted and ignored.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := strings.TrimSuffix(chi.URLParam(r, "id"), ".png")
	if !textures.Valid(id) {
		writeErrorResponse(w, http.StatusUnprocessableEntity, "422 Invalid UUID")
		return "", false
	}
	return id, true
}

func (h *Handler) respond(w http.ResponseWriter, r *http.Request, start time.Time, id string, res result, fallback fallbackFunc) {
	if res.err != nil {
		logError(r, id, res)
	}

	header := w.Header()
	header.Set("Cache-Control", fmt.Sprintf("max-age=%d, public", int(h.config.BrowserCacheTime.Seconds())))
	header.Set("X-Storage-Type", res.status.String())
	header.Set("Response-Time", strconv.FormatInt(time.Since(start).Milliseconds(), 10))

	if res.image == nil {
		h.handleDefault(w, r, id, fallback)
		return
	}

	etag := `"` + etagValue(res.hash) + `"`
	header.Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	status := http.StatusOK
	if res.err != nil {
		status = http.StatusServiceUnavailable
	}
	writeImage(w, status, res.image)
}

// handleDefault answers a request that produced no image: a redirect when
// default is an http(s) URL, otherwise the default model image with 404.
func (h *Handler) handleDefault(w http.ResponseWriter, r *http.Request, id string, fallback fallbackFunc) {
	def := r.URL.Query().Get("default")
	if isRedirectTarget(def) {
		http.Redirect(w, r, def, http.StatusMovedPermanently)
		return
	}
	if fallback == nil {
		writeErrorResponse(w, http.StatusNotFound, "404 Not Found")
		return
	}

	model := skins.DefaultSkin(id)
	switch strings.ToLower(def) {
	case skins.Steve, "mhf_steve":
		model = skins.Steve
	case skins.Alex, "mhf_alex":
		model = skins.Alex
	}

	image, err := fallback(model)
	if err != nil {
		slog.Error("[TEXTURES-API] failed to draw default image",
			"id", id,
			"model", model,
			"error", err,
		)
		writeErrorResponse(w, http.StatusInternalServerError, "500 Internal Server Error")
		return
	}
	w.Header().Set("ETag", `"none"`)
	writeImage(w, http.StatusNotFound, image)
}

// storageStatus derives X-Storage-Type for operations that do not report a
// status themselves.
func storageStatus(hash string, image []byte, err error) textures.Status {
	switch {
	case err != nil:
		return textures.StatusError
	case hash == "" || image == nil:
		return textures.StatusNoTexture
	default:
		return textures.StatusCached
	}
}

func etagValue(hash string) string {
	if hash == "" {
		return "none"
	}
	if len(hash) > 32 {
		return hash[:32]
	}
	return hash
}

func isRedirectTarget(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// intParam parses an optional integer query parameter.
func intParam(w http.ResponseWriter, r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		writeErrorResponse(w, http.StatusUnprocessableEntity, "422 Invalid "+strings.ToUpper(name[:1])+name[1:])
		return 0, false
	}
	return n, true
}

// boolParam treats a present parameter as set unless it is "false" or "0".
func boolParam(r *http.Request, name string) bool {
	q := r.URL.Query()
	if !q.Has(name) {
		return false
	}
	v := strings.ToLower(q.Get(name))
	return v != "false" && v != "0"
}

func logError(r *http.Request, id string, res result) {
	attrs := []any{
		"path", r.URL.Path,
		"id", id,
		"status", res.status.String(),
		"hash", res.hash,
		"error", res.err,
	}
	if errors.Is(res.err, textures.ErrInvalidIdentity) {
		slog.Debug("[TEXTURES-API] invalid identity", attrs...)
		return
	}
	slog.Warn("[TEXTURES-API] request completed with error", attrs...)
}

func writeImage(w http.ResponseWriter, status int, image []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(status)
	if _, err := w.Write(image); err != nil {
		slog.Warn("[TEXTURES-API] failed to write image response",
			"status", status,
			"error", err,
		)
	}
}

// writeErrorResponse writes a plain text error response.
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(message)); err != nil {
		slog.Warn("[TEXTURES-API] failed to write error response",
			"status", status,
			"message", message,
			"error", err,
		)
	}
}
