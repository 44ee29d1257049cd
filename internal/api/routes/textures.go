package routes

import (
	"github.com/go-chi/chi/v5"

	textureshandlers "Headshot/internal/api/handlers/textures"
)

// RegisterTextureRoutes registers the image endpoints on the router.
//
// Routes:
//   - GET /avatars/{id}        ?size=&helm=&default=
//   - GET /skins/{id}          ?default=
//   - GET /capes/{id}          ?default=
//   - GET /renders/{type}/{id} ?scale=&helm=&default=  (type: head or body)
//
// {id} is a UUID (dashes optional) or a username, optionally suffixed with
// ".png". Responses carry an ETag derived from the texture hash and honour
// If-None-Match.
func RegisterTextureRoutes(r chi.Router, handler *textureshandlers.Handler) {
	r.Get("/avatars/{id}", handler.HandleAvatar)
	r.Get("/skins/{id}", handler.HandleSkin)
	r.Get("/capes/{id}", handler.HandleCape)
	r.Get("/renders/{type}/{id}", handler.HandleRender)
}
