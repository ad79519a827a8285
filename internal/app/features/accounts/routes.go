package accounts

import (
	"net/http"

	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /auth. limit guards signup and signin; pass nil to
// leave them unthrottled.
func Routes(h *Handler, sm *auth.SessionManager, limit func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pub chi.Router) {
		if limit != nil {
			pub.Use(limit)
		}
		pub.Post("/signup", h.HandleSignup)
		pub.Post("/signin", h.HandleSignin)
	})
	r.Post("/signout", h.HandleSignout)

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/me", h.ServeMe)
		pr.Delete("/delete/{uid}", h.HandleDelete)
	})

	return r
}
