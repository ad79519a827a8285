package meetings

import (
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /meeting.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/create", h.HandleCreate)
		pr.Get("/my", h.ServeMine)
		pr.Put("/update/{id}", h.HandleUpdate)
		pr.Put("/cancel/{id}", h.HandleCancel)
		pr.Delete("/delete/{id}", h.HandleDelete)
	})
	return r
}
