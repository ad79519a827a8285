package invitations

import (
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /invitations.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/my", h.ServeMine)
		pr.Put("/respond/{id}/{response}", h.HandleRespond)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleTeamLeader))
		pr.Post("/invite", h.HandleInvite)
		pr.Delete("/cancel/{id}", h.HandleCancel)
	})
	return r
}
