package teams

import (
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /teams.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/my", h.ServeMyTeam)
		pr.Post("/leave", h.HandleLeave)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleTeamLeader))
		pr.Post("/create", h.HandleCreate)
		pr.Delete("/members/{uid}", h.HandleRemoveMember)
	})
	return r
}
