package attendance

import (
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /attendance.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/post", h.HandleCheckIn)
		pr.Get("/my", h.ServeMine)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleTeamLeader))
		pr.Get("/team", h.ServeTeam)
	})
	return r
}
