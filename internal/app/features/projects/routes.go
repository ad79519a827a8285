package projects

import (
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /projects.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/my", h.ServeMine)
		pr.Get("/{id}", h.ServeProject)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleTeamLeader, models.RoleAdmin))
		pr.Post("/create", h.HandleCreate)
		pr.Put("/addMembers/{id}", h.HandleAddMembers)
		pr.Put("/remove/{id}", h.HandleRemoveMember)
		pr.Put("/deadline/{id}", h.HandleDeadline)
		pr.Put("/complete/{id}", h.HandleComplete)
		pr.Delete("/delete/{id}", h.HandleDelete)
	})
	return r
}
