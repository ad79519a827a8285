package tasks

import (
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /tasks. Creator and assignee checks happen per task.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/create", h.HandleCreate)
		pr.Get("/my", h.ServeMine)
		pr.Get("/project/{projectId}", h.ServeByProject)
		pr.Put("/assign/{id}", h.HandleAssign)
		pr.Put("/unassign/{id}", h.HandleUnassign)
		pr.Put("/deadline/{id}", h.HandleDeadline)
		pr.Put("/update/{id}", h.HandleUpdate)
		pr.Put("/complete/{id}", h.HandleComplete)
		pr.Delete("/delete/{id}", h.HandleDelete)
	})
	return r
}
