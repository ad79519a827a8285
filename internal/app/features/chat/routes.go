package chat

import (
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /chat.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/messages", h.ServeHistory)
		pr.Post("/messages", h.HandleSend)
		pr.Put("/messages/read", h.HandleRead)
		pr.Put("/messages/{id}", h.HandleEdit)
		pr.Delete("/messages/{id}", h.HandleDelete)
		pr.Get("/online", h.ServeOnline)
		pr.Get("/ws", h.ServeWS)
	})
	return r
}
