// internal/app/features/calendar/handler.go
package calendar

import (
	"time"

	meetingstore "github.com/dalemusser/youlead/internal/app/store/meetings"
	projectstore "github.com/dalemusser/youlead/internal/app/store/projects"
	taskstore "github.com/dalemusser/youlead/internal/app/store/tasks"
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/app/system/prioritizer"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Log      *zap.Logger
	AI       prioritizer.Prioritizer
	tasks    *taskstore.Store
	projects *projectstore.Store
	meetings *meetingstore.Store
	now      func() time.Time
}

func NewHandler(db *mongo.Database, ai prioritizer.Prioritizer, logger *zap.Logger) *Handler {
	if ai == nil {
		ai = prioritizer.Disabled{}
	}
	return &Handler{
		Log:      logger,
		AI:       ai,
		tasks:    taskstore.New(db),
		projects: projectstore.New(db),
		meetings: meetingstore.New(db),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Routes mounts under /calendar.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/my", h.ServeMine)
		pr.Get("/task-prioritization", h.StreamPrioritization)
	})
	return r
}
