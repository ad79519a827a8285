// internal/app/features/activities/handler.go
package activities

import (
	"context"
	"net/http"

	"github.com/dalemusser/youlead/internal/app/store/activity"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/paging"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type Handler struct {
	Log   *zap.Logger
	store *activity.Store
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{Log: logger, store: activity.New(db)}
}

// Routes mounts under /activities.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/recent", h.ServeRecent)
	})
	return r
}

// ServeRecent handles GET /activities/recent[?limit=].
func (h *Handler) ServeRecent(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if !actor.HasTeam() {
		apierror.OK(w, "Activities fetched successfully", []activity.Event{})
		return
	}
	limit := paging.Limit(r, "limit", defaultLimit, maxLimit)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	events, err := h.store.Recent(ctx, actor.TeamID, int64(limit))
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Activities fetched successfully", events)
}
