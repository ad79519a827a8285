// internal/app/features/projects/handler.go
package projects

import (
	"context"
	"net/http"
	"time"

	projectstore "github.com/dalemusser/youlead/internal/app/store/projects"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/activitylog"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/realtime"
	"github.com/dalemusser/youlead/internal/app/system/workitems"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Activity *activitylog.Recorder
	// Rooms drops removed members from chat rooms. Nil disables it.
	Rooms    *realtime.Hub
	projects *projectstore.Store
	users    *userstore.Store
	ops      workitems.Ops
	now      func() time.Time
}

func NewHandler(db *mongo.Database, activity *activitylog.Recorder, logger *zap.Logger) *Handler {
	ops := workitems.New(db)
	return &Handler{
		DB:       db,
		Log:      logger,
		Activity: activity,
		projects: ops.Projects,
		users:    ops.Users,
		ops:      ops,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var (
	errNotCreator       = apierror.Forbidden("Only the project creator can do that")
	errMembersNotInTeam = apierror.BadRequest("All members must belong to your team")
	errNoNewMembers     = apierror.BadRequest("No new members to add")
	errCompleted        = apierror.BadRequest("Project is already completed")
)

// owned resolves {id} to a project the actor created.
func (h *Handler) owned(ctx context.Context, r *http.Request, actor authz.Actor) (*models.Project, error) {
	id, err := inputval.ObjectID("project id", chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	p, err := h.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.CreatedBy != actor.ID {
		return nil, errNotCreator
	}
	return p, nil
}

// checkInTeam fails unless every id is an active user of teamID.
func (h *Handler) checkInTeam(ctx context.Context, teamID primitive.ObjectID, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := h.users.CountInTeam(ctx, teamID, ids)
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return errMembersNotInTeam
	}
	return nil
}

func (h *Handler) record(ctx context.Context, actor authz.Actor, p models.Project, kind, format string, args ...any) {
	h.Activity.Record(ctx, activitylog.Entry{
		TeamID: p.TeamID, ActorID: actor.ID, ActorName: actor.Name,
		Kind: kind, EntityID: p.ID,
	}, format, args...)
}
