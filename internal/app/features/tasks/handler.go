// internal/app/features/tasks/handler.go
package tasks

import (
	"context"
	"net/http"
	"time"

	projectstore "github.com/dalemusser/youlead/internal/app/store/projects"
	taskstore "github.com/dalemusser/youlead/internal/app/store/tasks"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/activitylog"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/realtime"
	"github.com/dalemusser/youlead/internal/app/system/workitems"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Activity *activitylog.Recorder
	// Rooms drops unassigned users from task chat rooms. Nil disables it.
	Rooms    *realtime.Hub
	tasks    *taskstore.Store
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
		tasks:    ops.Tasks,
		projects: ops.Projects,
		users:    ops.Users,
		ops:      ops,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var (
	errNotCreator  = apierror.Forbidden("Only the task creator can do that")
	errNotInvolved = apierror.Forbidden("Only the task creator or an assignee can do that")
	errCompleted   = apierror.BadRequest("Task is already completed")
	errNotMember   = apierror.BadRequest("User is not a member of this project")
)

func (h *Handler) load(ctx context.Context, r *http.Request) (*models.Task, error) {
	id, err := inputval.ObjectID("task id", chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	return h.tasks.GetByID(ctx, id)
}

// owned resolves {id} to a task the actor created.
func (h *Handler) owned(ctx context.Context, r *http.Request, actor authz.Actor) (*models.Task, error) {
	t, err := h.load(ctx, r)
	if err != nil {
		return nil, err
	}
	if t.CreatedBy != actor.ID {
		return nil, errNotCreator
	}
	return t, nil
}

// involved resolves {id} to a task the actor created or is assigned to.
func (h *Handler) involved(ctx context.Context, r *http.Request, actor authz.Actor) (*models.Task, error) {
	t, err := h.load(ctx, r)
	if err != nil {
		return nil, err
	}
	if t.CreatedBy != actor.ID && !t.IsAssigned(actor.ID) {
		return nil, errNotInvolved
	}
	return t, nil
}

func (h *Handler) record(ctx context.Context, actor authz.Actor, t models.Task, kind, format string, args ...any) {
	h.Activity.Record(ctx, activitylog.Entry{
		TeamID: t.TeamID, ActorID: actor.ID, ActorName: actor.Name,
		Kind: kind, EntityID: t.ID,
	}, format, args...)
}
