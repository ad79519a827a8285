package tasks

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeMine handles GET /tasks/my[?projectId=]. Leaders also see the tasks
// they created.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	var projectID primitive.ObjectID
	if raw := query.Get(r, "projectId"); raw != "" {
		if projectID, err = inputval.ObjectID("projectId", raw); err != nil {
			apierror.Write(w, h.Log, err)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.tasks.ListForUser(ctx, actor.ID, actor.IsLeader(), projectID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Tasks fetched successfully", list)
}

// ServeByProject handles GET /tasks/project/{projectId}.
func (h *Handler) ServeByProject(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	projectID, err := inputval.ObjectID("project id", chi.URLParam(r, "projectId"))
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.projects.GetByID(ctx, projectID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if !p.CanView(actor.ID) && !actor.IsAdmin() {
		apierror.Write(w, h.Log, apierror.Forbidden("You are not part of this project"))
		return
	}
	list, err := h.tasks.ListByProject(ctx, projectID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Tasks fetched successfully", list)
}
