package projects

import (
	"context"
	"net/http"

	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
)

// ServeMine handles GET /projects/my.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.projects.ListForUser(ctx, actor.ID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Projects fetched successfully", list)
}

// ServeProject handles GET /projects/{id}.
func (h *Handler) ServeProject(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	id, err := inputval.ObjectID("project id", chi.URLParam(r, "id"))
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.projects.GetByID(ctx, id)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if !p.CanView(actor.ID) && !actor.IsAdmin() {
		apierror.Write(w, h.Log, apierror.Forbidden("You are not part of this project"))
		return
	}
	apierror.OK(w, "Project fetched successfully", p)
}
