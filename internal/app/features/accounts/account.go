package accounts

import (
	"context"
	"net/http"

	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/app/system/txn"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ServeMe handles GET /auth/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.users.GetByID(ctx, actor.ID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "User fetched successfully", u)
}

// HandleDelete handles DELETE /auth/delete/{uid}. Accounts are deactivated,
// never removed; the user is pulled out of every project and task.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	targetID, err := inputval.ObjectID("user id", chi.URLParam(r, "uid"))
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if !actor.IsAdmin() && actor.ID != targetID {
		apierror.Write(w, h.Log, apierror.Forbidden("You can only delete your own account"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.users.GetByID(ctx, targetID); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		if err := h.users.SetStatus(ctx, targetID, models.UserInactive); err != nil {
			return err
		}
		if err := h.ops.Projects.PullUserEverywhere(ctx, targetID); err != nil {
			return err
		}
		return h.ops.Tasks.PullUserEverywhere(ctx, targetID)
	})
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.Audit.UserDeactivated(ctx, r, actor.ID, targetID)
	h.Log.Info("user deactivated", zap.String("user_id", targetID.Hex()), zap.String("by", actor.ID.Hex()))

	if actor.ID == targetID {
		if err := h.Sessions.SignOut(w, r); err != nil {
			h.Log.Warn("clear session failed", zap.Error(err))
		}
	}
	apierror.OK(w, "User deleted successfully", nil)
}
