package invitations

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/youlead/internal/app/store/activity"
	invitationstore "github.com/dalemusser/youlead/internal/app/store/invitations"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/activitylog"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/normalize"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/app/system/txn"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var errNotPending = apierror.BadRequest("Invitation has already been answered")

// HandleRespond handles PUT /invitations/respond/{id}/{response}.
func (h *Handler) HandleRespond(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	id, err := inputval.ObjectID("invitation id", chi.URLParam(r, "id"))
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	response := chi.URLParam(r, "response")
	if response != models.InvitationAccepted && response != models.InvitationRejected {
		apierror.Write(w, h.Log, apierror.BadRequest("Response must be accepted or rejected"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	inv, err := h.invitations.GetByID(ctx, id)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if inv.InviteeEmail != normalize.Email(actor.Email) {
		apierror.Write(w, h.Log, apierror.Forbidden("This invitation is not addressed to you"))
		return
	}
	if inv.Status != models.InvitationPending {
		apierror.Write(w, h.Log, errNotPending)
		return
	}

	if response == models.InvitationRejected {
		err = h.invitations.Answer(ctx, id, models.InvitationRejected)
	} else {
		err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
			if err := h.invitations.Answer(ctx, id, models.InvitationAccepted); err != nil {
				return err
			}
			if err := h.users.JoinTeam(ctx, actor.ID, inv.TeamID); err != nil {
				return err
			}
			_, err := h.invitations.RejectOthers(ctx, inv.InviteeEmail, inv.ID)
			return err
		})
	}
	switch {
	case errors.Is(err, invitationstore.ErrNotPending):
		apierror.Write(w, h.Log, errNotPending)
		return
	case errors.Is(err, userstore.ErrAlreadyInTeam):
		apierror.Write(w, h.Log, apierror.BadRequest("You are already part of a team"))
		return
	case err != nil:
		apierror.Write(w, h.Log, err)
		return
	}

	kind, verb := activity.KindInvitationAccepted, "joined"
	if response == models.InvitationRejected {
		kind, verb = activity.KindInvitationRejected, "declined the invitation to"
	}
	h.Activity.Record(ctx, activitylog.Entry{
		TeamID: inv.TeamID, ActorID: actor.ID, ActorName: actor.Name,
		Kind: kind, EntityID: inv.ID,
	}, "%s %s the team", actor.Name, verb)
	h.Log.Info("invitation answered",
		zap.String("invitation_id", inv.ID.Hex()),
		zap.String("response", response))

	inv.Status = response
	apierror.OK(w, "Invitation "+response, inv)
}
