package invitations

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/youlead/internal/app/store/activity"
	invitationstore "github.com/dalemusser/youlead/internal/app/store/invitations"
	"github.com/dalemusser/youlead/internal/app/system/activitylog"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/mailer"
	"github.com/dalemusser/youlead/internal/app/system/normalize"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type inviteRequest struct {
	Email string `json:"email"`
}

// HandleInvite handles POST /invitations/invite.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	var req inviteRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	email := normalize.Email(req.Email)
	if err := inputval.Email(email); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if email == normalize.Email(actor.Email) {
		apierror.Write(w, h.Log, apierror.BadRequest("You cannot invite yourself"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	team, err := h.teams.GetByLeader(ctx, actor.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierror.Write(w, h.Log, apierror.BadRequest("Create a team before inviting members"))
		return
	}
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	invitee, err := h.users.GetByEmail(ctx, email)
	switch {
	case err == nil && invitee.TeamID != nil:
		apierror.Write(w, h.Log, apierror.BadRequest("User is already part of a team"))
		return
	case err == nil && invitee.Role != models.RoleTeamMember:
		apierror.Write(w, h.Log, apierror.BadRequest("Only team members can be invited"))
		return
	case err != nil && !errors.Is(err, mongo.ErrNoDocuments):
		apierror.Write(w, h.Log, err)
		return
	}

	pending, err := h.invitations.HasPending(ctx, team.ID, email)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if pending {
		apierror.Write(w, h.Log, apierror.BadRequest("An invitation is already pending for this email"))
		return
	}

	inv, err := h.invitations.Create(ctx, models.Invitation{
		TeamID:       team.ID,
		TeamName:     team.Name,
		InvitedBy:    actor.ID,
		InviteeEmail: email,
	})
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.Notifier.Notify(mailer.BuildInvitationEmail(email, mailer.InvitationEmailData{
		TeamName:    team.Name,
		InviterName: actor.Name,
		ActionURL:   strings.TrimRight(h.FrontendURL, "/") + "/invitations",
	}))
	h.Activity.Record(ctx, activitylog.Entry{
		TeamID: team.ID, ActorID: actor.ID, ActorName: actor.Name,
		Kind: activity.KindMemberInvited, EntityID: inv.ID,
	}, "%s invited %s to the team", actor.Name, email)
	h.Log.Info("invitation sent", zap.String("team_id", team.ID.Hex()), zap.String("invitation_id", inv.ID.Hex()))

	apierror.Created(w, "Invitation sent successfully", inv)
}

// ServeMine handles GET /invitations/my. Leaders see what their team sent;
// everyone else sees pending invitations addressed to them.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var list []models.Invitation
	if actor.IsLeader() {
		list = []models.Invitation{}
		if actor.HasTeam() {
			list, err = h.invitations.ListByTeam(ctx, actor.TeamID)
		}
	} else {
		list, err = h.invitations.ListPendingFor(ctx, actor.Email)
	}
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Invitations fetched successfully", list)
}

// HandleCancel handles DELETE /invitations/cancel/{id}.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
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

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	inv, err := h.invitations.GetByID(ctx, id)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if inv.InvitedBy != actor.ID {
		apierror.Write(w, h.Log, apierror.Forbidden("Only the inviting leader can cancel this invitation"))
		return
	}
	if err := h.invitations.DeletePending(ctx, id); err != nil {
		if errors.Is(err, invitationstore.ErrNotPending) {
			err = apierror.BadRequest("Only pending invitations can be cancelled")
		}
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Invitation cancelled", nil)
}
