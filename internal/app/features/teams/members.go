package teams

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/youlead/internal/app/store/activity"
	"github.com/dalemusser/youlead/internal/app/system/activitylog"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/app/system/txn"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

var errNoTeam = apierror.NotFound("You are not part of a team")

type teamView struct {
	Team    models.Team   `json:"team"`
	Members []models.User `json:"members"`
}

// ServeMyTeam handles GET /teams/my.
func (h *Handler) ServeMyTeam(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if !actor.HasTeam() {
		apierror.Write(w, h.Log, errNoTeam)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	team, err := h.teams.GetByID(ctx, actor.TeamID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierror.Write(w, h.Log, errNoTeam)
		return
	}
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	members, err := h.users.ListTeamMembers(ctx, team.ID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Team fetched successfully", teamView{Team: *team, Members: members})
}

// HandleRemoveMember handles DELETE /teams/members/{uid}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	memberID, err := inputval.ObjectID("member id", chi.URLParam(r, "uid"))
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if memberID == actor.ID {
		apierror.Write(w, h.Log, apierror.BadRequest("Team leaders cannot remove themselves"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	team, err := h.teams.GetByLeader(ctx, actor.ID)
	if errors.Is(err, mongo.ErrNoDocuments) {
		apierror.Write(w, h.Log, errNoTeam)
		return
	}
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	member, err := h.users.GetByID(ctx, memberID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	if err := h.detach(ctx, team.ID, *member); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.Audit.MemberRemoved(ctx, r, actor.ID, member.ID, team.ID, false)
	h.Activity.Record(ctx, activitylog.Entry{
		TeamID: team.ID, ActorID: actor.ID, ActorName: actor.Name,
		Kind: activity.KindMemberRemoved, EntityID: member.ID,
	}, "%s removed %s from the team", actor.Name, member.Name)

	apierror.OK(w, "Member removed successfully", nil)
}

// HandleLeave handles POST /teams/leave.
func (h *Handler) HandleLeave(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if !actor.HasTeam() {
		apierror.Write(w, h.Log, errNoTeam)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	team, err := h.teams.GetByID(ctx, actor.TeamID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if team.TeamLeaderID == actor.ID {
		apierror.Write(w, h.Log, apierror.BadRequest("Team leaders cannot leave their own team"))
		return
	}
	me, err := h.users.GetByID(ctx, actor.ID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	if err := h.detach(ctx, team.ID, *me); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.Audit.MemberRemoved(ctx, r, actor.ID, actor.ID, team.ID, true)
	h.Activity.Record(ctx, activitylog.Entry{
		TeamID: team.ID, ActorID: actor.ID, ActorName: actor.Name,
		Kind: activity.KindMemberLeft, EntityID: actor.ID,
	}, "%s left the team", actor.Name)

	apierror.OK(w, "You left the team", nil)
}

// detach clears the user's team, pulls them out of the team's projects and
// tasks and flags their accepted invitation, all in one transaction.
func (h *Handler) detach(ctx context.Context, teamID primitive.ObjectID, u models.User) error {
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		left, err := h.users.LeaveTeam(ctx, u.ID, teamID)
		if err != nil {
			return err
		}
		if !left {
			return apierror.BadRequest("User is not a member of your team")
		}
		if err := h.ops.DetachFromTeam(ctx, teamID, u.ID); err != nil {
			return err
		}
		return h.invitations.MarkLeft(ctx, teamID, u.Email)
	})
	if err == nil {
		h.Rooms.EvictAll(u.ID.Hex())
		h.Log.Info("member detached from team",
			zap.String("team_id", teamID.Hex()),
			zap.String("user_id", u.ID.Hex()))
	}
	return err
}
