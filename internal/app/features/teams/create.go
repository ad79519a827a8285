package teams

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/youlead/internal/app/store/activity"
	teamstore "github.com/dalemusser/youlead/internal/app/store/teams"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/activitylog"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/app/system/txn"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
)

type createRequest struct {
	Name         string `json:"name"`
	Organization string `json:"organization"`
}

var errHasTeam = apierror.BadRequest("You already have a team")

// HandleCreate handles POST /teams/create.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if !actor.IsLeader() {
		apierror.Write(w, h.Log, apierror.Forbidden("Only team leaders can create a team"))
		return
	}
	if actor.HasTeam() {
		apierror.Write(w, h.Log, errHasTeam)
		return
	}

	var req createRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	name, err := inputval.Name("Team name", req.Name)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	org, err := inputval.Name("Organization", req.Organization)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.teams.GetByLeader(ctx, actor.ID); err == nil {
		apierror.Write(w, h.Log, errHasTeam)
		return
	} else if !errors.Is(err, mongo.ErrNoDocuments) {
		apierror.Write(w, h.Log, err)
		return
	}

	var team models.Team
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		t, err := h.teams.Create(ctx, models.Team{Name: name, Organization: org, TeamLeaderID: actor.ID})
		if err != nil {
			return err
		}
		if err := h.users.JoinTeam(ctx, actor.ID, t.ID); err != nil {
			return err
		}
		team = t
		return nil
	})
	if errors.Is(err, teamstore.ErrLeaderHasTeam) || errors.Is(err, userstore.ErrAlreadyInTeam) {
		apierror.Write(w, h.Log, errHasTeam)
		return
	}
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.Audit.TeamCreated(ctx, r, actor.ID, team.ID, team.Name)
	h.Activity.Record(ctx, activitylog.Entry{
		TeamID: team.ID, ActorID: actor.ID, ActorName: actor.Name,
		Kind: activity.KindTeamCreated, EntityID: team.ID,
	}, "%s created the team %s", actor.Name, team.Name)

	apierror.Created(w, "Team created successfully", team)
}
