package projects

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/youlead/internal/app/store/activity"
	projectstore "github.com/dalemusser/youlead/internal/app/store/projects"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/app/system/txn"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Deadline    string   `json:"deadline"`
	Members     []string `json:"members"`
}

// HandleCreate handles POST /projects/create.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if !actor.HasTeam() {
		apierror.Write(w, h.Log, apierror.BadRequest("Create a team before adding projects"))
		return
	}

	var req createRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	now := h.now()
	p := models.Project{CreatedBy: actor.ID, TeamID: actor.TeamID}
	if p.Name, err = inputval.Name("Project name", req.Name); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if p.Description, err = inputval.Description(req.Description); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	deadline, err := inputval.Deadline(req.Deadline, now)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	p.Deadline = []time.Time{deadline}
	if p.Members, err = inputval.ObjectIDs("member id", req.Members); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.checkInTeam(ctx, actor.TeamID, p.Members); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		created, err := h.projects.Create(ctx, p)
		if err != nil {
			return err
		}
		p = created
		return h.users.AdjustCounters(ctx, userstore.ProjectCounters, p.Members, userstore.Assigned)
	})
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.record(ctx, actor, p, activity.KindProjectCreated, "%s created the project %s", actor.Name, p.Name)
	h.Log.Info("project created", zap.String("project_id", p.ID.Hex()), zap.Int("members", len(p.Members)))
	apierror.Created(w, "Project created successfully", p)
}

type membersRequest struct {
	Members []string `json:"members"`
}

// HandleAddMembers handles PUT /projects/addMembers/{id}.
func (h *Handler) HandleAddMembers(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	var req membersRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	ids, err := inputval.ObjectIDs("member id", req.Members)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.owned(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	fresh := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if !p.HasMember(id) {
			fresh = append(fresh, id)
		}
	}
	if len(fresh) == 0 {
		apierror.Write(w, h.Log, errNoNewMembers)
		return
	}
	if err := h.checkInTeam(ctx, p.TeamID, fresh); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	// Counters follow the project as read inside the transaction; a
	// concurrent add, complete or sweep may have changed it since owned().
	var added []primitive.ObjectID
	var current models.Project
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		before, err := h.projects.AddMembers(ctx, p.ID, fresh)
		if err != nil {
			return err
		}
		added = added[:0]
		for _, id := range fresh {
			if !before.HasMember(id) {
				added = append(added, id)
			}
		}
		current = *before
		if len(added) == 0 {
			return errNoNewMembers
		}
		if before.Status != models.StatusPending {
			return nil
		}
		return h.users.AdjustCounters(ctx, userstore.ProjectCounters, added, userstore.Assignment(before.PastDue))
	})
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	current.Members = append(current.Members, added...)
	h.record(ctx, actor, current, activity.KindProjectMembers, "%s added %d member(s) to %s", actor.Name, len(added), current.Name)
	apierror.OK(w, "Members added successfully", current)
}

type removeRequest struct {
	MemberID string `json:"memberId"`
}

// HandleRemoveMember handles PUT /projects/remove/{id}.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	var req removeRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	memberID, err := inputval.ObjectID("member id", req.MemberID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.owned(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	var pulled []primitive.ObjectID
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		pulled, err = h.ops.RemoveFromProject(ctx, p.ID, memberID)
		return err
	})
	if errors.Is(err, projectstore.ErrNotMember) {
		apierror.Write(w, h.Log, apierror.BadRequest("User is not a member of this project"))
		return
	}
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	rooms := []string{models.RoomKey(models.RoomProject, p.ID)}
	for _, id := range pulled {
		rooms = append(rooms, models.RoomKey(models.RoomTask, id))
	}
	h.Rooms.Evict(memberID.Hex(), rooms...)

	h.record(ctx, actor, *p, activity.KindProjectMemberOut, "%s removed a member from %s", actor.Name, p.Name)
	apierror.OK(w, "Member removed successfully", nil)
}

type deadlineRequest struct {
	Deadline string `json:"deadline"`
}

// HandleDeadline handles PUT /projects/deadline/{id}.
func (h *Handler) HandleDeadline(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	var req deadlineRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	now := h.now()
	deadline, err := inputval.Deadline(req.Deadline, now)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.owned(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if p.Status != models.StatusPending {
		apierror.Write(w, h.Log, errCompleted)
		return
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		before, err := h.projects.AppendDeadline(ctx, p.ID, deadline, now)
		if err != nil {
			return err
		}
		if before.Status == models.StatusPending && before.PastDue && deadline.After(now) {
			return h.users.AdjustCounters(ctx, userstore.ProjectCounters, before.Members, userstore.NoLongerPastDue)
		}
		return nil
	})
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	p.Deadline = append(p.Deadline, deadline)
	if deadline.After(now) {
		p.PastDue = false
	}
	h.record(ctx, actor, *p, activity.KindProjectDeadline, "%s moved the deadline of %s to %s",
		actor.Name, p.Name, deadline.Format("2006-01-02"))
	apierror.OK(w, "Deadline updated successfully", p)
}

// HandleComplete handles PUT /projects/complete/{id}.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.owned(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		before, err := h.projects.Complete(ctx, p.ID, h.now())
		if err != nil {
			return err
		}
		return h.users.AdjustCounters(ctx, userstore.ProjectCounters, before.Members, userstore.Completion(before.PastDue))
	})
	if errors.Is(err, projectstore.ErrNotPending) {
		apierror.Write(w, h.Log, errCompleted)
		return
	}
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.record(ctx, actor, *p, activity.KindProjectCompleted, "%s marked %s as completed", actor.Name, p.Name)
	apierror.OK(w, "Project marked as completed", nil)
}

// HandleDelete handles DELETE /projects/delete/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	p, err := h.owned(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	var taskIDs []primitive.ObjectID
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		cur, err := h.projects.GetByID(ctx, p.ID)
		if err != nil {
			return err
		}
		tasks, err := h.ops.Tasks.ListByProject(ctx, p.ID)
		if err != nil {
			return err
		}
		taskIDs = taskIDs[:0]
		for _, t := range tasks {
			taskIDs = append(taskIDs, t.ID)
		}
		return h.ops.DeleteProject(ctx, *cur)
	})
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	h.Rooms.CloseRoom(models.RoomKey(models.RoomProject, p.ID))
	for _, id := range taskIDs {
		h.Rooms.CloseRoom(models.RoomKey(models.RoomTask, id))
	}

	h.record(ctx, actor, *p, activity.KindProjectDeleted, "%s deleted the project %s", actor.Name, p.Name)
	apierror.OK(w, "Project deleted successfully", nil)
}
