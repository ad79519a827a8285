package tasks

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/youlead/internal/app/store/activity"
	taskstore "github.com/dalemusser/youlead/internal/app/store/tasks"
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
	ProjectID   string   `json:"projectId"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Deadline    string   `json:"deadline"`
	Priority    string   `json:"priority"`
	AssignedTo  []string `json:"assignedTo"`
}

// HandleCreate handles POST /tasks/create.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	var req createRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	projectID, err := inputval.ObjectID("projectId", req.ProjectID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	now := h.now()
	t := models.Task{ProjectID: projectID, CreatedBy: actor.ID}
	if t.Name, err = inputval.Name("Task name", req.Name); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if t.Description, err = inputval.Description(req.Description); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if t.Priority, err = inputval.Priority(req.Priority); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	deadline, err := inputval.Deadline(req.Deadline, now)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	t.Deadline = []time.Time{deadline}
	if t.AssignedTo, err = inputval.ObjectIDs("assignee id", req.AssignedTo); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	p, err := h.projects.GetByID(ctx, projectID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if p.CreatedBy != actor.ID {
		apierror.Write(w, h.Log, apierror.Forbidden("Only the project creator can add tasks"))
		return
	}
	if p.Status != models.StatusPending {
		apierror.Write(w, h.Log, apierror.BadRequest("Project is already completed"))
		return
	}
	for _, id := range t.AssignedTo {
		if !p.HasMember(id) {
			apierror.Write(w, h.Log, apierror.BadRequest("Assignees must be members of the project"))
			return
		}
	}
	t.TeamID = p.TeamID

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		created, err := h.tasks.Create(ctx, t)
		if err != nil {
			return err
		}
		t = created
		return h.users.AdjustCounters(ctx, userstore.TaskCounters, t.AssignedTo, userstore.Assigned)
	})
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.record(ctx, actor, t, activity.KindTaskCreated, "%s created the task %s in %s", actor.Name, t.Name, p.Name)
	h.Log.Info("task created", zap.String("task_id", t.ID.Hex()), zap.String("project_id", p.ID.Hex()))
	apierror.Created(w, "Task created successfully", t)
}

type userRequest struct {
	UserID string `json:"userId"`
}

func decodeUserID(r *http.Request) (primitive.ObjectID, error) {
	var req userRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		return primitive.NilObjectID, err
	}
	return inputval.ObjectID("userId", req.UserID)
}

// HandleAssign handles PUT /tasks/assign/{id}.
func (h *Handler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	userID, err := decodeUserID(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, err := h.owned(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	p, err := h.projects.GetByID(ctx, t.ProjectID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if !p.HasMember(userID) {
		apierror.Write(w, h.Log, errNotMember)
		return
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		before, err := h.tasks.Assign(ctx, t.ID, userID)
		if err != nil {
			return err
		}
		if before.Status != models.StatusPending {
			return nil
		}
		return h.users.AdjustCounters(ctx, userstore.TaskCounters, []primitive.ObjectID{userID}, userstore.Assignment(before.PastDue))
	})
	if errors.Is(err, taskstore.ErrAlreadyAssigned) {
		apierror.Write(w, h.Log, apierror.BadRequest("User is already assigned to this task"))
		return
	}
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.record(ctx, actor, *t, activity.KindTaskAssigned, "%s assigned a member to %s", actor.Name, t.Name)
	apierror.OK(w, "Task assigned successfully", nil)
}

// HandleUnassign handles PUT /tasks/unassign/{id}.
func (h *Handler) HandleUnassign(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	userID, err := decodeUserID(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, err := h.owned(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		return h.ops.UnassignTask(ctx, t.ID, userID)
	})
	if errors.Is(err, taskstore.ErrNotAssigned) {
		apierror.Write(w, h.Log, apierror.BadRequest("User is not assigned to this task"))
		return
	}
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.Rooms.Evict(userID.Hex(), models.RoomKey(models.RoomTask, t.ID))

	h.record(ctx, actor, *t, activity.KindTaskUnassigned, "%s unassigned a member from %s", actor.Name, t.Name)
	apierror.OK(w, "Task unassigned successfully", nil)
}

type deadlineRequest struct {
	Deadline string `json:"deadline"`
}

// HandleDeadline handles PUT /tasks/deadline/{id}.
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

	t, err := h.owned(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if t.Status != models.StatusPending {
		apierror.Write(w, h.Log, errCompleted)
		return
	}

	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		before, err := h.tasks.AppendDeadline(ctx, t.ID, deadline, now)
		if err != nil {
			return err
		}
		if before.Status == models.StatusPending && before.PastDue && deadline.After(now) {
			return h.users.AdjustCounters(ctx, userstore.TaskCounters, before.AssignedTo, userstore.NoLongerPastDue)
		}
		return nil
	})
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	t.Deadline = append(t.Deadline, deadline)
	if deadline.After(now) {
		t.PastDue = false
	}
	h.record(ctx, actor, *t, activity.KindTaskDeadline, "%s moved the deadline of %s to %s",
		actor.Name, t.Name, deadline.Format("2006-01-02"))
	apierror.OK(w, "Deadline updated successfully", t)
}

type updateRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Priority    *string `json:"priority"`
	Progress    *int    `json:"progress"`
}

// HandleUpdate handles PUT /tasks/update/{id}. Counters are not touched.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	var req updateRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	f, err := req.fields()
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.involved(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	updated, err := h.tasks.UpdateFields(ctx, t.ID, f)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.record(ctx, actor, *updated, activity.KindTaskUpdated, "%s updated %s", actor.Name, updated.Name)
	apierror.OK(w, "Task updated successfully", updated)
}

func (req updateRequest) fields() (taskstore.Fields, error) {
	var f taskstore.Fields
	if req.Name == nil && req.Description == nil && req.Priority == nil && req.Progress == nil {
		return f, apierror.BadRequest("Nothing to update")
	}
	if req.Name != nil {
		name, err := inputval.Name("Task name", *req.Name)
		if err != nil {
			return f, err
		}
		f.Name = &name
	}
	if req.Description != nil {
		d, err := inputval.Description(*req.Description)
		if err != nil {
			return f, err
		}
		f.Description = &d
	}
	if req.Priority != nil {
		p, err := inputval.Priority(*req.Priority)
		if err != nil {
			return f, err
		}
		f.Priority = &p
	}
	if req.Progress != nil {
		if err := inputval.Progress(*req.Progress); err != nil {
			return f, err
		}
		f.Progress = req.Progress
	}
	return f, nil
}

// HandleComplete handles PUT /tasks/complete/{id}.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, err := h.involved(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		before, err := h.tasks.Complete(ctx, t.ID, h.now())
		if err != nil {
			return err
		}
		return h.users.AdjustCounters(ctx, userstore.TaskCounters, before.AssignedTo, userstore.Completion(before.PastDue))
	})
	if errors.Is(err, taskstore.ErrNotPending) {
		apierror.Write(w, h.Log, errCompleted)
		return
	}
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.record(ctx, actor, *t, activity.KindTaskCompleted, "%s completed %s", actor.Name, t.Name)
	apierror.OK(w, "Task marked as completed", nil)
}

// HandleDelete handles DELETE /tasks/delete/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	t, err := h.owned(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		cur, err := h.tasks.GetByID(ctx, t.ID)
		if err != nil {
			return err
		}
		return h.ops.DeleteTask(ctx, *cur)
	})
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.Rooms.CloseRoom(models.RoomKey(models.RoomTask, t.ID))

	h.record(ctx, actor, *t, activity.KindTaskDeleted, "%s deleted the task %s", actor.Name, t.Name)
	apierror.OK(w, "Task deleted successfully", nil)
}
