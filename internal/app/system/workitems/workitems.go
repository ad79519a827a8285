// Package workitems holds the membership changes that touch both projects
// and tasks, with the user counters that mirror them. Every function must
// run inside the caller's transaction.
package workitems

import (
	"context"
	"errors"

	projectstore "github.com/dalemusser/youlead/internal/app/store/projects"
	taskstore "github.com/dalemusser/youlead/internal/app/store/tasks"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Ops bundles the stores the counter rules span.
type Ops struct {
	Projects *projectstore.Store
	Tasks    *taskstore.Store
	Users    *userstore.Store
}

func New(db *mongo.Database) Ops {
	return Ops{
		Projects: projectstore.New(db),
		Tasks:    taskstore.New(db),
		Users:    userstore.New(db),
	}
}

// RemoveFromProject pulls userID from a project and from every task of the
// project they are assigned to, decrementing pending (and past_due) counters
// for items that were still pending. It returns the ids of the tasks the
// user was unassigned from, or projectstore.ErrNotMember when the user was
// not a member.
func (o Ops) RemoveFromProject(ctx context.Context, projectID, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	before, err := o.Projects.RemoveMember(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	ids := []primitive.ObjectID{userID}
	if before.Status == models.StatusPending {
		if err := o.Users.AdjustCounters(ctx, userstore.ProjectCounters, ids, userstore.Removal(before.PastDue)); err != nil {
			return nil, err
		}
	}

	tasks, err := o.Tasks.ListByProjectAssignee(ctx, projectID, userID)
	if err != nil {
		return nil, err
	}
	var pulled []primitive.ObjectID
	for _, t := range tasks {
		err := o.UnassignTask(ctx, t.ID, userID)
		if errors.Is(err, taskstore.ErrNotAssigned) {
			continue
		}
		if err != nil {
			return nil, err
		}
		pulled = append(pulled, t.ID)
	}
	return pulled, nil
}

// UnassignTask pulls userID from a task and moves their counters if the task
// was pending. Returns taskstore.ErrNotAssigned when they were not assigned.
func (o Ops) UnassignTask(ctx context.Context, taskID, userID primitive.ObjectID) error {
	before, err := o.Tasks.Unassign(ctx, taskID, userID)
	if err != nil {
		return err
	}
	if before.Status != models.StatusPending {
		return nil
	}
	return o.Users.AdjustCounters(ctx, userstore.TaskCounters, []primitive.ObjectID{userID}, userstore.Removal(before.PastDue))
}

// DetachFromTeam removes userID from every project of teamID they belong to
// and from those projects' tasks.
func (o Ops) DetachFromTeam(ctx context.Context, teamID, userID primitive.ObjectID) error {
	projects, err := o.Projects.ListByMember(ctx, teamID, userID)
	if err != nil {
		return err
	}
	for _, p := range projects {
		if _, err := o.RemoveFromProject(ctx, p.ID, userID); err != nil && !errors.Is(err, projectstore.ErrNotMember) {
			return err
		}
	}
	return nil
}

// DeleteProject deletes a project and its tasks, decrementing the counters
// of members and assignees on items that were still pending.
func (o Ops) DeleteProject(ctx context.Context, p models.Project) error {
	tasks, err := o.Tasks.ListByProject(ctx, p.ID)
	if err != nil {
		return err
	}
	for _, t := range tasks {
		if t.Status != models.StatusPending {
			continue
		}
		if err := o.Users.AdjustCounters(ctx, userstore.TaskCounters, t.AssignedTo, userstore.Removal(t.PastDue)); err != nil {
			return err
		}
	}
	if _, err := o.Tasks.DeleteByProject(ctx, p.ID); err != nil {
		return err
	}
	if p.Status == models.StatusPending {
		if err := o.Users.AdjustCounters(ctx, userstore.ProjectCounters, p.Members, userstore.Removal(p.PastDue)); err != nil {
			return err
		}
	}
	return o.Projects.Delete(ctx, p.ID)
}

// DeleteTask deletes a task, decrementing assignees' counters if it was pending.
func (o Ops) DeleteTask(ctx context.Context, t models.Task) error {
	if t.Status == models.StatusPending {
		if err := o.Users.AdjustCounters(ctx, userstore.TaskCounters, t.AssignedTo, userstore.Removal(t.PastDue)); err != nil {
			return err
		}
	}
	return o.Tasks.Delete(ctx, t.ID)
}
