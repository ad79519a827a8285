// internal/domain/models/task.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// Task belongs to a project. AssignedTo is always a subset of the parent
// project's members at the time of assignment.
type Task struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	ProjectID   primitive.ObjectID   `bson:"project_id" json:"projectId"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description" json:"description"`
	Status      string               `bson:"status" json:"status"`
	Priority    string               `bson:"priority" json:"priority"`
	Progress    int                  `bson:"progress" json:"progress"`
	AssignedTo  []primitive.ObjectID `bson:"assigned_to" json:"assignedTo"`
	Deadline    []time.Time          `bson:"deadline" json:"deadline"`
	PastDue     bool                 `bson:"past_due" json:"pastDue"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"createdBy"`
	TeamID      primitive.ObjectID   `bson:"team_id" json:"teamId"`
	CreatedAt   time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updatedAt"`
	CompletedAt *time.Time           `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
}

// CurrentDeadline returns the last deadline, or the zero time if none was set.
func (t Task) CurrentDeadline() time.Time {
	return lastDeadline(t.Deadline)
}

// IsAssigned reports whether id is in AssignedTo.
func (t Task) IsAssigned(id primitive.ObjectID) bool {
	return containsID(t.AssignedTo, id)
}

// ValidPriority reports whether p is a known priority.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}
