// internal/domain/models/project.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Work item statuses shared by projects and tasks.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
)

// Project groups tasks for a subset of a team.
//
// Deadline is append-only history: the current deadline is the last element.
// PastDue is set by the past-due sweep and mirrored into members' counters.
type Project struct {
	ID          primitive.ObjectID   `bson:"_id" json:"id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description" json:"description"`
	Status      string               `bson:"status" json:"status"`
	Members     []primitive.ObjectID `bson:"members" json:"members"`
	Deadline    []time.Time          `bson:"deadline" json:"deadline"`
	PastDue     bool                 `bson:"past_due" json:"pastDue"`
	CreatedBy   primitive.ObjectID   `bson:"created_by" json:"createdBy"`
	TeamID      primitive.ObjectID   `bson:"team_id" json:"teamId"`
	CreatedAt   time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updatedAt"`
	CompletedAt *time.Time           `bson:"completed_at,omitempty" json:"completedAt,omitempty"`
}

// CurrentDeadline returns the last deadline, or the zero time if none was set.
func (p Project) CurrentDeadline() time.Time {
	return lastDeadline(p.Deadline)
}

// HasMember reports whether id is in Members.
func (p Project) HasMember(id primitive.ObjectID) bool {
	return containsID(p.Members, id)
}

// CanView reports whether a user may read the project.
func (p Project) CanView(id primitive.ObjectID) bool {
	return p.CreatedBy == id || p.HasMember(id)
}

func lastDeadline(ds []time.Time) time.Time {
	if len(ds) == 0 {
		return time.Time{}
	}
	return ds[len(ds)-1]
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}
