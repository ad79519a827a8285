// internal/domain/models/meeting.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Meeting statuses.
const (
	MeetingScheduled = "scheduled"
	MeetingCancelled = "cancelled"
)

type Meeting struct {
	ID           primitive.ObjectID   `bson:"_id" json:"id"`
	Title        string               `bson:"title" json:"title"`
	Description  string               `bson:"description" json:"description"`
	OrganizerID  primitive.ObjectID   `bson:"organizer_id" json:"organizerId"`
	TeamID       primitive.ObjectID   `bson:"team_id" json:"teamId"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	StartTime    time.Time            `bson:"start_time" json:"startTime"`
	EndTime      time.Time            `bson:"end_time" json:"endTime"`
	Link         string               `bson:"link,omitempty" json:"link,omitempty"`
	Status       string               `bson:"status" json:"status"`
	CreatedAt    time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updatedAt"`
}

// Includes reports whether id organizes or participates in the meeting.
func (m Meeting) Includes(id primitive.ObjectID) bool {
	return m.OrganizerID == id || containsID(m.Participants, id)
}
