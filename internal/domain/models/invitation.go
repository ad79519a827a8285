// internal/domain/models/invitation.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Invitation statuses.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationRejected = "rejected"
)

// Invitation is created by a team leader and answered by the invitee.
// InviteeLeft is set once an accepted invitee leaves or is removed from the team.
type Invitation struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	TeamID       primitive.ObjectID `bson:"team_id" json:"teamId"`
	TeamName     string             `bson:"team_name" json:"teamName"`
	InvitedBy    primitive.ObjectID `bson:"invited_by" json:"invitedBy"`
	InviteeEmail string             `bson:"invitee_email" json:"inviteeEmail"`
	Status       string             `bson:"status" json:"status"`
	InviteeLeft  bool               `bson:"invitee_left" json:"inviteeLeft"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}
