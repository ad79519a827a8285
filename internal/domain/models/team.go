// internal/domain/models/team.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Team has exactly one leader; a leader creates at most one team.
type Team struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Organization string             `bson:"organization" json:"organization"`
	TeamLeaderID primitive.ObjectID `bson:"team_leader_id" json:"teamLeaderId"`
	CreatedAt    time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `bson:"updated_at" json:"updatedAt"`
}
