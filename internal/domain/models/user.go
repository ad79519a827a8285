// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles.
const (
	RoleAdmin      = "admin"
	RoleTeamLeader = "teamLeader"
	RoleTeamMember = "teamMember"
)

// User statuses. Users are never removed; deleting an account marks it inactive.
const (
	UserActive   = "active"
	UserInactive = "inactive"
)

// Auth methods.
const (
	AuthPassword = "password"
	AuthGoogle   = "google"
)

// StatusCounters tracks how many assigned tasks (or projects) a user has in
// each state. PastDue is a subset of Pending.
type StatusCounters struct {
	Completed int `bson:"completed" json:"completed"`
	Pending   int `bson:"pending" json:"pending"`
	PastDue   int `bson:"past_due" json:"pastDue"`
}

// User is a profile plus the denormalized counters other modules maintain.
type User struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"` // folded to lowercase
	Phone        string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Picture      string             `bson:"picture,omitempty" json:"picture,omitempty"`
	PasswordHash string             `bson:"password_hash,omitempty" json:"-"`
	AuthMethod   string             `bson:"auth_method" json:"authMethod"`
	GoogleID     string             `bson:"google_id,omitempty" json:"-"`
	Role         string             `bson:"role" json:"role"`
	Status       string             `bson:"status" json:"status"`

	TeamID           *primitive.ObjectID `bson:"team_id,omitempty" json:"teamId,omitempty"`
	AttendanceInfoID *primitive.ObjectID `bson:"attendance_info_id,omitempty" json:"attendanceInfoId,omitempty"`

	TaskStatus    StatusCounters `bson:"task_status" json:"taskStatus"`
	ProjectStatus StatusCounters `bson:"project_status" json:"projectStatus"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

// IsLeader reports whether the user leads a team.
func (u User) IsLeader() bool { return u.Role == RoleTeamLeader }

// ValidSignupRole reports whether a role may be chosen at signup.
func ValidSignupRole(role string) bool {
	return role == RoleTeamLeader || role == RoleTeamMember
}
