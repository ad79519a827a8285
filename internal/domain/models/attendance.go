// internal/domain/models/attendance.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Attendance statuses.
const (
	AttendancePresent = "present"
	AttendanceLate    = "late"
)

// Attendance is one check-in; (user_id, date) is unique.
type Attendance struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	UserID      primitive.ObjectID  `bson:"user_id" json:"userId"`
	TeamID      *primitive.ObjectID `bson:"team_id,omitempty" json:"teamId,omitempty"`
	Date        string              `bson:"date" json:"date"` // YYYY-MM-DD, UTC
	Status      string              `bson:"status" json:"status"`
	CheckedInAt time.Time           `bson:"checked_in_at" json:"checkedInAt"`
}

// AttendanceInfo is the per-user running summary, created at signup.
type AttendanceInfo struct {
	ID            primitive.ObjectID `bson:"_id" json:"id"`
	UserID        primitive.ObjectID `bson:"user_id" json:"userId"`
	DaysPresent   int                `bson:"days_present" json:"daysPresent"`
	DaysLate      int                `bson:"days_late" json:"daysLate"`
	LastDate      string             `bson:"last_date,omitempty" json:"lastDate,omitempty"`
	CurrentStreak int                `bson:"current_streak" json:"currentStreak"`
	LongestStreak int                `bson:"longest_streak" json:"longestStreak"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updatedAt"`
}
