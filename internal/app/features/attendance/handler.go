// internal/app/features/attendance/handler.go
package attendance

import (
	"time"

	attendancestore "github.com/dalemusser/youlead/internal/app/store/attendance"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/activitylog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultCutoff is the time of day (UTC) after which a check-in is late.
const DefaultCutoff = 10 * time.Hour

type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	Activity   *activitylog.Recorder
	Cutoff     time.Duration
	attendance *attendancestore.Store
	users      *userstore.Store
	now        func() time.Time
}

func NewHandler(db *mongo.Database, activity *activitylog.Recorder, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		Activity:   activity,
		Cutoff:     DefaultCutoff,
		attendance: attendancestore.New(db),
		users:      userstore.New(db),
		now:        func() time.Time { return time.Now().UTC() },
	}
}
