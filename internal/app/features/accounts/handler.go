// internal/app/features/accounts/handler.go
package accounts

import (
	attendancestore "github.com/dalemusser/youlead/internal/app/store/attendance"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/auditlog"
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/app/system/workitems"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves signup, signin, signout, the current profile and
// account deletion.
type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	Sessions   *auth.SessionManager
	Audit      *auditlog.Logger
	users      *userstore.Store
	attendance *attendancestore.Store
	ops        workitems.Ops
}

func NewHandler(db *mongo.Database, sm *auth.SessionManager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:         db,
		Log:        logger,
		Sessions:   sm,
		Audit:      audit,
		users:      userstore.New(db),
		attendance: attendancestore.New(db),
		ops:        workitems.New(db),
	}
}
