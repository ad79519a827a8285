// internal/app/features/teams/handler.go
package teams

import (
	invitationstore "github.com/dalemusser/youlead/internal/app/store/invitations"
	teamstore "github.com/dalemusser/youlead/internal/app/store/teams"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/activitylog"
	"github.com/dalemusser/youlead/internal/app/system/auditlog"
	"github.com/dalemusser/youlead/internal/app/system/realtime"
	"github.com/dalemusser/youlead/internal/app/system/workitems"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	Audit       *auditlog.Logger
	Activity    *activitylog.Recorder
	// Rooms drops detached users from every chat and team room. Nil
	// disables it.
	Rooms       *realtime.Hub
	teams       *teamstore.Store
	users       *userstore.Store
	invitations *invitationstore.Store
	ops         workitems.Ops
}

func NewHandler(db *mongo.Database, audit *auditlog.Logger, activity *activitylog.Recorder, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		Audit:       audit,
		Activity:    activity,
		teams:       teamstore.New(db),
		users:       userstore.New(db),
		invitations: invitationstore.New(db),
		ops:         workitems.New(db),
	}
}
