// internal/app/features/invitations/handler.go
package invitations

import (
	invitationstore "github.com/dalemusser/youlead/internal/app/store/invitations"
	teamstore "github.com/dalemusser/youlead/internal/app/store/teams"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/activitylog"
	"github.com/dalemusser/youlead/internal/app/system/mailer"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB          *mongo.Database
	Log         *zap.Logger
	Activity    *activitylog.Recorder
	Notifier    *mailer.Notifier
	FrontendURL string // base for links in invitation emails
	invitations *invitationstore.Store
	teams       *teamstore.Store
	users       *userstore.Store
}

func NewHandler(db *mongo.Database, activity *activitylog.Recorder, notifier *mailer.Notifier, frontendURL string, logger *zap.Logger) *Handler {
	return &Handler{
		DB:          db,
		Log:         logger,
		Activity:    activity,
		Notifier:    notifier,
		FrontendURL: frontendURL,
		invitations: invitationstore.New(db),
		teams:       teamstore.New(db),
		users:       userstore.New(db),
	}
}
