// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"

	"github.com/dalemusser/youlead/internal/app/store/audit"
	"github.com/dalemusser/youlead/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Config selects where each category goes.
// Values: "all" (MongoDB + zap), "db" (MongoDB only), "log" (zap only), "off".
type Config struct {
	Auth  string
	Admin string
}

// Logger writes audit events to the audit store and/or zap.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) logToZap(event audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", event.Category),
		zap.String("event_type", event.EventType),
		zap.Bool("success", event.Success),
		zap.String("ip", event.IP),
	}
	if event.UserID != nil {
		fields = append(fields, zap.String("user_id", event.UserID.Hex()))
	}
	if event.ActorID != nil {
		fields = append(fields, zap.String("actor_id", event.ActorID.Hex()))
	}
	if event.TeamID != nil {
		fields = append(fields, zap.String("team_id", event.TeamID.Hex()))
	}
	if event.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", event.FailureReason))
	}
	for k, v := range event.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if event.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records an event according to the category's setting.
// A nil Logger is a no-op.
func (l *Logger) Log(ctx context.Context, event audit.Event) {
	if l == nil {
		return
	}

	setting := "all"
	switch event.Category {
	case audit.CategoryAuth:
		setting = l.config.Auth
	case audit.CategoryAdmin:
		setting = l.config.Admin
	}
	if setting == "off" {
		return
	}

	if setting == "all" || setting == "log" {
		l.logToZap(event)
	}
	if (setting == "all" || setting == "db") && l.store != nil {
		if err := l.store.Log(ctx, event); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", event.EventType),
			)
		}
	}
}

func fromRequest(r *http.Request, e audit.Event) audit.Event {
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

// --- Authentication Events ---

// Signup logs a new account.
func (l *Logger) Signup(ctx context.Context, r *http.Request, userID primitive.ObjectID, role string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignup,
		UserID:    &userID,
		Success:   true,
		Details:   map[string]string{"role": role},
	}))
}

// SigninSuccess logs a successful password sign-in.
func (l *Logger) SigninSuccess(ctx context.Context, r *http.Request, userID primitive.ObjectID, teamID *primitive.ObjectID) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSigninSuccess,
		UserID:    &userID,
		TeamID:    teamID,
		Success:   true,
	}))
}

// SigninFailed logs a rejected sign-in. userID is nil when the email is unknown.
func (l *Logger) SigninFailed(ctx context.Context, r *http.Request, eventType string, userID *primitive.ObjectID, email string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     eventType,
		UserID:        userID,
		Success:       false,
		FailureReason: eventType,
		Details:       map[string]string{"email": email},
	}))
}

// GoogleSignin logs a Google sign-in; created reports a new account.
func (l *Logger) GoogleSignin(ctx context.Context, r *http.Request, userID primitive.ObjectID, created bool) {
	details := map[string]string{"created": "false"}
	if created {
		details["created"] = "true"
	}
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventGoogleSignin,
		UserID:    &userID,
		Success:   true,
		Details:   details,
	}))
}

// Signout logs a sign-out. userIDHex may be empty for anonymous sessions.
func (l *Logger) Signout(ctx context.Context, r *http.Request, userIDHex string) {
	e := audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventSignout,
		Success:   true,
	}
	if oid, err := primitive.ObjectIDFromHex(userIDHex); err == nil {
		e.UserID = &oid
	}
	l.Log(ctx, fromRequest(r, e))
}

// --- Admin Events ---

// UserDeactivated logs a soft delete.
func (l *Logger) UserDeactivated(ctx context.Context, r *http.Request, actorID, targetID primitive.ObjectID) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventUserDeactivated,
		UserID:    &targetID,
		ActorID:   &actorID,
		Success:   true,
	}))
}

// TeamCreated logs team creation.
func (l *Logger) TeamCreated(ctx context.Context, r *http.Request, leaderID, teamID primitive.ObjectID, name string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventTeamCreated,
		ActorID:   &leaderID,
		TeamID:    &teamID,
		Success:   true,
		Details:   map[string]string{"name": name},
	}))
}

// MemberRemoved logs a member leaving a team; left distinguishes
// self-removal from removal by the leader.
func (l *Logger) MemberRemoved(ctx context.Context, r *http.Request, actorID, memberID, teamID primitive.ObjectID, left bool) {
	eventType := audit.EventMemberRemoved
	if left {
		eventType = audit.EventMemberLeft
	}
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		UserID:    &memberID,
		ActorID:   &actorID,
		TeamID:    &teamID,
		Success:   true,
	}))
}

// AdminPromoted logs a role change made from the CLI.
func (l *Logger) AdminPromoted(ctx context.Context, userID primitive.ObjectID, email string) {
	l.Log(ctx, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: audit.EventAdminPromoted,
		UserID:    &userID,
		IP:        "cli",
		Success:   true,
		Details:   map[string]string{"email": email},
	})
}
