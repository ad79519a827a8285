// internal/app/bootstrap/admin.go
package bootstrap

import (
	"context"
	"errors"

	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/auditlog"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// ErrAdminUserNotFound is returned when no user has the admin email.
var ErrAdminUserNotFound = errors.New("no user with that email")

// PromoteAdmin gives the user with email the admin role. It reports whether
// the role actually changed.
func PromoteAdmin(ctx context.Context, db *mongo.Database, audit *auditlog.Logger, email string) (bool, error) {
	users := userstore.New(db)
	u, err := users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, ErrAdminUserNotFound
	}
	if err != nil {
		return false, err
	}
	if u.Role == models.RoleAdmin {
		return false, nil
	}
	if err := users.SetRole(ctx, u.ID, models.RoleAdmin); err != nil {
		return false, err
	}
	audit.AdminPromoted(ctx, u.ID, u.Email)
	return true, nil
}

// ensureAdmin promotes the configured admin email at startup. A missing
// user is not fatal: the account may not have signed up yet.
func ensureAdmin(ctx context.Context, deps DBDeps, email string, logger *zap.Logger) error {
	var al *auditlog.Logger
	if deps.Services != nil {
		al = deps.Services.Audit
	}
	changed, err := PromoteAdmin(ctx, deps.MongoDatabase, al, email)
	switch {
	case errors.Is(err, ErrAdminUserNotFound):
		logger.Warn("admin email has no account yet", zap.String("email", email))
		return nil
	case err != nil:
		return err
	case changed:
		logger.Info("promoted user to admin", zap.String("email", email))
	default:
		logger.Debug("admin already in place", zap.String("email", email))
	}
	return nil
}
