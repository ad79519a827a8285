// internal/app/bootstrap/services.go
package bootstrap

import (
	"github.com/dalemusser/youlead/internal/app/system/auditlog"
	"github.com/dalemusser/youlead/internal/app/system/jobs"
	"github.com/dalemusser/youlead/internal/app/system/mailer"
	"github.com/dalemusser/youlead/internal/app/system/prioritizer"
	"github.com/dalemusser/youlead/internal/app/system/ratelimit"
	"github.com/dalemusser/youlead/internal/app/system/realtime"
)

// Services are the long-lived collaborators built in Startup and shared by
// BuildHandler and Shutdown.
type Services struct {
	Audit       *auditlog.Logger
	Notifier    *mailer.Notifier
	Prioritizer prioritizer.Prioritizer
	Hub         *realtime.Hub
	AuthLimit   ratelimit.Limiter
	Jobs        *jobs.Runner
}
