// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"net/url"
	"time"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/youlead/internal/app/store/audit"
	"github.com/dalemusser/youlead/internal/app/store/oauthstate"
	"github.com/dalemusser/youlead/internal/app/system/auditlog"
	"github.com/dalemusser/youlead/internal/app/system/jobs"
	"github.com/dalemusser/youlead/internal/app/system/mailer"
	"github.com/dalemusser/youlead/internal/app/system/pastdue"
	"github.com/dalemusser/youlead/internal/app/system/presence"
	"github.com/dalemusser/youlead/internal/app/system/prioritizer"
	"github.com/dalemusser/youlead/internal/app/system/ratelimit"
	"github.com/dalemusser/youlead/internal/app/system/realtime"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Auth endpoints allow authAttempts requests per client IP per authWindow.
const (
	authAttempts = 20
	authWindow   = time.Minute
	presenceTTL  = 2 * time.Minute
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the shared services, starts background jobs and promotes the configured
// admin account.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		logger.Info("timeouts overridden from environment", zap.Int("count", n))
	}

	svc := deps.Services
	db := deps.MongoDatabase

	svc.Audit = auditlog.New(audit.New(db), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	m := mailer.New(mailer.Config{
		Host:     appCfg.MailSMTPHost,
		Port:     appCfg.MailSMTPPort,
		Username: appCfg.MailSMTPUser,
		Password: appCfg.MailSMTPPass,
		From:     appCfg.MailFrom,
		FromName: appCfg.MailFromName,
	}, logger)
	if !m.Enabled() {
		logger.Warn("mail_smtp_host not set; email notifications disabled")
	}
	svc.Notifier = mailer.NewNotifier(m, logger)

	svc.Prioritizer = prioritizer.New(appCfg.OpenAIAPIKey, appCfg.OpenAIModel)
	if appCfg.OpenAIAPIKey == "" {
		logger.Warn("openai_api_key not set; task prioritization disabled")
	}

	var pres presence.Store
	if deps.Redis != nil {
		pres = presence.NewRedis(deps.Redis, "youlead:presence:", presenceTTL)
		svc.AuthLimit = ratelimit.NewRedis(deps.Redis, "youlead:ratelimit:auth:", authAttempts, authWindow)
	} else {
		pres = presence.NewMemory()
	}
	svc.Hub = realtime.NewHub(pres, logger, originHosts(appCfg.FrontendURL)...)

	list := []jobs.Job{
		jobs.PastDueSweepJob("past-due-sweep", pastdue.New(db, logger), logger, appCfg.PastDueInterval),
		jobs.OAuthStateCleanupJob(oauthstate.New(db), logger),
	}
	if svc.AuthLimit == nil {
		mem := ratelimit.NewMemory(authAttempts, authWindow)
		svc.AuthLimit = mem
		list = append(list, jobs.SweepJob("auth-ratelimit-sweep", mem, authWindow))
	}
	svc.Jobs = jobs.NewRunner(logger, list...)
	svc.Jobs.Start()

	if appCfg.AdminEmail != "" {
		if err := ensureAdmin(ctx, deps, appCfg.AdminEmail, logger); err != nil {
			logger.Error("admin bootstrap failed", zap.String("email", appCfg.AdminEmail), zap.Error(err))
			return err
		}
	}
	return nil
}

// originHosts returns the host of the frontend URL for websocket origin
// checks. An unparsable URL yields no patterns (same-origin only).
func originHosts(frontendURL string) []string {
	u, err := url.Parse(frontendURL)
	if err != nil || u.Host == "" {
		return nil
	}
	return []string{u.Host}
}
