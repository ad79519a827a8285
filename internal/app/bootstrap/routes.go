// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	accountsfeature "github.com/dalemusser/youlead/internal/app/features/accounts"
	activitiesfeature "github.com/dalemusser/youlead/internal/app/features/activities"
	analyticsfeature "github.com/dalemusser/youlead/internal/app/features/analytics"
	attendancefeature "github.com/dalemusser/youlead/internal/app/features/attendance"
	authgooglefeature "github.com/dalemusser/youlead/internal/app/features/authgoogle"
	calendarfeature "github.com/dalemusser/youlead/internal/app/features/calendar"
	chatfeature "github.com/dalemusser/youlead/internal/app/features/chat"
	healthfeature "github.com/dalemusser/youlead/internal/app/features/health"
	invitationsfeature "github.com/dalemusser/youlead/internal/app/features/invitations"
	meetingsfeature "github.com/dalemusser/youlead/internal/app/features/meetings"
	projectsfeature "github.com/dalemusser/youlead/internal/app/features/projects"
	tasksfeature "github.com/dalemusser/youlead/internal/app/features/tasks"
	teamsfeature "github.com/dalemusser/youlead/internal/app/features/teams"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/activitylog"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/app/system/ratelimit"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The JSON API lives under /api; /health
// stays at the root for load balancers.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	svc := deps.Services
	db := deps.MongoDatabase

	tokens, err := auth.NewTokenIssuer(appCfg.TokenSecret, appCfg.TokenTTL)
	if err != nil {
		logger.Error("token issuer init failed", zap.Error(err))
		return nil, err
	}

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, tokens, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Role changes and deactivation take effect on the next request.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	activity := activitylog.New(db, logger)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		apierror.Write(w, logger, apierror.NotFound("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		apierror.Write(w, logger, apierror.New(http.StatusMethodNotAllowed, "method not allowed"))
	})

	healthHandler := healthfeature.NewHandler(deps.MongoClient, deps.Redis, svc.Hub, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Route("/api", func(api chi.Router) {
		// Authentication
		accountsHandler := accountsfeature.NewHandler(db, sessionMgr, svc.Audit, logger)
		api.Mount("/auth", accountsfeature.Routes(accountsHandler, sessionMgr,
			ratelimit.PerIP(svc.AuthLimit, authWindow, logger)))

		googleHandler := authgooglefeature.NewHandler(db, sessionMgr, svc.Audit,
			appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, appCfg.FrontendURL, logger)
		api.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

		// Teams and membership
		teamsHandler := teamsfeature.NewHandler(db, svc.Audit, activity, logger)
		teamsHandler.Rooms = svc.Hub
		api.Mount("/teams", teamsfeature.Routes(teamsHandler, sessionMgr))

		invitationsHandler := invitationsfeature.NewHandler(db, activity, svc.Notifier, appCfg.FrontendURL, logger)
		api.Mount("/invitations", invitationsfeature.Routes(invitationsHandler, sessionMgr))

		// Work items
		projectsHandler := projectsfeature.NewHandler(db, activity, logger)
		projectsHandler.Rooms = svc.Hub
		api.Mount("/projects", projectsfeature.Routes(projectsHandler, sessionMgr))

		tasksHandler := tasksfeature.NewHandler(db, activity, logger)
		tasksHandler.Rooms = svc.Hub
		api.Mount("/tasks", tasksfeature.Routes(tasksHandler, sessionMgr))

		// Meetings and attendance
		meetingsHandler := meetingsfeature.NewHandler(db, activity, svc.Notifier, logger)
		api.Mount("/meeting", meetingsfeature.Routes(meetingsHandler, sessionMgr))

		attendanceHandler := attendancefeature.NewHandler(db, activity, logger)
		api.Mount("/attendance", attendancefeature.Routes(attendanceHandler, sessionMgr))

		activitiesHandler := activitiesfeature.NewHandler(db, logger)
		api.Mount("/activities", activitiesfeature.Routes(activitiesHandler, sessionMgr))

		calendarHandler := calendarfeature.NewHandler(db, svc.Prioritizer, logger)
		api.Mount("/calendar", calendarfeature.Routes(calendarHandler, sessionMgr))

		// Chat over REST and websocket
		chatHandler := chatfeature.NewHandler(db, svc.Hub, logger)
		api.Mount("/chat", chatfeature.Routes(chatHandler, sessionMgr))

		analyticsHandler := analyticsfeature.NewHandler(db, logger)
		api.Mount("/analytics", analyticsfeature.Routes(analyticsHandler, sessionMgr))
	})

	return r, nil
}
