// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// Framework-level settings (ports, TLS, log level, CORS, body limits) live
// in WAFFLE's CoreConfig. Everything here is specific to You Lead and is
// passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session cookie and the ID token it carries
	SessionKey    string // signs the cookie (must be strong in production)
	SessionName   string // cookie name (default: youlead-session)
	SessionDomain string // cookie domain (blank means current host)
	TokenSecret   string // HMAC secret for ID tokens
	TokenTTL      time.Duration

	// Email/SMTP configuration (blank host disables sending)
	MailSMTPHost string
	MailSMTPPort int
	MailSMTPUser string
	MailSMTPPass string
	MailFrom     string
	MailFromName string

	BaseURL     string // public API origin, used for the OAuth callback
	FrontendURL string // SPA origin, used for email links and redirects

	// Google OAuth
	GoogleClientID     string
	GoogleClientSecret string

	// AI task prioritization (blank key disables it)
	OpenAIAPIKey string
	OpenAIModel  string

	// Optional Redis for shared presence and rate limits
	RedisURL string

	// Audit logging: "all", "db", "log" or "off"
	AuditLogAuth  string
	AuditLogAdmin string

	PastDueInterval time.Duration

	// AdminEmail is promoted to admin on startup when that user exists.
	AdminEmail string
}
