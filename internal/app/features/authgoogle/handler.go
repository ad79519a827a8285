// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	attendancestore "github.com/dalemusser/youlead/internal/app/store/attendance"
	"github.com/dalemusser/youlead/internal/app/store/oauthstate"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/auditlog"
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/app/system/txn"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultUserInfoURL is Google's v2 userinfo endpoint.
const DefaultUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// Handler handles Google OAuth sign-in for the SPA. Every outcome ends in
// a redirect to the frontend; failures carry ?error=<code>.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Sessions *auth.SessionManager
	Audit    *auditlog.Logger
	States   *oauthstate.Store

	users      *userstore.Store
	attendance *attendancestore.Store

	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g. "https://api.youlead.app/api/auth/google/callback"
	FrontendURL  string

	// Endpoint and UserInfoURL default to Google's; tests point them at a stub.
	Endpoint    oauth2.Endpoint
	UserInfoURL string
}

func NewHandler(
	db *mongo.Database,
	sm *auth.SessionManager,
	audit *auditlog.Logger,
	clientID, clientSecret, baseURL, frontendURL string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		DB:           db,
		Log:          logger,
		Sessions:     sm,
		Audit:        audit,
		States:       oauthstate.New(db),
		users:        userstore.New(db),
		attendance:   attendancestore.New(db),
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  strings.TrimRight(baseURL, "/") + "/api/auth/google/callback",
		FrontendURL:  strings.TrimRight(frontendURL, "/"),
		Endpoint:     google.Endpoint,
		UserInfoURL:  DefaultUserInfoURL,
	}
}

func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, code string) {
	http.Redirect(w, r, h.FrontendURL+"/signin?error="+code, http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google                                                             |
| Redirects to Google's consent screen. ?return= is the SPA path to land on.  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		h.fail(w, r, "google_not_configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	state, err := h.States.Issue(ctx, query.Get(r, "return"))
	if err != nil {
		h.Log.Error("failed to save OAuth state", zap.Error(err))
		h.fail(w, r, "internal")
		return
	}

	url := h.oauth2Config().AuthCodeURL(state)
	h.Log.Debug("initiating Google OAuth flow", zap.String("redirect_url", url))
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /auth/google/callback                                                    |
| Exchanges the code, fetches the Google profile, resolves or creates the     |
| user and signs them in.                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("Google OAuth error", zap.String("error", errParam))
		h.fail(w, r, "google_denied")
		return
	}
	state := query.Get(r, "state")
	if state == "" {
		h.fail(w, r, "invalid_state")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	returnTo, valid, err := h.States.Consume(ctx, state)
	if err != nil {
		h.Log.Error("failed to validate OAuth state", zap.Error(err))
		h.fail(w, r, "internal")
		return
	}
	if !valid {
		h.Log.Warn("invalid or expired OAuth state")
		h.fail(w, r, "invalid_state")
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		h.fail(w, r, "invalid_code")
		return
	}
	token, err := h.oauth2Config().Exchange(ctx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.fail(w, r, "token_exchange")
		return
	}
	info, err := h.fetchUserInfo(ctx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.fail(w, r, "user_info")
		return
	}
	if !info.EmailVerified || info.Email == "" {
		h.fail(w, r, "email_unverified")
		return
	}

	u, created, err := h.resolveUser(ctx, info)
	switch {
	case errors.Is(err, errUserDisabled):
		h.fail(w, r, "account_disabled")
		return
	case err != nil:
		h.Log.Error("failed to resolve Google user", zap.Error(err))
		h.fail(w, r, "internal")
		return
	}

	if err := h.Sessions.SignIn(w, r, u.ID.Hex(), u.Email, u.Role); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		h.fail(w, r, "session")
		return
	}
	h.Audit.GoogleSignin(ctx, r, u.ID, created)
	h.Log.Info("user signed in via Google",
		zap.String("user_id", u.ID.Hex()),
		zap.Bool("created", created))

	http.Redirect(w, r, h.FrontendURL+urlutil.SafeReturn(returnTo, "", "/dashboard"), http.StatusSeeOther)
}

var errUserDisabled = errors.New("user disabled")

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(h.UserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

// resolveUser finds the user by Google ID, then by email (linking the
// Google account), and otherwise creates a teamMember.
func (h *Handler) resolveUser(ctx context.Context, info *googleUserInfo) (*models.User, bool, error) {
	u, err := h.users.GetByGoogleID(ctx, info.ID)
	if err == nil {
		if u.Status == models.UserInactive {
			return nil, false, errUserDisabled
		}
		return u, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	u, err = h.users.GetByEmail(ctx, info.Email)
	if err == nil {
		if u.Status == models.UserInactive {
			return nil, false, errUserDisabled
		}
		if err := h.users.LinkGoogle(ctx, u.ID, info.ID, info.Picture); err != nil {
			return nil, false, err
		}
		return u, false, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, err
	}

	name := info.Name
	if name == "" {
		name = strings.Split(info.Email, "@")[0]
	}
	var created models.User
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		nu, err := h.users.Create(ctx, models.User{
			Name:       name,
			Email:      info.Email,
			Picture:    info.Picture,
			AuthMethod: models.AuthGoogle,
			GoogleID:   info.ID,
			Role:       models.RoleTeamMember,
		})
		if err != nil {
			return err
		}
		ai, err := h.attendance.CreateInfo(ctx, nu.ID)
		if err != nil {
			return err
		}
		if err := h.users.SetAttendanceInfo(ctx, nu.ID, ai.ID); err != nil {
			return err
		}
		nu.AttendanceInfoID = &ai.ID
		created = nu
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &created, true, nil
}
