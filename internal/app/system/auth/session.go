// internal/app/system/auth/session.go
package auth

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const idTokenKey = "id_token"

// SessionManager keeps the ID token in a signed cookie and resolves the
// current user on each request.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	tokens  *TokenIssuer
	fetcher UserFetcher
	log     *zap.Logger
}

// NewSessionManager builds the cookie store. In production (secure=true)
// cookies are Secure + SameSite=None so the SPA can call the API cross-site.
func NewSessionManager(sessionKey, name, domain string, secure bool, tokens *TokenIssuer, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(tokens.ttl.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	logger.Info("session store initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain))

	return &SessionManager{store: store, name: name, tokens: tokens, log: logger}, nil
}

// SetUserFetcher sets the loader used to refresh users per request.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) {
	sm.fetcher = f
}

// Tokens exposes the issuer (sign-in handlers mint with it).
func (sm *SessionManager) Tokens() *TokenIssuer {
	return sm.tokens
}

// SignIn mints an ID token for the user and stores it in the cookie.
func (sm *SessionManager) SignIn(w http.ResponseWriter, r *http.Request, userID, email, role string) error {
	token, _, err := sm.tokens.Issue(userID, email, role)
	if err != nil {
		return err
	}
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sm.logCookieErr(err)
	}
	sess.Values[idTokenKey] = token
	return sess.Save(r, w)
}

// SignOut expires the cookie.
func (sm *SessionManager) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sm.logCookieErr(err)
	}
	delete(sess.Values, idTokenKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// Authenticate resolves the user behind a request's cookie. It returns
// (nil, nil) when there is no session at all.
func (sm *SessionManager) Authenticate(r *http.Request) (*SessionUser, error) {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		sm.logCookieErr(err)
		return nil, nil
	}
	token, _ := sess.Values[idTokenKey].(string)
	if token == "" {
		return nil, nil
	}
	claims, err := sm.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if sm.fetcher == nil {
		return &SessionUser{ID: claims.Subject, Email: claims.Email, Role: claims.Role}, nil
	}
	u := sm.fetcher.FetchUser(r.Context(), claims.Subject)
	if u == nil {
		return nil, apierror.Unauthorized("Account not found or inactive")
	}
	return u, nil
}

// LoadSessionUser injects the user into context if they are signed in.
// A rejected token is remembered so RequireSignedIn can report why.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := sm.Authenticate(r)
		switch {
		case err != nil:
			r = withTokenError(r, err)
		case u != nil:
			r = withUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects anonymous requests with a 401 envelope.
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); ok {
			next.ServeHTTP(w, r)
			return
		}
		if err := TokenError(r); err != nil {
			apierror.Write(w, sm.log, err)
			return
		}
		apierror.Write(w, sm.log, apierror.Unauthorized("Please sign in to continue"))
	})
}

// RequireRole ensures a signed-in user has one of the allowed roles.
func (sm *SessionManager) RequireRole(allowed ...string) func(http.Handler) http.Handler {
	set := make(map[string]struct{}, len(allowed))
	for _, role := range allowed {
		set[strings.ToLower(strings.TrimSpace(role))] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, _ := CurrentUser(r)
			if _, has := set[strings.ToLower(u.Role)]; !has {
				apierror.Write(w, sm.log, apierror.Forbidden("You don't have permission to do that"))
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}

func (sm *SessionManager) logCookieErr(err error) {
	if scErr, ok := err.(securecookie.Error); ok && scErr.IsDecode() {
		sm.log.Warn("session cookie invalid, using fresh session", zap.Error(err))
		return
	}
	sm.log.Error("session store error, using fresh session", zap.Error(err))
}
