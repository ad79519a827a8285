// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"net/http"
)

// SessionUser is what LoadSessionUser injects into r.Context().
// It is rebuilt from the database on every request so role and team
// changes take effect immediately.
type SessionUser struct {
	ID     string
	Name   string
	Email  string
	Role   string
	TeamID string // hex, empty when the user has no team
}

// UserFetcher loads the current state of a user by ID. It returns nil for
// unknown or inactive users.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

type ctxKey string

const (
	currentUserKey ctxKey = "currentUser"
	authErrKey     ctxKey = "authErr"
)

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// TokenError returns the reason a presented token was rejected, if any.
func TokenError(r *http.Request) error {
	err, _ := r.Context().Value(authErrKey).(error)
	return err
}

// WithTestUser injects a user directly, bypassing the session cookie.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

func withTokenError(r *http.Request, err error) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), authErrKey, err))
}
