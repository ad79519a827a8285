// internal/app/system/authz/authz.go
package authz

import (
	"net/http"
	"strings"

	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Actor is the signed-in user resolved into typed IDs.
type Actor struct {
	ID     primitive.ObjectID
	Name   string
	Email  string
	Role   string
	TeamID primitive.ObjectID // NilObjectID when the user has no team
}

// HasTeam reports whether the actor belongs to a team.
func (a Actor) HasTeam() bool { return !a.TeamID.IsZero() }

// IsAdmin reports whether the actor is an admin.
func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// IsLeader reports whether the actor is a team leader.
func (a Actor) IsLeader() bool { return a.Role == models.RoleTeamLeader }

// FromRequest returns the actor for the request. ok=false means no user is
// signed in or the session carries a malformed ID; callers fail closed.
func FromRequest(r *http.Request) (Actor, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		return Actor{}, false
	}
	return FromSessionUser(*u)
}

// FromSessionUser resolves a session user outside of a request, as the
// websocket hub does.
func FromSessionUser(u auth.SessionUser) (Actor, bool) {
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return Actor{}, false
	}
	a := Actor{ID: id, Name: u.Name, Email: u.Email, Role: normalizeRole(u.Role)}
	if u.TeamID != "" {
		if tid, err := primitive.ObjectIDFromHex(u.TeamID); err == nil {
			a.TeamID = tid
		}
	}
	return a, true
}

// Require is FromRequest for handlers: a missing user becomes a 401.
func Require(r *http.Request) (Actor, error) {
	a, ok := FromRequest(r)
	if !ok {
		return Actor{}, apierror.Unauthorized("Please sign in")
	}
	return a, nil
}

// HasAnyRole reports whether the current request's user has any of the given roles.
func HasAnyRole(r *http.Request, roles ...string) bool {
	a, ok := FromRequest(r)
	if !ok {
		return false
	}
	for _, want := range roles {
		if a.Role == normalizeRole(want) {
			return true
		}
	}
	return false
}

// normalizeRole maps case variants ("teamleader", "TeamLeader") onto the
// canonical role names.
func normalizeRole(role string) string {
	role = strings.TrimSpace(role)
	for _, known := range []string{models.RoleAdmin, models.RoleTeamLeader, models.RoleTeamMember} {
		if strings.EqualFold(role, known) {
			return known
		}
	}
	return strings.ToLower(role)
}
