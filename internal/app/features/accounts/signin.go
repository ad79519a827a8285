package accounts

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/youlead/internal/app/store/audit"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/normalize"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

var errBadCredentials = apierror.Unauthorized("Invalid email or password")

// HandleSignin handles POST /auth/signin.
func (h *Handler) HandleSignin(w http.ResponseWriter, r *http.Request) {
	var req signinRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	email := normalize.Email(req.Email)
	if email == "" || req.Password == "" {
		apierror.Write(w, h.Log, apierror.BadRequest("Email and password are required"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.users.GetByEmail(ctx, email)
	if errors.Is(err, mongo.ErrNoDocuments) {
		h.Audit.SigninFailed(ctx, r, audit.EventSigninFailedUserNotFound, nil, email)
		apierror.Write(w, h.Log, errBadCredentials)
		return
	}
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		h.Audit.SigninFailed(ctx, r, audit.EventSigninFailedPassword, &u.ID, email)
		apierror.Write(w, h.Log, errBadCredentials)
		return
	}
	if u.Status != models.UserActive {
		h.Audit.SigninFailed(ctx, r, audit.EventSigninFailedInactive, &u.ID, email)
		apierror.Write(w, h.Log, apierror.Unauthorized("This account has been deactivated"))
		return
	}

	if err := h.Sessions.SignIn(w, r, u.ID.Hex(), u.Email, u.Role); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		apierror.Write(w, h.Log, apierror.Internal("Could not start session"))
		return
	}
	h.Audit.SigninSuccess(ctx, r, u.ID, u.TeamID)
	apierror.OK(w, "Signed in successfully", u)
}

// HandleSignout handles POST /auth/signout.
func (h *Handler) HandleSignout(w http.ResponseWriter, r *http.Request) {
	userID := ""
	if u, ok := auth.CurrentUser(r); ok {
		userID = u.ID
	}
	if err := h.Sessions.SignOut(w, r); err != nil {
		h.Log.Warn("clear session failed", zap.Error(err))
	}
	if userID != "" {
		h.Audit.Signout(r.Context(), r, userID)
	}
	apierror.OK(w, "Signed out", nil)
}
