package accounts

import (
	"context"
	"errors"
	"net/http"
	"strings"

	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/normalize"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/app/system/txn"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type signupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Role     string `json:"role"`
}

var errUserExists = apierror.Unauthorized("User already exists")

// HandleSignup handles POST /auth/signup.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	u, err := h.signup(r.Context(), req)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	h.Audit.Signup(r.Context(), r, u.ID, u.Role)
	apierror.Created(w, "User created successfully", u)
}

func (h *Handler) signup(ctx context.Context, req signupRequest) (*models.User, error) {
	name, err := inputval.Name("Name", req.Name)
	if err != nil {
		return nil, err
	}
	email := normalize.Email(req.Email)
	if err := inputval.Email(email); err != nil {
		return nil, err
	}
	if err := inputval.Password(req.Password); err != nil {
		return nil, err
	}
	if !models.ValidSignupRole(req.Role) {
		return nil, apierror.BadRequest("Role must be teamLeader or teamMember")
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Medium())
	defer cancel()

	exists, err := h.users.EmailExists(ctx, email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, errUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	var created models.User
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		u, err := h.users.Create(ctx, models.User{
			Name:         name,
			Email:        email,
			Phone:        strings.TrimSpace(req.Phone),
			PasswordHash: string(hash),
			AuthMethod:   models.AuthPassword,
			Role:         req.Role,
		})
		if err != nil {
			return err
		}
		info, err := h.attendance.CreateInfo(ctx, u.ID)
		if err != nil {
			return err
		}
		if err := h.users.SetAttendanceInfo(ctx, u.ID, info.ID); err != nil {
			return err
		}
		u.AttendanceInfoID = &info.ID
		created = u
		return nil
	})
	if errors.Is(err, userstore.ErrDuplicateEmail) {
		return nil, errUserExists
	}
	if err != nil {
		return nil, err
	}

	h.Log.Info("user signed up", zap.String("user_id", created.ID.Hex()), zap.String("role", created.Role))
	return &created, nil
}
