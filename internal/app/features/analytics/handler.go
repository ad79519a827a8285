// internal/app/features/analytics/handler.go
package analytics

import (
	"context"
	"math"
	"net/http"

	attendancestore "github.com/dalemusser/youlead/internal/app/store/attendance"
	projectstore "github.com/dalemusser/youlead/internal/app/store/projects"
	taskstore "github.com/dalemusser/youlead/internal/app/store/tasks"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	Log        *zap.Logger
	users      *userstore.Store
	tasks      *taskstore.Store
	projects   *projectstore.Store
	attendance *attendancestore.Store
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{
		Log:        logger,
		users:      userstore.New(db),
		tasks:      taskstore.New(db),
		projects:   projectstore.New(db),
		attendance: attendancestore.New(db),
	}
}

// Routes mounts under /analytics.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/me", h.ServeMine)
	})
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(models.RoleTeamLeader))
		pr.Get("/team", h.ServeTeam)
	})
	return r
}

type personal struct {
	TaskStatus     models.StatusCounters `json:"taskStatus"`
	ProjectStatus  models.StatusCounters `json:"projectStatus"`
	CompletionRate float64               `json:"completionRate"`
	Attendance     models.AttendanceInfo `json:"attendance"`
}

type memberStats struct {
	ID             primitive.ObjectID    `json:"id"`
	Name           string                `json:"name"`
	Role           string                `json:"role"`
	TaskStatus     models.StatusCounters `json:"taskStatus"`
	ProjectStatus  models.StatusCounters `json:"projectStatus"`
	CompletionRate float64               `json:"completionRate"`
}

type teamStats struct {
	Members        []memberStats    `json:"members"`
	Tasks          map[string]int64 `json:"tasks"`
	Projects       map[string]int64 `json:"projects"`
	CompletionRate float64          `json:"completionRate"`
}

// rate is completed / (completed + pending) as a percentage rounded to one
// decimal, or 0 when there is nothing to count.
func rate(completed, pending int64) float64 {
	total := completed + pending
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)*1000/float64(total)) / 10
}

// ServeMine handles GET /analytics/me.
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.users.GetByID(ctx, actor.ID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	info, err := h.attendance.GetInfo(ctx, actor.ID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Analytics fetched successfully", personal{
		TaskStatus:     u.TaskStatus,
		ProjectStatus:  u.ProjectStatus,
		CompletionRate: rate(int64(u.TaskStatus.Completed), int64(u.TaskStatus.Pending)),
		Attendance:     info,
	})
}

// ServeTeam handles GET /analytics/team.
func (h *Handler) ServeTeam(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if !actor.HasTeam() {
		apierror.Write(w, h.Log, apierror.NotFound("You don't have a team yet"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	members, err := h.users.ListTeamMembers(ctx, actor.TeamID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	tasks, err := h.tasks.CountByStatus(ctx, actor.TeamID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	projects, err := h.projects.CountByStatus(ctx, actor.TeamID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	out := teamStats{
		Members:        make([]memberStats, 0, len(members)),
		Tasks:          tasks,
		Projects:       projects,
		CompletionRate: rate(tasks[models.StatusCompleted], tasks[models.StatusPending]),
	}
	for _, m := range members {
		out.Members = append(out.Members, memberStats{
			ID:             m.ID,
			Name:           m.Name,
			Role:           m.Role,
			TaskStatus:     m.TaskStatus,
			ProjectStatus:  m.ProjectStatus,
			CompletionRate: rate(int64(m.TaskStatus.Completed), int64(m.TaskStatus.Pending)),
		})
	}
	apierror.OK(w, "Team analytics fetched successfully", out)
}
