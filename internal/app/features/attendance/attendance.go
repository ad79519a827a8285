package attendance

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/youlead/internal/app/store/activity"
	attendancestore "github.com/dalemusser/youlead/internal/app/store/attendance"
	"github.com/dalemusser/youlead/internal/app/system/activitylog"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/app/system/txn"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var errAlreadyMarked = apierror.BadRequest("Attendance already marked for today")

type checkInResult struct {
	Attendance models.Attendance     `json:"attendance"`
	Info       models.AttendanceInfo `json:"info"`
}

// HandleCheckIn handles POST /attendance/post.
func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	now := h.now()
	date := now.Format(dateOnly)
	a := models.Attendance{
		UserID:      actor.ID,
		Date:        date,
		Status:      models.AttendancePresent,
		CheckedInAt: now,
	}
	if isLate(now, h.Cutoff) {
		a.Status = models.AttendanceLate
	}
	if actor.HasTeam() {
		tid := actor.TeamID
		a.TeamID = &tid
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	var res checkInResult
	err = txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		marked, err := h.attendance.Exists(ctx, actor.ID, date)
		if err != nil {
			return err
		}
		if marked {
			return attendancestore.ErrAlreadyMarked
		}
		if res.Attendance, err = h.attendance.Insert(ctx, a); err != nil {
			return err
		}
		info, err := h.attendance.GetInfo(ctx, actor.ID)
		if err != nil {
			return err
		}
		res.Info = advance(info, date, a.Status == models.AttendanceLate)
		return h.attendance.SaveInfo(ctx, res.Info)
	})
	if errors.Is(err, attendancestore.ErrAlreadyMarked) {
		apierror.Write(w, h.Log, errAlreadyMarked)
		return
	}
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	if a.TeamID != nil {
		h.Activity.Record(ctx, activitylog.Entry{
			TeamID: *a.TeamID, ActorID: actor.ID, ActorName: actor.Name,
			Kind: activity.KindAttendance, EntityID: res.Attendance.ID,
		}, "%s checked in (%s)", actor.Name, a.Status)
	}
	apierror.Created(w, "Attendance marked", res)
}

type myAttendance struct {
	Records []models.Attendance   `json:"records"`
	Info    models.AttendanceInfo `json:"info"`
}

// ServeMine handles GET /attendance/my[?from=&to=] (dates as YYYY-MM-DD).
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	from, to := query.Get(r, "from"), query.Get(r, "to")
	for _, d := range []string{from, to} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(dateOnly, d); err != nil {
			apierror.Write(w, h.Log, apierror.BadRequest("Dates must be YYYY-MM-DD"))
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var out myAttendance
	if out.Records, err = h.attendance.ListForUser(ctx, actor.ID, from, to); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if out.Info, err = h.attendance.GetInfo(ctx, actor.ID); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Attendance fetched successfully", out)
}

type memberAttendance struct {
	UserID      primitive.ObjectID `json:"userId"`
	Name        string             `json:"name"`
	Email       string             `json:"email"`
	Status      string             `json:"status"` // present, late or absent
	CheckedInAt *time.Time         `json:"checkedInAt,omitempty"`
}

type teamAttendance struct {
	Date    string             `json:"date"`
	Members []memberAttendance `json:"members"`
}

// ServeTeam handles GET /attendance/team[?date=].
func (h *Handler) ServeTeam(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if !actor.HasTeam() {
		apierror.Write(w, h.Log, apierror.NotFound("You are not part of a team"))
		return
	}
	date := query.Get(r, "date")
	if date == "" {
		date = h.now().Format(dateOnly)
	} else if _, err := time.Parse(dateOnly, date); err != nil {
		apierror.Write(w, h.Log, apierror.BadRequest("Dates must be YYYY-MM-DD"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	records, err := h.attendance.ListByTeamDate(ctx, actor.TeamID, date)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	members, err := h.users.ListTeamMembers(ctx, actor.TeamID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	byUser := make(map[primitive.ObjectID]models.Attendance, len(records))
	for _, a := range records {
		byUser[a.UserID] = a
	}
	out := teamAttendance{Date: date, Members: make([]memberAttendance, 0, len(members))}
	for _, m := range members {
		row := memberAttendance{UserID: m.ID, Name: m.Name, Email: m.Email, Status: "absent"}
		if a, ok := byUser[m.ID]; ok {
			at := a.CheckedInAt
			row.Status = a.Status
			row.CheckedInAt = &at
		}
		out.Members = append(out.Members, row)
	}
	apierror.OK(w, "Team attendance fetched successfully", out)
}
