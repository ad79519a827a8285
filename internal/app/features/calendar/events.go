package calendar

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event kinds.
const (
	KindTask    = "task"
	KindProject = "project"
	KindMeeting = "meeting"
)

// Default window when from/to are omitted.
const (
	defaultLookBack  = 30 * 24 * time.Hour
	defaultLookAhead = 90 * 24 * time.Hour
)

// Event is one calendar entry. Deadlines have no End.
type Event struct {
	Kind      string              `json:"kind"`
	ID        primitive.ObjectID  `json:"id"`
	Title     string              `json:"title"`
	Start     time.Time           `json:"start"`
	End       *time.Time          `json:"end,omitempty"`
	Status    string              `json:"status"`
	PastDue   bool                `json:"pastDue,omitempty"`
	ProjectID *primitive.ObjectID `json:"projectId,omitempty"`
	Link      string              `json:"link,omitempty"`
}

// ServeMine handles GET /calendar/my[?from=&to=].
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	from, to, err := h.window(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	events, err := h.collect(ctx, actor, from, to)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Calendar fetched successfully", events)
}

func (h *Handler) window(r *http.Request) (time.Time, time.Time, error) {
	now := h.now()
	from, to := now.Add(-defaultLookBack), now.Add(defaultLookAhead)
	if s := query.Get(r, "from"); s != "" {
		t, ok := inputval.ParseDate(s)
		if !ok {
			return from, to, apierror.BadRequest("Invalid from date")
		}
		// A bare date parses to the end of its day; the window starts at midnight.
		from = t.Truncate(24 * time.Hour)
	}
	if s := query.Get(r, "to"); s != "" {
		t, ok := inputval.ParseDate(s)
		if !ok {
			return from, to, apierror.BadRequest("Invalid to date")
		}
		to = t
	}
	if to.Before(from) {
		return from, to, apierror.BadRequest("to must not be before from")
	}
	return from, to, nil
}

// collect merges task deadlines, current project deadlines and meetings in
// [from, to], sorted by start.
func (h *Handler) collect(ctx context.Context, actor authz.Actor, from, to time.Time) ([]Event, error) {
	inWindow := func(t time.Time) bool { return !t.IsZero() && !t.Before(from) && !t.After(to) }
	events := []Event{}

	tasks, err := h.tasks.ListForUser(ctx, actor.ID, actor.IsLeader(), primitive.NilObjectID)
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		d := t.CurrentDeadline()
		if !inWindow(d) {
			continue
		}
		pid := t.ProjectID
		events = append(events, Event{
			Kind: KindTask, ID: t.ID, Title: t.Name, Start: d,
			Status: t.Status, PastDue: t.PastDue, ProjectID: &pid,
		})
	}

	projects, err := h.projects.ListForUser(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		d := p.CurrentDeadline()
		if !inWindow(d) {
			continue
		}
		events = append(events, Event{
			Kind: KindProject, ID: p.ID, Title: p.Name, Start: d,
			Status: p.Status, PastDue: p.PastDue,
		})
	}

	meetings, err := h.meetings.ListForUser(ctx, actor.ID, from, to)
	if err != nil {
		return nil, err
	}
	for _, m := range meetings {
		if m.Status == models.MeetingCancelled {
			continue
		}
		end := m.EndTime
		events = append(events, Event{
			Kind: KindMeeting, ID: m.ID, Title: m.Title, Start: m.StartTime, End: &end,
			Status: m.Status, Link: m.Link,
		})
	}

	sort.SliceStable(events, func(i, j int) bool { return events[i].Start.Before(events[j].Start) })
	return events, nil
}
