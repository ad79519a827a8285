package calendar_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/youlead/internal/app/features/calendar"
	"github.com/dalemusser/youlead/internal/app/system/prioritizer"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/dalemusser/youlead/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	fx      *testutil.Fixtures
	leader  models.User
	member  models.User
	project models.Project
	task    models.Task
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	leader := fx.CreateLeader(ctx, "Lead", "lead@example.com")
	team := fx.CreateTeam(ctx, "Rockets", &leader)
	member := fx.CreateMember(ctx, "Ann", "ann@example.com")
	fx.JoinTeam(ctx, &member, team.ID)
	project := fx.CreateProject(ctx, "Launch", leader, member.ID)
	task := fx.CreateTask(ctx, "Write copy", project, member.ID)
	return env{fx: fx, leader: leader, member: member, project: project, task: task}
}

func get(t *testing.T, fn http.HandlerFunc, target string, u models.User) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodGet, target, nil, u)
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func insertMeeting(t *testing.T, e env, title string, start time.Time, status string) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	m := models.Meeting{
		ID:           primitive.NewObjectID(),
		Title:        title,
		OrganizerID:  e.leader.ID,
		TeamID:       e.project.TeamID,
		Participants: []primitive.ObjectID{e.member.ID},
		StartTime:    start,
		EndTime:      start.Add(time.Hour),
		Status:       status,
	}
	if _, err := e.fx.DB().Collection(models.CollectionMeetings).InsertOne(ctx, m); err != nil {
		t.Fatalf("insert meeting: %v", err)
	}
}

func kinds(t *testing.T, rec *httptest.ResponseRecorder) []string {
	t.Helper()
	items, ok := testutil.DecodeEnvelope(t, rec).Data.([]any)
	if !ok {
		t.Fatalf("expected a list, got %s", rec.Body.String())
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.(map[string]any)["kind"].(string))
	}
	return out
}

func TestServeMine_MergesSortedByStart(t *testing.T) {
	e := setup(t)
	insertMeeting(t, e, "Standup", time.Now().UTC().Add(24*time.Hour), models.MeetingScheduled)
	insertMeeting(t, e, "Dropped", time.Now().UTC().Add(48*time.Hour), models.MeetingCancelled)

	h := calendar.NewHandler(e.fx.DB(), nil, zap.NewNop())
	rec := get(t, h.ServeMine, "/api/calendar/my", e.member)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	// meeting in 1 day, task deadline in 3 days, project deadline in 7 days
	got := strings.Join(kinds(t, rec), ",")
	if want := "meeting,task,project"; got != want {
		t.Errorf("kinds = %s, want %s", got, want)
	}
}

func TestServeMine_Window(t *testing.T) {
	e := setup(t)
	h := calendar.NewHandler(e.fx.DB(), nil, zap.NewNop())

	to := time.Now().UTC().Add(4 * 24 * time.Hour).Format("2006-01-02")
	rec := get(t, h.ServeMine, "/api/calendar/my?to="+to, e.member)
	if got := strings.Join(kinds(t, rec), ","); got != "task" {
		t.Errorf("kinds = %q, want task only", got)
	}

	tests := []struct {
		name  string
		query string
	}{
		{"bad from", "?from=yesterday"},
		{"bad to", "?to=13/40/2020"},
		{"to before from", "?from=2030-01-10&to=2030-01-01"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := get(t, h.ServeMine, "/api/calendar/my"+tc.query, e.member)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestStreamPrioritization(t *testing.T) {
	e := setup(t)
	fake := &prioritizer.Fake{Chunks: []string{"1. Write copy", "\nDo it first."}}
	h := calendar.NewHandler(e.fx.DB(), fake, zap.NewNop())

	rec := get(t, h.StreamPrioritization, "/api/calendar/task-prioritization", e.member)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}
	body := rec.Body.String()
	for _, want := range []string{"data: 1. Write copy\n\n", "data: \ndata: Do it first.\n\n", "event: done\ndata: [DONE]\n\n"} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q:\n%s", want, body)
		}
	}
	if len(fake.Got) != 1 || fake.Got[0].Name != "Write copy" || fake.Got[0].Project != "Launch" {
		t.Errorf("prioritizer got %+v", fake.Got)
	}
}

func TestStreamPrioritization_NoPendingTasks(t *testing.T) {
	e := setup(t)
	fake := &prioritizer.Fake{Chunks: []string{"unused"}}
	h := calendar.NewHandler(e.fx.DB(), fake, zap.NewNop())

	rec := get(t, h.StreamPrioritization, "/api/calendar/task-prioritization", e.leader)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Nothing to prioritize") {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if fake.Got != nil {
		t.Error("prioritizer should not be called without pending tasks")
	}
}

func TestStreamPrioritization_Errors(t *testing.T) {
	e := setup(t)

	t.Run("not configured", func(t *testing.T) {
		h := calendar.NewHandler(e.fx.DB(), nil, zap.NewNop())
		rec := get(t, h.StreamPrioritization, "/api/calendar/task-prioritization", e.member)
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("expected 503, got %d", rec.Code)
		}
	})

	t.Run("fails before first chunk", func(t *testing.T) {
		fake := &prioritizer.Fake{Err: errors.New("boom")}
		h := calendar.NewHandler(e.fx.DB(), fake, zap.NewNop())
		rec := get(t, h.StreamPrioritization, "/api/calendar/task-prioritization", e.member)
		env := testutil.DecodeEnvelope(t, rec)
		if rec.Code != http.StatusInternalServerError || env.Success {
			t.Errorf("expected 500 envelope, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("writer cannot flush", func(t *testing.T) {
		fake := &prioritizer.Fake{Chunks: []string{"a"}}
		h := calendar.NewHandler(e.fx.DB(), fake, zap.NewNop())
		req := testutil.NewJSONRequest(t, http.MethodGet, "/api/calendar/task-prioritization", nil, e.member)
		rec := httptest.NewRecorder()
		h.StreamPrioritization(noFlushWriter{rec}, req)
		env := testutil.DecodeEnvelope(t, rec)
		if rec.Code != http.StatusInternalServerError || env.Success {
			t.Errorf("expected 500 envelope, got %d: %s", rec.Code, rec.Body.String())
		}
		if ct := rec.Header().Get("Content-Type"); ct == "text/event-stream" {
			t.Error("error envelope sent with event-stream content type")
		}
	})

	t.Run("fails mid stream", func(t *testing.T) {
		fake := &prioritizer.Fake{Chunks: []string{"a", "b"}, FailAfter: 1, StreamErr: context.DeadlineExceeded}
		h := calendar.NewHandler(e.fx.DB(), fake, zap.NewNop())
		rec := get(t, h.StreamPrioritization, "/api/calendar/task-prioritization", e.member)
		body := rec.Body.String()
		if rec.Code != http.StatusOK || !strings.Contains(body, "data: a\n") {
			t.Fatalf("expected first chunk, got %d: %s", rec.Code, body)
		}
		if !strings.Contains(body, "event: error\ndata: Internal server error\n") {
			t.Errorf("missing error event: %s", body)
		}
		if strings.Contains(body, "event: done") {
			t.Error("done must not follow an error")
		}
	})
}

// noFlushWriter hides the recorder's Flush method.
type noFlushWriter struct{ rec *httptest.ResponseRecorder }

func (n noFlushWriter) Header() http.Header         { return n.rec.Header() }
func (n noFlushWriter) Write(b []byte) (int, error) { return n.rec.Write(b) }
func (n noFlushWriter) WriteHeader(code int)        { n.rec.WriteHeader(code) }
