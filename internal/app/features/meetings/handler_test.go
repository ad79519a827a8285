package meetings_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/youlead/internal/app/features/meetings"
	"github.com/dalemusser/youlead/internal/app/system/mailer"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/dalemusser/youlead/internal/testutil"
	"go.uber.org/zap"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (s *recordingSender) Send(_ context.Context, e mailer.Email) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, e)
	return nil
}

func (s *recordingSender) subjects() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.sent))
	for i, e := range s.sent {
		out[i] = e.Subject
	}
	return out
}

type env struct {
	h         *meetings.Handler
	sender    *recordingSender
	organizer models.User
	guest     models.User
	outsider  models.User
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	leader := fx.CreateLeader(ctx, "Lead", "lead@example.com")
	team := fx.CreateTeam(ctx, "Rockets", &leader)
	guest := fx.CreateMember(ctx, "Guest", "guest@example.com")
	fx.JoinTeam(ctx, &guest, team.ID)
	outsider := fx.CreateMember(ctx, "Out", "out@example.com")

	sender := &recordingSender{}
	h := meetings.NewHandler(db, nil, mailer.NewNotifier(sender, zap.NewNop()), zap.NewNop())
	return env{h: h, sender: sender, organizer: leader, guest: guest, outsider: outsider}
}

func (e env) call(t *testing.T, fn http.HandlerFunc, u models.User, id string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPut, "/api/meeting/x", body, u)
	if id != "" {
		req = testutil.WithChiURLParams(req, "id", id)
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func slot(offset time.Duration) (string, string) {
	start := time.Now().UTC().Add(offset).Truncate(time.Minute)
	return start.Format(time.RFC3339), start.Add(30 * time.Minute).Format(time.RFC3339)
}

func (e env) schedule(t *testing.T) string {
	t.Helper()
	start, end := slot(24 * time.Hour)
	rec := e.call(t, e.h.HandleCreate, e.organizer, "", map[string]any{
		"title":        "Standup",
		"participants": []string{e.guest.ID.Hex()},
		"startTime":    start,
		"endTime":      end,
		"link":         "https://meet.example.com/standup",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	return data["id"].(string)
}

func TestCreate_EmailsParticipants(t *testing.T) {
	e := setup(t)
	e.schedule(t)
	e.h.Notifier.Wait()

	got := e.sender.subjects()
	if len(got) != 1 || got[0] != "Meeting: Standup" {
		t.Errorf("unexpected emails: %v", got)
	}
}

func TestCreate_Validation(t *testing.T) {
	e := setup(t)
	start, end := slot(24 * time.Hour)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"end before start", map[string]any{"title": "X", "startTime": end, "endTime": start}},
		{"missing times", map[string]any{"title": "X"}},
		{"bad link", map[string]any{"title": "X", "startTime": start, "endTime": end, "link": "javascript:alert(1)"}},
		{"outsider", map[string]any{"title": "X", "startTime": start, "endTime": end, "participants": []string{e.outsider.ID.Hex()}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := e.call(t, e.h.HandleCreate, e.organizer, "", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestUpdateCancelDelete_OrganizerOnly(t *testing.T) {
	e := setup(t)
	id := e.schedule(t)

	if rec := e.call(t, e.h.HandleUpdate, e.guest, id, map[string]any{"title": "Hijack"}); rec.Code != http.StatusForbidden {
		t.Fatalf("guest update: expected 403, got %d", rec.Code)
	}
	rec := e.call(t, e.h.HandleUpdate, e.organizer, id, map[string]any{"title": "Daily standup"})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	if data["title"] != "Daily standup" || len(data["participants"].([]any)) != 1 {
		t.Errorf("partial update should keep other fields: %v", data)
	}

	if rec := e.call(t, e.h.HandleCancel, e.organizer, id, nil); rec.Code != http.StatusOK {
		t.Fatalf("cancel: expected 200, got %d", rec.Code)
	}
	if rec := e.call(t, e.h.HandleUpdate, e.organizer, id, map[string]any{"title": "Back on"}); rec.Code != http.StatusBadRequest {
		t.Errorf("updating a cancelled meeting: expected 400, got %d", rec.Code)
	}
	if rec := e.call(t, e.h.HandleCancel, e.organizer, id, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("cancelling twice: expected 400, got %d", rec.Code)
	}

	e.h.Notifier.Wait()
	var cancelled bool
	for _, s := range e.sender.subjects() {
		if strings.HasPrefix(s, "Cancelled:") {
			cancelled = true
		}
	}
	if !cancelled {
		t.Error("participants should get a cancellation email")
	}

	if rec := e.call(t, e.h.HandleDelete, e.guest, id, nil); rec.Code != http.StatusForbidden {
		t.Errorf("guest delete: expected 403, got %d", rec.Code)
	}
	if rec := e.call(t, e.h.HandleDelete, e.organizer, id, nil); rec.Code != http.StatusOK {
		t.Errorf("delete: expected 200, got %d", rec.Code)
	}
}

func TestServeMine_UpcomingUnlessAll(t *testing.T) {
	e := setup(t)
	e.schedule(t)

	start, end := slot(-48 * time.Hour)
	if rec := e.call(t, e.h.HandleCreate, e.organizer, "", map[string]any{
		"title": "Retro", "participants": []string{e.guest.ID.Hex()}, "startTime": start, "endTime": end,
	}); rec.Code != http.StatusCreated {
		t.Fatalf("create past meeting: %d", rec.Code)
	}

	count := func(target string) int {
		rec := httptest.NewRecorder()
		e.h.ServeMine(rec, testutil.NewJSONRequest(t, http.MethodGet, target, nil, e.guest))
		list, _ := testutil.DecodeEnvelope(t, rec).Data.([]any)
		return len(list)
	}
	if n := count("/api/meeting/my"); n != 1 {
		t.Errorf("upcoming: expected 1, got %d", n)
	}
	if n := count("/api/meeting/my?all=true"); n != 2 {
		t.Errorf("all: expected 2, got %d", n)
	}
}
