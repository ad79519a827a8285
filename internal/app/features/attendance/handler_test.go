package attendance

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/dalemusser/youlead/internal/testutil"
	"go.uber.org/zap"
)

func TestCheckIn_OncePerDay(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	leader := fx.CreateLeader(ctx, "Lead", "lead@example.com")
	team := fx.CreateTeam(ctx, "Rockets", &leader)
	member := fx.CreateMember(ctx, "Mem", "mem@example.com")
	fx.JoinTeam(ctx, &member, team.ID)

	h := NewHandler(db, nil, zap.NewNop())
	clock := time.Date(2030, 3, 1, 10, 30, 0, 0, time.UTC)
	h.now = func() time.Time { return clock }

	post := func() *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.HandleCheckIn(rec, testutil.NewJSONRequest(t, http.MethodPost, "/api/attendance/post", nil, member))
		return rec
	}

	rec := post()
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	att, _ := data["attendance"].(map[string]any)
	if att["status"] != models.AttendanceLate {
		t.Errorf("10:30 UTC should be late, got %v", att["status"])
	}

	if rec := post(); rec.Code != http.StatusBadRequest {
		t.Fatalf("second check-in: expected 400, got %d", rec.Code)
	}

	clock = clock.Add(24*time.Hour - 3*time.Hour)
	if rec := post(); rec.Code != http.StatusCreated {
		t.Fatalf("next day: expected 201, got %d", rec.Code)
	}
	info, err := h.attendance.GetInfo(ctx, member.ID)
	if err != nil {
		t.Fatal(err)
	}
	if info.CurrentStreak != 2 || info.DaysPresent != 2 || info.DaysLate != 1 {
		t.Errorf("unexpected info: %+v", info)
	}

	rec = httptest.NewRecorder()
	h.ServeTeam(rec, testutil.NewJSONRequest(t, http.MethodGet, "/api/attendance/team?date=2030-03-02", nil, leader))
	if rec.Code != http.StatusOK {
		t.Fatalf("team: expected 200, got %d", rec.Code)
	}
	data, _ = testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	rows, _ := data["members"].([]any)
	statuses := map[string]string{}
	for _, r := range rows {
		m := r.(map[string]any)
		statuses[m["email"].(string)] = m["status"].(string)
	}
	if statuses["mem@example.com"] != models.AttendancePresent || statuses["lead@example.com"] != "absent" {
		t.Errorf("unexpected team statuses: %v", statuses)
	}
}
