package analytics_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/youlead/internal/app/features/analytics"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/dalemusser/youlead/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

func get(t *testing.T, fn http.HandlerFunc, u models.User) (int, map[string]any) {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodGet, "/api/analytics", nil, u)
	rec := httptest.NewRecorder()
	fn(rec, req)
	data, _ := testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	return rec.Code, data
}

func TestServeMine(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	u := fx.CreateMember(ctx, "Ann", "ann@example.com")
	_, err := db.Collection(models.CollectionUsers).UpdateOne(ctx, bson.M{"_id": u.ID},
		bson.M{"$set": bson.M{"task_status.completed": 3, "task_status.pending": 1}})
	if err != nil {
		t.Fatalf("seed counters: %v", err)
	}

	h := analytics.NewHandler(db, zap.NewNop())
	code, data := get(t, h.ServeMine, u)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if data["completionRate"] != 75.0 {
		t.Errorf("completionRate = %v, want 75", data["completionRate"])
	}
	if _, ok := data["attendance"].(map[string]any); !ok {
		t.Errorf("missing attendance info: %v", data)
	}
}

func TestServeTeam(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	leader := fx.CreateLeader(ctx, "Lead", "lead@example.com")
	team := fx.CreateTeam(ctx, "Rockets", &leader)
	a := fx.CreateMember(ctx, "Ann", "ann@example.com")
	fx.JoinTeam(ctx, &a, team.ID)

	p := fx.CreateProject(ctx, "Launch", leader, a.ID)
	fx.CreateTask(ctx, "one", p, a.ID)
	fx.CreateTask(ctx, "two", p, a.ID)
	done := fx.CreateTask(ctx, "three", p, a.ID)
	if _, err := db.Collection(models.CollectionTasks).UpdateOne(ctx, bson.M{"_id": done.ID},
		bson.M{"$set": bson.M{"status": models.StatusCompleted}}); err != nil {
		t.Fatalf("complete task: %v", err)
	}

	h := analytics.NewHandler(db, zap.NewNop())
	code, data := get(t, h.ServeTeam, leader)
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	tasks, _ := data["tasks"].(map[string]any)
	if tasks[models.StatusPending] != 2.0 || tasks[models.StatusCompleted] != 1.0 {
		t.Errorf("tasks = %v", tasks)
	}
	projects, _ := data["projects"].(map[string]any)
	if projects[models.StatusPending] != 1.0 {
		t.Errorf("projects = %v", projects)
	}
	if data["completionRate"] != 33.3 {
		t.Errorf("completionRate = %v, want 33.3", data["completionRate"])
	}
	if members, _ := data["members"].([]any); len(members) != 2 {
		t.Errorf("members = %d, want 2", len(members))
	}

	loner := fx.CreateLeader(ctx, "Solo", "solo@example.com")
	if code, _ := get(t, h.ServeTeam, loner); code != http.StatusNotFound {
		t.Errorf("leader without team: expected 404, got %d", code)
	}
}
