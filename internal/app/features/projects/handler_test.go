package projects_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/youlead/internal/app/features/projects"
	"github.com/dalemusser/youlead/internal/app/system/activitylog"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/dalemusser/youlead/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	h      *projects.Handler
	fx     *testutil.Fixtures
	leader models.User
	a, b   models.User
}

func setup(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fx := testutil.NewFixtures(t, db)
	leader := fx.CreateLeader(ctx, "Lead", "lead@example.com")
	team := fx.CreateTeam(ctx, "Rockets", &leader)
	a := fx.CreateMember(ctx, "Ann", "ann@example.com")
	b := fx.CreateMember(ctx, "Bob", "bob@example.com")
	fx.JoinTeam(ctx, &a, team.ID)
	fx.JoinTeam(ctx, &b, team.ID)
	return env{
		h:      projects.NewHandler(db, activitylog.New(db, zap.NewNop()), zap.NewNop()),
		fx:     fx,
		leader: leader, a: a, b: b,
	}
}

func (e env) call(t *testing.T, fn http.HandlerFunc, u models.User, projectID string, body any) *httptest.ResponseRecorder {
	t.Helper()
	req := testutil.NewJSONRequest(t, http.MethodPut, "/api/projects/x", body, u)
	if projectID != "" {
		req = testutil.WithChiURLParams(req, "id", projectID)
	}
	rec := httptest.NewRecorder()
	fn(rec, req)
	return rec
}

func (e env) create(t *testing.T, members ...primitive.ObjectID) string {
	t.Helper()
	hexes := make([]string, len(members))
	for i, m := range members {
		hexes[i] = m.Hex()
	}
	rec := e.call(t, e.h.HandleCreate, e.leader, "", map[string]any{
		"name":     "Launch",
		"deadline": time.Now().UTC().Add(72 * time.Hour).Format(time.RFC3339),
		"members":  hexes,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	data, _ := testutil.DecodeEnvelope(t, rec).Data.(map[string]any)
	return data["id"].(string)
}

func TestCreate_IncrementsMemberCounters(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	e.create(t, e.a.ID)
	if got := e.fx.LoadUser(ctx, e.a.ID); got.ProjectStatus.Pending != 1 {
		t.Errorf("expected pending=1, got %d", got.ProjectStatus.Pending)
	}
}

func TestCreate_Validation(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	outsider := e.fx.CreateMember(ctx, "Out", "out@example.com")
	future := time.Now().UTC().Add(48 * time.Hour).Format("2006-01-02")

	tests := []struct {
		name string
		body map[string]any
	}{
		{"no name", map[string]any{"deadline": future}},
		{"bad deadline", map[string]any{"name": "P", "deadline": "next tuesday"}},
		{"past deadline", map[string]any{"name": "P", "deadline": "2001-01-01"}},
		{"outsider member", map[string]any{"name": "P", "deadline": future, "members": []string{outsider.ID.Hex()}}},
		{"bad member id", map[string]any{"name": "P", "deadline": future, "members": []string{"zzz"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := e.call(t, e.h.HandleCreate, e.leader, "", tt.body); rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestAddAndRemoveMembers(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := e.create(t, e.a.ID)

	rec := e.call(t, e.h.HandleAddMembers, e.leader, id, map[string]any{"members": []string{e.a.ID.Hex(), e.b.ID.Hex()}})
	if rec.Code != http.StatusOK {
		t.Fatalf("add: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := e.fx.LoadUser(ctx, e.a.ID); got.ProjectStatus.Pending != 1 {
		t.Errorf("existing member must not be counted twice, got %d", got.ProjectStatus.Pending)
	}
	if got := e.fx.LoadUser(ctx, e.b.ID); got.ProjectStatus.Pending != 1 {
		t.Errorf("new member pending: expected 1, got %d", got.ProjectStatus.Pending)
	}

	rec = e.call(t, e.h.HandleRemoveMember, e.leader, id, map[string]string{"memberId": e.b.ID.Hex()})
	if rec.Code != http.StatusOK {
		t.Fatalf("remove: expected 200, got %d", rec.Code)
	}
	if got := e.fx.LoadUser(ctx, e.b.ID); got.ProjectStatus.Pending != 0 {
		t.Errorf("removed member pending: expected 0, got %d", got.ProjectStatus.Pending)
	}

	rec = e.call(t, e.h.HandleRemoveMember, e.leader, id, map[string]string{"memberId": e.b.ID.Hex()})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("removing a non-member: expected 400, got %d", rec.Code)
	}

	rec = e.call(t, e.h.HandleAddMembers, e.a, id, map[string]any{"members": []string{e.b.ID.Hex()}})
	if rec.Code != http.StatusForbidden {
		t.Errorf("non-creator: expected 403, got %d", rec.Code)
	}
}

func TestDeadline(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	db := e.fx.DB()

	id := e.create(t, e.a.ID)
	oid, _ := primitive.ObjectIDFromHex(id)

	if rec := e.call(t, e.h.HandleDeadline, e.leader, id, map[string]string{"deadline": "not-a-date"}); rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid date: expected 400, got %d", rec.Code)
	}

	// Simulate the sweep having flagged the project.
	_, _ = db.Collection(models.CollectionProjects).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": bson.M{"past_due": true}})
	_, _ = db.Collection(models.CollectionUsers).UpdateOne(ctx, bson.M{"_id": e.a.ID}, bson.M{"$set": bson.M{"project_status.past_due": 1}})

	next := time.Now().UTC().Add(10 * 24 * time.Hour).Format("2006-01-02")
	if rec := e.call(t, e.h.HandleDeadline, e.leader, id, map[string]string{"deadline": next}); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var p models.Project
	_ = db.Collection(models.CollectionProjects).FindOne(ctx, bson.M{"_id": oid}).Decode(&p)
	if len(p.Deadline) != 2 || p.CurrentDeadline().Format("2006-01-02") != next {
		t.Errorf("deadline history should grow, got %v", p.Deadline)
	}
	if p.PastDue {
		t.Error("future deadline should clear past_due")
	}
	if got := e.fx.LoadUser(ctx, e.a.ID); got.ProjectStatus.PastDue != 0 {
		t.Errorf("past_due counter: expected 0, got %d", got.ProjectStatus.PastDue)
	}
}

func TestCompleteTwice(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := e.create(t, e.a.ID)
	if rec := e.call(t, e.h.HandleComplete, e.leader, id, nil); rec.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d", rec.Code)
	}
	got := e.fx.LoadUser(ctx, e.a.ID)
	if got.ProjectStatus.Pending != 0 || got.ProjectStatus.Completed != 1 {
		t.Errorf("counters after completion: %+v", got.ProjectStatus)
	}
	if rec := e.call(t, e.h.HandleComplete, e.leader, id, nil); rec.Code != http.StatusBadRequest {
		t.Errorf("second completion: expected 400, got %d", rec.Code)
	}
}

func TestDelete_RemovesTasksAndCounters(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	db := e.fx.DB()

	id := e.create(t, e.a.ID)
	oid, _ := primitive.ObjectIDFromHex(id)
	var p models.Project
	_ = db.Collection(models.CollectionProjects).FindOne(ctx, bson.M{"_id": oid}).Decode(&p)
	e.fx.CreateTask(ctx, "T", p, e.a.ID)
	_, _ = db.Collection(models.CollectionUsers).UpdateOne(ctx, bson.M{"_id": e.a.ID}, bson.M{"$set": bson.M{"task_status.pending": 1}})

	if rec := e.call(t, e.h.HandleDelete, e.leader, id, nil); rec.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rec.Code)
	}
	got := e.fx.LoadUser(ctx, e.a.ID)
	if got.ProjectStatus.Pending != 0 || got.TaskStatus.Pending != 0 {
		t.Errorf("counters should be released, got project=%+v task=%+v", got.ProjectStatus, got.TaskStatus)
	}
	n, _ := db.Collection(models.CollectionTasks).CountDocuments(ctx, bson.M{"project_id": oid})
	if n != 0 {
		t.Errorf("tasks should be deleted with the project, %d left", n)
	}
}

func TestServeProject_Visibility(t *testing.T) {
	e := setup(t)
	id := e.create(t, e.a.ID)

	if rec := e.call(t, e.h.ServeProject, e.a, id, nil); rec.Code != http.StatusOK {
		t.Errorf("member: expected 200, got %d", rec.Code)
	}
	if rec := e.call(t, e.h.ServeProject, e.b, id, nil); rec.Code != http.StatusForbidden {
		t.Errorf("non-member: expected 403, got %d", rec.Code)
	}
}

func TestAddMembers_CountersFollowCurrentProject(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := e.create(t, e.a.ID)
	pid, _ := primitive.ObjectIDFromHex(id)
	_, _ = e.fx.DB().Collection(models.CollectionProjects).UpdateOne(ctx, bson.M{"_id": pid},
		bson.M{"$set": bson.M{"past_due": true}})

	rec := e.call(t, e.h.HandleAddMembers, e.leader, id, map[string]any{"members": []string{e.b.ID.Hex()}})
	if rec.Code != http.StatusOK {
		t.Fatalf("addMembers: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	b := e.fx.LoadUser(ctx, e.b.ID)
	if b.ProjectStatus.Pending != 1 || b.ProjectStatus.PastDue != 1 {
		t.Errorf("b counters = %+v, want pending 1 past_due 1", b.ProjectStatus)
	}
}

func TestAddMembers_CompletedProjectLeavesCounters(t *testing.T) {
	e := setup(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	id := e.create(t, e.a.ID)
	if rec := e.call(t, e.h.HandleComplete, e.leader, id, nil); rec.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d", rec.Code)
	}

	rec := e.call(t, e.h.HandleAddMembers, e.leader, id, map[string]any{"members": []string{e.b.ID.Hex()}})
	if rec.Code != http.StatusOK {
		t.Fatalf("addMembers: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := e.fx.LoadUser(ctx, e.b.ID).ProjectStatus; got.Pending != 0 || got.Completed != 0 {
		t.Errorf("b counters = %+v, want untouched", got)
	}
}
