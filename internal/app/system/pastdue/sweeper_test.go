package pastdue_test

import (
	"testing"
	"time"

	projectstore "github.com/dalemusser/youlead/internal/app/store/projects"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/pastdue"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/dalemusser/youlead/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func TestSweepPastDue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	leader := fx.CreateLeader(ctx, "L", "l@x.com")
	m := fx.CreateMember(ctx, "M", "m@x.com")
	p := fx.CreateProject(ctx, "P", leader, m.ID)
	late := fx.CreateTask(ctx, "late", p, m.ID)
	fx.CreateTask(ctx, "fine", p, m.ID)

	past := time.Now().UTC().Add(-time.Hour)
	_, _ = db.Collection(models.CollectionTasks).UpdateOne(ctx, bson.M{"_id": late.ID},
		bson.M{"$push": bson.M{"deadline": past}})

	s := pastdue.New(db, zap.NewNop())
	n, err := s.SweepPastDue(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("SweepPastDue: %v", err)
	}
	if n != 1 {
		t.Errorf("flagged = %d, want 1", n)
	}
	if got := fx.LoadUser(ctx, m.ID).TaskStatus.PastDue; got != 1 {
		t.Errorf("member task past_due = %d, want 1", got)
	}
	if got := fx.LoadUser(ctx, m.ID).ProjectStatus.PastDue; got != 0 {
		t.Errorf("member project past_due = %d, want 0", got)
	}

	// A second sweep must not double count.
	if n, _ := s.SweepPastDue(ctx, time.Now().UTC()); n != 0 {
		t.Errorf("second sweep flagged %d", n)
	}
	if got := fx.LoadUser(ctx, m.ID).TaskStatus.PastDue; got != 1 {
		t.Errorf("past_due after second sweep = %d", got)
	}
}

// Members added after the overdue listing still get past_due when the
// project is flagged.
func TestFlagProject_UsesMembersAtFlagTime(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	leader := fx.CreateLeader(ctx, "L", "l@x.com")
	a := fx.CreateMember(ctx, "A", "a@x.com")
	b := fx.CreateMember(ctx, "B", "b@x.com")
	p := fx.CreateProject(ctx, "P", leader, a.ID)

	past := time.Now().UTC().Add(-time.Hour)
	_, _ = db.Collection(models.CollectionProjects).UpdateOne(ctx, bson.M{"_id": p.ID},
		bson.M{"$push": bson.M{"deadline": past}})

	now := time.Now().UTC()
	projects := projectstore.New(db)
	listed, err := projects.Overdue(ctx, now)
	if err != nil || len(listed) != 1 || len(listed[0].Members) != 1 {
		t.Fatalf("Overdue = %+v, %v", listed, err)
	}

	// B joins between the listing and the flag.
	if _, err := projects.AddMembers(ctx, p.ID, []primitive.ObjectID{b.ID}); err != nil {
		t.Fatalf("AddMembers: %v", err)
	}
	if err := userstore.New(db).AdjustCounters(ctx, userstore.ProjectCounters, []primitive.ObjectID{b.ID}, userstore.Assignment(false)); err != nil {
		t.Fatalf("AdjustCounters: %v", err)
	}

	s := pastdue.New(db, zap.NewNop())
	ok, err := s.FlagProject(ctx, listed[0].ID, now)
	if err != nil || !ok {
		t.Fatalf("FlagProject = %v, %v", ok, err)
	}
	for _, u := range []models.User{a, b} {
		if got := fx.LoadUser(ctx, u.ID).ProjectStatus.PastDue; got != 1 {
			t.Errorf("%s project past_due = %d, want 1", u.Name, got)
		}
	}
}
