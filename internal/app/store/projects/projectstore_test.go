package projectstore_test

import (
	"errors"
	"testing"
	"time"

	projectstore "github.com/dalemusser/youlead/internal/app/store/projects"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/dalemusser/youlead/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRemoveMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	s := projectstore.New(db)

	leader := fx.CreateLeader(ctx, "L", "l@x.com")
	m := fx.CreateMember(ctx, "M", "m@x.com")
	p := fx.CreateProject(ctx, "P", leader, m.ID)

	before, err := s.RemoveMember(ctx, p.ID, m.ID)
	if err != nil {
		t.Fatalf("RemoveMember: %v", err)
	}
	if !before.HasMember(m.ID) {
		t.Error("pre-image should still contain the member")
	}
	if _, err := s.RemoveMember(ctx, p.ID, m.ID); !errors.Is(err, projectstore.ErrNotMember) {
		t.Errorf("expected ErrNotMember, got %v", err)
	}
}

func TestAppendDeadline_KeepsHistoryAndClearsPastDue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	s := projectstore.New(db)

	leader := fx.CreateLeader(ctx, "L", "l@x.com")
	p := fx.CreateProject(ctx, "P", leader)
	_, _ = db.Collection(models.CollectionProjects).UpdateOne(ctx, bson.M{"_id": p.ID}, bson.M{"$set": bson.M{"past_due": true}})

	now := time.Now().UTC()
	next := now.Add(48 * time.Hour).Truncate(time.Millisecond)
	before, err := s.AppendDeadline(ctx, p.ID, next, now)
	if err != nil {
		t.Fatalf("AppendDeadline: %v", err)
	}
	if !before.PastDue {
		t.Error("pre-image should report past_due")
	}

	got, _ := s.GetByID(ctx, p.ID)
	if len(got.Deadline) != 2 {
		t.Fatalf("deadline history len = %d, want 2", len(got.Deadline))
	}
	if !got.CurrentDeadline().Equal(next) {
		t.Errorf("current deadline = %v, want %v", got.CurrentDeadline(), next)
	}
	if got.PastDue {
		t.Error("past_due should be cleared by a future deadline")
	}
}

func TestComplete_Twice(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	s := projectstore.New(db)

	p := fx.CreateProject(ctx, "P", fx.CreateLeader(ctx, "L", "l@x.com"))
	if _, err := s.Complete(ctx, p.ID, time.Now().UTC()); err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if _, err := s.Complete(ctx, p.ID, time.Now().UTC()); !errors.Is(err, projectstore.ErrNotPending) {
		t.Errorf("expected ErrNotPending, got %v", err)
	}
}

func TestOverdueAndMarkPastDue(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	s := projectstore.New(db)

	leader := fx.CreateLeader(ctx, "L", "l@x.com")
	fresh := fx.CreateProject(ctx, "fresh", leader)
	late := fx.CreateProject(ctx, "late", leader)

	// Old deadline first, then an earlier one: only the last element counts.
	past := time.Now().UTC().Add(-time.Hour)
	_, _ = db.Collection(models.CollectionProjects).UpdateOne(ctx, bson.M{"_id": late.ID},
		bson.M{"$set": bson.M{"deadline": bson.A{time.Now().UTC().Add(24 * time.Hour), past}}})

	now := time.Now().UTC()
	got, err := s.Overdue(ctx, now)
	if err != nil {
		t.Fatalf("Overdue: %v", err)
	}
	if len(got) != 1 || got[0].ID != late.ID {
		t.Fatalf("Overdue = %+v, want only %s", got, late.ID.Hex())
	}

	flagged, err := s.MarkPastDue(ctx, late.ID, now)
	if err != nil || flagged == nil {
		t.Fatalf("MarkPastDue = %v, %v", flagged, err)
	}
	if !flagged.PastDue {
		t.Error("MarkPastDue should return the flagged project")
	}
	if again, _ := s.MarkPastDue(ctx, late.ID, now); again != nil {
		t.Error("second MarkPastDue should be a no-op")
	}
	if p, _ := s.MarkPastDue(ctx, fresh.ID, now); p != nil {
		t.Error("fresh project must not be flagged")
	}
}

func TestAddMembersReturnsBefore(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	s := projectstore.New(db)

	leader := fx.CreateLeader(ctx, "L", "l@x.com")
	a := fx.CreateMember(ctx, "A", "a@x.com")
	b := fx.CreateMember(ctx, "B", "b@x.com")
	p := fx.CreateProject(ctx, "P", leader, a.ID)

	before, err := s.AddMembers(ctx, p.ID, []primitive.ObjectID{a.ID, b.ID})
	if err != nil {
		t.Fatalf("AddMembers: %v", err)
	}
	if len(before.Members) != 1 || before.Members[0] != a.ID {
		t.Errorf("before.Members = %v, want [%s]", before.Members, a.ID.Hex())
	}
	got, _ := s.GetByID(ctx, p.ID)
	if len(got.Members) != 2 {
		t.Errorf("members after = %v, want 2", got.Members)
	}
}

func TestCountByStatus(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)
	s := projectstore.New(db)

	leader := fx.CreateLeader(ctx, "L", "l@x.com")
	team := fx.CreateTeam(ctx, "T", &leader)
	a := fx.CreateProject(ctx, "a", leader)
	fx.CreateProject(ctx, "b", leader)
	fx.CreateProject(ctx, "other", models.User{ID: primitive.NewObjectID()})
	_, _ = s.Complete(ctx, a.ID, time.Now().UTC())

	got, err := s.CountByStatus(ctx, team.ID)
	if err != nil {
		t.Fatalf("CountByStatus: %v", err)
	}
	if got[models.StatusPending] != 1 || got[models.StatusCompleted] != 1 {
		t.Errorf("counts = %v", got)
	}
}
