package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/youlead/internal/app/system/validators"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/dalemusser/youlead/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := map[string]bool{}
	for _, n := range names {
		have[n] = true
	}
	for _, want := range models.Collections {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestValidators(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	now := time.Now().UTC()
	tests := []struct {
		name    string
		coll    string
		doc     bson.M
		wantErr bool
	}{
		{"valid user", models.CollectionUsers, bson.M{
			"name": "Ada", "email": "ada@example.com", "role": models.RoleTeamMember,
			"status": models.UserActive, "auth_method": models.AuthPassword,
		}, false},
		{"user bad role", models.CollectionUsers, bson.M{
			"name": "Ada", "email": "ada@example.com", "role": "superuser",
			"status": models.UserActive, "auth_method": models.AuthPassword,
		}, true},
		{"user missing email", models.CollectionUsers, bson.M{
			"name": "Ada", "role": models.RoleTeamMember,
			"status": models.UserActive, "auth_method": models.AuthPassword,
		}, true},
		{"project without deadline", models.CollectionProjects, bson.M{
			"name": "Launch", "status": models.StatusPending, "deadline": bson.A{},
			"created_by": primitive.NewObjectID(), "team_id": primitive.NewObjectID(),
		}, true},
		{"task bad progress", models.CollectionTasks, bson.M{
			"name": "Write", "status": models.StatusPending, "deadline": bson.A{now},
			"created_by": primitive.NewObjectID(), "team_id": primitive.NewObjectID(),
			"priority": models.PriorityHigh, "progress": 150,
		}, true},
		{"attendance bad date", models.CollectionAttendance, bson.M{
			"user_id": primitive.NewObjectID(), "date": "15/10/2026", "status": models.AttendancePresent,
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Collection(tt.coll).InsertOne(ctx, tt.doc)
			if (err != nil) != tt.wantErr {
				t.Errorf("insert err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
