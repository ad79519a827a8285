package teamstore_test

import (
	"errors"
	"testing"

	teamstore "github.com/dalemusser/youlead/internal/app/store/teams"
	"github.com/dalemusser/youlead/internal/app/system/indexes"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/dalemusser/youlead/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestCreate_OnePerLeader(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll: %v", err)
	}
	s := teamstore.New(db)
	leader := primitive.NewObjectID()

	team, err := s.Create(ctx, models.Team{Name: " Core   Team ", Organization: "Acme", TeamLeaderID: leader})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if team.Name != "Core Team" {
		t.Errorf("name = %q", team.Name)
	}

	_, err = s.Create(ctx, models.Team{Name: "Second", TeamLeaderID: leader})
	if !errors.Is(err, teamstore.ErrLeaderHasTeam) {
		t.Errorf("expected ErrLeaderHasTeam, got %v", err)
	}

	got, err := s.GetByLeader(ctx, leader)
	if err != nil || got.ID != team.ID {
		t.Errorf("GetByLeader = %v, %v", got, err)
	}
}
