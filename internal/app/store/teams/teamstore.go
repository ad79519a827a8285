package teamstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/youlead/internal/app/system/normalize"
	"github.com/dalemusser/youlead/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ErrLeaderHasTeam is returned when a leader already created a team.
var ErrLeaderHasTeam = errors.New("leader already has a team")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(models.CollectionTeams)}
}

// Create inserts a team. The unique index on team_leader_id enforces one
// team per leader.
func (s *Store) Create(ctx context.Context, t models.Team) (models.Team, error) {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	t.Name = normalize.Name(t.Name)
	t.Organization = normalize.Name(t.Organization)
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Team{}, ErrLeaderHasTeam
		}
		return models.Team{}, err
	}
	return t, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Team, error) {
	var t models.Team
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// GetByLeader returns the leader's team or mongo.ErrNoDocuments.
func (s *Store) GetByLeader(ctx context.Context, leaderID primitive.ObjectID) (*models.Team, error) {
	var t models.Team
	if err := s.c.FindOne(ctx, bson.M{"team_leader_id": leaderID}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}
