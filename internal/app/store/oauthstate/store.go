// internal/app/store/oauthstate/store.go
package oauthstate

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TTL is how long a Google sign-in state stays valid.
const TTL = 10 * time.Minute

// State is an OAuth2 state token stored for CSRF protection.
type State struct {
	State     string    `bson:"state"`
	ReturnTo  string    `bson:"return_to,omitempty"` // frontend path to land on after sign-in
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
}

// Store manages OAuth2 state tokens. Indexes (unique state, TTL on
// expires_at) are owned by system/indexes.
type Store struct {
	c   *mongo.Collection
	now func() time.Time
}

// New creates a new OAuth state Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(models.CollectionOAuthStates), now: time.Now}
}

// Issue mints and stores a fresh random state.
func (s *Store) Issue(ctx context.Context, returnTo string) (string, error) {
	now := s.now().UTC()
	st := State{
		State:     uuid.NewString(),
		ReturnTo:  returnTo,
		ExpiresAt: now.Add(TTL),
		CreatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, st); err != nil {
		return "", err
	}
	return st.State, nil
}

// Consume validates and deletes a state (one-time use). valid=false means
// unknown or expired.
func (s *Store) Consume(ctx context.Context, state string) (returnTo string, valid bool, err error) {
	var st State
	err = s.c.FindOneAndDelete(ctx, bson.M{
		"state":      state,
		"expires_at": bson.M{"$gt": s.now().UTC()},
	}).Decode(&st)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return st.ReturnTo, true, nil
}

// CleanupExpired removes expired state tokens.
func (s *Store) CleanupExpired(ctx context.Context) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lt": s.now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
