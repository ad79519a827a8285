package invitationstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/youlead/internal/app/system/normalize"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotPending is returned when an invitation was already answered or cancelled.
var ErrNotPending = errors.New("invitation is no longer pending")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(models.CollectionInvitations)}
}

// Create inserts a pending invitation.
func (s *Store) Create(ctx context.Context, inv models.Invitation) (models.Invitation, error) {
	if inv.ID.IsZero() {
		inv.ID = primitive.NewObjectID()
	}
	inv.InviteeEmail = normalize.Email(inv.InviteeEmail)
	inv.Status = models.InvitationPending
	now := time.Now().UTC()
	inv.CreatedAt = now
	inv.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, inv); err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Invitation, error) {
	var inv models.Invitation
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

// HasPending reports whether teamID already has a pending invitation for email.
func (s *Store) HasPending(ctx context.Context, teamID primitive.ObjectID, email string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"team_id":       teamID,
		"invitee_email": normalize.Email(email),
		"status":        models.InvitationPending,
	}, options.Count().SetLimit(1))
	return n > 0, err
}

// ListByTeam returns every invitation a team sent, newest first.
func (s *Store) ListByTeam(ctx context.Context, teamID primitive.ObjectID) ([]models.Invitation, error) {
	return s.find(ctx, bson.M{"team_id": teamID})
}

// ListPendingFor returns the pending invitations addressed to email.
func (s *Store) ListPendingFor(ctx context.Context, email string) ([]models.Invitation, error) {
	return s.find(ctx, bson.M{
		"invitee_email": normalize.Email(email),
		"status":        models.InvitationPending,
	})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Invitation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Invitation{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Answer moves a pending invitation to status. ErrNotPending if it was not pending.
func (s *Store) Answer(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.InvitationPending},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotPending
	}
	return nil
}

// RejectOthers rejects every other pending invitation for email.
func (s *Store) RejectOthers(ctx context.Context, email string, keep primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{
			"invitee_email": normalize.Email(email),
			"status":        models.InvitationPending,
			"_id":           bson.M{"$ne": keep},
		},
		bson.M{"$set": bson.M{"status": models.InvitationRejected, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// MarkLeft flags the accepted invitation that put email on teamID.
func (s *Store) MarkLeft(ctx context.Context, teamID primitive.ObjectID, email string) error {
	_, err := s.c.UpdateMany(ctx,
		bson.M{
			"team_id":       teamID,
			"invitee_email": normalize.Email(email),
			"status":        models.InvitationAccepted,
			"invitee_left":  false,
		},
		bson.M{"$set": bson.M{"invitee_left": true, "updated_at": time.Now().UTC()}},
	)
	return err
}

// DeletePending removes a pending invitation. ErrNotPending if it was answered.
func (s *Store) DeletePending(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "status": models.InvitationPending})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotPending
	}
	return nil
}
