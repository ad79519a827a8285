package messagestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNotEditable is returned when the message is gone or belongs to someone else.
var ErrNotEditable = errors.New("message not found or not yours")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(models.CollectionMessages)}
}

// Create inserts a message; the sender has read it.
func (s *Store) Create(ctx context.Context, m models.Message) (models.Message, error) {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	m.ReadBy = []primitive.ObjectID{m.SenderID}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Message{}, err
	}
	return m, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Message, error) {
	var m models.Message
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// History returns up to limit messages of a room older than before (when
// non-zero), newest first. Callers reverse for display.
func (s *Store) History(ctx context.Context, roomType string, roomID, before primitive.ObjectID, limit int64) ([]models.Message, error) {
	filter := bson.M{"room_type": roomType, "room_id": roomID}
	if !before.IsZero() {
		filter["_id"] = bson.M{"$lt": before}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Message{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Edit replaces the content of the sender's own live message.
func (s *Store) Edit(ctx context.Context, id, senderID primitive.ObjectID, content string) (*models.Message, error) {
	var after models.Message
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "sender_id": senderID, "deleted": false},
		bson.M{"$set": bson.M{"content": content, "edited": true, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&after)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotEditable
	}
	if err != nil {
		return nil, err
	}
	return &after, nil
}

// SoftDelete blanks the sender's own message and flags it deleted.
func (s *Store) SoftDelete(ctx context.Context, id, senderID primitive.ObjectID) (*models.Message, error) {
	var after models.Message
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "sender_id": senderID, "deleted": false},
		bson.M{"$set": bson.M{"content": "", "deleted": true, "updated_at": time.Now().UTC()}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&after)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotEditable
	}
	if err != nil {
		return nil, err
	}
	return &after, nil
}

// MarkRead adds userID to read_by on every message of the room they have
// not read yet. Returns how many messages changed.
func (s *Store) MarkRead(ctx context.Context, roomType string, roomID, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"room_type": roomType, "room_id": roomID, "read_by": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"read_by": userID}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
