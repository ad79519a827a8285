package meetingstore

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

// ErrNotScheduled is returned when changing a cancelled meeting.
var ErrNotScheduled = errors.New("meeting is cancelled")

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(models.CollectionMeetings)}
}

// Create inserts a scheduled meeting.
func (s *Store) Create(ctx context.Context, m models.Meeting) (models.Meeting, error) {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	if m.Participants == nil {
		m.Participants = []primitive.ObjectID{}
	}
	m.Status = models.MeetingScheduled
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, m); err != nil {
		return models.Meeting{}, err
	}
	return m, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Meeting, error) {
	var m models.Meeting
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListForUser returns meetings the user organizes or attends whose end time
// is at or after from (zero from means all), sorted by start time. A
// non-zero to bounds the start time.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID, from, to time.Time) ([]models.Meeting, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"organizer_id": userID},
		bson.M{"participants": userID},
	}}
	if !from.IsZero() {
		filter["end_time"] = bson.M{"$gte": from}
	}
	if !to.IsZero() {
		filter["start_time"] = bson.M{"$lte": to}
	}

	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Meeting{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the editable fields of a scheduled meeting and returns it.
func (s *Store) Update(ctx context.Context, m models.Meeting) (*models.Meeting, error) {
	if m.Participants == nil {
		m.Participants = []primitive.ObjectID{}
	}
	var after models.Meeting
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": m.ID, "status": models.MeetingScheduled},
		bson.M{"$set": bson.M{
			"title":        m.Title,
			"description":  m.Description,
			"participants": m.Participants,
			"start_time":   m.StartTime,
			"end_time":     m.EndTime,
			"link":         m.Link,
			"updated_at":   time.Now().UTC(),
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&after)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotScheduled
	}
	if err != nil {
		return nil, err
	}
	return &after, nil
}

// Cancel moves a scheduled meeting to cancelled.
func (s *Store) Cancel(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.MeetingScheduled},
		bson.M{"$set": bson.M{"status": models.MeetingCancelled, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotScheduled
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
