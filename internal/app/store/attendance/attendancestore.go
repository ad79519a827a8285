package attendancestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/youlead/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrAlreadyMarked is returned when the user already checked in that day.
var ErrAlreadyMarked = errors.New("attendance already marked for this date")

// Store manages daily check-ins and the per-user summary documents.
type Store struct {
	c    *mongo.Collection
	info *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:    db.Collection(models.CollectionAttendance),
		info: db.Collection(models.CollectionAttendanceInfo),
	}
}

// Insert records a check-in. The unique (user_id, date) index turns a second
// check-in into ErrAlreadyMarked.
func (s *Store) Insert(ctx context.Context, a models.Attendance) (models.Attendance, error) {
	if a.ID.IsZero() {
		a.ID = primitive.NewObjectID()
	}
	if _, err := s.c.InsertOne(ctx, a); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Attendance{}, ErrAlreadyMarked
		}
		return models.Attendance{}, err
	}
	return a, nil
}

// Exists reports whether the user checked in on date.
func (s *Store) Exists(ctx context.Context, userID primitive.ObjectID, date string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"user_id": userID, "date": date}, options.Count().SetLimit(1))
	return n > 0, err
}

// ListForUser returns the user's records with from <= date <= to (empty
// bounds are open), most recent first.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID, from, to string) ([]models.Attendance, error) {
	filter := bson.M{"user_id": userID}
	rng := bson.M{}
	if from != "" {
		rng["$gte"] = from
	}
	if to != "" {
		rng["$lte"] = to
	}
	if len(rng) > 0 {
		filter["date"] = rng
	}
	return s.find(ctx, filter, bson.D{{Key: "date", Value: -1}})
}

// ListByTeamDate returns the team's check-ins for a day, earliest first.
func (s *Store) ListByTeamDate(ctx context.Context, teamID primitive.ObjectID, date string) ([]models.Attendance, error) {
	return s.find(ctx, bson.M{"team_id": teamID, "date": date}, bson.D{{Key: "checked_in_at", Value: 1}})
}

func (s *Store) find(ctx context.Context, filter bson.M, sort bson.D) ([]models.Attendance, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Attendance{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInfo inserts an empty summary for a new user.
func (s *Store) CreateInfo(ctx context.Context, userID primitive.ObjectID) (models.AttendanceInfo, error) {
	info := models.AttendanceInfo{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		UpdatedAt: time.Now().UTC(),
	}
	if _, err := s.info.InsertOne(ctx, info); err != nil {
		return models.AttendanceInfo{}, err
	}
	return info, nil
}

// GetInfo returns the user's summary, creating an empty one if missing.
func (s *Store) GetInfo(ctx context.Context, userID primitive.ObjectID) (models.AttendanceInfo, error) {
	var info models.AttendanceInfo
	err := s.info.FindOne(ctx, bson.M{"user_id": userID}).Decode(&info)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return s.CreateInfo(ctx, userID)
	}
	return info, err
}

// SaveInfo writes the summary counters back.
func (s *Store) SaveInfo(ctx context.Context, info models.AttendanceInfo) error {
	info.UpdatedAt = time.Now().UTC()
	_, err := s.info.UpdateOne(ctx, bson.M{"_id": info.ID}, bson.M{"$set": bson.M{
		"days_present":   info.DaysPresent,
		"days_late":      info.DaysLate,
		"last_date":      info.LastDate,
		"current_streak": info.CurrentStreak,
		"longest_streak": info.LongestStreak,
		"updated_at":     info.UpdatedAt,
	}})
	return err
}
