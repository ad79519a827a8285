package projectstore

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

var (
	// ErrNotMember is returned by RemoveMember when the user is not in members.
	ErrNotMember = errors.New("user is not a member of this project")
	// ErrNotPending is returned by Complete when the project is already completed.
	ErrNotPending = errors.New("project is already completed")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(models.CollectionProjects)}
}

// Create inserts a pending project. Members and Deadline are never stored as null.
func (s *Store) Create(ctx context.Context, p models.Project) (models.Project, error) {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	p.Name = normalize.Name(p.Name)
	p.Status = models.StatusPending
	if p.Members == nil {
		p.Members = []primitive.ObjectID{}
	}
	if p.Deadline == nil {
		p.Deadline = []time.Time{}
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.Project{}, err
	}
	return p, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListForUser returns projects the user created or is a member of, newest first.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Project, error) {
	return s.find(ctx, bson.M{"$or": bson.A{
		bson.M{"members": userID},
		bson.M{"created_by": userID},
	}})
}

// ListByMember returns the team's projects that have userID as a member.
func (s *Store) ListByMember(ctx context.Context, teamID, userID primitive.ObjectID) ([]models.Project, error) {
	return s.find(ctx, bson.M{"team_id": teamID, "members": userID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Project, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Project{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AddMembers adds ids to members ($addToSet) and returns the project as it
// was before the update.
func (s *Store) AddMembers(ctx context.Context, id primitive.ObjectID, ids []primitive.ObjectID) (*models.Project, error) {
	var before models.Project
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{
			"$addToSet": bson.M{"members": bson.M{"$each": ids}},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		return nil, err
	}
	return &before, nil
}

// RemoveMember pulls userID from members and returns the project as it was
// before the pull. ErrNotMember if the user was not present.
func (s *Store) RemoveMember(ctx context.Context, id, userID primitive.ObjectID) (*models.Project, error) {
	var before models.Project
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "members": userID},
		bson.M{
			"$pull": bson.M{"members": userID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotMember
	}
	if err != nil {
		return nil, err
	}
	return &before, nil
}

// AppendDeadline pushes d onto the deadline history. When d is after now the
// past-due flag is cleared. Returns the project as it was before.
func (s *Store) AppendDeadline(ctx context.Context, id primitive.ObjectID, d, now time.Time) (*models.Project, error) {
	set := bson.M{"updated_at": now}
	if d.After(now) {
		set["past_due"] = false
	}
	var before models.Project
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$push": bson.M{"deadline": d}, "$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if err != nil {
		return nil, err
	}
	return &before, nil
}

// Complete marks a pending project completed and returns it as it was
// before. ErrNotPending if it was already completed.
func (s *Store) Complete(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.Project, error) {
	var before models.Project
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": bson.M{
			"status":       models.StatusCompleted,
			"past_due":     false,
			"completed_at": now,
			"updated_at":   now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotPending
	}
	if err != nil {
		return nil, err
	}
	return &before, nil
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// PullUserEverywhere removes userID from every project's members.
func (s *Store) PullUserEverywhere(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"members": userID}, bson.M{
		"$pull": bson.M{"members": userID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// Overdue returns pending projects not yet flagged whose current deadline
// (the last element of deadline) is before now.
func (s *Store) Overdue(ctx context.Context, now time.Time) ([]models.Project, error) {
	return s.find(ctx, overdueFilter(now))
}

// MarkPastDue flags one project if it is still overdue and unflagged and
// returns it as flagged. A nil project means this call set nothing.
func (s *Store) MarkPastDue(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.Project, error) {
	filter := overdueFilter(now)
	filter["_id"] = id
	var after models.Project
	err := s.c.FindOneAndUpdate(ctx, filter,
		bson.M{"$set": bson.M{"past_due": true, "updated_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&after)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &after, nil
}

// CountByStatus groups the team's projects by status.
func (s *Store) CountByStatus(ctx context.Context, teamID primitive.ObjectID) (map[string]int64, error) {
	return countByStatus(ctx, s.c, teamID)
}

func overdueFilter(now time.Time) bson.M {
	return bson.M{
		"status":   models.StatusPending,
		"past_due": bson.M{"$ne": true},
		"$expr": bson.M{"$lt": bson.A{
			bson.M{"$arrayElemAt": bson.A{"$deadline", -1}},
			now,
		}},
		"deadline.0": bson.M{"$exists": true},
	}
}

func countByStatus(ctx context.Context, c *mongo.Collection, teamID primitive.ObjectID) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"team_id": teamID}}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$status",
			"count":    bson.M{"$sum": 1},
			"past_due": bson.M{"$sum": bson.M{"$cond": bson.A{"$past_due", 1, 0}}},
		}}},
	}
	cur, err := c.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]int64{models.StatusPending: 0, models.StatusCompleted: 0, "pastDue": 0}
	for cur.Next(ctx) {
		var row struct {
			Status  string `bson:"_id"`
			Count   int64  `bson:"count"`
			PastDue int64  `bson:"past_due"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.Status] = row.Count
		out["pastDue"] += row.PastDue
	}
	return out, cur.Err()
}
