package taskstore

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
	// ErrAlreadyAssigned is returned by Assign when the user is already in assigned_to.
	ErrAlreadyAssigned = errors.New("user is already assigned to this task")
	// ErrNotAssigned is returned by Unassign when the user is not in assigned_to.
	ErrNotAssigned = errors.New("user is not assigned to this task")
	// ErrNotPending is returned by Complete when the task is already completed.
	ErrNotPending = errors.New("task is already completed")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(models.CollectionTasks)}
}

// Create inserts a pending task.
func (s *Store) Create(ctx context.Context, t models.Task) (models.Task, error) {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	t.Name = normalize.Name(t.Name)
	t.Status = models.StatusPending
	if t.Priority == "" {
		t.Priority = models.PriorityMedium
	}
	if t.AssignedTo == nil {
		t.AssignedTo = []primitive.ObjectID{}
	}
	if t.Deadline == nil {
		t.Deadline = []time.Time{}
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		return models.Task{}, err
	}
	return t, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListForUser returns tasks assigned to userID; with includeCreated, tasks
// they created as well. A non-zero projectID narrows to one project.
func (s *Store) ListForUser(ctx context.Context, userID primitive.ObjectID, includeCreated bool, projectID primitive.ObjectID) ([]models.Task, error) {
	filter := bson.M{"assigned_to": userID}
	if includeCreated {
		filter = bson.M{"$or": bson.A{
			bson.M{"assigned_to": userID},
			bson.M{"created_by": userID},
		}}
	}
	if !projectID.IsZero() {
		filter["project_id"] = projectID
	}
	return s.find(ctx, filter)
}

// ListPendingAssigned returns the user's pending tasks, earliest first.
func (s *Store) ListPendingAssigned(ctx context.Context, userID primitive.ObjectID) ([]models.Task, error) {
	return s.find(ctx, bson.M{"assigned_to": userID, "status": models.StatusPending})
}

// ListByProject returns every task under a project.
func (s *Store) ListByProject(ctx context.Context, projectID primitive.ObjectID) ([]models.Task, error) {
	return s.find(ctx, bson.M{"project_id": projectID})
}

// ListByProjectAssignee returns the project's tasks assigned to userID.
func (s *Store) ListByProjectAssignee(ctx context.Context, projectID, userID primitive.ObjectID) ([]models.Task, error) {
	return s.find(ctx, bson.M{"project_id": projectID, "assigned_to": userID})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Task, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.Task{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Assign adds userID to assigned_to and returns the task as it was before.
func (s *Store) Assign(ctx context.Context, id, userID primitive.ObjectID) (*models.Task, error) {
	var before models.Task
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "assigned_to": bson.M{"$ne": userID}},
		bson.M{
			"$addToSet": bson.M{"assigned_to": userID},
			"$set":      bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrAlreadyAssigned
	}
	if err != nil {
		return nil, err
	}
	return &before, nil
}

// Unassign pulls userID from assigned_to and returns the task as it was before.
func (s *Store) Unassign(ctx context.Context, id, userID primitive.ObjectID) (*models.Task, error) {
	var before models.Task
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "assigned_to": userID},
		bson.M{
			"$pull": bson.M{"assigned_to": userID},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		},
		options.FindOneAndUpdate().SetReturnDocument(options.Before),
	).Decode(&before)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotAssigned
	}
	if err != nil {
		return nil, err
	}
	return &before, nil
}

// AppendDeadline pushes d onto the deadline history, clearing past_due when
// d is after now. Returns the task as it was before.
func (s *Store) AppendDeadline(ctx context.Context, id primitive.ObjectID, d, now time.Time) (*models.Task, error) {
	set := bson.M{"updated_at": now}
	if d.After(now) {
		set["past_due"] = false
	}
	var before models.Task
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

// Fields holds the optional fields UpdateFields changes.
type Fields struct {
	Name        *string
	Description *string
	Priority    *string
	Progress    *int
}

// UpdateFields sets the given fields and returns the updated task.
func (s *Store) UpdateFields(ctx context.Context, id primitive.ObjectID, f Fields) (*models.Task, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if f.Name != nil {
		set["name"] = normalize.Name(*f.Name)
	}
	if f.Description != nil {
		set["description"] = *f.Description
	}
	if f.Priority != nil {
		set["priority"] = *f.Priority
	}
	if f.Progress != nil {
		set["progress"] = *f.Progress
	}
	var after models.Task
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&after)
	if err != nil {
		return nil, err
	}
	return &after, nil
}

// Complete marks a pending task completed with progress 100 and returns it
// as it was before. ErrNotPending if it was already completed.
func (s *Store) Complete(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.Task, error) {
	var before models.Task
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": bson.M{
			"status":       models.StatusCompleted,
			"progress":     100,
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

// DeleteByProject removes every task of a project.
func (s *Store) DeleteByProject(ctx context.Context, projectID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"project_id": projectID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// PullUserEverywhere removes userID from every task's assigned_to.
func (s *Store) PullUserEverywhere(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.UpdateMany(ctx, bson.M{"assigned_to": userID}, bson.M{
		"$pull": bson.M{"assigned_to": userID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// Overdue returns pending, unflagged tasks whose current deadline passed.
func (s *Store) Overdue(ctx context.Context, now time.Time) ([]models.Task, error) {
	return s.find(ctx, overdueFilter(now))
}

// MarkPastDue flags one task if it is still overdue and unflagged and
// returns it as flagged. A nil task means this call set nothing.
func (s *Store) MarkPastDue(ctx context.Context, id primitive.ObjectID, now time.Time) (*models.Task, error) {
	filter := overdueFilter(now)
	filter["_id"] = id
	var after models.Task
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

// CountByStatus groups the team's tasks by status, plus a pastDue total.
func (s *Store) CountByStatus(ctx context.Context, teamID primitive.ObjectID) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"team_id": teamID}}},
		{{Key: "$group", Value: bson.M{
			"_id":      "$status",
			"count":    bson.M{"$sum": 1},
			"past_due": bson.M{"$sum": bson.M{"$cond": bson.A{"$past_due", 1, 0}}},
		}}},
	}
	cur, err := s.c.Aggregate(ctx, pipeline)
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

func overdueFilter(now time.Time) bson.M {
	return bson.M{
		"status":     models.StatusPending,
		"past_due":   bson.M{"$ne": true},
		"deadline.0": bson.M{"$exists": true},
		"$expr": bson.M{"$lt": bson.A{
			bson.M{"$arrayElemAt": bson.A{"$deadline", -1}},
			now,
		}},
	}
}
