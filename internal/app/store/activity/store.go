package activity

import (
	"context"
	"time"

	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event kinds.
const (
	KindTeamCreated        = "team_created"
	KindMemberInvited      = "member_invited"
	KindInvitationAccepted = "invitation_accepted"
	KindInvitationRejected = "invitation_rejected"
	KindMemberRemoved      = "member_removed"
	KindMemberLeft         = "member_left"
	KindProjectCreated     = "project_created"
	KindProjectMembers     = "project_members_added"
	KindProjectMemberOut   = "project_member_removed"
	KindProjectDeadline    = "project_deadline"
	KindProjectCompleted   = "project_completed"
	KindProjectDeleted     = "project_deleted"
	KindTaskCreated        = "task_created"
	KindTaskAssigned       = "task_assigned"
	KindTaskUnassigned     = "task_unassigned"
	KindTaskDeadline       = "task_deadline"
	KindTaskUpdated        = "task_updated"
	KindTaskCompleted      = "task_completed"
	KindTaskDeleted        = "task_deleted"
	KindMeetingScheduled   = "meeting_scheduled"
	KindMeetingUpdated     = "meeting_updated"
	KindMeetingCancelled   = "meeting_cancelled"
	KindMeetingDeleted     = "meeting_deleted"
	KindAttendance         = "attendance"
)

// Event is one human-readable line in a team's activity feed.
type Event struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	TeamID    primitive.ObjectID  `bson:"team_id" json:"teamId"`
	ActorID   primitive.ObjectID  `bson:"actor_id" json:"actorId"`
	ActorName string              `bson:"actor_name" json:"actorName"`
	Kind      string              `bson:"kind" json:"kind"`
	Message   string              `bson:"message" json:"message"`
	EntityID  *primitive.ObjectID `bson:"entity_id,omitempty" json:"entityId,omitempty"`
	Timestamp time.Time           `bson:"timestamp" json:"timestamp"`
}

// Store manages activity events.
type Store struct {
	c *mongo.Collection
}

// New creates a new activity Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(models.CollectionActivities)}
}

// Create records a new activity event.
func (s *Store) Create(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Recent returns the latest events for a team, newest first.
func (s *Store) Recent(ctx context.Context, teamID primitive.ObjectID, limit int64) ([]Event, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cur, err := s.c.Find(ctx, bson.M{"team_id": teamID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	events := []Event{}
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
