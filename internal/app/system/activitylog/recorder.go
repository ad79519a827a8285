// Package activitylog writes the team activity feed. Entries are written
// after the mutation they describe has committed; a failed write is logged
// and never surfaces to the caller.
package activitylog

import (
	"context"
	"fmt"

	"github.com/dalemusser/youlead/internal/app/store/activity"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Recorder appends activity entries. A nil Recorder does nothing.
type Recorder struct {
	store *activity.Store
	log   *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Recorder {
	return &Recorder{store: activity.New(db), log: logger}
}

// Entry describes one feed line.
type Entry struct {
	TeamID    primitive.ObjectID
	ActorID   primitive.ObjectID
	ActorName string
	Kind      string
	EntityID  primitive.ObjectID
}

// Record writes e with a message built from format and args. Entries
// without a team are dropped.
func (r *Recorder) Record(ctx context.Context, e Entry, format string, args ...any) {
	if r == nil || e.TeamID.IsZero() {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
	defer cancel()

	ev := activity.Event{
		TeamID:    e.TeamID,
		ActorID:   e.ActorID,
		ActorName: e.ActorName,
		Kind:      e.Kind,
		Message:   fmt.Sprintf(format, args...),
	}
	if !e.EntityID.IsZero() {
		id := e.EntityID
		ev.EntityID = &id
	}
	if err := r.store.Create(ctx, ev); err != nil {
		r.log.Warn("activity write failed",
			zap.String("kind", e.Kind),
			zap.String("team_id", e.TeamID.Hex()),
			zap.Error(err))
	}
}
