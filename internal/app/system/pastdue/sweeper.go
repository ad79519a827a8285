// Package pastdue flags pending projects and tasks whose current deadline
// has passed and moves the past_due counters of the people on them.
package pastdue

import (
	"context"
	"time"

	projectstore "github.com/dalemusser/youlead/internal/app/store/projects"
	taskstore "github.com/dalemusser/youlead/internal/app/store/tasks"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/txn"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Sweeper implements jobs.PastDueSweeper.
type Sweeper struct {
	db       *mongo.Database
	projects *projectstore.Store
	tasks    *taskstore.Store
	users    *userstore.Store
	log      *zap.Logger
}

func New(db *mongo.Database, logger *zap.Logger) *Sweeper {
	return &Sweeper{
		db:       db,
		projects: projectstore.New(db),
		tasks:    taskstore.New(db),
		users:    userstore.New(db),
		log:      logger,
	}
}

// SweepPastDue flags everything overdue at now. Each document is flagged
// in its own transaction together with its counter update, so a partial
// sweep leaves counters consistent. Returns how many documents it flagged.
func (s *Sweeper) SweepPastDue(ctx context.Context, now time.Time) (int, error) {
	projects, err := s.projects.Overdue(ctx, now)
	if err != nil {
		return 0, err
	}
	tasks, err := s.tasks.Overdue(ctx, now)
	if err != nil {
		return 0, err
	}

	flagged := 0
	for _, p := range projects {
		ok, err := s.flagProject(ctx, p.ID, now)
		if err != nil {
			return flagged, err
		}
		if ok {
			flagged++
		}
	}
	for _, t := range tasks {
		ok, err := s.flagTask(ctx, t.ID, now)
		if err != nil {
			return flagged, err
		}
		if ok {
			flagged++
		}
	}
	return flagged, nil
}

// flagProject counts the members of the project as flagged, not as listed
// by Overdue: membership may have changed since.
func (s *Sweeper) flagProject(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	return s.flag(ctx, userstore.ProjectCounters, func(ctx context.Context) ([]primitive.ObjectID, bool, error) {
		p, err := s.projects.MarkPastDue(ctx, id, now)
		if err != nil || p == nil {
			return nil, false, err
		}
		return p.Members, true, nil
	})
}

func (s *Sweeper) flagTask(ctx context.Context, id primitive.ObjectID, now time.Time) (bool, error) {
	return s.flag(ctx, userstore.TaskCounters, func(ctx context.Context) ([]primitive.ObjectID, bool, error) {
		t, err := s.tasks.MarkPastDue(ctx, id, now)
		if err != nil || t == nil {
			return nil, false, err
		}
		return t.AssignedTo, true, nil
	})
}

func (s *Sweeper) flag(ctx context.Context, block userstore.CounterBlock, mark func(context.Context) ([]primitive.ObjectID, bool, error)) (bool, error) {
	var marked bool
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		people, ok, err := mark(ctx)
		marked = ok
		if err != nil || !ok {
			return err
		}
		return s.users.AdjustCounters(ctx, block, people, userstore.BecamePastDue)
	})
	return marked, err
}
