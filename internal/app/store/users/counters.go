package userstore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CounterBlock selects which counters to move.
type CounterBlock string

const (
	TaskCounters    CounterBlock = "task_status"
	ProjectCounters CounterBlock = "project_status"
)

// Delta is a change to one counter block.
type Delta struct {
	Pending   int
	Completed int
	PastDue   int
}

// Common deltas.
var (
	Assigned          = Delta{Pending: 1}
	Unassigned        = Delta{Pending: -1}
	UnassignedPastDue = Delta{Pending: -1, PastDue: -1}
	Completed         = Delta{Pending: -1, Completed: 1}
	CompletedPastDue  = Delta{Pending: -1, Completed: 1, PastDue: -1}
	BecamePastDue     = Delta{PastDue: 1}
	NoLongerPastDue   = Delta{PastDue: -1}
)

// Assignment is the delta for adding a user to a pending item. Joining an
// item that is already past due counts toward past_due as well.
func Assignment(pastDue bool) Delta {
	if pastDue {
		return Delta{Pending: 1, PastDue: 1}
	}
	return Assigned
}

// Removal is the delta for dropping a user from a pending item.
func Removal(pastDue bool) Delta {
	if pastDue {
		return UnassignedPastDue
	}
	return Unassigned
}

// Completion is the delta for completing a pending item.
func Completion(pastDue bool) Delta {
	if pastDue {
		return CompletedPastDue
	}
	return Completed
}

func (d Delta) inc(block CounterBlock) bson.M {
	inc := bson.M{}
	if d.Pending != 0 {
		inc[string(block)+".pending"] = d.Pending
	}
	if d.Completed != 0 {
		inc[string(block)+".completed"] = d.Completed
	}
	if d.PastDue != 0 {
		inc[string(block)+".past_due"] = d.PastDue
	}
	return inc
}

// AdjustCounters applies d to every user in ids. Callers run it inside the
// same transaction as the array mutation it mirrors.
func (s *Store) AdjustCounters(ctx context.Context, block CounterBlock, ids []primitive.ObjectID, d Delta) error {
	inc := d.inc(block)
	if len(ids) == 0 || len(inc) == 0 {
		return nil
	}
	_, err := s.c.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$inc": inc, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	return err
}
