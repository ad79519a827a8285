// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup and by `youleadctl indexes`. Each collection's
set is reconciled independently; problems are aggregated so startup can fail
fast with the full picture.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string
	for _, coll := range models.Collections {
		set, ok := Desired[coll]
		if !ok {
			continue
		}
		if err := ensureIndexSet(ctx, db.Collection(coll), set); err != nil {
			problems = append(problems, coll+": "+err.Error())
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// Desired is the index set per collection.
var Desired = map[string][]mongo.IndexModel{
	models.CollectionUsers: {
		unique("uniq_users_email", bson.D{{Key: "email", Value: 1}}),
		named("idx_users_team", bson.D{{Key: "team_id", Value: 1}, {Key: "status", Value: 1}}),
	},
	models.CollectionTeams: {
		unique("uniq_teams_leader", bson.D{{Key: "team_leader_id", Value: 1}}),
	},
	models.CollectionInvitations: {
		named("idx_invitations_email_status", bson.D{{Key: "invitee_email", Value: 1}, {Key: "status", Value: 1}}),
		named("idx_invitations_team_created", bson.D{{Key: "team_id", Value: 1}, {Key: "created_at", Value: -1}}),
	},
	models.CollectionProjects: {
		named("idx_projects_members", bson.D{{Key: "members", Value: 1}}),
		named("idx_projects_creator", bson.D{{Key: "created_by", Value: 1}}),
		named("idx_projects_status_pastdue", bson.D{{Key: "status", Value: 1}, {Key: "past_due", Value: 1}}),
	},
	models.CollectionTasks: {
		named("idx_tasks_project", bson.D{{Key: "project_id", Value: 1}}),
		named("idx_tasks_assigned", bson.D{{Key: "assigned_to", Value: 1}, {Key: "status", Value: 1}}),
		named("idx_tasks_creator", bson.D{{Key: "created_by", Value: 1}}),
		named("idx_tasks_status_pastdue", bson.D{{Key: "status", Value: 1}, {Key: "past_due", Value: 1}}),
	},
	models.CollectionMeetings: {
		named("idx_meetings_organizer_start", bson.D{{Key: "organizer_id", Value: 1}, {Key: "start_time", Value: 1}}),
		named("idx_meetings_participants_start", bson.D{{Key: "participants", Value: 1}, {Key: "start_time", Value: 1}}),
	},
	models.CollectionAttendance: {
		unique("uniq_attendance_user_date", bson.D{{Key: "user_id", Value: 1}, {Key: "date", Value: 1}}),
		named("idx_attendance_team_date", bson.D{{Key: "team_id", Value: 1}, {Key: "date", Value: 1}}),
	},
	models.CollectionAttendanceInfo: {
		unique("uniq_attendance_info_user", bson.D{{Key: "user_id", Value: 1}}),
	},
	models.CollectionMessages: {
		named("idx_messages_room_created", bson.D{{Key: "room_type", Value: 1}, {Key: "room_id", Value: 1}, {Key: "created_at", Value: -1}}),
	},
	models.CollectionActivities: {
		named("idx_activities_team_time", bson.D{{Key: "team_id", Value: 1}, {Key: "timestamp", Value: -1}}),
	},
	models.CollectionAuditEvents: {
		named("idx_audit_time", bson.D{{Key: "timestamp", Value: -1}}),
		named("idx_audit_user_time", bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}}),
		named("idx_audit_team_time", bson.D{{Key: "team_id", Value: 1}, {Key: "timestamp", Value: -1}}),
	},
	models.CollectionOAuthStates: {
		unique("uniq_oauth_state", bson.D{{Key: "state", Value: 1}}),
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("ttl_oauth_expires").SetExpireAfterSeconds(0),
		},
	},
}

func named(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name)}
}

func unique(name string, keys bson.D) mongo.IndexModel {
	return mongo.IndexModel{Keys: keys, Options: options.Index().SetName(name).SetUnique(true)}
}

/* -------------------------------------------------------------------------- */
/* Reconcile a set of desired indexes for one collection                      */
/* -------------------------------------------------------------------------- */

type existingIndex struct {
	Name   string `bson:"name"`
	Key    bson.D `bson:"key"`
	Unique *bool  `bson:"unique,omitempty"`
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func boolVal(b *bool) bool { return b != nil && *b }

func listExisting(ctx context.Context, coll *mongo.Collection) (map[string]existingIndex, error) {
	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := map[string]existingIndex{}
	for cur.Next(ctx) {
		var idx existingIndex
		if err := cur.Decode(&idx); err != nil {
			zap.L().Warn("failed to decode existing index",
				zap.String("collection", coll.Name()),
				zap.Error(err))
			continue
		}
		out[keySig(idx.Key)] = idx
	}
	return out, cur.Err()
}

// ensureIndexSet creates missing indexes, reuses matching ones and drops and
// recreates indexes whose name or uniqueness differs.
func ensureIndexSet(ctx context.Context, coll *mongo.Collection, set []mongo.IndexModel) error {
	existing, err := listExisting(ctx, coll)
	if err != nil && !isNamespaceNotFound(err) {
		return err
	}

	var errs []string
	for _, m := range set {
		name := *m.Options.Name
		wantUnique := boolVal(m.Options.Unique)
		sig := keySig(m.Keys.(bson.D))
		start := time.Now()

		if ex, ok := existing[sig]; ok {
			if ex.Name == name && boolVal(ex.Unique) == wantUnique {
				zap.L().Debug("reusing existing index",
					zap.String("collection", coll.Name()),
					zap.String("name", name))
				continue
			}
			if _, err := coll.Indexes().DropOne(ctx, ex.Name); err != nil {
				errs = append(errs, fmt.Sprintf("%s: drop %s failed: %v", name, ex.Name, err))
				continue
			}
			zap.L().Info("dropped mismatched index",
				zap.String("collection", coll.Name()),
				zap.String("name", ex.Name),
				zap.String("keys", sig))
		}

		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isDuplicateKeyErr(err) && wantUnique {
				errs = append(errs, fmt.Sprintf("%s: cannot create unique index on (%s), duplicates present", name, sig))
				continue
			}
			errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		zap.L().Info("index created",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.Bool("unique", wantUnique),
			zap.Duration("took", time.Since(start)))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func isNamespaceNotFound(err error) bool {
	var ce mongo.CommandError
	return errors.As(err, &ce) && ce.Code == 26
}
