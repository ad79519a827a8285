// internal/app/system/validators/validators.go
package validators

import (
	"context"
	"errors"
	"strings"

	"github.com/dalemusser/youlead/internal/domain/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// EnsureAll creates every collection the app owns and attaches JSON-Schema
// validators where one is defined. Servers without collMod support are
// logged and skipped.
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	schemas := map[string]bson.M{
		models.CollectionUsers:       usersSchema(),
		models.CollectionTeams:       teamsSchema(),
		models.CollectionInvitations: invitationsSchema(),
		models.CollectionProjects:    workItemSchema(nil),
		models.CollectionTasks:       workItemSchema(tasksExtra()),
		models.CollectionMeetings:    meetingsSchema(),
		models.CollectionAttendance:  attendanceSchema(),
		models.CollectionMessages:    messagesSchema(),
	}

	for _, coll := range models.Collections {
		if _, err := ensureCollection(ctx, db, coll); err != nil {
			problems = append(problems, coll+": "+err.Error())
			continue
		}
		schema, ok := schemas[coll]
		if !ok {
			continue
		}
		if err := setValidator(ctx, db, coll, schema); err != nil {
			if isNoSuchCommand(err) || isNotImplemented(err) {
				zap.L().Info("validator skipped (unsupported)", zap.String("collection", coll))
				continue
			}
			problems = append(problems, coll+": "+err.Error())
		}
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

/* ---------------------- collection helpers & logging ---------------------- */

// collectionExists returns true when <name> already exists.
// Uses ListCollectionNames to avoid "created collection" log when it didn't.
func collectionExists(ctx context.Context, db *mongo.Database, name string) (bool, error) {
	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == name {
			return true, nil
		}
	}
	return false, nil
}

// ensureCollection idempotently makes sure <name> exists.
// Returns created==true only if we actually created it.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) (created bool, err error) {
	exists, listErr := collectionExists(ctx, db, name)
	if listErr == nil && exists {
		zap.L().Info("collection exists", zap.String("collection", name))
		return false, nil
	}
	// If listing failed, fall back to create-and-handle-race.
	if err := db.CreateCollection(ctx, name); err != nil {
		// NamespaceExists / already exists is fine (race or prior run).
		if isNamespaceExistsErr(err) {
			zap.L().Info("collection exists", zap.String("collection", name))
			return false, nil
		}
		zap.L().Warn("createCollection failed", zap.String("collection", name), zap.Error(err))
		return false, err
	}
	zap.L().Info("created collection", zap.String("collection", name))
	return true, nil
}

/* ------------------------------ validators ------------------------------- */

func setValidator(ctx context.Context, db *mongo.Database, name string, validator bson.M) error {
	cmd := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
		{Key: "validationLevel", Value: "moderate"},
		{Key: "validationAction", Value: "error"},
	}
	var out bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return err
	}
	zap.L().Info("validator ensured", zap.String("collection", name))
	return nil
}

/* ------------------------- error helpers ------------------------- */

func isNamespaceExistsErr(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 48 || strings.Contains(strings.ToLower(ce.Message), "already exists")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "already exists") || strings.Contains(s, "namespace exists")
}

func isNoSuchCommand(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 59 || strings.Contains(strings.ToLower(ce.Message), "no such command")) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "no such command")
}

func isNotImplemented(err error) bool {
	if err == nil {
		return false
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (ce.Code == 115 ||
		strings.Contains(strings.ToLower(ce.Message), "not implemented") ||
		strings.Contains(strings.ToLower(ce.Message), "not supported")) {
		return true
	}
	s := strings.ToLower(err.Error())
	return strings.Contains(s, "not implemented") || strings.Contains(s, "not supported")
}

/* ------------------------- JSON-Schema docs ---------------------- */

var (
	nonBlank  = bson.M{"bsonType": "string", "minLength": 1, "pattern": ".*\\S.*"}
	objectID  = bson.M{"bsonType": "objectId"}
	idArray   = bson.M{"bsonType": bson.A{"array", "null"}, "items": bson.M{"bsonType": "objectId"}}
	timestamp = bson.M{"bsonType": "date"}
)

func usersSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "email", "role", "status", "auth_method"},
			"properties": bson.M{
				"name":        nonBlank,
				"email":       nonBlank,
				"role":        bson.M{"enum": bson.A{models.RoleAdmin, models.RoleTeamLeader, models.RoleTeamMember}},
				"status":      bson.M{"enum": bson.A{models.UserActive, models.UserInactive}},
				"auth_method": bson.M{"enum": bson.A{models.AuthPassword, models.AuthGoogle}},
				"team_id":     bson.M{"bsonType": bson.A{"objectId", "null"}},
			},
		},
	}
}

func teamsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"name", "team_leader_id"},
			"properties": bson.M{
				"name":           nonBlank,
				"organization":   bson.M{"bsonType": "string"},
				"team_leader_id": objectID,
			},
		},
	}
}

func invitationsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"team_id", "invitee_email", "status"},
			"properties": bson.M{
				"team_id":       objectID,
				"invited_by":    objectID,
				"invitee_email": nonBlank,
				"status":        bson.M{"enum": bson.A{models.InvitationPending, models.InvitationAccepted, models.InvitationRejected}},
				"invitee_left":  bson.M{"bsonType": "bool"},
			},
		},
	}
}

// workItemSchema covers the shape shared by projects and tasks.
func workItemSchema(extra bson.M) bson.M {
	props := bson.M{
		"name":       nonBlank,
		"status":     bson.M{"enum": bson.A{models.StatusPending, models.StatusCompleted}},
		"members":    idArray,
		"deadline":   bson.M{"bsonType": "array", "minItems": 1, "items": timestamp},
		"past_due":   bson.M{"bsonType": "bool"},
		"created_by": objectID,
		"team_id":    objectID,
	}
	for k, v := range extra {
		props[k] = v
	}
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType":   "object",
			"required":   bson.A{"name", "status", "deadline", "created_by", "team_id"},
			"properties": props,
		},
	}
}

func tasksExtra() bson.M {
	return bson.M{
		"project_id":  objectID,
		"assigned_to": idArray,
		"priority":    bson.M{"enum": bson.A{models.PriorityLow, models.PriorityMedium, models.PriorityHigh}},
		"progress":    bson.M{"bsonType": bson.A{"int", "long"}, "minimum": 0, "maximum": 100},
	}
}

func meetingsSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"title", "organizer_id", "start_time", "end_time", "status"},
			"properties": bson.M{
				"title":        nonBlank,
				"organizer_id": objectID,
				"participants": idArray,
				"start_time":   timestamp,
				"end_time":     timestamp,
				"status":       bson.M{"enum": bson.A{models.MeetingScheduled, models.MeetingCancelled}},
			},
		},
	}
}

func attendanceSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"user_id", "date", "status"},
			"properties": bson.M{
				"user_id": objectID,
				"date":    bson.M{"bsonType": "string", "pattern": "^\\d{4}-\\d{2}-\\d{2}$"},
				"status":  bson.M{"enum": bson.A{models.AttendancePresent, models.AttendanceLate}},
			},
		},
	}
}

func messagesSchema() bson.M {
	return bson.M{
		"$jsonSchema": bson.M{
			"bsonType": "object",
			"required": bson.A{"room_type", "room_id", "sender_id"},
			"properties": bson.M{
				"room_type": bson.M{"enum": bson.A{models.RoomProject, models.RoomTask}},
				"room_id":   objectID,
				"sender_id": objectID,
				"content":   bson.M{"bsonType": "string", "maxLength": 4000},
			},
		},
	}
}
