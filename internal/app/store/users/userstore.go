package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/youlead/internal/app/system/normalize"
	"github.com/dalemusser/youlead/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	// ErrDuplicateEmail is returned when creating a user whose email exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	// ErrAlreadyInTeam is returned by JoinTeam when the user has a team.
	ErrAlreadyInTeam = errors.New("user already belongs to a team")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection(models.CollectionUsers)}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByEmail looks up a user by folded email. Returns mongo.ErrNoDocuments if not found.
func (s *Store) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": normalize.Email(email)}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByGoogleID looks up a user linked to a Google account.
func (s *Store) GetByGoogleID(ctx context.Context, googleID string) (*models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"google_id": googleID}).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Create inserts a new user. Name and email are normalized, status defaults
// to active and both counter blocks start at zero.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	u.Name = normalize.Name(u.Name)
	u.Email = normalize.Email(u.Email)
	if u.Status == "" {
		u.Status = models.UserActive
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// EmailExists reports whether any user (active or not) has the email.
func (s *Store) EmailExists(ctx context.Context, email string) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{"email": normalize.Email(email)}, options.Count().SetLimit(1))
	return n > 0, err
}

// ListByIDs returns the active users among ids.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}, "status": models.UserActive})
}

// ListTeamMembers returns the active users of a team, sorted by name.
func (s *Store) ListTeamMembers(ctx context.Context, teamID primitive.ObjectID) ([]models.User, error) {
	return s.find(ctx, bson.M{"team_id": teamID, "status": models.UserActive},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
}

// CountInTeam counts how many of ids are active members of teamID.
func (s *Store) CountInTeam(ctx context.Context, teamID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	return s.c.CountDocuments(ctx, bson.M{
		"_id":     bson.M{"$in": ids},
		"team_id": teamID,
		"status":  models.UserActive,
	})
}

func (s *Store) find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.User, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []models.User{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// JoinTeam sets team_id only if the user has none; ErrAlreadyInTeam otherwise.
func (s *Store) JoinTeam(ctx context.Context, userID, teamID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "$or": bson.A{
			bson.M{"team_id": bson.M{"$exists": false}},
			bson.M{"team_id": nil},
		}},
		bson.M{"$set": bson.M{"team_id": teamID, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrAlreadyInTeam
	}
	return nil
}

// LeaveTeam clears team_id if the user is on teamID. It reports whether the
// user was on that team.
func (s *Store) LeaveTeam(ctx context.Context, userID, teamID primitive.ObjectID) (bool, error) {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": userID, "team_id": teamID},
		bson.M{
			"$unset": bson.M{"team_id": ""},
			"$set":   bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

// SetAttendanceInfo links the user's attendance summary document.
func (s *Store) SetAttendanceInfo(ctx context.Context, userID, infoID primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$set": bson.M{"attendance_info_id": infoID}})
	return err
}

// SetStatus marks a user active or inactive.
func (s *Store) SetStatus(ctx context.Context, userID primitive.ObjectID, status string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// SetRole changes a user's role.
func (s *Store) SetRole(ctx context.Context, userID primitive.ObjectID, role string) error {
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": userID},
		bson.M{"$set": bson.M{"role": role, "updated_at": time.Now().UTC()}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// LinkGoogle records the Google subject and picture on an existing user.
func (s *Store) LinkGoogle(ctx context.Context, userID primitive.ObjectID, googleID, picture string) error {
	set := bson.M{"google_id": googleID, "updated_at": time.Now().UTC()}
	if picture != "" {
		set["picture"] = picture
	}
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": set})
	return err
}
