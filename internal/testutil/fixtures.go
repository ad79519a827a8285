package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active password user with the given role.
func (f *Fixtures) CreateUser(ctx context.Context, name, email, role string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		Name:       name,
		Email:      email,
		AuthMethod: models.AuthPassword,
		Role:       role,
		Status:     models.UserActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection(models.CollectionUsers).InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateLeader creates a team leader.
func (f *Fixtures) CreateLeader(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleTeamLeader)
}

// CreateMember creates a team member with no team.
func (f *Fixtures) CreateMember(ctx context.Context, name, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, name, email, models.RoleTeamMember)
}

// CreateTeam creates a team for leader and links the leader to it.
func (f *Fixtures) CreateTeam(ctx context.Context, name string, leader *models.User) models.Team {
	f.t.Helper()

	now := time.Now().UTC()
	team := models.Team{
		ID:           primitive.NewObjectID(),
		Name:         name,
		Organization: "Test Org",
		TeamLeaderID: leader.ID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection(models.CollectionTeams).InsertOne(ctx, team); err != nil {
		f.t.Fatalf("failed to create test team: %v", err)
	}
	f.JoinTeam(ctx, leader, team.ID)
	return team
}

// JoinTeam sets the user's team.
func (f *Fixtures) JoinTeam(ctx context.Context, u *models.User, teamID primitive.ObjectID) {
	f.t.Helper()

	_, err := f.db.Collection(models.CollectionUsers).UpdateOne(ctx,
		bson.M{"_id": u.ID}, bson.M{"$set": bson.M{"team_id": teamID}})
	if err != nil {
		f.t.Fatalf("failed to join team: %v", err)
	}
	u.TeamID = &teamID
}

// CreateProject inserts a pending project with a deadline a week out.
// Member counters are not touched; tests that care use the services.
func (f *Fixtures) CreateProject(ctx context.Context, name string, creator models.User, members ...primitive.ObjectID) models.Project {
	f.t.Helper()

	now := time.Now().UTC()
	if members == nil {
		members = []primitive.ObjectID{}
	}
	p := models.Project{
		ID:        primitive.NewObjectID(),
		Name:      name,
		Status:    models.StatusPending,
		Members:   members,
		Deadline:  []time.Time{now.Add(7 * 24 * time.Hour).Truncate(time.Millisecond)},
		CreatedBy: creator.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if creator.TeamID != nil {
		p.TeamID = *creator.TeamID
	}
	if _, err := f.db.Collection(models.CollectionProjects).InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create test project: %v", err)
	}
	return p
}

// CreateTask inserts a pending task under project.
func (f *Fixtures) CreateTask(ctx context.Context, name string, project models.Project, assignees ...primitive.ObjectID) models.Task {
	f.t.Helper()

	now := time.Now().UTC()
	if assignees == nil {
		assignees = []primitive.ObjectID{}
	}
	task := models.Task{
		ID:         primitive.NewObjectID(),
		ProjectID:  project.ID,
		Name:       name,
		Status:     models.StatusPending,
		Priority:   models.PriorityMedium,
		AssignedTo: assignees,
		Deadline:   []time.Time{now.Add(3 * 24 * time.Hour).Truncate(time.Millisecond)},
		CreatedBy:  project.CreatedBy,
		TeamID:     project.TeamID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection(models.CollectionTasks).InsertOne(ctx, task); err != nil {
		f.t.Fatalf("failed to create test task: %v", err)
	}
	return task
}

// LoadUser re-reads a user so tests can check counters.
func (f *Fixtures) LoadUser(ctx context.Context, id primitive.ObjectID) models.User {
	f.t.Helper()

	var u models.User
	if err := f.db.Collection(models.CollectionUsers).FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		f.t.Fatalf("failed to load user: %v", err)
	}
	return u
}
