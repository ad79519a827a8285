package meetingstore_test

import (
	"errors"
	"testing"
	"time"

	meetingstore "github.com/dalemusser/youlead/internal/app/store/meetings"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/dalemusser/youlead/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestListForUser_Window(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := meetingstore.New(db)

	org, guest, stranger := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	now := time.Now().UTC()
	mk := func(title string, start time.Time) {
		_, err := s.Create(ctx, models.Meeting{
			Title: title, OrganizerID: org, Participants: []primitive.ObjectID{guest},
			StartTime: start, EndTime: start.Add(time.Hour),
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
	}
	mk("past", now.Add(-48*time.Hour))
	mk("soon", now.Add(2*time.Hour))
	mk("later", now.Add(72*time.Hour))

	tests := []struct {
		name     string
		user     primitive.ObjectID
		from, to time.Time
		want     int
	}{
		{"organizer upcoming", org, now, time.Time{}, 2},
		{"guest all", guest, time.Time{}, time.Time{}, 3},
		{"guest bounded", guest, now, now.Add(24 * time.Hour), 1},
		{"stranger", stranger, time.Time{}, time.Time{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListForUser(ctx, tt.user, tt.from, tt.to)
			if err != nil {
				t.Fatalf("ListForUser: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestCancelledCannotBeUpdated(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	s := meetingstore.New(db)

	start := time.Now().UTC().Add(time.Hour)
	m, _ := s.Create(ctx, models.Meeting{Title: "Sync", OrganizerID: primitive.NewObjectID(), StartTime: start, EndTime: start.Add(time.Hour)})
	if err := s.Cancel(ctx, m.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if err := s.Cancel(ctx, m.ID); !errors.Is(err, meetingstore.ErrNotScheduled) {
		t.Errorf("second cancel: %v", err)
	}
	m.Title = "Renamed"
	if _, err := s.Update(ctx, m); !errors.Is(err, meetingstore.ErrNotScheduled) {
		t.Errorf("update cancelled: %v", err)
	}
}
