// internal/app/features/meetings/handler.go
package meetings

import (
	"context"
	"net/http"
	"time"

	meetingstore "github.com/dalemusser/youlead/internal/app/store/meetings"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/activitylog"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/mailer"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Activity *activitylog.Recorder
	Notifier *mailer.Notifier
	meetings *meetingstore.Store
	users    *userstore.Store
	now      func() time.Time
}

func NewHandler(db *mongo.Database, activity *activitylog.Recorder, notifier *mailer.Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Log:      logger,
		Activity: activity,
		Notifier: notifier,
		meetings: meetingstore.New(db),
		users:    userstore.New(db),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

var errCancelled = apierror.BadRequest("Meeting has been cancelled")

// organized resolves {id} to a meeting the actor organizes.
func (h *Handler) organized(ctx context.Context, r *http.Request, actor authz.Actor) (*models.Meeting, error) {
	id, err := inputval.ObjectID("meeting id", chi.URLParam(r, "id"))
	if err != nil {
		return nil, err
	}
	m, err := h.meetings.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.OrganizerID != actor.ID {
		return nil, apierror.Forbidden("Only the organizer can do that")
	}
	return m, nil
}

// notify emails every participant about m. Lookup failures are logged; the
// meeting change itself already succeeded.
func (h *Handler) notify(ctx context.Context, actor authz.Actor, m models.Meeting, kind string) {
	if h.Notifier == nil || len(m.Participants) == 0 {
		return
	}
	people, err := h.users.ListByIDs(ctx, m.Participants)
	if err != nil {
		h.Log.Warn("meeting notice lookup failed", zap.Error(err), zap.String("meeting_id", m.ID.Hex()))
		return
	}
	emails := make([]mailer.Email, 0, len(people))
	for _, p := range people {
		emails = append(emails, mailer.BuildMeetingEmail(p.Email, mailer.MeetingEmailData{
			Kind:          kind,
			Title:         m.Title,
			OrganizerName: actor.Name,
			Start:         m.StartTime,
			End:           m.EndTime,
			Link:          m.Link,
		}))
	}
	h.Notifier.Notify(emails...)
}

func (h *Handler) record(ctx context.Context, actor authz.Actor, m models.Meeting, kind, format string, args ...any) {
	h.Activity.Record(ctx, activitylog.Entry{
		TeamID: m.TeamID, ActorID: actor.ID, ActorName: actor.Name,
		Kind: kind, EntityID: m.ID,
	}, format, args...)
}
