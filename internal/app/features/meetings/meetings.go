package meetings

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/youlead/internal/app/store/activity"
	meetingstore "github.com/dalemusser/youlead/internal/app/store/meetings"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/mailer"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// meetingRequest is shared by create and update. On update, omitted fields
// keep their current values.
type meetingRequest struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Participants []string `json:"participants"`
	StartTime    *string  `json:"startTime"`
	EndTime      *string  `json:"endTime"`
	Link         *string  `json:"link"`
}

// apply validates req onto m.
func (req meetingRequest) apply(m *models.Meeting) error {
	var err error
	if req.Title != nil {
		if m.Title, err = inputval.Name("Title", *req.Title); err != nil {
			return err
		}
	}
	if req.Description != nil {
		if m.Description, err = inputval.Description(*req.Description); err != nil {
			return err
		}
	}
	if req.Participants != nil {
		ids, err := inputval.ObjectIDs("participant id", req.Participants)
		if err != nil {
			return err
		}
		// The organizer is implied.
		m.Participants = ids[:0]
		for _, id := range ids {
			if id != m.OrganizerID {
				m.Participants = append(m.Participants, id)
			}
		}
	}
	if req.StartTime != nil {
		if m.StartTime, err = inputval.Time("startTime", *req.StartTime); err != nil {
			return err
		}
	}
	if req.EndTime != nil {
		if m.EndTime, err = inputval.Time("endTime", *req.EndTime); err != nil {
			return err
		}
	}
	if req.Link != nil {
		if m.Link, err = inputval.Link(*req.Link); err != nil {
			return err
		}
	}

	if m.Title == "" {
		return apierror.BadRequest("Title is required")
	}
	if m.StartTime.IsZero() || m.EndTime.IsZero() {
		return apierror.BadRequest("startTime and endTime are required")
	}
	if !m.EndTime.After(m.StartTime) {
		return apierror.BadRequest("endTime must be after startTime")
	}
	return nil
}

func (h *Handler) checkParticipants(ctx context.Context, teamID primitive.ObjectID, ids []primitive.ObjectID) error {
	if len(ids) == 0 {
		return nil
	}
	n, err := h.users.CountInTeam(ctx, teamID, ids)
	if err != nil {
		return err
	}
	if n != int64(len(ids)) {
		return apierror.BadRequest("Participants must belong to your team")
	}
	return nil
}

// HandleCreate handles POST /meeting/create.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if !actor.HasTeam() {
		apierror.Write(w, h.Log, apierror.BadRequest("Join a team before scheduling meetings"))
		return
	}
	var req meetingRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	m := models.Meeting{OrganizerID: actor.ID, TeamID: actor.TeamID}
	if err := req.apply(&m); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := h.checkParticipants(ctx, actor.TeamID, m.Participants); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	m, err = h.meetings.Create(ctx, m)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.notify(ctx, actor, m, mailer.MeetingScheduledNotice)
	h.record(ctx, actor, m, activity.KindMeetingScheduled, "%s scheduled %s for %s",
		actor.Name, m.Title, m.StartTime.Format("2006-01-02 15:04 MST"))
	h.Log.Info("meeting scheduled", zap.String("meeting_id", m.ID.Hex()), zap.Int("participants", len(m.Participants)))
	apierror.Created(w, "Meeting scheduled successfully", m)
}

// ServeMine handles GET /meeting/my[?all=true].
func (h *Handler) ServeMine(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	from := h.now()
	if query.Get(r, "all") == "true" {
		from = time.Time{}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	list, err := h.meetings.ListForUser(ctx, actor.ID, from, time.Time{})
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Meetings fetched successfully", list)
}

// HandleUpdate handles PUT /meeting/update/{id}.
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	var req meetingRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := h.organized(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if m.Status != models.MeetingScheduled {
		apierror.Write(w, h.Log, errCancelled)
		return
	}
	if err := req.apply(m); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if err := h.checkParticipants(ctx, m.TeamID, m.Participants); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	updated, err := h.meetings.Update(ctx, *m)
	if errors.Is(err, meetingstore.ErrNotScheduled) {
		apierror.Write(w, h.Log, errCancelled)
		return
	}
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.notify(ctx, actor, *updated, mailer.MeetingUpdatedNotice)
	h.record(ctx, actor, *updated, activity.KindMeetingUpdated, "%s updated the meeting %s", actor.Name, updated.Title)
	apierror.OK(w, "Meeting updated successfully", updated)
}

// HandleCancel handles PUT /meeting/cancel/{id}.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.organized(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if err := h.meetings.Cancel(ctx, m.ID); err != nil {
		if errors.Is(err, meetingstore.ErrNotScheduled) {
			err = apierror.BadRequest("Meeting is already cancelled")
		}
		apierror.Write(w, h.Log, err)
		return
	}

	m.Status = models.MeetingCancelled
	h.notify(ctx, actor, *m, mailer.MeetingCancelledNotice)
	h.record(ctx, actor, *m, activity.KindMeetingCancelled, "%s cancelled the meeting %s", actor.Name, m.Title)
	apierror.OK(w, "Meeting cancelled", m)
}

// HandleDelete handles DELETE /meeting/delete/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.organized(ctx, r, actor)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	if err := h.meetings.Delete(ctx, m.ID); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	h.record(ctx, actor, *m, activity.KindMeetingDeleted, "%s deleted the meeting %s", actor.Name, m.Title)
	apierror.OK(w, "Meeting deleted successfully", nil)
}
