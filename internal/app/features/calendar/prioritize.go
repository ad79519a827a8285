package calendar

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/dalemusser/waffle/pantry/sse"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/prioritizer"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	noTasksMessage = "You have no pending tasks. Nothing to prioritize."
	doneData       = "[DONE]"
)

// StreamPrioritization handles GET /calendar/task-prioritization. Chunks are
// sent as data events and the stream ends with a "done" event. Failures
// before the first chunk use the normal error envelope; later failures are
// sent as an "error" event.
func (h *Handler) StreamPrioritization(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Stream())
	defer cancel()

	inputs, err := h.pendingInputs(ctx, actor.ID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	// The SSE stream is opened lazily; NewStream only sets headers, so
	// anything that fails before the first send still gets the envelope.
	var out *sse.Stream
	open := func() bool {
		if out != nil {
			return true
		}
		s, err := sse.NewStream(w, r)
		if err != nil {
			apierror.Write(w, h.Log, err)
			return false
		}
		out = s
		return true
	}
	defer func() {
		if out != nil {
			out.Close()
		}
	}()

	if len(inputs) == 0 {
		if open() {
			_ = out.SendData(noTasksMessage)
			_ = out.SendEvent("done", doneData)
		}
		return
	}

	res, err := h.AI.Prioritize(ctx, h.now(), inputs)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	defer res.Close()

	chunks := 0
	for {
		chunk, err := res.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			if out == nil {
				apierror.Write(w, h.Log, err)
				return
			}
			h.Log.Warn("prioritization stream failed",
				zap.Error(err),
				zap.String("user_id", actor.ID.Hex()),
				zap.Int("chunks", chunks))
			_ = out.SendEvent("error", apierror.Classify(err).Message)
			return
		}
		if chunk == "" {
			continue
		}
		if !open() {
			return
		}
		if err := out.SendData(chunk); err != nil {
			// Client went away.
			return
		}
		chunks++
	}
	if !open() {
		return
	}
	_ = out.SendEvent("done", doneData)
	h.Log.Debug("prioritization streamed", zap.String("user_id", actor.ID.Hex()), zap.Int("chunks", chunks))
}

// pendingInputs loads the user's pending tasks with their project names.
func (h *Handler) pendingInputs(ctx context.Context, userID primitive.ObjectID) ([]prioritizer.TaskInput, error) {
	tasks, err := h.tasks.ListPendingAssigned(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(tasks) == 0 {
		return nil, nil
	}
	projects, err := h.projects.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make(map[primitive.ObjectID]string, len(projects))
	for _, p := range projects {
		names[p.ID] = p.Name
	}

	out := make([]prioritizer.TaskInput, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toInput(t, names[t.ProjectID]))
	}
	return out, nil
}

func toInput(t models.Task, project string) prioritizer.TaskInput {
	return prioritizer.TaskInput{
		Name:        t.Name,
		Description: t.Description,
		Project:     project,
		Priority:    t.Priority,
		Progress:    t.Progress,
		Deadline:    t.CurrentDeadline(),
		PastDue:     t.PastDue,
	}
}
