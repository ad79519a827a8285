package chat

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/realtime"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type onlineMember struct {
	ID   primitive.ObjectID `json:"id"`
	Name string             `json:"name"`
}

// ServeWS handles GET /chat/ws.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		apierror.Write(w, h.Log, apierror.Unauthorized("Please sign in"))
		return
	}
	if h.Hub == nil {
		apierror.Write(w, h.Log, errHubOffline)
		return
	}
	h.Hub.Serve(w, r, *u)
}

// ServeOnline handles GET /chat/online: the caller's team members with a
// live connection.
func (h *Handler) ServeOnline(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	out := []onlineMember{}
	if !actor.HasTeam() || h.Hub == nil {
		apierror.OK(w, "Online members fetched successfully", out)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	members, err := h.users.ListTeamMembers(ctx, actor.TeamID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID.Hex()
	}
	online, err := h.Hub.Presence().Online(ctx, ids)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	set := make(map[string]bool, len(online))
	for _, id := range online {
		set[id] = true
	}
	for _, m := range members {
		if set[m.ID.Hex()] {
			out = append(out, onlineMember{ID: m.ID, Name: m.Name})
		}
	}
	apierror.OK(w, "Online members fetched successfully", out)
}

// JoinRoom implements realtime.Dispatcher.
func (h *Handler) JoinRoom(ctx context.Context, user auth.SessionUser, roomType, roomID string) (string, error) {
	actor, ok := authz.FromSessionUser(user)
	if !ok {
		return "", apierror.Unauthorized("Please sign in")
	}
	id, err := h.authorizeRoom(ctx, actor, roomType, roomID)
	if err != nil {
		return "", err
	}
	return models.RoomKey(roomType, id), nil
}

// Dispatch implements realtime.Dispatcher for send, edit, delete and read.
func (h *Handler) Dispatch(ctx context.Context, user auth.SessionUser, event string, data json.RawMessage) (any, error) {
	actor, ok := authz.FromSessionUser(user)
	if !ok {
		return nil, apierror.Unauthorized("Please sign in")
	}
	var req struct {
		ID       string `json:"id"`
		RoomType string `json:"roomType"`
		RoomID   string `json:"roomId"`
		Content  string `json:"content"`
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, apierror.BadRequest("Invalid event payload")
		}
	}

	switch event {
	case realtime.EventSend:
		return h.send(ctx, actor, req.RoomType, req.RoomID, req.Content)
	case realtime.EventEdit:
		return h.edit(ctx, actor, req.ID, req.Content)
	case realtime.EventDelete:
		m, err := h.remove(ctx, actor, req.ID)
		if err != nil {
			return nil, err
		}
		return map[string]string{"id": m.ID.Hex()}, nil
	case realtime.EventRead:
		return h.markRead(ctx, actor, req.RoomType, req.RoomID)
	}
	return nil, apierror.Badf("Unknown event %q", event)
}
