package chat

import (
	"context"
	"net/http"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/paging"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

const (
	defaultHistory = 50
	maxHistory     = 200
)

type historyPage struct {
	Messages []models.Message `json:"messages"`
	HasMore  bool             `json:"hasMore"`
}

type sendRequest struct {
	RoomType string `json:"roomType"`
	RoomID   string `json:"roomId"`
	Content  string `json:"content"`
}

type editRequest struct {
	Content string `json:"content"`
}

type roomRequest struct {
	RoomType string `json:"roomType"`
	RoomID   string `json:"roomId"`
}

// ServeHistory handles GET /chat/messages?roomType=&roomId=[&before=&limit=].
// Messages come back oldest first.
func (h *Handler) ServeHistory(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	limit := paging.Limit(r, "limit", defaultHistory, maxHistory)
	before, err := paging.Before(r, "before")
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	roomType := query.Get(r, "roomType")
	roomID, err := h.authorizeRoom(ctx, actor, roomType, query.Get(r, "roomId"))
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	rows, err := h.messages.History(ctx, roomType, roomID, before, int64(limit+1))
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	more := paging.TrimPage(&rows, limit)
	paging.Reverse(rows)
	apierror.OK(w, "Messages fetched successfully", historyPage{Messages: rows, HasMore: more})
}

// HandleSend handles POST /chat/messages.
func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	var req sendRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.send(ctx, actor, req.RoomType, req.RoomID, req.Content)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.Created(w, "Message sent", m)
}

// HandleEdit handles PUT /chat/messages/{id}.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	var req editRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.edit(ctx, actor, chi.URLParam(r, "id"), req.Content)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Message updated", m)
}

// HandleDelete handles DELETE /chat/messages/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.remove(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Message deleted", m)
}

// HandleRead handles PUT /chat/messages/read.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	actor, err := authz.Require(r)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	var req roomRequest
	if err := inputval.DecodeJSON(r, &req); err != nil {
		apierror.Write(w, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rr, err := h.markRead(ctx, actor, req.RoomType, req.RoomID)
	if err != nil {
		apierror.Write(w, h.Log, err)
		return
	}
	apierror.OK(w, "Messages marked as read", rr)
}
