package chat

import (
	"context"
	"errors"
	"unicode/utf8"

	messagestore "github.com/dalemusser/youlead/internal/app/store/messages"
	"github.com/dalemusser/youlead/internal/app/system/authz"
	"github.com/dalemusser/youlead/internal/app/system/htmlsanitize"
	"github.com/dalemusser/youlead/internal/app/system/inputval"
	"github.com/dalemusser/youlead/internal/app/system/realtime"
	"github.com/dalemusser/youlead/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// readReceipt is broadcast when a user reads a room.
type readReceipt struct {
	RoomType string `json:"roomType"`
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	Count    int64  `json:"count"`
}

// authorizeRoom parses the room and checks the actor may use it: project
// rooms are open to members and the creator, task rooms to assignees and
// the creator.
func (h *Handler) authorizeRoom(ctx context.Context, actor authz.Actor, roomType, roomIDHex string) (primitive.ObjectID, error) {
	if roomType != models.RoomProject && roomType != models.RoomTask {
		return primitive.NilObjectID, errRoomType
	}
	roomID, err := inputval.ObjectID("roomId", roomIDHex)
	if err != nil {
		return primitive.NilObjectID, err
	}

	var allowed bool
	switch roomType {
	case models.RoomProject:
		p, err := h.projects.GetByID(ctx, roomID)
		if err != nil {
			return primitive.NilObjectID, err
		}
		allowed = p.CanView(actor.ID)
	case models.RoomTask:
		t, err := h.tasks.GetByID(ctx, roomID)
		if err != nil {
			return primitive.NilObjectID, err
		}
		allowed = t.CreatedBy == actor.ID || t.IsAssigned(actor.ID)
	}
	if !allowed {
		return primitive.NilObjectID, errNoAccess
	}
	return roomID, nil
}

func cleanContent(s string) (string, error) {
	s = htmlsanitize.PlainText(s)
	if s == "" {
		return "", errEmptyContent
	}
	if utf8.RuneCountInString(s) > MaxContentLen {
		return "", errContentTooBig
	}
	return s, nil
}

func (h *Handler) send(ctx context.Context, actor authz.Actor, roomType, roomIDHex, content string) (*models.Message, error) {
	roomID, err := h.authorizeRoom(ctx, actor, roomType, roomIDHex)
	if err != nil {
		return nil, err
	}
	content, err = cleanContent(content)
	if err != nil {
		return nil, err
	}
	m, err := h.messages.Create(ctx, models.Message{
		RoomType:   roomType,
		RoomID:     roomID,
		SenderID:   actor.ID,
		SenderName: actor.Name,
		Content:    content,
	})
	if err != nil {
		return nil, err
	}
	h.broadcast(models.RoomKey(m.RoomType, m.RoomID), realtime.EventMessage, m)
	return &m, nil
}

func (h *Handler) edit(ctx context.Context, actor authz.Actor, idHex, content string) (*models.Message, error) {
	id, err := inputval.ObjectID("id", idHex)
	if err != nil {
		return nil, err
	}
	content, err = cleanContent(content)
	if err != nil {
		return nil, err
	}
	m, err := h.messages.Edit(ctx, id, actor.ID, content)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	h.broadcast(models.RoomKey(m.RoomType, m.RoomID), realtime.EventMessageEdited, m)
	return m, nil
}

func (h *Handler) remove(ctx context.Context, actor authz.Actor, idHex string) (*models.Message, error) {
	id, err := inputval.ObjectID("id", idHex)
	if err != nil {
		return nil, err
	}
	m, err := h.messages.SoftDelete(ctx, id, actor.ID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	h.broadcast(models.RoomKey(m.RoomType, m.RoomID), realtime.EventMessageDeleted,
		map[string]string{"id": m.ID.Hex(), "roomType": m.RoomType, "roomId": m.RoomID.Hex()})
	return m, nil
}

func (h *Handler) markRead(ctx context.Context, actor authz.Actor, roomType, roomIDHex string) (readReceipt, error) {
	roomID, err := h.authorizeRoom(ctx, actor, roomType, roomIDHex)
	if err != nil {
		return readReceipt{}, err
	}
	n, err := h.messages.MarkRead(ctx, roomType, roomID, actor.ID)
	if err != nil {
		return readReceipt{}, err
	}
	rr := readReceipt{RoomType: roomType, RoomID: roomID.Hex(), UserID: actor.ID.Hex(), Count: n}
	if n > 0 {
		h.broadcast(models.RoomKey(roomType, roomID), realtime.EventMessagesRead, rr)
	}
	return rr, nil
}

func mapStoreErr(err error) error {
	if errors.Is(err, messagestore.ErrNotEditable) {
		return errNotSender
	}
	return err
}
