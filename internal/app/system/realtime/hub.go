// Package realtime relays chat events over websockets. Connections join
// rooms (one per project or task chat, plus one per team for presence);
// mutations go through a Dispatcher so the socket and REST paths share the
// same service code.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/auth"
	"github.com/dalemusser/youlead/internal/app/system/presence"
	"github.com/dalemusser/youlead/internal/domain/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	writeWait      = 10 * time.Second
	sendBufferSize = 64
	readLimit      = 32 << 10
)

var pingPeriod = 30 * time.Second

// Inbound and outbound event names.
const (
	EventSetup           = "setup"
	EventOnline          = "online"
	EventOffline         = "offline"
	EventJoinProjectRoom = "joinProjectRoom"
	EventJoinTaskRoom    = "joinTaskRoom"
	EventSend            = "send"
	EventEdit            = "edit"
	EventDelete          = "delete"
	EventRead            = "read"

	EventConnected      = "connected"
	EventJoined         = "joined"
	EventMessage        = "message"
	EventMessageEdited  = "messageEdited"
	EventMessageDeleted = "messageDeleted"
	EventMessagesRead   = "messagesRead"
	EventRemoved        = "removed"
	EventError          = "error"
)

// Frame is the JSON shape of every websocket message.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outFrame struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

// Dispatcher authorizes room joins and handles chat mutations. Dispatch
// returns the payload acknowledged to the sender; broadcasting is the
// dispatcher's job.
type Dispatcher interface {
	JoinRoom(ctx context.Context, user auth.SessionUser, roomType string, roomID string) (room string, err error)
	Dispatch(ctx context.Context, user auth.SessionUser, event string, data json.RawMessage) (any, error)
}

// Hub owns every live connection and room membership.
type Hub struct {
	log        *zap.Logger
	presence   presence.Store
	dispatcher Dispatcher
	origins    []string

	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
	closed  bool
}

// NewHub creates a hub. origins are the allowed Origin patterns for the
// upgrade (see websocket.AcceptOptions.OriginPatterns).
func NewHub(p presence.Store, logger *zap.Logger, origins ...string) *Hub {
	if p == nil {
		p = presence.NewMemory()
	}
	return &Hub{
		log:      logger,
		presence: p,
		origins:  origins,
		clients:  make(map[string]*Client),
		rooms:    make(map[string]map[string]*Client),
	}
}

// SetDispatcher wires the chat service. It must be called before Serve.
func (h *Hub) SetDispatcher(d Dispatcher) { h.dispatcher = d }

// Presence exposes the presence store for "who is online" queries.
func (h *Hub) Presence() presence.Store { return h.presence }

// TeamRoom is the room every connection of a team joins for presence events.
func TeamRoom(teamID string) string { return "team:" + teamID }

// Serve upgrades the request and runs the connection until it closes.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, user auth.SessionUser) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.origins})
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	conn.SetReadLimit(readLimit)

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		ID:     uuid.NewString(),
		User:   user,
		hub:    h,
		conn:   conn,
		send:   make(chan outFrame, sendBufferSize),
		rooms:  make(map[string]struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
	if !h.register(c) {
		cancel()
		conn.Close(websocket.StatusGoingAway, "server shutting down")
		return
	}
	if user.TeamID != "" {
		h.Join(c, TeamRoom(user.TeamID))
	}
	c.Send(EventConnected, map[string]string{"connectionId": c.ID, "userId": user.ID})

	go c.writePump()
	go c.pingPump()
	c.readPump()

	h.unregister(c)
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.ID] = c
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c.ID)
	for room := range c.rooms {
		h.leaveLocked(c, room)
	}
	h.mu.Unlock()

	c.cancel()
	h.goOffline(c)
}

// Join adds c to room.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Client)
		h.rooms[room] = members
	}
	members[c.ID] = c
	c.rooms[room] = struct{}{}
}

func (h *Hub) leaveLocked(c *Client, room string) {
	if members, ok := h.rooms[room]; ok {
		delete(members, c.ID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(c.rooms, room)
}

type eviction struct {
	c    *Client
	room string
}

// Evict removes every connection of userID from each of rooms and sends
// each one a "removed" frame. It returns how many connections left a room.
// A nil hub evicts nothing.
func (h *Hub) Evict(userID string, rooms ...string) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	var out []eviction
	for _, c := range h.clients {
		if c.User.ID != userID {
			continue
		}
		for _, room := range rooms {
			if _, ok := c.rooms[room]; ok {
				h.leaveLocked(c, room)
				out = append(out, eviction{c, room})
			}
		}
	}
	h.mu.Unlock()
	return h.notifyRemoved(out)
}

// EvictAll removes every connection of userID from every room it is in.
func (h *Hub) EvictAll(userID string) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	var out []eviction
	for _, c := range h.clients {
		if c.User.ID != userID {
			continue
		}
		for room := range c.rooms {
			h.leaveLocked(c, room)
			out = append(out, eviction{c, room})
		}
	}
	h.mu.Unlock()
	return h.notifyRemoved(out)
}

// CloseRoom removes every connection from room.
func (h *Hub) CloseRoom(room string) int {
	if h == nil {
		return 0
	}
	h.mu.Lock()
	var out []eviction
	for _, c := range h.rooms[room] {
		out = append(out, eviction{c, room})
	}
	for _, e := range out {
		h.leaveLocked(e.c, room)
	}
	h.mu.Unlock()
	return h.notifyRemoved(out)
}

func (h *Hub) notifyRemoved(out []eviction) int {
	for _, e := range out {
		e.c.Send(EventRemoved, map[string]string{"room": e.room})
	}
	if len(out) > 0 {
		h.log.Debug("websocket connections removed from rooms", zap.Int("count", len(out)))
	}
	return len(out)
}

// Broadcast queues event to every connection in room.
func (h *Hub) Broadcast(room, event string, data any) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.Send(event, data)
	}
}

// RoomSize reports how many connections are in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// ConnectionCount reports how many connections are live.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutting down")
		c.cancel()
	}
}

func (h *Hub) goOnline(c *Client) {
	c.mu.Lock()
	if c.online {
		c.mu.Unlock()
		return
	}
	c.online = true
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	first, err := h.presence.Add(ctx, c.User.ID, c.ID)
	if err != nil {
		h.log.Warn("presence add failed", zap.String("user_id", c.User.ID), zap.Error(err))
		return
	}
	if first && c.User.TeamID != "" {
		h.Broadcast(TeamRoom(c.User.TeamID), EventOnline, map[string]string{"userId": c.User.ID})
	}
}

func (h *Hub) goOffline(c *Client) {
	c.mu.Lock()
	if !c.online {
		c.mu.Unlock()
		return
	}
	c.online = false
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	last, err := h.presence.Remove(ctx, c.User.ID, c.ID)
	if err != nil {
		h.log.Warn("presence remove failed", zap.String("user_id", c.User.ID), zap.Error(err))
		return
	}
	if last && c.User.TeamID != "" {
		h.Broadcast(TeamRoom(c.User.TeamID), EventOffline, map[string]string{"userId": c.User.ID})
	}
}

// handle routes one inbound frame.
func (h *Hub) handle(c *Client, f Frame) {
	switch f.Event {
	case EventSetup:
		h.goOnline(c)
		c.Send(EventConnected, map[string]string{"connectionId": c.ID, "userId": c.User.ID})
	case EventOnline:
		h.goOnline(c)
	case EventOffline:
		h.goOffline(c)
	case EventJoinProjectRoom, EventJoinTaskRoom:
		h.join(c, f)
	case EventSend, EventEdit, EventDelete, EventRead:
		if h.dispatcher == nil {
			c.sendError(f.Event, apierror.Internal("Chat is unavailable"))
			return
		}
		ctx, cancel := context.WithTimeout(c.ctx, writeWait)
		defer cancel()
		ack, err := h.dispatcher.Dispatch(ctx, c.User, f.Event, f.Data)
		if err != nil {
			c.sendError(f.Event, err)
			return
		}
		if ack != nil {
			c.Send(f.Event+"Ack", ack)
		}
	default:
		c.sendError(f.Event, apierror.Badf("Unknown event %q", f.Event))
	}
}

func (h *Hub) join(c *Client, f Frame) {
	var req struct {
		RoomID string `json:"roomId"`
	}
	if err := json.Unmarshal(f.Data, &req); err != nil || req.RoomID == "" {
		c.sendError(f.Event, apierror.BadRequest("roomId is required"))
		return
	}
	if h.dispatcher == nil {
		c.sendError(f.Event, apierror.Internal("Chat is unavailable"))
		return
	}
	roomType := models.RoomProject
	if f.Event == EventJoinTaskRoom {
		roomType = models.RoomTask
	}

	ctx, cancel := context.WithTimeout(c.ctx, writeWait)
	defer cancel()
	room, err := h.dispatcher.JoinRoom(ctx, c.User, roomType, req.RoomID)
	if err != nil {
		c.sendError(f.Event, err)
		return
	}
	h.Join(c, room)
	c.Send(EventJoined, map[string]string{"room": room})
}

// Client is one websocket connection.
type Client struct {
	ID   string
	User auth.SessionUser

	hub    *Hub
	conn   *websocket.Conn
	send   chan outFrame
	rooms  map[string]struct{} // guarded by hub.mu
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	online bool
}

// Send queues a frame. A client whose buffer is full is too slow to keep
// up and gets disconnected.
func (c *Client) Send(event string, data any) {
	select {
	case <-c.ctx.Done():
		return
	default:
	}
	select {
	case c.send <- outFrame{Event: event, Data: data}:
	default:
		c.hub.log.Warn("dropping slow websocket client",
			zap.String("conn_id", c.ID), zap.String("user_id", c.User.ID))
		c.conn.Close(websocket.StatusPolicyViolation, "too slow")
		c.cancel()
	}
}

func (c *Client) sendError(event string, err error) {
	e := apierror.Classify(err)
	if e.StatusCode >= http.StatusInternalServerError {
		c.hub.log.Error("websocket event failed", zap.String("event", event), zap.Error(err))
	}
	c.Send(EventError, map[string]any{
		"event":      event,
		"message":    e.Message,
		"statusCode": e.StatusCode,
	})
}

func (c *Client) readPump() {
	defer func() {
		c.cancel()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var f Frame
		if err := wsjson.Read(c.ctx, c.conn, &f); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && !errors.Is(err, context.Canceled) {
				c.hub.log.Debug("websocket read ended", zap.String("conn_id", c.ID), zap.Error(err))
			}
			return
		}
		c.hub.handle(c, f)
	}
}

func (c *Client) writePump() {
	for {
		select {
		case f := <-c.send:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := wsjson.Write(ctx, c.conn, f)
			cancel()
			if err != nil {
				c.cancel()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}

// refresher is implemented by presence stores whose entries expire.
type refresher interface {
	Refresh(ctx context.Context, userID string) error
}

func (c *Client) pingPump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.ctx, writeWait)
			err := c.conn.Ping(ctx)
			if err == nil {
				if r, ok := c.hub.presence.(refresher); ok {
					if rerr := r.Refresh(ctx, c.User.ID); rerr != nil {
						c.hub.log.Debug("presence refresh failed",
							zap.String("user_id", c.User.ID), zap.Error(rerr))
					}
				}
			}
			cancel()
			if err != nil {
				c.cancel()
				return
			}
		case <-c.ctx.Done():
			return
		}
	}
}
