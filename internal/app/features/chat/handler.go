// internal/app/features/chat/handler.go
package chat

import (
	"net/http"

	messagestore "github.com/dalemusser/youlead/internal/app/store/messages"
	projectstore "github.com/dalemusser/youlead/internal/app/store/projects"
	taskstore "github.com/dalemusser/youlead/internal/app/store/tasks"
	userstore "github.com/dalemusser/youlead/internal/app/store/users"
	"github.com/dalemusser/youlead/internal/app/system/apierror"
	"github.com/dalemusser/youlead/internal/app/system/realtime"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// MaxContentLen caps a message body after sanitizing.
const MaxContentLen = 4000

var (
	errNoAccess      = apierror.Forbidden("You don't have access to this chat room")
	errNotSender     = apierror.Forbidden("Only the sender can change this message")
	errEmptyContent  = apierror.BadRequest("Message content is required")
	errContentTooBig = apierror.Badf("Message must be at most %d characters", MaxContentLen)
	errRoomType      = apierror.BadRequest("roomType must be project or task")
	errHubOffline    = apierror.New(http.StatusServiceUnavailable, "Realtime chat is unavailable")
)

// Handler serves the chat REST routes and is the hub's Dispatcher, so REST
// and websocket mutations run the same code and broadcast the same events.
type Handler struct {
	Log *zap.Logger
	Hub *realtime.Hub

	messages *messagestore.Store
	projects *projectstore.Store
	tasks    *taskstore.Store
	users    *userstore.Store
}

// NewHandler builds the handler and registers it as hub's dispatcher. hub
// may be nil, in which case nothing is broadcast.
func NewHandler(db *mongo.Database, hub *realtime.Hub, logger *zap.Logger) *Handler {
	h := &Handler{
		Log:      logger,
		Hub:      hub,
		messages: messagestore.New(db),
		projects: projectstore.New(db),
		tasks:    taskstore.New(db),
		users:    userstore.New(db),
	}
	if hub != nil {
		hub.SetDispatcher(h)
	}
	return h
}

func (h *Handler) broadcast(room, event string, data any) {
	if h.Hub != nil {
		h.Hub.Broadcast(room, event, data)
	}
}
