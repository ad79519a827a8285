package health

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dalemusser/youlead/internal/app/system/realtime"
	"github.com/dalemusser/youlead/internal/app/system/timeouts"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Handler holds dependencies needed for health checks. Redis and Hub are
// optional.
type Handler struct {
	Client *mongo.Client
	Redis  *redis.Client
	Hub    *realtime.Hub
	Log    *zap.Logger
}

func NewHandler(client *mongo.Client, rdb *redis.Client, hub *realtime.Hub, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Redis:  rdb,
		Hub:    hub,
		Log:    logger,
	}
}

type healthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Redis       string `json:"redis,omitempty"`
	Connections *int   `json:"connections,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "redis":"connected", "connections":3 }
//
// When Mongo (or a configured Redis) does not answer: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	resp := healthResponse{Status: "ok", Database: "connected"}
	if h.Hub != nil {
		n := h.Hub.ConnectionCount()
		resp.Connections = &n
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
	}
	if h.Redis != nil {
		resp.Redis = "connected"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			h.Log.Error("health-check: redis ping failed", zap.Error(err))
			resp.Status = "error"
			resp.Redis = "disconnected"
			if resp.Message == "" {
				resp.Message = "Presence store unavailable"
			}
		}
	}

	if resp.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(resp)
}
