// internal/domain/models/message.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat room types.
const (
	RoomProject = "project"
	RoomTask    = "task"
)

// Message is a chat message in a project or task room.
// Deleted messages are kept with empty content.
type Message struct {
	ID         primitive.ObjectID   `bson:"_id" json:"id"`
	RoomType   string               `bson:"room_type" json:"roomType"`
	RoomID     primitive.ObjectID   `bson:"room_id" json:"roomId"`
	SenderID   primitive.ObjectID   `bson:"sender_id" json:"senderId"`
	SenderName string               `bson:"sender_name" json:"senderName"`
	Content    string               `bson:"content" json:"content"`
	ReadBy     []primitive.ObjectID `bson:"read_by" json:"readBy"`
	Edited     bool                 `bson:"edited" json:"edited"`
	Deleted    bool                 `bson:"deleted" json:"deleted"`
	CreatedAt  time.Time            `bson:"created_at" json:"createdAt"`
	UpdatedAt  time.Time            `bson:"updated_at" json:"updatedAt"`
}

// RoomKey is the realtime room name for a room type and id.
func RoomKey(roomType string, roomID primitive.ObjectID) string {
	return roomType + ":" + roomID.Hex()
}
