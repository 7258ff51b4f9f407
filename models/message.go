package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Message senders.
const (
	SenderGuest = "guest"
	SenderAI    = "ai"
)

// GuestMessage is one turn in a session transcript. The transcript is
// append-only: no edits, no deletes, no reordering.
type GuestMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	MessageID string             `bson:"message_id" json:"id"`
	GuestID   string             `bson:"guest_id" json:"guest_id"`
	SessionID string             `bson:"session_id" json:"session_id"`
	WidgetID  string             `bson:"widget_id" json:"-"`

	Sender      string    `bson:"sender" json:"sender"` // "guest" or "ai"
	MessageText string    `bson:"message_text" json:"message_text"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
}
