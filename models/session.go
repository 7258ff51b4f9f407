package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Session origins. The origin is fixed at creation and never mutated.
const (
	OriginManual    = "manual"     // user explicitly started a new chat
	OriginAutoStart = "auto-start" // created transparently on first message
	OriginResumed   = "resumed"    // continuing a thread picked from history
)

// SessionContext is the one-time snapshot captured when the session's first
// message is sent. It is attached to the session-init request only; fields
// left blank by the client are simply absent.
type SessionContext struct {
	DeviceType  string `bson:"device_type,omitempty" json:"device_type,omitempty"`
	Browser     string `bson:"browser,omitempty" json:"browser,omitempty"`
	OS          string `bson:"os,omitempty" json:"os,omitempty"`
	Country     string `bson:"country,omitempty" json:"country,omitempty"`
	City        string `bson:"city,omitempty" json:"city,omitempty"`
	Timezone    string `bson:"timezone,omitempty" json:"timezone,omitempty"`
	Referrer    string `bson:"referrer,omitempty" json:"referrer,omitempty"`
	UTMSource   string `bson:"utm_source,omitempty" json:"utm_source,omitempty"`
	UTMMedium   string `bson:"utm_medium,omitempty" json:"utm_medium,omitempty"`
	UTMCampaign string `bson:"utm_campaign,omitempty" json:"utm_campaign,omitempty"`
}

// ChatSession is one continuous conversation thread between a guest and the
// AI agent. It is created lazily by the first delivered message, never by the
// intake form. Summary and TopIntent are populated later by the analysis step.
type ChatSession struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	SessionID string             `bson:"session_id" json:"id"`
	GuestID   string             `bson:"guest_id" json:"guest_id"`
	WidgetID  string             `bson:"widget_id" json:"-"`
	OwnerID   string             `bson:"owner_id" json:"-"`

	Origin  string          `bson:"origin" json:"origin"`
	Context *SessionContext `bson:"context,omitempty" json:"context,omitempty"`

	Summary            string     `bson:"summary,omitempty" json:"summary,omitempty"`
	SummaryGeneratedAt *time.Time `bson:"summary_generated_at,omitempty" json:"summary_generated_at,omitempty"`
	TopIntent          string     `bson:"top_intent,omitempty" json:"top_intent,omitempty"`

	CreatedAt     time.Time `bson:"created_at" json:"created_at"`
	LastMessageAt time.Time `bson:"last_message_at" json:"last_message_at"`
}
