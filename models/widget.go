package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Widget describes one business's deployed chat widget.
type Widget struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	PublicWidgetID string             `bson:"public_widget_id" json:"public_widget_id"`
	OwnerID        string             `bson:"owner_id" json:"-"` // business account that owns the widget
	BusinessName   string             `bson:"business_name,omitempty" json:"-"`

	Theme                           string   `bson:"theme" json:"theme"`
	PrimaryColor                    string   `bson:"primary_color" json:"primary_color"`
	IconURL                         string   `bson:"icon_url,omitempty" json:"icon_url,omitempty"`
	WelcomeMessage                  string   `bson:"welcome_message,omitempty" json:"welcome_message,omitempty"`
	InitialAIMessage                string   `bson:"initial_ai_message,omitempty" json:"initial_ai_message,omitempty"`
	SendInitialMessageAutomatically bool     `bson:"send_initial_message_automatically" json:"send_initial_message_automatically"`
	WhatsappEnabled                 bool     `bson:"whatsapp_enabled" json:"whatsapp_enabled"`
	WhatsappNumber                  string   `bson:"whatsapp_number,omitempty" json:"whatsapp_number,omitempty"`
	IsActive                        bool     `bson:"is_active" json:"is_active"`
	MaxMessagesPerSession           int      `bson:"max_messages_per_session" json:"max_messages_per_session"`
	MaxSessionsPerDay               int      `bson:"max_sessions_per_day" json:"max_sessions_per_day"`
	WhitelistedDomains              []string `bson:"whitelisted_domains,omitempty" json:"whitelisted_domains,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"-"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}
