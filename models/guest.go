package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Guest represents an anonymous site visitor who submitted the intake form.
// The guest_id is handed back to the browser and persisted there; the widget
// never updates or deletes a guest on its own.
type Guest struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	GuestID  string             `bson:"guest_id" json:"id"`
	WidgetID string             `bson:"widget_id" json:"-"` // public widget id the guest arrived through
	OwnerID  string             `bson:"owner_id" json:"-"`

	Name  string `bson:"name" json:"name"`
	Email string `bson:"email,omitempty" json:"email,omitempty"`
	Phone string `bson:"phone,omitempty" json:"phone,omitempty"`

	// IsLead flips once the guest has started at least one session.
	IsLead bool `bson:"is_lead" json:"is_lead"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"-"`
}
