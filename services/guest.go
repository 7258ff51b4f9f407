package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"taimako-widget/models"
)

// CreateGuest registers a new guest for a widget and hands back the durable
// identifier the browser will persist.
func CreateGuest(ctx context.Context, widget *models.Widget, name, email, phone string) (*models.Guest, error) {
	now := time.Now()
	guest := &models.Guest{
		ID:        primitive.NewObjectID(),
		GuestID:   uuid.New().String(),
		WidgetID:  widget.PublicWidgetID,
		OwnerID:   widget.OwnerID,
		Name:      name,
		Email:     email,
		Phone:     phone,
		CreatedAt: now,
		UpdatedAt: now,
	}

	collection := GetDatabase().Collection("guests")
	if _, err := collection.InsertOne(ctx, guest); err != nil {
		return nil, fmt.Errorf("failed to create guest: %w", err)
	}

	slog.Info("Guest registered",
		"guestID", guest.GuestID,
		"widgetID", widget.PublicWidgetID,
	)

	return guest, nil
}

// GetGuest fetches a guest by its durable identifier. Returns (nil, nil)
// when the guest is unknown.
func GetGuest(ctx context.Context, guestID string) (*models.Guest, error) {
	collection := GetDatabase().Collection("guests")

	var guest models.Guest
	err := collection.FindOne(ctx, bson.M{"guest_id": guestID}).Decode(&guest)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get guest: %w", err)
	}

	return &guest, nil
}

// MarkGuestLead flags a guest as a lead once their first session exists.
func MarkGuestLead(ctx context.Context, guestID string) error {
	collection := GetDatabase().Collection("guests")

	_, err := collection.UpdateOne(ctx,
		bson.M{"guest_id": guestID},
		bson.M{"$set": bson.M{"is_lead": true, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to mark guest as lead: %w", err)
	}
	return nil
}
