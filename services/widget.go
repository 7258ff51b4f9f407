package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"taimako-widget/models"
)

// GetWidgetByPublicID looks up a widget by its public embed identifier.
// Returns (nil, nil) when no widget exists for the id.
func GetWidgetByPublicID(ctx context.Context, publicWidgetID string) (*models.Widget, error) {
	collection := GetDatabase().Collection("widgets")

	var widget models.Widget
	err := collection.FindOne(ctx, bson.M{"public_widget_id": publicWidgetID}).Decode(&widget)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get widget: %w", err)
	}

	return &widget, nil
}
