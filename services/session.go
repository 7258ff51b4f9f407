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
	"go.mongodb.org/mongo-driver/mongo/options"

	"taimako-widget/models"
)

// CreateChatSession allocates a session for a guest's first message. Origin
// and context are written once here and never touched again.
func CreateChatSession(ctx context.Context, widget *models.Widget, guest *models.Guest, origin string, sessionCtx *models.SessionContext) (*models.ChatSession, error) {
	if origin == "" {
		origin = models.OriginAutoStart
	}

	now := time.Now()
	session := &models.ChatSession{
		ID:            primitive.NewObjectID(),
		SessionID:     uuid.New().String(),
		GuestID:       guest.GuestID,
		WidgetID:      widget.PublicWidgetID,
		OwnerID:       widget.OwnerID,
		Origin:        origin,
		Context:       sessionCtx,
		CreatedAt:     now,
		LastMessageAt: now,
	}

	collection := GetDatabase().Collection("chat_sessions")
	if _, err := collection.InsertOne(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	slog.Info("Chat session created",
		"sessionID", session.SessionID,
		"guestID", guest.GuestID,
		"widgetID", widget.PublicWidgetID,
		"origin", origin,
	)

	return session, nil
}

// GetChatSession fetches a session by id. Returns (nil, nil) when unknown.
func GetChatSession(ctx context.Context, sessionID string) (*models.ChatSession, error) {
	collection := GetDatabase().Collection("chat_sessions")

	var session models.ChatSession
	err := collection.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&session)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &session, nil
}

// TouchSession bumps the session's last-message timestamp.
func TouchSession(ctx context.Context, sessionID string, at time.Time) error {
	collection := GetDatabase().Collection("chat_sessions")

	_, err := collection.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"last_message_at": at}},
	)
	if err != nil {
		return fmt.Errorf("failed to touch session: %w", err)
	}
	return nil
}

// ListGuestSessions returns a guest's sessions, newest first.
func ListGuestSessions(ctx context.Context, guestID string) ([]models.ChatSession, error) {
	collection := GetDatabase().Collection("chat_sessions")

	findOptions := options.Find().SetSort(bson.M{"created_at": -1})
	cursor, err := collection.Find(ctx, bson.M{"guest_id": guestID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []models.ChatSession{}
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}

	return sessions, nil
}

// CountGuestSessionsSince counts sessions a guest created at or after the
// given instant. Used for the per-day session quota.
func CountGuestSessionsSince(ctx context.Context, guestID string, since time.Time) (int64, error) {
	collection := GetDatabase().Collection("chat_sessions")

	count, err := collection.CountDocuments(ctx, bson.M{
		"guest_id":   guestID,
		"created_at": bson.M{"$gte": since},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	return count, nil
}

// CountSessionMessages counts the messages stored for a session. Used for
// the per-session message quota.
func CountSessionMessages(ctx context.Context, sessionID string) (int64, error) {
	collection := GetDatabase().Collection("guest_messages")

	count, err := collection.CountDocuments(ctx, bson.M{"session_id": sessionID})
	if err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return count, nil
}

// SaveGuestMessage appends a message to a session's transcript.
func SaveGuestMessage(ctx context.Context, message *models.GuestMessage) error {
	collection := GetDatabase().Collection("guest_messages")
	if _, err := collection.InsertOne(ctx, message); err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

// GetSessionMessages returns the full ordered transcript for a session.
func GetSessionMessages(ctx context.Context, sessionID string) ([]models.GuestMessage, error) {
	collection := GetDatabase().Collection("guest_messages")

	findOptions := options.Find().SetSort(bson.M{"created_at": 1})
	cursor, err := collection.Find(ctx, bson.M{"session_id": sessionID}, findOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to get messages: %w", err)
	}
	defer cursor.Close(ctx)

	messages := []models.GuestMessage{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}

	return messages, nil
}

// GetSessionHistoryForAgent converts the tail of a session transcript into
// the role/content turns the agent service expects.
func GetSessionHistoryForAgent(ctx context.Context, sessionID string, limit int) ([]AgentTurn, error) {
	if limit <= 0 {
		limit = 10
	}

	messages, err := GetSessionMessages(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if len(messages) > limit {
		messages = messages[len(messages)-limit:]
	}

	history := make([]AgentTurn, 0, len(messages))
	for _, msg := range messages {
		role := "user"
		if msg.Sender == models.SenderAI {
			role = "assistant"
		}
		history = append(history, AgentTurn{Role: role, Content: msg.MessageText})
	}

	return history, nil
}

// UpdateSessionAnalysis stores the lazily generated summary and top intent.
func UpdateSessionAnalysis(ctx context.Context, sessionID, summary, topIntent string) (*models.ChatSession, error) {
	collection := GetDatabase().Collection("chat_sessions")

	now := time.Now()
	result := collection.FindOneAndUpdate(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{
			"summary":              summary,
			"top_intent":           topIntent,
			"summary_generated_at": now,
		}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)

	var session models.ChatSession
	if err := result.Decode(&session); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to update session analysis: %w", err)
	}

	return &session, nil
}
