package services

import (
	"context"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	mongoClient *mongo.Client
	database    *mongo.Database
)

// GetDatabase returns the MongoDB database instance
func GetDatabase() *mongo.Database {
	return database
}

// InitMongoDB initializes MongoDB connection
func InitMongoDB(ctx context.Context, uri string) (*mongo.Client, error) {
	clientOptions := options.Client().ApplyURI(uri)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	slog.Info("Connected to MongoDB")
	mongoClient = client

	return client, nil
}

// InitServices initializes all services
func InitServices(client *mongo.Client, databaseName string) {
	database = client.Database(databaseName)

	// Create indexes
	createIndexes()
}

// createIndexes creates necessary database indexes
func createIndexes() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Widgets collection indexes
	widgetsCollection := database.Collection("widgets")
	widgetsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"public_widget_id": 1},
		Options: options.Index().SetUnique(true),
	})

	// Guests collection indexes
	guestsCollection := database.Collection("guests")
	guestsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"guest_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"widget_id": 1}},
		{Keys: bson.M{"created_at": -1}},
	})

	// Sessions collection indexes
	sessionsCollection := database.Collection("chat_sessions")
	sessionsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"session_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"guest_id": 1}},
		{Keys: bson.M{"widget_id": 1}},
		{Keys: bson.M{"created_at": -1}},
	})

	// Messages collection indexes
	messagesCollection := database.Collection("guest_messages")
	messagesCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.M{"message_id": 1}, Options: options.Index().SetUnique(true)},
		{Keys: bson.M{"session_id": 1}},
		{Keys: bson.M{"created_at": 1}},
	})
}
