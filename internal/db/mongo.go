package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// ConnectMongoDB initializes the database connection and returns the client
// together with the application database.
func ConnectMongoDB(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("mongodb connection failed: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	zap.L().Info("Connected to MongoDB", zap.String("database", dbName))
	return client, client.Database(dbName), nil
}

// GetCollection returns a MongoDB collection
func GetCollection(database *mongo.Database, name CollectionName) *mongo.Collection {
	return database.Collection(string(name))
}

// uniqueKeys lists the fields carrying a unique index per collection.
var uniqueKeys = map[CollectionName][]string{
	Users:    {"email"},
	Sessions: {"user"},
	Links:    {"link"},
	Pricing:  {"name"},
	Storage:  {"user"},
}

// UniqueKeys returns the unique fields of a collection.
func UniqueKeys(name CollectionName) []string {
	return uniqueKeys[name]
}

// EnsureIndexes creates the unique indexes the facade relies on to report
// duplicate documents as conflicts.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	for name, keys := range uniqueKeys {
		models := make([]mongo.IndexModel, 0, len(keys))
		for _, key := range keys {
			models = append(models, mongo.IndexModel{
				Keys:    bson.D{{Key: key, Value: 1}},
				Options: options.Index().SetUnique(true),
			})
		}

		if _, err := GetCollection(database, name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}

	return nil
}
