package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo collection names.
const (
	CollTests       = "tests"
	CollSubmissions = "submissions"
	CollUsers       = "users"
)

// OpenMongo connects to uri, pings the server and ensures indexes on the
// named database. Call Client().Disconnect on shutdown.
func OpenMongo(ctx context.Context, uri, database string) (*mongo.Database, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	if database == "" {
		database = "examprep"
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	mdb := client.Database(database)
	if err := ensureIndexes(ctx, mdb); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	return mdb, nil
}

func ensureIndexes(ctx context.Context, mdb *mongo.Database) error {
	if _, err := mdb.Collection(CollTests).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "parentTestRef", Value: 1}}},
		{Keys: bson.D{{Key: "teacherId", Value: 1}}},
	}); err != nil {
		return err
	}
	if _, err := mdb.Collection(CollSubmissions).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "testRef", Value: 1}, {Key: "studentRef", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	_, err := mdb.Collection(CollUsers).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}
