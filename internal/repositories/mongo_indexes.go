package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	userCollection       = "users"
	connectionCollection = "connections"
	messageCollection    = "messages"
)

// EnsureMongoIndexes creates the indexes the Mongo repositories rely on for
// uniqueness and lookups. It is idempotent.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		userCollection: {
			{
				Keys:    bson.D{{Key: "email", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "verifyToken", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"verifyToken": bson.M{"$type": "string"}}),
			},
		},
		connectionCollection: {
			{
				Keys:    bson.D{{Key: "sender", Value: 1}, {Key: "receiver", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys:    bson.D{{Key: "pairKey", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "receiver", Value: 1}, {Key: "status", Value: 1}},
			},
		},
		messageCollection: {
			{
				Keys: bson.D{{Key: "sender", Value: 1}, {Key: "receiver", Value: 1}, {Key: "createdAt", Value: 1}},
			},
			{
				Keys: bson.D{{Key: "receiver", Value: 1}, {Key: "read", Value: 1}},
			},
		},
	}

	for collection, idx := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", collection, err)
		}
	}
	return nil
}

// objectIDs parses hex ids, reporting false if any of them is malformed.
func objectIDs(ids ...string) ([]bson.ObjectID, bool) {
	result := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := bson.ObjectIDFromHex(id)
		if err != nil {
			return nil, false
		}
		result = append(result, oid)
	}
	return result, true
}
