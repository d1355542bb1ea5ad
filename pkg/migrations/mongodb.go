package migrations

import (
	"context"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inabottle/internal/constants"
)

// collectionIndexes are the secondary indexes each service relies on. _id is
// always the resource id and needs no entry.
var collectionIndexes = map[string][]mongo.IndexModel{
	constants.CollectionDirectMessages: {
		{
			Keys:    bson.D{{Key: "huntId", Value: 1}},
			Options: options.Index().SetName("idx_direct_messages_hunt_id").SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "createdBy", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("idx_direct_messages_created_by"),
		},
	},
	constants.CollectionHubs: {
		{
			Keys:    bson.D{{Key: "createdBy", Value: 1}},
			Options: options.Index().SetName("idx_hubs_created_by"),
		},
	},
	constants.CollectionTreasureHunts: {
		{
			Keys:    bson.D{{Key: "outbox.status", Value: 1}, {Key: "outbox.createdAt", Value: 1}},
			Options: options.Index().SetName("idx_treasure_hunts_outbox_status"),
		},
	},
	constants.CollectionPointsHistory: {
		{
			Keys:    bson.D{{Key: "createdBy", Value: 1}},
			Options: options.Index().SetName("idx_points_history_created_by"),
		},
		{
			Keys:    bson.D{{Key: "idSource", Value: 1}},
			Options: options.Index().SetName("idx_points_history_id_source"),
		},
	},
	constants.CollectionUsers: {
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetName("idx_users_email").SetUnique(true).SetSparse(true),
		},
	},
}

// EnsureMongoIndexes creates the indexes of the given collections. Existing
// indexes with the same name are left alone.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database, collections ...string) error {
	for _, name := range collections {
		indexes, ok := collectionIndexes[name]
		if !ok {
			return fmt.Errorf("no index definition for collection %s", name)
		}

		_, err := db.Collection(name).Indexes().CreateMany(ctx, indexes)
		if err != nil && !strings.Contains(err.Error(), "already exists") {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}

	return nil
}

// IndexNames lists the index names defined for a collection.
func IndexNames(collection string) []string {
	var names []string
	for _, idx := range collectionIndexes[collection] {
		if idx.Options != nil && idx.Options.Name != nil {
			names = append(names, *idx.Options.Name)
		}
	}
	return names
}
