package treasure

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inabottle/internal/constants"
	"inabottle/internal/docstore"
	"inabottle/pkg/errors"
)

type Repository interface {
	Insert(ctx context.Context, hunt *TreasureHunt) error
	FindByID(ctx context.Context, id string) (*TreasureHunt, error)
	FindAll(ctx context.Context) ([]TreasureHunt, error)
	Delete(ctx context.Context, id string) error

	MarkPublished(ctx context.Context, huntID, eventID string, at time.Time) error
	// RecordFailure counts a failed publish attempt. final marks the entry
	// failed so the relay stops retrying it.
	RecordFailure(ctx context.Context, huntID, eventID, cause string, final bool) error
	// FindPending returns hunts holding a pending entry created at or before
	// olderThan, oldest first. limit <= 0 means no limit.
	FindPending(ctx context.Context, olderThan time.Time, limit int) ([]TreasureHunt, error)
}

type mongoRepository struct {
	hunts *docstore.Collection[TreasureHunt]
}

func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		hunts: docstore.NewCollection[TreasureHunt](db, constants.CollectionTreasureHunts, "treasure hunt", constants.ServiceTreasureHunt),
	}
}

func (r *mongoRepository) Insert(ctx context.Context, hunt *TreasureHunt) error {
	return r.hunts.Insert(ctx, hunt)
}

func (r *mongoRepository) FindByID(ctx context.Context, id string) (*TreasureHunt, error) {
	return r.hunts.FindByID(ctx, id)
}

func (r *mongoRepository) FindAll(ctx context.Context) ([]TreasureHunt, error) {
	return r.hunts.FindAll(ctx)
}

func (r *mongoRepository) Delete(ctx context.Context, id string) error {
	return r.hunts.Delete(ctx, id)
}

func (r *mongoRepository) MarkPublished(ctx context.Context, huntID, eventID string, at time.Time) error {
	return r.updateEntry(ctx, "mark_published", huntID, eventID, bson.M{
		"$set": bson.M{
			"outbox.$.status":      OutboxPublished,
			"outbox.$.publishedAt": at,
			"outbox.$.lastError":   "",
		},
		"$inc": bson.M{"outbox.$.attempts": 1},
	})
}

func (r *mongoRepository) RecordFailure(ctx context.Context, huntID, eventID, cause string, final bool) error {
	set := bson.M{"outbox.$.lastError": cause}
	if final {
		set["outbox.$.status"] = OutboxFailed
	}
	return r.updateEntry(ctx, "record_failure", huntID, eventID, bson.M{
		"$set": set,
		"$inc": bson.M{"outbox.$.attempts": 1},
	})
}

func (r *mongoRepository) updateEntry(ctx context.Context, op, huntID, eventID string, update bson.M) (err error) {
	defer func(start time.Time) { r.hunts.Observe(op, start, err) }(time.Now())

	filter := bson.M{"_id": huntID, "outbox.eventId": eventID}
	result, err := r.hunts.Raw().UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update outbox entry %s: %w", eventID, err)
	}
	if result.MatchedCount == 0 {
		return errors.NotFound("outbox entry", eventID)
	}
	return nil
}

func (r *mongoRepository) FindPending(ctx context.Context, olderThan time.Time, limit int) ([]TreasureHunt, error) {
	filter := bson.M{
		"outbox": bson.M{"$elemMatch": bson.M{
			"status":    OutboxPending,
			"createdAt": bson.M{"$lte": olderThan},
		}},
	}
	opts := options.Find().SetSort(bson.D{{Key: "outbox.createdAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.hunts.Find(ctx, filter, opts)
}
