package points

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inabottle/internal/constants"
	"inabottle/internal/docstore"
	"inabottle/pkg/events"
)

// PointsHistory is one credit as received on points-queue. Records are
// append-only and keyed by the event selector.
type PointsHistory = events.PointsEvent

// Balance is the sum of a user's history.
type Balance struct {
	CreatedBy string `json:"createdBy" bson:"_id"`
	Amount    int    `json:"amount" bson:"amount"`
	Entries   int    `json:"entries" bson:"entries"`
}

type Repository interface {
	// Record stores the entry once. A second call with the same selector
	// reports recorded=false and leaves the stored entry untouched.
	Record(ctx context.Context, entry *PointsHistory) (recorded bool, err error)
	FindByID(ctx context.Context, id string) (*PointsHistory, error)
	Find(ctx context.Context, createdBy string) ([]PointsHistory, error)
	Balance(ctx context.Context, createdBy string) (*Balance, error)
}

type mongoRepository struct {
	history *docstore.Collection[PointsHistory]
}

func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		history: docstore.NewCollection[PointsHistory](db, constants.CollectionPointsHistory, "points history", constants.ServicePoint),
	}
}

func (r *mongoRepository) Record(ctx context.Context, entry *PointsHistory) (recorded bool, err error) {
	defer func(start time.Time) { r.history.Observe("record", start, err) }(time.Now())

	result, err := r.history.Raw().UpdateOne(ctx,
		bson.M{"_id": entry.Selector},
		bson.M{"$setOnInsert": bson.M{
			"createdBy":  entry.CreatedBy,
			"idSource":   entry.IDSource,
			"typeSource": entry.TypeSource,
			"amount":     entry.Amount,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return false, fmt.Errorf("failed to record points %s: %w", entry.Selector, err)
	}
	return result.UpsertedCount == 1, nil
}

func (r *mongoRepository) FindByID(ctx context.Context, id string) (*PointsHistory, error) {
	return r.history.FindByID(ctx, id)
}

func (r *mongoRepository) Find(ctx context.Context, createdBy string) ([]PointsHistory, error) {
	filter := bson.M{}
	if createdBy != "" {
		filter["createdBy"] = createdBy
	}
	return r.history.Find(ctx, filter)
}

func (r *mongoRepository) Balance(ctx context.Context, createdBy string) (b *Balance, err error) {
	defer func(start time.Time) { r.history.Observe("balance", start, err) }(time.Now())

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdBy": createdBy}}},
		{{Key: "$group", Value: bson.M{
			"_id":     "$createdBy",
			"amount":  bson.M{"$sum": "$amount"},
			"entries": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.history.Raw().Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate points for %s: %w", createdBy, err)
	}
	defer cursor.Close(ctx)

	out := &Balance{CreatedBy: createdBy}
	if cursor.Next(ctx) {
		if err = cursor.Decode(out); err != nil {
			return nil, fmt.Errorf("failed to decode points balance: %w", err)
		}
	}
	return out, cursor.Err()
}
