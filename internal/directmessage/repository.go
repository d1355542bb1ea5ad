package directmessage

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

type DirectMessage = events.DirectMessage

type Repository interface {
	Save(ctx context.Context, msg *DirectMessage) error
	// SaveAll upserts a batch in one bulk write. Redelivered batches
	// overwrite the same ids.
	SaveAll(ctx context.Context, msgs []DirectMessage) error
	FindByID(ctx context.Context, id string) (*DirectMessage, error)
	Find(ctx context.Context, huntID string) ([]DirectMessage, error)
	Delete(ctx context.Context, id string) error
}

type mongoRepository struct {
	messages *docstore.Collection[DirectMessage]
}

func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		messages: docstore.NewCollection[DirectMessage](db, constants.CollectionDirectMessages, "direct message", constants.ServiceDirectMessage),
	}
}

func (r *mongoRepository) Save(ctx context.Context, msg *DirectMessage) error {
	return r.messages.Save(ctx, msg.Selector, msg)
}

func (r *mongoRepository) SaveAll(ctx context.Context, msgs []DirectMessage) (err error) {
	if len(msgs) == 0 {
		return nil
	}
	defer func(start time.Time) { r.messages.Observe("save_all", start, err) }(time.Now())

	models := make([]mongo.WriteModel, 0, len(msgs))
	for i := range msgs {
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": msgs[i].Selector}).
			SetReplacement(msgs[i]).
			SetUpsert(true))
	}

	if _, err = r.messages.Raw().BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to save direct message batch: %w", err)
	}
	return nil
}

func (r *mongoRepository) FindByID(ctx context.Context, id string) (*DirectMessage, error) {
	return r.messages.FindByID(ctx, id)
}

// Find lists messages, restricted to one hunt when huntID is set.
func (r *mongoRepository) Find(ctx context.Context, huntID string) ([]DirectMessage, error) {
	filter := bson.M{}
	if huntID != "" {
		filter["huntId"] = huntID
	}
	return r.messages.Find(ctx, filter)
}

func (r *mongoRepository) Delete(ctx context.Context, id string) error {
	return r.messages.Delete(ctx, id)
}
