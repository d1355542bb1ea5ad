package hub

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inabottle/internal/constants"
	"inabottle/internal/docstore"
	"inabottle/pkg/errors"
)

// ErrVersionConflict is returned by Replace when the stored hub moved past
// the version the caller read.
var ErrVersionConflict = errors.ErrConflict.WithDetails(map[string]interface{}{
	"resource": "hub",
	"message":  "hub was modified concurrently",
})

type Repository interface {
	Insert(ctx context.Context, h *Hub) error
	FindByID(ctx context.Context, id string) (*Hub, error)
	FindAll(ctx context.Context) ([]Hub, error)
	Delete(ctx context.Context, id string) error
	// Replace writes h if the stored version still equals h.Version and
	// bumps h.Version on success.
	Replace(ctx context.Context, h *Hub) error
}

type mongoRepository struct {
	hubs *docstore.Collection[Hub]
}

func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		hubs: docstore.NewCollection[Hub](db, constants.CollectionHubs, "hub", constants.ServiceHub),
	}
}

func (r *mongoRepository) Insert(ctx context.Context, h *Hub) error {
	return r.hubs.Insert(ctx, h)
}

func (r *mongoRepository) FindByID(ctx context.Context, id string) (*Hub, error) {
	return r.hubs.FindByID(ctx, id)
}

func (r *mongoRepository) FindAll(ctx context.Context) ([]Hub, error) {
	return r.hubs.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *mongoRepository) Delete(ctx context.Context, id string) error {
	return r.hubs.Delete(ctx, id)
}

func (r *mongoRepository) Replace(ctx context.Context, h *Hub) (err error) {
	defer func(start time.Time) { r.hubs.Observe("replace", start, err) }(time.Now())

	expected := h.Version
	next := *h
	next.Version = expected + 1

	result, err := r.hubs.Raw().ReplaceOne(ctx, bson.M{"_id": h.Selector, "version": expected}, &next)
	if err != nil {
		return fmt.Errorf("failed to replace hub %s: %w", h.Selector, err)
	}
	if result.MatchedCount == 0 {
		findErr := r.hubs.Raw().FindOne(ctx, bson.M{"_id": h.Selector}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
		if stderrors.Is(findErr, mongo.ErrNoDocuments) {
			return errors.NotFound("hub", h.Selector)
		}
		return ErrVersionConflict
	}

	h.Version = next.Version
	return nil
}
