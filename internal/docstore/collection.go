// Package docstore wraps a MongoDB collection with the save / find / delete
// operations every resource service needs, recording query metrics on each
// call.
package docstore

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"inabottle/pkg/errors"
	"inabottle/pkg/metrics"
)

// Collection stores documents of type T keyed by a string _id.
type Collection[T any] struct {
	coll     *mongo.Collection
	resource string
	service  string
}

func NewCollection[T any](db *mongo.Database, name, resource, service string) *Collection[T] {
	return &Collection[T]{
		coll:     db.Collection(name),
		resource: resource,
		service:  service,
	}
}

// Raw exposes the underlying collection for queries beyond the basic set.
func (c *Collection[T]) Raw() *mongo.Collection {
	return c.coll
}

func (c *Collection[T]) Name() string {
	return c.coll.Name()
}

// Observe records the outcome and latency of an operation on this collection.
func (c *Collection[T]) Observe(operation string, start time.Time, err error) {
	status := "success"
	if err != nil && !stderrors.Is(err, mongo.ErrNoDocuments) {
		status = "error"
	}
	metrics.IncDatabaseQuery(c.service, c.coll.Name(), operation, status)
	metrics.ObserveDatabaseQueryDuration(c.service, c.coll.Name(), operation, time.Since(start))
}

// Insert fails with a conflict error when the id already exists.
func (c *Collection[T]) Insert(ctx context.Context, doc *T) (err error) {
	defer func(start time.Time) { c.Observe("insert", start, err) }(time.Now())

	if _, err = c.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return errors.ErrConflict.WithCause(err).WithDetail("resource", c.resource)
		}
		return fmt.Errorf("failed to insert %s: %w", c.resource, err)
	}
	return nil
}

// Save replaces the document with the given id, inserting it if absent.
func (c *Collection[T]) Save(ctx context.Context, id string, doc *T) (err error) {
	defer func(start time.Time) { c.Observe("save", start, err) }(time.Now())

	opts := options.Replace().SetUpsert(true)
	if _, err = c.coll.ReplaceOne(ctx, bson.M{"_id": id}, doc, opts); err != nil {
		return fmt.Errorf("failed to save %s: %w", c.resource, err)
	}
	return nil
}

func (c *Collection[T]) FindByID(ctx context.Context, id string) (doc *T, err error) {
	defer func(start time.Time) { c.Observe("find_by_id", start, err) }(time.Now())

	var out T
	err = c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&out)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.NotFound(c.resource, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", c.resource, err)
	}
	return &out, nil
}

// FindOne returns the first document matching filter.
func (c *Collection[T]) FindOne(ctx context.Context, filter interface{}) (doc *T, err error) {
	defer func(start time.Time) { c.Observe("find_one", start, err) }(time.Now())

	var out T
	err = c.coll.FindOne(ctx, filter).Decode(&out)
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return nil, errors.ErrNotFound.WithDetail("resource", c.resource)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s: %w", c.resource, err)
	}
	return &out, nil
}

// Find never returns a nil slice so handlers render [] for no results.
func (c *Collection[T]) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (docs []T, err error) {
	defer func(start time.Time) { c.Observe("find", start, err) }(time.Now())

	cursor, err := c.coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", c.resource, err)
	}
	defer cursor.Close(ctx)

	docs = make([]T, 0)
	if err = cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", c.resource, err)
	}
	return docs, nil
}

func (c *Collection[T]) FindAll(ctx context.Context) ([]T, error) {
	return c.Find(ctx, bson.M{})
}

func (c *Collection[T]) Delete(ctx context.Context, id string) (err error) {
	defer func(start time.Time) { c.Observe("delete", start, err) }(time.Now())

	result, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", c.resource, err)
	}
	if result.DeletedCount == 0 {
		return errors.NotFound(c.resource, id)
	}
	return nil
}
