package user

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

type Repository interface {
	Insert(ctx context.Context, u *User) error
	// UpsertByEmail creates the user on first login and refreshes the
	// profile fields afterwards. Points are never overwritten.
	UpsertByEmail(ctx context.Context, u *User) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindAll(ctx context.Context) ([]User, error)
	Delete(ctx context.Context, id string) error
	Touch(ctx context.Context, email string, at time.Time) error
	// ApplyCredit adds amount to the user's points unless eventID was
	// already applied, in which case applied is false. An unknown email is
	// a not-found error.
	ApplyCredit(ctx context.Context, email, eventID string, amount int) (applied bool, err error)
}

type mongoRepository struct {
	users *docstore.Collection[User]
}

func NewRepository(db *mongo.Database) Repository {
	return &mongoRepository{
		users: docstore.NewCollection[User](db, constants.CollectionUsers, "user", constants.ServiceUser),
	}
}

func (r *mongoRepository) Insert(ctx context.Context, u *User) error {
	return r.users.Insert(ctx, u)
}

func (r *mongoRepository) UpsertByEmail(ctx context.Context, u *User) (out *User, err error) {
	defer func(start time.Time) { r.users.Observe("upsert_by_email", start, err) }(time.Now())

	set := bson.M{"updatedAt": u.UpdatedAt}
	if u.Name != "" {
		set["name"] = u.Name
	}
	if u.PhotoURL != "" {
		set["photoUrl"] = u.PhotoURL
	}
	if u.Cellphone != "" {
		set["cellphone"] = u.Cellphone
	}

	update := bson.M{
		"$set":         set,
		"$setOnInsert": bson.M{"_id": u.ID, "points": 0},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	out = &User{}
	if err = r.users.Raw().FindOneAndUpdate(ctx, bson.M{"email": u.Email}, update, opts).Decode(out); err != nil {
		return nil, fmt.Errorf("failed to upsert user %s: %w", u.Email, err)
	}
	return out, nil
}

func (r *mongoRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	u, err := r.users.FindOne(ctx, bson.M{"email": email})
	if errors.IsNotFound(err) {
		return nil, errors.NotFound("user", email)
	}
	return u, err
}

func (r *mongoRepository) FindAll(ctx context.Context) ([]User, error) {
	return r.users.FindAll(ctx)
}

func (r *mongoRepository) Delete(ctx context.Context, id string) error {
	return r.users.Delete(ctx, id)
}

func (r *mongoRepository) Touch(ctx context.Context, email string, at time.Time) (err error) {
	defer func(start time.Time) { r.users.Observe("touch", start, err) }(time.Now())

	result, err := r.users.Raw().UpdateOne(ctx, bson.M{"email": email}, bson.M{"$set": bson.M{"updatedAt": at}})
	if err != nil {
		return fmt.Errorf("failed to touch user %s: %w", email, err)
	}
	if result.MatchedCount == 0 {
		return errors.NotFound("user", email)
	}
	return nil
}

func (r *mongoRepository) ApplyCredit(ctx context.Context, email, eventID string, amount int) (applied bool, err error) {
	defer func(start time.Time) { r.users.Observe("apply_credit", start, err) }(time.Now())

	filter := bson.M{"email": email, "appliedEvents": bson.M{"$ne": eventID}}
	update := bson.M{
		"$inc": bson.M{"points": amount},
		"$set": bson.M{"updatedAt": time.Now().UTC()},
		"$push": bson.M{"appliedEvents": bson.M{
			"$each":  bson.A{eventID},
			"$slice": -constants.MaxAppliedEvents,
		}},
	}

	result, err := r.users.Raw().UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to credit user %s: %w", email, err)
	}
	if result.MatchedCount == 1 {
		return true, nil
	}

	// Nothing matched: either the user does not exist or the event was applied.
	err = r.users.Raw().FindOne(ctx, bson.M{"email": email}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if stderrors.Is(err, mongo.ErrNoDocuments) {
		return false, errors.NotFound("user", email)
	}
	if err != nil {
		return false, fmt.Errorf("failed to look up user %s: %w", email, err)
	}
	return false, nil
}
