package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/mkassem/veridian_backend/config"
	"github.com/mkassem/veridian_backend/models"
)

// ErrUserNotFound is returned when an account id or signup id does not
// resolve to a stored identity.
var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	collection *mongo.Collection
}

func NewUserRepository(db *mongo.Client) *UserRepository {
	return &UserRepository{
		collection: config.GetCollection(db, "users"),
	}
}

func (r *UserRepository) FindByAccountID(ctx context.Context, accountID string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"accountId": accountID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) FindBySignupID(ctx context.Context, signupID string) (*models.User, error) {
	var user models.User
	err := r.collection.FindOne(ctx, bson.M{"signupId": signupID}).Decode(&user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}

	_, err := r.collection.InsertOne(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// SetSignupID records the signup identifier assigned by the risk provider.
func (r *UserRepository) SetSignupID(ctx context.Context, userID primitive.ObjectID, signupID string) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"signupId": signupID, "updatedAt": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to update signup id: %w", err)
	}
	return nil
}
