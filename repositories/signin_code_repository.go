package repositories

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mkassem/veridian_backend/config"
	"github.com/mkassem/veridian_backend/models"
	"github.com/mkassem/veridian_backend/utils"
)

// Ledger errors. Consume reports exactly one of these when a code cannot
// be consumed; callers collapse them into a generic failure before anything
// reaches a client.
var (
	ErrCodeNotFound = errors.New("signin code not found")
	ErrCodeUsed     = errors.New("signin code already used")
	ErrCodeExpired  = errors.New("signin code expired")
)

// DefaultCodeTTL is the validity window of a signin code unless
// SIGNIN_CODE_TTL overrides it.
const DefaultCodeTTL = 2 * time.Minute

// CodeTTL returns the configured signin code validity window.
func CodeTTL() time.Duration {
	if s := os.Getenv("SIGNIN_CODE_TTL"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			return d
		}
	}
	return DefaultCodeTTL
}

// SigninCodeRepository is the durable ledger of signin codes.
type SigninCodeRepository struct {
	collection *mongo.Collection
}

func NewSigninCodeRepository(db *mongo.Client) *SigninCodeRepository {
	return &SigninCodeRepository{
		collection: config.GetCollection(db, "signinCodes"),
	}
}

// Issue mints a fresh code for the user. Earlier live codes for the same
// user are left to expire on their own; every call stores a new one.
func (r *SigninCodeRepository) Issue(ctx context.Context, userID primitive.ObjectID) (*models.SigninCode, error) {
	now := time.Now()

	// The unique index on code makes a collision an insert error rather
	// than a silent overwrite. With 160-bit codes a retry should never
	// be needed in practice.
	for attempt := 0; attempt < 3; attempt++ {
		code, err := utils.GenerateSigninCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate signin code: %w", err)
		}

		signinCode := &models.SigninCode{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			Code:      code,
			CreatedAt: now,
			ExpiresAt: now.Add(CodeTTL()),
		}

		_, err = r.collection.InsertOne(ctx, signinCode)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				continue
			}
			return nil, fmt.Errorf("failed to store signin code: %w", err)
		}

		return signinCode, nil
	}

	return nil, errors.New("failed to mint a unique signin code")
}

// Find looks up a code by exact match for the given user. Expiry and
// consumption are not considered here; callers decide policy from the
// returned attributes.
func (r *SigninCodeRepository) Find(ctx context.Context, userID primitive.ObjectID, code string) (*models.SigninCode, error) {
	var signinCode models.SigninCode
	err := r.collection.FindOne(ctx, bson.M{"userId": userID, "code": code}).Decode(&signinCode)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to look up signin code: %w", err)
	}

	return &signinCode, nil
}

// Consume marks the code used. The filter on usedAt and expiresAt makes
// the update a single atomic check-and-set: of any number of concurrent
// callers racing on the same code, exactly one wins and the rest get
// ErrCodeUsed.
func (r *SigninCodeRepository) Consume(ctx context.Context, code *models.SigninCode) error {
	now := time.Now()

	var updated models.SigninCode
	err := r.collection.FindOneAndUpdate(
		ctx,
		bson.M{
			"_id":       code.ID,
			"usedAt":    nil,
			"expiresAt": bson.M{"$gt": now},
		},
		bson.M{"$set": bson.M{"usedAt": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&updated)
	if err == nil {
		code.UsedAt = updated.UsedAt
		return nil
	}
	if err != mongo.ErrNoDocuments {
		return fmt.Errorf("failed to consume signin code: %w", err)
	}

	// Lost the race, or the code is dead. Re-read to report which.
	var current models.SigninCode
	err = r.collection.FindOne(ctx, bson.M{"_id": code.ID}).Decode(&current)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return ErrCodeNotFound
		}
		return fmt.Errorf("failed to re-read signin code: %w", err)
	}

	if current.Consumed() {
		return ErrCodeUsed
	}
	return ErrCodeExpired
}
