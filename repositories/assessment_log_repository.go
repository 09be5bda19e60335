package repositories

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mkassem/veridian_backend/config"
	"github.com/mkassem/veridian_backend/models"
)

type AssessmentLogRepository struct {
	collection *mongo.Collection
}

func NewAssessmentLogRepository(db *mongo.Client) *AssessmentLogRepository {
	return &AssessmentLogRepository{
		collection: config.GetCollection(db, "assessmentLogs"),
	}
}

func (r *AssessmentLogRepository) Append(ctx context.Context, entry *models.AssessmentLog) error {
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}

	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return fmt.Errorf("failed to store assessment log: %w", err)
	}
	return nil
}

// ListByUser returns the user's assessment history, newest first.
func (r *AssessmentLogRepository) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.AssessmentLog, error) {
	cursor, err := r.collection.Find(
		ctx,
		bson.M{"userId": userID},
		options.Find().SetSort(bson.D{{Key: "requestedAt", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assessment logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := []models.AssessmentLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode assessment logs: %w", err)
	}
	return logs, nil
}
