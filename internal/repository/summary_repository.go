package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SummaryRepository handles database operations for notification summaries.
type SummaryRepository struct {
	collection *mongo.Collection
}

// NewSummaryRepository creates a new instance of SummaryRepository.
func NewSummaryRepository(db *mongo.Database) *SummaryRepository {
	return &SummaryRepository{
		collection: db.Collection("notification_summaries"),
	}
}

// GetSummary fetches a summary by its key.
func (r *SummaryRepository) GetSummary(ctx context.Context, key string) (*models.NotificationSummary, error) {
	var summary models.NotificationSummary
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&summary)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrSummaryNotFound
		}
		return nil, fmt.Errorf("failed to fetch notification summary: %v", err)
	}
	return &summary, nil
}

// CreateSummary inserts a new summary.
func (r *SummaryRepository) CreateSummary(ctx context.Context, summary *models.NotificationSummary) error {
	now := time.Now()
	summary.CreatedAt = now
	summary.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, summary); err != nil {
		return fmt.Errorf("failed to create notification summary: %v", err)
	}
	return nil
}

// UpdateSummary replaces the stored summary with the given state.
func (r *SummaryRepository) UpdateSummary(ctx context.Context, summary *models.NotificationSummary) error {
	summary.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": summary.ID}, summary)
	if err != nil {
		return fmt.Errorf("failed to update notification summary: %v", err)
	}
	return nil
}

// GetSummariesNeedingSync returns summaries flagged for initialization.
func (r *SummaryRepository) GetSummariesNeedingSync(ctx context.Context, limit int64) ([]models.NotificationSummary, error) {
	opts := options.Find().SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"s": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch summaries needing sync: %v", err)
	}
	defer cursor.Close(ctx)

	var summaries []models.NotificationSummary
	if err := cursor.All(ctx, &summaries); err != nil {
		return nil, fmt.Errorf("failed to decode summaries needing sync: %v", err)
	}
	return summaries, nil
}
