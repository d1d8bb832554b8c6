package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// WeekRepository handles database operations for weekly archive buckets.
type WeekRepository struct {
	collection *mongo.Collection
}

// NewWeekRepository creates a new instance of WeekRepository.
func NewWeekRepository(db *mongo.Database) *WeekRepository {
	return &WeekRepository{
		collection: db.Collection("notification_weeks"),
	}
}

// GetWeek fetches the archive bucket for a box and week number.
func (r *WeekRepository) GetWeek(ctx context.Context, boxKey string, week int) (*models.NotificationWeek, error) {
	var doc models.NotificationWeek
	err := r.collection.FindOne(ctx, bson.M{"_id": models.WeekID(boxKey, week)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrWeekNotFound
		}
		return nil, fmt.Errorf("failed to fetch notification week: %v", err)
	}
	return &doc, nil
}

// CreateWeek inserts a new archive bucket.
func (r *WeekRepository) CreateWeek(ctx context.Context, week *models.NotificationWeek) error {
	now := time.Now()
	week.CreatedAt = now
	week.UpdatedAt = now
	week.ID = models.WeekID(week.BoxKey, week.Week)

	if _, err := r.collection.InsertOne(ctx, week); err != nil {
		return fmt.Errorf("failed to create notification week: %v", err)
	}
	return nil
}

// UpdateWeek replaces the stored bucket with the given state.
func (r *WeekRepository) UpdateWeek(ctx context.Context, week *models.NotificationWeek) error {
	week.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": week.ID}, week)
	if err != nil {
		return fmt.Errorf("failed to update notification week: %v", err)
	}
	return nil
}
