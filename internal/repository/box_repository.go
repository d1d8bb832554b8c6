package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BoxRepository handles database operations for notification boxes.
type BoxRepository struct {
	collection *mongo.Collection
}

// NewBoxRepository creates a new instance of BoxRepository.
func NewBoxRepository(db *mongo.Database) *BoxRepository {
	return &BoxRepository{
		collection: db.Collection("notification_boxes"),
	}
}

// GetBox fetches a box by its owner model key.
func (r *BoxRepository) GetBox(ctx context.Context, key string) (*models.NotificationBox, error) {
	var box models.NotificationBox
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&box)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrBoxNotFound
		}
		return nil, fmt.Errorf("failed to fetch notification box: %v", err)
	}
	return &box, nil
}

// CreateBox inserts a new box.
func (r *BoxRepository) CreateBox(ctx context.Context, box *models.NotificationBox) error {
	now := time.Now()
	box.CreatedAt = now
	box.UpdatedAt = now

	if _, err := r.collection.InsertOne(ctx, box); err != nil {
		logrus.WithField("boxKey", box.ID).WithError(err).Error("Failed to insert notification box")
		return fmt.Errorf("failed to create notification box: %v", err)
	}
	return nil
}

// UpdateBox replaces the stored box with the given state.
func (r *BoxRepository) UpdateBox(ctx context.Context, box *models.NotificationBox) error {
	box.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": box.ID}, box)
	if err != nil {
		logrus.WithField("boxKey", box.ID).WithError(err).Error("Failed to update notification box")
		return fmt.Errorf("failed to update notification box: %v", err)
	}
	return nil
}

// GetBoxesNeedingSync returns boxes flagged for initialization.
func (r *BoxRepository) GetBoxesNeedingSync(ctx context.Context, limit int64) ([]models.NotificationBox, error) {
	opts := options.Find().SetLimit(limit)
	cursor, err := r.collection.Find(ctx, bson.M{"s": true}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch boxes needing sync: %v", err)
	}
	defer cursor.Close(ctx)

	var boxes []models.NotificationBox
	if err := cursor.All(ctx, &boxes); err != nil {
		return nil, fmt.Errorf("failed to decode boxes needing sync: %v", err)
	}
	return boxes, nil
}
