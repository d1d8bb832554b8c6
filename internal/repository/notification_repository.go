package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository handles database operations for queued notifications.
type NotificationRepository struct {
	collection *mongo.Collection
}

// NewNotificationRepository creates a new instance of NotificationRepository.
func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// CreateNotification inserts a new notification and returns it with its id set.
func (r *NotificationRepository) CreateNotification(ctx context.Context, notif *models.Notification) (*models.Notification, error) {
	now := time.Now()
	notif.CreatedAt = now
	notif.UpdatedAt = now
	if notif.SendAt.IsZero() {
		notif.SendAt = now
	}

	result, err := r.collection.InsertOne(ctx, notif)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert notification")
		return nil, fmt.Errorf("failed to create notification: %v", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted notification id")
	}
	notif.ID = insertedID
	return notif, nil
}

// GetNotification fetches a notification by id.
func (r *NotificationRepository) GetNotification(ctx context.Context, id primitive.ObjectID) (*models.Notification, error) {
	var notif models.Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&notif)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotificationNotFound
		}
		return nil, fmt.Errorf("failed to fetch notification: %v", err)
	}
	return &notif, nil
}

// UpdateNotification replaces the stored notification with the given state.
func (r *NotificationRepository) UpdateNotification(ctx context.Context, notif *models.Notification) error {
	notif.UpdatedAt = time.Now()
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": notif.ID}, notif)
	if err != nil {
		logrus.WithField("notificationID", notif.ID.Hex()).WithError(err).Error("Failed to update notification")
		return fmt.Errorf("failed to update notification: %v", err)
	}
	return nil
}

// DeleteNotification removes a notification.
func (r *NotificationRepository) DeleteNotification(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete notification: %v", err)
	}
	return nil
}

// GetQueuedNotifications returns notifications due for a send attempt:
// not done and scheduled at or before now.
func (r *NotificationRepository) GetQueuedNotifications(ctx context.Context, now time.Time, limit int64) ([]models.Notification, error) {
	filter := bson.M{
		"d":   false,
		"sat": bson.M{"$lte": now},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "sat", Value: 1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch queued notifications: %v", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode queued notifications: %v", err)
	}
	return notifications, nil
}

// GetDoneNotificationsForBox returns all sent notifications still stored under a box.
func (r *NotificationRepository) GetDoneNotificationsForBox(ctx context.Context, boxKey string) ([]models.Notification, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"b": boxKey, "d": true})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sent notifications: %v", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode sent notifications: %v", err)
	}
	return notifications, nil
}

// GetBoxKeysWithDoneNotifications returns the distinct box keys that still hold
// sent notifications awaiting archival.
func (r *NotificationRepository) GetBoxKeysWithDoneNotifications(ctx context.Context) ([]string, error) {
	values, err := r.collection.Distinct(ctx, "b", bson.M{"d": true})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch box keys with sent notifications: %v", err)
	}

	keys := make([]string, 0, len(values))
	for _, v := range values {
		if key, ok := v.(string); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// GetNotificationsForBox returns every notification stored under a box.
func (r *NotificationRepository) GetNotificationsForBox(ctx context.Context, boxKey string) ([]models.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "cat", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"b": boxKey}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch notifications for box: %v", err)
	}
	defer cursor.Close(ctx)

	var notifications []models.Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("failed to decode notifications for box: %v", err)
	}
	return notifications, nil
}
