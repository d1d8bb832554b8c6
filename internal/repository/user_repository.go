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
)

// UserRepository handles database operations for notification users.
type UserRepository struct {
	collection *mongo.Collection
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{
		collection: db.Collection("notification_users"),
	}
}

// CreateUser inserts a new user.
func (r *UserRepository) CreateUser(ctx context.Context, user *models.NotificationUser) (*models.NotificationUser, error) {
	user.CreatedAt = time.Now()
	user.UpdatedAt = time.Now()

	if _, err := r.collection.InsertOne(ctx, user); err != nil {
		logrus.WithError(err).Error("Failed to insert user into database")
		return nil, fmt.Errorf("failed to insert user: %v", err)
	}

	logrus.WithField("uid", user.UID).Info("User inserted successfully")
	return user, nil
}

// ResolveUser fetches the contact record for a uid.
func (r *UserRepository) ResolveUser(ctx context.Context, uid string) (*models.NotificationUser, error) {
	var user models.NotificationUser
	err := r.collection.FindOne(ctx, bson.M{"_id": uid}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to resolve user %s: %v", uid, err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email.
func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (*models.NotificationUser, error) {
	var user models.NotificationUser
	err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"email": email,
			"error": err,
		}).Warn("Failed to find user by email")
		return nil, fmt.Errorf("failed to find user by email: %v", err)
	}
	return &user, nil
}

// UpdateUser updates an existing user's details.
func (r *UserRepository) UpdateUser(ctx context.Context, user *models.NotificationUser) error {
	user.UpdatedAt = time.Now()
	_, err := r.collection.UpdateOne(ctx, bson.M{"_id": user.UID}, bson.M{"$set": user})
	if err != nil {
		logrus.WithField("uid", user.UID).WithError(err).Error("Failed to update user")
		return fmt.Errorf("failed to update user: %v", err)
	}
	return nil
}
