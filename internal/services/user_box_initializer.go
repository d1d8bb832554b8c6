package services

import (
	"context"
	"errors"
	"strings"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
)

// UserBoxInitializer seeds a user-owned box with its owner as the only
// recipient. Boxes of other owner model types start empty and are administered
// through the recipient update endpoint.
type UserBoxInitializer struct {
	users UserResolver
}

// NewUserBoxInitializer creates a new instance of UserBoxInitializer.
func NewUserBoxInitializer(users UserResolver) *UserBoxInitializer {
	return &UserBoxInitializer{users: users}
}

// InitializeBox resolves the owner uid of "user/<uid>" box keys into the
// initial recipient list.
func (i *UserBoxInitializer) InitializeBox(ctx context.Context, box *models.NotificationBox) ([]models.NotificationBoxRecipient, error) {
	uid, ok := strings.CutPrefix(box.ID, "user/")
	if !ok {
		return nil, nil
	}

	if _, err := i.users.ResolveUser(ctx, uid); err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			// Owner vanished: initialize empty rather than fail forever.
			return nil, nil
		}
		return nil, err
	}

	return []models.NotificationBoxRecipient{{Index: 0, UID: uid}}, nil
}
