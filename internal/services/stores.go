package services

import (
	"context"
	"time"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Store interfaces consumed by the services. The Mongo repositories satisfy
// them in production; tests supply in-memory fakes.

// NotificationStore persists queued notifications.
type NotificationStore interface {
	CreateNotification(ctx context.Context, notif *models.Notification) (*models.Notification, error)
	GetNotification(ctx context.Context, id primitive.ObjectID) (*models.Notification, error)
	UpdateNotification(ctx context.Context, notif *models.Notification) error
	DeleteNotification(ctx context.Context, id primitive.ObjectID) error
	GetQueuedNotifications(ctx context.Context, now time.Time, limit int64) ([]models.Notification, error)
	GetDoneNotificationsForBox(ctx context.Context, boxKey string) ([]models.Notification, error)
	GetBoxKeysWithDoneNotifications(ctx context.Context) ([]string, error)
	GetNotificationsForBox(ctx context.Context, boxKey string) ([]models.Notification, error)
}

// BoxStore persists notification boxes.
type BoxStore interface {
	GetBox(ctx context.Context, key string) (*models.NotificationBox, error)
	CreateBox(ctx context.Context, box *models.NotificationBox) error
	UpdateBox(ctx context.Context, box *models.NotificationBox) error
	GetBoxesNeedingSync(ctx context.Context, limit int64) ([]models.NotificationBox, error)
}

// WeekStore persists weekly archive buckets.
type WeekStore interface {
	GetWeek(ctx context.Context, boxKey string, week int) (*models.NotificationWeek, error)
	CreateWeek(ctx context.Context, week *models.NotificationWeek) error
	UpdateWeek(ctx context.Context, week *models.NotificationWeek) error
}

// SummaryStore persists notification summaries.
type SummaryStore interface {
	GetSummary(ctx context.Context, key string) (*models.NotificationSummary, error)
	CreateSummary(ctx context.Context, summary *models.NotificationSummary) error
	UpdateSummary(ctx context.Context, summary *models.NotificationSummary) error
	GetSummariesNeedingSync(ctx context.Context, limit int64) ([]models.NotificationSummary, error)
}

// UserResolver resolves a recipient uid into a contact record. Returns
// models.ErrUserNotFound for unknown uids.
type UserResolver interface {
	ResolveUser(ctx context.Context, uid string) (*models.NotificationUser, error)
}

// TxRunner executes a function inside a store transaction.
type TxRunner interface {
	RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EmailSender delivers one rendered email and returns the provider delivery id.
type EmailSender interface {
	SendEmail(ctx context.Context, msg EmailMessage) (string, error)
}

// TextSender delivers one rendered text message and returns the provider
// delivery id.
type TextSender interface {
	SendText(ctx context.Context, msg TextMessage) (string, error)
}

// EmailMessage is a provider-ready email request.
type EmailMessage struct {
	To      string
	Name    string
	Subject string
	Body    string
	URL     string
}

// TextMessage is a provider-ready text message request.
type TextMessage struct {
	To   string
	Body string
}
