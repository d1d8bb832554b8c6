package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory fakes standing in for the Mongo repositories. They return copies,
// like a decoded document, so callers only persist through Update calls.

type memNotificationStore struct {
	docs map[primitive.ObjectID]models.Notification
}

func newMemNotificationStore() *memNotificationStore {
	return &memNotificationStore{docs: make(map[primitive.ObjectID]models.Notification)}
}

func (s *memNotificationStore) CreateNotification(_ context.Context, notif *models.Notification) (*models.Notification, error) {
	if notif.ID.IsZero() {
		notif.ID = primitive.NewObjectID()
	}
	now := time.Now()
	if notif.CreatedAt.IsZero() {
		notif.CreatedAt = now
	}
	notif.UpdatedAt = now
	if notif.SendAt.IsZero() {
		notif.SendAt = now
	}
	s.docs[notif.ID] = *notif
	return notif, nil
}

func (s *memNotificationStore) GetNotification(_ context.Context, id primitive.ObjectID) (*models.Notification, error) {
	doc, ok := s.docs[id]
	if !ok {
		return nil, models.ErrNotificationNotFound
	}
	return &doc, nil
}

func (s *memNotificationStore) UpdateNotification(_ context.Context, notif *models.Notification) error {
	if _, ok := s.docs[notif.ID]; !ok {
		return fmt.Errorf("update of missing notification %s", notif.ID.Hex())
	}
	notif.UpdatedAt = time.Now()
	s.docs[notif.ID] = *notif
	return nil
}

func (s *memNotificationStore) DeleteNotification(_ context.Context, id primitive.ObjectID) error {
	delete(s.docs, id)
	return nil
}

func (s *memNotificationStore) GetQueuedNotifications(_ context.Context, now time.Time, limit int64) ([]models.Notification, error) {
	var queued []models.Notification
	for _, doc := range s.docs {
		if !doc.Done && !doc.SendAt.After(now) {
			queued = append(queued, doc)
		}
		if int64(len(queued)) >= limit {
			break
		}
	}
	return queued, nil
}

func (s *memNotificationStore) GetDoneNotificationsForBox(_ context.Context, boxKey string) ([]models.Notification, error) {
	var done []models.Notification
	for _, doc := range s.docs {
		if doc.BoxKey == boxKey && doc.Done {
			done = append(done, doc)
		}
	}
	return done, nil
}

func (s *memNotificationStore) GetBoxKeysWithDoneNotifications(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var keys []string
	for _, doc := range s.docs {
		if doc.Done && !seen[doc.BoxKey] {
			seen[doc.BoxKey] = true
			keys = append(keys, doc.BoxKey)
		}
	}
	return keys, nil
}

func (s *memNotificationStore) GetNotificationsForBox(_ context.Context, boxKey string) ([]models.Notification, error) {
	var all []models.Notification
	for _, doc := range s.docs {
		if doc.BoxKey == boxKey {
			all = append(all, doc)
		}
	}
	return all, nil
}

type memBoxStore struct {
	docs map[string]models.NotificationBox
}

func newMemBoxStore() *memBoxStore {
	return &memBoxStore{docs: make(map[string]models.NotificationBox)}
}

func (s *memBoxStore) GetBox(_ context.Context, key string) (*models.NotificationBox, error) {
	doc, ok := s.docs[key]
	if !ok {
		return nil, models.ErrBoxNotFound
	}
	return &doc, nil
}

func (s *memBoxStore) CreateBox(_ context.Context, box *models.NotificationBox) error {
	if _, exists := s.docs[box.ID]; exists {
		return fmt.Errorf("box %s already exists", box.ID)
	}
	now := time.Now()
	box.CreatedAt = now
	box.UpdatedAt = now
	s.docs[box.ID] = *box
	return nil
}

func (s *memBoxStore) UpdateBox(_ context.Context, box *models.NotificationBox) error {
	if _, ok := s.docs[box.ID]; !ok {
		return fmt.Errorf("update of missing box %s", box.ID)
	}
	box.UpdatedAt = time.Now()
	s.docs[box.ID] = *box
	return nil
}

func (s *memBoxStore) GetBoxesNeedingSync(_ context.Context, limit int64) ([]models.NotificationBox, error) {
	var boxes []models.NotificationBox
	for _, doc := range s.docs {
		if doc.NeedsSync {
			boxes = append(boxes, doc)
		}
		if int64(len(boxes)) >= limit {
			break
		}
	}
	return boxes, nil
}

type memWeekStore struct {
	docs map[string]models.NotificationWeek
}

func newMemWeekStore() *memWeekStore {
	return &memWeekStore{docs: make(map[string]models.NotificationWeek)}
}

func (s *memWeekStore) GetWeek(_ context.Context, boxKey string, week int) (*models.NotificationWeek, error) {
	doc, ok := s.docs[models.WeekID(boxKey, week)]
	if !ok {
		return nil, models.ErrWeekNotFound
	}
	return &doc, nil
}

func (s *memWeekStore) CreateWeek(_ context.Context, week *models.NotificationWeek) error {
	week.ID = models.WeekID(week.BoxKey, week.Week)
	now := time.Now()
	week.CreatedAt = now
	week.UpdatedAt = now
	s.docs[week.ID] = *week
	return nil
}

func (s *memWeekStore) UpdateWeek(_ context.Context, week *models.NotificationWeek) error {
	week.UpdatedAt = time.Now()
	s.docs[week.ID] = *week
	return nil
}

type memSummaryStore struct {
	docs map[string]models.NotificationSummary
}

func newMemSummaryStore() *memSummaryStore {
	return &memSummaryStore{docs: make(map[string]models.NotificationSummary)}
}

func (s *memSummaryStore) GetSummary(_ context.Context, key string) (*models.NotificationSummary, error) {
	doc, ok := s.docs[key]
	if !ok {
		return nil, models.ErrSummaryNotFound
	}
	return &doc, nil
}

func (s *memSummaryStore) CreateSummary(_ context.Context, summary *models.NotificationSummary) error {
	now := time.Now()
	summary.CreatedAt = now
	summary.UpdatedAt = now
	s.docs[summary.ID] = *summary
	return nil
}

func (s *memSummaryStore) UpdateSummary(_ context.Context, summary *models.NotificationSummary) error {
	summary.UpdatedAt = time.Now()
	s.docs[summary.ID] = *summary
	return nil
}

func (s *memSummaryStore) GetSummariesNeedingSync(_ context.Context, limit int64) ([]models.NotificationSummary, error) {
	var summaries []models.NotificationSummary
	for _, doc := range s.docs {
		if doc.NeedsSync {
			summaries = append(summaries, doc)
		}
		if int64(len(summaries)) >= limit {
			break
		}
	}
	return summaries, nil
}

type memUserResolver struct {
	users map[string]models.NotificationUser
}

func newMemUserResolver() *memUserResolver {
	return &memUserResolver{users: make(map[string]models.NotificationUser)}
}

func (r *memUserResolver) add(uid, email, phone, name string) {
	r.users[uid] = models.NotificationUser{UID: uid, Email: email, Phone: phone, Username: name}
}

func (r *memUserResolver) ResolveUser(_ context.Context, uid string) (*models.NotificationUser, error) {
	user, ok := r.users[uid]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	return &user, nil
}

// passthroughTx runs the function directly: the fakes have no transactions.
type passthroughTx struct{}

func (passthroughTx) RunTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type sentEmail struct {
	msg EmailMessage
}

type recordingEmailSender struct {
	sent []sentEmail
	fail bool
}

func (s *recordingEmailSender) SendEmail(_ context.Context, msg EmailMessage) (string, error) {
	if s.fail {
		return "", fmt.Errorf("smtp unavailable")
	}
	s.sent = append(s.sent, sentEmail{msg: msg})
	return fmt.Sprintf("email-%d", len(s.sent)), nil
}

type recordingTextSender struct {
	sent []TextMessage
	fail bool
}

func (s *recordingTextSender) SendText(_ context.Context, msg TextMessage) (string, error) {
	if s.fail {
		return "", fmt.Errorf("provider unavailable")
	}
	s.sent = append(s.sent, msg)
	return fmt.Sprintf("text-%d", len(s.sent)), nil
}
