package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"github.com/Daniyar2203/Notification_Engine/internal/tasks"
	"github.com/Daniyar2203/Notification_Engine/internal/template"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newItemID() string {
	return uuid.NewString()
}

// Backoff for notifications whose type cannot be resolved: 1m, 2m, 4m, ...
// capped at 64m. Monotonic so a poison notification drains out of the hot part
// of the queue while it burns through its remaining attempts.
const (
	unknownTypeBackoffBase = time.Minute
	unknownTypeBackoffCap  = 64 * time.Minute
)

// SendOptions tweaks a single send attempt.
type SendOptions struct {
	// IgnoreSendAtThrottle sends even when the notification is scheduled for
	// the future.
	IgnoreSendAtThrottle bool
}

// SendResult reports one send attempt.
type SendResult struct {
	TryRun              bool `json:"try_run"`
	Success             bool `json:"success"`
	CreatedBox          bool `json:"created_box,omitempty"`
	DeletedNotification bool `json:"deleted_notification,omitempty"`

	// QueuedForInitialization marks a deferred attempt: the box exists (or
	// was just created) but still waits for its sync.
	QueuedForInitialization bool `json:"queued_for_initialization,omitempty"`

	// Per-channel counts. Nil means the channel was not attempted.
	EmailsSent       *int `json:"emails_sent,omitempty"`
	TextsSent        *int `json:"texts_sent,omitempty"`
	SummariesUpdated *int `json:"summaries_updated,omitempty"`
}

// SweepResult aggregates one queued-notification sweep.
type SweepResult struct {
	NotificationsVisited   int `json:"notifications_visited"`
	NotificationsSucceeded int `json:"notifications_succeeded"`
	NotificationsFailed    int `json:"notifications_failed"`
	NotificationsDeleted   int `json:"notifications_deleted"`
}

// CleanupResult aggregates one archival pass.
type CleanupResult struct {
	NotificationsDeleted     int `json:"notifications_deleted"`
	NotificationWeeksCreated int `json:"notification_weeks_created"`
	NotificationWeeksUpdated int `json:"notification_weeks_updated"`
	NotificationBoxesUpdated int `json:"notification_boxes_updated"`
}

// DispatchService is the notification dispatch engine: it drives every queued
// notification through its send-state machine, sweeps the queue, and archives
// sent notifications into weekly buckets.
type DispatchService struct {
	notifications NotificationStore
	boxes         BoxStore
	weeks         WeekStore
	tx            TxRunner

	expander  *RecipientExpander
	sender    *SendService
	templates *template.Registry
	taskReg   *tasks.Registry

	unknownTypeDeleteAfterAttempts int
	sweepBatchSize                 int64

	// now is swappable for tests.
	now func() time.Time
}

// NewDispatchService creates a new instance of DispatchService.
func NewDispatchService(
	notifications NotificationStore,
	boxes BoxStore,
	weeks WeekStore,
	tx TxRunner,
	expander *RecipientExpander,
	sender *SendService,
	templates *template.Registry,
	taskReg *tasks.Registry,
	unknownTypeDeleteAfterAttempts int,
	sweepBatchSize int,
) *DispatchService {
	if unknownTypeDeleteAfterAttempts <= 0 {
		unknownTypeDeleteAfterAttempts = 5
	}
	if sweepBatchSize <= 0 {
		sweepBatchSize = 100
	}
	return &DispatchService{
		notifications:                  notifications,
		boxes:                          boxes,
		weeks:                          weeks,
		tx:                             tx,
		expander:                       expander,
		sender:                         sender,
		templates:                      templates,
		taskReg:                        taskReg,
		unknownTypeDeleteAfterAttempts: unknownTypeDeleteAfterAttempts,
		sweepBatchSize:                 int64(sweepBatchSize),
		now:                            time.Now,
	}
}

// CreateNotification queues a new notification built from a template.
func (s *DispatchService) CreateNotification(ctx context.Context, tmpl models.NotificationTemplate) (*models.Notification, error) {
	notif := buildNotification(tmpl, s.now())
	return s.notifications.CreateNotification(ctx, notif)
}

// CreateNotificationInTransaction queues a notification as part of an ongoing
// store transaction driven by the caller.
func (s *DispatchService) CreateNotificationInTransaction(ctx context.Context, tmpl models.NotificationTemplate) (*models.Notification, error) {
	var created *models.Notification
	err := s.tx.RunTransaction(ctx, func(ctx context.Context) error {
		var err error
		created, err = s.notifications.CreateNotification(ctx, buildNotification(tmpl, s.now()))
		return err
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func buildNotification(tmpl models.NotificationTemplate, now time.Time) *models.Notification {
	sendAt := tmpl.SendAt
	if sendAt.IsZero() {
		sendAt = now
	}
	return &models.Notification{
		BoxKey: tmpl.BoxKey,
		Item: models.NotificationItem{
			ID:       newItemID(),
			Category: tmpl.Category,
			Type:     tmpl.Type,
			Data:     tmpl.Data,
		},
		Recipients:    tmpl.Recipients,
		RecipientFlag: tmpl.RecipientFlag,
		SendType:      tmpl.SendType,
		SendAt:        sendAt,
	}
}

// GetNotificationsForBox lists every notification stored under a box.
func (s *DispatchService) GetNotificationsForBox(ctx context.Context, boxKey string) ([]models.Notification, error) {
	return s.notifications.GetNotificationsForBox(ctx, boxKey)
}

// SendNotification drives one notification through a single send attempt.
// The whole attempt runs inside a store transaction so concurrent sweeps can
// never double-send.
func (s *DispatchService) SendNotification(ctx context.Context, id primitive.ObjectID, opts SendOptions) (*SendResult, error) {
	var result *SendResult
	err := s.tx.RunTransaction(ctx, func(ctx context.Context) error {
		var err error
		result, err = s.sendNotificationInTx(ctx, id, opts)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *DispatchService) sendNotificationInTx(ctx context.Context, id primitive.ObjectID, opts SendOptions) (*SendResult, error) {
	notif, err := s.notifications.GetNotification(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()

	// An already-done notification is a no-op: it waits for cleanup.
	if notif.Done {
		return &SendResult{TryRun: false, Success: true}, nil
	}

	// Throttle: scheduled for the future, nothing to do yet.
	if now.Before(notif.SendAt) && !opts.IgnoreSendAtThrottle {
		return &SendResult{TryRun: false, Success: false}, nil
	}

	box, result, err := s.resolveBox(ctx, notif)
	if err != nil || result != nil {
		return result, err
	}

	if notif.IsTask() {
		return s.runTaskNotification(ctx, notif, now)
	}

	factory, ok := s.templates.Lookup(notif.Item.Type)
	if !ok {
		return s.handleUnknownType(ctx, notif, now)
	}

	return s.sendRendered(ctx, notif, box, factory)
}

// resolveBox applies the per-SendType box policy. A non-nil result short
// circuits the attempt.
func (s *DispatchService) resolveBox(ctx context.Context, notif *models.Notification) (*models.NotificationBox, *SendResult, error) {
	switch notif.SendType {
	case models.SendTypeSendWithoutCreatingBox:
		return nil, nil, nil

	case models.SendTypeSendIfBoxExists:
		box, err := s.boxes.GetBox(ctx, notif.BoxKey)
		if err != nil {
			if errors.Is(err, models.ErrBoxNotFound) {
				// No box: terminal success without a send.
				if err := s.notifications.DeleteNotification(ctx, notif.ID); err != nil {
					return nil, nil, err
				}
				return nil, &SendResult{TryRun: false, Success: true, DeletedNotification: true}, nil
			}
			return nil, nil, err
		}
		if box.NeedsSync {
			return nil, &SendResult{TryRun: false, Success: false, QueuedForInitialization: true}, nil
		}
		return box, nil, nil

	case models.SendTypeInitBoxAndSend, models.SendTypeTaskNotification:
		box, err := s.boxes.GetBox(ctx, notif.BoxKey)
		if err != nil {
			if errors.Is(err, models.ErrBoxNotFound) {
				if notif.SendType == models.SendTypeTaskNotification {
					// Tasks do not require a box.
					return nil, nil, nil
				}
				created := &models.NotificationBox{ID: notif.BoxKey, NeedsSync: true}
				if err := s.boxes.CreateBox(ctx, created); err != nil {
					return nil, nil, err
				}
				logrus.WithField("boxKey", notif.BoxKey).Info("Created notification box, deferring send until sync")
				return nil, &SendResult{TryRun: false, Success: false, CreatedBox: true, QueuedForInitialization: true}, nil
			}
			return nil, nil, err
		}
		if box.NeedsSync && notif.SendType == models.SendTypeInitBoxAndSend {
			// Box exists but has not been initialized yet: defer.
			return nil, &SendResult{TryRun: false, Success: false, QueuedForInitialization: true}, nil
		}
		return box, nil, nil

	default:
		return nil, nil, fmt.Errorf("unhandled send type %d", notif.SendType)
	}
}

// handleUnknownType applies the poison policy: retry with capped exponential
// backoff, then delete.
func (s *DispatchService) handleUnknownType(ctx context.Context, notif *models.Notification, now time.Time) (*SendResult, error) {
	notif.Attempts++

	if notif.Attempts > s.unknownTypeDeleteAfterAttempts {
		if err := s.notifications.DeleteNotification(ctx, notif.ID); err != nil {
			return nil, err
		}
		logrus.WithFields(logrus.Fields{
			"notificationID": notif.ID.Hex(),
			"type":           notif.Item.Type,
			"attempts":       notif.Attempts,
		}).Warn("Deleted notification with unknown type after max attempts")
		return &SendResult{TryRun: true, Success: false, DeletedNotification: true}, nil
	}

	notif.SendAt = now.Add(unknownTypeBackoff(notif.Attempts))
	if err := s.notifications.UpdateNotification(ctx, notif); err != nil {
		return nil, err
	}
	return &SendResult{TryRun: true, Success: false}, nil
}

func unknownTypeBackoff(attempts int) time.Duration {
	backoff := unknownTypeBackoffBase
	for i := 1; i < attempts && backoff < unknownTypeBackoffCap; i++ {
		backoff *= 2
	}
	if backoff > unknownTypeBackoffCap {
		backoff = unknownTypeBackoffCap
	}
	return backoff
}

// sendRendered performs a normal (non-task) send: expand, render, deliver per
// channel, mark done.
func (s *DispatchService) sendRendered(ctx context.Context, notif *models.Notification, box *models.NotificationBox, factory template.Factory) (*SendResult, error) {
	expanded, err := s.expander.ExpandRecipients(ctx, notif, box)
	if err != nil {
		return nil, err
	}

	renderCtx := template.RenderContext{Item: notif.Item, Notification: notif, Box: box}
	render, err := factory(renderCtx)
	if err != nil {
		return nil, fmt.Errorf("template factory for %q failed: %v", notif.Item.Type, err)
	}

	result := &SendResult{TryRun: true}
	allOK := true

	if len(expanded.EmailRecipients) > 0 && !notif.EmailSent {
		sent, ok := s.sender.SendEmails(ctx, render, expanded.EmailRecipients)
		result.EmailsSent = &sent
		if ok {
			notif.EmailSent = true
		} else {
			allOK = false
		}
	}

	if len(expanded.TextRecipients) > 0 && !notif.TextSent {
		sent, ok := s.sender.SendTexts(ctx, render, expanded.TextRecipients)
		result.TextsSent = &sent
		if ok {
			notif.TextSent = true
		} else {
			allOK = false
		}
	}

	if len(expanded.NotificationSummaries) > 0 && !notif.SummarySent {
		content := summaryContent(render)
		updated, ok := s.sender.DeliverToSummaries(ctx, notif.Item, content, expanded.NotificationSummaries)
		result.SummariesUpdated = &updated
		if ok {
			notif.SummarySent = true
		} else {
			allOK = false
		}
	}

	if allOK {
		notif.Done = true
		result.Success = true
	} else {
		notif.Attempts++
	}

	if err := s.notifications.UpdateNotification(ctx, notif); err != nil {
		return nil, err
	}
	return result, nil
}

// summaryContent renders the recipient-independent content used for summary
// entries. A render failure degrades to empty content rather than failing the
// summary delivery.
func summaryContent(render template.Renderer) template.MessageContent {
	msg, err := render(template.RecipientContext{})
	if err != nil || msg == nil {
		return template.MessageContent{}
	}
	return msg.Content
}

// runTaskNotification advances a checkpointed task by one runner invocation.
func (s *DispatchService) runTaskNotification(ctx context.Context, notif *models.Notification, now time.Time) (*SendResult, error) {
	handler, err := s.taskReg.Lookup(notif.Item.Type)
	if err != nil {
		if errors.Is(err, models.ErrUnknownTaskType) {
			return s.handleUnknownType(ctx, notif, now)
		}
		return nil, err
	}

	outcome, err := handler.RunNext(ctx, notif)
	if err != nil {
		// A failing checkpoint counts as a failed attempt and retries later.
		notif.Attempts++
		notif.SendAt = now.Add(unknownTypeBackoff(notif.Attempts))
		if updateErr := s.notifications.UpdateNotification(ctx, notif); updateErr != nil {
			return nil, updateErr
		}
		logrus.WithField("notificationID", notif.ID.Hex()).WithError(err).Warn("Task checkpoint failed")
		return &SendResult{TryRun: true, Success: false}, nil
	}

	notif.CompletedCheckpoints = append(notif.CompletedCheckpoints, outcome.Completed...)
	notif.Item.Data = outcome.Metadata

	result := &SendResult{TryRun: true}
	switch {
	case outcome.DelayUntil != nil:
		// A delay pause is not a failed attempt: the task is healthy and
		// simply waits for its resume time.
		result.TryRun = false
		notif.SendAt = *outcome.DelayUntil
	case outcome.Done:
		notif.Done = true
		result.Success = true
	default:
		// More checkpoints remain; eligible again on the next sweep.
		notif.SendAt = now
	}

	if err := s.notifications.UpdateNotification(ctx, notif); err != nil {
		return nil, err
	}
	return result, nil
}

// SendAllQueuedNotifications sweeps every notification due now. One
// notification's failure never aborts the sweep.
func (s *DispatchService) SendAllQueuedNotifications(ctx context.Context) (*SweepResult, error) {
	queued, err := s.notifications.GetQueuedNotifications(ctx, s.now(), s.sweepBatchSize)
	if err != nil {
		return nil, err
	}

	result := &SweepResult{}
	for i := range queued {
		result.NotificationsVisited++

		sendResult, err := s.SendNotification(ctx, queued[i].ID, SendOptions{})
		if err != nil {
			result.NotificationsFailed++
			logrus.WithField("notificationID", queued[i].ID.Hex()).WithError(err).Warn("Send attempt failed during sweep")
			continue
		}
		if sendResult.DeletedNotification {
			result.NotificationsDeleted++
		}
		if sendResult.Success {
			result.NotificationsSucceeded++
		} else if sendResult.TryRun {
			result.NotificationsFailed++
		}
	}

	logrus.WithFields(logrus.Fields{
		"visited":   result.NotificationsVisited,
		"succeeded": result.NotificationsSucceeded,
		"failed":    result.NotificationsFailed,
		"deleted":   result.NotificationsDeleted,
	}).Info("Queued notification sweep completed")
	return result, nil
}

// SendQueuedNotificationsJob returns a closure suited for a scheduled job.
func (s *DispatchService) SendQueuedNotificationsJob() func(ctx context.Context) (*SweepResult, error) {
	return func(ctx context.Context) (*SweepResult, error) {
		return s.SendAllQueuedNotifications(ctx)
	}
}

// CleanupAllSentNotifications archives every done notification of a box into
// its weekly bucket and deletes the source documents.
func (s *DispatchService) CleanupAllSentNotifications(ctx context.Context, boxKey string) (*CleanupResult, error) {
	result := &CleanupResult{}
	err := s.tx.RunTransaction(ctx, func(ctx context.Context) error {
		done, err := s.notifications.GetDoneNotificationsForBox(ctx, boxKey)
		if err != nil {
			return err
		}
		if len(done) == 0 {
			return nil
		}

		// Group by archive week, preserving notification order inside a week.
		weekItems := make(map[int][]models.NotificationItem)
		weekOrder := []int{}
		for i := range done {
			week := models.WeekForTime(done[i].CreatedAt)
			if _, seen := weekItems[week]; !seen {
				weekOrder = append(weekOrder, week)
			}
			weekItems[week] = append(weekItems[week], done[i].Item)
		}

		latestWeek := 0
		for _, week := range weekOrder {
			bucket, err := s.weeks.GetWeek(ctx, boxKey, week)
			if err != nil {
				if !errors.Is(err, models.ErrWeekNotFound) {
					return err
				}
				bucket = &models.NotificationWeek{
					BoxKey:        boxKey,
					Week:          week,
					Notifications: weekItems[week],
				}
				if err := s.weeks.CreateWeek(ctx, bucket); err != nil {
					return err
				}
				result.NotificationWeeksCreated++
			} else {
				bucket.Notifications = append(bucket.Notifications, weekItems[week]...)
				if err := s.weeks.UpdateWeek(ctx, bucket); err != nil {
					return err
				}
				result.NotificationWeeksUpdated++
			}
			if week > latestWeek {
				latestWeek = week
			}
		}

		for i := range done {
			if err := s.notifications.DeleteNotification(ctx, done[i].ID); err != nil {
				return err
			}
			result.NotificationsDeleted++
		}

		box, err := s.boxes.GetBox(ctx, boxKey)
		if err != nil {
			if errors.Is(err, models.ErrBoxNotFound) {
				return nil
			}
			return err
		}
		if latestWeek > box.LatestWeek {
			box.LatestWeek = latestWeek
		}
		if err := s.boxes.UpdateBox(ctx, box); err != nil {
			return err
		}
		result.NotificationBoxesUpdated++
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CleanupAllSentNotificationsJob sweeps every box that still holds sent
// notifications. Per-box failures are counted into the aggregate, not thrown.
func (s *DispatchService) CleanupAllSentNotificationsJob() func(ctx context.Context) (*CleanupResult, error) {
	return func(ctx context.Context) (*CleanupResult, error) {
		keys, err := s.notifications.GetBoxKeysWithDoneNotifications(ctx)
		if err != nil {
			return nil, err
		}

		total := &CleanupResult{}
		for _, key := range keys {
			partial, err := s.CleanupAllSentNotifications(ctx, key)
			if err != nil {
				logrus.WithField("boxKey", key).WithError(err).Warn("Cleanup failed for box")
				continue
			}
			total.NotificationsDeleted += partial.NotificationsDeleted
			total.NotificationWeeksCreated += partial.NotificationWeeksCreated
			total.NotificationWeeksUpdated += partial.NotificationWeeksUpdated
			total.NotificationBoxesUpdated += partial.NotificationBoxesUpdated
		}
		return total, nil
	}
}
