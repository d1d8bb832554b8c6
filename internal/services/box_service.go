package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"github.com/sirupsen/logrus"
)

// BoxInitializer fills in the recipient list of a box that was created lazily
// (flagged needs-sync). The hosting application decides what an owner model's
// initial recipients are.
type BoxInitializer interface {
	InitializeBox(ctx context.Context, box *models.NotificationBox) ([]models.NotificationBoxRecipient, error)
}

// BoxInitializerFunc adapts a function to the BoxInitializer interface.
type BoxInitializerFunc func(ctx context.Context, box *models.NotificationBox) ([]models.NotificationBoxRecipient, error)

// InitializeBox calls f.
func (f BoxInitializerFunc) InitializeBox(ctx context.Context, box *models.NotificationBox) ([]models.NotificationBoxRecipient, error) {
	return f(ctx, box)
}

// UpdateRecipientParams describes one recipient mutation on a box.
type UpdateRecipientParams struct {
	BoxKey string

	UID       string
	Email     string
	Text      string
	SummaryID string

	// Index targets an existing recipient for update or removal. Nil with
	// Insert appends.
	Index  *int
	Insert bool
	Remove bool

	// AllowCreateBoxIfItDoesNotExist creates the box inside the same
	// transaction when it is missing.
	AllowCreateBoxIfItDoesNotExist bool
}

// InitResult aggregates one initialization sweep.
type InitResult struct {
	Visited     int `json:"visited"`
	Initialized int `json:"initialized"`
	Failed      int `json:"failed"`
}

// BoxService implements recipient administration and initialization of lazily
// created boxes and summaries.
type BoxService struct {
	boxes       BoxStore
	summaries   SummaryStore
	users       UserResolver
	tx          TxRunner
	initializer BoxInitializer
	batchSize   int64
}

// NewBoxService creates a new instance of BoxService.
func NewBoxService(boxes BoxStore, summaries SummaryStore, users UserResolver, tx TxRunner, initializer BoxInitializer, batchSize int) *BoxService {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &BoxService{
		boxes:       boxes,
		summaries:   summaries,
		users:       users,
		tx:          tx,
		initializer: initializer,
		batchSize:   int64(batchSize),
	}
}

// UpdateNotificationBoxRecipient mutates a box's recipient list inside a store
// transaction.
//
// Recipient lists are not deduplicated: repeated inserts of the same email are
// the intended outcome.
func (s *BoxService) UpdateNotificationBoxRecipient(ctx context.Context, params UpdateRecipientParams) error {
	return s.tx.RunTransaction(ctx, func(ctx context.Context) error {
		box, err := s.boxes.GetBox(ctx, params.BoxKey)
		created := false
		if err != nil {
			if !errors.Is(err, models.ErrBoxNotFound) {
				return err
			}
			if !params.AllowCreateBoxIfItDoesNotExist {
				return models.ErrBoxNotFound
			}
			box = &models.NotificationBox{ID: params.BoxKey}
			if err := s.boxes.CreateBox(ctx, box); err != nil {
				return err
			}
			created = true
		}

		// A uid supplied on insert or update must resolve to a real user.
		if params.UID != "" {
			if _, err := s.users.ResolveUser(ctx, params.UID); err != nil {
				if errors.Is(err, models.ErrUserNotFound) {
					return models.ErrInvalidUIDForCreate
				}
				return err
			}
		}

		switch {
		case params.Remove:
			if params.Index == nil {
				return fmt.Errorf("remove requires an index")
			}
			idx, ok := findRecipientIndex(box.Recipients, *params.Index)
			if !ok {
				return models.ErrRecipientNotFound
			}
			box.Recipients = append(box.Recipients[:idx], box.Recipients[idx+1:]...)

		case params.Insert && params.Index == nil:
			box.Recipients = append(box.Recipients, models.NotificationBoxRecipient{
				Index:     nextRecipientIndex(box.Recipients),
				UID:       params.UID,
				Email:     params.Email,
				Text:      params.Text,
				SummaryID: params.SummaryID,
			})

		case params.Index != nil:
			idx, ok := findRecipientIndex(box.Recipients, *params.Index)
			if !ok {
				if !params.Insert {
					return models.ErrRecipientNotFound
				}
				box.Recipients = append(box.Recipients, models.NotificationBoxRecipient{
					Index:     *params.Index,
					UID:       params.UID,
					Email:     params.Email,
					Text:      params.Text,
					SummaryID: params.SummaryID,
				})
				break
			}
			recipient := &box.Recipients[idx]
			if params.UID != "" {
				recipient.UID = params.UID
			}
			if params.Email != "" {
				recipient.Email = params.Email
			}
			if params.Text != "" {
				recipient.Text = params.Text
			}
			if params.SummaryID != "" {
				recipient.SummaryID = params.SummaryID
			}

		default:
			return fmt.Errorf("recipient update requires insert, remove or an index")
		}

		if err := s.boxes.UpdateBox(ctx, box); err != nil {
			return err
		}
		logrus.WithFields(logrus.Fields{
			"boxKey":     params.BoxKey,
			"created":    created,
			"recipients": len(box.Recipients),
		}).Info("Notification box recipients updated")
		return nil
	})
}

// InitializeNotificationBox runs the configured initializer on one box flagged
// for sync and clears the flag.
func (s *BoxService) InitializeNotificationBox(ctx context.Context, boxKey string) error {
	return s.tx.RunTransaction(ctx, func(ctx context.Context) error {
		box, err := s.boxes.GetBox(ctx, boxKey)
		if err != nil {
			return err
		}
		if !box.NeedsSync {
			return models.ErrNotFlaggedForSync
		}

		recipients, err := s.initializer.InitializeBox(ctx, box)
		if err != nil {
			return fmt.Errorf("box initializer failed for %s: %v", boxKey, err)
		}

		box.Recipients = append(box.Recipients, recipients...)
		box.NeedsSync = false
		return s.boxes.UpdateBox(ctx, box)
	})
}

// InitializeAllApplicableNotificationBoxes sweeps boxes flagged for sync and
// initializes each. Per-box failures are counted, not propagated.
func (s *BoxService) InitializeAllApplicableNotificationBoxes(ctx context.Context) (*InitResult, error) {
	boxes, err := s.boxes.GetBoxesNeedingSync(ctx, s.batchSize)
	if err != nil {
		return nil, err
	}

	result := &InitResult{}
	for i := range boxes {
		result.Visited++
		if err := s.InitializeNotificationBox(ctx, boxes[i].ID); err != nil {
			result.Failed++
			logrus.WithField("boxKey", boxes[i].ID).WithError(err).Warn("Failed to initialize notification box")
			continue
		}
		result.Initialized++
	}
	return result, nil
}

// InitializeAllApplicableNotificationSummaries sweeps summaries flagged for
// sync and clears the flag on each.
func (s *BoxService) InitializeAllApplicableNotificationSummaries(ctx context.Context) (*InitResult, error) {
	summaries, err := s.summaries.GetSummariesNeedingSync(ctx, s.batchSize)
	if err != nil {
		return nil, err
	}

	result := &InitResult{}
	for i := range summaries {
		result.Visited++
		summary := summaries[i]
		err := s.tx.RunTransaction(ctx, func(ctx context.Context) error {
			current, err := s.summaries.GetSummary(ctx, summary.ID)
			if err != nil {
				return err
			}
			if !current.NeedsSync {
				return models.ErrNotFlaggedForSync
			}
			current.NeedsSync = false
			return s.summaries.UpdateSummary(ctx, current)
		})
		if err != nil {
			result.Failed++
			logrus.WithField("summaryKey", summary.ID).WithError(err).Warn("Failed to initialize notification summary")
			continue
		}
		result.Initialized++
	}
	return result, nil
}

// InitializeAllApplicableNotificationBoxesJob returns a closure suited for a
// scheduled job.
func (s *BoxService) InitializeAllApplicableNotificationBoxesJob() func(ctx context.Context) (*InitResult, error) {
	return func(ctx context.Context) (*InitResult, error) {
		return s.InitializeAllApplicableNotificationBoxes(ctx)
	}
}

// InitializeAllApplicableNotificationSummariesJob returns a closure suited for
// a scheduled job.
func (s *BoxService) InitializeAllApplicableNotificationSummariesJob() func(ctx context.Context) (*InitResult, error) {
	return func(ctx context.Context) (*InitResult, error) {
		return s.InitializeAllApplicableNotificationSummaries(ctx)
	}
}

func findRecipientIndex(recipients []models.NotificationBoxRecipient, index int) (int, bool) {
	for i := range recipients {
		if recipients[i].Index == index {
			return i, true
		}
	}
	return 0, false
}

func nextRecipientIndex(recipients []models.NotificationBoxRecipient) int {
	next := 0
	for i := range recipients {
		if recipients[i].Index >= next {
			next = recipients[i].Index + 1
		}
	}
	return next
}
