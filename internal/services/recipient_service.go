package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"github.com/sirupsen/logrus"
)

// EmailRecipient is one concrete email delivery destination.
type EmailRecipient struct {
	Email string
	Name  string
	UID   string
}

// TextRecipient is one concrete text delivery destination.
type TextRecipient struct {
	Phone string
	UID   string
}

// ExpandedRecipients is the result of resolving a notification's target list.
type ExpandedRecipients struct {
	EmailRecipients       []EmailRecipient
	TextRecipients        []TextRecipient
	NotificationSummaries []string
}

// SummaryIDForUIDFunc maps a uid-based recipient to a summary key, so uid
// recipients additionally collect deliveries in their summary. Optional.
type SummaryIDForUIDFunc func(uid string) string

// RecipientExpander resolves recipient lists into concrete destinations.
type RecipientExpander struct {
	users           UserResolver
	summaryIDForUID SummaryIDForUIDFunc
}

// NewRecipientExpander creates a new instance of RecipientExpander. The
// summaryIDForUID hook may be nil, in which case only explicit summary ids
// expand.
func NewRecipientExpander(users UserResolver, summaryIDForUID SummaryIDForUIDFunc) *RecipientExpander {
	return &RecipientExpander{
		users:           users,
		summaryIDForUID: summaryIDForUID,
	}
}

// ExpandRecipients merges box-level recipients with the notification's own and
// resolves each into concrete destinations. Box recipients come first, then
// the notification's explicit recipients, both in list order. A uid that no
// longer resolves is skipped silently.
func (e *RecipientExpander) ExpandRecipients(ctx context.Context, notif *models.Notification, box *models.NotificationBox) (*ExpandedRecipients, error) {
	var recipients []models.NotificationBoxRecipient
	if box != nil && notif.RecipientFlag != models.RecipientFlagSkipBoxRecipients {
		recipients = append(recipients, box.Recipients...)
	}
	recipients = append(recipients, notif.Recipients...)

	expanded := &ExpandedRecipients{}
	for _, recipient := range recipients {
		if err := e.expandOne(ctx, recipient, expanded); err != nil {
			return nil, err
		}
	}
	return expanded, nil
}

func (e *RecipientExpander) expandOne(ctx context.Context, recipient models.NotificationBoxRecipient, out *ExpandedRecipients) error {
	email := recipient.Email
	phone := recipient.Text
	name := ""

	if recipient.UID != "" {
		user, err := e.users.ResolveUser(ctx, recipient.UID)
		if err != nil {
			if errors.Is(err, models.ErrUserNotFound) {
				logrus.WithField("uid", recipient.UID).Debug("Skipping recipient with unresolved uid")
				return nil
			}
			return fmt.Errorf("failed to resolve recipient uid %s: %v", recipient.UID, err)
		}

		// Explicit e/t on the recipient override the resolved contact info.
		if email == "" {
			email = user.Email
		}
		if phone == "" {
			phone = user.Phone
		}
		name = user.Username

		if e.summaryIDForUID != nil && !recipient.Config.SkipSummary {
			if summaryID := e.summaryIDForUID(recipient.UID); summaryID != "" {
				out.NotificationSummaries = append(out.NotificationSummaries, summaryID)
			}
		}
	}

	if email != "" && !recipient.Config.SkipEmail {
		out.EmailRecipients = append(out.EmailRecipients, EmailRecipient{Email: email, Name: name, UID: recipient.UID})
	}
	if phone != "" && !recipient.Config.SkipText {
		out.TextRecipients = append(out.TextRecipients, TextRecipient{Phone: phone, UID: recipient.UID})
	}
	if recipient.SummaryID != "" && !recipient.Config.SkipSummary {
		out.NotificationSummaries = append(out.NotificationSummaries, recipient.SummaryID)
	}
	return nil
}
