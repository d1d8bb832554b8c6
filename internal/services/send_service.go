package services

import (
	"context"
	"errors"
	"time"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"github.com/Daniyar2203/Notification_Engine/internal/template"
	"github.com/sirupsen/logrus"
)

// SendService turns expanded recipients plus rendered content into provider
// calls, one channel at a time. A failure on one channel never blocks the
// others.
//
// Delivery state is tracked per channel, not per recipient: when a channel
// fails after delivering to some of its recipients, the retry re-sends the
// whole channel and those recipients may receive the message again.
type SendService struct {
	email     EmailSender
	text      TextSender
	summaries SummaryStore
}

// NewSendService creates a new instance of SendService.
func NewSendService(email EmailSender, text TextSender, summaries SummaryStore) *SendService {
	return &SendService{
		email:     email,
		text:      text,
		summaries: summaries,
	}
}

// SendEmails renders and delivers one email per recipient. Returns how many
// were delivered and whether every recipient succeeded.
func (s *SendService) SendEmails(ctx context.Context, render template.Renderer, recipients []EmailRecipient) (int, bool) {
	sent := 0
	ok := true
	for _, recipient := range recipients {
		msg, err := render(template.RecipientContext{Email: recipient.Email, Name: recipient.Name})
		if err != nil {
			logrus.WithField("email", recipient.Email).WithError(err).Warn("Failed to render email")
			ok = false
			continue
		}

		deliveryID, err := s.email.SendEmail(ctx, EmailMessage{
			To:      recipient.Email,
			Name:    recipient.Name,
			Subject: msg.Content.Subject,
			Body:    msg.Content.Body,
			URL:     msg.Content.ActionURL,
		})
		if err != nil {
			logrus.WithField("email", recipient.Email).WithError(err).Warn("Failed to send email")
			ok = false
			continue
		}
		logrus.WithFields(logrus.Fields{"email": recipient.Email, "deliveryID": deliveryID}).Debug("Email sent")
		sent++
	}
	return sent, ok
}

// SendTexts renders and delivers one text message per recipient.
func (s *SendService) SendTexts(ctx context.Context, render template.Renderer, recipients []TextRecipient) (int, bool) {
	sent := 0
	ok := true
	for _, recipient := range recipients {
		msg, err := render(template.RecipientContext{Phone: recipient.Phone})
		if err != nil {
			logrus.WithField("phone", recipient.Phone).WithError(err).Warn("Failed to render text message")
			ok = false
			continue
		}

		deliveryID, err := s.text.SendText(ctx, TextMessage{
			To:   recipient.Phone,
			Body: msg.Content.Body,
		})
		if err != nil {
			logrus.WithField("phone", recipient.Phone).WithError(err).Warn("Failed to send text message")
			ok = false
			continue
		}
		logrus.WithFields(logrus.Fields{"phone": recipient.Phone, "deliveryID": deliveryID}).Debug("Text message sent")
		sent++
	}
	return sent, ok
}

// DeliverToSummaries appends the rendered content to each target summary,
// creating missing summaries on first delivery.
func (s *SendService) DeliverToSummaries(ctx context.Context, item models.NotificationItem, content template.MessageContent, summaryKeys []string) (int, bool) {
	updated := 0
	ok := true
	entry := models.NotificationSummaryEntry{
		ItemID:  item.ID,
		Type:    item.Type,
		Subject: content.Subject,
		Body:    content.Body,
		SentAt:  time.Now(),
	}

	for _, key := range summaryKeys {
		if err := s.appendToSummary(ctx, key, entry); err != nil {
			logrus.WithField("summaryKey", key).WithError(err).Warn("Failed to deliver to summary")
			ok = false
			continue
		}
		updated++
	}
	return updated, ok
}

func (s *SendService) appendToSummary(ctx context.Context, key string, entry models.NotificationSummaryEntry) error {
	summary, err := s.summaries.GetSummary(ctx, key)
	if err != nil {
		if !errors.Is(err, models.ErrSummaryNotFound) {
			return err
		}
		summary = &models.NotificationSummary{
			ID:       key,
			Entries:  []models.NotificationSummaryEntry{entry},
			LatestAt: entry.SentAt,
		}
		return s.summaries.CreateSummary(ctx, summary)
	}

	summary.Entries = append(summary.Entries, entry)
	summary.LatestAt = entry.SentAt
	return s.summaries.UpdateSummary(ctx, summary)
}
