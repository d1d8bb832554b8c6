package cron

import (
	"context"

	"github.com/Daniyar2203/Notification_Engine/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartDispatchCronJobs wires the engine's background sweeps into the process
// scheduler: queued sends every minute, box/summary initialization every five,
// archival cleanup nightly.
func StartDispatchCronJobs(dispatchService *services.DispatchService, boxService *services.BoxService) *cron.Cron {
	c := cron.New()

	sendQueued := dispatchService.SendQueuedNotificationsJob()
	c.AddFunc("* * * * *", func() {
		if _, err := sendQueued(context.Background()); err != nil {
			logrus.WithError(err).Error("SendAllQueuedNotifications failed")
		}
	})

	initBoxes := boxService.InitializeAllApplicableNotificationBoxesJob()
	c.AddFunc("*/5 * * * *", func() {
		if _, err := initBoxes(context.Background()); err != nil {
			logrus.WithError(err).Error("InitializeAllApplicableNotificationBoxes failed")
		}
	})

	initSummaries := boxService.InitializeAllApplicableNotificationSummariesJob()
	c.AddFunc("*/5 * * * *", func() {
		if _, err := initSummaries(context.Background()); err != nil {
			logrus.WithError(err).Error("InitializeAllApplicableNotificationSummaries failed")
		}
	})

	cleanup := dispatchService.CleanupAllSentNotificationsJob()
	c.AddFunc("0 3 * * *", func() {
		if _, err := cleanup(context.Background()); err != nil {
			logrus.WithError(err).Error("CleanupAllSentNotifications failed")
		}
	})

	c.Start()
	return c
}
