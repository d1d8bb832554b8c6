package services

import (
	"context"
	"testing"
	"time"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"github.com/Daniyar2203/Notification_Engine/internal/tasks"
	"github.com/Daniyar2203/Notification_Engine/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dispatchFixture struct {
	notifs    *memNotificationStore
	boxes     *memBoxStore
	weeks     *memWeekStore
	summaries *memSummaryStore
	users     *memUserResolver
	emails    *recordingEmailSender
	texts     *recordingTextSender
	templates *template.Registry
	taskReg   *tasks.Registry
	svc       *DispatchService

	now time.Time
}

func newDispatchFixture(t *testing.T) *dispatchFixture {
	t.Helper()

	f := &dispatchFixture{
		notifs:    newMemNotificationStore(),
		boxes:     newMemBoxStore(),
		weeks:     newMemWeekStore(),
		summaries: newMemSummaryStore(),
		users:     newMemUserResolver(),
		emails:    &recordingEmailSender{},
		texts:     &recordingTextSender{},
		templates: template.NewRegistry(),
		taskReg:   tasks.NewRegistry(),
		now:       time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC),
	}

	err := f.templates.Register("test_message", func(ctx template.RenderContext) (template.Renderer, error) {
		return func(rc template.RecipientContext) (*template.Message, error) {
			return &template.Message{Content: template.MessageContent{
				Subject: "Test",
				Body:    "Hello",
			}}, nil
		}, nil
	})
	require.NoError(t, err)

	expander := NewRecipientExpander(f.users, nil)
	sender := NewSendService(f.emails, f.texts, f.summaries)
	f.svc = NewDispatchService(
		f.notifs, f.boxes, f.weeks, passthroughTx{},
		expander, sender, f.templates, f.taskReg,
		2, 100,
	)
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *dispatchFixture) queue(t *testing.T, tmpl models.NotificationTemplate) *models.Notification {
	t.Helper()
	if tmpl.SendAt.IsZero() {
		tmpl.SendAt = f.now
	}
	created, err := f.svc.CreateNotification(context.Background(), tmpl)
	require.NoError(t, err)
	return created
}

func TestSendNotificationInitBoxAndSendCreatesBox(t *testing.T) {
	f := newDispatchFixture(t)
	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "test_message",
		SendType: models.SendTypeInitBoxAndSend,
	})

	result, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)

	assert.False(t, result.TryRun)
	assert.False(t, result.Success)
	assert.True(t, result.CreatedBox)
	assert.True(t, result.QueuedForInitialization)

	box, err := f.boxes.GetBox(context.Background(), "user/u1")
	require.NoError(t, err)
	assert.True(t, box.NeedsSync)

	stored, err := f.notifs.GetNotification(context.Background(), notif.ID)
	require.NoError(t, err)
	assert.False(t, stored.Done)

	// Box exists but is still waiting for its sync: the send stays deferred.
	result, err = f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)
	assert.False(t, result.TryRun)
	assert.False(t, result.CreatedBox)
	assert.True(t, result.QueuedForInitialization)
}

func TestSendNotificationSendsOnceBoxIsInitialized(t *testing.T) {
	f := newDispatchFixture(t)
	f.users.add("u1", "u1@example.com", "+77010000001", "User One")
	f.boxes.docs["user/u1"] = models.NotificationBox{
		ID:         "user/u1",
		Recipients: []models.NotificationBoxRecipient{{Index: 0, UID: "u1"}},
	}

	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "test_message",
		SendType: models.SendTypeInitBoxAndSend,
	})

	result, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)

	assert.True(t, result.TryRun)
	assert.True(t, result.Success)
	require.NotNil(t, result.EmailsSent)
	assert.Equal(t, 1, *result.EmailsSent)
	require.NotNil(t, result.TextsSent)
	assert.Equal(t, 1, *result.TextsSent)

	stored, err := f.notifs.GetNotification(context.Background(), notif.ID)
	require.NoError(t, err)
	assert.True(t, stored.Done)
	assert.True(t, stored.EmailSent)
	assert.True(t, stored.TextSent)
}

func TestSendNotificationIfBoxExistsDeletesWithoutBox(t *testing.T) {
	f := newDispatchFixture(t)
	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "guestbook/g1",
		Type:     "test_message",
		SendType: models.SendTypeSendIfBoxExists,
	})

	result, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)

	assert.False(t, result.TryRun)
	assert.True(t, result.Success)
	assert.True(t, result.DeletedNotification)

	_, err = f.notifs.GetNotification(context.Background(), notif.ID)
	assert.ErrorIs(t, err, models.ErrNotificationNotFound)

	_, err = f.boxes.GetBox(context.Background(), "guestbook/g1")
	assert.ErrorIs(t, err, models.ErrBoxNotFound)
}

func TestSendNotificationWithoutCreatingBox(t *testing.T) {
	f := newDispatchFixture(t)
	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u9",
		Type:     "test_message",
		SendType: models.SendTypeSendWithoutCreatingBox,
		Recipients: []models.NotificationBoxRecipient{
			{Index: 0, Email: "direct@example.com"},
		},
	})

	result, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)

	assert.True(t, result.TryRun)
	assert.True(t, result.Success)
	require.NotNil(t, result.EmailsSent)
	assert.Equal(t, 1, *result.EmailsSent)

	// No box was ever created.
	_, err = f.boxes.GetBox(context.Background(), "user/u9")
	assert.ErrorIs(t, err, models.ErrBoxNotFound)
}

func TestSendNotificationDoneIsNoOp(t *testing.T) {
	f := newDispatchFixture(t)
	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "test_message",
		SendType: models.SendTypeSendWithoutCreatingBox,
		Recipients: []models.NotificationBoxRecipient{
			{Index: 0, Email: "direct@example.com"},
		},
	})

	_, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)
	require.Len(t, f.emails.sent, 1)

	result, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)

	assert.False(t, result.TryRun)
	assert.True(t, result.Success)
	assert.Len(t, f.emails.sent, 1, "done notification must not re-send")
}

func TestSendNotificationThrottle(t *testing.T) {
	f := newDispatchFixture(t)
	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "test_message",
		SendType: models.SendTypeSendWithoutCreatingBox,
		SendAt:   f.now.Add(time.Minute),
		Recipients: []models.NotificationBoxRecipient{
			{Index: 0, Email: "direct@example.com"},
		},
	})

	result, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)

	assert.False(t, result.TryRun)
	assert.False(t, result.Success)

	stored, err := f.notifs.GetNotification(context.Background(), notif.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Attempts)
	assert.Empty(t, f.emails.sent)

	// The throttle can be bypassed explicitly.
	result, err = f.svc.SendNotification(context.Background(), notif.ID, SendOptions{IgnoreSendAtThrottle: true})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, f.emails.sent, 1)
}

func TestUnknownTemplateTypeRetriesThenDeletes(t *testing.T) {
	f := newDispatchFixture(t)
	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "no_such_type",
		SendType: models.SendTypeSendWithoutCreatingBox,
	})

	// Attempts 1 and 2 back off; the configured limit is 2.
	for attempt := 1; attempt <= 2; attempt++ {
		sweep, err := f.svc.SendAllQueuedNotifications(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, sweep.NotificationsVisited)
		assert.Equal(t, 0, sweep.NotificationsDeleted)

		stored, err := f.notifs.GetNotification(context.Background(), notif.ID)
		require.NoError(t, err)
		assert.Equal(t, attempt, stored.Attempts)
		assert.True(t, stored.SendAt.After(f.now))

		f.now = stored.SendAt
	}

	// The next attempt exceeds the limit and deletes the notification.
	sweep, err := f.svc.SendAllQueuedNotifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sweep.NotificationsDeleted)

	_, err = f.notifs.GetNotification(context.Background(), notif.ID)
	assert.ErrorIs(t, err, models.ErrNotificationNotFound)
}

func TestChannelFailureIsIsolated(t *testing.T) {
	f := newDispatchFixture(t)
	f.emails.fail = true
	f.users.add("u1", "u1@example.com", "+77010000001", "User One")
	f.boxes.docs["user/u1"] = models.NotificationBox{
		ID:         "user/u1",
		Recipients: []models.NotificationBoxRecipient{{Index: 0, UID: "u1"}},
	}

	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "test_message",
		SendType: models.SendTypeSendIfBoxExists,
	})

	result, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)

	// Email failed, text still went out.
	assert.True(t, result.TryRun)
	assert.False(t, result.Success)
	assert.Len(t, f.texts.sent, 1)

	stored, err := f.notifs.GetNotification(context.Background(), notif.ID)
	require.NoError(t, err)
	assert.False(t, stored.Done)
	assert.True(t, stored.TextSent)
	assert.False(t, stored.EmailSent)
	assert.Equal(t, 1, stored.Attempts)

	// Retry after the provider recovers: only email is attempted again.
	f.emails.fail = false
	result, err = f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, f.emails.sent, 1)
	assert.Len(t, f.texts.sent, 1, "text channel must not re-send")
}

func TestSummaryDelivery(t *testing.T) {
	f := newDispatchFixture(t)
	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "test_message",
		SendType: models.SendTypeSendWithoutCreatingBox,
		Recipients: []models.NotificationBoxRecipient{
			{Index: 0, SummaryID: "summary/user/u1"},
		},
	})

	result, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.NotNil(t, result.SummariesUpdated)
	assert.Equal(t, 1, *result.SummariesUpdated)

	summary, err := f.summaries.GetSummary(context.Background(), "summary/user/u1")
	require.NoError(t, err)
	require.Len(t, summary.Entries, 1)
	assert.Equal(t, "Test", summary.Entries[0].Subject)
	assert.Equal(t, notif.Item.ID, summary.Entries[0].ItemID)
}

func TestCleanupArchivesSentNotifications(t *testing.T) {
	f := newDispatchFixture(t)
	f.boxes.docs["user/u1"] = models.NotificationBox{ID: "user/u1"}

	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "test_message",
		SendType: models.SendTypeSendWithoutCreatingBox,
		Recipients: []models.NotificationBoxRecipient{
			{Index: 0, Email: "direct@example.com"},
		},
	})
	_, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)

	result, err := f.svc.CleanupAllSentNotifications(context.Background(), "user/u1")
	require.NoError(t, err)

	assert.Equal(t, 1, result.NotificationsDeleted)
	assert.Equal(t, 1, result.NotificationWeeksCreated)
	assert.Equal(t, 0, result.NotificationWeeksUpdated)
	assert.Equal(t, 1, result.NotificationBoxesUpdated)

	remaining, err := f.notifs.GetNotificationsForBox(context.Background(), "user/u1")
	require.NoError(t, err)
	assert.Empty(t, remaining)

	week := models.WeekForTime(notif.CreatedAt)
	bucket, err := f.weeks.GetWeek(context.Background(), "user/u1", week)
	require.NoError(t, err)
	require.Len(t, bucket.Notifications, 1)
	assert.Equal(t, notif.Item.ID, bucket.Notifications[0].ID)

	box, err := f.boxes.GetBox(context.Background(), "user/u1")
	require.NoError(t, err)
	assert.Equal(t, week, box.LatestWeek)

	// A second archived notification merges into the existing bucket.
	second := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "test_message",
		SendType: models.SendTypeSendWithoutCreatingBox,
		Recipients: []models.NotificationBoxRecipient{
			{Index: 0, Email: "direct@example.com"},
		},
	})
	_, err = f.svc.SendNotification(context.Background(), second.ID, SendOptions{})
	require.NoError(t, err)

	result, err = f.svc.CleanupAllSentNotifications(context.Background(), "user/u1")
	require.NoError(t, err)
	assert.Equal(t, 1, result.NotificationsDeleted)
	assert.Equal(t, 0, result.NotificationWeeksCreated)
	assert.Equal(t, 1, result.NotificationWeeksUpdated)
}

func TestTaskNotificationRunsOneCheckpointPerInvocation(t *testing.T) {
	f := newDispatchFixture(t)

	var runs []string
	err := f.taskReg.Register(tasks.Handler{
		Type: "export_report",
		Flow: []tasks.Checkpoint{
			{Name: "gather", Fn: func(ctx context.Context, task *tasks.Task) (*tasks.CheckpointResult, error) {
				runs = append(runs, "gather")
				return &tasks.CheckpointResult{UpdateMetadata: map[string]interface{}{"rows": 42}}, nil
			}},
			{Name: "publish", Fn: func(ctx context.Context, task *tasks.Task) (*tasks.CheckpointResult, error) {
				runs = append(runs, "publish")
				return &tasks.CheckpointResult{Complete: true}, nil
			}},
		},
	})
	require.NoError(t, err)

	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "export_report",
		SendType: models.SendTypeTaskNotification,
	})

	result, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)
	assert.True(t, result.TryRun)
	assert.False(t, result.Success)
	assert.Equal(t, []string{"gather"}, runs)

	stored, err := f.notifs.GetNotification(context.Background(), notif.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"gather"}, stored.CompletedCheckpoints)
	assert.Equal(t, 42, stored.Item.Data["rows"])
	assert.False(t, stored.Done)

	result, err = f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, []string{"gather", "publish"}, runs)

	stored, err = f.notifs.GetNotification(context.Background(), notif.ID)
	require.NoError(t, err)
	assert.True(t, stored.Done)
}

func TestTaskNotificationDelayUntilReschedules(t *testing.T) {
	f := newDispatchFixture(t)
	resume := f.now.Add(30 * time.Minute)

	gatherRuns := 0
	err := f.taskReg.Register(tasks.Handler{
		Type: "digest",
		Flow: []tasks.Checkpoint{
			{Name: "wait_for_data", Fn: func(ctx context.Context, task *tasks.Task) (*tasks.CheckpointResult, error) {
				gatherRuns++
				if _, ready := task.Metadata["ready"]; !ready {
					return &tasks.CheckpointResult{
						UpdateMetadata: map[string]interface{}{"ready": true},
						DelayUntil:     &resume,
					}, nil
				}
				return &tasks.CheckpointResult{}, nil
			}},
			{Name: "deliver", Fn: func(ctx context.Context, task *tasks.Task) (*tasks.CheckpointResult, error) {
				return &tasks.CheckpointResult{Complete: true}, nil
			}},
		},
	})
	require.NoError(t, err)

	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "digest",
		SendType: models.SendTypeTaskNotification,
	})

	result, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)
	assert.False(t, result.TryRun, "delay pause is a deferred attempt")
	assert.False(t, result.Success)

	stored, err := f.notifs.GetNotification(context.Background(), notif.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.CompletedCheckpoints, "delayed checkpoint is not complete")
	assert.Equal(t, resume, stored.SendAt)
	assert.Equal(t, 1, gatherRuns)

	// Before the delay elapses a sweep will not pick it up.
	sweep, err := f.svc.SendAllQueuedNotifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, sweep.NotificationsVisited)

	// After the delay the same checkpoint re-runs from its stored metadata.
	f.now = resume
	_, err = f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)

	stored, err = f.notifs.GetNotification(context.Background(), notif.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"wait_for_data"}, stored.CompletedCheckpoints)
	assert.Equal(t, 2, gatherRuns)
}

func TestDelayedTaskIsNotCountedAsFailedBySweep(t *testing.T) {
	f := newDispatchFixture(t)
	resume := f.now.Add(45 * time.Minute)

	err := f.taskReg.Register(tasks.Handler{
		Type: "report_wait",
		Flow: []tasks.Checkpoint{
			{Name: "wait", Fn: func(ctx context.Context, task *tasks.Task) (*tasks.CheckpointResult, error) {
				return &tasks.CheckpointResult{DelayUntil: &resume}, nil
			}},
		},
	})
	require.NoError(t, err)

	f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "report_wait",
		SendType: models.SendTypeTaskNotification,
	})

	sweep, err := f.svc.SendAllQueuedNotifications(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, sweep.NotificationsVisited)
	assert.Equal(t, 0, sweep.NotificationsFailed, "a waiting task is healthy")
	assert.Equal(t, 0, sweep.NotificationsSucceeded)
}

func TestTaskNotificationChainMode(t *testing.T) {
	f := newDispatchFixture(t)

	var runs []string
	step := func(name string) tasks.Checkpoint {
		return tasks.Checkpoint{Name: name, Fn: func(ctx context.Context, task *tasks.Task) (*tasks.CheckpointResult, error) {
			runs = append(runs, name)
			return &tasks.CheckpointResult{}, nil
		}}
	}
	err := f.taskReg.Register(tasks.Handler{
		Type: "migrate",
		Flow: []tasks.Checkpoint{step("one"), step("two"), step("three")},
	})
	require.NoError(t, err)

	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "migrate",
		SendType: models.SendTypeTaskNotification,
		Data:     map[string]interface{}{"canRunNextCheckpoint": true},
	})

	result, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)

	// Chain mode runs the whole flow in one invocation.
	assert.True(t, result.Success)
	assert.Equal(t, []string{"one", "two", "three"}, runs)

	stored, err := f.notifs.GetNotification(context.Background(), notif.ID)
	require.NoError(t, err)
	assert.True(t, stored.Done)
	assert.Equal(t, []string{"one", "two", "three"}, stored.CompletedCheckpoints)
}

func TestUnknownTaskTypeFollowsPoisonPolicy(t *testing.T) {
	f := newDispatchFixture(t)
	notif := f.queue(t, models.NotificationTemplate{
		BoxKey:   "user/u1",
		Type:     "never_registered",
		SendType: models.SendTypeTaskNotification,
	})

	result, err := f.svc.SendNotification(context.Background(), notif.ID, SendOptions{})
	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.False(t, result.DeletedNotification)

	stored, err := f.notifs.GetNotification(context.Background(), notif.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Attempts)
}
