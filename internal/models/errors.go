package models

import "errors"

// Contract-level failures surfaced to direct callers. Background sweeps count
// these instead of throwing them; the HTTP layer maps them to status codes.
var (
	// ErrBoxNotFound is returned when a NotificationBox does not exist and the
	// operation was not allowed to create it.
	ErrBoxNotFound = errors.New("notification box not found")

	// ErrNotificationNotFound is returned when a Notification id does not resolve.
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrWeekNotFound is returned when a weekly archive bucket does not exist yet.
	ErrWeekNotFound = errors.New("notification week not found")

	// ErrSummaryNotFound is returned when a notification summary does not exist yet.
	ErrSummaryNotFound = errors.New("notification summary not found")

	// ErrRecipientNotFound is returned when a recipient update targets an index
	// that does not exist and insertion was not requested.
	ErrRecipientNotFound = errors.New("notification box recipient not found")

	// ErrUserNotFound is returned when a uid does not resolve to a user record.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidUIDForCreate is returned when a recipient insert/update supplies
	// a uid that does not resolve to an existing user.
	ErrInvalidUIDForCreate = errors.New("uid does not resolve to an existing user")

	// ErrNotFlaggedForSync is returned when initialization is requested for a
	// box or summary that is not flagged as needing sync.
	ErrNotFlaggedForSync = errors.New("document is not flagged for sync")

	// ErrQueuedForInitialization is returned when an operation requires an
	// initialized box but the box is still waiting for its sync.
	ErrQueuedForInitialization = errors.New("notification box is queued for initialization")

	// ErrUnknownTemplateType is returned when no template factory is registered
	// for a notification's type.
	ErrUnknownTemplateType = errors.New("unknown notification template type")

	// ErrUnknownTaskType is returned when no task flow is registered for a task
	// notification's type.
	ErrUnknownTaskType = errors.New("unknown notification task type")
)
