package handlers

import (
	"errors"
	"net/http"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
)

// statusForError maps the typed contract failures to HTTP status codes.
// Everything else is an internal error.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrBoxNotFound),
		errors.Is(err, models.ErrNotificationNotFound),
		errors.Is(err, models.ErrRecipientNotFound),
		errors.Is(err, models.ErrSummaryNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidUIDForCreate):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFlaggedForSync),
		errors.Is(err, models.ErrQueuedForInitialization):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
