package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Daniyar2203/Notification_Engine/internal/models"
	"github.com/Daniyar2203/Notification_Engine/internal/services"
	"github.com/Daniyar2203/Notification_Engine/pkg/logger"
	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationHandler exposes the dispatch engine's RPC surface.
type NotificationHandler struct {
	Service *services.DispatchService
}

// NewNotificationHandler creates a new instance of NotificationHandler.
func NewNotificationHandler(service *services.DispatchService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

// POST /notifications
func (h *NotificationHandler) CreateNotificationHandler(w http.ResponseWriter, r *http.Request) {
	var tmpl models.NotificationTemplate
	if err := json.NewDecoder(r.Body).Decode(&tmpl); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	if tmpl.Type == "" {
		http.Error(w, "Notification type is required", http.StatusBadRequest)
		return
	}

	created, err := h.Service.CreateNotificationInTransaction(r.Context(), tmpl)
	if err != nil {
		logger.Log.Errorf("Failed to create notification: %v", err)
		http.Error(w, "Failed to create notification", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(created)
}

// POST /notifications/{id}/send
func (h *NotificationHandler) SendNotificationHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	notifID, err := primitive.ObjectIDFromHex(vars["id"])
	if err != nil {
		http.Error(w, "Invalid notification ID", http.StatusBadRequest)
		return
	}

	opts := services.SendOptions{
		IgnoreSendAtThrottle: r.URL.Query().Get("ignore_throttle") == "true",
	}

	result, err := h.Service.SendNotification(r.Context(), notifID, opts)
	if err != nil {
		status := statusForError(err)
		logger.Log.Errorf("Failed to send notification: %v", err)
		http.Error(w, err.Error(), status)
		return
	}
	if result.QueuedForInitialization {
		err := models.ErrQueuedForInitialization
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// POST /notifications/send-queued
func (h *NotificationHandler) SendQueuedNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.Service.SendAllQueuedNotifications(r.Context())
	if err != nil {
		logger.Log.Errorf("Queued notification sweep failed: %v", err)
		http.Error(w, "Sweep failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// GET /boxes/{key}/notifications
func (h *NotificationHandler) GetBoxNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	boxKey := mux.Vars(r)["key"]

	notifications, err := h.Service.GetNotificationsForBox(r.Context(), boxKey)
	if err != nil {
		logger.Log.Errorf("Failed to fetch notifications: %v", err)
		http.Error(w, "Failed to get notifications", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(notifications)
}
