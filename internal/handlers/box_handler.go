package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/Daniyar2203/Notification_Engine/internal/services"
	"github.com/Daniyar2203/Notification_Engine/pkg/logger"
	"github.com/gorilla/mux"
)

// BoxHandler exposes notification box administration endpoints.
type BoxHandler struct {
	BoxService      *services.BoxService
	DispatchService *services.DispatchService
}

// NewBoxHandler creates a new instance of BoxHandler.
func NewBoxHandler(boxService *services.BoxService, dispatchService *services.DispatchService) *BoxHandler {
	return &BoxHandler{
		BoxService:      boxService,
		DispatchService: dispatchService,
	}
}

type updateRecipientRequest struct {
	UID       string `json:"uid,omitempty"`
	Email     string `json:"e,omitempty"`
	Text      string `json:"t,omitempty"`
	SummaryID string `json:"s,omitempty"`
	Index     *int   `json:"i,omitempty"`
	Insert    bool   `json:"insert,omitempty"`
	Remove    bool   `json:"remove,omitempty"`

	AllowCreateBoxIfItDoesNotExist bool `json:"allow_create_box,omitempty"`
}

// PUT /boxes/{key}/recipients
func (h *BoxHandler) UpdateRecipientHandler(w http.ResponseWriter, r *http.Request) {
	boxKey := mux.Vars(r)["key"]

	var req updateRecipientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	err := h.BoxService.UpdateNotificationBoxRecipient(r.Context(), services.UpdateRecipientParams{
		BoxKey:                         boxKey,
		UID:                            req.UID,
		Email:                          req.Email,
		Text:                           req.Text,
		SummaryID:                      req.SummaryID,
		Index:                          req.Index,
		Insert:                         req.Insert,
		Remove:                         req.Remove,
		AllowCreateBoxIfItDoesNotExist: req.AllowCreateBoxIfItDoesNotExist,
	})
	if err != nil {
		logger.Log.Errorf("Failed to update box recipient: %v", err)
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"message": "Recipient updated"})
}

// POST /boxes/{key}/cleanup
func (h *BoxHandler) CleanupBoxHandler(w http.ResponseWriter, r *http.Request) {
	boxKey := mux.Vars(r)["key"]

	result, err := h.DispatchService.CleanupAllSentNotifications(r.Context(), boxKey)
	if err != nil {
		logger.Log.Errorf("Failed to clean up box %s: %v", boxKey, err)
		http.Error(w, err.Error(), statusForError(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// POST /boxes/initialize
func (h *BoxHandler) InitializeBoxesHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.BoxService.InitializeAllApplicableNotificationBoxes(r.Context())
	if err != nil {
		logger.Log.Errorf("Box initialization sweep failed: %v", err)
		http.Error(w, "Initialization sweep failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

// POST /summaries/initialize
func (h *BoxHandler) InitializeSummariesHandler(w http.ResponseWriter, r *http.Request) {
	result, err := h.BoxService.InitializeAllApplicableNotificationSummaries(r.Context())
	if err != nil {
		logger.Log.Errorf("Summary initialization sweep failed: %v", err)
		http.Error(w, "Initialization sweep failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}
