package textmsg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Daniyar2203/Notification_Engine/internal/services"
)

// Sender delivers text messages through an HTTP provider endpoint. It
// implements services.TextSender.
type Sender struct {
	url    string
	token  string
	client *http.Client
}

// NewSender creates a new text message sender.
func NewSender(url, token string) *Sender {
	return &Sender{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type sendRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

type sendResponse struct {
	DeliveryID string `json:"delivery_id"`
}

// SendText posts the message to the provider and returns its delivery id.
func (s *Sender) SendText(ctx context.Context, req services.TextMessage) (string, error) {
	payload, err := json.Marshal(sendRequest{To: req.To, Body: req.Body})
	if err != nil {
		return "", fmt.Errorf("failed to encode text message: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build text request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to send text message: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("text provider returned status %d", resp.StatusCode)
	}

	var decoded sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("failed to decode text provider response: %v", err)
	}
	return decoded.DeliveryID, nil
}
