package email

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/Daniyar2203/Notification_Engine/internal/services"
	"github.com/google/uuid"
)

// Sender delivers emails over SMTP. It implements services.EmailSender.
type Sender struct {
	host     string
	port     string
	from     string
	password string
}

// NewSender creates a new SMTP sender.
func NewSender(host, port, from, password string) *Sender {
	return &Sender{
		host:     host,
		port:     port,
		from:     from,
		password: password,
	}
}

// SendEmail sends a plain text email using SMTP and returns a delivery id.
func (s *Sender) SendEmail(ctx context.Context, req services.EmailMessage) (string, error) {
	auth := smtp.PlainAuth("", s.from, s.password, s.host)

	body := req.Body
	if req.URL != "" {
		body = body + "\r\n\r\n" + req.URL
	}

	msg := []byte("To: " + req.To + "\r\n" +
		"Subject: " + req.Subject + "\r\n" +
		"\r\n" + body + "\r\n")

	address := s.host + ":" + s.port

	if err := smtp.SendMail(address, auth, s.from, []string{req.To}, msg); err != nil {
		return "", fmt.Errorf("failed to send email: %v", err)
	}
	return uuid.NewString(), nil
}
