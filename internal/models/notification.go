package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SendType controls how a notification resolves its NotificationBox before sending.
type SendType int

const (
	// SendTypeInitBoxAndSend creates the box (flagged for sync) when it does not
	// exist yet and defers the send until the box has been initialized.
	SendTypeInitBoxAndSend SendType = iota
	// SendTypeSendIfBoxExists sends only when the box already exists; when it
	// does not, the notification is discarded without error.
	SendTypeSendIfBoxExists
	// SendTypeSendWithoutCreatingBox sends using only the notification's own
	// recipients and never touches a box.
	SendTypeSendWithoutCreatingBox
	// SendTypeTaskNotification marks a multi-step checkpointed task instead of a
	// rendered message.
	SendTypeTaskNotification
)

// RecipientFlag controls which recipient sources are merged during expansion.
type RecipientFlag int

const (
	// RecipientFlagNormal merges box recipients with the notification's own.
	RecipientFlagNormal RecipientFlag = iota
	// RecipientFlagSkipBoxRecipients sends only to the notification's own
	// explicit recipients.
	RecipientFlagSkipBoxRecipients
)

// NotificationItem is the payload of a notification: what happened and the
// opaque data the registered template (or task flow) renders from.
type NotificationItem struct {
	ID       string                 `bson:"id" json:"id"`
	Category string                 `bson:"cat,omitempty" json:"cat,omitempty"`
	Type     string                 `bson:"t" json:"t"`
	Data     map[string]interface{} `bson:"d,omitempty" json:"d,omitempty"`
}

// Notification is one queued unit of delivery work. It lives under a
// NotificationBox and is mutated by every send attempt until it is either
// marked done (and later archived into a NotificationWeek) or deleted.
type Notification struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	BoxKey   string             `bson:"b" json:"box_key"`
	Item     NotificationItem   `bson:"n" json:"item"`
	SendType SendType           `bson:"st" json:"send_type"`

	// Recipients are explicit per-notification recipients, merged after the
	// owning box's recipient list during expansion.
	Recipients    []NotificationBoxRecipient `bson:"r,omitempty" json:"recipients,omitempty"`
	RecipientFlag RecipientFlag              `bson:"rf,omitempty" json:"recipient_flag,omitempty"`

	SendAt   time.Time `bson:"sat" json:"send_at"`
	Attempts int       `bson:"a" json:"attempts"`
	Done     bool      `bson:"d" json:"done"`

	// Per-channel send state. A channel already marked sent is skipped on
	// retry so a partially failed attempt never double-delivers.
	TextSent    bool `bson:"ts,omitempty" json:"text_sent,omitempty"`
	EmailSent   bool `bson:"es,omitempty" json:"email_sent,omitempty"`
	PushSent    bool `bson:"ps,omitempty" json:"push_sent,omitempty"`
	SummarySent bool `bson:"ns,omitempty" json:"summary_sent,omitempty"`

	// CompletedCheckpoints lists the checkpoints a task notification has
	// already finished, in completion order.
	CompletedCheckpoints []string `bson:"tpr,omitempty" json:"completed_checkpoints,omitempty"`

	CreatedAt time.Time `bson:"cat" json:"created_at"`
	UpdatedAt time.Time `bson:"uat" json:"updated_at"`
}

// IsTask reports whether this notification is driven by the checkpointed task
// runner rather than the template registry.
func (n *Notification) IsTask() bool {
	return n.SendType == SendTypeTaskNotification
}

// NotificationTemplate is the caller-facing input for creating a notification.
type NotificationTemplate struct {
	BoxKey        string                     `json:"box_key"`
	Type          string                     `json:"type"`
	Category      string                     `json:"category,omitempty"`
	Data          map[string]interface{}     `json:"data,omitempty"`
	Recipients    []NotificationBoxRecipient `json:"recipients,omitempty"`
	RecipientFlag RecipientFlag              `json:"recipient_flag,omitempty"`
	SendType      SendType                   `json:"send_type"`
	SendAt        time.Time                  `json:"send_at,omitempty"`
}
