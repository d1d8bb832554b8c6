package models

import "time"

// NotificationBox holds the recipient list and initialization state for one
// owner model (a user profile, a guestbook, ...). Notifications targeting the
// owner are delivered through its box.
//
// A box is in one of three states: absent, created-but-needs-sync
// (NeedsSync=true), or initialized. Boxes are created lazily by notifications
// with SendTypeInitBoxAndSend and filled in by the initialization sweep.
type NotificationBox struct {
	// ID is the owner model key, e.g. "user/662f...".
	ID             string                     `bson:"_id" json:"id"`
	NeedsSync      bool                       `bson:"s,omitempty" json:"needs_sync,omitempty"`
	FlaggedInvalid bool                       `bson:"fi,omitempty" json:"flagged_invalid,omitempty"`
	Recipients     []NotificationBoxRecipient `bson:"r,omitempty" json:"recipients,omitempty"`

	// LatestWeek is the highest NotificationWeek bucket archived for this box.
	LatestWeek int `bson:"w,omitempty" json:"latest_week,omitempty"`

	CreatedAt time.Time `bson:"cat" json:"created_at"`
	UpdatedAt time.Time `bson:"uat" json:"updated_at"`
}

// NotificationBoxRecipient is one entry of a box's (or notification's)
// recipient list. Exactly one of UID, Email/Text, or SummaryID is the primary
// target; Email/Text may additionally override a resolved user's contact info.
//
// Recipient lists are intentionally not deduplicated: inserting the same email
// twice yields two entries.
type NotificationBoxRecipient struct {
	Index     int    `bson:"i" json:"i"`
	UID       string `bson:"uid,omitempty" json:"uid,omitempty"`
	Email     string `bson:"e,omitempty" json:"e,omitempty"`
	Text      string `bson:"t,omitempty" json:"t,omitempty"`
	SummaryID string `bson:"s,omitempty" json:"s,omitempty"`

	Config NotificationRecipientConfig `bson:"c,omitempty" json:"c,omitempty"`
}

// NotificationRecipientConfig carries per-recipient channel opt-outs.
type NotificationRecipientConfig struct {
	SkipEmail   bool `bson:"se,omitempty" json:"se,omitempty"`
	SkipText    bool `bson:"st,omitempty" json:"st,omitempty"`
	SkipSummary bool `bson:"ss,omitempty" json:"ss,omitempty"`
}
