package models

import "time"

// NotificationSummary is the rollup document recipients resolved via a summary
// id are delivered into, instead of an email or text. One summary exists per
// summary key; deliveries append entries.
type NotificationSummary struct {
	// ID is the summary key, e.g. "summary/user/662f...".
	ID        string `bson:"_id" json:"id"`
	NeedsSync bool   `bson:"s,omitempty" json:"needs_sync,omitempty"`

	Entries []NotificationSummaryEntry `bson:"n,omitempty" json:"entries,omitempty"`

	LatestAt  time.Time `bson:"lat,omitempty" json:"latest_at,omitempty"`
	CreatedAt time.Time `bson:"cat" json:"created_at"`
	UpdatedAt time.Time `bson:"uat" json:"updated_at"`
}

// NotificationSummaryEntry is one delivered message inside a summary.
type NotificationSummaryEntry struct {
	ItemID  string    `bson:"id" json:"id"`
	Type    string    `bson:"t" json:"t"`
	Subject string    `bson:"sj,omitempty" json:"subject,omitempty"`
	Body    string    `bson:"bd,omitempty" json:"body,omitempty"`
	SentAt  time.Time `bson:"sat" json:"sent_at"`
}
