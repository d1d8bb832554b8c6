package models

import (
	"fmt"
	"time"
)

// NotificationWeek is the weekly archive bucket for sent notifications of one
// box. Exactly one bucket exists per (box, week); cleanup either creates it or
// merges into the existing one.
type NotificationWeek struct {
	// ID is "<boxKey>@<week>".
	ID     string `bson:"_id" json:"id"`
	BoxKey string `bson:"b" json:"box_key"`

	// Week is the ISO week encoded as year*100+week, e.g. 202635.
	Week int `bson:"w" json:"week"`

	Notifications []NotificationItem `bson:"n" json:"notifications"`

	CreatedAt time.Time `bson:"cat" json:"created_at"`
	UpdatedAt time.Time `bson:"uat" json:"updated_at"`
}

// WeekForTime returns the archive week number a timestamp falls into.
func WeekForTime(t time.Time) int {
	year, week := t.ISOWeek()
	return year*100 + week
}

// WeekID builds the NotificationWeek document id for a box and week.
func WeekID(boxKey string, week int) string {
	return fmt.Sprintf("%s@%d", boxKey, week)
}
