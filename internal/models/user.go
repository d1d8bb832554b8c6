package models

import "time"

// NotificationUser is the auth/contact record a recipient uid resolves to.
// It doubles as the account model for the RPC surface.
type NotificationUser struct {
	// UID is the stable user id recipients reference.
	UID            string    `bson:"_id" json:"uid"`
	Username       string    `bson:"username" json:"username"`
	Email          string    `bson:"email" json:"email"`
	Phone          string    `bson:"phone,omitempty" json:"phone,omitempty"`
	HashedPassword string    `bson:"hashed_password" json:"-"`
	Role           string    `bson:"role" json:"role"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}

// PublicUser is the response shape exposed by the user endpoints.
type PublicUser struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
