package user

import (
	"strings"
	"time"
)

// User is identified by email across services; ID is the storage key.
type User struct {
	ID        string `json:"id" bson:"_id"`
	Name      string `json:"name,omitempty" bson:"name,omitempty"`
	Email     string `json:"email" bson:"email,omitempty"`
	PhotoURL  string `json:"photoUrl,omitempty" bson:"photoUrl,omitempty"`
	Points    int    `json:"points" bson:"points"`
	Cellphone string `json:"cellphone,omitempty" bson:"cellphone,omitempty"`
	// AppliedEvents holds the most recent points event ids credited to
	// this user, bounded by constants.MaxAppliedEvents.
	AppliedEvents []string  `json:"-" bson:"appliedEvents,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// NormalizeEmail is the form emails are stored and looked up in.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
