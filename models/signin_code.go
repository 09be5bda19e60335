// models/signin_code.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SigninCode represents a single-use passcode issued to a user during a
// passwordless login attempt.
type SigninCode struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"userId" bson:"userId"`
	Code      string             `json:"code" bson:"code"`
	CreatedAt time.Time          `json:"createdAt" bson:"createdAt"`
	ExpiresAt time.Time          `json:"expiresAt" bson:"expiresAt"`
	// UsedAt is set exactly once, when the code is consumed. Nil means
	// the code has never been consumed.
	UsedAt *time.Time `json:"usedAt,omitempty" bson:"usedAt,omitempty"`
}

// Consumed reports whether the code has already been used.
func (sc *SigninCode) Consumed() bool {
	return sc.UsedAt != nil
}

// Expired reports whether the code's validity window has passed at t.
func (sc *SigninCode) Expired(t time.Time) bool {
	return !t.Before(sc.ExpiresAt)
}

// Live reports whether the code is still consumable at t.
func (sc *SigninCode) Live(t time.Time) bool {
	return !sc.Consumed() && !sc.Expired(t)
}
