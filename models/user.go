// models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User model
type User struct {
	ID        primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	AccountID string             `json:"accountId" bson:"accountId"`
	Email     string             `json:"email" bson:"email"`
	Address   *StructuredAddress `json:"structuredAddress,omitempty" bson:"structuredAddress,omitempty"`
	// SignupID is the identifier the risk provider assigned when the
	// signup was first assessed. Empty if the signup was never assessed.
	SignupID  string    `json:"signupId,omitempty" bson:"signupId,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// StructuredAddress is the address shape forwarded to the risk provider.
type StructuredAddress struct {
	CountryName string `json:"countryName,omitempty" bson:"countryName,omitempty"`
	CountryCode string `json:"countryCode,omitempty" bson:"countryCode,omitempty"`
	State       string `json:"state,omitempty" bson:"state,omitempty"`
	City        string `json:"city,omitempty" bson:"city,omitempty"`
	Borough     string `json:"borough,omitempty" bson:"borough,omitempty"`
	Street      string `json:"street,omitempty" bson:"street,omitempty"`
	Number      string `json:"number,omitempty" bson:"number,omitempty"`
	PostalCode  string `json:"postalCode,omitempty" bson:"postalCode,omitempty"`
}

// Response model
type Response struct {
	Status  int         `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}
