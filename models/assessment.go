// models/assessment.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// RiskAssessment is the classification the risk provider returns for a
// login or signup attempt.
type RiskAssessment string

const (
	RiskLow     RiskAssessment = "low_risk"
	RiskHigh    RiskAssessment = "high_risk"
	RiskUnknown RiskAssessment = "unknown_risk"
)

// RequiresOTP reports whether the classification forces OTP confirmation
// before the login may complete. Anything that is not an explicit low-risk
// verdict does.
func (ra RiskAssessment) RequiresOTP() bool {
	return ra != RiskLow
}

// AssessmentLog is one recorded risk-provider verdict for a user.
type AssessmentLog struct {
	ID             primitive.ObjectID `json:"id,omitempty" bson:"_id,omitempty"`
	UserID         primitive.ObjectID `json:"userId" bson:"userId"`
	RequestID      string             `json:"requestId" bson:"requestId"`
	InstallationID string             `json:"installationId" bson:"installationId"`
	Assessment     RiskAssessment     `json:"assessment" bson:"assessment"`
	RequestedAt    time.Time          `json:"requestedAt" bson:"requestedAt"`
}
