// models/auth.go

package models

// SignupRequest is the payload for creating a new identity.
type SignupRequest struct {
	AccountID string             `json:"accountId" validate:"required"`
	Email     string             `json:"email" validate:"required,email"`
	Address   *StructuredAddress `json:"structuredAddress,omitempty"`
}

// SigninRequest is the payload for beginning a passwordless login. The
// installation id travels in a header, not the body.
type SigninRequest struct {
	AccountID string `json:"accountId"`
}

// ValidateCodeRequest is the payload for both the OTP and the QR code
// validation endpoints.
type ValidateCodeRequest struct {
	AccountID string `json:"accountId"`
	Code      string `json:"code"`
}

// SessionResponse is returned once a login completes.
type SessionResponse struct {
	AccountID    string `json:"accountId"`
	Email        string `json:"email"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
}

// OTPRequiredResponse signals that the login attempt is pending OTP
// confirmation.
type OTPRequiredResponse struct {
	OTPRequired bool `json:"otp_required"`
}

// HandoffEnvelope is the payload delivered over the signin channel when a
// mobile device confirms a QR login. The waiting web session exchanges the
// enclosed code for its own session at the given URL.
type HandoffEnvelope struct {
	URL   string `json:"url"`
	Email string `json:"email"`
	Code  string `json:"code"`
}
