package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mkassem/veridian_backend/models"
)

// ErrRiskUnavailable marks a failed or timed-out risk-provider call. It is
// deliberately distinct from any classification: callers must not treat an
// unreachable provider as a verdict about the login.
var ErrRiskUnavailable = errors.New("risk assessment unavailable")

// IncogniaService handles interactions with the Incognia risk API
type IncogniaService struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

// NewIncogniaService creates a new Incognia service instance
func NewIncogniaService() *IncogniaService {
	baseURL := os.Getenv("INCOGNIA_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.incognia.com/api/"
	}

	clientID := os.Getenv("INCOGNIA_CLIENT_ID")
	clientSecret := os.Getenv("INCOGNIA_CLIENT_SECRET")

	if clientID == "" || clientSecret == "" {
		log.Printf("WARNING: Incognia credentials not fully configured:")
		if clientID == "" {
			log.Printf("  - INCOGNIA_CLIENT_ID is missing")
		}
		if clientSecret == "" {
			log.Printf("  - INCOGNIA_CLIENT_SECRET is missing")
		}
		log.Printf("Please set these environment variables for risk assessment to work")
	}

	timeout := 10 * time.Second
	if s := os.Getenv("INCOGNIA_TIMEOUT"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 {
			timeout = d
		}
	}

	return &IncogniaService{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

type incogniaAssessmentResponse struct {
	ID             string `json:"id"`
	RiskAssessment string `json:"risk_assessment"`
}

// makeRequest performs an HTTP request to the Incognia API
func (s *IncogniaService) makeRequest(ctx context.Context, method, endpoint string, payload interface{}) (*incogniaAssessmentResponse, error) {
	url := s.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(s.clientID, s.clientSecret)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRiskUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrRiskUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrRiskUnavailable, resp.StatusCode)
	}

	var assessment incogniaAssessmentResponse
	if err := json.Unmarshal(respBody, &assessment); err != nil {
		return nil, fmt.Errorf("%w: failed to parse response: %v", ErrRiskUnavailable, err)
	}

	return &assessment, nil
}

// parseRiskAssessment maps the wire value onto a classification. Anything
// unrecognized is treated as unknown_risk, which forces OTP confirmation.
func parseRiskAssessment(value string) models.RiskAssessment {
	switch models.RiskAssessment(value) {
	case models.RiskLow:
		return models.RiskLow
	case models.RiskHigh:
		return models.RiskHigh
	default:
		return models.RiskUnknown
	}
}

// RegisterLogin reports a login attempt to Incognia and returns its risk
// classification for the (account, installation) pair.
func (s *IncogniaService) RegisterLogin(ctx context.Context, accountID, installationID string) (models.RiskAssessment, string, error) {
	payload := map[string]string{
		"type":            "login",
		"account_id":      accountID,
		"installation_id": installationID,
	}

	resp, err := s.makeRequest(ctx, http.MethodPost, "v2/authentication/transactions", payload)
	if err != nil {
		return "", "", err
	}

	return parseRiskAssessment(resp.RiskAssessment), resp.ID, nil
}

// RegisterSignup reports a new signup and returns the signup id Incognia
// assigned along with the classification.
func (s *IncogniaService) RegisterSignup(ctx context.Context, installationID string, address *models.StructuredAddress) (string, models.RiskAssessment, error) {
	payload := map[string]interface{}{
		"installation_id": installationID,
	}
	if address != nil {
		payload["structured_address"] = map[string]string{
			"country_name": address.CountryName,
			"country_code": address.CountryCode,
			"state":        address.State,
			"city":         address.City,
			"borough":      address.Borough,
			"street":       address.Street,
			"number":       address.Number,
			"postal_code":  address.PostalCode,
		}
	}

	resp, err := s.makeRequest(ctx, http.MethodPost, "v2/onboarding/signups", payload)
	if err != nil {
		return "", "", err
	}

	return resp.ID, parseRiskAssessment(resp.RiskAssessment), nil
}

// ReassessSignup fetches a fresh verdict for a previously registered signup.
func (s *IncogniaService) ReassessSignup(ctx context.Context, signupID string) (models.RiskAssessment, error) {
	resp, err := s.makeRequest(ctx, http.MethodGet, "v2/onboarding/signups/"+signupID, nil)
	if err != nil {
		return "", err
	}

	return parseRiskAssessment(resp.RiskAssessment), nil
}
