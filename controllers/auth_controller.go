// controllers/auth_controller.go
package controllers

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkassem/veridian_backend/middleware"
	"github.com/mkassem/veridian_backend/models"
	"github.com/mkassem/veridian_backend/repositories"
	"github.com/mkassem/veridian_backend/utils"
	"github.com/mkassem/veridian_backend/websocket"
)

// InstallationIDHeader carries the device/installation identifier the risk
// provider needs on signin, signup and assessment requests.
const InstallationIDHeader = "X-Installation-ID"

// UserStore resolves account identifiers to stored identities.
type UserStore interface {
	FindByAccountID(ctx context.Context, accountID string) (*models.User, error)
}

// CodeLedger is the single source of truth for signin code validity.
type CodeLedger interface {
	Issue(ctx context.Context, userID primitive.ObjectID) (*models.SigninCode, error)
	Find(ctx context.Context, userID primitive.ObjectID, code string) (*models.SigninCode, error)
	Consume(ctx context.Context, code *models.SigninCode) error
}

// RiskAssessor classifies a login attempt.
type RiskAssessor interface {
	RegisterLogin(ctx context.Context, accountID, installationID string) (models.RiskAssessment, string, error)
}

// Mailer delivers signin codes out of band.
type Mailer interface {
	SendSigninCode(email, code string) error
}

// Publisher pushes handoff envelopes onto signin channels.
type Publisher interface {
	Publish(channelKey string, envelope models.HandoffEnvelope)
}

// AuthController handles the passwordless signin flows
type AuthController struct {
	users         UserStore
	codes         CodeLedger
	risk          RiskAssessor
	mail          Mailer
	hub           Publisher
	redis         *redis.Client
	completionURL string
}

// NewAuthController creates a new auth controller
func NewAuthController(users UserStore, codes CodeLedger, risk RiskAssessor, mail Mailer, hub Publisher, rdb *redis.Client) *AuthController {
	completionURL := os.Getenv("SIGNIN_COMPLETION_URL")
	if completionURL == "" {
		completionURL = "/api/auth/signin/validate-otp"
	}

	return &AuthController{
		users:         users,
		codes:         codes,
		risk:          risk,
		mail:          mail,
		hub:           hub,
		redis:         rdb,
		completionURL: completionURL,
	}
}

// unauthorized is the single failure shape for anything a caller must not
// be able to probe: unknown accounts, wrong codes, expired codes and
// already-used codes all look identical.
func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, models.Response{
		Status:  http.StatusUnauthorized,
		Message: "Unauthorized",
	})
}

func validationFailed(c echo.Context, fieldErrors map[string][]string) error {
	return c.JSON(http.StatusUnprocessableEntity, models.Response{
		Status:  http.StatusUnprocessableEntity,
		Message: "Validation failed",
		Data:    map[string]interface{}{"errors": fieldErrors},
	})
}

func (ac *AuthController) session(c echo.Context, user *models.User) error {
	token, refreshToken, err := middleware.GenerateJWT(user.AccountID, user.Email)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to create session",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Signin successful",
		Data: models.SessionResponse{
			AccountID:    user.AccountID,
			Email:        user.Email,
			Token:        token,
			RefreshToken: refreshToken,
		},
	})
}

// Signin begins a passwordless login attempt. Depending on the risk
// verdict the login either completes immediately or is parked pending OTP
// confirmation.
func (ac *AuthController) Signin(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	var req models.SigninRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	installationID := c.Request().Header.Get(InstallationIDHeader)

	// Validation short-circuits before any lookup or provider call.
	fieldErrors := map[string][]string{}
	if req.AccountID == "" {
		fieldErrors["accountId"] = append(fieldErrors["accountId"], "can't be blank")
	}
	if installationID == "" {
		fieldErrors["installationId"] = append(fieldErrors["installationId"], "can't be blank")
	}
	if len(fieldErrors) > 0 {
		return validationFailed(c, fieldErrors)
	}

	user, err := ac.users.FindByAccountID(ctx, req.AccountID)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return unauthorized(c)
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to look up account",
		})
	}

	assessment, _, err := ac.risk.RegisterLogin(ctx, user.AccountID, installationID)
	if err != nil {
		// No code is issued when classification could not be obtained.
		log.Printf("risk assessment failed for account %s: %v", user.AccountID, err)
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Risk assessment unavailable",
		})
	}

	if !assessment.RequiresOTP() {
		return ac.session(c, user)
	}

	signinCode, err := ac.codes.Issue(ctx, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to issue signin code",
		})
	}

	// Delivery is fire-and-forget; the signin outcome never depends on it.
	go func(email, code string) {
		if err := ac.mail.SendSigninCode(email, code); err != nil {
			log.Printf("failed to send signin code email: %v", err)
		}
	}(user.Email, signinCode.Code)

	return c.JSON(http.StatusUnauthorized, models.Response{
		Status:  http.StatusUnauthorized,
		Message: "OTP confirmation required",
		Data:    models.OTPRequiredResponse{OTPRequired: true},
	})
}

// checkAndConsume resolves the user and atomically consumes the submitted
// code. Every failure mode maps to the same nil result so callers can't
// tell them apart.
func (ac *AuthController) checkAndConsume(ctx context.Context, accountID, code string) (*models.User, *models.SigninCode, error) {
	user, err := ac.users.FindByAccountID(ctx, accountID)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	signinCode, err := ac.codes.Find(ctx, user.ID, code)
	if err != nil {
		if err == repositories.ErrCodeNotFound {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	err = ac.codes.Consume(ctx, signinCode)
	if err != nil {
		switch err {
		case repositories.ErrCodeNotFound, repositories.ErrCodeUsed, repositories.ErrCodeExpired:
			return nil, nil, nil
		default:
			return nil, nil, err
		}
	}

	return user, signinCode, nil
}

// validateCodeRequest binds and validates the shared (accountId, code)
// payload, writing the error response itself when the input is bad.
func (ac *AuthController) validateCodeRequest(c echo.Context) (*models.ValidateCodeRequest, bool, error) {
	var req models.ValidateCodeRequest
	if err := c.Bind(&req); err != nil {
		return nil, false, c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	fieldErrors := map[string][]string{}
	if req.AccountID == "" {
		fieldErrors["accountId"] = append(fieldErrors["accountId"], "can't be blank")
	}
	if req.Code == "" {
		fieldErrors["code"] = append(fieldErrors["code"], "can't be blank")
	}
	if len(fieldErrors) > 0 {
		return nil, false, validationFailed(c, fieldErrors)
	}

	if err := utils.ValidateOTPAttempts(req.AccountID, ac.redis); err != nil {
		return nil, false, c.JSON(http.StatusTooManyRequests, models.Response{
			Status:  http.StatusTooManyRequests,
			Message: "Too many attempts. Try again later",
		})
	}

	return &req, true, nil
}

// ValidateOTP completes a pending login given a previously issued code.
func (ac *AuthController) ValidateOTP(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	req, ok, err := ac.validateCodeRequest(c)
	if !ok {
		return err
	}

	user, _, err := ac.checkAndConsume(ctx, req.AccountID, req.Code)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to validate code",
		})
	}
	if user == nil {
		return unauthorized(c)
	}

	return ac.session(c, user)
}

// ValidateQRCode confirms, from the mobile device, the code a waiting web
// session is displaying. The submitted code is consumed, a fresh web code
// is minted, and a handoff envelope is published on the channel keyed by
// the original code so the web session can finish its login silently.
func (ac *AuthController) ValidateQRCode(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	req, ok, err := ac.validateCodeRequest(c)
	if !ok {
		return err
	}

	user, _, err := ac.checkAndConsume(ctx, req.AccountID, req.Code)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to validate code",
		})
	}
	if user == nil {
		return unauthorized(c)
	}

	webCode, err := ac.codes.Issue(ctx, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to issue web signin code",
		})
	}

	// Keyed by the code the web session is displaying, not the new one.
	// If nobody is subscribed the publish is a silent no-op.
	ac.hub.Publish(websocket.ChannelKey(req.Code), models.HandoffEnvelope{
		URL:   ac.completionURL,
		Email: user.Email,
		Code:  webCode.Code,
	})

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "QR signin confirmed",
		Data: map[string]string{
			"code": webCode.Code,
		},
	})
}

// signinQRImage renders a signin code as a QR PNG.
func signinQRImage(code string) ([]byte, error) {
	qrCode, err := qr.Encode("veridian://signin/"+code, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}

	qrCode, err = barcode.Scale(qrCode, 200, 200)
	if err != nil {
		return nil, err
	}

	buffer := new(bytes.Buffer)
	if err := png.Encode(buffer, qrCode); err != nil {
		return nil, err
	}

	return buffer.Bytes(), nil
}

// SigninQRCode returns the QR image a web session displays for scanning.
func (ac *AuthController) SigninQRCode(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Code is required",
		})
	}

	image, err := signinQRImage(code)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate QR code: " + err.Error(),
		})
	}

	c.Response().Header().Set("Content-Disposition", "inline; filename=signin.png")
	return c.Blob(http.StatusOK, "image/png", image)
}

// SigninQRCodeBase64 returns the same QR image base64-encoded for clients
// that embed it in JSON-driven UIs.
func (ac *AuthController) SigninQRCodeBase64(c echo.Context) error {
	code := c.Param("code")
	if code == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Code is required",
		})
	}

	image, err := signinQRImage(code)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to generate QR code: " + err.Error(),
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "QR code generated",
		Data: map[string]string{
			"qrcode": "data:image/png;base64," + base64.StdEncoding.EncodeToString(image),
		},
	})
}

// ValidateToken lets a client check that its session token is still good.
func (ac *AuthController) ValidateToken(c echo.Context) error {
	claims := middleware.GetUserFromToken(c)
	if claims == nil {
		return unauthorized(c)
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Token is valid",
		Data: map[string]string{
			"accountId": claims.AccountID,
			"email":     claims.Email,
		},
	})
}
