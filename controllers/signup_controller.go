// controllers/signup_controller.go
package controllers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkassem/veridian_backend/models"
	"github.com/mkassem/veridian_backend/repositories"
)

// SignupStore is the identity-record boundary the signup flow writes to.
type SignupStore interface {
	Create(ctx context.Context, user *models.User) error
	FindBySignupID(ctx context.Context, signupID string) (*models.User, error)
	SetSignupID(ctx context.Context, userID primitive.ObjectID, signupID string) error
}

// SignupAssessor registers and re-assesses signups with the risk provider.
type SignupAssessor interface {
	RegisterSignup(ctx context.Context, installationID string, address *models.StructuredAddress) (string, models.RiskAssessment, error)
	ReassessSignup(ctx context.Context, signupID string) (models.RiskAssessment, error)
}

// SignupController creates identities and registers them with the risk
// provider. It is the boundary the login core resolves accounts against;
// there is deliberately no update/delete/list surface.
type SignupController struct {
	users SignupStore
	risk  SignupAssessor
}

func NewSignupController(users SignupStore, risk SignupAssessor) *SignupController {
	return &SignupController{users: users, risk: risk}
}

// Signup registers a new identity.
func (sc *SignupController) Signup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	var req models.SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Invalid request body",
		})
	}

	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusUnprocessableEntity, models.Response{
			Status:  http.StatusUnprocessableEntity,
			Message: "Validation failed",
			Data:    map[string]interface{}{"errors": err.Error()},
		})
	}

	installationID := c.Request().Header.Get(InstallationIDHeader)

	user := &models.User{
		AccountID: req.AccountID,
		Email:     req.Email,
		Address:   req.Address,
	}

	if err := sc.users.Create(ctx, user); err != nil {
		return c.JSON(http.StatusConflict, models.Response{
			Status:  http.StatusConflict,
			Message: "Account already exists",
		})
	}

	// A provider outage is tolerated here (the signup id stays empty)
	// because the signin flow re-assesses every login anyway.
	if installationID != "" {
		signupID, assessment, err := sc.risk.RegisterSignup(ctx, installationID, req.Address)
		if err != nil {
			log.Printf("signup assessment failed for account %s: %v", req.AccountID, err)
		} else if err := sc.users.SetSignupID(ctx, user.ID, signupID); err != nil {
			log.Printf("failed to record signup id for account %s: %v", req.AccountID, err)
		} else {
			user.SignupID = signupID
			log.Printf("signup for account %s assessed as %s", req.AccountID, assessment)
		}
	}

	return c.JSON(http.StatusCreated, models.Response{
		Status:  http.StatusCreated,
		Message: "Signup successful",
		Data:    user,
	})
}

// GetSignup fetches a signup by its provider-assigned id and refreshes its
// risk verdict.
func (sc *SignupController) GetSignup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	signupID := c.Param("id")
	if signupID == "" {
		return c.JSON(http.StatusBadRequest, models.Response{
			Status:  http.StatusBadRequest,
			Message: "Signup id is required",
		})
	}

	user, err := sc.users.FindBySignupID(ctx, signupID)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Signup not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to look up signup",
		})
	}

	assessment, err := sc.risk.ReassessSignup(ctx, signupID)
	if err != nil {
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Risk assessment unavailable",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Signup retrieved",
		Data: map[string]interface{}{
			"user":       user,
			"assessment": assessment,
		},
	})
}
