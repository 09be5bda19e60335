// controllers/assessment_controller.go
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkassem/veridian_backend/models"
	"github.com/mkassem/veridian_backend/repositories"
)

// AssessmentLogStore records and lists per-user risk verdicts.
type AssessmentLogStore interface {
	Append(ctx context.Context, entry *models.AssessmentLog) error
	ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.AssessmentLog, error)
}

// AssessmentController serves on-demand reassessments of a user's login
// risk and the history of past verdicts.
type AssessmentController struct {
	users UserStore
	risk  RiskAssessor
	logs  AssessmentLogStore
}

func NewAssessmentController(users UserStore, risk RiskAssessor, logs AssessmentLogStore) *AssessmentController {
	return &AssessmentController{users: users, risk: risk, logs: logs}
}

// Assess runs a fresh risk assessment for the account, appends it to the
// user's assessment history and returns the updated history.
func (ac *AssessmentController) Assess(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 15*time.Second)
	defer cancel()

	accountID := c.Param("account_id")
	installationID := c.Request().Header.Get(InstallationIDHeader)

	fieldErrors := map[string][]string{}
	if accountID == "" {
		fieldErrors["accountId"] = append(fieldErrors["accountId"], "can't be blank")
	}
	if installationID == "" {
		fieldErrors["installationId"] = append(fieldErrors["installationId"], "can't be blank")
	}
	if len(fieldErrors) > 0 {
		return validationFailed(c, fieldErrors)
	}

	user, err := ac.users.FindByAccountID(ctx, accountID)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, models.Response{
				Status:  http.StatusNotFound,
				Message: "Account not found",
			})
		}
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to look up account",
		})
	}

	assessment, requestID, err := ac.risk.RegisterLogin(ctx, user.AccountID, installationID)
	if err != nil {
		return c.JSON(http.StatusBadGateway, models.Response{
			Status:  http.StatusBadGateway,
			Message: "Risk assessment unavailable",
		})
	}

	if requestID == "" {
		requestID = uuid.NewString()
	}

	entry := &models.AssessmentLog{
		UserID:         user.ID,
		RequestID:      requestID,
		InstallationID: installationID,
		Assessment:     assessment,
		RequestedAt:    time.Now(),
	}
	if err := ac.logs.Append(ctx, entry); err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to store assessment",
		})
	}

	history, err := ac.logs.ListByUser(ctx, user.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, models.Response{
			Status:  http.StatusInternalServerError,
			Message: "Failed to list assessments",
		})
	}

	return c.JSON(http.StatusOK, models.Response{
		Status:  http.StatusOK,
		Message: "Assessment recorded",
		Data:    history,
	})
}
