package controllers

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkassem/veridian_backend/models"
	"github.com/mkassem/veridian_backend/repositories"
)

type testValidator struct {
	validator *validator.Validate
}

func (tv *testValidator) Validate(i interface{}) error {
	return tv.validator.Struct(i)
}

type fakeSignupStore struct {
	created []*models.User
}

func (f *fakeSignupStore) Create(ctx context.Context, user *models.User) error {
	for _, existing := range f.created {
		if existing.AccountID == user.AccountID {
			return errors.New("duplicate account id")
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	f.created = append(f.created, user)
	return nil
}

func (f *fakeSignupStore) FindBySignupID(ctx context.Context, signupID string) (*models.User, error) {
	for _, user := range f.created {
		if user.SignupID == signupID {
			return user, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeSignupStore) SetSignupID(ctx context.Context, userID primitive.ObjectID, signupID string) error {
	for _, user := range f.created {
		if user.ID == userID {
			user.SignupID = signupID
			return nil
		}
	}
	return repositories.ErrUserNotFound
}

type fakeSignupAssessor struct {
	signupID   string
	assessment models.RiskAssessment
	err        error
	addresses  []*models.StructuredAddress
}

func (f *fakeSignupAssessor) RegisterSignup(ctx context.Context, installationID string, address *models.StructuredAddress) (string, models.RiskAssessment, error) {
	if f.err != nil {
		return "", "", f.err
	}
	f.addresses = append(f.addresses, address)
	return f.signupID, f.assessment, nil
}

func (f *fakeSignupAssessor) ReassessSignup(ctx context.Context, signupID string) (models.RiskAssessment, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.assessment, nil
}

func TestSignup(t *testing.T) {
	env := newAuthTestEnv(t)
	env.echo.Validator = &testValidator{validator: validator.New()}

	store := &fakeSignupStore{}
	risk := &fakeSignupAssessor{signupID: "signup-9", assessment: models.RiskLow}
	controller := NewSignupController(store, risk)

	body := `{
		"accountId": "acct-2",
		"email": "new@example.com",
		"structuredAddress": {"countryCode": "BR", "city": "Recife"}
	}`
	c, rec := env.request(t, body, map[string]string{InstallationIDHeader: "install-1"})
	require.NoError(t, controller.Signup(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.created, 1)
	assert.Equal(t, "acct-2", store.created[0].AccountID)
	assert.Equal(t, "signup-9", store.created[0].SignupID)

	require.Len(t, risk.addresses, 1)
	assert.Equal(t, "Recife", risk.addresses[0].City)
}

func TestSignupToleratesAssessorOutage(t *testing.T) {
	env := newAuthTestEnv(t)
	env.echo.Validator = &testValidator{validator: validator.New()}

	store := &fakeSignupStore{}
	risk := &fakeSignupAssessor{err: context.DeadlineExceeded}
	controller := NewSignupController(store, risk)

	c, rec := env.request(t, `{"accountId":"acct-2","email":"new@example.com"}`, map[string]string{InstallationIDHeader: "install-1"})
	require.NoError(t, controller.Signup(c))

	// The account is still created; it just carries no signup id.
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, store.created, 1)
	assert.Empty(t, store.created[0].SignupID)
}

func TestSignupValidation(t *testing.T) {
	env := newAuthTestEnv(t)
	env.echo.Validator = &testValidator{validator: validator.New()}

	controller := NewSignupController(&fakeSignupStore{}, &fakeSignupAssessor{})

	c, rec := env.request(t, `{"accountId":"acct-2","email":"not-an-email"}`, nil)
	require.NoError(t, controller.Signup(c))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSignupDuplicateAccount(t *testing.T) {
	env := newAuthTestEnv(t)
	env.echo.Validator = &testValidator{validator: validator.New()}

	store := &fakeSignupStore{}
	controller := NewSignupController(store, &fakeSignupAssessor{signupID: "signup-9", assessment: models.RiskLow})

	body := `{"accountId":"acct-2","email":"new@example.com"}`

	c, rec := env.request(t, body, map[string]string{InstallationIDHeader: "install-1"})
	require.NoError(t, controller.Signup(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	c, rec = env.request(t, body, map[string]string{InstallationIDHeader: "install-1"})
	require.NoError(t, controller.Signup(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetSignup(t *testing.T) {
	env := newAuthTestEnv(t)
	env.echo.Validator = &testValidator{validator: validator.New()}

	store := &fakeSignupStore{}
	risk := &fakeSignupAssessor{signupID: "signup-9", assessment: models.RiskHigh}
	controller := NewSignupController(store, risk)

	require.NoError(t, store.Create(context.Background(), &models.User{
		AccountID: "acct-2",
		Email:     "new@example.com",
		SignupID:  "signup-9",
	}))

	req, rec := env.request(t, ``, nil)
	req.SetParamNames("id")
	req.SetParamValues("signup-9")

	require.NoError(t, controller.GetSignup(req))

	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, string(models.RiskHigh), data["assessment"])
}

func TestGetSignupNotFound(t *testing.T) {
	env := newAuthTestEnv(t)

	controller := NewSignupController(&fakeSignupStore{}, &fakeSignupAssessor{})

	c, rec := env.request(t, ``, nil)
	c.SetParamNames("id")
	c.SetParamValues("signup-missing")

	require.NoError(t, controller.GetSignup(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
