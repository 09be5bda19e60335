package repositories

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/mkassem/veridian_backend/models"
	"github.com/mkassem/veridian_backend/utils"
)

// MemorySigninCodeRepository is an in-process ledger with the same
// contract as the Mongo-backed one. It serves single-process deployments
// without a database and the handler tests.
type MemorySigninCodeRepository struct {
	mu    sync.Mutex
	codes map[string]*models.SigninCode
}

func NewMemorySigninCodeRepository() *MemorySigninCodeRepository {
	return &MemorySigninCodeRepository{
		codes: make(map[string]*models.SigninCode),
	}
}

func (r *MemorySigninCodeRepository) Issue(ctx context.Context, userID primitive.ObjectID) (*models.SigninCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for attempt := 0; attempt < 3; attempt++ {
		code, err := utils.GenerateSigninCode()
		if err != nil {
			return nil, err
		}
		if _, exists := r.codes[code]; exists {
			continue
		}

		signinCode := &models.SigninCode{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			Code:      code,
			CreatedAt: now,
			ExpiresAt: now.Add(CodeTTL()),
		}
		r.codes[code] = signinCode

		copied := *signinCode
		return &copied, nil
	}

	return nil, errors.New("failed to mint a unique signin code")
}

func (r *MemorySigninCodeRepository) Find(ctx context.Context, userID primitive.ObjectID, code string) (*models.SigninCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	signinCode, ok := r.codes[code]
	if !ok || signinCode.UserID != userID {
		return nil, ErrCodeNotFound
	}

	copied := *signinCode
	return &copied, nil
}

func (r *MemorySigninCodeRepository) Consume(ctx context.Context, code *models.SigninCode) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.codes[code.Code]
	if !ok || stored.ID != code.ID {
		return ErrCodeNotFound
	}

	if stored.Consumed() {
		return ErrCodeUsed
	}

	now := time.Now()
	if stored.Expired(now) {
		return ErrCodeExpired
	}

	stored.UsedAt = &now
	code.UsedAt = &now
	return nil
}

// CountForUser reports how many codes have ever been issued to the user.
func (r *MemorySigninCodeRepository) CountForUser(userID primitive.ObjectID) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, code := range r.codes {
		if code.UserID == userID {
			n++
		}
	}
	return n
}
