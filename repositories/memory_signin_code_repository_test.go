package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemoryLedgerIssue(t *testing.T) {
	repo := NewMemorySigninCodeRepository()
	userID := primitive.NewObjectID()

	first, err := repo.Issue(context.Background(), userID)
	require.NoError(t, err)
	assert.NotEmpty(t, first.Code)
	assert.Nil(t, first.UsedAt)
	assert.True(t, first.ExpiresAt.After(first.CreatedAt))

	// A second issue mints a fresh code and leaves the first one live.
	second, err := repo.Issue(context.Background(), userID)
	require.NoError(t, err)
	assert.NotEqual(t, first.Code, second.Code)
	assert.Equal(t, 2, repo.CountForUser(userID))

	found, err := repo.Find(context.Background(), userID, first.Code)
	require.NoError(t, err)
	assert.True(t, found.Live(time.Now()))
}

func TestMemoryLedgerFind(t *testing.T) {
	repo := NewMemorySigninCodeRepository()
	userID := primitive.NewObjectID()

	code, err := repo.Issue(context.Background(), userID)
	require.NoError(t, err)

	t.Run("exact match", func(t *testing.T) {
		found, err := repo.Find(context.Background(), userID, code.Code)
		require.NoError(t, err)
		assert.Equal(t, code.ID, found.ID)
	})

	t.Run("wrong code", func(t *testing.T) {
		_, err := repo.Find(context.Background(), userID, "nope")
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("wrong user", func(t *testing.T) {
		_, err := repo.Find(context.Background(), primitive.NewObjectID(), code.Code)
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})
}

func TestMemoryLedgerConsume(t *testing.T) {
	repo := NewMemorySigninCodeRepository()
	userID := primitive.NewObjectID()

	code, err := repo.Issue(context.Background(), userID)
	require.NoError(t, err)

	require.NoError(t, repo.Consume(context.Background(), code))
	assert.NotNil(t, code.UsedAt)

	// Submitting an already-used code fails the same way every time.
	assert.ErrorIs(t, repo.Consume(context.Background(), code), ErrCodeUsed)
	assert.ErrorIs(t, repo.Consume(context.Background(), code), ErrCodeUsed)
}

func TestMemoryLedgerConsumeExpired(t *testing.T) {
	t.Setenv("SIGNIN_CODE_TTL", "1ms")

	repo := NewMemorySigninCodeRepository()
	userID := primitive.NewObjectID()

	code, err := repo.Issue(context.Background(), userID)
	require.NoError(t, err)

	time.Sleep(5 * time.Millisecond)

	assert.ErrorIs(t, repo.Consume(context.Background(), code), ErrCodeExpired)
	assert.Nil(t, code.UsedAt)
}

func TestMemoryLedgerConsumeSingleWinner(t *testing.T) {
	repo := NewMemorySigninCodeRepository()
	userID := primitive.NewObjectID()

	code, err := repo.Issue(context.Background(), userID)
	require.NoError(t, err)

	const callers = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, used := 0, 0

	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			attempt := *code
			err := repo.Consume(context.Background(), &attempt)

			mu.Lock()
			defer mu.Unlock()
			switch err {
			case nil:
				wins++
			case ErrCodeUsed:
				used++
			default:
				t.Errorf("unexpected consume error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins, "exactly one concurrent consume must succeed")
	assert.Equal(t, callers-1, used)
}

func TestCodeTTL(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		assert.Equal(t, DefaultCodeTTL, CodeTTL())
	})

	t.Run("override", func(t *testing.T) {
		t.Setenv("SIGNIN_CODE_TTL", "5m")
		assert.Equal(t, 5*time.Minute, CodeTTL())
	})

	t.Run("garbage ignored", func(t *testing.T) {
		t.Setenv("SIGNIN_CODE_TTL", "soon")
		assert.Equal(t, DefaultCodeTTL, CodeTTL())
	})
}
