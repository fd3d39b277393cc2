package persistent

import (
	"errors"
	"testing"

	"points-wallet/services/wallet/internal/entity"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestIsRetryableConflict(t *testing.T) {
	assert.True(t, isRetryableConflict(&pgconn.PgError{Code: pgSerializationFailure}))
	assert.True(t, isRetryableConflict(&pgconn.PgError{Code: pgDeadlockDetected}))
	assert.True(t, isRetryableConflict(&pgconn.PgError{Code: pgUniqueViolation}))

	assert.False(t, isRetryableConflict(&pgconn.PgError{Code: "23503"})) // foreign_key_violation
	assert.False(t, isRetryableConflict(entity.ErrInsufficientBalance))
	assert.False(t, isRetryableConflict(errors.New("connection refused")))
	assert.False(t, isRetryableConflict(nil))
}

func TestIsRetryableConflict_WrappedError(t *testing.T) {
	wrapped := errors.Join(errors.New("create wallet"), &pgconn.PgError{Code: pgUniqueViolation})
	assert.True(t, isRetryableConflict(wrapped))
}

// Two first-ever mutations for the same business can both try to insert the
// wallet row; the loser's transaction aborts with a unique violation and
// must be rerun, not surfaced.
func TestWithConflictRetry_AbsorbsLostInsertRace(t *testing.T) {
	attempts := 0
	err := withConflictRetry(func() error {
		attempts++
		if attempts == 1 {
			return &pgconn.PgError{Code: pgUniqueViolation}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestWithConflictRetry_AbsorbsSerializationFailure(t *testing.T) {
	attempts := 0
	err := withConflictRetry(func() error {
		attempts++
		if attempts < 3 {
			return &pgconn.PgError{Code: pgSerializationFailure}
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestWithConflictRetry_NonRetryableFailsImmediately(t *testing.T) {
	attempts := 0
	err := withConflictRetry(func() error {
		attempts++
		return entity.ErrInsufficientBalance
	})

	assert.ErrorIs(t, err, entity.ErrInsufficientBalance)
	assert.Equal(t, 1, attempts)
}

func TestWithConflictRetry_GivesUpAfterBoundedAttempts(t *testing.T) {
	attempts := 0
	conflict := &pgconn.PgError{Code: pgDeadlockDetected}
	err := withConflictRetry(func() error {
		attempts++
		return conflict
	})

	assert.Equal(t, conflictRetries, attempts)
	var pgErr *pgconn.PgError
	assert.ErrorAs(t, err, &pgErr)
	assert.Equal(t, pgDeadlockDetected, pgErr.Code)
}
