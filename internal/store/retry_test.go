package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
)

var fastRetry = retryPolicy{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond, BackoffFactor: 2}

func TestRetryBusyRecovers(t *testing.T) {
	calls := 0
	err := retryBusy(context.Background(), fastRetry, func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("insert: %w", sqlite3.Error{Code: sqlite3.ErrBusy})
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryBusyGivesUp(t *testing.T) {
	calls := 0
	err := retryBusy(context.Background(), fastRetry, func() error {
		calls++
		return sqlite3.Error{Code: sqlite3.ErrLocked}
	})
	assert.True(t, isBusy(err))
	assert.Equal(t, 3, calls)
}

func TestRetryBusyStopsOnOtherErrors(t *testing.T) {
	calls := 0
	err := retryBusy(context.Background(), fastRetry, func() error {
		calls++
		return fmt.Errorf("constraint failed")
	})
	assert.EqualError(t, err, "constraint failed")
	assert.Equal(t, 1, calls)
}

func TestRetryBusyHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := retryBusy(ctx, fastRetry, func() error {
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	})
	assert.ErrorIs(t, err, context.Canceled)
}
