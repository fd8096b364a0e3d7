package helpers

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("render: %w", NewDatabaseError("query failed", cause))

	assert.True(t, IsDatabaseError(err))
	assert.False(t, IsValidationError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "render: query failed: connection refused", err.Error())

	assert.True(t, IsValidationError(NewValidationError("bad service")))
	assert.True(t, IsNotFoundError(NewNotFoundError("no page")))
}

func TestRetryWithBackoff(t *testing.T) {
	t.Run("SucceedsAfterFailures", func(t *testing.T) {
		calls := 0
		err := RetryWithBackoff(context.Background(), nil, "connect", 3, time.Millisecond, func() error {
			calls++
			if calls < 3 {
				return errors.New("not yet")
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
	})

	t.Run("GivesUp", func(t *testing.T) {
		calls := 0
		last := errors.New("down")
		err := RetryWithBackoff(context.Background(), nil, "connect", 2, time.Millisecond, func() error {
			calls++
			return last
		})
		assert.Equal(t, 2, calls)
		assert.True(t, IsDatabaseError(err))
		assert.ErrorIs(t, err, last)
	})

	t.Run("Cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := RetryWithBackoff(ctx, nil, "connect", 5, time.Hour, func() error {
			return errors.New("down")
		})
		assert.ErrorIs(t, err, context.Canceled)
	})
}
