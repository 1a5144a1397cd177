package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoSucceedsFirstTry(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{Attempts: 4, BaseDelay: time.Millisecond}, func() (string, error) {
		calls++
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 1, calls)
}

func TestDoRecoversAfterFailures(t *testing.T) {
	calls := 0
	got, err := Do(context.Background(), Policy{Attempts: 4, BaseDelay: time.Millisecond}, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestDoExhaustsAttempts(t *testing.T) {
	boom := errors.New("permanent outage")
	calls := 0
	_, err := Do(context.Background(), Policy{Attempts: 4, BaseDelay: time.Millisecond}, func() (string, error) {
		calls++
		return "", boom
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, calls, "Attempts bounds total tries, not retries")
}

func TestDoStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := Do(ctx, Policy{Attempts: 10, BaseDelay: time.Hour}, func() (string, error) {
		calls++
		cancel()
		return "", errors.New("keep trying")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "cancellation interrupts the wait between attempts")
}

func TestDefaultPolicy(t *testing.T) {
	p := Default()
	assert.Equal(t, uint(4), p.Attempts)
	assert.Equal(t, time.Second, p.BaseDelay)
}
