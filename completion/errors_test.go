package completion

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyStatus(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		transient bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, transient: true},
		{name: "server error", status: http.StatusInternalServerError, transient: true},
		{name: "bad gateway", status: http.StatusBadGateway, transient: true},
		{name: "unauthorized", status: http.StatusUnauthorized, transient: false},
		{name: "forbidden", status: http.StatusForbidden, transient: false},
		{name: "bad request", status: http.StatusBadRequest, transient: false},
		{name: "not found", status: http.StatusNotFound, transient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyStatus(tt.status, []byte("details"))
			require.Error(t, err)
			assert.Equal(t, tt.transient, IsTransient(err))
			assert.Equal(t, !tt.transient, IsFatal(err))
		})
	}
}

func TestClassifyStatusTruncatesBody(t *testing.T) {
	err := classifyStatus(http.StatusInternalServerError, []byte(strings.Repeat("x", 500)))
	assert.Less(t, len(err.Error()), 300)
	assert.Contains(t, err.Error(), "...")
}

func TestErrorWrappersUnwrap(t *testing.T) {
	cause := errors.New("connection refused")

	terr := NewTransientError(cause)
	assert.True(t, IsTransient(terr))
	assert.False(t, IsFatal(terr))
	assert.ErrorIs(t, terr, cause)

	ferr := NewFatalError(cause)
	assert.True(t, IsFatal(ferr))
	assert.False(t, IsTransient(ferr))
	assert.ErrorIs(t, ferr, cause)
}

func TestRetryConfigBackoff(t *testing.T) {
	cfg := RetryConfig{
		MaxAttempts:       5,
		BackoffBase:       100 * time.Millisecond,
		BackoffMultiplier: 2.0,
		MaxBackoff:        time.Second,
	}

	// Jitter is +/-25%, so each attempt's backoff stays in a known band.
	for attempt, base := range map[int]time.Duration{
		1: 100 * time.Millisecond,
		2: 200 * time.Millisecond,
		3: 400 * time.Millisecond,
	} {
		b := cfg.Backoff(attempt)
		assert.GreaterOrEqual(t, b, time.Duration(float64(base)*0.75), "attempt %d", attempt)
		assert.LessOrEqual(t, b, time.Duration(float64(base)*1.25), "attempt %d", attempt)
	}

	// Growth is capped before jitter
	b := cfg.Backoff(10)
	assert.LessOrEqual(t, b, time.Duration(float64(time.Second)*1.25))
}
