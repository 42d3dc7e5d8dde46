package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterDisabledWhenRPMNotPositive(t *testing.T) {
	r := NewRateLimiter(0, 0)
	assert.False(t, r.Enabled())
	for i := 0; i < 1000; i++ {
		assert.True(t, r.Allow("client-a"))
	}
}

func TestRateLimiterAllowsUpToBurstThenBlocks(t *testing.T) {
	r := NewRateLimiter(60, 3)
	assert.True(t, r.Enabled())

	assert.True(t, r.Allow("client-a"))
	assert.True(t, r.Allow("client-a"))
	assert.True(t, r.Allow("client-a"))
	assert.False(t, r.Allow("client-a"), "burst exhausted, no time has elapsed to refill")
}

func TestRateLimiterTracksClientsIndependently(t *testing.T) {
	r := NewRateLimiter(60, 1)

	assert.True(t, r.Allow("client-a"))
	assert.False(t, r.Allow("client-a"))

	assert.True(t, r.Allow("client-b"), "a separate client id must have its own bucket")
}
