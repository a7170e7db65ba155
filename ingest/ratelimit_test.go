package ingest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/solgate-dev/solgate/ingest"
)

func TestLimiter_SlidingWindow(t *testing.T) {
	clock := time.Now()
	l := ingest.NewLimiter(3, time.Minute).
		WithClock(func() time.Time { return clock })

	for i := 0; i < 3; i++ {
		ok, _ := l.Allow("10.0.0.1")
		assert.Truef(t, ok, "request %d should be allowed", i)
	}

	ok, retryAfter := l.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Greater(t, retryAfter, time.Duration(0))

	// The window slides: once the oldest request ages out, one slot
	// frees up.
	clock = clock.Add(61 * time.Second)
	ok, _ = l.Allow("10.0.0.1")
	assert.True(t, ok)
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := ingest.NewLimiter(1, time.Minute)

	ok, _ := l.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = l.Allow("10.0.0.1")
	assert.False(t, ok)

	ok, _ = l.Allow("10.0.0.2")
	assert.True(t, ok)
}

func TestDedup_WindowExpiry(t *testing.T) {
	clock := time.Now()
	d := ingest.NewDedup(5 * time.Minute).
		WithClock(func() time.Time { return clock })

	assert.False(t, d.Seen("sig-1"))
	assert.True(t, d.Seen("sig-1"))

	clock = clock.Add(4 * time.Minute)
	assert.True(t, d.Seen("sig-1"))

	// First sight set the clock; replays do not extend the window.
	clock = clock.Add(2 * time.Minute)
	assert.False(t, d.Seen("sig-1"))
}

func TestDedup_SignaturesAreIndependent(t *testing.T) {
	d := ingest.NewDedup(time.Minute)

	assert.False(t, d.Seen("sig-a"))
	assert.False(t, d.Seen("sig-b"))
	assert.True(t, d.Seen("sig-a"))
}
