package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/soundpack-store/internal/domain"
	"github.com/fjod/soundpack-store/internal/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(req IntentRequester, ttl time.Duration) *Registry {
	return NewRegistry(req, &mockClearer{}, pricing.Default(), ttl, discardLogger())
}

func TestRegistry_GetReturnsSameHandshake(t *testing.T) {
	r := newTestRegistry(&mockRequester{secret: "x"}, time.Minute)

	h1 := r.Get("s1")
	h2 := r.Get("s1")
	h3 := r.Get("s2")

	assert.Same(t, h1, h2)
	assert.NotSame(t, h1, h3)
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_OnCartChangedInvalidatesSession(t *testing.T) {
	r := newTestRegistry(&mockRequester{secret: "x"}, time.Minute)
	h := r.Get("s1")
	_, err := h.Begin(context.Background(), testCart(pack("a", "25", 1)))
	require.NoError(t, err)

	r.OnCartChanged("s1", testCart(pack("a", "25", 2)))
	assert.Equal(t, domain.CheckoutStatusIdle, h.Session().Status)

	// unknown sessions are ignored
	r.OnCartChanged("nobody", domain.NewCart("nobody"))
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_Abandon(t *testing.T) {
	r := newTestRegistry(&mockRequester{secret: "x"}, time.Minute)
	h := r.Get("s1")
	_, err := h.Begin(context.Background(), testCart(pack("a", "25", 1)))
	require.NoError(t, err)

	r.Abandon("s1")
	r.Abandon("unknown")
	assert.Equal(t, domain.CheckoutStatusIdle, h.Session().Status)
}

func TestRegistry_SweepKeepsConfirmingSessions(t *testing.T) {
	r := newTestRegistry(&mockRequester{secret: "x"}, time.Minute)

	r.Get("idle")
	confirming := r.Get("confirming")
	_, err := confirming.Begin(context.Background(), testCart(pack("a", "25", 1)))
	require.NoError(t, err)
	_, err = confirming.Submit(validDetails())
	require.NoError(t, err)

	assert.Zero(t, r.Sweep(time.Now()))
	assert.Equal(t, 1, r.Sweep(time.Now().Add(2*time.Minute)))

	_, ok := r.Lookup("idle")
	assert.False(t, ok)
	_, ok = r.Lookup("confirming")
	assert.True(t, ok)
}

func TestRegistry_RunStopsOnCancel(t *testing.T) {
	r := newTestRegistry(&mockRequester{secret: "x"}, time.Millisecond)
	r.Get("s1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx, 5*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool { return r.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
