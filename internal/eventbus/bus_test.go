package eventbus

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitd/pkg/types"
)

func recv(t *testing.T, ch <-chan types.Event) types.Event {
	t.Helper()
	select {
	case e, ok := <-ch:
		require.True(t, ok, "channel closed")
		return e
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return types.Event{}
	}
}

func TestPublishSubscribe(t *testing.T) {
	b := New(zerolog.Nop())
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := b.Subscribe(ctx)
	require.NoError(t, err)

	b.Publish(types.Event{Name: "model_loaded", Model: "m1", Time: time.Now().UTC(), Fields: map[string]any{"rows": 3}})
	e := recv(t, ch)
	assert.Equal(t, "model_loaded", e.Name)
	assert.Equal(t, "m1", e.Model)
	assert.EqualValues(t, 3, e.Fields["rows"])
}

func TestFanOut(t *testing.T) {
	b := New(zerolog.Nop())
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := b.Subscribe(ctx)
	require.NoError(t, err)
	c, err := b.Subscribe(ctx)
	require.NoError(t, err)

	b.Publish(types.Event{Name: "fit_done", Model: "x"})
	assert.Equal(t, "fit_done", recv(t, a).Name)
	assert.Equal(t, "fit_done", recv(t, c).Name)
}

func TestDeliveryKeepsPublishOrder(t *testing.T) {
	b := New(zerolog.Nop())
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := b.Subscribe(ctx)
	require.NoError(t, err)

	const perRound = 50
	for round := 0; round < 20; round++ {
		for i := 0; i < perRound; i++ {
			b.Publish(types.Event{Name: "fit_started", Fields: map[string]any{"seq": i}})
		}
		for i := 0; i < perRound; i++ {
			e := recv(t, ch)
			require.EqualValues(t, i, e.Fields["seq"], "round %d", round)
		}
	}
}

func TestSubscribeEndsWithContext(t *testing.T) {
	b := New(zerolog.Nop())
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx)
	require.NoError(t, err)
	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "expected closed channel")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription not closed after cancel")
	}
}

func TestClose(t *testing.T) {
	b := New(zerolog.Nop())
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
	b.Publish(types.Event{Name: "ignored"})
	_, err := b.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

func TestLogService(t *testing.T) {
	b := New(zerolog.Nop())
	defer b.Close()
	var buf syncBuffer
	svc := LogService{Bus: b, Log: zerolog.New(&buf)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	// the service subscribes asynchronously; publish until it shows up
	require.Eventually(t, func() bool {
		b.Publish(types.Event{Name: "model_removed", Model: "m9"})
		return bytes.Contains([]byte(buf.String()), []byte(`"model":"m9"`))
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, "event-log", svc.String())
}
