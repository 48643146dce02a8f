package queue

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"farcaster-trader/internal/dispatcher"
	"farcaster-trader/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type mockDispatcher struct {
	mu   sync.Mutex
	keys []string
	err  error
}

func (m *mockDispatcher) Dispatch(ctx context.Context, req dispatcher.Request) (dispatcher.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, string(req.Key))
	return dispatcher.Result{DispatchID: "d"}, m.err
}

func (m *mockDispatcher) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys)
}

func TestQueueDispatchesJobs(t *testing.T) {
	d := &mockDispatcher{}
	q := New(zaptest.NewLogger(t), d, 2, 10, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.Start(ctx) }()

	require.NoError(t, q.Add(dispatcher.Request{Key: "a"}))
	require.NoError(t, q.Add(dispatcher.Request{Key: "b"}))

	assert.Eventually(t, func() bool { return d.count() == 2 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestQueueFull(t *testing.T) {
	q := New(zaptest.NewLogger(t), &mockDispatcher{}, 1, 1, time.Second)

	// no workers running yet, so the single slot fills
	require.NoError(t, q.Add(dispatcher.Request{Key: "a"}))
	assert.ErrorIs(t, q.Add(dispatcher.Request{Key: "b"}), ErrFull)
}

func TestQueueDrainsOnStop(t *testing.T) {
	d := &mockDispatcher{}
	q := New(zaptest.NewLogger(t), d, 1, 10, time.Second)

	for _, k := range []model.EventKey{"a", "b", "c"} {
		require.NoError(t, q.Add(dispatcher.Request{Key: k}))
	}

	done := make(chan error, 1)
	go func() { done <- q.Start(context.Background()) }()
	q.Stop()
	q.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("queue did not stop")
	}
	assert.Equal(t, 3, d.count())
	assert.ErrorIs(t, q.Add(dispatcher.Request{Key: "late"}), ErrClosed)
}

func TestQueueLogsFailures(t *testing.T) {
	d := &mockDispatcher{err: errors.New("agent down")}
	q := New(zaptest.NewLogger(t), d, 1, 1, time.Second)

	done := make(chan error, 1)
	go func() { done <- q.Start(context.Background()) }()
	require.NoError(t, q.Add(dispatcher.Request{Key: "a"}))

	assert.Eventually(t, func() bool { return d.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	q.Stop()
	assert.NoError(t, <-done)
}
