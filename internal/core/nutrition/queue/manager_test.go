package queue

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerRunsSubmittedTasks(t *testing.T) {
	m := NewManager(2, 10)
	m.Start()
	t.Cleanup(m.Close)

	var counter int64
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		err := m.Submit(context.Background(), func(ctx context.Context) {
			defer wg.Done()
			atomic.AddInt64(&counter, 1)
		})
		require.NoError(t, err)
	}
	wg.Wait()

	assert.Equal(t, int64(5), atomic.LoadInt64(&counter))
}

func TestManagerStatus(t *testing.T) {
	m := NewManager(3, 7)
	m.Start()
	t.Cleanup(m.Close)

	status := m.GetStatus()
	assert.Equal(t, 3, status.Workers)
	assert.Equal(t, 7, status.MaxQueueSize)
}

func TestManagerSubmitFullQueue(t *testing.T) {
	m := NewManager(1, 1)
	// 不啟動工作協程，隊列塞滿後 Submit 必須立即回錯

	require.NoError(t, m.Submit(context.Background(), func(ctx context.Context) {}))
	err := m.Submit(context.Background(), func(ctx context.Context) {})
	assert.Error(t, err)
}

func TestManagerSubmitAfterClose(t *testing.T) {
	m := NewManager(1, 5)
	m.Start()
	m.Close()

	err := m.Submit(context.Background(), func(ctx context.Context) {})
	assert.Error(t, err)
}

func TestManagerRecoversFromPanic(t *testing.T) {
	m := NewManager(1, 5)
	m.Start()
	t.Cleanup(m.Close)

	done := make(chan struct{})
	require.NoError(t, m.Submit(context.Background(), func(ctx context.Context) {
		defer close(done)
		panic("boom")
	}))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("task did not run")
	}

	// panic 之後工作協程仍存活
	ok := make(chan struct{})
	require.NoError(t, m.Submit(context.Background(), func(ctx context.Context) {
		close(ok)
	}))
	select {
	case <-ok:
	case <-time.After(time.Second):
		t.Fatal("worker did not survive panic")
	}
}

func TestManagerCloseIdempotent(t *testing.T) {
	m := NewManager(1, 5)
	m.Start()
	m.Close()
	m.Close()
}
