package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fredsystems/zabbid/internal/pkg/logger"
)

func init() {
	_ = logger.Init("error", "json")
}

func TestNewPool(t *testing.T) {
	p, err := NewPool(PoolConfig{Name: "csv-import", Size: 8})
	require.NoError(t, err)
	defer p.Shutdown()

	assert.Equal(t, 8, p.Metrics()["cap"])
}

func TestNewPool_DefaultsSizeToOne(t *testing.T) {
	p, err := NewPool(PoolConfig{Name: "zero"})
	require.NoError(t, err)
	defer p.Shutdown()

	assert.Equal(t, 1, p.Metrics()["cap"])
}

func TestPool_Submit(t *testing.T) {
	ctx := context.Background()
	p, err := NewPool(PoolConfig{Name: "csv-import", Size: 10})
	require.NoError(t, err)
	defer p.Shutdown()

	var executed atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)

	err = p.Submit(ctx, func(ctx context.Context) {
		executed.Store(true)
		wg.Done()
	})
	require.NoError(t, err)

	wg.Wait()
	assert.True(t, executed.Load())
}

func TestPool_Submit_CancelledContext(t *testing.T) {
	ctx := context.Background()
	p, err := NewPool(PoolConfig{Name: "csv-import", Size: 4})
	require.NoError(t, err)
	defer p.Shutdown()

	cancelledCtx, cancel := context.WithCancel(ctx)
	cancel()

	err = p.Submit(cancelledCtx, func(ctx context.Context) {
		t.Error("task should not execute with a cancelled context")
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPool_Submit_ManyRows(t *testing.T) {
	ctx := context.Background()
	p, err := NewPool(PoolConfig{Name: "csv-import", Size: 4})
	require.NoError(t, err)
	defer p.Shutdown()

	const rows = 50
	var processed atomic.Int64
	var wg sync.WaitGroup
	wg.Add(rows)

	for i := 0; i < rows; i++ {
		err := p.Submit(ctx, func(ctx context.Context) {
			defer wg.Done()
			processed.Add(1)
		})
		require.NoError(t, err)
	}

	wg.Wait()
	assert.EqualValues(t, rows, processed.Load())
}

func TestPool_Metrics(t *testing.T) {
	p, err := NewPool(PoolConfig{Name: "csv-import", Size: 5})
	require.NoError(t, err)
	defer p.Shutdown()

	m := p.Metrics()
	assert.Contains(t, m, "running")
	assert.Contains(t, m, "free")
	assert.Equal(t, 5, m["cap"])
}

func TestPool_Shutdown(t *testing.T) {
	p, err := NewPool(PoolConfig{Name: "csv-import", Size: 2})
	require.NoError(t, err)

	p.Shutdown()

	// A second shutdown must not panic.
	p.Shutdown()
}

func TestPool_PanicRecovered(t *testing.T) {
	ctx := context.Background()
	p, err := NewPool(PoolConfig{Name: "csv-import", Size: 2})
	require.NoError(t, err)
	defer p.Shutdown()

	var wg sync.WaitGroup
	wg.Add(1)
	err = p.Submit(ctx, func(ctx context.Context) {
		defer wg.Done()
		panic("row validation blew up")
	})
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("panic handler did not recover goroutine")
	}
}
