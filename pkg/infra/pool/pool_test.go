package pool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolSubmit(t *testing.T) {
	p, err := NewPool("test", RetrievalPool, &Config{Capacity: 10, ExpiryDuration: time.Second, MaxBlockingTasks: 0})
	require.NoError(t, err)
	defer p.Release()

	var counter atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		}))
	}
	wg.Wait()

	assert.Equal(t, int32(50), counter.Load())
	assert.Equal(t, int64(50), p.Stats().Submitted)
}

func TestRunAllRunsEveryTaskOnce(t *testing.T) {
	p, err := NewPool("test", RetrievalPool, RetrievalPoolConfig())
	require.NoError(t, err)
	defer p.Release()

	var a, b atomic.Int32
	p.RunAll(func() { a.Add(1) }, func() { b.Add(1) })

	assert.Equal(t, int32(1), a.Load())
	assert.Equal(t, int32(1), b.Load())
}

func TestRunAllFallsBackWhenOverloaded(t *testing.T) {
	p, err := NewPool("tiny", RetrievalPool, &Config{Capacity: 1, ExpiryDuration: time.Second, Nonblocking: true})
	require.NoError(t, err)
	defer p.Release()

	// 占满唯一的 worker
	block := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, p.Submit(func() {
		close(started)
		<-block
	}))
	<-started

	var ran atomic.Int32
	p.RunAll(func() { ran.Add(1) }, func() { ran.Add(1) })
	close(block)

	assert.Equal(t, int32(2), ran.Load())
	assert.GreaterOrEqual(t, p.Stats().Rejected, int64(2))
}

func TestRunAllNilPoolIsSequential(t *testing.T) {
	var p *Pool
	var order []int
	p.RunAll(func() { order = append(order, 1) }, func() { order = append(order, 2) })
	assert.Equal(t, []int{1, 2}, order)
}

func TestSubmitAfterRelease(t *testing.T) {
	p, err := NewPool("test", IngestPool, IngestPoolConfig())
	require.NoError(t, err)
	p.Release()

	assert.ErrorIs(t, p.Submit(func() {}), ErrPoolClosed)
}

func TestManager(t *testing.T) {
	m := NewManager()
	p1, err := m.Register(RetrievalPool, RetrievalPoolConfig())
	require.NoError(t, err)
	p2, err := m.Register(RetrievalPool, nil)
	require.NoError(t, err)
	assert.Same(t, p1, p2)

	_, err = m.Get(IngestPool)
	assert.ErrorIs(t, err, ErrPoolNotFound)

	assert.Contains(t, m.Stats(), "retrieval")
	m.ReleaseAll(time.Second)

	_, err = m.Get(RetrievalPool)
	assert.ErrorIs(t, err, ErrPoolNotFound)
}
