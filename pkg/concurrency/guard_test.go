package concurrency

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrencyGuard_Acquire(t *testing.T) {
	g := NewConcurrencyGuard()
	assert.False(t, g.Busy())

	release, err := g.Acquire()
	require.NoError(t, err)
	assert.True(t, g.Busy())

	release()
	assert.False(t, g.Busy())
}

func TestConcurrencyGuard_RejectsWhileBusy(t *testing.T) {
	g := NewConcurrencyGuard()
	release, err := g.Acquire()
	require.NoError(t, err)

	second, err := g.Acquire()
	assert.ErrorIs(t, err, ErrBusy)
	assert.Nil(t, second)

	release()
	again, err := g.Acquire()
	require.NoError(t, err)
	again()
}

func TestConcurrencyGuard_ReleaseTwice(t *testing.T) {
	g := NewConcurrencyGuard()
	first, err := g.Acquire()
	require.NoError(t, err)
	first()

	second, err := g.Acquire()
	require.NoError(t, err)
	first()
	assert.True(t, g.Busy(), "a stale release must not free a later holder")
	second()
	assert.False(t, g.Busy())
}

func TestConcurrencyGuard_OneAtATime(t *testing.T) {
	g := NewConcurrencyGuard()
	var running, maxRunning, wins int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := g.Acquire()
			if err != nil {
				return
			}
			defer release()
			atomic.AddInt32(&wins, 1)
			n := atomic.AddInt32(&running, 1)
			for {
				m := atomic.LoadInt32(&maxRunning)
				if n <= m || atomic.CompareAndSwapInt32(&maxRunning, m, n) {
					break
				}
			}
			atomic.AddInt32(&running, -1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxRunning)
	assert.GreaterOrEqual(t, wins, int32(1))
	assert.False(t, g.Busy())
}
