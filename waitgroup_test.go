package rpools

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitGroup_WaitOnZeroReturnsImmediately(t *testing.T) {
	t.Parallel()

	wg := &WaitGroup{}
	wg.Wait()

	wg = NewWaitGroup(0)
	wg.Wait()
}

func TestWaitGroup_WaitBlocksUntilZero(t *testing.T) {
	t.Parallel()

	wg := &WaitGroup{}
	wg.Add(2)

	release := make(chan struct{})
	finished := atomic.Int32{}
	for i := 0; i < 2; i++ {
		go func() {
			<-release
			finished.Add(1)
			wg.Done()
		}()
	}

	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		t.Fatal("Wait returned with a non-zero counter")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after the counter reached zero")
	}
	require.Equal(t, int32(2), finished.Load())
}

func TestWaitGroup_MultipleWaiters(t *testing.T) {
	t.Parallel()

	wg := NewWaitGroup(1)

	const nwaiters = 5
	released := make(chan struct{}, nwaiters)
	for i := 0; i < nwaiters; i++ {
		go func() {
			wg.Wait()
			released <- struct{}{}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	require.Empty(t, released)

	wg.Done()
	for i := 0; i < nwaiters; i++ {
		select {
		case <-released:
		case <-time.After(time.Second):
			t.Fatalf("waiter %d was not released", i)
		}
	}
}

func TestWaitGroup_Reuse(t *testing.T) {
	t.Parallel()

	wg := &WaitGroup{}
	count := atomic.Int32{}

	for cycle := 0; cycle < 3; cycle++ {
		const njobs = 10
		wg.Add(njobs)
		for i := 0; i < njobs; i++ {
			go func() {
				count.Add(1)
				wg.Done()
			}()
		}
		wg.Wait()
		require.Equal(t, int32((cycle+1)*njobs), count.Load())
	}
}

func TestWaitGroup_UnderflowPanics(t *testing.T) {
	t.Parallel()

	require.PanicsWithValue(t, negativeCounter, func() {
		wg := &WaitGroup{}
		wg.Done()
	})
	require.PanicsWithValue(t, negativeCounter, func() {
		wg := NewWaitGroup(1)
		wg.Add(-2)
	})
}

func TestNewWaitGroup_NegativePanics(t *testing.T) {
	t.Parallel()

	require.PanicsWithValue(t, negativeCounter, func() {
		NewWaitGroup(-1)
	})
}

func TestWaitGroup_InitialCount(t *testing.T) {
	t.Parallel()

	wg := NewWaitGroup(2)

	waited := make(chan struct{})
	go func() {
		wg.Wait()
		close(waited)
	}()

	wg.Done()
	select {
	case <-waited:
		t.Fatal("Wait returned before the initial count was consumed")
	case <-time.After(20 * time.Millisecond):
	}

	wg.Done()
	select {
	case <-waited:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return")
	}
}

func TestGuard_ReleaseOnce(t *testing.T) {
	t.Parallel()

	wg := &WaitGroup{}
	guard := wg.Hold()
	guard.Release()
	guard.Release()
	guard.Release()
	wg.Wait()

	// The extra releases must not have touched the counter.
	require.PanicsWithValue(t, negativeCounter, wg.Done)
}

func TestGuard_ReleasesOnPanicPath(t *testing.T) {
	t.Parallel()

	pool, err := NewWith(Options{Workers: 1, Logger: quietLogger()})
	require.NoError(t, err)

	wg := &WaitGroup{}
	guard := wg.Hold()
	require.NoError(t, pool.Execute(func() {
		defer guard.Release()
		panic("boom")
	}))

	wg.Wait()
	require.NoError(t, pool.Close())
	require.Equal(t, uint64(1), pool.Stats().Recovered)
}

func TestWaitGroup_CountsPoolJobs(t *testing.T) {
	t.Parallel()

	// 3 workers, 20 jobs, each incrementing a shared counter and
	// releasing one unit of the group.
	const nworkers, njobs = 3, 20
	pool, err := New(nworkers)
	require.NoError(t, err)

	wg := &WaitGroup{}
	count := atomic.Int64{}
	for i := 0; i < njobs; i++ {
		guard := wg.Hold()
		require.NoError(t, pool.Execute(func() {
			defer guard.Release()
			count.Add(1)
		}))
	}

	wg.Wait()
	require.Equal(t, int64(njobs), count.Load())
	require.NoError(t, pool.Close())
}
