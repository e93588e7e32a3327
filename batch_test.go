package rpools

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBatch_WaitsForCohort(t *testing.T) {
	t.Parallel()

	pool, err := New(4)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	batch := pool.Batch()
	count := atomic.Int64{}
	const njobs = 100
	for i := 0; i < njobs; i++ {
		require.NoError(t, batch.Go(func() { count.Add(1) }))
	}
	batch.Wait()
	require.Equal(t, int64(njobs), count.Load())
}

func TestBatch_Reusable(t *testing.T) {
	t.Parallel()

	pool, err := New(2)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	batch := pool.Batch()
	count := atomic.Int64{}
	for cycle := 1; cycle <= 3; cycle++ {
		for i := 0; i < 10; i++ {
			require.NoError(t, batch.Go(func() { count.Add(1) }))
		}
		batch.Wait()
		require.Equal(t, int64(cycle*10), count.Load())
	}
}

func TestBatch_GoAfterClose(t *testing.T) {
	t.Parallel()

	pool, err := New(1)
	require.NoError(t, err)
	require.NoError(t, pool.Close())

	batch := pool.Batch()
	err = batch.Go(func() { t.Error("job ran on a closed pool") })
	require.ErrorIs(t, err, ErrPoolClosed)

	// The failed submission must not leave the counter held.
	batch.Wait()
}

func TestBatch_PanickingJobStillReleases(t *testing.T) {
	t.Parallel()

	pool, err := NewWith(Options{Workers: 2, Logger: quietLogger()})
	require.NoError(t, err)

	batch := pool.Batch()
	require.NoError(t, batch.Go(func() { panic("boom") }))
	count := atomic.Int64{}
	require.NoError(t, batch.Go(func() { count.Add(1) }))

	batch.Wait()
	require.Equal(t, int64(1), count.Load())
	require.NoError(t, pool.Close())
	require.Equal(t, uint64(1), pool.Stats().Recovered)
}
