package http

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingJob struct {
	runs    *atomic.Int32
	aborts  *atomic.Int32
	release <-chan struct{}
	done    *sync.WaitGroup
}

func (job countingJob) Run() {
	if job.release != nil {
		<-job.release
	}
	job.runs.Add(1)
	if job.done != nil {
		job.done.Done()
	}
}

func (job countingJob) Abort() {
	job.aborts.Add(1)
}

func TestRingBuffer(t *testing.T) {
	q := NewRingBuffer[int](3)
	assert.Equal(t, 4, q.Cap())

	for i := range 4 {
		require.NoError(t, q.Enqueue(i))
	}
	assert.ErrorIs(t, q.Enqueue(4), ErrFull)
	assert.Equal(t, 4, q.Len())

	for i := range 4 {
		v, err := q.Dequeue()
		require.NoError(t, err)
		assert.Equal(t, i, v)
	}
	_, err := q.Dequeue()
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	for _, size := range []int{0, 1} {
		q := NewRingBuffer[int](size)
		require.Equal(t, 2, q.Cap(), size)

		// Two laps around the ring: nothing is overwritten and a drained
		// ring reports empty instead of spinning.
		for lap := range 2 {
			require.NoError(t, q.Enqueue(lap*10+1))
			require.NoError(t, q.Enqueue(lap*10+2))
			assert.ErrorIs(t, q.Enqueue(lap*10+3), ErrFull)

			for _, want := range []int{lap*10 + 1, lap*10 + 2} {
				v, err := q.Dequeue()
				require.NoError(t, err)
				assert.Equal(t, want, v)
			}
			_, err := q.Dequeue()
			assert.ErrorIs(t, err, ErrEmpty)
		}
	}
}

func TestWorkerPoolSingleWorkerDefaultQueue(t *testing.T) {
	const jobs = 20

	// queueSize 0 falls back to the worker count.
	pool := NewWorkerPool(1, 0, nil)

	var wg sync.WaitGroup
	var runs, aborts atomic.Int32

	wg.Add(jobs)
	for range jobs {
		for {
			err := pool.Submit(countingJob{runs: &runs, aborts: &aborts, done: &wg})
			if err == nil {
				break
			}
			require.ErrorIs(t, err, ErrQueueFull)
			time.Sleep(time.Millisecond)
		}
	}

	finished := make(chan struct{})
	go func() {
		wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("jobs did not complete")
	}

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.EqualValues(t, jobs, runs.Load())
	assert.Zero(t, aborts.Load())
}

func TestWorkerPoolRunsEveryJobExactlyOnce(t *testing.T) {
	const jobs = 500

	pool := NewWorkerPool(4, jobs, nil)

	var wg sync.WaitGroup
	counters := make([]atomic.Int32, jobs)
	var aborts atomic.Int32

	wg.Add(jobs)
	for i := range jobs {
		require.NoError(t, pool.Submit(countingJob{runs: &counters[i], aborts: &aborts, done: &wg}))
	}
	wg.Wait()

	require.NoError(t, pool.Shutdown(context.Background()))
	for i := range counters {
		assert.EqualValues(t, 1, counters[i].Load(), "job %d", i)
	}
	assert.Zero(t, aborts.Load())
}

func TestWorkerPoolQueueFull(t *testing.T) {
	release := make(chan struct{})
	pool := NewWorkerPool(1, 1, nil)

	var runs, aborts atomic.Int32
	blocker := countingJob{runs: &runs, aborts: &aborts, release: release}
	require.NoError(t, pool.Submit(blocker))

	// Wait until the single worker holds the blocker so the queue is empty.
	require.Eventually(t, func() bool { return pool.Pending() == 0 }, time.Second, time.Millisecond)

	require.NoError(t, pool.Submit(countingJob{runs: &runs, aborts: &aborts}))
	assert.ErrorIs(t, pool.Submit(countingJob{runs: &runs, aborts: &aborts}), ErrQueueFull)

	close(release)
	require.NoError(t, pool.Shutdown(context.Background()))
	assert.EqualValues(t, 2, runs.Load())
}

func TestWorkerPoolShutdownDrainsQueue(t *testing.T) {
	release := make(chan struct{})
	pool := NewWorkerPool(1, 8, nil)

	var runs, aborts atomic.Int32
	for range 5 {
		require.NoError(t, pool.Submit(countingJob{runs: &runs, aborts: &aborts, release: release}))
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.EqualValues(t, 5, runs.Load())
	assert.ErrorIs(t, pool.Submit(countingJob{runs: &runs, aborts: &aborts}), ErrPoolClosed)
}

func TestWorkerPoolShutdownAbortsQueuedJobs(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	pool := NewWorkerPool(1, 8, nil)

	var runs, aborts atomic.Int32
	for range 4 {
		require.NoError(t, pool.Submit(countingJob{runs: &runs, aborts: &aborts, release: release}))
	}
	require.Eventually(t, func() bool { return pool.Pending() == 3 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := pool.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, 3, aborts.Load())
	assert.Zero(t, runs.Load())
}

func TestWorkerPoolRecoversPanics(t *testing.T) {
	pool := NewWorkerPool(1, 4, nil)

	var runs, aborts atomic.Int32
	var wg sync.WaitGroup
	wg.Add(1)

	require.NoError(t, pool.Submit(panicJob{}))
	require.NoError(t, pool.Submit(countingJob{runs: &runs, aborts: &aborts, done: &wg}))
	wg.Wait()

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.EqualValues(t, 1, runs.Load())
}

type panicJob struct{}

func (panicJob) Run()   { panic("job exploded") }
func (panicJob) Abort() {}
