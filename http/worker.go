package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
)

var (
	ErrQueueFull  = errors.New("http: worker queue is full")
	ErrPoolClosed = errors.New("http: worker pool is shut down")
)

// DefaultWorkerCount is two workers per CPU.
func DefaultWorkerCount() int {
	return 2 * runtime.NumCPU()
}

// Job is one unit of work. Run is called at most once. Abort is called instead
// of Run when the pool gives up on a job that never started.
type Job interface {
	Run()
	Abort()
}

// WorkerPool runs jobs on a fixed set of goroutines, each locked to its own OS
// thread. The queue is bounded: Submit fails fast instead of blocking.
type WorkerPool struct {
	mu      sync.Mutex
	ready   *sync.Cond
	queue   *RingBuffer[Job]
	stopped bool
	aborted bool

	workers sync.WaitGroup
	logger  *slog.Logger
}

func NewWorkerPool(workers, queueSize int, logger *slog.Logger) *WorkerPool {
	if workers <= 0 {
		workers = DefaultWorkerCount()
	}
	if queueSize <= 0 {
		queueSize = workers
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp := &WorkerPool{
		queue:  NewRingBuffer[Job](queueSize),
		logger: logger,
	}
	wp.ready = sync.NewCond(&wp.mu)

	wp.workers.Add(workers)
	for i := range workers {
		go wp.work(i)
	}
	return wp
}

// Submit queues job for exactly one worker.
func (wp *WorkerPool) Submit(job Job) error {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.stopped {
		return ErrPoolClosed
	}
	if err := wp.queue.Enqueue(job); err != nil {
		return ErrQueueFull
	}

	wp.ready.Signal()
	return nil
}

// Pending is the number of queued jobs no worker has picked up yet.
func (wp *WorkerPool) Pending() int {
	wp.mu.Lock()
	defer wp.mu.Unlock()
	return wp.queue.Len()
}

func (wp *WorkerPool) work(id int) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer wp.workers.Done()

	for {
		wp.mu.Lock()
		for !wp.stopped && wp.queue.Len() == 0 {
			wp.ready.Wait()
		}
		if wp.aborted || (wp.stopped && wp.queue.Len() == 0) {
			wp.mu.Unlock()
			return
		}
		job, err := wp.queue.Dequeue()
		wp.mu.Unlock()

		if err != nil {
			continue
		}
		wp.run(id, job)
	}
}

func (wp *WorkerPool) run(id int, job Job) {
	defer func() {
		if recovered := recover(); recovered != nil {
			wp.logger.Error("job panicked", slog.Int("worker", id), slog.String("panic", fmt.Sprint(recovered)))
		}
	}()

	job.Run()
}

// Shutdown stops accepting jobs and waits for the queue to drain. When ctx ends
// first, jobs still queued are aborted and in-flight jobs are left to finish on
// their own.
func (wp *WorkerPool) Shutdown(ctx context.Context) error {
	wp.mu.Lock()
	wp.stopped = true
	wp.ready.Broadcast()
	wp.mu.Unlock()

	done := make(chan struct{})
	go func() {
		wp.workers.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
	}

	wp.mu.Lock()
	wp.aborted = true
	var abandoned []Job
	for {
		job, err := wp.queue.Dequeue()
		if err != nil {
			break
		}
		abandoned = append(abandoned, job)
	}
	wp.mu.Unlock()

	for _, job := range abandoned {
		job.Abort()
	}
	if len(abandoned) > 0 {
		wp.logger.Warn("aborted queued jobs on shutdown", slog.Int("count", len(abandoned)))
	}
	return ctx.Err()
}
