package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var (
	ErrInvalidInterval = errors.New("schedule: job interval must be greater than 0")
	ErrNoTasks         = errors.New("schedule: job must have at least one task")
)

// Task is one step of a job. A task that returns an error is retried as
// configured on its job.
type Task func(ctx context.Context) error

type Scheduler struct {
	jobs   []*Job
	mu     sync.RWMutex
	tick   time.Duration
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewScheduler(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Scheduler{
		jobs:   make([]*Job, 0),
		tick:   time.Second,
		logger: logger,
	}
}

// WithTick sets how often due jobs are looked for.
func (scheduler *Scheduler) WithTick(tick time.Duration) *Scheduler {
	scheduler.tick = tick
	return scheduler
}

func (scheduler *Scheduler) AddJob(job *Job) error {
	if err := job.validate(); err != nil {
		return fmt.Errorf("%w (job %q)", err, job.name)
	}

	scheduler.mu.Lock()
	defer scheduler.mu.Unlock()
	scheduler.jobs = append(scheduler.jobs, job)
	return nil
}

type Job struct {
	tasks             []Task
	interval          time.Duration
	nextExecuteAt     time.Time
	previousExecuteAt time.Time
	name              string
	maxRetries        int
	timeout           time.Duration
	running           bool
	mu                sync.Mutex
}

func NewJob(name string) *Job {
	return &Job{
		name:  name,
		tasks: make([]Task, 0),
	}
}

func (job *Job) WithTasks(tasks ...Task) *Job {
	job.tasks = tasks
	return job
}

func (job *Job) WithInterval(interval time.Duration) *Job {
	job.interval = interval
	return job
}

// WithExecuteAt sets the first run. By default a job first runs one interval
// after it is added.
func (job *Job) WithExecuteAt(executeAt time.Time) *Job {
	job.nextExecuteAt = executeAt
	return job
}

func (job *Job) WithTimeout(timeout time.Duration) *Job {
	job.timeout = timeout
	return job
}

func (job *Job) WithRetries(maxRetries int) *Job {
	job.maxRetries = maxRetries
	return job
}

func (job *Job) Name() string {
	return job.name
}

// PreviousExecuteAt is when the last completed run started.
func (job *Job) PreviousExecuteAt() time.Time {
	job.mu.Lock()
	defer job.mu.Unlock()
	return job.previousExecuteAt
}

func (job *Job) validate() error {
	if job.interval <= 0 {
		return ErrInvalidInterval
	}
	if len(job.tasks) == 0 {
		return ErrNoTasks
	}

	job.mu.Lock()
	defer job.mu.Unlock()
	if job.nextExecuteAt.IsZero() {
		job.nextExecuteAt = time.Now().Add(job.interval)
	}
	return nil
}

// Run executes due jobs until ctx ends, then waits for running jobs.
func (scheduler *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(scheduler.tick)
	defer ticker.Stop()
	defer scheduler.wg.Wait()

	for {
		select {
		case now := <-ticker.C:
			scheduler.mu.RLock()
			jobs := make([]*Job, len(scheduler.jobs))
			copy(jobs, scheduler.jobs)
			scheduler.mu.RUnlock()

			for _, job := range jobs {
				if job.claim(now) {
					scheduler.wg.Add(1)
					go scheduler.executeJob(ctx, job, now)
				}
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// claim marks a due job as running. A job never overlaps with itself.
func (job *Job) claim(now time.Time) bool {
	job.mu.Lock()
	defer job.mu.Unlock()

	if job.running || job.nextExecuteAt.After(now) {
		return false
	}
	job.running = true
	return true
}

func (job *Job) finish(startedAt time.Time) {
	job.mu.Lock()
	defer job.mu.Unlock()

	job.running = false
	job.previousExecuteAt = startedAt
	job.nextExecuteAt = time.Now().Add(job.interval)
}

func (scheduler *Scheduler) executeJob(ctx context.Context, job *Job, now time.Time) {
	defer scheduler.wg.Done()
	defer job.finish(now)
	defer func() {
		if r := recover(); r != nil {
			scheduler.logger.Error("job panicked", slog.String("job", job.name), slog.Any("panic", r))
		}
	}()

	for _, task := range job.tasks {
		if err := scheduler.executeTask(ctx, job, task); err != nil {
			scheduler.logger.Warn("task failed", slog.String("job", job.name), slog.Any("error", err))
		}
	}
}

func (scheduler *Scheduler) executeTask(ctx context.Context, job *Job, task Task) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(
			backoff.WithInitialInterval(100*time.Millisecond),
			backoff.WithMaxInterval(5*time.Second),
		), uint64(max(job.maxRetries, 0))),
		ctx,
	)

	return backoff.Retry(func() error {
		taskCtx := ctx
		if job.timeout > 0 {
			var cancel context.CancelFunc
			taskCtx, cancel = context.WithTimeout(ctx, job.timeout)
			defer cancel()
		}
		return task(taskCtx)
	}, policy)
}
