package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Job represents a queued background task.
type Job struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Payload  interface{} `json:"payload"`
	Attempt  int         `json:"attempt"`
	Enqueued time.Time   `json:"enqueued"`
}

// DecodePayload converts the job payload into dst. Payloads that travelled
// through a serialising transport arrive as generic JSON values.
func DecodePayload(job Job, dst interface{}) error {
	raw, err := json.Marshal(job.Payload)
	if err != nil {
		return fmt.Errorf("encode payload of job %s: %w", job.ID, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode payload of job %s: %w", job.ID, err)
	}
	return nil
}

// Handler processes a job.
type Handler func(context.Context, Job) error

// Enqueuer accepts jobs for asynchronous processing.
type Enqueuer interface {
	Enqueue(job Job) error
}

// Runner is a queue that can be started and stopped.
type Runner interface {
	Enqueuer
	Start(ctx context.Context)
	Stop()
}

// QueueConfig configures worker pool behaviour.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	Logger     *zap.Logger
}

func (cfg QueueConfig) withDefaults() QueueConfig {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return cfg
}

func prepare(job Job) Job {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	return job
}

// Queue is a lightweight in-memory job dispatcher backed by goroutines.
type Queue struct {
	name    string
	handler Handler
	cfg     QueueConfig

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewQueue builds a new queue with the provided handler.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	cfg = cfg.withDefaults()
	return &Queue{
		name:    name,
		handler: handler,
		cfg:     cfg,
		jobs:    make(chan Job, cfg.BufferSize),
	}
}

// Start begins worker consumption. Safe to call once.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	q.started = true
	q.cfg.Logger.Sugar().Infow("queue started", "queue", q.name, "driver", "memory", "workers", q.cfg.Workers)
}

// Stop cancels workers and waits for them to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.cancel()
	q.mu.Unlock()
	q.wg.Wait()
	q.cfg.Logger.Sugar().Infow("queue stopped", "queue", q.name)
}

// Enqueue pushes a job onto the queue.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx := q.ctx
	started := q.started
	q.mu.Unlock()

	if !started {
		return fmt.Errorf("queue %s not started", q.name)
	}
	job = prepare(job)

	select {
	case <-ctx.Done():
		return fmt.Errorf("queue %s stopped: %w", q.name, ctx.Err())
	case q.jobs <- job:
		return nil
	default:
		return fmt.Errorf("queue %s full", q.name)
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				retryLater(q.ctx, q.name, q.cfg, job, err, q.Enqueue)
			}
		}
	}
}

// retryLater re-submits a failed job after the configured delay until the
// retry budget is spent.
func retryLater(ctx context.Context, name string, cfg QueueConfig, job Job, err error, enqueue func(Job) error) {
	job.Attempt++
	if job.Attempt > cfg.MaxRetries {
		cfg.Logger.Sugar().Errorw("job exceeded retries", "queue", name, "job_id", job.ID, "type", job.Type, "error", err)
		return
	}
	cfg.Logger.Sugar().Warnw("job failed, retrying", "queue", name, "job_id", job.ID, "type", job.Type, "attempt", job.Attempt, "error", err)

	go func(j Job) {
		timer := time.NewTimer(cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			if err := enqueue(j); err != nil {
				cfg.Logger.Sugar().Errorw("failed to requeue job", "queue", name, "job_id", j.ID, "error", err)
			}
		}
	}(job)
}
