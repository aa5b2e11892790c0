package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisPollTimeout = time.Second

// RedisQueue distributes jobs through a Redis list so producers and workers
// may live in different processes.
type RedisQueue struct {
	name    string
	key     string
	client  redis.UniversalClient
	handler Handler
	cfg     QueueConfig

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewRedisQueue builds a Redis backed queue. handler may be nil for
// producer-only processes; Start then launches no workers.
func NewRedisQueue(name string, client redis.UniversalClient, handler Handler, cfg QueueConfig) *RedisQueue {
	return &RedisQueue{
		name:    name,
		key:     "queue:" + name,
		client:  client,
		handler: handler,
		cfg:     cfg.withDefaults(),
	}
}

// Key returns the Redis list holding pending jobs.
func (q *RedisQueue) Key() string {
	return q.key
}

// Start launches the worker goroutines.
func (q *RedisQueue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.started {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	if q.handler != nil {
		for i := 0; i < q.cfg.Workers; i++ {
			q.wg.Add(1)
			go q.worker()
		}
	}
	q.started = true
	q.cfg.Logger.Sugar().Infow("queue started", "queue", q.name, "driver", "redis", "workers", q.cfg.Workers)
}

// Stop cancels workers and waits for them to exit.
func (q *RedisQueue) Stop() {
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

// Enqueue serialises the job and appends it to the list.
func (q *RedisQueue) Enqueue(job Job) error {
	job = prepare(job)
	raw, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.ID, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := q.client.RPush(ctx, q.key, raw).Err(); err != nil {
		return fmt.Errorf("queue %s push: %w", q.name, err)
	}
	return nil
}

// Dequeue pops the next job, blocking up to timeout. It returns false when
// nothing arrived in time.
func (q *RedisQueue) Dequeue(ctx context.Context, timeout time.Duration) (Job, bool, error) {
	res, err := q.client.BLPop(ctx, timeout, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Job{}, false, nil
		}
		return Job{}, false, fmt.Errorf("queue %s pop: %w", q.name, err)
	}
	// BLPOP replies with [key, value]
	if len(res) != 2 {
		return Job{}, false, fmt.Errorf("queue %s pop: unexpected reply length %d", q.name, len(res))
	}
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return Job{}, false, fmt.Errorf("queue %s decode: %w", q.name, err)
	}
	return job, true, nil
}

func (q *RedisQueue) worker() {
	defer q.wg.Done()
	for {
		if q.ctx.Err() != nil {
			return
		}
		job, ok, err := q.Dequeue(q.ctx, redisPollTimeout)
		if err != nil {
			if q.ctx.Err() != nil {
				return
			}
			q.cfg.Logger.Sugar().Warnw("queue dequeue failed", "queue", q.name, "error", err)
			q.sleep(q.cfg.RetryDelay)
			continue
		}
		if !ok {
			continue
		}
		if err := q.handler(q.ctx, job); err != nil {
			retryLater(q.ctx, q.name, q.cfg, job, err, q.Enqueue)
		}
	}
}

func (q *RedisQueue) sleep(d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-q.ctx.Done():
	case <-timer.C:
	}
}
