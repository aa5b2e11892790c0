package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greeting struct {
	Name string    `json:"name"`
	At   time.Time `json:"at"`
}

func TestQueueProcessesJob(t *testing.T) {
	done := make(chan Job, 1)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job
		return nil
	}, QueueConfig{})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "hello", Payload: greeting{Name: "ana"}}))

	select {
	case job := <-done:
		assert.NotEmpty(t, job.ID)
		assert.False(t, job.Enqueued.IsZero())
		var g greeting
		require.NoError(t, DecodePayload(job, &g))
		assert.Equal(t, "ana", g.Name)
	case <-time.After(time.Second):
		t.Fatal("job not processed")
	}
}

func TestQueueRetriesFailedJob(t *testing.T) {
	var calls int32
	done := make(chan struct{})
	q := NewQueue("retry", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&calls, 1) < 3 {
			return errors.New("transient")
		}
		close(done)
		return nil
	}, QueueConfig{MaxRetries: 3, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{Type: "flaky"}))

	select {
	case <-done:
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	case <-time.After(time.Second):
		t.Fatal("job was not retried")
	}
}

func TestQueueRejectsBeforeStart(t *testing.T) {
	q := NewQueue("idle", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	assert.Error(t, q.Enqueue(Job{Type: "x"}))
}

func TestQueueRejectsWhenFull(t *testing.T) {
	block := make(chan struct{})
	q := NewQueue("full", func(ctx context.Context, job Job) error {
		<-block
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer func() {
		close(block)
		q.Stop()
	}()

	var err error
	for i := 0; i < 5 && err == nil; i++ {
		err = q.Enqueue(Job{Type: "x"})
	}
	assert.Error(t, err)
}

func TestDecodePayloadFromGenericJSON(t *testing.T) {
	job := Job{ID: "1", Payload: map[string]interface{}{"name": "bo", "at": "2024-01-10T00:00:00Z"}}
	var g greeting
	require.NoError(t, DecodePayload(job, &g))
	assert.Equal(t, "bo", g.Name)
	assert.Equal(t, 2024, g.At.Year())
}
