package cache

import (
	"brandwatch/internal/model"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMalformedJob is returned by Dequeue for payloads that no longer decode.
// The payload is removed from the inflight list before returning.
var ErrMalformedJob = errors.New("malformed job payload")

// JobQueue is a durable redis work queue: a ready list, an inflight list the
// workers LMOVE into, and a delayed sorted set scored by unix millis.
type JobQueue interface {
	// Enqueue pushes job onto the ready list. When job.DedupKey is set and
	// another job holds that key, nothing is queued and false is returned.
	Enqueue(ctx context.Context, job *model.Job) (bool, error)
	Dequeue(ctx context.Context) (*Delivery, error)
	Ack(ctx context.Context, d *Delivery) error
	// Retry moves a delivered job to the delayed set, due at the given time
	Retry(ctx context.Context, d *Delivery, at time.Time) error
	// PromoteDue moves delayed jobs due at or before now onto the ready list
	PromoteDue(ctx context.Context, now time.Time) (int, error)
	// RecoverInflight requeues everything left inflight by a previous process
	RecoverInflight(ctx context.Context) (int, error)
	Depth(ctx context.Context) (QueueDepth, error)
}

// Delivery is a dequeued job together with its raw inflight entry
type Delivery struct {
	Job     *model.Job
	payload string
}

type QueueDepth struct {
	Ready    int64 `json:"ready"`
	Inflight int64 `json:"inflight"`
	Delayed  int64 `json:"delayed"`
}

type jobQueue struct {
	client   *redis.Client
	prefix   string
	dedupTTL time.Duration
}

// NewJobQueue creates a queue whose keys live under prefix
func NewJobQueue(client *redis.Client, prefix string, dedupTTL time.Duration) JobQueue {
	if prefix == "" {
		prefix = "jobs"
	}
	if dedupTTL <= 0 {
		dedupTTL = 30 * time.Minute
	}
	return &jobQueue{
		client:   client,
		prefix:   prefix,
		dedupTTL: dedupTTL,
	}
}

func (q *jobQueue) readyKey() string    { return q.prefix + ":ready" }
func (q *jobQueue) inflightKey() string { return q.prefix + ":inflight" }
func (q *jobQueue) delayedKey() string  { return q.prefix + ":delayed" }

func (q *jobQueue) dedupKey(key string) string {
	return fmt.Sprintf("%s:dedup:%s", q.prefix, key)
}

func (q *jobQueue) Enqueue(ctx context.Context, job *model.Job) (bool, error) {
	if job.EnqueuedAt.IsZero() {
		job.EnqueuedAt = time.Now()
	}
	data, err := json.Marshal(job)
	if err != nil {
		return false, err
	}

	if job.DedupKey != "" {
		ok, err := q.client.SetNX(ctx, q.dedupKey(job.DedupKey), job.ID, q.dedupTTL).Result()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}

	if err := q.client.RPush(ctx, q.readyKey(), data).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (q *jobQueue) Dequeue(ctx context.Context) (*Delivery, error) {
	payload, err := q.client.LMove(ctx, q.readyKey(), q.inflightKey(), "LEFT", "RIGHT").Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		q.client.LRem(ctx, q.inflightKey(), 1, payload)
		return nil, fmt.Errorf("%w: %v", ErrMalformedJob, err)
	}
	return &Delivery{Job: &job, payload: payload}, nil
}

func (q *jobQueue) Ack(ctx context.Context, d *Delivery) error {
	_, err := q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.inflightKey(), 1, d.payload)
		if d.Job.DedupKey != "" {
			pipe.Del(ctx, q.dedupKey(d.Job.DedupKey))
		}
		return nil
	})
	return err
}

func (q *jobQueue) Retry(ctx context.Context, d *Delivery, at time.Time) error {
	data, err := json.Marshal(d.Job)
	if err != nil {
		return err
	}
	_, err = q.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LRem(ctx, q.inflightKey(), 1, d.payload)
		pipe.ZAdd(ctx, q.delayedKey(), redis.Z{
			Score:  float64(at.UnixMilli()),
			Member: data,
		})
		if d.Job.DedupKey != "" {
			pipe.Expire(ctx, q.dedupKey(d.Job.DedupKey), q.dedupTTL)
		}
		return nil
	})
	return err
}

func (q *jobQueue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	due, err := q.client.ZRangeByScore(ctx, q.delayedKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, payload := range due {
		// ZRem is the claim: only the instance that removes the entry requeues it
		n, err := q.client.ZRem(ctx, q.delayedKey(), payload).Result()
		if err != nil {
			return moved, err
		}
		if n == 0 {
			continue
		}
		if err := q.client.RPush(ctx, q.readyKey(), payload).Err(); err != nil {
			return moved, err
		}
		moved++
	}
	return moved, nil
}

func (q *jobQueue) RecoverInflight(ctx context.Context) (int, error) {
	recovered := 0
	for {
		err := q.client.LMove(ctx, q.inflightKey(), q.readyKey(), "LEFT", "LEFT").Err()
		if err == redis.Nil {
			return recovered, nil
		}
		if err != nil {
			return recovered, err
		}
		recovered++
	}
}

func (q *jobQueue) Depth(ctx context.Context) (QueueDepth, error) {
	pipe := q.client.Pipeline()
	ready := pipe.LLen(ctx, q.readyKey())
	inflight := pipe.LLen(ctx, q.inflightKey())
	delayed := pipe.ZCard(ctx, q.delayedKey())
	if _, err := pipe.Exec(ctx); err != nil {
		return QueueDepth{}, err
	}
	return QueueDepth{
		Ready:    ready.Val(),
		Inflight: inflight.Val(),
		Delayed:  delayed.Val(),
	}, nil
}
