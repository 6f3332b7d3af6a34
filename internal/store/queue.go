package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

type AddStatus string

const (
	AddStatusQueued  AddStatus = "queued"
	AddStatusSkipped AddStatus = "skipped"

	ReasonAlreadyQueued = "already_queued"
)

// AddResult reports whether a ticker was pushed onto the queue.
type AddResult struct {
	Status AddStatus `json:"status"`
	Reason string    `json:"reason,omitempty"`
}

// IngestionQueue is a FIFO list of tickers guarded by an in-flight set.
// The set is the deduplication authority; the list only orders work.
// A ticker stays in the set from Add until Complete, including while a
// worker holds it after Pop.
type IngestionQueue struct {
	client        *redis.Client
	queueKey      string
	processingKey string
}

var errQueueKeys = errors.New("queue keys are not configured")

func NewIngestionQueue(client *redis.Client, queueKey, processingKey string) *IngestionQueue {
	return &IngestionQueue{client: client, queueKey: queueKey, processingKey: processingKey}
}

// Add marks ticker in-flight and enqueues it. SADD is the linearization
// point: only the caller that adds the member pushes it.
func (q *IngestionQueue) Add(ctx context.Context, ticker string) (AddResult, error) {
	if q.queueKey == "" || q.processingKey == "" {
		return AddResult{}, errQueueKeys
	}
	added, err := q.client.SAdd(ctx, q.processingKey, ticker).Result()
	if err != nil {
		return AddResult{}, fmt.Errorf("redis SADD %s: %w", q.processingKey, err)
	}
	if added == 0 {
		return AddResult{Status: AddStatusSkipped, Reason: ReasonAlreadyQueued}, nil
	}
	if err := q.client.LPush(ctx, q.queueKey, ticker).Err(); err != nil {
		// Drop the marker again so a later Add can queue the ticker.
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if rerr := q.client.SRem(rctx, q.processingKey, ticker).Err(); rerr != nil {
			return AddResult{}, fmt.Errorf("redis LPUSH %s: %w (SREM rollback: %v)", q.queueKey, err, rerr)
		}
		return AddResult{}, fmt.Errorf("redis LPUSH %s: %w", q.queueKey, err)
	}
	return AddResult{Status: AddStatusQueued}, nil
}

// Pop removes the oldest ticker from the queue. ok is false when the queue
// is empty. The ticker remains in-flight until Complete is called.
func (q *IngestionQueue) Pop(ctx context.Context) (ticker string, ok bool, err error) {
	if q.queueKey == "" {
		return "", false, errQueueKeys
	}
	ticker, err = q.client.RPop(ctx, q.queueKey).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis RPOP %s: %w", q.queueKey, err)
	}
	return ticker, true, nil
}

// Complete clears the in-flight marker for ticker unconditionally.
func (q *IngestionQueue) Complete(ctx context.Context, ticker string) error {
	if q.processingKey == "" {
		return errQueueKeys
	}
	if err := q.client.SRem(ctx, q.processingKey, ticker).Err(); err != nil {
		return fmt.Errorf("redis SREM %s: %w", q.processingKey, err)
	}
	return nil
}

// Length returns the number of queued tickers. Monitoring only.
func (q *IngestionQueue) Length(ctx context.Context) (int64, error) {
	if q.queueKey == "" {
		return 0, errQueueKeys
	}
	n, err := q.client.LLen(ctx, q.queueKey).Result()
	if err != nil {
		return 0, fmt.Errorf("redis LLEN %s: %w", q.queueKey, err)
	}
	return n, nil
}

// InFlight lists every ticker currently queued or being processed.
func (q *IngestionQueue) InFlight(ctx context.Context) ([]string, error) {
	if q.processingKey == "" {
		return nil, errQueueKeys
	}
	members, err := q.client.SMembers(ctx, q.processingKey).Result()
	if err != nil {
		return nil, fmt.Errorf("redis SMEMBERS %s: %w", q.processingKey, err)
	}
	return members, nil
}
