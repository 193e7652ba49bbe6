package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/model"
)

// SubmissionQueue pushes finished attempts onto the Redis queue drained by
// the submission worker.
type SubmissionQueue struct {
	rdb *redis.Client
}

// NewSubmissionQueue creates a new SubmissionQueue.
func NewSubmissionQueue(rdb *redis.Client) *SubmissionQueue {
	return &SubmissionQueue{rdb: rdb}
}

// Enqueue appends the submission to the persist queue.
func (q *SubmissionQueue) Enqueue(ctx context.Context, sub model.Submission) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistSubmissionsQueue, raw).Err(); err != nil {
		return fmt.Errorf("enqueue submission: %w", err)
	}
	return nil
}
