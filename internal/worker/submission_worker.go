package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/model"
)

const (
	SubmissionBatchSize    = 50
	SubmissionBatchTimeout = 2 * time.Second
	SubmissionPollTimeout  = 1 * time.Second
	// SubmissionMaxFailures is how many failed writes a submission gets
	// before it is parked on the dead-letter queue.
	SubmissionMaxFailures = 5
)

// SubmissionWriter persists finished attempts.
type SubmissionWriter interface {
	BulkInsert(ctx context.Context, subs []model.Submission) error
	Insert(ctx context.Context, sub model.Submission) error
}

// SubmissionWorker drains the submission queue into Postgres in batches.
type SubmissionWorker struct {
	store SubmissionWriter
	rdb   *redis.Client
	log   zerolog.Logger

	batchSize    int
	batchTimeout time.Duration
	pollTimeout  time.Duration
	maxFailures  int
}

func NewSubmissionWorker(store SubmissionWriter, rdb *redis.Client, log zerolog.Logger) *SubmissionWorker {
	return &SubmissionWorker{
		store:        store,
		rdb:          rdb,
		log:          log.With().Str("component", "submission_worker").Logger(),
		batchSize:    SubmissionBatchSize,
		batchTimeout: SubmissionBatchTimeout,
		pollTimeout:  SubmissionPollTimeout,
		maxFailures:  SubmissionMaxFailures,
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *SubmissionWorker) Start(ctx context.Context) {
	w.log.Info().Msg("SubmissionWorker started")

	batch := make([]model.Submission, 0, w.batchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= w.batchSize || time.Since(lastFlush) >= w.batchTimeout) {

			w.flush(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flush(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, w.pollTimeout, config.WorkerKey.PersistSubmissionsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var sub model.Submission
			if err := json.Unmarshal([]byte(item[1]), &sub); err != nil {
				w.log.Error().Err(err).Str("payload", item[1]).Msg("Invalid submission payload")
				continue
			}

			batch = append(batch, sub)
		}
	}
}

// ----------------------------------------------------------------
// Batch insert with single-row fallback
// ----------------------------------------------------------------

func (w *SubmissionWorker) flush(ctx context.Context, batch []model.Submission) {
	if len(batch) == 0 {
		return
	}

	if err := w.store.BulkInsert(ctx, batch); err != nil {
		w.log.Warn().Err(err).Int("batch", len(batch)).Msg("bulk submission insert failed, using fallback")

		for _, sub := range batch {
			if err := w.store.Insert(ctx, sub); err != nil {
				w.log.Error().Err(err).Str("attempt_id", sub.ID.String()).Msg("single insert failed, requeueing")
				w.requeue(ctx, sub)
			}
		}
		return
	}

	w.log.Debug().Int("batch", len(batch)).Msg("Submissions persisted")
}

func (w *SubmissionWorker) requeue(ctx context.Context, sub model.Submission) {
	sub.FailedWrites++
	queue := config.WorkerKey.PersistSubmissionsQueue
	if sub.FailedWrites >= w.maxFailures {
		queue = config.WorkerKey.DeadSubmissionsQueue
	}

	raw, err := json.Marshal(sub)
	if err != nil {
		w.log.Error().Err(err).Str("attempt_id", sub.ID.String()).Msg("Failed to encode submission for requeue")
		return
	}
	if err := w.rdb.RPush(ctx, queue, raw).Err(); err != nil {
		w.log.Error().Err(err).Str("attempt_id", sub.ID.String()).RawJSON("submission", raw).Msg("Failed to requeue submission")
		return
	}
	if queue == config.WorkerKey.DeadSubmissionsQueue {
		w.log.Error().
			Str("attempt_id", sub.ID.String()).
			Int("failed_writes", sub.FailedWrites).
			Msg("Submission moved to dead-letter queue")
	}
}
