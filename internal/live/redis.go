package live

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-portal/internal/config"
	"github.com/stemsi/exstem-portal/internal/model"
)

// RedisRegistry stores live entries in a Redis hash keyed by exam ID and
// broadcasts changes over Pub/Sub, so every server instance sees the same set.
type RedisRegistry struct {
	rdb     *redis.Client
	key     string
	channel string
	now     func() time.Time
	log     zerolog.Logger
}

// NewRedisRegistry creates a registry backed by rdb.
func NewRedisRegistry(rdb *redis.Client, log zerolog.Logger) *RedisRegistry {
	return &RedisRegistry{
		rdb:     rdb,
		key:     config.CacheKey.LiveExamsKey(),
		channel: config.CacheKey.LiveEventsChannel(),
		now:     time.Now,
		log:     log.With().Str("component", "live_registry").Logger(),
	}
}

func (r *RedisRegistry) GoLive(ctx context.Context, exam model.Exam, exempted []int, publishedBy int) (Entry, error) {
	entry, err := newEntry(exam, exempted, publishedBy, r.now())
	if err != nil {
		return Entry{}, err
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return Entry{}, fmt.Errorf("marshal live entry: %w", err)
	}

	// HSETNX is the compare-and-set: only one admin can win a given exam ID.
	ok, err := r.rdb.HSetNX(ctx, r.key, exam.ID.String(), raw).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("go live: %w", err)
	}
	if !ok {
		return Entry{}, ErrAlreadyLive
	}

	r.publish(ctx, Event{Type: EventWentLive, ExamID: exam.ID, Class: exam.Class, At: entry.WentLiveAt})
	return entry, nil
}

func (r *RedisRegistry) StopLive(ctx context.Context, examID uuid.UUID) (bool, error) {
	entry, ok, err := r.Get(ctx, examID)
	if err != nil || !ok {
		return false, err
	}

	n, err := r.rdb.HDel(ctx, r.key, examID.String()).Result()
	if err != nil {
		return false, fmt.Errorf("stop live: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	r.publish(ctx, Event{Type: EventStopped, ExamID: examID, Class: entry.Exam.Class, At: r.now().UTC()})
	return true, nil
}

func (r *RedisRegistry) Get(ctx context.Context, examID uuid.UUID) (Entry, bool, error) {
	raw, err := r.rdb.HGet(ctx, r.key, examID.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get live entry: %w", err)
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Entry{}, false, fmt.Errorf("decode live entry: %w", err)
	}
	return entry, true, nil
}

func (r *RedisRegistry) ForClass(ctx context.Context, class model.ClassLevel) ([]Entry, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(all))
	for _, e := range all {
		if e.Exam.Class == class {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *RedisRegistry) List(ctx context.Context) ([]Entry, error) {
	fields, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list live entries: %w", err)
	}

	out := make([]Entry, 0, len(fields))
	for id, raw := range fields {
		var entry Entry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			r.log.Warn().Err(err).Str("exam_id", id).Msg("Skipping undecodable live entry")
			continue
		}
		out = append(out, entry)
	}
	sortEntries(out)
	return out, nil
}

func (r *RedisRegistry) ClearPublisher(ctx context.Context, adminID int) (int, error) {
	all, err := r.List(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range all {
		if e.PublishedBy != adminID {
			continue
		}
		n, err := r.rdb.HDel(ctx, r.key, e.Exam.ID.String()).Result()
		if err != nil {
			return removed, fmt.Errorf("clear publisher: %w", err)
		}
		if n == 0 {
			continue
		}
		removed++
		r.publish(ctx, Event{Type: EventStopped, ExamID: e.Exam.ID, Class: e.Exam.Class, At: r.now().UTC()})
	}
	return removed, nil
}

func (r *RedisRegistry) Clear(ctx context.Context) error {
	if err := r.rdb.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("clear live entries: %w", err)
	}
	r.publish(ctx, Event{Type: EventCleared, At: r.now().UTC()})
	return nil
}

func (r *RedisRegistry) Subscribe(ctx context.Context) (<-chan Event, func(), error) {
	sub := r.rdb.Subscribe(ctx, r.channel)
	// Wait for the subscription to be confirmed so no event published after
	// Subscribe returns is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, nil, fmt.Errorf("subscribe live events: %w", err)
	}

	out := make(chan Event, subscriberBuffer)
	msgs := sub.Channel()

	go func() {
		defer close(out)
		for msg := range msgs {
			var ev Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				r.log.Warn().Err(err).Msg("Dropping undecodable live event")
				continue
			}
			sendDropOldest(out, ev)
		}
	}()

	var once sync.Once
	cancel := func() {
		once.Do(func() { _ = sub.Close() })
	}
	stop := context.AfterFunc(ctx, cancel)
	return out, func() {
		stop()
		cancel()
	}, nil
}

func (r *RedisRegistry) publish(ctx context.Context, ev Event) {
	raw, err := json.Marshal(ev)
	if err != nil {
		r.log.Error().Err(err).Msg("Failed to marshal live event")
		return
	}
	if err := r.rdb.Publish(ctx, r.channel, raw).Err(); err != nil {
		r.log.Error().Err(err).Str("event", string(ev.Type)).Msg("Failed to publish live event")
	}
}
