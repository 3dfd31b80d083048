package progress

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobgram/jobgram/internal/model"
)

// mirrorTTL keeps live-progress keys from accumulating; the store record
// remains the durable history.
const mirrorTTL = 24 * time.Hour

// NewRedisClient parses redisURL and verifies connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redis.ParseURL(%q): %w", redisURL, err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// RedisMirror decorates a Publisher, additionally writing each progress
// snapshot to Redis so consumers can poll it without touching the store.
// Mirror failures are logged and swallowed.
type RedisMirror struct {
	inner  Publisher
	store  RunStore
	rdb    *redis.Client
	logger *slog.Logger
}

// NewRedisMirror wraps inner with a Redis live mirror.
func NewRedisMirror(inner Publisher, store RunStore, rdb *redis.Client, logger *slog.Logger) *RedisMirror {
	return &RedisMirror{
		inner:  inner,
		store:  store,
		rdb:    rdb,
		logger: logger,
	}
}

func runKey(runID string) string {
	return "jobgram:run:" + runID
}

// Init delegates, then mirrors the fresh record.
func (m *RedisMirror) Init(runID string, totalChannels int) error {
	if err := m.inner.Init(runID, totalChannels); err != nil {
		return err
	}
	m.mirror(runID)
	return nil
}

// Update delegates, then mirrors the refreshed record.
func (m *RedisMirror) Update(runID string, u Update) error {
	if err := m.inner.Update(runID, u); err != nil {
		return err
	}
	m.mirror(runID)
	return nil
}

// Complete delegates, then mirrors the terminal record.
func (m *RedisMirror) Complete(runID string, success bool, summary model.RunSummary) error {
	if err := m.inner.Complete(runID, success, summary); err != nil {
		return err
	}
	m.mirror(runID)
	return nil
}

// Wait delegates to the wrapped publisher.
func (m *RedisMirror) Wait() {
	m.inner.Wait()
}

func (m *RedisMirror) mirror(runID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	rec, err := m.store.GetRunProgress(runID)
	if err != nil || rec == nil {
		m.logger.Warn("progress mirror read failed", "run_id", runID, "error", err)
		return
	}

	payload, err := json.Marshal(rec)
	if err != nil {
		m.logger.Warn("progress mirror marshal failed", "run_id", runID, "error", err)
		return
	}

	if err := m.rdb.Set(ctx, runKey(runID), payload, mirrorTTL).Err(); err != nil {
		m.logger.Warn("progress mirror write failed", "run_id", runID, "error", err)
	}
}
