// Package scrape drives one ingestion run: channel iteration, message
// extraction, persistence, per-channel stats, and run-level reporting.
package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobgram/jobgram/internal/ai"
	"github.com/jobgram/jobgram/internal/model"
	"github.com/jobgram/jobgram/internal/progress"
	"github.com/jobgram/jobgram/internal/ratelimit"
	"github.com/jobgram/jobgram/internal/retry"
)

// Backend keys for the shared rate limiter.
const (
	backendTelegram = "telegram"
	backendLLM      = "llm"
)

// Session is the messaging-source lifecycle owned by the coordinator:
// connect once per run, reuse across channels, close at run end.
type Session interface {
	Connect(ctx context.Context) error
	Close() error
}

// MessageReader fetches one channel's recent-message window.
type MessageReader interface {
	FetchRecent(ctx context.Context, username string, window time.Duration, limit int) ([]model.RawMessage, error)
}

// Persister saves one extracted candidate. Returns "" for duplicates.
type Persister interface {
	Save(cand *model.JobCandidate, raw model.RawMessage, ch model.Channel) (string, error)
}

// ChannelStore is the slice of the document store the coordinator needs.
type ChannelStore interface {
	ActiveScrapingChannels() ([]model.Channel, error)
	BumpChannelStats(channelID string, jobs int, at time.Time) error
}

// Coordinator runs the ingestion pipeline over all eligible channels,
// sequentially. One logical worker per run; the only cross-run state is
// the counters, and those are updated with atomic increments.
type Coordinator struct {
	session   Session
	reader    MessageReader
	extractor ai.Extractor
	persister Persister
	store     ChannelStore
	publisher progress.Publisher
	limiter   *ratelimit.Limiter
	logger    *slog.Logger

	window     time.Duration
	fetchLimit int

	now func() time.Time
}

// NewCoordinator wires a coordinator with all its dependencies.
func NewCoordinator(
	session Session,
	reader MessageReader,
	extractor ai.Extractor,
	persister Persister,
	store ChannelStore,
	publisher progress.Publisher,
	limiter *ratelimit.Limiter,
	window time.Duration,
	fetchLimit int,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		session:    session,
		reader:     reader,
		extractor:  extractor,
		persister:  persister,
		store:      store,
		publisher:  publisher,
		limiter:    limiter,
		window:     window,
		fetchLimit: fetchLimit,
		logger:     logger,
		now:        time.Now,
	}
}

// runState accumulates totals and errors across the channel loop.
type runState struct {
	runID             string
	totalChannels     int
	processedChannels int
	jobsExtracted     int
	messagesProcessed int
	errors            []model.RunError
	startedAt         time.Time
}

func (st *runState) recordError(channel string, err error, at time.Time) {
	st.errors = append(st.errors, model.RunError{
		Channel: channel,
		Message: err.Error(),
		At:      at,
	})
}

func (st *runState) summary(now time.Time) model.RunSummary {
	return model.RunSummary{
		RunID:             st.runID,
		ChannelsProcessed: st.processedChannels,
		TotalChannels:     st.totalChannels,
		JobsExtracted:     st.jobsExtracted,
		MessagesProcessed: st.messagesProcessed,
		Errors:            st.errors,
		Duration:          now.Sub(st.startedAt),
	}
}

// Run executes one full run. Per-message and per-channel failures are
// recorded and skipped; only a failed session connect (or a store
// failure listing channels) fails the whole run.
func (c *Coordinator) Run(ctx context.Context, runID string) (*model.RunSummary, error) {
	st := &runState{runID: runID, startedAt: c.now()}

	channels, chErr := c.store.ActiveScrapingChannels()
	st.totalChannels = len(channels)

	if err := c.publisher.Init(runID, st.totalChannels); err != nil {
		c.logger.Error("progress init failed", "run_id", runID, "error", err)
	}

	if chErr != nil {
		return c.fail(st, fmt.Errorf("listing channels: %w", chErr))
	}

	if len(channels) == 0 {
		// Degenerate no-op success: nothing eligible, nothing to do.
		c.logger.Info("no active channels with scraping enabled", "run_id", runID)
		return c.complete(st)
	}

	// One session per run. A couple of backoff attempts before giving
	// up; beyond that the source is down and the run is dead anyway.
	connect := func(ctx context.Context) error { return c.session.Connect(ctx) }
	if err := retry.Do(ctx, 2, 2*time.Second, c.logger, connect); err != nil {
		return c.fail(st, fmt.Errorf("connecting to messaging source: %w", err))
	}
	defer c.session.Close()

	for _, ch := range channels {
		if ctx.Err() != nil {
			return c.fail(st, fmt.Errorf("run aborted: %w", ctx.Err()))
		}

		c.publishUpdate(st, ch.Username)
		c.processChannel(ctx, st, ch)
		st.processedChannels++
		c.publishUpdate(st, ch.Username)
	}

	return c.complete(st)
}

// processChannel fetches one channel's window and pushes every message
// through extract → persist, accumulating counts and errors.
func (c *Coordinator) processChannel(ctx context.Context, st *runState, ch model.Channel) {
	if err := c.limiter.Wait(ctx, backendTelegram); err != nil {
		st.recordError(ch.Username, err, c.now())
		return
	}

	msgs, err := c.reader.FetchRecent(ctx, ch.Username, c.window, c.fetchLimit)
	if err != nil {
		c.logger.Warn("channel fetch failed", "channel", ch.Username, "error", err)
		st.recordError(ch.Username, err, c.now())
		return
	}

	channelJobs := 0
	for _, msg := range msgs {
		if err := c.limiter.Wait(ctx, backendLLM); err != nil {
			st.recordError(ch.Username, err, c.now())
			return
		}

		cand, err := c.extractor.Extract(ctx, msg.Text, ch.Category)
		st.messagesProcessed++
		if err != nil {
			// A single bad message never aborts channel processing.
			c.logger.Warn("extraction failed", "channel", ch.Username, "message_id", msg.ID, "error", err)
			st.recordError(ch.Username, fmt.Errorf("message %d: %w", msg.ID, err), c.now())
			continue
		}
		if cand == nil {
			continue
		}

		jobID, err := c.persister.Save(cand, msg, ch)
		if err != nil {
			c.logger.Warn("job save failed", "channel", ch.Username, "title", cand.Title, "error", err)
			st.recordError(ch.Username, fmt.Errorf("saving %q: %w", cand.Title, err), c.now())
			continue
		}
		if jobID != "" {
			channelJobs++
			st.jobsExtracted++
		}
	}

	// Stats bump is best-effort: a failure here is logged, not recorded
	// as a run error, and never propagated.
	if err := c.store.BumpChannelStats(ch.ID, channelJobs, c.now()); err != nil {
		c.logger.Warn("channel stats update failed", "channel", ch.Username, "error", err)
	}

	c.logger.Info("processed channel",
		"channel", ch.Username,
		"messages", len(msgs),
		"jobs", channelJobs,
	)
}

func (c *Coordinator) publishUpdate(st *runState, current string) {
	err := c.publisher.Update(st.runID, progress.Update{
		ProcessedChannels: st.processedChannels,
		CurrentChannel:    current,
		JobsExtracted:     st.jobsExtracted,
		MessagesProcessed: st.messagesProcessed,
		Errors:            st.errors,
	})
	if err != nil {
		c.logger.Warn("progress update failed", "run_id", st.runID, "error", err)
	}
}

func (c *Coordinator) complete(st *runState) (*model.RunSummary, error) {
	summary := st.summary(c.now())
	if err := c.publisher.Complete(st.runID, true, summary); err != nil {
		c.logger.Error("progress completion failed", "run_id", st.runID, "error", err)
	}
	c.logger.Info("run completed",
		"run_id", st.runID,
		"channels", summary.ChannelsProcessed,
		"messages", summary.MessagesProcessed,
		"jobs", summary.JobsExtracted,
		"errors", len(summary.Errors),
		"duration", summary.Duration.String(),
	)
	return &summary, nil
}

func (c *Coordinator) fail(st *runState, cause error) (*model.RunSummary, error) {
	st.recordError("", cause, c.now())
	summary := st.summary(c.now())
	// Still attempt to emit the failure report.
	if err := c.publisher.Complete(st.runID, false, summary); err != nil {
		c.logger.Error("progress completion failed", "run_id", st.runID, "error", err)
	}
	c.logger.Error("run failed", "run_id", st.runID, "error", cause)
	return &summary, cause
}
