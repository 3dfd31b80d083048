// Package progress persists the live state of a run and publishes the
// final summary. The progress record is the only externally observable
// mid-run state.
package progress

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jobgram/jobgram/internal/model"
)

// Update carries the cumulative counters refreshed around each channel.
type Update struct {
	ProcessedChannels int
	CurrentChannel    string
	JobsExtracted     int
	MessagesProcessed int
	Errors            []model.RunError
}

// Publisher owns the run's progress record lifecycle. Wait blocks until
// any summary notification dispatched by Complete has been delivered;
// short-lived processes must call it before exiting.
type Publisher interface {
	Init(runID string, totalChannels int) error
	Update(runID string, u Update) error
	Complete(runID string, success bool, summary model.RunSummary) error
	Wait()
}

// RunStore is the slice of the document store the publisher needs.
type RunStore interface {
	CreateRunProgress(p model.RunProgress) error
	UpdateRunProgress(p model.RunProgress) error
	GetRunProgress(runID string) (*model.RunProgress, error)
}

// Notifier delivers the end-of-run summary. Failures are swallowed by
// the publisher; they never escalate to fail the run.
type Notifier interface {
	NotifyRun(summary model.RunSummary, success bool) error
}

// StorePublisher persists progress in the document store and triggers
// the summary notification at completion.
type StorePublisher struct {
	store    RunStore
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time

	notifying sync.WaitGroup
}

// NewStorePublisher creates a publisher. notifier may be nil to skip
// summary notifications.
func NewStorePublisher(store RunStore, notifier Notifier, logger *slog.Logger) *StorePublisher {
	return &StorePublisher{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Init creates the progress record with status running and zeroed counters.
func (p *StorePublisher) Init(runID string, totalChannels int) error {
	rec := model.RunProgress{
		RunID:         runID,
		TotalChannels: totalChannels,
		Status:        model.RunStatusRunning,
		StartedAt:     p.now(),
		Errors:        []model.RunError{},
	}
	if err := p.store.CreateRunProgress(rec); err != nil {
		return fmt.Errorf("init run progress: %w", err)
	}
	return nil
}

// Update refreshes the record's cumulative counters.
func (p *StorePublisher) Update(runID string, u Update) error {
	rec, err := p.store.GetRunProgress(runID)
	if err != nil {
		return fmt.Errorf("load run progress: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("run progress %s not found", runID)
	}

	rec.ProcessedChannels = u.ProcessedChannels
	rec.CurrentChannel = u.CurrentChannel
	rec.TotalJobsExtracted = u.JobsExtracted
	rec.TotalMessagesProcessed = u.MessagesProcessed
	rec.Errors = u.Errors

	if err := p.store.UpdateRunProgress(*rec); err != nil {
		return fmt.Errorf("update run progress: %w", err)
	}
	return nil
}

// Complete finalizes the record and dispatches the summary notification
// asynchronously. Notification failures are logged and swallowed.
func (p *StorePublisher) Complete(runID string, success bool, summary model.RunSummary) error {
	rec, err := p.store.GetRunProgress(runID)
	if err != nil {
		return fmt.Errorf("load run progress: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("run progress %s not found", runID)
	}

	now := p.now()
	rec.Status = model.RunStatusCompleted
	if !success {
		rec.Status = model.RunStatusFailed
	}
	rec.CompletedAt = &now
	rec.CurrentChannel = ""
	rec.ProcessedChannels = summary.ChannelsProcessed
	rec.TotalJobsExtracted = summary.JobsExtracted
	rec.TotalMessagesProcessed = summary.MessagesProcessed
	rec.Errors = summary.Errors

	if err := p.store.UpdateRunProgress(*rec); err != nil {
		return fmt.Errorf("complete run progress: %w", err)
	}

	if p.notifier != nil {
		p.notifying.Add(1)
		go func() {
			defer p.notifying.Done()
			if err := p.notifier.NotifyRun(summary, success); err != nil {
				p.logger.Warn("run summary notification failed", "run_id", runID, "error", err)
			}
		}()
	}
	return nil
}

// Wait blocks until in-flight summary notifications have finished. The
// one-shot scrape command calls this so the process does not exit with
// the report still in flight.
func (p *StorePublisher) Wait() {
	p.notifying.Wait()
}
