package notifier

import (
	"log/slog"

	"github.com/jobgram/jobgram/internal/model"
	"github.com/jobgram/jobgram/internal/progress"
)

// Ensure LogNotifier implements progress.Notifier.
var _ progress.Notifier = (*LogNotifier)(nil)

// LogNotifier writes the run summary to the given logger.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs run summaries via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyRun logs the summary. Returns nil (stdout logging does not fail).
func (n *LogNotifier) NotifyRun(summary model.RunSummary, success bool) error {
	n.logger.Info("run summary",
		"run_id", summary.RunID,
		"success", success,
		"channels", summary.ChannelsProcessed,
		"messages", summary.MessagesProcessed,
		"jobs", summary.JobsExtracted,
		"errors", len(summary.Errors),
		"duration", summary.Duration.String(),
	)
	return nil
}
