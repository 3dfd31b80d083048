package telegram

import (
	"context"
	"log/slog"
	"time"

	"github.com/jobgram/jobgram/internal/model"
)

// Reader fetches a bounded recent-message window for one channel.
// Fetch-then-filter is deliberate: the gateway only has a count-based
// cursor, so the limit must be generous enough to cover the window
// under typical posting volume.
type Reader struct {
	client Client
	logger *slog.Logger
	now    func() time.Time
}

// NewReader creates a reader over the given source client.
func NewReader(client Client, logger *slog.Logger) *Reader {
	return &Reader{
		client: client,
		logger: logger,
		now:    time.Now,
	}
}

// FetchRecent returns the channel's messages with non-empty text whose
// timestamp falls within window of now, preserving source order. A
// fetch/resolution failure returns an empty slice and the error; the
// caller records it and moves to the next channel.
func (r *Reader) FetchRecent(ctx context.Context, username string, window time.Duration, limit int) ([]model.RawMessage, error) {
	msgs, err := r.client.RecentMessages(ctx, username, limit)
	if err != nil {
		return nil, err
	}

	cutoff := r.now().Add(-window)
	inWindow := make([]model.RawMessage, 0, len(msgs))
	for _, m := range msgs {
		if m.Text == "" {
			continue
		}
		if m.Timestamp.Before(cutoff) {
			continue
		}
		inWindow = append(inWindow, m)
	}

	r.logger.Debug("fetched channel window",
		"channel", username,
		"fetched", len(msgs),
		"in_window", len(inWindow),
	)

	return inWindow, nil
}
