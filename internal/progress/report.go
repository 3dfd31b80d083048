package progress

import (
	"fmt"
	"strings"
	"time"

	"github.com/jobgram/jobgram/internal/model"
)

// maxReportedErrors bounds the error list in the human-readable summary.
const maxReportedErrors = 10

// RenderSummary formats the end-of-run report sent to the notification
// sink. Errors beyond the first ten collapse into a "+N more" marker.
func RenderSummary(summary model.RunSummary, success bool) string {
	var b strings.Builder

	status := "completed"
	if !success {
		status = "FAILED"
	}

	round := time.Second
	if summary.Duration < time.Second {
		round = time.Millisecond
	}

	fmt.Fprintf(&b, "Scrape run %s %s in %s\n", summary.RunID, status, summary.Duration.Round(round))
	fmt.Fprintf(&b, "Channels: %d/%d processed\n", summary.ChannelsProcessed, summary.TotalChannels)
	fmt.Fprintf(&b, "Messages processed: %d\n", summary.MessagesProcessed)
	fmt.Fprintf(&b, "Jobs extracted: %d\n", summary.JobsExtracted)

	if len(summary.Errors) == 0 {
		b.WriteString("Errors: none\n")
		return b.String()
	}

	fmt.Fprintf(&b, "Errors: %d\n", len(summary.Errors))
	shown := summary.Errors
	if len(shown) > maxReportedErrors {
		shown = shown[:maxReportedErrors]
	}
	for _, e := range shown {
		fmt.Fprintf(&b, "  - [%s] %s\n", e.Channel, e.Message)
	}
	if extra := len(summary.Errors) - maxReportedErrors; extra > 0 {
		fmt.Fprintf(&b, "  +%d more\n", extra)
	}

	return b.String()
}
