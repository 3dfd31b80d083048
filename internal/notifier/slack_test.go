package notifier

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jobgram/jobgram/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSummary() model.RunSummary {
	return model.RunSummary{
		RunID:             "run-1",
		ChannelsProcessed: 3,
		TotalChannels:     3,
		JobsExtracted:     12,
		MessagesProcessed: 110,
		Duration:          95 * time.Second,
	}
}

func TestSlackNotifySendsBlockKitPayload(t *testing.T) {
	var payload slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content type = %s", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.NotifyRun(testSummary(), true); err != nil {
		t.Fatalf("NotifyRun: %v", err)
	}

	if len(payload.Blocks) != 2 {
		t.Fatalf("blocks = %d, want header + fields", len(payload.Blocks))
	}
	if payload.Blocks[0].Type != "header" || !strings.Contains(payload.Blocks[0].Text.Text, "complete") {
		t.Errorf("header block = %+v", payload.Blocks[0])
	}
	if got := len(payload.Blocks[1].Fields); got != 4 {
		t.Errorf("fields = %d, want 4", got)
	}
}

func TestSlackNotifyFailureIncludesErrorReport(t *testing.T) {
	var payload slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&payload)
	}))
	defer srv.Close()

	summary := testSummary()
	summary.Errors = []model.RunError{{Channel: "jobsfeed", Message: "channel not found"}}

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.NotifyRun(summary, false); err != nil {
		t.Fatalf("NotifyRun: %v", err)
	}

	if len(payload.Blocks) != 3 {
		t.Fatalf("blocks = %d, want error section appended", len(payload.Blocks))
	}
	if !strings.Contains(payload.Blocks[0].Text.Text, "failed") {
		t.Errorf("header = %q", payload.Blocks[0].Text.Text)
	}
	if !strings.Contains(payload.Blocks[2].Text.Text, "channel not found") {
		t.Errorf("error block = %q", payload.Blocks[2].Text.Text)
	}
}

func TestSlackNotifyRetriesOn429(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.NotifyRun(testSummary(), true); err != nil {
		t.Fatalf("NotifyRun: %v", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want retry after 429", calls)
	}
}

func TestSlackNotifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	if err := n.NotifyRun(testSummary(), true); err == nil {
		t.Fatal("expected error on 500")
	}
}
