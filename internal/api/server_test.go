package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jobgram/jobgram/internal/model"
)

type fakeRunner struct {
	started chan string
}

func (f *fakeRunner) Run(_ context.Context, runID string) (*model.RunSummary, error) {
	if f.started != nil {
		f.started <- runID
	}
	return &model.RunSummary{RunID: runID}, nil
}

type fakeProgressStore struct {
	channels []model.Channel
	runs     map[string]*model.RunProgress
}

func (f *fakeProgressStore) ActiveScrapingChannels() ([]model.Channel, error) {
	return f.channels, nil
}

func (f *fakeProgressStore) GetRunProgress(runID string) (*model.RunProgress, error) {
	return f.runs[runID], nil
}

func newTestHandler(store *fakeProgressStore, runner *fakeRunner) http.Handler {
	return NewHandler(Deps{
		Runner:     runner,
		Store:      store,
		Token:      "secret",
		RunTimeout: time.Minute,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func authed(method, target string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	req.Header.Set("Authorization", "Bearer secret")
	return req
}

func TestHealthUnauthenticated(t *testing.T) {
	h := newTestHandler(&fakeProgressStore{}, &fakeRunner{})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestStartRunRequiresToken(t *testing.T) {
	h := newTestHandler(&fakeProgressStore{}, &fakeRunner{})

	for _, auth := range []string{"", "Bearer wrong", "Basic secret"} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("auth %q: status = %d, want 401", auth, rec.Code)
		}
	}
}

func TestStartRunNoActiveChannels(t *testing.T) {
	h := newTestHandler(&fakeProgressStore{}, &fakeRunner{})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, authed(http.MethodPost, "/api/v1/runs"))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body errorBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Error != "not_found" {
		t.Errorf("error code = %q, want not_found", body.Error)
	}
}

func TestStartRunAcceptedAndDispatched(t *testing.T) {
	runner := &fakeRunner{started: make(chan string, 1)}
	store := &fakeProgressStore{channels: []model.Channel{{ID: "ch-1", Username: "jobsfeed"}}}
	h := newTestHandler(store, runner)
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, authed(http.MethodPost, "/api/v1/runs"))

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["run_id"] == "" {
		t.Fatal("response missing run_id")
	}

	select {
	case started := <-runner.started:
		if started != body["run_id"] {
			t.Errorf("dispatched run id %q != returned id %q", started, body["run_id"])
		}
	case <-time.After(2 * time.Second):
		t.Fatal("background run never dispatched")
	}
}

func TestGetRunUnknown(t *testing.T) {
	h := newTestHandler(&fakeProgressStore{runs: map[string]*model.RunProgress{}}, &fakeRunner{})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, authed(http.MethodGet, "/api/v1/runs/ghost"))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestGetRunProgress(t *testing.T) {
	store := &fakeProgressStore{runs: map[string]*model.RunProgress{
		"run-1": {
			RunID:             "run-1",
			TotalChannels:     4,
			ProcessedChannels: 2,
			CurrentChannel:    "jobsfeed",
			Status:            model.RunStatusRunning,
		},
	}}
	h := newTestHandler(store, &fakeRunner{})
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, authed(http.MethodGet, "/api/v1/runs/run-1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body model.RunProgress
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.RunID != "run-1" || body.ProcessedChannels != 2 || body.Status != model.RunStatusRunning {
		t.Errorf("body = %+v", body)
	}
}
