// Package api is the on-demand trigger surface: start a run, poll its
// progress. Per-item errors never surface here; they live in the run's
// progress record and the eventual summary notification.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jobgram/jobgram/internal/model"
)

// Runner starts one ingestion run. Implemented by the scrape coordinator.
type Runner interface {
	Run(ctx context.Context, runID string) (*model.RunSummary, error)
}

// ProgressStore reads run progress records for polling clients.
type ProgressStore interface {
	GetRunProgress(runID string) (*model.RunProgress, error)
	ActiveScrapingChannels() ([]model.Channel, error)
}

// Deps collects what the handler needs.
type Deps struct {
	Runner     Runner
	Store      ProgressStore
	Token      string
	RunTimeout time.Duration
	Logger     *slog.Logger
}

// NewHandler builds the chi router. The health endpoint is
// unauthenticated; everything under /api/v1 requires the bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(bearerAuth(deps.Token))
		r.Post("/runs", handleStartRun(deps))
		r.Get("/runs/{runID}", handleGetRun(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleStartRun dispatches a background run and answers immediately
// with the run id. The caller observes everything else through the
// progress record; fire-and-forget from its perspective.
func handleStartRun(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		channels, err := deps.Store.ActiveScrapingChannels()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "store_error", "failed to list channels")
			return
		}
		if len(channels) == 0 {
			httpError(w, http.StatusNotFound, "not_found", "no active channels with scraping enabled")
			return
		}

		runID := uuid.New().String()

		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), deps.RunTimeout)
			defer cancel()
			if _, err := deps.Runner.Run(ctx, runID); err != nil {
				deps.Logger.Error("background run failed", "run_id", runID, "error", err)
			}
		}()

		writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
	}
}

func handleGetRun(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		runID := chi.URLParam(r, "runID")
		rec, err := deps.Store.GetRunProgress(runID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "store_error", "failed to load run progress")
			return
		}
		if rec == nil {
			httpError(w, http.StatusNotFound, "not_found", "unknown run id")
			return
		}
		writeJSON(w, http.StatusOK, rec)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func httpError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: code, Message: message})
}
