package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jobgram/jobgram/internal/ai"
	"github.com/jobgram/jobgram/internal/category"
	"github.com/jobgram/jobgram/internal/config"
	"github.com/jobgram/jobgram/internal/jobs"
	"github.com/jobgram/jobgram/internal/notifier"
	"github.com/jobgram/jobgram/internal/progress"
	"github.com/jobgram/jobgram/internal/ratelimit"
	"github.com/jobgram/jobgram/internal/scrape"
	"github.com/jobgram/jobgram/internal/store"
	"github.com/jobgram/jobgram/internal/telegram"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobgram",
	Short: "Job aggregator for Telegram channels",
	Long:  "Jobgram scrapes configured Telegram channels, extracts structured job postings with an LLM, and persists de-duplicated, categorized job records.",
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBGRAM_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBGRAM_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBGRAM_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) progress.Notifier {
	switch cfg.Report.Type {
	case "slack":
		logger.Info("using slack report notifier")
		return notifier.NewSlackNotifier(cfg.Report.WebhookURL, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

func setupExtractor(cfg *config.Config, st *store.Store, logger *slog.Logger) ai.Extractor {
	if !cfg.AI.Enabled {
		logger.Warn("ai extraction disabled, every message will be classified as not a job")
		return ai.NewNopExtractor()
	}
	provider := ai.NewOpenAIProvider(
		cfg.AI.BaseURL,
		cfg.AI.APIKey,
		cfg.AI.Model,
		&http.Client{Timeout: cfg.AI.Timeout},
	)
	return ai.NewLLMExtractor(provider, st, ai.JobExtractionTemplate, logger)
}

func setupPublisher(cfg *config.Config, st *store.Store, httpClient *http.Client, logger *slog.Logger) progress.Publisher {
	n := setupNotifier(cfg, httpClient, logger)
	var pub progress.Publisher = progress.NewStorePublisher(st, n, logger)

	if cfg.Progress.RedisURL != "" {
		rdb, err := progress.NewRedisClient(context.Background(), cfg.Progress.RedisURL)
		if err != nil {
			// The store record stays authoritative; losing the mirror
			// only degrades live observation.
			logger.Warn("redis progress mirror unavailable", "error", err)
		} else {
			logger.Info("mirroring run progress to redis")
			pub = progress.NewRedisMirror(pub, st, rdb, logger)
		}
	}
	return pub
}

// buildCoordinator wires the full pipeline for one process. The
// publisher is returned alongside so callers can wait out the summary
// notification before exiting.
func buildCoordinator(cfg *config.Config, st *store.Store, logger *slog.Logger) (*scrape.Coordinator, progress.Publisher) {
	gateway := telegram.NewGatewayClient(
		cfg.Telegram.GatewayURL,
		cfg.Telegram.Token,
		&http.Client{Timeout: cfg.Telegram.Timeout},
	)
	reader := telegram.NewReader(gateway, logger)
	resolver := category.NewResolver(st, logger)
	persister := jobs.NewPersister(st, resolver, logger)
	extractor := setupExtractor(cfg, st, logger)
	publisher := setupPublisher(cfg, st, &http.Client{Timeout: cfg.Telegram.Timeout}, logger)
	limiter := ratelimit.NewLimiter(cfg.Scrape.MinDelay)

	coordinator := scrape.NewCoordinator(
		gateway,
		reader,
		extractor,
		persister,
		st,
		publisher,
		limiter,
		cfg.Scrape.Window,
		cfg.Scrape.FetchLimit,
		logger,
	)
	return coordinator, publisher
}
