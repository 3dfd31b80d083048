package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jobgram/jobgram/internal/progress"
	"github.com/jobgram/jobgram/internal/store"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Run one scrape over all active channels and exit",
	RunE:  runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	coordinator, publisher := buildCoordinator(cfg, st, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Scrape.RunTimeout)
	defer cancel()

	runID := uuid.New().String()
	logger.Info("starting scrape run", "run_id", runID)

	summary, runErr := coordinator.Run(ctx, runID)
	if summary != nil {
		fmt.Fprint(os.Stdout, progress.RenderSummary(*summary, runErr == nil))
	}

	// The summary notification runs in the background; without this the
	// process exits before the report is delivered.
	publisher.Wait()
	return runErr
}
