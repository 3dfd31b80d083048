package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jobgram/jobgram/internal/api"
	"github.com/jobgram/jobgram/internal/scheduler"
	"github.com/jobgram/jobgram/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the trigger API and the daily scheduler",
	Long:  "Serve the on-demand scrape trigger API and, when schedule.cron is set, fire scheduled runs. Blocks until SIGINT/SIGTERM.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Server.Addr == "" {
		return fmt.Errorf("server.addr is required for serve")
	}
	if cfg.Server.Token == "" {
		return fmt.Errorf("server.token is required for serve")
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	coordinator, publisher := buildCoordinator(cfg, st, logger)
	defer publisher.Wait()

	if cfg.Schedule.Cron != "" {
		sched := scheduler.New(coordinator, cfg.Schedule.Cron, cfg.Scrape.RunTimeout, logger)
		if err := sched.Start(); err != nil {
			return fmt.Errorf("starting scheduler: %w", err)
		}
		defer sched.Stop()
	}

	handler := api.NewHandler(api.Deps{
		Runner:     coordinator,
		Store:      st,
		Token:      cfg.Server.Token,
		RunTimeout: cfg.Scrape.RunTimeout,
		Logger:     logger,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
	}

	logger.Info("goodbye")
	return nil
}
