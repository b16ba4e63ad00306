package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nlozovan/bankfeed/internal/config"
	"github.com/nlozovan/bankfeed/internal/jobs"
	"github.com/nlozovan/bankfeed/internal/jobs/inmemory"
	"github.com/nlozovan/bankfeed/internal/logger"
	"github.com/nlozovan/bankfeed/internal/provider"
)

func main() {
	var (
		configPath = flag.String("config", "", "Path to config file (optional)")
		teamID     = flag.String("team", "", "Team that owns the enrollments (required)")
		interval   = flag.Duration("interval", time.Hour, "How often to re-sync each enrollment")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		boot := logger.New()
		boot.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logger.NewWithLevel(cfg.Log.Level)

	tokens := flag.Args()
	if *teamID == "" || len(tokens) == 0 {
		log.Fatal().Msg("Usage: worker -team TEAM [flags] TOKEN [TOKEN...]")
	}

	bank := provider.New(cfg.Provider.BaseURL, nil, log)

	// Initialize job store and queue
	// In production, this would be replaced with Cloud Tasks or Pub/Sub
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, jobStore)

	log.Info().
		Int("enrollments", len(tokens)).
		Dur("interval", *interval).
		Msg("Starting sync worker")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start consuming jobs
	if err := jobQueue.Start(ctx, jobs.ConnectionSyncHandler(bank, log)); err != nil {
		log.Fatal().Err(err).Msg("Failed to start job consumer")
	}

	// Enqueue one sync per enrollment now and on every tick.
	enqueueAll := func() {
		for _, token := range tokens {
			job := &jobs.ConnectionSyncJob{
				TeamID:      *teamID,
				AccessToken: token,
			}
			if err := jobQueue.PublishConnectionSync(ctx, job); err != nil {
				log.Error().Err(err).Msg("Failed to enqueue sync job")
			}
		}
	}

	go func() {
		enqueueAll()
		ticker := time.NewTicker(*interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				enqueueAll()
			}
		}
	}()

	log.Info().Msg("Worker service started, waiting for jobs...")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down worker service...")

	// Cancel context to stop workers
	cancel()

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop the queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during graceful shutdown")
	}

	if err := jobQueue.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to close job queue")
	}

	log.Info().Msg("Worker service exited")
}
