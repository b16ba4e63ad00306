package main

import (
	"context"
	"flag"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/nlozovan/bankfeed/internal/config"
	infraBQ "github.com/nlozovan/bankfeed/internal/infra/bigquery"
	"github.com/nlozovan/bankfeed/internal/ledger"
	"github.com/nlozovan/bankfeed/internal/logger"
	"github.com/nlozovan/bankfeed/internal/notionsync"
)

func main() {
	// Initialize structured logger
	log := logger.New()

	// Parse CLI flags
	teamID := flag.String("team", "", "Team ID to export (required)")
	fromStr := flag.String("from", "", "Start date in YYYY-MM-DD format")
	toStr := flag.String("to", "", "End date in YYYY-MM-DD format")
	notionToken := flag.String("notion-token", "", "Notion API token (overrides config)")
	notionDBID := flag.String("notion-db-id", "", "Notion database ID (overrides config)")
	dryRun := flag.Bool("dry-run", false, "Dry run mode - preview changes without exporting")
	flag.Parse()

	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *notionToken == "" {
		*notionToken = cfg.Notion.Token
	}
	if *notionDBID == "" {
		*notionDBID = cfg.Notion.DatabaseID
	}

	// Validate required inputs
	if *teamID == "" {
		log.Fatal().Msg("Error: --team is required")
	}
	if *notionToken == "" {
		log.Fatal().Msg("Error: --notion-token (or BFD_NOTION_TOKEN) is required")
	}
	if *notionDBID == "" {
		log.Fatal().Msg("Error: --notion-db-id (or BFD_NOTION_DATABASE_ID) is required")
	}

	// Optional date window; applied only when both bounds are present.
	var filter ledger.Filter
	if *fromStr != "" {
		d, err := civil.ParseDate(*fromStr)
		if err != nil {
			log.Fatal().Err(err).Str("from", *fromStr).Msg("Error: invalid from date, expected YYYY-MM-DD")
		}
		filter.DateFrom = &d
	}
	if *toStr != "" {
		d, err := civil.ParseDate(*toStr)
		if err != nil {
			log.Fatal().Err(err).Str("to", *toStr).Msg("Error: invalid to date, expected YYYY-MM-DD")
		}
		filter.DateTo = &d
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		log.Fatal().Msg("Error: to date must not be before from date")
	}

	// Create context with timeout so CLI doesn't hang
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	// Add logger to context
	ctx = logger.WithContext(ctx, log)

	log.Info().
		Str("team_id", *teamID).
		Bool("dry_run", *dryRun).
		Msg("Starting Notion export")

	// Initialize ledger store
	store, err := infraBQ.NewStore(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.DatasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger store")
	}
	defer store.Close()

	// Initialize Notion client
	notionClient := notionsync.NewNotionClient(*notionToken)

	// Export transactions
	if err := notionsync.ExportTransactions(ctx, store, notionClient, *notionDBID, *teamID, filter, *dryRun); err != nil {
		log.Fatal().Err(err).Msg("Export failed")
	}

	fmt.Println("Export completed successfully.")
}
