package notionsync

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"

	"github.com/nlozovan/bankfeed/internal/ledger"
	"github.com/nlozovan/bankfeed/internal/logger"
)

const (
	// exportLimit caps how many ledger rows one export run will push.
	exportLimit = 10000
)

// ExportTransactions mirrors a team's ledger rows matching the filter into a
// Notion database. The Transaction ID title property tracks which rows are
// already exported; stale pages (no longer in the ledger set) are archived,
// missing rows are created, and already-exported pages are refreshed so
// property drift (a category assigned after the last run, say) is overwritten.
func ExportTransactions(ctx context.Context, store ledger.TransactionStore, notion NotionService, databaseID, teamID string, filter ledger.Filter, dryRun bool) error {
	log := logger.FromContext(ctx)

	log.Info().
		Str("team_id", teamID).
		Bool("dry_run", dryRun).
		Msg("Starting transaction export to Notion")

	rows, err := store.SelectAll(ctx, teamID, filter, exportLimit)
	if err != nil {
		return fmt.Errorf("failed to query ledger: %w", err)
	}

	log.Info().Int("transaction_count", len(rows)).Msg("Retrieved transactions from ledger")

	validIDs := make(map[string]bool, len(rows))
	for _, tx := range rows {
		validIDs[tx.ID] = true
	}

	pages, err := queryAllNotionPages(ctx, notion, databaseID)
	if err != nil {
		return fmt.Errorf("failed to query Notion pages: %w", err)
	}

	log.Info().Int("notion_page_count", len(pages)).Msg("Retrieved existing Notion pages")

	pageIDByTx := make(map[string]string, len(pages))
	for _, page := range pages {
		if id := extractTransactionID(page); id != "" {
			pageIDByTx[id] = string(page.ID)
		}
	}

	// Archive pages whose transaction left the ledger set, and pages with
	// no Transaction ID at all (from an older export format).
	var deleted int
	for _, page := range pages {
		id := extractTransactionID(page)
		if id != "" && validIDs[id] {
			continue
		}

		if dryRun {
			log.Info().
				Str("transaction_id", id).
				Str("page_id", string(page.ID)).
				Msg("[DRY RUN] Would archive stale Notion page")
			deleted++
			continue
		}

		if err := notion.DeletePage(ctx, string(page.ID)); err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", id).
				Str("page_id", string(page.ID)).
				Msg("Failed to archive stale Notion page")
			continue
		}
		deleted++
	}

	var created, updated int
	for _, tx := range rows {
		if pageID, ok := pageIDByTx[tx.ID]; ok {
			if dryRun {
				log.Info().
					Str("transaction_id", tx.ID).
					Str("page_id", pageID).
					Msg("[DRY RUN] Would refresh Notion page")
				updated++
				continue
			}

			props := TransactionToNotionProperties(tx)
			if _, err := notion.UpdatePage(ctx, pageID, props); err != nil {
				log.Warn().
					Err(err).
					Str("transaction_id", tx.ID).
					Str("page_id", pageID).
					Msg("Failed to refresh Notion page")
				continue
			}
			updated++
			continue
		}

		if dryRun {
			log.Info().
				Str("transaction_id", tx.ID).
				Msg("[DRY RUN] Would create Notion page")
			created++
			continue
		}

		props := TransactionToNotionProperties(tx)
		page, err := notion.CreatePage(ctx, databaseID, props)
		if err != nil {
			log.Warn().
				Err(err).
				Str("transaction_id", tx.ID).
				Msg("Failed to create Notion page")
			// Keep exporting the rest of the batch.
			continue
		}

		log.Debug().
			Str("transaction_id", tx.ID).
			Str("page_id", string(page.ID)).
			Msg("Created Notion page")
		created++
	}

	log.Info().
		Int("created", created).
		Int("updated", updated).
		Int("deleted", deleted).
		Int("total", len(rows)).
		Msg("Transaction export completed")

	return nil
}

// queryAllNotionPages queries all pages from a Notion database and returns them.
// Handles pagination automatically.
func queryAllNotionPages(ctx context.Context, notion NotionService, databaseID string) ([]notionapi.Page, error) {
	var allPages []notionapi.Page
	var cursor notionapi.Cursor

	for {
		req := &notionapi.DatabaseQueryRequest{
			PageSize: 100,
		}

		// Only set StartCursor if we have a cursor value
		if cursor != "" {
			req.StartCursor = cursor
		}

		resp, err := notion.QueryDatabase(ctx, databaseID, req)
		if err != nil {
			return nil, fmt.Errorf("queryAllNotionPages: %w", err)
		}

		allPages = append(allPages, resp.Results...)

		if !resp.HasMore {
			break
		}
		cursor = resp.NextCursor
	}

	return allPages, nil
}
