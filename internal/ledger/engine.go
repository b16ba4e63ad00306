package ledger

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// aggregateCeiling bounds the unbounded aggregation query. The store caps
// every query, so whole-set sums are "all rows up to a very large ceiling"
// rather than a true table scan.
const aggregateCeiling = 10_000_000

// Engine answers filtered, sorted, paginated queries over the transaction
// ledger with whole-set aggregates. It holds no state beyond the injected
// store and is safe for concurrent use.
type Engine struct {
	store TransactionStore
}

// NewEngine creates a query engine over the given store.
func NewEngine(store TransactionStore) *Engine {
	return &Engine{store: store}
}

// Query runs a filtered query and returns the requested page together with
// meta aggregates computed over the ENTIRE filtered set, independent of the
// page window.
//
// TotalAmount is computed by re-running the filtered query without the page
// range (capped at aggregateCeiling) and summing client-side. When no
// filter is active the query reports TotalAmount 0: full-table sums are
// deferred to out-of-band aggregation, and that asymmetry is a known,
// deliberate limitation pinned by tests — do not "fix" it here.
//
// The page, count and aggregation queries have no ordering dependency and
// run concurrently. Store failures propagate unmodified; there is no retry
// and no partial result.
func (e *Engine) Query(ctx context.Context, teamID string, filter Filter, sort *Sort, page Page) (QueryResult, error) {
	from, to := Paginate(page.Number, page.Size)

	var (
		rows  []Transaction
		count int64
		total float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = e.store.SelectRange(gctx, teamID, filter, sort, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = e.store.Count(gctx, teamID, filter)
		return err
	})
	if filter.Active() {
		g.Go(func() error {
			all, err := e.store.SelectAll(gctx, teamID, filter, aggregateCeiling)
			if err != nil {
				return err
			}
			for _, tx := range all {
				total += tx.Amount
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return QueryResult{}, fmt.Errorf("ledger query: %w", err)
	}

	meta := Meta{Count: count, TotalAmount: total}
	if len(rows) > 0 {
		meta.Currency = rows[0].Currency
	}
	return QueryResult{Data: rows, Meta: meta}, nil
}
