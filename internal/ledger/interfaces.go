package ledger

import "context"

// TransactionStore provides read-only access to the transaction ledger.
// Every call is scoped by an explicit team identifier supplied by the
// caller; the store never resolves ambient session state. This interface
// enables mocking the store in engine tests.
type TransactionStore interface {
	// SelectRange returns the rows matching the filter within the
	// inclusive [from, to] range, ordered by the sort spec (or the
	// default manual order when sort is nil).
	SelectRange(ctx context.Context, teamID string, filter Filter, sort *Sort, from, to int) ([]Transaction, error)

	// SelectAll returns every row matching the filter up to limit,
	// unaffected by pagination. Used for whole-set aggregation.
	SelectAll(ctx context.Context, teamID string, filter Filter, limit int) ([]Transaction, error)

	// Count returns the number of rows matching the filter, ignoring
	// pagination.
	Count(ctx context.Context, teamID string, filter Filter) (int64, error)

	// GetByID returns a single transaction, or nil when it does not
	// exist in the team's ledger.
	GetByID(ctx context.Context, teamID, id string) (*Transaction, error)

	// ListUncategorizedByName returns the team's transactions sharing
	// the given name that have no category, excluding excludeID.
	ListUncategorizedByName(ctx context.Context, teamID, name, excludeID string) ([]Transaction, error)
}

// CategoryStore lists a team's category taxonomy.
type CategoryStore interface {
	ListCategories(ctx context.Context, teamID string) ([]Category, error)
}
