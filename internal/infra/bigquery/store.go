package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	bq "github.com/nlozovan/bankfeed/internal/bigquery"
	"github.com/nlozovan/bankfeed/internal/ledger"
)

const (
	transactionsTable = "transactions"
	categoriesTable   = "categories"
)

// Store is the BigQuery-backed implementation of the ledger's read-only
// store interfaces. It issues parameterized queries only and never mutates
// rows; the upsert path lives in a separate service.
type Store struct {
	client    *bigquery.Client
	projectID string
	datasetID string
}

// NewStore creates a Store with a shared BigQuery client.
func NewStore(ctx context.Context, projectID, datasetID string) (*Store, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewStore: bigquery client: %w", err)
	}
	return &Store{client: client, projectID: projectID, datasetID: datasetID}, nil
}

// NewStoreWithClient creates a Store around an existing client.
func NewStoreWithClient(client *bigquery.Client, projectID, datasetID string) *Store {
	return &Store{client: client, projectID: projectID, datasetID: datasetID}
}

// Close releases the underlying client.
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) table(name string) string {
	return fmt.Sprintf("`%s.%s.%s`", s.projectID, s.datasetID, name)
}

// SelectRange implements ledger.TransactionStore. The [from, to] range is
// inclusive; an inverted range yields zero rows rather than an error, which
// the pagination helper can legitimately produce.
func (s *Store) SelectRange(ctx context.Context, teamID string, filter ledger.Filter, sort *ledger.Sort, from, to int) ([]ledger.Transaction, error) {
	where, params := buildTransactionWhere(teamID, filter)

	limit := to - from + 1
	if limit < 0 {
		limit = 0
	}

	sql := fmt.Sprintf(`
		SELECT%s
		FROM %s t
		WHERE %s
		ORDER BY %s
		LIMIT %d OFFSET %d
	`, transactionColumns, s.table(transactionsTable), where, buildOrderBy(sort), limit, from)

	rows, err := s.queryTransactions(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("SelectRange: %w", err)
	}
	return rows, nil
}

// SelectAll implements ledger.TransactionStore. It ignores pagination and
// returns up to limit matching rows for whole-set aggregation.
func (s *Store) SelectAll(ctx context.Context, teamID string, filter ledger.Filter, limit int) ([]ledger.Transaction, error) {
	where, params := buildTransactionWhere(teamID, filter)

	sql := fmt.Sprintf(`
		SELECT%s
		FROM %s t
		WHERE %s
		LIMIT %d
	`, transactionColumns, s.table(transactionsTable), where, limit)

	rows, err := s.queryTransactions(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("SelectAll: %w", err)
	}
	return rows, nil
}

// Count implements ledger.TransactionStore.
func (s *Store) Count(ctx context.Context, teamID string, filter ledger.Filter) (int64, error) {
	where, params := buildTransactionWhere(teamID, filter)

	sql := fmt.Sprintf(`
		SELECT COUNT(*) AS n
		FROM %s t
		WHERE %s
	`, s.table(transactionsTable), where)

	q := s.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return 0, fmt.Errorf("Count: query read: %w", err)
	}

	var row struct {
		N int64 `bigquery:"n"`
	}
	if err := it.Next(&row); err != nil {
		return 0, fmt.Errorf("Count: iter next: %w", err)
	}
	return row.N, nil
}

// GetByID implements ledger.TransactionStore. Returns nil when the
// transaction does not exist in the team's ledger.
func (s *Store) GetByID(ctx context.Context, teamID, id string) (*ledger.Transaction, error) {
	sql := fmt.Sprintf(`
		SELECT%s
		FROM %s t
		WHERE t.team_id = @team_id
		  AND t.transaction_id = @transaction_id
		LIMIT 1
	`, transactionColumns, s.table(transactionsTable))

	params := []bigquery.QueryParameter{
		{Name: "team_id", Value: teamID},
		{Name: "transaction_id", Value: id},
	}

	rows, err := s.queryTransactions(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// ListUncategorizedByName implements ledger.TransactionStore.
func (s *Store) ListUncategorizedByName(ctx context.Context, teamID, name, excludeID string) ([]ledger.Transaction, error) {
	sql := fmt.Sprintf(`
		SELECT%s
		FROM %s t
		WHERE t.team_id = @team_id
		  AND t.name = @name
		  AND t.category_slug IS NULL
		  AND t.transaction_id != @exclude_id
	`, transactionColumns, s.table(transactionsTable))

	params := []bigquery.QueryParameter{
		{Name: "team_id", Value: teamID},
		{Name: "name", Value: name},
		{Name: "exclude_id", Value: excludeID},
	}

	rows, err := s.queryTransactions(ctx, sql, params)
	if err != nil {
		return nil, fmt.Errorf("ListUncategorizedByName: %w", err)
	}
	return rows, nil
}

// ListCategories implements ledger.CategoryStore.
func (s *Store) ListCategories(ctx context.Context, teamID string) ([]ledger.Category, error) {
	sql := fmt.Sprintf(`
		SELECT team_id, slug, name
		FROM %s
		WHERE team_id = @team_id
		ORDER BY name
	`, s.table(categoriesTable))

	q := s.client.Query(sql)
	q.Parameters = []bigquery.QueryParameter{{Name: "team_id", Value: teamID}}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query read: %w", err)
	}

	var categories []ledger.Category
	for {
		var row bq.CategoryRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListCategories: iter next: %w", err)
		}
		categories = append(categories, row.ToLedgerCategory())
	}
	return categories, nil
}

func (s *Store) queryTransactions(ctx context.Context, sql string, params []bigquery.QueryParameter) ([]ledger.Transaction, error) {
	q := s.client.Query(sql)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var rows []ledger.Transaction
	for {
		var row bq.TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, row.ToLedger())
	}
	return rows, nil
}

// Compile-time interface checks.
var (
	_ ledger.TransactionStore = (*Store)(nil)
	_ ledger.CategoryStore    = (*Store)(nil)
)
