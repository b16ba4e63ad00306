package ledger

import (
	"context"
	"errors"
	"fmt"
)

// ErrTransactionNotFound is returned when the reference transaction does
// not exist in the team's ledger.
var ErrTransactionNotFound = errors.New("transaction not found")

// Similar finds the team's other transactions that share the reference
// transaction's name and have no category yet. The result backs the "apply
// this category to N similar transactions" flow; the reference transaction
// itself is excluded.
func (e *Engine) Similar(ctx context.Context, teamID, transactionID string) (SimilarResult, error) {
	tx, err := e.store.GetByID(ctx, teamID, transactionID)
	if err != nil {
		return SimilarResult{}, fmt.Errorf("similar: lookup %s: %w", transactionID, err)
	}
	if tx == nil {
		return SimilarResult{}, ErrTransactionNotFound
	}

	matches, err := e.store.ListUncategorizedByName(ctx, teamID, tx.Name, transactionID)
	if err != nil {
		return SimilarResult{}, fmt.Errorf("similar: matches for %q: %w", tx.Name, err)
	}

	data := make([]SimilarTransaction, 0, len(matches))
	for _, m := range matches {
		data = append(data, SimilarTransaction{ID: m.ID, Amount: m.Amount})
	}
	return SimilarResult{Data: data, Count: len(data)}, nil
}
