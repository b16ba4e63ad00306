package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/nlozovan/bankfeed/internal/ledger"
)

// TransactionRow is a ledger transaction as stored in BigQuery.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	TeamID    string `bigquery:"team_id"`    // REQUIRED
	AccountID string `bigquery:"account_id"` // REQUIRED

	Name     string     `bigquery:"name"`     // REQUIRED STRING
	Amount   *big.Rat   `bigquery:"amount"`   // REQUIRED NUMERIC
	Currency string     `bigquery:"currency"` // REQUIRED STRING
	Date     civil.Date `bigquery:"date"`     // REQUIRED DATE
	Status   string     `bigquery:"status"`   // REQUIRED STRING

	CategorySlug bigquery.NullString `bigquery:"category_slug"` // NULLABLE
	AssignedID   bigquery.NullString `bigquery:"assigned_id"`   // NULLABLE
	AttachmentID bigquery.NullString `bigquery:"attachment_id"` // NULLABLE

	VAT *big.Rat `bigquery:"vat"` // NULLABLE NUMERIC

	DisplayOrder int64 `bigquery:"display_order"` // REQUIRED (manual ordering key)

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED (default CURRENT_TIMESTAMP)
}

// CategoryRow is a team taxonomy entry.
type CategoryRow struct {
	TeamID string `bigquery:"team_id"` // REQUIRED
	Slug   string `bigquery:"slug"`    // REQUIRED
	Name   string `bigquery:"name"`    // REQUIRED
}

// ToLedger converts a store row into the domain transaction shape.
func (r *TransactionRow) ToLedger() ledger.Transaction {
	tx := ledger.Transaction{
		ID:           r.TransactionID,
		AccountID:    r.AccountID,
		Name:         r.Name,
		Amount:       ratFloat(r.Amount),
		Currency:     r.Currency,
		Date:         r.Date,
		Status:       r.Status,
		DisplayOrder: r.DisplayOrder,
	}
	if r.CategorySlug.Valid {
		v := r.CategorySlug.StringVal
		tx.Category = &v
	}
	if r.AssignedID.Valid {
		v := r.AssignedID.StringVal
		tx.AssignedID = &v
	}
	if r.AttachmentID.Valid {
		v := r.AttachmentID.StringVal
		tx.AttachmentID = &v
	}
	if r.VAT != nil {
		v := ratFloat(r.VAT)
		tx.VAT = &v
	}
	return tx
}

// ToLedgerCategory converts a taxonomy row.
func (r *CategoryRow) ToLedgerCategory() ledger.Category {
	return ledger.Category{Slug: r.Slug, Name: r.Name}
}

// ratFloat converts a NUMERIC value to float64, treating nil as 0.
func ratFloat(r *big.Rat) float64 {
	if r == nil {
		return 0
	}
	f, _ := r.Float64()
	return f
}
