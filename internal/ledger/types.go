package ledger

import "cloud.google.com/go/civil"

// Transaction is a ledger row as exposed to callers. Amounts are signed;
// VAT and AttachmentID are the two fields fulfillment filtering is built on.
type Transaction struct {
	ID           string     `json:"id"`
	AccountID    string     `json:"account_id"`
	Name         string     `json:"name"`
	Amount       float64    `json:"amount"`
	Currency     string     `json:"currency"`
	Date         civil.Date `json:"date"`
	Status       string     `json:"status"`
	Category     *string    `json:"category,omitempty"`
	AssignedID   *string    `json:"assigned_id,omitempty"`
	AttachmentID *string    `json:"attachment_id,omitempty"`
	VAT          *float64   `json:"vat,omitempty"`
	DisplayOrder int64      `json:"-"`
}

// Category is an entry of a team's category taxonomy.
type Category struct {
	Slug string `json:"slug"`
	Name string `json:"name"`
}

// Fulfillment filters on whether a transaction has both an attachment and a
// VAT value. The two non-Any states are mutually exclusive by construction.
type Fulfillment int

const (
	FulfillmentAny Fulfillment = iota
	// Fulfilled requires an attachment AND a VAT value.
	Fulfilled
	// Unfulfilled requires neither an attachment nor a VAT value.
	Unfulfilled
)

// Presence is a tri-state null filter on an optional column.
type Presence int

const (
	PresenceAny Presence = iota
	// PresenceInclude keeps rows where the column is set.
	PresenceInclude
	// PresenceExclude keeps rows where the column is null.
	PresenceExclude
)

// Filter is a conjunctive predicate over the ledger. Zero-valued fields
// impose no constraint. The date range only applies when both bounds are
// present.
type Filter struct {
	Search      string
	DateFrom    *civil.Date
	DateTo      *civil.Date
	Fulfillment Fulfillment
	Attachments Presence
	Categories  Presence
}

// Active reports whether any predicate is set. An inactive filter skips
// whole-set amount aggregation entirely (see Engine.Query).
func (f Filter) Active() bool {
	return f.Search != "" ||
		(f.DateFrom != nil && f.DateTo != nil) ||
		f.Fulfillment != FulfillmentAny ||
		f.Attachments != PresenceAny ||
		f.Categories != PresenceAny
}

// Sort is a single-key ordering spec. Column must be one of the whitelisted
// sortable columns; anything else falls back to the default order.
type Sort struct {
	Column    string
	Direction string // "asc" or "desc"
}

// Page selects a page window. A zero Size falls back to the legacy default
// (see Paginate).
type Page struct {
	Number int
	Size   int
}

// Meta carries whole-set aggregates for a query: Count and TotalAmount
// reflect every row matching the filter, not just the returned page.
type Meta struct {
	Count       int64   `json:"count"`
	TotalAmount float64 `json:"totalAmount"`
	Currency    string  `json:"currency,omitempty"`
}

// QueryResult is a page of transactions plus whole-set aggregates.
type QueryResult struct {
	Data []Transaction `json:"data"`
	Meta Meta          `json:"meta"`
}

// SimilarTransaction identifies one bulk-categorization candidate.
type SimilarTransaction struct {
	ID     string  `json:"id"`
	Amount float64 `json:"amount"`
}

// SimilarResult is the set of same-name uncategorized transactions offered
// for bulk categorization.
type SimilarResult struct {
	Data  []SimilarTransaction `json:"data"`
	Count int                  `json:"count"`
}
