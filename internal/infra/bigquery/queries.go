package bigquery

import (
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"

	"github.com/nlozovan/bankfeed/internal/ledger"
)

// transactionColumns is the projection shared by every transaction query.
const transactionColumns = `
	t.transaction_id,
	t.team_id,
	t.account_id,
	t.name,
	t.amount,
	t.currency,
	t.date,
	t.status,
	t.category_slug,
	t.assigned_id,
	t.attachment_id,
	t.vat,
	t.display_order,
	t.created_ts`

// sortColumns whitelists caller-supplied sort keys against the physical
// column they map to. Anything else falls back to the default order.
var sortColumns = map[string]string{
	"date":     "date",
	"amount":   "amount",
	"name":     "name",
	"category": "category_slug",
}

// defaultOrder is the manual ordering applied when no sort is requested.
const defaultOrder = "display_order ASC"

// buildTransactionWhere renders the conjunctive filter predicate and its
// query parameters. Omitted filter fields contribute no clause. Date bounds
// are inclusive and only applied when both are present. Free-text search
// uses BigQuery's tokenized SEARCH over the transaction name.
func buildTransactionWhere(teamID string, f ledger.Filter) (string, []bigquery.QueryParameter) {
	clauses := []string{"t.team_id = @team_id"}
	params := []bigquery.QueryParameter{
		{Name: "team_id", Value: teamID},
	}

	if f.DateFrom != nil && f.DateTo != nil {
		clauses = append(clauses, "t.date >= @date_from", "t.date <= @date_to")
		params = append(params,
			bigquery.QueryParameter{Name: "date_from", Value: f.DateFrom.String()},
			bigquery.QueryParameter{Name: "date_to", Value: f.DateTo.String()},
		)
	}

	if f.Search != "" {
		clauses = append(clauses, "SEARCH(t.name, @search)")
		params = append(params, bigquery.QueryParameter{Name: "search", Value: f.Search})
	}

	switch f.Fulfillment {
	case ledger.Fulfilled:
		clauses = append(clauses, "t.attachment_id IS NOT NULL", "t.vat IS NOT NULL")
	case ledger.Unfulfilled:
		clauses = append(clauses, "t.attachment_id IS NULL", "t.vat IS NULL")
	}

	switch f.Attachments {
	case ledger.PresenceInclude:
		clauses = append(clauses, "t.attachment_id IS NOT NULL")
	case ledger.PresenceExclude:
		clauses = append(clauses, "t.attachment_id IS NULL")
	}

	switch f.Categories {
	case ledger.PresenceInclude:
		clauses = append(clauses, "t.category_slug IS NOT NULL")
	case ledger.PresenceExclude:
		clauses = append(clauses, "t.category_slug IS NULL")
	}

	return strings.Join(clauses, "\n  AND "), params
}

// buildOrderBy resolves a sort spec against the whitelist. Direction is
// normalized to ASC/DESC; unknown columns keep the default manual order.
func buildOrderBy(sort *ledger.Sort) string {
	if sort == nil {
		return defaultOrder
	}
	column, ok := sortColumns[sort.Column]
	if !ok {
		return defaultOrder
	}
	direction := "ASC"
	if strings.EqualFold(sort.Direction, "desc") {
		direction = "DESC"
	}
	return fmt.Sprintf("%s %s", column, direction)
}
