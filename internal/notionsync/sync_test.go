package notionsync

import (
	"context"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jomei/notionapi"

	"github.com/nlozovan/bankfeed/internal/ledger"
)

func strptr(s string) *string { return &s }

func tx(id, name string, amount float64) ledger.Transaction {
	return ledger.Transaction{
		ID:       id,
		Name:     name,
		Amount:   amount,
		Currency: "USD",
		Date:     civil.Date{Year: 2024, Month: time.March, Day: 5},
		Status:   "posted",
	}
}

// fakeStore serves a fixed row set; only SelectAll is exercised by export.
type fakeStore struct {
	rows []ledger.Transaction
}

func (f *fakeStore) SelectRange(ctx context.Context, teamID string, filter ledger.Filter, sort *ledger.Sort, from, to int) ([]ledger.Transaction, error) {
	return nil, nil
}

func (f *fakeStore) SelectAll(ctx context.Context, teamID string, filter ledger.Filter, limit int) ([]ledger.Transaction, error) {
	return f.rows, nil
}

func (f *fakeStore) Count(ctx context.Context, teamID string, filter ledger.Filter) (int64, error) {
	return int64(len(f.rows)), nil
}

func (f *fakeStore) GetByID(ctx context.Context, teamID, id string) (*ledger.Transaction, error) {
	return nil, nil
}

func (f *fakeStore) ListUncategorizedByName(ctx context.Context, teamID, name, excludeID string) ([]ledger.Transaction, error) {
	return nil, nil
}

// fakeNotion records created, updated and archived pages and serves a
// preexisting set.
type fakeNotion struct {
	existing []notionapi.Page
	created  []notionapi.Properties
	updated  map[string]notionapi.Properties
	archived []string
}

func notionPage(id, txID string) notionapi.Page {
	return notionapi.Page{
		ID: notionapi.ObjectID(id),
		Properties: notionapi.Properties{
			"Transaction ID": &notionapi.TitleProperty{
				Title: []notionapi.RichText{{PlainText: txID}},
			},
		},
	}
}

func (f *fakeNotion) CreatePage(ctx context.Context, databaseID string, properties notionapi.Properties) (*notionapi.Page, error) {
	f.created = append(f.created, properties)
	return &notionapi.Page{ID: "new_page"}, nil
}

func (f *fakeNotion) UpdatePage(ctx context.Context, pageID string, properties notionapi.Properties) (*notionapi.Page, error) {
	if f.updated == nil {
		f.updated = make(map[string]notionapi.Properties)
	}
	f.updated[pageID] = properties
	return &notionapi.Page{ID: notionapi.ObjectID(pageID)}, nil
}

func (f *fakeNotion) QueryDatabase(ctx context.Context, databaseID string, filter *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	return &notionapi.DatabaseQueryResponse{Results: f.existing, HasMore: false}, nil
}

func (f *fakeNotion) DeletePage(ctx context.Context, pageID string) error {
	f.archived = append(f.archived, pageID)
	return nil
}

func TestExportCreatesMissingAndArchivesStale(t *testing.T) {
	store := &fakeStore{rows: []ledger.Transaction{
		tx("txn_1", "Coffee", -4.50),
		tx("txn_2", "Rent", -1200),
	}}
	notion := &fakeNotion{existing: []notionapi.Page{
		notionPage("page_a", "txn_1"),  // already exported, keep
		notionPage("page_b", "txn_99"), // gone from the ledger, archive
	}}

	err := ExportTransactions(context.Background(), store, notion, "db_1", "team_1", ledger.Filter{}, false)
	if err != nil {
		t.Fatalf("ExportTransactions: %v", err)
	}

	if len(notion.created) != 1 {
		t.Fatalf("created %d pages, want 1", len(notion.created))
	}
	title := notion.created[0]["Transaction ID"].(notionapi.TitleProperty)
	if title.Title[0].Text.Content != "txn_2" {
		t.Errorf("created page for %q, want txn_2", title.Title[0].Text.Content)
	}

	if len(notion.archived) != 1 || notion.archived[0] != "page_b" {
		t.Errorf("archived = %v, want [page_b]", notion.archived)
	}

	if len(notion.updated) != 1 {
		t.Fatalf("updated %d pages, want 1", len(notion.updated))
	}
	if _, ok := notion.updated["page_a"]; !ok {
		t.Errorf("updated = %v, want page_a refreshed", notion.updated)
	}
}

func TestExportRefreshesDriftedProperties(t *testing.T) {
	// txn_1 gained a category since the last run; the refresh carries it over.
	row := tx("txn_1", "Coffee", -4.50)
	row.Category = strptr("meals")
	store := &fakeStore{rows: []ledger.Transaction{row}}
	notion := &fakeNotion{existing: []notionapi.Page{notionPage("page_a", "txn_1")}}

	err := ExportTransactions(context.Background(), store, notion, "db_1", "team_1", ledger.Filter{}, false)
	if err != nil {
		t.Fatalf("ExportTransactions: %v", err)
	}

	if len(notion.created) != 0 {
		t.Errorf("created %d pages, want 0", len(notion.created))
	}
	props, ok := notion.updated["page_a"]
	if !ok {
		t.Fatalf("updated = %v, want page_a", notion.updated)
	}
	if cat := props["Category"].(notionapi.SelectProperty); cat.Select.Name != "meals" {
		t.Errorf("refreshed Category = %q, want meals", cat.Select.Name)
	}
}

func TestExportDryRunTouchesNothing(t *testing.T) {
	store := &fakeStore{rows: []ledger.Transaction{tx("txn_1", "Coffee", -4.50)}}
	notion := &fakeNotion{existing: []notionapi.Page{notionPage("page_b", "txn_99")}}

	err := ExportTransactions(context.Background(), store, notion, "db_1", "team_1", ledger.Filter{}, true)
	if err != nil {
		t.Fatalf("ExportTransactions: %v", err)
	}
	if len(notion.created) != 0 || len(notion.updated) != 0 || len(notion.archived) != 0 {
		t.Errorf("dry run created %d, updated %d, archived %d; want 0, 0, 0",
			len(notion.created), len(notion.updated), len(notion.archived))
	}
}

func TestTransactionToNotionProperties(t *testing.T) {
	row := tx("txn_1", "Coffee", -4.50)
	row.AccountID = "acc_1"
	row.Category = strptr("meals")
	row.AttachmentID = strptr("att_1")
	vat := 0.75
	row.VAT = &vat

	props := TransactionToNotionProperties(row)

	title := props["Transaction ID"].(notionapi.TitleProperty)
	if title.Title[0].Text.Content != "txn_1" {
		t.Errorf("Transaction ID = %q", title.Title[0].Text.Content)
	}
	if amount := props["Amount"].(notionapi.NumberProperty); amount.Number != -4.50 {
		t.Errorf("Amount = %v", amount.Number)
	}
	if cat := props["Category"].(notionapi.SelectProperty); cat.Select.Name != "meals" {
		t.Errorf("Category = %q", cat.Select.Name)
	}
	if fulfilled := props["Fulfilled"].(notionapi.CheckboxProperty); !fulfilled.Checkbox {
		t.Error("Fulfilled should be true when attachment and VAT are set")
	}
	if att := props["Has Attachment"].(notionapi.CheckboxProperty); !att.Checkbox {
		t.Error("Has Attachment should be true with an attachment")
	}
	if vatProp := props["VAT"].(notionapi.NumberProperty); vatProp.Number != 0.75 {
		t.Errorf("VAT = %v", vatProp.Number)
	}
}

func TestTransactionToNotionPropertiesUnfulfilled(t *testing.T) {
	props := TransactionToNotionProperties(tx("txn_2", "Rent", -1200))
	if fulfilled := props["Fulfilled"].(notionapi.CheckboxProperty); fulfilled.Checkbox {
		t.Error("Fulfilled should be false without attachment and VAT")
	}
	if _, ok := props["Category"]; ok {
		t.Error("Category should be omitted when nil")
	}

	// VAT alone does not fulfill a transaction.
	partial := tx("txn_3", "Rent", -1200)
	vat := 240.0
	partial.VAT = &vat
	props = TransactionToNotionProperties(partial)
	if fulfilled := props["Fulfilled"].(notionapi.CheckboxProperty); fulfilled.Checkbox {
		t.Error("Fulfilled should be false with VAT but no attachment")
	}
}
