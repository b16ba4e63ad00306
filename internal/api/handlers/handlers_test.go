package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/nlozovan/bankfeed/internal/api/middleware"
	"github.com/nlozovan/bankfeed/internal/enrich"
	"github.com/nlozovan/bankfeed/internal/jobs"
	"github.com/nlozovan/bankfeed/internal/ledger"
	"github.com/nlozovan/bankfeed/internal/provider"
)

func strptr(s string) *string { return &s }

// fakeStore serves a fixed row set with in-memory filtering.
type fakeStore struct {
	rows       []ledger.Transaction
	categories []ledger.Category
}

func (f *fakeStore) matches(tx ledger.Transaction, filter ledger.Filter) bool {
	if filter.Search != "" && !strings.Contains(strings.ToLower(tx.Name), strings.ToLower(filter.Search)) {
		return false
	}
	if filter.DateFrom != nil && filter.DateTo != nil {
		if tx.Date.Before(*filter.DateFrom) || tx.Date.After(*filter.DateTo) {
			return false
		}
	}
	return true
}

func (f *fakeStore) SelectRange(ctx context.Context, teamID string, filter ledger.Filter, sort *ledger.Sort, from, to int) ([]ledger.Transaction, error) {
	var matched []ledger.Transaction
	for _, tx := range f.rows {
		if f.matches(tx, filter) {
			matched = append(matched, tx)
		}
	}
	if from >= len(matched) || to < from {
		return nil, nil
	}
	if to >= len(matched) {
		to = len(matched) - 1
	}
	return matched[from : to+1], nil
}

func (f *fakeStore) SelectAll(ctx context.Context, teamID string, filter ledger.Filter, limit int) ([]ledger.Transaction, error) {
	var matched []ledger.Transaction
	for _, tx := range f.rows {
		if f.matches(tx, filter) {
			matched = append(matched, tx)
		}
	}
	return matched, nil
}

func (f *fakeStore) Count(ctx context.Context, teamID string, filter ledger.Filter) (int64, error) {
	var n int64
	for _, tx := range f.rows {
		if f.matches(tx, filter) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) GetByID(ctx context.Context, teamID, id string) (*ledger.Transaction, error) {
	for _, tx := range f.rows {
		if tx.ID == id {
			found := tx
			return &found, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) ListUncategorizedByName(ctx context.Context, teamID, name, excludeID string) ([]ledger.Transaction, error) {
	var matched []ledger.Transaction
	for _, tx := range f.rows {
		if tx.Name == name && tx.ID != excludeID && tx.Category == nil {
			matched = append(matched, tx)
		}
	}
	return matched, nil
}

func (f *fakeStore) ListCategories(ctx context.Context, teamID string) ([]ledger.Category, error) {
	return f.categories, nil
}

type fakeSuggester struct {
	suggestions []enrich.Suggestion
}

func (f *fakeSuggester) Suggest(ctx context.Context, txs []ledger.Transaction, categories []ledger.Category) ([]enrich.Suggestion, error) {
	return f.suggestions, nil
}

func testRows() []ledger.Transaction {
	return []ledger.Transaction{
		{ID: "txn_1", Name: "Coffee", Amount: -4.50, Currency: "USD", Date: civil.Date{Year: 2024, Month: time.March, Day: 5}},
		{ID: "txn_2", Name: "Coffee", Amount: -5.00, Currency: "USD", Date: civil.Date{Year: 2024, Month: time.March, Day: 6}},
		{ID: "txn_3", Name: "Rent", Amount: -1200, Currency: "USD", Date: civil.Date{Year: 2024, Month: time.April, Day: 1}, Category: strptr("housing")},
	}
}

// teamScoped wraps a handler func in the TeamID middleware so handlers see a
// resolved team, the way the real router composes them.
func teamScoped(h http.HandlerFunc) http.Handler {
	return middleware.TeamID(h)
}

func doRequest(t *testing.T, handler http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("X-Team-ID", "team_1")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestListTransactions(t *testing.T) {
	store := &fakeStore{rows: testRows()}
	h := NewTransactionsHandler(ledger.NewEngine(store), store, store, &fakeSuggester{}, zerolog.Nop())

	rec := doRequest(t, teamScoped(h.List), http.MethodGet, "/api/transactions?search=coffee&page=0&size=10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result ledger.QueryResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(result.Data) != 2 || result.Meta.Count != 2 {
		t.Errorf("got %d rows, count %d; want 2, 2", len(result.Data), result.Meta.Count)
	}
	// Search is an active filter, so the whole-set amount is aggregated.
	if result.Meta.TotalAmount != -9.50 {
		t.Errorf("TotalAmount = %v, want -9.50", result.Meta.TotalAmount)
	}
}

func TestListTransactionsUnfilteredSkipsTotal(t *testing.T) {
	store := &fakeStore{rows: testRows()}
	h := NewTransactionsHandler(ledger.NewEngine(store), store, store, &fakeSuggester{}, zerolog.Nop())

	rec := doRequest(t, teamScoped(h.List), http.MethodGet, "/api/transactions", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var result ledger.QueryResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Meta.TotalAmount != 0 {
		t.Errorf("unfiltered TotalAmount = %v, want 0", result.Meta.TotalAmount)
	}
}

func TestListTransactionsRejectsBadDate(t *testing.T) {
	store := &fakeStore{}
	h := NewTransactionsHandler(ledger.NewEngine(store), store, store, &fakeSuggester{}, zerolog.Nop())

	rec := doRequest(t, teamScoped(h.List), http.MethodGet, "/api/transactions?from=03-05-2024", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListTransactionsRequiresTeam(t *testing.T) {
	store := &fakeStore{}
	h := NewTransactionsHandler(ledger.NewEngine(store), store, store, &fakeSuggester{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	rec := httptest.NewRecorder()
	teamScoped(h.List).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without X-Team-ID", rec.Code)
	}
}

func TestSimilarTransactions(t *testing.T) {
	store := &fakeStore{rows: testRows()}
	h := NewTransactionsHandler(ledger.NewEngine(store), store, store, &fakeSuggester{}, zerolog.Nop())

	handler := teamScoped(func(w http.ResponseWriter, r *http.Request) {
		h.Similar(w, r, "txn_1")
	})
	rec := doRequest(t, handler, http.MethodGet, "/api/transactions/txn_1/similar", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var result ledger.SimilarResult
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Count != 1 || result.Data[0].ID != "txn_2" {
		t.Errorf("similar = %+v, want just txn_2", result)
	}
}

func TestSimilarUnknownTransaction(t *testing.T) {
	store := &fakeStore{}
	h := NewTransactionsHandler(ledger.NewEngine(store), store, store, &fakeSuggester{}, zerolog.Nop())

	handler := teamScoped(func(w http.ResponseWriter, r *http.Request) {
		h.Similar(w, r, "missing")
	})
	rec := doRequest(t, handler, http.MethodGet, "/api/transactions/missing/similar", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestSuggestCategories(t *testing.T) {
	store := &fakeStore{
		rows:       testRows(),
		categories: []ledger.Category{{Slug: "meals", Name: "Meals"}},
	}
	suggester := &fakeSuggester{suggestions: []enrich.Suggestion{
		{TransactionID: "txn_1", Category: strptr("meals")},
	}}
	h := NewTransactionsHandler(ledger.NewEngine(store), store, store, suggester, zerolog.Nop())

	rec := doRequest(t, teamScoped(h.SuggestCategories), http.MethodPost,
		"/api/transactions/suggest-category", `{"transaction_ids":["txn_1"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Suggestions []enrich.Suggestion `json:"suggestions"`
		Count       int                 `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || *resp.Suggestions[0].Category != "meals" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestSuggestCategoriesUnknownTransaction(t *testing.T) {
	store := &fakeStore{rows: testRows()}
	h := NewTransactionsHandler(ledger.NewEngine(store), store, store, &fakeSuggester{}, zerolog.Nop())

	rec := doRequest(t, teamScoped(h.SuggestCategories), http.MethodPost,
		"/api/transactions/suggest-category", `{"transaction_ids":["missing"]}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

type fakeSigner struct{}

func (fakeSigner) SignedURL(ctx context.Context, objectName string) (string, error) {
	return "https://signed.example.test/" + objectName, nil
}

func TestAttachmentURL(t *testing.T) {
	rows := testRows()
	rows[0].AttachmentID = strptr("receipts/txn_1.pdf")
	store := &fakeStore{rows: rows}
	h := NewAttachmentsHandler(store, fakeSigner{}, zerolog.Nop())

	handler := teamScoped(func(w http.ResponseWriter, r *http.Request) {
		h.GetURL(w, r, "txn_1")
	})
	rec := doRequest(t, handler, http.MethodGet, "/api/transactions/txn_1/attachment", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["url"] != "https://signed.example.test/receipts/txn_1.pdf" {
		t.Errorf("url = %q", resp["url"])
	}
}

func TestAttachmentURLMissingAttachment(t *testing.T) {
	store := &fakeStore{rows: testRows()}
	h := NewAttachmentsHandler(store, fakeSigner{}, zerolog.Nop())

	handler := teamScoped(func(w http.ResponseWriter, r *http.Request) {
		h.GetURL(w, r, "txn_1")
	})
	rec := doRequest(t, handler, http.MethodGet, "/api/transactions/txn_1/attachment", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

// fakeBank is a canned BankClient.
type fakeBank struct {
	accounts []provider.Account
	err      error
}

func (f *fakeBank) HealthCheck(ctx context.Context) bool { return true }

func (f *fakeBank) ListInstitutions(ctx context.Context) ([]provider.Institution, error) {
	return []provider.Institution{{ID: "chase", Name: "Chase"}}, nil
}

func (f *fakeBank) ListAccounts(ctx context.Context, token string) ([]provider.Account, error) {
	return f.accounts, f.err
}

func (f *fakeBank) ListTransactions(ctx context.Context, accountID, token string, opts provider.ListTransactionsOptions) ([]provider.Transaction, error) {
	return nil, f.err
}

func (f *fakeBank) AccountBalance(ctx context.Context, accountID, token string) (provider.Balance, error) {
	return provider.Balance{Amount: 83.03, Currency: provider.DefaultCurrency}, f.err
}

func (f *fakeBank) ConnectionStatus(ctx context.Context, token string) provider.ConnectionStatus {
	return provider.StatusConnected
}

func (f *fakeBank) Disconnect(ctx context.Context, token string) error { return f.err }

type fakePublisher struct {
	published []*jobs.ConnectionSyncJob
}

func (f *fakePublisher) PublishConnectionSync(ctx context.Context, job *jobs.ConnectionSyncJob) error {
	job.JobID = "job_1"
	job.Status = jobs.JobStatusPending
	f.published = append(f.published, job)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func TestListAccountsRequiresToken(t *testing.T) {
	h := NewAccountsHandler(&fakeBank{}, &fakePublisher{}, zerolog.Nop())

	rec := doRequest(t, teamScoped(h.List), http.MethodGet, "/api/accounts", "")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401 without X-Access-Token", rec.Code)
	}
}

func TestListAccounts(t *testing.T) {
	bank := &fakeBank{accounts: []provider.Account{{ID: "acc_1", Name: "Checking"}}}
	h := NewAccountsHandler(bank, &fakePublisher{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set("X-Team-ID", "team_1")
	req.Header.Set("X-Access-Token", "token_abc")
	rec := httptest.NewRecorder()
	teamScoped(h.List).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp struct {
		Accounts []provider.Account `json:"accounts"`
		Count    int                `json:"count"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Count != 1 || resp.Accounts[0].ID != "acc_1" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestListAccountsProviderError(t *testing.T) {
	bank := &fakeBank{err: &provider.Error{Code: "enrollment.disconnected", Message: "relink required"}}
	h := NewAccountsHandler(bank, &fakePublisher{}, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/accounts", nil)
	req.Header.Set("X-Team-ID", "team_1")
	req.Header.Set("X-Access-Token", "token_abc")
	rec := httptest.NewRecorder()
	teamScoped(h.List).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error.Code != "enrollment.disconnected" {
		t.Errorf("error code = %q", resp.Error.Code)
	}
}

func TestEnqueueSync(t *testing.T) {
	pub := &fakePublisher{}
	h := NewAccountsHandler(&fakeBank{}, pub, zerolog.Nop())

	req := httptest.NewRequest(http.MethodPost, "/api/accounts/sync", nil)
	req.Header.Set("X-Team-ID", "team_1")
	req.Header.Set("X-Access-Token", "token_abc")
	rec := httptest.NewRecorder()
	teamScoped(h.EnqueueSync).ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	if len(pub.published) != 1 {
		t.Fatalf("published %d jobs, want 1", len(pub.published))
	}
	if pub.published[0].TeamID != "team_1" || pub.published[0].AccessToken != "token_abc" {
		t.Errorf("job = %+v", pub.published[0])
	}
}
