package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultBaseURL is the provider's production endpoint.
const DefaultBaseURL = "https://api.teller.io"

// maxLatestCount caps the page size when callers ask for the latest
// transactions.
const maxLatestCount = 100

// Client talks to the external banking provider. It is read-only after
// construction and safe for concurrent use. Retries, timeouts and
// cancellation are the caller's (or transport's) responsibility.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// New creates a provider client against the given base URL. An empty
// baseURL selects the production endpoint, a nil httpClient selects
// http.DefaultClient.
func New(baseURL string, httpClient *http.Client, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		log:        log,
	}
}

// fetch is the single chokepoint for provider calls: it builds the URL,
// attaches Basic auth (access token as username, empty password), decodes
// the JSON body, classifies it, and raises a typed *Error when the body is
// a structured provider error. Every operation routes through it.
func (c *Client) fetch(ctx context.Context, method, path, token string, params url.Values, out interface{}) error {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return fmt.Errorf("provider fetch: build request: %w", err)
	}
	if token != "" {
		req.SetBasicAuth(token, "")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("provider fetch: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("provider fetch: read body: %w", err)
	}

	if info := Classify(body); info != nil {
		return &Error{Code: info.Code, Message: info.Message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("provider fetch: decode %s %s: %w", method, path, err)
	}
	return nil
}

// addParam appends a query parameter only when the value is truthy. The
// provider rejects empty-valued parameters, so falsy values are omitted
// rather than sent blank.
func addParam(params url.Values, key string, value int) {
	if value != 0 {
		params.Set(key, strconv.Itoa(value))
	}
}

// HealthCheck probes the provider's health endpoint. It never fails: any
// transport-level problem reports false.
func (c *Client) HealthCheck(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListInstitutions returns the institutions the provider supports. The
// endpoint is unauthenticated.
func (c *Client) ListInstitutions(ctx context.Context) ([]Institution, error) {
	var raw []apiInstitution
	if err := c.fetch(ctx, http.MethodGet, "/institutions", "", nil, &raw); err != nil {
		return nil, err
	}
	out := make([]Institution, 0, len(raw))
	for _, inst := range raw {
		out = append(out, Institution{ID: inst.ID, Name: inst.Name})
	}
	return out, nil
}

// ListAccounts fetches the enrollment's accounts and merges in a derived
// balance for each. The provider's list endpoint omits balances, so one
// extra round trip per account is the accepted cost. Balance fetches run
// concurrently; if any of them fails the whole call fails — there is no
// partial account list.
func (c *Client) ListAccounts(ctx context.Context, token string) ([]Account, error) {
	var raw []apiAccount
	if err := c.fetch(ctx, http.MethodGet, "/accounts", token, nil, &raw); err != nil {
		return nil, err
	}

	accounts := make([]Account, len(raw))
	g, ctx := errgroup.WithContext(ctx)
	for i, acc := range raw {
		i, acc := i, acc
		g.Go(func() error {
			balance, err := c.AccountBalance(ctx, acc.ID, token)
			if err != nil {
				return fmt.Errorf("ListAccounts: balance for %s: %w", acc.ID, err)
			}
			accounts[i] = Account{
				ID:       acc.ID,
				Name:     acc.Name,
				Currency: acc.Currency,
				Institution: Institution{
					ID:   acc.Institution.ID,
					Name: acc.Institution.Name,
				},
				Balance: balance,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return accounts, nil
}

// ListTransactionsOptions bounds a transaction page. When Latest is set the
// count is capped at 100; otherwise Count is passed through as given.
type ListTransactionsOptions struct {
	Latest bool
	Count  int
}

// ListTransactions fetches a bounded page of transactions for an account.
// Pending entries are suppressed before returning; the ledger cannot
// reconcile them yet, and the exclusion is deliberate rather than a
// transient filter.
func (c *Client) ListTransactions(ctx context.Context, accountID, token string, opts ListTransactionsOptions) ([]Transaction, error) {
	count := opts.Count
	if opts.Latest {
		if count == 0 || count > maxLatestCount {
			count = maxLatestCount
		}
	}

	raw, err := c.fetchTransactions(ctx, accountID, token, count)
	if err != nil {
		return nil, err
	}

	out := make([]Transaction, 0, len(raw))
	for _, tx := range raw {
		if tx.Status == transactionStatusPending {
			continue
		}
		t := Transaction{
			ID:          tx.ID,
			AccountID:   tx.AccountID,
			Amount:      parseAmount(tx.Amount),
			Currency:    DefaultCurrency,
			Date:        tx.Date,
			Description: tx.Description,
			Status:      tx.Status,
			Category:    tx.Details.Category,
		}
		if tx.RunningBalance != nil {
			rb := parseAmount(*tx.RunningBalance)
			t.RunningBalance = &rb
		}
		out = append(out, t)
	}
	return out, nil
}

// AccountBalance derives the account's current balance from its most recent
// transactions (see resolveBalance). The provider has no balance endpoint
// for this call, and reports no per-balance currency.
func (c *Client) AccountBalance(ctx context.Context, accountID, token string) (Balance, error) {
	raw, err := c.fetchTransactions(ctx, accountID, token, balanceWindow)
	if err != nil {
		return Balance{}, err
	}
	return resolveBalance(raw), nil
}

func (c *Client) fetchTransactions(ctx context.Context, accountID, token string, count int) ([]apiTransaction, error) {
	params := url.Values{}
	addParam(params, "count", count)

	var raw []apiTransaction
	path := "/accounts/" + url.PathEscape(accountID) + "/transactions"
	if err := c.fetch(ctx, http.MethodGet, path, token, params, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ConnectionStatus derives enrollment health from an account-list probe.
// The provider exposes no reliable health endpoint, so this is deliberately
// conservative: only a classified error in the enrollment-failure namespace
// reports disconnected. Transport failures, unclassifiable bodies and every
// other error code report connected, accepting false negatives over
// prompting users to re-authenticate needlessly. All branches are terminal.
func (c *Client) ConnectionStatus(ctx context.Context, token string) ConnectionStatus {
	err := c.fetch(ctx, http.MethodGet, "/accounts", token, nil, nil)
	if err == nil {
		return StatusConnected
	}

	var perr *Error
	if errors.As(err, &perr) && perr.IsEnrollmentFailure() {
		return StatusDisconnected
	}

	c.log.Debug().Err(err).Msg("connection probe inconclusive, assuming connected")
	return StatusConnected
}

// Disconnect revokes the enrollment's access. The response body is not
// inspected beyond transport-level success.
func (c *Client) Disconnect(ctx context.Context, token string) error {
	if err := c.fetch(ctx, http.MethodDelete, "/accounts", token, nil, nil); err != nil {
		return fmt.Errorf("Disconnect: %w", err)
	}
	return nil
}
