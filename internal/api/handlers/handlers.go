package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/nlozovan/bankfeed/internal/api/middleware"
	"github.com/nlozovan/bankfeed/internal/enrich"
	"github.com/nlozovan/bankfeed/internal/jobs"
	"github.com/nlozovan/bankfeed/internal/ledger"
	"github.com/nlozovan/bankfeed/internal/provider"
)

// TransactionsHandler handles ledger query endpoints.
type TransactionsHandler struct {
	engine     *ledger.Engine
	store      ledger.TransactionStore
	categories ledger.CategoryStore
	suggester  enrich.Suggester
	log        zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(engine *ledger.Engine, store ledger.TransactionStore, categories ledger.CategoryStore, suggester enrich.Suggester, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{
		engine:     engine,
		store:      store,
		categories: categories,
		suggester:  suggester,
		log:        log,
	}
}

// parseFilter builds a ledger filter from query parameters. Unknown values
// for the tri-state filters are treated as "any" rather than rejected.
func parseFilter(query url.Values) (ledger.Filter, error) {
	var filter ledger.Filter

	filter.Search = query.Get("search")

	if from := query.Get("from"); from != "" {
		d, err := civil.ParseDate(from)
		if err != nil {
			return filter, errors.New("invalid from date, expected YYYY-MM-DD")
		}
		filter.DateFrom = &d
	}
	if to := query.Get("to"); to != "" {
		d, err := civil.ParseDate(to)
		if err != nil {
			return filter, errors.New("invalid to date, expected YYYY-MM-DD")
		}
		filter.DateTo = &d
	}

	switch query.Get("fulfillment") {
	case "fulfilled":
		filter.Fulfillment = ledger.Fulfilled
	case "unfulfilled":
		filter.Fulfillment = ledger.Unfulfilled
	}

	switch query.Get("attachments") {
	case "with":
		filter.Attachments = ledger.PresenceInclude
	case "without":
		filter.Attachments = ledger.PresenceExclude
	}

	switch query.Get("categories") {
	case "with":
		filter.Categories = ledger.PresenceInclude
	case "without":
		filter.Categories = ledger.PresenceExclude
	}

	return filter, nil
}

// parsePage reads page/size, tolerating absent or malformed values as zero.
func parsePage(query url.Values) ledger.Page {
	var page ledger.Page
	if n, err := strconv.Atoi(query.Get("page")); err == nil {
		page.Number = n
	}
	if s, err := strconv.Atoi(query.Get("size")); err == nil {
		page.Size = s
	}
	return page
}

// List handles GET /api/transactions
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID := middleware.TeamIDFromContext(ctx)

	query := r.URL.Query()
	filter, err := parseFilter(query)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var sort *ledger.Sort
	if col := query.Get("sort"); col != "" {
		sort = &ledger.Sort{
			Column:    col,
			Direction: query.Get("direction"),
		}
	}

	result, err := h.engine.Query(ctx, teamID, filter, sort, parsePage(query))
	if err != nil {
		h.log.Error().Err(err).Str("team_id", teamID).Msg("Failed to query transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to query transactions")
		return
	}

	if result.Data == nil {
		result.Data = []ledger.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// Similar handles GET /api/transactions/{id}/similar
func (h *TransactionsHandler) Similar(w http.ResponseWriter, r *http.Request, transactionID string) {
	ctx := r.Context()
	teamID := middleware.TeamIDFromContext(ctx)

	result, err := h.engine.Similar(ctx, teamID, transactionID)
	if err != nil {
		if errors.Is(err, ledger.ErrTransactionNotFound) {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
			return
		}
		h.log.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to find similar transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to find similar transactions")
		return
	}

	if result.Data == nil {
		result.Data = []ledger.SimilarTransaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, result)
}

// SuggestCategories handles POST /api/transactions/suggest-category.
// Suggestions are advisory; nothing is written back to the ledger.
func (h *TransactionsHandler) SuggestCategories(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID := middleware.TeamIDFromContext(ctx)

	var req struct {
		TransactionIDs []string `json:"transaction_ids"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.TransactionIDs) == 0 {
		middleware.WriteError(w, http.StatusBadRequest, "transaction_ids is required")
		return
	}

	var txs []ledger.Transaction
	for _, id := range req.TransactionIDs {
		tx, err := h.store.GetByID(ctx, teamID, id)
		if err != nil {
			h.log.Error().Err(err).Str("transaction_id", id).Msg("Failed to load transaction")
			middleware.WriteError(w, http.StatusInternalServerError, "Failed to load transactions")
			return
		}
		if tx == nil {
			middleware.WriteError(w, http.StatusNotFound, "Transaction not found: "+id)
			return
		}
		txs = append(txs, *tx)
	}

	categories, err := h.categories.ListCategories(ctx, teamID)
	if err != nil {
		h.log.Error().Err(err).Str("team_id", teamID).Msg("Failed to list categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	suggestions, err := h.suggester.Suggest(ctx, txs, categories)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to suggest categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to suggest categories")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// CategoriesHandler handles category taxonomy endpoints.
type CategoriesHandler struct {
	store ledger.CategoryStore
	log   zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(store ledger.CategoryStore, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{
		store: store,
		log:   log,
	}
}

// List handles GET /api/categories
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID := middleware.TeamIDFromContext(ctx)

	categories, err := h.store.ListCategories(ctx, teamID)
	if err != nil {
		h.log.Error().Err(err).Str("team_id", teamID).Msg("Failed to list categories")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// URLSigner issues short-lived viewing links for attachment objects.
type URLSigner interface {
	SignedURL(ctx context.Context, objectName string) (string, error)
}

// AttachmentsHandler resolves transaction attachments to signed URLs.
type AttachmentsHandler struct {
	store  ledger.TransactionStore
	signer URLSigner
	log    zerolog.Logger
}

// NewAttachmentsHandler creates a new attachments handler.
func NewAttachmentsHandler(store ledger.TransactionStore, signer URLSigner, log zerolog.Logger) *AttachmentsHandler {
	return &AttachmentsHandler{
		store:  store,
		signer: signer,
		log:    log,
	}
}

// GetURL handles GET /api/transactions/{id}/attachment
func (h *AttachmentsHandler) GetURL(w http.ResponseWriter, r *http.Request, transactionID string) {
	ctx := r.Context()
	teamID := middleware.TeamIDFromContext(ctx)

	tx, err := h.store.GetByID(ctx, teamID, transactionID)
	if err != nil {
		h.log.Error().Err(err).Str("transaction_id", transactionID).Msg("Failed to load transaction")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to load transaction")
		return
	}
	if tx == nil {
		middleware.WriteError(w, http.StatusNotFound, "Transaction not found")
		return
	}
	if tx.AttachmentID == nil {
		middleware.WriteError(w, http.StatusNotFound, "Transaction has no attachment")
		return
	}

	signedURL, err := h.signer.SignedURL(ctx, *tx.AttachmentID)
	if err != nil {
		h.log.Error().Err(err).Str("attachment_id", *tx.AttachmentID).Msg("Failed to sign attachment URL")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to sign attachment URL")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"url": signedURL,
	})
}

// BankClient is the provider surface the accounts handler depends on.
type BankClient interface {
	HealthCheck(ctx context.Context) bool
	ListInstitutions(ctx context.Context) ([]provider.Institution, error)
	ListAccounts(ctx context.Context, token string) ([]provider.Account, error)
	ListTransactions(ctx context.Context, accountID, token string, opts provider.ListTransactionsOptions) ([]provider.Transaction, error)
	AccountBalance(ctx context.Context, accountID, token string) (provider.Balance, error)
	ConnectionStatus(ctx context.Context, token string) provider.ConnectionStatus
	Disconnect(ctx context.Context, token string) error
}

// AccountsHandler proxies provider account operations. The enrollment access
// token arrives per-request in the X-Access-Token header; the server never
// stores it.
type AccountsHandler struct {
	client    BankClient
	publisher jobs.Publisher
	log       zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(client BankClient, publisher jobs.Publisher, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{
		client:    client,
		publisher: publisher,
		log:       log,
	}
}

// accessToken extracts the provider access token from the request.
func accessToken(r *http.Request) string {
	return r.Header.Get("X-Access-Token")
}

// writeProviderError maps a provider failure onto an HTTP response. Typed
// provider errors surface their code and message; anything else is a 502.
func writeProviderError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var provErr *provider.Error
	if errors.As(err, &provErr) {
		middleware.WriteJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error": map[string]string{
				"code":    provErr.Code,
				"message": provErr.Message,
			},
		})
		return
	}
	log.Error().Err(err).Msg("Provider request failed")
	middleware.WriteError(w, http.StatusBadGateway, "Provider request failed")
}

// List handles GET /api/accounts
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	token := accessToken(r)
	if token == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "X-Access-Token header is required")
		return
	}

	accounts, err := h.client.ListAccounts(r.Context(), token)
	if err != nil {
		writeProviderError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// Transactions handles GET /api/accounts/{id}/transactions
func (h *AccountsHandler) Transactions(w http.ResponseWriter, r *http.Request, accountID string) {
	token := accessToken(r)
	if token == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "X-Access-Token header is required")
		return
	}

	query := r.URL.Query()
	opts := provider.ListTransactionsOptions{
		Latest: query.Get("latest") == "true",
	}
	if count, err := strconv.Atoi(query.Get("count")); err == nil {
		opts.Count = count
	}

	transactions, err := h.client.ListTransactions(r.Context(), accountID, token, opts)
	if err != nil {
		writeProviderError(w, h.log, err)
		return
	}

	if transactions == nil {
		transactions = []provider.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// Balance handles GET /api/accounts/{id}/balance
func (h *AccountsHandler) Balance(w http.ResponseWriter, r *http.Request, accountID string) {
	token := accessToken(r)
	if token == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "X-Access-Token header is required")
		return
	}

	balance, err := h.client.AccountBalance(r.Context(), accountID, token)
	if err != nil {
		writeProviderError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, balance)
}

// Status handles GET /api/accounts/status
func (h *AccountsHandler) Status(w http.ResponseWriter, r *http.Request) {
	token := accessToken(r)
	if token == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "X-Access-Token header is required")
		return
	}

	status := h.client.ConnectionStatus(r.Context(), token)
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": string(status),
	})
}

// Disconnect handles DELETE /api/accounts
func (h *AccountsHandler) Disconnect(w http.ResponseWriter, r *http.Request) {
	token := accessToken(r)
	if token == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "X-Access-Token header is required")
		return
	}

	if err := h.client.Disconnect(r.Context(), token); err != nil {
		writeProviderError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "disconnected",
	})
}

// Institutions handles GET /api/institutions
func (h *AccountsHandler) Institutions(w http.ResponseWriter, r *http.Request) {
	institutions, err := h.client.ListInstitutions(r.Context())
	if err != nil {
		writeProviderError(w, h.log, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"institutions": institutions,
		"count":        len(institutions),
	})
}

// EnqueueSync handles POST /api/accounts/sync. The sync itself runs on the
// worker; the response carries the job id for polling.
func (h *AccountsHandler) EnqueueSync(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	teamID := middleware.TeamIDFromContext(ctx)

	token := accessToken(r)
	if token == "" {
		middleware.WriteError(w, http.StatusUnauthorized, "X-Access-Token header is required")
		return
	}

	job := &jobs.ConnectionSyncJob{
		TeamID:      teamID,
		AccessToken: token,
	}
	if err := h.publisher.PublishConnectionSync(ctx, job); err != nil {
		h.log.Error().Err(err).Msg("Failed to enqueue sync job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue sync job")
		return
	}

	h.log.Info().Str("job_id", job.JobID).Str("team_id", teamID).Msg("Sync job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"status": string(job.Status),
	})
}

// ProviderHealth handles GET /api/provider/health
func (h *AccountsHandler) ProviderHealth(w http.ResponseWriter, r *http.Request) {
	if !h.client.HealthCheck(r.Context()) {
		middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "unreachable",
		})
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	ctx := r.Context()

	job, err := h.store.GetJob(ctx, jobID)
	if err != nil {
		h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	query := r.URL.Query()
	filter := jobs.JobFilter{
		TeamID: middleware.TeamIDFromContext(ctx),
		Status: jobs.JobStatus(query.Get("status")),
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(ctx, filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}
