package provider

// DefaultCurrency is used whenever the provider omits a currency code.
// The transactions endpoint never reports one per balance.
const DefaultCurrency = "USD"

// ConnectionStatus describes the health of a bank enrollment.
type ConnectionStatus string

const (
	// StatusConnected indicates the enrollment is usable (or its health is unknown).
	StatusConnected ConnectionStatus = "connected"
	// StatusDisconnected indicates the provider reported a broken enrollment.
	StatusDisconnected ConnectionStatus = "disconnected"
)

// Institution is a bank supported by the provider.
type Institution struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Balance is a currency-qualified amount derived from recent transactions.
type Balance struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Account is the normalized view of a provider account, with its
// derived balance merged in.
type Account struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Currency    string      `json:"currency"`
	Institution Institution `json:"institution"`
	Balance     Balance     `json:"balance"`
}

// Transaction is the normalized view of a provider transaction.
// RunningBalance is the provider-reported account balance immediately
// after this transaction, when available.
type Transaction struct {
	ID             string   `json:"id"`
	AccountID      string   `json:"account_id"`
	Amount         float64  `json:"amount"`
	Currency       string   `json:"currency"`
	Date           string   `json:"date"`
	Description    string   `json:"description"`
	Status         string   `json:"status"`
	RunningBalance *float64 `json:"running_balance,omitempty"`
	Category       *string  `json:"category,omitempty"`
}

// transactionStatusPending marks entries the provider has not settled yet.
// They are suppressed from every list we return; the ledger's upsert path
// cannot reconcile them safely.
const transactionStatusPending = "pending"

// wire shapes, as returned by the provider

type apiAccount struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Currency    string         `json:"currency"`
	Institution apiInstitution `json:"institution"`
}

type apiInstitution struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type apiTransaction struct {
	ID             string  `json:"id"`
	AccountID      string  `json:"account_id"`
	Amount         string  `json:"amount"`
	Date           string  `json:"date"`
	Description    string  `json:"description"`
	Status         string  `json:"status"`
	RunningBalance *string `json:"running_balance"`
	Details        struct {
		Category *string `json:"category"`
	} `json:"details"`
}
