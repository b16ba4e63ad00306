package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"cloud.google.com/go/civil"
	"github.com/rs/zerolog"

	"github.com/nlozovan/bankfeed/internal/config"
	infraBQ "github.com/nlozovan/bankfeed/internal/infra/bigquery"
	"github.com/nlozovan/bankfeed/internal/ledger"
	"github.com/nlozovan/bankfeed/internal/logger"
	"github.com/nlozovan/bankfeed/internal/provider"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "accounts":
		runAccounts(log)
	case "transactions":
		runTransactions(log)
	case "balance":
		runBalance(log)
	case "institutions":
		runInstitutions(log)
	case "status":
		runStatus(log)
	case "disconnect":
		runDisconnect(log)
	case "query":
		runQuery(log)
	case "similar":
		runSimilar(log)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Bankfeed CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nProvider commands:")
	fmt.Println("  accounts      List accounts for an enrollment")
	fmt.Println("  transactions  List transactions for an account")
	fmt.Println("  balance       Show the derived balance of an account")
	fmt.Println("  institutions  List supported institutions")
	fmt.Println("  status        Probe enrollment connection health")
	fmt.Println("  disconnect    Revoke an enrollment")
	fmt.Println("\nLedger commands:")
	fmt.Println("  query         Query the transaction ledger")
	fmt.Println("  similar       List same-name uncategorized transactions")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

// bankClient builds a provider client from the ambient config.
func bankClient(log zerolog.Logger) *provider.Client {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	return provider.New(cfg.Provider.BaseURL, nil, log)
}

// ledgerStore builds the BigQuery-backed ledger store from the ambient config.
func ledgerStore(ctx context.Context, log zerolog.Logger) *infraBQ.Store {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	store, err := infraBQ.NewStore(ctx, cfg.BigQuery.ProjectID, cfg.BigQuery.DatasetID)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create ledger store")
	}
	return store
}

func runAccounts(log zerolog.Logger) {
	fs := flag.NewFlagSet("accounts", flag.ExitOnError)
	token := fs.String("token", "", "Enrollment access token")
	fs.Parse(os.Args[2:])

	if *token == "" {
		log.Fatal().Msg("Error: --token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	accounts, err := bankClient(log).ListAccounts(ctx, *token)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list accounts")
	}

	fmt.Printf("\n=== Accounts (%d) ===\n", len(accounts))
	for _, acc := range accounts {
		fmt.Printf("\n%s\n", acc.Name)
		fmt.Printf("   ID:          %s\n", acc.ID)
		fmt.Printf("   Institution: %s\n", acc.Institution.Name)
		fmt.Printf("   Balance:     %.2f %s\n", acc.Balance.Amount, acc.Balance.Currency)
	}
	fmt.Println()
}

func runTransactions(log zerolog.Logger) {
	fs := flag.NewFlagSet("transactions", flag.ExitOnError)
	token := fs.String("token", "", "Enrollment access token")
	accountID := fs.String("account", "", "Account ID")
	latest := fs.Bool("latest", false, "Only the most recent transactions")
	count := fs.Int("count", 0, "Number of transactions to fetch")
	fs.Parse(os.Args[2:])

	if *token == "" || *accountID == "" {
		log.Fatal().Msg("Usage: cli transactions -token TOKEN -account ID [-latest] [-count N]")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	transactions, err := bankClient(log).ListTransactions(ctx, *accountID, *token, provider.ListTransactionsOptions{
		Latest: *latest,
		Count:  *count,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list transactions")
	}

	fmt.Printf("\n=== Transactions (%d) ===\n", len(transactions))
	for i, tx := range transactions {
		fmt.Printf("\n%d. %s\n", i+1, tx.Description)
		fmt.Printf("   Date:   %s\n", tx.Date)
		fmt.Printf("   Amount: %.2f %s\n", tx.Amount, tx.Currency)
		if tx.Category != nil {
			fmt.Printf("   Category: %s\n", *tx.Category)
		}
		if tx.RunningBalance != nil {
			fmt.Printf("   Balance:  %.2f\n", *tx.RunningBalance)
		}
	}
	fmt.Println()
}

func runBalance(log zerolog.Logger) {
	fs := flag.NewFlagSet("balance", flag.ExitOnError)
	token := fs.String("token", "", "Enrollment access token")
	accountID := fs.String("account", "", "Account ID")
	fs.Parse(os.Args[2:])

	if *token == "" || *accountID == "" {
		log.Fatal().Msg("Usage: cli balance -token TOKEN -account ID")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	balance, err := bankClient(log).AccountBalance(ctx, *accountID, *token)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to fetch balance")
	}

	fmt.Printf("%.2f %s\n", balance.Amount, balance.Currency)
}

func runInstitutions(log zerolog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	institutions, err := bankClient(log).ListInstitutions(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to list institutions")
	}

	fmt.Printf("\n=== Institutions (%d) ===\n", len(institutions))
	for _, inst := range institutions {
		fmt.Printf("  %-20s %s\n", inst.ID, inst.Name)
	}
	fmt.Println()
}

func runStatus(log zerolog.Logger) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	token := fs.String("token", "", "Enrollment access token")
	fs.Parse(os.Args[2:])

	if *token == "" {
		log.Fatal().Msg("Error: --token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	fmt.Println(bankClient(log).ConnectionStatus(ctx, *token))
}

func runDisconnect(log zerolog.Logger) {
	fs := flag.NewFlagSet("disconnect", flag.ExitOnError)
	token := fs.String("token", "", "Enrollment access token")
	fs.Parse(os.Args[2:])

	if *token == "" {
		log.Fatal().Msg("Error: --token is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if err := bankClient(log).Disconnect(ctx, *token); err != nil {
		log.Fatal().Err(err).Msg("Failed to disconnect enrollment")
	}

	fmt.Println("Enrollment disconnected.")
}

func runQuery(log zerolog.Logger) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	teamID := fs.String("team", "", "Team ID (required)")
	search := fs.String("search", "", "Full-text search over descriptions")
	from := fs.String("from", "", "Start date YYYY-MM-DD")
	to := fs.String("to", "", "End date YYYY-MM-DD")
	fulfillment := fs.String("fulfillment", "", "fulfilled or unfulfilled")
	attachments := fs.String("attachments", "", "with or without")
	categories := fs.String("categories", "", "with or without")
	sortCol := fs.String("sort", "", "Sort column (date, amount, name, category)")
	direction := fs.String("direction", "asc", "Sort direction (asc or desc)")
	page := fs.Int("page", 0, "Page number")
	size := fs.Int("size", 0, "Page size")
	fs.Parse(os.Args[2:])

	if *teamID == "" {
		log.Fatal().Msg("Error: --team is required")
	}

	var filter ledger.Filter
	filter.Search = *search
	if *from != "" {
		d, err := civil.ParseDate(*from)
		if err != nil {
			log.Fatal().Err(err).Msg("Error: invalid from date, expected YYYY-MM-DD")
		}
		filter.DateFrom = &d
	}
	if *to != "" {
		d, err := civil.ParseDate(*to)
		if err != nil {
			log.Fatal().Err(err).Msg("Error: invalid to date, expected YYYY-MM-DD")
		}
		filter.DateTo = &d
	}
	switch *fulfillment {
	case "fulfilled":
		filter.Fulfillment = ledger.Fulfilled
	case "unfulfilled":
		filter.Fulfillment = ledger.Unfulfilled
	}
	switch *attachments {
	case "with":
		filter.Attachments = ledger.PresenceInclude
	case "without":
		filter.Attachments = ledger.PresenceExclude
	}
	switch *categories {
	case "with":
		filter.Categories = ledger.PresenceInclude
	case "without":
		filter.Categories = ledger.PresenceExclude
	}

	var sort *ledger.Sort
	if *sortCol != "" {
		sort = &ledger.Sort{Column: *sortCol, Direction: *direction}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store := ledgerStore(ctx, log)
	defer store.Close()

	result, err := ledger.NewEngine(store).Query(ctx, *teamID, filter, sort, ledger.Page{
		Number: *page,
		Size:   *size,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Query failed")
	}

	fmt.Printf("\n=== Transactions (%d of %d) ===\n", len(result.Data), result.Meta.Count)
	for i, tx := range result.Data {
		fmt.Printf("\n%d. %s\n", i+1, tx.Name)
		fmt.Printf("   Date:   %s\n", tx.Date)
		fmt.Printf("   Amount: %.2f %s\n", tx.Amount, tx.Currency)
		if tx.Category != nil {
			fmt.Printf("   Category: %s\n", *tx.Category)
		}
	}
	if result.Meta.TotalAmount != 0 {
		fmt.Printf("\nTotal amount: %.2f %s\n", result.Meta.TotalAmount, result.Meta.Currency)
	}
	fmt.Println()
}

func runSimilar(log zerolog.Logger) {
	fs := flag.NewFlagSet("similar", flag.ExitOnError)
	teamID := fs.String("team", "", "Team ID (required)")
	transactionID := fs.String("id", "", "Transaction ID (required)")
	fs.Parse(os.Args[2:])

	if *teamID == "" || *transactionID == "" {
		log.Fatal().Msg("Usage: cli similar -team TEAM -id TRANSACTION")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store := ledgerStore(ctx, log)
	defer store.Close()

	result, err := ledger.NewEngine(store).Similar(ctx, *teamID, *transactionID)
	if err != nil {
		log.Fatal().Err(err).Msg("Similar lookup failed")
	}

	fmt.Printf("\n=== Similar transactions (%d) ===\n", result.Count)
	for _, tx := range result.Data {
		fmt.Printf("  %-40s %.2f\n", tx.ID, tx.Amount)
	}
	fmt.Println()
}
