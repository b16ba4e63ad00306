package jobs

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/nlozovan/bankfeed/internal/provider"
)

// BankClient is the slice of the provider client the sync handler needs.
type BankClient interface {
	ConnectionStatus(ctx context.Context, token string) provider.ConnectionStatus
	ListAccounts(ctx context.Context, token string) ([]provider.Account, error)
}

// ConnectionSyncHandler builds the handler that refreshes one enrollment: it
// probes connection health and logs an account snapshot. A disconnected
// enrollment is a terminal outcome, not a retryable failure.
func ConnectionSyncHandler(bank BankClient, log zerolog.Logger) JobHandler {
	return func(ctx context.Context, job Job) error {
		syncJob, ok := job.(*ConnectionSyncJob)
		if !ok {
			return fmt.Errorf("unexpected job type: %T", job)
		}

		log.Info().
			Str("job_id", syncJob.JobID).
			Str("team_id", syncJob.TeamID).
			Msg("Processing connection sync job")

		if status := bank.ConnectionStatus(ctx, syncJob.AccessToken); status == provider.StatusDisconnected {
			log.Warn().
				Str("job_id", syncJob.JobID).
				Str("team_id", syncJob.TeamID).
				Msg("Enrollment disconnected, relink required")
			return nil
		}

		accounts, err := bank.ListAccounts(ctx, syncJob.AccessToken)
		if err != nil {
			log.Error().
				Err(err).
				Str("job_id", syncJob.JobID).
				Msg("Account snapshot failed")
			return err
		}

		for _, acc := range accounts {
			log.Info().
				Str("job_id", syncJob.JobID).
				Str("account_id", acc.ID).
				Str("account_name", acc.Name).
				Float64("balance", acc.Balance.Amount).
				Str("currency", acc.Balance.Currency).
				Msg("Account synced")
		}

		log.Info().
			Str("job_id", syncJob.JobID).
			Int("account_count", len(accounts)).
			Msg("Connection sync completed")

		return nil
	}
}
