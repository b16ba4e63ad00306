package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/nlozovan/bankfeed/internal/provider"
)

type fakeBank struct {
	status    provider.ConnectionStatus
	accounts  []provider.Account
	err       error
	listCalls int
}

func (f *fakeBank) ConnectionStatus(ctx context.Context, token string) provider.ConnectionStatus {
	return f.status
}

func (f *fakeBank) ListAccounts(ctx context.Context, token string) ([]provider.Account, error) {
	f.listCalls++
	return f.accounts, f.err
}

func TestConnectionSyncHandlerSnapshotsAccounts(t *testing.T) {
	bank := &fakeBank{
		status: provider.StatusConnected,
		accounts: []provider.Account{
			{ID: "acc_1", Name: "Checking", Balance: provider.Balance{Amount: 120.50, Currency: "USD"}},
		},
	}
	handler := ConnectionSyncHandler(bank, zerolog.Nop())

	job := &ConnectionSyncJob{JobID: "j1", TeamID: "team_1", AccessToken: "token_abc"}
	if err := handler(context.Background(), job); err != nil {
		t.Fatalf("handler: %v", err)
	}
	if bank.listCalls != 1 {
		t.Errorf("ListAccounts called %d times, want 1", bank.listCalls)
	}
}

func TestConnectionSyncHandlerDisconnectedIsTerminal(t *testing.T) {
	// A broken enrollment needs a relink, not a retry: no error, no snapshot.
	bank := &fakeBank{status: provider.StatusDisconnected}
	handler := ConnectionSyncHandler(bank, zerolog.Nop())

	job := &ConnectionSyncJob{JobID: "j1", TeamID: "team_1", AccessToken: "token_abc"}
	if err := handler(context.Background(), job); err != nil {
		t.Fatalf("handler should not error on disconnected enrollment: %v", err)
	}
	if bank.listCalls != 0 {
		t.Errorf("ListAccounts called %d times, want 0", bank.listCalls)
	}
}

func TestConnectionSyncHandlerPropagatesSnapshotError(t *testing.T) {
	bank := &fakeBank{status: provider.StatusConnected, err: errors.New("provider unavailable")}
	handler := ConnectionSyncHandler(bank, zerolog.Nop())

	job := &ConnectionSyncJob{JobID: "j1", TeamID: "team_1", AccessToken: "token_abc"}
	if err := handler(context.Background(), job); err == nil {
		t.Fatal("handler should surface the snapshot error for retry")
	}
}
