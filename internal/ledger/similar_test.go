package ledger

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSimilar(t *testing.T) {
	cat := "office-supplies"
	store := &fakeStore{rows: []Transaction{
		{ID: "tx_a", Name: "Coffee", Amount: -4.5},
		{ID: "tx_b", Name: "Coffee", Amount: -5.0},
		{ID: "tx_c", Name: "Coffee", Amount: -6.0},
		{ID: "tx_d", Name: "Coffee", Amount: -7.0, Category: &cat},
		{ID: "tx_e", Name: "Tea", Amount: -3.0},
	}}
	engine := NewEngine(store)

	res, err := engine.Similar(context.Background(), "team_1", "tx_a")
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if res.Count != 2 {
		t.Fatalf("Count = %d, want 2", res.Count)
	}
	for _, m := range res.Data {
		if m.ID == "tx_a" {
			t.Error("reference transaction included in matches")
		}
		if m.ID == "tx_d" {
			t.Error("already-categorized transaction included in matches")
		}
		if m.ID == "tx_e" {
			t.Error("different-name transaction included in matches")
		}
	}
}

func TestSimilarUnknownTransaction(t *testing.T) {
	engine := NewEngine(&fakeStore{})

	_, err := engine.Similar(context.Background(), "team_1", "tx_missing")
	if !errors.Is(err, ErrTransactionNotFound) {
		t.Fatalf("err = %v, want ErrTransactionNotFound", err)
	}
}

func TestSimilarNoMatches(t *testing.T) {
	store := &fakeStore{rows: []Transaction{
		{ID: "tx_a", Name: "Rent", Amount: -900, Date: date(2024, time.July, 1)},
	}}
	engine := NewEngine(store)

	res, err := engine.Similar(context.Background(), "team_1", "tx_a")
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	if res.Count != 0 || len(res.Data) != 0 {
		t.Errorf("got %d matches, want 0", res.Count)
	}
}
