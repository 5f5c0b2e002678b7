package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGetOrCreateUserDefaults(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	user, err := env.ledger.GetOrCreateUser(ctx, "0xabc")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := user.Balance.StringFixed(6); got != "1000.000000" {
		t.Fatalf("starting balance = %s, want 1000.000000", got)
	}
	if user.Reputation != 100 {
		t.Fatalf("reputation = %d, want 100", user.Reputation)
	}

	again, err := env.ledger.GetOrCreateUser(ctx, "0xabc")
	if err != nil {
		t.Fatalf("second lookup: %v", err)
	}
	if again.ID != user.ID {
		t.Fatalf("second lookup created a new user: %d != %d", again.ID, user.ID)
	}
}

func TestGetOrCreateUserRequiresAddress(t *testing.T) {
	env := newTestEnv()
	if _, err := env.ledger.GetOrCreateUser(context.Background(), ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFaucetDefaultAndCustomAmount(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	balance, err := env.ledger.Faucet(ctx, "0xabc", nil)
	if err != nil {
		t.Fatalf("faucet: %v", err)
	}
	// First call creates the user with the starting balance, then credits the
	// default faucet amount on top.
	if got := balance.StringFixed(6); got != "2000.000000" {
		t.Fatalf("balance after default faucet = %s, want 2000.000000", got)
	}

	custom := decimal.RequireFromString("25.5")
	balance, err = env.ledger.Faucet(ctx, "0xabc", &custom)
	if err != nil {
		t.Fatalf("faucet custom: %v", err)
	}
	if got := balance.StringFixed(6); got != "2025.500000" {
		t.Fatalf("balance after custom faucet = %s, want 2025.500000", got)
	}
	if !env.events.has("faucet-funded") {
		t.Fatalf("faucet-funded event not published")
	}
}

func TestFaucetRejectsNegativeAmount(t *testing.T) {
	env := newTestEnv()
	negative := decimal.RequireFromString("-5")
	if _, err := env.ledger.Faucet(context.Background(), "0xabc", &negative); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestWalletSnapshotDecodesHoldings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	if _, err := env.ledger.GetOrCreateUser(ctx, "0xabc"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := env.repo.UpdateUserHoldingsTx(ctx, nil, "0xabc", decimal.NewFromInt(500), []byte(`{"LINERA":"12.5"}`)); err != nil {
		t.Fatalf("set holdings: %v", err)
	}

	snap, err := env.ledger.Wallet(ctx, "0xabc")
	if err != nil {
		t.Fatalf("wallet: %v", err)
	}
	if got := snap.Balance.StringFixed(6); got != "500.000000" {
		t.Fatalf("balance = %s, want 500.000000", got)
	}
	if !snap.Holdings["LINERA"].Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("holdings = %v, want LINERA 12.5", snap.Holdings)
	}
}

func TestDebitRequiresFunds(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	if _, err := env.ledger.GetOrCreateUser(ctx, "0xabc"); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := env.ledger.DebitTx(ctx, nil, "0xabc", decimal.RequireFromString("1000.000001")); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	user, err := env.ledger.DebitTx(ctx, nil, "0xabc", decimal.NewFromInt(1000))
	if err != nil {
		t.Fatalf("exact-balance debit: %v", err)
	}
	if !user.Balance.IsZero() {
		t.Fatalf("balance = %s, want 0", user.Balance)
	}
}

func TestCreditZeroIsNoop(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	if _, err := env.ledger.GetOrCreateUser(ctx, "0xabc"); err != nil {
		t.Fatalf("create: %v", err)
	}
	user, err := env.ledger.CreditTx(ctx, nil, "0xabc", decimal.Zero)
	if err != nil {
		t.Fatalf("zero credit: %v", err)
	}
	if got := user.Balance.StringFixed(6); got != "1000.000000" {
		t.Fatalf("balance = %s, want 1000.000000", got)
	}
}
