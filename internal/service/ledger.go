package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"predmarket/internal/models"
	"predmarket/internal/repository"
)

// Publisher receives best-effort change notifications. Emission never blocks and
// never fails the originating operation.
type Publisher interface {
	Publish(name string, payload any)
}

const moneyScale = 6

// WalletSnapshot is the balance + holdings view returned to the wallet endpoint.
type WalletSnapshot struct {
	Address  string                     `json:"address"`
	Balance  decimal.Decimal            `json:"balance"`
	Holdings map[string]decimal.Decimal `json:"holdings"`
}

// Ledger owns USDC balance mutation. Users are created on first reference with
// the configured starting balance and are never deleted.
type Ledger struct {
	Repo           repository.Repository
	Logger         *zap.Logger
	Events         Publisher
	InitialBalance decimal.Decimal
	FaucetAmount   decimal.Decimal
}

func (l *Ledger) GetOrCreateUser(ctx context.Context, address string) (*models.User, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: address required", ErrValidation)
	}
	existing, err := l.Repo.GetUserByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	item := &models.User{
		Address:    address,
		Balance:    l.InitialBalance,
		Reputation: 100,
		Holdings:   []byte(`{}`),
	}
	if err := l.Repo.CreateUser(ctx, item); err != nil {
		// A concurrent first reference may have created the user already.
		if again, gerr := l.Repo.GetUserByAddress(ctx, address); gerr == nil && again != nil {
			return again, nil
		}
		return nil, err
	}
	return item, nil
}

func (l *Ledger) GetUser(ctx context.Context, address string) (*models.User, error) {
	if address == "" {
		return nil, fmt.Errorf("%w: address required", ErrValidation)
	}
	return l.Repo.GetUserByAddress(ctx, address)
}

// DebitTx decreases the user's balance inside an open transaction. The user row
// is locked so a concurrent debit cannot take the balance below zero.
func (l *Ledger) DebitTx(ctx context.Context, tx *gorm.DB, address string, amount decimal.Decimal) (*models.User, error) {
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: debit amount must be positive", ErrValidation)
	}
	user, err := l.Repo.GetUserForUpdateTx(ctx, tx, address)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, address)
	}
	if user.Balance.Cmp(amount) < 0 {
		return nil, fmt.Errorf("%w: balance %s, debit %s", ErrInsufficientFunds, user.Balance.StringFixed(moneyScale), amount.StringFixed(moneyScale))
	}
	user.Balance = user.Balance.Sub(amount)
	if err := l.Repo.UpdateUserBalanceTx(ctx, tx, address, user.Balance); err != nil {
		return nil, err
	}
	return user, nil
}

// CreditTx increases the user's balance inside an open transaction. A zero
// amount is a no-op used by zero-payout claims.
func (l *Ledger) CreditTx(ctx context.Context, tx *gorm.DB, address string, amount decimal.Decimal) (*models.User, error) {
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("%w: credit amount must not be negative", ErrValidation)
	}
	user, err := l.Repo.GetUserForUpdateTx(ctx, tx, address)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user %s", ErrNotFound, address)
	}
	if amount.IsZero() {
		return user, nil
	}
	user.Balance = user.Balance.Add(amount)
	if err := l.Repo.UpdateUserBalanceTx(ctx, tx, address, user.Balance); err != nil {
		return nil, err
	}
	return user, nil
}

// Faucet credits test funds, creating the user on first call. A nil amount
// applies the configured default.
func (l *Ledger) Faucet(ctx context.Context, address string, amount *decimal.Decimal) (decimal.Decimal, error) {
	if address == "" {
		return decimal.Zero, fmt.Errorf("%w: address required", ErrValidation)
	}
	credit := l.FaucetAmount
	if amount != nil {
		credit = amount.Round(moneyScale)
	}
	if credit.Sign() < 0 {
		return decimal.Zero, fmt.Errorf("%w: faucet amount must not be negative", ErrValidation)
	}
	if _, err := l.GetOrCreateUser(ctx, address); err != nil {
		return decimal.Zero, err
	}
	var balance decimal.Decimal
	err := l.Repo.InTx(ctx, func(tx *gorm.DB) error {
		user, err := l.CreditTx(ctx, tx, address, credit)
		if err != nil {
			return err
		}
		balance = user.Balance
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	l.publish("faucet-funded", map[string]any{"userId": address})
	return balance, nil
}

// Wallet returns the balance + holdings snapshot, creating the user if needed.
func (l *Ledger) Wallet(ctx context.Context, address string) (*WalletSnapshot, error) {
	user, err := l.GetOrCreateUser(ctx, address)
	if err != nil {
		return nil, err
	}
	holdings, err := decodeHoldings(user.Holdings)
	if err != nil {
		return nil, err
	}
	return &WalletSnapshot{
		Address:  user.Address,
		Balance:  user.Balance,
		Holdings: holdings,
	}, nil
}

func (l *Ledger) publish(name string, payload any) {
	if l.Events != nil {
		l.Events.Publish(name, payload)
	}
}

func decodeHoldings(raw []byte) (map[string]decimal.Decimal, error) {
	holdings := map[string]decimal.Decimal{}
	if len(raw) == 0 {
		return holdings, nil
	}
	if err := json.Unmarshal(raw, &holdings); err != nil {
		return nil, err
	}
	return holdings, nil
}
