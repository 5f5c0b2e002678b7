package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"predmarket/internal/repository"
)

// Demo tokens tradable against the USDC balance. Quotes are a static table;
// fetching live prices is an external collaborator this core does not own.
var tokenPrices = map[string]decimal.Decimal{
	"LINERA": decimal.RequireFromString("1.25"),
	"MICRO":  decimal.RequireFromString("0.85"),
	"SHARD":  decimal.RequireFromString("2.10"),
}

// Institutional assets are restricted to prediction markets.
var restrictedSymbols = map[string]struct{}{
	"BTC": {}, "ETH": {}, "SOL": {}, "LINK": {}, "POL": {}, "MATIC": {},
}

var cryptoQuotes = map[string]decimal.Decimal{
	"btc":  decimal.NewFromInt(95000),
	"eth":  decimal.NewFromInt(2500),
	"sol":  decimal.NewFromInt(150),
	"link": decimal.NewFromInt(18),
	"pol":  decimal.RequireFromString("0.5"),
}

type TradeResult struct {
	Side   string          `json:"side"`
	Symbol string          `json:"symbol"`
	Amount decimal.Decimal `json:"amount"`
	Price  decimal.Decimal `json:"price"`
}

// TradingService adjusts token holdings against the USDC balance, both stored
// on the user row and updated in one transaction.
type TradingService struct {
	Repo   repository.Repository
	Ledger *Ledger
	Logger *zap.Logger
	Events Publisher
}

func (s *TradingService) Trade(ctx context.Context, address, symbol, side string, amount decimal.Decimal) (*TradeResult, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("%w: userId required", ErrValidation)
	}
	side = strings.ToLower(strings.TrimSpace(side))
	if side != "buy" && side != "sell" {
		return nil, fmt.Errorf("%w: side must be buy or sell", ErrValidation)
	}
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: amount must be greater than 0", ErrValidation)
	}
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if _, restricted := restrictedSymbols[symbol]; restricted {
		return nil, fmt.Errorf("%w: institutional asset trading is restricted", ErrUnauthorized)
	}
	price, ok := tokenPrices[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: trading for %s is disabled", ErrValidation, symbol)
	}
	cost := amount.Mul(price).Round(moneyScale)

	if _, err := s.Ledger.GetOrCreateUser(ctx, address); err != nil {
		return nil, err
	}
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		user, err := s.Repo.GetUserForUpdateTx(ctx, tx, address)
		if err != nil {
			return err
		}
		if user == nil {
			return fmt.Errorf("%w: user %s", ErrNotFound, address)
		}
		holdings, err := decodeHoldings(user.Holdings)
		if err != nil {
			return err
		}
		held := holdings[symbol]

		balance := user.Balance
		if side == "buy" {
			if balance.Cmp(cost) < 0 {
				return fmt.Errorf("%w: insufficient USDC balance", ErrInsufficientFunds)
			}
			balance = balance.Sub(cost)
			holdings[symbol] = held.Add(amount)
		} else {
			if held.Cmp(amount) < 0 {
				return fmt.Errorf("%w: insufficient %s balance", ErrInsufficientFunds, symbol)
			}
			balance = balance.Add(cost)
			holdings[symbol] = held.Sub(amount)
		}
		raw, err := json.Marshal(holdings)
		if err != nil {
			return err
		}
		return s.Repo.UpdateUserHoldingsTx(ctx, tx, address, balance, raw)
	})
	if err != nil {
		return nil, err
	}

	result := &TradeResult{Side: side, Symbol: symbol, Amount: amount, Price: price}
	if s.Events != nil {
		s.Events.Publish("trade-executed", map[string]any{"userId": address, "symbol": symbol, "side": side})
	}
	return result, nil
}

// Quote returns the static USD quote for a symbol, defaulting to 1.0.
func (s *TradingService) Quote(symbol string) decimal.Decimal {
	if q, ok := cryptoQuotes[strings.ToLower(strings.TrimSpace(symbol))]; ok {
		return q
	}
	return decimal.NewFromInt(1)
}
