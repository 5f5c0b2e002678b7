package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"predmarket/internal/models"
	"predmarket/internal/repository"
)

// SettlementService drives the market state machine
// (open -> closed|resolved, closed -> resolved) and pays out claims.
type SettlementService struct {
	Repo   repository.Repository
	Ledger *Ledger
	Logger *zap.Logger
	Events Publisher
}

// HighestStakedOption picks the auto-resolution winner: the option with maximum
// total stake, ties broken by stored order. Returns nil for an empty slice.
func HighestStakedOption(options []models.MarketOption) *models.MarketOption {
	if len(options) == 0 {
		return nil
	}
	winner := &options[0]
	for i := 1; i < len(options); i++ {
		if options[i].TotalStaked.Cmp(winner.TotalStaked) > 0 {
			winner = &options[i]
		}
	}
	return winner
}

// ComputePayout is the pari-mutuel split: each winning stake receives a share
// of the whole pool proportional to its share of the winning option's stake.
// A zero winning pool is treated as 1 so a market whose winner drew no stake
// pays nothing instead of dividing by zero.
func ComputePayout(positions []models.Position, winningOptionID uint64, winningPool, totalLiquidity decimal.Decimal) decimal.Decimal {
	if winningPool.Sign() <= 0 {
		winningPool = decimal.NewFromInt(1)
	}
	payout := decimal.Zero
	for _, p := range positions {
		if p.OptionID != winningOptionID {
			continue
		}
		payout = payout.Add(p.Amount.Mul(totalLiquidity).Div(winningPool))
	}
	return payout.Round(moneyScale)
}

// Resolve settles the market against the given winner and stamps every
// position won or lost. Resolving an already-resolved market with the same
// winner is a no-op; with a different winner it fails, never re-labelling
// positions after payouts may have been made.
func (s *SettlementService) Resolve(ctx context.Context, marketID, winningOptionID uint64) (*models.Market, error) {
	option, err := s.Repo.GetOptionByID(ctx, winningOptionID)
	if err != nil {
		return nil, err
	}
	if option == nil || option.MarketID != marketID {
		return nil, fmt.Errorf("%w: option %d on market %d", ErrNotFound, winningOptionID, marketID)
	}

	var resolved *models.Market
	alreadyResolved := false
	err = s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		market, err := s.Repo.GetMarketForUpdateTx(ctx, tx, marketID)
		if err != nil {
			return err
		}
		if market == nil {
			return fmt.Errorf("%w: market %d", ErrNotFound, marketID)
		}
		switch market.Status {
		case models.MarketStatusResolved:
			if market.WinningOptionID != nil && *market.WinningOptionID == winningOptionID {
				resolved = market
				alreadyResolved = true
				return nil
			}
			return fmt.Errorf("%w: market %d already resolved with a different winner", ErrInvalidState, marketID)
		case models.MarketStatusOpen, models.MarketStatusClosed:
			// fall through to settle
		default:
			return fmt.Errorf("%w: market %d is %s", ErrInvalidState, marketID, market.Status)
		}

		ok, err := s.Repo.UpdateMarketStatusTx(ctx, tx, marketID, market.Status, models.MarketStatusResolved, &winningOptionID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: market %d changed concurrently", ErrInvalidState, marketID)
		}
		now := time.Now().UTC()
		if err := s.Repo.SettlePositionsTx(ctx, tx, marketID, winningOptionID, now); err != nil {
			return err
		}
		market.Status = models.MarketStatusResolved
		market.WinningOptionID = &winningOptionID
		resolved = market
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !alreadyResolved {
		s.publish("market-resolved", map[string]any{"id": marketID, "winningOptionId": winningOptionID})
		s.publish("market-updated", map[string]any{"id": marketID, "status": models.MarketStatusResolved, "winningOptionId": winningOptionID})
	}
	return resolved, nil
}

// Close transitions an expired open market without options straight to closed.
// Reports false when another writer moved the market first.
func (s *SettlementService) Close(ctx context.Context, marketID uint64) (bool, error) {
	var moved bool
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		ok, err := s.Repo.UpdateMarketStatusTx(ctx, tx, marketID, models.MarketStatusOpen, models.MarketStatusClosed, nil)
		if err != nil {
			return err
		}
		moved = ok
		return nil
	})
	if err != nil {
		return false, err
	}
	if moved {
		s.publish("market-updated", map[string]any{"id": marketID, "status": models.MarketStatusClosed})
	}
	return moved, nil
}

// Claim pays the caller's share of the pool for a resolved market. All of the
// user's unclaimed positions on the market, winners and losers alike, are
// marked claimed in the same transaction, so a second call finds nothing.
// A claim covering only losing positions succeeds and returns zero.
func (s *SettlementService) Claim(ctx context.Context, marketID uint64, address string) (decimal.Decimal, error) {
	if address == "" {
		return decimal.Zero, fmt.Errorf("%w: userAddress required", ErrValidation)
	}

	var payout decimal.Decimal
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		market, err := s.Repo.GetMarketForUpdateTx(ctx, tx, marketID)
		if err != nil {
			return err
		}
		if market == nil {
			return fmt.Errorf("%w: market %d", ErrNotFound, marketID)
		}
		if market.Status != models.MarketStatusResolved || market.WinningOptionID == nil {
			return fmt.Errorf("%w: market %d", ErrNotResolved, marketID)
		}
		positions, err := s.Repo.ListUnclaimedPositionsForUpdateTx(ctx, tx, marketID, address)
		if err != nil {
			return err
		}
		if len(positions) == 0 {
			return fmt.Errorf("%w: market %d, user %s", ErrNothingToClaim, marketID, address)
		}
		winning, err := s.Repo.GetOptionForUpdateTx(ctx, tx, *market.WinningOptionID)
		if err != nil {
			return err
		}
		winningPool := decimal.Zero
		if winning != nil {
			winningPool = winning.TotalStaked
		}
		payout = ComputePayout(positions, *market.WinningOptionID, winningPool, market.TotalLiquidity)

		ids := make([]uint64, 0, len(positions))
		for _, p := range positions {
			ids = append(ids, p.ID)
		}
		if err := s.Repo.MarkPositionsClaimedTx(ctx, tx, ids); err != nil {
			return err
		}
		_, err = s.Ledger.CreditTx(ctx, tx, address, payout)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.publish("payout-claimed", map[string]any{
		"id":          marketID,
		"userAddress": address,
		"payout":      payout.StringFixed(moneyScale),
	})
	return payout, nil
}

func (s *SettlementService) publish(name string, payload any) {
	if s.Events != nil {
		s.Events.Publish(name, payload)
	}
}
