package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"predmarket/internal/models"
	"predmarket/internal/repository"
)

// Sweeper transitions stale markets in the background: expired open markets
// are resolved with the highest-staked option (or closed when, defensively,
// no options exist), and markets stuck in closed are resolved once options
// are available. Read paths never mutate; this sweep is the only driver.
type Sweeper struct {
	Repo       repository.Repository
	Settlement *SettlementService
	Logger     *zap.Logger
	BatchSize  int
}

func (s *Sweeper) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()
	batch := s.BatchSize
	if batch <= 0 {
		batch = 200
	}
	markets, err := s.Repo.ListSweepCandidates(ctx, now, batch)
	if err != nil {
		return err
	}
	for _, m := range markets {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.sweepMarket(ctx, m, now); err != nil {
			// Another sweeper may have won the transition; log and move on.
			s.logWarn("sweep transition failed", err, m.ID)
		}
	}
	return nil
}

func (s *Sweeper) sweepMarket(ctx context.Context, m models.Market, now time.Time) error {
	switch m.Status {
	case models.MarketStatusOpen:
		if m.CloseTime.After(now) {
			return nil
		}
	case models.MarketStatusClosed:
		// repair: closed but never resolved
	default:
		return nil
	}

	options, err := s.Repo.ListOptionsByMarketID(ctx, m.ID)
	if err != nil {
		return err
	}
	if len(options) == 0 {
		if m.Status != models.MarketStatusOpen {
			return nil
		}
		_, err := s.Settlement.Close(ctx, m.ID)
		return err
	}
	winner := HighestStakedOption(options)
	_, err = s.Settlement.Resolve(ctx, m.ID, winner.ID)
	return err
}

func (s *Sweeper) logWarn(msg string, err error, marketID uint64) {
	if s.Logger != nil {
		s.Logger.Warn(msg, zap.Uint64("market_id", marketID), zap.Error(err))
	}
}
