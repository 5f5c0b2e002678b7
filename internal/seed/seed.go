package seed

import (
	"context"
	"time"

	"go.uber.org/zap"

	"predmarket/internal/models"
	"predmarket/internal/repository"
	"predmarket/internal/service"
)

// Demo markets created on first startup against an empty store. Owned by the
// system sentinel so any user may delete them.
func Run(ctx context.Context, repo repository.Repository, markets *service.MarketService, logger *zap.Logger) error {
	n, err := repo.CountMarkets(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	if logger != nil {
		logger.Info("seeding demo markets")
	}

	now := time.Now().UTC()
	demos := []service.CreateMarketParams{
		{
			Question:  "Who will win the match: India vs Australia?",
			Options:   []string{"India", "Australia", "Draw"},
			CloseTime: now.Add(24 * time.Hour),
			CreatorID: models.SystemCreatorID,
			Category:  "Cricket",
		},
		{
			Question:  "How many runs will Kohli score today?",
			Options:   []string{"0-30", "31-50", "51-99", "Century (100+)"},
			CloseTime: now.Add(4 * time.Hour),
			CreatorID: models.SystemCreatorID,
			Category:  "Cricket",
		},
		{
			Question:  "Who will win the toss?",
			Options:   []string{"India", "Australia"},
			CloseTime: now.Add(30 * time.Minute),
			CreatorID: models.SystemCreatorID,
			Category:  "Cricket",
		},
	}
	for _, params := range demos {
		if _, err := markets.CreateMarket(ctx, params); err != nil {
			return err
		}
	}
	return nil
}
