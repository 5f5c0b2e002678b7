package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"predmarket/internal/models"
)

func TestSweeperResolvesExpiredWithHighestStake(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	detail := mustCreateMarket(t, env, "Will the sweep pick the popular side?", []string{"Yes", "No"}, time.Hour)
	if _, err := env.markets.CreatePosition(ctx, detail.ID, detail.Options[0].ID, "user-x", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if _, err := env.markets.CreatePosition(ctx, detail.ID, detail.Options[1].ID, "user-y", decimal.NewFromInt(40)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	expireMarket(env, detail.ID)

	if err := env.sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	market, _ := env.repo.GetMarketByID(ctx, detail.ID)
	if market.Status != models.MarketStatusResolved {
		t.Fatalf("status = %s, want resolved", market.Status)
	}
	if market.WinningOptionID == nil || *market.WinningOptionID != detail.Options[1].ID {
		t.Fatalf("winner = %v, want option %d", market.WinningOptionID, detail.Options[1].ID)
	}
}

func TestSweeperClosesExpiredMarketWithoutOptions(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	market := &models.Market{
		Question:  "Will an optionless market just close?",
		Category:  "General",
		CloseTime: time.Now().UTC().Add(-time.Minute),
		Status:    models.MarketStatusOpen,
		CreatorID: "creator-1",
	}
	if err := env.repo.CreateMarketTx(ctx, nil, market); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := env.sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	got, _ := env.repo.GetMarketByID(ctx, market.ID)
	if got.Status != models.MarketStatusClosed {
		t.Fatalf("status = %s, want closed", got.Status)
	}
}

func TestSweeperRepairsClosedMarket(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	detail := mustCreateMarket(t, env, "Will a stuck closed market recover?", []string{"Yes", "No"}, time.Hour)
	if _, err := env.markets.CreatePosition(ctx, detail.ID, detail.Options[0].ID, "user-x", decimal.NewFromInt(10)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if _, err := env.repo.UpdateMarketStatusTx(ctx, nil, detail.ID, models.MarketStatusOpen, models.MarketStatusClosed, nil); err != nil {
		t.Fatalf("force close: %v", err)
	}

	if err := env.sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	market, _ := env.repo.GetMarketByID(ctx, detail.ID)
	if market.Status != models.MarketStatusResolved {
		t.Fatalf("status = %s, want resolved", market.Status)
	}
}

func TestSweeperLeavesLiveMarketsAlone(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	detail := mustCreateMarket(t, env, "Will a live market survive the sweep?", []string{"Yes", "No"}, time.Hour)

	if err := env.sweeper.RunOnce(ctx); err != nil {
		t.Fatalf("sweep: %v", err)
	}
	market, _ := env.repo.GetMarketByID(ctx, detail.ID)
	if market.Status != models.MarketStatusOpen {
		t.Fatalf("status = %s, want open", market.Status)
	}
}
