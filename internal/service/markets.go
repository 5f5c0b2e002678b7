package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"predmarket/internal/models"
	"predmarket/internal/repository"
)

const (
	minQuestionLen = 10
	minOptions     = 2
	maxOptions     = 6
)

// MarketDetail is a market with its options and position count, the shape every
// read endpoint returns.
type MarketDetail struct {
	models.Market
	Options        []models.MarketOption `json:"options"`
	TotalPositions int64                 `json:"totalPositions"`
}

type CreateMarketParams struct {
	Question    string
	Description string
	Category    string
	BannerURL   *string
	Options     []string
	CloseTime   time.Time
	CreatorID   string
}

// MarketService owns market, option, and position records and their
// relationships. Invariant: a market's total liquidity equals the sum of its
// options' stakes, which equals the sum of its positions' amounts.
type MarketService struct {
	Repo   repository.Repository
	Ledger *Ledger
	Logger *zap.Logger
	Events Publisher
}

func (s *MarketService) CreateMarket(ctx context.Context, params CreateMarketParams) (*MarketDetail, error) {
	question := strings.TrimSpace(params.Question)
	if utf8.RuneCountInString(question) < minQuestionLen {
		return nil, fmt.Errorf("%w: question must be at least %d characters", ErrValidation, minQuestionLen)
	}
	if len(params.Options) < minOptions || len(params.Options) > maxOptions {
		return nil, fmt.Errorf("%w: provide %d-%d options", ErrValidation, minOptions, maxOptions)
	}
	texts := make([]string, 0, len(params.Options))
	for _, o := range params.Options {
		o = strings.TrimSpace(o)
		if o == "" {
			return nil, fmt.Errorf("%w: options cannot be empty", ErrValidation)
		}
		texts = append(texts, o)
	}
	if !params.CloseTime.After(time.Now().UTC()) {
		return nil, fmt.Errorf("%w: close time must be in the future", ErrValidation)
	}
	if strings.TrimSpace(params.CreatorID) == "" {
		return nil, fmt.Errorf("%w: creatorId required", ErrValidation)
	}
	category := strings.TrimSpace(params.Category)
	if category == "" {
		category = "General"
	}

	market := &models.Market{
		Question:       question,
		Description:    params.Description,
		Category:       category,
		BannerURL:      params.BannerURL,
		CloseTime:      params.CloseTime.UTC(),
		Status:         models.MarketStatusOpen,
		CreatorID:      params.CreatorID,
		TotalLiquidity: decimal.Zero,
	}
	var options []models.MarketOption
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		if err := s.Repo.CreateMarketTx(ctx, tx, market); err != nil {
			return err
		}
		options = make([]models.MarketOption, 0, len(texts))
		for _, text := range texts {
			options = append(options, models.MarketOption{
				MarketID:    market.ID,
				Text:        text,
				TotalStaked: decimal.Zero,
			})
		}
		return s.Repo.CreateOptionsTx(ctx, tx, options)
	})
	if err != nil {
		return nil, err
	}

	detail := &MarketDetail{Market: *market, Options: options, TotalPositions: 0}
	s.publish("market-created", detail)
	return detail, nil
}

func (s *MarketService) GetMarket(ctx context.Context, id uint64) (*MarketDetail, error) {
	market, err := s.Repo.GetMarketByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if market == nil {
		return nil, fmt.Errorf("%w: market %d", ErrNotFound, id)
	}
	options, err := s.Repo.ListOptionsByMarketID(ctx, id)
	if err != nil {
		return nil, err
	}
	counts, err := s.Repo.CountPositionsByMarketIDs(ctx, []uint64{id})
	if err != nil {
		return nil, err
	}
	return &MarketDetail{Market: *market, Options: options, TotalPositions: counts[id]}, nil
}

// ListMarkets returns all markets newest first, each with nested options and
// its position count.
func (s *MarketService) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]MarketDetail, error) {
	markets, err := s.Repo.ListMarkets(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(markets) == 0 {
		return []MarketDetail{}, nil
	}
	ids := make([]uint64, 0, len(markets))
	for _, m := range markets {
		ids = append(ids, m.ID)
	}
	options, err := s.Repo.ListOptionsByMarketIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	counts, err := s.Repo.CountPositionsByMarketIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	optionsByMarket := make(map[uint64][]models.MarketOption, len(markets))
	for _, o := range options {
		optionsByMarket[o.MarketID] = append(optionsByMarket[o.MarketID], o)
	}
	details := make([]MarketDetail, 0, len(markets))
	for _, m := range markets {
		details = append(details, MarketDetail{
			Market:         m,
			Options:        optionsByMarket[m.ID],
			TotalPositions: counts[m.ID],
		})
	}
	return details, nil
}

// DeleteMarket removes a market and cascades to its options and positions.
// Only the creator (or anyone, for seed markets owned by the system sentinel)
// may delete, and never once the market is resolved.
func (s *MarketService) DeleteMarket(ctx context.Context, id uint64, requesterID string) error {
	if strings.TrimSpace(requesterID) == "" {
		return fmt.Errorf("%w: requester required", ErrUnauthorized)
	}
	// The guard runs against the locked row inside the delete transaction, so
	// a resolution committing concurrently cannot slip a resolved market (and
	// its unclaimed positions) past the status check.
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		market, err := s.Repo.GetMarketForUpdateTx(ctx, tx, id)
		if err != nil {
			return err
		}
		if market == nil {
			return fmt.Errorf("%w: market %d", ErrNotFound, id)
		}
		if market.CreatorID != requesterID && market.CreatorID != models.SystemCreatorID {
			return fmt.Errorf("%w: only the creator can delete this market", ErrUnauthorized)
		}
		if market.Status == models.MarketStatusResolved {
			return fmt.Errorf("%w: resolved markets cannot be deleted", ErrInvalidState)
		}
		return s.Repo.DeleteMarketCascadeTx(ctx, tx, id)
	})
	if err != nil {
		return err
	}
	s.publish("market-deleted", map[string]any{"marketId": id})
	return nil
}

// CreatePosition stakes amount on an option of an open market. The debit, the
// position insert, and both stake totals are applied in one transaction; the
// market row is locked first, then the user row.
func (s *MarketService) CreatePosition(ctx context.Context, marketID, optionID uint64, address string, amount decimal.Decimal) (*models.Position, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("%w: userAddress required", ErrValidation)
	}
	amount = amount.Round(moneyScale)
	if amount.Sign() <= 0 {
		return nil, fmt.Errorf("%w: stake amount must be greater than 0", ErrValidation)
	}
	if _, err := s.Ledger.GetOrCreateUser(ctx, address); err != nil {
		return nil, err
	}

	var position *models.Position
	err := s.Repo.InTx(ctx, func(tx *gorm.DB) error {
		market, err := s.Repo.GetMarketForUpdateTx(ctx, tx, marketID)
		if err != nil {
			return err
		}
		if market == nil {
			return fmt.Errorf("%w: market %d", ErrNotFound, marketID)
		}
		if market.Status != models.MarketStatusOpen || !market.CloseTime.After(time.Now().UTC()) {
			return fmt.Errorf("%w: market %d", ErrMarketClosed, marketID)
		}
		option, err := s.Repo.GetOptionForUpdateTx(ctx, tx, optionID)
		if err != nil {
			return err
		}
		if option == nil || option.MarketID != marketID {
			return fmt.Errorf("%w: option %d", ErrNotFound, optionID)
		}
		if _, err := s.Ledger.DebitTx(ctx, tx, address, amount); err != nil {
			return err
		}
		position = &models.Position{
			MarketID:    marketID,
			OptionID:    optionID,
			UserAddress: address,
			Amount:      amount,
			Status:      models.PositionStatusPending,
		}
		if err := s.Repo.CreatePositionTx(ctx, tx, position); err != nil {
			return err
		}
		if err := s.Repo.UpdateOptionStakedTx(ctx, tx, optionID, option.TotalStaked.Add(amount)); err != nil {
			return err
		}
		return s.Repo.UpdateMarketLiquidityTx(ctx, tx, marketID, market.TotalLiquidity.Add(amount))
	})
	if err != nil {
		return nil, err
	}

	s.publish("position-placed", map[string]any{"marketId": marketID, "userAddress": address})
	return position, nil
}

func (s *MarketService) ListUserPositions(ctx context.Context, address string) ([]models.Position, error) {
	if strings.TrimSpace(address) == "" {
		return nil, fmt.Errorf("%w: address required", ErrValidation)
	}
	items, err := s.Repo.ListPositionsByUser(ctx, address)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.Position{}
	}
	return items, nil
}

func (s *MarketService) publish(name string, payload any) {
	if s.Events != nil {
		s.Events.Publish(name, payload)
	}
}
