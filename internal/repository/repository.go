package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"predmarket/internal/models"
)

type ListMarketsParams struct {
	Limit    int
	Offset   int
	Status   *string
	Category *string
}

// Repository is the durable store behind the ledger, market store, and settlement
// engine. Lookup methods return (nil, nil) when the record does not exist; services
// translate that into their own not-found error. Methods with a Tx suffix run inside
// a transaction opened by InTx and must be passed its *gorm.DB.
type Repository interface {
	InTx(ctx context.Context, fn func(tx *gorm.DB) error) error

	// Users.
	GetUserByAddress(ctx context.Context, address string) (*models.User, error)
	CreateUser(ctx context.Context, item *models.User) error
	GetUserForUpdateTx(ctx context.Context, tx *gorm.DB, address string) (*models.User, error)
	UpdateUserBalanceTx(ctx context.Context, tx *gorm.DB, address string, balance decimal.Decimal) error
	UpdateUserHoldingsTx(ctx context.Context, tx *gorm.DB, address string, balance decimal.Decimal, holdings []byte) error

	// Markets.
	CreateMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error
	GetMarketByID(ctx context.Context, id uint64) (*models.Market, error)
	GetMarketForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Market, error)
	ListMarkets(ctx context.Context, params ListMarketsParams) ([]models.Market, error)
	CountMarkets(ctx context.Context) (int64, error)
	// UpdateMarketStatusTx flips status from->to and stamps the winner in one guarded
	// update; it reports false when another writer changed the status first.
	UpdateMarketStatusTx(ctx context.Context, tx *gorm.DB, id uint64, from, to string, winningOptionID *uint64) (bool, error)
	UpdateMarketLiquidityTx(ctx context.Context, tx *gorm.DB, id uint64, total decimal.Decimal) error
	DeleteMarketCascadeTx(ctx context.Context, tx *gorm.DB, id uint64) error
	// ListSweepCandidates returns markets that may need a state transition: open ones
	// past their close time plus any stuck in closed.
	ListSweepCandidates(ctx context.Context, now time.Time, limit int) ([]models.Market, error)

	// Options.
	CreateOptionsTx(ctx context.Context, tx *gorm.DB, items []models.MarketOption) error
	GetOptionByID(ctx context.Context, id uint64) (*models.MarketOption, error)
	GetOptionForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.MarketOption, error)
	ListOptionsByMarketID(ctx context.Context, marketID uint64) ([]models.MarketOption, error)
	ListOptionsByMarketIDs(ctx context.Context, marketIDs []uint64) ([]models.MarketOption, error)
	UpdateOptionStakedTx(ctx context.Context, tx *gorm.DB, id uint64, total decimal.Decimal) error

	// Positions.
	CreatePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error
	ListPositionsByUser(ctx context.Context, address string) ([]models.Position, error)
	ListPositionsByMarket(ctx context.Context, marketID uint64) ([]models.Position, error)
	CountPositionsByMarketIDs(ctx context.Context, marketIDs []uint64) (map[uint64]int64, error)
	// SettlePositionsTx stamps every position on the market won/lost against the winner.
	SettlePositionsTx(ctx context.Context, tx *gorm.DB, marketID uint64, winningOptionID uint64, settledAt time.Time) error
	ListUnclaimedPositionsForUpdateTx(ctx context.Context, tx *gorm.DB, marketID uint64, address string) ([]models.Position, error)
	MarkPositionsClaimedTx(ctx context.Context, tx *gorm.DB, ids []uint64) error
}
