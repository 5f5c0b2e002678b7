package gormrepository

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"predmarket/internal/models"
	"predmarket/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- Users -------------------------------------------------------------------

func (s *Store) GetUserByAddress(ctx context.Context, address string) (*models.User, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.User
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateUser(ctx context.Context, item *models.User) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Create(item).Error
}

func (s *Store) GetUserForUpdateTx(ctx context.Context, tx *gorm.DB, address string) (*models.User, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.User
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("address = ?", address).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) UpdateUserBalanceTx(ctx context.Context, tx *gorm.DB, address string, balance decimal.Decimal) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.User{}).
		Where("address = ?", address).
		Update("balance", balance).Error
}

func (s *Store) UpdateUserHoldingsTx(ctx context.Context, tx *gorm.DB, address string, balance decimal.Decimal, holdings []byte) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.User{}).
		Where("address = ?", address).
		Updates(map[string]any{
			"balance":  balance,
			"holdings": holdings,
		}).Error
}

// --- Markets -----------------------------------------------------------------

func (s *Store) CreateMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) GetMarketByID(ctx context.Context, id uint64) (*models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Market
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetMarketForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Market, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.Market
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := s.db.WithContext(ctx).Model(&models.Market{})
	if params.Status != nil && *params.Status != "" {
		query = query.Where("status = ?", *params.Status)
	}
	if params.Category != nil && *params.Category != "" {
		query = query.Where("category = ?", *params.Category)
	}
	limit := normalizeLimit(params.Limit, 200)
	offset := normalizeOffset(params.Offset)
	var items []models.Market
	if err := query.Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountMarkets(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	if err := s.db.WithContext(ctx).Model(&models.Market{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) UpdateMarketStatusTx(ctx context.Context, tx *gorm.DB, id uint64, from, to string, winningOptionID *uint64) (bool, error) {
	if tx == nil {
		return false, nil
	}
	updates := map[string]any{"status": to}
	if winningOptionID != nil {
		updates["winning_option_id"] = *winningOptionID
	}
	res := tx.WithContext(ctx).
		Model(&models.Market{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *Store) UpdateMarketLiquidityTx(ctx context.Context, tx *gorm.DB, id uint64, total decimal.Decimal) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.Market{}).
		Where("id = ?", id).
		Update("total_liquidity", total).Error
}

func (s *Store) DeleteMarketCascadeTx(ctx context.Context, tx *gorm.DB, id uint64) error {
	if tx == nil {
		return nil
	}
	if err := tx.WithContext(ctx).Where("market_id = ?", id).Delete(&models.Position{}).Error; err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Where("market_id = ?", id).Delete(&models.MarketOption{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Where("id = ?", id).Delete(&models.Market{}).Error
}

func (s *Store) ListSweepCandidates(ctx context.Context, now time.Time, limit int) ([]models.Market, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	var items []models.Market
	err := s.db.WithContext(ctx).
		Where("(status = ? AND close_time <= ?) OR status = ?",
			models.MarketStatusOpen, now, models.MarketStatusClosed).
		Order("close_time ASC").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

// --- Options -----------------------------------------------------------------

func (s *Store) CreateOptionsTx(ctx context.Context, tx *gorm.DB, items []models.MarketOption) error {
	if tx == nil || len(items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&items).Error
}

func (s *Store) GetOptionByID(ctx context.Context, id uint64) (*models.MarketOption, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.MarketOption
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetOptionForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.MarketOption, error) {
	if tx == nil {
		return nil, nil
	}
	var item models.MarketOption
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) ListOptionsByMarketID(ctx context.Context, marketID uint64) ([]models.MarketOption, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.MarketOption
	err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListOptionsByMarketIDs(ctx context.Context, marketIDs []uint64) ([]models.MarketOption, error) {
	if s == nil || s.db == nil || len(marketIDs) == 0 {
		return nil, nil
	}
	var items []models.MarketOption
	err := s.db.WithContext(ctx).
		Where("market_id IN ?", marketIDs).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) UpdateOptionStakedTx(ctx context.Context, tx *gorm.DB, id uint64, total decimal.Decimal) error {
	if tx == nil {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.MarketOption{}).
		Where("id = ?", id).
		Update("total_staked", total).Error
}

// --- Positions ---------------------------------------------------------------

func (s *Store) CreatePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error {
	if tx == nil || item == nil {
		return nil
	}
	return tx.WithContext(ctx).Create(item).Error
}

func (s *Store) ListPositionsByUser(ctx context.Context, address string) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Position
	err := s.db.WithContext(ctx).
		Where("user_address = ?", address).
		Order("created_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListPositionsByMarket(ctx context.Context, marketID uint64) ([]models.Position, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Position
	err := s.db.WithContext(ctx).
		Where("market_id = ?", marketID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountPositionsByMarketIDs(ctx context.Context, marketIDs []uint64) (map[uint64]int64, error) {
	if s == nil || s.db == nil || len(marketIDs) == 0 {
		return map[uint64]int64{}, nil
	}
	type row struct {
		MarketID uint64
		N        int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&models.Position{}).
		Select("market_id, COUNT(*) AS n").
		Where("market_id IN ?", marketIDs).
		Group("market_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[uint64]int64, len(rows))
	for _, r := range rows {
		out[r.MarketID] = r.N
	}
	return out, nil
}

func (s *Store) SettlePositionsTx(ctx context.Context, tx *gorm.DB, marketID uint64, winningOptionID uint64, settledAt time.Time) error {
	if tx == nil {
		return nil
	}
	if settledAt.IsZero() {
		settledAt = time.Now().UTC()
	}
	err := tx.WithContext(ctx).
		Model(&models.Position{}).
		Where("market_id = ? AND option_id = ?", marketID, winningOptionID).
		Updates(map[string]any{
			"status":     models.PositionStatusWon,
			"settled_at": settledAt,
		}).Error
	if err != nil {
		return err
	}
	return tx.WithContext(ctx).
		Model(&models.Position{}).
		Where("market_id = ? AND option_id <> ?", marketID, winningOptionID).
		Updates(map[string]any{
			"status":     models.PositionStatusLost,
			"settled_at": settledAt,
		}).Error
}

func (s *Store) ListUnclaimedPositionsForUpdateTx(ctx context.Context, tx *gorm.DB, marketID uint64, address string) ([]models.Position, error) {
	if tx == nil {
		return nil, nil
	}
	var items []models.Position
	err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("market_id = ? AND user_address = ? AND claimed = ?", marketID, address, false).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) MarkPositionsClaimedTx(ctx context.Context, tx *gorm.DB, ids []uint64) error {
	if tx == nil || len(ids) == 0 {
		return nil
	}
	return tx.WithContext(ctx).
		Model(&models.Position{}).
		Where("id IN ?", ids).
		Update("claimed", true).Error
}

// --- helpers -----------------------------------------------------------------

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 || limit > 1000 {
		return fallback
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
