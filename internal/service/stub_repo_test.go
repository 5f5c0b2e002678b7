package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"predmarket/internal/models"
	"predmarket/internal/repository"
)

// stubRepo is a test-only in-memory implementation of repository.Repository.
// It keeps real state so service flows (stake, resolve, claim) can run end to
// end without a database; Tx methods ignore the (nil) transaction handle.
type stubRepo struct {
	mu        sync.Mutex
	users     map[string]models.User
	markets   map[uint64]models.Market
	options   map[uint64]models.MarketOption
	positions map[uint64]models.Position
	nextID    uint64
	clock     time.Time
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:     map[string]models.User{},
		markets:   map[uint64]models.Market{},
		options:   map[uint64]models.MarketOption{},
		positions: map[uint64]models.Position{},
		clock:     time.Now().UTC(),
	}
}

func (s *stubRepo) id() uint64 {
	s.nextID++
	return s.nextID
}

// tick makes creation timestamps strictly increasing for order assertions.
func (s *stubRepo) tick() time.Time {
	s.clock = s.clock.Add(time.Millisecond)
	return s.clock
}

func (s *stubRepo) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func (s *stubRepo) GetUserByAddress(ctx context.Context, address string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[address]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *stubRepo) CreateUser(ctx context.Context, item *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.id()
	item.CreatedAt = s.tick()
	s.users[item.Address] = *item
	return nil
}

func (s *stubRepo) GetUserForUpdateTx(ctx context.Context, tx *gorm.DB, address string) (*models.User, error) {
	return s.GetUserByAddress(ctx, address)
}

func (s *stubRepo) UpdateUserBalanceTx(ctx context.Context, tx *gorm.DB, address string, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[address]
	u.Balance = balance
	s.users[address] = u
	return nil
}

func (s *stubRepo) UpdateUserHoldingsTx(ctx context.Context, tx *gorm.DB, address string, balance decimal.Decimal, holdings []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.users[address]
	u.Balance = balance
	u.Holdings = holdings
	s.users[address] = u
	return nil
}

func (s *stubRepo) CreateMarketTx(ctx context.Context, tx *gorm.DB, item *models.Market) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.id()
	item.CreatedAt = s.tick()
	s.markets[item.ID] = *item
	return nil
}

func (s *stubRepo) GetMarketByID(ctx context.Context, id uint64) (*models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m, ok := s.markets[id]; ok {
		return &m, nil
	}
	return nil, nil
}

func (s *stubRepo) GetMarketForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.Market, error) {
	return s.GetMarketByID(ctx, id)
}

func (s *stubRepo) ListMarkets(ctx context.Context, params repository.ListMarketsParams) ([]models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Market
	for _, m := range s.markets {
		if params.Status != nil && m.Status != *params.Status {
			continue
		}
		if params.Category != nil && m.Category != *params.Category {
			continue
		}
		items = append(items, m)
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *stubRepo) CountMarkets(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.markets)), nil
}

func (s *stubRepo) UpdateMarketStatusTx(ctx context.Context, tx *gorm.DB, id uint64, from, to string, winningOptionID *uint64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.markets[id]
	if !ok || m.Status != from {
		return false, nil
	}
	m.Status = to
	if winningOptionID != nil {
		w := *winningOptionID
		m.WinningOptionID = &w
	}
	s.markets[id] = m
	return true, nil
}

func (s *stubRepo) UpdateMarketLiquidityTx(ctx context.Context, tx *gorm.DB, id uint64, total decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.markets[id]
	m.TotalLiquidity = total
	s.markets[id] = m
	return nil
}

func (s *stubRepo) DeleteMarketCascadeTx(ctx context.Context, tx *gorm.DB, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for oid, o := range s.options {
		if o.MarketID == id {
			delete(s.options, oid)
		}
	}
	for pid, p := range s.positions {
		if p.MarketID == id {
			delete(s.positions, pid)
		}
	}
	delete(s.markets, id)
	return nil
}

func (s *stubRepo) ListSweepCandidates(ctx context.Context, now time.Time, limit int) ([]models.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Market
	for _, m := range s.markets {
		if (m.Status == models.MarketStatusOpen && !m.CloseTime.After(now)) ||
			m.Status == models.MarketStatusClosed {
			items = append(items, m)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CloseTime.Before(items[j].CloseTime)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *stubRepo) CreateOptionsTx(ctx context.Context, tx *gorm.DB, items []models.MarketOption) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range items {
		items[i].ID = s.id()
		s.options[items[i].ID] = items[i]
	}
	return nil
}

func (s *stubRepo) GetOptionByID(ctx context.Context, id uint64) (*models.MarketOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.options[id]; ok {
		return &o, nil
	}
	return nil, nil
}

func (s *stubRepo) GetOptionForUpdateTx(ctx context.Context, tx *gorm.DB, id uint64) (*models.MarketOption, error) {
	return s.GetOptionByID(ctx, id)
}

func (s *stubRepo) ListOptionsByMarketID(ctx context.Context, marketID uint64) ([]models.MarketOption, error) {
	return s.ListOptionsByMarketIDs(ctx, []uint64{marketID})
}

func (s *stubRepo) ListOptionsByMarketIDs(ctx context.Context, marketIDs []uint64) ([]models.MarketOption, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	want := map[uint64]struct{}{}
	for _, id := range marketIDs {
		want[id] = struct{}{}
	}
	var items []models.MarketOption
	for _, o := range s.options {
		if _, ok := want[o.MarketID]; ok {
			items = append(items, o)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *stubRepo) UpdateOptionStakedTx(ctx context.Context, tx *gorm.DB, id uint64, total decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.options[id]
	o.TotalStaked = total
	s.options[id] = o
	return nil
}

func (s *stubRepo) CreatePositionTx(ctx context.Context, tx *gorm.DB, item *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.id()
	item.CreatedAt = s.tick()
	s.positions[item.ID] = *item
	return nil
}

func (s *stubRepo) ListPositionsByUser(ctx context.Context, address string) ([]models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Position
	for _, p := range s.positions {
		if p.UserAddress == address {
			items = append(items, p)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

func (s *stubRepo) ListPositionsByMarket(ctx context.Context, marketID uint64) ([]models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Position
	for _, p := range s.positions {
		if p.MarketID == marketID {
			items = append(items, p)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *stubRepo) CountPositionsByMarketIDs(ctx context.Context, marketIDs []uint64) (map[uint64]int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[uint64]int64{}
	for _, p := range s.positions {
		out[p.MarketID]++
	}
	return out, nil
}

func (s *stubRepo) SettlePositionsTx(ctx context.Context, tx *gorm.DB, marketID uint64, winningOptionID uint64, settledAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.positions {
		if p.MarketID != marketID {
			continue
		}
		if p.OptionID == winningOptionID {
			p.Status = models.PositionStatusWon
		} else {
			p.Status = models.PositionStatusLost
		}
		at := settledAt
		p.SettledAt = &at
		s.positions[id] = p
	}
	return nil
}

func (s *stubRepo) ListUnclaimedPositionsForUpdateTx(ctx context.Context, tx *gorm.DB, marketID uint64, address string) ([]models.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var items []models.Position
	for _, p := range s.positions {
		if p.MarketID == marketID && p.UserAddress == address && !p.Claimed {
			items = append(items, p)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (s *stubRepo) MarkPositionsClaimedTx(ctx context.Context, tx *gorm.DB, ids []uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		p := s.positions[id]
		p.Claimed = true
		s.positions[id] = p
	}
	return nil
}

var _ repository.Repository = (*stubRepo)(nil)

// recordingPublisher captures emitted events for assertions.
type recordingPublisher struct {
	mu    sync.Mutex
	names []string
}

func (r *recordingPublisher) Publish(name string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
}

func (r *recordingPublisher) has(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range r.names {
		if n == name {
			return true
		}
	}
	return false
}

type testEnv struct {
	repo       *stubRepo
	events     *recordingPublisher
	ledger     *Ledger
	markets    *MarketService
	settlement *SettlementService
	sweeper    *Sweeper
	trading    *TradingService
}

func newTestEnv() *testEnv {
	repo := newStubRepo()
	events := &recordingPublisher{}
	ledger := &Ledger{
		Repo:           repo,
		Events:         events,
		InitialBalance: decimal.RequireFromString("1000.000000"),
		FaucetAmount:   decimal.RequireFromString("1000.000000"),
	}
	settlement := &SettlementService{Repo: repo, Ledger: ledger, Events: events}
	return &testEnv{
		repo:       repo,
		events:     events,
		ledger:     ledger,
		markets:    &MarketService{Repo: repo, Ledger: ledger, Events: events},
		settlement: settlement,
		sweeper:    &Sweeper{Repo: repo, Settlement: settlement},
		trading:    &TradingService{Repo: repo, Ledger: ledger, Events: events},
	}
}

func mustCreateMarket(t *testing.T, env *testEnv, question string, options []string, closeIn time.Duration) *MarketDetail {
	t.Helper()
	detail, err := env.markets.CreateMarket(context.Background(), CreateMarketParams{
		Question:  question,
		Options:   options,
		CloseTime: time.Now().UTC().Add(closeIn),
		CreatorID: "creator-1",
		Category:  "Test",
	})
	if err != nil {
		t.Fatalf("create market: %v", err)
	}
	return detail
}

// expireMarket rewinds a market's close time so sweeps and stake guards see it
// as past deadline.
func expireMarket(env *testEnv, id uint64) {
	env.repo.mu.Lock()
	defer env.repo.mu.Unlock()
	m := env.repo.markets[id]
	m.CloseTime = time.Now().UTC().Add(-time.Minute)
	env.repo.markets[id] = m
}
