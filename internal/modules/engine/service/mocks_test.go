package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"expert_advisor/internal/models"
	"expert_advisor/internal/modules/config"
	"expert_advisor/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.InitNop()
	os.Exit(m.Run())
}

// --- collaborator mocks ---

type mockSnapshot struct {
	snaps      []models.SnapshotSignal
	err        error
	delay      time.Duration
	calls      int
	reconnects int
}

func (m *mockSnapshot) GetSignal(_ context.Context, _ []string, _ string) ([]models.SnapshotSignal, error) {
	m.calls++
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	if m.err != nil {
		return nil, m.err
	}
	return m.snaps, nil
}

func (m *mockSnapshot) Reconnect(_ context.Context) error {
	m.reconnects++
	return nil
}

type mockSignals struct {
	byKey   map[string]*models.Signal // symbol::side
	nextID  int64
	sets    int
	removes int
	getErr  map[string]error
	now     func() time.Time
}

func newMockSignals() *mockSignals {
	return &mockSignals{
		byKey:  make(map[string]*models.Signal),
		getErr: make(map[string]error),
		now:    time.Now,
	}
}

func sigKey(symbol string, side models.Side) string {
	return symbol + "::" + string(side)
}

func (m *mockSignals) Get(_ context.Context, symbol string) (*models.Signal, error) {
	if err := m.getErr[symbol]; err != nil {
		return nil, err
	}
	var latest *models.Signal
	for _, s := range m.byKey {
		if s.Symbol != symbol {
			continue
		}
		if latest == nil || s.UpdatedAt.After(latest.UpdatedAt) {
			latest = s
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (m *mockSignals) Set(_ context.Context, sig *models.Signal) error {
	m.sets++
	key := sigKey(sig.Symbol, sig.Side)
	if existing, ok := m.byKey[key]; ok {
		sig.ID = existing.ID
		sig.CreatedAt = existing.CreatedAt
	} else {
		m.nextID++
		sig.ID = m.nextID
		sig.CreatedAt = m.now()
	}
	sig.UpdatedAt = m.now()
	cp := *sig
	m.byKey[key] = &cp
	return nil
}

func (m *mockSignals) Remove(_ context.Context, id int64) error {
	m.removes++
	for k, s := range m.byKey {
		if s.ID == id {
			delete(m.byKey, k)
			return nil
		}
	}
	return errors.New("signal not found")
}

func (m *mockSignals) RemoveAll(_ context.Context) error {
	m.byKey = make(map[string]*models.Signal)
	return nil
}

func (m *mockSignals) count() int { return len(m.byKey) }

type mockAccounts struct {
	accounts map[string]*models.Account
	gets     int
}

func (m *mockAccounts) Get(_ context.Context, id string) (*models.Account, error) {
	m.gets++
	return m.accounts[id], nil
}

type mockTrades struct {
	records     []models.Order
	statusCalls int
}

func (m *mockTrades) Record(_ context.Context, _ string, order models.Order) error {
	m.records = append(m.records, order)
	return nil
}

func (m *mockTrades) UpdateStatus(_ context.Context) error {
	m.statusCalls++
	return nil
}

type mockGateway struct {
	orders []models.Order
	err    error
}

func (m *mockGateway) Submit(_ context.Context, order models.Order) error {
	if m.err != nil {
		return m.err
	}
	m.orders = append(m.orders, order)
	return nil
}

type mockAlerts struct {
	signals []*models.Signal
	orders  []models.Order
}

func (m *mockAlerts) SendSignal(_ context.Context, sig *models.Signal) {
	cp := *sig
	m.signals = append(m.signals, &cp)
}

func (m *mockAlerts) SendOrder(_ context.Context, order models.Order) {
	m.orders = append(m.orders, order)
}

// --- fixtures ---

type fixture struct {
	advisor  *Advisor
	cfg      *config.Config
	market   *mockSnapshot
	signals  *mockSignals
	accounts *mockAccounts
	trades   *mockTrades
	gateway  *mockGateway
	alerts   *mockAlerts
	clock    time.Time
}

func testConfig() *config.Config {
	cfg := &config.Config{
		AlertCooldown:   2 * time.Minute,
		ReentryCooldown: 10 * time.Minute,
		ProfitMargin:    7.0,
		OrderFee:        0,
		TradeAsset:      "cash",
	}
	cfg.Trader.Host = "localhost"
	cfg.Trader.Port = 17000
	cfg.Account.UserID = "test"
	cfg.EA.Symbols = []string{"6553"}
	cfg.EA.CoinSymbols = []string{"btc_jpy"}
	cfg.EA.Interval = time.Minute
	cfg.EA.Timeframe = "5m"
	cfg.Store.SignalURL = "http://localhost/signal"
	cfg.DB = "test"
	cfg.Order.EventType = string(models.EventOrder)
	cfg.Order.TradeType = string(models.TradeMargin)
	cfg.Order.OrderType = string(models.OrderLimit)
	cfg.Order.Side = string(models.OrderSideBuy)
	cfg.Order.Amount = 100
	cfg.TradingHours.Open = "09:00"
	cfg.TradingHours.Close = "15:00"
	cfg.TradingHours.Location = "UTC"
	return cfg
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		cfg:      testConfig(),
		market:   &mockSnapshot{},
		signals:  newMockSignals(),
		trades:   &mockTrades{},
		gateway:  &mockGateway{},
		alerts:   &mockAlerts{},
		clock:    time.Date(2018, 3, 14, 10, 0, 0, 0, time.UTC), // среда, внутри окна
	}
	f.accounts = &mockAccounts{accounts: map[string]*models.Account{
		"test": {ID: "test", Balance: 1_000_000},
	}}
	f.signals.now = func() time.Time { return f.clock }

	f.advisor = NewAdvisor(f.cfg, f.market, f.signals, f.accounts, f.trades, f.gateway, f.alerts)
	f.advisor.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) account() *models.Account {
	return f.accounts.accounts["test"]
}

func (f *fixture) storeSignal(symbol string, side models.Side, price float64) *models.Signal {
	sig := &models.Signal{
		Symbol:    symbol,
		Side:      side,
		Price:     price,
		Time:      f.clock.Add(-5 * time.Minute),
		UpdatedAt: f.clock.Add(-5 * time.Minute),
		CreatedAt: f.clock.Add(-5 * time.Minute),
	}
	f.signals.nextID++
	sig.ID = f.signals.nextID
	cp := *sig
	f.signals.byKey[sigKey(symbol, side)] = &cp
	return sig
}

func (f *fixture) holdPosition(symbol string, entry float64, age time.Duration) {
	acc := f.account()
	acc.Positions = append(acc.Positions, models.Position{
		ID:        int64(len(acc.Positions) + 1),
		AccountID: acc.ID,
		Symbol:    symbol,
		Side:      models.SideBuy,
		Quantity:  100,
		Price:     entry,
		CreatedAt: f.clock.Add(-age),
	})
}

// snapshotTick — снапшот без направления: только цена/время для decide.
func snapshotTick(symbol string, price float64, t time.Time) models.SnapshotSignal {
	return models.SnapshotSignal{
		Symbol:    symbol,
		Side:      models.SideNone,
		LastPrice: price,
		LastTime:  t,
	}
}

func (f *fixture) tick(symbol string, price float64) {
	f.clock = f.clock.Add(time.Minute)
	f.market.snaps = []models.SnapshotSignal{snapshotTick(symbol, price, f.clock)}
	f.advisor.EvaluateCycle(context.Background())
}
