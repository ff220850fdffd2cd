package service

import (
	"context"
	"testing"
	"time"

	"expert_advisor/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBarSource — скриптованный исторический ряд; buy-сигнал отдаёт только
// на первом баре, дальше чистые тики.
type fakeBarSource struct {
	bars     map[string][]models.Bar
	getCalls map[string]int
}

func newFakeBarSource(bars map[string][]models.Bar) *fakeBarSource {
	return &fakeBarSource{bars: bars, getCalls: make(map[string]int)}
}

func (f *fakeBarSource) GetBars(_ context.Context, symbol, _, _ string) ([]models.Bar, error) {
	f.getCalls[symbol]++
	return f.bars[symbol], nil
}

func (f *fakeBarSource) ComputeSignal(_ context.Context, symbol string, bars []models.Bar) (models.SnapshotSignal, error) {
	snap := models.SnapshotSignal{Symbol: symbol, Side: models.SideNone, IndicatorValue: 20}
	if len(bars) == 1 {
		snap.Side = models.SideBuy
	}
	return snap, nil
}

func backtestBars(base time.Time, closes ...float64) []models.Bar {
	bars := make([]models.Bar, 0, len(closes))
	for i, c := range closes {
		bars = append(bars, models.Bar{
			Time:   base.Add(time.Duration(i) * 5 * time.Minute),
			Open:   c,
			High:   c,
			Low:    c,
			Close:  c,
			Volume: 100,
		})
	}
	return bars
}

func TestReplay_LoadsOnceAppendsOnePerCycle(t *testing.T) {
	base := time.Date(2018, 3, 14, 9, 30, 0, 0, time.UTC)
	src := newFakeBarSource(map[string][]models.Bar{
		"6553": backtestBars(base, 995, 990, 1005),
	})
	cfg := testConfig()
	cfg.Backtest.Test = true
	cfg.Backtest.Date = "20180314"
	replay := NewReplay(cfg, src)

	for i := 1; i <= 3; i++ {
		snaps, err := replay.GetSignal(context.Background(), []string{"6553"}, "5m")
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, base.Add(time.Duration(i-1)*5*time.Minute), snaps[0].LastTime)
	}

	assert.Equal(t, 1, src.getCalls["6553"], "history fetched exactly once")
	assert.True(t, replay.Done())

	// ряд исчерпан: последний бар отдаётся повторно, дальше не едем
	snaps, err := replay.GetSignal(context.Background(), []string{"6553"}, "5m")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, 1005.0, snaps[0].LastPrice)
}

func TestReplay_SnapshotCarriesLastBar(t *testing.T) {
	base := time.Date(2018, 3, 14, 9, 30, 0, 0, time.UTC)
	src := newFakeBarSource(map[string][]models.Bar{
		"6553": backtestBars(base, 995, 990),
	})
	cfg := testConfig()
	cfg.Backtest.Test = true
	replay := NewReplay(cfg, src)

	snaps, err := replay.GetSignal(context.Background(), []string{"6553"}, "5m")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, models.SideBuy, snaps[0].Side)
	assert.Equal(t, 995.0, snaps[0].LastPrice)
	assert.Equal(t, base, snaps[0].LastTime)

	snaps, err = replay.GetSignal(context.Background(), []string{"6553"}, "5m")
	require.NoError(t, err)
	assert.Equal(t, models.SideNone, snaps[0].Side)
	assert.Equal(t, 990.0, snaps[0].LastPrice)
}

// Прогон [995, 990, 1005] через движок: запись сигнала, трейлинг вниз,
// исполнение на развороте. Повторный прогон после Reset обязан дать
// идентичную последовательность ордеров.
func TestReplay_DeterministicRun(t *testing.T) {
	base := time.Date(2018, 3, 14, 9, 30, 0, 0, time.UTC)
	bars := map[string][]models.Bar{"6553": backtestBars(base, 995, 990, 1005)}
	cfg := testConfig()
	cfg.Backtest.Test = true
	cfg.EA.CoinSymbols = nil

	run := func(replay *Replay) []models.Order {
		f := newFixture(t)
		adv := NewAdvisor(cfg, replay, f.signals, f.accounts, f.trades, f.gateway, f.alerts)
		adv.now = func() time.Time { return f.clock }
		for i := 0; i < 10 && !replay.Done(); i++ {
			adv.EvaluateCycle(context.Background())
		}
		return f.gateway.orders
	}

	replay := NewReplay(cfg, newFakeBarSource(bars))
	first := run(replay)
	require.Len(t, first, 1)
	assert.Equal(t, 1005.0, first[0].Price)

	replay.Reset()
	second := run(replay)
	assert.Equal(t, first, second)
}

func TestBacktest_StampsSignalsAndOrders(t *testing.T) {
	base := time.Date(2018, 3, 14, 9, 30, 0, 0, time.UTC)
	cfg := testConfig()
	cfg.Backtest.Test = true
	cfg.EA.CoinSymbols = nil
	replay := NewReplay(cfg, newFakeBarSource(map[string][]models.Bar{
		"6553": backtestBars(base, 995, 1005),
	}))

	f := newFixture(t)
	adv := NewAdvisor(cfg, replay, f.signals, f.accounts, f.trades, f.gateway, f.alerts)
	adv.now = func() time.Time { return f.clock }

	adv.EvaluateCycle(context.Background())
	sig, err := f.signals.Get(context.Background(), "6553")
	require.NoError(t, err)
	require.NotNil(t, sig)
	assert.Equal(t, "1", sig.Backtest)
	assert.Equal(t, base, sig.Mocktime)

	adv.EvaluateCycle(context.Background())
	require.Len(t, f.gateway.orders, 1)
	assert.Equal(t, "1", f.gateway.orders[0].Backtest)
	assert.Equal(t, base.Add(5*time.Minute), f.gateway.orders[0].Mocktime)
}

// На реплее заведомо неисполнимый сигнал даже не записывается; в лайве тот
// же снапшот пишется как есть.
func TestBacktest_PrecheckDivergesFromLive(t *testing.T) {
	f := newFixture(t)
	f.cfg.Backtest.Test = true
	f.account().Balance = 10 // ордер 995*100 не потянем

	f.market.snaps = []models.SnapshotSignal{snapshotSignal("6553", models.SideBuy, 995, f.clock)}
	f.advisor.EvaluateCycle(context.Background())
	assert.Equal(t, 0, f.signals.count(), "backtest drops unaffordable buy signal")

	f.cfg.Backtest.Test = false
	f.advisor.EvaluateCycle(context.Background())
	assert.Equal(t, 1, f.signals.count(), "live records it regardless")
}

func TestBacktest_PrecheckSellNeedsPosition(t *testing.T) {
	f := newFixture(t)
	f.cfg.Backtest.Test = true

	f.market.snaps = []models.SnapshotSignal{snapshotSignal("6553", models.SideSell, 1000, f.clock)}
	f.advisor.EvaluateCycle(context.Background())
	assert.Equal(t, 0, f.signals.count())

	f.holdPosition("6553", 980, time.Hour)
	f.clock = f.clock.Add(time.Minute)
	f.market.snaps = []models.SnapshotSignal{snapshotSignal("6553", models.SideSell, 1000, f.clock)}
	f.advisor.EvaluateCycle(context.Background())
	assert.Equal(t, 1, f.signals.count())
}
