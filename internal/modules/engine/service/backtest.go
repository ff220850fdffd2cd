package service

import (
	"context"
	"fmt"
	"os"
	"sync"

	"expert_advisor/internal/models"
	"expert_advisor/internal/modules/config"
	"expert_advisor/pkg/logger"

	"github.com/bytedance/sonic"
)

// BarSource — откуда реплей берёт исторические бары и кому отдаёт их на
// расчёт сигнала (математика индикатора остаётся снаружи).
type BarSource interface {
	GetBars(ctx context.Context, symbol, timeframe, date string) ([]models.Bar, error)
	ComputeSignal(ctx context.Context, symbol string, bars []models.Bar) (models.SnapshotSignal, error)
}

// Replay подменяет живой фид локальной упорядоченной коллекцией: один раз
// бакает весь исторический ряд в input, на каждом цикле докидывает по бару
// в output и отдаёт накопленное. Цикл бэктеста структурно не отличим от
// живого поллинга — решения принимает тот же код движка.
type Replay struct {
	cfg *config.Config
	src BarSource

	mu     sync.Mutex
	input  map[string][]models.Bar
	output map[string][]models.Bar
}

func NewReplay(cfg *config.Config, src BarSource) *Replay {
	return &Replay{
		cfg:    cfg,
		src:    src,
		input:  make(map[string][]models.Bar),
		output: make(map[string][]models.Bar),
	}
}

// GetSignal — тот же контракт, что у живого поставщика.
func (r *Replay) GetSignal(ctx context.Context, symbols []string, timeframe string) ([]models.SnapshotSignal, error) {
	out := make([]models.SnapshotSignal, 0, len(symbols))
	for _, symbol := range symbols {
		bars, err := r.advance(ctx, symbol, timeframe)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			continue
		}

		snap, err := r.src.ComputeSignal(ctx, symbol, bars)
		if err != nil {
			return nil, fmt.Errorf("replay %s: %w", symbol, err)
		}
		last := bars[len(bars)-1]
		snap.Symbol = symbol
		snap.LastPrice = last.Close
		snap.LastTime = last.Time
		out = append(out, snap)
	}
	return out, nil
}

// Reconnect — локальная коллекция, переподключать нечего.
func (r *Replay) Reconnect(_ context.Context) error { return nil }

// advance бакает ряд при первом обращении и сдвигает реплей на один бар.
func (r *Replay) advance(ctx context.Context, symbol, timeframe string) ([]models.Bar, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.input[symbol]; !ok {
		bars, err := r.loadBars(ctx, symbol, timeframe)
		if err != nil {
			return nil, err
		}
		r.input[symbol] = bars
		r.output[symbol] = nil
		logger.Info("[REPLAY] %s: загружено %d баров", symbol, len(bars))
	}

	in := r.input[symbol]
	got := r.output[symbol]
	if len(got) < len(in) {
		r.output[symbol] = append(got, in[len(got)])
	}

	// копия: накопленное отдаём наружу, внутренние коллекции не шарим
	res := make([]models.Bar, len(r.output[symbol]))
	copy(res, r.output[symbol])
	return res, nil
}

func (r *Replay) loadBars(ctx context.Context, symbol, timeframe string) ([]models.Bar, error) {
	if r.cfg.Backtest.BarsFile != "" {
		return loadBarsFile(r.cfg.Backtest.BarsFile, symbol)
	}
	return r.src.GetBars(ctx, symbol, timeframe, r.cfg.Backtest.Date)
}

// Done — по всем инструментам ряд отдан до конца.
func (r *Replay) Done() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.input) == 0 {
		return false
	}
	for symbol, in := range r.input {
		if len(r.output[symbol]) < len(in) {
			return false
		}
	}
	return true
}

// Reset откатывает реплей на начало ряда (повторный прогон того же ряда
// обязан дать идентичную последовательность сигналов и ордеров).
func (r *Replay) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for symbol := range r.output {
		r.output[symbol] = nil
	}
}

// loadBarsFile — JSON-файл вида {"symbol": [bar, ...], ...}.
func loadBarsFile(path, symbol string) ([]models.Bar, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loadBarsFile: %w", err)
	}
	var all map[string][]models.Bar
	if err := sonic.Unmarshal(raw, &all); err != nil {
		return nil, fmt.Errorf("loadBarsFile unmarshal: %w", err)
	}
	return all[symbol], nil
}
