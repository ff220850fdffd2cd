package service

import (
	"context"
	"sync/atomic"
	"time"

	"expert_advisor/internal/models"
	"expert_advisor/internal/modules/config"
	"expert_advisor/pkg/logger"
)

// Коллабораторы движка. Всё durable-состояние живёт за этими интерфейсами,
// движок сам ничем не владеет — читает, решает, пишет.

type MarketSnapshot interface {
	GetSignal(ctx context.Context, symbols []string, timeframe string) ([]models.SnapshotSignal, error)
	Reconnect(ctx context.Context) error
}

type SignalStore interface {
	Get(ctx context.Context, symbol string) (*models.Signal, error)
	Set(ctx context.Context, sig *models.Signal) error
	Remove(ctx context.Context, id int64) error
	RemoveAll(ctx context.Context) error
}

type AccountView interface {
	Get(ctx context.Context, accountID string) (*models.Account, error)
}

type TradeLog interface {
	Record(ctx context.Context, accountID string, order models.Order) error
	UpdateStatus(ctx context.Context) error
}

type OrderGateway interface {
	Submit(ctx context.Context, order models.Order) error
}

type Alerter interface {
	SendSignal(ctx context.Context, sig *models.Signal)
	SendOrder(ctx context.Context, order models.Order)
}

// Heartbeat — необязательный сток для health-эндпоинтов.
type Heartbeat interface {
	SetReady(v bool)
	TouchCycle(t time.Time)
}

// Advisor — EA-движок: по таймеру переоценивает вотчлист, сверяет свежий
// сигнал с записанным и решает — обновить сигнал, снять его ордером или
// ничего не делать.
type Advisor struct {
	cfg      *config.Config
	market   MarketSnapshot
	signals  SignalStore
	accounts AccountView
	trades   TradeLog
	gateway  OrderGateway
	alerts   Alerter

	// кэш счётов на цикл: баланс следующего инструмента должен видеть
	// эффект ордера предыдущего
	account     *models.Account
	coinAccount *models.Account

	now    func() time.Time
	health Heartbeat // nil-safe

	dropped atomic.Int64
	cancel  context.CancelFunc
	stopped chan struct{}
}

func NewAdvisor(
	cfg *config.Config,
	market MarketSnapshot,
	signals SignalStore,
	accounts AccountView,
	trades TradeLog,
	gateway OrderGateway,
	alerts Alerter,
) *Advisor {
	return &Advisor{
		cfg:      cfg,
		market:   market,
		signals:  signals,
		accounts: accounts,
		trades:   trades,
		gateway:  gateway,
		alerts:   alerts,
		now:      time.Now,
	}
}

// SetHeartbeat подключает health-состояние; вызывается до Start.
func (a *Advisor) SetHeartbeat(hb Heartbeat) { a.health = hb }

// Start проверяет баланс и запускает цикл опроса. Нулевой баланс — не
// ошибка: логируем и не стартуем (как вёл себя прод).
func (a *Advisor) Start(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	a.cancel = cancel
	a.stopped = make(chan struct{})

	if err := a.refreshAccounts(ctx); err != nil {
		cancel()
		return err
	}
	if a.account == nil || a.account.Balance <= 0 {
		logger.Warn("[EA] счёт %s: доступный баланс 0, EA не запускаем", a.cfg.Account.UserID)
		cancel()
		close(a.stopped)
		return nil
	}

	if a.health != nil {
		a.health.SetReady(true)
	}
	go a.loop(ctx)
	return nil
}

// Stop гасит таймер. In-flight вызовы не отменяем принудительно,
// просто больше не перезапускаем.
func (a *Advisor) Stop() {
	if a.health != nil {
		a.health.SetReady(false)
	}
	if a.cancel != nil {
		a.cancel()
	}
	if a.stopped != nil {
		<-a.stopped
	}
}

// loop — один логический таймер. Цикл выполняется в этой же горутине,
// перекрытие циклов невозможно по построению: тики, пришедшие пока цикл
// считается, тикер молча выкидывает, а мы фиксируем это по затянувшемуся
// циклу и логируем ворнинг.
func (a *Advisor) loop(ctx context.Context) {
	defer close(a.stopped)

	ticker := time.NewTicker(a.cfg.EA.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			started := time.Now()
			a.EvaluateCycle(ctx)
			if elapsed := time.Since(started); elapsed > a.cfg.EA.Interval {
				a.dropped.Add(1)
				logger.Warn("[EA] цикл занял %s при интервале %s, тик пропущен",
					elapsed, a.cfg.EA.Interval)
			}
		}
	}
}

// DroppedTicks — сколько тиков было пропущено из-за затянувшихся циклов.
func (a *Advisor) DroppedTicks() int64 { return a.dropped.Load() }

// refreshAccounts перечитывает фиатный и (если задан) крипто-счёт.
func (a *Advisor) refreshAccounts(ctx context.Context) error {
	acc, err := a.accounts.Get(ctx, a.cfg.Account.UserID)
	if err != nil {
		return err
	}
	if acc != nil {
		a.account = acc
	}

	if a.cfg.Account.CoinUserID != "" {
		coin, err := a.accounts.Get(ctx, a.cfg.Account.CoinUserID)
		if err != nil {
			return err
		}
		if coin != nil {
			a.coinAccount = coin
		}
	}
	return nil
}

// fundingAccount — какой счёт фондирует инструмент: крипта ходит через
// отдельный счёт, если он настроен.
func (a *Advisor) fundingAccount(class models.AssetClass) *models.Account {
	if class == models.AssetCrypto && a.coinAccount != nil {
		return a.coinAccount
	}
	return a.account
}

// assetClass — класс инструмента по вотчлисту конфига.
func (a *Advisor) assetClass(symbol string) models.AssetClass {
	for _, s := range a.cfg.EA.CoinSymbols {
		if s == symbol {
			return models.AssetCrypto
		}
	}
	return models.AssetStock
}
