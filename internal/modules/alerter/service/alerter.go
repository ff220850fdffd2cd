package service

import (
	"context"

	"expert_advisor/internal/models"
	"expert_advisor/pkg/logger"
)

type backend interface {
	SendSignal(ctx context.Context, sig *models.Signal) error
	SendOrder(ctx context.Context, order models.Order) error
}

// Alerter раздаёт событие по всем бэкендам. Fire-and-forget: ошибка алерта
// логируется и никогда не блокирует торговый путь.
type Alerter struct {
	backends []backend
}

func NewAlerter(slack *Slack, tg *Telegram) *Alerter {
	return &Alerter{backends: []backend{slack, tg}}
}

func (a *Alerter) SendSignal(ctx context.Context, sig *models.Signal) {
	for _, b := range a.backends {
		if err := b.SendSignal(ctx, sig); err != nil {
			logger.Warn("[ALERT] не удалось отправить сигнал %s: %v", sig.Symbol, err)
		}
	}
}

func (a *Alerter) SendOrder(ctx context.Context, order models.Order) {
	for _, b := range a.backends {
		if err := b.SendOrder(ctx, order); err != nil {
			logger.Warn("[ALERT] не удалось отправить ордер %s: %v", order.Symbol, err)
		}
	}
}
