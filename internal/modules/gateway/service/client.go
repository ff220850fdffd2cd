package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"expert_advisor/internal/models"
	"expert_advisor/internal/modules/config"
	"expert_advisor/pkg/logger"

	"github.com/bytedance/sonic"
)

// Client — узкий клиент trader-гейтвея. Ордер уходит один раз, ретраев нет:
// без идемпотентных ключей на стороне гейтвея повтор финансового ордера
// небезопасен.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", cfg.Trader.Host, cfg.Trader.Port),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

type submitResp struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

// Submit шлёт ордер в гейтвей: POST /api/v1/order, envelope {orderInfo: ...}.
func (c *Client) Submit(ctx context.Context, order models.Order) error {
	payload, err := sonic.Marshal(map[string]any{
		"orderInfo": order,
	})
	if err != nil {
		return fmt.Errorf("Submit marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/v1/order",
		strings.NewReader(string(payload)),
	)
	if err != nil {
		return err
	}
	req.Header.Set("content-type", "application/json")

	logger.Info("[GATEWAY] отправка ордера %s %s @ %.4f x %.4f",
		order.Symbol, order.Side, order.Price, order.Amount)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("Submit: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Submit: status=%d body=%s", resp.StatusCode, string(body))
	}

	var r submitResp
	if err := sonic.Unmarshal(body, &r); err != nil {
		// гейтвей старого формата отвечает пустым телом — считаем принятым
		return nil
	}
	if !r.Success && r.Reason != "" {
		return fmt.Errorf("Submit: rejected: %s", r.Reason)
	}
	return nil
}
