package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"expert_advisor/internal/models"
	"expert_advisor/internal/modules/config"
	"expert_advisor/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
)

// Client — клиент поставщика данных: REST для сигналов/баров,
// WS для последней цены. Сам индикатор считается на стороне сервиса,
// мы получаем только готовый результат.
type Client struct {
	cfg      *config.Config
	http     *http.Client
	wsDialer *websocket.Dialer

	mu     sync.RWMutex
	prices map[string]float64

	wsCancel    context.CancelFunc
	streamState func(bool) // nil-safe, кормит health
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: 10 * time.Second},
		wsDialer: &websocket.Dialer{},
		prices:   make(map[string]float64),
	}
}

// SetStreamState подключает сток состояния WS-стрима; вызывается до Init.
func (c *Client) SetStreamState(fn func(bool)) { c.streamState = fn }

func (c *Client) notifyStream(connected bool) {
	if c.streamState != nil {
		c.streamState(connected)
	}
}

// Init поднимает WS-стрим котировок по всему вотчлисту.
func (c *Client) Init(ctx context.Context) error {
	if c.cfg.Store.WSURL == "" {
		return nil
	}
	wsCtx, cancel := context.WithCancel(ctx)
	c.wsCancel = cancel

	symbols := append([]string{}, c.cfg.EA.Symbols...)
	symbols = append(symbols, c.cfg.EA.CoinSymbols...)
	go c.streamPrices(wsCtx, symbols)
	return nil
}

// Close гасит WS-стрим. In-flight запросы не отменяем, просто не перезапускаем.
func (c *Client) Close() error {
	if c.wsCancel != nil {
		c.wsCancel()
		c.wsCancel = nil
	}
	return nil
}

// Reconnect — close/reopen хэндла после полного отказа поставщика.
func (c *Client) Reconnect(ctx context.Context) error {
	logger.Warn("[MARKET] переподключение поставщика данных")
	if err := c.Close(); err != nil {
		return err
	}
	return c.Init(ctx)
}

type snapshotResp struct {
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"`
	K         float64 `json:"k"`
	LastPrice float64 `json:"lastPrice"`
	LastTime  string  `json:"lastTime"`
}

// GetSignal тянет свежепосчитанные сигналы по списку инструментов.
func (c *Client) GetSignal(ctx context.Context, symbols []string, timeframe string) ([]models.SnapshotSignal, error) {
	u := fmt.Sprintf("%s?symbols=%s&timeframe=%s",
		c.cfg.Store.SignalURL,
		url.QueryEscape(strings.Join(symbols, ",")),
		url.QueryEscape(timeframe),
	)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("GetSignal: %w", err)
	}

	var raw []snapshotResp
	if err := sonic.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("GetSignal unmarshal: %w", err)
	}
	out := make([]models.SnapshotSignal, 0, len(raw))
	for _, r := range raw {
		out = append(out, models.SnapshotSignal{
			Symbol:         r.Symbol,
			Side:           models.Side(r.Side),
			IndicatorValue: r.K,
			LastPrice:      r.LastPrice,
			LastTime:       parseTime(r.LastTime),
		})
	}
	return out, nil
}

// GetBars — исторические свечи (бэктест грузит их одним запросом).
func (c *Client) GetBars(ctx context.Context, symbol, timeframe, date string) ([]models.Bar, error) {
	u := fmt.Sprintf("%s/bars?symbol=%s&timeframe=%s&date=%s",
		strings.TrimSuffix(c.cfg.Store.SignalURL, "/"),
		url.QueryEscape(symbol),
		url.QueryEscape(timeframe),
		url.QueryEscape(date),
	)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("GetBars: %w", err)
	}
	var bars []models.Bar
	if err := sonic.Unmarshal(body, &bars); err != nil {
		return nil, fmt.Errorf("GetBars unmarshal: %w", err)
	}
	return bars, nil
}

// ComputeSignal — сигнал по готовой пачке баров (путь бэктеста: бары наши,
// математика индикатора — по-прежнему на стороне сервиса).
func (c *Client) ComputeSignal(ctx context.Context, symbol string, bars []models.Bar) (models.SnapshotSignal, error) {
	payload, err := sonic.Marshal(map[string]any{
		"symbol": symbol,
		"bars":   bars,
	})
	if err != nil {
		return models.SnapshotSignal{}, fmt.Errorf("ComputeSignal marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimSuffix(c.cfg.Store.SignalURL, "/")+"/compute",
		strings.NewReader(string(payload)),
	)
	if err != nil {
		return models.SnapshotSignal{}, err
	}
	req.Header.Set("content-type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.SnapshotSignal{}, fmt.Errorf("ComputeSignal: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.SnapshotSignal{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return models.SnapshotSignal{}, fmt.Errorf("ComputeSignal: status=%d body=%s", resp.StatusCode, string(body))
	}

	var r snapshotResp
	if err := sonic.Unmarshal(body, &r); err != nil {
		return models.SnapshotSignal{}, fmt.Errorf("ComputeSignal unmarshal: %w", err)
	}
	return models.SnapshotSignal{
		Symbol:         r.Symbol,
		Side:           models.Side(r.Side),
		IndicatorValue: r.K,
		LastPrice:      r.LastPrice,
		LastTime:       parseTime(r.LastTime),
	}, nil
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status=%d body=%s", resp.StatusCode, string(body))
	}
	return body, nil
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
