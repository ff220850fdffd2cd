package service

import (
	"context"
	"time"

	"expert_advisor/pkg/logger"

	"github.com/bytedance/sonic"
)

// SetPrice / LastPrice — кэш последних цен, который кормит WS-стрим.

func (c *Client) SetPrice(symbol string, price float64) {
	c.mu.Lock()
	c.prices[symbol] = price
	c.mu.Unlock()
}

func (c *Client) LastPrice(symbol string) float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.prices[symbol]
}

type wsTick struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

// streamPrices держит одно WS-соединение на весь вотчлист: reconnect с
// бэкоффом, ping раз в 15 секунд, тик — {symbol, price}.
func (c *Client) streamPrices(ctx context.Context, symbols []string) {
	retry := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := c.wsDialer.Dial(c.cfg.Store.WSURL, nil)
		if err != nil {
			retry++
			if retry > c.cfg.WSMaxRetries {
				logger.Error("[MARKET] WS: не удалось подключиться после %d попыток: %v", retry, err)
				retry = 0
			}
			time.Sleep(time.Duration(300*retry) * time.Millisecond)
			continue
		}
		retry = 0
		c.notifyStream(true)

		_ = conn.WriteJSON(map[string]any{"method": "sub.ticker", "symbols": symbols})

		stopPing := make(chan struct{})
		go func() {
			t := time.NewTicker(15 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-stopPing:
					return
				case <-ctx.Done():
					return
				case <-t.C:
					_ = conn.WriteJSON(map[string]any{"method": "ping"})
				}
			}
		}()

		for {
			select {
			case <-ctx.Done():
				close(stopPing)
				_ = conn.Close()
				c.notifyStream(false)
				return
			default:
			}

			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				close(stopPing)
				_ = conn.Close()
				c.notifyStream(false)
				break // реконнект внешним циклом
			}

			var tick wsTick
			if err := sonic.Unmarshal(msg, &tick); err != nil || tick.Symbol == "" {
				continue
			}
			c.SetPrice(tick.Symbol, tick.Price)
		}
	}
}
