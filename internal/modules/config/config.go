package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"expert_advisor/internal/helper"
	"expert_advisor/internal/models"

	"gopkg.in/yaml.v2"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
	slackURLENV       = "SLACK_WEBHOOK_URL"
)

// Config ...
type Config struct {
	DB string `yaml:"db_dsn"`

	// Куда шлём ордера (trader-гейтвей)
	Trader struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"trader"`

	// Поставщик данных: REST-эндпоинт сигналов/баров + WS котировок
	Store struct {
		SignalURL string `yaml:"signal_url"`
		WSURL     string `yaml:"ws_url"`
	} `yaml:"store"`

	Account struct {
		UserID     string `yaml:"user_id"`      // фиатный счёт
		CoinUserID string `yaml:"coin_user_id"` // крипто-счёт
	} `yaml:"account"`

	EA struct {
		Symbols     []string      `yaml:"symbols"`      // акции
		CoinSymbols []string      `yaml:"coin_symbols"` // крипто-пары
		Interval    time.Duration `yaml:"-"` // EA_INTERVAL
		Timeframe   string        `yaml:"timeframe"`
	} `yaml:"ea"`

	Backtest struct {
		Test     bool   `yaml:"test"`
		Date     string `yaml:"date"` // фиксированная дата реплея, YYYY-MM-DD
		BarsFile string `yaml:"bars_file"`
	} `yaml:"backtest"`

	Slack struct {
		URL string `yaml:"url"`
	} `yaml:"slack"`

	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`

	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`

	// Торговое окно для акций (крипта торгуется всегда)
	TradingHours struct {
		Open     string `yaml:"open"`  // "09:00"
		Close    string `yaml:"close"` // "15:00"
		Location string `yaml:"location"`
	} `yaml:"trading_hours"`

	// Болванка ордера
	Order struct {
		EventType string  `yaml:"event_type"`
		TradeType string  `yaml:"trade_type"`
		OrderType string  `yaml:"order_type"`
		Side      string  `yaml:"side"`
		Amount    float64 `yaml:"amount"`
	} `yaml:"order"`

	// Политики решений. Наблюдаемые в проде значения — дефолты, не литералы
	// в коде: порог профита и кулдауны различались между ревизиями.
	// Кулдауны задаются только через env (ALERT_COOLDOWN, REENTRY_COOLDOWN).
	AlertCooldown   time.Duration      `yaml:"-"`
	ReentryCooldown time.Duration      `yaml:"-"`
	ProfitMargin    float64            `yaml:"profit_margin"`      // брейк-ивен буфер для не-крипты
	OrderFee        float64            `yaml:"order_fee"`          // комиссия в проверке баланса
	ClearOnOrderErr bool               `yaml:"clear_on_order_err"` // снимать ли сигнал при фейле сабмита
	TradeAsset      string             `yaml:"trade_asset"`        // cash | coin
	CoinUnits       map[string]float64 `yaml:"coin_units"`         // торговые юниты по крипто-парам
	PriceTicks      map[string]float64 `yaml:"price_ticks"`        // шаг цены по инструментам
	WSMaxRetries    int                `yaml:"-"`                  // WS_MAX_RETRIES, лог после N неудачных коннектов
}

func NewConfig() (*Config, error) {

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	defer func() {
		_ = file.Close()
	}()

	decoder := yaml.NewDecoder(file)
	config := Config{
		AlertCooldown:   durationFromEnv("ALERT_COOLDOWN", "2m"),
		ReentryCooldown: durationFromEnv("REENTRY_COOLDOWN", "10m"),
		ProfitMargin:    floatFromEnv("PROFIT_MARGIN", 7.0),
		OrderFee:        floatFromEnv("ORDER_FEE", 0),
		ClearOnOrderErr: boolFromEnv("CLEAR_ON_ORDER_ERR", false),
		TradeAsset:      getenvDefault("TRADE_ASSET", "cash"),
		WSMaxRetries:    intFromEnv("WS_MAX_RETRIES", 8),
	}
	err = decoder.Decode(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	if token := os.Getenv(tokenTelegramENV); token != "" {
		config.Telegram.Token = token
	}
	if dsn := os.Getenv(databaseDSN); dsn != "" {
		config.DB = dsn
	}
	if url := os.Getenv(slackURLENV); url != "" {
		config.Slack.URL = url
	}
	if config.EA.Interval <= 0 {
		config.EA.Interval = durationFromEnv("EA_INTERVAL", "5m")
	}
	if config.EA.Timeframe == "" {
		config.EA.Timeframe = getenvDefault("TIMEFRAME", "5m")
	}
	config.EA.Timeframe = helper.NormTF(config.EA.Timeframe)
	if config.Order.EventType == "" {
		config.Order.EventType = string(models.EventOrder)
	}
	if config.Order.TradeType == "" {
		config.Order.TradeType = string(models.TradeMargin)
	}
	if config.Order.OrderType == "" {
		config.Order.OrderType = string(models.OrderLimit)
	}
	if config.Order.Side == "" {
		config.Order.Side = string(models.OrderSideBuy)
	}
	if config.Order.Amount <= 0 {
		config.Order.Amount = 100
	}
	if config.TradingHours.Open == "" {
		config.TradingHours.Open = "09:00"
	}
	if config.TradingHours.Close == "" {
		config.TradingHours.Close = "15:00"
	}
	if config.TradingHours.Location == "" {
		config.TradingHours.Location = "Asia/Tokyo"
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// validate — fail-fast на обязательные секции, без них движок не стартует.
func (c *Config) validate() error {
	if c.Trader.Host == "" || c.Trader.Port == 0 {
		return fmt.Errorf("config.trader required")
	}
	if c.Account.UserID == "" {
		return fmt.Errorf("config.account required")
	}
	if len(c.EA.Symbols) == 0 && len(c.EA.CoinSymbols) == 0 {
		return fmt.Errorf("config.ea required")
	}
	if c.Store.SignalURL == "" {
		return fmt.Errorf("config.store required")
	}
	if c.DB == "" {
		return fmt.Errorf("config.db_dsn required")
	}
	return nil
}

// OrderTemplate — типизированная болванка из конфига.
func (c *Config) OrderTemplate() models.OrderTemplate {
	return models.OrderTemplate{
		EventType: models.EventType(c.Order.EventType),
		TradeType: models.TradeType(c.Order.TradeType),
		OrderType: models.OrderType(c.Order.OrderType),
		Side:      models.OrderSide(c.Order.Side),
		Amount:    c.Order.Amount,
	}
}

// CoinUnit — торговый юнит крипто-пары; если не задан, дефолтная сумма.
func (c *Config) CoinUnit(symbol string) float64 {
	if u, ok := c.CoinUnits[symbol]; ok && u > 0 {
		return u
	}
	return c.Order.Amount
}

// PriceTick — шаг цены инструмента; 0 значит "не округлять".
func (c *Config) PriceTick(symbol string) float64 {
	return c.PriceTicks[symbol]
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func boolFromEnv(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if v == "1" || v == "true" || v == "TRUE" {
			return true
		}
		if v == "0" || v == "false" || v == "FALSE" {
			return false
		}
	}
	return def
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func durationFromEnv(key, def string) time.Duration {
	val := getenvDefault(key, def)
	d, err := time.ParseDuration(val)
	if err != nil {
		d, _ = time.ParseDuration(def)
	}
	return d
}
