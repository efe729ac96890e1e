package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"market_dashboard/models"
)

type Config struct {
	App struct {
		Environment string `envconfig:"ENV" default:"development"`
		LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
		LogDir      string `envconfig:"LOG_DIR" default:"logs"`
		LogConsole  bool   `envconfig:"LOG_CONSOLE" default:"true"`
	} `envconfig:"APP"`

	Server struct {
		Addr            string        `envconfig:"ADDR" default:":8000"`
		ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`
		WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"90s"`
		ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	} `envconfig:"SERVER"`

	Binance struct {
		RestURL        string        `envconfig:"REST_URL" default:"https://data-api.binance.vision"`
		WSURL          string        `envconfig:"WS_URL" default:"wss://data-stream.binance.vision/ws"`
		RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
		Streams        []string      `envconfig:"STREAMS" default:"!miniTicker@arr"`
	} `envconfig:"BINANCE"`

	Stream struct {
		RetryDelay       time.Duration `envconfig:"RETRY_DELAY" default:"5s"`
		ReadTimeout      time.Duration `envconfig:"READ_TIMEOUT" default:"60s"`
		HandshakeTimeout time.Duration `envconfig:"HANDSHAKE_TIMEOUT" default:"5s"`
	} `envconfig:"STREAM"`

	Query struct {
		QuoteAsset      string `envconfig:"QUOTE_ASSET" default:"USDT"`
		RankLimit       int    `envconfig:"RANK_LIMIT" default:"50"`
		LiveLimit       int    `envconfig:"LIVE_LIMIT" default:"20"`
		CandleLimit     int    `envconfig:"CANDLE_LIMIT" default:"100"`
		HistoryLimit    int    `envconfig:"HISTORY_LIMIT" default:"500"`
		DefaultInterval string `envconfig:"DEFAULT_INTERVAL" default:"4h"`
		Workers         int    `envconfig:"WORKERS" default:"8"`
		TimestampLayout string `envconfig:"TIMESTAMP_LAYOUT" default:"2006/01/02 15:04"`
		Timezone        string `envconfig:"TIMEZONE" default:"Local"`
	} `envconfig:"QUERY"`

	Breaker struct {
		MaxRequests  uint32        `envconfig:"MAX_REQUESTS" default:"3"`
		Interval     time.Duration `envconfig:"INTERVAL" default:"10s"`
		Timeout      time.Duration `envconfig:"TIMEOUT" default:"60s"`
		MinRequests  uint32        `envconfig:"MIN_REQUESTS" default:"3"`
		FailureRatio float64       `envconfig:"FAILURE_RATIO" default:"0.6"`
	} `envconfig:"BREAKER"`

	Metrics struct {
		Namespace       string        `envconfig:"NAMESPACE" default:"market_dashboard"`
		CollectInterval time.Duration `envconfig:"COLLECT_INTERVAL" default:"5s"`
	} `envconfig:"METRICS"`
}

// Load reads optional .env files into the environment, then decodes the
// environment into a Config. Missing .env files are not an error.
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if _, err := models.ParseInterval(c.Query.DefaultInterval, models.DefaultInterval); err != nil {
		return fmt.Errorf("config: QUERY_DEFAULT_INTERVAL: %w", err)
	}
	if c.Query.RankLimit <= 0 || c.Query.CandleLimit <= 0 || c.Query.HistoryLimit <= 0 {
		return fmt.Errorf("config: query limits must be positive")
	}
	if c.Query.Workers <= 0 {
		return fmt.Errorf("config: QUERY_WORKERS must be positive")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Query.Timezone; "Local" and "" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Query.Timezone == "" || c.Query.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Query.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: QUERY_TIMEZONE: %w", err)
	}
	return loc, nil
}

func (c *Config) DefaultInterval() models.Interval {
	iv, _ := models.ParseInterval(c.Query.DefaultInterval, models.DefaultInterval)
	return iv
}
