package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market_dashboard/models"
)

func TestLoad(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := Load("does-not-exist.env")
		require.NoError(t, err)

		assert.Equal(t, ":8000", cfg.Server.Addr)
		assert.Equal(t, "wss://data-stream.binance.vision/ws", cfg.Binance.WSURL)
		assert.Equal(t, []string{"!miniTicker@arr"}, cfg.Binance.Streams)
		assert.Equal(t, 5*time.Second, cfg.Stream.RetryDelay)
		assert.Equal(t, "USDT", cfg.Query.QuoteAsset)
		assert.Equal(t, 50, cfg.Query.RankLimit)
		assert.Equal(t, 20, cfg.Query.LiveLimit)
		assert.Equal(t, 100, cfg.Query.CandleLimit)
		assert.Equal(t, "2006/01/02 15:04", cfg.Query.TimestampLayout)
		assert.Equal(t, models.FourHours, cfg.DefaultInterval())
		assert.Equal(t, uint32(3), cfg.Breaker.MinRequests)
		assert.InDelta(t, 0.6, cfg.Breaker.FailureRatio, 1e-9)

		loc, err := cfg.Location()
		require.NoError(t, err)
		assert.Equal(t, time.Local, loc)
	})

	t.Run("environment overrides", func(t *testing.T) {
		t.Setenv("SERVER_ADDR", ":9999")
		t.Setenv("QUERY_RANK_LIMIT", "10")
		t.Setenv("QUERY_DEFAULT_INTERVAL", "1h")
		t.Setenv("STREAM_RETRY_DELAY", "250ms")
		t.Setenv("QUERY_TIMEZONE", "UTC")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, ":9999", cfg.Server.Addr)
		assert.Equal(t, 10, cfg.Query.RankLimit)
		assert.Equal(t, models.OneHour, cfg.DefaultInterval())
		assert.Equal(t, 250*time.Millisecond, cfg.Stream.RetryDelay)

		loc, err := cfg.Location()
		require.NoError(t, err)
		assert.Equal(t, "UTC", loc.String())
	})

	t.Run("invalid default interval", func(t *testing.T) {
		t.Setenv("QUERY_DEFAULT_INTERVAL", "2m")
		_, err := Load()
		assert.ErrorIs(t, err, models.ErrUnknownInterval)
	})

	t.Run("non-positive workers", func(t *testing.T) {
		t.Setenv("QUERY_WORKERS", "0")
		_, err := Load()
		assert.Error(t, err)
	})
}
