package binance

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market_dashboard/middleware"
	"market_dashboard/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL,
		WithHTTPClient(srv.Client()),
		WithBreaker(middleware.NewCircuitBreaker(t.Name(), middleware.DefaultBreakerSettings())),
	)
}

func TestClientTickers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, tickerPath, r.URL.Path)
		w.Write([]byte(`[
			{"symbol":"BTCUSDT","lastPrice":"64000.1","priceChangePercent":"1.5","volume":"1200.5","quoteVolume":"76800000"},
			{"symbol":"ETHBTC","lastPrice":"0.05","priceChangePercent":"-0.2","volume":"bad","quoteVolume":"10"}
		]`))
	})

	tickers, err := c.Tickers(context.Background())
	require.NoError(t, err)
	require.Len(t, tickers, 2)
	assert.Equal(t, "BTCUSDT", tickers[0].Symbol)
	assert.Equal(t, 1200.5, tickers[0].RankVolume())
	assert.Equal(t, 0.0, tickers[1].RankVolume())
}

func TestClientKlines(t *testing.T) {
	start := time.UnixMilli(1700000000000)

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, klinesPath, r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "ABCUSDT", q.Get("symbol"))
		assert.Equal(t, "1h", q.Get("interval"))
		assert.Equal(t, "100", q.Get("limit"))
		assert.Equal(t, "1700000000000", q.Get("startTime"))
		w.Write([]byte(`[
			[1700000000000,"1.0","2.0","0.5","1.5","100",1700003599999,"150",12,"50","75","0"],
			[1700003600000,"1.5","2.5","1.0","2.0","200",1700007199999,"400",20,"80","160","0"]
		]`))
	})

	candles, err := c.Klines(context.Background(), "ABCUSDT", models.OneHour, &start, 100)
	require.NoError(t, err)
	require.Len(t, candles, 2)
	assert.Equal(t, start, candles[0].OpenTime)
	assert.Equal(t, 1.5, candles[0].Close)
	assert.Equal(t, 2.0, candles[1].Close)
	assert.Equal(t, 400.0, candles[1].QuoteVolume)
	assert.Equal(t, int64(20), candles[1].Trades)
}

func TestClientExchangeInfo(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"timezone":"UTC","serverTime":1,"symbols":[
			{"symbol":"BTCUSDT","status":"TRADING","baseAsset":"BTC","quoteAsset":"USDT"}
		]}`))
	})

	symbols, err := c.ExchangeInfo(context.Background())
	require.NoError(t, err)
	require.Len(t, symbols, 1)
	assert.Equal(t, "BTC", symbols[0].BaseAsset)
	assert.Equal(t, "USDT", symbols[0].QuoteAsset)
}

func TestClientErrors(t *testing.T) {
	t.Run("client error is an APIError and does not trip the breaker", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"code":-1121,"msg":"Invalid symbol."}`))
		})

		for i := 0; i < 5; i++ {
			_, err := c.Klines(context.Background(), "NOPE", models.OneHour, nil, 10)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
			assert.Equal(t, -1121, apiErr.Code)
			assert.True(t, apiErr.IsClientError())
		}
		assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
	})

	t.Run("server errors open the breaker", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusInternalServerError)
		})

		for i := 0; i < 3; i++ {
			_, err := c.Tickers(context.Background())
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.False(t, apiErr.IsClientError())
		}

		_, err := c.Tickers(context.Background())
		assert.ErrorIs(t, err, gobreaker.ErrOpenState)
		assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	})

	t.Run("rate limit is not a client error", func(t *testing.T) {
		err := &APIError{StatusCode: http.StatusTooManyRequests}
		assert.False(t, err.IsClientError())
	})

	t.Run("malformed body", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{not json`))
		})
		_, err := c.Tickers(context.Background())
		assert.Error(t, err)
	})

	t.Run("request timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		c := NewClient(srv.URL, WithHTTPClient(srv.Client()), WithTimeout(50*time.Millisecond))
		_, err := c.Tickers(context.Background())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}

func TestClientCallerCancellation(t *testing.T) {
	var slow atomic.Bool
	slow.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if slow.Load() {
			select {
			case <-r.Context().Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL,
		WithHTTPClient(srv.Client()),
		WithBreaker(middleware.NewCircuitBreaker(t.Name(), middleware.DefaultBreakerSettings())),
	)

	t.Run("abandoned queries do not open the breaker", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			_, err := c.Tickers(ctx)
			cancel()
			assert.ErrorIs(t, err, context.DeadlineExceeded)
			assert.NotErrorIs(t, err, gobreaker.ErrOpenState)
		}
		assert.Equal(t, gobreaker.StateClosed, c.breaker.State())

		slow.Store(false)
		tickers, err := c.Tickers(context.Background())
		require.NoError(t, err)
		assert.Empty(t, tickers)
	})

	t.Run("already cancelled context never reaches the provider", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := c.Tickers(ctx)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, gobreaker.StateClosed, c.breaker.State())
	})
}

func TestClientPerCallTimeoutOpensBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL,
		WithHTTPClient(srv.Client()),
		WithTimeout(20*time.Millisecond),
		WithBreaker(middleware.NewCircuitBreaker(t.Name(), middleware.DefaultBreakerSettings())),
	)

	for i := 0; i < 3; i++ {
		_, err := c.Tickers(context.Background())
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	}
	_, err := c.Tickers(context.Background())
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}
