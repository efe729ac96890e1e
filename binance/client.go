package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"market_dashboard/metrics"
	"market_dashboard/middleware"
	"market_dashboard/models"
	"market_dashboard/parser"
)

const (
	DefaultRestURL = "https://data-api.binance.vision"

	tickerPath       = "/api/v3/ticker/24hr"
	klinesPath       = "/api/v3/klines"
	exchangeInfoPath = "/api/v3/exchangeInfo"

	maxKlineLimit = 1000
	maxBodyBytes  = 32 << 20
)

// Client talks to the public market data REST API. Every call goes through a
// circuit breaker; client errors (4xx) do not count as breaker failures.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	timeout    time.Duration
	metrics    *metrics.Metrics
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

func WithBreaker(b *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.breaker = b }
}

// WithTimeout bounds every single provider call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultRestURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		c.breaker = middleware.NewCircuitBreaker("binance-rest", middleware.DefaultBreakerSettings())
	}
	return c
}

// Tickers returns the 24h rolling ticker of every listed symbol, in provider order.
func (c *Client) Tickers(ctx context.Context) ([]models.MarketTicker, error) {
	var tickers []models.MarketTicker
	if err := c.get(ctx, "ticker", tickerPath, nil, &tickers); err != nil {
		return nil, err
	}
	return tickers, nil
}

// Klines returns up to limit candles of symbol, oldest first, starting at start
// when given.
func (c *Client) Klines(ctx context.Context, symbol string, interval models.Interval, start *time.Time, limit int) ([]models.Candle, error) {
	if limit <= 0 || limit > maxKlineLimit {
		limit = maxKlineLimit
	}

	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("interval", interval.String())
	query.Set("limit", strconv.Itoa(limit))
	if start != nil {
		query.Set("startTime", strconv.FormatInt(start.UnixMilli(), 10))
	}

	var rows [][]interface{}
	if err := c.get(ctx, "klines", klinesPath, query, &rows); err != nil {
		return nil, err
	}

	candles, err := parser.ParseKlines(rows)
	if err != nil {
		return nil, fmt.Errorf("klines %s: %w", symbol, err)
	}
	return candles, nil
}

// ExchangeInfo returns the symbol metadata of every listed instrument.
func (c *Client) ExchangeInfo(ctx context.Context) ([]models.SymbolInfo, error) {
	var info exchangeInfoResponse
	if err := c.get(ctx, "exchange_info", exchangeInfoPath, nil, &info); err != nil {
		return nil, err
	}
	return info.Symbols, nil
}

type rawResponse struct {
	status    int
	body      []byte
	abandoned error // caller's context ended before the provider answered
}

// get runs one call through the breaker. A caller that gave up (its own ctx
// cancelled or past its deadline) is not a provider failure and never counts
// against the breaker; expiry of the per-call timeout does.
func (c *Client) get(parent context.Context, endpoint, path string, query url.Values, out interface{}) error {
	if err := parent.Err(); err != nil {
		return fmt.Errorf("%s: %w", endpoint, err)
	}

	ctx := parent
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(parent, c.timeout)
		defer cancel()
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if parentErr := parent.Err(); parentErr != nil {
				return &rawResponse{abandoned: parentErr}, nil
			}
			return nil, err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			if parentErr := parent.Err(); parentErr != nil {
				return &rawResponse{abandoned: parentErr}, nil
			}
			return nil, err
		}

		raw := &rawResponse{status: resp.StatusCode, body: body}
		if resp.StatusCode >= 400 {
			apiErr := newAPIError(raw)
			if !apiErr.IsClientError() {
				return nil, apiErr
			}
		}
		return raw, nil
	})
	if err != nil {
		c.providerError(endpoint)
		return fmt.Errorf("%s: %w", endpoint, err)
	}

	raw := result.(*rawResponse)
	if raw.abandoned != nil {
		return fmt.Errorf("%s: %w", endpoint, raw.abandoned)
	}
	if raw.status >= 400 {
		c.providerError(endpoint)
		return fmt.Errorf("%s: %w", endpoint, newAPIError(raw))
	}

	if err := json.Unmarshal(raw.body, out); err != nil {
		c.providerError(endpoint)
		return fmt.Errorf("%s: decode response: %w", endpoint, err)
	}
	return nil
}

func (c *Client) providerError(endpoint string) {
	c.metrics.ProviderError(endpoint)
}

func newAPIError(raw *rawResponse) *APIError {
	apiErr := &APIError{StatusCode: raw.status}
	_ = json.Unmarshal(raw.body, apiErr)
	return apiErr
}
