// Package market answers the dashboard's queries: ranked instruments with their
// latest candle statistics, raw candle history, and the live ticker view.
package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"market_dashboard/aggregator"
	"market_dashboard/cache"
	"market_dashboard/metrics"
	"market_dashboard/middleware"
	"market_dashboard/models"
	"market_dashboard/ranker"
	"market_dashboard/utils"
)

var ErrInvalidInput = errors.New("invalid input")

const dateLayout = "2006-01-02"

// Provider is the exchange's request/response API.
type Provider interface {
	Tickers(ctx context.Context) ([]models.MarketTicker, error)
	Klines(ctx context.Context, symbol string, interval models.Interval, start *time.Time, limit int) ([]models.Candle, error)
	ExchangeInfo(ctx context.Context) ([]models.SymbolInfo, error)
}

type Options struct {
	QuoteAsset      string
	RankLimit       int
	CandleLimit     int
	HistoryLimit    int
	LiveLimit       int
	Workers         int
	DefaultInterval models.Interval
	TimestampLayout string
	Location        *time.Location
}

func DefaultOptions() Options {
	return Options{
		QuoteAsset:      "USDT",
		RankLimit:       50,
		CandleLimit:     100,
		HistoryLimit:    500,
		LiveLimit:       cache.DefaultTopLimit,
		Workers:         8,
		DefaultInterval: models.DefaultInterval,
		TimestampLayout: "2006/01/02 15:04",
		Location:        time.Local,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.QuoteAsset == "" {
		o.QuoteAsset = def.QuoteAsset
	}
	if o.RankLimit <= 0 {
		o.RankLimit = def.RankLimit
	}
	if o.CandleLimit <= 0 {
		o.CandleLimit = def.CandleLimit
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = def.HistoryLimit
	}
	if o.LiveLimit <= 0 {
		o.LiveLimit = def.LiveLimit
	}
	if o.Workers <= 0 {
		o.Workers = def.Workers
	}
	if o.DefaultInterval == "" {
		o.DefaultInterval = def.DefaultInterval
	}
	if o.TimestampLayout == "" {
		o.TimestampLayout = def.TimestampLayout
	}
	if o.Location == nil {
		o.Location = def.Location
	}
	return o
}

type Service struct {
	provider Provider
	cache    *cache.TickerCache
	metrics  *metrics.Metrics
	opts     Options
}

func NewService(provider Provider, c *cache.TickerCache, m *metrics.Metrics, opts Options) *Service {
	return &Service{
		provider: provider,
		cache:    c,
		metrics:  m,
		opts:     opts.withDefaults(),
	}
}

func (s *Service) Options() Options {
	return s.opts
}

// TopCoins ranks the quote-asset pairs by 24h volume and summarizes the latest
// candle of each. Instruments whose candles cannot be fetched or summarized are
// skipped; the result keeps rank order. Only a failed ticker fetch fails the query.
func (s *Service) TopCoins(ctx context.Context, intervalToken string, startTime *time.Time) ([]models.AggregatedRow, error) {
	began := time.Now()

	interval, err := s.parseInterval(intervalToken)
	if err != nil {
		return nil, err
	}

	names := s.displayNames(ctx)

	tickers, err := s.provider.Tickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch tickers: %w", err)
	}
	ranked := ranker.Top(tickers, s.opts.QuoteAsset, s.opts.RankLimit)

	rows := make([]*models.AggregatedRow, len(ranked))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 1; w <= s.opts.Workers && w <= len(ranked); w++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := range jobs {
				// The caller gave up: drain without calling the provider.
				if ctx.Err() != nil {
					continue
				}
				symbol := ranked[i].Symbol
				var row models.AggregatedRow
				err := middleware.Guard(func() error {
					var err error
					row, err = s.buildRow(ctx, symbol, interval, startTime, names)
					return err
				})
				if err != nil {
					s.metrics.SkipInstrument()
					utils.Logger.Warnw("Skipping instrument",
						"worker_id", id,
						"symbol", symbol,
						"interval", interval.String(),
						"error", err)
					continue
				}
				rows[i] = &row
			}
		}(w)
	}

	for i := range ranked {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	out := make([]models.AggregatedRow, 0, len(rows))
	for _, row := range rows {
		if row != nil {
			out = append(out, *row)
		}
	}

	stats := models.QueryStats{
		Interval:  interval.String(),
		Requested: len(ranked),
		Succeeded: len(out),
		Skipped:   len(ranked) - len(out),
		NamesOK:   names.Available(),
		Duration:  time.Since(began),
	}
	s.metrics.ObserveQuery("top_coins", stats.Duration)
	utils.Logger.Infow("Top coins query completed",
		"interval", stats.Interval,
		"requested", stats.Requested,
		"succeeded", stats.Succeeded,
		"skipped", stats.Skipped,
		"names_available", stats.NamesOK,
		"duration_ms", stats.Duration.Milliseconds())

	return out, nil
}

func (s *Service) buildRow(ctx context.Context, symbol string, interval models.Interval, startTime *time.Time, names DisplayNames) (models.AggregatedRow, error) {
	candles, err := s.provider.Klines(ctx, symbol, interval, startTime, s.opts.CandleLimit)
	if err != nil {
		return models.AggregatedRow{}, fmt.Errorf("fetch klines: %w", err)
	}

	summary, err := aggregator.Aggregate(candles, aggregator.DefaultWindows...)
	if err != nil {
		return models.AggregatedRow{}, err
	}

	name, _ := names.Lookup(symbol)
	return models.AggregatedRow{
		Symbol:    symbol,
		Name:      name,
		Timestamp: summary.OpenTime.In(s.opts.Location).Format(s.opts.TimestampLayout),
		Open:      summary.Open,
		High:      summary.High,
		Low:       summary.Low,
		Close:     summary.Close,
		Change:    summary.ChangePercent,
		Amplitude: summary.Amplitude,
		MA7:       summary.MA(7),
		MA25:      summary.MA(25),
		MA99:      summary.MA(99),
	}, nil
}

// displayNames never fails; a metadata error yields the unavailable mapping.
func (s *Service) displayNames(ctx context.Context) DisplayNames {
	symbols, err := s.provider.ExchangeInfo(ctx)
	if err != nil {
		utils.Logger.Warnw("Exchange metadata unavailable, display names left blank", "error", err)
		return UnavailableNames()
	}
	return NewDisplayNames(symbols, s.opts.QuoteAsset)
}

// HistoricalData returns raw candles of symbol from startDate (YYYY-MM-DD, in the
// configured location) on. An empty startDate returns the most recent candles.
func (s *Service) HistoricalData(ctx context.Context, symbol, intervalToken, startDate string) ([]models.Candle, error) {
	began := time.Now()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return nil, fmt.Errorf("%w: symbol is required", ErrInvalidInput)
	}

	interval, err := s.parseInterval(intervalToken)
	if err != nil {
		return nil, err
	}

	var start *time.Time
	if startDate = strings.TrimSpace(startDate); startDate != "" {
		t, err := time.ParseInLocation(dateLayout, startDate, s.opts.Location)
		if err != nil {
			return nil, fmt.Errorf("%w: start_date must be YYYY-MM-DD: %q", ErrInvalidInput, startDate)
		}
		start = &t
	}

	candles, err := s.provider.Klines(ctx, symbol, interval, start, s.opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("fetch klines %s: %w", symbol, err)
	}

	s.metrics.ObserveQuery("historical_data", time.Since(began))
	return candles, nil
}

// LiveTop returns the cached tickers with the highest volume. limit <= 0 uses
// the configured live limit.
func (s *Service) LiveTop(limit int) []models.TickerSnapshot {
	if limit <= 0 {
		limit = s.opts.LiveLimit
	}
	return s.cache.GetTop(limit)
}

func (s *Service) Intervals() map[string]string {
	return models.IntervalLabels()
}

func (s *Service) parseInterval(token string) (models.Interval, error) {
	interval, err := models.ParseInterval(strings.TrimSpace(token), s.opts.DefaultInterval)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return interval, nil
}
