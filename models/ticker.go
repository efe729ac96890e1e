package models

import (
	"time"

	"market_dashboard/utils"
)

// TickerSnapshot is the latest rolling-window state of one instrument as seen on
// the stream. It is a value: replace it, never mutate it in place.
type TickerSnapshot struct {
	Symbol             string    `json:"symbol"`
	Open               float64   `json:"open"`
	High               float64   `json:"high"`
	Low                float64   `json:"low"`
	Close              float64   `json:"close"`
	Volume             float64   `json:"volume"`
	QuoteVolume        float64   `json:"quote_volume"`
	EventTime          time.Time `json:"timestamp"`
	PriceChange        float64   `json:"price_change"`
	PriceChangePercent float64   `json:"price_change_percent"`
}

// NewTickerSnapshot normalizes the raw fields and derives the change values.
func NewTickerSnapshot(symbol string, open, high, low, closePrice, volume, quoteVolume interface{}, eventTime time.Time) TickerSnapshot {
	o := utils.SafeFloat(open)
	c := utils.SafeFloat(closePrice)

	change := utils.Finite(c - o)
	changePercent := 0.0
	if o > 0 {
		changePercent = utils.Finite((c - o) / o * 100)
	}

	return TickerSnapshot{
		Symbol:             symbol,
		Open:               o,
		High:               utils.SafeFloat(high),
		Low:                utils.SafeFloat(low),
		Close:              c,
		Volume:             utils.SafeFloat(volume),
		QuoteVolume:        utils.SafeFloat(quoteVolume),
		EventTime:          eventTime,
		PriceChange:        change,
		PriceChangePercent: changePercent,
	}
}

func (t TickerSnapshot) RankSymbol() string  { return t.Symbol }
func (t TickerSnapshot) RankVolume() float64 { return t.Volume }

// MarketTicker is one record of the provider's 24h ticker list. Numerics stay in
// their wire form until something needs them.
type MarketTicker struct {
	Symbol             string `json:"symbol"`
	LastPrice          string `json:"lastPrice"`
	PriceChangePercent string `json:"priceChangePercent"`
	Volume             string `json:"volume"`
	QuoteVolume        string `json:"quoteVolume"`
}

func (t MarketTicker) RankSymbol() string  { return t.Symbol }
func (t MarketTicker) RankVolume() float64 { return utils.SafeFloat(t.Volume) }

// SymbolInfo is the exchange metadata needed to name an instrument.
type SymbolInfo struct {
	Symbol     string `json:"symbol"`
	Status     string `json:"status"`
	BaseAsset  string `json:"baseAsset"`
	QuoteAsset string `json:"quoteAsset"`
}
