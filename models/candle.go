package models

import "time"

// Candle is one fixed-interval OHLCV bar as returned by the provider.
type Candle struct {
	OpenTime    time.Time `json:"open_time"`
	Open        float64   `json:"open"`
	High        float64   `json:"high"`
	Low         float64   `json:"low"`
	Close       float64   `json:"close"`
	Volume      float64   `json:"volume"`
	CloseTime   time.Time `json:"close_time"`
	QuoteVolume float64   `json:"quote_volume"`
	Trades      int64     `json:"trades"`
}

// Closes extracts the close column in order.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
