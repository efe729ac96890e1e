// Package aggregator turns a window of candles into the latest-bar statistics shown
// in the top-coins table.
package aggregator

import (
	"errors"
	"time"

	"github.com/markcheno/go-talib"

	"market_dashboard/models"
	"market_dashboard/utils"
)

var ErrNoData = errors.New("aggregator: no candles")

// DefaultWindows are the moving-average lengths reported per instrument.
var DefaultWindows = []int{7, 25, 99}

// Summary holds the latest candle's values. Every float is finite.
type Summary struct {
	OpenTime       time.Time
	Open           float64
	High           float64
	Low            float64
	Close          float64
	ChangePercent  float64
	Amplitude      float64
	MovingAverages map[int]float64
}

// MA returns the moving average for window, 0 when it was not computed or not ready.
func (s Summary) MA(window int) float64 {
	return s.MovingAverages[window]
}

// Aggregate computes the summary of an ascending candle sequence.
func Aggregate(candles []models.Candle, windows ...int) (Summary, error) {
	if len(candles) == 0 {
		return Summary{}, ErrNoData
	}
	if len(windows) == 0 {
		windows = DefaultWindows
	}

	latest := candles[len(candles)-1]
	closes := models.Closes(candles)

	summary := Summary{
		OpenTime:       latest.OpenTime,
		Open:           utils.Finite(latest.Open),
		High:           utils.Finite(latest.High),
		Low:            utils.Finite(latest.Low),
		Close:          utils.Finite(latest.Close),
		Amplitude:      Amplitude(latest.High, latest.Low),
		MovingAverages: make(map[int]float64, len(windows)),
	}

	if len(candles) >= 2 {
		summary.ChangePercent = ChangePercent(candles[len(candles)-2].Close, latest.Close)
	}

	for _, w := range windows {
		summary.MovingAverages[w] = MovingAverage(closes, w)
	}

	return summary, nil
}

// MovingAverage is the simple mean of the trailing window closes, or 0 while fewer
// than window values exist.
func MovingAverage(closes []float64, window int) float64 {
	if window <= 0 || len(closes) < window {
		return 0
	}

	sma := talib.Sma(closes[len(closes)-window:], window)
	return utils.Finite(sma[len(sma)-1])
}

// ChangePercent is the relative move from previous to current, 0 when previous <= 0.
func ChangePercent(previous, current float64) float64 {
	if previous <= 0 {
		return 0
	}
	return utils.Finite((current - previous) / previous * 100)
}

// Amplitude is the bar's high-low range relative to its low, 0 when low <= 0.
func Amplitude(high, low float64) float64 {
	if low <= 0 {
		return 0
	}
	return utils.Finite((high - low) / low * 100)
}
