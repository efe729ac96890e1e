package models

import (
	"errors"
	"fmt"
)

// Interval is a candle width accepted by the provider.
type Interval string

const (
	OneMinute      Interval = "1m"
	ThreeMinutes   Interval = "3m"
	FiveMinutes    Interval = "5m"
	FifteenMinutes Interval = "15m"
	ThirtyMinutes  Interval = "30m"
	OneHour        Interval = "1h"
	TwoHours       Interval = "2h"
	FourHours      Interval = "4h"
	SixHours       Interval = "6h"
	EightHours     Interval = "8h"
	TwelveHours    Interval = "12h"
	OneDay         Interval = "1d"
	ThreeDays      Interval = "3d"
	OneWeek        Interval = "1w"
	OneMonth       Interval = "1M"

	DefaultInterval = FourHours
)

var ErrUnknownInterval = errors.New("unknown interval")

// IntervalOrder lists every interval from shortest to longest.
var IntervalOrder = []Interval{
	OneMinute, ThreeMinutes, FiveMinutes, FifteenMinutes, ThirtyMinutes,
	OneHour, TwoHours, FourHours, SixHours, EightHours, TwelveHours,
	OneDay, ThreeDays, OneWeek, OneMonth,
}

var intervalLabels = map[Interval]string{
	OneMinute:      "1 minute",
	ThreeMinutes:   "3 minutes",
	FiveMinutes:    "5 minutes",
	FifteenMinutes: "15 minutes",
	ThirtyMinutes:  "30 minutes",
	OneHour:        "1 hour",
	TwoHours:       "2 hours",
	FourHours:      "4 hours",
	SixHours:       "6 hours",
	EightHours:     "8 hours",
	TwelveHours:    "12 hours",
	OneDay:         "1 day",
	ThreeDays:      "3 days",
	OneWeek:        "1 week",
	OneMonth:       "1 month",
}

// ParseInterval maps a token to an Interval. The empty token yields def.
func ParseInterval(token string, def Interval) (Interval, error) {
	if token == "" {
		return def, nil
	}
	iv := Interval(token)
	if _, ok := intervalLabels[iv]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownInterval, token)
	}
	return iv, nil
}

func (i Interval) Label() string {
	return intervalLabels[i]
}

func (i Interval) String() string {
	return string(i)
}

// IntervalLabels returns a fresh token -> label map.
func IntervalLabels() map[string]string {
	out := make(map[string]string, len(IntervalOrder))
	for _, iv := range IntervalOrder {
		out[iv.String()] = iv.Label()
	}
	return out
}
