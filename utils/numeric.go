package utils

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/spf13/cast"
)

// SafeFloat converts value to a finite float64. Anything that does not convert,
// or converts to NaN or ±Inf, becomes 0.
func SafeFloat(value interface{}) float64 {
	return SafeFloatOr(value, 0)
}

// SafeFloatOr is SafeFloat with a caller-chosen fallback.
func SafeFloatOr(value interface{}, def float64) float64 {
	var (
		f   float64
		err error
	)

	switch v := value.(type) {
	case nil:
		return def
	case json.Number:
		f, err = v.Float64()
	case string:
		f, err = cast.ToFloat64E(strings.TrimSpace(v))
	default:
		f, err = cast.ToFloat64E(value)
	}

	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return def
	}
	return f
}

// Finite replaces NaN and ±Inf with 0.
func Finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
