package utils

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeFloat(t *testing.T) {
	t.Run("invalid inputs become zero", func(t *testing.T) {
		inputs := []interface{}{
			nil,
			"abc",
			"",
			"NaN",
			"Infinity",
			"-inf",
			math.NaN(),
			math.Inf(1),
			math.Inf(-1),
			[]int{1},
			json.Number("x1"),
		}

		for _, in := range inputs {
			assert.Equal(t, 0.0, SafeFloat(in), "input %#v", in)
		}
	})

	t.Run("finite numerics pass through", func(t *testing.T) {
		assert.Equal(t, 3.5, SafeFloat("3.5"))
		assert.Equal(t, 3.5, SafeFloat(" 3.5 "))
		assert.Equal(t, 42.0, SafeFloat(42))
		assert.Equal(t, -1.25, SafeFloat(-1.25))
		assert.Equal(t, 7.0, SafeFloat(int64(7)))
		assert.Equal(t, 0.5, SafeFloat(float32(0.5)))
		assert.Equal(t, 12.75, SafeFloat(json.Number("12.75")))
		assert.Equal(t, 1499040000000.0, SafeFloat(1499040000000.0))
	})

	t.Run("custom default", func(t *testing.T) {
		assert.Equal(t, -1.0, SafeFloatOr("bad", -1))
		assert.Equal(t, -1.0, SafeFloatOr(math.NaN(), -1))
		assert.Equal(t, 2.0, SafeFloatOr("2", -1))
	})
}

func TestFinite(t *testing.T) {
	assert.Equal(t, 0.0, Finite(math.NaN()))
	assert.Equal(t, 0.0, Finite(math.Inf(-1)))
	assert.Equal(t, 1.5, Finite(1.5))
}
