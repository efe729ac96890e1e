package parser

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMiniTickers(t *testing.T) {
	t.Run("batch", func(t *testing.T) {
		msg := []byte(`[
			{"e":"24hrMiniTicker","E":1700000000000,"s":"BTCUSDT","c":"110","o":"100","h":"120","l":"90","v":"5","q":"550"},
			{"e":"24hrMiniTicker","E":1700000000001,"s":"ETHUSDT","c":"2","o":"2","h":"2","l":"2","v":"9","q":"18"}
		]`)

		snaps, err := ParseMiniTickers(msg)
		require.NoError(t, err)
		require.Len(t, snaps, 2)

		btc := snaps[0]
		assert.Equal(t, "BTCUSDT", btc.Symbol)
		assert.Equal(t, 110.0, btc.Close)
		assert.Equal(t, 100.0, btc.Open)
		assert.Equal(t, 120.0, btc.High)
		assert.Equal(t, 90.0, btc.Low)
		assert.Equal(t, 5.0, btc.Volume)
		assert.Equal(t, 550.0, btc.QuoteVolume)
		assert.Equal(t, 10.0, btc.PriceChange)
		assert.Equal(t, 10.0, btc.PriceChangePercent)
		assert.Equal(t, time.UnixMilli(1700000000000), btc.EventTime)
	})

	t.Run("non-numeric fields degrade to zero", func(t *testing.T) {
		snaps, err := ParseMiniTickers([]byte(`[{"s":"XUSDT","c":"NaN","o":"abc","h":"1","l":"1","v":"Infinity","q":""}]`))
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, 0.0, snaps[0].Close)
		assert.Equal(t, 0.0, snaps[0].Open)
		assert.Equal(t, 0.0, snaps[0].Volume)
		assert.Equal(t, 0.0, snaps[0].PriceChangePercent)
		assert.True(t, snaps[0].EventTime.IsZero())
	})

	t.Run("mistyped fields do not drop the batch", func(t *testing.T) {
		msg := []byte(`[
			{"E":1700000000000,"s":"AUSDT","c":11,"o":10,"h":"12","l":"9","v":3,"q":"33"},
			{"E":"1700000000001","s":"BUSDT","c":{},"o":[1],"h":true,"l":null,"v":"2","q":"4"},
			{"s":7,"c":"1"}
		]`)

		snaps, err := ParseMiniTickers(msg)
		require.NoError(t, err)
		require.Len(t, snaps, 2)

		assert.Equal(t, "AUSDT", snaps[0].Symbol)
		assert.Equal(t, 11.0, snaps[0].Close)
		assert.Equal(t, 10.0, snaps[0].Open)
		assert.Equal(t, 3.0, snaps[0].Volume)
		assert.Equal(t, 10.0, snaps[0].PriceChangePercent)
		assert.Equal(t, time.UnixMilli(1700000000000), snaps[0].EventTime)

		assert.Equal(t, "BUSDT", snaps[1].Symbol)
		assert.Equal(t, 0.0, snaps[1].Close)
		assert.Equal(t, 0.0, snaps[1].Open)
		assert.Equal(t, 2.0, snaps[1].Volume)
		assert.Equal(t, time.UnixMilli(1700000000001), snaps[1].EventTime)
	})

	t.Run("entries without symbol are skipped", func(t *testing.T) {
		snaps, err := ParseMiniTickers([]byte(`[{"c":"1"},{"s":"AUSDT","c":"1"}]`))
		require.NoError(t, err)
		require.Len(t, snaps, 1)
		assert.Equal(t, "AUSDT", snaps[0].Symbol)
	})

	t.Run("subscription ack", func(t *testing.T) {
		snaps, err := ParseMiniTickers([]byte(`{"result":null,"id":1}`))
		assert.NoError(t, err)
		assert.Empty(t, snaps)
	})

	t.Run("subscription error", func(t *testing.T) {
		_, err := ParseMiniTickers([]byte(`{"error":{"code":2,"msg":"Invalid request"},"id":1}`))
		assert.ErrorIs(t, err, ErrSubscriptionRejected)
	})

	t.Run("malformed", func(t *testing.T) {
		for _, msg := range []string{``, `[`, `{"foo":1}`, `"text"`, `[1,2]`} {
			_, err := ParseMiniTickers([]byte(msg))
			assert.Error(t, err, "message %q", msg)
			assert.NotErrorIs(t, err, ErrSubscriptionRejected)
		}
	})
}

func TestParseKlines(t *testing.T) {
	t.Run("provider rows", func(t *testing.T) {
		body := []byte(`[
			[1499040000000,"0.01634790","0.80000000","0.01575800","0.01577100","148976.11427815",1499644799999,"2434.19055334",308,"1756.87402397","28.46694368","0"]
		]`)
		var rows [][]interface{}
		require.NoError(t, json.Unmarshal(body, &rows))

		candles, err := ParseKlines(rows)
		require.NoError(t, err)
		require.Len(t, candles, 1)

		c := candles[0]
		assert.Equal(t, time.UnixMilli(1499040000000), c.OpenTime)
		assert.Equal(t, time.UnixMilli(1499644799999), c.CloseTime)
		assert.InDelta(t, 0.01634790, c.Open, 1e-12)
		assert.InDelta(t, 0.8, c.High, 1e-12)
		assert.InDelta(t, 0.015758, c.Low, 1e-12)
		assert.InDelta(t, 0.015771, c.Close, 1e-12)
		assert.InDelta(t, 148976.11427815, c.Volume, 1e-9)
		assert.InDelta(t, 2434.19055334, c.QuoteVolume, 1e-9)
		assert.Equal(t, int64(308), c.Trades)
	})

	t.Run("short row", func(t *testing.T) {
		_, err := ParseKlines([][]interface{}{{1.0, "1"}})
		assert.Error(t, err)
	})

	t.Run("bad numerics degrade", func(t *testing.T) {
		c, err := ParseKline([]interface{}{0.0, "x", "1", "1", "NaN", "1", 0.0, nil})
		require.NoError(t, err)
		assert.Equal(t, 0.0, c.Open)
		assert.Equal(t, 0.0, c.Close)
		assert.Equal(t, 0.0, c.QuoteVolume)
	})
}
