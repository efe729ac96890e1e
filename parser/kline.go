package parser

import (
	"fmt"
	"time"

	"market_dashboard/models"
	"market_dashboard/utils"
)

// klineFields is the minimum row width: open time .. quote volume.
const klineFields = 8

// ParseKlines converts the provider's positional kline rows into candles.
// Layout: [openTime, open, high, low, close, volume, closeTime, quoteVolume, trades, ...].
func ParseKlines(rows [][]interface{}) ([]models.Candle, error) {
	candles := make([]models.Candle, 0, len(rows))
	for i, row := range rows {
		c, err := ParseKline(row)
		if err != nil {
			return nil, fmt.Errorf("kline %d: %w", i, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func ParseKline(row []interface{}) (models.Candle, error) {
	if len(row) < klineFields {
		return models.Candle{}, fmt.Errorf("expected at least %d fields, got %d", klineFields, len(row))
	}

	c := models.Candle{
		OpenTime:    time.UnixMilli(int64(utils.SafeFloat(row[0]))),
		Open:        utils.SafeFloat(row[1]),
		High:        utils.SafeFloat(row[2]),
		Low:         utils.SafeFloat(row[3]),
		Close:       utils.SafeFloat(row[4]),
		Volume:      utils.SafeFloat(row[5]),
		CloseTime:   time.UnixMilli(int64(utils.SafeFloat(row[6]))),
		QuoteVolume: utils.SafeFloat(row[7]),
	}
	if len(row) > klineFields {
		c.Trades = int64(utils.SafeFloat(row[8]))
	}
	return c, nil
}
