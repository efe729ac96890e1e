package binance

import (
	"fmt"
	"net/http"

	"market_dashboard/models"
)

const (
	SubscribeMethod = "SUBSCRIBE"

	// MiniTickerAllStream pushes a batch of rolling 24h mini tickers once a second.
	MiniTickerAllStream = "!miniTicker@arr"
)

// SubscribeRequest is the control frame sent once per stream connection.
type SubscribeRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params"`
	ID     int64    `json:"id"`
}

func NewSubscribeRequest(id int64, streams ...string) SubscribeRequest {
	if len(streams) == 0 {
		streams = []string{MiniTickerAllStream}
	}
	return SubscribeRequest{
		Method: SubscribeMethod,
		Params: streams,
		ID:     id,
	}
}

type exchangeInfoResponse struct {
	Timezone   string              `json:"timezone"`
	ServerTime int64               `json:"serverTime"`
	Symbols    []models.SymbolInfo `json:"symbols"`
}

// APIError is a non-2xx answer from the REST API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Msg        string `json:"msg"`
}

func (e *APIError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("binance: http %d", e.StatusCode)
	}
	return fmt.Sprintf("binance: http %d: code %d: %s", e.StatusCode, e.Code, e.Msg)
}

// IsClientError reports a 4xx answer caused by the request itself. Rate limit
// answers (418, 429) are the provider's problem, not the caller's.
func (e *APIError) IsClientError() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests, http.StatusTeapot:
		return false
	}
	return e.StatusCode >= 400 && e.StatusCode < 500
}
