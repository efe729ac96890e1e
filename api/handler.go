package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/schema"

	"market_dashboard/binance"
	"market_dashboard/market"
	"market_dashboard/monitoring"
	"market_dashboard/utils"
)

type topCoinsQuery struct {
	Interval  string `schema:"interval"`
	StartTime int64  `schema:"start_time"` // epoch milliseconds, 0 = none
}

type historicalQuery struct {
	Symbol    string `schema:"symbol"`
	Interval  string `schema:"interval"`
	StartDate string `schema:"start_date"`
}

type liveQuery struct {
	Limit int `schema:"limit"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler exposes the market service over HTTP.
type Handler struct {
	service *market.Service
	health  *monitoring.Health
	decoder *schema.Decoder
}

func NewHandler(service *market.Service, health *monitoring.Health) *Handler {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	decoder.ZeroEmpty(true)

	return &Handler{
		service: service,
		health:  health,
		decoder: decoder,
	}
}

func (h *Handler) TopCoins(w http.ResponseWriter, r *http.Request) {
	var q topCoinsQuery
	if err := h.decoder.Decode(&q, r.URL.Query()); err != nil {
		setErrorResponse(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", market.ErrInvalidInput, err))
		return
	}
	if q.StartTime < 0 {
		setErrorResponse(w, r, http.StatusBadRequest, fmt.Errorf("%w: start_time must be epoch milliseconds", market.ErrInvalidInput))
		return
	}

	var start *time.Time
	if q.StartTime > 0 {
		t := time.UnixMilli(q.StartTime)
		start = &t
	}

	rows, err := h.service.TopCoins(r.Context(), q.Interval, start)
	if err != nil {
		setErrorResponse(w, r, statusFor(err), err)
		return
	}
	setResponse(w, rows)
}

func (h *Handler) Intervals(w http.ResponseWriter, r *http.Request) {
	setResponse(w, h.service.Intervals())
}

func (h *Handler) HistoricalData(w http.ResponseWriter, r *http.Request) {
	var q historicalQuery
	if err := h.decoder.Decode(&q, r.URL.Query()); err != nil {
		setErrorResponse(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", market.ErrInvalidInput, err))
		return
	}

	candles, err := h.service.HistoricalData(r.Context(), q.Symbol, q.Interval, q.StartDate)
	if err != nil {
		setErrorResponse(w, r, statusFor(err), err)
		return
	}
	setResponse(w, candles)
}

func (h *Handler) LiveTickers(w http.ResponseWriter, r *http.Request) {
	var q liveQuery
	if err := h.decoder.Decode(&q, r.URL.Query()); err != nil {
		setErrorResponse(w, r, http.StatusBadRequest, fmt.Errorf("%w: %v", market.ErrInvalidInput, err))
		return
	}
	setResponse(w, h.service.LiveTop(q.Limit))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.health.Handler(w, r)
}

// statusFor maps a query error to an HTTP status: caller mistakes are 400,
// everything upstream is 502.
func statusFor(err error) int {
	var apiErr *binance.APIError
	switch {
	case errors.Is(err, market.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &apiErr) && apiErr.IsClientError():
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func setResponse(w http.ResponseWriter, response interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		utils.Error(err, "Failed to encode response")
	}
}

func setErrorResponse(w http.ResponseWriter, r *http.Request, statusCode int, err error) {
	if statusCode >= http.StatusInternalServerError {
		utils.Error(err, "Query failed",
			"request_id", utils.RequestID(r.Context()),
			"path", r.URL.Path)
	} else {
		utils.Logger.Infow("Rejected query",
			"request_id", utils.RequestID(r.Context()),
			"path", r.URL.Path,
			"error", err.Error())
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if encodeErr := json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()}); encodeErr != nil {
		utils.Error(encodeErr, "Failed to encode error response")
	}
}
