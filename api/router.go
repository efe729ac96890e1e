package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"market_dashboard/middleware"
	"market_dashboard/utils"
)

// NewRouter wires every endpoint behind request logging, panic recovery and a
// fully open CORS policy.
func NewRouter(h *Handler, gatherer prometheus.Gatherer) http.Handler {
	router := mux.NewRouter()

	router.HandleFunc("/get_top_coins", h.TopCoins).Methods(http.MethodGet)
	router.HandleFunc("/get_intervals", h.Intervals).Methods(http.MethodGet)
	router.HandleFunc("/get_historical_data", h.HistoricalData).Methods(http.MethodGet)
	router.HandleFunc("/get_live_tickers", h.LiveTickers).Methods(http.MethodGet)
	router.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
			http.MethodHead,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	return utils.RequestLogger(middleware.Recover(c.Handler(router)))
}
