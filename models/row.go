package models

// AggregatedRow is one line of the top-coins table. Built per query, never cached.
type AggregatedRow struct {
	Symbol    string  `json:"symbol"`
	Name      string  `json:"name"`
	Timestamp string  `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Change    float64 `json:"change"`
	Amplitude float64 `json:"amplitude"`
	MA7       float64 `json:"ma7"`
	MA25      float64 `json:"ma25"`
	MA99      float64 `json:"ma99"`
}
