package models

import "time"

// QueryStats summarizes one top-coins query.
type QueryStats struct {
	Interval  string
	Requested int
	Succeeded int
	Skipped   int
	NamesOK   bool
	Duration  time.Duration
}
