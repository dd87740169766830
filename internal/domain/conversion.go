package domain

import "time"

// RateTable holds the cross rates of one base currency.
type RateTable struct {
	Base       string             `json:"base"`
	Rates      map[string]float64 `json:"rates"`
	LastUpdate time.Time          `json:"lastUpdate"`
	NextUpdate time.Time          `json:"nextUpdate"`
}

// Due reports whether the table should be refreshed at now.
func (t *RateTable) Due(now time.Time) bool {
	return t == nil || !now.Before(t.NextUpdate)
}
