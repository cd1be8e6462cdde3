package market

import (
	"sort"
	"time"
)

// DaysPerYear is the day count basis for year fractions.
const DaysPerYear = 365.0

// Snapshot is the market observed on one valuation date.
type Snapshot struct {
	Date  time.Time
	Spots map[string]float64
	Vols  map[string]float64
	Rate  float64
}

// NewSnapshot creates an empty snapshot for a date.
func NewSnapshot(date time.Time) *Snapshot {
	return &Snapshot{
		Date:  TruncateDate(date),
		Spots: make(map[string]float64),
		Vols:  make(map[string]float64),
	}
}

// Tickers returns the observed tickers in sorted order.
func (s *Snapshot) Tickers() []string {
	seen := make(map[string]bool, len(s.Spots))
	var out []string
	for t := range s.Spots {
		seen[t] = true
		out = append(out, t)
	}
	for t := range s.Vols {
		if !seen[t] {
			out = append(out, t)
		}
	}
	sort.Strings(out)
	return out
}

// Environment converts the snapshot into a baseline environment. The rate and
// valuation offset are always present so scenarios can shift them.
func (s *Snapshot) Environment() Environment {
	b := NewBuilder().Rate(s.Rate).ValuationOffset(0)
	for t, v := range s.Spots {
		b.Spot(t, v)
	}
	for t, v := range s.Vols {
		b.Vol(t, v)
	}
	return b.Build()
}

// TruncateDate drops the time of day, in UTC.
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// YearFraction returns the number of days from valuation to expiry over 365.
func YearFraction(valuation, expiry time.Time) float64 {
	days := TruncateDate(expiry).Sub(TruncateDate(valuation)).Hours() / 24
	return days / DaysPerYear
}
