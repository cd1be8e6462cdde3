package models

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	apperrors "optpricer/internal/errors"
)

// Position is one entry of a portfolio. Size is the number of units held;
// it scales exposure but not the per-unit price and greeks. Equity holdings
// carry their size in Quantity and always have Size 1.
type Position struct {
	ID         string     `json:"id"`
	Instrument Instrument `json:"instrument"`
	Size       float64    `json:"size"`
}

// Portfolio is an ordered sequence of instruments. Order is kept for result
// indexing only; it has no effect on valuation.
type Portfolio struct {
	tradeCounter int
	positions    []Position
	index        map[string]int
}

// NewPortfolio creates an empty portfolio.
func NewPortfolio() *Portfolio {
	return &Portfolio{index: make(map[string]int)}
}

// NewPortfolioOf builds a portfolio from instruments in the given order.
func NewPortfolioOf(instruments ...Instrument) (*Portfolio, error) {
	p := NewPortfolio()
	for _, inst := range instruments {
		if _, err := p.Add(inst); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Add validates and appends one unit of an instrument, returning its
// position ID. Equity holdings are keyed by ticker, so adding the same
// ticker again increases the existing quantity.
func (p *Portfolio) Add(inst Instrument) (string, error) {
	return p.AddSized(inst, 1)
}

// AddSized appends size units of an instrument. A negative size is a short
// position. For equities the size multiplies the quantity.
func (p *Portfolio) AddSized(inst Instrument, size float64) (string, error) {
	if inst == nil {
		return "", apperrors.NewValidationError("instrument", nil, "must not be nil")
	}
	if err := inst.Validate(); err != nil {
		return "", err
	}
	if size == 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return "", apperrors.NewValidationError("size", size, "must be a non-zero finite number")
	}

	if eq, ok := inst.(Equity); ok {
		eq.Quantity *= size
		size = 1
		inst = eq
		if i, found := p.index[eq.Ticker]; found {
			held := p.positions[i].Instrument.(Equity)
			held.Quantity += eq.Quantity
			p.positions[i].Instrument = held
			return eq.Ticker, nil
		}
	}

	id := p.positionID(inst)
	p.index[id] = len(p.positions)
	p.positions = append(p.positions, Position{ID: id, Instrument: inst, Size: size})
	return id, nil
}

func (p *Portfolio) positionID(inst Instrument) string {
	switch v := inst.(type) {
	case Equity:
		return v.Ticker
	case EuropeanOption:
		p.tradeCounter++
		return fmt.Sprintf("%s_%s%s_%sY_%d",
			v.UnderlyingTicker,
			v.Type.Code(),
			decimal.NewFromFloat(v.Strike).String(),
			decimal.NewFromFloat(v.Expiry).String(),
			p.tradeCounter,
		)
	default:
		p.tradeCounter++
		return fmt.Sprintf("%s_%s_%d", inst.Underlying(), inst.Kind(), p.tradeCounter)
	}
}

// Len returns the number of positions.
func (p *Portfolio) Len() int {
	return len(p.positions)
}

// Positions returns a copy of the positions in order.
func (p *Portfolio) Positions() []Position {
	out := make([]Position, len(p.positions))
	copy(out, p.positions)
	return out
}

// Instruments returns the instruments in order.
func (p *Portfolio) Instruments() []Instrument {
	out := make([]Instrument, len(p.positions))
	for i, pos := range p.positions {
		out[i] = pos.Instrument
	}
	return out
}

// IDs returns the position IDs in order.
func (p *Portfolio) IDs() []string {
	out := make([]string, len(p.positions))
	for i, pos := range p.positions {
		out[i] = pos.ID
	}
	return out
}

// Get returns the position with the given ID.
func (p *Portfolio) Get(id string) (Position, bool) {
	i, ok := p.index[id]
	if !ok {
		return Position{}, false
	}
	return p.positions[i], true
}

// Underlyings returns the distinct underlyings in first-seen order.
func (p *Portfolio) Underlyings() []string {
	seen := make(map[string]bool)
	var out []string
	for _, pos := range p.positions {
		u := pos.Instrument.Underlying()
		if !seen[u] {
			seen[u] = true
			out = append(out, u)
		}
	}
	return out
}

// EquityCount returns the number of equity positions.
func (p *Portfolio) EquityCount() int {
	return p.count(KindEquity)
}

// OptionCount returns the number of option positions.
func (p *Portfolio) OptionCount() int {
	return p.count(KindEuropeanOption)
}

func (p *Portfolio) count(kind InstrumentKind) int {
	n := 0
	for _, pos := range p.positions {
		if pos.Instrument.Kind() == kind {
			n++
		}
	}
	return n
}
