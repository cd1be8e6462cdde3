package market

import "sort"

// Environment is an immutable snapshot of risk factor values. Deriving a new
// environment never touches the receiver, so one baseline can back any number
// of derived environments.
type Environment struct {
	values map[FactorID]float64
}

// NewEnvironment creates an environment from a copy of values.
func NewEnvironment(values map[FactorID]float64) Environment {
	m := make(map[FactorID]float64, len(values))
	for k, v := range values {
		m[k] = v
	}
	return Environment{values: m}
}

// Get returns the value of a factor.
func (e Environment) Get(id FactorID) (float64, bool) {
	v, ok := e.values[id]
	return v, ok
}

// Has reports whether the factor is present.
func (e Environment) Has(id FactorID) bool {
	_, ok := e.values[id]
	return ok
}

// Len returns the number of factors.
func (e Environment) Len() int {
	return len(e.values)
}

// Factors returns the factor IDs sorted by their string form.
func (e Environment) Factors() []FactorID {
	ids := make([]FactorID, 0, len(e.values))
	for id := range e.values {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Values returns a copy of the underlying mapping.
func (e Environment) Values() map[FactorID]float64 {
	m := make(map[FactorID]float64, len(e.values))
	for k, v := range e.values {
		m[k] = v
	}
	return m
}

// With returns a new environment with one factor set.
func (e Environment) With(id FactorID, v float64) Environment {
	return e.Derive(map[FactorID]float64{id: v})
}

// Derive returns a new environment with updates applied on top of e.
func (e Environment) Derive(updates map[FactorID]float64) Environment {
	m := make(map[FactorID]float64, len(e.values)+len(updates))
	for k, v := range e.values {
		m[k] = v
	}
	for k, v := range updates {
		m[k] = v
	}
	return Environment{values: m}
}

// ValuationOffset returns the valuation date offset in years; an environment
// without the factor is valued on the valuation date itself.
func (e Environment) ValuationOffset() float64 {
	return e.values[ValuationOffsetFactor]
}

// Builder assembles an Environment.
type Builder struct {
	values map[FactorID]float64
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{values: make(map[FactorID]float64)}
}

// Spot sets the spot of a ticker.
func (b *Builder) Spot(ticker string, v float64) *Builder {
	b.values[SpotOf(ticker)] = v
	return b
}

// Vol sets the implied volatility of a ticker.
func (b *Builder) Vol(ticker string, v float64) *Builder {
	b.values[VolOf(ticker)] = v
	return b
}

// Rate sets the risk-free rate.
func (b *Builder) Rate(v float64) *Builder {
	b.values[RateFactor] = v
	return b
}

// ValuationOffset sets the valuation date offset in years.
func (b *Builder) ValuationOffset(v float64) *Builder {
	b.values[ValuationOffsetFactor] = v
	return b
}

// Set sets an arbitrary factor.
func (b *Builder) Set(id FactorID, v float64) *Builder {
	b.values[id] = v
	return b
}

// Build returns the environment.
func (b *Builder) Build() Environment {
	return NewEnvironment(b.values)
}
