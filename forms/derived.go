package forms

import (
	"strings"

	"github.com/shopspring/decimal"

	"litoralcitrus/schema"
)

// ExtractionCoefficient is the theoretical juice mass per kg of fruit.
var ExtractionCoefficient = decimal.RequireFromString("0.13")

// Metrics are the derived production figures of a report.
type Metrics struct {
	TotalFruit decimal.Decimal
	TotalJuice decimal.Decimal
	Yield      decimal.Decimal // kg fruit per kg juice, 2 decimals
	Efficiency decimal.Decimal // percent, 1 decimal
}

// Calculator keeps calc_rendimiento and calc_eficiencia in sync with the
// fruit and juice inputs.
type Calculator struct{}

// Triggers reports whether a change to fieldID requires recomputation.
func (Calculator) Triggers(fieldID string) bool {
	return strings.HasPrefix(fieldID, schema.FruitPrefix) || strings.HasPrefix(fieldID, schema.JuicePrefix)
}

// Apply recomputes the derived fields after fieldID changed. It returns
// true when the computed fields were written.
func (c Calculator) Apply(state State, fieldID string) bool {
	if !c.Triggers(fieldID) {
		return false
	}
	return c.Recompute(state)
}

// Recompute writes the derived fields when both running sums are positive.
// With a zero sum the previous values are kept.
func (c Calculator) Recompute(state State) bool {
	m, ok := Compute(state)
	if !ok {
		return false
	}
	state[schema.FieldYield] = m.Yield.InexactFloat64()
	state[schema.FieldEfficiency] = m.Efficiency.StringFixed(1) + "%"
	return true
}

// Compute derives the metrics of a state. ok is false when either sum is
// not positive.
func Compute(state State) (Metrics, bool) {
	var m Metrics
	for id, v := range state {
		n, ok := toNumber(v)
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(id, schema.FruitPrefix):
			m.TotalFruit = m.TotalFruit.Add(decimal.NewFromFloat(n))
		case strings.HasPrefix(id, schema.JuicePrefix):
			m.TotalJuice = m.TotalJuice.Add(decimal.NewFromFloat(n))
		}
	}
	if !m.TotalFruit.IsPositive() || !m.TotalJuice.IsPositive() {
		return m, false
	}

	m.Yield = m.TotalFruit.Div(m.TotalJuice).Round(2)
	theoretical := m.TotalFruit.Mul(ExtractionCoefficient)
	m.Efficiency = m.TotalJuice.Div(theoretical).Mul(decimal.NewFromInt(100)).Round(1)
	return m, true
}

// ParseEfficiency reads a stored calc_eficiencia value ("76.9%" or a number).
func ParseEfficiency(v any) (float64, bool) {
	if s, ok := v.(string); ok {
		v = strings.TrimSuffix(strings.TrimSpace(s), "%")
	}
	return toNumber(v)
}
