package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litoralcitrus/schema"
)

func TestCalculator_Apply(t *testing.T) {
	state := State{"fruta_naranja": 100.0, "jugo_naranja": 10.0}

	changed := Calculator{}.Apply(state, "jugo_naranja")

	require.True(t, changed)
	assert.Equal(t, 10.0, state[schema.FieldYield])
	assert.Equal(t, "76.9%", state[schema.FieldEfficiency])
}

func TestCalculator_SumsAcrossSpecies(t *testing.T) {
	state := State{
		"fruta_naranja_común": 60.0,
		"fruta_limón":         "40",
		"jugo_naranja_común":  6.0,
		"jugo_limón":          2.0,
		"brix":                12.0,
	}

	Calculator{}.Apply(state, "fruta_limón")

	assert.Equal(t, 12.5, state[schema.FieldYield])
	assert.Equal(t, "61.5%", state[schema.FieldEfficiency])
}

func TestCalculator_IgnoresUnrelatedFields(t *testing.T) {
	state := State{"fruta_naranja": 100.0, "jugo_naranja": 10.0}

	assert.False(t, Calculator{}.Apply(state, "brix"))
	assert.NotContains(t, state, schema.FieldYield)
}

func TestCalculator_ZeroSumsLeaveFieldsUnset(t *testing.T) {
	state := State{"fruta_naranja": 0.0, "jugo_naranja": 0.0}

	assert.False(t, Calculator{}.Apply(state, "fruta_naranja"))
	assert.NotContains(t, state, schema.FieldYield)
	assert.NotContains(t, state, schema.FieldEfficiency)

	empty := State{}
	assert.False(t, Calculator{}.Apply(empty, "jugo_naranja"))
	assert.Empty(t, empty)
}

func TestCalculator_ZeroSumKeepsPreviousValues(t *testing.T) {
	state := State{"fruta_naranja": 100.0, "jugo_naranja": 10.0}
	Calculator{}.Apply(state, "jugo_naranja")

	state["jugo_naranja"] = 0.0
	assert.False(t, Calculator{}.Apply(state, "jugo_naranja"))

	assert.Equal(t, 10.0, state[schema.FieldYield])
	assert.Equal(t, "76.9%", state[schema.FieldEfficiency])
}

func TestParseEfficiency(t *testing.T) {
	for in, want := range map[any]float64{"76.9%": 76.9, " 80 %": 80, 91.5: 91.5, "95": 95} {
		got, ok := ParseEfficiency(in)
		assert.True(t, ok, in)
		assert.InDelta(t, want, got, 1e-9)
	}
	_, ok := ParseEfficiency("n/a")
	assert.False(t, ok)
}
