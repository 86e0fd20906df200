package forms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litoralcitrus/models"
	"litoralcitrus/schema"
)

func field(t *testing.T, id string) schema.Field {
	t.Helper()
	f, ok := schema.Resolve(models.PlantTucuman).Field(id)
	require.True(t, ok, id)
	return f
}

func TestValidateField(t *testing.T) {
	tests := []struct {
		name    string
		fieldID string
		value   any
		want    ErrorKind
	}{
		{"required empty", "responsable", nil, ErrRequired},
		{"required blank string", "responsable", "   ", ErrRequired},
		{"required filled", "responsable", "Juan", ""},
		{"optional empty", "brix", nil, ""},
		{"below min", "brix", -1.0, ErrMin},
		{"above max", "brix", 81.0, ErrMax},
		{"within bounds", "brix", 12.5, ""},
		{"numeric string", "acidez", "1.2", ""},
		{"not a number", "acidez", "mucho", ErrInvalid},
		{"date ok", "fecha", "2025-03-01", ""},
		{"date malformed", "fecha", "01/03/2025", ErrInvalid},
		{"select option", "turno", "Tarde", ""},
		{"select unknown option", "turno", "Madrugada", ErrInvalid},
		{"text with number", "parte_nro", 12.0, ErrInvalid},
		{"textarea", "observaciones", "sin novedad", ""},
		{"computed skipped", schema.FieldEfficiency, "76.9%", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateField(field(t, tt.fieldID), tt.value)
			if tt.want == "" {
				assert.Nil(t, err)
				return
			}
			require.NotNil(t, err)
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.fieldID, err.FieldID)
		})
	}
}

func TestValidateField_MinOnlyWhenEntered(t *testing.T) {
	f := schema.Field{ID: "x", Type: schema.TypeNumber, Required: true, Min: ptr(10)}

	err := ValidateField(f, nil)
	require.NotNil(t, err)
	assert.Equal(t, ErrRequired, err.Kind)

	err = ValidateField(f, 5.0)
	require.NotNil(t, err)
	assert.Equal(t, ErrMin, err.Kind)
	assert.Equal(t, "Valor mínimo: 10", err.Message)
}

func TestValidateField_ComputedNeverRequired(t *testing.T) {
	f := schema.Field{ID: "calc", Type: schema.TypeNumber, Required: true, Computed: true}
	assert.Nil(t, ValidateField(f, nil))
}

func TestWarningIndependentFromErrors(t *testing.T) {
	temp := field(t, "temp_camara")

	w := Render(temp, State{"temp_camara": -25.0})
	assert.Nil(t, w.Error)
	require.NotNil(t, w.Warning)
	assert.Equal(t, schema.Range{Min: -20, Max: -11}, w.Warning.Range)

	w = Render(temp, State{"temp_camara": -15.0})
	assert.Nil(t, w.Warning)

	w = Render(temp, State{"temp_camara": "frío"})
	require.NotNil(t, w.Error)
	assert.Nil(t, w.Warning, "error takes precedence")
}

func TestRender_Controls(t *testing.T) {
	state := State{}

	assert.Equal(t, "select", Render(field(t, "turno"), state).Control)
	assert.Equal(t, "Seleccione...", Render(field(t, "turno"), state).Placeholder)
	assert.Equal(t, "textarea", Render(field(t, "observaciones"), state).Control)

	date := Render(field(t, "fecha"), state)
	assert.Equal(t, "input", date.Control)
	assert.Equal(t, "date", date.InputType)

	calc := Render(field(t, schema.FieldYield), state)
	assert.True(t, calc.Disabled)
	assert.Nil(t, calc.Error)
}

func TestValidateState_OnlyRequiredFieldsOnEmptyForm(t *testing.T) {
	s := schema.Resolve(models.PlantTucuman)
	errs := ValidateState(s, State{})

	var ids []string
	for _, e := range errs {
		assert.Equal(t, ErrRequired, e.Kind)
		ids = append(ids, e.FieldID)
	}
	assert.ElementsMatch(t, []string{"fecha", "parte_nro", "turno", "responsable"}, ids)
}

func ptr(v float64) *float64 { return &v }
