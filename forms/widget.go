package forms

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"litoralcitrus/schema"
)

// ErrorKind classifies a blocking field error.
type ErrorKind string

const (
	ErrRequired ErrorKind = "required"
	ErrMin      ErrorKind = "min"
	ErrMax      ErrorKind = "max"
	ErrInvalid  ErrorKind = "invalid"
)

// DateLayout is the accepted format of date fields.
const DateLayout = "2006-01-02"

// FieldError is a blocking validation error on one field.
type FieldError struct {
	FieldID string    `json:"field_id"`
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.FieldID, e.Message)
}

// ValidationErrors collects the field errors of a form.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = e.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Warning is a non-blocking operational-range notice.
type Warning struct {
	FieldID string       `json:"field_id"`
	Range   schema.Range `json:"range"`
	Message string       `json:"message"`
}

// Widget is the rendered control of one field.
type Widget struct {
	Field       schema.Field `json:"field"`
	Control     string       `json:"control"` // input, select or textarea
	InputType   string       `json:"input_type,omitempty"`
	Placeholder string       `json:"placeholder,omitempty"`
	Value       any          `json:"value,omitempty"`
	Disabled    bool         `json:"disabled"`
	Error       *FieldError  `json:"error,omitempty"`
	Warning     *Warning     `json:"warning,omitempty"`
}

// Render builds the widget of a field from the current state.
func Render(field schema.Field, state State) Widget {
	value := state[field.ID]
	w := Widget{
		Field:       field,
		Value:       value,
		Disabled:    field.Computed,
		Placeholder: field.Label,
	}

	switch field.Type {
	case schema.TypeTextarea:
		w.Control = "textarea"
	case schema.TypeSelect:
		w.Control = "select"
		w.Placeholder = "Seleccione..."
	default:
		w.Control = "input"
		w.InputType = string(field.Type)
	}

	w.Error = ValidateField(field, value)
	if w.Error == nil {
		w.Warning = WarningFor(field, value)
	}
	return w
}

// ValidateField classifies the value of a field into at most one blocking
// error. Computed fields are never validated.
func ValidateField(field schema.Field, value any) *FieldError {
	if field.Computed {
		return nil
	}
	if isEmpty(value) {
		if field.Required {
			return fieldError(field, ErrRequired)
		}
		return nil
	}

	switch field.Type {
	case schema.TypeNumber:
		n, ok := toNumber(value)
		if !ok {
			return fieldError(field, ErrInvalid)
		}
		if field.Min != nil && n < *field.Min {
			return fieldError(field, ErrMin)
		}
		if field.Max != nil && n > *field.Max {
			return fieldError(field, ErrMax)
		}
	case schema.TypeDate:
		s, ok := value.(string)
		if !ok {
			return fieldError(field, ErrInvalid)
		}
		if _, err := time.Parse(DateLayout, strings.TrimSpace(s)); err != nil {
			return fieldError(field, ErrInvalid)
		}
	case schema.TypeSelect:
		s, ok := value.(string)
		if !ok || !slices.Contains(field.Options, s) {
			return fieldError(field, ErrInvalid)
		}
	default:
		if _, ok := value.(string); !ok {
			return fieldError(field, ErrInvalid)
		}
	}
	return nil
}

// WarningFor reports a value outside the field's operational band.
func WarningFor(field schema.Field, value any) *Warning {
	if field.WarningRange == nil {
		return nil
	}
	n, ok := toNumber(value)
	if !ok || field.WarningRange.Contains(n) {
		return nil
	}
	r := *field.WarningRange
	return &Warning{
		FieldID: field.ID,
		Range:   r,
		Message: fmt.Sprintf("Fuera de rango operativo (%s a %s)", formatNumber(r.Min), formatNumber(r.Max)),
	}
}

// ValidateState validates every field of a schema against the state.
func ValidateState(s schema.Schema, state State) ValidationErrors {
	var errs ValidationErrors
	for _, f := range s.Fields() {
		if err := ValidateField(f, state[f.ID]); err != nil {
			errs = append(errs, *err)
		}
	}
	return errs
}

// Warnings returns every operational warning of the state.
func Warnings(s schema.Schema, state State) []Warning {
	var out []Warning
	for _, f := range s.Fields() {
		value := state[f.ID]
		if ValidateField(f, value) != nil {
			continue
		}
		if w := WarningFor(f, value); w != nil {
			out = append(out, *w)
		}
	}
	return out
}

func fieldError(field schema.Field, kind ErrorKind) *FieldError {
	var msg string
	switch kind {
	case ErrRequired:
		msg = "Este campo es obligatorio"
	case ErrMin:
		msg = "Valor mínimo: " + formatNumber(*field.Min)
	case ErrMax:
		msg = "Valor máximo: " + formatNumber(*field.Max)
	default:
		msg = "Valor inválido"
	}
	return &FieldError{FieldID: field.ID, Kind: kind, Message: msg}
}
