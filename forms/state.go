// Package forms holds the editing side of the daily report: the per-session
// form state, field widgets with validation and warnings, the presentation
// layouts and the derived-metrics calculator.
package forms

import (
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"
)

// State maps field ids to their current value. Values are strings, float64
// or absent; an absent key means the field is empty.
type State map[string]any

// Clone returns an independent copy.
func (s State) Clone() State {
	if s == nil {
		return State{}
	}
	return maps.Clone(s)
}

// Number returns the numeric value of a field. Numeric strings are accepted.
func (s State) Number(id string) (float64, bool) {
	return toNumber(s[id])
}

// IsEmpty reports whether the field has no value.
func (s State) IsEmpty(id string) bool {
	return isEmpty(s[id])
}

// Display formats a value for plain-text output. Empty fields yield "".
func (s State) Display(id string) string {
	switch val := s[id].(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return formatNumber(val)
	}
	if n, ok := toNumber(s[id]); ok {
		return formatNumber(n)
	}
	return fmt.Sprint(s[id])
}

func isEmpty(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	}
	return false
}

func toNumber(v any) (float64, bool) {
	var f float64
	switch val := v.(type) {
	case float64:
		f = val
	case float32:
		f = float64(val)
	case int:
		f = float64(val)
	case int64:
		f = float64(val)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
