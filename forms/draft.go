package forms

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"litoralcitrus/models"
	"litoralcitrus/schema"
)

var (
	ErrUnknownField  = errors.New("unknown form field")
	ErrComputedField = errors.New("computed fields cannot be edited")
)

// Draft is one editing session of the daily report. It owns the form state;
// layouts can be swapped without touching it.
type Draft struct {
	ID      string
	UserID  string
	PlantID models.PlantID

	mu        sync.Mutex
	schema    schema.Schema
	state     State
	layout    Layout
	calc      Calculator
	rev       uint64
	updatedAt time.Time
}

// NewDraft opens an empty draft for the plant's schema.
func NewDraft(id, userID string, plantID models.PlantID, kind LayoutKind) (*Draft, error) {
	s := schema.Resolve(plantID)
	layout, err := NewLayout(kind, s)
	if err != nil {
		return nil, err
	}
	return &Draft{
		ID:        id,
		UserID:    userID,
		PlantID:   plantID,
		schema:    s,
		state:     State{},
		layout:    layout,
		updatedAt: time.Now(),
	}, nil
}

// Schema returns the resolved schema of the draft.
func (d *Draft) Schema() schema.Schema {
	return d.schema
}

// SetValue stores user input for a field and refreshes derived metrics.
// Strings are trimmed; numeric input is kept as float64 when it parses.
func (d *Draft) SetValue(fieldID string, raw any) (Widget, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.setLocked(fieldID, raw); err != nil {
		return Widget{}, err
	}
	f, _ := d.schema.Field(fieldID)
	return Render(f, d.state), nil
}

// SetValues applies several inputs in map order. Unknown or computed ids
// abort before anything is written.
func (d *Draft) SetValues(values map[string]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := Merge(d.schema, d.state, values); err != nil {
		return err
	}
	d.touch()
	return nil
}

func (d *Draft) setLocked(fieldID string, raw any) error {
	if err := setValue(d.schema, d.state, fieldID, raw); err != nil {
		return err
	}
	d.calc.Apply(d.state, fieldID)
	d.touch()
	return nil
}

// Merge applies values to state under the editability rules of s and
// refreshes the derived metrics. Nothing is written if any id is rejected.
func Merge(s schema.Schema, state State, values map[string]any) error {
	for id := range values {
		if err := checkEditable(s, id); err != nil {
			return err
		}
	}
	var calc Calculator
	for id, raw := range values {
		if err := setValue(s, state, id, raw); err != nil {
			return err
		}
		calc.Apply(state, id)
	}
	return nil
}

func checkEditable(s schema.Schema, fieldID string) error {
	f, ok := s.Field(fieldID)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, fieldID)
	}
	if f.Computed {
		return fmt.Errorf("%w: %q", ErrComputedField, fieldID)
	}
	return nil
}

func setValue(s schema.Schema, state State, fieldID string, raw any) error {
	if err := checkEditable(s, fieldID); err != nil {
		return err
	}
	f, _ := s.Field(fieldID)

	if value := normalize(f, raw); value == nil {
		delete(state, fieldID)
	} else {
		state[fieldID] = value
	}
	return nil
}

func normalize(f schema.Field, raw any) any {
	if s, ok := raw.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil
		}
		if f.Type == schema.TypeNumber {
			if n, ok := toNumber(s); ok {
				return n
			}
		}
		return s
	}
	if raw == nil {
		return nil
	}
	if f.Type == schema.TypeNumber {
		if n, ok := toNumber(raw); ok {
			return n
		}
	}
	return raw
}

// Layout returns the kind of the active layout.
func (d *Draft) Layout() LayoutKind {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.layout.Kind()
}

// SetLayout swaps the presentation strategy. The form state is untouched.
func (d *Draft) SetLayout(kind LayoutKind) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.layout.Kind() == kind {
		return nil
	}
	layout, err := NewLayout(kind, d.schema)
	if err != nil {
		return err
	}
	d.layout = layout
	return nil
}

// SelectTab switches the active section of a tabbed layout.
func (d *Draft) SelectTab(sectionID string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.layout.(*Tabbed)
	if !ok {
		return ErrWrongLayout
	}
	return t.Select(d.schema, sectionID)
}

// NextStep advances a wizard layout.
func (d *Draft) NextStep() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.layout.(*Wizard)
	if !ok {
		return ErrWrongLayout
	}
	w.Next(d.schema)
	return nil
}

// PrevStep moves a wizard layout back.
func (d *Draft) PrevStep() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	w, ok := d.layout.(*Wizard)
	if !ok {
		return ErrWrongLayout
	}
	w.Prev()
	return nil
}

// Snapshot returns a copy of the form state.
func (d *Draft) Snapshot() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state.Clone()
}

// Checkout validates the draft and returns a copy of its state with the
// revision it was taken at. Both happen under one lock, so the copy is
// exactly what was validated.
func (d *Draft) Checkout() (State, uint64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.layout.CanSubmit(d.schema) {
		return nil, 0, ErrSubmitNotOnStep
	}
	if errs := ValidateState(d.schema, d.state); len(errs) > 0 {
		return nil, 0, errs
	}
	return d.state.Clone(), d.rev, nil
}

// Reset empties the form state and returns a wizard to its first step.
func (d *Draft) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
}

// ResetAt resets the draft only if nothing changed since revision rev.
// Input that arrived after a Checkout is kept.
func (d *Draft) ResetAt(rev uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.rev != rev {
		return false
	}
	d.resetLocked()
	return true
}

func (d *Draft) resetLocked() {
	d.state = State{}
	if layout, err := NewLayout(d.layout.Kind(), d.schema); err == nil {
		d.layout = layout
	}
	d.touch()
}

func (d *Draft) touch() {
	d.rev++
	d.updatedAt = time.Now()
}

// UpdatedAt is the time of the last change.
func (d *Draft) UpdatedAt() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.updatedAt
}

// SectionView is a rendered section.
type SectionView struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Icon    string   `json:"icon"`
	Widgets []Widget `json:"widgets"`
}

// View is the rendered form as the active layout presents it.
type View struct {
	DraftID         string         `json:"draft_id"`
	PlantID         models.PlantID `json:"plant_id"`
	Layout          LayoutKind     `json:"layout"`
	Tabs            []TabView      `json:"tabs,omitempty"`
	ActiveSectionID string         `json:"active_section_id,omitempty"`
	Progress        Progress       `json:"progress"`
	Sections        []SectionView  `json:"sections"`
	CanSubmit       bool           `json:"can_submit"`
	Errors          int            `json:"errors"`
	Warnings        []Warning      `json:"warnings,omitempty"`
}

// TabView is one tab header.
type TabView struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Icon   string `json:"icon"`
	Active bool   `json:"active"`
}

// View renders the visible sections of the draft.
func (d *Draft) View() View {
	d.mu.Lock()
	defer d.mu.Unlock()

	v := View{
		DraftID:   d.ID,
		PlantID:   d.PlantID,
		Layout:    d.layout.Kind(),
		Progress:  d.layout.Progress(d.schema),
		CanSubmit: d.layout.CanSubmit(d.schema),
		Errors:    len(ValidateState(d.schema, d.state)),
		Warnings:  Warnings(d.schema, d.state),
	}

	if t, ok := d.layout.(*Tabbed); ok {
		v.ActiveSectionID = t.ActiveSectionID
		for _, sec := range d.schema.Sections {
			v.Tabs = append(v.Tabs, TabView{ID: sec.ID, Title: sec.Title, Icon: sec.Icon, Active: sec.ID == t.ActiveSectionID})
		}
	}

	for _, sec := range d.layout.Visible(d.schema) {
		sv := SectionView{ID: sec.ID, Title: sec.Title, Icon: sec.Icon}
		for _, f := range sec.Fields {
			sv.Widgets = append(sv.Widgets, Render(f, d.state))
		}
		v.Sections = append(v.Sections, sv)
	}
	return v
}
