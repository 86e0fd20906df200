package forms

import (
	"errors"
	"fmt"

	"litoralcitrus/schema"
)

// LayoutKind names a presentation strategy.
type LayoutKind string

const (
	LayoutSingle LayoutKind = "single"
	LayoutTabs   LayoutKind = "tabs"
	LayoutWizard LayoutKind = "wizard"
)

var (
	ErrUnknownLayout   = errors.New("unknown form layout")
	ErrUnknownSection  = errors.New("unknown form section")
	ErrWrongLayout     = errors.New("navigation not available in the current layout")
	ErrSubmitNotOnStep = errors.New("submit is only available on the last step")
)

// Progress is the wizard position; other layouts report the full form.
type Progress struct {
	Current int     `json:"current"` // 1-based
	Total   int     `json:"total"`
	Ratio   float64 `json:"ratio"`
}

// Layout decides which sections are shown and whether submit is reachable.
// Layouts never hold field values.
type Layout interface {
	Kind() LayoutKind
	Visible(s schema.Schema) []schema.Section
	Progress(s schema.Schema) Progress
	CanSubmit(s schema.Schema) bool
}

// NewLayout returns a fresh layout of the given kind.
func NewLayout(kind LayoutKind, s schema.Schema) (Layout, error) {
	switch kind {
	case LayoutSingle:
		return &SinglePage{}, nil
	case LayoutTabs:
		return NewTabbed(s), nil
	case LayoutWizard:
		return &Wizard{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownLayout, kind)
}

// SinglePage shows every section at once.
type SinglePage struct{}

func (*SinglePage) Kind() LayoutKind { return LayoutSingle }

func (*SinglePage) Visible(s schema.Schema) []schema.Section { return s.Sections }

func (*SinglePage) Progress(s schema.Schema) Progress {
	return Progress{Current: len(s.Sections), Total: len(s.Sections), Ratio: 1}
}

func (*SinglePage) CanSubmit(schema.Schema) bool { return true }

// Tabbed shows one section at a time, chosen freely.
type Tabbed struct {
	ActiveSectionID string `json:"active_section_id"`
}

// NewTabbed activates the first section.
func NewTabbed(s schema.Schema) *Tabbed {
	t := &Tabbed{}
	if len(s.Sections) > 0 {
		t.ActiveSectionID = s.Sections[0].ID
	}
	return t
}

func (*Tabbed) Kind() LayoutKind { return LayoutTabs }

// Select switches the active tab.
func (t *Tabbed) Select(s schema.Schema, sectionID string) error {
	if _, ok := s.Section(sectionID); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSection, sectionID)
	}
	t.ActiveSectionID = sectionID
	return nil
}

func (t *Tabbed) Visible(s schema.Schema) []schema.Section {
	if sec, ok := s.Section(t.ActiveSectionID); ok {
		return []schema.Section{sec}
	}
	return nil
}

func (*Tabbed) Progress(s schema.Schema) Progress {
	return Progress{Current: len(s.Sections), Total: len(s.Sections), Ratio: 1}
}

func (*Tabbed) CanSubmit(schema.Schema) bool { return true }

// Wizard walks the sections in order.
type Wizard struct {
	Step int `json:"step"` // 0-based, within [0, sections-1]
}

func (*Wizard) Kind() LayoutKind { return LayoutWizard }

// Next advances one step, stopping at the last section.
func (w *Wizard) Next(s schema.Schema) {
	w.Step = min(w.Step+1, max(len(s.Sections)-1, 0))
}

// Prev goes back one step, stopping at the first section.
func (w *Wizard) Prev() {
	w.Step = max(w.Step-1, 0)
}

func (w *Wizard) Visible(s schema.Schema) []schema.Section {
	if w.Step < 0 || w.Step >= len(s.Sections) {
		return nil
	}
	return []schema.Section{s.Sections[w.Step]}
}

func (w *Wizard) Progress(s schema.Schema) Progress {
	total := len(s.Sections)
	if total == 0 {
		return Progress{}
	}
	return Progress{Current: w.Step + 1, Total: total, Ratio: float64(w.Step+1) / float64(total)}
}

func (w *Wizard) CanSubmit(s schema.Schema) bool {
	return w.Step == len(s.Sections)-1
}
