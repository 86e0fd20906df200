// Package schema resolves the plant-specific daily report form.
//
// Resolution is a pure lookup over static tables: the same plant id always
// yields the same sections and field ids. Field ids are the storage keys of
// submitted reports and must never change for an existing species.
package schema

import (
	"strings"

	"litoralcitrus/models"
)

// FieldType is the input kind of a field.
type FieldType string

const (
	TypeText     FieldType = "text"
	TypeDate     FieldType = "date"
	TypeSelect   FieldType = "select"
	TypeNumber   FieldType = "number"
	TypeTextarea FieldType = "textarea"
)

// Range is an inclusive numeric band.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies within the band.
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// Field describes one input of the report form.
type Field struct {
	ID           string    `json:"id"`
	Label        string    `json:"label"`
	Type         FieldType `json:"type"`
	Required     bool      `json:"required"`
	Min          *float64  `json:"min,omitempty"`
	Max          *float64  `json:"max,omitempty"`
	Step         *float64  `json:"step,omitempty"`
	Options      []string  `json:"options,omitempty"`
	WarningRange *Range    `json:"warning_range,omitempty"`
	Computed     bool      `json:"computed"`
}

// Section is a titled group of fields. Order is display order.
type Section struct {
	ID     string  `json:"id"`
	Title  string  `json:"title"`
	Icon   string  `json:"icon"`
	Fields []Field `json:"fields"`
}

// Schema is the resolved form of one plant.
type Schema struct {
	PlantID  models.PlantID `json:"plant_id"`
	Sections []Section      `json:"sections"`
}

// Field returns the descriptor with the given id.
func (s Schema) Field(id string) (Field, bool) {
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if f.ID == id {
				return f, true
			}
		}
	}
	return Field{}, false
}

// Fields returns all descriptors in display order.
func (s Schema) Fields() []Field {
	var out []Field
	for _, sec := range s.Sections {
		out = append(out, sec.Fields...)
	}
	return out
}

// FieldIDs returns all field ids in display order.
func (s Schema) FieldIDs() []string {
	fields := s.Fields()
	ids := make([]string, len(fields))
	for i, f := range fields {
		ids[i] = f.ID
	}
	return ids
}

// Section returns the section with the given id.
func (s Schema) Section(id string) (Section, bool) {
	for _, sec := range s.Sections {
		if sec.ID == id {
			return sec, true
		}
	}
	return Section{}, false
}

// Field id prefixes and computed field ids.
const (
	FruitPrefix = "fruta_"
	JuicePrefix = "jugo_"

	FieldYield      = "calc_rendimiento"
	FieldEfficiency = "calc_eficiencia"
)

// SpeciesKey turns a species name into its id fragment: lower case, spaces as underscores.
func SpeciesKey(species string) string {
	return strings.ReplaceAll(strings.ToLower(species), " ", "_")
}

// FruitFieldID is the raw intake field id of a species.
func FruitFieldID(species string) string {
	return FruitPrefix + SpeciesKey(species)
}

// JuiceFieldID is the juice output field id of a species.
func JuiceFieldID(species string) string {
	return JuicePrefix + SpeciesKey(species)
}

// Resolve builds the report schema of a plant. Unknown plants use the
// default plant's species list.
func Resolve(plantID models.PlantID) Schema {
	species := SpeciesFor(plantID)

	sections := make([]Section, 0, len(sectionTable))
	for _, def := range sectionTable {
		sections = append(sections, Section{
			ID:     def.id,
			Title:  def.title,
			Icon:   def.icon,
			Fields: def.fields(plantID, species),
		})
	}

	return Schema{PlantID: plantID, Sections: sections}
}

// SpeciesFor returns the species processed at a plant.
func SpeciesFor(plantID models.PlantID) []string {
	if species, ok := plantSpecies[plantID]; ok {
		return species
	}
	return plantSpecies[DefaultPlant]
}

func ptr(v float64) *float64 { return &v }
