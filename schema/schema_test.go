package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"litoralcitrus/models"
)

var knownPlants = []models.PlantID{
	models.PlantConcordia,
	models.PlantTucuman,
	models.PlantBellaVista,
	models.PlantFormosa,
}

func TestResolve_Idempotent(t *testing.T) {
	for _, plant := range append(knownPlants, "unknown", "") {
		t.Run(string(plant), func(t *testing.T) {
			first, second := Resolve(plant), Resolve(plant)
			assert.Equal(t, first, second)
			assert.Equal(t, first.FieldIDs(), second.FieldIDs())
		})
	}
}

func TestResolve_SectionOrder(t *testing.T) {
	s := Resolve(models.PlantConcordia)

	var ids []string
	for _, sec := range s.Sections {
		ids = append(ids, sec.ID)
		assert.NotEmpty(t, sec.Fields, sec.ID)
	}
	assert.Equal(t, []string{"general", "fruta_ingreso", "jugos_aceites", "calidad", "eficiencia"}, ids)
}

func TestResolve_UniqueFieldIDs(t *testing.T) {
	for _, plant := range knownPlants {
		seen := map[string]bool{}
		for _, id := range Resolve(plant).FieldIDs() {
			assert.False(t, seen[id], "duplicate field %s in %s", id, plant)
			seen[id] = true
		}
	}
}

func TestSpeciesKeys_CollisionFree(t *testing.T) {
	keys := map[string]string{}
	for _, species := range plantSpecies {
		for _, s := range species {
			key := SpeciesKey(s)
			if prev, ok := keys[key]; ok {
				assert.Equal(t, prev, s, "species %q and %q share key %q", prev, s, key)
			}
			keys[key] = s
		}
	}
}

func TestFieldIDs(t *testing.T) {
	assert.Equal(t, "fruta_naranja_común", FruitFieldID("Naranja Común"))
	assert.Equal(t, "jugo_limón_orgánico", JuiceFieldID("Limón Orgánico"))
	assert.Equal(t, "fruta_mandarina", FruitFieldID("Mandarina"))
}

func TestResolve_PlantSpecificFields(t *testing.T) {
	tests := []struct {
		plant       models.PlantID
		hasParte    bool
		wantSpecies string
	}{
		{models.PlantConcordia, false, "fruta_mandarina_raleo"},
		{models.PlantTucuman, true, "fruta_naranja_valencia"},
		{models.PlantBellaVista, true, "fruta_limón_orgánico"},
		{models.PlantFormosa, false, "fruta_pomelo_rojo"},
	}

	for _, tt := range tests {
		t.Run(string(tt.plant), func(t *testing.T) {
			s := Resolve(tt.plant)
			_, ok := s.Field("parte_nro")
			assert.Equal(t, tt.hasParte, ok)
			_, ok = s.Field(tt.wantSpecies)
			assert.True(t, ok, tt.wantSpecies)
		})
	}
}

func TestResolve_UnknownPlantFallsBackToDefault(t *testing.T) {
	unknown := Resolve("rosario")
	def := Resolve(DefaultPlant)

	assert.Equal(t, def.FieldIDs(), unknown.FieldIDs())
	assert.Equal(t, models.PlantID("rosario"), unknown.PlantID)
}

func TestResolve_FieldConstraints(t *testing.T) {
	s := Resolve(models.PlantConcordia)

	brix, ok := s.Field("brix")
	require.True(t, ok)
	require.NotNil(t, brix.Max)
	assert.Equal(t, 80.0, *brix.Max)

	temp, ok := s.Field("temp_camara")
	require.True(t, ok)
	require.NotNil(t, temp.WarningRange)
	assert.Equal(t, Range{Min: -20, Max: -11}, *temp.WarningRange)

	for _, id := range []string{FieldYield, FieldEfficiency} {
		f, ok := s.Field(id)
		require.True(t, ok)
		assert.True(t, f.Computed, id)
	}

	turno, _ := s.Field("turno")
	assert.Equal(t, []string{"Mañana", "Tarde", "Noche"}, turno.Options)
}

func TestResolve_DoesNotShareMutableState(t *testing.T) {
	a := Resolve(models.PlantConcordia)
	turno, _ := a.Field("turno")
	turno.Options[0] = "changed"
	a.Sections[3].Fields[2].WarningRange.Min = 100

	b := Resolve(models.PlantConcordia)
	bTurno, _ := b.Field("turno")
	assert.Equal(t, "Mañana", bTurno.Options[0])
	assert.Equal(t, -20.0, b.Sections[3].Fields[2].WarningRange.Min)
}
