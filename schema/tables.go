package schema

import (
	"slices"

	"litoralcitrus/models"
)

// DefaultPlant supplies the species list of unmapped plants.
const DefaultPlant = models.PlantConcordia

// Operational limits used for warnings and report targets.
var (
	// Maximum kg of fresh fruit per kg of juice / concentrate.
	MaxFruitPerJuiceKg       = 17.0
	MaxFruitPerConcentrateKg = 30.0

	// Extraction efficiency targets, in percent.
	JuiceEfficiencyTarget  = 95.0
	JuiceEfficiencyWarning = 90.0
	OilEfficiencyTarget    = 50.0

	ChamberTemperature     = Range{Min: -20, Max: -11}
	AnteChamberTemperature = Range{Min: 2, Max: 6}

	MaxFruitStockTn  = 150.0
	MaxAbsenteeismPc = 5.0
)

var plantSpecies = map[models.PlantID][]string{
	models.PlantConcordia:  {"Naranja Común", "Naranja Ombligo", "Naranja Verano", "Pomelo Blanco", "Pomelo Rosado", "Limón", "Mandarina", "Mandarina Raleo"},
	models.PlantTucuman:    {"Naranja Común", "Naranja Tardía", "Naranja Valencia", "Pomelo Blanco", "Pomelo Rosado", "Limón Orgánico", "Limón", "Mandarina"},
	models.PlantBellaVista: {"Naranja Común", "Naranja Tardía", "Naranja Valencia", "Pomelo Blanco", "Pomelo Rosado", "Limón Orgánico", "Limón", "Mandarina"},
	models.PlantFormosa:    {"Naranja Común", "Naranja Ombligo", "Naranja Verano", "Pomelo Blanco", "Pomelo Rosado", "Pomelo Rojo", "Mandarina Común", "Mandarina Variedad"},
}

// plants that number their daily report sheets
var numberedReportPlants = []models.PlantID{models.PlantTucuman, models.PlantBellaVista}

// Shifts offered by the turno field.
var Shifts = []string{"Mañana", "Tarde", "Noche"}

type sectionDef struct {
	id     string
	title  string
	icon   string
	fields func(plantID models.PlantID, species []string) []Field
}

var sectionTable = []sectionDef{
	{
		id:    "general",
		title: "Información General",
		icon:  "📋",
		fields: func(plantID models.PlantID, _ []string) []Field {
			fields := []Field{{ID: "fecha", Label: "Fecha", Type: TypeDate, Required: true}}
			if slices.Contains(numberedReportPlants, plantID) {
				fields = append(fields, Field{ID: "parte_nro", Label: "Parte Nº", Type: TypeText, Required: true})
			}
			return append(fields,
				Field{ID: "turno", Label: "Turno", Type: TypeSelect, Options: slices.Clone(Shifts), Required: true},
				Field{ID: "responsable", Label: "Responsable", Type: TypeText, Required: true},
				Field{ID: "observaciones", Label: "Observaciones", Type: TypeTextarea},
			)
		},
	},
	{
		id:    "fruta_ingreso",
		title: "Fruta Ingresada (Kg)",
		icon:  "🚚",
		fields: func(_ models.PlantID, species []string) []Field {
			fields := make([]Field, 0, len(species))
			for _, s := range species {
				fields = append(fields, Field{ID: FruitFieldID(s), Label: s, Type: TypeNumber, Min: ptr(0)})
			}
			return fields
		},
	},
	{
		id:    "jugos_aceites",
		title: "Producción: Jugos y Aceites",
		icon:  "🧃",
		fields: func(_ models.PlantID, species []string) []Field {
			fields := make([]Field, 0, len(species)+3)
			for _, s := range species {
				fields = append(fields, Field{ID: JuiceFieldID(s), Label: "Jugo " + s, Type: TypeNumber, Min: ptr(0)})
			}
			return append(fields,
				Field{ID: "aceite_esencial", Label: "Aceite Esencial (Kg)", Type: TypeNumber, Min: ptr(0)},
				Field{ID: "terpenos", Label: "Terpenos (Kg)", Type: TypeNumber, Min: ptr(0)},
				Field{ID: "descarte", Label: "Descarte Físico (Kg)", Type: TypeNumber, Min: ptr(0)},
			)
		},
	},
	{
		id:    "calidad",
		title: "Parámetros de Calidad y Ops",
		icon:  "🧪",
		fields: func(models.PlantID, []string) []Field {
			chamber, anteChamber := ChamberTemperature, AnteChamberTemperature
			return []Field{
				{ID: "brix", Label: "Brix (50º Std)", Type: TypeNumber, Step: ptr(0.1), Min: ptr(0), Max: ptr(80)},
				{ID: "acidez", Label: "Acidez (%)", Type: TypeNumber, Step: ptr(0.01), Min: ptr(0), Max: ptr(10)},
				{ID: "temp_camara", Label: "Temp. Cámara (°C)", Type: TypeNumber, Step: ptr(0.5), WarningRange: &chamber},
				{ID: "temp_antecamara", Label: "Temp. Ante-cámara (°C)", Type: TypeNumber, Step: ptr(0.5), WarningRange: &anteChamber},
			}
		},
	},
	{
		id:    "eficiencia",
		title: "Cálculos de Eficiencia (Auto)",
		icon:  "📈",
		fields: func(models.PlantID, []string) []Field {
			return []Field{
				{ID: FieldYield, Label: "Rendimiento (Kg Fruta/Kg Jugo)", Type: TypeNumber, Computed: true},
				{ID: FieldEfficiency, Label: "Eficiencia Extracción (%)", Type: TypeNumber, Computed: true},
			}
		},
	},
}
