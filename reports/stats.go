package reports

import (
	"strings"

	"github.com/shopspring/decimal"

	"litoralcitrus/forms"
	"litoralcitrus/models"
	"litoralcitrus/schema"
)

// PlantStats aggregates the entries of one plant.
type PlantStats struct {
	PlantID          models.PlantID `json:"id"`
	Name             string         `json:"name"`
	TotalFruit       float64        `json:"totalFruta"`
	AvgEfficiency    float64        `json:"avgEficiencia"`
	Count            int            `json:"count"` // entries with a positive efficiency
	Entries          int            `json:"entries"`
	TargetFruit      float64        `json:"targetFruta"`
	TargetEfficiency float64        `json:"targetEficiencia"`
}

// KPIs are the cross-plant totals shown to roles that see every plant.
type KPIs struct {
	TotalFruit    float64 `json:"totalFruta"`
	AvgEfficiency float64 `json:"avgEficiencia"`
	Reports       int     `json:"partesCargados"`
}

// Summary is the dashboard payload. KPIs is nil for plant-scoped roles.
type Summary struct {
	Plants []PlantStats `json:"plants"`
	KPIs   *KPIs        `json:"kpis,omitempty"`
}

type plantAcc struct {
	fruit      decimal.Decimal
	efficiency decimal.Decimal
	count      int
	entries    int
}

// Aggregate builds per-plant statistics over entries. Every known plant is
// listed even without entries; entries of other plants are ignored.
func Aggregate(entries []models.ReportEntry, withKPIs bool) Summary {
	acc := make(map[models.PlantID]*plantAcc, len(models.Plants))
	for _, p := range models.Plants {
		acc[p.ID] = &plantAcc{}
	}

	for _, entry := range entries {
		a, ok := acc[entry.PlantID]
		if !ok || entry.Data == nil {
			continue
		}
		a.entries++
		data := forms.State(entry.Data)
		for key := range data {
			if !strings.HasPrefix(key, schema.FruitPrefix) {
				continue
			}
			if n, ok := data.Number(key); ok {
				a.fruit = a.fruit.Add(decimal.NewFromFloat(n))
			}
		}
		if eff, ok := forms.ParseEfficiency(data[schema.FieldEfficiency]); ok && eff > 0 {
			a.efficiency = a.efficiency.Add(decimal.NewFromFloat(eff))
			a.count++
		}
	}

	summary := Summary{Plants: make([]PlantStats, 0, len(models.Plants))}
	for _, p := range models.Plants {
		a := acc[p.ID]
		stats := PlantStats{
			PlantID:          p.ID,
			Name:             p.Name,
			TotalFruit:       a.fruit.Round(0).InexactFloat64(),
			Count:            a.count,
			Entries:          a.entries,
			TargetFruit:      plantTarget(p),
			TargetEfficiency: schema.JuiceEfficiencyTarget,
		}
		if a.count > 0 {
			stats.AvgEfficiency = a.efficiency.Div(decimal.NewFromInt(int64(a.count))).Round(2).InexactFloat64()
		}
		summary.Plants = append(summary.Plants, stats)
	}

	if withKPIs {
		summary.KPIs = kpis(summary.Plants, len(entries))
	}
	return summary
}

func kpis(plants []PlantStats, reports int) *KPIs {
	k := &KPIs{Reports: reports}
	var eff decimal.Decimal
	withData := 0
	for _, p := range plants {
		k.TotalFruit += p.TotalFruit
		if p.Count > 0 {
			eff = eff.Add(decimal.NewFromFloat(p.AvgEfficiency))
			withData++
		}
	}
	if withData > 0 {
		k.AvgEfficiency = eff.Div(decimal.NewFromInt(int64(withData))).Round(1).InexactFloat64()
	}
	return k
}

func plantTarget(p models.Plant) float64 {
	if p.TargetFruit > 0 {
		return p.TargetFruit
	}
	return models.DefaultPlantTarget
}
