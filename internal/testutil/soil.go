// Package testutil は各パッケージのテストで共有する決定的な合成データを提供します。
package testutil

import (
	"math"

	"github.com/YuminosukeSato/soilph/dataset"
)

var (
	barangays = []string{"Poblacion", "San Isidro", "Santa Cruz"}
	crops     = []string{"Corn", "Rice", "Vegetables"}
	cropShift = map[string]float64{"Corn": 0, "Rice": -0.35, "Vegetables": 0.2}
)

// Noise は i に対して決まる [-amp, amp] の擬似乱数
func Noise(i int, amp float64) float64 {
	return amp * math.Sin(1.7*float64(i)+0.3*math.Cos(0.9*float64(i)))
}

// SoilDataset は n 行の土壌 pH データを作る。
// pH = 6.2 - 0.004*fertilizer + 0.03*years + 0.25*lime + crop effect + noise
func SoilDataset(n int) *dataset.Dataset {
	ph := make([]float64, n)
	bar := make([]string, n)
	crop := make([]string, n)
	fert := make([]float64, n)
	years := make([]float64, n)
	lime := make([]float64, n)
	for i := 0; i < n; i++ {
		bar[i] = barangays[i%3]
		crop[i] = crops[(i/3)%3]
		fert[i] = 40 + float64((i*37)%120)
		years[i] = 1 + float64((i*7)%15)
		lime[i] = float64((i / 2) % 2)
		ph[i] = 6.2 - 0.004*fert[i] + 0.03*years[i] + 0.25*lime[i] + cropShift[crop[i]] + Noise(i, 0.15)
	}
	return dataset.MustNew(
		dataset.FloatColumn("pH_reading", ph),
		dataset.StringColumn("Barangay", bar),
		dataset.StringColumn("Crop", crop),
		dataset.FloatColumn("fertilizer_kg_ha", fert),
		dataset.FloatColumn("years_planted", years),
		dataset.FloatColumn("lime_applied", lime),
	)
}

// PrimaryFormula はテストで使う主モデル
const PrimaryFormula = "pH_reading ~ fertilizer_kg_ha + years_planted + lime_applied + C(Crop) + C(Barangay)"
