package preprocessing

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/pkg/errors"
)

func soilDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	nan := math.NaN()
	ds, err := dataset.New(
		dataset.FloatColumn("pH_reading", []float64{6.0, nan, 5.5, 6.2, 5.8, 6.1}),
		dataset.StringColumn("Barangay", []string{"A", "A", "A", "B", "B", "B"}),
		dataset.StringColumn("Crop", []string{"Rice", "Rice", "Rice", "Corn", "Corn", "Corn"}),
		dataset.FloatColumn("fertilizer_kg_ha", []float64{100, 50, nan, nan, nan, nan}),
		dataset.FloatColumn("years_planted", []float64{2, 4, nan, 6, 8, nan}),
		dataset.FloatColumn("lime_applied", []float64{1, 0, 1, nan, 0, 1}),
	)
	require.NoError(t, err)
	return ds
}

func TestHandleMissingValues(t *testing.T) {
	ds := soilDataset(t)

	cleaned, audit, err := HandleMissingValues(ds, DefaultSchema())
	require.NoError(t, err)

	assert.Equal(t, 6, audit.OriginalN())
	assert.Equal(t, 5, audit.FinalN())
	assert.Equal(t, 1, audit.RowsRemoved())
	assert.Equal(t, audit.OriginalN()-audit.RowsRemoved(), audit.FinalN())
	assert.Equal(t, []int{0, 2, 3, 4, 5}, cleaned.Index())

	ph, _ := cleaned.Float("pH_reading")
	for _, v := range ph {
		assert.False(t, math.IsNaN(v))
	}

	// (A, Rice) の平均は 100、(B, Corn) は全欠損なので全体平均 100
	fert, _ := cleaned.Float("fertilizer_kg_ha")
	assert.Equal(t, []float64{100, 100, 100, 100, 100}, fert)

	years, _ := cleaned.Float("years_planted")
	// 行 1 が削除された後の観測値 2, 6, 8 の平均
	assert.InDelta(t, 2.0, years[0], 1e-12)
	assert.InDelta(t, 16.0/3.0, years[1], 1e-12)
	assert.InDelta(t, 16.0/3.0, years[4], 1e-12)

	lime, _ := cleaned.Float("lime_applied")
	assert.True(t, math.IsNaN(lime[2]), "columns outside the policy are untouched")

	assert.Equal(t, ImputeRowRemoval, audit.Method("pH_reading"))
	assert.Equal(t, ImputeGroupMeanThenOverallMean, audit.Method("fertilizer_kg_ha"))
	assert.Equal(t, ImputeOverallMean, audit.Method("years_planted"))
	assert.Equal(t, ImputeNone, audit.Method("lime_applied"))
	assert.Equal(t, map[string]int{"pH_reading": 1, "fertilizer_kg_ha": 4, "years_planted": 2}, audit.MissingByVariable())

	// 入力は変更されない
	orig, _ := ds.Float("fertilizer_kg_ha")
	assert.True(t, math.IsNaN(orig[2]))
	assert.Contains(t, audit.String(), "Rows removed: 1")
}

func TestHandleMissingValuesGroupMean(t *testing.T) {
	nan := math.NaN()
	ds, err := dataset.New(
		dataset.FloatColumn("pH_reading", []float64{6, 6, 6, 6, 6}),
		dataset.StringColumn("Barangay", []string{"A", "A", "B", "B", ""}),
		dataset.StringColumn("Crop", []string{"Rice", "Rice", "Rice", "Rice", "Rice"}),
		dataset.FloatColumn("fertilizer_kg_ha", []float64{10, nan, 30, nan, nan}),
	)
	require.NoError(t, err)

	cleaned, audit, err := HandleMissingValues(ds, DefaultSchema())
	require.NoError(t, err)
	fert, _ := cleaned.Float("fertilizer_kg_ha")
	assert.Equal(t, []float64{10, 10, 30, 30, 20}, fert)
	assert.Equal(t, 0, audit.RowsRemoved())
	assert.Equal(t, []string{"pH_reading", "fertilizer_kg_ha"}, audit.Variables())
}

func TestHandleMissingValuesErrors(t *testing.T) {
	nan := math.NaN()
	tests := []struct {
		name   string
		cols   *dataset.Dataset
		column string
	}{
		{
			name:   "dependent absent",
			cols:   dataset.MustNew(dataset.FloatColumn("fertilizer_kg_ha", []float64{1, 2})),
			column: "pH_reading",
		},
		{
			name: "group column absent",
			cols: dataset.MustNew(
				dataset.FloatColumn("pH_reading", []float64{6, 6}),
				dataset.FloatColumn("fertilizer_kg_ha", []float64{1, nan}),
			),
			column: "Barangay",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := HandleMissingValues(tt.cols, DefaultSchema())
			var schemaErr *errors.SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tt.column, schemaErr.Column)
		})
	}
}

func TestHandleMissingValuesNoMissing(t *testing.T) {
	ds := dataset.MustNew(
		dataset.FloatColumn("pH_reading", []float64{6, 7}),
		dataset.FloatColumn("years_planted", []float64{1, 2}),
	)
	cleaned, audit, err := HandleMissingValues(ds, DefaultSchema())
	require.NoError(t, err)
	assert.Equal(t, 2, cleaned.Nrow())
	assert.Equal(t, 0, audit.RowsRemoved())
	assert.Equal(t, ImputeNone, audit.Method("years_planted"))
}

func TestCleaningReport(t *testing.T) {
	ds := soilDataset(t)
	cleaned, _, err := HandleMissingValues(ds, DefaultSchema())
	require.NoError(t, err)

	text := CleaningReport(ds, cleaned)
	assert.Contains(t, text, "DATA CLEANING REPORT")
	assert.Contains(t, text, "Original dataset: 6 observations, 6 variables")
	assert.Contains(t, text, "Rows removed:     1")
	assert.Contains(t, text, "Data retention:   83.3%")
}

func TestHandleMissingValuesAllMissingColumn(t *testing.T) {
	nan := math.NaN()
	ds := dataset.MustNew(
		dataset.FloatColumn("pH_reading", []float64{6, 7, 6.5}),
		dataset.StringColumn("Barangay", []string{"A", "A", "B"}),
		dataset.StringColumn("Crop", []string{"Rice", "Rice", "Corn"}),
		dataset.FloatColumn("fertilizer_kg_ha", []float64{nan, nan, nan}),
		dataset.FloatColumn("years_planted", []float64{nan, nan, nan}),
	)
	cleaned, audit, err := HandleMissingValues(ds, DefaultSchema())
	require.NoError(t, err)

	for _, col := range []string{"fertilizer_kg_ha", "years_planted"} {
		assert.Equal(t, ImputeSkipped, audit.Method(col), col)
		vals, _ := cleaned.Float(col)
		for _, v := range vals {
			assert.True(t, math.IsNaN(v), col)
		}
	}
	assert.Equal(t, 3, audit.MissingByVariable()["years_planted"])
	assert.Contains(t, audit.String(), "years_planted: 3 missing, Not imputed (all values missing)")
	assert.NotContains(t, audit.String(), "Overall mean")
}

func TestNanMean(t *testing.T) {
	nan := math.NaN()
	assert.InDelta(t, 2.0, nanMean([]float64{1, nan, 3}), 1e-12)
	assert.True(t, math.IsNaN(nanMean([]float64{nan, nan})))
	assert.True(t, math.IsNaN(nanMean(nil)))
}
