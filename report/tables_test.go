package report

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/internal/testutil"
	"github.com/YuminosukeSato/soilph/linear"
	"github.com/YuminosukeSato/soilph/pkg/errors"
)

func smallDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		dataset.FloatColumn("pH_reading", []float64{6.0, 6.5, math.NaN(), 7.0}),
		dataset.FloatColumn("years_planted", []float64{1, 2, 3, 4}),
		dataset.StringColumn("Crop", []string{"Rice", "Rice", "Corn", "Corn"}),
	)
	require.NoError(t, err)
	return ds
}

func TestDescriptiveStats(t *testing.T) {
	df, err := DescriptiveStats(smallDataset(t), []string{"pH_reading", "years_planted"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"Variable", "N", "M", "SD", "Min", "Max"}, df.Names())
	require.Equal(t, 2, df.Nrow())

	assert.Equal(t, []string{"pH_reading", "years_planted"}, df.Col("Variable").Records())
	assert.Equal(t, []float64{3, 4}, df.Col("N").Float())
	assert.InDelta(t, 6.5, df.Col("M").Float()[0], 1e-12)
	assert.InDelta(t, 0.5, df.Col("SD").Float()[0], 1e-12)
	assert.InDelta(t, 6.0, df.Col("Min").Float()[0], 1e-12)
	assert.InDelta(t, 7.0, df.Col("Max").Float()[0], 1e-12)
	// 1..4 の標本標準偏差 1.29099... を3桁に丸める
	assert.InDelta(t, 1.291, df.Col("SD").Float()[1], 1e-12)
}

func TestDescriptiveStatsGrouped(t *testing.T) {
	df, err := DescriptiveStats(smallDataset(t), []string{"pH_reading"}, "Crop")
	require.NoError(t, err)
	assert.Equal(t, []string{"Crop", "Variable", "N", "M", "SD", "Min", "Max"}, df.Names())
	require.Equal(t, 2, df.Nrow())

	assert.Equal(t, []string{"Corn", "Rice"}, df.Col("Crop").Records())
	assert.Equal(t, []float64{1, 2}, df.Col("N").Float())
	m := df.Col("M").Float()
	assert.InDelta(t, 7.0, m[0], 1e-12)
	assert.InDelta(t, 6.25, m[1], 1e-12)
	sd := df.Col("SD").Float()
	assert.True(t, math.IsNaN(sd[0]))
	assert.InDelta(t, 0.354, sd[1], 1e-12)
}

func TestDescriptiveStatsErrors(t *testing.T) {
	var schemaErr *errors.SchemaError
	_, err := DescriptiveStats(smallDataset(t), []string{"lime_applied"}, "")
	assert.True(t, errors.As(err, &schemaErr))

	_, err = DescriptiveStats(smallDataset(t), []string{"pH_reading"}, "Barangay")
	assert.True(t, errors.As(err, &schemaErr))

	_, err = DescriptiveStats(smallDataset(t), nil, "")
	var ve *errors.ValueError
	assert.True(t, errors.As(err, &ve))
}

func TestCorrelationTable(t *testing.T) {
	ds, err := dataset.New(
		dataset.FloatColumn("x", []float64{1, 2, 3, 4, 5}),
		dataset.FloatColumn("cube", []float64{1, 8, 27, 64, 125}),
		dataset.FloatColumn("rev", []float64{5, 3, 4, 1, 2}),
		dataset.FloatColumn("gappy", []float64{1, math.NaN(), 3, 4, 5}),
	)
	require.NoError(t, err)
	vars := []string{"x", "cube", "rev", "gappy"}

	tests := []struct {
		method   CorrelationMethod
		wantCube float64
	}{
		{Pearson, 0.943},
		{Spearman, 1},
	}
	for _, tt := range tests {
		t.Run(tt.method.String(), func(t *testing.T) {
			df, err := CorrelationTable(ds, vars, tt.method)
			require.NoError(t, err)
			assert.Equal(t, append([]string{"Variable"}, vars...), df.Names())
			for i, v := range vars {
				assert.Equal(t, 1.0, df.Col(v).Float()[i], "diagonal %s", v)
			}
			x := df.Col("x").Float()
			assert.InDelta(t, tt.wantCube, x[1], 1e-12)
			assert.InDelta(t, -0.8, x[2], 1e-12)
			assert.InDelta(t, 1.0, x[3], 1e-12)
			// 対称
			assert.Equal(t, x[1], df.Col("cube").Float()[0])
		})
	}
}

func TestCorrelationUndefined(t *testing.T) {
	ds, err := dataset.New(
		dataset.FloatColumn("x", []float64{1, 2, 3}),
		dataset.FloatColumn("flat", []float64{2, 2, 2}),
	)
	require.NoError(t, err)
	df, err := CorrelationTable(ds, []string{"x", "flat"}, Pearson)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(df.Col("flat").Float()[0]))
	assert.Equal(t, 1.0, df.Col("flat").Float()[1])
}

func TestAverageRanks(t *testing.T) {
	assert.Equal(t, []float64{1, 2.5, 2.5, 4}, averageRanks([]float64{1, 2, 2, 3}))
	assert.Equal(t, []float64{3, 1, 2}, averageRanks([]float64{9, -1, 0}))
}

func TestParseCorrelationMethod(t *testing.T) {
	m, err := ParseCorrelationMethod("spearman")
	require.NoError(t, err)
	assert.Equal(t, Spearman, m)
	_, err = ParseCorrelationMethod("kendall")
	var ve *errors.ValidationError
	assert.True(t, errors.As(err, &ve))
}

func TestRegressionTables(t *testing.T) {
	m, err := linear.Fit(testutil.SoilDataset(90), testutil.PrimaryFormula)
	require.NoError(t, err)

	df := RegressionSummaryTable(m, 4)
	assert.Equal(t, []string{"Predictor", "β", "SE", "t", "p", "95% CI [Lower]", "95% CI [Upper]"}, df.Names())
	assert.Equal(t, len(m.Coefficients()), df.Nrow())
	assert.Equal(t, linear.InterceptName, df.Col("Predictor").Records()[0])

	raw := m.Coefficients()[1]
	assert.InDelta(t, raw.Estimate, df.Col("β").Float()[1], 0.5e-4+1e-12)

	fit := ModelFitTable(m.Summary())
	assert.Equal(t, []string{"Statistic", "Value"}, fit.Names())
	values := fit.Col("Value").Records()
	stats := fit.Col("Statistic").Records()
	assert.Equal(t, "N", stats[5])
	assert.Equal(t, "90", values[5])
	assert.Equal(t, "7", values[3])
	assert.Equal(t, "82", values[4])
}

func TestRegressionColumnsFollowConfidence(t *testing.T) {
	cols := RegressionColumns(0.9)
	assert.Equal(t, "90% CI [Lower]", cols[5])
	assert.Equal(t, "99.5% CI [Upper]", RegressionColumns(0.995)[6])
}
