package dataset

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/YuminosukeSato/soilph/pkg/errors"
)

func sampleDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := New(
		FloatColumn("pH_reading", []float64{6.1, math.NaN(), 5.8, 6.4}),
		StringColumn("Crop", []string{"Rice", "Corn", "", "Rice"}),
		FloatColumn("fertilizer_kg_ha", []float64{120, 80, math.NaN(), 100}),
	)
	require.NoError(t, err)
	return ds
}

func TestDatasetAccessors(t *testing.T) {
	ds := sampleDataset(t)

	assert.Equal(t, 4, ds.Nrow())
	assert.Equal(t, 3, ds.Ncol())
	assert.Equal(t, []string{"pH_reading", "Crop", "fertilizer_kg_ha"}, ds.Names())
	assert.Equal(t, []int{0, 1, 2, 3}, ds.Index())

	kind, err := ds.Kind("Crop")
	require.NoError(t, err)
	assert.Equal(t, Categorical, kind)

	ph, err := ds.Float("pH_reading")
	require.NoError(t, err)
	assert.InDelta(t, 6.1, ph[0], 1e-12)
	assert.True(t, math.IsNaN(ph[1]))

	crops, err := ds.Strings("Crop")
	require.NoError(t, err)
	assert.Equal(t, []string{"Rice", "Corn", "", "Rice"}, crops)

	miss, err := ds.Missing("Crop")
	require.NoError(t, err)
	assert.Equal(t, []bool{false, false, true, false}, miss)

	levels, err := ds.Levels("Crop")
	require.NoError(t, err)
	assert.Equal(t, []string{"Corn", "Rice"}, levels)

	_, err = ds.Float("Crop")
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))

	_, err = ds.Float("Barangay")
	assert.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "Barangay", schemaErr.Column)
}

func TestDatasetIsImmutable(t *testing.T) {
	ds := sampleDataset(t)

	updated, err := ds.WithFloat("pH_reading", []float64{1, 2, 3, 4})
	require.NoError(t, err)
	added, err := ds.WithFloat("lime_applied", []float64{0, 1, 0, 1})
	require.NoError(t, err)

	orig, _ := ds.Float("pH_reading")
	assert.InDelta(t, 6.1, orig[0], 1e-12)
	got, _ := updated.Float("pH_reading")
	assert.Equal(t, []float64{1, 2, 3, 4}, got)
	assert.Equal(t, 3, ds.Ncol())
	assert.Equal(t, 4, added.Ncol())

	vals, _ := ds.Float("fertilizer_kg_ha")
	vals[0] = -1
	again, _ := ds.Float("fertilizer_kg_ha")
	assert.InDelta(t, 120, again[0], 1e-12)
}

func TestDatasetFilterKeepsLabels(t *testing.T) {
	ds := sampleDataset(t)

	filtered, err := ds.Filter([]bool{true, false, true, true})
	require.NoError(t, err)
	assert.Equal(t, 3, filtered.Nrow())
	assert.Equal(t, []int{0, 2, 3}, filtered.Index())

	second, err := filtered.Filter([]bool{false, true, true})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, second.Index())

	empty, err := ds.Filter([]bool{false, false, false, false})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Nrow())
	assert.Equal(t, 3, empty.Ncol())

	_, err = ds.Filter([]bool{true})
	var dimErr *errors.DimensionError
	assert.True(t, errors.As(err, &dimErr))
}

func TestNewNormalizesTypes(t *testing.T) {
	ds, err := New(
		series.New([]int{1, 2, 3}, series.Int, "years_planted"),
		series.New([]bool{true, false, true}, series.Bool, "lime_applied"),
	)
	require.NoError(t, err)

	kind, _ := ds.Kind("years_planted")
	assert.Equal(t, Numeric, kind)
	kind, _ = ds.Kind("lime_applied")
	assert.Equal(t, Categorical, kind)

	lime, _ := ds.Strings("lime_applied")
	assert.Equal(t, []string{"true", "false", "true"}, lime)

	_, err = New(FloatColumn("a", []float64{1}), FloatColumn("a", []float64{2}))
	assert.Error(t, err)
}

func TestValidateAndSummarize(t *testing.T) {
	ds := sampleDataset(t)

	report := Validate(ds, nil)
	assert.Equal(t, 4, report.NRows)
	assert.False(t, report.OK())
	assert.ElementsMatch(t, []string{"Barangay", "years_planted", "lime_applied"}, report.MissingRequired)

	err := RequireColumns(ds, []string{"pH_reading", "Crop"})
	assert.NoError(t, err)
	err = RequireColumns(ds, nil)
	var schemaErr *errors.SchemaError
	require.True(t, errors.As(err, &schemaErr))
	assert.Equal(t, "Barangay", schemaErr.Column)

	summary := Summarize(ds)
	assert.Equal(t, 4, summary.NObservations)
	assert.Equal(t, 3, summary.NFeatures)
	col, ok := summary.Column("fertilizer_kg_ha")
	require.True(t, ok)
	assert.Equal(t, 1, col.Missing)
	assert.InDelta(t, 25.0, col.MissingPct, 1e-12)
	assert.Contains(t, summary.String(), "Observations: 4")
}

func TestLoadCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "soil.csv")
	content := "pH_reading,Barangay,Crop,fertilizer_kg_ha,years_planted,lime_applied\n" +
		"6.2,San Isidro,Rice,120,5,1\n" +
		"NA,San Isidro,Corn,,8,0\n" +
		"5.9,Poblacion,Rice,95.5,N/A,1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, ds.Nrow())
	assert.Equal(t, 6, ds.Ncol())
	assert.True(t, Validate(ds, nil).OK())

	kind, _ := ds.Kind("Barangay")
	assert.Equal(t, Categorical, kind)
	kind, _ = ds.Kind("years_planted")
	assert.Equal(t, Numeric, kind)

	ph, _ := ds.Float("pH_reading")
	assert.True(t, math.IsNaN(ph[1]))
	fert, _ := ds.Float("fertilizer_kg_ha")
	assert.True(t, math.IsNaN(fert[1]))
	assert.InDelta(t, 95.5, fert[2], 1e-12)
	years, _ := ds.Float("years_planted")
	assert.True(t, math.IsNaN(years[2]))
}

func TestLoadXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soil.xlsx")
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"pH_reading", "Crop", "fertilizer_kg_ha"},
		{6.5, "Rice", 100},
		{5.5, "Corn"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	ds, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Nrow())
	fert, err := ds.Float("fertilizer_kg_ha")
	require.NoError(t, err)
	assert.InDelta(t, 100, fert[0], 1e-12)
	assert.True(t, math.IsNaN(fert[1]))
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	unsupported := filepath.Join(dir, "soil.json")
	require.NoError(t, os.WriteFile(unsupported, []byte("{}"), 0o644))

	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "missing file", path: filepath.Join(dir, "absent.csv")},
		{name: "unsupported extension", path: unsupported, wantErr: errors.ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(tt.path)
			require.Error(t, err)
			var inputErr *errors.InputError
			assert.True(t, errors.As(err, &inputErr))
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
			}
		})
	}
}

func TestFromRecordsPadsShortRows(t *testing.T) {
	ds, err := FromRecords([][]string{
		{"a", "b"},
		{"1", "x"},
		{"2"},
		{"", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Nrow())
	b, _ := ds.Strings("b")
	assert.Equal(t, []string{"x", ""}, b)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "x"}, {"2", ""}}, ds.Records())
}

func TestLevelsOrdering(t *testing.T) {
	tests := []struct {
		name   string
		values []string
		want   []string
	}{
		{"numeric codes", []string{"10", "2", "", "1.5", "2"}, []string{"1.5", "2", "10"}},
		{"text", []string{"b", "a", "10"}, []string{"10", "a", "b"}},
		{"negative", []string{"3", "-1", "0"}, []string{"-1", "0", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := MustNew(StringColumn("g", tt.values))
			levels, err := ds.Levels("g")
			require.NoError(t, err)
			assert.Equal(t, tt.want, levels)
		})
	}
}
