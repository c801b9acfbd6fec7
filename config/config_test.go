package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/soilph/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "soil_data.csv", c.Data.Path)
	assert.Equal(t, "csv", c.Output.ExportFormat)
	assert.Equal(t, 300, c.Output.FigureDPI)
	assert.Equal(t, "pH_reading", c.Columns.Dependent)
	assert.Equal(t, []string{"Barangay", "Crop"}, c.Columns.GroupBy)
	require.Len(t, c.Models, 2)
	assert.Equal(t, "Full Model", c.Models[0].Name)
	assert.Contains(t, c.Models[0].Formula, "C(Barangay)")
	assert.Equal(t, 1.5, c.Outliers.Threshold)
	assert.Equal(t, 5.0, c.Diagnostics.VIFThreshold)
	assert.Equal(t, 0.95, c.Report.ConfidenceLevel)
	assert.Equal(t, 4, c.Report.Decimals)
	assert.True(t, c.PDF.Enabled)
	assert.Equal(t, "info", c.Log.Level)

	schema := c.Schema()
	assert.Equal(t, "fertilizer_kg_ha", schema.GroupImputed)
	assert.Equal(t, []string{"years_planted"}, schema.MeanImputed)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "soilph.yaml")
	content := `data:
  path: field/samples.xlsx
  sheet: Survey
output:
  export_format: excel
  figure_dpi: 150
models:
  - name: Fertilizer
    formula: pH_reading ~ fertilizer_kg_ha
report:
  labels:
    fertilizer_kg_ha: Fertilizer rate
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("SOILPH_OUTPUT_DIR", "/tmp/soil-out")
	t.Setenv("SOILPH_DIAGNOSTICS_NORMALITY", "anderson")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "field/samples.xlsx", c.Data.Path)
	assert.Equal(t, "Survey", c.Data.Sheet)
	assert.Equal(t, "excel", c.Output.ExportFormat)
	assert.Equal(t, 150, c.Output.FigureDPI)
	assert.Equal(t, "/tmp/soil-out", c.Output.Dir)
	assert.Equal(t, "anderson", c.Diagnostics.Normality)
	assert.Equal(t, []ModelSpec{{Name: "Fertilizer", Formula: "pH_reading ~ fertilizer_kg_ha"}}, c.Models)
	assert.Equal(t, "Fertilizer rate", c.Report.Labels["fertilizer_kg_ha"])
	// ファイルにない項目は既定値
	assert.Equal(t, "soil_ph", c.Output.BaseName)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "absent.yaml"))
	var inputErr *errors.InputError
	assert.True(t, errors.As(err, &inputErr))

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("output:\n  figure_dpi: 0\n"), 0o644))
	_, err = Load(bad)
	var validationErr *errors.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "output.figure_dpi", validationErr.ParamName)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		param  string
	}{
		{name: "export format", mutate: func(c *Config) { c.Output.ExportFormat = "parquet" }, param: "export_format"},
		{name: "figure format", mutate: func(c *Config) { c.Output.FigureFormat = "svg" }, param: "output.figure_format"},
		{name: "no models", mutate: func(c *Config) { c.Models = nil }, param: "models"},
		{name: "blank formula", mutate: func(c *Config) { c.Models[0].Formula = " " }, param: "models"},
		{name: "outlier method", mutate: func(c *Config) { c.Outliers.Method = "mad" }, param: "outlier_method"},
		{name: "normality", mutate: func(c *Config) { c.Diagnostics.Normality = "lilliefors" }, param: "normality_test"},
		{name: "confidence", mutate: func(c *Config) { c.Report.ConfidenceLevel = 1 }, param: "report.confidence_level"},
		{name: "decimals", mutate: func(c *Config) { c.Report.Decimals = -1 }, param: "report.decimals"},
		{name: "correlation", mutate: func(c *Config) { c.Report.CorrelationMethod = "kendall" }, param: "correlation_method"},
		{name: "log format", mutate: func(c *Config) { c.Log.Format = "xml" }, param: "log.format"},
	}
	require.NoError(t, Default().Validate())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Default()
			tt.mutate(c)
			err := c.Validate()
			var validationErr *errors.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.param, validationErr.ParamName)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "soilph.yaml")
	c := Default()
	c.Data.Path = "plots.csv"
	c.PDF.Keywords = []string{"soil pH", "regression"}
	require.NoError(t, Save(c, path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "plots.csv", loaded.Data.Path)
	assert.Equal(t, []string{"soil pH", "regression"}, loaded.PDF.Keywords)
	assert.Equal(t, c.Models, loaded.Models)
}
