package plotting

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/soilph/internal/testutil"
	"github.com/YuminosukeSato/soilph/linear"
	"github.com/YuminosukeSato/soilph/pkg/errors"
)

const testDPI = 30

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

func fitPrimary(t *testing.T) *linear.Model {
	t.Helper()
	m, err := linear.Fit(testutil.SoilDataset(90), testutil.PrimaryFormula)
	require.NoError(t, err)
	return m
}

func TestResidualDiagnostics(t *testing.T) {
	fig, err := ResidualDiagnostics(fitPrimary(t))
	require.NoError(t, err)

	rows, cols := fig.Dims()
	assert.Equal(t, 2, rows)
	assert.Equal(t, 2, cols)
	assert.Equal(t, "(1) Residuals vs Fitted Values", fig.Panel(0, 0).Title.Text)
	assert.Equal(t, "(2) Q-Q Plot", fig.Panel(0, 1).Title.Text)
	assert.Equal(t, "(3) Distribution of Residuals", fig.Panel(1, 0).Title.Text)
	assert.Equal(t, "(4) Actual vs Predicted", fig.Panel(1, 1).Title.Text)

	var buf bytes.Buffer
	require.NoError(t, fig.WriteTo(&buf, "png", testDPI))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
}

func TestCorrelationHeatmap(t *testing.T) {
	vars := []string{"pH_reading", "fertilizer_kg_ha", "years_planted", "lime_applied"}
	fig, err := CorrelationHeatmap(testutil.SoilDataset(60), vars)
	require.NoError(t, err)

	rows, cols := fig.Dims()
	assert.Equal(t, 1, rows)
	assert.Equal(t, 1, cols)
	assert.Equal(t, "Correlation Matrix of Variables", fig.Panel(0, 0).Title.Text)
	assert.NotNil(t, fig.sidebar)

	var buf bytes.Buffer
	require.NoError(t, fig.WriteTo(&buf, "png", testDPI))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))

	_, err = CorrelationHeatmap(testutil.SoilDataset(10), []string{"pH_reading", "Crop"})
	assert.Error(t, err)
}

func TestCorrelationGridOrientation(t *testing.T) {
	g := correlationGrid{n: 2, z: []float64{1, 0.5, 0.5, 1}}
	c, r := g.Dims()
	assert.Equal(t, 2, c)
	assert.Equal(t, 2, r)
	// 先頭の変数は上の行
	g.z[1] = 0.25
	assert.Equal(t, 0.25, g.Z(1, 1))
	assert.Equal(t, 0.5, g.Z(0, 0))
}

func TestGridFigures(t *testing.T) {
	ds := testutil.SoilDataset(45)

	tests := []struct {
		name     string
		build    func() (*Figure, error)
		wantRows int
		first    string
		empty    [][2]int
	}{
		{
			name: "distributions",
			build: func() (*Figure, error) {
				return VariableDistributions(ds, []string{"pH_reading", "fertilizer_kg_ha", "years_planted", "lime_applied"})
			},
			wantRows: 2,
			first:    "Distribution of pH_reading",
			empty:    [][2]int{{1, 1}, {1, 2}},
		},
		{
			name: "predictor effects",
			build: func() (*Figure, error) {
				return PredictorEffects(ds, "pH_reading", []string{"fertilizer_kg_ha", "years_planted", "Crop"})
			},
			wantRows: 1,
			first:    "pH_reading vs fertilizer_kg_ha",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fig, err := tt.build()
			require.NoError(t, err)
			rows, cols := fig.Dims()
			assert.Equal(t, tt.wantRows, rows)
			assert.Equal(t, GridColumns, cols)
			assert.Equal(t, tt.first, fig.Panel(0, 0).Title.Text)
			for _, rc := range tt.empty {
				assert.Nil(t, fig.Panel(rc[0], rc[1]))
			}

			var buf bytes.Buffer
			require.NoError(t, fig.WriteTo(&buf, "png", testDPI))
			assert.True(t, bytes.HasPrefix(buf.Bytes(), pngMagic))
		})
	}
}

func TestGridFigureErrors(t *testing.T) {
	ds := testutil.SoilDataset(20)

	_, err := VariableDistributions(ds, nil)
	var valueErr *errors.ValueError
	assert.True(t, errors.As(err, &valueErr))

	_, err = VariableDistributions(ds, []string{"missing_column"})
	var schemaErr *errors.SchemaError
	assert.True(t, errors.As(err, &schemaErr))

	_, err = PredictorEffects(ds, "pH_reading", nil)
	assert.True(t, errors.As(err, &valueErr))

	_, err = ModelComparison(nil)
	assert.True(t, errors.As(err, &valueErr))
}

func TestModelComparison(t *testing.T) {
	ds := testutil.SoilDataset(90)
	reduced, err := linear.Fit(ds, "pH_reading ~ fertilizer_kg_ha + lime_applied")
	require.NoError(t, err)

	fig, err := ModelComparison([]NamedModel{
		{Name: "Primary", Model: fitPrimary(t)},
		{Name: "Reduced", Model: reduced},
	})
	require.NoError(t, err)
	p := fig.Panel(0, 0)
	assert.Equal(t, "Model Comparison: Goodness of Fit", p.Title.Text)
	assert.Equal(t, 0.0, p.Y.Min)
	assert.Equal(t, 1.0, p.Y.Max)
}

func TestFigureSave(t *testing.T) {
	dir := t.TempDir()
	fig, err := ResidualDiagnostics(fitPrimary(t))
	require.NoError(t, err)

	path := filepath.Join(dir, "residuals.png")
	require.NoError(t, fig.Save(path, testDPI))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(raw, pngMagic))

	jpg := filepath.Join(dir, "residuals.jpg")
	require.NoError(t, fig.Save(jpg, testDPI))

	err = fig.Save(filepath.Join(dir, "residuals.svg"), testDPI)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedFormat))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	var buf bytes.Buffer
	err = fig.WriteTo(&buf, "bmp", testDPI)
	var validationErr *errors.ValidationError
	assert.True(t, errors.As(err, &validationErr))
}
