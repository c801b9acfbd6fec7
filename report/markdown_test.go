package report

import (
	"strings"
	"testing"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/soilph/diagnostics"
	"github.com/YuminosukeSato/soilph/internal/testutil"
	"github.com/YuminosukeSato/soilph/linear"
	"github.com/YuminosukeSato/soilph/metrics"
	"github.com/YuminosukeSato/soilph/preprocessing"
)

func TestMarkdownTable(t *testing.T) {
	df := dataframe.New(
		series.New([]string{"a|b", "c"}, series.String, "Name"),
		series.New([]float64{1.5, 0.125}, series.Float, "Value"),
	)
	want := "| Name | Value |\n| --- | --- |\n| a/b | 1.5 |\n| c | 0.125 |\n"
	assert.Equal(t, want, MarkdownTable(df))
}

func TestMarkdownDocument(t *testing.T) {
	ds := testutil.SoilDataset(90)
	cleaned, audit, err := preprocessing.HandleMissingValues(ds, preprocessing.DefaultSchema())
	require.NoError(t, err)
	m, err := linear.Fit(cleaned, testutil.PrimaryFormula)
	require.NoError(t, err)
	simple, err := linear.Fit(cleaned, "pH_reading ~ fertilizer_kg_ha")
	require.NoError(t, err)
	results, err := diagnostics.Check(m, diagnostics.CheckOptions{})
	require.NoError(t, err)
	desc, err := DescriptiveStats(cleaned, []string{"pH_reading", "fertilizer_kg_ha"}, "")
	require.NoError(t, err)
	scores, err := metrics.Evaluate(m.Actual(), m.FittedValues())
	require.NoError(t, err)

	md := Markdown(Document{
		Title:       "Soil pH Study",
		Audit:       audit,
		Descriptive: &NamedTable{Name: "descriptive", Frame: desc},
		Model:       m,
		Comparison:  []NamedModel{{Name: "primary", Model: m}, {Name: "fertilizer_only", Model: simple}},
		Assumptions: &results,
		Scores:      &scores,
		Figures:     []Figure{{Caption: "Residual diagnostics", Path: "residuals.png"}},
	})

	sections := []string{
		"# Soil pH Study",
		"## Data Preparation",
		"**Table 1. Descriptive Statistics**",
		"# Results",
		"**Table 2. Regression Coefficients**",
		"**Table 3. Model Fit Statistics**",
		"### Interpretation",
		"## Assumption Testing",
		"**Table 4. Variance Inflation Factors**",
		"## Model Comparison",
		"# Figures",
		"![Residual diagnostics](residuals.png)",
	}
	last := -1
	for _, s := range sections {
		idx := strings.Index(md, s)
		require.GreaterOrEqual(t, idx, 0, s)
		assert.Greater(t, idx, last, s)
		last = idx
	}
	assert.Contains(t, md, "| Predictor | β | SE | t | p | 95% CI [Lower] | 95% CI [Upper] |")
	assert.Contains(t, md, "- Intercept: ")
	assert.Contains(t, md, "| fertilizer_only | pH_reading ~ fertilizer_kg_ha |")
	assert.True(t, strings.HasSuffix(md, "\n"))
	assert.False(t, strings.HasSuffix(md, "\n\n"))
}

func TestMarkdownMinimal(t *testing.T) {
	md := Markdown(Document{})
	assert.Equal(t, "# Soil pH Regression Analysis\n", md)
}
