package linear

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/soilph/pkg/errors"
)

func TestParseFormula(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		response  string
		terms     []Term
		intercept bool
		canonical string
	}{
		{
			name:      "numeric terms",
			input:     "pH_reading ~ fertilizer_kg_ha + years_planted",
			response:  "pH_reading",
			terms:     []Term{{Column: "fertilizer_kg_ha"}, {Column: "years_planted"}},
			intercept: true,
			canonical: "pH_reading ~ fertilizer_kg_ha + years_planted",
		},
		{
			name:      "categorical term",
			input:     "pH_reading~C( Crop )+lime_applied",
			response:  "pH_reading",
			terms:     []Term{{Column: "Crop", Categorical: true}, {Column: "lime_applied"}},
			intercept: true,
			canonical: "pH_reading ~ C(Crop) + lime_applied",
		},
		{
			name:      "remove intercept",
			input:     "y ~ x - 1",
			response:  "y",
			terms:     []Term{{Column: "x"}},
			intercept: false,
			canonical: "y ~ x - 1",
		},
		{
			name:      "zero removes intercept",
			input:     "y ~ 0 + x",
			response:  "y",
			terms:     []Term{{Column: "x"}},
			intercept: false,
			canonical: "y ~ x - 1",
		},
		{
			name:      "intercept only",
			input:     "y ~ 1",
			response:  "y",
			intercept: true,
			canonical: "y ~ 1",
		},
		{
			name:      "duplicate terms collapse",
			input:     "y ~ x + x + 1",
			response:  "y",
			terms:     []Term{{Column: "x"}},
			intercept: true,
			canonical: "y ~ x",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFormula(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.response, f.Response)
			assert.Equal(t, tt.terms, f.Terms)
			assert.Equal(t, tt.intercept, f.Intercept)
			assert.Equal(t, tt.canonical, f.String())
		})
	}
}

func TestParseFormulaErrors(t *testing.T) {
	inputs := []string{
		"",
		"pH_reading",
		"y ~ ",
		"y ~ x ~ z",
		"y ~ log(x)",
		"y ~ x - z",
		"y ~ x + y",
		"1y ~ x",
		"y ~ x + + z",
	}
	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			_, err := ParseFormula(in)
			require.Error(t, err)
			var schemaErr *errors.SchemaError
			assert.True(t, errors.As(err, &schemaErr))
		})
	}
}

func TestFormulaColumns(t *testing.T) {
	f, err := ParseFormula("pH_reading ~ C(Crop) + fertilizer_kg_ha")
	require.NoError(t, err)
	assert.Equal(t, []string{"pH_reading", "Crop", "fertilizer_kg_ha"}, f.Columns())
}
