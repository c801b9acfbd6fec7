package linear

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/soilph/core/model"
	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/internal/testutil"
	"github.com/YuminosukeSato/soilph/pkg/errors"
)

func simpleDataset() *dataset.Dataset {
	n := 20
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = float64(i + 1)
		y[i] = 2 + 0.5*x[i] + testutil.Noise(i, 0.3)
	}
	return dataset.MustNew(dataset.FloatColumn("y", y), dataset.FloatColumn("x", x))
}

func TestFitSimpleRegression(t *testing.T) {
	ds := simpleDataset()
	m, err := Fit(ds, "y ~ x")
	require.NoError(t, err)

	x, _ := ds.Float("x")
	y, _ := ds.Float("y")
	alpha, beta := stat.LinearRegression(x, y, nil, false)

	coefs := m.Coefficients()
	require.Len(t, coefs, 2)
	assert.Equal(t, InterceptName, coefs[0].Name)
	assert.InDelta(t, alpha, coefs[0].Estimate, 1e-10)
	assert.InDelta(t, beta, coefs[1].Estimate, 1e-10)

	// slope SE = sqrt(σ² / Sxx)
	meanX := stat.Mean(x, nil)
	sxx := 0.0
	for _, v := range x {
		sxx += (v - meanX) * (v - meanX)
	}
	assert.InDelta(t, math.Sqrt(m.Scale()/sxx), coefs[1].StdError, 1e-10)
	assert.InDelta(t, coefs[1].Estimate/coefs[1].StdError, coefs[1].TValue, 1e-10)
	assert.Less(t, coefs[1].PValue, 0.001)
	assert.Less(t, coefs[1].CILower, coefs[1].Estimate)
	assert.Greater(t, coefs[1].CIUpper, coefs[1].Estimate)

	s := m.Summary()
	assert.Equal(t, 20, s.NObs)
	assert.Equal(t, 2, s.NParams)
	assert.Equal(t, 18.0, s.DfResid)
	assert.Equal(t, 1.0, s.DfModel)
	assert.InDelta(t, stat.RSquared(x, y, nil, alpha, beta), s.RSquared, 1e-10)
	// 説明変数1つなら F = t²
	assert.InDelta(t, coefs[1].TValue*coefs[1].TValue, s.FStatistic, 1e-8)
	assert.InDelta(t, coefs[1].PValue, s.FPValue, 1e-8)
	assert.InDelta(t, -2*s.LogLikelihood+4, s.AIC, 1e-10)
	assert.InDelta(t, -2*s.LogLikelihood+2*math.Log(20), s.BIC, 1e-10)

	resid := m.Residuals()
	fitted := m.FittedValues()
	actual := m.Actual()
	for i := range resid {
		assert.InDelta(t, actual[i], fitted[i]+resid[i], 1e-12)
	}
}

func TestFitSoilScenario(t *testing.T) {
	ds := testutil.SoilDataset(90)
	m, err := Fit(ds, testutil.PrimaryFormula)
	require.NoError(t, err)

	s := m.Summary()
	assert.Equal(t, 90, s.NObs)
	assert.Greater(t, s.RSquared, 0.0)
	assert.Less(t, s.RSquared, 1.0)
	assert.Less(t, s.AdjRSquared, s.RSquared)
	assert.Equal(t, 8, s.NParams)

	assert.Equal(t, []string{
		InterceptName, "fertilizer_kg_ha", "years_planted", "lime_applied",
		"Crop[T.Rice]", "Crop[T.Vegetables]",
		"Barangay[T.San Isidro]", "Barangay[T.Santa Cruz]",
	}, m.ParamNames())

	fert, ok := m.Coefficient("fertilizer_kg_ha")
	require.True(t, ok)
	assert.InDelta(t, -0.004, fert.Estimate, 0.002)
	lime, _ := m.Coefficient("lime_applied")
	assert.InDelta(t, 0.25, lime.Estimate, 0.1)

	names, X := m.DesignMatrix()
	r, c := X.Dims()
	assert.Equal(t, 90, r)
	assert.Equal(t, 7, c)
	assert.Equal(t, m.FeatureNames(), names)
}

func TestFitErrors(t *testing.T) {
	x := []float64{1, 2, 3, 4, 5}
	y := []float64{1.1, 1.9, 3.2, 3.9, 5.1}
	ds := dataset.MustNew(
		dataset.FloatColumn("y", y),
		dataset.FloatColumn("x", x),
		dataset.FloatColumn("x2", []float64{2, 4, 6, 8, 10}),
		dataset.FloatColumn("flat", []float64{1, 1, 1, 1, 1}),
		dataset.FloatColumn("yconst", []float64{3, 3, 3, 3, 3}),
	)

	tests := []struct {
		name  string
		input string
		check func(t *testing.T, err error)
	}{
		{
			name:  "bad formula",
			input: "y x",
			check: func(t *testing.T, err error) {
				var target *errors.SchemaError
				assert.True(t, errors.As(err, &target))
			},
		},
		{
			name:  "missing column",
			input: "y ~ rainfall",
			check: func(t *testing.T, err error) {
				var target *errors.SchemaError
				require.True(t, errors.As(err, &target))
				assert.Equal(t, "rainfall", target.Column)
			},
		},
		{
			name:  "perfect collinearity",
			input: "y ~ x + x2",
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, errors.ErrSingularMatrix))
			},
		},
		{
			name:  "constant predictor with intercept",
			input: "y ~ flat",
			check: func(t *testing.T, err error) {
				assert.True(t, errors.Is(err, errors.ErrSingularMatrix))
			},
		},
		{
			name:  "constant response",
			input: "yconst ~ x",
			check: func(t *testing.T, err error) {
				var target *errors.NumericalInstabilityError
				assert.True(t, errors.As(err, &target))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Fit(ds, tt.input)
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestFitTooFewObservations(t *testing.T) {
	ds := dataset.MustNew(
		dataset.FloatColumn("y", []float64{1, 2}),
		dataset.FloatColumn("x", []float64{3, 5}),
	)
	_, err := Fit(ds, "y ~ x")
	var target *errors.ValueError
	assert.True(t, errors.As(err, &target))
}

func TestFitListwiseDeletion(t *testing.T) {
	nan := math.NaN()
	ds := dataset.MustNew(
		dataset.FloatColumn("y", []float64{1, 2.1, nan, 3.9, 5.2, 6.1, 6.8}),
		dataset.FloatColumn("x", []float64{1, 2, 3, nan, 5, 6, 7}),
		dataset.StringColumn("g", []string{"a", "b", "a", "b", "", "a", "b"}),
	)
	m, err := Fit(ds, "y ~ x + g")
	require.NoError(t, err)
	assert.Equal(t, 4, m.NObs())
	assert.Equal(t, []int{0, 1, 5, 6}, m.RowLabels())
	assert.Equal(t, []string{InterceptName, "x", "g[T.b]"}, m.ParamNames())
}

func TestFitWithoutIntercept(t *testing.T) {
	ds := simpleDataset()
	m, err := Fit(ds, "y ~ x - 1")
	require.NoError(t, err)

	assert.Equal(t, []string{"x"}, m.ParamNames())
	assert.Equal(t, m.ParamNames(), m.FeatureNames())
	assert.Equal(t, 0.0, m.Intercept())

	y, _ := ds.Float("y")
	ssr := 0.0
	for _, r := range m.Residuals() {
		ssr += r * r
	}
	tss := 0.0
	for _, v := range y {
		tss += v * v
	}
	assert.InDelta(t, 1-ssr/tss, m.RSquared(), 1e-12)

	viaOption, err := Fit(ds, "y ~ x", WithFitIntercept(false))
	require.NoError(t, err)
	assert.Equal(t, m.Coef(), viaOption.Coef())
}

func TestFitInterceptOnly(t *testing.T) {
	m, err := Fit(simpleDataset(), "y ~ 1")
	require.NoError(t, err)
	s := m.Summary()
	assert.True(t, math.IsNaN(s.FStatistic))
	assert.Equal(t, 0.0, s.DfModel)
	assert.Empty(t, m.FeatureNames())
	names, X := m.DesignMatrix()
	assert.Nil(t, names)
	assert.Nil(t, X)
}

func TestModelIsImmutable(t *testing.T) {
	m, err := Fit(testutil.SoilDataset(90), testutil.PrimaryFormula)
	require.NoError(t, err)

	first := m.Summary()
	table := m.CoefficientsTable(4)
	resid := m.Residuals()
	resid[0] = 1e9
	coefs := m.Coefficients()
	coefs[0].Estimate = 1e9

	assert.Equal(t, first, m.Summary())
	assert.Equal(t, table, m.CoefficientsTable(4))
	assert.NotEqual(t, 1e9, m.Residuals()[0])
	assert.NotEqual(t, 1e9, m.Coefficients()[0].Estimate)
}

func TestCoefficientsTableRounding(t *testing.T) {
	m, err := Fit(testutil.SoilDataset(90), testutil.PrimaryFormula)
	require.NoError(t, err)

	raw := m.Coefficients()
	rounded := m.CoefficientsTable(2)
	for i := range raw {
		assert.Equal(t, raw[i].Name, rounded[i].Name)
		assert.InDelta(t, raw[i].Estimate, rounded[i].Estimate, 0.005+1e-12)
	}
}

func TestConfidenceLevel(t *testing.T) {
	ds := simpleDataset()
	m95, err := Fit(ds, "y ~ x")
	require.NoError(t, err)
	m99, err := Fit(ds, "y ~ x", WithConfidenceLevel(0.99))
	require.NoError(t, err)

	c95 := m95.Coefficients()[1]
	c99 := m99.Coefficients()[1]
	assert.Less(t, c99.CILower, c95.CILower)
	assert.Greater(t, c99.CIUpper, c95.CIUpper)

	_, err = Fit(ds, "y ~ x", WithConfidenceLevel(1.2))
	var target *errors.ValidationError
	assert.True(t, errors.As(err, &target))
}

func TestFingerprintAndWeights(t *testing.T) {
	ds := testutil.SoilDataset(90)
	a, err := Fit(ds, testutil.PrimaryFormula)
	require.NoError(t, err)
	b, err := Fit(ds, testutil.PrimaryFormula)
	require.NoError(t, err)
	c, err := Fit(testutil.SoilDataset(60), testutil.PrimaryFormula)
	require.NoError(t, err)

	assert.Len(t, a.Fingerprint(), 16)
	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())

	w := a.Weights()
	require.NoError(t, w.Validate())
	assert.Equal(t, "OLS", w.ModelType)
	assert.Equal(t, a.FeatureNames(), w.Features)
	assert.Equal(t, a.Intercept(), w.Intercept)
	assert.Equal(t, a.Fingerprint(), w.Fingerprint)
	assert.Len(t, w.StdErrors, len(w.Coefficients)+1)
}

func TestOLSFitter(t *testing.T) {
	var fitter model.Fitter = NewOLS(WithConfidenceLevel(0.9))
	lm, err := fitter.Fit(testutil.SoilDataset(90), "pH_reading ~ fertilizer_kg_ha")
	require.NoError(t, err)
	assert.Equal(t, 90, lm.NObs())
	assert.Equal(t, []string{"fertilizer_kg_ha"}, lm.FeatureNames())
	m, ok := lm.(*Model)
	require.True(t, ok)
	assert.Equal(t, 0.9, m.Summary().ConfidenceLevel)
}

func TestReport(t *testing.T) {
	m, err := Fit(testutil.SoilDataset(90), testutil.PrimaryFormula)
	require.NoError(t, err)
	text := m.Report()
	assert.Contains(t, text, "MULTIPLE LINEAR REGRESSION RESULTS")
	assert.Regexp(t, `Sample Size \(N\):\s+90`, text)
	assert.Contains(t, text, "COEFFICIENT ESTIMATES")
	assert.Contains(t, text, "Crop[T.Rice]")
	assert.Contains(t, text, "Std. Error")
}
