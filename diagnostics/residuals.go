package diagnostics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/soilph/pkg/errors"
)

// TestHomoscedasticity は Koenker の studentized Breusch-Pagan 検定。
// e² を [1, 当てはめ値] に回帰し LM = n·R² を χ²(1) で評価する。F 版も併せて返す。
func TestHomoscedasticity(residuals, fitted []float64) (Result, error) {
	n := len(residuals)
	if len(fitted) != n {
		return Result{}, errors.NewDimensionError("TestHomoscedasticity", n, len(fitted), 0)
	}
	if n < 3 {
		return Result{}, errors.NewValueError("TestHomoscedasticity", fmt.Sprintf("need at least 3 observations, got %d", n))
	}
	if err := errors.CheckVariance("TestHomoscedasticity", "fitted", stat.Variance(fitted, nil), 0); err != nil {
		return Result{}, err
	}

	sq := make([]float64, n)
	for i, e := range residuals {
		sq[i] = e * e
	}

	res := Result{TestName: "Breusch-Pagan Test", N: n}
	nf := float64(n)
	r2 := 0.0
	if stat.Variance(sq, nil) > 0 {
		r := stat.Correlation(sq, fitted, nil)
		r2 = r * r
	} else {
		errors.Warn(errors.NewUndefinedMetricWarning("Breusch-Pagan", "squared residuals are constant", 0))
	}

	res.Statistic = nf * r2
	res.PValue = distuv.ChiSquared{K: 1}.Survival(res.Statistic)
	if r2 < 1 {
		res.FStatistic = r2 / ((1 - r2) / (nf - 2))
		res.FPValue = distuv.F{D1: 1, D2: nf - 2}.Survival(res.FStatistic)
	} else {
		res.FStatistic, res.FPValue = math.Inf(1), 0
	}

	res.Passed = res.PValue > Alpha
	if res.Passed {
		res.Interpretation = "Homoscedasticity assumption appears satisfied"
	} else {
		res.Interpretation = "Heteroscedasticity detected"
	}
	return res, nil
}

// DurbinWatsonLower / DurbinWatsonUpper は独立性とみなす DW の範囲
const (
	DurbinWatsonLower = 1.5
	DurbinWatsonUpper = 2.5
)

// DurbinWatson は元の行順の残差から DW 統計量を計算する。
// 範囲は [0, 4] で、2 が自己相関なし。
func DurbinWatson(residuals []float64) (float64, error) {
	if len(residuals) < 2 {
		return 0, errors.NewValueError("DurbinWatson", "need at least 2 residuals")
	}
	den := floats.Dot(residuals, residuals)
	if den == 0 {
		return 0, errors.NewNumericalInstabilityError("durbin_watson", []float64{den}, 0)
	}
	num := 0.0
	for i := 1; i < len(residuals); i++ {
		d := residuals[i] - residuals[i-1]
		num += d * d
	}
	return num / den, nil
}

// TestIndependence は Durbin-Watson による残差の独立性評価。
// 1.5 ≤ DW ≤ 2.5 で合格。p 値は NaN。
func TestIndependence(residuals []float64) (Result, error) {
	dw, err := DurbinWatson(residuals)
	if err != nil {
		return Result{}, err
	}
	res := Result{
		TestName:  "Durbin-Watson Test",
		Statistic: dw,
		PValue:    math.NaN(),
		Passed:    dw >= DurbinWatsonLower && dw <= DurbinWatsonUpper,
		N:         len(residuals),
	}
	res.Interpretation = fmt.Sprintf(
		"DW=%.3f. Values close to 2 indicate independence. <2: positive autocorr; >2: negative autocorr", dw)
	return res, nil
}
