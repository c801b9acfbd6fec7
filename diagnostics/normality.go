package diagnostics

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// NormalityTest は正規性検定の種類
type NormalityTest int

const (
	// ShapiroWilk は Royston (1995) の近似による Shapiro-Wilk 検定
	ShapiroWilk NormalityTest = iota
	// AndersonDarling は正規分布に対する Anderson-Darling 検定
	AndersonDarling
	// KolmogorovSmirnov は N(平均, 母標準偏差) に対する1標本 KS 検定
	KolmogorovSmirnov
)

func (t NormalityTest) String() string {
	switch t {
	case AndersonDarling:
		return "Anderson-Darling Test"
	case KolmogorovSmirnov:
		return "Kolmogorov-Smirnov Test"
	default:
		return "Shapiro-Wilk Test"
	}
}

// ParseNormalityTest は設定値 shapiro / anderson / ks を解釈する
func ParseNormalityTest(s string) (NormalityTest, error) {
	switch s {
	case "shapiro", "":
		return ShapiroWilk, nil
	case "anderson":
		return AndersonDarling, nil
	case "ks":
		return KolmogorovSmirnov, nil
	}
	return ShapiroWilk, errors.NewValidationError("normality_test", "must be shapiro, anderson or ks", s)
}

// NormalityOptions は正規性検定の挙動
type NormalityOptions struct {
	// LegacyAndersonPValue は Anderson-Darling の 5% 臨界値を p 値として報告する。
	// この場合の判定は臨界値 > 0.05 で、ほぼ常に合格になる。
	LegacyAndersonPValue bool
}

// ShapiroWilkMaxN を超えるサンプルでは p 値の精度が保証されない
const ShapiroWilkMaxN = 5000

// andersonCritical は 15%, 10%, 5%, 2.5%, 1% の漸近臨界値
var andersonCritical = []float64{0.576, 0.656, 0.787, 0.918, 1.092}

// TestNormality はサンプル（通常は残差）の正規性を検定する。
// p > 0.05 で合格。NaN を含むサンプル、3 未満のサンプルは ValueError。
func TestNormality(sample []float64, test NormalityTest, opts ...NormalityOptions) (Result, error) {
	var opt NormalityOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	n := len(sample)
	if n < 3 {
		return Result{}, errors.NewValueError("TestNormality", fmt.Sprintf("need at least 3 observations, got %d", n))
	}
	if floats.HasNaN(sample) {
		return Result{}, errors.NewValueError("TestNormality", "sample contains NaN")
	}

	sorted := append([]float64(nil), sample...)
	sort.Float64s(sorted)
	if sorted[0] == sorted[n-1] {
		return Result{}, errors.CheckVariance("TestNormality", "sample", 0, 0)
	}

	var (
		res Result
		err error
	)
	switch test {
	case ShapiroWilk:
		if n > ShapiroWilkMaxN {
			errors.Warn(errors.NewUndefinedMetricWarning("Shapiro-Wilk",
				fmt.Sprintf("p-value may not be accurate for n > %d", ShapiroWilkMaxN), math.NaN()))
		}
		var w, p float64
		w, p, err = shapiroWilk(sorted)
		res = Result{Statistic: w, PValue: p}
	case AndersonDarling:
		res = andersonDarling(sorted, opt.LegacyAndersonPValue)
	case KolmogorovSmirnov:
		res = kolmogorovSmirnov(sorted)
	default:
		return Result{}, errors.NewValidationError("test", "unknown normality test", int(test))
	}
	if err != nil {
		return Result{}, err
	}

	res.TestName = test.String()
	res.N = n
	if test != AndersonDarling || !opt.LegacyAndersonPValue {
		res.Passed = res.PValue > Alpha
	}
	if res.Passed {
		res.Interpretation = "Approximately normally distributed"
	} else {
		res.Interpretation = "May not be normally distributed"
	}

	log.GetLoggerWithName("diagnostics").Debug("Normality tested",
		log.OperationKey, log.OperationDiagnose,
		log.TestKey, res.TestName,
		log.StatisticKey, res.Statistic,
		log.PValueKey, res.PValue,
	)
	return res, nil
}

// andersonDarling は平均と標本標準偏差（n-1）で標準化して A² を計算する
func andersonDarling(sorted []float64, legacy bool) Result {
	n := len(sorted)
	nf := float64(n)
	mean, std := stat.MeanStdDev(sorted, nil)
	norm := distuv.UnitNormal

	a2 := 0.0
	for i := 0; i < n; i++ {
		lo := norm.CDF((sorted[i] - mean) / std)
		hi := norm.Survival((sorted[n-1-i] - mean) / std)
		a2 += float64(2*i+1) * (math.Log(lo) + math.Log(hi))
	}
	a2 = -nf - a2/nf

	crit := make([]float64, len(andersonCritical))
	for i, c := range andersonCritical {
		crit[i] = c / (1 + 4/nf - 25/(nf*nf))
	}
	res := Result{Statistic: a2, CriticalValues: crit}
	if legacy {
		res.PValue = crit[2]
		res.Passed = crit[2] > Alpha
		return res
	}
	res.PValue = andersonPValue(a2 * (1 + 0.75/nf + 2.25/(nf*nf)))
	return res
}

// andersonPValue は D'Agostino & Stephens (1986) の近似
func andersonPValue(a float64) float64 {
	var p float64
	switch {
	case a >= 0.6:
		p = math.Exp(1.2937 - 5.709*a + 0.0186*a*a)
	case a >= 0.34:
		p = math.Exp(0.9177 - 4.279*a - 1.38*a*a)
	case a >= 0.2:
		p = 1 - math.Exp(-8.318+42.796*a-59.938*a*a)
	default:
		p = 1 - math.Exp(-13.436+101.14*a-223.73*a*a)
	}
	return errors.ClipValue(p, 0, 1)
}

// kolmogorovSmirnov は N(平均, 母標準偏差) との最大距離 D と p 値
func kolmogorovSmirnov(sorted []float64) Result {
	n := len(sorted)
	nf := float64(n)
	mean, std := stat.PopMeanStdDev(sorted, nil)
	dist := distuv.Normal{Mu: mean, Sigma: std}

	d := 0.0
	for i, v := range sorted {
		cdf := dist.CDF(v)
		d = math.Max(d, math.Max(float64(i+1)/nf-cdf, cdf-float64(i)/nf))
	}
	return Result{Statistic: d, PValue: ksPValue(n, d)}
}

// QQPoints は正規 Q-Q プロット用に、linspace(0.01, 0.99, n) の標準正規分位点と
// ソート済みサンプルを返す
func QQPoints(residuals []float64) (theoretical, sample []float64) {
	n := len(residuals)
	sample = append([]float64(nil), residuals...)
	sort.Float64s(sample)
	theoretical = make([]float64, n)
	if n == 0 {
		return theoretical, sample
	}
	if n == 1 {
		theoretical[0] = distuv.UnitNormal.Quantile(0.01)
		return theoretical, sample
	}
	probs := floats.Span(make([]float64, n), 0.01, 0.99)
	for i, p := range probs {
		theoretical[i] = distuv.UnitNormal.Quantile(p)
	}
	return theoretical, sample
}
