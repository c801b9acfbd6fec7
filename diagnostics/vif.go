package diagnostics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// DefaultVIFThreshold を超える VIF は多重共線性とみなす
const DefaultVIFThreshold = 5.0

// VIFEntry は1変数の分散拡大係数
type VIFEntry struct {
	Variable string
	VIF      float64
}

// VIFTable は VIF の降順に並んだ表
type VIFTable []VIFEntry

// Lookup は変数名で VIF を探す
func (t VIFTable) Lookup(name string) (float64, bool) {
	for _, e := range t {
		if e.Variable == name {
			return e.VIF, true
		}
	}
	return 0, false
}

// CalculateVIF は各列を残りの列と切片に回帰したときの R² から
// VIF = 1 / (1 - R²) を計算する。
//
// 完全な線形結合の列は +Inf（UndefinedMetricWarning を出す）。
// 分散ゼロの列は NumericalInstabilityError。
// X は切片列を含まない説明変数行列。
func CalculateVIF(names []string, X mat.Matrix) (VIFTable, error) {
	n, p := X.Dims()
	if len(names) != p {
		return nil, errors.NewDimensionError("CalculateVIF", p, len(names), 1)
	}
	if p == 0 || n == 0 {
		return nil, errors.NewValueError("CalculateVIF", "empty predictor matrix")
	}

	cols := make([][]float64, p)
	for j := 0; j < p; j++ {
		cols[j] = mat.Col(nil, j, X)
		if err := errors.CheckVariance("CalculateVIF", names[j], stat.Variance(cols[j], nil), j); err != nil {
			return nil, err
		}
	}

	table := make(VIFTable, p)
	if p == 1 {
		table[0] = VIFEntry{Variable: names[0], VIF: 1}
		return table, nil
	}
	if n <= p {
		return nil, errors.NewValueError("CalculateVIF", fmt.Sprintf("%d observations for %d predictors", n, p))
	}

	for j := 0; j < p; j++ {
		r2, err := auxiliaryRSquared(cols, j)
		if err != nil {
			return nil, err
		}
		vif := math.Inf(1)
		if 1-r2 > 1e-12 {
			vif = 1 / (1 - r2)
		} else {
			errors.Warn(errors.NewUndefinedMetricWarning("VIF",
				fmt.Sprintf("'%s' is a linear combination of the other predictors", names[j]), vif))
		}
		table[j] = VIFEntry{Variable: names[j], VIF: vif}
	}

	sort.SliceStable(table, func(a, b int) bool { return table[a].VIF > table[b].VIF })
	return table, nil
}

// auxiliaryRSquared は列 j を [1, 他の列] に回帰した R²。
// 他の列どうしが共線でも解けるよう SVD の最小ノルム解を使う。
func auxiliaryRSquared(cols [][]float64, j int) (float64, error) {
	n := len(cols[j])
	p := len(cols)
	aux := mat.NewDense(n, p, nil)
	k := 1
	for i := 0; i < n; i++ {
		aux.Set(i, 0, 1)
	}
	for c := range cols {
		if c == j {
			continue
		}
		aux.SetCol(k, cols[c])
		k++
	}

	var svd mat.SVD
	if ok := svd.Factorize(aux, mat.SVDThin); !ok {
		return 0, errors.NewModelError("CalculateVIF", "SVD factorization failed", errors.ErrSingularMatrix)
	}
	rank := svd.Rank(float64(n) * 2.220446049250313e-16)
	target := mat.NewDense(n, 1, append([]float64(nil), cols[j]...))
	var beta mat.Dense
	svd.SolveTo(&beta, target, rank)

	var pred mat.Dense
	pred.Mul(aux, &beta)
	return stat.RSquaredFrom(mat.Col(nil, 0, &pred), cols[j], nil), nil
}

// MulticollinearityResult は VIF による多重共線性の評価
type MulticollinearityResult struct {
	VIF            VIFTable
	Threshold      float64
	Problematic    []string
	Detected       bool
	Passed         bool
	Interpretation string
}

// TestMulticollinearity は VIF がしきい値を超える変数を報告する。
// threshold が 0 以下なら DefaultVIFThreshold。
func TestMulticollinearity(names []string, X mat.Matrix, threshold float64) (MulticollinearityResult, error) {
	if threshold <= 0 {
		threshold = DefaultVIFThreshold
	}
	table, err := CalculateVIF(names, X)
	if err != nil {
		return MulticollinearityResult{}, err
	}

	res := MulticollinearityResult{VIF: table, Threshold: threshold}
	for _, e := range table {
		if e.VIF > threshold {
			res.Problematic = append(res.Problematic, e.Variable)
		}
	}
	res.Detected = len(res.Problematic) > 0
	res.Passed = !res.Detected
	if res.Detected {
		res.Interpretation = fmt.Sprintf("Multicollinearity detected in %d variables: %s",
			len(res.Problematic), strings.Join(res.Problematic, ", "))
	} else {
		res.Interpretation = fmt.Sprintf("No problematic multicollinearity detected (all VIF < %g)", threshold)
	}

	log.GetLoggerWithName("diagnostics").Debug("Multicollinearity tested",
		log.OperationKey, log.OperationDiagnose,
		log.ThresholdKey, threshold,
		log.CountKey, len(res.Problematic),
	)
	return res, nil
}
