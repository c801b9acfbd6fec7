package preprocessing

import (
	"fmt"
	"math"
	"sort"

	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// DefaultOutlierThreshold は IQR と z スコアで共通の既定しきい値
const DefaultOutlierThreshold = 1.5

// OutlierMethod は外れ値検出の方式
type OutlierMethod int

const (
	// IQR は四分位範囲による判定 [Q1 - t*IQR, Q3 + t*IQR]
	IQR OutlierMethod = iota
	// ZScore は |z| > t による判定
	ZScore
)

func (m OutlierMethod) String() string {
	switch m {
	case ZScore:
		return "zscore"
	default:
		return "iqr"
	}
}

// ParseOutlierMethod は設定値から方式を得る
func ParseOutlierMethod(s string) (OutlierMethod, error) {
	switch s {
	case "iqr", "IQR", "":
		return IQR, nil
	case "zscore", "z-score", "z", "ZScore":
		return ZScore, nil
	}
	return IQR, errors.NewValidationError("outlier_method", "must be iqr or zscore", s)
}

// OutlierReport は1列分の外れ値検出結果
type OutlierReport struct {
	Column    string
	Method    OutlierMethod
	Threshold float64
	Count     int
	// Percentage は表全体の行数に対する割合
	Percentage float64
	// Indices は外れ値と判定された行の元のラベル
	Indices []int
}

func (r OutlierReport) String() string {
	return fmt.Sprintf("%s (%s, t=%.2f): %d outliers (%.1f%%)", r.Column, r.Method, r.Threshold, r.Count, r.Percentage)
}

// DetectOutliers は数値列の外れ値を検出する。
// 欠損値は判定対象外。列全体が欠損なら外れ値 0 件。
//
// パラメータ:
//   - column: 対象列
//   - method: IQR または ZScore
//   - threshold: しきい値（0 以下なら DefaultOutlierThreshold）
//
// 使用例:
//
//	rep, err := preprocessing.DetectOutliers(ds, "pH_reading", preprocessing.IQR, 1.5)
func DetectOutliers(ds *dataset.Dataset, column string, method OutlierMethod, threshold float64) (OutlierReport, error) {
	if threshold <= 0 {
		threshold = DefaultOutlierThreshold
	}
	report := OutlierReport{Column: column, Method: method, Threshold: threshold}

	vals, err := ds.Float(column)
	if err != nil {
		return report, err
	}
	labels := ds.Index()

	present := make([]float64, 0, len(vals))
	pos := make([]int, 0, len(vals))
	for i, v := range vals {
		if !math.IsNaN(v) {
			present = append(present, v)
			pos = append(pos, i)
		}
	}

	var flagged []int
	if len(present) > 0 {
		switch method {
		case IQR:
			flagged = iqrOutliers(present, threshold)
		case ZScore:
			flagged, err = zScoreOutliers(present, column, threshold)
			if err != nil {
				return report, err
			}
		default:
			return report, errors.NewValidationError("method", "unknown outlier method", int(method))
		}
	}

	report.Indices = make([]int, 0, len(flagged))
	for _, k := range flagged {
		report.Indices = append(report.Indices, labels[pos[k]])
	}
	report.Count = len(report.Indices)
	if ds.Nrow() > 0 {
		report.Percentage = float64(report.Count) / float64(ds.Nrow()) * 100
	}

	log.GetLoggerWithName("preprocessing").Debug("Outliers detected",
		log.OperationKey, log.OperationOutliers,
		log.ColumnKey, column,
		log.TestKey, method.String(),
		log.CountKey, report.Count,
	)
	return report, nil
}

func iqrOutliers(values []float64, t float64) []int {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	iqr := q3 - q1
	lo, hi := q1-t*iqr, q3+t*iqr

	var out []int
	for i, v := range values {
		if v < lo || v > hi {
			out = append(out, i)
		}
	}
	return out
}

func zScoreOutliers(values []float64, column string, t float64) ([]int, error) {
	z, err := ZScores(values)
	if err != nil {
		var nie *errors.NumericalInstabilityError
		if errors.As(err, &nie) {
			nie.Context = map[string]interface{}{"column": column}
		}
		return nil, err
	}
	var out []int
	for i, v := range z {
		if math.Abs(v) > t {
			out = append(out, i)
		}
	}
	return out, nil
}

// Quantile はソート済みサンプルの p 分位点を線形補間 (h = (n-1)p) で求める
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if n == 1 {
		return sorted[0]
	}
	h := float64(n-1) * p
	lo := int(math.Floor(h))
	if lo >= n-1 {
		return sorted[n-1]
	}
	frac := h - float64(lo)
	return sorted[lo] + frac*(sorted[lo+1]-sorted[lo])
}
