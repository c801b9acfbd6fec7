// Package report は推定済みモデルとデータセットから論文用の表、
// 解釈文、結果要約を作り、ファイルへ書き出します。
//
// 表は gota の DataFrame で表現します。先頭列が行ラベルです。
package report

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/diagnostics"
	"github.com/YuminosukeSato/soilph/linear"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// StatsDecimals は記述統計と相関行列の丸め桁数
const StatsDecimals = 3

// DescriptiveColumns は記述統計表の統計量列
var DescriptiveColumns = []string{"N", "M", "SD", "Min", "Max"}

// NamedTable は書き出し単位の表
type NamedTable struct {
	Name  string
	Frame dataframe.DataFrame
}

// DescriptiveStats は変数ごとの N, 平均, 標準偏差 (n-1), 最小, 最大を返す。
// groupBy が空でなければ水準ごとに計算し、先頭列にグループを置く。
// 欠損値は除外する。値は小数3桁に丸める。
func DescriptiveStats(ds *dataset.Dataset, variables []string, groupBy string) (dataframe.DataFrame, error) {
	if len(variables) == 0 {
		return dataframe.DataFrame{}, errors.NewValueError("DescriptiveStats", "no variables given")
	}
	values := make(map[string][]float64, len(variables))
	for _, v := range variables {
		vals, err := ds.Float(v)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		values[v] = vals
	}

	if groupBy == "" {
		var (
			names []string
			rows  [][]float64
		)
		for _, v := range variables {
			names = append(names, v)
			rows = append(rows, describe(values[v], nil))
		}
		return statsFrame("Variable", names, rows, nil, ""), nil
	}

	keys, err := ds.Strings(groupBy)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	levels, err := ds.Levels(groupBy)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	var (
		groups []string
		names  []string
		rows   [][]float64
	)
	for _, level := range levels {
		mask := make([]bool, len(keys))
		for i, k := range keys {
			mask[i] = k == level
		}
		for _, v := range variables {
			groups = append(groups, level)
			names = append(names, v)
			rows = append(rows, describe(values[v], mask))
		}
	}
	return statsFrame("Variable", names, rows, groups, groupBy), nil
}

// describe は mask が true（nil なら全行）かつ非欠損の値の要約統計量
func describe(vals []float64, mask []bool) []float64 {
	var x []float64
	for i, v := range vals {
		if math.IsNaN(v) || (mask != nil && !mask[i]) {
			continue
		}
		x = append(x, v)
	}
	if len(x) == 0 {
		nan := math.NaN()
		return []float64{0, nan, nan, nan, nan}
	}
	mean, sd := stat.MeanStdDev(x, nil)
	if len(x) == 1 {
		sd = math.NaN()
	}
	return []float64{
		float64(len(x)),
		scalar.RoundEven(mean, StatsDecimals),
		scalar.RoundEven(sd, StatsDecimals),
		scalar.RoundEven(floats.Min(x), StatsDecimals),
		scalar.RoundEven(floats.Max(x), StatsDecimals),
	}
}

func statsFrame(label string, names []string, rows [][]float64, groups []string, groupBy string) dataframe.DataFrame {
	var cols []series.Series
	if groups != nil {
		cols = append(cols, series.New(groups, series.String, groupBy))
	}
	cols = append(cols, series.New(names, series.String, label))
	for j, name := range DescriptiveColumns {
		col := make([]float64, len(rows))
		for i, r := range rows {
			col[i] = r[j]
		}
		if j == 0 {
			counts := make([]int, len(col))
			for i, c := range col {
				counts[i] = int(c)
			}
			cols = append(cols, series.New(counts, series.Int, name))
			continue
		}
		cols = append(cols, series.New(col, series.Float, name))
	}
	return dataframe.New(cols...)
}

// CorrelationMethod は相関係数の種類
type CorrelationMethod int

const (
	// Pearson は積率相関
	Pearson CorrelationMethod = iota
	// Spearman は順位相関（同順位は平均順位）
	Spearman
)

func (m CorrelationMethod) String() string {
	if m == Spearman {
		return "spearman"
	}
	return "pearson"
}

// ParseCorrelationMethod は設定値 pearson / spearman を解釈する
func ParseCorrelationMethod(s string) (CorrelationMethod, error) {
	switch s {
	case "pearson", "":
		return Pearson, nil
	case "spearman":
		return Spearman, nil
	}
	return Pearson, errors.NewValidationError("correlation_method", "must be pearson or spearman", s)
}

// CorrelationTable は変数間の相関行列。各組は両方が非欠損の行だけで計算する。
// 対角は 1、計算できない組（観測2未満、分散ゼロ）は NaN。
func CorrelationTable(ds *dataset.Dataset, variables []string, method CorrelationMethod) (dataframe.DataFrame, error) {
	if len(variables) == 0 {
		return dataframe.DataFrame{}, errors.NewValueError("CorrelationTable", "no variables given")
	}
	cols := make([][]float64, len(variables))
	for i, v := range variables {
		vals, err := ds.Float(v)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		cols[i] = vals
	}

	k := len(variables)
	corr := make([][]float64, k)
	for i := range corr {
		corr[i] = make([]float64, k)
		corr[i][i] = 1
	}
	for i := 0; i < k; i++ {
		for j := i + 1; j < k; j++ {
			r := scalar.RoundEven(pairwiseCorrelation(cols[i], cols[j], method), StatsDecimals)
			corr[i][j], corr[j][i] = r, r
		}
	}

	out := []series.Series{series.New(variables, series.String, "Variable")}
	for j, v := range variables {
		col := make([]float64, k)
		for i := range col {
			col[i] = corr[i][j]
		}
		out = append(out, series.New(col, series.Float, v))
	}

	log.GetLoggerWithName("report").Debug("Correlation matrix computed",
		log.OperationKey, log.OperationReport,
		log.FeaturesKey, k,
		"method", method.String(),
	)
	return dataframe.New(out...), nil
}

func pairwiseCorrelation(a, b []float64, method CorrelationMethod) float64 {
	var x, y []float64
	for i := range a {
		if math.IsNaN(a[i]) || math.IsNaN(b[i]) {
			continue
		}
		x = append(x, a[i])
		y = append(y, b[i])
	}
	if len(x) < 2 {
		return math.NaN()
	}
	if method == Spearman {
		x, y = averageRanks(x), averageRanks(y)
	}
	if stat.Variance(x, nil) == 0 || stat.Variance(y, nil) == 0 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}

// averageRanks は 1 始まりの順位。同値には平均順位を与える。
func averageRanks(x []float64) []float64 {
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	ranks := make([]float64, len(x))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && x[idx[j+1]] == x[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

// RegressionColumns は回帰係数表の列名。信頼区間の列名は信頼水準で決まる。
func RegressionColumns(confidence float64) []string {
	pct := fmt.Sprintf("%g%%", scalar.Round(confidence*100, 2))
	return []string{"Predictor", "β", "SE", "t", "p", pct + " CI [Lower]", pct + " CI [Upper]"}
}

// RegressionSummaryTable は係数ごとの β, SE, t, p, 信頼区間。
// β, SE, 信頼区間は decimals 桁、t と p は4桁に丸める。
func RegressionSummaryTable(m *linear.Model, decimals int) dataframe.DataFrame {
	coefs := m.Coefficients()
	names := make([]string, len(coefs))
	cols := make([][]float64, 6)
	for j := range cols {
		cols[j] = make([]float64, len(coefs))
	}
	for i, c := range coefs {
		names[i] = c.Name
		cols[0][i] = scalar.RoundEven(c.Estimate, decimals)
		cols[1][i] = scalar.RoundEven(c.StdError, decimals)
		cols[2][i] = scalar.RoundEven(c.TValue, 4)
		cols[3][i] = scalar.RoundEven(c.PValue, 4)
		cols[4][i] = scalar.RoundEven(c.CILower, decimals)
		cols[5][i] = scalar.RoundEven(c.CIUpper, decimals)
	}
	header := RegressionColumns(m.Summary().ConfidenceLevel)
	out := []series.Series{series.New(names, series.String, header[0])}
	for j, col := range cols {
		out = append(out, series.New(col, series.Float, header[j+1]))
	}
	return dataframe.New(out...)
}

// ModelFitTable はモデル全体の適合統計量を表示用の文字列で返す
func ModelFitTable(s linear.Summary) dataframe.DataFrame {
	stats := []string{"R²", "Adjusted R²", "F-statistic", "df (Model)", "df (Residual)", "N", "AIC", "BIC"}
	values := []string{
		fmt.Sprintf("%.6f", s.RSquared),
		fmt.Sprintf("%.6f", s.AdjRSquared),
		fmt.Sprintf("%.4f", s.FStatistic),
		fmt.Sprintf("%d", int(s.DfModel)),
		fmt.Sprintf("%d", int(s.DfResid)),
		fmt.Sprintf("%d", s.NObs),
		fmt.Sprintf("%.2f", s.AIC),
		fmt.Sprintf("%.2f", s.BIC),
	}
	return dataframe.New(
		series.New(stats, series.String, "Statistic"),
		series.New(values, series.String, "Value"),
	)
}

// VIFFrame は VIF 表を DataFrame にする
func VIFFrame(table diagnostics.VIFTable) dataframe.DataFrame {
	names := make([]string, len(table))
	rounded := make([]float64, len(table))
	for i, e := range table {
		names[i] = e.Variable
		rounded[i] = scalar.RoundEven(e.VIF, StatsDecimals)
	}
	return dataframe.New(
		series.New(names, series.String, "Variable"),
		series.New(rounded, series.Float, "VIF"),
	)
}
