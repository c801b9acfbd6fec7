// Package preprocessing は欠損値処理、外れ値検出、カテゴリ変数の参照符号化を提供します。
//
// 欠損値の扱いは列ごとに固定された方針に従います（自動補完ではありません）。
//   - 従属変数（pH）: 欠損行を削除
//   - 施肥量: (地区, 作物) グループ平均で補完し、グループ全体が欠損なら全体平均
//   - 栽培年数: 全体平均で補完
//   - それ以外の列: 変更しない
package preprocessing

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// ImputationMethod は列に適用された欠損値処理
type ImputationMethod int

const (
	// ImputeNone は処理なし
	ImputeNone ImputationMethod = iota
	// ImputeGroupMeanThenOverallMean はグループ平均、次に全体平均
	ImputeGroupMeanThenOverallMean
	// ImputeOverallMean は全体平均
	ImputeOverallMean
	// ImputeRowRemoval は欠損行の削除
	ImputeRowRemoval
	// ImputeSkipped は補完値が計算できず NaN のまま残したこと（列がすべて欠損）
	ImputeSkipped
)

func (m ImputationMethod) String() string {
	switch m {
	case ImputeGroupMeanThenOverallMean:
		return "group-mean-then-overall-mean"
	case ImputeOverallMean:
		return "overall-mean"
	case ImputeRowRemoval:
		return "row-removal"
	case ImputeSkipped:
		return "skipped"
	default:
		return "none"
	}
}

// Describe は報告書用の説明文を返す
func (m ImputationMethod) Describe(groupCols []string) string {
	switch m {
	case ImputeGroupMeanThenOverallMean:
		return fmt.Sprintf("Group mean (%s), then overall mean", strings.Join(groupCols, "×"))
	case ImputeOverallMean:
		return "Overall mean"
	case ImputeRowRemoval:
		return "Rows removed"
	case ImputeSkipped:
		return "Not imputed (all values missing)"
	default:
		return "None"
	}
}

// Schema は欠損値方針が対象とする列名
type Schema struct {
	// Dependent は従属変数の列。欠損行は削除される。
	Dependent string
	// GroupImputed はグループ平均で補完する列（空なら対象なし）
	GroupImputed string
	// GroupBy はグループ平均のグループ列
	GroupBy []string
	// MeanImputed は全体平均で補完する列
	MeanImputed []string
}

// DefaultSchema は土壌 pH データの列構成
func DefaultSchema() Schema {
	return Schema{
		Dependent:    "pH_reading",
		GroupImputed: "fertilizer_kg_ha",
		GroupBy:      []string{"Barangay", "Crop"},
		MeanImputed:  []string{"years_planted"},
	}
}

// Audit は1回のクリーニング処理の記録。返却後は変更されない。
type Audit struct {
	originalN   int
	finalN      int
	rowsRemoved int
	missing     map[string]int
	methods     map[string]ImputationMethod
	order       []string
	groupBy     []string
}

// OriginalN は処理前の行数
func (a *Audit) OriginalN() int { return a.originalN }

// FinalN は処理後の行数
func (a *Audit) FinalN() int { return a.finalN }

// RowsRemoved は従属変数の欠損で削除された行数
func (a *Audit) RowsRemoved() int { return a.rowsRemoved }

// MissingByVariable は列ごとの欠損数のコピー
func (a *Audit) MissingByVariable() map[string]int {
	out := make(map[string]int, len(a.missing))
	for k, v := range a.missing {
		out[k] = v
	}
	return out
}

// Method は列に適用された処理（方針外の列は ImputeNone）
func (a *Audit) Method(col string) ImputationMethod {
	return a.methods[col]
}

// Variables は処理対象になった列を処理順に返す
func (a *Audit) Variables() []string {
	return append([]string(nil), a.order...)
}

// String は監査記録をテキストで返す
func (a *Audit) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Original N: %d\n", a.originalN)
	fmt.Fprintf(&b, "Final N: %d\n", a.finalN)
	fmt.Fprintf(&b, "Rows removed: %d\n", a.rowsRemoved)
	for _, col := range a.order {
		m := a.methods[col]
		if m == ImputeRowRemoval {
			fmt.Fprintf(&b, "  %s: Removed %d rows\n", col, a.missing[col])
			continue
		}
		fmt.Fprintf(&b, "  %s: %d missing, %s\n", col, a.missing[col], m.Describe(a.groupBy))
	}
	return b.String()
}

func (a *Audit) record(col string, missing int, m ImputationMethod) {
	a.missing[col] = missing
	a.methods[col] = m
	a.order = append(a.order, col)
}

// HandleMissingValues は欠損値方針を適用した新しい Dataset と監査記録を返す。
// 従属変数の列が存在しない場合は SchemaError。
func HandleMissingValues(ds *dataset.Dataset, schema Schema) (*dataset.Dataset, *Audit, error) {
	logger := log.GetLoggerWithName("preprocessing")
	if !ds.Has(schema.Dependent) {
		return nil, nil, errors.NewSchemaError("HandleMissingValues", schema.Dependent, "dependent variable column not found")
	}

	audit := &Audit{
		originalN: ds.Nrow(),
		missing:   make(map[string]int),
		methods:   make(map[string]ImputationMethod),
		groupBy:   append([]string(nil), schema.GroupBy...),
	}

	y, err := ds.Float(schema.Dependent)
	if err != nil {
		return nil, nil, err
	}
	keep := make([]bool, len(y))
	removed := 0
	for i, v := range y {
		keep[i] = !math.IsNaN(v)
		if !keep[i] {
			removed++
		}
	}
	cleaned, err := ds.Filter(keep)
	if err != nil {
		return nil, nil, err
	}
	audit.rowsRemoved = removed
	audit.record(schema.Dependent, removed, ImputeRowRemoval)

	if schema.GroupImputed != "" && cleaned.Has(schema.GroupImputed) {
		cleaned, err = imputeGroupMean(cleaned, schema, audit)
		if err != nil {
			return nil, nil, err
		}
	}

	for _, col := range schema.MeanImputed {
		if !cleaned.Has(col) {
			continue
		}
		vals, err := cleaned.Float(col)
		if err != nil {
			return nil, nil, err
		}
		n := countNaN(vals)
		if n == 0 {
			continue
		}
		mean := nanMean(vals)
		if math.IsNaN(mean) {
			errors.Warn(errors.NewDataConversionWarning(col, "overall-mean",
				"every value is missing; column left unimputed"))
			audit.record(col, n, ImputeSkipped)
			continue
		}
		fillNaN(vals, mean)
		if cleaned, err = cleaned.WithFloat(col, vals); err != nil {
			return nil, nil, err
		}
		audit.record(col, n, ImputeOverallMean)
	}

	audit.finalN = cleaned.Nrow()
	logger.Info("Missing values handled",
		log.OperationKey, log.OperationClean,
		log.SamplesKey, audit.finalN,
		log.RowsRemovedKey, audit.rowsRemoved,
	)
	return cleaned, audit, nil
}

func imputeGroupMean(ds *dataset.Dataset, schema Schema, audit *Audit) (*dataset.Dataset, error) {
	col := schema.GroupImputed
	vals, err := ds.Float(col)
	if err != nil {
		return nil, err
	}
	n := countNaN(vals)
	if n == 0 {
		return ds, nil
	}
	overall := nanMean(vals)
	if math.IsNaN(overall) {
		errors.Warn(errors.NewDataConversionWarning(col, "group-mean",
			"every value is missing; column left unimputed"))
		audit.record(col, n, ImputeSkipped)
		return ds, nil
	}

	keys := make([]string, ds.Nrow())
	valid := make([]bool, ds.Nrow())
	for i := range valid {
		valid[i] = true
	}
	for _, g := range schema.GroupBy {
		if !ds.Has(g) {
			return nil, errors.NewSchemaError("HandleMissingValues", g, "group column required for imputing "+col)
		}
		gv, err := ds.Strings(g)
		if err != nil {
			return nil, err
		}
		for i, v := range gv {
			// 欠損したグループキーの行は全体平均で補完する
			if v == "" {
				valid[i] = false
			}
			keys[i] += v + "\x00"
		}
	}

	groups := make(map[string][]float64)
	for i, v := range vals {
		if math.IsNaN(v) || !valid[i] {
			continue
		}
		groups[keys[i]] = append(groups[keys[i]], v)
	}
	means := make(map[string]float64, len(groups))
	for k, g := range groups {
		means[k] = stat.Mean(g, nil)
	}
	for i, v := range vals {
		if !math.IsNaN(v) {
			continue
		}
		if m, ok := means[keys[i]]; valid[i] && ok {
			vals[i] = m
			continue
		}
		vals[i] = overall
	}

	audit.record(col, n, ImputeGroupMeanThenOverallMean)
	return ds.WithFloat(col, vals)
}

func countNaN(vals []float64) int {
	n := 0
	for _, v := range vals {
		if math.IsNaN(v) {
			n++
		}
	}
	return n
}

// nanMean は NaN を除いた平均。すべて NaN なら NaN。
func nanMean(vals []float64) float64 {
	present := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			present = append(present, v)
		}
	}
	if len(present) == 0 {
		return math.NaN()
	}
	return stat.Mean(present, nil)
}

func fillNaN(vals []float64, fill float64) {
	for i, v := range vals {
		if math.IsNaN(v) {
			vals[i] = fill
		}
	}
}

// CleaningReport は元データとクリーニング後データの比較を返す
func CleaningReport(original, cleaned *dataset.Dataset) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 70) + "\n")
	b.WriteString("DATA CLEANING REPORT\n")
	b.WriteString(strings.Repeat("=", 70) + "\n")
	fmt.Fprintf(&b, "\nOriginal dataset: %d observations, %d variables\n", original.Nrow(), original.Ncol())
	fmt.Fprintf(&b, "Cleaned dataset:  %d observations, %d variables\n", cleaned.Nrow(), cleaned.Ncol())
	fmt.Fprintf(&b, "Rows removed:     %d\n", original.Nrow()-cleaned.Nrow())
	retention := 0.0
	if original.Nrow() > 0 {
		retention = float64(cleaned.Nrow()) / float64(original.Nrow()) * 100
	}
	fmt.Fprintf(&b, "Data retention:   %.1f%%", retention)
	return b.String()
}
