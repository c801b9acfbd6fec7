// Package dataset は土壌測定データの表形式コンテナと読み込み処理を提供します。
//
// Dataset は gota の DataFrame を包み、元の行番号（ラベル）を保持します。
// すべての変換操作は新しい Dataset を返し、入力を変更しません。
// 列は数値列（欠損は NaN）かカテゴリ列（欠損は NA）のどちらかです。
package dataset

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/YuminosukeSato/soilph/pkg/errors"
)

// Kind は列の種類
type Kind int

const (
	// Numeric は浮動小数点の列。欠損値は NaN。
	Numeric Kind = iota
	// Categorical は文字列の列。欠損値は NA。
	Categorical
)

func (k Kind) String() string {
	if k == Numeric {
		return "numeric"
	}
	return "categorical"
}

// naMarker は gota の文字列列で欠損を表す値
const naMarker = "NaN"

// Dataset は行ラベル付きの不変なデータ表
type Dataset struct {
	df    dataframe.DataFrame
	index []int
}

// New は列から Dataset を作成します。行ラベルは 0..n-1 です。
// 数値列は series.Float、それ以外は series.String に正規化されます。
func New(cols ...series.Series) (*Dataset, error) {
	if len(cols) == 0 {
		return nil, errors.NewValueError("dataset.New", "no columns")
	}
	n := cols[0].Len()
	index := make([]int, n)
	for i := range index {
		index[i] = i
	}
	return fromSeries(cols, index)
}

// MustNew は New と同じですが、エラー時に panic します。テストと例示用です。
func MustNew(cols ...series.Series) *Dataset {
	ds, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return ds
}

// FloatColumn は数値列を作成します。NaN は欠損値です。
func FloatColumn(name string, values []float64) series.Series {
	return series.New(append([]float64(nil), values...), series.Float, name)
}

// StringColumn はカテゴリ列を作成します。空文字列は欠損値です。
func StringColumn(name string, values []string) series.Series {
	vals := make([]string, len(values))
	for i, v := range values {
		if v == "" {
			vals[i] = naMarker
			continue
		}
		vals[i] = v
	}
	return series.New(vals, series.String, name)
}

func fromSeries(cols []series.Series, index []int) (*Dataset, error) {
	normalized := make([]series.Series, len(cols))
	seen := make(map[string]bool, len(cols))
	for i, s := range cols {
		if seen[s.Name] {
			return nil, errors.NewSchemaError("dataset.New", s.Name, "duplicate column name")
		}
		seen[s.Name] = true
		if s.Len() != len(index) {
			return nil, errors.NewDimensionError("dataset.New", len(index), s.Len(), 0)
		}
		normalized[i] = normalize(s)
	}
	df := dataframe.New(normalized...)
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "dataset.New")
	}
	return &Dataset{df: df, index: append([]int(nil), index...)}, nil
}

// normalize は int/bool 列を Float/String 列に揃えます。
func normalize(s series.Series) series.Series {
	switch s.Type() {
	case series.Float:
		return s.Copy()
	case series.Int:
		return series.New(s.Float(), series.Float, s.Name)
	case series.Bool:
		recs := s.Records()
		vals := make([]string, len(recs))
		for i, r := range recs {
			if s.Elem(i).IsNA() {
				vals[i] = naMarker
				continue
			}
			vals[i] = strings.ToLower(r)
		}
		return series.New(vals, series.String, s.Name)
	default:
		return s.Copy()
	}
}

// Nrow は行数を返します。
func (d *Dataset) Nrow() int { return d.df.Nrow() }

// Ncol は列数を返します。
func (d *Dataset) Ncol() int { return d.df.Ncol() }

// Names は列名を元の順序で返します。
func (d *Dataset) Names() []string { return d.df.Names() }

// Has は列が存在するかを返します。
func (d *Dataset) Has(col string) bool {
	for _, name := range d.df.Names() {
		if name == col {
			return true
		}
	}
	return false
}

// Index は元の行ラベルのコピーを返します。
func (d *Dataset) Index() []int { return append([]int(nil), d.index...) }

// DataFrame は内部の DataFrame のコピーを返します。
func (d *Dataset) DataFrame() dataframe.DataFrame { return d.df.Copy() }

// Kind は列の種類を返します。
func (d *Dataset) Kind(col string) (Kind, error) {
	s, err := d.column("Kind", col)
	if err != nil {
		return Numeric, err
	}
	if s.Type() == series.Float {
		return Numeric, nil
	}
	return Categorical, nil
}

func (d *Dataset) column(op, col string) (series.Series, error) {
	if !d.Has(col) {
		return series.Series{}, errors.NewSchemaError(op, col, "column not found")
	}
	return d.df.Col(col), nil
}

// Float は数値列の値のコピーを返します。欠損値は NaN です。
func (d *Dataset) Float(col string) ([]float64, error) {
	s, err := d.column("Float", col)
	if err != nil {
		return nil, err
	}
	if s.Type() != series.Float {
		return nil, errors.NewSchemaError("Float", col, "column is categorical, not numeric")
	}
	return s.Float(), nil
}

// Strings は列の値を文字列として返します。欠損値は空文字列です。
func (d *Dataset) Strings(col string) ([]string, error) {
	s, err := d.column("Strings", col)
	if err != nil {
		return nil, err
	}
	out := make([]string, s.Len())
	if s.Type() == series.Float {
		for i, v := range s.Float() {
			if !math.IsNaN(v) {
				out[i] = strconv.FormatFloat(v, 'f', -1, 64)
			}
		}
		return out, nil
	}
	for i, r := range s.Records() {
		if s.Elem(i).IsNA() {
			continue
		}
		out[i] = r
	}
	return out, nil
}

// Missing は各行が欠損しているかを返します。
func (d *Dataset) Missing(col string) ([]bool, error) {
	s, err := d.column("Missing", col)
	if err != nil {
		return nil, err
	}
	out := make([]bool, s.Len())
	if s.Type() == series.Float {
		for i, v := range s.Float() {
			out[i] = math.IsNaN(v)
		}
		return out, nil
	}
	for i, r := range s.Records() {
		out[i] = s.Elem(i).IsNA() || r == ""
	}
	return out, nil
}

// MissingCount は列の欠損数を返します。
func (d *Dataset) MissingCount(col string) (int, error) {
	miss, err := d.Missing(col)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, m := range miss {
		if m {
			n++
		}
	}
	return n, nil
}

// Levels はカテゴリ列の欠損でない水準をソートして返します。
func (d *Dataset) Levels(col string) ([]string, error) {
	vals, err := d.Strings(col)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var levels []string
	for _, v := range vals {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		levels = append(levels, v)
	}
	sortLevels(levels)
	return levels, nil
}

// sortLevels は水準を並べる。すべて数値として読める水準（"2", "10" などの符号）は
// 数値順、それ以外は文字列順。
func sortLevels(levels []string) {
	nums := make(map[string]float64, len(levels))
	for _, l := range levels {
		f, err := strconv.ParseFloat(l, 64)
		if err != nil {
			sort.Strings(levels)
			return
		}
		nums[l] = f
	}
	sort.Slice(levels, func(i, j int) bool {
		if nums[levels[i]] != nums[levels[j]] {
			return nums[levels[i]] < nums[levels[j]]
		}
		return levels[i] < levels[j]
	})
}

// WithFloat は数値列を置き換えた（または末尾に追加した）新しい Dataset を返します。
func (d *Dataset) WithFloat(col string, values []float64) (*Dataset, error) {
	if len(values) != d.Nrow() {
		return nil, errors.NewDimensionError("WithFloat", d.Nrow(), len(values), 0)
	}
	return d.withSeries(FloatColumn(col, values))
}

// WithString はカテゴリ列を置き換えた（または末尾に追加した）新しい Dataset を返します。
func (d *Dataset) WithString(col string, values []string) (*Dataset, error) {
	if len(values) != d.Nrow() {
		return nil, errors.NewDimensionError("WithString", d.Nrow(), len(values), 0)
	}
	return d.withSeries(StringColumn(col, values))
}

func (d *Dataset) withSeries(s series.Series) (*Dataset, error) {
	names := d.df.Names()
	cols := make([]series.Series, 0, len(names)+1)
	replaced := false
	for _, name := range names {
		if name == s.Name {
			cols = append(cols, s)
			replaced = true
			continue
		}
		cols = append(cols, d.df.Col(name))
	}
	if !replaced {
		cols = append(cols, s)
	}
	return fromSeries(cols, d.index)
}

// Filter は keep[i] が true の行だけを持つ新しい Dataset を返します。行ラベルは保持されます。
func (d *Dataset) Filter(keep []bool) (*Dataset, error) {
	if len(keep) != d.Nrow() {
		return nil, errors.NewDimensionError("Filter", d.Nrow(), len(keep), 0)
	}
	var rows []int
	var index []int
	for i, k := range keep {
		if k {
			rows = append(rows, i)
			index = append(index, d.index[i])
		}
	}
	names := d.df.Names()
	cols := make([]series.Series, len(names))
	for j, name := range names {
		s := d.df.Col(name)
		if len(rows) == 0 {
			cols[j] = emptyLike(s)
			continue
		}
		cols[j] = s.Subset(rows)
	}
	return fromSeries(cols, index)
}

func emptyLike(s series.Series) series.Series {
	if s.Type() == series.Float {
		return series.New([]float64{}, series.Float, s.Name)
	}
	return series.New([]string{}, series.String, s.Name)
}

// Select は指定した列だけを持つ新しい Dataset を返します。
func (d *Dataset) Select(cols ...string) (*Dataset, error) {
	out := make([]series.Series, len(cols))
	for i, name := range cols {
		s, err := d.column("Select", name)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return fromSeries(out, d.index)
}

// Records はヘッダー行を含む文字列表現を返します。欠損値は空文字列です。
func (d *Dataset) Records() [][]string {
	names := d.df.Names()
	out := make([][]string, d.Nrow()+1)
	out[0] = append([]string(nil), names...)
	cols := make([][]string, len(names))
	for j, name := range names {
		cols[j], _ = d.Strings(name)
	}
	for i := 0; i < d.Nrow(); i++ {
		row := make([]string, len(names))
		for j := range names {
			row[j] = cols[j][i]
		}
		out[i+1] = row
	}
	return out
}
