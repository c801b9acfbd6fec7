package linear

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/pkg/errors"
)

// InterceptName は切片の係数名
const InterceptName = "Intercept"

// encoding は1項を設計行列の列に展開する方法
type encoding struct {
	column      string
	categorical bool
	// levels[0] は参照水準で、列は作られない
	levels []string
}

func (e encoding) names() []string {
	if !e.categorical {
		return []string{e.column}
	}
	out := make([]string, 0, len(e.levels)-1)
	for _, l := range e.levels[1:] {
		out = append(out, IndicatorName(e.column, l))
	}
	return out
}

// IndicatorName は処理対比の指標列名 col[T.level]
func IndicatorName(col, level string) string {
	return fmt.Sprintf("%s[T.%s]", col, level)
}

// design は推定に使う設計行列と応答
type design struct {
	names     []string
	x         *mat.Dense
	y         []float64
	rows      []int
	encodings []encoding
}

// buildDesign はモデル式を Dataset に適用する。
// 参照列のいずれかが欠損している行は除外される。
func buildDesign(ds *dataset.Dataset, f Formula) (*design, error) {
	for _, col := range f.Columns() {
		if !ds.Has(col) {
			return nil, errors.NewSchemaError("Fit", col, fmt.Sprintf("column referenced by formula %q not found", f.String()))
		}
	}
	y, err := ds.Float(f.Response)
	if err != nil {
		return nil, err
	}

	keep := make([]bool, ds.Nrow())
	for i, v := range y {
		keep[i] = !math.IsNaN(v)
	}
	for _, t := range f.Terms {
		miss, err := ds.Missing(t.Column)
		if err != nil {
			return nil, err
		}
		for i, m := range miss {
			if m {
				keep[i] = false
			}
		}
	}
	complete, err := ds.Filter(keep)
	if err != nil {
		return nil, err
	}

	encs := make([]encoding, 0, len(f.Terms))
	for _, t := range f.Terms {
		enc, err := encodingFor(complete, t)
		if err != nil {
			return nil, err
		}
		encs = append(encs, enc)
	}

	d := &design{encodings: encs, rows: complete.Index()}
	if d.y, err = complete.Float(f.Response); err != nil {
		return nil, err
	}
	if f.Intercept {
		d.names = append(d.names, InterceptName)
	}
	for _, e := range encs {
		d.names = append(d.names, e.names()...)
	}
	if d.x, err = expand(complete, f.Intercept, encs, "Fit"); err != nil {
		return nil, err
	}
	return d, nil
}

func encodingFor(ds *dataset.Dataset, t Term) (encoding, error) {
	kind, err := ds.Kind(t.Column)
	if err != nil {
		return encoding{}, err
	}
	if kind == dataset.Numeric && !t.Categorical {
		return encoding{column: t.Column}, nil
	}

	var levels []string
	if kind == dataset.Numeric {
		levels, err = numericLevels(ds, t.Column)
	} else {
		levels, err = ds.Levels(t.Column)
	}
	if err != nil {
		return encoding{}, err
	}
	if len(levels) == 0 {
		return encoding{}, errors.NewSchemaError("Fit", t.Column, "categorical column has no observed levels")
	}
	return encoding{column: t.Column, categorical: true, levels: levels}, nil
}

// numericLevels は数値列を C() で包んだときの水準を数値順に返す
func numericLevels(ds *dataset.Dataset, col string) ([]string, error) {
	vals, err := ds.Float(col)
	if err != nil {
		return nil, err
	}
	seen := make(map[float64]bool)
	var uniq []float64
	for _, v := range vals {
		if math.IsNaN(v) || seen[v] {
			continue
		}
		seen[v] = true
		uniq = append(uniq, v)
	}
	sort.Float64s(uniq)
	levels := make([]string, len(uniq))
	for i, v := range uniq {
		levels[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return levels, nil
}

// expand は欠損のない Dataset を設計行列に展開する。
// 学習時に無かった水準は ValueError。
func expand(ds *dataset.Dataset, intercept bool, encs []encoding, op string) (*mat.Dense, error) {
	n := ds.Nrow()
	p := 0
	if intercept {
		p++
	}
	for _, e := range encs {
		p += len(e.names())
	}
	if n == 0 || p == 0 {
		return nil, errors.NewModelError(op, "empty design matrix", errors.ErrEmptyData)
	}

	x := mat.NewDense(n, p, nil)
	j := 0
	if intercept {
		for i := 0; i < n; i++ {
			x.Set(i, 0, 1)
		}
		j++
	}
	for _, e := range encs {
		if !e.categorical {
			vals, err := ds.Float(e.column)
			if err != nil {
				return nil, err
			}
			x.SetCol(j, vals)
			j++
			continue
		}
		vals, err := ds.Strings(e.column)
		if err != nil {
			return nil, err
		}
		pos := make(map[string]int, len(e.levels))
		for k, l := range e.levels {
			pos[l] = k
		}
		for i, v := range vals {
			k, ok := pos[v]
			if !ok {
				return nil, errors.NewValueError(op, fmt.Sprintf("unseen level %q in column '%s'", v, e.column))
			}
			if k > 0 {
				x.Set(i, j+k-1, 1)
			}
		}
		j += len(e.levels) - 1
	}
	return x, nil
}
