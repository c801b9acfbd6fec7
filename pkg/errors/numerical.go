package errors

import (
	"math"
)

// varianceFloor 以下の分散はゼロ分散として扱う
const varianceFloor = 1e-24

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }

// CheckNumericalStability は統計量の列に NaN / Inf があれば
// 最初の非有限値の位置を添えて NumericalInstabilityError を返す。
// index は呼び出し側の反復番号（係数の番号など）。
func CheckNumericalStability(operation string, values []float64, index int) error {
	for i, v := range values {
		if finite(v) {
			continue
		}
		err := &NumericalInstabilityError{
			Operation: operation,
			Values:    unstableSample(values, i),
			Iteration: index,
			Context:   map[string]interface{}{"position": i},
		}
		return WithStack(err)
	}
	return nil
}

// unstableSample は i 以降の非有限値を最大10個返す
func unstableSample(values []float64, i int) []float64 {
	var out []float64
	for _, v := range values[i:] {
		if !finite(v) {
			out = append(out, v)
			if len(out) == 10 {
				break
			}
		}
	}
	return out
}

// CheckScalar は検定統計量ひとつを検査する
func CheckScalar(operation string, value float64, index int) error {
	if finite(value) {
		return nil
	}
	return NewNumericalInstabilityError(operation, []float64{value}, index)
}

// CheckVariance returns a NumericalInstabilityError wrapping ErrZeroVariance
// when the spread of a column is zero or numerically indistinguishable from zero.
func CheckVariance(operation string, column string, variance float64, index int) error {
	if variance > varianceFloor && !math.IsNaN(variance) {
		return nil
	}
	err := &NumericalInstabilityError{
		Operation: operation,
		Values:    []float64{variance},
		Iteration: index,
		Context:   map[string]interface{}{"column": column},
		Err:       ErrZeroVariance,
	}
	return WithStack(err)
}

// ClipValue は p 値などを [min, max] に収める
func ClipValue(value, min, max float64) float64 {
	return math.Max(min, math.Min(max, value))
}
