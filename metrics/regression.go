// Package metrics は予測値と実測値の一致度を測る回帰指標を提供します。
package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/soilph/pkg/errors"
)

// Scores は1組の予測に対する回帰指標
type Scores struct {
	N    int
	MSE  float64
	RMSE float64
	MAE  float64
	R2   float64
}

func (s Scores) String() string {
	return fmt.Sprintf("n=%d RMSE=%.4f MAE=%.4f R²=%.4f", s.N, s.RMSE, s.MAE, s.R2)
}

func validate(op string, yTrue, yPred []float64) error {
	n := len(yTrue)
	if n == 0 {
		return errors.NewValueError(op, "empty input")
	}
	if len(yPred) != n {
		return errors.NewDimensionError(op, n, len(yPred), 0)
	}
	if err := errors.CheckNumericalStability(op, yTrue, 0); err != nil {
		return err
	}
	return errors.CheckNumericalStability(op, yPred, 0)
}

// MSE は平均二乗誤差（Mean Squared Error）を計算する
//
//	MSE = (1/n) * Σ(yTrue - yPred)²
func MSE(yTrue, yPred []float64) (float64, error) {
	if err := validate("MSE", yTrue, yPred); err != nil {
		return 0, err
	}
	d := floats.Distance(yTrue, yPred, 2)
	return d * d / float64(len(yTrue)), nil
}

// RMSE は平方根平均二乗誤差（Root Mean Squared Error）を計算する
func RMSE(yTrue, yPred []float64) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// MAE は平均絶対誤差（Mean Absolute Error）を計算する
func MAE(yTrue, yPred []float64) (float64, error) {
	if err := validate("MAE", yTrue, yPred); err != nil {
		return 0, err
	}
	return floats.Distance(yTrue, yPred, 1) / float64(len(yTrue)), nil
}

// R2Score は決定係数（R²）を計算する。
// yTrue の分散がゼロの場合は UndefinedMetricWarning を出して 0 を返す。
func R2Score(yTrue, yPred []float64) (float64, error) {
	if err := validate("R2Score", yTrue, yPred); err != nil {
		return 0, err
	}
	if stat.Variance(yTrue, nil) == 0 || len(yTrue) < 2 {
		errors.Warn(errors.NewUndefinedMetricWarning("R2Score", "yTrue has no variance", 0))
		return 0, nil
	}
	return stat.RSquaredFrom(yPred, yTrue, nil), nil
}

// Evaluate は MSE / RMSE / MAE / R² をまとめて計算する
func Evaluate(yTrue, yPred []float64) (Scores, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return Scores{}, err
	}
	mae, err := MAE(yTrue, yPred)
	if err != nil {
		return Scores{}, err
	}
	r2, err := R2Score(yTrue, yPred)
	if err != nil {
		return Scores{}, err
	}
	return Scores{N: len(yTrue), MSE: mse, RMSE: math.Sqrt(mse), MAE: mae, R2: r2}, nil
}
