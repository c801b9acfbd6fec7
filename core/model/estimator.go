package model

import "github.com/YuminosukeSato/soilph/dataset"

// LinearModel は推定済みの線形モデルが公開する読み取り専用のビュー
type LinearModel interface {
	// FeatureNames は切片を除いた設計行列の列名を返す
	FeatureNames() []string
	// Coef は FeatureNames と同じ順序の係数を返す（コピー）
	Coef() []float64
	// Intercept は切片を返す（切片なしのモデルでは0）
	Intercept() float64
	// Weights はシリアライズ可能な係数表現を返す
	Weights() *ModelWeights
	// RSquared は決定係数
	RSquared() float64
	// AdjRSquared は自由度調整済み決定係数
	AdjRSquared() float64
	// NObs は推定に使われた観測数
	NObs() int
}

// Fitter はデータセットとモデル式から線形モデルを推定する
type Fitter interface {
	Fit(ds *dataset.Dataset, formula string) (LinearModel, error)
}

// Predictor は新しいデータに対する平均予測値を返す
type Predictor interface {
	PredictMean(ds *dataset.Dataset) ([]float64, error)
}
