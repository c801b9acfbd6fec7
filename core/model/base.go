package model

// BaseEstimator は Fit 済みかどうかだけを記録する埋め込み用の構造体。
// 推定済みの回帰モデルは不変値なので、状態を持つのは変換器（StandardScaler）に限られる。
type BaseEstimator struct {
	fitted bool
}

// IsFitted は Fit が成功したかどうか
func (e *BaseEstimator) IsFitted() bool { return e.fitted }

// SetFitted は Fit の成功を記録する
func (e *BaseEstimator) SetFitted() { e.fitted = true }
