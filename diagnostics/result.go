// Package diagnostics は線形回帰の仮定（残差の正規性、多重共線性、
// 等分散性、独立性）を検定します。すべての関数は状態を持ちません。
package diagnostics

import "fmt"

// Alpha は検定の有意水準
const Alpha = 0.05

// Result は1つの検定結果
type Result struct {
	TestName  string
	Statistic float64
	// PValue は p 値。Durbin-Watson のように p 値を持たない検定では NaN。
	PValue         float64
	Passed         bool
	Interpretation string

	// CriticalValues は Anderson-Darling の臨界値（15%, 10%, 5%, 2.5%, 1%）
	CriticalValues []float64
	// FStatistic / FPValue は Breusch-Pagan の F 版
	FStatistic float64
	FPValue    float64
	// N は検定に使ったサンプルサイズ
	N int
}

func (r Result) String() string {
	return fmt.Sprintf("%s: statistic=%.6f p=%.6f passed=%t", r.TestName, r.Statistic, r.PValue, r.Passed)
}
