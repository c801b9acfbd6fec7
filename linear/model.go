package linear

import (
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/soilph/core/model"
)

// Summary はモデル全体の適合統計量
type Summary struct {
	Formula         string
	NObs            int
	NParams         int
	DfResid         float64
	DfModel         float64
	RSquared        float64
	AdjRSquared     float64
	FStatistic      float64 // 説明変数が無い場合は NaN
	FPValue         float64
	LogLikelihood   float64
	AIC             float64
	BIC             float64
	ConditionNumber float64
	ConfidenceLevel float64
	Intercept       bool
}

// Coefficient は係数表の1行
type Coefficient struct {
	Name     string
	Estimate float64
	StdError float64
	TValue   float64
	PValue   float64
	CILower  float64
	CIUpper  float64
}

func (c Coefficient) rounded(decimals int) Coefficient {
	return Coefficient{
		Name:     c.Name,
		Estimate: scalar.RoundEven(c.Estimate, decimals),
		StdError: scalar.RoundEven(c.StdError, decimals),
		TValue:   scalar.RoundEven(c.TValue, decimals),
		PValue:   scalar.RoundEven(c.PValue, decimals),
		CILower:  scalar.RoundEven(c.CILower, decimals),
		CIUpper:  scalar.RoundEven(c.CIUpper, decimals),
	}
}

// Model は推定済みの OLS モデル。生成後は変更されない。
type Model struct {
	formula     Formula
	encodings   []encoding
	names       []string
	x           *mat.Dense
	y           []float64
	rows        []int
	coefs       []Coefficient
	cov         *mat.Dense
	xtxInv      *mat.Dense
	fitted      []float64
	resid       []float64
	sigma2      float64
	summary     Summary
	fingerprint string
}

var (
	_ model.LinearModel = (*Model)(nil)
	_ model.Predictor   = (*Model)(nil)
)

// Formula は推定に使ったモデル式
func (m *Model) Formula() Formula {
	f := m.formula
	f.Terms = append([]Term(nil), m.formula.Terms...)
	return f
}

// Summary は適合統計量を返す
func (m *Model) Summary() Summary { return m.summary }

// Coefficients は丸めていない係数表のコピー
func (m *Model) Coefficients() []Coefficient {
	return append([]Coefficient(nil), m.coefs...)
}

// Coefficient は名前で係数を探す
func (m *Model) Coefficient(name string) (Coefficient, bool) {
	for _, c := range m.coefs {
		if c.Name == name {
			return c, true
		}
	}
	return Coefficient{}, false
}

// CoefficientsTable は表示用に偶数丸めした係数表。モデル内部の値は変わらない。
func (m *Model) CoefficientsTable(decimals int) []Coefficient {
	out := make([]Coefficient, len(m.coefs))
	for i, c := range m.coefs {
		out[i] = c.rounded(decimals)
	}
	return out
}

// ParamNames は切片を含む係数名
func (m *Model) ParamNames() []string { return append([]string(nil), m.names...) }

// Residuals は元の行順の残差
func (m *Model) Residuals() []float64 { return append([]float64(nil), m.resid...) }

// FittedValues は当てはめ値
func (m *Model) FittedValues() []float64 { return append([]float64(nil), m.fitted...) }

// Actual は推定に使われた応答の値
func (m *Model) Actual() []float64 { return append([]float64(nil), m.y...) }

// RowLabels は推定に使われた行の元ラベル
func (m *Model) RowLabels() []int { return append([]int(nil), m.rows...) }

// Scale は残差分散の推定値 σ²
func (m *Model) Scale() float64 { return m.sigma2 }

// Covariance は係数の共分散行列のコピー
func (m *Model) Covariance() *mat.Dense { return mat.DenseCopyOf(m.cov) }

// DesignMatrix は切片列を除いた設計行列と列名を返す（VIF 計算用）
func (m *Model) DesignMatrix() ([]string, *mat.Dense) {
	if !m.formula.Intercept {
		return m.ParamNames(), mat.DenseCopyOf(m.x)
	}
	n, p := m.x.Dims()
	if p == 1 {
		return nil, nil
	}
	return append([]string(nil), m.names[1:]...), mat.DenseCopyOf(m.x.Slice(0, n, 1, p))
}

// Fingerprint は推定に使った設計行列と応答の xxhash
func (m *Model) Fingerprint() string { return m.fingerprint }

// FeatureNames は切片を除いた係数名
func (m *Model) FeatureNames() []string {
	if m.formula.Intercept {
		return append([]string(nil), m.names[1:]...)
	}
	return m.ParamNames()
}

// Coef は FeatureNames と同じ順序の係数
func (m *Model) Coef() []float64 {
	start := 0
	if m.formula.Intercept {
		start = 1
	}
	out := make([]float64, 0, len(m.coefs)-start)
	for _, c := range m.coefs[start:] {
		out = append(out, c.Estimate)
	}
	return out
}

// Intercept は切片（切片なしのモデルでは 0）
func (m *Model) Intercept() float64 {
	if !m.formula.Intercept {
		return 0
	}
	return m.coefs[0].Estimate
}

// RSquared は決定係数
func (m *Model) RSquared() float64 { return m.summary.RSquared }

// AdjRSquared は自由度調整済み決定係数
func (m *Model) AdjRSquared() float64 { return m.summary.AdjRSquared }

// NObs は観測数
func (m *Model) NObs() int { return m.summary.NObs }

// Weights は係数を ModelWeights として書き出す
func (m *Model) Weights() *model.ModelWeights {
	se := make([]float64, len(m.coefs))
	for i, c := range m.coefs {
		se[i] = c.StdError
	}
	return &model.ModelWeights{
		ModelType:    "OLS",
		Version:      model.WeightsVersion,
		Formula:      m.formula.String(),
		Coefficients: m.Coef(),
		StdErrors:    se,
		Intercept:    m.Intercept(),
		FitIntercept: m.formula.Intercept,
		Features:     m.FeatureNames(),
		Fingerprint:  m.fingerprint,
		Metadata: map[string]interface{}{
			"n_obs":     m.summary.NObs,
			"r_squared": m.summary.RSquared,
			"adj_r2":    m.summary.AdjRSquared,
			"aic":       m.summary.AIC,
			"bic":       m.summary.BIC,
		},
	}
}
