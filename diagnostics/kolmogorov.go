package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/soilph/pkg/errors"
)

// ksExactMaxN 以下の標本サイズでは KS 検定の p 値を厳密分布から求める
const ksExactMaxN = 100

// ksScale は行列累乗とその後の積で桁あふれを防ぐための倍率 (10^ksScaleExp)
const (
	ksScale    = 1e140
	ksScaleExp = 140
)

// ksPValue は1標本 KS 統計量 D の両側 p 値。
// n ≤ 100 は厳密分布、それより大きければ Stephens の補正付き漸近分布を使う。
func ksPValue(n int, d float64) float64 {
	if n <= ksExactMaxN {
		return errors.ClipValue(1-kolmogorovCDF(n, d), 0, 1)
	}
	sqrtN := math.Sqrt(float64(n))
	return kolmogorovQ((sqrtN + 0.12 + 0.11/sqrtN) * d)
}

// kolmogorovCDF は P(D_n < d) を Marsaglia, Tsang & Wang (2003) の
// 行列累乗で計算する。
func kolmogorovCDF(n int, d float64) float64 {
	switch {
	case math.IsNaN(d):
		return math.NaN()
	case n < 1 || d <= 0:
		return 0
	case d >= 1:
		return 1
	}
	nd := float64(n) * d
	k := int(nd) + 1
	m := 2*k - 1
	h := float64(k) - nd

	H := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			if i-j+1 >= 0 {
				H.Set(i, j, 1)
			}
		}
	}
	for i := 0; i < m; i++ {
		H.Set(i, 0, H.At(i, 0)-math.Pow(h, float64(i+1)))
		H.Set(m-1, i, H.At(m-1, i)-math.Pow(h, float64(m-i)))
	}
	if 2*h-1 > 0 {
		H.Set(m-1, 0, H.At(m-1, 0)+math.Pow(2*h-1, float64(m)))
	}
	for i := 0; i < m; i++ {
		for j := 0; j < m; j++ {
			if i-j+1 > 0 {
				v := H.At(i, j)
				for g := 1; g <= i-j+1; g++ {
					v /= float64(g)
				}
				H.Set(i, j, v)
			}
		}
	}

	Q, exp := ksPower(H, n, k-1)
	s := Q.At(k-1, k-1)
	for i := 1; i <= n; i++ {
		s = s * float64(i) / float64(n)
		if s < 1/ksScale {
			s *= ksScale
			exp -= ksScaleExp
		}
	}
	return s * math.Pow10(exp)
}

// ksPower は a^n を返す。戻り値の実際の値は結果 × 10^exp。
// 要素 (c, c) が大きくなりすぎたら縮小して exp に記録する。
func ksPower(a *mat.Dense, n, c int) (*mat.Dense, int) {
	if n == 1 {
		return mat.DenseCopyOf(a), 0
	}
	half, exp := ksPower(a, n/2, c)
	r, _ := a.Dims()
	out := mat.NewDense(r, r, nil)
	out.Mul(half, half)
	exp *= 2
	if n%2 == 1 {
		odd := mat.NewDense(r, r, nil)
		odd.Mul(a, out)
		out = odd
	}
	if out.At(c, c) > ksScale {
		out.Scale(1/ksScale, out)
		exp += ksScaleExp
	}
	return out, exp
}

// kolmogorovQ は Kolmogorov 分布の上側確率 Q(λ) = 2 Σ (-1)^(k-1) exp(-2k²λ²)
func kolmogorovQ(lambda float64) float64 {
	if lambda < 1e-3 {
		return 1
	}
	const eps1, eps2 = 1e-6, 1e-16
	sum, sign, prev := 0.0, 2.0, 0.0
	a2 := -2 * lambda * lambda
	for k := 1; k <= 100; k++ {
		term := sign * math.Exp(a2*float64(k*k))
		sum += term
		if math.Abs(term) <= eps1*prev || math.Abs(term) <= eps2*sum {
			return errors.ClipValue(sum, 0, 1)
		}
		sign = -sign
		prev = math.Abs(term)
	}
	// 収束しないのは λ が非常に小さい場合
	return 1
}
