package diagnostics

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/soilph/pkg/errors"
)

// Royston (1995) Algorithm AS R94 の多項式係数
var (
	swC1 = []float64{0, 0.221157, -0.147981, -2.071190, 4.434685, -2.706056}
	swC2 = []float64{0, 0.042981, -0.293762, -1.752461, 5.682633, -3.582633}
	swC3 = []float64{0.5440, -0.39978, 0.025054, -6.714e-4}
	swC4 = []float64{1.3822, -0.77857, 0.062767, -0.0020322}
	swC5 = []float64{-1.5861, -0.31082, -0.083751, 0.0038915}
	swC6 = []float64{-0.4803, -0.082676, 0.0030302}
	swG  = []float64{-2.273, 0.459}
)

func poly(c []float64, x float64) float64 {
	r := 0.0
	for i := len(c) - 1; i >= 0; i-- {
		r = r*x + c[i]
	}
	return r
}

// shapiroWilkCoefficients は下半分の係数 a[0..n/2) を返す（すべて正）
func shapiroWilkCoefficients(n int) []float64 {
	n2 := n / 2
	a := make([]float64, n2)
	if n == 3 {
		a[0] = math.Sqrt(0.5)
		return a
	}

	nf := float64(n)
	m := make([]float64, n2)
	summ2 := 0.0
	for i := 0; i < n2; i++ {
		m[i] = distuv.UnitNormal.Quantile((float64(i+1) - 0.375) / (nf + 0.25))
		summ2 += m[i] * m[i]
	}
	summ2 *= 2
	ssumm2 := math.Sqrt(summ2)
	rsn := 1 / math.Sqrt(nf)

	a1 := poly(swC1, rsn) - m[0]/ssumm2
	var (
		start int
		fac   float64
	)
	if n > 5 {
		a2 := -m[1]/ssumm2 + poly(swC2, rsn)
		fac = math.Sqrt((summ2 - 2*m[0]*m[0] - 2*m[1]*m[1]) / (1 - 2*a1*a1 - 2*a2*a2))
		a[1] = a2
		start = 2
	} else {
		fac = math.Sqrt((summ2 - 2*m[0]*m[0]) / (1 - 2*a1*a1))
		start = 1
	}
	a[0] = a1
	for i := start; i < n2; i++ {
		a[i] = -m[i] / fac
	}
	return a
}

// shapiroWilk はソート済みサンプルの W 統計量と p 値を返す
func shapiroWilk(sorted []float64) (w, p float64, err error) {
	n := len(sorted)
	a := shapiroWilkCoefficients(n)

	mean := 0.0
	for _, v := range sorted {
		mean += v
	}
	mean /= float64(n)
	ss := 0.0
	for _, v := range sorted {
		ss += (v - mean) * (v - mean)
	}

	num := 0.0
	for i := range a {
		num += a[i] * (sorted[n-1-i] - sorted[i])
	}
	w = num * num / ss
	if w > 1 {
		w = 1
	}
	if err := errors.CheckScalar("shapiro_wilk", w, 0); err != nil {
		return 0, 0, err
	}
	return w, shapiroWilkPValue(w, n), nil
}

func shapiroWilkPValue(w float64, n int) float64 {
	if w >= 1 {
		return 1
	}
	nf := float64(n)
	if n == 3 {
		const pi6, stqr = 6 / math.Pi, math.Pi / 3
		return errors.ClipValue(pi6*(math.Asin(math.Sqrt(w))-stqr), 0, 1)
	}

	y := math.Log(1 - w)
	var m, s float64
	if n <= 11 {
		gamma := poly(swG, nf)
		if y >= gamma {
			return 1e-99
		}
		y = -math.Log(gamma - y)
		m = poly(swC3, nf)
		s = math.Exp(poly(swC4, nf))
	} else {
		ln := math.Log(nf)
		m = poly(swC5, ln)
		s = math.Exp(poly(swC6, ln))
	}
	return distuv.UnitNormal.Survival((y - m) / s)
}
