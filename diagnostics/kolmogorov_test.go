package diagnostics

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKSPValueExact(t *testing.T) {
	tests := []struct {
		name string
		n    int
		d    float64
		want float64
	}{
		{"single observation", 1, 0.7, 0.6},
		{"single observation below half", 1, 0.3, 1},
		{"two observations", 2, 0.5, 0.5},
		{"small sample", 5, 0.3, 0.664},
		// Miller (1956) の 5% 臨界値
		{"critical value n=10", 10, 0.40925, 0.04999645},
		{"moderate sample", 25, 0.2, 0.23632066},
		{"largest exact sample", 100, 0.12, 0.10330375},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ksPValue(tt.n, tt.d), 1e-7)
		})
	}
}

func TestKSPValueUpperTail(t *testing.T) {
	// d ≥ 1 - 1/n では P(D_n ≥ d) = 2(1-d)^n
	tests := []struct {
		n int
		d float64
	}{
		{2, 0.75},
		{5, 0.85},
		{8, 0.9},
	}
	for _, tt := range tests {
		want := 2 * math.Pow(1-tt.d, float64(tt.n))
		assert.InEpsilon(t, want, ksPValue(tt.n, tt.d), 1e-6, "n=%d d=%v", tt.n, tt.d)
	}
}

func TestKSPValueMonotone(t *testing.T) {
	prev := 1.0
	for d := 0.02; d < 1; d += 0.02 {
		p := ksPValue(25, d)
		assert.LessOrEqual(t, p, prev+1e-12, "d=%v", d)
		assert.GreaterOrEqual(t, p, 0.0)
		prev = p
	}
}

func TestKSPValueAgreesWithAsymptotic(t *testing.T) {
	asymptotic := func(n int, d float64) float64 {
		sqrtN := math.Sqrt(float64(n))
		return kolmogorovQ((sqrtN + 0.12 + 0.11/sqrtN) * d)
	}
	// 漸近分布は n が大きいと厳密値に近づく
	assert.InDelta(t, asymptotic(100, 0.12), ksPValue(100, 0.12), 2e-3)
	assert.InDelta(t, asymptotic(40, 0.33603224), ksPValue(40, 0.33603224), 1e-5)
	// n > 100 では漸近分布を使う
	assert.Equal(t, asymptotic(101, 0.12), ksPValue(101, 0.12))
}

func TestKolmogorovCDFBounds(t *testing.T) {
	assert.Equal(t, 0.0, kolmogorovCDF(10, 0))
	assert.Equal(t, 0.0, kolmogorovCDF(10, -0.5))
	assert.Equal(t, 1.0, kolmogorovCDF(10, 1))
	assert.True(t, math.IsNaN(kolmogorovCDF(10, math.NaN())))
	assert.Equal(t, 1.0, ksPValue(10, 0))
	assert.Equal(t, 0.0, ksPValue(10, 1))
}
