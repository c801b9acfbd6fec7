package report

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/soilph/linear"
)

// CoefficientSource は係数表を持つもの。*linear.Model が満たす。
type CoefficientSource interface {
	Coefficients() []linear.Coefficient
}

// SignificanceMarker は p 値の有意性記号
//
//	p < 0.001 → ***, p < 0.01 → **, p < 0.05 → *, それ以外 → ns
func SignificanceMarker(p float64) string {
	switch {
	case p < 0.001:
		return "***"
	case p < 0.01:
		return "**"
	case p < 0.05:
		return "*"
	default:
		return "ns"
	}
}

// InterpretationText は係数ごとの解釈文を返す。labels があれば変数名の代わりに使う。
// 切片は全説明変数が 0 のときの基準値として説明する。
func InterpretationText(src CoefficientSource, labels map[string]string) map[string]string {
	out := make(map[string]string)
	for _, c := range src.Coefficients() {
		out[c.Name] = interpret(c, labels)
	}
	return out
}

// InterpretationLines は InterpretationText を係数の順序で返す
func InterpretationLines(src CoefficientSource, labels map[string]string) []string {
	coefs := src.Coefficients()
	lines := make([]string, 0, len(coefs))
	for _, c := range coefs {
		lines = append(lines, interpret(c, labels))
	}
	return lines
}

func interpret(c linear.Coefficient, labels map[string]string) string {
	if c.Name == linear.InterceptName {
		return fmt.Sprintf("Intercept: %.4f (baseline pH when all predictors = 0)", c.Estimate)
	}
	label := c.Name
	if l, ok := labels[c.Name]; ok && l != "" {
		label = l
	}
	direction := "increases"
	if c.Estimate <= 0 {
		direction = "decreases"
	}
	return fmt.Sprintf("%s: %s by %.4f units (p=%.4f) %s",
		label, direction, math.Abs(c.Estimate), c.PValue, SignificanceMarker(c.PValue))
}
