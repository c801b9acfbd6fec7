package report

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/soilph/linear"
	"github.com/YuminosukeSato/soilph/metrics"
)

// ResultsSummary は標本の特徴、適合度、予測精度、有意な説明変数をまとめた文章を返す。
// actual と predicted の長さが異なる、または空の場合はエラー。
func ResultsSummary(m *linear.Model, actual, predicted []float64) (string, error) {
	scores, err := metrics.Evaluate(actual, predicted)
	if err != nil {
		return "", err
	}
	s := m.Summary()
	mean, sd := stat.MeanStdDev(actual, nil)

	var b strings.Builder
	b.WriteString("RESULTS SUMMARY FOR ACADEMIC PAPER\n")
	b.WriteString(strings.Repeat("=", 80) + "\n")

	b.WriteString("\nSample Characteristics:\n")
	fmt.Fprintf(&b, "  Total observations: N = %d\n", s.NObs)
	fmt.Fprintf(&b, "  Dependent variable: Mean = %.3f, SD = %.3f\n", mean, sd)
	fmt.Fprintf(&b, "  Range: %.2f - %.2f\n", floats.Min(actual), floats.Max(actual))

	b.WriteString("\nModel Performance:\n")
	fmt.Fprintf(&b, "  R² = %.4f (model explains %.2f%% of variance)\n", s.RSquared, s.RSquared*100)
	fmt.Fprintf(&b, "  Adjusted R² = %.4f\n", s.AdjRSquared)
	fmt.Fprintf(&b, "  F(%d, %d) = %.4f, %s\n", int(s.DfModel), int(s.DfResid), s.FStatistic, FormatPValue(s.FPValue))

	b.WriteString("\nPrediction Accuracy:\n")
	fmt.Fprintf(&b, "  RMSE = %.4f (average prediction error)\n", scores.RMSE)
	fmt.Fprintf(&b, "  MAE = %.4f (mean absolute error)\n", scores.MAE)

	b.WriteString("\nSignificant Predictors (p < 0.05):\n")
	for _, c := range SignificantPredictors(m) {
		fmt.Fprintf(&b, "  • %s: β = %.4f, p = %.4f\n", c.Name, c.Estimate, c.PValue)
	}

	b.WriteString("\n" + strings.Repeat("=", 80))
	return b.String(), nil
}

// SignificantPredictors は p < 0.05 の係数（切片を除く）
func SignificantPredictors(src CoefficientSource) []linear.Coefficient {
	var out []linear.Coefficient
	for _, c := range src.Coefficients() {
		if c.Name != linear.InterceptName && c.PValue < 0.05 {
			out = append(out, c)
		}
	}
	return out
}

// FormatPValue は APA 形式の p 値表記
func FormatPValue(p float64) string {
	if p < 0.001 {
		return "p < .001"
	}
	return strings.Replace(fmt.Sprintf("p = %.3f", p), "0.", ".", 1)
}
