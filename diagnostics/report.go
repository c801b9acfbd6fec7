package diagnostics

import (
	"fmt"
	"strings"
)

// Results は仮定検定の結果一式。nil の項目は報告に含めない。
type Results struct {
	Normality         *Result
	Multicollinearity *MulticollinearityResult
	Homoscedasticity  *Result
	Independence      *Result
}

// AllPassed は実行されたすべての検定が合格したか
func (r Results) AllPassed() bool {
	for _, res := range []*Result{r.Normality, r.Homoscedasticity, r.Independence} {
		if res != nil && !res.Passed {
			return false
		}
	}
	return r.Multicollinearity == nil || r.Multicollinearity.Passed
}

// GenerateReport は検定結果を 正規性 → 多重共線性 → 等分散性 → 独立性 の順で整形する
func GenerateReport(r Results) string {
	var b strings.Builder
	b.WriteString("\n" + strings.Repeat("=", 70) + "\n")
	b.WriteString("LINEAR REGRESSION ASSUMPTIONS TESTING\n")
	b.WriteString(strings.Repeat("=", 70) + "\n")

	if nt := r.Normality; nt != nil {
		b.WriteString("\n1. NORMALITY OF RESIDUALS\n")
		fmt.Fprintf(&b, "   Test: %s\n", nt.TestName)
		fmt.Fprintf(&b, "   Statistic: %.6f\n", nt.Statistic)
		fmt.Fprintf(&b, "   p-value: %.6f\n", nt.PValue)
		fmt.Fprintf(&b, "   Result: %s\n", nt.Interpretation)
	}
	if mc := r.Multicollinearity; mc != nil {
		fmt.Fprintf(&b, "\n2. MULTICOLLINEARITY (VIF < %g preferred)\n", mc.Threshold)
		fmt.Fprintf(&b, "   %s\n", mc.Interpretation)
		for _, e := range mc.VIF {
			fmt.Fprintf(&b, "   %-30s VIF = %.3f\n", e.Variable, e.VIF)
		}
	}
	if hc := r.Homoscedasticity; hc != nil {
		b.WriteString("\n3. HOMOSCEDASTICITY (BREUSCH-PAGAN)\n")
		fmt.Fprintf(&b, "   Statistic: %.6f\n", hc.Statistic)
		fmt.Fprintf(&b, "   p-value: %.6f\n", hc.PValue)
		fmt.Fprintf(&b, "   Result: %s\n", hc.Interpretation)
	}
	if ind := r.Independence; ind != nil {
		b.WriteString("\n4. INDEPENDENCE (DURBIN-WATSON)\n")
		fmt.Fprintf(&b, "   Statistic: %.6f\n", ind.Statistic)
		fmt.Fprintf(&b, "   %s\n", ind.Interpretation)
	}

	b.WriteString("\n" + strings.Repeat("=", 70) + "\n")
	return b.String()
}
