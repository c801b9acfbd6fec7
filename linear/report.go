package linear

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// CoefficientColumns は係数表の列見出し
var CoefficientColumns = []string{"Coefficient", "Std. Error", "t-statistic", "p-value", "CI Lower", "CI Upper"}

// Report は論文用に整形したモデル報告を返す
func (m *Model) Report() string {
	s := m.summary
	var b strings.Builder
	b.WriteString("\n" + strings.Repeat("=", 80) + "\n")
	b.WriteString("MULTIPLE LINEAR REGRESSION RESULTS\n")
	b.WriteString(strings.Repeat("=", 80) + "\n")

	fmt.Fprintf(&b, "\nModel: %s\n", s.Formula)
	b.WriteString("\nModel Fit Statistics:\n")
	fmt.Fprintf(&b, "  Sample Size (N):              %d\n", s.NObs)
	fmt.Fprintf(&b, "  Number of Parameters:         %d\n", s.NParams)
	fmt.Fprintf(&b, "  Degrees of Freedom (Total):   %d\n", s.NObs-1)
	fmt.Fprintf(&b, "  Degrees of Freedom (Model):   %.0f\n", s.DfModel)
	fmt.Fprintf(&b, "  Degrees of Freedom (Error):   %.0f\n", s.DfResid)

	b.WriteString("\nModel Performance:\n")
	fmt.Fprintf(&b, "  R-Squared:                    %.6f\n", s.RSquared)
	fmt.Fprintf(&b, "  Adjusted R-Squared:           %.6f\n", s.AdjRSquared)
	fmt.Fprintf(&b, "  F-Statistic:                  %.4f\n", s.FStatistic)
	fmt.Fprintf(&b, "  F-Statistic p-value:          %.2e\n", s.FPValue)
	fmt.Fprintf(&b, "  Log-Likelihood:               %.4f\n", s.LogLikelihood)
	fmt.Fprintf(&b, "  AIC:                          %.4f\n", s.AIC)
	fmt.Fprintf(&b, "  BIC:                          %.4f\n", s.BIC)

	b.WriteString("\nInterpretation:\n")
	fmt.Fprintf(&b, "  The model explains %.2f%% of the variation in the dependent variable.\n", s.RSquared*100)
	if s.FPValue < 0.05 {
		b.WriteString("  The overall model is statistically significant (p < 0.05).\n")
	} else {
		b.WriteString("  The overall model is NOT statistically significant (p >= 0.05).\n")
	}

	b.WriteString("\n" + strings.Repeat("-", 80) + "\n")
	b.WriteString("COEFFICIENT ESTIMATES\n")
	b.WriteString(strings.Repeat("-", 80) + "\n")
	b.WriteString(m.coefficientText(4))
	b.WriteString("\n" + strings.Repeat("=", 80) + "\n")
	return b.String()
}

func (m *Model) coefficientText(decimals int) string {
	var b strings.Builder
	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "\t%s\t\n", strings.Join(CoefficientColumns, "\t"))
	for _, c := range m.CoefficientsTable(decimals) {
		fmt.Fprintf(tw, "%s\t%.*f\t%.*f\t%.4f\t%.4f\t%.*f\t%.*f\t\n",
			c.Name,
			decimals, c.Estimate,
			decimals, c.StdError,
			c.TValue, c.PValue,
			decimals, c.CILower,
			decimals, c.CIUpper)
	}
	_ = tw.Flush()
	return b.String()
}
