package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"gonum.org/v1/gonum/floats/scalar"

	"github.com/YuminosukeSato/soilph/diagnostics"
	"github.com/YuminosukeSato/soilph/linear"
	"github.com/YuminosukeSato/soilph/metrics"
	"github.com/YuminosukeSato/soilph/preprocessing"
)

// NamedModel は比較対象のモデル
type NamedModel struct {
	Name  string
	Model *linear.Model
}

// Figure は報告書に埋め込む画像
type Figure struct {
	Caption string
	Path    string
}

// Document は Markdown 報告書の材料。nil やゼロ値の項目は出力しない。
type Document struct {
	Title    string
	Subtitle string

	Audit       *preprocessing.Audit
	Outliers    []preprocessing.OutlierReport
	Descriptive *NamedTable
	Correlation *NamedTable

	Model       *linear.Model
	Decimals    int
	Labels      map[string]string
	Comparison  []NamedModel
	Assumptions *diagnostics.Results
	Scores      *metrics.Scores
	Figures     []Figure
}

// Markdown は論文形式の Markdown を返す。
// トップレベル見出し (# ) は PDF 化でページ区切りになる。
func Markdown(doc Document) string {
	var b strings.Builder
	title := doc.Title
	if title == "" {
		title = "Soil pH Regression Analysis"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	if doc.Subtitle != "" {
		fmt.Fprintf(&b, "%s\n\n", doc.Subtitle)
	}

	tableNo := 0
	nextTable := func(caption string) string {
		tableNo++
		return fmt.Sprintf("**Table %d. %s**", tableNo, caption)
	}

	if doc.Audit != nil || len(doc.Outliers) > 0 || doc.Descriptive != nil || doc.Correlation != nil {
		b.WriteString("## Data Preparation\n\n")
	}
	if a := doc.Audit; a != nil {
		fmt.Fprintf(&b, "- Original observations: %d\n", a.OriginalN())
		fmt.Fprintf(&b, "- Observations after cleaning: %d\n", a.FinalN())
		fmt.Fprintf(&b, "- Rows removed (missing dependent variable): %d\n", a.RowsRemoved())
		missing := a.MissingByVariable()
		for _, v := range a.Variables() {
			fmt.Fprintf(&b, "- %s: %d missing, %s\n", v, missing[v], a.Method(v))
		}
		b.WriteString("\n")
	}
	if len(doc.Outliers) > 0 {
		b.WriteString("### Outlier Screening\n\n")
		for _, o := range doc.Outliers {
			fmt.Fprintf(&b, "- %s\n", o)
		}
		b.WriteString("\n")
	}
	if t := doc.Descriptive; t != nil {
		fmt.Fprintf(&b, "%s\n\n%s\n", nextTable("Descriptive Statistics"), MarkdownTable(t.Frame))
	}
	if t := doc.Correlation; t != nil {
		fmt.Fprintf(&b, "%s\n\n%s\n", nextTable("Correlation Matrix"), MarkdownTable(t.Frame))
	}

	if m := doc.Model; m != nil {
		s := m.Summary()
		decimals := doc.Decimals
		if decimals <= 0 {
			decimals = 4
		}
		b.WriteString("# Results\n\n")
		b.WriteString("## Regression Model\n\n")
		fmt.Fprintf(&b, "**Model: %s**\n\n", s.Formula)
		fmt.Fprintf(&b, "The model explains %.2f%% of the variance in soil pH, F(%d, %d) = %.4f, %s.\n\n",
			s.RSquared*100, int(s.DfModel), int(s.DfResid), s.FStatistic, FormatPValue(s.FPValue))
		fmt.Fprintf(&b, "%s\n\n%s\n", nextTable("Regression Coefficients"), MarkdownTable(RegressionSummaryTable(m, decimals)))
		fmt.Fprintf(&b, "%s\n\n%s\n", nextTable("Model Fit Statistics"), MarkdownTable(ModelFitTable(s)))

		b.WriteString("### Interpretation\n\n")
		for _, line := range InterpretationLines(m, doc.Labels) {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	if sc := doc.Scores; sc != nil {
		b.WriteString("### Prediction Accuracy\n\n")
		fmt.Fprintf(&b, "- RMSE = %.4f\n", sc.RMSE)
		fmt.Fprintf(&b, "- MAE = %.4f\n\n", sc.MAE)
	}

	if r := doc.Assumptions; r != nil {
		b.WriteString("## Assumption Testing\n\n")
		for _, res := range []*diagnostics.Result{r.Normality, r.Homoscedasticity, r.Independence} {
			if res == nil {
				continue
			}
			fmt.Fprintf(&b, "- %s: statistic = %.4f, %s (%s)\n",
				res.TestName, res.Statistic, passText(res.Passed), res.Interpretation)
		}
		if mc := r.Multicollinearity; mc != nil {
			fmt.Fprintf(&b, "- Multicollinearity: %s\n\n", mc.Interpretation)
			fmt.Fprintf(&b, "%s\n\n%s", nextTable("Variance Inflation Factors"), MarkdownTable(VIFFrame(mc.VIF)))
		}
		b.WriteString("\n")
	}

	if len(doc.Comparison) > 0 {
		b.WriteString("## Model Comparison\n\n")
		fmt.Fprintf(&b, "%s\n\n%s\n", nextTable("Model Comparison"), MarkdownTable(ComparisonTable(doc.Comparison)))
	}

	if len(doc.Figures) > 0 {
		b.WriteString("# Figures\n\n")
		for i, f := range doc.Figures {
			fmt.Fprintf(&b, "**Figure %d. %s**\n\n![%s](%s)\n\n", i+1, f.Caption, f.Caption, f.Path)
		}
	}
	return strings.TrimRight(b.String(), "\n") + "\n"
}

func passText(ok bool) string {
	if ok {
		return "passed"
	}
	return "not satisfied"
}

// ComparisonTable はモデルごとの N, R², 調整済み R², AIC, BIC
func ComparisonTable(models []NamedModel) dataframe.DataFrame {
	n := len(models)
	names := make([]string, n)
	formulas := make([]string, n)
	nobs := make([]int, n)
	r2 := make([]float64, n)
	adj := make([]float64, n)
	aic := make([]float64, n)
	bic := make([]float64, n)
	for i, nm := range models {
		s := nm.Model.Summary()
		names[i] = nm.Name
		formulas[i] = s.Formula
		nobs[i] = s.NObs
		r2[i] = scalar.RoundEven(s.RSquared, 4)
		adj[i] = scalar.RoundEven(s.AdjRSquared, 4)
		aic[i] = scalar.RoundEven(s.AIC, 2)
		bic[i] = scalar.RoundEven(s.BIC, 2)
	}
	return dataframe.New(
		series.New(names, series.String, "Model"),
		series.New(formulas, series.String, "Formula"),
		series.New(nobs, series.Int, "N"),
		series.New(r2, series.Float, "R²"),
		series.New(adj, series.Float, "Adjusted R²"),
		series.New(aic, series.Float, "AIC"),
		series.New(bic, series.Float, "BIC"),
	)
}

// MarkdownTable は DataFrame をパイプ区切りの表にする
func MarkdownTable(df dataframe.DataFrame) string {
	var b strings.Builder
	names := df.Names()
	b.WriteString("| " + strings.Join(names, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(names)) + "\n")
	for i := 0; i < df.Nrow(); i++ {
		cells := make([]string, len(names))
		for j := range names {
			cells[j] = cellText(df.Elem(i, j))
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return b.String()
}

func cellText(e series.Element) string {
	switch e.Type() {
	case series.Float:
		v := e.Float()
		if e.IsNA() || math.IsNaN(v) {
			return "NaN"
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strings.ReplaceAll(e.String(), "|", "/")
	}
}
