package plotting

import (
	"fmt"
	"image/color"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/YuminosukeSato/soilph/core/model"
	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/diagnostics"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/report"
)

// HistogramBins は分布図のビン数
const HistogramBins = 20

var (
	referenceRed = color.RGBA{R: 214, G: 39, B: 40, A: 255}
	barBlue      = color.RGBA{R: 135, G: 206, B: 235, A: 255}
	dashes       = []vg.Length{vg.Points(6), vg.Points(4)}
)

// FittedModel は残差診断図に必要な推定結果。*linear.Model が満たす。
type FittedModel interface {
	Residuals() []float64
	FittedValues() []float64
	Actual() []float64
}

// NamedModel は比較図の1本の棒
type NamedModel struct {
	Name  string
	Model model.LinearModel
}

// ResidualDiagnostics は 2×2 の残差診断図を作る。
//
//	(1) 残差 vs 当てはめ値  (2) 正規 Q-Q
//	(3) 残差のヒストグラム  (4) 実測 vs 予測
func ResidualDiagnostics(m FittedModel) (*Figure, error) {
	resid := m.Residuals()
	fitted := m.FittedValues()
	actual := m.Actual()
	if len(resid) == 0 {
		return nil, errors.NewValueError("ResidualDiagnostics", "model has no residuals")
	}
	fig := newFigure("Regression Diagnostics", 2, 2, 14*vg.Inch, 10*vg.Inch)

	p, err := scatterPanel("(1) Residuals vs Fitted Values", "Fitted Values", "Residuals", fitted, resid)
	if err != nil {
		return nil, err
	}
	zero := plotter.NewFunction(func(float64) float64 { return 0 })
	styleReference(&zero.LineStyle)
	p.Add(zero)
	fig.set(0, p)

	theo, sample := diagnostics.QQPoints(resid)
	p, err = scatterPanel("(2) Q-Q Plot", "Theoretical Quantiles", "Ordered Residuals", theo, sample)
	if err != nil {
		return nil, err
	}
	// 標本の平均と標準偏差で引いた参照線
	mean, sd := stat.MeanStdDev(resid, nil)
	ref := plotter.NewFunction(func(x float64) float64 { return mean + sd*x })
	styleReference(&ref.LineStyle)
	p.Add(ref)
	fig.set(1, p)

	p, hist, err := histogramPanel("(3) Distribution of Residuals", "Residuals", resid)
	if err != nil {
		return nil, err
	}
	if hist != nil {
		top := 0.0
		for _, b := range hist.Bins {
			top = math.Max(top, b.Weight)
		}
		vline, err := plotter.NewLine(plotter.XYs{{X: 0, Y: 0}, {X: 0, Y: top}})
		if err != nil {
			return nil, err
		}
		styleReference(&vline.LineStyle)
		p.Add(vline)
	}
	fig.set(2, p)

	p, err = scatterPanel("(4) Actual vs Predicted", "Actual Values", "Predicted Values", actual, fitted)
	if err != nil {
		return nil, err
	}
	lo, hi := floats.Min(actual), floats.Max(actual)
	identity, err := plotter.NewLine(plotter.XYs{{X: lo, Y: lo}, {X: hi, Y: hi}})
	if err != nil {
		return nil, err
	}
	styleReference(&identity.LineStyle)
	p.Add(identity)
	p.Legend.Add("Perfect prediction", identity)
	p.Legend.Top = true
	p.Legend.Left = true
	fig.set(3, p)
	return fig, nil
}

// CorrelationHeatmap は Pearson 相関行列のヒートマップ。各セルに値を表示する。
func CorrelationHeatmap(ds *dataset.Dataset, variables []string) (*Figure, error) {
	df, err := report.CorrelationTable(ds, variables, report.Pearson)
	if err != nil {
		return nil, err
	}
	k := len(variables)
	grid := correlationGrid{n: k, z: make([]float64, k*k)}
	for j, v := range variables {
		col := df.Col(v).Float()
		for i := range col {
			grid.z[i*k+j] = col[i]
		}
	}

	cm := moreland.SmoothBlueRed()
	cm.SetMin(-1)
	cm.SetMax(1)
	cm.SetConvergePoint(0)
	heat := plotter.NewHeatMap(grid, cm.Palette(255))
	heat.Min, heat.Max = -1, 1

	p := plot.New()
	p.Title.Text = "Correlation Matrix of Variables"
	p.Add(heat)

	var labels plotter.XYLabels
	for i := 0; i < k; i++ {
		for j := 0; j < k; j++ {
			labels.XYs = append(labels.XYs, plotter.XY{X: grid.X(j), Y: grid.Y(k - 1 - i)})
			labels.Labels = append(labels.Labels, fmt.Sprintf("%.3f", grid.z[i*k+j]))
		}
	}
	text, err := plotter.NewLabels(labels)
	if err != nil {
		return nil, err
	}
	for i := range text.TextStyle {
		text.TextStyle[i].XAlign = draw.XCenter
		text.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(text)

	xticks := make(plot.ConstantTicks, k)
	yticks := make(plot.ConstantTicks, k)
	for i, v := range variables {
		xticks[i] = plot.Tick{Value: float64(i), Label: v}
		yticks[i] = plot.Tick{Value: float64(k - 1 - i), Label: v}
	}
	p.X.Tick.Marker = xticks
	p.Y.Tick.Marker = yticks
	p.X.Padding, p.Y.Padding = 0, 0

	bar := plot.New()
	bar.Title.Text = "Correlation"
	bar.HideX()
	bar.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})

	fig := newFigure("", 1, 1, 10*vg.Inch, 8*vg.Inch)
	fig.set(0, p)
	fig.sidebar = bar
	fig.sidebarWidth = 1.2 * vg.Inch
	return fig, nil
}

// correlationGrid は行 0 が先頭の変数になるよう上下を反転した相関行列
type correlationGrid struct {
	n int
	z []float64
}

func (g correlationGrid) Dims() (c, r int)   { return g.n, g.n }
func (g correlationGrid) Z(c, r int) float64 { return g.z[(g.n-1-r)*g.n+c] }
func (g correlationGrid) X(c int) float64    { return float64(c) }
func (g correlationGrid) Y(r int) float64    { return float64(r) }

// VariableDistributions は変数ごとのヒストグラムを3列の格子に並べる
func VariableDistributions(ds *dataset.Dataset, variables []string) (*Figure, error) {
	if len(variables) == 0 {
		return nil, errors.NewValueError("VariableDistributions", "no variables given")
	}
	rows := (len(variables) + GridColumns - 1) / GridColumns
	fig := newFigure("", rows, GridColumns, 14*vg.Inch, vg.Length(rows)*3*vg.Inch)
	for i, v := range variables {
		vals, err := ds.Float(v)
		if err != nil {
			return nil, err
		}
		p, _, err := histogramPanel("Distribution of "+v, v, dropNaN(vals))
		if err != nil {
			return nil, err
		}
		fig.set(i, p)
	}
	return fig, nil
}

// PredictorEffects は応答と各説明変数の散布図。数値の説明変数には最小二乗の傾向線を引き、
// カテゴリ変数は水準を等間隔に並べる。
func PredictorEffects(ds *dataset.Dataset, response string, predictors []string) (*Figure, error) {
	if len(predictors) == 0 {
		return nil, errors.NewValueError("PredictorEffects", "no predictors given")
	}
	y, err := ds.Float(response)
	if err != nil {
		return nil, err
	}
	rows := (len(predictors) + GridColumns - 1) / GridColumns
	fig := newFigure("", rows, GridColumns, 14*vg.Inch, vg.Length(rows)*3*vg.Inch)

	for i, pred := range predictors {
		kind, err := ds.Kind(pred)
		if err != nil {
			return nil, err
		}
		title := fmt.Sprintf("%s vs %s", response, pred)

		var p *plot.Plot
		if kind == dataset.Numeric {
			x, _ := ds.Float(pred)
			xs, ys := completePairs(x, y)
			p, err = scatterPanel(title, pred, response, xs, ys)
			if err != nil {
				return nil, err
			}
			if len(xs) >= 2 && stat.Variance(xs, nil) > 0 {
				alpha, beta := stat.LinearRegression(xs, ys, nil, false)
				trend := plotter.NewFunction(func(x float64) float64 { return alpha + beta*x })
				trend.XMin, trend.XMax = floats.Min(xs), floats.Max(xs)
				trend.Samples = 100
				trend.LineStyle.Color = referenceRed
				trend.LineStyle.Width = vg.Points(2)
				p.Add(trend)
				p.Legend.Add("Trend", trend)
				p.Legend.Top = true
			}
		} else {
			p, err = categoricalPanel(ds, title, pred, response, y)
			if err != nil {
				return nil, err
			}
		}
		fig.set(i, p)
	}
	return fig, nil
}

// ModelComparison はモデルごとの R² と調整済み R² を並べた棒グラフ
func ModelComparison(models []NamedModel) (*Figure, error) {
	if len(models) == 0 {
		return nil, errors.NewValueError("ModelComparison", "no models given")
	}
	names := make([]string, len(models))
	r2 := make(plotter.Values, len(models))
	adj := make(plotter.Values, len(models))
	for i, m := range models {
		names[i] = m.Name
		r2[i] = m.Model.RSquared()
		adj[i] = m.Model.AdjRSquared()
	}

	p := plot.New()
	p.Title.Text = "Model Comparison: Goodness of Fit"
	p.X.Label.Text = "Model"
	p.Y.Label.Text = "R² / Adjusted R²"
	p.Add(plotter.NewGrid())

	w := vg.Points(30)
	for i, vals := range []plotter.Values{r2, adj} {
		bars, err := plotter.NewBarChart(vals, w)
		if err != nil {
			return nil, err
		}
		bars.Color = plotutil.Color(i)
		bars.LineStyle.Width = 0
		bars.Offset = vg.Length(2*i-1) * w / 2
		p.Add(bars)
		p.Legend.Add([]string{"R²", "Adjusted R²"}[i], bars)
	}
	p.Legend.Top = true
	p.NominalX(names...)
	p.Y.Min, p.Y.Max = 0, 1

	fig := newFigure("", 1, 1, 10*vg.Inch, 6*vg.Inch)
	fig.set(0, p)
	return fig, nil
}

func scatterPanel(title, xlabel, ylabel string, x, y []float64) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())
	if len(x) == 0 {
		return p, nil
	}
	pts := make(plotter.XYs, len(x))
	for i := range x {
		pts[i].X, pts[i].Y = x[i], y[i]
	}
	s, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrapf(err, "scatter %s", title)
	}
	s.GlyphStyle.Color = plotutil.Color(0)
	s.GlyphStyle.Radius = vg.Points(2.5)
	s.GlyphStyle.Shape = draw.CircleGlyph{}
	p.Add(s)
	return p, nil
}

// histogramPanel は値が空ならヒストグラムなしのパネルを返す
func histogramPanel(title, xlabel string, vals []float64) (*plot.Plot, *plotter.Histogram, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = "Frequency"
	p.Add(plotter.NewGrid())
	if len(vals) == 0 {
		return p, nil, nil
	}
	h, err := plotter.NewHist(plotter.Values(vals), HistogramBins)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "histogram %s", title)
	}
	h.FillColor = barBlue
	h.LineStyle.Color = color.Black
	p.Add(h)
	return p, h, nil
}

func categoricalPanel(ds *dataset.Dataset, title, pred, response string, y []float64) (*plot.Plot, error) {
	levels, err := ds.Levels(pred)
	if err != nil {
		return nil, err
	}
	cats, err := ds.Strings(pred)
	if err != nil {
		return nil, err
	}
	pos := make(map[string]float64, len(levels))
	for i, l := range levels {
		pos[l] = float64(i)
	}
	var xs, ys []float64
	for i, c := range cats {
		x, ok := pos[c]
		if !ok || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y[i])
	}
	p, err := scatterPanel(title, pred, response, xs, ys)
	if err != nil {
		return nil, err
	}
	p.NominalX(levels...)
	return p, nil
}

func styleReference(ls *draw.LineStyle) {
	ls.Color = referenceRed
	ls.Width = vg.Points(2)
	ls.Dashes = dashes
}

func dropNaN(vals []float64) []float64 {
	out := make([]float64, 0, len(vals))
	for _, v := range vals {
		if !math.IsNaN(v) {
			out = append(out, v)
		}
	}
	return out
}

func completePairs(x, y []float64) (xs, ys []float64) {
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) {
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
	}
	return xs, ys
}
