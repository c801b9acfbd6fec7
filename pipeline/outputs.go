package pipeline

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/soilph/config"
	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/diagnostics"
	"github.com/YuminosukeSato/soilph/document"
	"github.com/YuminosukeSato/soilph/internal/fsutil"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/plotting"
	"github.com/YuminosukeSato/soilph/preprocessing"
	"github.com/YuminosukeSato/soilph/report"
)

// plot は図をメモリ上に作るだけで、書き出しは export で行う
func (r *runner) plot() error {
	if !r.cfg.Output.Figures {
		return nil
	}
	primary := r.res.Primary()
	add := func(name, caption string, fig *plotting.Figure, err error) error {
		if err != nil {
			return errors.Wrap(err, name)
		}
		r.figures = append(r.figures, namedFigure{name: name, caption: caption, fig: fig})
		return nil
	}

	fig, err := plotting.ResidualDiagnostics(primary)
	if err := add("residual_diagnostics", "Regression diagnostics for the primary model", fig, err); err != nil {
		return err
	}
	fig, err = plotting.CorrelationHeatmap(r.res.Cleaned, r.cfg.Report.CorrelationVariables)
	if err := add("correlation_heatmap", "Correlation matrix of study variables", fig, err); err != nil {
		return err
	}
	fig, err = plotting.VariableDistributions(r.res.Cleaned, r.cfg.Report.DescriptiveVariables)
	if err := add("distributions", "Distributions of study variables", fig, err); err != nil {
		return err
	}
	f := primary.Formula()
	predictors := make([]string, 0, len(f.Terms))
	for _, t := range f.Terms {
		predictors = append(predictors, t.Column)
	}
	if len(predictors) > 0 {
		fig, err = plotting.PredictorEffects(r.res.Cleaned, f.Response, predictors)
		if err := add("predictor_effects", "Soil pH against each predictor", fig, err); err != nil {
			return err
		}
	}
	if len(r.res.Models) > 1 {
		named := make([]plotting.NamedModel, len(r.res.Models))
		for i, m := range r.res.Models {
			named[i] = plotting.NamedModel{Name: m.Name, Model: m.Model}
		}
		fig, err = plotting.ModelComparison(named)
		if err := add("model_comparison", "Goodness of fit across candidate models", fig, err); err != nil {
			return err
		}
	}
	return nil
}

// export は表、図、モデル係数、テキスト報告と markdown を書き出す
func (r *runner) export() error {
	format, err := report.ParseExportFormat(r.cfg.Output.ExportFormat)
	if err != nil {
		return err
	}
	base := r.basePath()
	paths, err := report.ExportTables(r.res.Tables, base, format)
	r.track(paths...)
	if err != nil {
		return err
	}
	r.res.Exports = paths

	ext := strings.ToLower(r.cfg.Output.FigureFormat)
	for _, nf := range r.figures {
		path := fmt.Sprintf("%s_%s.%s", base, nf.name, ext)
		if err := nf.fig.Save(path, r.cfg.Output.FigureDPI); err != nil {
			return err
		}
		r.track(path)
		r.res.Figures = append(r.res.Figures, report.Figure{Caption: nf.caption, Path: path})
	}

	r.res.WeightsPath = base + "_model.json"
	if err := r.res.Primary().Weights().SaveJSON(r.res.WeightsPath); err != nil {
		return err
	}
	r.track(r.res.WeightsPath)

	text := r.textReport()
	if err := fsutil.AtomicWriteBytes(base+"_report.txt", []byte(text)); err != nil {
		return err
	}
	r.track(base + "_report.txt")
	r.res.Exports = append(r.res.Exports, base+"_report.txt")

	r.res.Markdown = r.markdown()
	r.res.MarkdownPath = base + "_report.md"
	if err := fsutil.AtomicWriteBytes(r.res.MarkdownPath, []byte(r.res.Markdown)); err != nil {
		return err
	}
	r.track(r.res.MarkdownPath)
	return nil
}

// textReport はコンソール向けの報告をまとめる
func (r *runner) textReport() string {
	var b strings.Builder
	b.WriteString(r.res.Summary.String())
	b.WriteString("\n")
	b.WriteString(r.res.Audit.String())
	b.WriteString("\n")
	for _, o := range r.res.Outliers {
		b.WriteString(o.String() + "\n")
	}
	b.WriteString("\n")
	b.WriteString(r.res.Primary().Report())
	b.WriteString("\n")
	b.WriteString(diagnostics.GenerateReport(r.res.Assumptions))
	b.WriteString("\n\n")
	b.WriteString(r.res.ResultsText)
	b.WriteString("\n")
	return b.String()
}

func (r *runner) renderPDF() error {
	if !r.cfg.PDF.Enabled {
		return nil
	}
	pc := r.cfg.PDF
	opts := document.Options{
		Title:    pc.Title,
		Subtitle: pc.Subtitle,
		Author:   pc.Author,
		Abstract: pc.Abstract,
		Keywords: pc.Keywords,
		Metadata: []document.Field{
			{Label: "Run ID", Value: r.res.RunID},
			{Label: "Data Source", Value: r.cfg.Data.Path},
			{Label: "Sample Size", Value: fmt.Sprintf("N = %d observations", r.res.Primary().NObs())},
			{Label: "Statistical Method", Value: "Multiple Linear Regression (OLS)"},
			{Label: "Model", Value: r.res.Primary().Formula().String()},
		},
	}
	r.res.PDFPath = r.basePath() + "_report.pdf"
	if err := document.WriteFile(r.res.PDFPath, document.Parse(r.res.Markdown), opts); err != nil {
		return err
	}
	r.track(r.res.PDFPath)
	return nil
}

// Inspect は読み込み、検証、要約とクリーニング報告だけを行う。
// 必須列が欠けていてもエラーにせず報告に含める。
func Inspect(cfg *config.Config) (string, error) {
	ds, err := dataset.Load(cfg.Data.Path, dataset.LoadOptions{Sheet: cfg.Data.Sheet})
	if err != nil {
		return "", err
	}
	var b strings.Builder
	vr := dataset.Validate(ds, cfg.Columns.Required)
	fmt.Fprintf(&b, "File: %s\nRows: %d, Columns: %d\n", cfg.Data.Path, vr.NRows, vr.NCols)
	if vr.OK() {
		b.WriteString("All required columns present\n")
	} else {
		fmt.Fprintf(&b, "Missing required columns: %s\n", strings.Join(vr.MissingRequired, ", "))
	}
	b.WriteString("\n")
	b.WriteString(dataset.Summarize(ds).String())

	if !ds.Has(cfg.Columns.Dependent) {
		return b.String(), nil
	}
	cleaned, audit, err := preprocessing.HandleMissingValues(ds, cfg.Schema())
	if err != nil {
		return "", err
	}
	b.WriteString("\n")
	b.WriteString(audit.String())
	b.WriteString("\n")
	b.WriteString(preprocessing.CleaningReport(ds, cleaned))
	b.WriteString("\n")
	return b.String(), nil
}
