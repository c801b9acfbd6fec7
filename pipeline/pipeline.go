// Package pipeline は読み込みから PDF までの分析を1回の実行としてつなぎます。
//
// 段階は順に実行され、どこかで失敗すると実行全体がそのエラーで終わります。
// キャンセルは段階の境目でだけ確認します。
package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/soilph/config"
	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/diagnostics"
	"github.com/YuminosukeSato/soilph/linear"
	"github.com/YuminosukeSato/soilph/metrics"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
	"github.com/YuminosukeSato/soilph/plotting"
	"github.com/YuminosukeSato/soilph/preprocessing"
	"github.com/YuminosukeSato/soilph/report"
)

// 段階名
const (
	StageLoad      = "load"
	StageValidate  = "validate"
	StageClean     = "clean"
	StageOutliers  = "outliers"
	StageEncode    = "encode"
	StageFit       = "fit"
	StageDiagnose  = "diagnose"
	StageReport    = "report"
	StagePlot      = "plot"
	StageExport    = "export"
	StageRenderPDF = "render_pdf"
)

// Result は1回の実行の成果物
type Result struct {
	RunID string

	Raw      *dataset.Dataset
	Summary  dataset.Summary
	Cleaned  *dataset.Dataset
	Encoded  *dataset.Dataset
	Audit    *preprocessing.Audit
	Outliers []preprocessing.OutlierReport

	// Models は設定順の推定結果。先頭が主モデル。
	Models      []report.NamedModel
	Assumptions diagnostics.Results
	Scores      metrics.Scores

	Tables         []report.NamedTable
	Interpretation []string
	ResultsText    string
	Markdown       string

	// 書き出したファイル
	Exports      []string
	Figures      []report.Figure
	WeightsPath  string
	MarkdownPath string
	PDFPath      string
}

// Primary は主モデル
func (r *Result) Primary() *linear.Model {
	if len(r.Models) == 0 {
		return nil
	}
	return r.Models[0].Model
}

type runner struct {
	cfg    *config.Config
	res    *Result
	logger log.Logger

	figures []namedFigure
	// written は今回の実行で書き出したファイル。失敗時に消す。
	written []string
}

type namedFigure struct {
	name    string
	caption string
	fig     *plotting.Figure
}

// Run は設定どおりに分析を実行する
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	id := uuid.New().String()
	r := &runner{
		cfg:    cfg,
		res:    &Result{RunID: id},
		logger: log.GetLoggerWithName("pipeline").With(log.RunIDKey, id),
	}
	r.logger.Info("Run started", log.PathKey, cfg.Data.Path)

	stages := []struct {
		name string
		fn   func() error
	}{
		{StageLoad, r.load},
		{StageValidate, r.validate},
		{StageClean, r.clean},
		{StageOutliers, r.outliers},
		{StageEncode, r.encode},
		{StageFit, r.fit},
		{StageDiagnose, r.diagnose},
		{StageReport, r.report},
		{StagePlot, r.plot},
		{StageExport, r.export},
		{StageRenderPDF, r.renderPDF},
	}
	start := time.Now()
	for _, s := range stages {
		if err := ctx.Err(); err != nil {
			r.discard()
			return nil, errors.Wrapf(err, "run %s cancelled before %s", id, s.name)
		}
		t := time.Now()
		if err := s.fn(); err != nil {
			err = errors.Wrapf(err, "stage %s", s.name)
			slog.Error("Stage failed", log.ErrAttr(err), log.RunIDKey, id, log.StageKey, s.name)
			r.discard()
			return nil, err
		}
		r.logger.Info("Stage completed",
			log.StageKey, s.name,
			log.DurationMsKey, time.Since(t).Milliseconds(),
		)
	}
	r.logger.Info("Run completed",
		log.DurationMsKey, time.Since(start).Milliseconds(),
		log.CountKey, len(r.res.Exports)+len(r.res.Figures),
	)
	return r.res, nil
}

// track は書き出し済みのファイルを記録する
func (r *runner) track(paths ...string) {
	r.written = append(r.written, paths...)
}

// discard は失敗した実行が書き出したファイルを消し、古い報告と混ざらないようにする
func (r *runner) discard() {
	for _, path := range r.written {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.logger.Warn("Could not remove partial output", err, log.PathKey, path)
		}
	}
	if len(r.written) > 0 {
		r.logger.Info("Partial outputs removed", log.CountKey, len(r.written))
	}
	r.written = nil
}

func (r *runner) basePath() string {
	return filepath.Join(r.cfg.Output.Dir, r.cfg.Output.BaseName)
}

func (r *runner) load() error {
	ds, err := dataset.Load(r.cfg.Data.Path, dataset.LoadOptions{Sheet: r.cfg.Data.Sheet})
	if err != nil {
		return err
	}
	r.res.Raw = ds
	return nil
}

func (r *runner) validate() error {
	if err := dataset.RequireColumns(r.res.Raw, r.cfg.Columns.Required); err != nil {
		return err
	}
	r.res.Summary = dataset.Summarize(r.res.Raw)
	r.logger.Debug("Dataset summary", "summary", r.res.Summary.String())
	return nil
}

func (r *runner) clean() error {
	cleaned, audit, err := preprocessing.HandleMissingValues(r.res.Raw, r.cfg.Schema())
	if err != nil {
		return err
	}
	r.res.Cleaned, r.res.Audit = cleaned, audit
	r.logger.Debug("Cleaning report", "report", preprocessing.CleaningReport(r.res.Raw, cleaned))
	return nil
}

func (r *runner) outliers() error {
	method, err := preprocessing.ParseOutlierMethod(r.cfg.Outliers.Method)
	if err != nil {
		return err
	}
	for _, col := range r.cfg.Outliers.Columns {
		rep, err := preprocessing.DetectOutliers(r.res.Cleaned, col, method, r.cfg.Outliers.Threshold)
		if err != nil {
			return err
		}
		r.res.Outliers = append(r.res.Outliers, rep)
	}
	return nil
}

func (r *runner) encode() error {
	encoded, err := preprocessing.PrepareRegressionData(r.res.Cleaned, r.cfg.Columns.Categorical...)
	if err != nil {
		return err
	}
	r.res.Encoded = encoded
	return nil
}

func (r *runner) fit() error {
	for _, spec := range r.cfg.Models {
		m, err := linear.Fit(r.res.Encoded, spec.Formula, linear.WithConfidenceLevel(r.cfg.Report.ConfidenceLevel))
		if err != nil {
			return errors.Wrapf(err, "model %q", spec.Name)
		}
		r.res.Models = append(r.res.Models, report.NamedModel{Name: spec.Name, Model: m})
	}
	primary := r.res.Primary()
	scores, err := metrics.Evaluate(primary.Actual(), primary.FittedValues())
	if err != nil {
		return err
	}
	r.res.Scores = scores
	return nil
}

func (r *runner) diagnose() error {
	test, err := diagnostics.ParseNormalityTest(r.cfg.Diagnostics.Normality)
	if err != nil {
		return err
	}
	results, err := diagnostics.Check(r.res.Primary(), diagnostics.CheckOptions{
		Normality:    test,
		Legacy:       r.cfg.Diagnostics.LegacyAndersonPValue,
		VIFThreshold: r.cfg.Diagnostics.VIFThreshold,
	})
	if err != nil {
		return err
	}
	r.res.Assumptions = results
	return nil
}

func (r *runner) report() error {
	cfg := r.cfg.Report
	primary := r.res.Primary()

	descriptive, err := report.DescriptiveStats(r.res.Cleaned, cfg.DescriptiveVariables, cfg.GroupBy)
	if err != nil {
		return err
	}
	method, err := report.ParseCorrelationMethod(cfg.CorrelationMethod)
	if err != nil {
		return err
	}
	correlation, err := report.CorrelationTable(r.res.Cleaned, cfg.CorrelationVariables, method)
	if err != nil {
		return err
	}

	tables := []report.NamedTable{
		{Name: "descriptive", Frame: descriptive},
		{Name: "correlation", Frame: correlation},
		{Name: "regression", Frame: report.RegressionSummaryTable(primary, cfg.Decimals)},
		{Name: "model_fit", Frame: report.ModelFitTable(primary.Summary())},
	}
	if mc := r.res.Assumptions.Multicollinearity; mc != nil {
		tables = append(tables, report.NamedTable{Name: "vif", Frame: report.VIFFrame(mc.VIF)})
	}
	if len(r.res.Models) > 1 {
		tables = append(tables, report.NamedTable{Name: "comparison", Frame: report.ComparisonTable(r.res.Models)})
	}
	r.res.Tables = tables

	r.res.Interpretation = report.InterpretationLines(primary, cfg.Labels)
	text, err := report.ResultsSummary(primary, primary.Actual(), primary.FittedValues())
	if err != nil {
		return err
	}
	r.res.ResultsText = text
	return nil
}

// markdown は図のパスが決まってから組み立てる
func (r *runner) markdown() string {
	doc := report.Document{
		Title:       r.cfg.PDF.Title,
		Subtitle:    r.cfg.PDF.Subtitle,
		Audit:       r.res.Audit,
		Outliers:    r.res.Outliers,
		Descriptive: &r.res.Tables[0],
		Correlation: &r.res.Tables[1],
		Model:       r.res.Primary(),
		Decimals:    r.cfg.Report.Decimals,
		Labels:      r.cfg.Report.Labels,
		Assumptions: &r.res.Assumptions,
		Scores:      &r.res.Scores,
		Figures:     r.res.Figures,
	}
	if len(r.res.Models) > 1 {
		doc.Comparison = r.res.Models
	}
	return report.Markdown(doc)
}
