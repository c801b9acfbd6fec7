// Package config は分析の設定を読み込みます。
//
// 優先順位は 環境変数 (SOILPH_ 接頭辞) > 設定ファイル (YAML) > 既定値 です。
// 入れ子のキーは環境変数では "_" で区切ります (例: SOILPH_OUTPUT_DIR)。
package config

import (
	"io"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/soilph/diagnostics"
	"github.com/YuminosukeSato/soilph/internal/fsutil"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
	"github.com/YuminosukeSato/soilph/preprocessing"
	"github.com/YuminosukeSato/soilph/report"
)

// EnvPrefix は環境変数の接頭辞
const EnvPrefix = "SOILPH"

// DefaultFileName はカレントディレクトリで探す設定ファイル名
const DefaultFileName = "soilph.yaml"

// Config は1回の分析の設定すべて
type Config struct {
	Data        DataConfig        `mapstructure:"data" yaml:"data"`
	Output      OutputConfig      `mapstructure:"output" yaml:"output"`
	Columns     ColumnsConfig     `mapstructure:"columns" yaml:"columns"`
	Models      []ModelSpec       `mapstructure:"models" yaml:"models"`
	Outliers    OutlierConfig     `mapstructure:"outliers" yaml:"outliers"`
	Diagnostics DiagnosticsConfig `mapstructure:"diagnostics" yaml:"diagnostics"`
	Report      ReportConfig      `mapstructure:"report" yaml:"report"`
	PDF         PDFConfig         `mapstructure:"pdf" yaml:"pdf"`
	Log         LogConfig         `mapstructure:"log" yaml:"log"`
}

// DataConfig は入力ファイル
type DataConfig struct {
	Path  string `mapstructure:"path" yaml:"path"`
	Sheet string `mapstructure:"sheet" yaml:"sheet"`
}

// OutputConfig は出力先と形式
type OutputConfig struct {
	Dir          string `mapstructure:"dir" yaml:"dir"`
	BaseName     string `mapstructure:"base_name" yaml:"base_name"`
	ExportFormat string `mapstructure:"export_format" yaml:"export_format"`
	Figures      bool   `mapstructure:"figures" yaml:"figures"`
	FigureFormat string `mapstructure:"figure_format" yaml:"figure_format"`
	FigureDPI    int    `mapstructure:"figure_dpi" yaml:"figure_dpi"`
}

// ColumnsConfig は列の役割
type ColumnsConfig struct {
	Required     []string `mapstructure:"required" yaml:"required"`
	Dependent    string   `mapstructure:"dependent" yaml:"dependent"`
	GroupImputed string   `mapstructure:"group_imputed" yaml:"group_imputed"`
	GroupBy      []string `mapstructure:"group_by" yaml:"group_by"`
	MeanImputed  []string `mapstructure:"mean_imputed" yaml:"mean_imputed"`
	Categorical  []string `mapstructure:"categorical" yaml:"categorical"`
}

// ModelSpec は推定するモデル式。先頭が主モデル。
type ModelSpec struct {
	Name    string `mapstructure:"name" yaml:"name"`
	Formula string `mapstructure:"formula" yaml:"formula"`
}

// OutlierConfig は外れ値検出
type OutlierConfig struct {
	Method    string   `mapstructure:"method" yaml:"method"`
	Threshold float64  `mapstructure:"threshold" yaml:"threshold"`
	Columns   []string `mapstructure:"columns" yaml:"columns"`
}

// DiagnosticsConfig は前提条件の検定
type DiagnosticsConfig struct {
	Normality            string  `mapstructure:"normality" yaml:"normality"`
	LegacyAndersonPValue bool    `mapstructure:"legacy_anderson_p_value" yaml:"legacy_anderson_p_value"`
	VIFThreshold         float64 `mapstructure:"vif_threshold" yaml:"vif_threshold"`
}

// ReportConfig は表と解釈文。Decimals は回帰係数表の桁数。
type ReportConfig struct {
	Decimals             int               `mapstructure:"decimals" yaml:"decimals"`
	ConfidenceLevel      float64           `mapstructure:"confidence_level" yaml:"confidence_level"`
	DescriptiveVariables []string          `mapstructure:"descriptive_variables" yaml:"descriptive_variables"`
	CorrelationVariables []string          `mapstructure:"correlation_variables" yaml:"correlation_variables"`
	GroupBy              string            `mapstructure:"group_by" yaml:"group_by"`
	CorrelationMethod    string            `mapstructure:"correlation_method" yaml:"correlation_method"`
	Labels               map[string]string `mapstructure:"labels" yaml:"labels"`
}

// PDFConfig は PDF の表紙
type PDFConfig struct {
	Enabled  bool     `mapstructure:"enabled" yaml:"enabled"`
	Title    string   `mapstructure:"title" yaml:"title"`
	Subtitle string   `mapstructure:"subtitle" yaml:"subtitle"`
	Author   string   `mapstructure:"author" yaml:"author"`
	Abstract string   `mapstructure:"abstract" yaml:"abstract"`
	Keywords []string `mapstructure:"keywords" yaml:"keywords"`
}

// LogConfig はログ出力
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// Default は既定の設定を返す
func Default() *Config {
	schema := preprocessing.DefaultSchema()
	numeric := []string{"pH_reading", "fertilizer_kg_ha", "years_planted", "lime_applied"}
	return &Config{
		Data: DataConfig{Path: "soil_data.csv"},
		Output: OutputConfig{
			Dir:          "output",
			BaseName:     "soil_ph",
			ExportFormat: "csv",
			Figures:      true,
			FigureFormat: "png",
			FigureDPI:    300,
		},
		Columns: ColumnsConfig{
			Required:     []string{"pH_reading", "Barangay", "Crop", "fertilizer_kg_ha", "years_planted", "lime_applied"},
			Dependent:    schema.Dependent,
			GroupImputed: schema.GroupImputed,
			GroupBy:      schema.GroupBy,
			MeanImputed:  schema.MeanImputed,
			Categorical:  []string{"Crop", "Barangay"},
		},
		Models: []ModelSpec{
			{Name: "Full Model", Formula: "pH_reading ~ fertilizer_kg_ha + years_planted + lime_applied + C(Crop) + C(Barangay)"},
			{Name: "Management Only", Formula: "pH_reading ~ fertilizer_kg_ha + years_planted + lime_applied"},
		},
		Outliers: OutlierConfig{
			Method:    "iqr",
			Threshold: preprocessing.DefaultOutlierThreshold,
			Columns:   []string{"pH_reading", "fertilizer_kg_ha", "years_planted"},
		},
		Diagnostics: DiagnosticsConfig{
			Normality:    "shapiro",
			VIFThreshold: diagnostics.DefaultVIFThreshold,
		},
		Report: ReportConfig{
			Decimals:             4,
			ConfidenceLevel:      0.95,
			DescriptiveVariables: numeric,
			CorrelationVariables: numeric,
			CorrelationMethod:    "pearson",
			Labels:               map[string]string{},
		},
		PDF: PDFConfig{
			Enabled: true,
			Title:   "Modeling Soil pH Levels Using Linear Regression",
		},
		Log: LogConfig{Level: "info", Format: "console"},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("data.path", d.Data.Path)
	v.SetDefault("data.sheet", d.Data.Sheet)

	v.SetDefault("output.dir", d.Output.Dir)
	v.SetDefault("output.base_name", d.Output.BaseName)
	v.SetDefault("output.export_format", d.Output.ExportFormat)
	v.SetDefault("output.figures", d.Output.Figures)
	v.SetDefault("output.figure_format", d.Output.FigureFormat)
	v.SetDefault("output.figure_dpi", d.Output.FigureDPI)

	v.SetDefault("columns.required", d.Columns.Required)
	v.SetDefault("columns.dependent", d.Columns.Dependent)
	v.SetDefault("columns.group_imputed", d.Columns.GroupImputed)
	v.SetDefault("columns.group_by", d.Columns.GroupBy)
	v.SetDefault("columns.mean_imputed", d.Columns.MeanImputed)
	v.SetDefault("columns.categorical", d.Columns.Categorical)

	models := make([]map[string]any, len(d.Models))
	for i, m := range d.Models {
		models[i] = map[string]any{"name": m.Name, "formula": m.Formula}
	}
	v.SetDefault("models", models)

	v.SetDefault("outliers.method", d.Outliers.Method)
	v.SetDefault("outliers.threshold", d.Outliers.Threshold)
	v.SetDefault("outliers.columns", d.Outliers.Columns)

	v.SetDefault("diagnostics.normality", d.Diagnostics.Normality)
	v.SetDefault("diagnostics.legacy_anderson_p_value", d.Diagnostics.LegacyAndersonPValue)
	v.SetDefault("diagnostics.vif_threshold", d.Diagnostics.VIFThreshold)

	v.SetDefault("report.decimals", d.Report.Decimals)
	v.SetDefault("report.confidence_level", d.Report.ConfidenceLevel)
	v.SetDefault("report.descriptive_variables", d.Report.DescriptiveVariables)
	v.SetDefault("report.correlation_variables", d.Report.CorrelationVariables)
	v.SetDefault("report.group_by", d.Report.GroupBy)
	v.SetDefault("report.correlation_method", d.Report.CorrelationMethod)
	v.SetDefault("report.labels", d.Report.Labels)

	v.SetDefault("pdf.enabled", d.PDF.Enabled)
	v.SetDefault("pdf.title", d.PDF.Title)
	v.SetDefault("pdf.subtitle", d.PDF.Subtitle)
	v.SetDefault("pdf.author", d.PDF.Author)
	v.SetDefault("pdf.abstract", d.PDF.Abstract)
	v.SetDefault("pdf.keywords", d.PDF.Keywords)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Load は設定を読み込んで検証する。path が空ならカレントディレクトリの
// soilph.yaml を探し、なければ既定値と環境変数だけを使う。
// 明示した path が読めない場合は InputError。
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.NewInputError("config.Load", path, "cannot read config file", err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, ".yaml"))
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.NewInputError("config.Load", DefaultFileName, "cannot read config file", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, errors.Wrap(err, "unmarshal config")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	log.GetLoggerWithName("config").Debug("Configuration loaded",
		log.PathKey, v.ConfigFileUsed(),
	)
	return &c, nil
}

// Save は設定を YAML として path に書き出す
func Save(c *Config, path string) error {
	b, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "marshal yaml")
	}
	return fsutil.AtomicWrite(path, func(w io.Writer) error {
		_, err := w.Write(b)
		return err
	})
}

// Validate は列挙値と数値の範囲を確かめる
func (c *Config) Validate() error {
	if _, err := report.ParseExportFormat(c.Output.ExportFormat); err != nil {
		return err
	}
	switch strings.ToLower(c.Output.FigureFormat) {
	case "png", "jpg", "jpeg", "tif", "tiff":
	default:
		return errors.NewValidationError("output.figure_format", "must be png, jpg or tiff", c.Output.FigureFormat)
	}
	if c.Output.FigureDPI <= 0 {
		return errors.NewValidationError("output.figure_dpi", "must be positive", c.Output.FigureDPI)
	}
	if c.Columns.Dependent == "" {
		return errors.NewValidationError("columns.dependent", "must not be empty", c.Columns.Dependent)
	}
	if len(c.Models) == 0 {
		return errors.NewValidationError("models", "at least one model formula is required", len(c.Models))
	}
	for i, m := range c.Models {
		if strings.TrimSpace(m.Formula) == "" {
			return errors.NewValidationError("models", "formula must not be empty", i)
		}
	}
	if _, err := preprocessing.ParseOutlierMethod(c.Outliers.Method); err != nil {
		return err
	}
	if c.Outliers.Threshold <= 0 {
		return errors.NewValidationError("outliers.threshold", "must be positive", c.Outliers.Threshold)
	}
	if _, err := diagnostics.ParseNormalityTest(c.Diagnostics.Normality); err != nil {
		return err
	}
	if c.Diagnostics.VIFThreshold <= 0 {
		return errors.NewValidationError("diagnostics.vif_threshold", "must be positive", c.Diagnostics.VIFThreshold)
	}
	if c.Report.Decimals < 0 || c.Report.Decimals > 10 {
		return errors.NewValidationError("report.decimals", "must be between 0 and 10", c.Report.Decimals)
	}
	if c.Report.ConfidenceLevel <= 0 || c.Report.ConfidenceLevel >= 1 {
		return errors.NewValidationError("report.confidence_level", "must be in (0, 1)", c.Report.ConfidenceLevel)
	}
	if _, err := report.ParseCorrelationMethod(c.Report.CorrelationMethod); err != nil {
		return err
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return errors.NewValidationError("log.format", "must be json or console", c.Log.Format)
	}
	return nil
}

// Schema は欠損値処理の列構成
func (c *Config) Schema() preprocessing.Schema {
	return preprocessing.Schema{
		Dependent:    c.Columns.Dependent,
		GroupImputed: c.Columns.GroupImputed,
		GroupBy:      append([]string(nil), c.Columns.GroupBy...),
		MeanImputed:  append([]string(nil), c.Columns.MeanImputed...),
	}
}
