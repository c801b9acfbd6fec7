package log

// Run and operation context.
const (
	// RunIDKey identifies one pipeline execution (uuid).
	RunIDKey = "run.id"

	// StageKey names the pipeline stage: "load", "clean", "fit", ...
	StageKey = "run.stage"

	// OperationKey specifies the operation being performed.
	OperationKey = "op"

	// ComponentKey identifies which package is performing the operation.
	// Examples: "dataset", "preprocessing", "linear", "diagnostics"
	ComponentKey = "component"

	// ModelNameKey names a fitted model ("primary", "with_location", ...).
	ModelNameKey = "model.name"

	// FormulaKey carries the model formula text.
	FormulaKey = "model.formula"

	// FingerprintKey carries the design snapshot fingerprint of a model.
	FingerprintKey = "model.fingerprint"
)

// Data shape.
const (
	// SamplesKey indicates the number of rows being processed.
	SamplesKey = "data.samples"

	// FeaturesKey indicates the number of columns or predictors.
	FeaturesKey = "data.features"

	// ColumnKey names a single column.
	ColumnKey = "data.column"

	// PathKey is the file being read or written.
	PathKey = "data.path"

	// FormatKey is the file format ("csv", "xlsx", "xls", "png", "pdf").
	FormatKey = "data.format"

	// RowsRemovedKey counts rows dropped during cleaning.
	RowsRemovedKey = "data.rows_removed"

	// MissingKey counts missing cells in a column.
	MissingKey = "data.missing"
)

// Statistics.
const (
	// R2ScoreKey records R² of a fitted model.
	R2ScoreKey = "stats.r2"

	// AdjR2Key records adjusted R².
	AdjR2Key = "stats.adj_r2"

	// StatisticKey records the value of a test statistic.
	StatisticKey = "stats.statistic"

	// PValueKey records a p-value.
	PValueKey = "stats.p_value"

	// TestKey names a diagnostic test.
	TestKey = "stats.test"

	// ThresholdKey records a decision threshold (outlier multiplier, VIF cutoff).
	ThresholdKey = "stats.threshold"

	// CountKey records a generic count (outliers, flagged predictors).
	CountKey = "stats.count"

	// DurationMsKey records the execution time of an operation in milliseconds.
	DurationMsKey = "perf.duration_ms"
)

// Error context.
const (
	// ErrorTypeKey categorizes the type of error encountered.
	ErrorTypeKey = "error.type"

	// SuggestionKey provides a hint for resolving an issue.
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationLoad      = "load"
	OperationValidate  = "validate"
	OperationClean     = "clean"
	OperationOutliers  = "outliers"
	OperationEncode    = "encode"
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationDiagnose  = "diagnose"
	OperationReport    = "report"
	OperationExport    = "export"
	OperationPlot      = "plot"
	OperationRenderPDF = "render_pdf"
)
