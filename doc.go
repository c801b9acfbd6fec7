// Package soilph models soil pH readings with ordinary least squares regression
// and produces the statistical report that goes with it.
//
// The pipeline loads a CSV or Excel file of field samples, applies a fixed
// missing-value policy, flags outliers, fits one or more regression formulas,
// checks the classical OLS assumptions and writes tables, figures, a markdown
// report and a PDF.
//
// # Installation
//
//	go install github.com/YuminosukeSato/soilph/cmd/soilph@latest
//
// # Command line
//
//	soilph config init soilph.yaml
//	soilph inspect --data soil_data.csv
//	soilph analyze --config soilph.yaml -o results
//	soilph fit -f "pH_reading ~ fertilizer_kg_ha + C(Crop)"
//
// # Library
//
//	ds, err := dataset.Load("soil_data.csv")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cleaned, audit, err := preprocessing.HandleMissingValues(ds, preprocessing.DefaultSchema())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(audit)
//
//	m, err := linear.Fit(cleaned, "pH_reading ~ fertilizer_kg_ha + years_planted + lime_applied + C(Crop)")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(m.Report())
//
//	res, err := diagnostics.Check(m, diagnostics.CheckOptions{VIFThreshold: 5})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(diagnostics.GenerateReport(res))
//
// # Packages
//
//   - dataset: tabular data loading (CSV, XLSX, XLS), validation and summaries
//   - preprocessing: missing-value policy, outlier detection, reference encoding
//   - linear: formula parsing and OLS estimation with inference statistics
//   - diagnostics: normality, multicollinearity, homoscedasticity and independence tests
//   - metrics: regression error metrics (MSE, RMSE, MAE, R²)
//   - report: descriptive statistics, correlation, tables, interpretation and markdown
//   - plotting: diagnostic and exploratory figures
//   - document: markdown to PDF rendering
//   - pipeline: the end-to-end analysis run
//   - config: YAML and environment configuration
//   - core/model: model interfaces and serializable weights
//   - pkg/errors, pkg/log: error types and structured logging
package soilph
