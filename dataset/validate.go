package dataset

import (
	"fmt"
	"strings"

	"github.com/YuminosukeSato/soilph/pkg/errors"
)

// RequiredColumns are the columns the soil pH workflow expects.
var RequiredColumns = []string{
	"pH_reading", "Barangay", "Crop",
	"fertilizer_kg_ha", "years_planted", "lime_applied",
}

// ValidationReport describes the structure of a loaded dataset.
type ValidationReport struct {
	NRows           int
	NCols           int
	Columns         []string
	MissingRequired []string
}

// OK reports whether every required column is present.
func (r ValidationReport) OK() bool { return len(r.MissingRequired) == 0 }

// Validate checks the dataset against the required columns. A nil or empty
// required list means RequiredColumns.
func Validate(ds *Dataset, required []string) ValidationReport {
	if len(required) == 0 {
		required = RequiredColumns
	}
	report := ValidationReport{
		NRows:   ds.Nrow(),
		NCols:   ds.Ncol(),
		Columns: ds.Names(),
	}
	for _, col := range required {
		if !ds.Has(col) {
			report.MissingRequired = append(report.MissingRequired, col)
		}
	}
	return report
}

// RequireColumns returns a SchemaError naming the first missing column.
func RequireColumns(ds *Dataset, required []string) error {
	report := Validate(ds, required)
	if report.OK() {
		return nil
	}
	return errors.NewSchemaError("RequireColumns", report.MissingRequired[0],
		fmt.Sprintf("missing required columns: %s", strings.Join(report.MissingRequired, ", ")))
}

// ColumnSummary is the per-column part of Summary.
type ColumnSummary struct {
	Name       string
	Kind       Kind
	Missing    int
	MissingPct float64
}

// Summary is an overview of a dataset: size, column kinds and missingness.
type Summary struct {
	NObservations int
	NFeatures     int
	Columns       []ColumnSummary
}

// Summarize computes a Summary of the dataset.
func Summarize(ds *Dataset) Summary {
	s := Summary{NObservations: ds.Nrow(), NFeatures: ds.Ncol()}
	for _, name := range ds.Names() {
		kind, _ := ds.Kind(name)
		missing, _ := ds.MissingCount(name)
		pct := 0.0
		if ds.Nrow() > 0 {
			pct = float64(missing) / float64(ds.Nrow()) * 100
		}
		s.Columns = append(s.Columns, ColumnSummary{Name: name, Kind: kind, Missing: missing, MissingPct: pct})
	}
	return s
}

// Column returns the summary of one column.
func (s Summary) Column(name string) (ColumnSummary, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnSummary{}, false
}

// String renders the summary as a plain-text block.
func (s Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Observations: %d\n", s.NObservations)
	fmt.Fprintf(&b, "Variables: %d\n", s.NFeatures)
	fmt.Fprintf(&b, "%-20s %-12s %8s %8s\n", "Column", "Type", "Missing", "Pct")
	for _, c := range s.Columns {
		fmt.Fprintf(&b, "%-20s %-12s %8d %7.1f%%\n", c.Name, c.Kind, c.Missing, c.MissingPct)
	}
	return b.String()
}
