package errors

import (
	"fmt"
	"math"
	"strings"
	"testing"
)

func TestNewModelError(t *testing.T) {
	tests := []struct {
		name    string
		op      string
		kind    string
		err     error
		wantMsg string
	}{
		{
			name:    "with original error",
			op:      "Fit",
			kind:    "rank-deficient design matrix",
			err:     ErrSingularMatrix,
			wantMsg: "soilph: Fit: rank-deficient design matrix: singular matrix",
		},
		{
			name:    "without original error",
			op:      "Predict",
			kind:    "no coefficients",
			err:     nil,
			wantMsg: "soilph: Predict: no coefficients",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewModelError(tt.op, tt.kind, tt.err)

			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}

			// スタックトレースの存在確認
			formatted := fmt.Sprintf("%+v", err)
			if !strings.Contains(formatted, "errors_test.go") {
				t.Error("Expected stack trace to contain test file name")
			}

			var modelErr *ModelError
			if !As(err, &modelErr) {
				t.Error("Error should be castable to *ModelError")
			}
			if tt.err != nil && !Is(err, tt.err) {
				t.Error("ModelError should unwrap to its cause")
			}
		})
	}
}

func TestNewSchemaError(t *testing.T) {
	tests := []struct {
		name    string
		column  string
		reason  string
		wantMsg string
	}{
		{
			name:    "with column",
			column:  "pH_reading",
			reason:  "column not found",
			wantMsg: "soilph: HandleMissingValues: schema error for column 'pH_reading': column not found",
		},
		{
			name:    "without column",
			column:  "",
			reason:  "formula has no '~'",
			wantMsg: "soilph: HandleMissingValues: schema error: formula has no '~'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewSchemaError("HandleMissingValues", tt.column, tt.reason)
			if err.Error() != tt.wantMsg {
				t.Errorf("Error() = %v, want %v", err.Error(), tt.wantMsg)
			}
			var schemaErr *SchemaError
			if !As(err, &schemaErr) {
				t.Fatal("Error should be castable to *SchemaError")
			}
			if schemaErr.Column != tt.column {
				t.Errorf("Column = %q, want %q", schemaErr.Column, tt.column)
			}
		})
	}
}

func TestNewInputError(t *testing.T) {
	err := NewInputError("Load", "data.parquet", "unsupported extension", ErrUnsupportedFormat)

	want := `soilph: Load: cannot read "data.parquet": unsupported extension: unsupported file format`
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	if !Is(err, ErrUnsupportedFormat) {
		t.Error("InputError should unwrap to ErrUnsupportedFormat")
	}
	var inputErr *InputError
	if !As(err, &inputErr) {
		t.Error("Error should be castable to *InputError")
	}
}

func TestNewDimensionError(t *testing.T) {
	err := NewDimensionError("CalculateVIF", 3, 2, 1)

	want := "soilph: CalculateVIF: dimension mismatch on axis 1 (features). Expected 3, got 2"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	var dimErr *DimensionError
	if !As(err, &dimErr) {
		t.Error("Error should be castable to *DimensionError")
	}
}

func TestNewValidationError(t *testing.T) {
	err := NewValidationError("confidence", "must be in (0, 1)", 1.5)

	want := "soilph: validation failed for parameter 'confidence': must be in (0, 1) (got: 1.5)"
	if err.Error() != want {
		t.Errorf("Error() = %v, want %v", err.Error(), want)
	}
	var valErr *ValidationError
	if !As(err, &valErr) {
		t.Error("Error should be castable to *ValidationError")
	}
}

func TestNumericalChecks(t *testing.T) {
	t.Run("scalar", func(t *testing.T) {
		if err := CheckScalar("r2", 0.5, 0); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		err := CheckScalar("r2", math.NaN(), 0)
		var numErr *NumericalInstabilityError
		if !As(err, &numErr) {
			t.Fatalf("expected NumericalInstabilityError, got %v", err)
		}
		if numErr.Operation != "r2" {
			t.Errorf("Operation = %q, want r2", numErr.Operation)
		}
	})

	t.Run("slice", func(t *testing.T) {
		if err := CheckNumericalStability("beta", []float64{1, 2, 3}, 0); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		err := CheckNumericalStability("beta", []float64{1, math.Inf(1), 2, math.NaN()}, 3)
		var numErr *NumericalInstabilityError
		if !As(err, &numErr) {
			t.Fatalf("expected NumericalInstabilityError, got %v", err)
		}
		if numErr.Context["position"] != 1 || numErr.Iteration != 3 || len(numErr.Values) != 2 {
			t.Errorf("got position=%v iteration=%d values=%v", numErr.Context["position"], numErr.Iteration, numErr.Values)
		}
	})

	t.Run("zero variance", func(t *testing.T) {
		if err := CheckVariance("vif", "years_planted", 2.5, 1); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		err := CheckVariance("vif", "years_planted", 0, 1)
		if !Is(err, ErrZeroVariance) {
			t.Errorf("expected ErrZeroVariance, got %v", err)
		}
		var numErr *NumericalInstabilityError
		if !As(err, &numErr) {
			t.Fatal("expected NumericalInstabilityError")
		}
		if numErr.Context["column"] != "years_planted" {
			t.Errorf("Context[column] = %v", numErr.Context["column"])
		}
	})
}

func TestWarn(t *testing.T) {
	var got []error
	SetWarningHandler(func(w error) { got = append(got, w) })
	defer SetWarningHandler(func(w error) {})

	Warn(NewUndefinedMetricWarning("vif", "perfect collinearity", math.Inf(1)))

	if len(got) != 1 {
		t.Fatalf("expected 1 warning, got %d", len(got))
	}
	if !strings.Contains(got[0].Error(), "vif is undefined (perfect collinearity); reported as +Inf") {
		t.Errorf("unexpected warning message: %v", got[0])
	}

	var routed []error
	SetZerologWarnFunc(func(w error) { routed = append(routed, w) })
	defer SetZerologWarnFunc(nil)

	Warn(NewDataConversionWarning("Crop", "indicators", "column has 1 level(s)"))
	if len(routed) != 1 || len(got) != 1 {
		t.Errorf("zerolog warn func should take precedence: routed=%d handler=%d", len(routed), len(got))
	}
}
