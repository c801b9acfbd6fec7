package preprocessing

import (
	"fmt"

	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// DefaultCategorical は参照符号化する既定の列
var DefaultCategorical = []string{"Crop", "Barangay"}

// IndicatorName は参照符号化で作られる列名 {col}_{level}
func IndicatorName(col, level string) string {
	return fmt.Sprintf("%s_%s", col, level)
}

// PrepareRegressionData はカテゴリ列を k-1 個の 0/1 列に展開した新しい Dataset を返す。
// ソート順（数値として読める水準は数値順）で最初の水準が参照水準として落とされる。
// 指標列名が既存の列と衝突する場合は SchemaError を返す。元の列は残す。
// カテゴリが欠損している行はすべての指標列が 0 になる。
func PrepareRegressionData(ds *dataset.Dataset, categorical ...string) (*dataset.Dataset, error) {
	if len(categorical) == 0 {
		categorical = DefaultCategorical
	}
	out := ds
	for _, col := range categorical {
		if !out.Has(col) {
			return nil, errors.NewSchemaError("PrepareRegressionData", col, "categorical column not found")
		}
		levels, err := out.Levels(col)
		if err != nil {
			return nil, err
		}
		values, err := out.Strings(col)
		if err != nil {
			return nil, err
		}
		if len(levels) < 2 {
			errors.Warn(errors.NewDataConversionWarning(col, "indicators",
				fmt.Sprintf("column has %d level(s); no indicator columns created", len(levels))))
			continue
		}
		for _, level := range levels[1:] {
			ind := make([]float64, len(values))
			for i, v := range values {
				if v == level {
					ind[i] = 1
				}
			}
			name := IndicatorName(col, level)
			if out.Has(name) {
				return nil, errors.NewSchemaError("PrepareRegressionData", name,
					fmt.Sprintf("indicator for level %q of %s collides with an existing column", level, col))
			}
			if out, err = out.WithFloat(name, ind); err != nil {
				return nil, err
			}
		}
		log.GetLoggerWithName("preprocessing").Debug("Categorical column encoded",
			log.OperationKey, log.OperationEncode,
			log.ColumnKey, col,
			log.CountKey, len(levels)-1,
		)
	}
	return out, nil
}
