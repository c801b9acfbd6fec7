package linear

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// Prediction は1行分の予測
type Prediction struct {
	Mean        float64
	MeanSE      float64
	MeanCILower float64
	MeanCIUpper float64
	// ObsCILower / ObsCIUpper は新しい観測値の予測区間
	ObsCILower float64
	ObsCIUpper float64
}

// Predict は新しいデータの平均予測、平均の信頼区間、観測値の予測区間を返す。
//
// エラー:
//   - 参照列が無い: SchemaError
//   - 学習時に無かった水準、欠損値: ValueError
//   - confidence が (0,1) の外: ValidationError
func (m *Model) Predict(ds *dataset.Dataset, confidence float64) ([]Prediction, error) {
	if !(confidence > 0 && confidence < 1) {
		return nil, errors.NewValidationError("confidence", "must be in (0, 1)", confidence)
	}
	x, err := m.predictDesign(ds)
	if err != nil {
		return nil, err
	}

	n, p := x.Dims()
	beta := mat.NewVecDense(p, nil)
	for j, c := range m.coefs {
		beta.SetVec(j, c.Estimate)
	}
	q := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: m.summary.DfResid}.Quantile(1 - (1-confidence)/2)

	out := make([]Prediction, n)
	tmp := mat.NewVecDense(p, nil)
	for i := 0; i < n; i++ {
		row := x.RowView(i)
		mean := mat.Dot(row, beta)
		tmp.MulVec(m.cov, row)
		se := math.Sqrt(mat.Dot(row, tmp))
		obsSE := math.Sqrt(se*se + m.sigma2)
		out[i] = Prediction{
			Mean:        mean,
			MeanSE:      se,
			MeanCILower: mean - q*se,
			MeanCIUpper: mean + q*se,
			ObsCILower:  mean - q*obsSE,
			ObsCIUpper:  mean + q*obsSE,
		}
	}

	log.GetLoggerWithName("linear").Debug("Predicted",
		log.OperationKey, log.OperationPredict,
		log.SamplesKey, n,
	)
	return out, nil
}

// PredictMean は平均予測値だけを返す
func (m *Model) PredictMean(ds *dataset.Dataset) ([]float64, error) {
	preds, err := m.Predict(ds, m.summary.ConfidenceLevel)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(preds))
	for i, p := range preds {
		out[i] = p.Mean
	}
	return out, nil
}

func (m *Model) predictDesign(ds *dataset.Dataset) (*mat.Dense, error) {
	for _, t := range m.formula.Terms {
		if !ds.Has(t.Column) {
			return nil, errors.NewSchemaError("Predict", t.Column, "column required by the model not found")
		}
		miss, err := ds.Missing(t.Column)
		if err != nil {
			return nil, err
		}
		for i, v := range miss {
			if v {
				return nil, errors.NewValueError("Predict", fmt.Sprintf("missing value in column '%s' at row %d", t.Column, i))
			}
		}
	}
	return expand(ds, m.formula.Intercept, m.encodings, "Predict")
}
