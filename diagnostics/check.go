package diagnostics

import (
	"github.com/YuminosukeSato/soilph/linear"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// CheckOptions は Check で実行する検定の設定
type CheckOptions struct {
	Normality    NormalityTest
	Legacy       bool
	VIFThreshold float64
}

// Check は推定済みモデルの残差と設計行列に4つの検定をすべて適用する。
// 説明変数が1つ以下のモデルでは多重共線性を省略する。
func Check(m *linear.Model, opts CheckOptions) (Results, error) {
	resid := m.Residuals()

	normality, err := TestNormality(resid, opts.Normality, NormalityOptions{LegacyAndersonPValue: opts.Legacy})
	if err != nil {
		return Results{}, err
	}
	results := Results{Normality: &normality}

	if names, X := m.DesignMatrix(); len(names) > 1 {
		mc, err := TestMulticollinearity(names, X, opts.VIFThreshold)
		if err != nil {
			return Results{}, err
		}
		results.Multicollinearity = &mc
	}

	homo, err := TestHomoscedasticity(resid, m.FittedValues())
	if err != nil {
		return Results{}, err
	}
	results.Homoscedasticity = &homo

	ind, err := TestIndependence(resid)
	if err != nil {
		return Results{}, err
	}
	results.Independence = &ind

	log.GetLoggerWithName("diagnostics").Info("Assumptions checked",
		log.OperationKey, log.OperationDiagnose,
		log.SamplesKey, len(resid),
		"all_passed", results.AllPassed(),
	)
	return results, nil
}
