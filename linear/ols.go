// Package linear は通常最小二乗法（OLS）による重回帰をモデル式から推定します。
//
// 推定は QR 分解で行い、設計行列のランクは特異値で確認します。
// 推定結果の Model は不変で、すべてのアクセサはコピーを返します。
//
//	m, err := linear.Fit(ds, "pH_reading ~ fertilizer_kg_ha + years_planted + C(Crop)")
//	s := m.Summary()
package linear

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/YuminosukeSato/soilph/core/model"
	"github.com/YuminosukeSato/soilph/dataset"
	"github.com/YuminosukeSato/soilph/pkg/errors"
	"github.com/YuminosukeSato/soilph/pkg/log"
)

// OLS は model.Fitter の実装。オプションはすべての推定に適用される。
type OLS struct {
	opts []Option
}

var _ model.Fitter = (*OLS)(nil)

// NewOLS は新しい OLS Fitter を作成する
func NewOLS(opts ...Option) *OLS {
	return &OLS{opts: opts}
}

// Fit はモデル式を解析して推定する
func (o *OLS) Fit(ds *dataset.Dataset, formula string) (model.LinearModel, error) {
	return Fit(ds, formula, o.opts...)
}

// Fit はモデル式の文字列を解析して OLS 推定を行う
func Fit(ds *dataset.Dataset, formula string, opts ...Option) (*Model, error) {
	f, err := ParseFormula(formula)
	if err != nil {
		return nil, err
	}
	return FitFormula(ds, f, opts...)
}

// FitFormula は解析済みのモデル式で OLS 推定を行う。
//
// エラー:
//   - 参照列が無い: SchemaError
//   - 観測数がパラメータ数以下: ValueError
//   - ランク落ち: ModelError (ErrSingularMatrix)
//   - 統計量が非有限: NumericalInstabilityError
func FitFormula(ds *dataset.Dataset, f Formula, opts ...Option) (*Model, error) {
	cfg := defaultFitConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if !(cfg.confidence > 0 && cfg.confidence < 1) {
		return nil, errors.NewValidationError("confidence_level", "must be in (0, 1)", cfg.confidence)
	}
	if !cfg.fitIntercept {
		f.Intercept = false
	}

	logger := log.GetLoggerWithName("linear").With(log.FormulaKey, f.String())

	d, err := buildDesign(ds, f)
	if err != nil {
		return nil, err
	}
	n, p := d.x.Dims()
	if n <= p {
		return nil, errors.NewValueError("Fit",
			fmt.Sprintf("%d complete observations for %d parameters; need more observations than parameters", n, p))
	}

	var m *Model
	err = errors.SafeExecute("linear.Fit", func() error {
		var ferr error
		m, ferr = solve(d, f, cfg)
		return ferr
	})
	if err != nil {
		logger.Error("OLS fit failed", err)
		return nil, err
	}

	logger.Debug("OLS fitted",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, m.summary.NObs,
		log.FeaturesKey, m.summary.NParams,
		log.R2ScoreKey, m.summary.RSquared,
		log.AdjR2Key, m.summary.AdjRSquared,
		log.FingerprintKey, m.fingerprint,
	)
	return m, nil
}

func solve(d *design, f Formula, cfg fitConfig) (*Model, error) {
	x := d.x
	n, p := x.Dims()

	var svd mat.SVD
	if ok := svd.Factorize(x, mat.SVDNone); !ok {
		return nil, errors.NewModelError("Fit", "SVD factorization failed", errors.ErrSingularMatrix)
	}
	tol := cfg.tol
	if tol <= 0 {
		tol = float64(max(n, p)) * 2.220446049250313e-16
	}
	if rank := svd.Rank(tol); rank < p {
		return nil, errors.NewModelError("Fit",
			fmt.Sprintf("design matrix is rank deficient (rank %d < %d columns)", rank, p), errors.ErrSingularMatrix)
	}
	sv := svd.Values(nil)

	yv := mat.NewVecDense(n, append([]float64(nil), d.y...))
	var qr mat.QR
	qr.Factorize(x)
	beta := mat.NewVecDense(p, nil)
	if err := qr.SolveVecTo(beta, false, yv); err != nil {
		return nil, errors.NewModelError("Fit", "QR solve failed", errors.ErrSingularMatrix)
	}

	fittedV := mat.NewVecDense(n, nil)
	fittedV.MulVec(x, beta)
	fitted := fittedV.RawVector().Data
	resid := make([]float64, n)
	ssr := 0.0
	for i := range resid {
		resid[i] = d.y[i] - fitted[i]
		ssr += resid[i] * resid[i]
	}

	tss := 0.0
	if f.Intercept {
		mean := 0.0
		for _, v := range d.y {
			mean += v
		}
		mean /= float64(n)
		for _, v := range d.y {
			tss += (v - mean) * (v - mean)
		}
	} else {
		for _, v := range d.y {
			tss += v * v
		}
	}
	if tss == 0 {
		return nil, errors.NewNumericalInstabilityError("Fit", []float64{tss}, 0)
	}

	var xtx mat.SymDense
	xtx.SymOuterK(1, x.T())
	var chol mat.Cholesky
	if ok := chol.Factorize(&xtx); !ok {
		return nil, errors.NewModelError("Fit", "X'X is not positive definite", errors.ErrSingularMatrix)
	}
	var xtxInv mat.SymDense
	if err := chol.InverseTo(&xtxInv); err != nil {
		return nil, errors.NewModelError("Fit", "cannot invert X'X", errors.ErrSingularMatrix)
	}

	dfResid := float64(n - p)
	kConst := 0.0
	if f.Intercept {
		kConst = 1
	}
	dfModel := float64(p) - kConst
	sigma2 := ssr / dfResid

	cov := mat.NewDense(p, p, nil)
	cov.Scale(sigma2, &xtxInv)

	tDist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: dfResid}
	q := tDist.Quantile(1 - (1-cfg.confidence)/2)
	coefs := make([]Coefficient, p)
	for j := 0; j < p; j++ {
		b := beta.AtVec(j)
		se := math.Sqrt(cov.At(j, j))
		t := b / se
		coefs[j] = Coefficient{
			Name:     d.names[j],
			Estimate: b,
			StdError: se,
			TValue:   t,
			PValue:   2 * tDist.Survival(math.Abs(t)),
			CILower:  b - q*se,
			CIUpper:  b + q*se,
		}
	}

	nf := float64(n)
	r2 := 1 - ssr/tss
	adj := 1 - (nf-kConst)/dfResid*(1-r2)
	fStat, fP := math.NaN(), math.NaN()
	if dfModel > 0 {
		fStat = ((tss - ssr) / dfModel) / sigma2
		fP = distuv.F{D1: dfModel, D2: dfResid}.Survival(fStat)
	}
	llf := -nf / 2 * (math.Log(2*math.Pi) + math.Log(ssr/nf) + 1)
	k := float64(p)

	summary := Summary{
		Formula:         f.String(),
		NObs:            n,
		NParams:         p,
		DfResid:         dfResid,
		DfModel:         dfModel,
		RSquared:        r2,
		AdjRSquared:     adj,
		FStatistic:      fStat,
		FPValue:         fP,
		LogLikelihood:   llf,
		AIC:             -2*llf + 2*k,
		BIC:             -2*llf + k*math.Log(nf),
		ConditionNumber: sv[0] / sv[len(sv)-1],
		ConfidenceLevel: cfg.confidence,
		Intercept:       f.Intercept,
	}
	check := []float64{r2, llf, summary.AIC, summary.BIC}
	for _, c := range coefs {
		check = append(check, c.Estimate, c.StdError)
	}
	if err := errors.CheckNumericalStability("Fit", check, 0); err != nil {
		return nil, err
	}

	return &Model{
		formula:     f,
		encodings:   d.encodings,
		names:       d.names,
		x:           mat.DenseCopyOf(x),
		y:           append([]float64(nil), d.y...),
		rows:        d.rows,
		coefs:       coefs,
		cov:         cov,
		xtxInv:      mat.DenseCopyOf(&xtxInv),
		fitted:      fitted,
		resid:       resid,
		sigma2:      sigma2,
		summary:     summary,
		fingerprint: fingerprint(d),
	}, nil
}

// fingerprint は設計行列と応答の xxhash
func fingerprint(d *design) string {
	h := xxhash.New()
	for _, name := range d.names {
		_, _ = h.WriteString(name)
		_, _ = h.Write([]byte{0})
	}
	buf := make([]byte, 0, 8*(len(d.y)+1))
	for _, v := range d.x.RawMatrix().Data {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	for _, v := range d.y {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(v))
	}
	_, _ = h.Write(buf)
	return fmt.Sprintf("%016x", h.Sum64())
}
