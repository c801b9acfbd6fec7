package model

import (
	"encoding/json"
	"os"

	"github.com/YuminosukeSato/soilph/internal/fsutil"
	"github.com/YuminosukeSato/soilph/pkg/errors"
)

// WeightsVersion は ModelWeights の形式バージョン
const WeightsVersion = "1"

// ModelWeights は推定済みモデルの係数を表す構造体（シリアライゼーション用）
type ModelWeights struct {
	// ModelType はモデルの種類（"OLS"）
	ModelType string `json:"model_type"`

	// Version は形式のバージョン（互換性チェック用）
	Version string `json:"version"`

	// Formula は推定に使ったモデル式
	Formula string `json:"formula,omitempty"`

	// Coefficients は Features と同じ順序の係数
	Coefficients []float64 `json:"coefficients"`

	// StdErrors は係数の標準誤差
	StdErrors []float64 `json:"std_errors,omitempty"`

	// Intercept は切片
	Intercept float64 `json:"intercept"`

	// FitIntercept は切片を推定したかどうか
	FitIntercept bool `json:"fit_intercept"`

	// Features は設計行列の列名（切片を除く）
	Features []string `json:"features,omitempty"`

	// Fingerprint は推定に使ったデータのハッシュ
	Fingerprint string `json:"fingerprint,omitempty"`

	// Metadata は追加のメタデータ（R²、観測数など）
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON はModelWeightsをJSON形式にシリアライズ
func (mw *ModelWeights) ToJSON() ([]byte, error) {
	return json.MarshalIndent(mw, "", "  ")
}

// FromJSON はJSON形式からModelWeightsをデシリアライズ
func (mw *ModelWeights) FromJSON(data []byte) error {
	return json.Unmarshal(data, mw)
}

// Validate はModelWeightsの妥当性を検証
func (mw *ModelWeights) Validate() error {
	if mw.ModelType == "" {
		return errors.NewValidationError("model_type", "is required", mw.ModelType)
	}
	if mw.Version == "" {
		return errors.NewValidationError("version", "is required", mw.Version)
	}
	if len(mw.Features) != len(mw.Coefficients) {
		return errors.NewDimensionError("ModelWeights.Validate", len(mw.Features), len(mw.Coefficients), 1)
	}
	if len(mw.StdErrors) > 0 && len(mw.StdErrors) != len(mw.Coefficients)+boolToInt(mw.FitIntercept) {
		return errors.NewDimensionError("ModelWeights.Validate", len(mw.Coefficients)+boolToInt(mw.FitIntercept), len(mw.StdErrors), 1)
	}
	return nil
}

// Clone はModelWeightsのディープコピーを作成
func (mw *ModelWeights) Clone() *ModelWeights {
	clone := *mw
	clone.Coefficients = append([]float64(nil), mw.Coefficients...)
	clone.StdErrors = append([]float64(nil), mw.StdErrors...)
	clone.Features = append([]string(nil), mw.Features...)
	clone.Metadata = make(map[string]interface{}, len(mw.Metadata))
	for k, v := range mw.Metadata {
		clone.Metadata[k] = v
	}
	return &clone
}

// SaveJSON はModelWeightsをJSONファイルとしてアトミックに書き出す
func (mw *ModelWeights) SaveJSON(path string) error {
	if err := mw.Validate(); err != nil {
		return err
	}
	data, err := mw.ToJSON()
	if err != nil {
		return errors.Wrap(err, "marshal model weights")
	}
	return fsutil.AtomicWriteBytes(path, data)
}

// LoadWeightsJSON はJSONファイルからModelWeightsを読み込む
func LoadWeightsJSON(path string) (*ModelWeights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewInputError("LoadWeightsJSON", path, "cannot open file", err)
	}
	mw := &ModelWeights{}
	if err := mw.FromJSON(data); err != nil {
		return nil, errors.NewInputError("LoadWeightsJSON", path, "invalid JSON", err)
	}
	return mw, mw.Validate()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
