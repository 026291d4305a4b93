package preprocessing

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// ZeroVarianceTolerance 以下の標準偏差は分散0とみなす
const ZeroVarianceTolerance = 1e-8

// ZeroVariancePolicy は訓練データで分散0の特徴量をどう扱うかを決める
type ZeroVariancePolicy string

const (
	// ZeroVarianceReject は分散0の特徴量を DataError として拒否する（デフォルト）
	ZeroVarianceReject ZeroVariancePolicy = "reject"
	// ZeroVarianceIdentity は分散0の特徴量を scale=1 で残し、警告を出す
	ZeroVarianceIdentity ZeroVariancePolicy = "identity"
)

// ParseZeroVariancePolicy は設定文字列をポリシーに変換する
func ParseZeroVariancePolicy(s string) (ZeroVariancePolicy, error) {
	switch ZeroVariancePolicy(s) {
	case "", ZeroVarianceReject:
		return ZeroVarianceReject, nil
	case ZeroVarianceIdentity:
		return ZeroVarianceIdentity, nil
	default:
		return "", errors.NewValidationError("zero_variance", "must be 'reject' or 'identity'", s)
	}
}

// StandardScaler は特徴量を平均0、標準偏差1に変換する z-score スケーラー
//
// 平均と標準偏差は Fit に渡した訓練データだけから学習し、
// 以降の Transform では再学習せずに同じパラメータを適用する。
// 標準偏差は母標準偏差（n で割る）を使う。
type StandardScaler struct {
	model.BaseEstimator

	// Mean は各特徴量の平均値
	Mean []float64

	// Scale は各特徴量の標準偏差（分散0を identity で扱った列は 1）
	Scale []float64

	// NFeatures は特徴量の数
	NFeatures int

	// FeatureNames は列名。エラーと警告の列名表示に使う（省略可）
	FeatureNames []string

	// Policy は分散0の特徴量の扱い
	Policy ZeroVariancePolicy

	// warnings は直近の Fit で発生した警告（永続化しない）
	warnings []error
}

// NewStandardScaler は新しいStandardScalerを作成する
//
// 使用例:
//
//	scaler := preprocessing.NewStandardScaler(preprocessing.ZeroVarianceReject, names)
//	XTrainScaled, err := scaler.FitTransform(XTrain)
//	XTestScaled, err := scaler.Transform(XTest)
func NewStandardScaler(policy ZeroVariancePolicy, featureNames []string) *StandardScaler {
	if policy == "" {
		policy = ZeroVarianceReject
	}
	return &StandardScaler{
		Policy:       policy,
		FeatureNames: featureNames,
	}
}

// Fit は訓練データから統計情報（平均、標準偏差）を計算する
//
// ZeroVarianceReject では分散0の列をすべて列挙した DataError を返し、
// スケーラーは未学習のまま残る。
func (s *StandardScaler) Fit(X mat.Matrix) error {
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return errors.NewDataError("scale", errors.ErrEmptyData.Error())
	}
	if s.FeatureNames != nil && len(s.FeatureNames) != c {
		return errors.NewDimensionError("StandardScaler.Fit", len(s.FeatureNames), c, 1)
	}

	mean := make([]float64, c)
	scale := make([]float64, c)
	var constant []string

	for j := 0; j < c; j++ {
		sum := 0.0
		for i := 0; i < r; i++ {
			sum += X.At(i, j)
		}
		mean[j] = sum / float64(r)

		sumSquares := 0.0
		for i := 0; i < r; i++ {
			diff := X.At(i, j) - mean[j]
			sumSquares += diff * diff
		}
		scale[j] = math.Sqrt(sumSquares / float64(r))

		if scale[j] < ZeroVarianceTolerance {
			constant = append(constant, s.featureName(j))
			scale[j] = 1.0
		}
	}

	var warnings []error
	if len(constant) > 0 {
		if s.Policy != ZeroVarianceIdentity {
			return errors.NewDataError("scale", "feature has zero variance in the training partition", constant...)
		}
		for _, name := range constant {
			warnings = append(warnings, errors.NewZeroVarianceWarning(name))
		}
	}

	s.Mean = mean
	s.Scale = scale
	s.NFeatures = c
	s.warnings = warnings
	s.SetFitted()
	return nil
}

// Warnings は直近の Fit で発生した警告を返す。
// 呼び出し元がロガーへ流すことを想定している。
func (s *StandardScaler) Warnings() []error {
	return append([]error(nil), s.warnings...)
}

// Transform は学習済みの統計情報を使ってデータを標準化する
func (s *StandardScaler) Transform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, (X.At(i, j)-s.Mean[j])/s.Scale[j])
		}
	}
	return result, nil
}

// FitTransform は訓練データで学習し、同じデータを変換する
func (s *StandardScaler) FitTransform(X mat.Matrix) (mat.Matrix, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// InverseTransform は標準化されたデータを元のスケールに戻す
func (s *StandardScaler) InverseTransform(X mat.Matrix) (mat.Matrix, error) {
	if !s.IsFitted() {
		return nil, errors.NewNotFittedError("StandardScaler", "InverseTransform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, errors.NewDimensionError("StandardScaler.InverseTransform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			result.Set(i, j, X.At(i, j)*s.Scale[j]+s.Mean[j])
		}
	}
	return result, nil
}

// TransformRecord は特徴量名→値のマップを学習時の列順で1行の行列に変換し、標準化する
func (s *StandardScaler) TransformRecord(record map[string]float64) (mat.Matrix, error) {
	if len(s.FeatureNames) == 0 {
		return nil, errors.NewValueError("StandardScaler.TransformRecord", "scaler was fitted without feature names")
	}
	row := make([]float64, len(s.FeatureNames))
	for j, name := range s.FeatureNames {
		v, ok := record[name]
		if !ok {
			return nil, errors.NewDataError("scale", "feature missing from record", name)
		}
		row[j] = v
	}
	return s.Transform(mat.NewDense(1, len(row), row))
}

func (s *StandardScaler) featureName(j int) string {
	if j < len(s.FeatureNames) {
		return s.FeatureNames[j]
	}
	return fmt.Sprintf("x%d", j)
}

// GetParams はスケーラーのパラメータを取得する
func (s *StandardScaler) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"policy":     string(s.Policy),
		"n_features": s.NFeatures,
	}
}

// String はスケーラーの文字列表現を返す
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(policy=%s)", s.Policy)
	}
	return fmt.Sprintf("StandardScaler(policy=%s, n_features=%d)", s.Policy, s.NFeatures)
}
