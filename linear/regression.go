// Package linear provides an ordinary least squares regressor.
package linear

import (
	"fmt"
	"math"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/core/parallel"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// parallelThreshold 以下の行数では計画行列を逐次に組み立てる
const parallelThreshold = 1000

// LinearRegression は線形回帰モデル
type LinearRegression struct {
	model.BaseEstimator
	Weights      *mat.VecDense // 重み（係数）
	Intercept    float64       // 切片
	NFeatures    int           // 特徴量の数
	FitIntercept bool          // 切片を学習するかどうか
}

// NewLinearRegression は新しい線形回帰モデルを作成する
func NewLinearRegression(opts ...Option) *LinearRegression {
	lr := &LinearRegression{FitIntercept: true}
	for _, opt := range opts {
		opt(lr)
	}
	return lr
}

// Fit はモデルを訓練データで学習させる
// 正規方程式 (X^T X) w = X^T y を解く
func (lr *LinearRegression) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "LinearRegression.Fit")

	r, c := X.Dims()
	ry, cy := y.Dims()

	if r == 0 || c == 0 {
		return errors.NewValueError("LinearRegression.Fit", errors.ErrEmptyData.Error())
	}
	if ry != r {
		return errors.NewDimensionError("LinearRegression.Fit", r, ry, 0)
	}
	if cy != 1 {
		return errors.NewValueError("LinearRegression.Fit", "y must be a column vector")
	}

	offset := 0
	if lr.FitIntercept {
		offset = 1
	}

	design := mat.NewDense(r, c+offset, nil)
	parallel.ParallelizeWithThreshold(r, parallelThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			if offset == 1 {
				design.Set(i, 0, 1.0)
			}
			for j := 0; j < c; j++ {
				design.Set(i, j+offset, X.At(i, j))
			}
		}
	})

	yVec := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		yVec.SetVec(i, y.At(i, 0))
	}

	var xtx mat.Dense
	xtx.Mul(design.T(), design)
	var xty mat.VecDense
	xty.MulVec(design.T(), yVec)

	var weights mat.VecDense
	if err := weights.SolveVec(&xtx, &xty); err != nil {
		return errors.Wrap(errors.ErrSingularMatrix, "LinearRegression.Fit")
	}

	lr.NFeatures = c
	lr.Intercept = 0
	if offset == 1 {
		lr.Intercept = weights.AtVec(0)
	}
	lr.Weights = mat.NewVecDense(c, nil)
	for j := 0; j < c; j++ {
		lr.Weights.SetVec(j, weights.AtVec(j+offset))
	}

	lr.SetFitted()
	return nil
}

// Predict は入力データに対する予測を行う
func (lr *LinearRegression) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "Predict")
	}

	r, c := X.Dims()
	if c != lr.NFeatures {
		return nil, errors.NewDimensionError("LinearRegression.Predict", lr.NFeatures, c, 1)
	}

	// y = X * weights + intercept
	predictions := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		pred := lr.Intercept
		for j := 0; j < c; j++ {
			pred += X.At(i, j) * lr.Weights.AtVec(j)
		}
		predictions.Set(i, 0, pred)
	}
	return predictions, nil
}

// FeatureImportances は係数の絶対値を合計1に正規化して返す
//
// 入力が標準化済みであれば係数の大きさを比較できる。係数がすべて0なら全要素0。
func (lr *LinearRegression) FeatureImportances() ([]float64, error) {
	if !lr.IsFitted() {
		return nil, errors.NewNotFittedError("LinearRegression", "FeatureImportances")
	}

	importances := make([]float64, lr.NFeatures)
	var total float64
	for j := range importances {
		importances[j] = math.Abs(lr.Weights.AtVec(j))
		total += importances[j]
	}
	if total > 0 {
		for j := range importances {
			importances[j] /= total
		}
	}
	return importances, nil
}

// GetWeights は学習された重み（係数）を返す
func (lr *LinearRegression) GetWeights() []float64 {
	if lr.Weights == nil {
		return nil
	}
	return append([]float64(nil), lr.Weights.RawVector().Data...)
}

// Score はモデルの決定係数（R²）を計算する
func (lr *LinearRegression) Score(X, y mat.Matrix) (float64, error) {
	yPred, err := lr.Predict(X)
	if err != nil {
		return 0, err
	}

	r, _ := y.Dims()
	var yMean float64
	for i := 0; i < r; i++ {
		yMean += y.At(i, 0)
	}
	yMean /= float64(r)

	var tss, rss float64
	for i := 0; i < r; i++ {
		t, p := y.At(i, 0), yPred.At(i, 0)
		tss += (t - yMean) * (t - yMean)
		rss += (t - p) * (t - p)
	}
	if tss == 0 {
		return 0, errors.Newf("total sum of squares is zero")
	}
	return 1 - rss/tss, nil
}

// String はモデルの文字列表現を返す
func (lr *LinearRegression) String() string {
	return fmt.Sprintf("LinearRegression(fit_intercept=%t)", lr.FitIntercept)
}
