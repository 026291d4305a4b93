package model

import "gonum.org/v1/gonum/mat"

// Fitter は学習可能なモデルのインターフェース
type Fitter interface {
	// Fit はモデルを訓練データで学習させる
	Fit(X, y mat.Matrix) error
}

// Predictor は予測可能なモデルのインターフェース
//
// 評価器はこのインターフェースだけを通してモデルを使う。
// 返り値は n×1 の行列で、目的変数と同じスケール（対数価格）の予測値を持つ。
type Predictor interface {
	// Predict は入力データに対する予測を行う
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// FeatureImporter は特徴量ごとの重要度を公開できるモデルのインターフェース
//
// 重要度は学習時の列順と一対一で対応し、すべて非負でなければならない。
type FeatureImporter interface {
	FeatureImportances() ([]float64, error)
}

// Regressor は学習・予測・重要度の取得ができる回帰モデル
type Regressor interface {
	Fitter
	Predictor
	FeatureImporter
}

// Transformer はデータ変換のインターフェース
type Transformer interface {
	// Fit は変換に必要なパラメータを学習する
	Fit(X mat.Matrix) error

	// Transform はデータを変換する
	Transform(X mat.Matrix) (mat.Matrix, error)

	// FitTransform はFitとTransformを同時に実行する
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}
