// Package ensemble implements least-squares gradient boosting over regression
// trees.
package ensemble

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// GradientBoostingRegressor fits an additive model of shallow regression trees
// to the residuals of the previous rounds.
//
// Example:
//
//	gbm := ensemble.NewGradientBoostingRegressor().
//		WithNEstimators(100).
//		WithLearningRate(0.1).
//		WithRandomState(42)
//	err := gbm.Fit(XTrain, yTrain)
//	pred, err := gbm.Predict(XTest)
type GradientBoostingRegressor struct {
	model.BaseEstimator

	// Hyperparameters
	NEstimators    int     // Number of boosting rounds
	LearningRate   float64 // Shrinkage applied to each tree
	MaxDepth       int     // Maximum depth of each tree
	MinSamplesLeaf int     // Minimum number of samples in a leaf
	Subsample      float64 // Fraction of rows drawn (without replacement) per round
	RandomState    uint64  // Seed for subsampling

	// Fitted state
	InitPrediction float64   // Mean of the training target
	Trees          []Tree    // One tree per round
	NFeatures      int       // Number of features seen during Fit
	GainImportance []float64 // Split gain accumulated per feature
}

// NewGradientBoostingRegressor creates a regressor with the defaults used by
// the training run.
func NewGradientBoostingRegressor() *GradientBoostingRegressor {
	return &GradientBoostingRegressor{
		NEstimators:    100,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 1,
		Subsample:      1.0,
		RandomState:    42,
	}
}

// WithNEstimators sets the number of boosting rounds
func (g *GradientBoostingRegressor) WithNEstimators(n int) *GradientBoostingRegressor {
	g.NEstimators = n
	return g
}

// WithLearningRate sets the learning rate
func (g *GradientBoostingRegressor) WithLearningRate(lr float64) *GradientBoostingRegressor {
	g.LearningRate = lr
	return g
}

// WithMaxDepth sets the maximum tree depth
func (g *GradientBoostingRegressor) WithMaxDepth(d int) *GradientBoostingRegressor {
	g.MaxDepth = d
	return g
}

// WithMinSamplesLeaf sets the minimum leaf size
func (g *GradientBoostingRegressor) WithMinSamplesLeaf(n int) *GradientBoostingRegressor {
	g.MinSamplesLeaf = n
	return g
}

// WithSubsample sets the row fraction used per round
func (g *GradientBoostingRegressor) WithSubsample(f float64) *GradientBoostingRegressor {
	g.Subsample = f
	return g
}

// WithRandomState sets the random seed
func (g *GradientBoostingRegressor) WithRandomState(seed uint64) *GradientBoostingRegressor {
	g.RandomState = seed
	return g
}

func (g *GradientBoostingRegressor) validate() error {
	switch {
	case g.NEstimators < 1:
		return errors.NewValidationError("n_estimators", "must be at least 1", g.NEstimators)
	case g.LearningRate <= 0 || math.IsNaN(g.LearningRate):
		return errors.NewValidationError("learning_rate", "must be positive", g.LearningRate)
	case g.MaxDepth < 1:
		return errors.NewValidationError("max_depth", "must be at least 1", g.MaxDepth)
	case g.MinSamplesLeaf < 1:
		return errors.NewValidationError("min_samples_leaf", "must be at least 1", g.MinSamplesLeaf)
	case !(g.Subsample > 0 && g.Subsample <= 1):
		return errors.NewValidationError("subsample", "must be in (0, 1]", g.Subsample)
	}
	return nil
}

// Fit trains the ensemble on X (n×p) and y (n×1).
func (g *GradientBoostingRegressor) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "GradientBoostingRegressor.Fit")

	if err := g.validate(); err != nil {
		return err
	}

	rows, cols := X.Dims()
	yRows, yCols := y.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewValueError("GradientBoostingRegressor.Fit", errors.ErrEmptyData.Error())
	}
	if rows != yRows {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", rows, yRows, 0)
	}
	if yCols != 1 {
		return errors.NewDimensionError("GradientBoostingRegressor.Fit", 1, yCols, 1)
	}

	columns := make([][]float64, cols)
	for j := range columns {
		columns[j] = make([]float64, rows)
		for i := 0; i < rows; i++ {
			columns[j][i] = X.At(i, j)
		}
	}
	target := make([]float64, rows)
	var sum float64
	for i := range target {
		target[i] = y.At(i, 0)
		sum += target[i]
	}
	if err := errors.CheckFinite("GradientBoostingRegressor.Fit", target); err != nil {
		return err
	}

	base := sum / float64(rows)
	current := make([]float64, rows)
	for i := range current {
		current[i] = base
	}

	residual := make([]float64, rows)
	builder := &treeBuilder{
		columns:        columns,
		target:         residual,
		maxDepth:       g.MaxDepth,
		minSamplesLeaf: g.MinSamplesLeaf,
		gainByFeature:  make([]float64, cols),
	}

	rng := rand.New(rand.NewPCG(g.RandomState, g.RandomState^0x5851f42d4c957f2d))
	sampleSize := rows
	if g.Subsample < 1 {
		sampleSize = max(1, int(g.Subsample*float64(rows)))
	}

	all := make([]int, rows)
	for i := range all {
		all[i] = i
	}

	trees := make([]Tree, 0, g.NEstimators)
	sample := make([]float64, cols)
	for round := 0; round < g.NEstimators; round++ {
		for i := range residual {
			residual[i] = target[i] - current[i]
		}

		idx := all
		if sampleSize < rows {
			idx = rng.Perm(rows)[:sampleSize]
		}

		tree := builder.build(idx)
		trees = append(trees, tree)

		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				sample[j] = columns[j][i]
			}
			current[i] += g.LearningRate * tree.Predict(sample)
		}
	}

	g.InitPrediction = base
	g.Trees = trees
	g.NFeatures = cols
	g.GainImportance = builder.gainByFeature
	g.SetFitted()
	return nil
}

// Predict returns an n×1 matrix of predictions.
func (g *GradientBoostingRegressor) Predict(X mat.Matrix) (mat.Matrix, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingRegressor", "Predict")
	}

	rows, cols := X.Dims()
	if cols != g.NFeatures {
		return nil, errors.NewDimensionError("GradientBoostingRegressor.Predict", g.NFeatures, cols, 1)
	}

	out := mat.NewDense(rows, 1, nil)
	sample := make([]float64, cols)
	for i := 0; i < rows; i++ {
		mat.Row(sample, i, X)
		pred := g.InitPrediction
		for t := range g.Trees {
			pred += g.LearningRate * g.Trees[t].Predict(sample)
		}
		out.Set(i, 0, pred)
	}
	return out, nil
}

// FeatureImportances returns the accumulated split gain per feature normalized
// to sum to 1. An ensemble that never split reports all zeros.
func (g *GradientBoostingRegressor) FeatureImportances() ([]float64, error) {
	if !g.IsFitted() {
		return nil, errors.NewNotFittedError("GradientBoostingRegressor", "FeatureImportances")
	}

	importances := make([]float64, g.NFeatures)
	var total float64
	for _, gain := range g.GainImportance {
		total += gain
	}
	if total > 0 {
		for j, gain := range g.GainImportance {
			importances[j] = gain / total
		}
	}
	return importances, nil
}

// GetParams returns the hyperparameters
func (g *GradientBoostingRegressor) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":     g.NEstimators,
		"learning_rate":    g.LearningRate,
		"max_depth":        g.MaxDepth,
		"min_samples_leaf": g.MinSamplesLeaf,
		"subsample":        g.Subsample,
		"random_state":     g.RandomState,
	}
}

func (g *GradientBoostingRegressor) String() string {
	return fmt.Sprintf("GradientBoostingRegressor(n_estimators=%d, learning_rate=%g, max_depth=%d)",
		g.NEstimators, g.LearningRate, g.MaxDepth)
}
