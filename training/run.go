package training

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/core/artifact"
	"github.com/YuminosukeSato/houseprice/dataset"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/sklearn/ensemble"
	"github.com/YuminosukeSato/houseprice/sklearn/pipeline"
)

// RegressorStep is the pipeline step name of the fitted regressor.
const RegressorStep = "regressor"

// Result is everything a training run produced.
type Result struct {
	RunID      string
	Prepared   *Prepared
	Model      *ensemble.GradientBoostingRegressor
	Metrics    Metrics
	Importance FeatureImportance
}

// NewRegressor builds the gradient boosting regressor described by cfg.
func NewRegressor(cfg config.Config) *ensemble.GradientBoostingRegressor {
	b := cfg.Boosting
	return ensemble.NewGradientBoostingRegressor().
		WithNEstimators(b.NEstimators).
		WithLearningRate(b.LearningRate).
		WithMaxDepth(b.MaxDepth).
		WithMinSamplesLeaf(b.MinSamplesLeaf).
		WithSubsample(b.Subsample).
		WithRandomState(cfg.RandomSeed)
}

// Run loads the dataset, prepares it, fits the regressor, evaluates it and
// persists the model. Every artifact goes through store. ctx is checked
// between stages.
func Run(ctx context.Context, cfg config.Config, store artifact.Store, logger log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.Nop()
	}
	runID := uuid.NewString()
	logger = logger.With(log.RunIDKey, runID)
	start := time.Now()

	logger.Info("Loading data", log.OperationKey, log.OperationLoad, log.ArtifactKey, cfg.Paths.Dataset)
	table, err := dataset.Load(store, cfg.Paths.Dataset)
	if err != nil {
		logger.Error("Error loading dataset", err, log.ArtifactKey, cfg.Paths.Dataset)
		return nil, errors.Wrap(err, "load dataset")
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prepared, err := Prepare(cfg, table, store, logger)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	regressor := NewRegressor(cfg)
	pipe := pipeline.New(pipeline.Step{Name: RegressorStep, Estimator: regressor}).WithLogger(logger)

	fitStart := time.Now()
	if err := pipe.Fit(prepared.TrainX, prepared.TrainY); err != nil {
		logger.Error("Error fitting model", err, log.OperationKey, log.OperationFit)
		return nil, err
	}
	logger.Info("Model fitted",
		log.OperationKey, log.OperationFit,
		log.ModelNameKey, regressor.String(),
		log.DurationMsKey, time.Since(fitStart).Milliseconds(),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	scores, importance, err := NewEvaluator(cfg, store, logger).Evaluate(
		pipe,
		prepared.TrainX, prepared.TestX,
		prepared.TrainY, prepared.TestY,
		prepared.FeatureNames,
	)
	if err != nil {
		return nil, err
	}

	if err := artifact.SaveGob(store, cfg.Paths.Model, regressor); err != nil {
		logger.Error("Error saving model", err, log.ArtifactKey, cfg.Paths.Model)
		return nil, errors.Wrap(err, "persist model")
	}

	logger.Info("Training run completed",
		log.R2ScoreKey, scores.TestR2,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return &Result{
		RunID:      runID,
		Prepared:   prepared,
		Model:      regressor,
		Metrics:    scores,
		Importance: importance,
	}, nil
}

// LoadModel reads the regressor persisted by Run.
func LoadModel(cfg config.Config, store artifact.Store) (*ensemble.GradientBoostingRegressor, error) {
	var m ensemble.GradientBoostingRegressor
	if err := artifact.LoadGob(store, cfg.Paths.Model, &m); err != nil {
		return nil, err
	}
	return &m, nil
}
