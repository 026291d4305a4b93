package training

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/core/artifact"
	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/metrics"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
)

// Metrics are the six scores persisted after evaluation.
//
// R² is computed on the log-price scale the model was trained on, while RMSE
// and MAE are computed after exponentiating predictions and targets, so they
// read in price units. The two families are therefore on different scales.
type Metrics struct {
	TrainR2   float64 `json:"train_r2"`
	TestR2    float64 `json:"test_r2"`
	TrainRMSE float64 `json:"train_rmse"`
	TestRMSE  float64 `json:"test_rmse"`
	TrainMAE  float64 `json:"train_mae"`
	TestMAE   float64 `json:"test_mae"`
}

// FeatureImportance maps feature name to a non-negative importance score.
type FeatureImportance map[string]float64

// Ranked is one entry of a FeatureImportance ordered by score.
type Ranked struct {
	Feature string
	Score   float64
}

// Ranked returns the entries by descending score, ties broken by name.
func (fi FeatureImportance) Ranked() []Ranked {
	out := make([]Ranked, 0, len(fi))
	for name, score := range fi {
		out = append(out, Ranked{Feature: name, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}

// Evaluator scores a fitted model on both partitions and persists the scores.
type Evaluator struct {
	cfg    config.Config
	store  artifact.Store
	logger log.Logger
}

// NewEvaluator creates an Evaluator writing to the metrics and importance
// paths of cfg.
func NewEvaluator(cfg config.Config, store artifact.Store, logger log.Logger) *Evaluator {
	if logger == nil {
		logger = log.Nop()
	}
	return &Evaluator{
		cfg:    cfg,
		store:  store,
		logger: logger.With(log.OperationKey, log.OperationEvaluate),
	}
}

// Evaluate predicts both partitions with m's existing fit, computes Metrics,
// extracts one importance per feature name, and writes both artifacts. m must
// implement model.FeatureImporter; Evaluate never fits or mutates it.
func (e *Evaluator) Evaluate(
	m model.Predictor,
	trainX, testX mat.Matrix,
	trainY, testY mat.Vector,
	featureNames []string,
) (Metrics, FeatureImportance, error) {
	start := time.Now()

	scores, importance, err := e.evaluate(m, trainX, testX, trainY, testY, featureNames)
	if err != nil {
		e.logger.Error("Error in model evaluation", err)
		return Metrics{}, nil, err
	}

	e.logger.Info("Model evaluation completed and saved",
		log.R2ScoreKey, scores.TestR2,
		log.RMSEKey, scores.TestRMSE,
		log.MAEKey, scores.TestMAE,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return scores, importance, nil
}

func (e *Evaluator) evaluate(
	m model.Predictor,
	trainX, testX mat.Matrix,
	trainY, testY mat.Vector,
	featureNames []string,
) (Metrics, FeatureImportance, error) {
	var scores Metrics
	var err error

	scores.TrainR2, scores.TrainRMSE, scores.TrainMAE, err = score(m, trainX, trainY)
	if err != nil {
		return Metrics{}, nil, errors.Wrap(err, "score training partition")
	}
	scores.TestR2, scores.TestRMSE, scores.TestMAE, err = score(m, testX, testY)
	if err != nil {
		return Metrics{}, nil, errors.Wrap(err, "score test partition")
	}

	importance, err := importances(m, featureNames)
	if err != nil {
		return Metrics{}, nil, err
	}

	if err := artifact.SaveJSON(e.store, e.cfg.Paths.Metrics, scores); err != nil {
		return Metrics{}, nil, err
	}
	if err := artifact.SaveJSON(e.store, e.cfg.Paths.Importance, importance); err != nil {
		return Metrics{}, nil, err
	}
	e.logger.Debug("Evaluation artifacts saved",
		log.ArtifactKey, []string{e.cfg.Paths.Metrics, e.cfg.Paths.Importance},
	)
	return scores, importance, nil
}

// score returns R² on the log scale and RMSE, MAE on the price scale.
func score(m model.Predictor, X mat.Matrix, y mat.Vector) (r2, rmse, mae float64, err error) {
	raw, err := m.Predict(X)
	if err != nil {
		return 0, 0, 0, err
	}
	pred, err := metrics.ColumnVector(raw)
	if err != nil {
		return 0, 0, 0, err
	}

	if r2, err = metrics.R2Score(y, pred); err != nil {
		return 0, 0, 0, err
	}

	price, predPrice := metrics.Exp(y), metrics.Exp(pred)
	if rmse, err = metrics.RMSE(price, predPrice); err != nil {
		return 0, 0, 0, err
	}
	if mae, err = metrics.MAE(price, predPrice); err != nil {
		return 0, 0, 0, err
	}

	if err := errors.CheckFinite("evaluate", []float64{r2, rmse, mae}); err != nil {
		return 0, 0, 0, err
	}
	return r2, rmse, mae, nil
}

func importances(m model.Predictor, featureNames []string) (FeatureImportance, error) {
	name := fmt.Sprintf("%T", m)
	importer, ok := m.(model.FeatureImporter)
	if !ok {
		return nil, errors.NewModelIntrospectionError(name, "model does not expose feature importances")
	}

	values, err := importer.FeatureImportances()
	if err != nil {
		return nil, err
	}
	if len(values) != len(featureNames) {
		return nil, errors.NewModelIntrospectionError(name,
			fmt.Sprintf("model reports %d importances for %d features", len(values), len(featureNames)))
	}

	out := make(FeatureImportance, len(values))
	for i, v := range values {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.NewModelIntrospectionError(name,
				fmt.Sprintf("invalid importance %v for feature '%s'", v, featureNames[i]))
		}
		out[featureNames[i]] = v
	}
	return out, nil
}

// LoadMetrics reads the metrics artifact written by Evaluate.
func LoadMetrics(cfg config.Config, store artifact.Store) (Metrics, error) {
	var m Metrics
	err := artifact.LoadJSON(store, cfg.Paths.Metrics, &m)
	return m, err
}

// LoadImportance reads the feature-importance artifact written by Evaluate.
func LoadImportance(cfg config.Config, store artifact.Store) (FeatureImportance, error) {
	var fi FeatureImportance
	err := artifact.LoadJSON(store, cfg.Paths.Importance, &fi)
	return fi, err
}
