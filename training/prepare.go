// Package training implements the offline regression pipeline: data
// preparation, model evaluation and the one-shot training run that ties them
// together.
package training

import (
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/core/artifact"
	"github.com/YuminosukeSato/houseprice/dataset"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/preprocessing"
)

// Prepared holds the scaled partitions produced by Prepare. Rows of TrainX and
// TrainY line up, as do rows of TestX and TestY; TrainIndex and TestIndex give
// the original table row of each partition row.
type Prepared struct {
	TrainX *mat.Dense
	TestX  *mat.Dense
	TrainY *mat.VecDense // ln(target)
	TestY  *mat.VecDense // ln(target)

	FeatureNames []string
	TrainIndex   []int
	TestIndex    []int

	Scaler *preprocessing.StandardScaler
}

// Prepare validates the table against cfg, log-transforms the target, splits
// the rows with the configured seed and scales the features with parameters
// learned on the training partition only. The fitted scaler is written to
// cfg.Paths.Scaler; nothing is written when any earlier step fails.
func Prepare(cfg config.Config, table *dataset.Table, store artifact.Store, logger log.Logger) (*Prepared, error) {
	if logger == nil {
		logger = log.Nop()
	}
	logger = logger.With(log.OperationKey, log.OperationPrepare)
	start := time.Now()

	p, err := prepare(cfg, table, store, logger)
	if err != nil {
		logger.Error("Error in data preparation", err)
		return nil, err
	}

	logger.Info("Data preparation completed successfully",
		log.SamplesKey, len(p.TrainIndex)+len(p.TestIndex),
		log.FeaturesKey, len(p.FeatureNames),
		log.TrainSamplesKey, len(p.TrainIndex),
		log.TestSamplesKey, len(p.TestIndex),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return p, nil
}

func prepare(cfg config.Config, table *dataset.Table, store artifact.Store, logger log.Logger) (*Prepared, error) {
	features := cfg.FeatureNames()

	if table == nil || table.Len() == 0 {
		return nil, errors.NewDataError("validate", errors.ErrEmptyData.Error())
	}
	if missing := table.Missing(append(append([]string(nil), features...), cfg.Target)...); len(missing) > 0 {
		return nil, errors.NewDataError("validate", "column not found", missing...)
	}

	X, err := table.Select(features...)
	if err != nil {
		return nil, err
	}
	n, p := X.Dims()
	if err := errors.CheckMatrix("validate", X, n, p, features); err != nil {
		return nil, err
	}

	target, err := table.Column(cfg.Target)
	if err != nil {
		return nil, err
	}
	y := mat.NewVecDense(n, nil)
	for i, v := range target {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			return nil, errors.NewRowDataError("validate", cfg.Target, i, "non-finite target value")
		case v <= 0:
			return nil, errors.NewRowDataError("validate", cfg.Target, i, "target must be strictly positive for the log transform")
		}
		y.SetVec(i, math.Log(v))
	}
	logger.Debug("Dataset validated", log.SamplesKey, n, log.FeaturesKey, p)

	trainIdx, testIdx, err := preprocessing.TrainTestSplit(n, cfg.TestSize, cfg.RandomSeed)
	if err != nil {
		return nil, err
	}
	logger.Debug("Dataset split",
		log.TrainSamplesKey, len(trainIdx),
		log.TestSamplesKey, len(testIdx),
		log.TestSizeKey, cfg.TestSize,
		log.RandomSeedKey, cfg.RandomSeed,
	)

	scaler := preprocessing.NewStandardScaler(cfg.ZeroVariance, features)
	trainX, err := scaler.FitTransform(preprocessing.SelectRows(X, trainIdx))
	if err != nil {
		return nil, err
	}
	testX, err := scaler.Transform(preprocessing.SelectRows(X, testIdx))
	if err != nil {
		return nil, err
	}
	for _, w := range scaler.Warnings() {
		var zv *errors.ZeroVarianceWarning
		if errors.As(w, &zv) {
			logger.Warn(w.Error(), log.StageKey, "scale", log.ColumnKey, zv.Feature)
			continue
		}
		logger.Warn(w.Error(), log.StageKey, "scale")
	}

	if err := artifact.SaveGob(store, cfg.Paths.Scaler, scaler); err != nil {
		return nil, errors.Wrap(err, "persist scaler")
	}
	logger.Debug("Scaler saved", log.ArtifactKey, cfg.Paths.Scaler)

	return &Prepared{
		TrainX:       trainX.(*mat.Dense),
		TestX:        testX.(*mat.Dense),
		TrainY:       preprocessing.SelectElements(y, trainIdx),
		TestY:        preprocessing.SelectElements(y, testIdx),
		FeatureNames: features,
		TrainIndex:   trainIdx,
		TestIndex:    testIdx,
		Scaler:       scaler,
	}, nil
}

// LoadScaler reads the scaler persisted by Prepare.
func LoadScaler(cfg config.Config, store artifact.Store) (*preprocessing.StandardScaler, error) {
	var s preprocessing.StandardScaler
	if err := artifact.LoadGob(store, cfg.Paths.Scaler, &s); err != nil {
		return nil, err
	}
	return &s, nil
}
