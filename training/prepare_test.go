package training

import (
	"math"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/dataset"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/preprocessing"
)

func TestPrepareIsReproducible(t *testing.T) {
	cfg := testConfig(t)
	tbl := syntheticTable(t, 50)

	store1, store2 := newMemoryStore(), newMemoryStore()
	p1, err := Prepare(cfg, tbl, store1, nil)
	require.NoError(t, err)
	p2, err := Prepare(cfg, tbl, store2, nil)
	require.NoError(t, err)

	assert.Equal(t, p1.TrainIndex, p2.TrainIndex)
	assert.Equal(t, p1.TestIndex, p2.TestIndex)
	assert.Equal(t, p1.Scaler.Mean, p2.Scaler.Mean)
	assert.Equal(t, p1.Scaler.Scale, p2.Scaler.Scale)

	b1, err := store1.Load(cfg.Paths.Scaler)
	require.NoError(t, err)
	b2, err := store2.Load(cfg.Paths.Scaler)
	require.NoError(t, err)
	assert.Equal(t, b1, b2)
}

func TestPreparePartitionsAreDisjointAndExhaustive(t *testing.T) {
	cfg := testConfig(t)
	p, err := Prepare(cfg, syntheticTable(t, 37), newMemoryStore(), nil)
	require.NoError(t, err)

	assert.Len(t, p.TestIndex, int(math.Ceil(0.2*37)))
	all := append(append([]int(nil), p.TrainIndex...), p.TestIndex...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}

	trainRows, _ := p.TrainX.Dims()
	testRows, _ := p.TestX.Dims()
	assert.Equal(t, len(p.TrainIndex), trainRows)
	assert.Equal(t, len(p.TestIndex), testRows)
	assert.Equal(t, len(p.TrainIndex), p.TrainY.Len())
	assert.Equal(t, len(p.TestIndex), p.TestY.Len())
}

func TestPrepareScalesWithTrainingParameters(t *testing.T) {
	cfg := testConfig(t)
	tbl := syntheticTable(t, 40)
	p, err := Prepare(cfg, tbl, newMemoryStore(), nil)
	require.NoError(t, err)

	for j := range p.FeatureNames {
		mean, std := columnMeanStd(p.TrainX, j)
		assert.InDelta(t, 0, mean, 1e-9)
		assert.InDelta(t, 1, std, 1e-9)
	}

	rm, err := tbl.Column("RM")
	require.NoError(t, err)
	for i, row := range p.TestIndex {
		want := (rm[row] - p.Scaler.Mean[0]) / p.Scaler.Scale[0]
		assert.InDelta(t, want, p.TestX.At(i, 0), 1e-12)
	}

	medv, err := tbl.Column("MEDV")
	require.NoError(t, err)
	for i, row := range p.TrainIndex {
		assert.InDelta(t, math.Log(medv[row]), p.TrainY.AtVec(i), 1e-12)
	}
}

func TestPreparePersistsScaler(t *testing.T) {
	cfg := testConfig(t)
	store := newMemoryStore()
	p, err := Prepare(cfg, syntheticTable(t, 20), store, nil)
	require.NoError(t, err)

	loaded, err := LoadScaler(cfg, store)
	require.NoError(t, err)
	assert.True(t, loaded.IsFitted())
	assert.Equal(t, p.Scaler.Mean, loaded.Mean)
	assert.Equal(t, p.Scaler.Scale, loaded.Scale)
	assert.Equal(t, []string{"RM", "CRIM"}, loaded.FeatureNames)
}

func TestPrepareMissingColumnWritesNothing(t *testing.T) {
	cfg := testConfig(t, config.WithFeatures(
		config.Feature{Name: "RM"},
		config.Feature{Name: "LSTAT"},
	))
	store := newMemoryStore()

	_, err := Prepare(cfg, syntheticTable(t, 10), store, nil)
	require.Error(t, err)

	var dataErr *errors.DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, "validate", dataErr.Stage)
	assert.Equal(t, []string{"LSTAT"}, dataErr.Columns)
	assert.Empty(t, store.Keys())
}

func TestPrepareRejectsNonPositiveTarget(t *testing.T) {
	tbl, err := dataset.ReadCSV(strings.NewReader("RM,CRIM,MEDV\n6,1,24\n5,2,0\n7,3,30\n4,1,20\n"))
	require.NoError(t, err)
	store := newMemoryStore()

	_, err = Prepare(testConfig(t), tbl, store, nil)
	var dataErr *errors.DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, []string{"MEDV"}, dataErr.Columns)
	assert.Equal(t, 1, dataErr.Row)
	assert.Empty(t, store.Keys())
}

func TestPrepareRejectsNonFiniteFeature(t *testing.T) {
	tbl, err := dataset.ReadCSV(strings.NewReader("RM,CRIM,MEDV\n6,1,24\n5,,22\n7,3,30\n4,1,20\n"))
	require.NoError(t, err)

	_, err = Prepare(testConfig(t), tbl, newMemoryStore(), nil)
	var dataErr *errors.DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, []string{"CRIM"}, dataErr.Columns)
	assert.Equal(t, 1, dataErr.Row)
}

func TestPrepareZeroVariancePolicy(t *testing.T) {
	csv := "RM,CRIM,MEDV\n4,1,20\n5,1,22\n6,1,24\n7,1,30\n8,1,35\n"
	tbl, err := dataset.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)

	store := newMemoryStore()
	_, err = Prepare(testConfig(t), tbl, store, nil)
	var dataErr *errors.DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, "scale", dataErr.Stage)
	assert.Equal(t, []string{"CRIM"}, dataErr.Columns)
	assert.Empty(t, store.Keys())

	logger, _ := log.NewTestLogger(log.LevelWarn)
	cfg := testConfig(t, config.WithZeroVariance(preprocessing.ZeroVarianceIdentity))
	p, err := Prepare(cfg, tbl, store, logger)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p.Scaler.Scale[1])
	assert.Equal(t, []string{cfg.Paths.Scaler}, store.Keys())
	assert.True(t, logger.ContainsField(log.ColumnKey, "CRIM"))
	assert.True(t, logger.ContainsField(log.StageKey, "scale"))
}

func TestPrepareRejectsTinyDataset(t *testing.T) {
	tbl, err := dataset.ReadCSV(strings.NewReader("RM,CRIM,MEDV\n6,1,24\n"))
	require.NoError(t, err)

	_, err = Prepare(testConfig(t), tbl, newMemoryStore(), nil)
	var dataErr *errors.DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, "split", dataErr.Stage)
}

func TestPrepareLogs(t *testing.T) {
	logger, _ := log.NewTestLogger(log.LevelInfo)
	_, err := Prepare(testConfig(t), syntheticTable(t, 10), newMemoryStore(), logger)
	require.NoError(t, err)
	assert.True(t, logger.ContainsMessage("Data preparation completed successfully"))
	assert.True(t, logger.ContainsField(log.TrainSamplesKey, 8.0))
	assert.True(t, logger.ContainsField(log.TestSamplesKey, 2.0))

	logger.Clear()
	_, err = Prepare(testConfig(t), nil, newMemoryStore(), logger)
	require.Error(t, err)
	assert.True(t, logger.ContainsMessage("Error in data preparation"))
}
