package training

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/linear"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/sklearn/pipeline"
)

// echoModel predicts the first column of X as the log price.
type echoModel struct {
	importances []float64
	calls       int
}

func (m *echoModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	m.calls++
	r, _ := X.Dims()
	out := mat.NewDense(r, 1, nil)
	for i := 0; i < r; i++ {
		out.Set(i, 0, X.At(i, 0))
	}
	return out, nil
}

func (m *echoModel) FeatureImportances() ([]float64, error) {
	return m.importances, nil
}

// bareModel can fit and predict but exposes no importances.
type bareModel struct{}

func (bareModel) Fit(X, y mat.Matrix) error { return nil }

func (bareModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	return mat.NewDense(r, 1, nil), nil
}

func fittedPipeline(t *testing.T, est interface{}) *pipeline.Pipeline {
	t.Helper()
	p := pipeline.New(pipeline.Step{Name: RegressorStep, Estimator: est})
	require.NoError(t, p.Fit(mat.NewDense(2, 1, []float64{1, 2}), mat.NewDense(2, 1, []float64{1, 2})))
	return p
}

func withOneFeature() config.Option {
	return config.WithFeatures(config.Feature{Name: "RM"})
}

func logPrices(prices ...float64) *mat.VecDense {
	v := mat.NewVecDense(len(prices), nil)
	for i, p := range prices {
		v.SetVec(i, math.Log(p))
	}
	return v
}

func asColumn(v *mat.VecDense) *mat.Dense {
	return mat.NewDense(v.Len(), 1, append([]float64(nil), v.RawVector().Data...))
}

func TestEvaluateReportsPriceUnits(t *testing.T) {
	cfg := testConfig(t, withOneFeature())
	store := newMemoryStore()
	m := &echoModel{importances: []float64{1}}

	trainY := logPrices(24000, 30000)
	trainX := asColumn(logPrices(23500, 30500))
	testY := logPrices(10000, 20000)
	testX := asColumn(logPrices(10000, 20000))

	scores, importance, err := NewEvaluator(cfg, store, nil).Evaluate(m, trainX, testX, trainY, testY, []string{"RM"})
	require.NoError(t, err)

	assert.InDelta(t, 500, scores.TrainMAE, 1e-6)
	assert.InDelta(t, 500, scores.TrainRMSE, 1e-6)
	assert.InDelta(t, 0, scores.TestMAE, 1e-6)
	assert.InDelta(t, 1, scores.TestR2, 1e-12)
	assert.Less(t, scores.TrainR2, 1.0)
	assert.Equal(t, FeatureImportance{"RM": 1}, importance)
	assert.Equal(t, 2, m.calls)
}

func TestEvaluateComputesR2OnLogScale(t *testing.T) {
	cfg := testConfig(t, withOneFeature())
	y := logPrices(10000, 20000, 40000)
	X := asColumn(logPrices(12000, 20000, 36000))

	scores, _, err := NewEvaluator(cfg, newMemoryStore(), nil).Evaluate(&echoModel{importances: []float64{1}}, X, X, y, y, []string{"RM"})
	require.NoError(t, err)

	mean := (y.AtVec(0) + y.AtVec(1) + y.AtVec(2)) / 3
	var tss, rss float64
	for i := 0; i < 3; i++ {
		tss += math.Pow(y.AtVec(i)-mean, 2)
		rss += math.Pow(y.AtVec(i)-X.At(i, 0), 2)
	}
	assert.InDelta(t, 1-rss/tss, scores.TrainR2, 1e-12)
	assert.InDelta(t, scores.TrainR2, scores.TestR2, 1e-12)
}

func TestEvaluateWritesByteIdenticalArtifacts(t *testing.T) {
	cfg := testConfig(t)
	store := newMemoryStore()
	p, err := Prepare(cfg, syntheticTable(t, 30), store, nil)
	require.NoError(t, err)

	reg := NewRegressor(cfg)
	require.NoError(t, reg.Fit(p.TrainX, p.TrainY))
	eval := NewEvaluator(cfg, store, nil)

	_, _, err = eval.Evaluate(reg, p.TrainX, p.TestX, p.TrainY, p.TestY, p.FeatureNames)
	require.NoError(t, err)
	metrics1, _ := store.Load(cfg.Paths.Metrics)
	importance1, _ := store.Load(cfg.Paths.Importance)

	_, _, err = eval.Evaluate(reg, p.TrainX, p.TestX, p.TrainY, p.TestY, p.FeatureNames)
	require.NoError(t, err)
	metrics2, _ := store.Load(cfg.Paths.Metrics)
	importance2, _ := store.Load(cfg.Paths.Importance)

	assert.Equal(t, metrics1, metrics2)
	assert.Equal(t, importance1, importance2)
	assert.Contains(t, string(metrics1), "    \"train_r2\": ")
}

func TestEvaluateArtifactsRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	store := newMemoryStore()
	p, err := Prepare(cfg, syntheticTable(t, 30), store, nil)
	require.NoError(t, err)

	lr := linear.NewLinearRegression()
	require.NoError(t, lr.Fit(p.TrainX, p.TrainY))

	scores, importance, err := NewEvaluator(cfg, store, nil).Evaluate(lr, p.TrainX, p.TestX, p.TrainY, p.TestY, p.FeatureNames)
	require.NoError(t, err)

	require.Len(t, importance, 2)
	for _, name := range p.FeatureNames {
		assert.GreaterOrEqual(t, importance[name], 0.0)
	}

	loadedMetrics, err := LoadMetrics(cfg, store)
	require.NoError(t, err)
	assert.Equal(t, scores, loadedMetrics)

	loadedImportance, err := LoadImportance(cfg, store)
	require.NoError(t, err)
	assert.Equal(t, importance, loadedImportance)
}

func TestEvaluateIntrospectionErrors(t *testing.T) {
	cfg := testConfig(t)
	X := mat.NewDense(2, 2, []float64{1, 0, 2, 0})
	y := mat.NewVecDense(2, []float64{1, 2})
	names := []string{"RM", "CRIM"}

	tests := []struct {
		name  string
		model interface {
			Predict(mat.Matrix) (mat.Matrix, error)
		}
	}{
		{"no capability", bareModel{}},
		{"wrong length", &echoModel{importances: []float64{1}}},
		{"negative score", &echoModel{importances: []float64{0.5, -0.1}}},
		{"nan score", &echoModel{importances: []float64{math.NaN(), 1}}},
		{"pipeline without capability", fittedPipeline(t, bareModel{})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemoryStore()
			_, _, err := NewEvaluator(cfg, store, nil).Evaluate(tt.model, X, X, y, y, names)
			var introspection *errors.ModelIntrospectionError
			require.True(t, errors.As(err, &introspection), "got %v", err)
			assert.Empty(t, store.Keys())
		})
	}
}

func TestRankedImportance(t *testing.T) {
	fi := FeatureImportance{"RM": 0.5, "CRIM": 0.2, "LSTAT": 0.2, "B": 0.1}
	ranked := fi.Ranked()
	require.Len(t, ranked, 4)
	assert.Equal(t, []string{"RM", "CRIM", "LSTAT", "B"}, []string{
		ranked[0].Feature, ranked[1].Feature, ranked[2].Feature, ranked[3].Feature,
	})
}
