package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/core/model"
	"github.com/YuminosukeSato/houseprice/linear"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/preprocessing"
	"github.com/YuminosukeSato/houseprice/sklearn/ensemble"
)

type predictOnly struct{ model.BaseEstimator }

func (p *predictOnly) Fit(X, y mat.Matrix) error { p.SetFitted(); return nil }

func (p *predictOnly) Predict(X mat.Matrix) (mat.Matrix, error) {
	r, _ := X.Dims()
	return mat.NewDense(r, 1, nil), nil
}

func linearData() (*mat.Dense, *mat.Dense) {
	X := mat.NewDense(6, 2, []float64{
		1, 20,
		2, 10,
		3, 40,
		4, 30,
		5, 60,
		6, 50,
	})
	y := mat.NewDense(6, 1, nil)
	for i := 0; i < 6; i++ {
		y.Set(i, 0, 2*X.At(i, 0)+0.1*X.At(i, 1))
	}
	return X, y
}

func TestPipelineScalerAndRegressor(t *testing.T) {
	X, y := linearData()
	testLogger, _ := log.NewTestLogger(log.LevelDebug)

	p := New(
		Step{Name: "scaler", Estimator: preprocessing.NewStandardScaler(preprocessing.ZeroVarianceReject, nil)},
		Step{Name: "regressor", Estimator: linear.NewLinearRegression()},
	).WithLogger(testLogger)

	require.NoError(t, p.Fit(X, y))
	assert.True(t, testLogger.ContainsField("step", "regressor"))

	pred, err := p.Predict(X)
	require.NoError(t, err)
	for i := 0; i < 6; i++ {
		assert.InDelta(t, y.At(i, 0), pred.At(i, 0), 1e-9)
	}

	imp, err := p.FeatureImportances()
	require.NoError(t, err)
	assert.Len(t, imp, 2)

	est, ok := p.NamedStep("regressor")
	require.True(t, ok)
	assert.Same(t, p.FinalEstimator(), est)
}

func TestPipelineDelegatesToBoostedTrees(t *testing.T) {
	X, y := linearData()
	gbm := ensemble.NewGradientBoostingRegressor().WithNEstimators(10)
	p := New(Step{Name: "regressor", Estimator: gbm})

	require.NoError(t, p.Fit(X, y))
	assert.True(t, gbm.IsFitted())

	want, err := gbm.FeatureImportances()
	require.NoError(t, err)
	got, err := p.FeatureImportances()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	params := p.GetParams()
	assert.Equal(t, 10, params["regressor__n_estimators"])
}

func TestPipelineFeatureImportancesWithoutCapability(t *testing.T) {
	X, y := linearData()
	p := New(Step{Name: "regressor", Estimator: &predictOnly{}})
	require.NoError(t, p.Fit(X, y))

	_, err := p.FeatureImportances()
	var introspection *errors.ModelIntrospectionError
	require.True(t, errors.As(err, &introspection))
	assert.Contains(t, introspection.Model, "regressor")
}

func TestPipelineErrors(t *testing.T) {
	X, y := linearData()

	_, err := New(Step{Name: "regressor", Estimator: linear.NewLinearRegression()}).Predict(X)
	var notFitted *errors.NotFittedError
	assert.True(t, errors.As(err, &notFitted))

	err = New().Fit(X, y)
	var valErr *errors.ValidationError
	assert.True(t, errors.As(err, &valErr))

	err = New(
		Step{Name: "bad", Estimator: linear.NewLinearRegression()},
		Step{Name: "regressor", Estimator: linear.NewLinearRegression()},
	).Fit(X, y)
	assert.True(t, errors.As(err, &valErr))
	assert.Equal(t, "bad", valErr.Value)

	err = New(Step{Name: "regressor", Estimator: "not a model"}).Fit(X, y)
	assert.True(t, errors.As(err, &valErr))
}
