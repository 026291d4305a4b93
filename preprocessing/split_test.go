package preprocessing

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

func TestTrainTestSplitSizes(t *testing.T) {
	tests := []struct {
		n        int
		testSize float64
		wantTest int
	}{
		{n: 506, testSize: 0.2, wantTest: 102},
		{n: 10, testSize: 0.2, wantTest: 2},
		{n: 10, testSize: 0.25, wantTest: 3},
		{n: 3, testSize: 0.1, wantTest: 1},
	}
	for _, tt := range tests {
		train, test, err := TrainTestSplit(tt.n, tt.testSize, 42)
		require.NoError(t, err)
		assert.Len(t, test, tt.wantTest)
		assert.Len(t, train, tt.n-tt.wantTest)
	}
}

func TestTrainTestSplitDisjointAndExhaustive(t *testing.T) {
	train, test, err := TrainTestSplit(100, 0.2, 7)
	require.NoError(t, err)

	all := append(append([]int(nil), train...), test...)
	sort.Ints(all)
	for i, v := range all {
		assert.Equal(t, i, v)
	}
}

func TestTrainTestSplitReproducible(t *testing.T) {
	train1, test1, err := TrainTestSplit(50, 0.2, 42)
	require.NoError(t, err)
	train2, test2, err := TrainTestSplit(50, 0.2, 42)
	require.NoError(t, err)
	assert.Equal(t, train1, train2)
	assert.Equal(t, test1, test2)

	_, test3, err := TrainTestSplit(50, 0.2, 43)
	require.NoError(t, err)
	assert.NotEqual(t, test1, test3)
}

func TestTrainTestSplitRejectsDegenerateInput(t *testing.T) {
	_, _, err := TrainTestSplit(1, 0.2, 42)
	var dataErr *errors.DataError
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, "split", dataErr.Stage)

	_, _, err = TrainTestSplit(0, 0.2, 42)
	assert.True(t, errors.As(err, &dataErr))

	for _, size := range []float64{0, 1, -0.1, 1.5} {
		_, _, err = TrainTestSplit(10, size, 42)
		var valErr *errors.ValidationError
		assert.True(t, errors.As(err, &valErr), "test size %v", size)
	}
}

func TestSelectRowsAndElements(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	y := mat.NewVecDense(3, []float64{10, 20, 30})

	sub := SelectRows(X, []int{2, 0})
	assert.Equal(t, []float64{5, 6, 1, 2}, sub.RawMatrix().Data)

	v := SelectElements(y, []int{2, 0})
	assert.Equal(t, []float64{30, 10}, v.RawVector().Data)
}
