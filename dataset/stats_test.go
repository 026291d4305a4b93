package dataset

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescribe(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("X\n1\n2\n3\n4\n\n"))
	require.NoError(t, err)

	s, err := tbl.Describe("X")
	require.NoError(t, err)
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.InDelta(t, 1.75, s.Q25, 1e-12)
	assert.InDelta(t, 2.5, s.Median, 1e-12)
	assert.InDelta(t, 3.25, s.Q75, 1e-12)
	assert.Equal(t, 4.0, s.Max)

	_, err = tbl.Describe("Y")
	assert.Error(t, err)
}

func TestCorrelation(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("A,B,C\n1,2,3\n2,4,1\n3,6,2\n"))
	require.NoError(t, err)

	corr, err := tbl.Correlation("A", "B", "C")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, corr.At(0, 0), 1e-12)
	assert.InDelta(t, 1.0, corr.At(0, 1), 1e-12)
	assert.InDelta(t, -0.5, corr.At(0, 2), 1e-12)
	assert.InDelta(t, corr.At(2, 1), corr.At(1, 2), 1e-12)
}

func TestMean(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("MEDV\n20\n30\n"))
	require.NoError(t, err)
	m, err := tbl.Mean("MEDV")
	require.NoError(t, err)
	assert.Equal(t, 25.0, m)
}

func TestMeanSkipsMissingCells(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader("MEDV\n20\nNA\n30\n\n"))
	require.NoError(t, err)
	m, err := tbl.Mean("MEDV")
	require.NoError(t, err)
	assert.Equal(t, 25.0, m)

	empty, err := ReadCSV(strings.NewReader("MEDV\nNA\n"))
	require.NoError(t, err)
	_, err = empty.Mean("MEDV")
	assert.Error(t, err)
}
