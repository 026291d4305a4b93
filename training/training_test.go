package training

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/core/artifact"
	"github.com/YuminosukeSato/houseprice/dataset"
)

// testConfig uses two features: RM carries the signal, CRIM is noise.
func testConfig(t *testing.T, opts ...config.Option) config.Config {
	t.Helper()
	base := []config.Option{
		config.WithFeatures(
			config.Feature{Name: "RM", Description: "rooms"},
			config.Feature{Name: "CRIM", Description: "crime"},
		),
		config.WithBoosting(config.Boosting{
			NEstimators:    50,
			LearningRate:   0.1,
			MaxDepth:       3,
			MinSamplesLeaf: 1,
			Subsample:      1.0,
		}),
	}
	cfg, err := config.New(append(base, opts...)...)
	require.NoError(t, err)
	return cfg
}

// syntheticCSV returns n rows where ln(MEDV) = 1 + 0.3*RM exactly.
func syntheticCSV(n int) string {
	var b strings.Builder
	b.WriteString("RM,CRIM,ZN,MEDV\n")
	for i := 0; i < n; i++ {
		rm := 4 + 5*float64(i)/float64(n)
		crim := float64((i*7)%n) / 10
		fmt.Fprintf(&b, "%.6f,%.4f,%d,%.10f\n", rm, crim, i%3, math.Exp(1+0.3*rm))
	}
	return b.String()
}

func syntheticTable(t *testing.T, n int) *dataset.Table {
	t.Helper()
	tbl, err := dataset.ReadCSV(strings.NewReader(syntheticCSV(n)))
	require.NoError(t, err)
	return tbl
}

func columnMeanStd(m mat.Matrix, j int) (float64, float64) {
	r, _ := m.Dims()
	var mean float64
	for i := 0; i < r; i++ {
		mean += m.At(i, j)
	}
	mean /= float64(r)
	var v float64
	for i := 0; i < r; i++ {
		d := m.At(i, j) - mean
		v += d * d
	}
	return mean, math.Sqrt(v / float64(r))
}

func newMemoryStore() *artifact.MemoryStore { return artifact.NewMemoryStore() }
