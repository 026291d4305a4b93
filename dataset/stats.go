package dataset

import (
	"math"
	"sort"

	"github.com/samber/lo"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// Summary is the describe() view of one column: count, mean, sample
// standard deviation, min, quartiles and max. NaN cells are skipped.
type Summary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Describe summarises the named column.
func (t *Table) Describe(name string) (Summary, error) {
	col, err := t.Column(name)
	if err != nil {
		return Summary{}, err
	}

	values := make([]float64, 0, len(col))
	for _, v := range col {
		if !math.IsNaN(v) {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return Summary{}, errors.NewDataError("describe", "column has no values", name)
	}
	sort.Float64s(values)

	s := Summary{
		Column: name,
		Count:  len(values),
		Mean:   stat.Mean(values, nil),
		Min:    values[0],
		Q25:    quantile(0.25, values),
		Median: quantile(0.5, values),
		Q75:    quantile(0.75, values),
		Max:    values[len(values)-1],
	}
	if len(values) > 1 {
		s.Std = stat.StdDev(values, nil)
	} else {
		s.Std = math.NaN()
	}
	return s, nil
}

// quantile linearly interpolates between order statistics of sorted values,
// matching the quartiles a spreadsheet or pandas reports.
func quantile(p float64, sorted []float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	h := p * float64(len(sorted)-1)
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}

// Correlation returns the Pearson correlation matrix of the named columns.
func (t *Table) Correlation(names ...string) (*mat.SymDense, error) {
	X, err := t.Select(names...)
	if err != nil {
		return nil, err
	}
	r, _ := X.Dims()
	if r < 2 {
		return nil, errors.NewDataError("describe", "correlation needs at least two rows")
	}
	corr := mat.NewSymDense(len(names), nil)
	stat.CorrelationMatrix(corr, X, nil)
	return corr, nil
}

// Mean returns the mean of the named column. NaN cells are skipped.
func (t *Table) Mean(name string) (float64, error) {
	col, err := t.Column(name)
	if err != nil {
		return 0, err
	}
	col = lo.Filter(col, func(v float64, _ int) bool { return !math.IsNaN(v) })
	if len(col) == 0 {
		return 0, errors.NewDataError("describe", errors.ErrEmptyData.Error(), name)
	}
	return stat.Mean(col, nil), nil
}
