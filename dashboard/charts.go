package dashboard

import (
	"bytes"
	"image/color"
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/YuminosukeSato/houseprice/core/artifact"
	"github.com/YuminosukeSato/houseprice/linear"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// Chart size of every PNG the dashboard writes.
const (
	chartWidth  = 8 * vg.Inch
	chartHeight = 6 * vg.Inch
)

var importanceColor = color.RGBA{R: 26, G: 118, B: 255, A: 255}

// Group is one labelled set of values rendered as a box.
type Group struct {
	Label  string
	Values []float64
}

// SaveChart renders p as PNG and writes it to key.
func SaveChart(store artifact.Store, key string, p *plot.Plot) error {
	w, err := p.WriterTo(chartWidth, chartHeight, "png")
	if err != nil {
		return errors.Wrapf(err, "render chart %s", key)
	}
	var buf bytes.Buffer
	if _, err := w.WriteTo(&buf); err != nil {
		return errors.Wrapf(err, "render chart %s", key)
	}
	return store.Save(key, buf.Bytes())
}

// finite drops NaN and infinite values, which the dataset loader keeps for
// missing cells.
func finite(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			out = append(out, v)
		}
	}
	return out
}

// finitePairs keeps the (x, y) pairs where both values are finite.
func finitePairs(xs, ys []float64) ([]float64, []float64) {
	n := min(len(xs), len(ys))
	outX := make([]float64, 0, n)
	outY := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		x, y := xs[i], ys[i]
		if math.IsNaN(x) || math.IsInf(x, 0) || math.IsNaN(y) || math.IsInf(y, 0) {
			continue
		}
		outX = append(outX, x)
		outY = append(outY, y)
	}
	return outX, outY
}

// Histogram plots the distribution of values in bins buckets. Non-finite
// values are left out.
func Histogram(title, xLabel string, values []float64, bins int) (*plot.Plot, error) {
	values = finite(values)
	if len(values) == 0 {
		return nil, errors.NewValueError("Histogram", "no values to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = "Count"

	h, err := plotter.NewHist(plotter.Values(values), bins)
	if err != nil {
		return nil, errors.Wrap(err, "histogram")
	}
	p.Add(h)
	return p, nil
}

// BoxPlot draws one box per group. Empty groups keep their slot on the axis.
func BoxPlot(title, xLabel, yLabel string, groups []Group) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	labels := make([]string, len(groups))
	drawn := 0
	for i, g := range groups {
		labels[i] = g.Label
		values := finite(g.Values)
		if len(values) == 0 {
			continue
		}
		box, err := plotter.NewBoxPlot(vg.Points(20), float64(i), plotter.Values(values))
		if err != nil {
			return nil, errors.Wrapf(err, "box plot for %s", g.Label)
		}
		p.Add(box)
		drawn++
	}
	if drawn == 0 {
		return nil, errors.NewValueError("BoxPlot", "no values to plot")
	}
	p.NominalX(labels...)
	return p, nil
}

// GroupByRounded buckets ys by the rounded value of the matching x, in
// ascending order of the rounded value. Pairs with a non-finite value are
// left out.
func GroupByRounded(xs, ys []float64) []Group {
	xs, ys = finitePairs(xs, ys)
	buckets := map[float64][]float64{}
	for i, x := range xs {
		k := math.Round(x)
		buckets[k] = append(buckets[k], ys[i])
	}
	keys := make([]float64, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Float64s(keys)

	groups := make([]Group, len(keys))
	for i, k := range keys {
		groups[i] = Group{Label: formatNumber(k), Values: buckets[k]}
	}
	return groups
}

// ImportanceBars draws a horizontal bar per feature, smallest at the bottom.
func ImportanceBars(names []string, scores []float64) (*plot.Plot, error) {
	if len(names) == 0 || len(names) != len(scores) {
		return nil, errors.NewValueError("ImportanceBars", "need one score per feature")
	}
	if len(finite(scores)) != len(scores) {
		return nil, errors.NewValueError("ImportanceBars", "scores must be finite")
	}
	p := plot.New()
	p.Title.Text = "Feature Importance"
	p.X.Label.Text = "Importance Score"
	p.Y.Label.Text = "Features"

	bars, err := plotter.NewBarChart(plotter.Values(scores), vg.Points(18))
	if err != nil {
		return nil, errors.Wrap(err, "importance bars")
	}
	bars.Horizontal = true
	bars.Color = importanceColor
	bars.LineStyle.Color = importanceColor
	p.Add(bars)
	p.NominalY(names...)
	return p, nil
}

// Scatter plots ys against xs. With trend set, an ordinary least squares line
// is fitted and drawn over the points. Pairs with a non-finite value are left
// out of both.
func Scatter(title, xLabel, yLabel string, xs, ys []float64, trend bool) (*plot.Plot, error) {
	if len(xs) != len(ys) {
		return nil, errors.NewValueError("Scatter", "need matching x and y")
	}
	xs, ys = finitePairs(xs, ys)
	if len(xs) == 0 {
		return nil, errors.NewValueError("Scatter", "no finite points to plot")
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xLabel
	p.Y.Label.Text = yLabel

	pts := make(plotter.XYs, len(xs))
	for i := range xs {
		pts[i].X = xs[i]
		pts[i].Y = ys[i]
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, errors.Wrap(err, "scatter")
	}
	scatter.Color = plotter.DefaultLineStyle.Color
	p.Add(scatter)

	if !trend {
		return p, nil
	}
	p.Legend.Add("Data points", scatter)

	line, err := trendLine(xs, ys)
	if err != nil || line == nil {
		return p, err
	}
	line.Width = vg.Points(2)
	line.Dashes = []vg.Length{}
	line.Color = importanceColor
	p.Add(line)
	p.Legend.Add("OLS trendline", line)
	return p, nil
}

// trendLine fits y = a*x + b and returns the segment over the x range.
// A constant x has no trend and yields a nil line.
func trendLine(xs, ys []float64) (*plotter.Line, error) {
	minX, maxX := xs[0], xs[0]
	for _, x := range xs {
		minX = math.Min(minX, x)
		maxX = math.Max(maxX, x)
	}
	if minX == maxX {
		return nil, nil
	}

	n := len(xs)
	X := mat.NewDense(n, 1, append([]float64(nil), xs...))
	y := mat.NewDense(n, 1, append([]float64(nil), ys...))

	lr := linear.NewLinearRegression()
	if err := lr.Fit(X, y); err != nil {
		return nil, errors.Wrap(err, "fit trendline")
	}

	slope := lr.Weights.AtVec(0)

	pts := plotter.XYs{
		{X: minX, Y: slope*minX + lr.Intercept},
		{X: maxX, Y: slope*maxX + lr.Intercept},
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, errors.Wrap(err, "trendline")
	}
	return line, nil
}
