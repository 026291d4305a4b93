// Package dashboard renders the overview, analytics and prediction pages as
// text tables with PNG charts written next to them.
package dashboard

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/samber/lo"
	"gonum.org/v1/plot"

	"github.com/YuminosukeSato/houseprice/config"
	"github.com/YuminosukeSato/houseprice/core/artifact"
	"github.com/YuminosukeSato/houseprice/dataset"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
	"github.com/YuminosukeSato/houseprice/predict"
	"github.com/YuminosukeSato/houseprice/training"
)

// Chart file names.
const (
	PriceDistributionChart = "price_distribution.png"
	PriceByRoomsChart      = "price_by_rooms.png"
	FeatureDistribution    = "distribution_%s.png"
	FeatureVsTargetChart   = "%s_vs_%s.png"
	ImportanceChart        = "feature_importance.png"
	HistoryScatterChart    = "predictions_vs_rooms.png"
	HistoryRoomRangeChart  = "predictions_by_room_range.png"
)

// Feature names the history view reads from each record.
const (
	roomsFeature = "RM"
	crimeFeature = "CRIM"
	taxFeature   = "TAX"
)

// TrainFirstMessage is shown when evaluation artifacts are missing.
const TrainFirstMessage = "Model metrics and feature importance not available. Please train the model first."

// Predictor is the prediction service as seen by the form.
type Predictor interface {
	Predict(ctx context.Context, features map[string]float64) (float64, error)
}

// Dashboard renders pages to out. Charts go to the store under the chart
// directory; an empty directory disables them.
type Dashboard struct {
	cfg      config.Config
	store    artifact.Store
	out      io.Writer
	logger   log.Logger
	chartDir string
}

// New creates a dashboard over the artifacts in store.
func New(cfg config.Config, store artifact.Store, out io.Writer, logger log.Logger) *Dashboard {
	if logger == nil {
		logger = log.Nop()
	}
	return &Dashboard{
		cfg:    cfg,
		store:  store,
		out:    out,
		logger: logger.With(log.ComponentKey, "dashboard"),
	}
}

// WithCharts sets the directory charts are written to.
func (d *Dashboard) WithCharts(dir string) *Dashboard {
	d.chartDir = dir
	return d
}

// Overview renders dataset size, average price, the feature descriptions, a
// sample of rows and the price charts.
func (d *Dashboard) Overview() error {
	t, err := dataset.Load(d.store, d.cfg.Paths.Dataset)
	if err != nil {
		return err
	}
	avg, err := t.Mean(d.cfg.Target)
	if err != nil {
		return err
	}

	d.heading("Boston House Price Prediction")
	d.printf("Total Houses:   %d\n", t.Len())
	d.printf("Average Price:  %s\n", formatPrice(avg))
	d.printf("Features:       %d\n", len(d.cfg.Features))

	d.heading("Feature Descriptions")
	desc := newTable()
	desc.AppendHeader(table.Row{"Feature", "Description"})
	for _, f := range d.cfg.Features {
		desc.AppendRow(table.Row{f.Name, f.Description})
	}
	d.render(desc)

	d.heading("Sample Data")
	d.render(rowsTable(t.Head(5)))

	prices, err := t.Column(d.cfg.Target)
	if err != nil {
		return err
	}
	if err := d.chart(PriceDistributionChart, func() (*plot.Plot, error) {
		return Histogram("House Price Distribution", d.cfg.Target, prices, 30)
	}); err != nil {
		return err
	}
	if t.Has(roomsFeature) {
		rooms, err := t.Column(roomsFeature)
		if err != nil {
			return err
		}
		if err := d.chart(PriceByRoomsChart, func() (*plot.Plot, error) {
			return BoxPlot("Price Distribution by Number of Rooms", roomsFeature, d.cfg.Target,
				GroupByRounded(rooms, prices))
		}); err != nil {
			return err
		}
	}
	return nil
}

// Analytics renders describe() of feature, the correlation matrix over the
// features and target, and the model performance section. An empty feature
// selects the first configured one.
func (d *Dashboard) Analytics(feature string) error {
	names := d.cfg.FeatureNames()
	if feature == "" && len(names) > 0 {
		feature = names[0]
	}
	if !lo.Contains(names, feature) {
		return errors.NewValidationError("feature", "must be one of "+strings.Join(names, ", "), feature)
	}

	t, err := dataset.Load(d.store, d.cfg.Paths.Dataset)
	if err != nil {
		return err
	}

	d.heading("Data Distribution Analysis: " + feature)
	s, err := t.Describe(feature)
	if err != nil {
		return err
	}
	desc := newTable()
	desc.AppendHeader(table.Row{"Statistic", feature})
	desc.AppendRows([]table.Row{
		{"count", s.Count},
		{"mean", fmt.Sprintf("%.4f", s.Mean)},
		{"std", fmt.Sprintf("%.4f", s.Std)},
		{"min", fmt.Sprintf("%.4f", s.Min)},
		{"25%", fmt.Sprintf("%.4f", s.Q25)},
		{"50%", fmt.Sprintf("%.4f", s.Median)},
		{"75%", fmt.Sprintf("%.4f", s.Q75)},
		{"max", fmt.Sprintf("%.4f", s.Max)},
	})
	d.render(desc)

	d.heading("Feature Correlation Matrix")
	cols := append(append([]string(nil), names...), d.cfg.Target)
	corr, err := t.Correlation(cols...)
	if err != nil {
		return err
	}
	ct := newTable()
	header := table.Row{""}
	for _, c := range cols {
		header = append(header, c)
	}
	ct.AppendHeader(header)
	for i, c := range cols {
		row := table.Row{c}
		for j := range cols {
			row = append(row, fmt.Sprintf("%.2f", corr.At(i, j)))
		}
		ct.AppendRow(row)
	}
	d.render(ct)

	values, err := t.Column(feature)
	if err != nil {
		return err
	}
	target, err := t.Column(d.cfg.Target)
	if err != nil {
		return err
	}
	if err := d.chart(fmt.Sprintf(FeatureDistribution, feature), func() (*plot.Plot, error) {
		return Histogram("Distribution of "+feature, feature, values, 30)
	}); err != nil {
		return err
	}
	if err := d.chart(fmt.Sprintf(FeatureVsTargetChart, feature, d.cfg.Target), func() (*plot.Plot, error) {
		return Scatter(feature+" vs "+d.cfg.Target, feature, d.cfg.Target, values, target, true)
	}); err != nil {
		return err
	}

	return d.performance()
}

func (d *Dashboard) performance() error {
	d.heading("Model Performance")

	m, err := training.LoadMetrics(d.cfg, d.store)
	if err == nil {
		var fi training.FeatureImportance
		fi, err = training.LoadImportance(d.cfg, d.store)
		if err == nil {
			return d.renderPerformance(m, fi)
		}
	}
	if artifact.IsNotFound(err) {
		d.logger.Warn("Evaluation artifacts missing", log.StageKey, "analytics")
		d.printf("WARNING: %s\n", TrainFirstMessage)
		return nil
	}
	return err
}

func (d *Dashboard) renderPerformance(m training.Metrics, fi training.FeatureImportance) error {
	d.printf("Test R² Score:  %.4f\n", m.TestR2)
	d.printf("Test RMSE:      %s\n", formatPrice(m.TestRMSE))
	d.printf("Test MAE:       %s\n", formatPrice(m.TestMAE))

	d.heading("Training vs Testing Performance")
	mt := newTable()
	mt.AppendHeader(table.Row{"Metric", "Training", "Testing"})
	mt.AppendRows([]table.Row{
		{"R²", fmt.Sprintf("%.4f", m.TrainR2), fmt.Sprintf("%.4f", m.TestR2)},
		{"RMSE", fmt.Sprintf("%.4f", m.TrainRMSE), fmt.Sprintf("%.4f", m.TestRMSE)},
		{"MAE", fmt.Sprintf("%.4f", m.TrainMAE), fmt.Sprintf("%.4f", m.TestMAE)},
	})
	d.render(mt)

	ranked := fi.Ranked()
	d.heading("Top Features")
	tt := newTable()
	tt.AppendHeader(table.Row{"Feature", "Importance (%)"})
	for _, r := range ranked[:min(3, len(ranked))] {
		tt.AppendRow(table.Row{r.Feature, fmt.Sprintf("%.2f", r.Score*100)})
	}
	d.render(tt)

	d.heading("Feature Importance Distribution")
	dt := newTable()
	dt.AppendHeader(table.Row{"Feature", "Importance", "Share"})
	for _, r := range ranked {
		dt.AppendRow(table.Row{r.Feature, fmt.Sprintf("%.4f", r.Score), shareBar(r.Score)})
	}
	d.render(dt)

	// Bars are drawn bottom up, so the most important feature ends on top.
	names := make([]string, len(ranked))
	scores := make([]float64, len(ranked))
	for i, r := range ranked {
		names[len(ranked)-1-i] = r.Feature
		scores[len(ranked)-1-i] = r.Score
	}
	return d.chart(ImportanceChart, func() (*plot.Plot, error) {
		return ImportanceBars(names, scores)
	})
}

// Predict validates input, asks svc for a price and appends the result to
// history on success.
func (d *Dashboard) Predict(ctx context.Context, svc Predictor, history *predict.History, input map[string]float64) (float64, error) {
	if err := ValidateInput(input); err != nil {
		return 0, err
	}

	price, err := svc.Predict(ctx, input)
	if err != nil {
		return 0, err
	}
	history.Append(predict.Record{Features: input, Prediction: price})
	d.logger.Info("Prediction made", log.PredictionKey, price)

	d.heading("Predicted House Price: " + formatPrice(price))
	ft := newTable()
	ft.AppendHeader(table.Row{"Feature", "Value"})
	for _, f := range Fields {
		ft.AppendRow(table.Row{f.Name, formatNumber(input[f.Name])})
	}
	d.render(ft)
	return price, nil
}

// History renders the five most recent predictions, the summary statistics
// and the history charts.
func (d *Dashboard) History(history *predict.History) error {
	if history.Len() == 0 {
		d.printf("No predictions made yet. Use the predict command to make predictions.\n")
		return nil
	}

	d.heading("Recent Predictions")
	rt := newTable()
	rt.AppendHeader(table.Row{"#", "Price", "Rooms", "Crime Rate", "Tax Rate"})
	total := history.Len()
	for i, r := range history.Recent(5) {
		rt.AppendRow(table.Row{
			fmt.Sprintf("Prediction %d", total-i),
			formatPrice(r.Prediction),
			featureValue(r, roomsFeature, "%.1f"),
			featureValue(r, crimeFeature, "%.4f"),
			featureValue(r, taxFeature, "%.1f"),
		})
	}
	d.render(rt)

	d.heading("Prediction Statistics")
	s := history.Stats()
	st := newTable()
	st.AppendHeader(table.Row{"Average Price", "Highest Price", "Lowest Price", "Total Predictions"})
	st.AppendRow(table.Row{formatPrice(s.Average), formatPrice(s.Highest), formatPrice(s.Lowest), s.Count})
	d.render(st)

	var rooms, prices []float64
	for _, r := range history.Records() {
		if rm, ok := r.Features[roomsFeature]; ok {
			rooms = append(rooms, rm)
			prices = append(prices, r.Prediction)
		}
	}
	if len(rooms) == 0 {
		return nil
	}
	if err := d.chart(HistoryScatterChart, func() (*plot.Plot, error) {
		return Scatter("Predicted Price vs Number of Rooms", "Number of Rooms", "Predicted Price ($)", rooms, prices, false)
	}); err != nil {
		return err
	}

	ranges := history.RoomRanges(roomsFeature)
	groups := make([]Group, len(ranges))
	for i, r := range ranges {
		groups[i] = Group{Label: r.Label, Values: r.Prices}
	}
	return d.chart(HistoryRoomRangeChart, func() (*plot.Plot, error) {
		return BoxPlot("Price Distribution by Room Ranges", "Room Ranges", "Predicted Price ($)", groups)
	})
}

// ExportHistory writes the history as CSV to key.
func (d *Dashboard) ExportHistory(history *predict.History, key string) error {
	if err := predict.SaveHistory(d.store, key, history); err != nil {
		return err
	}
	d.printf("Prediction history exported to %s\n", key)
	return nil
}

// chart builds a chart and saves it under the chart directory. Charts that
// have nothing to draw are skipped.
func (d *Dashboard) chart(name string, build func() (*plot.Plot, error)) error {
	if d.chartDir == "" {
		return nil
	}
	p, err := build()
	if err != nil {
		var valErr *errors.ValueError
		if errors.As(err, &valErr) {
			d.logger.Debug("Chart skipped", log.ArtifactKey, name, "reason", valErr.Error())
			return nil
		}
		return err
	}
	key := filepath.Join(d.chartDir, name)
	if err := SaveChart(d.store, key, p); err != nil {
		return err
	}
	d.logger.Debug("Chart saved", log.ArtifactKey, key)
	d.printf("Chart saved: %s\n", key)
	return nil
}

func (d *Dashboard) heading(title string) {
	d.printf("\n== %s ==\n", title)
}

func (d *Dashboard) printf(format string, args ...any) {
	fmt.Fprintf(d.out, format, args...)
}

func (d *Dashboard) render(t table.Writer) {
	fmt.Fprintln(d.out, t.Render())
}

// newTable returns a light-style table that keeps header case as written.
func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.Style().Format.Header = text.FormatDefault
	return t
}

func rowsTable(t *dataset.Table) table.Writer {
	out := newTable()
	header := table.Row{""}
	for _, h := range t.Header() {
		header = append(header, h)
	}
	out.AppendHeader(header)
	for i := 0; i < t.Len(); i++ {
		row := table.Row{i}
		for _, h := range t.Header() {
			v, _ := t.Value(i, h)
			row = append(row, formatNumber(v))
		}
		out.AppendRow(row)
	}
	return out
}

func featureValue(r predict.Record, name, format string) string {
	v, ok := r.Features[name]
	if !ok {
		return "-"
	}
	return fmt.Sprintf(format, v)
}

func shareBar(score float64) string {
	return strings.Repeat("█", int(score*40+0.5))
}
