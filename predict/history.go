package predict

import (
	"bytes"
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"sync"

	"github.com/samber/lo"

	"github.com/YuminosukeSato/houseprice/core/artifact"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

// PredictionColumn is the CSV header of the predicted price.
const PredictionColumn = "prediction"

// Record is one submitted form and the price the service returned.
type Record struct {
	Features   map[string]float64
	Prediction float64
}

// Stats summarises the predictions in a history.
type Stats struct {
	Count   int
	Average float64
	Highest float64
	Lowest  float64
}

// RoomRange is a right-inclusive bin of the RM feature, like (4, 5].
type RoomRange struct {
	Label  string
	Low    float64
	High   float64
	Prices []float64
}

var roomEdges = []float64{2, 4, 5, 6, 7, 8, 9}

// History accumulates predictions in submission order. It is safe for
// concurrent use.
type History struct {
	mu       sync.RWMutex
	features []string
	records  []Record
}

// NewHistory creates an empty history whose CSV columns follow features.
func NewHistory(features []string) *History {
	return &History{features: append([]string(nil), features...)}
}

// Append adds a record to the end of the history.
func (h *History) Append(r Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = append(h.records, Record{Features: lo.Assign(r.Features), Prediction: r.Prediction})
}

// Clear removes all records.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records = nil
}

// Len returns the number of records.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.records)
}

// Records returns a copy of all records, oldest first.
func (h *History) Records() []Record {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]Record(nil), h.records...)
}

// Recent returns up to n records, newest first.
func (h *History) Recent(n int) []Record {
	recs := h.Records()
	if n < len(recs) {
		recs = recs[len(recs)-n:]
	}
	return lo.Reverse(recs)
}

// Stats returns the summary statistics. The zero value is returned for an
// empty history.
func (h *History) Stats() Stats {
	prices := lo.Map(h.Records(), func(r Record, _ int) float64 { return r.Prediction })
	if len(prices) == 0 {
		return Stats{}
	}
	return Stats{
		Count:   len(prices),
		Average: lo.Sum(prices) / float64(len(prices)),
		Highest: lo.Max(prices),
		Lowest:  lo.Min(prices),
	}
}

// RoomRanges groups predicted prices into the 2-4, 4-5, ..., 8-9 room bins.
// Records without an RM value or outside (2, 9] are left out.
func (h *History) RoomRanges(feature string) []RoomRange {
	bins := make([]RoomRange, len(roomEdges)-1)
	for i := range bins {
		low, high := roomEdges[i], roomEdges[i+1]
		bins[i] = RoomRange{
			Label: strconv.FormatFloat(low, 'f', -1, 64) + "-" + strconv.FormatFloat(high, 'f', -1, 64),
			Low:   low,
			High:  high,
		}
	}
	for _, r := range h.Records() {
		rm, ok := r.Features[feature]
		if !ok {
			continue
		}
		for i := range bins {
			if rm > bins[i].Low && rm <= bins[i].High {
				bins[i].Prices = append(bins[i].Prices, r.Prediction)
				break
			}
		}
	}
	return bins
}

func (h *History) columns() []string {
	if len(h.features) > 0 {
		return h.features
	}
	// Without a configured order, fall back to the sorted union of keys.
	seen := map[string]struct{}{}
	for _, r := range h.records {
		for k := range r.Features {
			seen[k] = struct{}{}
		}
	}
	cols := lo.Keys(seen)
	sort.Strings(cols)
	return cols
}

// WriteCSV writes a header of prediction plus the feature columns, then one
// row per record, oldest first.
func (h *History) WriteCSV(w io.Writer) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cols := h.columns()
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{PredictionColumn}, cols...)); err != nil {
		return errors.Wrap(err, "write history header")
	}
	for _, r := range h.records {
		row := make([]string, 0, len(cols)+1)
		row = append(row, strconv.FormatFloat(r.Prediction, 'f', -1, 64))
		for _, c := range cols {
			v, ok := r.Features[c]
			if !ok {
				row = append(row, "")
				continue
			}
			row = append(row, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrap(err, "write history row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flush history")
}

// ReadCSV replaces the history with the rows written by WriteCSV.
func (h *History) ReadCSV(r io.Reader) error {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return errors.NewDataError("load", "malformed history file: "+err.Error())
	}
	if len(rows) == 0 {
		h.Clear()
		return nil
	}

	header := rows[0]
	if len(header) == 0 || header[0] != PredictionColumn {
		return errors.NewDataError("load", "history file must start with a 'prediction' column")
	}

	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		price, err := strconv.ParseFloat(row[0], 64)
		if err != nil {
			return errors.NewRowDataError("load", PredictionColumn, i, "not a number")
		}
		rec := Record{Features: make(map[string]float64, len(header)-1), Prediction: price}
		for j, name := range header[1:] {
			cell := row[j+1]
			if cell == "" {
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				return errors.NewRowDataError("load", name, i, "not a number")
			}
			rec.Features[name] = v
		}
		records = append(records, rec)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.features) == 0 {
		h.features = append([]string(nil), header[1:]...)
	}
	h.records = records
	return nil
}

// LoadHistory reads the history stored under key. A missing key yields an
// empty history.
func LoadHistory(store artifact.Store, key string, features []string) (*History, error) {
	h := NewHistory(features)
	data, err := store.Load(key)
	if err != nil {
		if artifact.IsNotFound(err) {
			return h, nil
		}
		return nil, err
	}
	if err := h.ReadCSV(bytes.NewReader(data)); err != nil {
		return nil, errors.Wrapf(err, "read history %s", key)
	}
	return h, nil
}

// SaveHistory writes the history to key as CSV.
func SaveHistory(store artifact.Store, key string, h *History) error {
	var buf bytes.Buffer
	if err := h.WriteCSV(&buf); err != nil {
		return err
	}
	return store.Save(key, buf.Bytes())
}
