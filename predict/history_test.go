package predict

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/houseprice/core/artifact"
	"github.com/YuminosukeSato/houseprice/pkg/errors"
)

func filledHistory() *History {
	h := NewHistory([]string{"RM", "CRIM"})
	h.Append(Record{Features: map[string]float64{"RM": 3.5, "CRIM": 1}, Prediction: 10000})
	h.Append(Record{Features: map[string]float64{"RM": 5, "CRIM": 0.5}, Prediction: 20000})
	h.Append(Record{Features: map[string]float64{"RM": 6.2, "CRIM": 0.2}, Prediction: 30000})
	h.Append(Record{Features: map[string]float64{"RM": 6.8, "CRIM": 0.1}, Prediction: 36000})
	h.Append(Record{Features: map[string]float64{"RM": 8.5, "CRIM": 0}, Prediction: 50000})
	h.Append(Record{Features: map[string]float64{"RM": 9.5, "CRIM": 0}, Prediction: 64000})
	return h
}

func TestHistoryRecentNewestFirst(t *testing.T) {
	h := filledHistory()

	recent := h.Recent(5)
	require.Len(t, recent, 5)
	assert.Equal(t, 64000.0, recent[0].Prediction)
	assert.Equal(t, 20000.0, recent[4].Prediction)

	assert.Len(t, h.Recent(10), 6)
	assert.Equal(t, 10000.0, h.Records()[0].Prediction, "Recent must not reorder the history")
}

func TestHistoryStats(t *testing.T) {
	assert.Equal(t, Stats{}, NewHistory(nil).Stats())

	s := filledHistory().Stats()
	assert.Equal(t, 6, s.Count)
	assert.InDelta(t, 35000, s.Average, 1e-9)
	assert.Equal(t, 64000.0, s.Highest)
	assert.Equal(t, 10000.0, s.Lowest)
}

func TestHistoryRoomRanges(t *testing.T) {
	bins := filledHistory().RoomRanges("RM")
	require.Len(t, bins, 6)

	labels := make([]string, len(bins))
	for i, b := range bins {
		labels[i] = b.Label
	}
	assert.Equal(t, []string{"2-4", "4-5", "5-6", "6-7", "7-8", "8-9"}, labels)

	assert.Equal(t, []float64{10000}, bins[0].Prices)
	assert.Equal(t, []float64{20000}, bins[1].Prices, "upper edge is inclusive")
	assert.Empty(t, bins[2].Prices)
	assert.Equal(t, []float64{30000, 36000}, bins[3].Prices)
	assert.Empty(t, bins[4].Prices)
	assert.Equal(t, []float64{50000}, bins[5].Prices)
}

func TestHistoryAppendCopiesFeatures(t *testing.T) {
	h := NewHistory(nil)
	f := map[string]float64{"RM": 6}
	h.Append(Record{Features: f, Prediction: 1})
	f["RM"] = 99
	assert.Equal(t, 6.0, h.Records()[0].Features["RM"])

	h.Clear()
	assert.Equal(t, 0, h.Len())
}

func TestHistoryCSVRoundTrip(t *testing.T) {
	h := filledHistory()

	var buf bytes.Buffer
	require.NoError(t, h.WriteCSV(&buf))
	assert.Equal(t, "prediction,RM,CRIM\n10000,3.5,1\n", buf.String()[:len("prediction,RM,CRIM\n10000,3.5,1\n")])

	loaded := NewHistory(nil)
	require.NoError(t, loaded.ReadCSV(bytes.NewReader(buf.Bytes())))
	assert.Equal(t, h.Records(), loaded.Records())
}

func TestHistoryReadCSVErrors(t *testing.T) {
	var dataErr *errors.DataError

	err := NewHistory(nil).ReadCSV(bytes.NewBufferString("RM,prediction\n6,1\n"))
	assert.True(t, errors.As(err, &dataErr))

	err = NewHistory(nil).ReadCSV(bytes.NewBufferString("prediction,RM\n1,abc\n"))
	require.True(t, errors.As(err, &dataErr))
	assert.Equal(t, []string{"RM"}, dataErr.Columns)
}

func TestHistoryStoreRoundTrip(t *testing.T) {
	store := artifact.NewMemoryStore()

	empty, err := LoadHistory(store, "data/predictions.csv", []string{"RM", "CRIM"})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())

	require.NoError(t, SaveHistory(store, "data/predictions.csv", filledHistory()))
	loaded, err := LoadHistory(store, "data/predictions.csv", []string{"RM", "CRIM"})
	require.NoError(t, err)
	assert.Equal(t, 6, loaded.Len())
	assert.Equal(t, 64000.0, loaded.Recent(1)[0].Prediction)
}
