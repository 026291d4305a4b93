package predict

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
)

func sampleFeatures() map[string]float64 {
	return map[string]float64{
		"LSTAT": 10, "RM": 6, "CRIM": 0.1, "PTRATIO": 15,
		"INDUS": 10, "TAX": 300, "NOX": 0.5, "B": 300,
	}
}

func TestClientPredict(t *testing.T) {
	var got map[string]float64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"prediction": 24123.5}`))
	}))
	defer srv.Close()

	logger, _ := log.NewTestLogger(log.LevelDebug)
	c := NewClient(srv.URL+"/", time.Second, logger)
	assert.Equal(t, srv.URL+"/predict", c.Endpoint())

	price, err := c.Predict(context.Background(), sampleFeatures())
	require.NoError(t, err)
	assert.Equal(t, 24123.5, price)
	assert.Equal(t, sampleFeatures(), got)
	assert.True(t, logger.ContainsMessage("Prediction received"))
}

func TestClientPredictErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, time.Second, nil)
	_, err := c.Predict(context.Background(), sampleFeatures())
	require.Error(t, err)

	var svcErr *errors.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
	assert.Equal(t, "model not loaded", svcErr.Body)
	assert.False(t, svcErr.Transport())
}

func TestClientPredictUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := NewClient(url, time.Second, nil)
	_, err := c.Predict(context.Background(), sampleFeatures())

	var svcErr *errors.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.True(t, svcErr.Transport())
	assert.Equal(t, url+"/predict", svcErr.Endpoint)
}

func TestClientPredictMalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "<html>"},
		{name: "missing field", body: `{"price": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewClient(srv.URL, time.Second, nil).Predict(context.Background(), sampleFeatures())
			var svcErr *errors.ServiceError
			require.True(t, errors.As(err, &svcErr))
			assert.Equal(t, http.StatusOK, svcErr.StatusCode)
		})
	}
}

func TestClientPredictHonoursContext(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewClient(srv.URL, 0, nil).Predict(ctx, sampleFeatures())
	var svcErr *errors.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.True(t, svcErr.Transport())
}
