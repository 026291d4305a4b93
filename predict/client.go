// Package predict talks to the external prediction service and keeps the
// history of predictions made in a session.
package predict

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/YuminosukeSato/houseprice/pkg/errors"
	"github.com/YuminosukeSato/houseprice/pkg/log"
)

// maxErrorBody bounds how much of a failed response body is kept.
const maxErrorBody = 4096

// Client posts feature values to POST {base}/predict.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     log.Logger
}

// NewClient creates a client for the service at baseURL. A zero timeout
// leaves the request bounded only by the caller's context.
func NewClient(baseURL string, timeout time.Duration, logger log.Logger) *Client {
	if logger == nil {
		logger = log.Nop()
	}
	httpClient := cleanhttp.DefaultClient()
	httpClient.Timeout = timeout
	return &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + "/predict",
		httpClient: httpClient,
		logger:     logger.With(log.ComponentKey, "predict.client"),
	}
}

// Endpoint returns the full prediction URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type predictResponse struct {
	Prediction *float64 `json:"prediction"`
}

// Predict sends one feature map and returns the predicted price. It makes a
// single attempt; any transport failure or non-200 status is a ServiceError.
func (c *Client) Predict(ctx context.Context, features map[string]float64) (float64, error) {
	body, err := json.Marshal(features)
	if err != nil {
		return 0, errors.Wrap(err, "encode prediction request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, errors.NewServiceError(c.endpoint, 0, "", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Error connecting to the prediction service", err, log.EndpointKey, c.endpoint)
		return 0, errors.NewServiceError(c.endpoint, 0, "", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		err := errors.NewServiceError(c.endpoint, resp.StatusCode, strings.TrimSpace(string(msg)), nil)
		c.logger.Error("Prediction service returned an error", err,
			log.EndpointKey, c.endpoint,
			log.StatusCodeKey, resp.StatusCode,
		)
		return 0, err
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, errors.NewServiceError(c.endpoint, resp.StatusCode, "", errors.Wrap(err, "decode prediction response"))
	}
	if out.Prediction == nil || math.IsNaN(*out.Prediction) || math.IsInf(*out.Prediction, 0) {
		return 0, errors.NewServiceError(c.endpoint, resp.StatusCode, "", errors.New("response has no numeric 'prediction'"))
	}

	c.logger.Debug("Prediction received",
		log.EndpointKey, c.endpoint,
		log.PredictionKey, *out.Prediction,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return *out.Prediction, nil
}
