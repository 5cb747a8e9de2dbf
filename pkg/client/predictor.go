package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// PredictorClientConfig configures the HTTP client used to reach the
// external order-prediction provider.
type PredictorClientConfig struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultPredictorClientConfig returns sane defaults for a local predictor.
func DefaultPredictorClientConfig() *PredictorClientConfig {
	return &PredictorClientConfig{
		BaseURL: "http://localhost:9002",
		Timeout: 20 * time.Second,
	}
}

// PredictorClient is an HTTP client for the external order-prediction
// service. internal/predictor wraps it behind a domain-typed interface.
type PredictorClient struct {
	cfg        *PredictorClientConfig
	httpClient *http.Client
}

// NewPredictorClient creates a predictor HTTP client.
func NewPredictorClient(cfg *PredictorClientConfig) *PredictorClient {
	if cfg == nil {
		cfg = DefaultPredictorClientConfig()
	}
	return &PredictorClient{cfg: cfg, httpClient: &http.Client{}}
}

// PredictRequest asks the predictor for the customers likely to need a
// replenishment order within the given horizon.
type PredictRequest struct {
	CustomerIDs []string  `json:"customer_ids"`
	AsOf        time.Time `json:"as_of"`
	HorizonDays int       `json:"horizon_days"`
}

// PredictedOrder is one customer's predicted next order.
type PredictedOrder struct {
	CustomerID    string         `json:"customer_id"`
	ProductCounts map[string]int `json:"product_counts"`
	Confidence    float64        `json:"confidence"`
	ExpectedDate  time.Time      `json:"expected_date"`
}

// PredictResponse is the predictor's batch response.
type PredictResponse struct {
	Predictions []PredictedOrder `json:"predictions"`
}

// Predict requests predictions for a batch of customers.
func (c *PredictorClient) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/predict", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("predictor request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("predictor returned status %d", resp.StatusCode)
	}

	var out PredictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}
