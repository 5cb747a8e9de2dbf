package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestPredictorClient_Predict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req PredictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(req.CustomerIDs) != 1 {
			t.Errorf("expected 1 customer id, got %d", len(req.CustomerIDs))
		}
		resp := PredictResponse{Predictions: []PredictedOrder{
			{CustomerID: req.CustomerIDs[0], Confidence: 0.8},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewPredictorClient(&PredictorClientConfig{BaseURL: srv.URL, Timeout: 2 * time.Second})
	resp, err := c.Predict(context.Background(), &PredictRequest{
		CustomerIDs: []string{"cust-1"},
		AsOf:        time.Now(),
		HorizonDays: 7,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Predictions) != 1 || resp.Predictions[0].Confidence != 0.8 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestDefaultPredictorClientConfig(t *testing.T) {
	cfg := DefaultPredictorClientConfig()
	if cfg.BaseURL == "" {
		t.Error("expected a default base URL")
	}
	if cfg.Timeout <= 0 {
		t.Error("expected a positive default timeout")
	}
}
