package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRoutingClient_Matrix(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/matrix" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		var req MatrixRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		resp := MatrixResponse{Cells: []MatrixCell{
			{OriginIndex: 0, DestinationIndex: 0, DistanceMeters: 1000, DurationSeconds: 120},
		}}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := NewRoutingClient(&RoutingClientConfig{BaseURL: srv.URL, MatrixTimeout: 2e9})
	resp, err := c.Matrix(context.Background(), &MatrixRequest{
		Origins:      []LatLng{{Lat: 25.0, Lng: 121.5}},
		Destinations: []LatLng{{Lat: 25.1, Lng: 121.6}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resp.Cells) != 1 || resp.Cells[0].DistanceMeters != 1000 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestRoutingClient_Matrix_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewRoutingClient(&RoutingClientConfig{BaseURL: srv.URL, MatrixTimeout: 2e9})
	_, err := c.Matrix(context.Background(), &MatrixRequest{})
	if err == nil {
		t.Fatal("expected an error for a non-2xx response")
	}
}

func TestDefaultRoutingClientConfig(t *testing.T) {
	cfg := DefaultRoutingClientConfig()
	if cfg.BaseURL == "" {
		t.Error("expected a default base URL")
	}
	if cfg.MatrixTimeout <= 0 || cfg.DirectionsTimeout <= 0 {
		t.Error("expected positive default timeouts")
	}
}
