// Package client provides the HTTP clients used to reach the routing and
// prediction providers the dispatch core depends on but does not own.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RoutingClientConfig configures the HTTP client used to reach the routing
// provider (distance/time matrix and turn-by-turn directions).
type RoutingClientConfig struct {
	BaseURL         string
	MatrixTimeout   time.Duration
	DirectionsTimeout time.Duration
	MaxRetries      int
}

// DefaultRoutingClientConfig returns sane defaults for a local routing
// provider.
func DefaultRoutingClientConfig() *RoutingClientConfig {
	return &RoutingClientConfig{
		BaseURL:           "http://localhost:9001",
		MatrixTimeout:     10 * time.Second,
		DirectionsTimeout: 15 * time.Second,
		MaxRetries:        2,
	}
}

// RoutingClient is an HTTP client for a distance/time-matrix and directions
// provider. It implements the shape internal/provider.RoutingProvider wraps;
// kept here as plain data-in/data-out so it has no dependency on the VRP
// domain types.
type RoutingClient struct {
	cfg        *RoutingClientConfig
	httpClient *http.Client
}

// NewRoutingClient creates a routing-provider HTTP client.
func NewRoutingClient(cfg *RoutingClientConfig) *RoutingClient {
	if cfg == nil {
		cfg = DefaultRoutingClientConfig()
	}
	return &RoutingClient{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

// MatrixRequest asks for pairwise distances/durations between every origin
// and every destination.
type MatrixRequest struct {
	Origins      []LatLng `json:"origins"`
	Destinations []LatLng `json:"destinations"`
}

// LatLng is a plain coordinate pair, independent of the domain's Location
// type so this package stays free of a dependency on domain model.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// MatrixResponse carries one cell per (origin, destination) pair in
// origins x destinations row-major order.
type MatrixResponse struct {
	Cells []MatrixCell `json:"cells"`
}

// MatrixCell is a single distance/duration cell of a matrix response.
type MatrixCell struct {
	OriginIndex      int     `json:"origin_index"`
	DestinationIndex int     `json:"destination_index"`
	DistanceMeters   float64 `json:"distance_meters"`
	DurationSeconds  float64 `json:"duration_seconds"`
}

// Matrix requests a distance/time matrix from the provider.
func (c *RoutingClient) Matrix(ctx context.Context, req *MatrixRequest) (*MatrixResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.MatrixTimeout)
	defer cancel()

	var resp MatrixResponse
	if err := c.postJSON(ctx, "/v1/matrix", req, &resp); err != nil {
		return nil, fmt.Errorf("routing provider matrix request failed: %w", err)
	}
	return &resp, nil
}

// DirectionsRequest asks for a turn-by-turn path visiting stops in order.
type DirectionsRequest struct {
	Stops []LatLng `json:"stops"`
}

// DirectionsResponse is the ordered path geometry for a route, used when
// assembling a driver-facing route from the solver's stop sequence.
type DirectionsResponse struct {
	DistanceMeters  float64  `json:"distance_meters"`
	DurationSeconds float64  `json:"duration_seconds"`
	Polyline        string   `json:"polyline"`
}

// Directions requests the realized path for an ordered stop sequence.
func (c *RoutingClient) Directions(ctx context.Context, req *DirectionsRequest) (*DirectionsResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DirectionsTimeout)
	defer cancel()

	var resp DirectionsResponse
	if err := c.postJSON(ctx, "/v1/directions", req, &resp); err != nil {
		return nil, fmt.Errorf("routing provider directions request failed: %w", err)
	}
	return &resp, nil
}

func (c *RoutingClient) postJSON(ctx context.Context, path string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("provider returned status %d", resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
