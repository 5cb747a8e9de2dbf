package provider

import (
	"context"
	"testing"
	"time"
)

func TestFakePredictor_Predict(t *testing.T) {
	target := time.Now()
	p := NewFakePredictor(map[string]Prediction{
		"cust-1": {CustomerID: "cust-1", Confidence: 0.9},
	})

	out, err := p.Predict(context.Background(), []string{"cust-1", "cust-2"}, target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected only the seeded customer to be predicted, got %d", len(out))
	}
	if out[0].CustomerID != "cust-1" || out[0].TargetDate != target {
		t.Errorf("unexpected prediction: %+v", out[0])
	}
}
