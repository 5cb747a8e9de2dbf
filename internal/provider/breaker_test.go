package provider

import (
	"testing"
	"time"
)

func TestBreaker_TripsAfterThreshold(t *testing.T) {
	b := NewBreaker(3, time.Second, 50*time.Millisecond)

	for i := 0; i < 3; i++ {
		if err := b.Allow(); err != nil {
			t.Fatalf("call %d: expected closed breaker to allow, got %v", i, err)
		}
		b.Failure()
	}

	if err := b.Allow(); err == nil {
		t.Fatal("expected breaker to be open after threshold failures")
	}
}

func TestBreaker_HalfOpenAfterCooldown(t *testing.T) {
	b := NewBreaker(1, time.Second, 20*time.Millisecond)

	_ = b.Allow()
	b.Failure()

	if err := b.Allow(); err == nil {
		t.Fatal("expected breaker to be open immediately after tripping")
	}

	time.Sleep(30 * time.Millisecond)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected a probe call to be allowed after cooldown, got %v", err)
	}
	// A second concurrent caller must not also get the probe slot.
	if err := b.Allow(); err == nil {
		t.Fatal("expected only one probe call to be allowed while half-open")
	}
}

func TestBreaker_SuccessClosesFromHalfOpen(t *testing.T) {
	b := NewBreaker(1, time.Second, 10*time.Millisecond)
	_ = b.Allow()
	b.Failure()
	time.Sleep(15 * time.Millisecond)

	if err := b.Allow(); err != nil {
		t.Fatalf("expected probe to be allowed: %v", err)
	}
	b.Success()

	if err := b.Allow(); err != nil {
		t.Fatalf("expected breaker to be closed after a successful probe: %v", err)
	}
}

func TestBreaker_FailedProbeReopens(t *testing.T) {
	b := NewBreaker(1, time.Second, 10*time.Millisecond)
	_ = b.Allow()
	b.Failure()
	time.Sleep(15 * time.Millisecond)

	_ = b.Allow()
	b.Failure()

	if err := b.Allow(); err == nil {
		t.Fatal("expected a failed probe to reopen the breaker")
	}
}

func TestBreaker_OldFailuresAgeOutOfWindow(t *testing.T) {
	b := NewBreaker(2, 20*time.Millisecond, time.Second)

	_ = b.Allow()
	b.Failure()
	time.Sleep(30 * time.Millisecond)

	_ = b.Allow()
	b.Failure()

	if err := b.Allow(); err != nil {
		t.Fatalf("expected breaker to stay closed once earlier failure aged out: %v", err)
	}
}
