package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	tracker := NewLatencyTracker(10)
	durations := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond, 40 * time.Millisecond, 50 * time.Millisecond}
	for _, d := range durations {
		tracker.Observe(d)
	}

	if tracker.Count() != len(durations) {
		t.Fatalf("expected count %d, got %d", len(durations), tracker.Count())
	}

	p95 := tracker.Percentile(95)
	if p95 < 40*time.Millisecond {
		t.Fatalf("expected percentile >= 40ms, got %v", p95)
	}
}

func TestLatencyTrackerBoundedSize(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 0; i < 10; i++ {
		tracker.Observe(time.Duration(i) * time.Millisecond)
	}
	if tracker.Count() != 3 {
		t.Fatalf("expected tracker size 3, got %d", tracker.Count())
	}
}

func TestLatencyTrackerSnapshot(t *testing.T) {
	tracker := NewLatencyTracker(10)
	for _, d := range []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 30 * time.Millisecond} {
		tracker.Observe(d)
	}

	snap := tracker.Snapshot()
	if snap.Count != 3 {
		t.Fatalf("expected 3 samples, got %d", snap.Count)
	}
	if snap.P50 != 20*time.Millisecond {
		t.Fatalf("expected p50 of 20ms, got %v", snap.P50)
	}
	if snap.P95 < snap.P50 {
		t.Fatalf("p95 below p50")
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	tracker := NewLatencyTracker(5)
	if tracker.Percentile(50) != 0 {
		t.Fatalf("expected zero percentile without samples")
	}
}
