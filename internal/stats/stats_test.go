package stats

import (
	"testing"
	"time"

	"github.com/lullaby-stack/care-engine/internal/models"
	"github.com/lullaby-stack/care-engine/internal/utils"
)

func obsAt(value float64, daysAgo int, anchor float64, now time.Time) models.Observation {
	return models.Observation{
		Value:      value,
		DateKey:    utils.DateKey(now.AddDate(0, 0, -daysAgo)),
		AnchorHour: anchor,
	}
}

func TestWeightedAverageFavorsRecent(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	obs := []models.Observation{
		obsAt(2.0, 0, 10, now),
		obsAt(4.0, 14, 10, now),
	}

	avg, ok := WeightedAverage(obs, now)
	if !ok {
		t.Fatalf("expected average for non-empty set")
	}
	// The 14-day-old sample carries a quarter of the fresh sample's weight,
	// so the result must sit closer to 2 than the plain mean of 3.
	if avg >= 3.0 || avg <= 2.0 {
		t.Fatalf("expected average in (2,3), got %f", avg)
	}
}

func TestWeightedAverageEmpty(t *testing.T) {
	if _, ok := WeightedAverage(nil, time.Now()); ok {
		t.Fatalf("expected ok=false for empty set")
	}
}

func TestSplitDayNight(t *testing.T) {
	obs := []models.Observation{
		{AnchorHour: 5.9},
		{AnchorHour: 6.0},
		{AnchorHour: 13.0},
		{AnchorHour: 20.0},
		{AnchorHour: 23.5},
	}

	day, night := SplitDayNight(obs)
	if len(day) != 2 {
		t.Fatalf("expected 2 daytime observations, got %d", len(day))
	}
	if len(night) != 3 {
		t.Fatalf("expected 3 nighttime observations, got %d", len(night))
	}
}

func TestDetectTrend(t *testing.T) {
	if got := DetectTrend([]float64{2, 2, 3, 3}); got != models.TrendIncreasing {
		t.Fatalf("expected increasing, got %s", got)
	}
	if got := DetectTrend([]float64{3, 3, 2, 2}); got != models.TrendDecreasing {
		t.Fatalf("expected decreasing, got %s", got)
	}
	if got := DetectTrend([]float64{3, 3, 3.1, 3}); got != models.TrendStable {
		t.Fatalf("expected stable, got %s", got)
	}
	if got := DetectTrend([]float64{5}); got != models.TrendStable {
		t.Fatalf("expected stable for single value, got %s", got)
	}
}

func TestStdDevConstantSeries(t *testing.T) {
	if sd := StdDev([]float64{3, 3, 3}); sd != 0 {
		t.Fatalf("expected zero stddev, got %f", sd)
	}
}

func TestConfidenceEmptySet(t *testing.T) {
	score := Confidence(nil, 3, time.Now())
	if score.Level != models.ConfidenceLow {
		t.Fatalf("expected low confidence without data, got %s", score.Level)
	}
	if score.Score != 20 {
		t.Fatalf("expected flat score 20, got %f", score.Score)
	}
}

func TestConfidenceRichDataset(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	obs := make([]models.Observation, 0, 15)
	for i := 0; i < 15; i++ {
		obs = append(obs, obsAt(2.5, i%3, 10, now))
	}

	score := Confidence(obs, 5, now)
	if score.Level != models.ConfidenceHigh {
		t.Fatalf("expected high confidence, got %s (score %f)", score.Level, score.Score)
	}
	if score.Factors.DataVolume != 30 {
		t.Fatalf("expected saturated volume factor, got %f", score.Factors.DataVolume)
	}
	if score.Factors.Consistency != 10 {
		t.Fatalf("expected full consistency for constant series, got %f", score.Factors.Consistency)
	}
}

func TestConfidenceMonotonicInVolume(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	small := []models.Observation{obsAt(2.5, 1, 10, now), obsAt(2.5, 2, 10, now)}
	large := append([]models.Observation{}, small...)
	for i := 0; i < 10; i++ {
		large = append(large, obsAt(2.5, 1, 10, now))
	}

	if Confidence(large, 5, now).Score <= Confidence(small, 5, now).Score {
		t.Fatalf("expected more observations to score at least as high")
	}
}

func TestConfidenceStaleDataScoresLower(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	fresh := []models.Observation{obsAt(2.5, 0, 10, now), obsAt(2.5, 1, 10, now), obsAt(2.5, 1, 10, now)}
	stale := []models.Observation{obsAt(2.5, 13, 10, now), obsAt(2.5, 14, 10, now), obsAt(2.5, 14, 10, now)}

	if Confidence(stale, 3, now).Score >= Confidence(fresh, 3, now).Score {
		t.Fatalf("expected stale observations to score lower")
	}
}
