// Package stats provides the recency-weighted numeric utilities behind the
// forecast layer: exponential-decay averages, day/night stratification,
// trend detection, and heuristic confidence scoring.
package stats

import (
	"math"
	"time"

	"github.com/lullaby-stack/care-engine/internal/models"
	"github.com/lullaby-stack/care-engine/internal/utils"
)

const (
	// DecayHalfLifeDays controls how quickly old observations lose weight.
	DecayHalfLifeDays = 7.0

	// DaytimeStart and DaytimeEnd bound the daytime band. Hard-coded
	// pediatric heuristic carried as configuration, not re-derived.
	DaytimeStart = 6.0
	DaytimeEnd   = 20.0

	// MinSplitObservations is the minimum count for a day- or night-only
	// average to be considered usable.
	MinSplitObservations = 3

	trendBand = 0.10
)

var decayConstant = math.Ln2 / DecayHalfLifeDays

// WeightedAverage computes the exponential-decay weighted mean of the
// observations relative to now. The second return is false for an empty set.
func WeightedAverage(obs []models.Observation, now time.Time) (float64, bool) {
	if len(obs) == 0 {
		return 0, false
	}
	var weightedSum, weightSum float64
	for _, o := range obs {
		weight := math.Exp(-decayConstant * float64(daysAgo(o.DateKey, now)))
		weightedSum += o.Value * weight
		weightSum += weight
	}
	if weightSum == 0 {
		return 0, false
	}
	return weightedSum / weightSum, true
}

// IsDaytime reports whether a decimal hour falls in the daytime band.
func IsDaytime(hour float64) bool {
	h := utils.NormalizeHour(hour)
	return h >= DaytimeStart && h < DaytimeEnd
}

// SplitDayNight partitions observations by the daytime band of their anchor hour.
func SplitDayNight(obs []models.Observation) (day, night []models.Observation) {
	for _, o := range obs {
		if IsDaytime(o.AnchorHour) {
			day = append(day, o)
		} else {
			night = append(night, o)
		}
	}
	return day, night
}

// Mean returns the arithmetic mean, zero for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev returns the population standard deviation over raw values.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// DetectTrend splits the chronologically ordered values at the midpoint and
// compares half means. Changes beyond ±10% classify as increasing or
// decreasing.
func DetectTrend(values []float64) models.Trend {
	if len(values) < 2 {
		return models.TrendStable
	}
	mid := len(values) / 2
	first := Mean(values[:mid])
	second := Mean(values[mid:])
	if first == 0 {
		return models.TrendStable
	}
	change := (second - first) / first
	switch {
	case change > trendBand:
		return models.TrendIncreasing
	case change < -trendBand:
		return models.TrendDecreasing
	default:
		return models.TrendStable
	}
}

// Confidence scores how much to trust a personalized estimate built from the
// observation set: base 40, up to +30 for data volume against three times the
// minimum required count, up to +20 for recency, up to +10 for consistency.
// The weights are a product heuristic with no clinical validation. An empty
// set scores a flat 20 ("no data").
func Confidence(obs []models.Observation, minRequired int, now time.Time) models.ConfidenceScore {
	if minRequired <= 0 {
		minRequired = 1
	}
	if len(obs) == 0 {
		return models.ConfidenceScore{Score: 20, Level: models.ConfidenceLow}
	}

	volume := math.Min(float64(len(obs))/float64(minRequired*3), 1) * 30

	totalDaysAgo := 0.0
	values := make([]float64, 0, len(obs))
	for _, o := range obs {
		totalDaysAgo += float64(daysAgo(o.DateKey, now))
		values = append(values, o.Value)
	}
	avgDaysAgo := totalDaysAgo / float64(len(obs))
	recency := math.Max(0, 20-(avgDaysAgo/14)*20)

	consistency := 0.0
	if mean := Mean(values); mean > 0 {
		cv := StdDev(values) / mean
		consistency = math.Max(0, 10-(cv/0.5)*10)
	}

	score := 40 + volume + recency + consistency
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	return models.ConfidenceScore{
		Score: score,
		Level: levelFor(score),
		Factors: models.ConfidenceFactors{
			DataVolume:  volume,
			Recency:     recency,
			Consistency: consistency,
		},
	}
}

func levelFor(score float64) models.ConfidenceLevel {
	switch {
	case score >= 80:
		return models.ConfidenceHigh
	case score >= 60:
		return models.ConfidenceGood
	case score >= 40:
		return models.ConfidenceModerate
	default:
		return models.ConfidenceLow
	}
}

func daysAgo(dateKey string, now time.Time) int {
	day, err := utils.ParseDateKey(dateKey)
	if err != nil {
		return 0
	}
	ago := utils.DaysBetween(day, now)
	if ago < 0 {
		return 0
	}
	return ago
}
