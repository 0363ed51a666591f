package models

// Observation is one historical gap measurement feeding the statistics layer.
// Value is a duration in hours; AnchorHour is the decimal hour at which the
// gap began, used for day/night stratification. Observations are transient
// and never persisted.
type Observation struct {
	Value      float64
	DateKey    string
	AnchorHour float64
}

// PredictionSource labels how a forecast interval was derived.
type PredictionSource string

const (
	SourceAgeBased          PredictionSource = "age-based"
	SourcePersonalized      PredictionSource = "personalized"
	SourcePersonalizedDay   PredictionSource = "personalized-daytime"
	SourcePersonalizedNight PredictionSource = "personalized-nighttime"
)

// WindowKind distinguishes sleep and feed prediction windows.
type WindowKind string

const (
	WindowSleep WindowKind = "sleep"
	WindowFeed  WindowKind = "feed"
)

// PredictionWindow is one forecast sleep or feed interval. Start and End are
// decimal hours relative to the forecast day's midnight and may exceed 24
// when the projection crosses into the next day.
type PredictionWindow struct {
	Kind       WindowKind       `json:"kind"`
	Start      float64          `json:"start"`
	End        float64          `json:"end"`
	Source     PredictionSource `json:"source"`
	Confidence ConfidenceScore  `json:"confidence"`
}

// MinutesFromNow returns how far ahead the window opens relative to the
// supplied current decimal hour. Negative when the window already started.
func (w PredictionWindow) MinutesFromNow(nowHour float64) float64 {
	return (w.Start - nowHour) * 60
}

// Overlap returns the shared duration in hours between the window and the
// [start,end) interval, zero when disjoint.
func (w PredictionWindow) Overlap(start, end float64) float64 {
	lo := w.Start
	if start > lo {
		lo = start
	}
	hi := w.End
	if end < hi {
		hi = end
	}
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// ConfidenceLevel buckets a confidence score for display.
type ConfidenceLevel string

const (
	ConfidenceLow      ConfidenceLevel = "low"
	ConfidenceModerate ConfidenceLevel = "moderate"
	ConfidenceGood     ConfidenceLevel = "good"
	ConfidenceHigh     ConfidenceLevel = "high"
)

// ConfidenceFactors break a score into its contributing components.
type ConfidenceFactors struct {
	DataVolume  float64 `json:"dataVolume"`
	Recency     float64 `json:"recency"`
	Consistency float64 `json:"consistency"`
}

// ConfidenceScore is a heuristic 0-100 reliability estimate for a
// personalized prediction. The scoring is a product heuristic, not a
// clinically validated measure.
type ConfidenceScore struct {
	Score   float64           `json:"score"`
	Level   ConfidenceLevel   `json:"level"`
	Factors ConfidenceFactors `json:"factors"`
}

// ForecastResult bundles the projected windows with the interval and
// confidence that produced them.
type ForecastResult struct {
	Kind       WindowKind         `json:"kind"`
	Windows    []PredictionWindow `json:"windows"`
	Interval   float64            `json:"intervalHours"`
	Source     PredictionSource   `json:"source"`
	Confidence ConfidenceScore    `json:"confidence"`
}

// Trend classifies the direction of a metric across a window.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)
