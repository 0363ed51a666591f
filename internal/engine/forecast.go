package engine

import (
	"log/slog"
	"math"
	"time"

	"github.com/lullaby-stack/care-engine/internal/extractors"
	"github.com/lullaby-stack/care-engine/internal/models"
	"github.com/lullaby-stack/care-engine/internal/profiles"
	"github.com/lullaby-stack/care-engine/internal/stats"
	"github.com/lullaby-stack/care-engine/internal/utils"
)

const (
	// Minimum observation counts below which forecasts fall back to the
	// age guideline midpoint.
	minSleepObservations = 3
	minFeedObservations  = 5

	// Blend ratio between the personalized estimate and the age midpoint.
	personalWeight  = 0.7
	guidelineWeight = 0.3

	// Safety rail keeping personalization inside the guideline envelope.
	clampLowFactor  = 0.9
	clampHighFactor = 1.1

	// Windows starting more than this far in the past are not emitted.
	pastGraceHours = 0.25

	// Hard cap on projection steps regardless of interval or horizon.
	maxForecastSteps = 48

	// DefaultHorizonHours bounds projections when the caller passes zero.
	DefaultHorizonHours = 24.0

	feedWindowHours     = 0.5
	minSleepWindowHours = 0.5
)

// Forecaster projects future sleep and feed windows from the event history,
// blending recency-weighted personal statistics with age-based guidelines.
type Forecaster struct {
	logger       *slog.Logger
	profiles     *profiles.Table
	extractor    *extractors.EventExtractor
	lookbackDays int
}

// NewForecaster constructs a forecaster over the supplied guideline table.
func NewForecaster(logger *slog.Logger, table *profiles.Table, lookbackDays int) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}
	if lookbackDays <= 0 {
		lookbackDays = extractors.DefaultLookbackDays
	}
	return &Forecaster{
		logger:       logger,
		profiles:     table,
		extractor:    extractors.NewEventExtractor(),
		lookbackDays: lookbackDays,
	}
}

// PredictFeed projects feed windows from now until now+horizonHours.
func (f *Forecaster) PredictFeed(records map[string]models.DayRecord, ageDays int, now time.Time, horizonHours float64) models.ForecastResult {
	if horizonHours <= 0 {
		horizonHours = DefaultHorizonHours
	}
	nowHour := utils.DecimalHour(now)
	profile := f.profiles.ForAge(ageDays)

	obs := f.extractor.GapObservations(records, models.EventFeed, f.lookbackDays, now)
	model := newIntervalModel(obs, profile.FeedInterval, minFeedObservations, now)
	confidence := stats.Confidence(obs, minFeedObservations, now)

	anchor := f.anchorHour(records, models.EventFeed, now, model.at(nowHour))
	limit := nowHour + horizonHours

	windows := make([]models.PredictionWindow, 0)
	t := anchor
	for step := 0; step < maxForecastSteps; step++ {
		t += model.at(t)
		if t > limit {
			break
		}
		if t < nowHour-pastGraceHours {
			continue
		}
		windows = append(windows, models.PredictionWindow{
			Kind:       models.WindowFeed,
			Start:      t,
			End:        t + feedWindowHours,
			Source:     model.source(t),
			Confidence: confidence,
		})
	}

	return models.ForecastResult{
		Kind:       models.WindowFeed,
		Windows:    windows,
		Interval:   model.at(nowHour),
		Source:     model.source(nowHour),
		Confidence: confidence,
	}
}

// PredictSleep projects sleep windows from now until now+horizonHours.
// Sleep windows are anchored to predicted feed boundaries: each opens a
// short post-feed awake offset after a feed ends and closes at the next
// feed or after a typical nap length, whichever comes first.
func (f *Forecaster) PredictSleep(records map[string]models.DayRecord, ageDays int, now time.Time, horizonHours float64) models.ForecastResult {
	if horizonHours <= 0 {
		horizonHours = DefaultHorizonHours
	}
	nowHour := utils.DecimalHour(now)
	profile := f.profiles.ForAge(ageDays)

	obs := f.extractor.GapObservations(records, models.EventSleep, f.lookbackDays, now)
	model := newIntervalModel(obs, profile.WakeWindow, minSleepObservations, now)
	confidence := stats.Confidence(obs, minSleepObservations, now)

	wakeInterval := model.at(nowHour)
	napCap := maxNapHours(ageDays)
	typicalNap := math.Min(typicalNapHours(profile), napCap)
	offset := postFeedAwakeHours(ageDays, wakeInterval)

	feeds := f.PredictFeed(records, ageDays, now, horizonHours).Windows
	active, hasActive := f.extractor.ActiveSleep(records, now)
	limit := nowHour + horizonHours

	windows := make([]models.PredictionWindow, 0)
	if len(feeds) == 0 {
		windows = f.walkSleep(records, model, typicalNap, now, limit, confidence)
	}
	for i, feed := range feeds {
		start := feed.End + offset
		end := start + typicalNap
		if i+1 < len(feeds) && feeds[i+1].Start < end {
			end = feeds[i+1].Start
		}
		if end-start < minSleepWindowHours {
			continue
		}
		if start < nowHour-pastGraceHours || start > limit {
			continue
		}
		if hasActive && start < nowHour && end > active.Start {
			continue
		}
		windows = append(windows, models.PredictionWindow{
			Kind:       models.WindowSleep,
			Start:      start,
			End:        end,
			Source:     model.source(start),
			Confidence: confidence,
		})
	}

	return models.ForecastResult{
		Kind:       models.WindowSleep,
		Windows:    windows,
		Interval:   wakeInterval,
		Source:     model.source(nowHour),
		Confidence: confidence,
	}
}

// walkSleep is the plain interval projection used when no feed windows are
// available to anchor against.
func (f *Forecaster) walkSleep(records map[string]models.DayRecord, model intervalModel, napHours float64, now time.Time, limit float64, confidence models.ConfidenceScore) []models.PredictionWindow {
	nowHour := utils.DecimalHour(now)
	anchor := f.anchorHour(records, models.EventSleep, now, model.at(nowHour))

	windows := make([]models.PredictionWindow, 0)
	t := anchor
	for step := 0; step < maxForecastSteps; step++ {
		t += model.at(t)
		if t > limit {
			break
		}
		if t < nowHour-pastGraceHours {
			continue
		}
		windows = append(windows, models.PredictionWindow{
			Kind:       models.WindowSleep,
			Start:      t,
			End:        t + napHours,
			Source:     model.source(t),
			Confidence: confidence,
		})
	}
	return windows
}

// anchorHour picks the projection origin: the last matching event today,
// else yesterday expressed as a negative offset, else now minus one interval.
func (f *Forecaster) anchorHour(records map[string]models.DayRecord, kind models.EventType, now time.Time, interval float64) float64 {
	nowHour := utils.DecimalHour(now)
	last, ok := f.extractor.LastEvent(records, kind, now)
	if !ok {
		return nowHour - interval
	}
	if last.DateKey == utils.DateKey(now) {
		return last.Event.Start
	}
	return last.Event.Start - 24
}

// postFeedAwakeHours returns the fixed awake offset between a feed ending
// and the following sleep window opening.
func postFeedAwakeHours(ageDays int, wakeWindow float64) float64 {
	switch {
	case ageDays < 56:
		return 0.25
	case ageDays < 112:
		return 0.5
	default:
		return 0.4 * wakeWindow
	}
}

// maxNapHours caps a projected nap by age.
func maxNapHours(ageDays int) float64 {
	switch {
	case ageDays < 56:
		return 4
	case ageDays < 112:
		return 3
	default:
		return 2.5
	}
}

// typicalNapHours estimates a nap length from the guideline table: total
// daily sleep spread across the expected naps plus the night stretch.
func typicalNapHours(profile profiles.AgeProfile) float64 {
	sessions := profile.NapsPerDay.Mid() + 1
	if sessions <= 0 {
		sessions = 1
	}
	return profile.TotalSleep.Mid() / sessions
}

// intervalModel resolves the effective projection interval for any hour of
// day, blending personalized weighted averages with the age guideline and
// clamping the result to the guideline envelope.
type intervalModel struct {
	guideline profiles.Range
	personal  bool
	overall   float64
	day       float64
	dayOK     bool
	night     float64
	nightOK   bool
}

func newIntervalModel(obs []models.Observation, guideline profiles.Range, minRequired int, now time.Time) intervalModel {
	m := intervalModel{guideline: guideline}
	if len(obs) < minRequired {
		return m
	}

	overall, ok := stats.WeightedAverage(obs, now)
	if !ok {
		return m
	}
	m.personal = true
	m.overall = overall

	day, night := stats.SplitDayNight(obs)
	if len(day) >= stats.MinSplitObservations {
		if avg, ok := stats.WeightedAverage(day, now); ok {
			m.day, m.dayOK = avg, true
		}
	}
	if len(night) >= stats.MinSplitObservations {
		if avg, ok := stats.WeightedAverage(night, now); ok {
			m.night, m.nightOK = avg, true
		}
	}
	return m
}

// at returns the effective interval for the given hour.
func (m intervalModel) at(hour float64) float64 {
	mid := m.guideline.Mid()
	if !m.personal {
		return m.clamp(mid)
	}
	personal := m.overall
	if stats.IsDaytime(hour) {
		if m.dayOK {
			personal = m.day
		}
	} else if m.nightOK {
		personal = m.night
	}
	return m.clamp(personal*personalWeight + mid*guidelineWeight)
}

// source labels the derivation used for the given hour.
func (m intervalModel) source(hour float64) models.PredictionSource {
	if !m.personal {
		return models.SourceAgeBased
	}
	if stats.IsDaytime(hour) {
		if m.dayOK {
			return models.SourcePersonalizedDay
		}
	} else if m.nightOK {
		return models.SourcePersonalizedNight
	}
	return models.SourcePersonalized
}

func (m intervalModel) clamp(v float64) float64 {
	low := m.guideline.Min * clampLowFactor
	high := m.guideline.Max * clampHighFactor
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
