package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/lullaby-stack/care-engine/internal/extractors"
	"github.com/lullaby-stack/care-engine/internal/models"
	"github.com/lullaby-stack/care-engine/internal/profiles"
	"github.com/lullaby-stack/care-engine/internal/stats"
	"github.com/lullaby-stack/care-engine/internal/utils"
)

const (
	// Night-window sleep events start inside this band.
	nightStartFrom = 18.0
	nightStartTo   = 22.0

	// A "good night" stretch for bedtime analysis.
	goodNightHours = 4.0

	// Minimum night events before pattern analysis replaces the age default.
	minNightEvents = 3

	// Daily-total spread beyond which the consistency tip fires.
	consistencyTipStdDev = 1.5

	regressionHalfWidthDays = 14
)

// regressionWindows are the fixed age-centered regression periods. Kept as
// configuration constants per the product decision, not re-derived.
var regressionWindows = []models.Regression{
	{Label: "4-month regression", CenterDays: 122},
	{Label: "8-month regression", CenterDays: 243},
	{Label: "12-month regression", CenterDays: 365},
	{Label: "18-month regression", CenterDays: 548},
	{Label: "24-month regression", CenterDays: 730},
}

// Analytics derives sleep insights from the same event history the
// forecaster consumes. Every method is a pure function of its inputs.
type Analytics struct {
	logger    *slog.Logger
	profiles  *profiles.Table
	extractor *extractors.EventExtractor
}

// NewAnalytics constructs the analytics layer over a guideline table.
func NewAnalytics(logger *slog.Logger, table *profiles.Table) *Analytics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analytics{
		logger:    logger,
		profiles:  table,
		extractor: extractors.NewEventExtractor(),
	}
}

// DailyTotals sums per-day sleep over the last lookbackDays calendar days,
// oldest first. Open sessions contribute nothing.
func (a *Analytics) DailyTotals(records map[string]models.DayRecord, lookbackDays int, now time.Time) []models.DailyTotal {
	if lookbackDays <= 0 {
		lookbackDays = extractors.DefaultLookbackDays
	}

	totals := make([]models.DailyTotal, 0, lookbackDays)
	for offset := lookbackDays - 1; offset >= 0; offset-- {
		key := utils.DateKey(now.AddDate(0, 0, -offset))
		total := models.DailyTotal{DateKey: key}
		if rec, ok := records[key]; ok {
			for _, ev := range rec.EventsOfType(models.EventSleep) {
				d := ev.Duration()
				if d <= 0 {
					continue
				}
				total.TotalHours += d
				total.Sessions++
				if d > total.LongestStretch {
					total.LongestStretch = d
				}
			}
		}
		totals = append(totals, total)
	}
	return totals
}

// SleepScore computes the composite 0-100 score: guideline adherence (max
// 35), day-to-day consistency (max 35), and longest-stretch progress (max
// 30). The boolean is false when no day in the window has any sleep logged.
func (a *Analytics) SleepScore(records map[string]models.DayRecord, ageDays, lookbackDays int, now time.Time) (models.SleepScoreBreakdown, bool) {
	totals := a.DailyTotals(records, lookbackDays, now)

	daily := make([]float64, 0, len(totals))
	stretches := make([]float64, 0, len(totals))
	for _, t := range totals {
		if t.Sessions == 0 {
			continue
		}
		daily = append(daily, t.TotalHours)
		stretches = append(stretches, t.LongestStretch)
	}
	if len(daily) == 0 {
		return models.SleepScoreBreakdown{}, false
	}

	profile := a.profiles.ForAge(ageDays)
	avgTotal := stats.Mean(daily)

	adherence := 35.0
	if deficit := profile.TotalSleep.Min - avgTotal; deficit > 0 {
		adherence = math.Max(0, 35-deficit*10)
	}

	consistency := math.Max(0, 35-stats.StdDev(daily)*10)

	target := profiles.TargetStretch(ageDays)
	stretch := math.Min(30, stats.Mean(stretches)/target*30)

	score := adherence + consistency + stretch
	if score > 100 {
		score = 100
	}

	return models.SleepScoreBreakdown{
		Score:          math.Round(score),
		Adherence:      adherence,
		Consistency:    consistency,
		LongestStretch: stretch,
	}, true
}

// TotalsTrend compares the most recent seven daily totals against the
// preceding seven using the shared trend rule.
func (a *Analytics) TotalsTrend(records map[string]models.DayRecord, now time.Time) models.Trend {
	totals := a.DailyTotals(records, 14, now)
	values := make([]float64, 0, len(totals))
	for _, t := range totals {
		values = append(values, t.TotalHours)
	}
	return stats.DetectTrend(values)
}

// WakeWindows averages the observed gaps between sleep sessions and
// classifies them against the age guideline. Nil when no usable gaps exist.
func (a *Analytics) WakeWindows(records map[string]models.DayRecord, ageDays, lookbackDays int, now time.Time) *models.WakeWindowReport {
	obs := a.extractor.GapObservations(records, models.EventSleep, lookbackDays, now)
	if len(obs) == 0 {
		return nil
	}

	values := make([]float64, 0, len(obs))
	for _, o := range obs {
		values = append(values, o.Value)
	}
	avg := stats.Mean(values)

	guideline := a.profiles.ForAge(ageDays).WakeWindow
	class := models.WakeWindowOptimal
	switch {
	case avg < guideline.Min:
		class = models.WakeWindowTooShort
	case avg > guideline.Max:
		class = models.WakeWindowTooLong
	}

	return &models.WakeWindowReport{
		AverageHours:   avg,
		Classification: class,
		GuidelineMin:   guideline.Min,
		GuidelineMax:   guideline.Max,
		Observations:   len(obs),
	}
}

// ActiveRegression reports the first regression window covering the current
// age, if any. At most one regression is reported.
func (a *Analytics) ActiveRegression(ageDays int) *models.Regression {
	for _, r := range regressionWindows {
		if ageDays >= r.CenterDays-regressionHalfWidthDays && ageDays <= r.CenterDays+regressionHalfWidthDays {
			reg := r
			return &reg
		}
	}
	return nil
}

// BedtimeSuggestion derives a bedtime from night-window sleep events:
// the average start of nights achieving a good stretch, else the average of
// all night starts, else the age-based default.
func (a *Analytics) BedtimeSuggestion(records map[string]models.DayRecord, ageDays, lookbackDays int, now time.Time) models.BedtimeSuggestion {
	events := a.extractor.EventsInWindow(records, models.EventSleep, lookbackDays, now)

	nightStarts := make([]float64, 0)
	goodStarts := make([]float64, 0)
	for _, te := range events {
		start := te.Event.Start
		if start < nightStartFrom || start >= nightStartTo {
			continue
		}
		nightStarts = append(nightStarts, start)
		if te.Event.Duration() >= goodNightHours {
			goodStarts = append(goodStarts, start)
		}
	}

	if len(nightStarts) < minNightEvents {
		return models.BedtimeSuggestion{
			Hour:  profiles.DefaultBedtime(ageDays),
			Basis: models.BedtimeFromGuidelines,
		}
	}
	if len(goodStarts) > 0 {
		return models.BedtimeSuggestion{
			Hour:  stats.Mean(goodStarts),
			Basis: models.BedtimeFromPattern,
		}
	}
	return models.BedtimeSuggestion{
		Hour:  stats.Mean(nightStarts),
		Basis: models.BedtimeFromAverage,
	}
}

// Tips runs the fixed, priority-ordered rule list: regression first, then
// sleep deficit or wake-window mismatch, then a declining trend, then
// day-to-day consistency.
func (a *Analytics) Tips(records map[string]models.DayRecord, ageDays, lookbackDays int, now time.Time) []models.Tip {
	tips := make([]models.Tip, 0, 4)

	if reg := a.ActiveRegression(ageDays); reg != nil {
		tips = append(tips, models.Tip{
			Type:    "regression",
			Title:   "Sleep regression window",
			Message: fmt.Sprintf("Your baby is in the typical %s period. Shorter naps and extra wakings are common and temporary.", reg.Label),
		})
	}

	profile := a.profiles.ForAge(ageDays)
	totals := a.DailyTotals(records, lookbackDays, now)
	daily := make([]float64, 0, len(totals))
	for _, t := range totals {
		if t.Sessions > 0 {
			daily = append(daily, t.TotalHours)
		}
	}

	if len(daily) > 0 && stats.Mean(daily) < profile.TotalSleep.Min {
		tips = append(tips, models.Tip{
			Type:    "deficit",
			Title:   "Below guideline sleep total",
			Message: fmt.Sprintf("Average daily sleep is %.1fh, under the %.0f-%.0fh guideline for this age. An earlier bedtime may help.", stats.Mean(daily), profile.TotalSleep.Min, profile.TotalSleep.Max),
		})
	} else if ww := a.WakeWindows(records, ageDays, lookbackDays, now); ww != nil && ww.Classification != models.WakeWindowOptimal {
		verb := "stretching"
		if ww.Classification == models.WakeWindowTooLong {
			verb = "shortening"
		}
		tips = append(tips, models.Tip{
			Type:    "wake_window",
			Title:   "Wake windows off guideline",
			Message: fmt.Sprintf("Average wake window is %.1fh against a %.1f-%.1fh guideline. Try %s awake time gradually.", ww.AverageHours, ww.GuidelineMin, ww.GuidelineMax, verb),
		})
	}

	if a.TotalsTrend(records, now) == models.TrendDecreasing {
		tips = append(tips, models.Tip{
			Type:    "trend",
			Title:   "Sleep totals declining",
			Message: "Daily sleep has dropped over the past week. Watch for schedule drift or an oncoming developmental leap.",
		})
	}

	if len(daily) >= 3 && stats.StdDev(daily) > consistencyTipStdDev {
		tips = append(tips, models.Tip{
			Type:    "consistency",
			Title:   "Irregular daily totals",
			Message: "Day-to-day sleep varies a lot. Keeping wake-up and bedtime steady usually evens this out.",
		})
	}

	return tips
}

// Insights bundles every analytics output for one call.
func (a *Analytics) Insights(records map[string]models.DayRecord, ageDays, lookbackDays int, now time.Time) models.InsightsReport {
	report := models.InsightsReport{
		DailyTotals: a.DailyTotals(records, lookbackDays, now),
		Trend:       a.TotalsTrend(records, now),
		WakeWindows: a.WakeWindows(records, ageDays, lookbackDays, now),
		Regression:  a.ActiveRegression(ageDays),
		Bedtime:     a.BedtimeSuggestion(records, ageDays, lookbackDays, now),
		Tips:        a.Tips(records, ageDays, lookbackDays, now),
	}
	if score, ok := a.SleepScore(records, ageDays, lookbackDays, now); ok {
		report.Score = &score
	}
	sort.SliceStable(report.DailyTotals, func(i, j int) bool {
		return report.DailyTotals[i].DateKey < report.DailyTotals[j].DateKey
	})
	return report
}
