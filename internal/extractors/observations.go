// Package extractors turns raw per-day event records into the normalized
// observation lists consumed by the statistics and forecast layers.
package extractors

import (
	"sort"
	"time"

	"github.com/lullaby-stack/care-engine/internal/models"
	"github.com/lullaby-stack/care-engine/internal/utils"
)

// Plausibility bounds for gap observations. Gaps outside these ranges are
// discarded as logging noise; this is a fixed data-cleaning policy.
const (
	SleepGapMinHours = 0.25
	SleepGapMaxHours = 8.0
	FeedGapMinHours  = 1.0
	FeedGapMaxHours  = 8.0

	// DefaultLookbackDays bounds history scans when the caller passes zero.
	DefaultLookbackDays = 10
)

// TaggedEvent pairs an event with the calendar date it was logged on.
type TaggedEvent struct {
	DateKey string
	Event   models.LoggedEvent
}

// EventExtractor filters and normalizes logged events.
type EventExtractor struct{}

// NewEventExtractor creates an extractor.
func NewEventExtractor() *EventExtractor {
	return &EventExtractor{}
}

// EventsInWindow returns events of one type from the last lookbackDays
// calendar days including today, sorted by date then start hour.
func (e *EventExtractor) EventsInWindow(records map[string]models.DayRecord, kind models.EventType, lookbackDays int, now time.Time) []TaggedEvent {
	if lookbackDays <= 0 {
		lookbackDays = DefaultLookbackDays
	}

	events := make([]TaggedEvent, 0)
	for offset := lookbackDays - 1; offset >= 0; offset-- {
		key := utils.DateKey(now.AddDate(0, 0, -offset))
		rec, ok := records[key]
		if !ok {
			continue
		}
		for _, ev := range rec.Events {
			if ev.Type != kind {
				continue
			}
			events = append(events, TaggedEvent{DateKey: key, Event: ev})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].DateKey != events[j].DateKey {
			return events[i].DateKey < events[j].DateKey
		}
		return events[i].Event.Start < events[j].Event.Start
	})
	return events
}

// GapObservations converts adjacent same-type events into gap observations.
// Sleep gaps run from one session's end to the next session's start (the
// wake window); feed gaps run start to start (the feed interval). Gaps are
// computed across a day boundary when the two events fall on consecutive
// dates, and implausible gaps are dropped.
func (e *EventExtractor) GapObservations(records map[string]models.DayRecord, kind models.EventType, lookbackDays int, now time.Time) []models.Observation {
	events := e.EventsInWindow(records, kind, lookbackDays, now)
	if len(events) < 2 {
		return nil
	}

	minGap, maxGap := gapBounds(kind)

	obs := make([]models.Observation, 0, len(events)-1)
	for i := 0; i < len(events)-1; i++ {
		prev, next := events[i], events[i+1]

		anchor := prev.Event.EndOrStart()
		if kind == models.EventFeed {
			anchor = prev.Event.Start
		}

		var gap float64
		switch {
		case prev.DateKey == next.DateKey:
			gap = next.Event.Start - anchor
		case utils.AddDays(prev.DateKey, 1) == next.DateKey:
			gap = (24 - anchor) + next.Event.Start
		default:
			// Non-consecutive dates carry no meaningful gap.
			continue
		}

		if gap < minGap || gap > maxGap {
			continue
		}
		obs = append(obs, models.Observation{
			Value:      gap,
			DateKey:    prev.DateKey,
			AnchorHour: utils.NormalizeHour(anchor),
		})
	}
	return obs
}

// LastEvent returns the most recent event of the given type today or
// yesterday, preferring today. The boolean is false when neither day has one.
func (e *EventExtractor) LastEvent(records map[string]models.DayRecord, kind models.EventType, now time.Time) (TaggedEvent, bool) {
	for offset := 0; offset <= 1; offset++ {
		key := utils.DateKey(now.AddDate(0, 0, -offset))
		rec, ok := records[key]
		if !ok {
			continue
		}
		var last *models.LoggedEvent
		for i := range rec.Events {
			ev := rec.Events[i]
			if ev.Type != kind {
				continue
			}
			if last == nil || ev.Start > last.Start {
				last = &rec.Events[i]
			}
		}
		if last != nil {
			return TaggedEvent{DateKey: key, Event: *last}, true
		}
	}
	return TaggedEvent{}, false
}

// ActiveSleep returns today's open-ended sleep session, if any.
func (e *EventExtractor) ActiveSleep(records map[string]models.DayRecord, now time.Time) (models.LoggedEvent, bool) {
	rec, ok := records[utils.DateKey(now)]
	if !ok {
		return models.LoggedEvent{}, false
	}
	for _, ev := range rec.Events {
		if ev.Type == models.EventSleep && ev.Open() {
			return ev, true
		}
	}
	return models.LoggedEvent{}, false
}

func gapBounds(kind models.EventType) (float64, float64) {
	if kind == models.EventFeed {
		return FeedGapMinHours, FeedGapMaxHours
	}
	return SleepGapMinHours, SleepGapMaxHours
}
