package services

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lullaby-stack/care-engine/internal/engine"
	"github.com/lullaby-stack/care-engine/internal/metrics"
	"github.com/lullaby-stack/care-engine/internal/models"
	"github.com/lullaby-stack/care-engine/internal/store"
	"github.com/lullaby-stack/care-engine/internal/utils"
)

// ErrEventNotFound reports a missing event id on a day record.
var ErrEventNotFound = errors.New("event not found")

// ErrNoEvents reports an undo against a day with nothing logged.
var ErrNoEvents = errors.New("no events to undo")

// ErrEventClosed reports a close against a session whose end is already set.
var ErrEventClosed = errors.New("event already closed")

// ErrInvalidHour reports an out-of-range decimal hour.
var ErrInvalidHour = errors.New("hour must be in [0,24)")

// ErrInvalidDate reports a date key not in YYYY-MM-DD form.
var ErrInvalidDate = errors.New("date must be YYYY-MM-DD")

// ScheduleService is the facade over storage, forecasting, analytics and the
// auto-solver. All methods are synchronous; the clock is injectable so tests
// run against a fixed now.
type ScheduleService struct {
	logger        *slog.Logger
	store         store.Store
	forecaster    *engine.Forecaster
	analytics     *engine.Analytics
	solver        *engine.Solver
	birthDate     time.Time
	lookbackDays  int
	horizonHours  float64
	solveDefaults models.SolveRequest
	now           func() time.Time
	latencies     *utils.LatencyTracker
}

// NewScheduleService constructs the service facade.
func NewScheduleService(
	logger *slog.Logger,
	st store.Store,
	forecaster *engine.Forecaster,
	analytics *engine.Analytics,
	solver *engine.Solver,
	birthDate time.Time,
	lookbackDays int,
	horizonHours float64,
) *ScheduleService {
	if logger == nil {
		logger = slog.Default()
	}
	if lookbackDays <= 0 {
		lookbackDays = 10
	}
	if horizonHours <= 0 {
		horizonHours = engine.DefaultHorizonHours
	}
	return &ScheduleService{
		logger:       logger,
		store:        st,
		forecaster:   forecaster,
		analytics:    analytics,
		solver:       solver,
		birthDate:    birthDate,
		lookbackDays: lookbackDays,
		horizonHours: horizonHours,
		now:          time.Now,
		latencies:    utils.NewLatencyTracker(1024),
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *ScheduleService) WithClock(now func() time.Time) *ScheduleService {
	if now != nil {
		s.now = now
	}
	return s
}

// WithSolveDefaults sets the fallback parameters applied to solve requests
// that leave them unset.
func (s *ScheduleService) WithSolveDefaults(defaults models.SolveRequest) *ScheduleService {
	s.solveDefaults = defaults
	return s
}

// applySolveDefaults fills zero-valued solve parameters from the configured
// defaults. A zero preferred start reads as "unset", not midnight; a
// midnight preference can be stored as a per-day override on the record.
func (s *ScheduleService) applySolveDefaults(req models.SolveRequest) models.SolveRequest {
	if req.TargetSleepHours <= 0 {
		req.TargetSleepHours = s.solveDefaults.TargetSleepHours
	}
	if req.MomPreferredStart == 0 {
		req.MomPreferredStart = s.solveDefaults.MomPreferredStart
	}
	if req.DadPreferredStart == 0 {
		req.DadPreferredStart = s.solveDefaults.DadPreferredStart
	}
	if s.solveDefaults.AllowOverlap {
		req.AllowOverlap = true
	}
	return req
}

// Latencies exposes the rolling latency snapshot for health reporting.
func (s *ScheduleService) Latencies() utils.LatencySnapshot {
	return s.latencies.Snapshot()
}

// AgeDays returns the baby's age in whole days at the current clock.
func (s *ScheduleService) AgeDays() int {
	return utils.DaysBetween(s.birthDate, s.now())
}

// Day returns the stored record for a date, or the default day when absent.
// The default is materialized but not persisted.
func (s *ScheduleService) Day(date string) (models.DayRecord, error) {
	if _, err := utils.ParseDateKey(date); err != nil {
		return models.DayRecord{}, utils.NewAppError("schedule.Day", "invalid date", ErrInvalidDate)
	}
	rec, ok, err := s.store.GetDay(date)
	if err != nil {
		return models.DayRecord{}, utils.NewAppError("schedule.Day", "load record", err)
	}
	if !ok {
		return models.DefaultDayRecord(date), nil
	}
	return rec, nil
}

// LogEvent appends a care event to a day, minting its id. Sleep events may
// be open-ended; all hours must lie in [0,24).
func (s *ScheduleService) LogEvent(date string, ev models.LoggedEvent) (models.LoggedEvent, error) {
	if ev.Start < 0 || ev.Start >= 24 {
		return models.LoggedEvent{}, utils.NewAppError("schedule.LogEvent", "invalid start", ErrInvalidHour)
	}
	if ev.End != nil && (*ev.End < 0 || *ev.End >= 24) {
		return models.LoggedEvent{}, utils.NewAppError("schedule.LogEvent", "invalid end", ErrInvalidHour)
	}

	rec, err := s.Day(date)
	if err != nil {
		return models.LoggedEvent{}, err
	}

	ev.ID = uuid.NewString()
	rec.Events = append(rec.Events, ev)
	if err := s.store.SaveDay(rec); err != nil {
		return models.LoggedEvent{}, utils.NewAppError("schedule.LogEvent", "save record", err)
	}

	metrics.ObserveEventLogged(string(ev.Type))
	s.logger.Debug("event logged",
		slog.String("date", date),
		slog.String("type", string(ev.Type)),
		slog.String("id", ev.ID))
	return ev, nil
}

// CloseEvent sets the end hour of an open session. Closing an already-closed
// event is rejected; end times are immutable once set.
func (s *ScheduleService) CloseEvent(date, eventID string, end float64) (models.LoggedEvent, error) {
	if end < 0 || end >= 24 {
		return models.LoggedEvent{}, utils.NewAppError("schedule.CloseEvent", "invalid end", ErrInvalidHour)
	}

	rec, err := s.Day(date)
	if err != nil {
		return models.LoggedEvent{}, err
	}

	for i := range rec.Events {
		if rec.Events[i].ID != eventID {
			continue
		}
		if !rec.Events[i].Open() {
			return models.LoggedEvent{}, utils.NewAppError("schedule.CloseEvent", "end is immutable", ErrEventClosed)
		}
		e := end
		rec.Events[i].End = &e
		if err := s.store.SaveDay(rec); err != nil {
			return models.LoggedEvent{}, utils.NewAppError("schedule.CloseEvent", "save record", err)
		}
		return rec.Events[i], nil
	}
	return models.LoggedEvent{}, fmt.Errorf("close event %s: %w", eventID, ErrEventNotFound)
}

// UndoLastEvent removes the most recently logged event for a date.
func (s *ScheduleService) UndoLastEvent(date string) (models.LoggedEvent, error) {
	rec, err := s.Day(date)
	if err != nil {
		return models.LoggedEvent{}, err
	}
	if len(rec.Events) == 0 {
		return models.LoggedEvent{}, ErrNoEvents
	}

	removed := rec.Events[len(rec.Events)-1]
	rec.Events = rec.Events[:len(rec.Events)-1]
	if err := s.store.SaveDay(rec); err != nil {
		return models.LoggedEvent{}, utils.NewAppError("schedule.UndoLastEvent", "save record", err)
	}
	return removed, nil
}

// Forecast produces sleep or feed predictions over the configured horizon.
func (s *ScheduleService) Forecast(kind models.WindowKind, horizonHours float64) (models.ForecastResult, error) {
	started := time.Now()
	if horizonHours <= 0 {
		horizonHours = s.horizonHours
	}

	records, err := s.historyWindow()
	if err != nil {
		return models.ForecastResult{}, utils.NewAppError("schedule.Forecast", "load history", err)
	}

	now := s.now()
	var result models.ForecastResult
	switch kind {
	case models.WindowFeed:
		result = s.forecaster.PredictFeed(records, s.AgeDays(), now, horizonHours)
	default:
		result = s.forecaster.PredictSleep(records, s.AgeDays(), now, horizonHours)
	}

	duration := time.Since(started)
	s.latencies.Observe(duration)
	metrics.ObserveForecast(string(result.Kind), string(result.Source), duration)
	return result, nil
}

// Insights computes the full analytics report over the lookback window.
func (s *ScheduleService) Insights() (models.InsightsReport, error) {
	records, err := s.historyWindow()
	if err != nil {
		return models.InsightsReport{}, utils.NewAppError("schedule.Insights", "load history", err)
	}
	return s.analytics.Insights(records, s.AgeDays(), s.lookbackDays, s.now()), nil
}

// AutoSolve recomputes both caregivers' blocks for one date and persists the
// result.
func (s *ScheduleService) AutoSolve(req models.SolveRequest) (models.DayRecord, error) {
	started := time.Now()
	req = s.applySolveDefaults(req)

	rec, err := s.Day(req.Date)
	if err != nil {
		metrics.ObserveSolve(time.Since(started), metrics.OutcomeError)
		return models.DayRecord{}, err
	}

	predictions, err := s.solvePredictions()
	if err != nil {
		metrics.ObserveSolve(time.Since(started), metrics.OutcomeError)
		return models.DayRecord{}, err
	}

	solved := s.solver.SolveDay(rec, req, predictions)
	if err := s.store.SaveDay(solved); err != nil {
		metrics.ObserveSolve(time.Since(started), metrics.OutcomeError)
		return models.DayRecord{}, utils.NewAppError("schedule.AutoSolve", "save record", err)
	}

	duration := time.Since(started)
	s.latencies.Observe(duration)
	metrics.ObserveSolve(duration, metrics.OutcomeSuccess)
	return solved, nil
}

// AutoSolveRange solves each date independently and persists the batch as
// one atomic write.
func (s *ScheduleService) AutoSolveRange(req models.SolveRangeRequest) ([]models.DayRecord, error) {
	started := time.Now()
	if len(req.Dates) == 0 {
		return nil, utils.NewAppError("schedule.AutoSolveRange", "no dates supplied", nil)
	}

	records := make(map[string]models.DayRecord, len(req.Dates))
	for _, date := range req.Dates {
		rec, err := s.Day(date)
		if err != nil {
			metrics.ObserveSolve(time.Since(started), metrics.OutcomeError)
			return nil, err
		}
		records[date] = rec
	}

	predictions, err := s.solvePredictions()
	if err != nil {
		metrics.ObserveSolve(time.Since(started), metrics.OutcomeError)
		return nil, err
	}

	dayReq := s.applySolveDefaults(models.SolveRequest{
		TargetSleepHours:  req.TargetSleepHours,
		MomPreferredStart: req.MomPreferredStart,
		DadPreferredStart: req.DadPreferredStart,
		AllowOverlap:      req.AllowOverlap,
	})
	solved := s.solver.SolveRange(records, req.Dates, dayReq, predictions)

	if err := s.store.SaveDays(solved); err != nil {
		metrics.ObserveSolve(time.Since(started), metrics.OutcomeError)
		return nil, utils.NewAppError("schedule.AutoSolveRange", "save batch", err)
	}

	metrics.ObserveSolve(time.Since(started), metrics.OutcomeSuccess)
	return solved, nil
}

// AdjustBlock applies a manual block edit with the solver's reconstruction
// post-condition and persists the result.
func (s *ScheduleService) AdjustBlock(req models.AdjustBlockRequest) (models.DayRecord, error) {
	rec, err := s.Day(req.Date)
	if err != nil {
		return models.DayRecord{}, err
	}

	adjusted, err := s.solver.ApplyAdjustment(rec, req)
	if err != nil {
		return models.DayRecord{}, err
	}
	if err := s.store.SaveDay(adjusted); err != nil {
		return models.DayRecord{}, utils.NewAppError("schedule.AdjustBlock", "save record", err)
	}
	return adjusted, nil
}

// RemoveBlock deletes a hand-placed block, enforcing the last-fixed-block
// guard, and persists the result.
func (s *ScheduleService) RemoveBlock(date string, caregiver models.Caregiver, blockID string) (models.DayRecord, error) {
	rec, err := s.Day(date)
	if err != nil {
		return models.DayRecord{}, err
	}

	updated, err := s.solver.RemoveBlock(rec, caregiver, blockID)
	if err != nil {
		return models.DayRecord{}, err
	}
	if err := s.store.SaveDay(updated); err != nil {
		return models.DayRecord{}, utils.NewAppError("schedule.RemoveBlock", "save record", err)
	}
	return updated, nil
}

// UpcomingWindows returns predicted windows opening within the lead time,
// for the notification watcher.
func (s *ScheduleService) UpcomingWindows(lead time.Duration) ([]models.PredictionWindow, error) {
	nowHour := utils.DecimalHour(s.now())
	leadHours := lead.Hours()

	upcoming := make([]models.PredictionWindow, 0)
	for _, kind := range []models.WindowKind{models.WindowSleep, models.WindowFeed} {
		result, err := s.Forecast(kind, leadHours+1)
		if err != nil {
			return nil, err
		}
		for _, w := range result.Windows {
			ahead := w.Start - nowHour
			if ahead >= 0 && ahead <= leadHours {
				upcoming = append(upcoming, w)
			}
		}
	}
	return upcoming, nil
}

// historyWindow loads the lookback span of records ending today.
func (s *ScheduleService) historyWindow() (map[string]models.DayRecord, error) {
	now := s.now()
	from := utils.DateKey(now.AddDate(0, 0, -(s.lookbackDays - 1)))
	to := utils.DateKey(now)
	return s.store.Range(from, to)
}

// solvePredictions gathers the sleep and feed forecasts the solver scores
// against.
func (s *ScheduleService) solvePredictions() ([]models.PredictionWindow, error) {
	sleep, err := s.Forecast(models.WindowSleep, s.horizonHours)
	if err != nil {
		return nil, err
	}
	feed, err := s.Forecast(models.WindowFeed, s.horizonHours)
	if err != nil {
		return nil, err
	}
	return append(sleep.Windows, feed.Windows...), nil
}
