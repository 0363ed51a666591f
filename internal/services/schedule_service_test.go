package services

import (
	"errors"
	"testing"
	"time"

	"github.com/lullaby-stack/care-engine/internal/engine"
	"github.com/lullaby-stack/care-engine/internal/models"
	"github.com/lullaby-stack/care-engine/internal/profiles"
	"github.com/lullaby-stack/care-engine/internal/utils"
)

type stubStore struct {
	days    map[string]models.DayRecord
	saveErr error
}

func newStubStore() *stubStore {
	return &stubStore{days: make(map[string]models.DayRecord)}
}

func (s *stubStore) GetDay(date string) (models.DayRecord, bool, error) {
	rec, ok := s.days[date]
	return rec, ok, nil
}

func (s *stubStore) SaveDay(rec models.DayRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.days[rec.Date] = rec
	return nil
}

func (s *stubStore) SaveDays(recs []models.DayRecord) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	for _, rec := range recs {
		s.days[rec.Date] = rec
	}
	return nil
}

func (s *stubStore) Range(from, to string) (map[string]models.DayRecord, error) {
	out := make(map[string]models.DayRecord)
	for date, rec := range s.days {
		if date >= from && date <= to {
			out[date] = rec
		}
	}
	return out, nil
}

func (s *stubStore) Close() error { return nil }

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, st *stubStore) *ScheduleService {
	t.Helper()
	table, err := profiles.NewTable("", nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	birth := testNow.AddDate(0, 0, -42)
	svc := NewScheduleService(
		nil,
		st,
		engine.NewForecaster(nil, table, 10),
		engine.NewAnalytics(nil, table),
		engine.NewSolver(nil),
		birth,
		10,
		24,
	)
	return svc.WithClock(func() time.Time { return testNow })
}

func TestAgeDays(t *testing.T) {
	svc := newTestService(t, newStubStore())
	if got := svc.AgeDays(); got != 42 {
		t.Fatalf("expected 42 days, got %d", got)
	}
}

func TestDayDefaultsWithoutPersisting(t *testing.T) {
	st := newStubStore()
	svc := newTestService(t, st)

	rec, err := svc.Day("2026-03-10")
	if err != nil {
		t.Fatalf("Day: %v", err)
	}
	if len(rec.MomBlocks) != 4 || len(rec.DadBlocks) != 4 {
		t.Fatalf("expected default partitions, got %d/%d blocks", len(rec.MomBlocks), len(rec.DadBlocks))
	}
	if len(st.days) != 0 {
		t.Fatalf("default day must not be persisted")
	}
}

func TestDayRejectsBadDate(t *testing.T) {
	svc := newTestService(t, newStubStore())
	if _, err := svc.Day("not-a-date"); err == nil {
		t.Fatalf("expected error for malformed date")
	}
}

func TestLogEventMintsIDAndPersists(t *testing.T) {
	st := newStubStore()
	svc := newTestService(t, st)

	ev, err := svc.LogEvent("2026-03-10", models.LoggedEvent{Type: models.EventFeed, Start: 9.5, Amount: 120})
	if err != nil {
		t.Fatalf("LogEvent: %v", err)
	}
	if ev.ID == "" {
		t.Fatalf("expected a minted event id")
	}

	stored := st.days["2026-03-10"]
	if len(stored.Events) != 1 || stored.Events[0].ID != ev.ID {
		t.Fatalf("event not persisted: %+v", stored.Events)
	}
}

func TestLogEventRejectsOutOfRangeHours(t *testing.T) {
	svc := newTestService(t, newStubStore())

	if _, err := svc.LogEvent("2026-03-10", models.LoggedEvent{Type: models.EventFeed, Start: 24}); !errors.Is(err, ErrInvalidHour) {
		t.Fatalf("expected ErrInvalidHour for start=24, got %v", err)
	}
	bad := -1.0
	if _, err := svc.LogEvent("2026-03-10", models.LoggedEvent{Type: models.EventSleep, Start: 9, End: &bad}); !errors.Is(err, ErrInvalidHour) {
		t.Fatalf("expected ErrInvalidHour for negative end, got %v", err)
	}
}

func TestCloseEvent(t *testing.T) {
	st := newStubStore()
	svc := newTestService(t, st)

	ev, err := svc.LogEvent("2026-03-10", models.LoggedEvent{Type: models.EventSleep, Start: 9})
	if err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	closed, err := svc.CloseEvent("2026-03-10", ev.ID, 10.5)
	if err != nil {
		t.Fatalf("CloseEvent: %v", err)
	}
	if closed.End == nil || *closed.End != 10.5 {
		t.Fatalf("expected end 10.5, got %+v", closed.End)
	}

	// End hours are immutable once set.
	if _, err := svc.CloseEvent("2026-03-10", ev.ID, 11); !errors.Is(err, ErrEventClosed) {
		t.Fatalf("expected ErrEventClosed on re-close, got %v", err)
	}
}

func TestCloseEventUnknownID(t *testing.T) {
	svc := newTestService(t, newStubStore())
	if _, err := svc.CloseEvent("2026-03-10", "missing", 10); !errors.Is(err, ErrEventNotFound) {
		t.Fatalf("expected ErrEventNotFound, got %v", err)
	}
}

func TestUndoLastEvent(t *testing.T) {
	st := newStubStore()
	svc := newTestService(t, st)

	first, _ := svc.LogEvent("2026-03-10", models.LoggedEvent{Type: models.EventFeed, Start: 9})
	second, _ := svc.LogEvent("2026-03-10", models.LoggedEvent{Type: models.EventFeed, Start: 12})

	removed, err := svc.UndoLastEvent("2026-03-10")
	if err != nil {
		t.Fatalf("UndoLastEvent: %v", err)
	}
	if removed.ID != second.ID {
		t.Fatalf("expected most recent event removed")
	}

	stored := st.days["2026-03-10"]
	if len(stored.Events) != 1 || stored.Events[0].ID != first.ID {
		t.Fatalf("expected first event to remain")
	}

	if _, err := svc.UndoLastEvent("2026-03-11"); !errors.Is(err, ErrNoEvents) {
		t.Fatalf("expected ErrNoEvents on empty day, got %v", err)
	}
}

func TestForecastReturnsRequestedKind(t *testing.T) {
	svc := newTestService(t, newStubStore())

	feed, err := svc.Forecast(models.WindowFeed, 6)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if feed.Kind != models.WindowFeed {
		t.Fatalf("expected feed forecast, got %s", feed.Kind)
	}
	if feed.Source != models.SourceAgeBased {
		t.Fatalf("expected age-based forecast without history, got %s", feed.Source)
	}

	sleep, err := svc.Forecast(models.WindowSleep, 6)
	if err != nil {
		t.Fatalf("Forecast: %v", err)
	}
	if sleep.Kind != models.WindowSleep {
		t.Fatalf("expected sleep forecast, got %s", sleep.Kind)
	}

	if svc.Latencies().Count == 0 {
		t.Fatalf("expected forecast latencies recorded")
	}
}

func TestAutoSolvePersistsAndClearsManualFlag(t *testing.T) {
	st := newStubStore()
	svc := newTestService(t, st)

	rec := models.DefaultDayRecord("2026-03-10")
	rec.ManuallyModified = true
	st.days["2026-03-10"] = rec

	solved, err := svc.AutoSolve(models.SolveRequest{
		Date:              "2026-03-10",
		TargetSleepHours:  7,
		MomPreferredStart: 22,
		DadPreferredStart: 6,
	})
	if err != nil {
		t.Fatalf("AutoSolve: %v", err)
	}
	if solved.ManuallyModified {
		t.Fatalf("solve must clear the manual flag")
	}
	if stored := st.days["2026-03-10"]; stored.ManuallyModified {
		t.Fatalf("persisted record still flagged manual")
	}
}

func TestAutoSolveRange(t *testing.T) {
	st := newStubStore()
	svc := newTestService(t, st)

	out, err := svc.AutoSolveRange(models.SolveRangeRequest{
		Dates:             []string{"2026-03-10", "2026-03-11"},
		TargetSleepHours:  6,
		MomPreferredStart: 21,
		DadPreferredStart: 7,
	})
	if err != nil {
		t.Fatalf("AutoSolveRange: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 solved days, got %d", len(out))
	}
	if len(st.days) != 2 {
		t.Fatalf("expected both days persisted, got %d", len(st.days))
	}

	if _, err := svc.AutoSolveRange(models.SolveRangeRequest{}); err == nil {
		t.Fatalf("expected error for empty date list")
	}
}

func TestAutoSolveAppliesConfiguredDefaults(t *testing.T) {
	st := newStubStore()
	svc := newTestService(t, st).WithSolveDefaults(models.SolveRequest{
		TargetSleepHours:  6,
		MomPreferredStart: 21,
		DadPreferredStart: 7,
	})

	// A request carrying only the date picks up the configured parameters.
	solved, err := svc.AutoSolve(models.SolveRequest{Date: "2026-03-10"})
	if err != nil {
		t.Fatalf("AutoSolve: %v", err)
	}

	var momSleep, dadSleep *models.CaregiverBlock
	for i, b := range solved.MomBlocks {
		if b.Type == models.BlockSleep {
			momSleep = &solved.MomBlocks[i]
		}
	}
	for i, b := range solved.DadBlocks {
		if b.Type == models.BlockSleep {
			dadSleep = &solved.DadBlocks[i]
		}
	}
	if momSleep == nil || dadSleep == nil {
		t.Fatalf("expected one sleep block per caregiver")
	}
	// Six hours from 21:00 do not fit before midnight, so the grid pulls the
	// block back to 18:00; dad's 7:00 placement fits as stated.
	if momSleep.Start != 18 || momSleep.End != 24 {
		t.Fatalf("expected mom sleep [18,24) from defaults, got [%f,%f)", momSleep.Start, momSleep.End)
	}
	if dadSleep.Start != 7 || dadSleep.End != 13 {
		t.Fatalf("expected dad sleep [7,13) from defaults, got [%f,%f)", dadSleep.Start, dadSleep.End)
	}
}

func TestAdjustBlockPersists(t *testing.T) {
	st := newStubStore()
	svc := newTestService(t, st)

	adjusted, err := svc.AdjustBlock(models.AdjustBlockRequest{
		Date:      "2026-03-10",
		Caregiver: models.CaregiverMom,
		BlockID:   "mom-1",
		NewStart:  1,
		NewEnd:    5,
	})
	if err != nil {
		t.Fatalf("AdjustBlock: %v", err)
	}
	if !adjusted.ManuallyModified {
		t.Fatalf("adjustment must set the manual flag")
	}
	if _, ok := st.days["2026-03-10"]; !ok {
		t.Fatalf("adjusted day not persisted")
	}
}

func TestRemoveBlockGuardPropagates(t *testing.T) {
	st := newStubStore()
	svc := newTestService(t, st)

	if _, err := svc.RemoveBlock("2026-03-10", models.CaregiverMom, "mom-1"); err != nil {
		t.Fatalf("RemoveBlock: %v", err)
	}

	_, err := svc.RemoveBlock("2026-03-10", models.CaregiverMom, "mom-2")
	if !errors.Is(err, engine.ErrLastFixedBlock) {
		t.Fatalf("expected ErrLastFixedBlock, got %v", err)
	}
}

func TestInsights(t *testing.T) {
	st := newStubStore()
	svc := newTestService(t, st)

	end := 11.0
	if _, err := svc.LogEvent("2026-03-10", models.LoggedEvent{Type: models.EventSleep, Start: 9, End: &end}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	report, err := svc.Insights()
	if err != nil {
		t.Fatalf("Insights: %v", err)
	}
	if len(report.DailyTotals) != 10 {
		t.Fatalf("expected totals across the lookback window, got %d", len(report.DailyTotals))
	}
	if report.Score == nil {
		t.Fatalf("expected a score with sleep logged")
	}
}

func TestUpcomingWindows(t *testing.T) {
	svc := newTestService(t, newStubStore())

	windows, err := svc.UpcomingWindows(4 * time.Hour)
	if err != nil {
		t.Fatalf("UpcomingWindows: %v", err)
	}
	nowHour := utils.DecimalHour(testNow)
	for _, w := range windows {
		ahead := w.Start - nowHour
		if ahead < 0 || ahead > 4 {
			t.Fatalf("window at %f outside the 4h lead", w.Start)
		}
	}
}
