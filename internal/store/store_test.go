package store

import (
	"path/filepath"
	"testing"

	"github.com/lullaby-stack/care-engine/internal/models"
)

func sampleRecord(date string) models.DayRecord {
	rec := models.DefaultDayRecord(date)
	end := 9.5
	rec.Events = []models.LoggedEvent{
		{ID: "ev-1", Type: models.EventSleep, Start: 8, End: &end},
		{ID: "ev-2", Type: models.EventFeed, Start: 10, Amount: 120},
	}
	rec.PreferredSleepStart = map[models.Caregiver]float64{models.CaregiverMom: 21.5}
	rec.ManuallyModified = true
	return rec
}

func checkRoundTrip(t *testing.T, st Store) {
	t.Helper()
	rec := sampleRecord("2026-03-10")
	if err := st.SaveDay(rec); err != nil {
		t.Fatalf("SaveDay: %v", err)
	}

	got, ok, err := st.GetDay("2026-03-10")
	if err != nil {
		t.Fatalf("GetDay: %v", err)
	}
	if !ok {
		t.Fatalf("expected stored record")
	}
	if len(got.Events) != 2 || got.Events[0].ID != "ev-1" {
		t.Fatalf("events did not survive the round trip: %+v", got.Events)
	}
	if got.Events[0].End == nil || *got.Events[0].End != 9.5 {
		t.Fatalf("closed end hour lost")
	}
	if got.Events[1].End != nil {
		t.Fatalf("open event gained an end")
	}
	if got.PreferredSleepStart[models.CaregiverMom] != 21.5 {
		t.Fatalf("preferred starts lost: %+v", got.PreferredSleepStart)
	}
	if !got.ManuallyModified {
		t.Fatalf("manual flag lost")
	}
	if len(got.MomBlocks) != 4 {
		t.Fatalf("expected 4 mom blocks, got %d", len(got.MomBlocks))
	}

	if _, ok, err := st.GetDay("1999-01-01"); err != nil || ok {
		t.Fatalf("expected absent record, ok=%v err=%v", ok, err)
	}
}

func checkRange(t *testing.T, st Store) {
	t.Helper()
	dates := []string{"2026-03-08", "2026-03-09", "2026-03-10", "2026-03-12"}
	recs := make([]models.DayRecord, 0, len(dates))
	for _, d := range dates {
		recs = append(recs, sampleRecord(d))
	}
	if err := st.SaveDays(recs); err != nil {
		t.Fatalf("SaveDays: %v", err)
	}

	got, err := st.Range("2026-03-09", "2026-03-11")
	if err != nil {
		t.Fatalf("Range: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records in range, got %d", len(got))
	}
	if _, ok := got["2026-03-09"]; !ok {
		t.Fatalf("missing 2026-03-09")
	}
	if _, ok := got["2026-03-12"]; ok {
		t.Fatalf("2026-03-12 outside range")
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	st, err := NewJSONStore(filepath.Join(t.TempDir(), "days.json"))
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	defer st.Close()
	checkRoundTrip(t, st)
}

func TestJSONStoreRange(t *testing.T) {
	st, err := NewJSONStore(filepath.Join(t.TempDir(), "days.json"))
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	defer st.Close()
	checkRange(t, st)
}

func TestJSONStoreReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "days.json")
	st, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("NewJSONStore: %v", err)
	}
	if err := st.SaveDay(sampleRecord("2026-03-10")); err != nil {
		t.Fatalf("SaveDay: %v", err)
	}
	st.Close()

	reopened, err := NewJSONStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	if _, ok, _ := reopened.GetDay("2026-03-10"); !ok {
		t.Fatalf("expected record to survive reopen")
	}
}

func TestSQLiteStoreRoundTrip(t *testing.T) {
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "days.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()
	checkRoundTrip(t, st)
}

func TestSQLiteStoreRange(t *testing.T) {
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "days.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()
	checkRange(t, st)
}

func TestSQLiteStoreOverwrite(t *testing.T) {
	st, err := NewSQLiteStore(filepath.Join(t.TempDir(), "days.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer st.Close()

	rec := sampleRecord("2026-03-10")
	if err := st.SaveDay(rec); err != nil {
		t.Fatalf("SaveDay: %v", err)
	}
	rec.ManuallyModified = false
	rec.Events = rec.Events[:1]
	if err := st.SaveDay(rec); err != nil {
		t.Fatalf("second SaveDay: %v", err)
	}

	got, _, err := st.GetDay("2026-03-10")
	if err != nil {
		t.Fatalf("GetDay: %v", err)
	}
	if got.ManuallyModified || len(got.Events) != 1 {
		t.Fatalf("expected overwrite to replace the row, got %+v", got)
	}
}

func TestFactory(t *testing.T) {
	dir := t.TempDir()

	st, err := New("json", filepath.Join(dir, "days.json"))
	if err != nil {
		t.Fatalf("json driver: %v", err)
	}
	st.Close()

	st, err = New("", filepath.Join(dir, "days.db"))
	if err != nil {
		t.Fatalf("default driver: %v", err)
	}
	st.Close()

	if _, err := New("postgres", ""); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}
