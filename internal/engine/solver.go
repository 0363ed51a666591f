package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/lullaby-stack/care-engine/internal/models"
)

// ErrLastFixedBlock rejects removing a caregiver's only sleep/work block.
var ErrLastFixedBlock = errors.New("caregiver must retain at least one sleep or work block")

// ErrBlockNotFound reports a missing block id for the caregiver.
var ErrBlockNotFound = errors.New("block not found")

const (
	// gridStepHours is the candidate-start resolution. 96 steps cover a day,
	// bounding the search regardless of input.
	gridStepHours = 0.25

	preferencePenaltyPerHour = 8.0
	alignmentBonusPerHour    = 2.0
	feedConflictPenalty      = 2.0

	hoursPerDay = 24.0
)

// Solver places caregiver sleep blocks against predicted sleep/feed windows
// and rebuilds the full-day duty partition. Stateless; safe for concurrent use.
type Solver struct {
	logger *slog.Logger
}

// NewSolver constructs a solver.
func NewSolver(logger *slog.Logger) *Solver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Solver{logger: logger}
}

// SolveDay computes both caregivers' sleep placement for one day and returns
// the record with reconstructed partitions. Logged events and per-day
// overrides pass through untouched; ManuallyModified is cleared.
func (s *Solver) SolveDay(rec models.DayRecord, req models.SolveRequest, predictions []models.PredictionWindow) models.DayRecord {
	target := req.TargetSleepHours
	if target <= 0 || target > hoursPerDay {
		target = 7
	}

	momPref := preferredStart(rec, models.CaregiverMom, req.MomPreferredStart)
	dadPref := preferredStart(rec, models.CaregiverDad, req.DadPreferredStart)

	momWork := fixedOfType(rec.MomBlocks, models.BlockWork)
	dadWork := fixedOfType(rec.DadBlocks, models.BlockWork)

	momSleep := s.bestWindow(target, momPref, momWork, predictions, 0)
	dadSleep := s.bestWindow(target, dadPref, dadWork, predictions, 0)

	if !req.AllowOverlap && overlapHours(momSleep, dadSleep) > 0 {
		// The caregiver farther from their stated preference absorbs the
		// shift: re-solve them constrained to start after the other's sleep.
		momDist := math.Abs(momSleep.Start - momPref)
		dadDist := math.Abs(dadSleep.Start - dadPref)
		if momDist >= dadDist {
			momSleep = s.bestWindow(target, momPref, momWork, predictions, dadSleep.End)
		} else {
			dadSleep = s.bestWindow(target, dadPref, dadWork, predictions, momSleep.End)
		}
	}

	rec.MomBlocks = rebuildPartition(models.CaregiverMom, append(momWork, momSleep))
	rec.DadBlocks = rebuildPartition(models.CaregiverDad, append(dadWork, dadSleep))
	rec.ManuallyModified = false
	return rec
}

// SolveRange applies SolveDay independently to each date's record. Records
// missing from the map get the default day. Result order follows dates.
func (s *Solver) SolveRange(records map[string]models.DayRecord, dates []string, req models.SolveRequest, predictions []models.PredictionWindow) []models.DayRecord {
	out := make([]models.DayRecord, 0, len(dates))
	for _, date := range dates {
		rec, ok := records[date]
		if !ok {
			rec = models.DefaultDayRecord(date)
		}
		dayReq := req
		dayReq.Date = date
		out = append(out, s.SolveDay(rec, dayReq, predictions))
	}
	return out
}

// ApplyAdjustment moves or resizes one hand-placed block, rebuilds the duty
// partition, and feeds the edit back by pointing the caregiver's preferred
// sleep start at their now-longest sleep block.
func (s *Solver) ApplyAdjustment(rec models.DayRecord, adj models.AdjustBlockRequest) (models.DayRecord, error) {
	start := clampHour(adj.NewStart)
	end := clampHour(adj.NewEnd)
	if end <= start {
		return rec, fmt.Errorf("adjust block: end %.2f not after start %.2f", adj.NewEnd, adj.NewStart)
	}

	blocks := rec.BlocksFor(adj.Caregiver)
	fixed := make([]models.CaregiverBlock, 0, len(blocks))
	found := false
	for _, b := range blocks {
		if !b.Fixed() {
			continue
		}
		if b.ID == adj.BlockID {
			b.Start, b.End = start, end
			found = true
		}
		fixed = append(fixed, b)
	}
	if !found {
		return rec, fmt.Errorf("adjust block %s: %w", adj.BlockID, ErrBlockNotFound)
	}

	rebuilt := rebuildPartition(adj.Caregiver, fixed)
	rec.SetBlocks(adj.Caregiver, rebuilt)
	rec.ManuallyModified = true

	if longest, ok := longestSleepBlock(rebuilt); ok {
		if rec.PreferredSleepStart == nil {
			rec.PreferredSleepStart = make(map[models.Caregiver]float64)
		}
		rec.PreferredSleepStart[adj.Caregiver] = longest.Start
	}
	return rec, nil
}

// RemoveBlock deletes a hand-placed block and rebuilds the partition. The
// last remaining fixed block for a caregiver cannot be removed.
func (s *Solver) RemoveBlock(rec models.DayRecord, caregiver models.Caregiver, blockID string) (models.DayRecord, error) {
	blocks := rec.BlocksFor(caregiver)
	fixed := make([]models.CaregiverBlock, 0, len(blocks))
	found := false
	for _, b := range blocks {
		if !b.Fixed() {
			continue
		}
		if b.ID == blockID {
			found = true
			continue
		}
		fixed = append(fixed, b)
	}
	if !found {
		return rec, fmt.Errorf("remove block %s: %w", blockID, ErrBlockNotFound)
	}
	if len(fixed) == 0 {
		return rec, ErrLastFixedBlock
	}

	rec.SetBlocks(caregiver, rebuildPartition(caregiver, fixed))
	rec.ManuallyModified = true
	return rec, nil
}

// bestWindow scans candidate starts on the grid from minStart upward and
// keeps the best-scoring placement; strict improvement keeps the earliest
// start on ties. Falls back to gap search and finally to the unmodified
// preference when nothing fits.
func (s *Solver) bestWindow(duration, preferred float64, work []models.CaregiverBlock, predictions []models.PredictionWindow, minStart float64) models.CaregiverBlock {
	bestStart := -1.0
	bestScore := math.Inf(-1)

	for start := snapToGrid(minStart); start <= hoursPerDay-duration+1e-9; start += gridStepHours {
		end := start + duration
		if conflictsWithWork(start, end, work) {
			continue
		}
		score := s.scoreCandidate(start, end, preferred, predictions)
		if score > bestScore {
			bestScore = score
			bestStart = start
		}
	}

	if bestStart >= 0 {
		return models.CaregiverBlock{Type: models.BlockSleep, Start: bestStart, End: bestStart + duration}
	}

	if gap, ok := firstFittingGap(work, duration, minStart); ok {
		return models.CaregiverBlock{Type: models.BlockSleep, Start: gap, End: gap + duration}
	}

	// Degenerate: nothing fits, keep the stated preference and accept the
	// overlap with work.
	start := math.Min(clampHour(preferred), hoursPerDay-duration)
	s.logger.Warn("no conflict-free sleep placement, using preference",
		slog.Float64("preferred", preferred), slog.Float64("duration", duration))
	return models.CaregiverBlock{Type: models.BlockSleep, Start: start, End: start + duration}
}

func (s *Solver) scoreCandidate(start, end, preferred float64, predictions []models.PredictionWindow) float64 {
	score := -math.Abs(start-preferred) * preferencePenaltyPerHour
	for _, p := range predictions {
		overlap := p.Overlap(start, end)
		if overlap <= 0 {
			continue
		}
		switch p.Kind {
		case models.WindowSleep:
			score += overlap * (p.Confidence.Score / 100) * alignmentBonusPerHour
		case models.WindowFeed:
			score -= feedConflictPenalty
		}
	}
	return score
}

// firstFittingGap searches the spans around sorted work blocks in order and
// returns the start of the first gap at least duration wide.
func firstFittingGap(work []models.CaregiverBlock, duration, minStart float64) (float64, bool) {
	sorted := append([]models.CaregiverBlock(nil), work...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	cursor := minStart
	for _, b := range sorted {
		if b.Start-cursor >= duration {
			return cursor, true
		}
		if b.End > cursor {
			cursor = b.End
		}
	}
	if hoursPerDay-cursor >= duration {
		return cursor, true
	}
	return 0, false
}

// rebuildPartition sorts the fixed blocks and synthesizes duty blocks into
// every remaining gap so the set covers [0,24) exactly. IDs are reassigned
// sequentially.
func rebuildPartition(caregiver models.Caregiver, fixed []models.CaregiverBlock) []models.CaregiverBlock {
	sorted := make([]models.CaregiverBlock, 0, len(fixed))
	for _, b := range fixed {
		b.Start = clampHour(b.Start)
		b.End = clampHour(b.End)
		if b.End-b.Start <= 0 {
			continue
		}
		sorted = append(sorted, b)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	out := make([]models.CaregiverBlock, 0, len(sorted)*2+1)
	cursor := 0.0
	for _, b := range sorted {
		if b.Start > cursor {
			out = append(out, models.CaregiverBlock{Type: models.BlockDuty, Start: cursor, End: b.Start})
		}
		// Overlapping fixed blocks (degenerate placements) are trimmed to
		// keep the partition contiguous.
		if b.Start < cursor {
			b.Start = cursor
		}
		if b.End <= b.Start {
			continue
		}
		out = append(out, b)
		cursor = b.End
	}
	if cursor < hoursPerDay {
		out = append(out, models.CaregiverBlock{Type: models.BlockDuty, Start: cursor, End: hoursPerDay})
	}

	for i := range out {
		out[i].ID = fmt.Sprintf("%s-%d", caregiver, i+1)
	}
	return out
}

func longestSleepBlock(blocks []models.CaregiverBlock) (models.CaregiverBlock, bool) {
	var best models.CaregiverBlock
	found := false
	for _, b := range blocks {
		if b.Type != models.BlockSleep {
			continue
		}
		if !found || b.Hours() > best.Hours() {
			best = b
			found = true
		}
	}
	return best, found
}

func preferredStart(rec models.DayRecord, caregiver models.Caregiver, fallback float64) float64 {
	if v, ok := rec.PreferredSleepStart[caregiver]; ok {
		return v
	}
	return clampHour(fallback)
}

func fixedOfType(blocks []models.CaregiverBlock, t models.BlockType) []models.CaregiverBlock {
	out := make([]models.CaregiverBlock, 0, len(blocks))
	for _, b := range blocks {
		if b.Type == t {
			out = append(out, b)
		}
	}
	return out
}

func conflictsWithWork(start, end float64, work []models.CaregiverBlock) bool {
	for _, w := range work {
		if start < w.End && end > w.Start {
			return true
		}
	}
	return false
}

func overlapHours(a, b models.CaregiverBlock) float64 {
	lo := math.Max(a.Start, b.Start)
	hi := math.Min(a.End, b.End)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

func snapToGrid(h float64) float64 {
	if h <= 0 {
		return 0
	}
	return math.Ceil(h/gridStepHours-1e-9) * gridStepHours
}

func clampHour(h float64) float64 {
	if h < 0 {
		return 0
	}
	if h > hoursPerDay {
		return hoursPerDay
	}
	return h
}
