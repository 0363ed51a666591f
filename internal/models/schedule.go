package models

// EventType enumerates logged infant-care events.
type EventType string

const (
	EventSleep  EventType = "sleep"
	EventFeed   EventType = "feed"
	EventDiaper EventType = "diaper"
	EventNote   EventType = "note"
)

// DiaperKind enumerates diaper change contents.
type DiaperKind string

const (
	DiaperWet   DiaperKind = "wet"
	DiaperDirty DiaperKind = "dirty"
	DiaperMixed DiaperKind = "mixed"
)

// LoggedEvent is a single care event on one calendar day. Times are decimal
// hours in [0,24). A nil End marks an instantaneous event or a still-open
// sleep session; End is set exactly once when the session closes.
type LoggedEvent struct {
	ID     string     `json:"id"`
	Type   EventType  `json:"type"`
	Start  float64    `json:"start"`
	End    *float64   `json:"end,omitempty"`
	Amount float64    `json:"amount,omitempty"`
	Diaper DiaperKind `json:"diaper,omitempty"`
	Note   string     `json:"note,omitempty"`
}

// Open reports whether the event is a still-running session.
func (e LoggedEvent) Open() bool {
	return e.End == nil
}

// EndOrStart returns the closing hour, falling back to the start for open events.
func (e LoggedEvent) EndOrStart() float64 {
	if e.End != nil {
		return *e.End
	}
	return e.Start
}

// Duration returns the event length in hours, crossing midnight when the
// close hour precedes the start. Open events have zero duration.
func (e LoggedEvent) Duration() float64 {
	if e.End == nil {
		return 0
	}
	d := *e.End - e.Start
	if d < 0 {
		d += 24
	}
	return d
}

// Caregiver identifies one of the two alternating caregivers.
type Caregiver string

const (
	CaregiverMom Caregiver = "mom"
	CaregiverDad Caregiver = "dad"
)

// BlockType enumerates caregiver schedule block kinds. Duty blocks are always
// derived; they fill whatever sleep and work blocks leave uncovered.
type BlockType string

const (
	BlockSleep BlockType = "sleep"
	BlockDuty  BlockType = "duty"
	BlockWork  BlockType = "work"
)

// CaregiverBlock is one interval of a caregiver's day in decimal hours.
// For each caregiver and day the block set partitions [0,24) with no gaps
// or overlaps.
type CaregiverBlock struct {
	ID    string    `json:"id"`
	Type  BlockType `json:"type"`
	Start float64   `json:"start"`
	End   float64   `json:"end"`
}

// Fixed reports whether the block is hand-placed (sleep or work) rather than derived.
func (b CaregiverBlock) Fixed() bool {
	return b.Type == BlockSleep || b.Type == BlockWork
}

// Hours returns the block width.
func (b CaregiverBlock) Hours() float64 {
	return b.End - b.Start
}

// DayRecord holds everything tracked for one calendar date.
type DayRecord struct {
	Date                string                `json:"date"`
	Events              []LoggedEvent         `json:"events"`
	MomBlocks           []CaregiverBlock      `json:"momBlocks"`
	DadBlocks           []CaregiverBlock      `json:"dadBlocks"`
	PreferredSleepStart map[Caregiver]float64 `json:"preferredSleepStart,omitempty"`
	ManuallyModified    bool                  `json:"manuallyModified"`
}

// BlocksFor returns the block set for the named caregiver.
func (r DayRecord) BlocksFor(c Caregiver) []CaregiverBlock {
	if c == CaregiverDad {
		return r.DadBlocks
	}
	return r.MomBlocks
}

// SetBlocks replaces the block set for the named caregiver.
func (r *DayRecord) SetBlocks(c Caregiver, blocks []CaregiverBlock) {
	if c == CaregiverDad {
		r.DadBlocks = blocks
		return
	}
	r.MomBlocks = blocks
}

// EventsOfType returns the day's events of one type in slice order.
func (r DayRecord) EventsOfType(t EventType) []LoggedEvent {
	out := make([]LoggedEvent, 0, len(r.Events))
	for _, ev := range r.Events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

// DefaultDayRecord builds the record used for dates with no stored data:
// four alternating six-hour sleep/duty blocks per caregiver, offset so one
// caregiver is always on duty, and no logged events.
func DefaultDayRecord(date string) DayRecord {
	mom := []CaregiverBlock{
		{ID: "mom-1", Type: BlockSleep, Start: 0, End: 6},
		{ID: "mom-2", Type: BlockDuty, Start: 6, End: 12},
		{ID: "mom-3", Type: BlockSleep, Start: 12, End: 18},
		{ID: "mom-4", Type: BlockDuty, Start: 18, End: 24},
	}
	dad := []CaregiverBlock{
		{ID: "dad-1", Type: BlockDuty, Start: 0, End: 6},
		{ID: "dad-2", Type: BlockSleep, Start: 6, End: 12},
		{ID: "dad-3", Type: BlockDuty, Start: 12, End: 18},
		{ID: "dad-4", Type: BlockSleep, Start: 18, End: 24},
	}
	return DayRecord{Date: date, MomBlocks: mom, DadBlocks: dad}
}
