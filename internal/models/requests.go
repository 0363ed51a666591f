package models

// SolveRequest captures one auto-solve invocation for a single date.
// Preferred starts are decimal hours; per-day overrides stored on the
// record take precedence over these.
type SolveRequest struct {
	Date              string  `json:"date"`
	TargetSleepHours  float64 `json:"targetSleepHours"`
	MomPreferredStart float64 `json:"momPreferredStart"`
	DadPreferredStart float64 `json:"dadPreferredStart"`
	AllowOverlap      bool    `json:"allowOverlap"`
}

// SolveRangeRequest applies the same solve parameters to a list of dates
// persisted as one atomic batch.
type SolveRangeRequest struct {
	Dates             []string `json:"dates"`
	TargetSleepHours  float64  `json:"targetSleepHours"`
	MomPreferredStart float64  `json:"momPreferredStart"`
	DadPreferredStart float64  `json:"dadPreferredStart"`
	AllowOverlap      bool     `json:"allowOverlap"`
}

// AdjustBlockRequest resizes or moves one hand-placed block. The duty
// partition is rebuilt afterwards and the caregiver's preferred sleep start
// follows their longest sleep block.
type AdjustBlockRequest struct {
	Date      string    `json:"date"`
	Caregiver Caregiver `json:"caregiver"`
	BlockID   string    `json:"blockId"`
	NewStart  float64   `json:"newStart"`
	NewEnd    float64   `json:"newEnd"`
}
