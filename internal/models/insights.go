package models

// DailyTotal aggregates one day's sleep.
type DailyTotal struct {
	DateKey        string  `json:"date"`
	TotalHours     float64 `json:"totalHours"`
	Sessions       int     `json:"sessions"`
	LongestStretch float64 `json:"longestStretch"`
}

// SleepScoreBreakdown is the composite 0-100 sleep score and its components.
type SleepScoreBreakdown struct {
	Score          float64 `json:"score"`
	Adherence      float64 `json:"adherence"`
	Consistency    float64 `json:"consistency"`
	LongestStretch float64 `json:"longestStretch"`
}

// WakeWindowClass classifies observed wake windows against the age guideline.
type WakeWindowClass string

const (
	WakeWindowTooShort WakeWindowClass = "too_short"
	WakeWindowOptimal  WakeWindowClass = "optimal"
	WakeWindowTooLong  WakeWindowClass = "too_long"
)

// WakeWindowReport summarises observed wake windows for the lookback period.
type WakeWindowReport struct {
	AverageHours   float64         `json:"averageHours"`
	Classification WakeWindowClass `json:"classification"`
	GuidelineMin   float64         `json:"guidelineMin"`
	GuidelineMax   float64         `json:"guidelineMax"`
	Observations   int             `json:"observations"`
}

// Regression describes an active sleep regression period.
type Regression struct {
	Label      string `json:"label"`
	CenterDays int    `json:"centerDays"`
}

// BedtimeBasis labels which path produced a bedtime suggestion.
type BedtimeBasis string

const (
	BedtimeFromPattern    BedtimeBasis = "pattern_analysis"
	BedtimeFromAverage    BedtimeBasis = "average"
	BedtimeFromGuidelines BedtimeBasis = "age_guidelines"
)

// BedtimeSuggestion is a recommended bedtime hour with its derivation basis.
type BedtimeSuggestion struct {
	Hour  float64      `json:"hour"`
	Basis BedtimeBasis `json:"basis"`
}

// Tip is a human-readable care suggestion selected by the analytics rules.
type Tip struct {
	Type    string `json:"type"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// InsightsReport bundles all derived sleep analytics for one call.
type InsightsReport struct {
	DailyTotals []DailyTotal         `json:"dailyTotals"`
	Score       *SleepScoreBreakdown `json:"score,omitempty"`
	Trend       Trend                `json:"trend"`
	WakeWindows *WakeWindowReport    `json:"wakeWindows,omitempty"`
	Regression  *Regression          `json:"regression,omitempty"`
	Bedtime     BedtimeSuggestion    `json:"bedtime"`
	Tips        []Tip                `json:"tips"`
}
