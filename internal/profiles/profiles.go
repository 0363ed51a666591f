// Package profiles holds the age-bracketed pediatric guideline table the
// forecast and analytics layers consult. The values are general published
// guidance, not per-baby calibration, and are deliberately kept as plain
// configuration.
package profiles

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Range is an inclusive guideline band in the unit of its field.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Mid returns the band midpoint.
func (r Range) Mid() float64 {
	return (r.Min + r.Max) / 2
}

// AgeProfile is one guideline bracket. A bracket applies to ages strictly
// below MaxAgeDays; the last bracket catches everything older.
type AgeProfile struct {
	Label        string `yaml:"label"`
	MaxAgeDays   int    `yaml:"maxAgeDays"`
	WakeWindow   Range  `yaml:"wakeWindow"`
	FeedInterval Range  `yaml:"feedInterval"`
	NapsPerDay   Range  `yaml:"napsPerDay"`
	TotalSleep   Range  `yaml:"totalSleep"`
}

type profileFile struct {
	Profiles []AgeProfile `yaml:"profiles"`
}

// Table resolves age profiles, optionally overridden by a YAML pack.
type Table struct {
	profiles []AgeProfile
	logger   *slog.Logger
}

// NewTable loads the guideline table. An empty path or a missing file keeps
// the built-in defaults; a malformed file is an error.
func NewTable(path string, logger *slog.Logger) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}
	table := &Table{profiles: defaultProfiles(), logger: logger}
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return table, nil
		}
		return nil, err
	}
	var file profileFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Profiles) > 0 {
		table.profiles = file.Profiles
		logger.Info("loaded age profile pack", slog.String("path", path), slog.Int("brackets", len(file.Profiles)))
	}
	return table, nil
}

// ForAge returns the bracket covering the given age in days. Ages past the
// table fall into the last bracket.
func (t *Table) ForAge(ageDays int) AgeProfile {
	for _, p := range t.profiles {
		if ageDays < p.MaxAgeDays {
			return p
		}
	}
	return t.profiles[len(t.profiles)-1]
}

// TargetStretch returns the age-appropriate longest-sleep-stretch target in
// hours, used by the sleep score.
func TargetStretch(ageDays int) float64 {
	switch {
	case ageDays < 56:
		return 3
	case ageDays < 168:
		return 5
	case ageDays < 365:
		return 7
	default:
		return 10
	}
}

// DefaultBedtime returns the age-based fallback bedtime as a decimal hour.
func DefaultBedtime(ageDays int) float64 {
	switch {
	case ageDays < 84:
		return 21.0
	case ageDays < 168:
		return 20.0
	default:
		return 19.5
	}
}

func defaultProfiles() []AgeProfile {
	return []AgeProfile{
		{
			Label:        "newborn",
			MaxAgeDays:   28,
			WakeWindow:   Range{Min: 0.75, Max: 1.25},
			FeedInterval: Range{Min: 2, Max: 3},
			NapsPerDay:   Range{Min: 4, Max: 8},
			TotalSleep:   Range{Min: 14, Max: 17},
		},
		{
			Label:        "4-8 weeks",
			MaxAgeDays:   56,
			WakeWindow:   Range{Min: 1.25, Max: 1.75},
			FeedInterval: Range{Min: 2.5, Max: 3.5},
			NapsPerDay:   Range{Min: 4, Max: 6},
			TotalSleep:   Range{Min: 14, Max: 17},
		},
		{
			Label:        "2-3 months",
			MaxAgeDays:   84,
			WakeWindow:   Range{Min: 1.25, Max: 2},
			FeedInterval: Range{Min: 2.5, Max: 3.5},
			NapsPerDay:   Range{Min: 4, Max: 5},
			TotalSleep:   Range{Min: 14, Max: 16},
		},
		{
			Label:        "3-4 months",
			MaxAgeDays:   112,
			WakeWindow:   Range{Min: 1.5, Max: 2.25},
			FeedInterval: Range{Min: 3, Max: 4},
			NapsPerDay:   Range{Min: 3, Max: 5},
			TotalSleep:   Range{Min: 13, Max: 16},
		},
		{
			Label:        "4-6 months",
			MaxAgeDays:   168,
			WakeWindow:   Range{Min: 2, Max: 2.75},
			FeedInterval: Range{Min: 3, Max: 4},
			NapsPerDay:   Range{Min: 3, Max: 4},
			TotalSleep:   Range{Min: 12, Max: 15},
		},
		{
			Label:        "6-9 months",
			MaxAgeDays:   274,
			WakeWindow:   Range{Min: 2.5, Max: 3.5},
			FeedInterval: Range{Min: 3.5, Max: 4.5},
			NapsPerDay:   Range{Min: 2, Max: 3},
			TotalSleep:   Range{Min: 12, Max: 15},
		},
		{
			Label:        "9-12 months",
			MaxAgeDays:   365,
			WakeWindow:   Range{Min: 3, Max: 4},
			FeedInterval: Range{Min: 4, Max: 5},
			NapsPerDay:   Range{Min: 2, Max: 2},
			TotalSleep:   Range{Min: 11, Max: 14},
		},
		{
			Label:        "12-18 months",
			MaxAgeDays:   548,
			WakeWindow:   Range{Min: 4, Max: 6},
			FeedInterval: Range{Min: 4, Max: 6},
			NapsPerDay:   Range{Min: 1, Max: 2},
			TotalSleep:   Range{Min: 11, Max: 14},
		},
		{
			Label:        "18+ months",
			MaxAgeDays:   1<<31 - 1,
			WakeWindow:   Range{Min: 5, Max: 7},
			FeedInterval: Range{Min: 4, Max: 6},
			NapsPerDay:   Range{Min: 1, Max: 1},
			TotalSleep:   Range{Min: 10, Max: 14},
		},
	}
}
