// Package notify raises desktop notifications shortly before predicted
// sleep and feed windows open. Delivery is best effort; the engine never
// depends on it.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gen2brain/beeep"

	"github.com/lullaby-stack/care-engine/internal/models"
	"github.com/lullaby-stack/care-engine/internal/utils"
)

// repeatSuppression is the minimum interval between alerts for the same
// window kind.
const repeatSuppression = 30 * time.Minute

// WindowSource supplies prediction windows opening within the lead time.
type WindowSource interface {
	UpcomingWindows(lead time.Duration) ([]models.PredictionWindow, error)
}

// Watcher polls forecasts and alerts when a window is approaching.
type Watcher struct {
	logger   *slog.Logger
	source   WindowSource
	lead     time.Duration
	interval time.Duration

	mu        sync.Mutex
	lastAlert map[models.WindowKind]time.Time

	// send is swappable for tests.
	send func(title, message string) error
}

// NewWatcher constructs a watcher polling at the given interval.
func NewWatcher(logger *slog.Logger, source WindowSource, lead, interval time.Duration) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	if lead <= 0 {
		lead = 15 * time.Minute
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &Watcher{
		logger:    logger,
		source:    source,
		lead:      lead,
		interval:  interval,
		lastAlert: make(map[models.WindowKind]time.Time),
		send: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Run polls until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(time.Now())
		}
	}
}

func (w *Watcher) check(now time.Time) {
	windows, err := w.source.UpcomingWindows(w.lead)
	if err != nil {
		w.logger.Warn("forecast poll failed", slog.Any("error", err))
		return
	}

	for _, window := range windows {
		if !w.shouldAlert(window.Kind, now) {
			continue
		}
		title, message := formatAlert(window, utils.DecimalHour(now))
		if err := w.send(title, message); err != nil {
			w.logger.Warn("notification delivery failed", slog.Any("error", err))
			continue
		}
		w.markAlerted(window.Kind, now)
	}
}

func (w *Watcher) shouldAlert(kind models.WindowKind, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	last, ok := w.lastAlert[kind]
	return !ok || now.Sub(last) >= repeatSuppression
}

func (w *Watcher) markAlerted(kind models.WindowKind, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lastAlert[kind] = now
}

func formatAlert(window models.PredictionWindow, nowHour float64) (string, string) {
	minutes := int(window.MinutesFromNow(nowHour))
	clock := utils.ClockString(window.Start)
	if window.Kind == models.WindowFeed {
		return "Feed window approaching",
			fmt.Sprintf("Next feed predicted around %s (in %d min).", clock, minutes)
	}
	return "Sleep window approaching",
		fmt.Sprintf("Next nap predicted around %s (in %d min).", clock, minutes)
}
