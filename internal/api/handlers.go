package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lullaby-stack/care-engine/internal/engine"
	"github.com/lullaby-stack/care-engine/internal/models"
	"github.com/lullaby-stack/care-engine/internal/services"
)

// Handlers carries the service dependencies for the HTTP routes.
type Handlers struct {
	svc *services.ScheduleService
}

// NewHandlers constructs the route handlers.
func NewHandlers(svc *services.ScheduleService) *Handlers {
	return &Handlers{svc: svc}
}

// Health reports liveness plus rolling operation latencies.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"ageDays":   h.svc.AgeDays(),
		"latencies": h.svc.Latencies(),
	})
}

// GetDay returns the record for a date, defaulting absent dates.
func (h *Handlers) GetDay(c *gin.Context) {
	rec, err := h.svc.Day(c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type logEventRequest struct {
	Type   models.EventType  `json:"type" binding:"required"`
	Start  float64           `json:"start"`
	End    *float64          `json:"end"`
	Amount float64           `json:"amount"`
	Diaper models.DiaperKind `json:"diaper"`
	Note   string            `json:"note"`
}

// LogEvent appends a care event to a day.
func (h *Handlers) LogEvent(c *gin.Context) {
	var req logEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := h.svc.LogEvent(c.Param("date"), models.LoggedEvent{
		Type:   req.Type,
		Start:  req.Start,
		End:    req.End,
		Amount: req.Amount,
		Diaper: req.Diaper,
		Note:   req.Note,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ev)
}

type closeEventRequest struct {
	End float64 `json:"end"`
}

// CloseEvent sets the end hour on an open session.
func (h *Handlers) CloseEvent(c *gin.Context) {
	var req closeEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ev, err := h.svc.CloseEvent(c.Param("date"), c.Param("id"), req.End)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

// UndoLastEvent removes the most recently logged event for a date.
func (h *Handlers) UndoLastEvent(c *gin.Context) {
	ev, err := h.svc.UndoLastEvent(c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ev)
}

type solveRequest struct {
	TargetSleepHours  float64 `json:"targetSleepHours"`
	MomPreferredStart float64 `json:"momPreferredStart"`
	DadPreferredStart float64 `json:"dadPreferredStart"`
	AllowOverlap      bool    `json:"allowOverlap"`
}

// SolveDay recomputes both caregivers' blocks for one date.
func (h *Handlers) SolveDay(c *gin.Context) {
	var req solveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.svc.AutoSolve(models.SolveRequest{
		Date:              c.Param("date"),
		TargetSleepHours:  req.TargetSleepHours,
		MomPreferredStart: req.MomPreferredStart,
		DadPreferredStart: req.DadPreferredStart,
		AllowOverlap:      req.AllowOverlap,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

type solveRangeRequest struct {
	Dates             []string `json:"dates" binding:"required"`
	TargetSleepHours  float64  `json:"targetSleepHours"`
	MomPreferredStart float64  `json:"momPreferredStart"`
	DadPreferredStart float64  `json:"dadPreferredStart"`
	AllowOverlap      bool     `json:"allowOverlap"`
}

// SolveRange solves a list of dates in one atomic batch.
func (h *Handlers) SolveRange(c *gin.Context) {
	var req solveRangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	recs, err := h.svc.AutoSolveRange(models.SolveRangeRequest{
		Dates:             req.Dates,
		TargetSleepHours:  req.TargetSleepHours,
		MomPreferredStart: req.MomPreferredStart,
		DadPreferredStart: req.DadPreferredStart,
		AllowOverlap:      req.AllowOverlap,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"days": recs})
}

type adjustBlockRequest struct {
	Caregiver models.Caregiver `json:"caregiver" binding:"required"`
	NewStart  float64          `json:"newStart"`
	NewEnd    float64          `json:"newEnd"`
}

// AdjustBlock moves or resizes one hand-placed block.
func (h *Handlers) AdjustBlock(c *gin.Context) {
	var req adjustBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rec, err := h.svc.AdjustBlock(models.AdjustBlockRequest{
		Date:      c.Param("date"),
		Caregiver: req.Caregiver,
		BlockID:   c.Param("id"),
		NewStart:  req.NewStart,
		NewEnd:    req.NewEnd,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// RemoveBlock deletes a hand-placed block.
func (h *Handlers) RemoveBlock(c *gin.Context) {
	caregiver := models.Caregiver(c.Query("caregiver"))
	if caregiver != models.CaregiverMom && caregiver != models.CaregiverDad {
		c.JSON(http.StatusBadRequest, gin.H{"error": "caregiver query parameter must be mom or dad"})
		return
	}

	rec, err := h.svc.RemoveBlock(c.Param("date"), caregiver, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// Forecast returns sleep or feed predictions.
func (h *Handlers) Forecast(c *gin.Context) {
	kind := models.WindowKind(c.Param("kind"))
	if kind != models.WindowSleep && kind != models.WindowFeed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "kind must be sleep or feed"})
		return
	}

	horizon := 0.0
	if v := c.Query("horizonHours"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid horizonHours"})
			return
		}
		horizon = parsed
	}

	result, err := h.svc.Forecast(kind, horizon)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Insights returns the derived analytics report.
func (h *Handlers) Insights(c *gin.Context) {
	report, err := h.svc.Insights()
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrLastFixedBlock),
		errors.Is(err, services.ErrEventClosed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrBlockNotFound),
		errors.Is(err, services.ErrEventNotFound),
		errors.Is(err, services.ErrNoEvents):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrInvalidHour),
		errors.Is(err, services.ErrInvalidDate):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
