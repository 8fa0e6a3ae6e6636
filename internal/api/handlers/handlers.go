// Package handlers implements the HTTP Boundary's route bodies
// (SPEC_FULL.md §4.12), grounded on the teacher's internal/api/handlers
// package: one Handler struct holding the shared dependencies, one
// method per route, gin.H error bodies on failure.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bruno.lopes/dutyplanner/internal/config"
	"github.com/bruno.lopes/dutyplanner/internal/engine"
	"github.com/bruno.lopes/dutyplanner/internal/explain"
	"github.com/bruno.lopes/dutyplanner/internal/holidays"
	"github.com/bruno.lopes/dutyplanner/internal/ics"
	"github.com/bruno.lopes/dutyplanner/internal/store"
)

// Handler holds everything a route body needs: where scenarios live on
// disk, the persistence layer, the holiday source, and an optional
// infeasibility explainer.
type Handler struct {
	ScenarioDir string
	Store       *store.Store
	Holidays    *holidays.Source
	Explainer   *explain.Explainer
}

// New builds a Handler with a ready-to-use holiday source.
func New(scenarioDir string, st *store.Store) *Handler {
	return &Handler{
		ScenarioDir: scenarioDir,
		Store:       st,
		Holidays:    holidays.NewSource(),
		Explainer:   explain.NewExplainer(),
	}
}

// Health reports the service is up.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunScenario loads a named scenario, runs the Scheduler/Solver Driver,
// persists the result (feasible schedule or infeasible diagnosis), and
// returns it.
func (h *Handler) RunScenario(c *gin.Context) {
	name := c.Param("scenario")

	reg, cal, err := config.LoadScenario(h.ScenarioDir, name)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Extend the holiday-resolution window well past the horizon end so
	// multi-week tasks that push the effective schedule window out still
	// see region holidays (see config.HolidayPredicate).
	extendedEnd := cal.End.AddDate(0, 0, 60)
	predicate := config.HolidayPredicate(h.Holidays, cal, extendedEnd)

	driver := engine.NewDriver(reg, predicate)
	result, err := driver.Generate(cal.Start, cal.End, false, nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if result.Schedule == nil {
		h.respondInfeasible(c, name, result)
		return
	}

	data, err := result.Schedule.ToJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if err := h.Store.SaveSchedule(name, string(data), result.Status.String()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", data)
}

func (h *Handler) respondInfeasible(c *gin.Context, name string, result *engine.Result) {
	explanation, _ := h.Explainer.Explain(c.Request.Context(), result.Diagnosis)

	traceJSON, err := engine.TraceJSON(result.Diagnosis.Trace)
	if err != nil {
		traceJSON = []byte("{}")
	}
	h.Store.SaveScheduleWithTrace(name, "null", result.Status.String(), string(traceJSON))

	c.JSON(http.StatusUnprocessableEntity, gin.H{
		"status":              explanation.Status,
		"unresolvable_groups": explanation.UnresolvableGroups,
		"explanation":         explanation.Prose,
	})
}

// Trace returns the per-block candidate trace recorded for a scenario's
// most recent run (spec.md §6's debug artifact), populated only when
// that run was infeasible.
func (h *Handler) Trace(c *gin.Context) {
	name := c.Param("scenario")
	sched, err := h.Store.LatestSchedule(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no schedule has been generated for this scenario yet"})
		return
	}
	if sched.TraceJSON == "" {
		c.JSON(http.StatusNotFound, gin.H{"error": "the most recent run for this scenario was feasible; no trace was recorded"})
		return
	}
	c.Data(http.StatusOK, "application/json", []byte(sched.TraceJSON))
}

// LatestSchedule returns the most recently generated schedule for a
// scenario, if any has been run.
func (h *Handler) LatestSchedule(c *gin.Context) {
	name := c.Param("scenario")
	sched, err := h.Store.LatestSchedule(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no schedule has been generated for this scenario yet"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       sched.Status,
		"generated_at": sched.GeneratedAt.Format(time.RFC3339),
		"schedule":     rawJSON(sched.ScheduleJSON),
	})
}

// ExportICS renders the latest saved schedule for a scenario as an
// iCalendar document.
func (h *Handler) ExportICS(c *gin.Context) {
	name := c.Param("scenario")
	saved, err := h.Store.LatestSchedule(name)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no schedule has been generated for this scenario yet"})
		return
	}

	records, err := engine.ScheduleFromJSON([]byte(saved.ScheduleJSON))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	sched := &engine.Schedule{Assignments: records}

	data, err := ics.Export(sched)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "text/calendar", data)
}

// rawJSON lets an already-encoded JSON string pass through gin's
// encoder unescaped a second time.
type rawJSON string

func (r rawJSON) MarshalJSON() ([]byte, error) { return []byte(r), nil }
