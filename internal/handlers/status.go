package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mltm/internal/service"
)

const dateLayout = "2006-01-02"

// parseDateParam reads a required YYYY-MM-DD query parameter as UTC
// midnight. Writes a 400 and returns false when missing or malformed.
func (h *Handler) parseDateParam(c *gin.Context, name string) (time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " required"})
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be YYYY-MM-DD"})
		return time.Time{}, false
	}
	return t, true
}

// respondQueryError maps reporting errors to HTTP responses.
func (h *Handler) respondQueryError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	if errors.Is(err, service.ErrMachineNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": errMachineNotFound})
		return
	}
	h.logAndJSONError(c, http.StatusInternalServerError, errInternal, logKey, err, kv...)
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary      Storage health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      500  {object}  map[string]interface{}
// @Router       /health/db [get]
func (h *Handler) healthDB(c *gin.Context) {
	if err := h.services.Directory.Ping(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errInternal, "health_db_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "db": 1})
}

// @Summary      List machines
// @Tags         fleet
// @Produce      json
// @Success      200  {array}   models.Machine
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/machines [get]
// @Security     BearerAuth
func (h *Handler) getMachines(c *gin.Context) {
	machines, err := h.services.Directory.Machines(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errInternal, "list_machines_failed", err)
		return
	}
	c.JSON(http.StatusOK, machines)
}

// @Summary      List status colors
// @Tags         fleet
// @Produce      json
// @Success      200  {array}   models.StatusColor
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/colors [get]
// @Security     BearerAuth
func (h *Handler) getColors(c *gin.Context) {
	colors, err := h.services.Directory.Colors(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errInternal, "list_colors_failed", err)
		return
	}
	c.JSON(http.StatusOK, colors)
}

// @Summary      Current machine status
// @Tags         status
// @Produce      json
// @Param        code  path  string  true  "Machine code"
// @Success      200  {object}  models.CurrentStatus
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/machines/{code}/status/current [get]
// @Security     BearerAuth
func (h *Handler) getCurrentStatus(c *gin.Context) {
	code := c.Param("code")
	status, err := h.services.Reporting.CurrentStatus(c.Request.Context(), code)
	if err != nil {
		h.respondQueryError(c, "current_status_failed", err, "machine_code", code)
		return
	}
	c.JSON(http.StatusOK, status)
}

// @Summary      Per-color seconds for one day
// @Tags         status
// @Produce      json
// @Param        code  path   string  true  "Machine code"
// @Param        date  query  string  true  "Day, YYYY-MM-DD"
// @Success      200  {array}   models.ColorBucket
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/machines/{code}/status/by-date [get]
// @Security     BearerAuth
func (h *Handler) getDayBreakdown(c *gin.Context) {
	code := c.Param("code")
	day, ok := h.parseDateParam(c, "date")
	if !ok {
		return
	}
	buckets, err := h.services.Reporting.DayBreakdown(c.Request.Context(), code, day)
	if err != nil {
		h.respondQueryError(c, "day_breakdown_failed", err, "machine_code", code)
		return
	}
	c.JSON(http.StatusOK, buckets)
}

// @Summary      Seven daily breakdowns starting at a date
// @Tags         status
// @Produce      json
// @Param        code        path   string  true  "Machine code"
// @Param        week_start  query  string  true  "First day, YYYY-MM-DD"
// @Success      200  {array}   models.DayBreakdown
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/machines/{code}/status/weekly [get]
// @Security     BearerAuth
func (h *Handler) getWeekBreakdown(c *gin.Context) {
	code := c.Param("code")
	weekStart, ok := h.parseDateParam(c, "week_start")
	if !ok {
		return
	}
	days, err := h.services.Reporting.WeekBreakdown(c.Request.Context(), code, weekStart)
	if err != nil {
		h.respondQueryError(c, "week_breakdown_failed", err, "machine_code", code)
		return
	}
	c.JSON(http.StatusOK, days)
}

// @Summary      Raw interval timeline for one day
// @Tags         status
// @Produce      json
// @Param        code  path   string  true  "Machine code"
// @Param        date  query  string  true  "Day, YYYY-MM-DD"
// @Success      200  {array}   models.StatusInterval
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/machines/{code}/timeline [get]
// @Security     BearerAuth
func (h *Handler) getTimeline(c *gin.Context) {
	code := c.Param("code")
	day, ok := h.parseDateParam(c, "date")
	if !ok {
		return
	}
	timeline, err := h.services.Reporting.Timeline(c.Request.Context(), code, day)
	if err != nil {
		h.respondQueryError(c, "timeline_failed", err, "machine_code", code)
		return
	}
	c.JSON(http.StatusOK, timeline)
}

// @Summary      Fleet overview for today
// @Tags         status
// @Produce      json
// @Success      200  {object}  models.Overview
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/overview/today [get]
// @Security     BearerAuth
func (h *Handler) getOverviewToday(c *gin.Context) {
	overview, err := h.services.Reporting.OverviewToday(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errInternal, "overview_failed", err)
		return
	}
	c.JSON(http.StatusOK, overview)
}
