package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"mltm/internal/models"
	"mltm/internal/service"
)

// Common response/error strings to avoid magic literals.
const (
	errMachineNotFound = "machine not found"
	errColorNotFound   = "color not provisioned"
	errInternal        = "internal server error"
	errOverloaded      = "ingest queue overloaded, retry later"
	errInvalidBodyPref = "invalid body: "
)

// IngestRequest is the heartbeat payload devices send.
type IngestRequest struct {
	// External machine code, e.g. "CNC1"
	MachineCode string `json:"machine_code" binding:"required" example:"CNC1"`
	// Raw color signal; case-insensitive, aliases like "amber"/"g" accepted
	Color string `json:"color" binding:"required" example:"green"`
	// Optional event time (RFC 3339); defaults to receipt time
	At *time.Time `json:"at,omitempty"`
}

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// @Summary      Apply a heartbeat synchronously
// @Tags         ingest
// @Accept       json
// @Produce      json
// @Param        body  body   IngestRequest  true  "Heartbeat payload"
// @Success      200   {object}  map[string]interface{}  "ok, action, color"
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /ingest [post]
func (h *Handler) postIngest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	action, err := h.services.Ingest.Process(c.Request.Context(), service.IngestParams{
		MachineCode: req.MachineCode,
		Color:       req.Color,
		At:          req.At,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrMachineNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": errMachineNotFound})
		case errors.Is(err, service.ErrColorNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": errColorNotFound})
		case errors.Is(err, service.ErrInvalidTimeRange):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.logAndJSONError(c, http.StatusInternalServerError, errInternal,
				"ingest_apply_failed", err, "machine_code", req.MachineCode)
		}
		return
	}

	resp := gin.H{"ok": true, "action": action}
	if norm := models.NormalizeColor(req.Color); norm != models.ColorUnknown {
		resp["color"] = norm
	}
	c.JSON(http.StatusOK, resp)
}

// @Summary      Queue a heartbeat (fast acknowledgment)
// @Description  Returns before the mutation lands; persistence is asynchronous.
// @Tags         ingest
// @Accept       json
// @Produce      json
// @Param        body  body   IngestRequest  true  "Heartbeat payload"
// @Success      202   {object}  map[string]interface{}  "queued, job_id"
// @Failure      400   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /ingest/heartbeat [post]
func (h *Handler) postHeartbeat(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	jobID, err := h.services.Ingest.Enqueue(service.IngestParams{
		MachineCode: req.MachineCode,
		Color:       req.Color,
		At:          req.At,
	})
	if err != nil {
		if errors.Is(err, service.ErrQueueOverloaded) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": errOverloaded})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errInternal,
			"ingest_enqueue_failed", err, "machine_code", req.MachineCode)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"queued": true, "job_id": jobID})
}
