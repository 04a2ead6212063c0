package handlers

import (
	"errors"
	"net/http"

	"controlling_heatpump/internal/ir"
	"controlling_heatpump/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	statusOK          = "ok"
	statusApplied     = "applied"
	statusTransmitted = "transmitted"

	errGetState        = "failed to load state"
	errApplyTarget     = "failed to apply target state"
	errTransmit        = "state saved, IR transmission failed"
	errResend          = "IR transmission failed"
	errSignal          = "failed to encode state"
	errEmptyTarget     = "at least one of mode, targetTemperature, fanSpeed is required"
	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status and include current state if available (best-effort).
func (h *Handler) respondWithStatusAndState(c *gin.Context, status string, extra gin.H) {
	ctx := c.Request.Context()
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	st, err := h.services.Monitoring.GetState(ctx)
	if err == nil {
		resp["state"] = st
	}
	c.JSON(http.StatusOK, resp)
}

// TargetRequest is a partial target-state update. Omitted fields keep their value.
type TargetRequest struct {
	// AUTO, COOL, HEAT or OFF, any letter case
	Mode *string `json:"mode,omitempty" example:"COOL"`
	// Celsius, 17..30
	TargetTemperature *int `json:"targetTemperature,omitempty" example:"24"`
	// 0 = automatic, 1..100
	FanSpeed *int `json:"fanSpeed,omitempty" example:"60"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Get heatpump state
// @Tags         heatpump
// @Produce      json
// @Success      200  {object}  models.HeatpumpState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/heatpump/state [get]
// @Security     BearerAuth
func (h *Handler) getState(c *gin.Context) {
	st, err := h.services.Monitoring.GetState(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetState, "heatpump_get_state_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// @Summary      Set target state
// @Description  Partial update; the new state is persisted and transmitted over IR
// @Tags         heatpump
// @Accept       json
// @Produce      json
// @Param        body  body   TargetRequest  true  "Target payload"
// @Success      200   {object}  map[string]interface{}  "status, state"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]interface{}
// @Router       /api/v1/heatpump/target [post]
// @Security     BearerAuth
func (h *Handler) setTarget(c *gin.Context) {
	var req TargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	params := service.TargetParams{
		Mode:              req.Mode,
		TargetTemperature: req.TargetTemperature,
		FanSpeed:          req.FanSpeed,
	}
	if params.Empty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": errEmptyTarget})
		return
	}

	operator := operatorID(c)
	st, err := h.services.Heatpump.ApplyTarget(c.Request.Context(), params)
	switch {
	case err == nil:
		h.log.Infow("heatpump_target_set", "operator_id", operator, "mode", st.Mode,
			"target_temperature", st.TargetTemperature, "fan_speed", st.FanSpeed)
		c.JSON(http.StatusOK, gin.H{"status": statusApplied, "state": st})
	case errors.Is(err, service.ErrInvalidTarget), errors.Is(err, ir.ErrInvalidArgument):
		h.log.Infow("heatpump_target_rejected", "operator_id", operator, "err", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ir.ErrHardwareFailure):
		h.log.Errorw("heatpump_target_transmit_failed", "operator_id", operator, "err", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": errTransmit, "state": st})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errApplyTarget, "heatpump_apply_target_failed", err,
			"operator_id", operator)
	}
}

// @Summary      Resend current state
// @Tags         heatpump
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status, state"
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/heatpump/transmit [post]
// @Security     BearerAuth
func (h *Handler) transmit(c *gin.Context) {
	if err := h.services.Heatpump.TransmitCurrent(c.Request.Context()); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errResend, "heatpump_transmit_failed", err,
			"operator_id", operatorID(c))
		return
	}
	h.respondWithStatusAndState(c, statusTransmitted, gin.H{})
}

// @Summary      Encoded IR frame of the current state
// @Tags         heatpump
// @Produce      json
// @Success      200  {object}  service.SignalInfo
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/heatpump/signal [get]
// @Security     BearerAuth
func (h *Handler) getSignal(c *gin.Context) {
	info, err := h.services.Heatpump.Signal(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errSignal, "heatpump_signal_failed", err)
		return
	}
	c.JSON(http.StatusOK, info)
}
