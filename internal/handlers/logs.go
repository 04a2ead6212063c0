package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"controlling_heatpump/internal/models"
	"controlling_heatpump/internal/service"

	"github.com/gin-gonic/gin"
)

const errLoadLogs = "failed to load logs"

// Accepted layouts for the from/to query bounds, tried in order.
var logTimeLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// badLogQuery is a query error safe to show the client.
type badLogQuery struct{ msg string }

func (e badLogQuery) Error() string { return e.msg }

// logFilterFromQuery builds the filter for GET /logs. A date-only 'to'
// covers the whole day.
func logFilterFromQuery(c *gin.Context) (service.LogFilter, error) {
	var (
		f   service.LogFilter
		err error
	)
	if raw := c.Query("from"); raw != "" {
		if f.From, err = parseLogTime(raw); err != nil {
			return f, badLogQuery{"invalid 'from': " + err.Error()}
		}
	}
	if raw := c.Query("to"); raw != "" {
		if f.To, err = parseLogTime(raw); err != nil {
			return f, badLogQuery{"invalid 'to': " + err.Error()}
		}
		if !strings.ContainsAny(raw, "T ") {
			f.To = f.To.Add(24*time.Hour - time.Nanosecond)
		}
	}
	if raw := c.Query("type"); strings.TrimSpace(raw) != "" {
		t, ok := models.ParseEventType(raw)
		if !ok {
			return f, badLogQuery{fmt.Sprintf("unknown event type %q, want one of %s", raw, strings.Join(models.EventTypes, ", "))}
		}
		f.Type = t
	}
	return f, nil
}

func parseLogTime(s string) (time.Time, error) {
	for _, layout := range logTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%q is not RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'", s)
}

// @Summary      List heatpump events
// @Description  Events oldest first. Bounds accept RFC3339, 'YYYY-MM-DD HH:MM:SS' or 'YYYY-MM-DD'; a date-only 'to' is inclusive of that day.
// @Tags         logs
// @Produce      json
// @Param        from  query   string  false  "Start of range"  example(2025-08-01)
// @Param        to    query   string  false  "End of range"    example(2025-08-31)
// @Param        type  query   string  false  "Event type, any letter case"  Enums(STARTUP,STATE_CHANGE,TRANSMIT,ERROR,TELEMETRY)
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/logs [get]
// @Security     BearerAuth
func (h *Handler) getLogs(c *gin.Context) {
	filter, err := logFilterFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	events, err := h.services.EventLog.List(c.Request.Context(), filter)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"count": len(events), "events": events})
	case errors.Is(err, service.ErrInvalidTimeRange), errors.Is(err, service.ErrUnknownEventType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadLogs, "logs_list_failed", err,
			"from", filter.From, "to", filter.To, "type", filter.Type, "operator_id", operatorID(c))
	}
}
