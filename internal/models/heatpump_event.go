package models

import (
	"strings"
	"time"
)

// Event types written to the event log.
const (
	EventStartup     = "STARTUP"
	EventStateChange = "STATE_CHANGE"
	EventTransmit    = "TRANSMIT"
	EventError       = "ERROR"
	EventTelemetry   = "TELEMETRY"
)

// EventTypes lists every type the event log accepts.
var EventTypes = []string{EventStartup, EventStateChange, EventTransmit, EventError, EventTelemetry}

// ParseEventType returns the canonical form of s, matched case-insensitively.
func ParseEventType(s string) (string, bool) {
	want := strings.ToUpper(strings.TrimSpace(s))
	for _, t := range EventTypes {
		if t == want {
			return t, true
		}
	}
	return "", false
}

// HeatpumpEvent is a single log entry.
type HeatpumpEvent struct {
	EventID     string    `json:"event_id"`
	OccurredAt  time.Time `json:"occurred_at"`
	Type        string    `json:"type"`        // STARTUP | STATE_CHANGE | TRANSMIT | ERROR | TELEMETRY
	Description string    `json:"description"` // human-readable
	Metadata    any       `json:"metadata,omitempty"`
}
