package service

import (
	"time"

	"controlling_heatpump/internal/ir"
	"controlling_heatpump/internal/models"
)

// TargetParams is a partial update of the control state. Nil fields keep
// their persisted value.
type TargetParams struct {
	Mode              *string
	TargetTemperature *int
	FanSpeed          *int
}

// Empty reports whether the update changes nothing.
func (p TargetParams) Empty() bool {
	return p.Mode == nil && p.TargetTemperature == nil && p.FanSpeed == nil
}

// SignalInfo describes the frame the persisted state encodes to.
type SignalInfo struct {
	State       models.HeatpumpState `json:"state"`
	Signal      string               `json:"signal"`
	Bits        int                  `json:"bits"`
	Pulses      int                  `json:"pulses"`
	Fields      ir.Fields            `json:"fields"`
	Duration    time.Duration        `json:"duration_ns"`
	Transmitter *TransmitterStatus   `json:"transmitter,omitempty"`
}

// TransmitterStatus is the IR line's position after its latest call.
// Bit is the failing bit when State is "aborted".
type TransmitterStatus struct {
	State string `json:"state"`
	Bit   int    `json:"bit"`
}

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "STARTUP", "STATE_CHANGE", "TRANSMIT", "ERROR", "TELEMETRY"
}
