package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"controlling_heatpump/internal/ir"
	"controlling_heatpump/internal/metrics"
)

// ParseTargetMessage decodes a target-state bus message for deviceID.
// Fields of the wrong JSON type are ignored, and fractional numbers are
// truncated toward zero.
func ParseTargetMessage(payload []byte, deviceID string) (TargetParams, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil || raw == nil {
		return TargetParams{}, ErrMalformedMessage
	}

	var id string
	if v, ok := raw["deviceId"]; !ok || json.Unmarshal(v, &id) != nil || id != deviceID {
		return TargetParams{}, ErrWrongDevice
	}

	var p TargetParams
	if v, ok := raw["mode"]; ok && !isNull(v) {
		var mode string
		if json.Unmarshal(v, &mode) == nil {
			p.Mode = &mode
		}
	}
	p.TargetTemperature = intField(raw, "targetTemperature")
	p.FanSpeed = intField(raw, "fanSpeed")
	return p, nil
}

func intField(raw map[string]json.RawMessage, key string) *int {
	v, ok := raw[key]
	if !ok || isNull(v) {
		return nil
	}
	var f float64
	if json.Unmarshal(v, &f) != nil {
		return nil
	}
	// clamp so the conversion is defined; range checks happen later
	f = math.Max(math.Min(math.Trunc(f), math.MaxInt32), math.MinInt32)
	n := int(f)
	return &n
}

func isNull(v json.RawMessage) bool {
	return string(bytes.TrimSpace(v)) == "null"
}

// HandleTargetMessage is the bus handler for the target-state topic. It
// never returns an error: rejected messages are logged and counted.
func (s *HeatpumpService) HandleTargetMessage(ctx context.Context, topic string, payload []byte) {
	p, err := ParseTargetMessage(payload, s.deviceID)
	if err != nil {
		s.metrics.BusMessage(metrics.ResultIgnored)
		s.log.Debugw("target_message_ignored", "topic", topic, "reason", err.Error())
		return
	}

	st, err := s.ApplyTarget(ctx, p)
	switch {
	case err == nil:
		s.metrics.BusMessage(metrics.ResultOK)
		s.log.Infow("target_message_applied", "mode", st.Mode, "target_temperature", st.TargetTemperature)
	case errors.Is(err, ErrInvalidTarget):
		s.metrics.BusMessage(metrics.ResultRejected)
		s.log.Warnw("target_message_rejected", "topic", topic, "err", err, "payload", string(payload))
	case errors.Is(err, ir.ErrHardwareFailure):
		// state is saved; the failure is already logged and recorded
		s.metrics.BusMessage(metrics.ResultOK)
	default:
		s.metrics.BusMessage(metrics.ResultFailed)
		s.log.Errorw("target_message_failed", "topic", topic, "err", fmt.Errorf("apply target: %w", err))
	}
}
