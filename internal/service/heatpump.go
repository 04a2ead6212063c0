package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"controlling_heatpump/internal/ir"
	"controlling_heatpump/internal/logger"
	"controlling_heatpump/internal/metrics"
	"controlling_heatpump/internal/models"
	"controlling_heatpump/internal/repository"
)

var (
	// ErrInvalidTarget marks a requested control value outside its range.
	ErrInvalidTarget = errors.New("invalid target state")
	// ErrWrongDevice marks a bus message addressed to another device.
	ErrWrongDevice = errors.New("message addressed to another device")
	// ErrMalformedMessage marks a bus payload that is not a JSON object.
	ErrMalformedMessage = errors.New("malformed target message")
)

// Transmission reasons recorded with TRANSMIT events.
const (
	ReasonStartup     = "startup"
	ReasonStateChange = "state_change"
	ReasonResend      = "resend"
)

type forcer interface {
	ForceRun()
}

// statusReporter is satisfied by *ir.Transmitter.
type statusReporter interface {
	Status() (ir.State, int)
}

type HeatpumpConfig struct {
	DeviceID string
	Defaults Defaults
	Feed     *StateFeed
	Metrics  *metrics.Metrics
	Log      *logger.Logger
}

// HeatpumpService owns the control state. mu is held from load to transmit
// so concurrent updates from HTTP and the bus apply one at a time, and the
// last frame sent always matches the saved row.
type HeatpumpService struct {
	mu        sync.Mutex
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	tx        Transmitter
	sampler   forcer
	deviceID  string
	defaults  Defaults
	feed      *StateFeed
	metrics   *metrics.Metrics
	log       *logger.Logger
	now       func() time.Time
}

func NewHeatpumpService(stateRepo repository.StateRepo, eventRepo repository.EventRepo, tx Transmitter, sampler forcer, cfg HeatpumpConfig) *HeatpumpService {
	return &HeatpumpService{
		stateRepo: stateRepo,
		eventRepo: eventRepo,
		tx:        tx,
		sampler:   sampler,
		deviceID:  cfg.DeviceID,
		defaults:  cfg.Defaults,
		feed:      cfg.Feed,
		metrics:   cfg.Metrics,
		log:       logger.Or(cfg.Log),
		now:       time.Now,
	}
}

// EnsureState returns the persisted state, saving the configured defaults
// first when nothing has been persisted yet.
func (s *HeatpumpService) EnsureState(ctx context.Context) (models.HeatpumpState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureState(ctx)
}

func (s *HeatpumpService) ensureState(ctx context.Context) (models.HeatpumpState, error) {
	st, err := s.stateRepo.Load(ctx)
	if err != nil {
		return models.HeatpumpState{}, err
	}
	if st.ID != 0 {
		return st, nil
	}

	st = s.defaultState()
	if _, err := commandOf(st); err != nil {
		return models.HeatpumpState{}, fmt.Errorf("defaults: %w", err)
	}
	if err := s.stateRepo.Save(ctx, st); err != nil {
		return models.HeatpumpState{}, err
	}
	s.log.Infow("heatpump_defaults_saved", "mode", st.Mode, "target_temperature", st.TargetTemperature, "fan_speed", st.FanSpeed)
	s.feed.Notify()
	return st, nil
}

// ApplyTarget validates every present field, persists the merged state,
// then encodes and transmits it. A failed transmission is recorded but
// leaves the saved state in place; the returned state is always what was
// saved when err wraps ir.ErrHardwareFailure.
func (s *HeatpumpService) ApplyTarget(ctx context.Context, p TargetParams) (models.HeatpumpState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.ensureState(ctx)
	if err != nil {
		return models.HeatpumpState{}, err
	}

	next, err := merge(cur, p)
	if err != nil {
		return models.HeatpumpState{}, err
	}
	next.UpdatedAt = s.now().UTC()

	if err := s.stateRepo.Save(ctx, next); err != nil {
		return models.HeatpumpState{}, err
	}
	s.appendEvent(ctx, models.EventStateChange, "Target state changed", map[string]any{
		"mode":               next.Mode,
		"target_temperature": next.TargetTemperature,
		"fan_speed":          next.FanSpeed,
		"previous_mode":      cur.Mode,
		"previous_target":    cur.TargetTemperature,
		"previous_fan_speed": cur.FanSpeed,
	})
	s.log.Infow("target_state_applied", "mode", next.Mode, "target_temperature", next.TargetTemperature, "fan_speed", next.FanSpeed)
	s.feed.Notify()

	if s.sampler != nil {
		s.sampler.ForceRun()
	}

	if err := s.transmit(ctx, next, ReasonStateChange); err != nil {
		return next, err
	}
	return next, nil
}

// TransmitCurrent sends the persisted state again.
func (s *HeatpumpService) TransmitCurrent(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.ensureState(ctx)
	if err != nil {
		return err
	}
	return s.transmit(ctx, st, ReasonResend)
}

// TransmitOnStartup sends the persisted state once after boot.
func (s *HeatpumpService) TransmitOnStartup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.ensureState(ctx)
	if err != nil {
		return err
	}
	s.appendEvent(ctx, models.EventStartup, "Controller started", map[string]any{"device_id": s.deviceID})
	return s.transmit(ctx, st, ReasonStartup)
}

// Signal encodes the persisted state without transmitting it.
func (s *HeatpumpService) Signal(ctx context.Context) (SignalInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.ensureState(ctx)
	if err != nil {
		return SignalInfo{}, err
	}
	cmd, err := commandOf(st)
	if err != nil {
		return SignalInfo{}, err
	}
	sig, err := ir.Encode(cmd)
	if err != nil {
		return SignalInfo{}, err
	}
	fields, err := sig.Fields()
	if err != nil {
		return SignalInfo{}, err
	}
	info := SignalInfo{
		State:    st,
		Signal:   string(sig),
		Bits:     sig.Len(),
		Pulses:   ir.PulseCount(sig.Len()),
		Fields:   fields,
		Duration: ir.Duration(sig),
	}
	if r, ok := s.tx.(statusReporter); ok {
		state, bit := r.Status()
		info.Transmitter = &TransmitterStatus{State: state.String(), Bit: bit}
	}
	return info, nil
}

func (s *HeatpumpService) transmit(ctx context.Context, st models.HeatpumpState, reason string) error {
	cmd, err := commandOf(st)
	if err == nil {
		var sig ir.Signal
		sig, err = ir.Encode(cmd)
		if err == nil {
			return s.send(ctx, st, sig, reason)
		}
	}
	s.metrics.Transmission(metrics.ResultInvalid, 0)
	s.log.Errorw("ir_encode_failed", "err", err, "mode", st.Mode, "target_temperature", st.TargetTemperature, "fan_speed", st.FanSpeed)
	s.appendEvent(ctx, models.EventError, "Encoding failed", map[string]any{"reason": reason, "error": err.Error()})
	return err
}

func (s *HeatpumpService) send(ctx context.Context, st models.HeatpumpState, sig ir.Signal, reason string) error {
	start := s.now()
	err := s.tx.Transmit(sig)
	held := s.now().Sub(start)

	if err != nil {
		s.metrics.Transmission(metrics.ResultFailed, held)
		s.log.Errorw("ir_transmit_failed", "err", err, "reason", reason)
		s.appendEvent(ctx, models.EventError, "IR transmission failed", map[string]any{
			"reason": reason,
			"error":  err.Error(),
		})
		return err
	}

	s.metrics.Transmission(metrics.ResultOK, held)
	s.log.Infow("ir_signal_transmitted", "signal", string(sig), "reason", reason)
	s.appendEvent(ctx, models.EventTransmit, "Signal transmitted", map[string]any{
		"reason":             reason,
		"signal":             string(sig),
		"mode":               st.Mode,
		"target_temperature": st.TargetTemperature,
		"fan_speed":          st.FanSpeed,
	})
	return nil
}

// appendEvent records e; the event log is best effort once state is saved.
func (s *HeatpumpService) appendEvent(ctx context.Context, typ, desc string, meta map[string]any) {
	err := s.eventRepo.Append(ctx, models.HeatpumpEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  s.now().UTC(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		s.log.Errorw("event_append_failed", "err", err, "type", typ)
	}
}

func (s *HeatpumpService) defaultState() models.HeatpumpState {
	return models.HeatpumpState{
		ID:                1,
		Mode:              s.defaults.Mode,
		TargetTemperature: s.defaults.TargetTemperature,
		FanSpeed:          s.defaults.FanSpeed,
		OperatingState:    models.OperatingIdle,
		UpdatedAt:         s.now().UTC(),
	}
}

// merge applies p onto cur. Nothing is returned unless every field is valid.
func merge(cur models.HeatpumpState, p TargetParams) (models.HeatpumpState, error) {
	next := cur
	next.ID = 1

	if p.Mode != nil {
		m, err := ir.ParseMode(*p.Mode)
		if err != nil {
			return models.HeatpumpState{}, fmt.Errorf("%w: %w", ErrInvalidTarget, err)
		}
		next.Mode = m.String()
	}
	if p.TargetTemperature != nil {
		t := *p.TargetTemperature
		if t < ir.MinTargetTemperature || t > ir.MaxTargetTemperature {
			return models.HeatpumpState{}, fmt.Errorf("%w: target temperature %d outside [%d,%d]",
				ErrInvalidTarget, t, ir.MinTargetTemperature, ir.MaxTargetTemperature)
		}
		next.TargetTemperature = t
	}
	if p.FanSpeed != nil {
		f := *p.FanSpeed
		if f < ir.MinFanSpeed || f > ir.MaxFanSpeed {
			return models.HeatpumpState{}, fmt.Errorf("%w: fan speed %d outside [%d,%d]",
				ErrInvalidTarget, f, ir.MinFanSpeed, ir.MaxFanSpeed)
		}
		next.FanSpeed = f
	}
	return next, nil
}

// commandOf converts a persisted state into an encoder command.
func commandOf(st models.HeatpumpState) (ir.Command, error) {
	m, err := ir.ParseMode(st.Mode)
	if err != nil {
		return ir.Command{}, err
	}
	c := ir.Command{Mode: m, TargetTemperature: st.TargetTemperature, FanSpeed: st.FanSpeed}
	if err := c.Validate(); err != nil {
		return ir.Command{}, err
	}
	return c, nil
}
