package service

import (
	"context"
	"time"

	"controlling_heatpump/internal/models"
	"controlling_heatpump/internal/repository"
)

type MonitoringService struct {
	stateRepo repository.StateRepo
	defaults  Defaults
}

func NewMonitoringService(stateRepo repository.StateRepo, defaults Defaults) *MonitoringService {
	return &MonitoringService{stateRepo: stateRepo, defaults: defaults}
}

// GetState returns the latest persisted heatpump state.
// If no state is persisted yet, returns the configured defaults without saving them.
func (s *MonitoringService) GetState(ctx context.Context) (models.HeatpumpState, error) {
	state, err := s.stateRepo.Load(ctx)
	if err != nil {
		return models.HeatpumpState{}, err
	}
	if state.ID == 0 {
		return s.baselineState(), nil
	}
	state.UpdatedAt = toUTC(state.UpdatedAt)
	return state, nil
}

func (s *MonitoringService) baselineState() models.HeatpumpState {
	return models.HeatpumpState{
		ID:                1, // single-row table
		Mode:              s.defaults.Mode,
		TargetTemperature: s.defaults.TargetTemperature,
		FanSpeed:          s.defaults.FanSpeed,
		OperatingState:    models.OperatingIdle,
		UpdatedAt:         time.Now().UTC(),
	}
}

// toUTC normalizes non-zero time to UTC, preserving zero values.
func toUTC(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}
