package sensor

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"controlling_heatpump/internal/models"
)

// Simulation defaults. Rates are per second of wall time between reads.
const (
	DefaultOutdoorC     = 18.0 // room settles here with the unit off
	DefaultBaseHumidity = 45.0 // %RH at outdoor temperature
	DefaultDriftPerSec  = 0.005
	DefaultRampPerSec   = 0.02
	humidityPerDegree   = 0.8
	minHumidity         = 20.0
	maxHumidity         = 80.0
)

// ControlSource supplies the control state the simulated room reacts to.
// repository.StateRepo satisfies it.
type ControlSource interface {
	Load(ctx context.Context) (models.HeatpumpState, error)
}

// Simulated is a room thermal model driven by the persisted control state:
// with the unit off the room drifts toward OutdoorC; otherwise the unit pulls
// it toward the target at RampPerSec in the directions the mode allows.
type Simulated struct {
	OutdoorC     float64
	BaseHumidity float64
	DriftPerSec  float64
	RampPerSec   float64

	control ControlSource
	now     func() time.Time

	mu     sync.Mutex
	tempC  float64
	lastAt time.Time
}

func NewSimulated(control ControlSource) *Simulated {
	return &Simulated{
		OutdoorC:     DefaultOutdoorC,
		BaseHumidity: DefaultBaseHumidity,
		DriftPerSec:  DefaultDriftPerSec,
		RampPerSec:   DefaultRampPerSec,
		control:      control,
		now:          time.Now,
		tempC:        DefaultOutdoorC,
	}
}

// Read advances the model to the current time and samples it.
func (s *Simulated) Read(ctx context.Context) (models.Reading, error) {
	st, err := s.control.Load(ctx)
	if err != nil {
		return models.Reading{}, fmt.Errorf("sensor: load control state: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if !s.lastAt.IsZero() {
		elapsed := now.Sub(s.lastAt).Seconds()
		if elapsed > 0 {
			s.advance(st, elapsed)
		}
	}
	s.lastAt = now

	return models.Reading{
		Temperature: s.tempC,
		Humidity:    s.humidity(),
		TakenAt:     now.UTC(),
	}, nil
}

func (s *Simulated) advance(st models.HeatpumpState, elapsed float64) {
	target := float64(st.TargetTemperature)
	switch st.Mode {
	case "HEAT":
		if s.tempC < target {
			s.tempC = math.Min(s.tempC+s.RampPerSec*elapsed, target)
			return
		}
	case "COOL":
		if s.tempC > target {
			s.tempC = math.Max(s.tempC-s.RampPerSec*elapsed, target)
			return
		}
	case "AUTO":
		s.tempC = approach(s.tempC, target, s.RampPerSec*elapsed)
		return
	}
	// off, or already past target in a one-way mode
	s.tempC = approach(s.tempC, s.OutdoorC, s.DriftPerSec*elapsed)
}

// humidity falls as the room warms above the outdoor temperature.
func (s *Simulated) humidity() float64 {
	h := s.BaseHumidity - (s.tempC-s.OutdoorC)*humidityPerDegree
	return math.Max(minHumidity, math.Min(maxHumidity, h))
}

// approach moves from toward to by at most step.
func approach(from, to, step float64) float64 {
	if from < to {
		return math.Min(from+step, to)
	}
	return math.Max(from-step, to)
}
