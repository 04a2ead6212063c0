package sensor

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"controlling_heatpump/internal/models"
)

type fakeControl struct {
	state models.HeatpumpState
	err   error
}

func (f *fakeControl) Load(ctx context.Context) (models.HeatpumpState, error) {
	return f.state, f.err
}

type stepClock struct{ t time.Time }

func (c *stepClock) now() time.Time { return c.t }

func newTestSim(ctrl *fakeControl) (*Simulated, *stepClock) {
	clk := &stepClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewSimulated(ctrl)
	s.now = clk.now
	return s, clk
}

func approxEqual(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestSimulated_FirstReadIsOutdoor(t *testing.T) {
	s, _ := newTestSim(&fakeControl{state: models.HeatpumpState{Mode: "HEAT", TargetTemperature: 25}})
	r, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if r.Temperature != DefaultOutdoorC || r.Humidity != DefaultBaseHumidity {
		t.Fatalf("reading = %+v", r)
	}
}

func TestSimulated_Modes(t *testing.T) {
	tests := []struct {
		name    string
		mode    string
		target  int
		start   float64
		elapsed time.Duration
		want    float64
	}{
		{"heat_ramps_up", "HEAT", 25, 18, 100 * time.Second, 20},
		{"heat_clamps_at_target", "HEAT", 19, 18, 100 * time.Second, 19},
		{"heat_above_target_drifts", "HEAT", 17, 22, 100 * time.Second, 21.5},
		{"cool_ramps_down", "COOL", 20, 26, 100 * time.Second, 24},
		{"cool_below_target_drifts_up", "COOL", 25, 16, 200 * time.Second, 17},
		{"auto_heats", "AUTO", 22, 18, 50 * time.Second, 19},
		{"auto_cools", "AUTO", 20, 24, 50 * time.Second, 23},
		{"off_drifts_to_outdoor", "OFF", 30, 20, 1000 * time.Second, 18},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := &fakeControl{state: models.HeatpumpState{Mode: tc.mode, TargetTemperature: tc.target}}
			s, clk := newTestSim(ctrl)
			if _, err := s.Read(context.Background()); err != nil {
				t.Fatalf("Read: %v", err)
			}
			s.tempC = tc.start
			clk.t = clk.t.Add(tc.elapsed)

			r, err := s.Read(context.Background())
			if err != nil {
				t.Fatalf("Read: %v", err)
			}
			if !approxEqual(r.Temperature, tc.want) {
				t.Fatalf("temperature = %v, want %v", r.Temperature, tc.want)
			}
			if !r.TakenAt.Equal(clk.t) {
				t.Fatalf("TakenAt = %v, want %v", r.TakenAt, clk.t)
			}
		})
	}
}

func TestSimulated_HumidityBounded(t *testing.T) {
	s, _ := newTestSim(&fakeControl{})
	s.tempC = 100
	if h := s.humidity(); h != minHumidity {
		t.Fatalf("humidity = %v, want %v", h, minHumidity)
	}
	s.tempC = -100
	if h := s.humidity(); h != maxHumidity {
		t.Fatalf("humidity = %v, want %v", h, maxHumidity)
	}
	s.tempC = s.OutdoorC + 5
	if h := s.humidity(); !approxEqual(h, DefaultBaseHumidity-4) {
		t.Fatalf("humidity = %v", h)
	}
}

func TestSimulated_ControlError(t *testing.T) {
	boom := errors.New("db down")
	s, _ := newTestSim(&fakeControl{err: boom})
	if _, err := s.Read(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}
