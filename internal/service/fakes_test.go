package service

import (
	"context"
	"sync"
	"time"

	"controlling_heatpump/internal/ir"
	"controlling_heatpump/internal/models"
	"controlling_heatpump/internal/repository"
)

// fakeStateRepo keeps the single state row in memory.
type fakeStateRepo struct {
	mu       sync.Mutex
	state    models.HeatpumpState
	loadErr  error
	saveErr  error
	readErr  error
	saved    []models.HeatpumpState
	readings []models.Reading
	opStates []string
}

func (f *fakeStateRepo) Load(ctx context.Context) (models.HeatpumpState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state, f.loadErr
}

func (f *fakeStateRepo) Save(ctx context.Context, s models.HeatpumpState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, s)
	if f.saveErr != nil {
		return f.saveErr
	}
	s.CurrentTemperature = f.state.CurrentTemperature
	s.CurrentHumidity = f.state.CurrentHumidity
	s.OperatingState = f.state.OperatingState
	if s.OperatingState == "" {
		s.OperatingState = models.OperatingIdle
	}
	f.state = s
	return nil
}

func (f *fakeStateRepo) SaveReading(ctx context.Context, r models.Reading, op string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.readErr != nil {
		return f.readErr
	}
	if f.state.ID == 0 {
		return repository.ErrStateNotInitialized
	}
	f.readings = append(f.readings, r)
	f.opStates = append(f.opStates, op)
	f.state.CurrentTemperature = r.Temperature
	f.state.CurrentHumidity = r.Humidity
	f.state.OperatingState = op
	return nil
}

// recordingEventRepo stores appended events.
type recordingEventRepo struct {
	mu        sync.Mutex
	events    []models.HeatpumpEvent
	appendErr error
}

func (f *recordingEventRepo) Append(ctx context.Context, e models.HeatpumpEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e)
	return f.appendErr
}

func (f *recordingEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.HeatpumpEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.HeatpumpEvent
	for _, e := range f.events {
		if typ == "" || e.Type == typ {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *recordingEventRepo) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, e := range f.events {
		out[i] = e.Type
	}
	return out
}

// fakeTransmitter records frames and optionally fails.
type fakeTransmitter struct {
	mu      sync.Mutex
	err     error
	signals []ir.Signal
}

func (f *fakeTransmitter) Transmit(s ir.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, s)
	return f.err
}

type countingForcer struct {
	mu    sync.Mutex
	calls int
}

func (c *countingForcer) ForceRun() {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
}

// fakeSensor returns a fixed reading.
type fakeSensor struct {
	mu      sync.Mutex
	reading models.Reading
	err     error
	reads   int
}

func (f *fakeSensor) Read(ctx context.Context) (models.Reading, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	return f.reading, f.err
}

func (f *fakeSensor) readCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reads
}

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	err  error
	msgs []published
}

func (f *fakePublisher) Publish(ctx context.Context, topic string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic: topic, payload: payload})
	return f.err
}

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

// blockingForcer parks every ForceRun until release is closed.
type blockingForcer struct {
	entered chan struct{}
	release chan struct{}
}

func newBlockingForcer() *blockingForcer {
	return &blockingForcer{entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (b *blockingForcer) ForceRun() {
	b.entered <- struct{}{}
	<-b.release
}
