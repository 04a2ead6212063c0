package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/google/uuid"

	"controlling_heatpump/internal/logger"
	"controlling_heatpump/internal/metrics"
	"controlling_heatpump/internal/models"
	"controlling_heatpump/internal/repository"
	"controlling_heatpump/internal/sensor"
)

// EstimateOperatingState guesses what the unit is doing from the ambient
// temperature; the unit itself reports nothing back.
func EstimateOperatingState(mode string, target int, current float64) string {
	t := float64(target)
	switch {
	case current > t && (mode == "AUTO" || mode == "COOL"):
		return models.OperatingCooling
	case current < t && (mode == "AUTO" || mode == "HEAT"):
		return models.OperatingHeating
	default:
		return models.OperatingIdle
	}
}

// oneDecimal marshals as a JSON number rounded to one decimal place.
type oneDecimal float64

func (d oneDecimal) MarshalJSON() ([]byte, error) {
	return []byte(strconv.FormatFloat(math.Round(float64(d)*10)/10, 'f', 1, 64)), nil
}

// CurrentStateMessage is published on the current-state topic after each sample.
type CurrentStateMessage struct {
	DeviceID           string     `json:"deviceId"`
	OperatingState     string     `json:"operatingState"`
	CurrentTemperature oneDecimal `json:"currentTemperature"`
	CurrentHumidity    oneDecimal `json:"currentHumidity"`
	Timestamp          string     `json:"timestamp"`
}

type SamplerConfig struct {
	DeviceID string
	Topic    string
	Feed     *StateFeed
	Metrics  *metrics.Metrics
	Log      *logger.Logger
}

type SamplerService struct {
	stateRepo repository.StateRepo
	eventRepo repository.EventRepo
	sensor    sensor.Sensor
	publisher Publisher
	deviceID  string
	topic     string
	feed      *StateFeed
	metrics   *metrics.Metrics
	log       *logger.Logger
	force     chan struct{}
}

func NewSamplerService(stateRepo repository.StateRepo, eventRepo repository.EventRepo, s sensor.Sensor, pub Publisher, cfg SamplerConfig) *SamplerService {
	return &SamplerService{
		stateRepo: stateRepo,
		eventRepo: eventRepo,
		sensor:    s,
		publisher: pub,
		deviceID:  cfg.DeviceID,
		topic:     cfg.Topic,
		feed:      cfg.Feed,
		metrics:   cfg.Metrics,
		log:       logger.Or(cfg.Log),
		force:     make(chan struct{}, 1),
	}
}

// ForceRun asks the loop to sample now. It never blocks; requests made
// while one is already pending collapse into it.
func (s *SamplerService) ForceRun() {
	select {
	case s.force <- struct{}{}:
	default:
	}
}

// Run samples once immediately, then on every tick or ForceRun until ctx is canceled.
func (s *SamplerService) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		case <-s.force:
			t.Reset(interval)
		}
		s.runOnce(ctx)
	}
}

func (s *SamplerService) runOnce(ctx context.Context) {
	if err := s.Sample(ctx); err != nil && ctx.Err() == nil {
		s.log.Warnw("sample_failed", "err", err)
	}
}

// Sample reads the sensor, stores the reading with the estimated operating
// state and publishes the current-state message. A failed publish is
// counted but not returned.
func (s *SamplerService) Sample(ctx context.Context) error {
	r, err := s.sensor.Read(ctx)
	if err != nil {
		s.appendEvent(ctx, models.EventError, "Sensor read failed", map[string]any{"error": err.Error()})
		return fmt.Errorf("read sensor: %w", err)
	}
	if r.TakenAt.IsZero() {
		r.TakenAt = time.Now()
	}
	r.TakenAt = r.TakenAt.UTC()

	st, err := s.stateRepo.Load(ctx)
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	op := EstimateOperatingState(st.Mode, st.TargetTemperature, r.Temperature)

	switch err := s.stateRepo.SaveReading(ctx, r, op); {
	case errors.Is(err, repository.ErrStateNotInitialized):
		s.log.Debugw("reading_not_saved", "reason", err.Error())
	case err != nil:
		return fmt.Errorf("save reading: %w", err)
	default:
		s.feed.Notify()
	}
	s.metrics.Ambient(r)

	if st.ID != 0 && st.OperatingState != op {
		s.appendEvent(ctx, models.EventTelemetry, "Operating state changed", map[string]any{
			"from":                st.OperatingState,
			"to":                  op,
			"current_temperature": r.Temperature,
			"target_temperature":  st.TargetTemperature,
		})
	}

	s.publish(ctx, CurrentStateMessage{
		DeviceID:           s.deviceID,
		OperatingState:     op,
		CurrentTemperature: oneDecimal(r.Temperature),
		CurrentHumidity:    oneDecimal(r.Humidity),
		Timestamp:          r.TakenAt.Format(time.RFC3339),
	})
	return nil
}

func (s *SamplerService) publish(ctx context.Context, msg CurrentStateMessage) {
	if s.publisher == nil {
		return
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Errorw("current_state_marshal_failed", "err", err)
		return
	}
	if err := s.publisher.Publish(ctx, s.topic, payload); err != nil {
		s.metrics.Publish(metrics.ResultFailed)
		s.log.Warnw("current_state_publish_failed", "err", err, "topic", s.topic)
		return
	}
	s.metrics.Publish(metrics.ResultOK)
	s.log.Debugw("current_state_published", "topic", s.topic, "payload", string(payload))
}

func (s *SamplerService) appendEvent(ctx context.Context, typ, desc string, meta map[string]any) {
	err := s.eventRepo.Append(ctx, models.HeatpumpEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  time.Now().UTC(),
		Type:        typ,
		Description: desc,
		Metadata:    meta,
	})
	if err != nil {
		s.log.Errorw("event_append_failed", "err", err, "type", typ)
	}
}
