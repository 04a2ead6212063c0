package service

import (
	"context"
	"time"

	"controlling_heatpump/internal/ir"
	"controlling_heatpump/internal/logger"
	"controlling_heatpump/internal/metrics"
	"controlling_heatpump/internal/models"
	"controlling_heatpump/internal/repository"
	"controlling_heatpump/internal/sensor"
)

type Authorization interface {
	SignUp(ctx context.Context, username, password string) (int, error)
	GenerateToken(ctx context.Context, username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Heatpump changes the control state and drives the IR line.
type Heatpump interface {
	EnsureState(ctx context.Context) (models.HeatpumpState, error)
	ApplyTarget(ctx context.Context, p TargetParams) (models.HeatpumpState, error)
	TransmitCurrent(ctx context.Context) error
	TransmitOnStartup(ctx context.Context) error
	Signal(ctx context.Context) (SignalInfo, error)
	HandleTargetMessage(ctx context.Context, topic string, payload []byte)
}

// Monitoring exposes the persisted state read-only.
type Monitoring interface {
	GetState(ctx context.Context) (models.HeatpumpState, error)
}

// EventLog exposes append-only logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.HeatpumpEvent, error)
}

// Sampler runs the ambient sampling loop. Stop it by canceling ctx.
type Sampler interface {
	Run(ctx context.Context, interval time.Duration)
	ForceRun()
}

// Watcher hands out "state changed" signals; *StateFeed satisfies it.
type Watcher interface {
	Subscribe() (<-chan struct{}, func())
}

// Transmitter sends an encoded frame; *ir.Transmitter satisfies it.
type Transmitter interface {
	Transmit(s ir.Signal) error
}

// Publisher sends a payload to the bus; messaging.Transport satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Defaults is the control state used before anything has been persisted.
type Defaults struct {
	Mode              string
	TargetTemperature int
	FanSpeed          int
}

// Deps carries everything NewService wires besides the repositories.
type Deps struct {
	Transmitter       Transmitter
	Sensor            sensor.Sensor
	Publisher         Publisher
	Metrics           *metrics.Metrics
	Log               *logger.Logger
	DeviceID          string
	CurrentStateTopic string
	Defaults          Defaults
	SigningKey        string
	TokenTTL          time.Duration
}

type Service struct {
	Heatpump
	Monitoring
	EventLog
	Sampler
	Authorization
	Watcher
}

func NewService(repos *repository.Repository, d Deps) *Service {
	log := logger.Or(d.Log)
	feed := NewStateFeed()
	sampler := NewSamplerService(repos.StateRepo, repos.EventRepo, d.Sensor, d.Publisher, SamplerConfig{
		DeviceID: d.DeviceID,
		Topic:    d.CurrentStateTopic,
		Feed:     feed,
		Metrics:  d.Metrics,
		Log:      log,
	})
	return &Service{
		Heatpump: NewHeatpumpService(repos.StateRepo, repos.EventRepo, d.Transmitter, sampler, HeatpumpConfig{
			DeviceID: d.DeviceID,
			Defaults: d.Defaults,
			Feed:     feed,
			Metrics:  d.Metrics,
			Log:      log,
		}),
		Monitoring: NewMonitoringService(repos.StateRepo, d.Defaults),
		EventLog:   NewEventLogService(repos.EventRepo),
		Sampler:    sampler,
		Authorization: NewAuthService(repos.Auth, AuthConfig{
			SigningKey: d.SigningKey,
			TokenTTL:   d.TokenTTL,
			Issuer:     d.DeviceID,
		}),
		Watcher: feed,
	}
}
