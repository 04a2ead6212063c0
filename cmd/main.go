package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"controlling_heatpump/internal/config"
	"controlling_heatpump/internal/handlers"
	"controlling_heatpump/internal/ir"
	"controlling_heatpump/internal/ir/carrier"
	"controlling_heatpump/internal/logger"
	"controlling_heatpump/internal/messaging"
	"controlling_heatpump/internal/metrics"
	"controlling_heatpump/internal/repository"
	"controlling_heatpump/internal/repository/db"
	"controlling_heatpump/internal/sensor"
	"controlling_heatpump/internal/server"
	"controlling_heatpump/internal/service"

	"github.com/google/uuid"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file (default configs/config.yml)")
	flag.Parse()

	// load config.yml
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.New(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}

	// init logger
	log := logger.New(cfg.Log.Level).With("device_id", cfg.DeviceID)

	// open DB
	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	// IR line
	line, closeLine, err := openCarrier(cfg.IR)
	if err != nil {
		log.Fatalw("failed to init ir carrier", "err", err, "driver", cfg.IR.Driver, "pin", cfg.IR.Pin)
	}
	defer closeLine()
	transmitter := ir.NewTransmitter(line)

	m := metrics.New()

	// bus
	dispatcher := messaging.NewDispatcher(0, log.With("component", "bus"))
	transport, err := messaging.New(cfg.Bus.Transport, messaging.Options{
		BrokerURL:      cfg.Bus.BrokerURL,
		ClientID:       cfg.DeviceID + "-" + uuid.NewString()[:8],
		Username:       cfg.Bus.Username,
		Password:       cfg.Bus.Password,
		QoS:            cfg.Bus.QoS,
		Retain:         cfg.Bus.Retain,
		ConnectTimeout: cfg.Bus.ConnectTimeout,
	}, dispatcher)
	if err != nil {
		log.Fatalw("failed to build bus transport", "err", err)
	}
	defer transport.Close()

	// wire dependencies
	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, service.Deps{
		Transmitter:       transmitter,
		Sensor:            sensor.NewSimulated(repos.StateRepo),
		Publisher:         transport,
		Metrics:           m,
		Log:               log,
		DeviceID:          cfg.DeviceID,
		CurrentStateTopic: cfg.Bus.CurrentStateTopic,
		Defaults: service.Defaults{
			Mode:              cfg.Defaults.Mode,
			TargetTemperature: cfg.Defaults.TargetTemperature,
			FanSpeed:          cfg.Defaults.FanSpeed,
		},
		SigningKey: cfg.Auth.SigningKey,
		TokenTTL:   cfg.Auth.TokenTTL,
	})
	apiHandler := handlers.NewHandler(services, m, log)

	// context for background goroutines
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := services.EnsureState(ctx)
	if err != nil {
		log.Fatalw("failed to load heatpump state", "err", err)
	}
	log.Infow("heatpump_state_loaded", "mode", st.Mode, "target_temperature", st.TargetTemperature, "fan_speed", st.FanSpeed)

	if err := wireBus(dispatcher, transport, services, cfg.Bus.TargetStateTopic, log); err != nil {
		log.Fatalw("failed to register bus handlers", "err", err)
	}
	go func() {
		if err := dispatcher.Run(ctx); err != nil && ctx.Err() == nil {
			log.Errorw("bus_dispatcher_stopped", "err", err)
		}
	}()
	if err := transport.Connect(ctx); err != nil {
		log.Errorw("bus_connect_failed", "err", err, "broker", cfg.Bus.BrokerURL)
	}

	// put the unit in the persisted state after a power cycle
	if err := services.TransmitOnStartup(ctx); err != nil {
		log.Errorw("startup_transmit_failed", "err", err)
	}

	go services.Sampler.Run(ctx, cfg.Sampler.Interval)

	// start HTTP server
	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	// graceful shutdown
	waitForShutdown(cancel, srv, log)
}

// openCarrier builds the configured IR line and its release func.
func openCarrier(c config.IRConfig) (ir.Carrier, func(), error) {
	if c.Driver != config.DriverPWM {
		return carrier.NewSimulated(), func() {}, nil
	}
	p, err := carrier.OpenPWM(c.Pin)
	if err != nil {
		return nil, nil, err
	}
	return p, func() { _ = p.Close() }, nil
}

// wireBus routes target-state messages to the heatpump and subscribes on every connect.
func wireBus(d *messaging.Dispatcher, t messaging.Transport, services *service.Service, topic string, log *logger.Logger) error {
	if err := d.Handle(topic, services.HandleTargetMessage); err != nil {
		return err
	}
	return d.OnConnect(func(ctx context.Context) {
		if err := t.Subscribe(topic); err != nil {
			log.Errorw("bus_subscribe_failed", "err", err, "topic", topic)
			return
		}
		log.Infow("bus_subscribed", "topic", topic)
	})
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	// allow in-flight requests to complete
	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
