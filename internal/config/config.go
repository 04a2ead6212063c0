package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"controlling_heatpump/internal/ir"
)

// EnvPrefix prefixes environment overrides: HEATPUMP_BUS_BROKER_URL overrides bus.broker_url.
const EnvPrefix = "HEATPUMP"

// Bus transports.
const (
	TransportMQTT = "mqtt"
	TransportNATS = "nats"
	TransportNone = "none"
)

// Carrier drivers.
const (
	DriverPWM       = "pwm"
	DriverSimulated = "simulated"
)

type Config struct {
	DeviceID string         `mapstructure:"device_id"`
	Port     string         `mapstructure:"port"`
	Log      LogConfig      `mapstructure:"log"`
	DB       DBConfig       `mapstructure:"db"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Bus      BusConfig      `mapstructure:"bus"`
	Sampler  SamplerConfig  `mapstructure:"sampler"`
	IR       IRConfig       `mapstructure:"ir"`
	Auth     AuthConfig     `mapstructure:"auth"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// DefaultsConfig is the control state used when nothing has been persisted yet.
type DefaultsConfig struct {
	Mode              string `mapstructure:"mode"`
	TargetTemperature int    `mapstructure:"target_temperature"`
	FanSpeed          int    `mapstructure:"fan_speed"`
}

type BusConfig struct {
	Transport         string        `mapstructure:"transport"`
	BrokerURL         string        `mapstructure:"broker_url"`
	Username          string        `mapstructure:"username"`
	Password          string        `mapstructure:"password"`
	QoS               byte          `mapstructure:"qos"`
	Retain            bool          `mapstructure:"retain"`
	TargetStateTopic  string        `mapstructure:"target_state_topic"`
	CurrentStateTopic string        `mapstructure:"current_state_topic"`
	ConnectTimeout    time.Duration `mapstructure:"connect_timeout"`
}

type SamplerConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

type IRConfig struct {
	Driver string `mapstructure:"driver"`
	Pin    string `mapstructure:"pin"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device_id", "heatpump")
	v.SetDefault("port", "8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("db.path", "heatpump.db")
	v.SetDefault("defaults.mode", "OFF")
	v.SetDefault("defaults.target_temperature", 21)
	v.SetDefault("defaults.fan_speed", 0)
	v.SetDefault("bus.transport", TransportMQTT)
	v.SetDefault("bus.broker_url", "tcp://localhost:1883")
	v.SetDefault("bus.username", "")
	v.SetDefault("bus.password", "")
	v.SetDefault("bus.qos", 1)
	v.SetDefault("bus.retain", false)
	v.SetDefault("bus.target_state_topic", "heatpump/target")
	v.SetDefault("bus.current_state_topic", "heatpump/current")
	v.SetDefault("bus.connect_timeout", "10s")
	v.SetDefault("sampler.interval", "60s")
	v.SetDefault("ir.driver", DriverSimulated)
	v.SetDefault("ir.pin", "GPIO18")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", "1h")
}

// Load reads the YAML file at path, or configs/config.yml when path is empty,
// applies environment overrides and validates the result. A missing default
// file is not an error; defaults and environment still apply.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values the daemon cannot start without.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.DeviceID) == "" {
		errs = append(errs, errors.New("device_id is empty"))
	}
	mode, err := ir.ParseMode(c.Defaults.Mode)
	if err != nil {
		errs = append(errs, fmt.Errorf("defaults.mode: %w", err))
	} else {
		c.Defaults.Mode = mode.String()
	}
	cmd := ir.Command{Mode: mode, TargetTemperature: c.Defaults.TargetTemperature, FanSpeed: c.Defaults.FanSpeed}
	if err == nil {
		if verr := cmd.Validate(); verr != nil {
			errs = append(errs, fmt.Errorf("defaults: %w", verr))
		}
	}
	if c.Sampler.Interval <= 0 {
		errs = append(errs, fmt.Errorf("sampler.interval must be positive, got %s", c.Sampler.Interval))
	}

	switch c.Bus.Transport {
	case TransportMQTT, TransportNATS:
		if c.Bus.BrokerURL == "" {
			errs = append(errs, errors.New("bus.broker_url is empty"))
		}
		if c.Bus.TargetStateTopic == "" || c.Bus.CurrentStateTopic == "" {
			errs = append(errs, errors.New("bus topics must be set"))
		}
	case TransportNone:
	default:
		errs = append(errs, fmt.Errorf("bus.transport %q unknown", c.Bus.Transport))
	}
	if c.Bus.QoS > 2 {
		errs = append(errs, fmt.Errorf("bus.qos %d outside [0,2]", c.Bus.QoS))
	}

	switch c.IR.Driver {
	case DriverPWM:
		if c.IR.Pin == "" {
			errs = append(errs, errors.New("ir.pin is required for the pwm driver"))
		}
	case DriverSimulated:
	default:
		errs = append(errs, fmt.Errorf("ir.driver %q unknown", c.IR.Driver))
	}

	if c.Auth.SigningKey == "" {
		errs = append(errs, errors.New("auth.signing_key is empty"))
	}
	if c.Auth.TokenTTL <= 0 {
		errs = append(errs, errors.New("auth.token_ttl must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
