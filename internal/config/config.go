// Package config loads controller configuration from a YAML file with
// environment variable overrides (ROOMBA_ prefix).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Serial configures the Open Interface UART link.
type Serial struct {
	Port string `mapstructure:"port"`
	Baud int    `mapstructure:"baud"`
}

// MQTT configures the remote steering channel.
type MQTT struct {
	Broker   string `mapstructure:"broker"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Topic    string `mapstructure:"topic"`
	ClientID string `mapstructure:"client_id"`
}

// Sensors holds detection thresholds.
type Sensors struct {
	// HumanTempC is the thermal cell temperature at or above which a
	// human is considered present.
	HumanTempC float64 `mapstructure:"human_temp_c"`
	// ObstacleMM is the range at or below which an obstacle is
	// considered near.
	ObstacleMM float64 `mapstructure:"obstacle_mm"`
	// Mode selects the sensor backend: "sim" or "hardware".
	Mode string `mapstructure:"mode"`
}

// Control holds control loop timing.
type Control struct {
	TickPeriod    time.Duration `mapstructure:"tick_period"`
	SearchTimeout time.Duration `mapstructure:"search_timeout"`
	CoolDown      time.Duration `mapstructure:"cool_down"`
}

// Web configures the status dashboard.
type Web struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// EventLog configures the mission log database.
type EventLog struct {
	Path string `mapstructure:"path"`
}

// Config is the full controller configuration.
type Config struct {
	LogLevel string   `mapstructure:"log_level"`
	Serial   Serial   `mapstructure:"serial"`
	MQTT     MQTT     `mapstructure:"mqtt"`
	Sensors  Sensors  `mapstructure:"sensors"`
	Control  Control  `mapstructure:"control"`
	Web      Web      `mapstructure:"web"`
	EventLog EventLog `mapstructure:"eventlog"`
}

// Default returns a Config with sensible defaults matching the
// original deployment: 100ms tick, 10s search cap, 5s fault cool-down.
func Default() Config {
	return Config{
		LogLevel: "info",
		Serial: Serial{
			Port: "/dev/ttyS0",
			Baud: 115200,
		},
		MQTT: MQTT{
			Broker:   "tcp://io.adafruit.com:1883",
			Topic:    "roomba-steering",
			ClientID: "roomba-controller",
		},
		Sensors: Sensors{
			HumanTempC: 24.0,
			ObstacleMM: 40,
			Mode:       "sim",
		},
		Control: Control{
			TickPeriod:    100 * time.Millisecond,
			SearchTimeout: 10 * time.Second,
			CoolDown:      5 * time.Second,
		},
		Web: Web{
			Enabled: true,
			Addr:    ":8080",
		},
		EventLog: EventLog{
			Path: "mission.db",
		},
	}
}

// Load reads configuration from the given file path (YAML), falling
// back to defaults for anything unset. A missing file is not an error;
// environment variables (ROOMBA_MQTT_BROKER etc.) still apply.
func Load(path string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("ROOMBA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("serial.port", cfg.Serial.Port)
	v.SetDefault("serial.baud", cfg.Serial.Baud)
	v.SetDefault("mqtt.broker", cfg.MQTT.Broker)
	v.SetDefault("mqtt.username", cfg.MQTT.Username)
	v.SetDefault("mqtt.password", cfg.MQTT.Password)
	v.SetDefault("mqtt.topic", cfg.MQTT.Topic)
	v.SetDefault("mqtt.client_id", cfg.MQTT.ClientID)
	v.SetDefault("sensors.human_temp_c", cfg.Sensors.HumanTempC)
	v.SetDefault("sensors.obstacle_mm", cfg.Sensors.ObstacleMM)
	v.SetDefault("sensors.mode", cfg.Sensors.Mode)
	v.SetDefault("control.tick_period", cfg.Control.TickPeriod)
	v.SetDefault("control.search_timeout", cfg.Control.SearchTimeout)
	v.SetDefault("control.cool_down", cfg.Control.CoolDown)
	v.SetDefault("web.enabled", cfg.Web.Enabled)
	v.SetDefault("web.addr", cfg.Web.Addr)
	v.SetDefault("eventlog.path", cfg.EventLog.Path)
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Serial.Port == "" {
		return fmt.Errorf("serial.port is required")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("serial.baud must be positive, got %d", c.Serial.Baud)
	}
	if c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required")
	}
	if c.MQTT.Topic == "" {
		return fmt.Errorf("mqtt.topic is required")
	}
	if c.Sensors.HumanTempC <= 0 {
		return fmt.Errorf("sensors.human_temp_c must be positive, got %v", c.Sensors.HumanTempC)
	}
	if c.Sensors.ObstacleMM <= 0 {
		return fmt.Errorf("sensors.obstacle_mm must be positive, got %v", c.Sensors.ObstacleMM)
	}
	if c.Sensors.Mode != "sim" && c.Sensors.Mode != "hardware" {
		return fmt.Errorf("sensors.mode must be 'sim' or 'hardware', got %q", c.Sensors.Mode)
	}
	if c.Control.TickPeriod <= 0 {
		return fmt.Errorf("control.tick_period must be positive")
	}
	if c.Control.SearchTimeout <= 0 {
		return fmt.Errorf("control.search_timeout must be positive")
	}
	if c.Control.CoolDown < 0 {
		return fmt.Errorf("control.cool_down must not be negative")
	}
	if c.Web.Enabled && c.Web.Addr == "" {
		return fmt.Errorf("web.addr is required when web.enabled")
	}
	return nil
}
