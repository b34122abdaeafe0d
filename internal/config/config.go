package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tecs-ng/internal/canbus"
	"tecs-ng/internal/sim"
	"tecs-ng/internal/tecs"
)

type Config struct {
	TickRateHz int             `yaml:"tick_rate_hz"`
	Controller tecs.Params     `yaml:"controller"`
	Sim        sim.Config      `yaml:"sim"`
	Telemetry  TelemetryConfig `yaml:"telemetry"`
}

type TelemetryConfig struct {
	UDP UDPConfig `yaml:"udp"`
	CAN CANConfig `yaml:"can"`
}

type UDPConfig struct {
	Enable   bool          `yaml:"enable"`
	Dest     string        `yaml:"dest"`
	Interval time.Duration `yaml:"interval"`
}

type CANConfig struct {
	Enable    bool    `yaml:"enable"`
	Interface string  `yaml:"interface"`
	StatusID  uint32  `yaml:"status_id"` // base frame ID; the broadcast uses consecutive IDs from here
	RateHz    float64 `yaml:"rate_hz"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	// Pre-fill with defaults so absent YAML fields keep them.
	cfg := Config{
		TickRateHz: 50,
		Controller: tecs.DefaultParams(),
		Sim:        sim.DefaultConfig(),
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	if cfg.TickRateHz <= 0 || cfg.TickRateHz > 1000 {
		return Config{}, fmt.Errorf("tick_rate_hz must lie within (0, 1000]")
	}

	if err := cfg.Controller.Validate(); err != nil {
		return Config{}, fmt.Errorf("controller: %w", err)
	}
	if err := cfg.Sim.Validate(); err != nil {
		return Config{}, fmt.Errorf("sim: %w", err)
	}

	if cfg.Telemetry.UDP.Enable {
		if cfg.Telemetry.UDP.Dest == "" {
			return Config{}, fmt.Errorf("telemetry.udp.dest is required when telemetry.udp.enable is true")
		}
		if cfg.Telemetry.UDP.Interval <= 0 {
			cfg.Telemetry.UDP.Interval = 200 * time.Millisecond
		}
	}

	if cfg.Telemetry.CAN.Enable {
		if cfg.Telemetry.CAN.Interface == "" {
			return Config{}, fmt.Errorf("telemetry.can.interface is required when telemetry.can.enable is true")
		}
		if cfg.Telemetry.CAN.StatusID == 0 {
			cfg.Telemetry.CAN.StatusID = canbus.DefaultStatusID
		}
		if _, err := canbus.NewCodec(cfg.Telemetry.CAN.StatusID); err != nil {
			return Config{}, fmt.Errorf("telemetry.can.status_id: %w", err)
		}
		if cfg.Telemetry.CAN.RateHz <= 0 {
			cfg.Telemetry.CAN.RateHz = 10
		}
	}

	return cfg, nil
}
