package sim

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a deterministic, script-driven command timeline for the
// closed-loop runner.
//
// Time is expressed as Go duration strings (e.g. "0s", "250ms", "10s").
// If duration is zero, it is derived from the latest keyframe time.
//
// YAML schema (v1):
//
//	version: 1
//	name: "altitude step"
//	duration: 60s
//	initial:
//	  alt_m: 100
//	  eas_mps: 15
//	commands:
//	  - t: 0s
//	    alt_m: 100
//	    eas_mps: 15
//	  - t: 10s
//	    alt_m: 150
//	  - t: 30s
//	    climbout: true
//
// Commands hold until overridden: each keyframe overrides only the fields it
// sets. A keyframe with height_rate_mps switches to height-rate control until
// a later keyframe sets alt_m again. airspeed_valid: false simulates an
// airspeed sensor dropout.
//
// Keep this struct stable: scripts are test fixtures.
type Scenario struct {
	Version  int           `yaml:"version"`
	Name     string        `yaml:"name"`
	Duration time.Duration `yaml:"duration"`
	Initial  InitialState  `yaml:"initial"`
	Commands []Keyframe    `yaml:"commands"`
}

// InitialState is the plant state at t=0.
type InitialState struct {
	AltM   float64 `yaml:"alt_m"`
	EASMps float64 `yaml:"eas_mps"`
}

// Keyframe is a time-stamped change to the commanded state. Nil fields keep
// their previous value.
type Keyframe struct {
	T             time.Duration `yaml:"t"`
	AltM          *float64      `yaml:"alt_m"`
	EASMps        *float64      `yaml:"eas_mps"`
	HeightRateMps *float64      `yaml:"height_rate_mps"`
	Climbout      *bool         `yaml:"climbout"`
	AirspeedValid *bool         `yaml:"airspeed_valid"`
}

// Command is the resolved command set at a point in time.
type Command struct {
	AltitudeSetpoint   float64 // m AMSL
	EASSetpoint        float64 // m/s
	HeightRateSetpoint float64 // m/s; NaN selects altitude control
	Climbout           bool
	AirspeedValid      bool
}

// LoadScenario reads and validates a scenario script.
func LoadScenario(path string) (Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}

	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return Scenario{}, err
	}

	if s.Version != 1 {
		return Scenario{}, fmt.Errorf("scenario: unsupported version %d", s.Version)
	}
	if s.Initial.EASMps <= 0 {
		return Scenario{}, fmt.Errorf("scenario: initial.eas_mps must be > 0")
	}
	if len(s.Commands) == 0 {
		return Scenario{}, fmt.Errorf("scenario: at least one command keyframe is required")
	}

	var last time.Duration
	for i, kf := range s.Commands {
		if kf.T < 0 {
			return Scenario{}, fmt.Errorf("scenario: command %d has negative t", i)
		}
		if i > 0 && kf.T < last {
			return Scenario{}, fmt.Errorf("scenario: command %d breaks non-decreasing t order", i)
		}
		last = kf.T
	}

	if s.Duration <= 0 {
		s.Duration = last
	}
	if s.Duration <= 0 {
		return Scenario{}, fmt.Errorf("scenario: duration must be > 0")
	}

	return s, nil
}

// At resolves the commanded state at elapsed time t by folding every
// keyframe at or before t over the initial command.
func (s Scenario) At(t time.Duration) Command {
	cmd := Command{
		AltitudeSetpoint:   s.Initial.AltM,
		EASSetpoint:        s.Initial.EASMps,
		HeightRateSetpoint: math.NaN(),
		AirspeedValid:      true,
	}

	for _, kf := range s.Commands {
		if kf.T > t {
			break
		}
		if kf.AltM != nil {
			cmd.AltitudeSetpoint = *kf.AltM
			cmd.HeightRateSetpoint = math.NaN()
		}
		if kf.HeightRateMps != nil {
			cmd.HeightRateSetpoint = *kf.HeightRateMps
		}
		if kf.EASMps != nil {
			cmd.EASSetpoint = *kf.EASMps
		}
		if kf.Climbout != nil {
			cmd.Climbout = *kf.Climbout
		}
		if kf.AirspeedValid != nil {
			cmd.AirspeedValid = *kf.AirspeedValid
		}
	}
	return cmd
}
