// Package sim provides a deterministic longitudinal point-mass plant and
// script-driven command scenarios for exercising the energy controller in a
// closed loop. It is a test vehicle, not a flight-dynamics model.
package sim

import (
	"fmt"
	"math"
)

const gravity = 9.80665

// Config describes the simulated airframe and the actuator limits the
// mission layer hands to the controller each tick.
type Config struct {
	PitchTimeConst float64 `yaml:"pitch_time_const"` // climb-angle lag, s
	EASToTAS       float64 `yaml:"eas_to_tas"`
	ThrottleMin    float64 `yaml:"throttle_min"`
	ThrottleMax    float64 `yaml:"throttle_max"`
	ThrottleTrim   float64 `yaml:"throttle_trim"`
	PitchLimitMin  float64 `yaml:"pitch_limit_min"`   // rad
	PitchLimitMax  float64 `yaml:"pitch_limit_max"`   // rad
	PitchMinClimb  float64 `yaml:"pitch_min_climbout"` // rad, climbout pitch floor
}

func DefaultConfig() Config {
	return Config{
		PitchTimeConst: 0.5,
		EASToTAS:       1.0,
		ThrottleMin:    0.0,
		ThrottleMax:    1.0,
		ThrottleTrim:   0.45,
		PitchLimitMin:  -0.5,
		PitchLimitMax:  0.5,
		PitchMinClimb:  0.15,
	}
}

func (c Config) Validate() error {
	if c.PitchTimeConst <= 0 {
		return fmt.Errorf("sim: pitch_time_const must be > 0")
	}
	if c.EASToTAS <= 0 {
		return fmt.Errorf("sim: eas_to_tas must be > 0")
	}
	if c.ThrottleMax <= c.ThrottleMin {
		return fmt.Errorf("sim: throttle_max must be > throttle_min")
	}
	if c.ThrottleTrim < c.ThrottleMin || c.ThrottleTrim > c.ThrottleMax {
		return fmt.Errorf("sim: throttle_trim must lie within [throttle_min, throttle_max]")
	}
	if c.PitchLimitMax <= c.PitchLimitMin {
		return fmt.Errorf("sim: pitch_limit_max must be > pitch_limit_min")
	}
	return nil
}

// Aircraft is an energy-consistent longitudinal plant: throttle maps to a
// specific total-energy rate (trim holds energy, the limits reach the
// airframe's climb/sink energy rates) and the climb angle follows pitch with
// a first-order lag. The kinetic/potential split then falls out of the energy
// balance.
type Aircraft struct {
	cfg          Config
	maxClimbRate float64
	minSinkRate  float64

	Altitude  float64 // m AMSL
	TAS       float64 // m/s
	ClimbRate float64 // m/s, positive up

	climbAngle float64
}

// NewAircraft returns a plant trimmed at the given altitude and true
// airspeed. maxClimbRate and minSinkRate anchor the throttle-to-energy map
// and should match the controller's limits.
func NewAircraft(cfg Config, maxClimbRate, minSinkRate, altitude, tas float64) *Aircraft {
	return &Aircraft{
		cfg:          cfg,
		maxClimbRate: maxClimbRate,
		minSinkRate:  minSinkRate,
		Altitude:     altitude,
		TAS:          tas,
	}
}

// Step advances the plant by dt seconds under the given throttle and pitch
// commands. It is a pure per-tick function of the current state.
func (a *Aircraft) Step(dt, throttle, pitch float64) {
	throttle = clamp(throttle, a.cfg.ThrottleMin, a.cfg.ThrottleMax)
	pitch = clamp(pitch, a.cfg.PitchLimitMin, a.cfg.PitchLimitMax)

	var steRate float64
	if throttle >= a.cfg.ThrottleTrim {
		span := math.Max(a.cfg.ThrottleMax-a.cfg.ThrottleTrim, 1e-6)
		steRate = (throttle - a.cfg.ThrottleTrim) / span * a.maxClimbRate * gravity
	} else {
		span := math.Max(a.cfg.ThrottleTrim-a.cfg.ThrottleMin, 1e-6)
		steRate = (throttle - a.cfg.ThrottleTrim) / span * a.minSinkRate * gravity
	}

	blend := dt / (a.cfg.PitchTimeConst + dt)
	a.climbAngle += blend * (pitch - a.climbAngle)

	a.ClimbRate = a.TAS * math.Sin(a.climbAngle)
	a.Altitude += a.ClimbRate * dt

	// d/dt(v^2/2) = steRate - g*hdot
	tasRate := (steRate - gravity*a.ClimbRate) / math.Max(a.TAS, 1)
	a.TAS = math.Max(a.TAS+tasRate*dt, 0)
}

// EAS returns the equivalent airspeed implied by the configured density
// factor.
func (a *Aircraft) EAS() float64 {
	return a.TAS / a.cfg.EASToTAS
}

// VZ returns the vertical velocity in the sensor convention (positive down).
func (a *Aircraft) VZ() float64 {
	return -a.ClimbRate
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
