package tecs

import "fmt"

// Params are the tuning gains, airframe limits and filter constants of the
// controller. They are immutable during a tick; SetParams swaps the whole set
// between ticks.
type Params struct {
	// Gains.
	ThrottleDampingGain    float64 `yaml:"throttle_damping_gain"`
	PitchDampingGain       float64 `yaml:"pitch_damping_gain"`
	IntegratorGainThrottle float64 `yaml:"integrator_gain_throttle"`
	IntegratorGainPitch    float64 `yaml:"integrator_gain_pitch"`
	HeightErrorGain        float64 `yaml:"height_error_gain"`
	HeightSetpointGainFF   float64 `yaml:"height_setpoint_gain_ff"`
	AirspeedErrorGain      float64 `yaml:"airspeed_error_gain"`
	LoadFactorCorrection   float64 `yaml:"load_factor_correction"`
	SEBRateFF              float64 `yaml:"seb_rate_ff"`
	PitchSpeedWeight       float64 `yaml:"pitch_speed_weight"`

	// Airframe limits. Airspeeds are equivalent airspeeds in m/s; vertical
	// rates are m/s positive; accelerations m/s^2; jerk m/s^3.
	EquivalentAirspeedMin  float64 `yaml:"equivalent_airspeed_min"`
	EquivalentAirspeedMax  float64 `yaml:"equivalent_airspeed_max"`
	EquivalentAirspeedTrim float64 `yaml:"equivalent_airspeed_trim"`
	MaxClimbRate           float64 `yaml:"max_climb_rate"`
	MaxSinkRate            float64 `yaml:"max_sink_rate"`
	MinSinkRate            float64 `yaml:"min_sink_rate"`
	VertAccelLimit         float64 `yaml:"vert_accel_limit"`
	JerkMax                float64 `yaml:"jerk_max"`
	ThrottleSlewRate       float64 `yaml:"throttle_slew_rate"`

	// Filter constants.
	TASEstimateFreq          float64 `yaml:"tas_estimate_freq"`
	STERateTimeConst         float64 `yaml:"ste_rate_time_const"`
	SpeedDerivativeTimeConst float64 `yaml:"speed_derivative_time_const"`
}

// DefaultParams returns a flight-worthy parameter set for a small fixed-wing
// airframe cruising around 15 m/s EAS.
func DefaultParams() Params {
	return Params{
		ThrottleDampingGain:    0.5,
		PitchDampingGain:       0.1,
		IntegratorGainThrottle: 0.3,
		IntegratorGainPitch:    0.1,
		HeightErrorGain:        0.2,
		HeightSetpointGainFF:   0.8,
		AirspeedErrorGain:      0.2,
		LoadFactorCorrection:   15.0,
		SEBRateFF:              1.0,
		PitchSpeedWeight:       1.0,

		EquivalentAirspeedMin:  12.0,
		EquivalentAirspeedMax:  25.0,
		EquivalentAirspeedTrim: 15.0,
		MaxClimbRate:           5.0,
		MaxSinkRate:            4.0,
		MinSinkRate:            2.0,
		VertAccelLimit:         4.0,
		JerkMax:                10.0,
		ThrottleSlewRate:       0.0,

		TASEstimateFreq:          2.0,
		STERateTimeConst:         0.5,
		SpeedDerivativeTimeConst: 0.5,
	}
}

// Validate rejects parameter sets the control law cannot run on.
func (p Params) Validate() error {
	if p.EquivalentAirspeedMin <= 0 {
		return fmt.Errorf("tecs: equivalent_airspeed_min must be > 0")
	}
	if p.EquivalentAirspeedMax <= p.EquivalentAirspeedMin {
		return fmt.Errorf("tecs: equivalent_airspeed_max must be > equivalent_airspeed_min")
	}
	if p.EquivalentAirspeedTrim < p.EquivalentAirspeedMin || p.EquivalentAirspeedTrim > p.EquivalentAirspeedMax {
		return fmt.Errorf("tecs: equivalent_airspeed_trim must lie within [min, max]")
	}
	if p.MaxClimbRate <= 0 || p.MaxSinkRate <= 0 || p.MinSinkRate <= 0 {
		return fmt.Errorf("tecs: climb and sink rates must be > 0")
	}
	if p.VertAccelLimit <= 0 || p.JerkMax <= 0 {
		return fmt.Errorf("tecs: vert_accel_limit and jerk_max must be > 0")
	}
	if p.TASEstimateFreq <= 0 {
		return fmt.Errorf("tecs: tas_estimate_freq must be > 0")
	}
	if p.STERateTimeConst <= 0 || p.SpeedDerivativeTimeConst <= 0 {
		return fmt.Errorf("tecs: filter time constants must be > 0")
	}
	if p.ThrottleSlewRate < 0 {
		return fmt.Errorf("tecs: throttle_slew_rate must be >= 0")
	}
	if p.PitchSpeedWeight < 0 || p.PitchSpeedWeight > 2 {
		return fmt.Errorf("tecs: pitch_speed_weight must lie within [0, 2]")
	}
	for name, g := range map[string]float64{
		"throttle_damping_gain":    p.ThrottleDampingGain,
		"pitch_damping_gain":       p.PitchDampingGain,
		"integrator_gain_throttle": p.IntegratorGainThrottle,
		"integrator_gain_pitch":    p.IntegratorGainPitch,
		"height_error_gain":        p.HeightErrorGain,
		"height_setpoint_gain_ff":  p.HeightSetpointGainFF,
		"airspeed_error_gain":      p.AirspeedErrorGain,
		"load_factor_correction":   p.LoadFactorCorrection,
		"seb_rate_ff":              p.SEBRateFF,
	} {
		if g < 0 {
			return fmt.Errorf("tecs: %s must be >= 0", name)
		}
	}
	return nil
}
