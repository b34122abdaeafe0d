package tecs

// Status is a telemetry snapshot of the last tick.
type Status struct {
	Mode Mode `json:"mode"`

	ThrottleSetpoint float64 `json:"throttle_setpoint"`
	PitchSetpoint    float64 `json:"pitch_setpoint"`

	AltitudeSetpoint   float64 `json:"altitude_setpoint"`
	HeightRateSetpoint float64 `json:"height_rate_setpoint"`

	TAS             float64 `json:"tas"`
	TASInnovation   float64 `json:"tas_innovation"`
	TASSetpointAdj  float64 `json:"tas_setpoint_adj"`
	TASRateSetpoint float64 `json:"tas_rate_setpoint"`
	EAS             float64 `json:"eas"`

	SPEEstimate     float64 `json:"spe_estimate"`
	SKEEstimate     float64 `json:"ske_estimate"`
	SPERate         float64 `json:"spe_rate"`
	SKERate         float64 `json:"ske_rate"`
	SPESetpoint     float64 `json:"spe_setpoint"`
	SKESetpoint     float64 `json:"ske_setpoint"`
	SPERateSetpoint float64 `json:"spe_rate_setpoint"`
	SKERateSetpoint float64 `json:"ske_rate_setpoint"`

	STEError     float64 `json:"ste_error"`
	STERateError float64 `json:"ste_rate_error"`
	SEBError     float64 `json:"seb_error"`
	SEBRateError float64 `json:"seb_rate_error"`

	SPEWeighting float64 `json:"spe_weighting"`
	SKEWeighting float64 `json:"ske_weighting"`

	PercentUndersped float64 `json:"percent_undersped"`
}

// ThrottleSetpoint returns the throttle demand of the last tick, within the
// supplied throttle limits.
func (c *Controller) ThrottleSetpoint() float64 { return c.lastThrottleSetpoint }

// PitchSetpoint returns the pitch demand of the last tick in radians, within
// the supplied pitch limits.
func (c *Controller) PitchSetpoint() float64 { return c.lastPitchSetpoint }

// Mode returns the operating mode reported for the last tick.
func (c *Controller) Mode() Mode { return c.mode }

// Status returns the full telemetry snapshot of the last tick.
func (c *Controller) Status() Status {
	return Status{
		Mode: c.mode,

		ThrottleSetpoint: c.lastThrottleSetpoint,
		PitchSetpoint:    c.lastPitchSetpoint,

		AltitudeSetpoint:   c.hgtSetpoint,
		HeightRateSetpoint: c.hgtRateSetpoint,

		TAS:             c.tasState,
		TASInnovation:   c.tasInnov,
		TASSetpointAdj:  c.tasSetpointAdj,
		TASRateSetpoint: c.tasRateSetpoint,
		EAS:             c.eas,

		SPEEstimate:     c.speEstimate,
		SKEEstimate:     c.skeEstimate,
		SPERate:         c.speRate,
		SKERate:         c.skeRate,
		SPESetpoint:     c.speSetpoint,
		SKESetpoint:     c.skeSetpoint,
		SPERateSetpoint: c.speRateSetpoint,
		SKERateSetpoint: c.skeRateSetpoint,

		STEError:     c.steError,
		STERateError: c.steRateError,
		SEBError:     c.sebError,
		SEBRateError: c.sebRateError,

		SPEWeighting: c.speWeighting,
		SKEWeighting: c.skeWeighting,

		PercentUndersped: c.percentUndersped,
	}
}
