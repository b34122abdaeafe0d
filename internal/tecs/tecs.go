// Package tecs implements a total energy control system for fixed-wing
// aircraft: a longitudinal guidance law that commands throttle and pitch to
// track altitude (or height rate) and equivalent airspeed.
//
// Throttle regulates the rate of the specific total energy (kinetic plus
// potential, per unit mass); pitch regulates the balance between the two.
// The per-tick update is deterministic, non-blocking and allocation-free;
// every failure mode is represented as controller state (see Mode), never as
// an error return.
package tecs

import (
	"math"

	"tecs-ng/internal/filter"
	"tecs-ng/internal/trajectory"
)

const (
	dtMin     = 0.001 // seconds; shorter ticks are treated as this long
	dtMax     = 1.0   // seconds; longer gaps force a state reset
	dtDefault = 0.02

	gravity = 9.80665

	// Fraction of trim EAS treated as the expected airspeed deviation when
	// ramping in underspeed mitigation.
	tasErrorFraction = 0.10

	// Guards divisions by quantities that are zero only in degenerate flight
	// states (e.g. zero airspeed on the ground, where the controller must
	// already be disabled by the caller).
	epsilon = 1e-6
)

// Mode reports the controller operating mode for the last tick.
type Mode int

const (
	ModeNormal Mode = iota
	ModeClimbout
	ModeUnderspeed
	ModeBadDescent
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "NORMAL"
	case ModeClimbout:
		return "CLIMBOUT"
	case ModeUnderspeed:
		return "UNDERSPEED"
	case ModeBadDescent:
		return "BAD_DESCENT"
	default:
		return "UNKNOWN"
	}
}

// VehicleState carries one inertial/airspeed sensor update.
type VehicleState struct {
	EAS               float64 // equivalent airspeed, m/s; NaN when unavailable
	SpeedDerivForward float64 // longitudinal acceleration, m/s^2
	AltitudeLock      bool    // false while the INS altitude is invalid
	Altitude          float64 // m AMSL
	VZ                float64 // vertical velocity, m/s, positive down
}

// Input carries the per-tick setpoints and actuator limits.
type Input struct {
	Pitch              float64 // current pitch, rad
	BaroAltitude       float64 // m AMSL
	AltitudeSetpoint   float64 // m AMSL; used when HeightRateSetpoint is NaN
	EASSetpoint        float64 // m/s
	EAS                float64 // m/s; NaN when unavailable
	EASToTAS           float64 // density ratio factor, unitless
	Climbout           bool
	PitchMinClimbout   float64 // rad
	ThrottleMin        float64 // 0..1
	ThrottleMax        float64 // 0..1
	ThrottleTrim       float64 // 0..1
	PitchLimitMin      float64 // rad
	PitchLimitMax      float64 // rad
	TargetClimbRate    float64 // m/s, positive
	TargetSinkRate     float64 // m/s, positive
	HeightRateSetpoint float64 // m/s; NaN selects altitude control
}

// Controller holds all persistent state of the energy control loop.
//
// One instance per airframe. Not safe for concurrent use; inputs are passed
// by value and outputs are read through getters after a tick.
type Controller struct {
	params Params

	airspeedEnabled         bool
	detectUnderspeedEnabled bool
	loadFactor              float64

	stateUpdateTimestamp uint64 // microseconds
	speedUpdateTimestamp uint64
	pitchUpdateTimestamp uint64
	dt                   float64

	// Vertical and airspeed states.
	vertPos         float64
	vertVel         float64
	tasState        float64
	tasRateState    float64
	tasRateRaw      float64
	tasRateFiltered float64
	tasInnov        float64
	eas             float64

	// Setpoints.
	easSetpoint     float64
	tasSetpoint     float64
	tasSetpointAdj  float64
	tasRateSetpoint float64
	tasMin          float64
	tasMax          float64
	hgtSetpoint     float64
	hgtRateSetpoint float64

	// Per-tick limits.
	steRateMin          float64
	steRateMax          float64
	throttleSetpointMin float64
	throttleSetpointMax float64
	pitchSetpointMin    float64
	pitchSetpointMax    float64
	throttleTrim        float64

	// Specific energies.
	speEstimate     float64
	skeEstimate     float64
	speRate         float64
	skeRate         float64
	speSetpoint     float64
	skeSetpoint     float64
	speRateSetpoint float64
	skeRateSetpoint float64
	steError        float64
	steRateSetpoint float64
	steRateError    float64
	sebError        float64
	sebRateError    float64

	speWeighting float64
	skeWeighting float64

	// Integrators and rate-limit memory.
	throttleIntegState   float64
	pitchIntegState      float64
	lastThrottleSetpoint float64
	lastPitchSetpoint    float64
	pitchSetpointUnc     float64

	// Mode state.
	percentUndersped           float64
	uncommandedDescentRecovery bool
	climboutModeActive         bool
	statesInitialized          bool
	mode                       Mode

	tasRateFilter      *filter.LowPass
	steRateErrorFilter *filter.LowPass

	altTrajGenerator *trajectory.VelocitySmoothing
	velTrajGenerator *trajectory.VelocitySmoothing
}

// New returns a controller with the given parameters. State is established on
// the first Update call.
func New(p Params) *Controller {
	return &Controller{
		params:                  p,
		airspeedEnabled:         true,
		detectUnderspeedEnabled: true,
		loadFactor:              1.0,
		tasRateFilter:           filter.NewLowPass(dtDefault, p.SpeedDerivativeTimeConst),
		steRateErrorFilter:      filter.NewLowPass(dtDefault, p.STERateTimeConst),
		altTrajGenerator:        trajectory.NewVelocitySmoothing(p.JerkMax, p.VertAccelLimit, math.Max(p.MaxClimbRate, p.MaxSinkRate)),
		velTrajGenerator:        trajectory.NewVelocitySmoothing(p.JerkMax, p.VertAccelLimit, math.Max(p.MaxClimbRate, p.MaxSinkRate)),
	}
}

// SetParams replaces the parameter set. Call between ticks only.
func (c *Controller) SetParams(p Params) { c.params = p }

// SetAirspeedEnabled selects whether airspeed measurements are used. With
// airspeed disabled the law degrades to height-only control (zero kinetic
// weighting, no throttle integrator, zero TAS rate setpoint).
func (c *Controller) SetAirspeedEnabled(enabled bool) { c.airspeedEnabled = enabled }

// SetDetectUnderspeedEnabled gates the underspeed mitigation ramp.
func (c *Controller) SetDetectUnderspeedEnabled(enabled bool) { c.detectUnderspeedEnabled = enabled }

// SetLoadFactor supplies the normal load factor used for induced-drag
// compensation in turns.
func (c *Controller) SetLoadFactor(lf float64) { c.loadFactor = lf }

// UpdateVehicleState ingests one sensor update: INS altitude and vertical
// velocity plus the true-airspeed derivative used by the airspeed
// complementary filter. now is a monotonic microsecond count.
func (c *Controller) UpdateVehicleState(now uint64, vs VehicleState) {
	dt := math.Max(float64(now-c.stateUpdateTimestamp)*1e-6, dtMin)

	resetAltitude := c.stateUpdateTimestamp == 0 || dt > dtMax
	if !vs.AltitudeLock {
		resetAltitude = true
	}
	if resetAltitude {
		c.statesInitialized = false
	}

	c.stateUpdateTimestamp = now
	c.eas = vs.EAS

	c.vertVel = -vs.VZ
	c.vertPos = vs.Altitude

	if !math.IsNaN(vs.EAS) && c.airspeedEnabled {
		c.tasRateRaw = vs.SpeedDerivForward
		c.tasRateFiltered = c.tasRateFilter.Update(vs.SpeedDerivForward)
	} else {
		c.tasRateRaw = 0
		c.tasRateFiltered = 0
	}
}

// Update runs one controller tick. now is a monotonic microsecond count from
// the same source as UpdateVehicleState. Sub-steps run in a fixed order; each
// consumes the previous step's results.
func (c *Controller) Update(now uint64, in Input) {
	c.dt = math.Max(float64(now-c.pitchUpdateTimestamp)*1e-6, dtMin)

	c.throttleSetpointMax = in.ThrottleMax
	c.throttleSetpointMin = in.ThrottleMin
	c.pitchSetpointMax = in.PitchLimitMax
	c.pitchSetpointMin = in.PitchLimitMin
	c.climboutModeActive = in.Climbout
	c.throttleTrim = in.ThrottleTrim

	c.initializeStates(in)
	c.updateTrajectoryConstraints()
	c.updateSpeedStates(now, in)
	c.updateSTERateLimits()
	c.detectUnderspeed()
	c.updateSpeedHeightWeights()
	c.detectUncommandedDescent()
	c.updateSpeedSetpoint()
	c.updateHeightRateSetpoint(in)
	c.updateEnergyEstimates()
	c.updateThrottleSetpoint()
	c.updatePitchSetpoint()

	c.pitchUpdateTimestamp = now
	c.updateMode()
}

// initializeStates re-establishes all derived state on the first tick, after
// a time gap, or when the vehicle-state estimator lost altitude lock. During
// climbout it instead applies the climbout overrides.
func (c *Controller) initializeStates(in Input) {
	// The last sensed EAS seeds the speed states; fall back to trim when that
	// value is not finite.
	eas := c.eas
	if math.IsNaN(eas) || math.IsInf(eas, 0) {
		eas = c.params.EquivalentAirspeedTrim
	}

	if c.pitchUpdateTimestamp == 0 || c.dt > dtMax || !c.statesInitialized {
		c.vertVel = 0
		c.vertPos = in.BaroAltitude
		c.tasRateState = 0
		c.tasState = eas * in.EASToTAS
		c.lastThrottleSetpoint = in.ThrottleTrim
		c.lastPitchSetpoint = clamp(in.Pitch, c.pitchSetpointMin, c.pitchSetpointMax)
		c.pitchSetpointUnc = c.lastPitchSetpoint
		c.tasSetpoint = eas * in.EASToTAS
		c.tasSetpointAdj = c.tasSetpoint
		c.uncommandedDescentRecovery = false
		c.steRateError = 0
		c.hgtSetpoint = in.BaroAltitude
		c.hgtRateSetpoint = 0

		c.throttleIntegState = 0
		c.pitchIntegState = 0

		if c.dt > dtMax || c.dt < dtMin {
			c.dt = dtDefault
		}

		c.altTrajGenerator.Reset(0, 0, in.BaroAltitude)
		c.velTrajGenerator.Reset(0, 0, in.BaroAltitude)

		c.steRateErrorFilter.SetParameters(dtDefault, c.params.STERateTimeConst)
		c.steRateErrorFilter.Reset(0)
		c.tasRateFilter.SetParameters(dtDefault, c.params.SpeedDerivativeTimeConst)
		c.tasRateFilter.Reset(0)
	} else if c.climboutModeActive {
		// During climbout use the lower pitch limit supplied by the caller,
		// prevent throttle reduction, and track the measured airspeed.
		c.pitchSetpointMin = in.PitchMinClimbout
		c.throttleSetpointMin = c.throttleSetpointMax - 0.01
		c.tasSetpoint = eas * in.EASToTAS
		c.tasSetpointAdj = c.tasSetpoint
		c.hgtSetpoint = in.BaroAltitude
		c.uncommandedDescentRecovery = false
	}

	c.statesInitialized = true
}

func (c *Controller) updateTrajectoryConstraints() {
	c.altTrajGenerator.SetMaxJerk(c.params.JerkMax)
	c.altTrajGenerator.SetMaxAccel(c.params.VertAccelLimit)
	c.altTrajGenerator.SetMaxVel(math.Max(c.params.MaxClimbRate, c.params.MaxSinkRate))

	c.velTrajGenerator.SetMaxJerk(c.params.JerkMax)
	c.velTrajGenerator.SetMaxAccelUp(c.params.VertAccelLimit)
	c.velTrajGenerator.SetMaxAccelDown(c.params.VertAccelLimit)
	c.velTrajGenerator.SetMaxVelUp(c.params.MaxClimbRate)
	c.velTrajGenerator.SetMaxVelDown(c.params.MaxSinkRate)
}

// updateSpeedStates runs the second-order complementary filter fusing the
// equivalent airspeed measurement with the raw TAS derivative into a smoothed
// TAS estimate.
func (c *Controller) updateSpeedStates(now uint64, in Input) {
	dt := clamp(float64(now-c.speedUpdateTimestamp)*1e-6, dtMin, dtMax)

	c.easSetpoint = in.EASSetpoint
	c.tasSetpoint = c.easSetpoint * in.EASToTAS
	c.tasMax = c.params.EquivalentAirspeedMax * in.EASToTAS
	c.tasMin = c.params.EquivalentAirspeedMin * in.EASToTAS

	// Without a usable measurement, pin the estimate input to trim airspeed.
	if math.IsNaN(in.EAS) || !c.airspeedEnabled {
		c.eas = c.params.EquivalentAirspeedTrim
	} else {
		c.eas = in.EAS
	}

	if c.speedUpdateTimestamp == 0 {
		c.tasRateState = 0
		c.tasState = c.eas * in.EASToTAS
	}

	omega := c.params.TASEstimateFreq
	c.tasInnov = c.eas*in.EASToTAS - c.tasState
	c.tasRateState += c.tasInnov * omega * omega * dt

	input := c.tasRateState + c.tasRateRaw + c.tasInnov*omega*math.Sqrt2
	newTAS := c.tasState + input*dt
	if newTAS < 0 {
		// Clip TAS at zero and back-solve the rate state.
		input = -c.tasState / dt
		c.tasRateState = input - c.tasRateRaw - c.tasInnov*omega*math.Sqrt2
		c.tasState = 0
	} else {
		c.tasState = newTAS
	}

	c.speedUpdateTimestamp = now
}

func (c *Controller) updateSTERateLimits() {
	c.steRateMax = math.Max(c.params.MaxClimbRate, epsilon) * gravity
	c.steRateMin = -math.Max(c.params.MinSinkRate, epsilon) * gravity
}

// detectUnderspeed computes the continuous underspeed ramp from the smoothed
// TAS estimate.
func (c *Controller) detectUnderspeed() {
	if !c.detectUnderspeedEnabled {
		c.percentUndersped = 0
		return
	}

	errorBound := tasErrorFraction * c.params.EquivalentAirspeedTrim
	softBound := tasErrorFraction * c.params.EquivalentAirspeedTrim

	tasFullyUndersped := math.Max(c.tasMin-errorBound-softBound, 0)
	tasStartingToUnderspeed := math.Max(c.tasMin-errorBound, tasFullyUndersped)

	c.percentUndersped = 1 - clamp((c.tasState-tasFullyUndersped)/
		math.Max(tasStartingToUnderspeed-tasFullyUndersped, epsilon), 0, 1)
}

// updateSpeedHeightWeights derives how pitch splits its authority between
// kinetic (speed) and potential (height) energy. Weight 2 is all-speed,
// 0 all-height, 1 balanced.
func (c *Controller) updateSpeedHeightWeights() {
	w := clamp(c.params.PitchSpeedWeight, 0, 2)

	if c.climboutModeActive && c.airspeedEnabled {
		w = 2
	} else if c.percentUndersped > 0 && c.airspeedEnabled {
		w = 2*c.percentUndersped + (1-c.percentUndersped)*w
	} else if !c.airspeedEnabled {
		w = 0
	}

	// A weight above one would shorten the effective loop time constant and
	// can destabilize the loop, so each side is capped at one.
	c.speWeighting = clamp(2-w, 0, 1)
	c.skeWeighting = clamp(w, 0, 1)
}

// detectUncommandedDescent latches a recovery mode when the demanded airspeed
// exceeds what level flight can hold: total energy is low and falling while
// throttle is already near the limit.
func (c *Controller) detectUncommandedDescent() {
	steRate := c.speRate + c.skeRate
	underspeed := c.percentUndersped > 0

	enter := !c.uncommandedDescentRecovery && !underspeed &&
		c.steError > 200 && steRate < 0 &&
		c.lastThrottleSetpoint >= c.throttleSetpointMax*0.9

	exit := c.uncommandedDescentRecovery && (underspeed || c.steError < 0)

	if enter {
		c.uncommandedDescentRecovery = true
	} else if exit {
		c.uncommandedDescentRecovery = false
	}
}

// updateSpeedSetpoint conditions the TAS demand and derives its rate
// setpoint.
func (c *Controller) updateSpeedSetpoint() {
	// Sacrifice the speed demand to maximize climb capability while
	// recovering from an uncommanded descent or an underspeed.
	if c.uncommandedDescentRecovery {
		c.tasSetpoint = c.tasMin
	} else if c.percentUndersped > 0 {
		c.tasSetpoint = c.tasMin*c.percentUndersped + (1-c.percentUndersped)*c.tasSetpoint
	}

	c.tasSetpoint = clamp(c.tasSetpoint, c.tasMin, c.tasMax)

	// Rate-of-change bounds from the energy-rate limits, with a 50% margin
	// left for the total energy loop to correct errors.
	// TODO: these bounds gate only the rate setpoint below; evaluate slewing
	// tasSetpointAdj with them as well.
	maxTASRate := 0.5 * c.steRateMax / math.Max(c.tasState, epsilon)
	minTASRate := 0.5 * c.steRateMin / math.Max(c.tasState, epsilon)

	c.tasSetpointAdj = clamp(c.tasSetpoint, c.tasMin, c.tasMax)

	// Without airspeed the rate setpoint is pinned to zero so the energy
	// balance sees no phantom speed demand.
	if c.airspeedEnabled {
		c.tasRateSetpoint = clamp((c.tasSetpointAdj-c.tasState)*c.params.AirspeedErrorGain,
			minTASRate, maxTASRate)
	} else {
		c.tasRateSetpoint = 0
	}
}

// updateHeightRateSetpoint selects between height-rate and altitude control
// and produces the smoothed height-rate setpoint.
func (c *Controller) updateHeightRateSetpoint(in Input) {
	altitudeSetpoint := in.AltitudeSetpoint

	c.velTrajGenerator.SetCurrentVelocity(c.hgtRateSetpoint)

	if !math.IsNaN(in.HeightRateSetpoint) {
		c.velTrajGenerator.SetCurrentPosition(in.BaroAltitude)
		c.velTrajGenerator.Update(c.dt, in.HeightRateSetpoint)
		c.hgtRateSetpoint = c.velTrajGenerator.CurrentVelocity()
		altitudeSetpoint = c.velTrajGenerator.CurrentPosition()
	} else {
		c.velTrajGenerator.Reset(0, c.hgtRateSetpoint, c.hgtSetpoint)
	}

	if !math.IsNaN(altitudeSetpoint) {
		c.runAltitudeController(altitudeSetpoint, in.TargetClimbRate, in.TargetSinkRate, in.BaroAltitude)
	} else {
		c.altTrajGenerator.SetCurrentVelocity(c.hgtRateSetpoint)
		c.altTrajGenerator.SetCurrentPosition(in.BaroAltitude)
		c.hgtSetpoint = in.BaroAltitude
	}
}

// runAltitudeController drives the position-domain trajectory generator
// toward the altitude setpoint with a distance-to-speed braking rule, then
// combines feedback and feed-forward into the height-rate setpoint.
func (c *Controller) runAltitudeController(altSetpoint, targetClimbRate, targetSinkRate, alt float64) {
	targetClimbRate = math.Min(targetClimbRate, c.params.MaxClimbRate)
	targetSinkRate = math.Min(targetSinkRate, c.params.MaxSinkRate)

	delta := altSetpoint - c.altTrajGenerator.CurrentPosition()
	heightRateTarget := signNoZero(delta) * trajectory.MaxSpeedFromDistance(
		c.params.JerkMax, c.params.VertAccelLimit, math.Abs(delta), 0)
	heightRateTarget = clamp(heightRateTarget, -targetSinkRate, targetClimbRate)

	c.altTrajGenerator.UpdateDurations(heightRateTarget)
	c.altTrajGenerator.UpdateTraj(c.dt)

	c.hgtSetpoint = c.altTrajGenerator.CurrentPosition()
	c.hgtRateSetpoint = clamp(
		(c.hgtSetpoint-alt)*c.params.HeightErrorGain+
			c.params.HeightSetpointGainFF*c.altTrajGenerator.CurrentVelocity(),
		-c.params.MaxSinkRate, c.params.MaxClimbRate)
}

// updateEnergyEstimates recomputes the specific energies, their rates and the
// error terms from the current smoothed states.
func (c *Controller) updateEnergyEstimates() {
	c.speEstimate = c.vertPos * gravity
	c.skeEstimate = 0.5 * c.tasState * c.tasState

	c.speRate = c.vertVel * gravity
	c.skeRate = c.tasState * c.tasRateFiltered

	c.speSetpoint = c.hgtSetpoint * gravity
	c.skeSetpoint = 0.5 * c.tasSetpointAdj * c.tasSetpointAdj

	c.speRateSetpoint = c.hgtRateSetpoint * gravity
	c.skeRateSetpoint = c.tasState * c.tasRateSetpoint

	c.steError = (c.speSetpoint - c.speEstimate) + (c.skeSetpoint - c.skeEstimate)

	sebSetpoint := c.speSetpoint*c.speWeighting - c.skeSetpoint*c.skeWeighting
	c.sebError = sebSetpoint - (c.speEstimate*c.speWeighting - c.skeEstimate*c.skeWeighting)
}

// updateThrottleSetpoint produces the throttle demand from the total energy
// rate: a feed-forward map anchored at trim plus damped feedback on the
// filtered energy-rate error, with an anti-windup integrator.
func (c *Controller) updateThrottleSetpoint() {
	c.steRateSetpoint = c.speRateSetpoint + c.skeRateSetpoint

	c.steRateError = c.steRateErrorFilter.Update(
		c.steRateSetpoint - c.speRate - c.skeRate)

	// Induced drag rises roughly linearly with the extra normal load factor
	// in turns; compensate before constraining to the achievable envelope.
	c.steRateSetpoint += c.params.LoadFactorCorrection * (c.loadFactor - 1)
	c.steRateSetpoint = clamp(c.steRateSetpoint, c.steRateMin, c.steRateMax)

	// Feed-forward throttle: trim at zero energy rate, the respective limit
	// at the maximum achievable climb or sink energy rate.
	var throttlePredicted float64
	if c.steRateSetpoint >= 0 {
		throttlePredicted = c.throttleTrim +
			c.steRateSetpoint/c.steRateMax*(c.throttleSetpointMax-c.throttleTrim)
	} else {
		throttlePredicted = c.throttleTrim +
			c.steRateSetpoint/c.steRateMin*(c.throttleSetpointMin-c.throttleTrim)
	}

	steRateToThrottle := 1 / (c.steRateMax - c.steRateMin)

	throttleSetpoint := c.steRateError*c.params.ThrottleDampingGain*steRateToThrottle + throttlePredicted
	throttleSetpoint = clamp(throttleSetpoint, c.throttleSetpointMin, c.throttleSetpointMax)

	if c.airspeedEnabled {
		if c.params.IntegratorGainThrottle > 0 {
			integStateMax := c.throttleSetpointMax - throttleSetpoint
			integStateMin := c.throttleSetpointMin - throttleSetpoint

			// Underspeed conditions fade the integration out.
			integInput := c.steRateError * c.params.IntegratorGainThrottle * c.dt *
				steRateToThrottle * (1 - c.percentUndersped)

			// Only integrate in the direction that unsaturates the throttle.
			if c.throttleIntegState > integStateMax {
				integInput = math.Min(integInput, 0)
			} else if c.throttleIntegState < integStateMin {
				integInput = math.Max(integInput, 0)
			}
			c.throttleIntegState += integInput

			if c.climboutModeActive {
				// Pin the integrator high so throttle does not dip when
				// climbout ends and closed-loop control resumes.
				// TODO: this steps the throttle by the residual integrator
				// error on the first tick after climbout exit.
				c.throttleIntegState = integStateMax
			}
		} else {
			c.throttleIntegState = 0
		}
	}

	if c.airspeedEnabled {
		throttleSetpoint += c.throttleIntegState
	} else {
		// Without airspeed the integrator cannot be trusted; fly on the
		// predicted throttle alone.
		throttleSetpoint = throttlePredicted
	}

	// Ramp toward maximum throttle with the underspeediness value.
	throttleSetpoint = c.percentUndersped*c.throttleSetpointMax +
		(1-c.percentUndersped)*throttleSetpoint

	if math.Abs(c.params.ThrottleSlewRate) > 0.01 {
		limit := c.dt * (c.throttleSetpointMax - c.throttleSetpointMin) * c.params.ThrottleSlewRate
		throttleSetpoint = clamp(throttleSetpoint,
			c.lastThrottleSetpoint-limit, c.lastThrottleSetpoint+limit)
	}

	c.lastThrottleSetpoint = clamp(throttleSetpoint, c.throttleSetpointMin, c.throttleSetpointMax)
}

// updatePitchSetpoint produces the pitch demand from the specific energy
// balance rate error, converted to a climb angle through the small-angle
// energy identity, then rate-limited by the vertical acceleration budget.
func (c *Controller) updatePitchSetpoint() {
	sebRateSetpoint := c.speRateSetpoint*c.speWeighting - c.skeRateSetpoint*c.skeWeighting
	c.sebRateError = sebRateSetpoint - (c.speRate*c.speWeighting - c.skeRate*c.skeWeighting)

	// Rate of change of specific energy balance per unit climb angle.
	climbAngleToSEBRate := math.Max(c.tasState, epsilon) * gravity

	if c.params.IntegratorGainPitch > 0 {
		integInput := c.sebRateError * c.params.IntegratorGainPitch

		// Freeze integration in the direction that deepens pitch saturation.
		if c.pitchSetpointUnc > c.pitchSetpointMax {
			integInput = math.Min(integInput, 0)
		} else if c.pitchSetpointUnc < c.pitchSetpointMin {
			integInput = math.Max(integInput, 0)
		}
		c.pitchIntegState += integInput * c.dt
	} else {
		c.pitchIntegState = 0
	}

	sebRateCorrection := c.sebRateError*c.params.PitchDampingGain + c.pitchIntegState +
		c.params.SEBRateFF*sebRateSetpoint

	// During climbout, bias the demand so zero speed error yields the
	// minimum climb pitch instead of waiting for the integrator to wind up.
	if c.climboutModeActive {
		sebRateCorrection += c.pitchSetpointMin * climbAngleToSEBRate
	}

	c.pitchSetpointUnc = sebRateCorrection / climbAngleToSEBRate
	pitchSetpoint := clamp(c.pitchSetpointUnc, c.pitchSetpointMin, c.pitchSetpointMax)

	// Convert the vertical acceleration budget into a pitch increment limit.
	// The guard keeps the increment bounded at zero airspeed; on the ground
	// the caller must have disabled the controller already.
	pitchIncrement := c.dt * c.params.VertAccelLimit / math.Max(c.tasState, epsilon)
	c.lastPitchSetpoint = clamp(pitchSetpoint,
		c.lastPitchSetpoint-pitchIncrement, c.lastPitchSetpoint+pitchIncrement)
}

// updateMode reports the operating mode with priority
// BadDescent > Underspeed > Climbout > Normal. The control computations keep
// using the continuous percentUndersped blend regardless of the reported
// mode.
func (c *Controller) updateMode() {
	switch {
	case c.uncommandedDescentRecovery:
		c.mode = ModeBadDescent
	case c.percentUndersped > 0:
		c.mode = ModeUnderspeed
	case c.climboutModeActive:
		c.mode = ModeClimbout
	default:
		c.mode = ModeNormal
	}
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

func signNoZero(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}
