// Package trajectory generates jerk-limited 1-D setpoint trajectories.
//
// A VelocitySmoothing instance tracks a commanded velocity with a
// three-segment acceleration profile (jerk up, constant accel, jerk down)
// while respecting jerk, acceleration and velocity bounds. All quantities use
// a positive-up sign convention: "up" limits apply to positive velocity and
// acceleration, "down" limits to negative.
package trajectory

import "math"

const smallDuration = 1e-9

// VelocitySmoothing holds the generator state (position, velocity,
// acceleration) and the segment durations of the current profile.
//
// Not safe for concurrent use.
type VelocitySmoothing struct {
	maxJerk      float64
	maxAccelUp   float64
	maxAccelDown float64
	maxVelUp     float64
	maxVelDown   float64

	accel float64
	vel   float64
	pos   float64

	velSp float64

	// Profile segments: jerk j1 for t1, zero jerk for t2, jerk j3 for t3.
	j1, j3     float64
	t1, t2, t3 float64
}

// NewVelocitySmoothing returns a generator with the given symmetric limits
// and zeroed state.
func NewVelocitySmoothing(maxJerk, maxAccel, maxVel float64) *VelocitySmoothing {
	s := &VelocitySmoothing{}
	s.SetMaxJerk(maxJerk)
	s.SetMaxAccel(maxAccel)
	s.SetMaxVel(maxVel)
	return s
}

func (s *VelocitySmoothing) SetMaxJerk(j float64) { s.maxJerk = math.Max(j, smallDuration) }

// SetMaxAccel sets a symmetric acceleration bound.
func (s *VelocitySmoothing) SetMaxAccel(a float64) {
	s.maxAccelUp = math.Abs(a)
	s.maxAccelDown = math.Abs(a)
}

func (s *VelocitySmoothing) SetMaxAccelUp(a float64)   { s.maxAccelUp = math.Abs(a) }
func (s *VelocitySmoothing) SetMaxAccelDown(a float64) { s.maxAccelDown = math.Abs(a) }

// SetMaxVel sets a symmetric velocity bound.
func (s *VelocitySmoothing) SetMaxVel(v float64) {
	s.maxVelUp = math.Abs(v)
	s.maxVelDown = math.Abs(v)
}

// SetMaxVelUp bounds positive (climbing) velocity.
func (s *VelocitySmoothing) SetMaxVelUp(v float64) { s.maxVelUp = math.Abs(v) }

// SetMaxVelDown bounds negative (sinking) velocity magnitude.
func (s *VelocitySmoothing) SetMaxVelDown(v float64) { s.maxVelDown = math.Abs(v) }

func (s *VelocitySmoothing) SetCurrentPosition(p float64) { s.pos = p }
func (s *VelocitySmoothing) SetCurrentVelocity(v float64) { s.vel = v }

func (s *VelocitySmoothing) CurrentPosition() float64     { return s.pos }
func (s *VelocitySmoothing) CurrentVelocity() float64     { return s.vel }
func (s *VelocitySmoothing) CurrentAcceleration() float64 { return s.accel }

// Reset overwrites the generator state and clears the active profile.
func (s *VelocitySmoothing) Reset(accel, vel, pos float64) {
	s.accel = accel
	s.vel = vel
	s.pos = pos
	s.velSp = vel
	s.j1, s.j3 = 0, 0
	s.t1, s.t2, s.t3 = 0, 0, 0
}

// Update recomputes the minimum-time profile toward vCmd and advances the
// state by dt.
func (s *VelocitySmoothing) Update(dt, vCmd float64) {
	s.UpdateDurations(vCmd)
	s.UpdateTraj(dt)
}

// UpdateDurations computes the three-segment profile that brings the current
// (vel, accel) state to the commanded velocity with zero final acceleration.
func (s *VelocitySmoothing) UpdateDurations(vCmd float64) {
	s.velSp = clamp(vCmd, -s.maxVelDown, s.maxVelUp)

	// Velocity that would be reached if the current acceleration were ramped
	// straight to zero. Steering toward it picks the profile direction that
	// never requires an inner sign reversal.
	velAtZeroAccel := s.vel + s.accel*math.Abs(s.accel)/(2*s.maxJerk)
	errV := s.velSp - velAtZeroAccel

	if math.Abs(errV) < smallDuration {
		// Only the current acceleration needs to be unwound.
		s.j1, s.t1, s.t2 = 0, 0, 0
		s.t3 = math.Abs(s.accel) / s.maxJerk
		s.j3 = -sign(s.accel) * s.maxJerk
		return
	}

	d := sign(errV)
	accelLimit := s.maxAccelUp
	if d < 0 {
		accelLimit = s.maxAccelDown
	}

	// Peak acceleration of a pure jerk-up/jerk-down (triangular) profile
	// covering the full velocity change.
	dv := s.velSp - s.vel
	peak := d * math.Sqrt(math.Max(d*dv*s.maxJerk+0.5*s.accel*s.accel, 0))
	t2 := 0.0
	if math.Abs(peak) > accelLimit {
		// Trapezoidal profile: saturate at the acceleration limit and hold it
		// for the remaining velocity change.
		peak = d * accelLimit
		t1 := (peak - s.accel) / (d * s.maxJerk)
		t3 := math.Abs(peak) / s.maxJerk
		dv1 := s.accel*t1 + 0.5*d*s.maxJerk*t1*t1
		dv3 := peak*t3 - 0.5*d*s.maxJerk*t3*t3
		t2 = (dv - dv1 - dv3) / peak
	}

	s.j1 = d * s.maxJerk
	s.j3 = -d * s.maxJerk
	s.t1 = math.Max((peak-s.accel)/(d*s.maxJerk), 0)
	s.t2 = math.Max(t2, 0)
	s.t3 = math.Abs(peak) / s.maxJerk
}

// UpdateTraj integrates the active profile over dt, consuming segment
// durations as it goes. Past the end of the profile the state coasts at the
// commanded velocity with zero acceleration.
func (s *VelocitySmoothing) UpdateTraj(dt float64) {
	remaining := dt

	segs := [3]struct {
		jerk float64
		dur  *float64
	}{
		{s.j1, &s.t1},
		{0, &s.t2},
		{s.j3, &s.t3},
	}
	for _, seg := range segs {
		if remaining <= 0 {
			break
		}
		h := math.Min(remaining, *seg.dur)
		if h <= 0 {
			continue
		}
		s.integrate(seg.jerk, h)
		*seg.dur -= h
		remaining -= h
	}

	if remaining > 0 {
		// Profile complete; hold velocity.
		s.accel = 0
		s.vel = s.velSp
		s.pos += s.vel * remaining
	}

	s.vel = clamp(s.vel, -s.maxVelDown, s.maxVelUp)
	s.accel = clamp(s.accel, -s.maxAccelDown, s.maxAccelUp)
}

func (s *VelocitySmoothing) integrate(jerk, h float64) {
	s.pos += s.vel*h + 0.5*s.accel*h*h + jerk*h*h*h/6
	s.vel += s.accel*h + 0.5*jerk*h*h
	s.accel += jerk * h
}

// MaxSpeedFromDistance returns the highest speed from which the remaining
// distance can be closed while braking to vEnd within the given jerk and
// acceleration bounds. This is the trapezoidal braking profile with a jerk
// allowance of one full accel ramp.
func MaxSpeedFromDistance(maxJerk, maxAccel, distance, vEnd float64) float64 {
	maxJerk = math.Max(maxJerk, smallDuration)
	maxAccel = math.Max(maxAccel, smallDuration)
	distance = math.Max(distance, 0)

	b := 4 * maxAccel * maxAccel / maxJerk
	c := -2*maxAccel*distance - vEnd*vEnd
	maxSpeed := 0.5 * (-b + math.Sqrt(b*b-4*c))
	return math.Max(maxSpeed, 0)
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

func sign(v float64) float64 {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}
