package filter

// LowPass is a first-order low-pass filter with a fixed design time step.
//
// The pole is computed once from the design step and time constant, so the
// per-sample update is a single multiply-add. Callers running at a variable
// rate should reconfigure via SetParameters when the nominal step changes.
//
// Not safe for concurrent use.
type LowPass struct {
	alpha float64
	state float64
}

// NewLowPass returns a filter designed for step dt (seconds) and time
// constant tau (seconds). The state starts at zero.
func NewLowPass(dt, tau float64) *LowPass {
	f := &LowPass{}
	f.SetParameters(dt, tau)
	return f
}

// SetParameters recomputes the filter pole for step dt and time constant tau.
// Non-positive dt or negative tau degenerate to a pass-through filter.
func (f *LowPass) SetParameters(dt, tau float64) {
	if dt <= 0 || tau < 0 {
		f.alpha = 1
		return
	}
	f.alpha = dt / (dt + tau)
}

// Update feeds one sample and returns the new filter state.
func (f *LowPass) Update(x float64) float64 {
	f.state += f.alpha * (x - f.state)
	return f.state
}

// Reset forces the filter state to x.
func (f *LowPass) Reset(x float64) {
	f.state = x
}

// State returns the current filter state.
func (f *LowPass) State() float64 {
	return f.state
}
