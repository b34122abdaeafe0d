package sim

import (
	"math"
	"testing"
)

func newTestAircraft() *Aircraft {
	return NewAircraft(DefaultConfig(), 5, 2, 100, 15)
}

func TestAircraft_TrimHoldsState(t *testing.T) {
	a := newTestAircraft()
	for i := 0; i < 500; i++ {
		a.Step(0.02, 0.45, 0)
	}
	if math.Abs(a.Altitude-100) > 1e-6 {
		t.Fatalf("altitude=%v want held at 100 at trim", a.Altitude)
	}
	if math.Abs(a.TAS-15) > 1e-6 {
		t.Fatalf("tas=%v want held at 15 at trim", a.TAS)
	}
}

func TestAircraft_MaxThrottleLevelAccelerates(t *testing.T) {
	a := newTestAircraft()
	for i := 0; i < 100; i++ {
		a.Step(0.02, 1.0, 0)
	}
	if a.TAS <= 15 {
		t.Fatalf("tas=%v want increased at max throttle, level pitch", a.TAS)
	}
	if math.Abs(a.Altitude-100) > 1e-6 {
		t.Fatalf("altitude=%v want unchanged with zero pitch", a.Altitude)
	}
}

func TestAircraft_PitchUpTradesSpeedForHeight(t *testing.T) {
	a := newTestAircraft()
	for i := 0; i < 200; i++ {
		a.Step(0.02, 0.45, 0.1)
	}
	if a.Altitude <= 100 {
		t.Fatalf("altitude=%v want climb with pitch up", a.Altitude)
	}
	if a.TAS >= 15 {
		t.Fatalf("tas=%v want speed shed during trim-throttle climb", a.TAS)
	}
}

func TestAircraft_EnergyConsistentAtTrim(t *testing.T) {
	// At trim throttle the specific total energy must be conserved
	// regardless of pitch.
	a := newTestAircraft()
	ste0 := gravity*a.Altitude + 0.5*a.TAS*a.TAS
	for i := 0; i < 200; i++ {
		a.Step(0.02, 0.45, 0.05)
	}
	ste1 := gravity*a.Altitude + 0.5*a.TAS*a.TAS
	if math.Abs(ste1-ste0) > ste0*0.01 {
		t.Fatalf("specific total energy drifted %v -> %v at trim", ste0, ste1)
	}
}

func TestAircraft_TASNeverNegative(t *testing.T) {
	a := NewAircraft(DefaultConfig(), 5, 2, 100, 0.5)
	for i := 0; i < 500; i++ {
		a.Step(0.02, 0, 0.5)
		if a.TAS < 0 {
			t.Fatalf("tick %d: tas=%v negative", i, a.TAS)
		}
	}
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"pitch time const", func(c *Config) { c.PitchTimeConst = 0 }},
		{"eas_to_tas", func(c *Config) { c.EASToTAS = 0 }},
		{"throttle span", func(c *Config) { c.ThrottleMax = c.ThrottleMin }},
		{"trim outside span", func(c *Config) { c.ThrottleTrim = 2 }},
		{"pitch span", func(c *Config) { c.PitchLimitMax = c.PitchLimitMin }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}

	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}
