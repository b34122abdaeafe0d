package sim

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTempScenario(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scen.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

const validScenario = `version: 1
name: "test"
initial:
  alt_m: 100
  eas_mps: 15
commands:
  - t: 0s
    alt_m: 100
    eas_mps: 15
  - t: 10s
    alt_m: 150
  - t: 20s
    height_rate_mps: -2
  - t: 30s
    alt_m: 120
    climbout: true
  - t: 40s
    airspeed_valid: false
`

func TestLoadScenario_DurationDerivedFromLastKeyframe(t *testing.T) {
	s, err := LoadScenario(writeTempScenario(t, validScenario))
	if err != nil {
		t.Fatalf("LoadScenario() error: %v", err)
	}
	if s.Duration != 40*time.Second {
		t.Fatalf("duration=%s want 40s", s.Duration)
	}
}

func TestLoadScenario_Validation(t *testing.T) {
	cases := []struct {
		name     string
		contents string
	}{
		{"bad version", "version: 2\ninitial: {alt_m: 1, eas_mps: 10}\ncommands: [{t: 0s}]\n"},
		{"no commands", "version: 1\ninitial: {alt_m: 1, eas_mps: 10}\n"},
		{"zero initial airspeed", "version: 1\ninitial: {alt_m: 1}\ncommands: [{t: 0s}]\n"},
		{"unsorted keyframes", "version: 1\ninitial: {alt_m: 1, eas_mps: 10}\ncommands: [{t: 5s}, {t: 1s}]\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadScenario(writeTempScenario(t, tc.contents)); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

func TestScenarioAt_StepHoldSemantics(t *testing.T) {
	s, err := LoadScenario(writeTempScenario(t, validScenario))
	if err != nil {
		t.Fatalf("LoadScenario() error: %v", err)
	}

	cmd := s.At(5 * time.Second)
	if cmd.AltitudeSetpoint != 100 || cmd.EASSetpoint != 15 {
		t.Fatalf("t=5s cmd=%+v want initial commands held", cmd)
	}
	if !math.IsNaN(cmd.HeightRateSetpoint) {
		t.Fatalf("t=5s height rate=%v want NaN (altitude mode)", cmd.HeightRateSetpoint)
	}

	cmd = s.At(15 * time.Second)
	if cmd.AltitudeSetpoint != 150 {
		t.Fatalf("t=15s alt=%v want 150", cmd.AltitudeSetpoint)
	}
	if cmd.EASSetpoint != 15 {
		t.Fatalf("t=15s eas=%v want held at 15", cmd.EASSetpoint)
	}

	cmd = s.At(25 * time.Second)
	if cmd.HeightRateSetpoint != -2 {
		t.Fatalf("t=25s height rate=%v want -2", cmd.HeightRateSetpoint)
	}

	// A later alt_m keyframe switches back to altitude mode.
	cmd = s.At(35 * time.Second)
	if !math.IsNaN(cmd.HeightRateSetpoint) {
		t.Fatalf("t=35s height rate=%v want NaN after alt_m keyframe", cmd.HeightRateSetpoint)
	}
	if cmd.AltitudeSetpoint != 120 || !cmd.Climbout {
		t.Fatalf("t=35s cmd=%+v want alt 120 with climbout", cmd)
	}

	cmd = s.At(45 * time.Second)
	if cmd.AirspeedValid {
		t.Fatalf("t=45s airspeed still valid, want dropout")
	}
}

func TestScenarioAt_Deterministic(t *testing.T) {
	s, err := LoadScenario(writeTempScenario(t, validScenario))
	if err != nil {
		t.Fatalf("LoadScenario() error: %v", err)
	}
	a := s.At(12 * time.Second)
	b := s.At(12 * time.Second)
	if a.AltitudeSetpoint != b.AltitudeSetpoint || a.EASSetpoint != b.EASSetpoint {
		t.Fatalf("expected deterministic result for same t")
	}
}
