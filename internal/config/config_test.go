package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tecs-ng/internal/canbus"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	tmp := t.TempDir()
	path := filepath.Join(tmp, "cfg.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	return path
}

func TestLoad_DefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "{}\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.TickRateHz != 50 {
		t.Fatalf("tick_rate_hz=%d want 50", cfg.TickRateHz)
	}
	if cfg.Controller.EquivalentAirspeedTrim != 15 {
		t.Fatalf("controller trim airspeed=%v want default 15", cfg.Controller.EquivalentAirspeedTrim)
	}
	if cfg.Sim.EASToTAS != 1 {
		t.Fatalf("sim eas_to_tas=%v want default 1", cfg.Sim.EASToTAS)
	}
	if cfg.Telemetry.UDP.Enable || cfg.Telemetry.CAN.Enable {
		t.Fatalf("telemetry must default to disabled")
	}
}

func TestLoad_PartialOverrideKeepsOtherDefaults(t *testing.T) {
	path := writeTempConfig(t, "controller:\n  max_climb_rate: 8\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Controller.MaxClimbRate != 8 {
		t.Fatalf("max_climb_rate=%v want 8", cfg.Controller.MaxClimbRate)
	}
	if cfg.Controller.MaxSinkRate != 4 {
		t.Fatalf("max_sink_rate=%v want untouched default 4", cfg.Controller.MaxSinkRate)
	}
}

func TestLoad_RejectsBadControllerParams(t *testing.T) {
	path := writeTempConfig(t, "controller:\n  equivalent_airspeed_min: 30\n")
	_, err := Load(path)
	if err == nil {
		t.Fatalf("expected error for airspeed min above max")
	}
	if !strings.HasPrefix(err.Error(), "controller:") {
		t.Fatalf("error=%q want controller: prefix", err.Error())
	}
}

func TestLoad_RejectsBadTickRate(t *testing.T) {
	path := writeTempConfig(t, "tick_rate_hz: 5000\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "tick_rate_hz") {
		t.Fatalf("err=%v want tick_rate_hz error", err)
	}
}

func TestLoad_UDPRequiresDest(t *testing.T) {
	path := writeTempConfig(t, "telemetry:\n  udp:\n    enable: true\n")
	_, err := Load(path)
	if err == nil || err.Error() != "telemetry.udp.dest is required when telemetry.udp.enable is true" {
		t.Fatalf("err=%v want udp dest error", err)
	}
}

func TestLoad_UDPIntervalDefaulted(t *testing.T) {
	path := writeTempConfig(t, "telemetry:\n  udp:\n    enable: true\n    dest: '127.0.0.1:4100'\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Telemetry.UDP.Interval != 200*time.Millisecond {
		t.Fatalf("interval=%s want 200ms default", cfg.Telemetry.UDP.Interval)
	}
}

func TestLoad_CANRequiresInterface(t *testing.T) {
	path := writeTempConfig(t, "telemetry:\n  can:\n    enable: true\n")
	_, err := Load(path)
	if err == nil || err.Error() != "telemetry.can.interface is required when telemetry.can.enable is true" {
		t.Fatalf("err=%v want can interface error", err)
	}
}

func TestLoad_CANDefaultsApplied(t *testing.T) {
	path := writeTempConfig(t, "telemetry:\n  can:\n    enable: true\n    interface: vcan0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Telemetry.CAN.RateHz != 10 {
		t.Fatalf("rate_hz=%v want 10 default", cfg.Telemetry.CAN.RateHz)
	}
	if cfg.Telemetry.CAN.StatusID != canbus.DefaultStatusID {
		t.Fatalf("status_id=0x%X want default 0x%X", cfg.Telemetry.CAN.StatusID, canbus.DefaultStatusID)
	}
}

func TestLoad_CANStatusIDRemap(t *testing.T) {
	path := writeTempConfig(t, "telemetry:\n  can:\n    enable: true\n    interface: vcan0\n    status_id: 0x500\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Telemetry.CAN.StatusID != 0x500 {
		t.Fatalf("status_id=0x%X want 0x500", cfg.Telemetry.CAN.StatusID)
	}
}

func TestLoad_CANStatusIDOutOfRange(t *testing.T) {
	path := writeTempConfig(t, "telemetry:\n  can:\n    enable: true\n    interface: vcan0\n    status_id: 0x7FF\n")
	_, err := Load(path)
	if err == nil || !strings.HasPrefix(err.Error(), "telemetry.can.status_id:") {
		t.Fatalf("err=%v want status_id range error", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
