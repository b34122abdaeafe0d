package canbus

import (
	"math"
	"testing"

	"go.einride.tech/can"

	"tecs-ng/internal/tecs"
)

func newTestCodec(t *testing.T, statusID uint32) *Codec {
	t.Helper()
	c, err := NewCodec(statusID)
	if err != nil {
		t.Fatalf("NewCodec(0x%X) error: %v", statusID, err)
	}
	return c
}

func sampleStatus() tecs.Status {
	return tecs.Status{
		Mode:               tecs.ModeUnderspeed,
		ThrottleSetpoint:   0.731,
		PitchSetpoint:      -0.082,
		TAS:                13.42,
		PercentUndersped:   0.25,
		STEError:           204.6,
		STERateError:       -12.3,
		SEBError:           -40.5,
		SEBRateError:       3.1,
		AltitudeSetpoint:   512.37,
		HeightRateSetpoint: -2.5,
		TASSetpointAdj:     12.0,
	}
}

func TestEncodeStatus_FrameShapes(t *testing.T) {
	c := newTestCodec(t, 0)
	frames := c.EncodeStatus(sampleStatus())
	if len(frames) != len(c.Frames()) {
		t.Fatalf("frames=%d want %d", len(frames), len(c.Frames()))
	}
	for i, f := range frames {
		if f.ID != c.Frames()[i].ID {
			t.Fatalf("frame %d id=0x%X want 0x%X", i, f.ID, c.Frames()[i].ID)
		}
		if int(f.Length) != c.Frames()[i].DLC {
			t.Fatalf("frame %d length=%d want %d", i, f.Length, c.Frames()[i].DLC)
		}
	}
}

func TestNewCodec_ZeroSelectsDefaultBase(t *testing.T) {
	c := newTestCodec(t, 0)
	want := []uint32{DefaultStatusID, DefaultStatusID + 1, DefaultStatusID + 2}
	for i, fd := range c.Frames() {
		if fd.ID != want[i] {
			t.Fatalf("frame %d id=0x%X want 0x%X", i, fd.ID, want[i])
		}
	}
}

func TestNewCodec_RemappedBaseMovesAllFrames(t *testing.T) {
	c := newTestCodec(t, 0x500)
	frames := c.EncodeStatus(sampleStatus())
	want := []uint32{0x500, 0x501, 0x502}
	for i, f := range frames {
		if f.ID != want[i] {
			t.Fatalf("frame %d id=0x%X want 0x%X", i, f.ID, want[i])
		}
	}

	// The remapped codec decodes its own IDs and rejects the default ones.
	if _, err := c.Decode(frames[0]); err != nil {
		t.Fatalf("Decode(remapped) error: %v", err)
	}
	var def can.Frame
	def.ID = DefaultStatusID
	if _, err := c.Decode(def); err == nil {
		t.Fatalf("expected error decoding default id with remapped codec")
	}
}

func TestNewCodec_RejectsBaseWithoutRoom(t *testing.T) {
	for _, id := range []uint32{0x7FE, 0x7FF, 0x800, 0xFFFFFFFF} {
		if _, err := NewCodec(id); err == nil {
			t.Fatalf("NewCodec(0x%X) expected error", id)
		}
	}
	if _, err := NewCodec(0x7FD); err != nil {
		t.Fatalf("NewCodec(0x7FD) error: %v (last fitting base must be accepted)", err)
	}
}

func TestEncodeDecode_PhysicalValuesSurvive(t *testing.T) {
	c := newTestCodec(t, 0)
	st := sampleStatus()
	frames := c.EncodeStatus(st)

	status, err := c.Decode(frames[0])
	if err != nil {
		t.Fatalf("Decode(status) error: %v", err)
	}
	if got := status["mode"]; got != float64(tecs.ModeUnderspeed) {
		t.Fatalf("mode=%v want %v", got, float64(tecs.ModeUnderspeed))
	}
	if got := status["pitch_setpoint"]; math.Abs(got-st.PitchSetpoint) > 0.0001 {
		t.Fatalf("pitch=%v want %v within one quantum", got, st.PitchSetpoint)
	}
	if got := status["throttle_setpoint"]; math.Abs(got-st.ThrottleSetpoint) > 0.0001 {
		t.Fatalf("throttle=%v want %v within one quantum", got, st.ThrottleSetpoint)
	}

	setpoints, err := c.Decode(frames[2])
	if err != nil {
		t.Fatalf("Decode(setpoints) error: %v", err)
	}
	if got := setpoints["altitude_setpoint"]; math.Abs(got-st.AltitudeSetpoint) > 0.01 {
		t.Fatalf("altitude setpoint=%v want %v within one quantum", got, st.AltitudeSetpoint)
	}
	if got := setpoints["height_rate_setpoint"]; math.Abs(got-st.HeightRateSetpoint) > 0.01 {
		t.Fatalf("height rate=%v want %v within one quantum", got, st.HeightRateSetpoint)
	}
}

func TestEncode_ClampsOutOfRangeSignals(t *testing.T) {
	c := newTestCodec(t, 0)
	st := sampleStatus()
	st.STEError = 1e9 // far beyond the signed 16-bit physical range

	energy, err := c.Decode(c.EncodeStatus(st)[1])
	if err != nil {
		t.Fatalf("Decode(energy) error: %v", err)
	}
	want := float64(int64(1)<<15-1) * 0.1
	if got := energy["ste_error"]; got != want {
		t.Fatalf("ste_error=%v want clamped to %v", got, want)
	}
}

func TestEncode_NonFiniteSignalsZeroed(t *testing.T) {
	c := newTestCodec(t, 0)
	st := sampleStatus()
	st.HeightRateSetpoint = math.NaN()

	setpoints, err := c.Decode(c.EncodeStatus(st)[2])
	if err != nil {
		t.Fatalf("Decode(setpoints) error: %v", err)
	}
	if got := setpoints["height_rate_setpoint"]; got != 0 {
		t.Fatalf("height rate=%v want 0 for NaN input", got)
	}
}

func TestDecode_UnknownID(t *testing.T) {
	c := newTestCodec(t, 0)
	var f can.Frame
	f.ID = 0x7FF
	if _, err := c.Decode(f); err == nil {
		t.Fatalf("expected error for unknown frame id")
	}
}
