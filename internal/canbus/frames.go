// Package canbus encodes controller status onto a flight CAN bus as a fixed
// set of little-endian frames, for consumption by companion computers and
// ground tooling.
package canbus

import (
	"fmt"
	"math"

	"go.einride.tech/can"

	"tecs-ng/internal/tecs"
)

// DefaultStatusID is the default base frame ID of the status broadcast. The
// three frames occupy consecutive IDs starting here; the base is configurable
// so multiple controllers can share a bus or dodge a collision with another
// node.
const DefaultStatusID uint32 = 0x340

// Frame ID offsets from the configured base.
const (
	frameOffsetStatus uint32 = iota
	frameOffsetEnergy
	frameOffsetSetpoints
	frameCount
)

// maxStandardID is the highest valid 11-bit CAN identifier.
const maxStandardID uint32 = 0x7FF

// SignalDef describes one little-endian signal within a frame payload.
type SignalDef struct {
	Name      string
	StartBit  int
	BitLength int
	Signed    bool
	Factor    float64
	Offset    float64
	Unit      string
}

// FrameDef describes one frame of the status broadcast.
type FrameDef struct {
	ID      uint32
	Name    string
	DLC     int
	Signals []SignalDef
}

// Codec packs controller snapshots into the status frames rooted at a
// configured base ID.
type Codec struct {
	frames []FrameDef
}

// NewCodec returns a codec whose frames occupy the consecutive IDs
// [statusID, statusID+2]. A statusID of 0 selects DefaultStatusID.
func NewCodec(statusID uint32) (*Codec, error) {
	if statusID == 0 {
		statusID = DefaultStatusID
	}
	if statusID > maxStandardID-(frameCount-1) {
		return nil, fmt.Errorf("canbus: status_id 0x%X leaves no room for %d frames below 0x%X",
			statusID, frameCount, maxStandardID)
	}
	return &Codec{frames: statusFrames(statusID)}, nil
}

// Frames returns the frame map of this codec, in broadcast order.
func (c *Codec) Frames() []FrameDef { return c.frames }

func statusFrames(base uint32) []FrameDef {
	return []FrameDef{
		{
			ID: base + frameOffsetStatus, Name: "TECS_STATUS", DLC: 8,
			Signals: []SignalDef{
				{Name: "mode", StartBit: 0, BitLength: 4, Factor: 1},
				{Name: "percent_undersped", StartBit: 8, BitLength: 8, Factor: 1.0 / 250.0},
				{Name: "throttle_setpoint", StartBit: 16, BitLength: 16, Factor: 0.0001},
				{Name: "pitch_setpoint", StartBit: 32, BitLength: 16, Signed: true, Factor: 0.0001, Unit: "rad"},
				{Name: "tas", StartBit: 48, BitLength: 16, Factor: 0.01, Unit: "m/s"},
			},
		},
		{
			ID: base + frameOffsetEnergy, Name: "TECS_ENERGY", DLC: 8,
			Signals: []SignalDef{
				{Name: "ste_error", StartBit: 0, BitLength: 16, Signed: true, Factor: 0.1, Unit: "m^2/s^2"},
				{Name: "ste_rate_error", StartBit: 16, BitLength: 16, Signed: true, Factor: 0.1, Unit: "m^2/s^3"},
				{Name: "seb_error", StartBit: 32, BitLength: 16, Signed: true, Factor: 0.1, Unit: "m^2/s^2"},
				{Name: "seb_rate_error", StartBit: 48, BitLength: 16, Signed: true, Factor: 0.1, Unit: "m^2/s^3"},
			},
		},
		{
			ID: base + frameOffsetSetpoints, Name: "TECS_SETPOINTS", DLC: 8,
			Signals: []SignalDef{
				{Name: "altitude_setpoint", StartBit: 0, BitLength: 32, Signed: true, Factor: 0.01, Unit: "m"},
				{Name: "height_rate_setpoint", StartBit: 32, BitLength: 16, Signed: true, Factor: 0.01, Unit: "m/s"},
				{Name: "tas_setpoint_adj", StartBit: 48, BitLength: 16, Factor: 0.01, Unit: "m/s"},
			},
		},
	}
}

// EncodeStatus packs a controller snapshot into the status frames, in frame
// map order.
func (c *Codec) EncodeStatus(st tecs.Status) []can.Frame {
	values := map[string]float64{
		"mode":                 float64(st.Mode),
		"percent_undersped":    st.PercentUndersped,
		"throttle_setpoint":    st.ThrottleSetpoint,
		"pitch_setpoint":       st.PitchSetpoint,
		"tas":                  st.TAS,
		"ste_error":            st.STEError,
		"ste_rate_error":       st.STERateError,
		"seb_error":            st.SEBError,
		"seb_rate_error":       st.SEBRateError,
		"altitude_setpoint":    st.AltitudeSetpoint,
		"height_rate_setpoint": st.HeightRateSetpoint,
		"tas_setpoint_adj":     st.TASSetpointAdj,
	}

	frames := make([]can.Frame, 0, len(c.frames))
	for _, fd := range c.frames {
		frames = append(frames, encodeFrame(fd, values))
	}
	return frames
}

func encodeFrame(fd FrameDef, values map[string]float64) can.Frame {
	var payload uint64
	for _, s := range fd.Signals {
		v := values[s.Name]
		if math.IsNaN(v) || math.IsInf(v, 0) {
			v = 0
		}
		raw := int64(math.Round((v - s.Offset) / s.Factor))
		raw = clampRaw(raw, s.BitLength, s.Signed)
		payload = setBits(payload, s.StartBit, s.BitLength, rawToUnsigned(raw, s.BitLength))
	}

	var f can.Frame
	f.ID = fd.ID
	f.Length = uint8(fd.DLC)
	for i := 0; i < fd.DLC; i++ {
		f.Data[i] = byte(payload >> (8 * i))
	}
	return f
}

// Decode extracts the physical signal values of a status frame. IDs outside
// this codec's frame map are an error.
func (c *Codec) Decode(f can.Frame) (map[string]float64, error) {
	var def *FrameDef
	for i := range c.frames {
		if c.frames[i].ID == f.ID {
			def = &c.frames[i]
			break
		}
	}
	if def == nil {
		return nil, fmt.Errorf("canbus: unknown frame id 0x%X", f.ID)
	}
	if int(f.Length) < def.DLC {
		return nil, fmt.Errorf("canbus: frame 0x%X expects DLC %d, got %d", f.ID, def.DLC, f.Length)
	}

	var payload uint64
	for i := 0; i < def.DLC; i++ {
		payload |= uint64(f.Data[i]) << (8 * i)
	}

	out := make(map[string]float64, len(def.Signals))
	for _, s := range def.Signals {
		raw := unsignedToRaw(getBits(payload, s.StartBit, s.BitLength), s.BitLength, s.Signed)
		out[s.Name] = float64(raw)*s.Factor + s.Offset
	}
	return out, nil
}

func getBits(payload uint64, startBit, bitLen int) uint64 {
	if bitLen <= 0 || bitLen > 64 {
		return 0
	}
	mask := uint64(1)<<bitLen - 1
	return (payload >> startBit) & mask
}

func setBits(payload uint64, startBit, bitLen int, value uint64) uint64 {
	if bitLen <= 0 || bitLen > 64 {
		return payload
	}
	mask := uint64(1)<<bitLen - 1
	payload &^= mask << startBit
	payload |= (value & mask) << startBit
	return payload
}

func unsignedToRaw(u uint64, bitLen int, signed bool) int64 {
	if !signed {
		return int64(u)
	}
	signBit := uint64(1) << (bitLen - 1)
	if u&signBit == 0 {
		return int64(u)
	}
	fullMask := uint64(1)<<bitLen - 1
	return -int64((^u + 1) & fullMask)
}

func rawToUnsigned(raw int64, bitLen int) uint64 {
	if raw >= 0 {
		return uint64(raw)
	}
	fullMask := uint64(1)<<bitLen - 1
	return (^uint64(-raw) + 1) & fullMask
}

func clampRaw(raw int64, bitLen int, signed bool) int64 {
	if bitLen <= 0 || bitLen > 63 {
		return raw
	}
	if !signed {
		max := int64(1)<<bitLen - 1
		if raw < 0 {
			return 0
		}
		if raw > max {
			return max
		}
		return raw
	}
	min := -int64(1) << (bitLen - 1)
	max := int64(1)<<(bitLen-1) - 1
	if raw < min {
		return min
	}
	if raw > max {
		return max
	}
	return raw
}
