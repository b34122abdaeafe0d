package main

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"time"

	"tecs-ng/internal/canbus"
	"tecs-ng/internal/config"
	"tecs-ng/internal/sim"
	"tecs-ng/internal/tecs"
	"tecs-ng/internal/udp"
)

// Runner closes the loop between the scenario script, the controller and the
// simulated airframe, and fans the controller status out to the configured
// telemetry sinks.
type Runner struct {
	cfg  config.Config
	scen sim.Scenario

	ctl  *tecs.Controller
	acft *sim.Aircraft

	udp      *udp.Broadcaster
	canW     canbus.Writer
	canCodec *canbus.Codec

	tick    time.Duration
	pitch   float64
	prevTAS float64

	lastMode     tecs.Mode
	lastUDPSend  time.Duration
	lastCANSend  time.Duration
	haveTelemRef bool
}

func NewRunner(cfg config.Config, scen sim.Scenario) *Runner {
	acft := sim.NewAircraft(cfg.Sim,
		cfg.Controller.MaxClimbRate, cfg.Controller.MinSinkRate,
		scen.Initial.AltM, scen.Initial.EASMps*cfg.Sim.EASToTAS)

	return &Runner{
		cfg:      cfg,
		scen:     scen,
		ctl:      tecs.New(cfg.Controller),
		acft:     acft,
		tick:     time.Second / time.Duration(cfg.TickRateHz),
		prevTAS:  acft.TAS,
		lastMode: tecs.ModeNormal,
	}
}

// SetUDP attaches a UDP status sink.
func (r *Runner) SetUDP(b *udp.Broadcaster) { r.udp = b }

// SetCAN attaches a CAN status sink using the given frame codec.
func (r *Runner) SetCAN(w canbus.Writer, codec *canbus.Codec) {
	r.canW = w
	r.canCodec = codec
}

// Run executes the scenario in real time until it completes or the context
// is canceled.
func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	log.Printf("scenario %q: duration=%s tick=%s", r.scen.Name, r.scen.Duration, r.tick)

	var elapsed time.Duration
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			elapsed += r.tick
			if elapsed > r.scen.Duration {
				log.Printf("scenario complete: alt=%.1fm tas=%.1fm/s mode=%s",
					r.acft.Altitude, r.acft.TAS, r.ctl.Mode())
				return nil
			}
			r.Step(ctx, elapsed)
		}
	}
}

// RunFast executes the scenario as fast as possible (no wall-clock pacing).
func (r *Runner) RunFast(ctx context.Context) error {
	for elapsed := r.tick; elapsed <= r.scen.Duration; elapsed += r.tick {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.Step(ctx, elapsed)
	}
	log.Printf("scenario complete: alt=%.1fm tas=%.1fm/s mode=%s",
		r.acft.Altitude, r.acft.TAS, r.ctl.Mode())
	return nil
}

// Step advances the closed loop by one tick at scenario time t.
func (r *Runner) Step(ctx context.Context, t time.Duration) {
	cmd := r.scen.At(t)
	now := uint64(t / time.Microsecond)
	dt := r.tick.Seconds()

	eas := r.acft.EAS()
	if !cmd.AirspeedValid {
		eas = math.NaN()
	}

	tasDeriv := (r.acft.TAS - r.prevTAS) / dt
	r.prevTAS = r.acft.TAS

	r.ctl.UpdateVehicleState(now, tecs.VehicleState{
		EAS:               eas,
		SpeedDerivForward: tasDeriv,
		AltitudeLock:      true,
		Altitude:          r.acft.Altitude,
		VZ:                r.acft.VZ(),
	})

	r.ctl.Update(now, tecs.Input{
		Pitch:              r.pitch,
		BaroAltitude:       r.acft.Altitude,
		AltitudeSetpoint:   cmd.AltitudeSetpoint,
		EASSetpoint:        cmd.EASSetpoint,
		EAS:                eas,
		EASToTAS:           r.cfg.Sim.EASToTAS,
		Climbout:           cmd.Climbout,
		PitchMinClimbout:   r.cfg.Sim.PitchMinClimb,
		ThrottleMin:        r.cfg.Sim.ThrottleMin,
		ThrottleMax:        r.cfg.Sim.ThrottleMax,
		ThrottleTrim:       r.cfg.Sim.ThrottleTrim,
		PitchLimitMin:      r.cfg.Sim.PitchLimitMin,
		PitchLimitMax:      r.cfg.Sim.PitchLimitMax,
		TargetClimbRate:    r.cfg.Controller.MaxClimbRate,
		TargetSinkRate:     r.cfg.Controller.MaxSinkRate,
		HeightRateSetpoint: cmd.HeightRateSetpoint,
	})

	r.acft.Step(dt, r.ctl.ThrottleSetpoint(), r.ctl.PitchSetpoint())
	r.pitch = r.ctl.PitchSetpoint()

	if mode := r.ctl.Mode(); mode != r.lastMode {
		log.Printf("t=%s mode %s -> %s (alt=%.1fm tas=%.1fm/s)",
			t, r.lastMode, mode, r.acft.Altitude, r.acft.TAS)
		r.lastMode = mode
	}

	r.sendTelemetry(ctx, t)
}

func (r *Runner) sendTelemetry(ctx context.Context, t time.Duration) {
	st := r.ctl.Status()

	if r.udp != nil {
		interval := r.cfg.Telemetry.UDP.Interval
		if !r.haveTelemRef || t-r.lastUDPSend >= interval {
			payload, err := json.Marshal(st)
			if err == nil {
				if err := r.udp.Send(payload); err != nil {
					log.Printf("udp send failed: %v", err)
				}
			}
			r.lastUDPSend = t
		}
	}

	if r.canW != nil && r.canCodec != nil {
		interval := time.Duration(float64(time.Second) / r.cfg.Telemetry.CAN.RateHz)
		if !r.haveTelemRef || t-r.lastCANSend >= interval {
			for _, f := range r.canCodec.EncodeStatus(st) {
				if err := r.canW.WriteFrame(ctx, f); err != nil {
					log.Printf("can send failed: %v", err)
					break
				}
			}
			r.lastCANSend = t
		}
	}

	r.haveTelemRef = true
}

// Aircraft exposes the plant for inspection.
func (r *Runner) Aircraft() *sim.Aircraft { return r.acft }

// Controller exposes the control loop for inspection.
func (r *Runner) Controller() *tecs.Controller { return r.ctl }
