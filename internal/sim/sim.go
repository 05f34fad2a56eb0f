// Package sim drives a virtual bus with the telemetry a real arm produces
// and answers the commands the driver sends.
package sim

import (
	"context"
	"encoding/binary"
	"errors"
	"time"

	"github.com/danmuck/armctl/internal/arm"
	"github.com/danmuck/armctl/internal/can"
	"github.com/danmuck/armctl/internal/transport"
	"github.com/danmuck/armctl/internal/transport/virtual"
	"github.com/rs/zerolog"
)

// Options sets the simulated arm's behavior. Zero fields take defaults.
type Options struct {
	// Tick is the base period; hot telemetry goes out every HotEvery ticks.
	Tick        time.Duration
	HotEvery    int
	WarmEvery   int
	DriverEvery int
	// MaxStep bounds joint travel per hot cycle in 0.001 degree.
	MaxStep  int32
	Firmware string
	Limit    arm.JointLimit
}

func DefaultOptions() Options {
	return Options{
		Tick:        time.Millisecond,
		HotEvery:    2,
		WarmEvery:   5,
		DriverEvery: 25,
		MaxStep:     500,
		Firmware:    "S-V1.6-3-SIM",
		Limit:       arm.JointLimit{MaxAngle: 1500, MinAngle: -1500, MaxSpeed: 3000},
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Tick <= 0 {
		o.Tick = d.Tick
	}
	if o.HotEvery <= 0 {
		o.HotEvery = d.HotEvery
	}
	if o.WarmEvery <= 0 {
		o.WarmEvery = d.WarmEvery
	}
	if o.DriverEvery <= 0 {
		o.DriverEvery = d.DriverEvery
	}
	if o.MaxStep <= 0 {
		o.MaxStep = d.MaxStep
	}
	if o.Firmware == "" {
		o.Firmware = d.Firmware
	}
	if o.Limit == (arm.JointLimit{}) {
		o.Limit = d.Limit
	}
	return o
}

// Arm is a simulated six-axis arm. Run owns all of its state.
type Arm struct {
	dev  *virtual.Device
	opts Options
	log  zerolog.Logger

	angles  [arm.JointCount]int32
	targets [arm.JointCount]int32
	speed   [arm.JointCount]int32
	status  arm.ArmStatus
	stopped bool
	gripper arm.Gripper

	dropped uint64
}

func New(dev *virtual.Device, opts Options, logger zerolog.Logger) *Arm {
	return &Arm{
		dev:  dev,
		opts: opts.withDefaults(),
		log:  logger.With().Str("component", "sim").Logger(),
	}
}

// Run emits telemetry until ctx ends or the bus closes.
func (a *Arm) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.opts.Tick)
	defer ticker.Stop()
	a.log.Info().Str("firmware", a.opts.Firmware).Dur("tick", a.opts.Tick).Msg("simulated arm running")
	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			a.log.Info().Uint64("dropped", a.dropped).Msg("simulated arm stopped")
			return nil
		case <-ticker.C:
		}
		for _, f := range a.dev.Drain() {
			a.handle(f)
		}
		var frames []can.Frame
		if n%a.opts.HotEvery == 0 {
			a.step()
			frames = append(frames, a.hot()...)
		}
		if n%a.opts.WarmEvery == 0 {
			frames = append(frames, arm.ArmStatusFrame(a.status), arm.GripperFrame(a.gripper))
		}
		if n%a.opts.DriverEvery == 0 {
			for j := 0; j < arm.JointCount; j++ {
				frames = append(frames, arm.DriverInfoFrame(j, arm.DriverInfo{
					VoltageDeciV:   240,
					DriverTempC:    35,
					MotorTempC:     30,
					BusCurrentMilA: uint16(abs(a.speed[j])),
				}))
			}
		}
		if err := a.emit(frames...); err != nil {
			return err
		}
	}
}

func (a *Arm) emit(frames ...can.Frame) error {
	for _, f := range frames {
		err := a.dev.Emit(f)
		switch {
		case err == nil:
		case errors.Is(err, transport.ErrTimeout):
			a.dropped++
		case errors.Is(err, transport.ErrDisconnected):
			a.log.Info().Msg("bus closed")
			return nil
		default:
			return err
		}
	}
	return nil
}

func (a *Arm) handle(f can.Frame) {
	d := f.Data
	switch f.ID {
	case arm.IDMotionControl:
		a.stopped = d[0] == arm.MotionQuickStop
		a.status.MotionState = d[0]
	case arm.IDModeControl:
		a.status.ControlMode = d[0]
		a.status.ModeFeed = d[1]
	case arm.IDJointCtrl12, arm.IDJointCtrl34, arm.IDJointCtrl56:
		lo := int(f.ID-arm.IDJointCtrl12) * 2
		a.targets[lo] = int32(binary.BigEndian.Uint32(d[0:4]))
		a.targets[lo+1] = int32(binary.BigEndian.Uint32(d[4:8]))
	case arm.IDGripperCtrl:
		a.gripper.Travel = int32(binary.BigEndian.Uint32(d[0:4]))
		a.gripper.Torque = int16(binary.BigEndian.Uint16(d[4:6]))
		a.gripper.Status = d[6]
	case arm.IDJointLimitQuery:
		joint := int(d[0]) - 1
		if joint >= 0 && joint < arm.JointCount {
			_ = a.emit(arm.JointLimitFrame(joint, a.opts.Limit))
		}
	case arm.IDFirmwareQuery:
		_ = a.emit(arm.FirmwareFrames(a.opts.Firmware)...)
	}
}

// step moves every joint toward its target unless quick-stopped.
func (a *Arm) step() {
	for j := range a.angles {
		if a.stopped {
			a.speed[j] = 0
			continue
		}
		delta := a.targets[j] - a.angles[j]
		delta = max(min(delta, a.opts.MaxStep), -a.opts.MaxStep)
		a.angles[j] += delta
		a.speed[j] = delta
	}
}

func (a *Arm) hot() []can.Frame {
	out := make([]can.Frame, 0, 12)
	jf := arm.JointFrames(a.angles)
	out = append(out, jf[:]...)
	pf := arm.EndPoseFrames(arm.EndPose{
		X: 56000 + a.angles[0]/10, Y: a.angles[1] / 10, Z: 213000 + a.angles[2]/10,
		RX: a.angles[3], RY: a.angles[4], RZ: a.angles[5],
	})
	out = append(out, pf[:]...)
	for j := 0; j < arm.JointCount; j++ {
		out = append(out, arm.MotorHighSpeedFrame(j, arm.MotorHighSpeed{
			SpeedMilliRadS: int16(a.speed[j]),
			Position:       a.angles[j],
		}))
	}
	return out
}

func abs(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
