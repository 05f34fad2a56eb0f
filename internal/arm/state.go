package arm

import (
	"time"

	"github.com/danmuck/armctl/internal/can"
	"github.com/danmuck/armctl/internal/state"
)

// Options tunes telemetry assembly.
type Options struct {
	GroupTimeout time.Duration
	Clock        state.Clock
	// OnDiscard observes frame groups dropped incomplete.
	OnDiscard func(group string, reason state.DiscardReason)
}

// State is the arm telemetry store. Publish runs on the RX goroutine only;
// every reader method is safe from any goroutine.
type State struct {
	router *state.Router

	joints  state.Slot[JointPositions]
	pose    state.Slot[EndPose]
	motors  state.Slot[MotorFeedback]
	status  state.Slot[ArmStatus]
	gripper state.Slot[Gripper]
	drivers [JointCount]state.Slot[DriverInfo]

	limits   state.Cold[[JointCount]JointLimit]
	firmware state.Cold[Firmware]
	fwChunks *state.ChunkBuffer
}

func NewState(opts Options) (*State, error) {
	s := &State{
		router:   state.NewRouter(opts.Clock),
		fwChunks: state.NewChunkBuffer(state.DefaultChunkLimit),
	}
	if opts.OnDiscard != nil {
		s.router.OnDiscard(opts.OnDiscard)
	}
	if err := s.bind(opts.GroupTimeout); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *State) bind(timeout time.Duration) error {
	joints := state.NewGroup("joint_positions", &s.joints, timeout)
	for i, id := range []uint32{IDJoint12, IDJoint34, IDJoint56} {
		lo := i * 2
		if err := joints.Member(id, func(f *can.Frame, v *JointPositions) {
			v.MilliDeg[lo] = i32(f.Data[0:4])
			v.MilliDeg[lo+1] = i32(f.Data[4:8])
			v.HWTimestamp = f.Timestamp
		}); err != nil {
			return err
		}
	}
	joints.OnComplete(s.estimateVelocity)

	pose := state.NewGroup("end_pose", &s.pose, timeout)
	poseFields := []func(v *EndPose) (*int32, *int32){
		func(v *EndPose) (*int32, *int32) { return &v.X, &v.Y },
		func(v *EndPose) (*int32, *int32) { return &v.Z, &v.RX },
		func(v *EndPose) (*int32, *int32) { return &v.RY, &v.RZ },
	}
	for i, id := range []uint32{IDEndPoseXY, IDEndPoseZRX, IDEndPoseRYRZ} {
		fields := poseFields[i]
		if err := pose.Member(id, func(f *can.Frame, v *EndPose) {
			a, b := fields(v)
			*a = i32(f.Data[0:4])
			*b = i32(f.Data[4:8])
			v.HWTimestamp = f.Timestamp
		}); err != nil {
			return err
		}
	}
	pose.OnComplete(func(v *EndPose, now time.Time) { v.ReceivedAt = now })

	motors := state.NewGroup("motor_high_speed", &s.motors, timeout)
	for j := 0; j < JointCount; j++ {
		joint := j
		if err := motors.Member(IDMotorHighSpeedBase+uint32(j), func(f *can.Frame, v *MotorFeedback) {
			v.Joints[joint] = decodeMotorHighSpeed(f)
		}); err != nil {
			return err
		}
	}
	motors.OnComplete(func(v *MotorFeedback, now time.Time) { v.ReceivedAt = now })

	for _, g := range []state.Assembler{joints, pose, motors} {
		if err := s.router.AddGroup(g); err != nil {
			return err
		}
	}

	handlers := map[uint32]state.Handler{
		IDArmStatus: func(f *can.Frame, now time.Time) {
			s.status.Store(decodeArmStatus(f, now))
		},
		IDGripper: func(f *can.Frame, now time.Time) {
			s.gripper.Store(decodeGripper(f, now))
		},
		IDJointLimitFeedback: func(f *can.Frame, now time.Time) {
			joint, limit, ok := decodeJointLimit(f)
			if !ok {
				return
			}
			s.limits.Update(func(v *[JointCount]JointLimit) { v[joint] = limit })
		},
		IDFirmwareFeedback: s.acceptFirmwareChunk,
	}
	for j := 0; j < JointCount; j++ {
		joint := j
		handlers[IDMotorLowSpeedBase+uint32(j)] = func(f *can.Frame, now time.Time) {
			s.drivers[joint].Store(decodeDriverInfo(joint+1, f, now))
		}
	}
	for id, h := range handlers {
		if err := s.router.Handle(id, h); err != nil {
			return err
		}
	}
	return nil
}

// estimateVelocity derives joint rates from the previous snapshot. A
// non-positive monotonic delta skips the estimate instead of dividing by it.
func (s *State) estimateVelocity(v *JointPositions, now time.Time) {
	v.ReceivedAt = now
	prev := s.joints.Peek()
	if prev == nil {
		return
	}
	dt := now.Sub(prev.ReceivedAt).Seconds()
	if dt <= 0 {
		return
	}
	for i := range v.MilliDeg {
		v.Velocity[i] = float64(v.MilliDeg[i]-prev.MilliDeg[i]) / 1000 / dt
	}
	v.VelocityValid = true
}

func (s *State) acceptFirmwareChunk(f *can.Frame, now time.Time) {
	if !s.fwChunks.Append(f.Payload(), can.MaxDataLen) {
		return
	}
	s.firmware.Store(Firmware{
		Version:    string(s.fwChunks.Bytes()),
		ReceivedAt: now,
		Wall:       time.Now().UTC(),
	})
}

// Publish routes one received frame and reports whether its id is known.
func (s *State) Publish(f can.Frame) bool {
	return s.router.Publish(f)
}

// IDs lists every feedback id the store consumes.
func (s *State) IDs() []uint32 {
	return s.router.IDs()
}

func (s *State) JointPositions() (JointPositions, bool) { return s.joints.Load() }
func (s *State) EndPose() (EndPose, bool)               { return s.pose.Load() }
func (s *State) MotorFeedback() (MotorFeedback, bool)   { return s.motors.Load() }
func (s *State) ArmStatus() (ArmStatus, bool)           { return s.status.Load() }
func (s *State) Gripper() (Gripper, bool)               { return s.gripper.Load() }

// DriverInfo returns slow diagnostics for joint (1-based).
func (s *State) DriverInfo(joint int) (DriverInfo, bool) {
	if joint < 1 || joint > JointCount {
		return DriverInfo{}, false
	}
	return s.drivers[joint-1].Load()
}

func (s *State) JointLimits() ([JointCount]JointLimit, bool) { return s.limits.Load() }
func (s *State) Firmware() (Firmware, bool)                  { return s.firmware.Load() }

// JointPublishes counts completed joint-position cycles.
func (s *State) JointPublishes() uint64 {
	return s.joints.Seq()
}
