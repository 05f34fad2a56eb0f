package arm

import "time"

// JointPositions is the hot joint-angle snapshot, assembled from three frames.
type JointPositions struct {
	// MilliDeg holds joint angles in 0.001 degree.
	MilliDeg [JointCount]int32
	// Velocity is the estimated angular rate in degree/s, derived from the
	// previous snapshot over the monotonic clock.
	Velocity      [JointCount]float64
	VelocityValid bool
	// ReceivedAt is a monotonic reading; use it only for intervals.
	ReceivedAt time.Time
	// HWTimestamp is the adapter timestamp of the completing frame in µs.
	HWTimestamp uint64
}

func (j JointPositions) Degrees(i int) float64 {
	return float64(j.MilliDeg[i]) / 1000
}

// EndPose is the hot end-effector pose, assembled from three frames.
type EndPose struct {
	// X, Y, Z in 0.001 mm.
	X, Y, Z int32
	// RX, RY, RZ in 0.001 degree.
	RX, RY, RZ  int32
	ReceivedAt  time.Time
	HWTimestamp uint64
}

// MotorHighSpeed is one joint's fast drive feedback.
type MotorHighSpeed struct {
	SpeedMilliRadS int16
	CurrentMilliA  int16
	Position       int32
}

// MotorFeedback is the hot six-joint drive snapshot.
type MotorFeedback struct {
	Joints     [JointCount]MotorHighSpeed
	ReceivedAt time.Time
}

// ArmStatus is the warm controller state.
type ArmStatus struct {
	ControlMode   uint8
	ArmState      uint8
	ModeFeed      uint8
	TeachState    uint8
	MotionState   uint8
	TrajectoryNum uint8
	ErrorCode     uint16
	ReceivedAt    time.Time
}

// Fault reports whether any joint or communication error bit is set.
func (s ArmStatus) Fault() bool {
	return s.ErrorCode != 0
}

// Gripper is the warm gripper state.
type Gripper struct {
	// Travel in 0.001 mm.
	Travel int32
	// Torque in 0.001 N·m.
	Torque     int16
	Status     uint8
	ReceivedAt time.Time
}

// DriverInfo is one joint's slow drive diagnostics.
type DriverInfo struct {
	Joint          int
	VoltageDeciV   uint16
	DriverTempC    int16
	MotorTempC     int8
	Status         uint8
	BusCurrentMilA uint16
	ReceivedAt     time.Time
}

// JointLimit is one joint's configured range as echoed by the arm.
type JointLimit struct {
	// MaxAngle and MinAngle in 0.1 degree.
	MaxAngle int16
	MinAngle int16
	// MaxSpeed in 0.001 rad/s.
	MaxSpeed uint16
	Known    bool
}

// Firmware is the cold firmware identification.
type Firmware struct {
	Version    string
	ReceivedAt time.Time
	// Wall is the informational wall-clock time of receipt.
	Wall time.Time
}
