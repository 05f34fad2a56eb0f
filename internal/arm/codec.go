package arm

import (
	"encoding/binary"
	"time"

	"github.com/danmuck/armctl/internal/can"
)

// Feedback payloads are big-endian.
var be = binary.BigEndian

func i32(b []byte) int32 { return int32(be.Uint32(b)) }
func i16(b []byte) int16 { return int16(be.Uint16(b)) }

func decodeArmStatus(f *can.Frame, now time.Time) ArmStatus {
	d := f.Data
	return ArmStatus{
		ControlMode:   d[0],
		ArmState:      d[1],
		ModeFeed:      d[2],
		TeachState:    d[3],
		MotionState:   d[4],
		TrajectoryNum: d[5],
		ErrorCode:     be.Uint16(d[6:8]),
		ReceivedAt:    now,
	}
}

func decodeGripper(f *can.Frame, now time.Time) Gripper {
	d := f.Data
	return Gripper{
		Travel:     i32(d[0:4]),
		Torque:     i16(d[4:6]),
		Status:     d[6],
		ReceivedAt: now,
	}
}

func decodeMotorHighSpeed(f *can.Frame) MotorHighSpeed {
	d := f.Data
	return MotorHighSpeed{
		SpeedMilliRadS: i16(d[0:2]),
		CurrentMilliA:  i16(d[2:4]),
		Position:       i32(d[4:8]),
	}
}

func decodeDriverInfo(joint int, f *can.Frame, now time.Time) DriverInfo {
	d := f.Data
	return DriverInfo{
		Joint:          joint,
		VoltageDeciV:   be.Uint16(d[0:2]),
		DriverTempC:    i16(d[2:4]),
		MotorTempC:     int8(d[4]),
		Status:         d[5],
		BusCurrentMilA: be.Uint16(d[6:8]),
		ReceivedAt:     now,
	}
}

// decodeJointLimit returns the 0-based joint index and its limit.
func decodeJointLimit(f *can.Frame) (int, JointLimit, bool) {
	d := f.Data
	joint := int(d[0]) - 1
	if joint < 0 || joint >= JointCount {
		return 0, JointLimit{}, false
	}
	return joint, JointLimit{
		MaxAngle: i16(d[1:3]),
		MinAngle: i16(d[3:5]),
		MaxSpeed: be.Uint16(d[5:7]),
		Known:    true,
	}, true
}

// Encoders below build feedback frames. The simulator and tests use them.

func pair32(id uint32, a, b int32) can.Frame {
	var d [8]byte
	be.PutUint32(d[0:4], uint32(a))
	be.PutUint32(d[4:8], uint32(b))
	return can.MustNew(id, d[:])
}

// JointFrames encodes joint angles (0.001 degree) as the three feedback frames.
func JointFrames(milliDeg [JointCount]int32) [3]can.Frame {
	return [3]can.Frame{
		pair32(IDJoint12, milliDeg[0], milliDeg[1]),
		pair32(IDJoint34, milliDeg[2], milliDeg[3]),
		pair32(IDJoint56, milliDeg[4], milliDeg[5]),
	}
}

func EndPoseFrames(p EndPose) [3]can.Frame {
	return [3]can.Frame{
		pair32(IDEndPoseXY, p.X, p.Y),
		pair32(IDEndPoseZRX, p.Z, p.RX),
		pair32(IDEndPoseRYRZ, p.RY, p.RZ),
	}
}

func ArmStatusFrame(s ArmStatus) can.Frame {
	d := []byte{s.ControlMode, s.ArmState, s.ModeFeed, s.TeachState, s.MotionState, s.TrajectoryNum, 0, 0}
	be.PutUint16(d[6:8], s.ErrorCode)
	return can.MustNew(IDArmStatus, d)
}

func GripperFrame(g Gripper) can.Frame {
	d := make([]byte, 8)
	be.PutUint32(d[0:4], uint32(g.Travel))
	be.PutUint16(d[4:6], uint16(g.Torque))
	d[6] = g.Status
	return can.MustNew(IDGripper, d)
}

// MotorHighSpeedFrame encodes joint (0-based) fast feedback.
func MotorHighSpeedFrame(joint int, m MotorHighSpeed) can.Frame {
	d := make([]byte, 8)
	be.PutUint16(d[0:2], uint16(m.SpeedMilliRadS))
	be.PutUint16(d[2:4], uint16(m.CurrentMilliA))
	be.PutUint32(d[4:8], uint32(m.Position))
	return can.MustNew(IDMotorHighSpeedBase+uint32(joint), d)
}

// DriverInfoFrame encodes joint (0-based) slow diagnostics.
func DriverInfoFrame(joint int, di DriverInfo) can.Frame {
	d := make([]byte, 8)
	be.PutUint16(d[0:2], di.VoltageDeciV)
	be.PutUint16(d[2:4], uint16(di.DriverTempC))
	d[4] = byte(di.MotorTempC)
	d[5] = di.Status
	be.PutUint16(d[6:8], di.BusCurrentMilA)
	return can.MustNew(IDMotorLowSpeedBase+uint32(joint), d)
}

// JointLimitFrame encodes joint (0-based) limit feedback.
func JointLimitFrame(joint int, l JointLimit) can.Frame {
	d := make([]byte, 8)
	d[0] = byte(joint + 1)
	be.PutUint16(d[1:3], uint16(l.MaxAngle))
	be.PutUint16(d[3:5], uint16(l.MinAngle))
	be.PutUint16(d[5:7], l.MaxSpeed)
	return can.MustNew(IDJointLimitFeedback, d)
}

// FirmwareFrames splits version into feedback chunks terminated by a short
// or NUL-carrying chunk.
func FirmwareFrames(version string) []can.Frame {
	raw := append([]byte(version), 0)
	out := make([]can.Frame, 0, len(raw)/can.MaxDataLen+1)
	for len(raw) > 0 {
		n := min(len(raw), can.MaxDataLen)
		out = append(out, can.MustNew(IDFirmwareFeedback, raw[:n]))
		raw = raw[n:]
	}
	return out
}
