package arm

import (
	"github.com/danmuck/armctl/internal/can"
)

// Motion control byte 0 values.
const (
	MotionQuickStop uint8 = 0x01
	MotionResume    uint8 = 0x02
)

// Control modes for ModeControl.
const (
	ControlStandby uint8 = 0x00
	ControlCAN     uint8 = 0x01
	ControlTeach   uint8 = 0x02
)

// Move modes for ModeControl.
const (
	MovePoint  uint8 = 0x00
	MoveJoint  uint8 = 0x01
	MoveLinear uint8 = 0x02
)

// QuickStop halts every joint and holds position. It is the frame sent when
// the driver shuts down.
func QuickStop() can.Frame {
	return can.MustNew(IDMotionControl, []byte{MotionQuickStop, 0, 0, 0, 0, 0, 0, 0})
}

func Resume() can.Frame {
	return can.MustNew(IDMotionControl, []byte{MotionResume, 0, 0, 0, 0, 0, 0, 0})
}

// ModeControl switches control and move mode. speedPercent is clamped to 100.
func ModeControl(control, move, speedPercent uint8) can.Frame {
	speedPercent = min(speedPercent, 100)
	return can.MustNew(IDModeControl, []byte{control, move, speedPercent, 0, 0, 0, 0, 0})
}

// JointCommand encodes six target angles (0.001 degree) as three frames that
// must go out back to back.
func JointCommand(milliDeg [JointCount]int32) []can.Frame {
	return []can.Frame{
		pair32(IDJointCtrl12, milliDeg[0], milliDeg[1]),
		pair32(IDJointCtrl34, milliDeg[2], milliDeg[3]),
		pair32(IDJointCtrl56, milliDeg[4], milliDeg[5]),
	}
}

// GripperCommand sets travel (0.001 mm) and torque (0.001 N·m).
func GripperCommand(travel int32, torque uint16, enable bool) can.Frame {
	d := make([]byte, 8)
	be.PutUint32(d[0:4], uint32(travel))
	be.PutUint16(d[4:6], torque)
	if enable {
		d[6] = 0x01
	}
	return can.MustNew(IDGripperCtrl, d)
}

// QueryJointLimit asks the arm to echo joint (1-based) limits on 0x473.
func QueryJointLimit(joint uint8) can.Frame {
	return can.MustNew(IDJointLimitQuery, []byte{joint, 0x01})
}

// QueryFirmware asks the arm to stream its firmware version on 0x4AF.
func QueryFirmware() can.Frame {
	return can.MustNew(IDFirmwareQuery, []byte{0x01})
}
