package arm

// Feedback frame ids sent by the arm.
const (
	IDArmStatus   uint32 = 0x2A1
	IDEndPoseXY   uint32 = 0x2A2
	IDEndPoseZRX  uint32 = 0x2A3
	IDEndPoseRYRZ uint32 = 0x2A4
	IDJoint12     uint32 = 0x2A5
	IDJoint34     uint32 = 0x2A6
	IDJoint56     uint32 = 0x2A7
	IDGripper     uint32 = 0x2A8

	// IDMotorHighSpeedBase+i carries speed/current/position of joint i+1.
	IDMotorHighSpeedBase uint32 = 0x251
	// IDMotorLowSpeedBase+i carries voltage/temperature/status of joint i+1.
	IDMotorLowSpeedBase uint32 = 0x261

	IDJointLimitFeedback uint32 = 0x473
	IDFirmwareFeedback   uint32 = 0x4AF
)

// Command frame ids sent to the arm.
const (
	IDMotionControl   uint32 = 0x150
	IDModeControl     uint32 = 0x151
	IDEndPoseCtrlXY   uint32 = 0x152
	IDEndPoseCtrlZRX  uint32 = 0x153
	IDEndPoseCtrlRYRZ uint32 = 0x154
	IDJointCtrl12     uint32 = 0x155
	IDJointCtrl34     uint32 = 0x156
	IDJointCtrl56     uint32 = 0x157
	IDGripperCtrl     uint32 = 0x159
	IDJointLimitQuery uint32 = 0x472
	IDFirmwareQuery   uint32 = 0x4A8
)

const JointCount = 6
