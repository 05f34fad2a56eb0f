// Package arm maps the 6-axis arm's CAN protocol onto the tiered store.
//
// Ownership boundary:
// - feedback frame ids and payload decoding
// - frame groups for joint angles, end pose and drive feedback
// - command frame builders
//
// Tiers:
// - hot: JointPositions, EndPose, MotorFeedback
// - warm: ArmStatus, Gripper, DriverInfo
// - cold: JointLimits, Firmware
package arm
