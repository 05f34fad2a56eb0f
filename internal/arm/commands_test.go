package arm

import (
	"encoding/binary"
	"testing"
)

func TestJointCommandSplitsPairs(t *testing.T) {
	frames := JointCommand([JointCount]int32{1, 2, 3, 4, 5, -6})
	if len(frames) != 3 {
		t.Fatalf("expected three frames, got %d", len(frames))
	}
	wantIDs := []uint32{IDJointCtrl12, IDJointCtrl34, IDJointCtrl56}
	for i, f := range frames {
		if f.ID != wantIDs[i] || f.Len != 8 {
			t.Fatalf("frame %d: unexpected %s", i, f)
		}
	}
	if got := int32(binary.BigEndian.Uint32(frames[2].Data[4:8])); got != -6 {
		t.Fatalf("unexpected joint 6 target: %d", got)
	}
}

func TestModeControlClampsSpeed(t *testing.T) {
	f := ModeControl(ControlCAN, MoveJoint, 250)
	if f.ID != IDModeControl || f.Data[0] != ControlCAN || f.Data[1] != MoveJoint || f.Data[2] != 100 {
		t.Fatalf("unexpected mode frame: %s", f)
	}
}

func TestQuickStopFrame(t *testing.T) {
	f := QuickStop()
	if f.ID != 0x150 || f.Data[0] != 0x01 {
		t.Fatalf("unexpected quick stop: %s", f)
	}
	if r := Resume(); r.Data[0] != MotionResume {
		t.Fatalf("unexpected resume: %s", r)
	}
}

func TestGripperAndQueries(t *testing.T) {
	g := GripperCommand(50000, 1000, true)
	if binary.BigEndian.Uint32(g.Data[0:4]) != 50000 || binary.BigEndian.Uint16(g.Data[4:6]) != 1000 || g.Data[6] != 1 {
		t.Fatalf("unexpected gripper command: %s", g)
	}
	if q := QueryJointLimit(4); q.ID != IDJointLimitQuery || q.Data[0] != 4 || q.Len != 2 {
		t.Fatalf("unexpected limit query: %s", q)
	}
	if q := QueryFirmware(); q.ID != IDFirmwareQuery {
		t.Fatalf("unexpected firmware query: %s", q)
	}
}
