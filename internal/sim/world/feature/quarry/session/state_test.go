package session

import (
	"testing"

	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

func TestNewStateMatchesCursorBounds(t *testing.T) {
	s := New("s1", "OVERWORLD", modelpkg.Vec3i{X: 2, Y: 30, Z: -4}, 0, 3, "QUARRY", "NORMAL", true)
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if s.Width != 1 || s.Cursor.Width != 1 {
		t.Fatalf("width not clamped: %d/%d", s.Width, s.Cursor.Width)
	}
	if s.MinerY != 31 {
		t.Fatalf("MinerY=%d", s.MinerY)
	}
	s.Cursor.MinZ = 0
	if err := s.Validate(); err == nil {
		t.Fatalf("expected bounds mismatch error")
	}
}

func TestCloneIsDeep(t *testing.T) {
	s := New("s1", "OVERWORLD", modelpkg.Vec3i{}, 2, 2, "QUARRY", "NORMAL", true)
	s.Trust("bob")
	s.AddContainer(modelpkg.Vec3i{X: 1})
	cp := s.Clone()
	cp.Cursor.Advance()
	cp.Untrust("bob")
	cp.Containers[0] = modelpkg.Vec3i{X: 9}
	if s.Cursor.X != 0 || !s.CanControl("bob") || s.Containers[0].X != 1 {
		t.Fatalf("clone shares state with original")
	}
}

func TestTrustAndControl(t *testing.T) {
	s := New("s1", "OVERWORLD", modelpkg.Vec3i{}, 1, 1, "QUARRY", "NORMAL", true)
	s.Owner = "alice"
	if !s.CanControl("alice") || s.CanControl("bob") || s.CanControl("") {
		t.Fatalf("unexpected control result")
	}
	if s.Trust("alice") {
		t.Fatalf("owner should not be added to trusted")
	}
	if !s.Trust("bob") || s.Trust("bob") {
		t.Fatalf("trust should add once")
	}
	s.Trust("ann")
	if got := s.TrustedList(); len(got) != 2 || got[0] != "ann" {
		t.Fatalf("TrustedList=%v", got)
	}
	if !s.Untrust("bob") || s.Untrust("bob") || s.CanControl("bob") {
		t.Fatalf("untrust failed")
	}
}

func TestContainersKeepOrder(t *testing.T) {
	s := New("s1", "OVERWORLD", modelpkg.Vec3i{}, 1, 1, "QUARRY", "NORMAL", true)
	a, b, c := modelpkg.Vec3i{X: 1}, modelpkg.Vec3i{X: 2}, modelpkg.Vec3i{X: 3}
	s.AddContainer(a)
	s.AddContainer(b)
	s.AddContainer(c)
	if s.AddContainer(b) {
		t.Fatalf("duplicate container added")
	}
	if !s.RemoveContainer(b) || s.RemoveContainer(b) {
		t.Fatalf("remove failed")
	}
	if len(s.Containers) != 2 || s.Containers[0] != a || s.Containers[1] != c {
		t.Fatalf("containers=%v", s.Containers)
	}
}
