package pattern

import (
	"testing"

	"voxelquarry.ai/internal/sim/world/feature/quarry/cursor"
	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

const (
	air     uint16 = 0
	stone   uint16 = 1
	bedrock uint16 = 2
)

// gridVolume is a sparse voxel map; unset cells are air.
type gridVolume map[modelpkg.Vec3i]uint16

func (g gridVolume) BlockAt(pos modelpkg.Vec3i) uint16 { return g[pos] }
func (g gridVolume) IsEmpty(b uint16) bool              { return b == air }
func (g gridVolume) IsIndestructible(b uint16) bool     { return b == bedrock }

func filledBox(minX, minZ, w, l, topY, bottomY int, b uint16) gridVolume {
	g := gridVolume{}
	for y := bottomY; y <= topY; y++ {
		for z := minZ; z < minZ+l; z++ {
			for x := minX; x < minX+w; x++ {
				g[modelpkg.Vec3i{X: x, Y: y, Z: z}] = b
			}
		}
	}
	return g
}

func drain(t *testing.T, p Pattern) []modelpkg.Vec3i {
	t.Helper()
	var out []modelpkg.Vec3i
	for p.HasNext() {
		tgt, ok := p.Next()
		if !ok {
			break
		}
		out = append(out, tgt.Pos)
		if len(out) > 100000 {
			t.Fatalf("pattern did not terminate")
		}
	}
	return out
}

func TestQuarryVisitsEveryOccupiedCellOnce(t *testing.T) {
	const w, l, topY, floor = 3, 4, 10, 8
	vol := filledBox(5, -2, w, l, topY, floor, stone)
	p := NewQuarry(vol, cursor.New(modelpkg.Vec3i{X: 5, Y: topY, Z: -2}, w, l, true), floor)

	got := drain(t, p)
	if len(got) != w*l*(topY-floor+1) {
		t.Fatalf("visited %d cells, want %d", len(got), w*l*(topY-floor+1))
	}
	seen := map[modelpkg.Vec3i]bool{}
	for _, pos := range got {
		if seen[pos] {
			t.Fatalf("cell %v visited twice", pos)
		}
		if _, ok := vol[pos]; !ok {
			t.Fatalf("cell %v outside volume", pos)
		}
		seen[pos] = true
	}
	if p.HasNext() || p.Cursor().Y != floor-1 {
		t.Fatalf("expected termination just below floor, cursor y=%d", p.Cursor().Y)
	}
	if got[0] != (modelpkg.Vec3i{X: 5, Y: topY, Z: -2}) || got[1] != (modelpkg.Vec3i{X: 6, Y: topY, Z: -2}) {
		t.Fatalf("unexpected scan order start: %v", got[:2])
	}
}

func TestQuarrySkipsEmptyAndIndestructible(t *testing.T) {
	vol := gridVolume{
		{X: 1, Y: 5, Z: 1}: stone,
		{X: 0, Y: 5, Z: 0}: bedrock,
		{X: 2, Y: 4, Z: 2}: bedrock,
	}
	p := NewQuarry(vol, cursor.New(modelpkg.Vec3i{X: 0, Y: 5, Z: 0}, 3, 3, true), 4)
	got := drain(t, p)
	if len(got) != 1 || got[0] != (modelpkg.Vec3i{X: 1, Y: 5, Z: 1}) {
		t.Fatalf("got %v", got)
	}
}

func TestDepthFloorIsHardStop(t *testing.T) {
	vol := filledBox(0, 0, 2, 2, 5, 0, stone)
	p := NewQuarry(vol, cursor.New(modelpkg.Vec3i{X: 0, Y: 5, Z: 0}, 2, 2, true), 4)
	got := drain(t, p)
	if len(got) != 8 {
		t.Fatalf("visited %d, want 8", len(got))
	}
	for _, pos := range got {
		if pos.Y < 4 {
			t.Fatalf("visited %v below floor", pos)
		}
	}
	if _, ok := p.Next(); ok {
		t.Fatalf("Next after exhaustion returned a target")
	}
}

func TestNextReturnsFalseWhenExhaustedMidCall(t *testing.T) {
	p := NewQuarry(gridVolume{}, cursor.New(modelpkg.Vec3i{X: 0, Y: 2, Z: 0}, 4, 4, true), 1)
	if !p.HasNext() {
		t.Fatalf("HasNext should be true before the sweep")
	}
	if _, ok := p.Next(); ok {
		t.Fatalf("empty volume yielded a target")
	}
	if p.HasNext() {
		t.Fatalf("HasNext should be false after exhausting the sweep")
	}
}

func TestBranchCorridorAndBranches(t *testing.T) {
	const w, l = 9, 7
	vol := filledBox(0, 0, w, l, 3, 3, stone)
	p := NewBranch(vol, cursor.New(modelpkg.Vec3i{X: 0, Y: 3, Z: 0}, w, l, true), 3, 4, 0)
	got := drain(t, p)

	want := map[modelpkg.Vec3i]bool{}
	for x := 0; x < w; x++ {
		want[modelpkg.Vec3i{X: x, Y: 3, Z: 3}] = true
	}
	for z := 0; z < l; z++ {
		for _, x := range []int{0, 4, 8} {
			want[modelpkg.Vec3i{X: x, Y: 3, Z: z}] = true
		}
	}
	if len(got) != len(want) {
		t.Fatalf("visited %d cells, want %d: %v", len(got), len(want), got)
	}
	for _, pos := range got {
		if !want[pos] {
			t.Fatalf("unexpected cell %v", pos)
		}
	}
}

func TestBranchCorridorHalfWidth(t *testing.T) {
	vol := filledBox(0, 0, 3, 5, 1, 1, stone)
	p := NewBranch(vol, cursor.New(modelpkg.Vec3i{X: 0, Y: 1, Z: 0}, 3, 5, true), 1, 100, 1)
	for _, pos := range drain(t, p) {
		if pos.X != 0 && (pos.Z < 1 || pos.Z > 3) {
			t.Fatalf("cell %v outside corridor", pos)
		}
	}
}

func TestHasRemainingLeavesLiveCursor(t *testing.T) {
	vol := gridVolume{{X: 1, Y: 2, Z: 1}: stone}
	p := NewQuarry(vol, cursor.New(modelpkg.Vec3i{X: 0, Y: 2, Z: 0}, 2, 2, true), 2)
	before := *p.Cursor()
	if !HasRemaining(p) {
		t.Fatalf("expected remaining work")
	}
	if *p.Cursor() != before {
		t.Fatalf("probe moved the live cursor")
	}
	if _, ok := p.Next(); !ok {
		t.Fatalf("expected target")
	}
	if HasRemaining(p) {
		t.Fatalf("expected no remaining work")
	}
}

func TestNewAndParseKind(t *testing.T) {
	for _, in := range []string{"quarry", " BRANCH "} {
		k, ok := ParseKind(in)
		if !ok {
			t.Fatalf("ParseKind(%q) failed", in)
		}
		p, err := New(k, gridVolume{}, cursor.New(modelpkg.Vec3i{}, 1, 1, true), Options{BranchSpacing: 2})
		if err != nil || p.Kind() != k {
			t.Fatalf("New(%s): %v", k, err)
		}
	}
	if _, ok := ParseKind("SPIRAL"); ok {
		t.Fatalf("unexpected kind")
	}
	if _, err := New("SPIRAL", gridVolume{}, cursor.New(modelpkg.Vec3i{}, 1, 1, true), Options{}); err == nil {
		t.Fatalf("expected error for unknown kind")
	}
}
