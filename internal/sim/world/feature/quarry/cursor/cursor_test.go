package cursor

import (
	"encoding/json"
	"testing"

	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

func TestNewClampsDimensions(t *testing.T) {
	for _, dims := range [][2]int{{0, 0}, {-3, 5}, {4, -1}} {
		c := New(modelpkg.Vec3i{X: 1, Y: 2, Z: 3}, dims[0], dims[1], true)
		if c.Width < 1 || c.Length < 1 {
			t.Fatalf("dims %v: got %dx%d", dims, c.Width, c.Length)
		}
		if dims[0] <= 0 && c.Width != 1 {
			t.Fatalf("dims %v: width=%d", dims, c.Width)
		}
		if dims[1] <= 0 && c.Length != 1 {
			t.Fatalf("dims %v: length=%d", dims, c.Length)
		}
	}
	c := New(modelpkg.Vec3i{X: 1, Y: 2, Z: 3}, 2, 2, false)
	if c.X != 1 || c.Y != 2 || c.Z != 3 || c.MinX != 1 || c.MinZ != 3 {
		t.Fatalf("unexpected start %+v", c)
	}
}

func TestCopyIsIndependent(t *testing.T) {
	a := New(modelpkg.Vec3i{X: 0, Y: 5, Z: 0}, 3, 3, true)
	b := a.Copy()
	b.Advance()
	b.Y = 1
	if a.X != 0 || a.Y != 5 {
		t.Fatalf("mutating copy changed original: %+v", a)
	}
	a.Advance()
	a.Advance()
	if b.X != 1 {
		t.Fatalf("mutating original changed copy: %+v", b)
	}
	var nilCur *Cursor
	if nilCur.Copy() != nil {
		t.Fatalf("nil copy should be nil")
	}
}

func TestAdvanceScanOrder(t *testing.T) {
	c := New(modelpkg.Vec3i{X: 10, Y: 4, Z: 20}, 2, 2, true)
	want := []modelpkg.Vec3i{{X: 11, Y: 4, Z: 20}, {X: 10, Y: 4, Z: 21}, {X: 11, Y: 4, Z: 21}, {X: 10, Y: 3, Z: 20}}
	for i, w := range want {
		c.Advance()
		if c.Pos() != w {
			t.Fatalf("step %d: got %v want %v", i, c.Pos(), w)
		}
	}

	z := New(modelpkg.Vec3i{X: 0, Y: 1, Z: 0}, 2, 3, false)
	z.Advance()
	if z.Pos() != (modelpkg.Vec3i{X: 0, Y: 1, Z: 1}) {
		t.Fatalf("z-first: got %v", z.Pos())
	}
	for i := 0; i < 5; i++ {
		z.Advance()
	}
	if z.Pos() != (modelpkg.Vec3i{X: 0, Y: 0, Z: 0}) {
		t.Fatalf("z-first wrap: got %v", z.Pos())
	}
}

func TestMapRoundTrip(t *testing.T) {
	c := New(modelpkg.Vec3i{X: -4, Y: 30, Z: 7}, 5, 6, false)
	c.Advance()
	c.Advance()
	c.Y = 12

	got := FromMap(c.ToMap())
	if *got != *c {
		t.Fatalf("round trip: got %+v want %+v", got, c)
	}

	// Through JSON, numbers arrive as float64.
	raw, err := json.Marshal(c.ToMap())
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if got := FromMap(m); *got != *c {
		t.Fatalf("json round trip: got %+v want %+v", got, c)
	}
}

func TestFromMapDefaults(t *testing.T) {
	c := FromMap(map[string]any{"x": 3, "y": 9, "z": 4, "minX": 3, "minZ": 4, "width": 0})
	if !c.ScanXFirst {
		t.Fatalf("scanXFirst should default to true")
	}
	if c.Width != 1 || c.Length != 1 {
		t.Fatalf("expected clamped dims, got %dx%d", c.Width, c.Length)
	}
	if c.Y != 9 || c.X != 3 || c.Z != 4 {
		t.Fatalf("unexpected pos %+v", c)
	}

	out := FromMap(map[string]any{"x": 50, "minX": 0, "width": 4, "length": 4, "z": -1})
	if out.X != 0 || out.Z != 0 {
		t.Fatalf("out-of-range position not clamped: %+v", out)
	}
}
