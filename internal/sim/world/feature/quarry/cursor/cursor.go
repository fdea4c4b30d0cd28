// Package cursor holds the durable resume point of a traversal.
package cursor

import (
	"encoding/json"

	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

// Cursor is the next coordinate to visit plus the fixed bounds of the volume.
// X stays in [MinX, MinX+Width) and Z in [MinZ, MinZ+Length); Y only decreases.
type Cursor struct {
	X, Y, Z    int
	MinX, MinZ int
	Width      int
	Length     int
	// ScanXFirst makes X the inner axis of the sweep.
	ScanXFirst bool
}

func New(base modelpkg.Vec3i, width, length int, scanXFirst bool) *Cursor {
	c := &Cursor{
		X:          base.X,
		Y:          base.Y,
		Z:          base.Z,
		MinX:       base.X,
		MinZ:       base.Z,
		Width:      width,
		Length:     length,
		ScanXFirst: scanXFirst,
	}
	c.clamp()
	return c
}

func (c *Cursor) clamp() {
	if c.Width < 1 {
		c.Width = 1
	}
	if c.Length < 1 {
		c.Length = 1
	}
	if c.X < c.MinX || c.X >= c.MinX+c.Width {
		c.X = c.MinX
	}
	if c.Z < c.MinZ || c.Z >= c.MinZ+c.Length {
		c.Z = c.MinZ
	}
}

func (c *Cursor) Copy() *Cursor {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

func (c *Cursor) Pos() modelpkg.Vec3i { return modelpkg.Vec3i{X: c.X, Y: c.Y, Z: c.Z} }

// Origin is the first cell of the current layer.
func (c *Cursor) Origin() modelpkg.Vec3i { return modelpkg.Vec3i{X: c.MinX, Y: c.Y, Z: c.MinZ} }

// Advance moves to the next cell in scan order, wrapping columns into rows
// and rows into the layer below.
func (c *Cursor) Advance() {
	if c.ScanXFirst {
		c.X++
		if c.X < c.MinX+c.Width {
			return
		}
		c.X = c.MinX
		c.Z++
		if c.Z < c.MinZ+c.Length {
			return
		}
		c.Z = c.MinZ
	} else {
		c.Z++
		if c.Z < c.MinZ+c.Length {
			return
		}
		c.Z = c.MinZ
		c.X++
		if c.X < c.MinX+c.Width {
			return
		}
		c.X = c.MinX
	}
	c.Y--
}

// SameBounds reports whether both cursors describe the same volume footprint.
func (c *Cursor) SameBounds(o *Cursor) bool {
	if c == nil || o == nil {
		return c == o
	}
	return c.MinX == o.MinX && c.MinZ == o.MinZ && c.Width == o.Width && c.Length == o.Length
}

func (c *Cursor) ToMap() map[string]any {
	return map[string]any{
		"x":          c.X,
		"y":          c.Y,
		"z":          c.Z,
		"minX":       c.MinX,
		"minZ":       c.MinZ,
		"width":      c.Width,
		"length":     c.Length,
		"scanXFirst": c.ScanXFirst,
	}
}

// FromMap restores a cursor written by ToMap. Missing numbers read as zero,
// a missing scanXFirst defaults to true, and bounds are clamped like New.
func FromMap(m map[string]any) *Cursor {
	c := &Cursor{
		X:          intField(m, "x"),
		Y:          intField(m, "y"),
		Z:          intField(m, "z"),
		MinX:       intField(m, "minX"),
		MinZ:       intField(m, "minZ"),
		Width:      intField(m, "width"),
		Length:     intField(m, "length"),
		ScanXFirst: true,
	}
	if v, ok := m["scanXFirst"].(bool); ok {
		c.ScanXFirst = v
	}
	c.clamp()
	return c
}

func intField(m map[string]any, key string) int {
	switch v := m[key].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	default:
		return 0
	}
}
