// Package pattern decides which cells of a volume a session extracts and in
// what order. Every pattern is the same dense sweep over a cursor; patterns
// differ only in which swept cells they accept.
package pattern

import (
	"fmt"
	"strings"

	"voxelquarry.ai/internal/sim/world/feature/quarry/cursor"
	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

type Kind string

const (
	KindQuarry Kind = "QUARRY"
	KindBranch Kind = "BRANCH"
)

func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindQuarry:
		return KindQuarry, true
	case KindBranch:
		return KindBranch, true
	default:
		return "", false
	}
}

// Volume is the read side of the voxel grid a pattern sweeps.
type Volume interface {
	BlockAt(pos modelpkg.Vec3i) uint16
	IsEmpty(block uint16) bool
	IsIndestructible(block uint16) bool
}

// Target is one cell to extract and the block that occupied it when found.
type Target struct {
	Pos   modelpkg.Vec3i
	Block uint16
}

type Pattern interface {
	Kind() Kind
	// HasNext is true while the cursor is at or above the stop depth.
	HasNext() bool
	// Next advances the cursor past the returned cell. ok is false only when
	// the sweep ran below the stop depth during the call.
	Next() (t Target, ok bool)
	Cursor() *cursor.Cursor
	// WithCursor returns the same pattern over c, leaving the receiver alone.
	WithCursor(c *cursor.Cursor) Pattern
}

type Options struct {
	StopDepth int

	// Branch only.
	BranchSpacing     int
	CorridorHalfWidth int
}

func New(kind Kind, vol Volume, cur *cursor.Cursor, opts Options) (Pattern, error) {
	switch kind {
	case KindQuarry:
		return NewQuarry(vol, cur, opts.StopDepth), nil
	case KindBranch:
		return NewBranch(vol, cur, opts.StopDepth, opts.BranchSpacing, opts.CorridorHalfWidth), nil
	default:
		return nil, fmt.Errorf("unknown pattern %q", kind)
	}
}

// HasRemaining probes p on a disposable cursor copy and reports whether any
// extractable cell is left. The live cursor is not touched.
func HasRemaining(p Pattern) bool {
	if p == nil || !p.HasNext() {
		return false
	}
	_, ok := p.WithCursor(p.Cursor().Copy()).Next()
	return ok
}

// Sweep walks every cell of the cursor's rectangle layer by layer and yields
// the accepted, occupied, destructible ones.
type Sweep struct {
	kind      Kind
	vol       Volume
	cur       *cursor.Cursor
	stopDepth int
	accept    func(c *cursor.Cursor, pos modelpkg.Vec3i) bool
}

func NewQuarry(vol Volume, cur *cursor.Cursor, stopDepth int) *Sweep {
	return &Sweep{kind: KindQuarry, vol: vol, cur: cur, stopDepth: stopDepth, accept: acceptAll}
}

// NewBranch accepts a corridor along X, centered on the Z mid-line with the
// given half width, plus every column whose X offset is a multiple of spacing.
func NewBranch(vol Volume, cur *cursor.Cursor, stopDepth, spacing, halfWidth int) *Sweep {
	return &Sweep{kind: KindBranch, vol: vol, cur: cur, stopDepth: stopDepth, accept: branchAcceptor(spacing, halfWidth)}
}

func acceptAll(*cursor.Cursor, modelpkg.Vec3i) bool { return true }

func branchAcceptor(spacing, halfWidth int) func(c *cursor.Cursor, pos modelpkg.Vec3i) bool {
	if spacing < 1 {
		spacing = 1
	}
	if halfWidth < 0 {
		halfWidth = 0
	}
	return func(c *cursor.Cursor, pos modelpkg.Vec3i) bool {
		dz := pos.Z - (c.MinZ + c.Length/2)
		if dz < 0 {
			dz = -dz
		}
		if dz <= halfWidth {
			return true
		}
		return (pos.X-c.MinX)%spacing == 0
	}
}

func (s *Sweep) Kind() Kind { return s.kind }

func (s *Sweep) Cursor() *cursor.Cursor { return s.cur }

func (s *Sweep) StopDepth() int { return s.stopDepth }

func (s *Sweep) HasNext() bool { return s.cur.Y >= s.stopDepth }

func (s *Sweep) Next() (Target, bool) {
	for s.cur.Y >= s.stopDepth {
		pos := s.cur.Pos()
		s.cur.Advance()
		if !s.accept(s.cur, pos) {
			continue
		}
		b := s.vol.BlockAt(pos)
		if s.vol.IsEmpty(b) || s.vol.IsIndestructible(b) {
			continue
		}
		return Target{Pos: pos, Block: b}, true
	}
	return Target{}, false
}

func (s *Sweep) WithCursor(c *cursor.Cursor) Pattern {
	cp := *s
	cp.cur = c
	return &cp
}
