// Package session defines the persisted aggregate of one extraction session.
package session

import (
	"fmt"
	"sort"

	"voxelquarry.ai/internal/sim/world/feature/quarry/cursor"
	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

// State is the unit of persistence. Cursor bounds always match Base, Width
// and Length. WaitingOnStorage is runtime-only and never written out.
type State struct {
	ID      string
	World   string
	Base    modelpkg.Vec3i
	Width   int
	Length  int
	Pattern string
	Speed   string
	Cursor  *cursor.Cursor
	// MinerY is the layer the worker stands on above the volume.
	MinerY int

	Owner      string
	Trusted    map[string]struct{}
	Containers []modelpkg.Vec3i

	// UseBarrelMaster only exists in legacy records and is always false here.
	UseBarrelMaster bool
	Paused          bool

	WaitingOnStorage bool
}

func New(id, world string, base modelpkg.Vec3i, width, length int, pattern, speed string, scanXFirst bool) *State {
	cur := cursor.New(base, width, length, scanXFirst)
	return &State{
		ID:      id,
		World:   world,
		Base:    base,
		Width:   cur.Width,
		Length:  cur.Length,
		Pattern: pattern,
		Speed:   speed,
		Cursor:  cur,
		MinerY:  base.Y + 1,
		Trusted: map[string]struct{}{},
	}
}

func (s *State) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("session: empty id")
	}
	if s.World == "" {
		return fmt.Errorf("session %s: empty world", s.ID)
	}
	if s.Width < 1 || s.Length < 1 {
		return fmt.Errorf("session %s: invalid size %dx%d", s.ID, s.Width, s.Length)
	}
	if s.Cursor == nil {
		return fmt.Errorf("session %s: missing cursor", s.ID)
	}
	if s.Cursor.MinX != s.Base.X || s.Cursor.MinZ != s.Base.Z || s.Cursor.Width != s.Width || s.Cursor.Length != s.Length {
		return fmt.Errorf("session %s: cursor bounds do not match volume", s.ID)
	}
	return nil
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	cp := *s
	cp.Cursor = s.Cursor.Copy()
	cp.Trusted = make(map[string]struct{}, len(s.Trusted))
	for id := range s.Trusted {
		cp.Trusted[id] = struct{}{}
	}
	cp.Containers = append([]modelpkg.Vec3i(nil), s.Containers...)
	return &cp
}

// CanControl reports whether actor may pause, resume or stop the session.
func (s *State) CanControl(actor string) bool {
	if actor == "" {
		return false
	}
	if actor == s.Owner {
		return true
	}
	_, ok := s.Trusted[actor]
	return ok
}

func (s *State) Trust(actor string) bool {
	if actor == "" || actor == s.Owner {
		return false
	}
	if s.Trusted == nil {
		s.Trusted = map[string]struct{}{}
	}
	if _, ok := s.Trusted[actor]; ok {
		return false
	}
	s.Trusted[actor] = struct{}{}
	return true
}

func (s *State) Untrust(actor string) bool {
	if _, ok := s.Trusted[actor]; !ok {
		return false
	}
	delete(s.Trusted, actor)
	return true
}

func (s *State) TrustedList() []string {
	out := make([]string, 0, len(s.Trusted))
	for id := range s.Trusted {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// AddContainer appends pos unless it is already listed. Order is preserved
// because it drives round-robin routing.
func (s *State) AddContainer(pos modelpkg.Vec3i) bool {
	for _, p := range s.Containers {
		if p == pos {
			return false
		}
	}
	s.Containers = append(s.Containers, pos)
	return true
}

func (s *State) RemoveContainer(pos modelpkg.Vec3i) bool {
	for i, p := range s.Containers {
		if p == pos {
			s.Containers = append(s.Containers[:i], s.Containers[i+1:]...)
			return true
		}
	}
	return false
}
