package sessionstore

import (
	"fmt"
	"strings"

	"voxelquarry.ai/internal/sim/world/feature/quarry/cursor"
	"voxelquarry.ai/internal/sim/world/feature/quarry/session"
	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

// Record is one persisted session. Current records carry base and cursor;
// legacy records carry the flat x/y/z position instead.
type Record struct {
	ID              string         `json:"id"`
	World           string         `json:"world"`
	Base            *[3]int        `json:"base,omitempty"`
	Width           int            `json:"width"`
	Length          int            `json:"length"`
	Pattern         string         `json:"pattern"`
	Speed           string         `json:"speed"`
	Cursor          map[string]any `json:"cursor,omitempty"`
	MinerY          *int           `json:"minerY,omitempty"`
	Owner           string         `json:"owner"`
	Containers      [][3]int       `json:"containers"`
	UseBarrelMaster bool           `json:"useBarrelMaster"`
	Paused          bool           `json:"paused"`
	Trusted         []string       `json:"trusted"`

	X *int `json:"x,omitempty"`
	Y *int `json:"y,omitempty"`
	Z *int `json:"z,omitempty"`
}

// Legacy reports whether r predates the nested cursor.
func (r Record) Legacy() bool { return r.Cursor == nil }

// Defaults fill fields older records may lack.
type Defaults struct {
	Pattern string
	Speed   string
}

// FromState builds a current-format record.
func FromState(st *session.State) Record {
	base := st.Base.ToArray()
	minerY := st.MinerY
	r := Record{
		ID:              st.ID,
		World:           st.World,
		Base:            &base,
		Width:           st.Width,
		Length:          st.Length,
		Pattern:         st.Pattern,
		Speed:           st.Speed,
		MinerY:          &minerY,
		Owner:           st.Owner,
		Containers:      make([][3]int, 0, len(st.Containers)),
		UseBarrelMaster: false,
		Paused:          st.Paused,
		Trusted:         st.TrustedList(),
	}
	if st.Cursor != nil {
		r.Cursor = st.Cursor.ToMap()
	}
	for _, c := range st.Containers {
		r.Containers = append(r.Containers, c.ToArray())
	}
	return r
}

// Migrate converts a legacy record in place of a current one. The cursor is
// rebuilt at the volume origin on the legacy depth and the barrel master flag
// is cleared. Current records are returned unchanged.
func Migrate(r Record) Record {
	if !r.Legacy() {
		return r
	}
	depth := deref(r.Y)
	var base modelpkg.Vec3i
	if r.Base != nil {
		base = modelpkg.FromArray(*r.Base)
	} else {
		base = modelpkg.Vec3i{X: deref(r.X), Y: depth, Z: deref(r.Z)}
		// The worker stood one layer above the top of the volume.
		if r.MinerY != nil && *r.MinerY-1 > depth {
			base.Y = *r.MinerY - 1
		}
		b := base.ToArray()
		r.Base = &b
	}
	cur := cursor.New(base, r.Width, r.Length, true)
	if depth <= base.Y {
		cur.Y = depth
	}
	r.Width, r.Length = cur.Width, cur.Length
	r.Cursor = cur.ToMap()
	if r.MinerY == nil {
		y := base.Y + 1
		r.MinerY = &y
	}
	r.UseBarrelMaster = false
	r.X, r.Y, r.Z = nil, nil, nil
	return r
}

// ToState validates r and turns it into a session.
func (r Record) ToState(def Defaults) (*session.State, error) {
	if r.Legacy() || r.Base == nil {
		return nil, fmt.Errorf("session %s: record not migrated", r.ID)
	}
	cur := cursor.FromMap(r.Cursor)
	base := modelpkg.FromArray(*r.Base)
	pattern := strings.ToUpper(r.Pattern)
	if pattern == "" {
		pattern = def.Pattern
	}
	speed := strings.ToUpper(r.Speed)
	if speed == "" {
		speed = def.Speed
	}
	st := session.New(r.ID, r.World, base, r.Width, r.Length, pattern, speed, cur.ScanXFirst)
	st.Cursor = cur
	if r.MinerY != nil {
		st.MinerY = *r.MinerY
	}
	st.Owner = r.Owner
	st.Paused = r.Paused
	st.UseBarrelMaster = false
	for _, id := range r.Trusted {
		st.Trust(id)
	}
	for _, c := range r.Containers {
		st.AddContainer(modelpkg.FromArray(c))
	}
	if err := st.Validate(); err != nil {
		return nil, err
	}
	return st, nil
}

func deref(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}
