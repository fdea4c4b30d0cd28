package orchestrator

import (
	"voxelquarry.ai/internal/sim/world/feature/quarry/session"
	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

// LightDecorator lights the top layer of a session on a Spacing grid.
type LightDecorator struct {
	Spacing int
}

func (d LightDecorator) Decorate(env Env, st *session.State, pos modelpkg.Vec3i) {
	spacing := d.Spacing
	if spacing < 1 {
		spacing = 1
	}
	if pos.Y != st.Base.Y {
		return
	}
	if (pos.X-st.Base.X)%spacing != 0 || (pos.Z-st.Base.Z)%spacing != 0 {
		return
	}
	env.PlaceLight(pos)
}
