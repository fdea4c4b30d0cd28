package world

import (
	"fmt"
	"sort"

	"voxelquarry.ai/internal/sim/world/kernel/model"
)

// AddBin places an output bin at pos. Capacity <= 0 means unlimited.
func (w *World) AddBin(typ string, pos model.Vec3i, capacity int) (*model.Container, error) {
	if typ == "" {
		typ = "CHEST"
	}
	if !w.chunks.InBounds(pos.X, pos.Y, pos.Z) {
		return nil, fmt.Errorf("bin %v outside world %s", pos, w.cfg.ID)
	}
	if c := w.containers[pos]; c != nil {
		return nil, fmt.Errorf("bin already at %v", pos)
	}
	c := &model.Container{
		Type:      typ,
		Pos:       pos,
		Capacity:  capacity,
		Inventory: map[string]int{},
	}
	w.containers[pos] = c
	return c, nil
}

// RemoveBin deletes the bin at pos and notifies subscribers. Its contents are
// dropped on the ground at the bin position.
func (w *World) RemoveBin(pos model.Vec3i) bool {
	c := w.containers[pos]
	if c == nil {
		return false
	}
	delete(w.containers, pos)
	if inv := c.InventoryList(); len(inv) > 0 {
		w.DropItems(pos, inv)
	}

	subs := make([]uint64, 0, len(w.binRemoved))
	for id := range w.binRemoved {
		subs = append(subs, id)
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i] < subs[j] })
	for _, id := range subs {
		if fn := w.binRemoved[id]; fn != nil {
			fn(pos)
		}
	}
	return true
}

func (w *World) Bin(pos model.Vec3i) (*model.Container, bool) {
	c, ok := w.containers[pos]
	return c, ok
}

// Bins returns every bin sorted by position.
func (w *World) Bins() []*model.Container {
	pos := make([]model.Vec3i, 0, len(w.containers))
	for p := range w.containers {
		pos = append(pos, p)
	}
	sortedVecs(pos)
	out := make([]*model.Container, 0, len(pos))
	for _, p := range pos {
		out = append(out, w.containers[p])
	}
	return out
}

// OnBinRemoved registers fn to run after any bin is removed.
func (w *World) OnBinRemoved(fn func(pos model.Vec3i)) (unsubscribe func()) {
	w.nextSubNum++
	id := w.nextSubNum
	w.binRemoved[id] = fn
	return func() { delete(w.binRemoved, id) }
}
