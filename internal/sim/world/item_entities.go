package world

import (
	"sort"

	"voxelquarry.ai/internal/sim/world/kernel/model"
	"voxelquarry.ai/internal/sim/world/logic/ids"
)

func (w *World) newItemEntityID() string {
	w.nextItemNum++
	return ids.EntityID("IT", w.nextItemNum)
}

// DropItems spawns ground items at pos, merging into an existing stack of the
// same item in that cell.
func (w *World) DropItems(pos model.Vec3i, items []model.ItemStack) {
	for _, s := range items {
		if s.Item == "" || s.Count <= 0 {
			continue
		}
		w.spawnItemEntity(pos, s.Item, s.Count)
	}
}

func (w *World) spawnItemEntity(pos model.Vec3i, item string, count int) string {
	for _, id := range w.itemsAt[pos] {
		if e := w.items[id]; e != nil && e.Item == item {
			e.Count += count
			return e.EntityID
		}
	}
	id := w.newItemEntityID()
	w.items[id] = &model.ItemEntity{
		EntityID:    id,
		Pos:         pos,
		Item:        item,
		Count:       count,
		CreatedTick: w.now(),
	}
	w.itemsAt[pos] = append(w.itemsAt[pos], id)
	return id
}

// DefaultDropPos is where drops land when nothing better is known: just above
// the surface at the world origin.
func (w *World) DefaultDropPos() model.Vec3i {
	return model.Vec3i{X: 0, Y: w.cfg.SurfaceY + 1, Z: 0}
}

// ItemsAt returns ground stacks in one cell sorted by item.
func (w *World) ItemsAt(pos model.Vec3i) []model.ItemStack {
	var out []model.ItemStack
	for _, id := range w.itemsAt[pos] {
		if e := w.items[id]; e != nil && e.Count > 0 {
			out = append(out, model.ItemStack{Item: e.Item, Count: e.Count})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

// GroundTotal sums the counts of every ground item.
func (w *World) GroundTotal() int {
	n := 0
	for _, e := range w.items {
		n += e.Count
	}
	return n
}

func (w *World) sortedItemIDs() []string {
	out := make([]string, 0, len(w.items))
	for id := range w.items {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
