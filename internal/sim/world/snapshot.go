package world

import (
	"fmt"

	"voxelquarry.ai/internal/persistence/snapshot"
	"voxelquarry.ai/internal/sim/world/kernel/model"
	"voxelquarry.ai/internal/sim/world/terrain/store"
)

// ExportSnapshot must be called from the loop goroutine.
func (w *World) ExportSnapshot(nowTick uint64) snapshot.SnapshotV1 {
	snap := snapshot.SnapshotV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			WorldID: w.cfg.ID,
			Tick:    nowTick,
		},
		Seed:      w.cfg.Seed,
		Height:    w.cfg.Height,
		SurfaceY:  w.cfg.SurfaceY,
		BoundaryR: w.cfg.BoundaryR,
		Chunks:    store.ExportLoadedChunks(w.chunks.Chunks, w.chunks.LoadedChunkKeys()),
		Counters: snapshot.CountersV1{
			NextItem:   w.nextItemNum,
			NextWorker: w.nextWorkerID,
		},
	}
	for _, c := range w.Bins() {
		inv := make(map[string]int, len(c.Inventory))
		for k, v := range c.Inventory {
			if v > 0 {
				inv[k] = v
			}
		}
		snap.Containers = append(snap.Containers, snapshot.ContainerV1{
			Type:      c.Type,
			Pos:       c.Pos.ToArray(),
			Capacity:  c.Capacity,
			Inventory: inv,
		})
	}
	for _, id := range w.sortedItemIDs() {
		e := w.items[id]
		snap.Items = append(snap.Items, snapshot.ItemEntityV1{
			EntityID:    e.EntityID,
			Pos:         e.Pos.ToArray(),
			Item:        e.Item,
			Count:       e.Count,
			CreatedTick: e.CreatedTick,
		})
	}
	return snap
}

// ImportSnapshot replaces chunks, bins and drops. Workers are left alone;
// sessions respawn their own.
func (w *World) ImportSnapshot(snap snapshot.SnapshotV1) error {
	if snap.Header.Version != snapshot.Version {
		return fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	if snap.Header.WorldID != "" && snap.Header.WorldID != w.cfg.ID {
		return fmt.Errorf("snapshot world %q does not match %q", snap.Header.WorldID, w.cfg.ID)
	}
	if snap.Height != 0 && snap.Height != w.chunks.Gen.Height {
		return fmt.Errorf("snapshot height %d does not match world height %d", snap.Height, w.chunks.Gen.Height)
	}
	chunks, err := store.ImportChunks(w.chunks.Gen, snap.Chunks)
	if err != nil {
		return err
	}
	w.chunks = chunks

	w.containers = map[model.Vec3i]*model.Container{}
	for _, c := range snap.Containers {
		inv := make(map[string]int, len(c.Inventory))
		for k, v := range c.Inventory {
			inv[k] = v
		}
		pos := model.FromArray(c.Pos)
		w.containers[pos] = &model.Container{Type: c.Type, Pos: pos, Capacity: c.Capacity, Inventory: inv}
	}

	w.items = map[string]*model.ItemEntity{}
	w.itemsAt = map[model.Vec3i][]string{}
	for _, it := range snap.Items {
		e := &model.ItemEntity{
			EntityID:    it.EntityID,
			Pos:         model.FromArray(it.Pos),
			Item:        it.Item,
			Count:       it.Count,
			CreatedTick: it.CreatedTick,
		}
		w.items[e.EntityID] = e
		w.itemsAt[e.Pos] = append(w.itemsAt[e.Pos], e.EntityID)
	}
	w.nextItemNum = snap.Counters.NextItem
	if snap.Counters.NextWorker > w.nextWorkerID {
		w.nextWorkerID = snap.Counters.NextWorker
	}
	return nil
}
