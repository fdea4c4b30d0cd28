package world

import (
	"voxelquarry.ai/internal/sim/world/kernel/model"
	"voxelquarry.ai/internal/sim/world/logic/ids"
)

func (w *World) SpawnWorker(kind model.WorkerKind, owner string, pos model.Vec3i) *model.Worker {
	w.nextWorkerID++
	wk := &model.Worker{
		ID:    ids.EntityID("W", w.nextWorkerID),
		Kind:  kind,
		Owner: owner,
		Pos:   pos,
	}
	w.workers[wk.ID] = wk
	return wk
}

// Despawn invalidates the worker; handles held elsewhere report Valid()==false.
func (w *World) Despawn(id string) bool {
	wk := w.workers[id]
	if wk == nil {
		return false
	}
	wk.Despawned = true
	delete(w.workers, id)
	return true
}

func (w *World) Worker(id string) (*model.Worker, bool) {
	wk, ok := w.workers[id]
	return wk, ok
}
