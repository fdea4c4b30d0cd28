package world

import (
	"testing"

	"voxelquarry.ai/internal/sim/world/kernel/model"
)

func TestSnapshotRoundTrip(t *testing.T) {
	w := newTestWorld(t, "OVERWORLD")
	dirt, _ := w.BlockID("DIRT")
	cell := model.Vec3i{X: -3, Y: 4, Z: 20}
	w.SetBlock(cell, dirt)
	bin, _ := w.AddBin("CHEST", model.Vec3i{X: 0, Y: 11, Z: 0}, 10)
	bin.Insert([]model.ItemStack{{Item: "COAL", Count: 4}})
	w.DropItems(model.Vec3i{X: 1, Y: 11, Z: 1}, []model.ItemStack{{Item: "DIRT", Count: 2}})
	w.SpawnWorker(model.WorkerMiner, "bob", model.Vec3i{})

	snap := w.ExportSnapshot(42)
	if snap.Header.Tick != 42 || snap.Header.WorldID != "OVERWORLD" {
		t.Fatalf("header=%+v", snap.Header)
	}

	w2 := newTestWorld(t, "OVERWORLD")
	if err := w2.ImportSnapshot(snap); err != nil {
		t.Fatalf("ImportSnapshot: %v", err)
	}
	if w2.BlockAt(cell) != dirt {
		t.Fatalf("block not restored")
	}
	b2, ok := w2.Bin(model.Vec3i{X: 0, Y: 11, Z: 0})
	if !ok || b2.Capacity != 10 || b2.Inventory["COAL"] != 4 {
		t.Fatalf("bin not restored: %+v", b2)
	}
	if w2.GroundTotal() != 2 {
		t.Fatalf("items not restored")
	}
	w2.DropItems(model.Vec3i{X: 9, Y: 11, Z: 9}, []model.ItemStack{{Item: "COAL", Count: 1}})
	if len(w2.items) != 2 {
		t.Fatalf("item ids collided after import")
	}
	if wk := w2.SpawnWorker(model.WorkerGuard, "bob", model.Vec3i{}); wk.ID != "W000002" {
		t.Fatalf("worker counter not restored: %s", wk.ID)
	}
}

func TestImportSnapshotRejectsMismatch(t *testing.T) {
	w := newTestWorld(t, "OVERWORLD")
	snap := w.ExportSnapshot(1)
	other := newTestWorld(t, "MINE")
	if err := other.ImportSnapshot(snap); err == nil {
		t.Fatalf("expected world id mismatch")
	}
	snap.Header.Version = 99
	if err := w.ImportSnapshot(snap); err == nil {
		t.Fatalf("expected version error")
	}
}
