package snapshot

import (
	"path/filepath"
	"testing"
)

func TestWriteReadSnapshotRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := PathForTick(dir, 120)

	in := SnapshotV1{
		Header:    Header{Version: Version, WorldID: "OVERWORLD", Tick: 120},
		Seed:      42,
		TickRate:  20,
		Height:    4,
		SurfaceY:  3,
		BoundaryR: 64,
		Chunks: []ChunkV1{{
			CX: 0, CZ: -1, Height: 4, Blocks: make([]uint16, 16*16*4),
		}},
		Containers: []ContainerV1{{
			Type: "CHEST", Pos: [3]int{1, 2, 3}, Capacity: 27, Inventory: map[string]int{"STONE": 5},
		}},
		Items:    []ItemEntityV1{{EntityID: "I000001", Pos: [3]int{4, 2, 4}, Item: "COAL", Count: 2}},
		Counters: CountersV1{NextItem: 1, NextWorker: 3},
	}
	in.Chunks[0].Blocks[17] = 9

	if err := WriteSnapshot(path, in); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	out, err := ReadSnapshot(path)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if out.Header != in.Header || out.Seed != 42 || out.SurfaceY != 3 {
		t.Fatalf("header mismatch: %+v", out.Header)
	}
	if len(out.Chunks) != 1 || out.Chunks[0].Blocks[17] != 9 {
		t.Fatalf("chunk mismatch")
	}
	if len(out.Containers) != 1 || out.Containers[0].Inventory["STONE"] != 5 || out.Containers[0].Capacity != 27 {
		t.Fatalf("container mismatch: %+v", out.Containers)
	}
	if out.Counters.NextWorker != 3 {
		t.Fatalf("counters mismatch: %+v", out.Counters)
	}
}

func TestLatestPicksHighestTick(t *testing.T) {
	dir := t.TempDir()
	for _, tick := range []uint64{9, 100, 20} {
		snap := SnapshotV1{Header: Header{Version: Version, Tick: tick}}
		if err := WriteSnapshot(PathForTick(dir, tick), snap); err != nil {
			t.Fatalf("WriteSnapshot: %v", err)
		}
	}
	if got := Latest(dir); got != filepath.Join(dir, "100.snap.zst") {
		t.Fatalf("Latest=%q", got)
	}
	if got := Latest(filepath.Join(dir, "missing")); got != "" {
		t.Fatalf("expected empty for missing dir, got %q", got)
	}
}
