package store

import (
	"testing"

	snapv1 "voxelquarry.ai/internal/persistence/snapshot"
)

func testGen() WorldGen {
	return WorldGen{
		Seed:     7,
		Height:   8,
		SurfaceY: 6,
		Air:      0,
		Bedrock:  1,
		Stone:    2,
		Dirt:     3,
		Grass:    4,
		Ores:     map[string]uint16{"COAL_ORE": 5},
	}
}

func TestGeneratedColumnProfile(t *testing.T) {
	s := NewChunkStore(testGen())
	if got := s.GetBlock(3, 0, -5); got != 1 {
		t.Fatalf("expected bedrock at y=0, got %d", got)
	}
	if got := s.GetBlock(3, 6, -5); got != 4 {
		t.Fatalf("expected grass at surface, got %d", got)
	}
	if got := s.GetBlock(3, 7, -5); got != 0 {
		t.Fatalf("expected air above surface, got %d", got)
	}
	if got := s.GetBlock(3, 8, -5); got != 0 {
		t.Fatalf("expected air out of bounds, got %d", got)
	}
}

func TestSetBlockAcrossChunks(t *testing.T) {
	s := NewChunkStore(testGen())
	s.SetBlock(-1, 2, -1, 9)
	s.SetBlock(16, 2, 16, 9)
	if s.GetBlock(-1, 2, -1) != 9 || s.GetBlock(16, 2, 16) != 9 {
		t.Fatalf("set block not visible")
	}
	if len(s.LoadedChunkKeys()) != 2 {
		t.Fatalf("expected 2 loaded chunks, got %d", len(s.LoadedChunkKeys()))
	}
}

func TestExportAndImportChunksRoundTrip(t *testing.T) {
	gen := testGen()
	s := NewChunkStore(gen)
	s.SetBlock(1, 3, -30, 9)

	exported := ExportLoadedChunks(s.Chunks, s.LoadedChunkKeys())
	if len(exported) != 1 {
		t.Fatalf("expected 1 exported chunk, got %d", len(exported))
	}
	imported, err := ImportChunks(gen, exported)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if got := imported.GetBlock(1, 3, -30); got != 9 {
		t.Fatalf("unexpected imported block: got %d", got)
	}
}

func TestImportChunksRejectsInvalidShape(t *testing.T) {
	_, err := ImportChunks(testGen(), []snapv1.ChunkV1{{
		CX:     0,
		CZ:     0,
		Height: 2,
		Blocks: make([]uint16, 16*16*2),
	}})
	if err == nil {
		t.Fatalf("expected error for invalid chunk shape")
	}
}
