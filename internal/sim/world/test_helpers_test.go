package world

import (
	"path/filepath"
	"testing"

	"voxelquarry.ai/internal/sim/catalogs"
)

func newTestWorld(t *testing.T, id string) *World {
	t.Helper()
	cats, err := catalogs.Load(filepath.Join("..", "..", "..", "configs"))
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := New(WorldConfig{ID: id, Seed: 7, Height: 16, SurfaceY: 10, BoundaryR: 64}, cats)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}
