package world

import (
	"fmt"
	"sort"

	"voxelquarry.ai/internal/sim/catalogs"
	"voxelquarry.ai/internal/sim/world/kernel/model"
	"voxelquarry.ai/internal/sim/world/terrain/store"
)

type WorldConfig struct {
	ID        string
	Seed      int64
	Height    int
	SurfaceY  int
	BoundaryR int
}

// World is one voxel volume with the bins, drops and workers placed in it.
// All state must be accessed only from the loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs

	chunks *store.ChunkStore
	air    uint16
	light  uint16

	containers map[model.Vec3i]*model.Container
	items      map[string]*model.ItemEntity
	itemsAt    map[model.Vec3i][]string
	workers    map[string]*model.Worker

	binRemoved   map[uint64]func(pos model.Vec3i)
	nextSubNum   uint64
	nextItemNum  uint64
	nextWorkerID uint64

	// now is the tick of the owning loop; zero for a standalone world.
	now func() uint64
}

func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("world %s: nil catalogs", cfg.ID)
	}
	b := func(id string) (uint16, error) {
		v, ok := cats.Blocks.Index[id]
		if !ok {
			return 0, fmt.Errorf("missing block id in palette: %s", id)
		}
		return v, nil
	}
	air, err := b("AIR")
	if err != nil {
		return nil, err
	}
	gen := store.WorldGen{
		Seed:      cfg.Seed,
		BoundaryR: cfg.BoundaryR,
		Height:    cfg.Height,
		SurfaceY:  cfg.SurfaceY,
		Air:       air,
		Ores:      map[string]uint16{},
	}
	for _, name := range []string{"BEDROCK", "STONE", "DIRT", "GRASS"} {
		v, err := b(name)
		if err != nil {
			return nil, err
		}
		switch name {
		case "BEDROCK":
			gen.Bedrock = v
		case "STONE":
			gen.Stone = v
		case "DIRT":
			gen.Dirt = v
		case "GRASS":
			gen.Grass = v
		}
	}
	// Ores are optional; a catalog without them generates plain rock.
	for _, name := range []string{"COAL_ORE", "COPPER_ORE", "IRON_ORE", "CRYSTAL_ORE", "GRAVEL"} {
		if v, ok := cats.Blocks.Index[name]; ok {
			gen.Ores[name] = v
		}
	}
	light, ok := cats.Blocks.Index["TORCH"]
	if !ok {
		light = air
	}

	chunks := store.NewChunkStore(gen)
	cfg.Height = chunks.Gen.Height
	cfg.SurfaceY = chunks.Gen.SurfaceY
	return &World{
		cfg:        cfg,
		catalogs:   cats,
		chunks:     chunks,
		air:        air,
		light:      light,
		containers: map[model.Vec3i]*model.Container{},
		items:      map[string]*model.ItemEntity{},
		itemsAt:    map[model.Vec3i][]string{},
		workers:    map[string]*model.Worker{},
		binRemoved: map[uint64]func(pos model.Vec3i){},
		now:        func() uint64 { return 0 },
	}, nil
}

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) Config() WorldConfig { return w.cfg }

func (w *World) Catalogs() *catalogs.Catalogs { return w.catalogs }

func (w *World) CurrentTick() uint64 { return w.now() }

func (w *World) LoadedChunks() int { return len(w.chunks.Chunks) }

// BlockAt returns the palette id at pos. Positions outside the world read as air.
func (w *World) BlockAt(pos model.Vec3i) uint16 {
	return w.chunks.GetBlock(pos.X, pos.Y, pos.Z)
}

func (w *World) SetBlock(pos model.Vec3i, b uint16) {
	w.chunks.SetBlock(pos.X, pos.Y, pos.Z, b)
}

func (w *World) AirBlock() uint16 { return w.air }

func (w *World) IsEmpty(b uint16) bool { return b == w.air }

func (w *World) IsIndestructible(b uint16) bool {
	return w.catalogs.Blocks.Indestructible(b)
}

func (w *World) YieldFor(b uint16) []model.ItemStack {
	return w.catalogs.Blocks.Yield(b)
}

func (w *World) BlockName(b uint16) string {
	return w.catalogs.Blocks.Name(b)
}

// BlockID resolves a block name for tests and admin tools.
func (w *World) BlockID(name string) (uint16, bool) {
	return w.catalogs.Blocks.ID(name)
}

// PlaceLight puts a light block at pos if the cell is empty and the catalog has one.
func (w *World) PlaceLight(pos model.Vec3i) bool {
	if w.light == w.air || !w.chunks.InBounds(pos.X, pos.Y, pos.Z) || w.BlockAt(pos) != w.air {
		return false
	}
	w.SetBlock(pos, w.light)
	return true
}

func (w *World) SurfaceY() int { return w.cfg.SurfaceY }

// FillBox sets every cell in the inclusive box [a,b] to block. Used to build fixtures.
func (w *World) FillBox(a, b model.Vec3i, block uint16) {
	minX, maxX := order(a.X, b.X)
	minY, maxY := order(a.Y, b.Y)
	minZ, maxZ := order(a.Z, b.Z)
	for y := minY; y <= maxY; y++ {
		for z := minZ; z <= maxZ; z++ {
			for x := minX; x <= maxX; x++ {
				w.SetBlock(model.Vec3i{X: x, Y: y, Z: z}, block)
			}
		}
	}
}

func order(a, b int) (int, int) {
	if a > b {
		return b, a
	}
	return a, b
}

func sortedVecs(in []model.Vec3i) {
	sort.Slice(in, func(i, j int) bool {
		if in[i].Y != in[j].Y {
			return in[i].Y < in[j].Y
		}
		if in[i].Z != in[j].Z {
			return in[i].Z < in[j].Z
		}
		return in[i].X < in[j].X
	})
}
