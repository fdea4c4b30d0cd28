package store

import genpkg "voxelquarry.ai/internal/sim/world/terrain/gen"

func (s *ChunkStore) GenerateChunk(ch *Chunk) {
	for y := 0; y < ch.Height; y++ {
		for z := 0; z < ChunkSize; z++ {
			for x := 0; x < ChunkSize; x++ {
				wx := ch.CX*ChunkSize + x
				wz := ch.CZ*ChunkSize + z
				ch.Blocks[ch.index(x, y, z)] = s.blockFor(wx, y, wz)
			}
		}
	}
}

func (s *ChunkStore) blockFor(x, y, z int) uint16 {
	switch genpkg.LayerAt(y, s.Gen.SurfaceY) {
	case genpkg.LayerBedrock:
		return s.Gen.Bedrock
	case genpkg.LayerRock:
		if name, ok := genpkg.Ore(s.Gen.Seed, x, y, z, s.Gen.SurfaceY); ok {
			if id, ok := s.Gen.Ores[name]; ok {
				return id
			}
		}
		return s.Gen.Stone
	case genpkg.LayerSoil:
		return s.Gen.Dirt
	case genpkg.LayerSurface:
		return s.Gen.Grass
	default:
		return s.Gen.Air
	}
}
