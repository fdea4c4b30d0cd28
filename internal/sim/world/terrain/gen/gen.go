package gen

func FloorDiv(a, b int) int {
	// b > 0
	q := a / b
	r := a % b
	if r < 0 {
		q--
	}
	return q
}

func Mod(a, b int) int {
	// b > 0
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

func Hash3(seed int64, x, y, z int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	uz := uint64(uint32(int32(z)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xc2b2ae3d27d4eb4f) ^ (uz * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// Layer classifies a cell of a generated column.
type Layer int

const (
	LayerAir Layer = iota
	LayerBedrock
	LayerRock
	LayerSoil
	LayerSurface
)

// LayerAt is the column profile: bedrock at y=0, rock up to three blocks under the
// surface, soil above it and a single surface block at surfaceY.
func LayerAt(y, surfaceY int) Layer {
	switch {
	case y < 0:
		return LayerAir
	case y == 0:
		return LayerBedrock
	case y > surfaceY:
		return LayerAir
	case y == surfaceY:
		return LayerSurface
	case y >= surfaceY-3:
		return LayerSoil
	default:
		return LayerRock
	}
}

// Ore picks an ore for a rock cell. Rolls are permille and stack in order; ok is false
// for plain rock. Deeper cells get the rarer ores.
func Ore(seed int64, x, y, z, surfaceY int) (ore string, ok bool) {
	roll := Hash3(seed+101, x, y, z) % 1000
	depth := surfaceY - y
	switch {
	case depth > 24 && roll < 3:
		return "CRYSTAL_ORE", true
	case depth > 12 && roll < 15:
		return "IRON_ORE", true
	case roll < 30:
		return "COPPER_ORE", true
	case roll < 55:
		return "COAL_ORE", true
	case roll < 75:
		return "GRAVEL", true
	default:
		return "", false
	}
}
