package model

type Vec3i struct {
	X int
	Y int
	Z int
}

func (v Vec3i) ToArray() [3]int { return [3]int{v.X, v.Y, v.Z} }

func (v Vec3i) Add(dx, dy, dz int) Vec3i {
	return Vec3i{X: v.X + dx, Y: v.Y + dy, Z: v.Z + dz}
}

func FromArray(a [3]int) Vec3i { return Vec3i{X: a[0], Y: a[1], Z: a[2]} }

func Manhattan(a, b Vec3i) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	dz := a.Z - b.Z
	if dz < 0 {
		dz = -dz
	}
	return dx + dy + dz
}

// ItemStack is a count of one item kind.
type ItemStack struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

func TotalCount(stacks []ItemStack) int {
	n := 0
	for _, s := range stacks {
		if s.Count > 0 {
			n += s.Count
		}
	}
	return n
}
