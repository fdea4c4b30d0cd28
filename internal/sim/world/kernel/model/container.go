package model

import (
	"sort"

	"voxelquarry.ai/internal/sim/world/logic/ids"
)

// Container is an output bin placed in the world (CHEST/BARREL). Capacity is the total
// number of item units it can hold; Capacity <= 0 means unlimited.
// It is included in world snapshots.
type Container struct {
	Type     string
	Pos      Vec3i
	Capacity int

	Inventory map[string]int
}

func (c *Container) ID() string { return ContainerID(c.Type, c.Pos) }

func ContainerID(typ string, pos Vec3i) string {
	return ids.ContainerID(typ, pos.X, pos.Y, pos.Z)
}

func ParseContainerID(id string) (typ string, pos Vec3i, ok bool) {
	typ, x, y, z, ok := ids.ParseContainerID(id)
	if !ok {
		return "", Vec3i{}, false
	}
	return typ, Vec3i{X: x, Y: y, Z: z}, true
}

func (c *Container) InventoryList() []ItemStack {
	out := make([]ItemStack, 0, len(c.Inventory))
	for item, n := range c.Inventory {
		if n <= 0 {
			continue
		}
		out = append(out, ItemStack{Item: item, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item < out[j].Item })
	return out
}

func (c *Container) Used() int {
	n := 0
	for _, v := range c.Inventory {
		if v > 0 {
			n += v
		}
	}
	return n
}

// Free returns the number of units that still fit, or -1 when unlimited.
func (c *Container) Free() int {
	if c.Capacity <= 0 {
		return -1
	}
	free := c.Capacity - c.Used()
	if free < 0 {
		return 0
	}
	return free
}

func (c *Container) HasFreeSpace() bool {
	return c.Free() != 0
}

// Insert stores as much of stacks as fits and returns what did not fit.
func (c *Container) Insert(stacks []ItemStack) []ItemStack {
	if c.Inventory == nil {
		c.Inventory = map[string]int{}
	}
	var leftover []ItemStack
	for _, s := range stacks {
		if s.Item == "" || s.Count <= 0 {
			continue
		}
		n := s.Count
		if free := c.Free(); free >= 0 && n > free {
			n = free
		}
		if n > 0 {
			c.Inventory[s.Item] += n
		}
		if rest := s.Count - n; rest > 0 {
			leftover = append(leftover, ItemStack{Item: s.Item, Count: rest})
		}
	}
	return leftover
}

// Take removes up to n units of item and returns how many were removed.
func (c *Container) Take(item string, n int) int {
	if n <= 0 || c.Inventory == nil {
		return 0
	}
	have := c.Inventory[item]
	if n > have {
		n = have
	}
	c.Inventory[item] -= n
	if c.Inventory[item] <= 0 {
		delete(c.Inventory, item)
	}
	return n
}
