package router

import (
	"math/rand"
	"testing"

	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

type containerBin struct{ c *modelpkg.Container }

func (b containerBin) Pos() modelpkg.Vec3i { return b.c.Pos }
func (b containerBin) Insert(items []modelpkg.ItemStack) []modelpkg.ItemStack {
	return b.c.Insert(items)
}
func (b containerBin) HasFreeSpace() bool { return b.c.HasFreeSpace() }

func newBin(x, capacity int) containerBin {
	return containerBin{c: &modelpkg.Container{Type: "CHEST", Pos: modelpkg.Vec3i{X: x}, Capacity: capacity}}
}

type recordingDropper struct {
	at    []modelpkg.Vec3i
	total int
}

func (d *recordingDropper) DropItems(pos modelpkg.Vec3i, items []modelpkg.ItemStack) {
	d.at = append(d.at, pos)
	d.total += modelpkg.TotalCount(items)
}
func (d *recordingDropper) DefaultDropPos() modelpkg.Vec3i { return modelpkg.Vec3i{Y: 99} }

func TestDepositConservesItems(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 50; trial++ {
		var bins []Bin
		var raw []containerBin
		nbins := rng.Intn(4)
		for i := 0; i < nbins; i++ {
			b := newBin(i, rng.Intn(6)-1)
			bins = append(bins, b)
			raw = append(raw, b)
		}
		r := New(bins...)
		submitted, leftover := 0, 0
		for batch := 0; batch < 10; batch++ {
			items := []modelpkg.ItemStack{
				{Item: "STONE", Count: rng.Intn(5)},
				{Item: "COAL", Count: rng.Intn(3)},
			}
			submitted += modelpkg.TotalCount(items)
			leftover += modelpkg.TotalCount(r.Deposit(items))
		}
		placed := 0
		for _, b := range raw {
			placed += b.c.Used()
		}
		if placed+leftover != submitted {
			t.Fatalf("trial %d: placed %d + leftover %d != submitted %d", trial, placed, leftover, submitted)
		}
	}
}

func TestDepositRoundRobin(t *testing.T) {
	a, b, c := newBin(0, 10), newBin(1, 10), newBin(2, 10)
	r := New(a, b, c)
	for i := 0; i < 6; i++ {
		if left := r.Deposit([]modelpkg.ItemStack{{Item: "DIRT", Count: 1}}); len(left) != 0 {
			t.Fatalf("unexpected leftover %v", left)
		}
	}
	for i, bin := range []containerBin{a, b, c} {
		if bin.c.Used() != 2 {
			t.Fatalf("bin %d holds %d, want 2", i, bin.c.Used())
		}
	}
	r2 := New(newBin(0, 10), newBin(1, 10))
	first := r2.bins[0].(containerBin)
	r2.Deposit([]modelpkg.ItemStack{{Item: "DIRT", Count: 1}})
	if first.c.Used() != 1 {
		t.Fatalf("first deposit should land in bin 0")
	}
}

func TestDepositSpillsToNextBinAndReturnsLeftover(t *testing.T) {
	a, b := newBin(0, 2), newBin(1, 3)
	r := New(a, b)
	left := r.Deposit([]modelpkg.ItemStack{{Item: "STONE", Count: 7}})
	if a.c.Used() != 2 || b.c.Used() != 3 {
		t.Fatalf("bins hold %d/%d", a.c.Used(), b.c.Used())
	}
	if len(left) != 1 || left[0].Count != 2 {
		t.Fatalf("leftover=%v", left)
	}
	if r.HasFreeSpace() {
		t.Fatalf("full bins should report no space")
	}
}

func TestHasFreeSpaceAndEmptyRouter(t *testing.T) {
	r := New()
	if !r.HasFreeSpace() {
		t.Fatalf("router with no bins must not block")
	}
	items := []modelpkg.ItemStack{{Item: "COAL", Count: 2}}
	if left := r.Deposit(items); modelpkg.TotalCount(left) != 2 {
		t.Fatalf("no bins should return everything, got %v", left)
	}
	r.SetBins([]Bin{newBin(0, 0)})
	if !r.HasFreeSpace() || r.Len() != 1 {
		t.Fatalf("unlimited bin should have space")
	}
}

func TestDropOnGroundPlacement(t *testing.T) {
	items := []modelpkg.ItemStack{{Item: "COAL", Count: 3}}
	fallback := modelpkg.Vec3i{X: 7, Y: 7, Z: 7}

	d := &recordingDropper{}
	New(newBin(4, 1), newBin(5, 1)).DropOnGround(d, &fallback, items)
	if len(d.at) != 1 || d.at[0] != (modelpkg.Vec3i{X: 4}) {
		t.Fatalf("with bins, drop should go to first bin: %v", d.at)
	}

	d = &recordingDropper{}
	New().DropOnGround(d, &fallback, items)
	if len(d.at) != 1 || d.at[0] != fallback {
		t.Fatalf("without bins, drop should use fallback: %v", d.at)
	}

	d = &recordingDropper{}
	New().DropOnGround(d, nil, items)
	if len(d.at) != 1 || d.at[0] != (modelpkg.Vec3i{Y: 99}) || d.total != 3 {
		t.Fatalf("without fallback, drop should use world default: %v", d.at)
	}

	d = &recordingDropper{}
	New().DropOnGround(d, nil, nil)
	if len(d.at) != 0 {
		t.Fatalf("empty drop should be a no-op")
	}
}

func TestSetBinsResetsRotation(t *testing.T) {
	r := New(newBin(0, 5), newBin(1, 5), newBin(2, 5))
	r.Deposit([]modelpkg.ItemStack{{Item: "DIRT", Count: 1}})
	r.Deposit([]modelpkg.ItemStack{{Item: "DIRT", Count: 1}})
	r.SetBins([]Bin{newBin(9, 5)})
	if r.next != 0 {
		t.Fatalf("rotation index %d out of range after SetBins", r.next)
	}
}
