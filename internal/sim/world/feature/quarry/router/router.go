// Package router spreads extracted items over a session's output bins.
package router

import modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"

// Bin is one output container.
type Bin interface {
	Pos() modelpkg.Vec3i
	// Insert stores what fits and returns the rest.
	Insert(items []modelpkg.ItemStack) []modelpkg.ItemStack
	HasFreeSpace() bool
}

// Dropper places items on the ground.
type Dropper interface {
	DropItems(pos modelpkg.Vec3i, items []modelpkg.ItemStack)
	DefaultDropPos() modelpkg.Vec3i
}

// Router deposits round-robin into its bins. It is not safe for concurrent use.
type Router struct {
	bins []Bin
	next int
}

func New(bins ...Bin) *Router {
	r := &Router{}
	r.SetBins(bins)
	return r
}

// SetBins replaces the bin list, keeping the rotation where it still fits.
func (r *Router) SetBins(bins []Bin) {
	r.bins = append([]Bin(nil), bins...)
	if r.next >= len(r.bins) {
		r.next = 0
	}
}

func (r *Router) Bins() []Bin { return append([]Bin(nil), r.bins...) }

func (r *Router) Len() int { return len(r.bins) }

// Deposit offers items to each bin at most once, starting at the rotation
// index, and returns what no bin accepted. The rotation moves one bin per call.
func (r *Router) Deposit(items []modelpkg.ItemStack) []modelpkg.ItemStack {
	pending := compact(items)
	n := len(r.bins)
	if n == 0 {
		return pending
	}
	start := r.next
	r.next = (start + 1) % n
	for i := 0; i < n && len(pending) > 0; i++ {
		pending = compact(r.bins[(start+i)%n].Insert(pending))
	}
	return pending
}

// HasFreeSpace reports whether any bin accepts at least one more unit. With
// no bins there is nothing to block on, so it is true.
func (r *Router) HasFreeSpace() bool {
	if len(r.bins) == 0 {
		return true
	}
	for _, b := range r.bins {
		if b.HasFreeSpace() {
			return true
		}
	}
	return false
}

// DropOnGround drops items at the first bin, else at fallback, else at the
// world default drop position.
func (r *Router) DropOnGround(d Dropper, fallback *modelpkg.Vec3i, items []modelpkg.ItemStack) {
	items = compact(items)
	if d == nil || len(items) == 0 {
		return
	}
	switch {
	case len(r.bins) > 0:
		d.DropItems(r.bins[0].Pos(), items)
	case fallback != nil:
		d.DropItems(*fallback, items)
	default:
		d.DropItems(d.DefaultDropPos(), items)
	}
}

func compact(items []modelpkg.ItemStack) []modelpkg.ItemStack {
	var out []modelpkg.ItemStack
	for _, s := range items {
		if s.Item != "" && s.Count > 0 {
			out = append(out, s)
		}
	}
	return out
}
