package model

type WorkerKind string

const (
	WorkerMiner WorkerKind = "MINER"
	WorkerGuard WorkerKind = "GUARD"
)

// Worker is the cosmetic entity that represents a running session in the world.
// Workers are not snapshotted; sessions respawn them on resume.
type Worker struct {
	ID    string
	Kind  WorkerKind
	Owner string
	Pos   Vec3i

	Despawned bool
}

func (w *Worker) Valid() bool { return w != nil && !w.Despawned }

// MoveToward steps one block toward target along the axis with the largest gap.
func (w *Worker) MoveToward(target Vec3i) {
	if !w.Valid() {
		return
	}
	dx, dy, dz := target.X-w.Pos.X, target.Y-w.Pos.Y, target.Z-w.Pos.Z
	ax, ay, az := abs(dx), abs(dy), abs(dz)
	switch {
	case ax == 0 && ay == 0 && az == 0:
		return
	case ax >= ay && ax >= az:
		w.Pos.X += sign(dx)
	case az >= ay:
		w.Pos.Z += sign(dz)
	default:
		w.Pos.Y += sign(dy)
	}
}

func (w *Worker) TeleportTo(pos Vec3i) {
	if !w.Valid() {
		return
	}
	w.Pos = pos
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
