// Package runtime advances one session by one stage per activation:
// Idle -> Animating -> Breaking -> Depositing -> Idle.
package runtime

import (
	"voxelquarry.ai/internal/sim/world/feature/quarry/cursor"
	"voxelquarry.ai/internal/sim/world/feature/quarry/pattern"
	"voxelquarry.ai/internal/sim/world/feature/quarry/router"
	"voxelquarry.ai/internal/sim/world/feature/quarry/session"
	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAnimating
	PhaseBreaking
	PhaseDepositing
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "IDLE"
	case PhaseAnimating:
		return "ANIMATING"
	case PhaseBreaking:
		return "BREAKING"
	case PhaseDepositing:
		return "DEPOSITING"
	default:
		return "UNKNOWN"
	}
}

// Env is the world the loop mutates.
type Env interface {
	pattern.Volume
	router.Dropper
	SetBlock(pos modelpkg.Vec3i, block uint16)
	AirBlock() uint16
	YieldFor(block uint16) []modelpkg.ItemStack
}

type Worker interface {
	Valid() bool
	MoveToward(pos modelpkg.Vec3i)
	TeleportTo(pos modelpkg.Vec3i)
}

type Scheduler interface {
	Every(interval int, fn func(tick uint64)) (cancel func())
}

// Extraction describes one broken cell after routing.
type Extraction struct {
	Pos      modelpkg.Vec3i
	Block    uint16
	Items    []modelpkg.ItemStack
	Leftover []modelpkg.ItemStack
}

// Hooks are optional notifications. OnComplete runs after the loop cancelled
// itself and may Start it again.
type Hooks struct {
	OnComplete       func()
	OnStorageBlocked func()
	OnStorageFreed   func()
	// OnCellExtracted is the decoration side effect, fired after the cell is
	// cleared and before its yield is routed.
	OnCellExtracted func(pos modelpkg.Vec3i)
	OnExtraction    func(ev Extraction)
}

type Config struct {
	// AnimationStages is how many activations the worker spends moving
	// toward a target before it is broken.
	AnimationStages int
}

type Loop struct {
	cfg    Config
	env    Env
	state  *session.State
	pat    pattern.Pattern
	router *router.Router
	worker Worker
	hooks  Hooks

	phase  Phase
	stage  int
	target pattern.Target
	// resume is the cursor before the in-flight target was pulled.
	resume *cursor.Cursor

	cancel func()
}

func New(env Env, state *session.State, pat pattern.Pattern, rt *router.Router, hooks Hooks, cfg Config) *Loop {
	if cfg.AnimationStages < 0 {
		cfg.AnimationStages = 0
	}
	if rt == nil {
		rt = router.New()
	}
	return &Loop{cfg: cfg, env: env, state: state, pat: pat, router: rt, hooks: hooks}
}

func (l *Loop) Phase() Phase { return l.phase }

func (l *Loop) Pattern() pattern.Pattern { return l.pat }

func (l *Loop) Router() *router.Router { return l.router }

func (l *Loop) Running() bool { return l.cancel != nil }

func (l *Loop) SetWorker(w Worker) { l.worker = w }

// Target returns the in-flight target, if any.
func (l *Loop) Target() (pattern.Target, bool) {
	return l.target, l.resume != nil
}

// SetPattern swaps the pattern. An in-flight target is dropped and the cursor
// rewound so the new pattern re-evaluates that cell.
func (l *Loop) SetPattern(p pattern.Pattern) {
	l.rewind()
	l.pat = p
}

// Start schedules the loop every interval ticks, replacing any earlier schedule.
// The phase is kept so a speed change does not lose the in-flight target.
func (l *Loop) Start(s Scheduler, interval int) {
	l.Cancel()
	l.cancel = s.Every(interval, func(uint64) { l.Tick() })
}

func (l *Loop) Cancel() {
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}

// ResumeCursor is the cursor to persist: while a target is in flight it is the
// position before that target, so a restart re-evaluates the cell.
func (l *Loop) ResumeCursor() *cursor.Cursor {
	if l.resume != nil {
		return l.resume.Copy()
	}
	return l.pat.Cursor().Copy()
}

// Tick runs one activation.
func (l *Loop) Tick() {
	if l.worker == nil || !l.worker.Valid() {
		l.rewind()
		l.Cancel()
		l.fire(l.hooks.OnComplete)
		return
	}
	if l.state.Paused {
		return
	}
	if !l.storageReady() {
		return
	}

	switch l.phase {
	case PhaseIdle:
		l.idle()
	case PhaseAnimating:
		l.animate()
	case PhaseBreaking:
		l.breakTarget()
	case PhaseDepositing:
		l.phase = PhaseIdle
	}
}

func (l *Loop) idle() {
	if !l.pat.HasNext() {
		l.finish()
		return
	}
	before := l.pat.Cursor().Copy()
	t, ok := l.pat.Next()
	if !ok {
		l.finish()
		return
	}
	l.target = t
	l.resume = before
	l.stage = 0
	if l.cfg.AnimationStages == 0 {
		l.phase = PhaseBreaking
		return
	}
	l.phase = PhaseAnimating
}

func (l *Loop) finish() {
	l.Cancel()
	l.fire(l.hooks.OnComplete)
}

func (l *Loop) animate() {
	l.worker.MoveToward(l.target.Pos)
	l.stage++
	if l.stage >= l.cfg.AnimationStages {
		l.phase = PhaseBreaking
	}
}

func (l *Loop) breakTarget() {
	// Space may have gone since the last activation; the check is repeated
	// here on purpose and the race with other writers is tolerated.
	if !l.storageReady() {
		return
	}
	pos := l.target.Pos
	cur := l.env.BlockAt(pos)
	if l.env.IsEmpty(cur) || l.env.IsIndestructible(cur) {
		l.clearTarget()
		l.phase = PhaseIdle
		return
	}

	l.worker.TeleportTo(pos)
	l.env.SetBlock(pos, l.env.AirBlock())
	items := l.env.YieldFor(cur)
	if l.hooks.OnCellExtracted != nil {
		l.hooks.OnCellExtracted(pos)
	}
	leftover := l.router.Deposit(items)
	if len(leftover) > 0 {
		l.router.DropOnGround(l.env, &pos, leftover)
	}
	l.clearTarget()
	l.phase = PhaseDepositing
	if l.hooks.OnExtraction != nil {
		l.hooks.OnExtraction(Extraction{Pos: pos, Block: cur, Items: items, Leftover: leftover})
	}
}

// storageReady gates work on bin space. Transitions fire their hook once.
func (l *Loop) storageReady() bool {
	if l.router.Len() == 0 || l.router.HasFreeSpace() {
		if l.state.WaitingOnStorage {
			l.state.WaitingOnStorage = false
			l.fire(l.hooks.OnStorageFreed)
		}
		return true
	}
	if !l.state.WaitingOnStorage {
		l.state.WaitingOnStorage = true
		l.fire(l.hooks.OnStorageBlocked)
	}
	return false
}

func (l *Loop) clearTarget() {
	l.target = pattern.Target{}
	l.resume = nil
	l.stage = 0
}

// rewind abandons an in-flight target and moves the live cursor back to it.
func (l *Loop) rewind() {
	if l.resume != nil {
		*l.pat.Cursor() = *l.resume
	}
	l.clearTarget()
	l.phase = PhaseIdle
}

func (l *Loop) fire(fn func()) {
	if fn != nil {
		fn()
	}
}
