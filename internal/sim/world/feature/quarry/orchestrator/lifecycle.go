package orchestrator

import (
	"fmt"
	"strings"

	"voxelquarry.ai/internal/sim/world/feature/quarry/cursor"
	"voxelquarry.ai/internal/sim/world/feature/quarry/pattern"
	"voxelquarry.ai/internal/sim/world/feature/quarry/router"
	"voxelquarry.ai/internal/sim/world/feature/quarry/runtime"
	"voxelquarry.ai/internal/sim/world/feature/quarry/session"
	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

type CreateRequest struct {
	Owner   string
	World   string
	CornerA modelpkg.Vec3i
	CornerB modelpkg.Vec3i
	// Pattern and Speed fall back to the configured defaults when empty.
	Pattern string
	Speed   string
	Bins    []modelpkg.Vec3i
	// ScanZFirst sweeps along Z inside a row instead of X.
	ScanZFirst bool
}

// NormalizeCorners turns two opposite corners at the same depth into the
// minimum corner and the footprint size.
func NormalizeCorners(a, b modelpkg.Vec3i) (base modelpkg.Vec3i, width, length int, err error) {
	if a.Y != b.Y {
		return modelpkg.Vec3i{}, 0, 0, ErrCornersNotLevel
	}
	minX, maxX := a.X, b.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minZ, maxZ := a.Z, b.Z
	if minZ > maxZ {
		minZ, maxZ = maxZ, minZ
	}
	return modelpkg.Vec3i{X: minX, Y: a.Y, Z: minZ}, maxX - minX + 1, maxZ - minZ + 1, nil
}

// Create validates req, starts the session and persists the collection.
func (o *Orchestrator) Create(req CreateRequest) (*session.State, error) {
	if req.Owner == "" {
		return nil, fmt.Errorf("create session: empty owner")
	}
	if _, busy := o.byOwner[req.Owner]; busy {
		return nil, ErrOwnerBusy
	}
	if o.opts.Authorizer != nil && !o.opts.Authorizer.MayOperate(req.Owner, req.World) {
		return nil, ErrNotAuthorized
	}
	env, ok := o.opts.Worlds.ResolveWorld(req.World)
	if !ok {
		return nil, ErrWorldNotFound
	}
	base, width, length, err := NormalizeCorners(req.CornerA, req.CornerB)
	if err != nil {
		return nil, err
	}
	if max := o.cfg.Quarry.MaxVolume; max > 0 && width*length > max {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrVolumeTooLarge, width, length, max)
	}
	if base.Y < o.cfg.Quarry.DepthFloor {
		return nil, ErrBelowFloor
	}

	patName := req.Pattern
	if patName == "" {
		patName = o.cfg.Quarry.DefaultPattern
	}
	kind, ok := pattern.ParseKind(patName)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, patName)
	}
	speed := req.Speed
	if speed == "" {
		speed = o.cfg.Quarry.DefaultSpeed
	}
	if _, ok := o.cfg.Quarry.SpeedTicks(speed); !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSpeed, speed)
	}
	for _, pos := range req.Bins {
		if _, ok := env.Bin(pos); !ok {
			return nil, fmt.Errorf("%w: %v", ErrBinNotFound, pos.ToArray())
		}
	}

	st := session.New(o.opts.NewID(), env.ID(), base, width, length, string(kind), strings.ToUpper(speed), !req.ScanZFirst)
	st.Owner = req.Owner
	for _, pos := range req.Bins {
		st.AddContainer(pos)
	}
	rt, err := o.attach(env, st)
	if err != nil {
		return nil, err
	}
	o.start(st, rt)
	o.emit(st, EventCreated, "")
	o.persist("create")
	return st.Clone(), nil
}

// Restore attaches sessions loaded from the store and starts them. Sessions in
// unknown worlds, with invalid state, or for an owner that is already busy are
// skipped; the number skipped is logged once.
func (o *Orchestrator) Restore(states []*session.State) int {
	restored, skipped := 0, 0
	for _, st := range states {
		if st == nil || st.Validate() != nil {
			skipped++
			continue
		}
		if _, busy := o.byOwner[st.Owner]; busy {
			skipped++
			continue
		}
		if _, dup := o.sessions[st.ID]; dup {
			skipped++
			continue
		}
		env, ok := o.opts.Worlds.ResolveWorld(st.World)
		if !ok {
			skipped++
			continue
		}
		st = st.Clone()
		st.WaitingOnStorage = false
		rt, err := o.attach(env, st)
		if err != nil {
			o.log.Printf("restore session %s: %v", st.ID, err)
			skipped++
			continue
		}
		o.start(st, rt)
		o.emit(st, EventRestored, "")
		restored++
	}
	if skipped > 0 {
		o.log.Printf("restore: skipped %d session(s)", skipped)
	}
	return restored
}

func (o *Orchestrator) attach(env Env, st *session.State) (*sessionRuntime, error) {
	kind, ok := pattern.ParseKind(st.Pattern)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPattern, st.Pattern)
	}
	pat, err := pattern.New(kind, env, st.Cursor, o.patternOptions())
	if err != nil {
		return nil, err
	}
	rt := &sessionRuntime{env: env, router: router.New()}
	id := st.ID
	hooks := runtime.Hooks{
		OnComplete:       func() { o.onComplete(id) },
		OnStorageBlocked: func() { o.emit(st, EventStorageBlocked, "") },
		OnStorageFreed:   func() { o.emit(st, EventStorageFreed, "") },
		OnCellExtracted: func(pos modelpkg.Vec3i) {
			if o.cfg.Quarry.AllowStructureMutation {
				o.opts.Decorator.Decorate(env, st, pos)
			}
		},
		OnExtraction: func(ev runtime.Extraction) { o.onExtraction(st, env, ev) },
	}
	rt.loop = runtime.New(env, st, pat, rt.router, hooks, runtime.Config{AnimationStages: o.cfg.Quarry.AnimationStages})
	if missing := pruneMissingBins(env, st); len(missing) > 0 {
		o.log.Printf("session %s: dropped %d bin(s) no longer in the world: %v", id, len(missing), missing)
	}
	o.rebuildRouter(st, rt)
	o.spawnWorkers(st, rt)
	rt.unsubscribe = env.OnBinRemoved(func(pos modelpkg.Vec3i) { o.onBinRemoved(id, pos) })

	o.sessions[id] = st
	o.runtimes[id] = rt
	o.byOwner[st.Owner] = id
	return rt, nil
}

func (o *Orchestrator) patternOptions() pattern.Options {
	return pattern.Options{
		StopDepth:         o.cfg.Quarry.DepthFloor,
		BranchSpacing:     o.cfg.Quarry.BranchSpacing,
		CorridorHalfWidth: o.cfg.Quarry.CorridorHalfWidth,
	}
}

func (o *Orchestrator) start(st *session.State, rt *sessionRuntime) {
	ticks, ok := o.cfg.Quarry.SpeedTicks(st.Speed)
	if !ok {
		ticks, _ = o.cfg.Quarry.SpeedTicks(o.cfg.Quarry.DefaultSpeed)
	}
	rt.loop.Start(o.sched, ticks)
}

// spawnWorkers replaces any invalid worker handle and reports whether the
// miner is usable afterwards.
func (o *Orchestrator) spawnWorkers(st *session.State, rt *sessionRuntime) bool {
	if !rt.miner.Valid() {
		pos := modelpkg.Vec3i{X: st.Base.X, Y: st.MinerY, Z: st.Base.Z}
		rt.miner = rt.env.SpawnWorker(modelpkg.WorkerMiner, st.Owner, pos)
	}
	if !rt.guard.Valid() {
		pos := modelpkg.Vec3i{X: st.Base.X - 1, Y: st.MinerY, Z: st.Base.Z - 1}
		rt.guard = rt.env.SpawnWorker(modelpkg.WorkerGuard, st.Owner, pos)
	}
	rt.loop.SetWorker(rt.miner)
	return rt.miner.Valid()
}

func (o *Orchestrator) onComplete(id string) {
	st, rt, err := o.lookup(id)
	if err != nil {
		return
	}
	if o.opts.Authorizer != nil && !o.opts.Authorizer.MayOperate(st.Owner, st.World) {
		o.teardown(id)
		o.emit(st, EventTerminated, "permission revoked")
		o.persist("terminate")
		return
	}
	if !rt.miner.Valid() {
		if o.spawnWorkers(st, rt) {
			o.emit(st, EventWorkerRespawned, "")
		} else {
			o.log.Printf("session %s: worker respawn failed", id)
		}
		// A failed respawn is retried by the next activation.
		o.start(st, rt)
		return
	}
	if !pattern.HasRemaining(rt.loop.Pattern()) {
		o.teardown(id)
		o.emit(st, EventCompleted, "")
		o.persist("complete")
		return
	}
	o.start(st, rt)
}

func (o *Orchestrator) onExtraction(st *session.State, env Env, ev runtime.Extraction) {
	routed, dropped := 0, 0
	for _, s := range ev.Items {
		routed += s.Count
	}
	for _, s := range ev.Leftover {
		dropped += s.Count
	}
	routed -= dropped
	o.opts.Metrics.ObserveExtraction(st.World, st.Pattern, routed, dropped)
	if o.opts.Recorder == nil {
		return
	}
	o.opts.Recorder.RecordExtraction(ExtractionEvent{
		Tick:      o.opts.Clock(),
		SessionID: st.ID,
		World:     st.World,
		Pos:       ev.Pos.ToArray(),
		Block:     env.BlockName(ev.Block),
		Items:     ev.Items,
		Leftover:  ev.Leftover,
	})
}

// teardown cancels the loop, releases workers and forgets the session.
func (o *Orchestrator) teardown(id string) {
	st := o.sessions[id]
	if rt, ok := o.runtimes[id]; ok {
		o.release(rt)
		delete(o.runtimes, id)
	}
	if st != nil && o.byOwner[st.Owner] == id {
		delete(o.byOwner, st.Owner)
	}
	delete(o.sessions, id)
}

func (o *Orchestrator) release(rt *sessionRuntime) {
	rt.loop.Cancel()
	if rt.unsubscribe != nil {
		rt.unsubscribe()
		rt.unsubscribe = nil
	}
	if rt.miner != nil {
		rt.env.Despawn(rt.miner.ID)
	}
	if rt.guard != nil {
		rt.env.Despawn(rt.guard.ID)
	}
}

func (o *Orchestrator) rebuildRouter(st *session.State, rt *sessionRuntime) {
	bins := make([]router.Bin, 0, len(st.Containers))
	for _, pos := range st.Containers {
		if c, ok := rt.env.Bin(pos); ok {
			bins = append(bins, containerBin{c: c})
		}
	}
	rt.router.SetBins(bins)
}

// pruneMissingBins removes bin positions the world no longer has a container
// for and returns them.
func pruneMissingBins(env Env, st *session.State) [][3]int {
	var missing [][3]int
	kept := st.Containers[:0]
	for _, pos := range st.Containers {
		if _, ok := env.Bin(pos); ok {
			kept = append(kept, pos)
			continue
		}
		missing = append(missing, pos.ToArray())
	}
	st.Containers = kept
	return missing
}

// resumeCursor is the cursor a restart should continue from.
func (o *Orchestrator) resumeCursor(id string) *cursor.Cursor {
	if rt, ok := o.runtimes[id]; ok {
		return rt.loop.ResumeCursor()
	}
	return o.sessions[id].Cursor.Copy()
}
