package orchestrator

import (
	"time"

	"voxelquarry.ai/internal/sim/world/feature/quarry/session"
)

// Snapshot returns copies of every session as they should be persisted.
func (o *Orchestrator) Snapshot() []*session.State {
	out := make([]*session.State, 0, len(o.sessions))
	for _, id := range o.sortedIDs() {
		cp := o.sessions[id].Clone()
		cp.Cursor = o.resumeCursor(id)
		cp.WaitingOnStorage = false
		out = append(out, cp)
	}
	return out
}

// SaveAll writes the whole collection to the store and mirrors it to the index.
func (o *Orchestrator) SaveAll() error {
	states := o.Snapshot()
	if o.store != nil {
		start := time.Now()
		err := o.store.SaveAll(states)
		o.opts.Metrics.ObserveSave(time.Since(start), err)
		if err != nil {
			return err
		}
	}
	if o.opts.Index != nil {
		o.opts.Index.UpsertSessions(o.opts.Clock(), states)
	}
	return nil
}

// persist saves after a structural change. Failures are logged only; the next
// change saves again.
func (o *Orchestrator) persist(reason string) {
	if err := o.SaveAll(); err != nil {
		o.log.Printf("save sessions (%s): %v", reason, err)
	}
}

// StartAutosave saves every AutosaveEveryTicks ticks until Shutdown.
func (o *Orchestrator) StartAutosave() {
	if o.cfg.AutosaveEveryTicks <= 0 {
		return
	}
	if o.stopAutosave != nil {
		o.stopAutosave()
	}
	o.stopAutosave = o.sched.Every(o.cfg.AutosaveEveryTicks, func(uint64) { o.persist("autosave") })
}

// Shutdown saves, then cancels every loop and despawns the workers. Sessions
// stay in the store and are restored on the next start.
func (o *Orchestrator) Shutdown() error {
	if o.stopAutosave != nil {
		o.stopAutosave()
		o.stopAutosave = nil
	}
	err := o.SaveAll()
	for _, id := range o.sortedIDs() {
		if rt, ok := o.runtimes[id]; ok {
			o.release(rt)
		}
	}
	o.sessions = map[string]*session.State{}
	o.runtimes = map[string]*sessionRuntime{}
	o.byOwner = map[string]string{}
	return err
}
