package orchestrator

import (
	"fmt"
	"strings"

	"voxelquarry.ai/internal/sim/world/feature/quarry/pattern"
	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

// Stop cancels the session, despawns its workers and forgets it.
func (o *Orchestrator) Stop(id string) error {
	st, _, err := o.lookup(id)
	if err != nil {
		return err
	}
	o.teardown(id)
	o.emit(st, EventStopped, "")
	o.persist("stop")
	return nil
}

func (o *Orchestrator) Pause(id string) error {
	st, _, err := o.lookup(id)
	if err != nil {
		return err
	}
	if st.Paused {
		return nil
	}
	st.Paused = true
	o.emit(st, EventPaused, "")
	o.persist("pause")
	return nil
}

func (o *Orchestrator) Resume(id string) error {
	st, rt, err := o.lookup(id)
	if err != nil {
		return err
	}
	if !st.Paused {
		return nil
	}
	st.Paused = false
	if !rt.loop.Running() {
		o.start(st, rt)
	}
	o.emit(st, EventResumed, "")
	o.persist("resume")
	return nil
}

// SetPattern swaps the traversal pattern over the same cursor. An in-flight
// target is re-evaluated by the new pattern.
func (o *Orchestrator) SetPattern(id, name string) error {
	st, rt, err := o.lookup(id)
	if err != nil {
		return err
	}
	kind, ok := pattern.ParseKind(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPattern, name)
	}
	if string(kind) == st.Pattern {
		return nil
	}
	p, err := pattern.New(kind, rt.env, st.Cursor, o.patternOptions())
	if err != nil {
		return err
	}
	rt.loop.SetPattern(p)
	st.Pattern = string(kind)
	o.emit(st, EventPatternChanged, st.Pattern)
	o.persist("pattern")
	return nil
}

// SetSpeed changes the ticks-per-stage tier and reschedules a running loop.
func (o *Orchestrator) SetSpeed(id, name string) error {
	st, rt, err := o.lookup(id)
	if err != nil {
		return err
	}
	name = strings.ToUpper(strings.TrimSpace(name))
	if _, ok := o.cfg.Quarry.SpeedTicks(name); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownSpeed, name)
	}
	if name == st.Speed {
		return nil
	}
	st.Speed = name
	if rt.loop.Running() {
		o.start(st, rt)
	}
	o.emit(st, EventSpeedChanged, name)
	o.persist("speed")
	return nil
}

func (o *Orchestrator) Trust(id, actor string) error {
	st, _, err := o.lookup(id)
	if err != nil {
		return err
	}
	if st.Trust(actor) {
		o.persist("trust")
	}
	return nil
}

func (o *Orchestrator) Untrust(id, actor string) error {
	st, _, err := o.lookup(id)
	if err != nil {
		return err
	}
	if st.Untrust(actor) {
		o.persist("untrust")
	}
	return nil
}

// AddBin appends an existing world bin to the session's output list.
func (o *Orchestrator) AddBin(id string, pos modelpkg.Vec3i) error {
	st, rt, err := o.lookup(id)
	if err != nil {
		return err
	}
	if _, ok := rt.env.Bin(pos); !ok {
		return fmt.Errorf("%w: %v", ErrBinNotFound, pos.ToArray())
	}
	if !st.AddContainer(pos) {
		return nil
	}
	o.rebuildRouter(st, rt)
	o.emit(st, EventBinAdded, fmt.Sprint(pos.ToArray()))
	o.persist("bin add")
	return nil
}

func (o *Orchestrator) RemoveBin(id string, pos modelpkg.Vec3i) error {
	st, rt, err := o.lookup(id)
	if err != nil {
		return err
	}
	if !st.RemoveContainer(pos) {
		return fmt.Errorf("%w: %v", ErrBinNotFound, pos.ToArray())
	}
	o.rebuildRouter(st, rt)
	o.emit(st, EventBinRemoved, fmt.Sprint(pos.ToArray()))
	o.persist("bin remove")
	return nil
}

// onBinRemoved reacts to a bin disappearing from the world.
func (o *Orchestrator) onBinRemoved(id string, pos modelpkg.Vec3i) {
	st, rt, err := o.lookup(id)
	if err != nil || !st.RemoveContainer(pos) {
		return
	}
	o.rebuildRouter(st, rt)
	o.emit(st, EventBinRemoved, "removed from world")
	o.persist("bin removed")
}
