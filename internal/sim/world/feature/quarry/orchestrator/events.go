package orchestrator

import (
	"voxelquarry.ai/internal/sim/world/feature/quarry/session"
	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

type EventKind string

const (
	EventCreated         EventKind = "CREATED"
	EventRestored        EventKind = "RESTORED"
	EventPaused          EventKind = "PAUSED"
	EventResumed         EventKind = "RESUMED"
	EventStopped         EventKind = "STOPPED"
	EventCompleted       EventKind = "COMPLETED"
	EventTerminated      EventKind = "TERMINATED"
	EventStorageBlocked  EventKind = "STORAGE_BLOCKED"
	EventStorageFreed    EventKind = "STORAGE_FREED"
	EventWorkerRespawned EventKind = "WORKER_RESPAWNED"
	EventPatternChanged  EventKind = "PATTERN_CHANGED"
	EventSpeedChanged    EventKind = "SPEED_CHANGED"
	EventBinAdded        EventKind = "BIN_ADDED"
	EventBinRemoved      EventKind = "BIN_REMOVED"
)

// SessionEvent is a lifecycle change of one session.
type SessionEvent struct {
	Tick      uint64    `json:"tick"`
	SessionID string    `json:"session_id"`
	World     string    `json:"world"`
	Owner     string    `json:"owner"`
	Kind      EventKind `json:"kind"`
	Reason    string    `json:"reason,omitempty"`
}

// ExtractionEvent is one broken cell and where its yield went.
type ExtractionEvent struct {
	Tick      uint64               `json:"tick"`
	SessionID string               `json:"session_id"`
	World     string               `json:"world"`
	Pos       [3]int               `json:"pos"`
	Block     string               `json:"block"`
	Items     []modelpkg.ItemStack `json:"items,omitempty"`
	Leftover  []modelpkg.ItemStack `json:"leftover,omitempty"`
}

func (o *Orchestrator) emit(st *session.State, kind EventKind, reason string) {
	ev := SessionEvent{
		Tick:      o.opts.Clock(),
		SessionID: st.ID,
		World:     st.World,
		Owner:     st.Owner,
		Kind:      kind,
		Reason:    reason,
	}
	if o.opts.Recorder != nil {
		o.opts.Recorder.RecordSession(ev)
	}
	if o.opts.Notifier != nil {
		o.opts.Notifier.Notify(ev)
	}
	o.opts.Metrics.SessionEvent(string(kind))
	o.updateGauges()
}

func (o *Orchestrator) updateGauges() {
	waiting := 0
	for _, st := range o.sessions {
		if st.WaitingOnStorage {
			waiting++
		}
	}
	o.opts.Metrics.SetSessions(len(o.sessions), waiting)
}
