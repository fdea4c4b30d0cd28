package main

import (
	"context"

	"voxelquarry.ai/internal/protocol"
	"voxelquarry.ai/internal/sim/world"
	"voxelquarry.ai/internal/sim/world/feature/quarry/orchestrator"
	"voxelquarry.ai/internal/sim/world/feature/quarry/session"
)

// sessionStatus must be called from the loop goroutine.
func sessionStatus(orch *orchestrator.Orchestrator, st *session.State) (protocol.SessionStatus, bool) {
	p, err := orch.Progress(st.ID)
	if err != nil {
		return protocol.SessionStatus{}, false
	}
	return protocol.SessionStatus{
		SessionID:        st.ID,
		World:            st.World,
		Pattern:          st.Pattern,
		Speed:            st.Speed,
		Phase:            p.Phase,
		Layer:            p.Layer,
		LayersLeft:       p.LayersLeft,
		Percent:          p.Percent,
		Bins:             p.Bins,
		Paused:           p.Paused,
		WaitingOnStorage: p.WaitingOnStorage,
	}, true
}

func statusFunc(loop *world.Loop, orch *orchestrator.Orchestrator) func(ctx context.Context, owner string) (protocol.StatusMsg, error) {
	return func(ctx context.Context, owner string) (protocol.StatusMsg, error) {
		msg := protocol.StatusMsg{
			Type:            protocol.TypeStatus,
			ProtocolVersion: protocol.Version,
			Owner:           owner,
			Sessions:        []protocol.SessionStatus{},
		}
		err := loop.Do(ctx, func() {
			msg.Tick = loop.Scheduler().Now()
			for _, st := range orch.List() {
				if st.Owner != owner {
					continue
				}
				if s, ok := sessionStatus(orch, st); ok {
					msg.Sessions = append(msg.Sessions, s)
				}
			}
		})
		return msg, err
	}
}
