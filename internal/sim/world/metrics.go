package world

import "time"

// LoopMetrics is a thread-safe read-only view of key runtime signals.
// It is updated from the loop goroutine and read from HTTP handlers/tests.
type LoopMetrics struct {
	Tick   uint64         `json:"tick"`
	Tasks  int            `json:"tasks"`
	StepMS float64        `json:"step_ms"`
	Worlds []WorldMetrics `json:"worlds"`
}

type WorldMetrics struct {
	ID           string `json:"id"`
	LoadedChunks int    `json:"loaded_chunks"`
	Bins         int    `json:"bins"`
	Items        int    `json:"items"`
	Workers      int    `json:"workers"`
}

func (l *Loop) Metrics() LoopMetrics {
	if l == nil {
		return LoopMetrics{}
	}
	m, ok := l.metrics.Load().(LoopMetrics)
	if !ok {
		return LoopMetrics{}
	}
	return m
}

func (l *Loop) publishMetrics(tick uint64, step time.Duration) {
	m := LoopMetrics{
		Tick:   tick,
		Tasks:  l.sched.Len(),
		StepMS: float64(step.Microseconds()) / 1000.0,
	}
	for _, id := range l.WorldIDs() {
		m.Worlds = append(m.Worlds, l.worlds[id].Metrics())
	}
	l.metrics.Store(m)
}

// Metrics must be called from the loop goroutine.
func (w *World) Metrics() WorldMetrics {
	live := 0
	for _, wk := range w.workers {
		if wk.Valid() {
			live++
		}
	}
	return WorldMetrics{
		ID:           w.cfg.ID,
		LoadedChunks: len(w.chunks.Chunks),
		Bins:         len(w.containers),
		Items:        len(w.items),
		Workers:      live,
	}
}
