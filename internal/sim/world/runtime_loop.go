package world

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

var ErrStopped = errors.New("world loop stopped")

type LoopConfig struct {
	TickRateHz int
}

// Loop owns the tick clock for every world it hosts. Worlds, the scheduler
// and anything registered on it run only on the goroutine inside Run.
type Loop struct {
	cfg    LoopConfig
	sched  *Scheduler
	worlds map[string]*World

	reqs     chan doReq
	stop     chan struct{}
	stopOnce sync.Once

	tick    atomic.Uint64
	metrics atomic.Value
}

type doReq struct {
	fn   func()
	done chan struct{}
}

func NewLoop(cfg LoopConfig) *Loop {
	if cfg.TickRateHz <= 0 {
		cfg.TickRateHz = 20
	}
	return &Loop{
		cfg:    cfg,
		sched:  NewScheduler(),
		worlds: map[string]*World{},
		reqs:   make(chan doReq, 64),
		stop:   make(chan struct{}),
	}
}

func (l *Loop) TickRateHz() int { return l.cfg.TickRateHz }

func (l *Loop) Scheduler() *Scheduler { return l.sched }

// StartAt sets the tick the next StepOnce advances from. Call it before Run.
func (l *Loop) StartAt(tick uint64) {
	l.sched.StartAt(tick)
	l.tick.Store(tick)
}

// CurrentTick is safe to call from any goroutine.
func (l *Loop) CurrentTick() uint64 { return l.tick.Load() }

// Add registers w under its id. A world with the same id is replaced.
func (l *Loop) Add(w *World) {
	w.now = l.sched.Now
	l.worlds[w.ID()] = w
}

func (l *Loop) Resolve(id string) (*World, bool) {
	w, ok := l.worlds[id]
	return w, ok
}

func (l *Loop) WorldIDs() []string {
	out := make([]string, 0, len(l.worlds))
	for id := range l.worlds {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (l *Loop) Run(ctx context.Context) error {
	interval := time.Second / time.Duration(l.cfg.TickRateHz)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.stop:
			return nil
		case req := <-l.reqs:
			req.fn()
			close(req.done)
		case <-ticker.C:
			l.StepOnce()
		}
	}
}

func (l *Loop) Stop() { l.stopOnce.Do(func() { close(l.stop) }) }

// Do runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	req := doReq{fn: fn, done: make(chan struct{})}
	select {
	case l.reqs <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stop:
		return ErrStopped
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// StepOnce advances one tick. Run calls it from the ticker; tests call it directly.
func (l *Loop) StepOnce() uint64 {
	start := time.Now()
	tick := l.sched.Advance()
	l.tick.Store(tick)
	l.publishMetrics(tick, time.Since(start))
	return tick
}

// StepN advances n ticks.
func (l *Loop) StepN(n int) uint64 {
	var tick uint64
	for i := 0; i < n; i++ {
		tick = l.StepOnce()
	}
	return tick
}
