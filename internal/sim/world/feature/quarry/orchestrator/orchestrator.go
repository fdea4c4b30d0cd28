// Package orchestrator owns every live session and wires each one to its
// pattern, router, loop and workers.
package orchestrator

import (
	"errors"
	"io"
	"log"
	"sort"

	"github.com/google/uuid"

	"voxelquarry.ai/internal/sim/tuning"
	"voxelquarry.ai/internal/sim/world/feature/quarry/metrics"
	"voxelquarry.ai/internal/sim/world/feature/quarry/router"
	"voxelquarry.ai/internal/sim/world/feature/quarry/runtime"
	"voxelquarry.ai/internal/sim/world/feature/quarry/session"
	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

var (
	ErrOwnerBusy       = errors.New("owner already has an active session")
	ErrSessionNotFound = errors.New("session not found")
	ErrWorldNotFound   = errors.New("world not found")
	ErrCornersNotLevel = errors.New("corners must be at the same depth")
	ErrUnknownPattern  = errors.New("unknown pattern")
	ErrUnknownSpeed    = errors.New("unknown speed")
	ErrVolumeTooLarge  = errors.New("volume too large")
	ErrBelowFloor      = errors.New("volume starts below the depth floor")
	ErrBinNotFound     = errors.New("no output bin at position")
	ErrNotAuthorized   = errors.New("not authorized")
)

// WorkerSpawner creates and removes the cosmetic worker entities.
type WorkerSpawner interface {
	SpawnWorker(kind modelpkg.WorkerKind, owner string, pos modelpkg.Vec3i) *modelpkg.Worker
	Despawn(id string) bool
}

// Env is one world as seen by the orchestrator.
type Env interface {
	runtime.Env
	WorkerSpawner
	ID() string
	Bin(pos modelpkg.Vec3i) (*modelpkg.Container, bool)
	OnBinRemoved(fn func(pos modelpkg.Vec3i)) (unsubscribe func())
	PlaceLight(pos modelpkg.Vec3i) bool
	BlockName(block uint16) string
}

type WorldResolver interface {
	ResolveWorld(id string) (Env, bool)
}

type ResolverFunc func(id string) (Env, bool)

func (f ResolverFunc) ResolveWorld(id string) (Env, bool) { return f(id) }

// Store persists the full session collection.
type Store interface {
	SaveAll(states []*session.State) error
}

// SessionIndex mirrors saved sessions into a read model.
type SessionIndex interface {
	UpsertSessions(tick uint64, states []*session.State)
}

type Notifier interface {
	Notify(ev SessionEvent)
}

type Recorder interface {
	RecordSession(ev SessionEvent)
	RecordExtraction(ev ExtractionEvent)
}

// Authorizer is asked on every completion cycle; a false answer tears the
// session down.
type Authorizer interface {
	MayOperate(owner, world string) bool
}

// Decorator runs after each extracted cell when structure mutation is allowed.
type Decorator interface {
	Decorate(env Env, st *session.State, pos modelpkg.Vec3i)
}

type Config struct {
	Quarry             tuning.Quarry
	AutosaveEveryTicks int
}

func ConfigFromTuning(t tuning.Tuning) Config {
	return Config{Quarry: t.Quarry, AutosaveEveryTicks: t.AutosaveEveryTicks}
}

type Options struct {
	Config    Config
	Log       *log.Logger
	Scheduler runtime.Scheduler
	Worlds    WorldResolver

	// Optional.
	Store      Store
	Index      SessionIndex
	Notifier   Notifier
	Recorder   Recorder
	Authorizer Authorizer
	Decorator  Decorator
	Metrics    *metrics.Collectors
	// Clock returns the current tick for event records.
	Clock func() uint64
	NewID func() string
}

// Orchestrator is not safe for concurrent use; call it from the loop goroutine.
type Orchestrator struct {
	cfg   Config
	log   *log.Logger
	sched runtime.Scheduler
	store Store
	opts  Options

	sessions map[string]*session.State
	runtimes map[string]*sessionRuntime
	byOwner  map[string]string

	stopAutosave func()
}

type sessionRuntime struct {
	env         Env
	router      *router.Router
	loop        *runtime.Loop
	miner       *modelpkg.Worker
	guard       *modelpkg.Worker
	unsubscribe func()
}

func New(opts Options) (*Orchestrator, error) {
	if opts.Scheduler == nil {
		return nil, errors.New("orchestrator: nil scheduler")
	}
	if opts.Worlds == nil {
		return nil, errors.New("orchestrator: nil world resolver")
	}
	if opts.Log == nil {
		opts.Log = log.New(io.Discard, "", 0)
	}
	if opts.Clock == nil {
		opts.Clock = func() uint64 { return 0 }
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	if opts.Decorator == nil {
		opts.Decorator = LightDecorator{Spacing: 5}
	}
	return &Orchestrator{
		cfg:      opts.Config,
		log:      opts.Log,
		sched:    opts.Scheduler,
		store:    opts.Store,
		opts:     opts,
		sessions: map[string]*session.State{},
		runtimes: map[string]*sessionRuntime{},
		byOwner:  map[string]string{},
	}, nil
}

// SetNotifier replaces the notifier. Call it before Restore or Create; the
// notifier usually needs the orchestrator itself to answer status requests.
func (o *Orchestrator) SetNotifier(n Notifier) { o.opts.Notifier = n }

// List returns copies of every session sorted by id.
func (o *Orchestrator) List() []*session.State {
	out := make([]*session.State, 0, len(o.sessions))
	for _, id := range o.sortedIDs() {
		out = append(out, o.sessions[id].Clone())
	}
	return out
}

func (o *Orchestrator) Get(id string) (*session.State, bool) {
	st, ok := o.sessions[id]
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

// SessionFor returns the active session id of owner.
func (o *Orchestrator) SessionFor(owner string) (string, bool) {
	id, ok := o.byOwner[owner]
	return id, ok
}

func (o *Orchestrator) Len() int { return len(o.sessions) }

// CheckControl reports ErrNotAuthorized unless actor owns or is trusted on the session.
func (o *Orchestrator) CheckControl(id, actor string) error {
	st, ok := o.sessions[id]
	if !ok {
		return ErrSessionNotFound
	}
	if !st.CanControl(actor) {
		return ErrNotAuthorized
	}
	return nil
}

func (o *Orchestrator) sortedIDs() []string {
	ids := make([]string, 0, len(o.sessions))
	for id := range o.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (o *Orchestrator) lookup(id string) (*session.State, *sessionRuntime, error) {
	st, ok := o.sessions[id]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	rt, ok := o.runtimes[id]
	if !ok {
		return nil, nil, ErrSessionNotFound
	}
	return st, rt, nil
}

type containerBin struct{ c *modelpkg.Container }

func (b containerBin) Pos() modelpkg.Vec3i { return b.c.Pos }

func (b containerBin) Insert(items []modelpkg.ItemStack) []modelpkg.ItemStack {
	return b.c.Insert(items)
}

func (b containerBin) HasFreeSpace() bool { return b.c.HasFreeSpace() }
