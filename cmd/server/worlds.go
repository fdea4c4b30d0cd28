package main

import (
	"log"
	"path/filepath"
	"sync"

	"voxelquarry.ai/internal/persistence/archive"
	"voxelquarry.ai/internal/persistence/snapshot"
	"voxelquarry.ai/internal/sim/catalogs"
	"voxelquarry.ai/internal/sim/tuning"
	"voxelquarry.ai/internal/sim/world"
)

type worldOptions struct {
	ID   string
	Seed int64
	// Dir holds the world's snapshots directory.
	Dir        string
	LoadLatest bool
}

func worldDir(dataDir, id string) string {
	return filepath.Join(dataDir, "worlds", id)
}

func snapshotDir(dataDir, id string) string {
	return filepath.Join(worldDir(dataDir, id), "snapshots")
}

func anySnapshot(dataDir string, ids []string) bool {
	for _, id := range ids {
		if snapshot.Latest(snapshotDir(dataDir, id)) != "" {
			return true
		}
	}
	return false
}

// openWorld creates a fresh world or resumes it from its latest snapshot. It
// returns the tick the world was saved at (zero when fresh).
func openWorld(opts worldOptions, tune tuning.Tuning, cats *catalogs.Catalogs, logger *log.Logger) (*world.World, uint64, error) {
	path := ""
	if opts.LoadLatest {
		path = snapshot.Latest(filepath.Join(opts.Dir, "snapshots"))
	}
	if path == "" {
		w, err := world.New(world.WorldConfig{
			ID:        opts.ID,
			Seed:      opts.Seed,
			Height:    tune.WorldHeight,
			BoundaryR: tune.WorldBoundaryR,
		}, cats)
		return w, 0, err
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return nil, 0, err
	}
	// Generator parameters come from the snapshot so unloaded chunks regenerate
	// the same way they did before.
	w, err := world.New(world.WorldConfig{
		ID:        opts.ID,
		Seed:      snap.Seed,
		Height:    snap.Height,
		SurfaceY:  snap.SurfaceY,
		BoundaryR: snap.BoundaryR,
	}, cats)
	if err != nil {
		return nil, 0, err
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return nil, 0, err
	}
	logger.Printf("world %s resumed from snapshot=%s tick=%d", opts.ID, filepath.Base(path), snap.Header.Tick)
	return w, snap.Header.Tick, nil
}

type snapshotRecorder interface {
	RecordSnapshot(path string, snap snapshot.SnapshotV1)
}

// snapshotter exports every world on the loop goroutine and writes the files
// on its own goroutine.
type snapshotter struct {
	loop    *world.Loop
	dataDir string
	index   snapshotRecorder
	log     *log.Logger
	// keep is how many snapshots stay in each world's snapshots dir; older
	// ones move to archives. Zero keeps everything.
	keep int

	ch chan snapshot.SnapshotV1
	wg sync.WaitGroup
}

// idx may be nil.
func newSnapshotter(loop *world.Loop, dataDir string, keep int, idx snapshotRecorder, logger *log.Logger) *snapshotter {
	return &snapshotter{
		loop:    loop,
		dataDir: dataDir,
		index:   idx,
		log:     logger,
		keep:    keep,
		ch:      make(chan snapshot.SnapshotV1, 8),
	}
}

func (s *snapshotter) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for snap := range s.ch {
			s.write(snap)
		}
	}()
}

// Capture must run on the loop goroutine, or after the loop has stopped.
func (s *snapshotter) Capture(tick uint64) {
	for _, id := range s.loop.WorldIDs() {
		w, ok := s.loop.Resolve(id)
		if !ok {
			continue
		}
		select {
		case s.ch <- w.ExportSnapshot(tick):
		default:
			s.log.Printf("snapshot queue full; skipping world=%s tick=%d", id, tick)
		}
	}
}

func (s *snapshotter) write(snap snapshot.SnapshotV1) {
	path := snapshot.PathForTick(snapshotDir(s.dataDir, snap.Header.WorldID), snap.Header.Tick)
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		s.log.Printf("snapshot write failed: %v", err)
		return
	}
	if s.index != nil {
		s.index.RecordSnapshot(path, snap)
	}
	archived, err := archive.Rotate(worldDir(s.dataDir, snap.Header.WorldID), s.keep)
	if err != nil {
		s.log.Printf("snapshot rotate failed: %v", err)
	}
	if len(archived) > 0 {
		s.log.Printf("archived %d snapshot(s) world=%s", len(archived), snap.Header.WorldID)
	}
}

// Close drains queued snapshots and waits for the writer.
func (s *snapshotter) Close() {
	close(s.ch)
	s.wg.Wait()
}

// Final writes every world synchronously. Call it after Close, once the loop
// has stopped.
func (s *snapshotter) Final(tick uint64) {
	for _, id := range s.loop.WorldIDs() {
		if w, ok := s.loop.Resolve(id); ok {
			s.write(w.ExportSnapshot(tick))
		}
	}
}
