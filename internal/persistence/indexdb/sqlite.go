package indexdb

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"voxelquarry.ai/internal/persistence/snapshot"
	"voxelquarry.ai/internal/sim/catalogs"
	"voxelquarry.ai/internal/sim/tuning"
	"voxelquarry.ai/internal/sim/world/feature/quarry/orchestrator"
	"voxelquarry.ai/internal/sim/world/feature/quarry/session"
)

// SQLiteIndex is a queryable read model of sessions and their history. The
// session file and JSONL logs stay the source of truth; writes are queued and
// dropped when the writer falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropSessions    atomic.Uint64
	dropEvents      atomic.Uint64
	dropExtractions atomic.Uint64
	dropSnapshots   atomic.Uint64
}

type reqKind int

const (
	reqSessions reqKind = iota + 1
	reqEvent
	reqExtraction
	reqSnapshot
)

type req struct {
	kind reqKind

	tick       uint64
	sessions   []sessionRow
	event      orchestrator.SessionEvent
	extraction orchestrator.ExtractionEvent
	snapshot   snapshotRow
}

type sessionRow struct {
	ID      string
	World   string
	Owner   string
	Base    [3]int
	Width   int
	Length  int
	Pattern string
	Speed   string
	Cursor  [3]int
	Paused  bool
	Bins    int
	Trusted []string
	Raw     []byte
}

type snapshotRow struct {
	Tick       uint64
	Path       string
	WorldID    string
	Seed       int64
	Height     int
	Chunks     int
	Containers int
	Items      int
}

type Stats struct {
	QueueDepth    int `json:"queue_depth"`
	QueueCapacity int `json:"queue_capacity"`

	DropSessionsTotal   uint64 `json:"drop_sessions_total"`
	DropEventTotal      uint64 `json:"drop_event_total"`
	DropExtractionTotal uint64 `json:"drop_extraction_total"`
	DropSnapshotTotal   uint64 `json:"drop_snapshot_total"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		// Extractions arrive one per cell per session; keep enough headroom for bursts.
		ch: make(chan req, 65536),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			world TEXT NOT NULL,
			owner TEXT NOT NULL,
			base_x INTEGER NOT NULL,
			base_y INTEGER NOT NULL,
			base_z INTEGER NOT NULL,
			width INTEGER NOT NULL,
			length INTEGER NOT NULL,
			pattern TEXT NOT NULL,
			speed TEXT NOT NULL,
			cursor_x INTEGER NOT NULL,
			cursor_y INTEGER NOT NULL,
			cursor_z INTEGER NOT NULL,
			paused INTEGER NOT NULL,
			bins INTEGER NOT NULL,
			trusted_json TEXT NOT NULL,
			updated_tick INTEGER NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_owner ON sessions(owner);`,
		`CREATE TABLE IF NOT EXISTS session_events (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			world TEXT NOT NULL,
			owner TEXT NOT NULL,
			kind TEXT NOT NULL,
			reason TEXT,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id, tick);`,
		`CREATE TABLE IF NOT EXISTS extractions (
			tick INTEGER NOT NULL,
			seq INTEGER NOT NULL,
			session_id TEXT NOT NULL,
			world TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			block TEXT NOT NULL,
			items INTEGER NOT NULL,
			leftover INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (tick, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_extractions_session_tick ON extractions(session_id, tick);`,
		`CREATE INDEX IF NOT EXISTS idx_extractions_pos ON extractions(world, x, z, y);`,
		`CREATE TABLE IF NOT EXISTS snapshots (
			tick INTEGER NOT NULL,
			world TEXT NOT NULL,
			path TEXT NOT NULL,
			seed INTEGER NOT NULL,
			height INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			containers INTEGER NOT NULL,
			items INTEGER NOT NULL,
			PRIMARY KEY (world, tick)
		);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:          len(s.ch),
		QueueCapacity:       cap(s.ch),
		DropSessionsTotal:   s.dropSessions.Load(),
		DropEventTotal:      s.dropEvents.Load(),
		DropExtractionTotal: s.dropExtractions.Load(),
		DropSnapshotTotal:   s.dropSnapshots.Load(),
	}
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind.
		drops.Add(1)
	}
}

// UpsertSessions replaces the sessions table with states.
func (s *SQLiteIndex) UpsertSessions(tick uint64, states []*session.State) {
	if s == nil || s.closed.Load() {
		return
	}
	rows := make([]sessionRow, 0, len(states))
	for _, st := range states {
		raw, _ := json.Marshal(st)
		rows = append(rows, sessionRow{
			ID:      st.ID,
			World:   st.World,
			Owner:   st.Owner,
			Base:    st.Base.ToArray(),
			Width:   st.Width,
			Length:  st.Length,
			Pattern: st.Pattern,
			Speed:   st.Speed,
			Cursor:  st.Cursor.Pos().ToArray(),
			Paused:  st.Paused,
			Bins:    len(st.Containers),
			Trusted: st.TrustedList(),
			Raw:     raw,
		})
	}
	s.enqueue(req{kind: reqSessions, tick: tick, sessions: rows}, &s.dropSessions)
}

func (s *SQLiteIndex) RecordSession(ev orchestrator.SessionEvent) {
	s.enqueue(req{kind: reqEvent, event: ev}, &s.dropEvents)
}

func (s *SQLiteIndex) RecordExtraction(ev orchestrator.ExtractionEvent) {
	s.enqueue(req{kind: reqExtraction, extraction: ev}, &s.dropExtractions)
}

func (s *SQLiteIndex) RecordSnapshot(path string, snap snapshot.SnapshotV1) {
	if s == nil {
		return
	}
	r := snapshotRow{
		Tick:       snap.Header.Tick,
		Path:       path,
		WorldID:    snap.Header.WorldID,
		Seed:       snap.Seed,
		Height:     snap.Height,
		Chunks:     len(snap.Chunks),
		Containers: len(snap.Containers),
		Items:      len(snap.Items),
	}
	s.enqueue(req{kind: reqSnapshot, snapshot: r}, &s.dropSnapshots)
}

// UpsertCatalogs stores the block definitions and the applied tuning so index
// readers can interpret block names and speeds.
func (s *SQLiteIndex) UpsertCatalogs(configDir string, cats *catalogs.Catalogs, tune tuning.Tuning) error {
	if s == nil {
		return nil
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	digest := func(b []byte) string {
		sum := sha256.Sum256(b)
		return hex.EncodeToString(sum[:])
	}
	var rows []kv
	if configDir != "" {
		if b, err := os.ReadFile(filepath.Join(configDir, "blocks.json")); err == nil && len(b) > 0 {
			rows = append(rows, kv{name: "blocks_defs", digest: digest(b), json: b})
		}
	}
	if cats != nil {
		if b, _ := json.Marshal(cats.Blocks.Palette); len(b) > 0 {
			rows = append(rows, kv{name: "blocks_palette", digest: digest(b), json: b})
		}
	}
	if b, _ := json.Marshal(tune); len(b) > 0 {
		rows = append(rows, kv{name: "tuning", digest: digest(b), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertSession, _ := s.db.Prepare(`INSERT OR REPLACE INTO sessions(id,world,owner,base_x,base_y,base_z,width,length,pattern,speed,cursor_x,cursor_y,cursor_z,paused,bins,trusted_json,updated_tick,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`)
	insertEvent, _ := s.db.Prepare(`INSERT OR REPLACE INTO session_events(tick,seq,session_id,world,owner,kind,reason) VALUES(?,?,?,?,?,?,?)`)
	insertExtraction, _ := s.db.Prepare(`INSERT OR REPLACE INTO extractions(tick,seq,session_id,world,x,y,z,block,items,leftover,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`)
	insertSnapshot, _ := s.db.Prepare(`INSERT OR REPLACE INTO snapshots(tick,world,path,seed,height,chunks,containers,items) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertSession, insertEvent, insertExtraction, insertSnapshot} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second

		// Rows sharing a tick are ordered by seq.
		lastEventTick uint64
		eventSeq      int
		lastExtTick   uint64
		extSeq        int
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	for r := range s.ch {
		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqSessions:
			if _, err := tx.Exec(`DELETE FROM sessions`); err != nil {
				rollback()
				continue
			}
			if insertSession == nil {
				continue
			}
			for _, row := range r.sessions {
				trusted, _ := json.Marshal(row.Trusted)
				paused := 0
				if row.Paused {
					paused = 1
				}
				if _, err := tx.Stmt(insertSession).Exec(
					row.ID, row.World, row.Owner,
					row.Base[0], row.Base[1], row.Base[2],
					row.Width, row.Length, row.Pattern, row.Speed,
					row.Cursor[0], row.Cursor[1], row.Cursor[2],
					paused, row.Bins, string(trusted), int64(r.tick), string(row.Raw),
				); err != nil {
					rollback()
					break
				}
				opCount++
			}
			// The table must reflect one whole collection.
			commit()

		case reqEvent:
			ev := r.event
			if ev.Tick != lastEventTick {
				lastEventTick = ev.Tick
				eventSeq = 0
			}
			seq := eventSeq
			eventSeq++
			if insertEvent != nil {
				if _, err := tx.Stmt(insertEvent).Exec(int64(ev.Tick), seq, ev.SessionID, ev.World, ev.Owner, string(ev.Kind), ev.Reason); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqExtraction:
			ev := r.extraction
			if ev.Tick != lastExtTick {
				lastExtTick = ev.Tick
				extSeq = 0
			}
			seq := extSeq
			extSeq++
			raw, _ := json.Marshal(ev)
			if insertExtraction != nil {
				if _, err := tx.Stmt(insertExtraction).Exec(
					int64(ev.Tick), seq, ev.SessionID, ev.World,
					ev.Pos[0], ev.Pos[1], ev.Pos[2],
					ev.Block, countItems(ev.Items), countItems(ev.Leftover), string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSnapshot:
			sn := r.snapshot
			if insertSnapshot != nil {
				if _, err := tx.Stmt(insertSnapshot).Exec(
					int64(sn.Tick), sn.WorldID, sn.Path, sn.Seed, sn.Height,
					sn.Chunks, sn.Containers, sn.Items,
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}

	commit()
}
