// Package sessionstore persists the session collection as one zstd-compressed
// JSON document and migrates legacy records on load.
package sessionstore

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/klauspost/compress/zstd"

	"voxelquarry.ai/internal/sim/world/feature/quarry/session"
)

// Version is the file format written by SaveAll. Version 1 files hold legacy
// records only.
const Version = 2

const FileName = "sessions.json.zst"

var (
	ErrLocked             = errors.New("session store locked by another process")
	ErrUnsupportedVersion = errors.New("unsupported session store version")
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// File is the on-disk document.
type File struct {
	Version  int      `json:"version"`
	Sessions []Record `json:"sessions"`
}

type rawFile struct {
	Version  int               `json:"version"`
	Sessions []json.RawMessage `json:"sessions"`
}

// LoadStats counts what happened to each record during Load.
type LoadStats struct {
	Records      int
	Migrated     int
	Invalid      int
	UnknownWorld int
}

type Options struct {
	Log      *log.Logger
	Defaults Defaults
}

// Store owns one session file. It holds an exclusive lock next to the file
// until Close.
type Store struct {
	path string
	log  *log.Logger
	def  Defaults
	lock *flock.Flock
}

func Open(path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("session store: empty path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock session store: %w", err)
	}
	if !locked {
		return nil, ErrLocked
	}
	logger := opts.Log
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Store{path: path, log: logger, def: opts.Defaults, lock: lock}, nil
}

func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s == nil || s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}

// Load reads every session. Records that fail validation or reference a world
// rejected by known are dropped; the drops are logged once as counts. A
// missing file is an empty collection.
func (s *Store) Load(known func(world string) bool) ([]*session.State, LoadStats, error) {
	var stats LoadStats
	recs, st, err := ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, stats, nil
	}
	if err != nil {
		return nil, stats, err
	}
	stats = st

	out := make([]*session.State, 0, len(recs))
	for _, r := range recs {
		if known != nil && !known(r.World) {
			stats.UnknownWorld++
			continue
		}
		state, err := r.ToState(s.def)
		if err != nil {
			stats.Invalid++
			continue
		}
		out = append(out, state)
	}
	if stats.Invalid > 0 || stats.UnknownWorld > 0 || stats.Migrated > 0 {
		s.log.Printf("sessions: loaded %d of %d (migrated %d, invalid %d, unknown world %d)",
			len(out), stats.Records, stats.Migrated, stats.Invalid, stats.UnknownWorld)
	}
	return out, stats, nil
}

// SaveAll replaces the file with states. Readers see either the old or the new
// collection, never a mix.
func (s *Store) SaveAll(states []*session.State) error {
	f := File{Version: Version, Sessions: make([]Record, 0, len(states))}
	for _, st := range states {
		f.Sessions = append(f.Sessions, FromState(st))
	}
	return WriteFile(s.path, f)
}

// ReadFile decodes path, validating each record against the session schema
// and migrating legacy ones. Both zstd and plain JSON files are accepted.
func ReadFile(path string) ([]Record, LoadStats, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, LoadStats{}, err
	}
	return Decode(b)
}

func Decode(b []byte) ([]Record, LoadStats, error) {
	var stats LoadStats
	if bytes.HasPrefix(b, zstdMagic) {
		dec, err := zstd.NewReader(nil)
		if err != nil {
			return nil, stats, err
		}
		defer dec.Close()
		b, err = dec.DecodeAll(b, nil)
		if err != nil {
			return nil, stats, fmt.Errorf("decompress sessions: %w", err)
		}
	}
	var raw rawFile
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, stats, fmt.Errorf("decode sessions: %w", err)
	}
	if raw.Version > Version {
		return nil, stats, fmt.Errorf("%w: %d", ErrUnsupportedVersion, raw.Version)
	}

	out := make([]Record, 0, len(raw.Sessions))
	for _, msg := range raw.Sessions {
		stats.Records++
		if err := validateRecord(msg); err != nil {
			stats.Invalid++
			continue
		}
		var r Record
		if err := json.Unmarshal(msg, &r); err != nil {
			stats.Invalid++
			continue
		}
		if r.Legacy() {
			r = Migrate(r)
			stats.Migrated++
		}
		out = append(out, r)
	}
	return out, stats, nil
}

// WriteFile writes f atomically through a temp file in the same directory.
func WriteFile(path string, f File) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	if f.Version == 0 {
		f.Version = Version
	}
	tmp := path + ".tmp"
	if err := writeFile(tmp, f); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}

func writeFile(path string, f File) error {
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	enc, err := zstd.NewWriter(out, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(enc)
	if err := json.NewEncoder(bw).Encode(f); err != nil {
		return fmt.Errorf("encode sessions: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return out.Sync()
}
