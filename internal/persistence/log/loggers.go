package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	stdlog "log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"voxelquarry.ai/internal/sim/world/feature/quarry/orchestrator"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// ExtractionLogger writes one JSONL entry per extracted cell (compressed).
type ExtractionLogger struct{ w *JSONLZstdWriter }

func NewExtractionLogger(worldDir string) *ExtractionLogger {
	return &ExtractionLogger{w: NewJSONLZstdWriter(filepath.Join(worldDir, "extractions"), "extractions")}
}

func (l *ExtractionLogger) WriteExtraction(v orchestrator.ExtractionEvent) error { return l.w.Write(v) }
func (l *ExtractionLogger) Close() error                                        { return l.w.Close() }

// SessionLogger writes session lifecycle JSONL entries (compressed).
type SessionLogger struct{ w *JSONLZstdWriter }

func NewSessionLogger(worldDir string) *SessionLogger {
	return &SessionLogger{w: NewJSONLZstdWriter(filepath.Join(worldDir, "sessions"), "sessions")}
}

func (l *SessionLogger) WriteSession(v orchestrator.SessionEvent) error { return l.w.Write(v) }
func (l *SessionLogger) Close() error                                  { return l.w.Close() }

// Recorder routes orchestrator events to both loggers. Write errors are
// logged and otherwise ignored so the tick path never fails on disk trouble.
type Recorder struct {
	Extractions *ExtractionLogger
	Sessions    *SessionLogger
	Log         *stdlog.Logger
}

func NewRecorder(dir string, logger *stdlog.Logger) *Recorder {
	return &Recorder{
		Extractions: NewExtractionLogger(dir),
		Sessions:    NewSessionLogger(dir),
		Log:         logger,
	}
}

func (r *Recorder) RecordExtraction(ev orchestrator.ExtractionEvent) {
	if err := r.Extractions.WriteExtraction(ev); err != nil && r.Log != nil {
		r.Log.Printf("extraction log: %v", err)
	}
}

func (r *Recorder) RecordSession(ev orchestrator.SessionEvent) {
	if err := r.Sessions.WriteSession(ev); err != nil && r.Log != nil {
		r.Log.Printf("session log: %v", err)
	}
}

func (r *Recorder) Close() error {
	err1 := r.Extractions.Close()
	err2 := r.Sessions.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

// Fanout delivers every event to each non-nil recorder in order.
type Fanout []orchestrator.Recorder

func (f Fanout) RecordExtraction(ev orchestrator.ExtractionEvent) {
	for _, r := range f {
		if r != nil {
			r.RecordExtraction(ev)
		}
	}
}

func (f Fanout) RecordSession(ev orchestrator.SessionEvent) {
	for _, r := range f {
		if r != nil {
			r.RecordSession(ev)
		}
	}
}
