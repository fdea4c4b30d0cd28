package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"voxelquarry.ai/internal/sim/world/feature/quarry/orchestrator"
	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

func readJSONL(t *testing.T, dir string) []map[string]any {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(dir, "*.jsonl.zst"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one log file in %s, got %v (%v)", dir, matches, err)
	}
	f, err := os.Open(matches[0])
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		t.Fatalf("zstd: %v", err)
	}
	defer dec.Close()
	var out []map[string]any
	sc := bufio.NewScanner(dec)
	for sc.Scan() {
		var m map[string]any
		if err := json.Unmarshal(sc.Bytes(), &m); err != nil {
			t.Fatalf("line %q: %v", sc.Text(), err)
		}
		out = append(out, m)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return out
}

func TestRecorderWritesBothStreams(t *testing.T) {
	dir := t.TempDir()
	r := NewRecorder(dir, nil)
	var rec orchestrator.Recorder = Fanout{r, nil}

	rec.RecordSession(orchestrator.SessionEvent{Tick: 3, SessionID: "S1", World: "W", Owner: "alice", Kind: orchestrator.EventCreated})
	rec.RecordExtraction(orchestrator.ExtractionEvent{
		Tick:      4,
		SessionID: "S1",
		World:     "W",
		Pos:       [3]int{1, 2, 3},
		Block:     "STONE",
		Items:     []modelpkg.ItemStack{{Item: "COBBLESTONE", Count: 1}},
	})
	rec.RecordSession(orchestrator.SessionEvent{Tick: 9, SessionID: "S1", Kind: orchestrator.EventCompleted})
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	sessions := readJSONL(t, filepath.Join(dir, "sessions"))
	if len(sessions) != 2 || sessions[0]["kind"] != "CREATED" || sessions[1]["kind"] != "COMPLETED" {
		t.Fatalf("sessions log: %v", sessions)
	}
	ext := readJSONL(t, filepath.Join(dir, "extractions"))
	if len(ext) != 1 || ext[0]["block"] != "STONE" || ext[0]["session_id"] != "S1" {
		t.Fatalf("extractions log: %v", ext)
	}
}
