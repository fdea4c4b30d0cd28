package archive

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voxelquarry.ai/internal/persistence/snapshot"
)

// Meta is written next to each archived snapshot as <tick>.meta.json.
type Meta struct {
	World      string `json:"world"`
	Tick       uint64 `json:"tick"`
	Snapshot   string `json:"snapshot"`
	Bytes      int64  `json:"bytes"`
	ArchivedAt string `json:"archived_at"`
}

// Rotate keeps the newest keep snapshots in worldDir/snapshots and moves the
// older ones into worldDir/archives. keep <= 0 keeps everything. It returns
// the archived paths.
func Rotate(worldDir string, keep int) ([]string, error) {
	if keep <= 0 {
		return nil, nil
	}
	list := snapshot.List(filepath.Join(worldDir, "snapshots"))
	if len(list) <= keep {
		return nil, nil
	}
	archiveDir := filepath.Join(worldDir, "archives")
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return nil, err
	}

	var out []string
	for _, e := range list[:len(list)-keep] {
		dst := filepath.Join(archiveDir, filepath.Base(e.Path))
		n, err := moveFile(e.Path, dst)
		if err != nil {
			return out, err
		}
		meta := Meta{
			World:      filepath.Base(worldDir),
			Tick:       e.Tick,
			Snapshot:   filepath.Base(dst),
			Bytes:      n,
			ArchivedAt: time.Now().UTC().Format(time.RFC3339Nano),
		}
		if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
			name := strings.TrimSuffix(filepath.Base(dst), ".snap.zst") + ".meta.json"
			_ = os.WriteFile(filepath.Join(archiveDir, name), b, 0o644)
		}
		out = append(out, dst)
	}
	return out, nil
}

// moveFile renames src to dst, falling back to copy+remove across devices.
func moveFile(src, dst string) (int64, error) {
	fi, err := os.Stat(src)
	if err != nil {
		return 0, err
	}
	if err := os.Rename(src, dst); err == nil {
		return fi.Size(), nil
	}
	if err := copyFile(src, dst); err != nil {
		return 0, err
	}
	return fi.Size(), os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
