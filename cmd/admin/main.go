package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"

	"voxelquarry.ai/internal/persistence/sessionstore"
	"voxelquarry.ai/internal/persistence/snapshot"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "sessions":
			sessionsCmd(os.Args[2:])
			return
		case "migrate":
			migrateCmd(os.Args[2:])
			return
		case "db":
			dbCmd(os.Args[2:])
			return
		case "snapshot":
			snapshotCmd(os.Args[2:])
			return
		case "status":
			statusCmd(os.Args[2:])
			return
		case "pause", "resume", "stop":
			controlCmd(os.Args[1], os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin sessions|migrate|db|snapshot|status|pause|resume|stop [flags]")
	os.Exit(2)
}

func storePath(dataDir, file string) string {
	if p := strings.TrimSpace(file); p != "" {
		return p
	}
	return filepath.Join(dataDir, sessionstore.FileName)
}

func sessionsCmd(args []string) {
	fs := pflag.NewFlagSet("sessions", pflag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	file := fs.String("file", "", "session store file (default: <data>/sessions.json.zst)")
	_ = fs.Parse(args)

	stats, err := listSessions(os.Stdout, storePath(*dataDir, *file))
	if err != nil {
		fmt.Fprintln(os.Stderr, "sessions:", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stderr, "records=%d migrated=%d invalid=%d\n", stats.Records, stats.Migrated, stats.Invalid)
}

// listSessions prints one JSON record per line. Legacy records are shown as
// they would be after migration.
func listSessions(w io.Writer, path string) (sessionstore.LoadStats, error) {
	recs, stats, err := sessionstore.ReadFile(path)
	if err != nil {
		return stats, err
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return stats, err
		}
	}
	return stats, nil
}

func migrateCmd(args []string) {
	fs := pflag.NewFlagSet("migrate", pflag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	file := fs.String("file", "", "session store file to read (default: <data>/sessions.json.zst)")
	out := fs.String("out", "", "output path (default: rewrite in place)")
	dryRun := fs.Bool("dry_run", false, "report what would change without writing")
	_ = fs.Parse(args)

	in := storePath(*dataDir, *file)
	dst := strings.TrimSpace(*out)
	if dst == "" {
		dst = in
	}
	stats, err := migrateFile(in, dst, *dryRun)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
	fmt.Printf("records=%d migrated=%d invalid=%d written=%v out=%s\n",
		stats.Records, stats.Migrated, stats.Invalid, !*dryRun, dst)
}

// migrateFile rewrites in into the current format at out. The store lock on
// out is held while writing, so a running server makes this fail.
func migrateFile(in, out string, dryRun bool) (sessionstore.LoadStats, error) {
	recs, stats, err := sessionstore.ReadFile(in)
	if err != nil {
		return stats, err
	}
	if dryRun {
		return stats, nil
	}
	st, err := sessionstore.Open(out, sessionstore.Options{})
	if err != nil {
		if errors.Is(err, sessionstore.ErrLocked) {
			return stats, fmt.Errorf("%s is in use; stop the server first: %w", out, err)
		}
		return stats, err
	}
	defer st.Close()
	if err := sessionstore.WriteFile(out, sessionstore.File{Version: sessionstore.Version, Sessions: recs}); err != nil {
		return stats, err
	}
	return stats, nil
}

type snapshotInfo struct {
	Path       string `json:"path"`
	World      string `json:"world"`
	Tick       uint64 `json:"tick"`
	Seed       int64  `json:"seed"`
	Height     int    `json:"height"`
	SurfaceY   int    `json:"surface_y"`
	Chunks     int    `json:"chunks"`
	Containers int    `json:"containers"`
	Items      int    `json:"items"`
}

func snapshotCmd(args []string) {
	fs := pflag.NewFlagSet("snapshot", pflag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "", "world id (required unless --file)")
	file := fs.String("file", "", "snapshot path (default: latest for --world)")
	_ = fs.Parse(args)

	path := strings.TrimSpace(*file)
	if path == "" {
		if strings.TrimSpace(*worldID) == "" {
			fmt.Fprintln(os.Stderr, "missing --world or --file")
			os.Exit(2)
		}
		path = snapshot.Latest(filepath.Join(*dataDir, "worlds", *worldID, "snapshots"))
		if path == "" {
			fmt.Fprintln(os.Stderr, "no snapshots found")
			os.Exit(2)
		}
	}
	info, err := readSnapshotInfo(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "snapshot:", err)
		os.Exit(1)
	}
	printJSON(info)
}

func readSnapshotInfo(path string) (snapshotInfo, error) {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return snapshotInfo{}, err
	}
	return snapshotInfo{
		Path:       path,
		World:      snap.Header.WorldID,
		Tick:       snap.Header.Tick,
		Seed:       snap.Seed,
		Height:     snap.Height,
		SurfaceY:   snap.SurfaceY,
		Chunks:     len(snap.Chunks),
		Containers: len(snap.Containers),
		Items:      len(snap.Items),
	}, nil
}

func printJSON(v any) { writeJSONLine(os.Stdout, v) }
