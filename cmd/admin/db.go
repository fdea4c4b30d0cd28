package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"

	"voxelquarry.ai/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := pflag.NewFlagSet("db", pflag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (default: <data>/index/quarry.sqlite)")
	sessionID := fs.String("session", "", "session id (required for events; optional filter for extractions)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "sessions"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "quarry.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}

	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := runQuery(ctx, os.Stdout, idx, q, *sessionID, *limit); err != nil {
		fmt.Fprintln(os.Stderr, q+":", err)
		os.Exit(1)
	}
}

type snapshotRow struct {
	Tick       int64  `json:"tick"`
	World      string `json:"world"`
	Path       string `json:"path"`
	Seed       int64  `json:"seed"`
	Height     int    `json:"height"`
	Chunks     int    `json:"chunks"`
	Containers int    `json:"containers"`
	Items      int    `json:"items"`
}

func runQuery(ctx context.Context, w io.Writer, idx *indexdb.SQLiteIndex, q, sessionID string, limit int) error {
	if limit <= 0 {
		limit = 20
	}
	switch q {
	case "sessions":
		rows, err := idx.ListSessions(ctx)
		if err != nil {
			return err
		}
		for _, r := range rows {
			writeJSONLine(w, r)
		}
	case "extractions":
		rows, err := idx.ExtractionTotals(ctx, sessionID)
		if err != nil {
			return err
		}
		for _, r := range rows {
			writeJSONLine(w, r)
		}
	case "events":
		if sessionID == "" {
			return fmt.Errorf("missing --session")
		}
		rows, err := idx.SessionEvents(ctx, sessionID, limit)
		if err != nil {
			return err
		}
		for _, r := range rows {
			writeJSONLine(w, r)
		}
	case "snapshots":
		rows, err := idx.DB().QueryContext(ctx, `SELECT tick,world,path,seed,height,chunks,containers,items FROM snapshots ORDER BY tick DESC LIMIT ?`, limit)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var r snapshotRow
			if err := rows.Scan(&r.Tick, &r.World, &r.Path, &r.Seed, &r.Height, &r.Chunks, &r.Containers, &r.Items); err != nil {
				return err
			}
			writeJSONLine(w, r)
		}
		return rows.Err()
	default:
		return fmt.Errorf("unknown query %q (sessions|extractions|events|snapshots)", q)
	}
	return nil
}
