package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"

	modelpkg "voxelquarry.ai/internal/sim/world/kernel/model"
)

type SessionSummary struct {
	ID          string   `json:"id"`
	World       string   `json:"world"`
	Owner       string   `json:"owner"`
	Base        [3]int   `json:"base"`
	Width       int      `json:"width"`
	Length      int      `json:"length"`
	Pattern     string   `json:"pattern"`
	Speed       string   `json:"speed"`
	Cursor      [3]int   `json:"cursor"`
	Paused      bool     `json:"paused"`
	Bins        int      `json:"bins"`
	Trusted     []string `json:"trusted"`
	UpdatedTick uint64   `json:"updated_tick"`
}

type BlockTotal struct {
	Block    string `json:"block"`
	Cells    int    `json:"cells"`
	Items    int    `json:"items"`
	Leftover int    `json:"leftover"`
}

type EventRow struct {
	Tick      uint64 `json:"tick"`
	SessionID string `json:"session_id"`
	Kind      string `json:"kind"`
	Reason    string `json:"reason,omitempty"`
}

// DB exposes the handle for ad-hoc queries from operator tools.
func (s *SQLiteIndex) DB() *sql.DB { return s.db }

func (s *SQLiteIndex) ListSessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id,world,owner,base_x,base_y,base_z,width,length,pattern,speed,cursor_x,cursor_y,cursor_z,paused,bins,trusted_json,updated_tick FROM sessions ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []SessionSummary
	for rows.Next() {
		var (
			r       SessionSummary
			paused  int
			trusted string
			tick    int64
		)
		if err := rows.Scan(&r.ID, &r.World, &r.Owner, &r.Base[0], &r.Base[1], &r.Base[2], &r.Width, &r.Length,
			&r.Pattern, &r.Speed, &r.Cursor[0], &r.Cursor[1], &r.Cursor[2], &paused, &r.Bins, &trusted, &tick); err != nil {
			return nil, err
		}
		r.Paused = paused != 0
		r.UpdatedTick = uint64(tick)
		_ = json.Unmarshal([]byte(trusted), &r.Trusted)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ExtractionTotals groups extracted cells by block; an empty sessionID covers
// every session.
func (s *SQLiteIndex) ExtractionTotals(ctx context.Context, sessionID string) ([]BlockTotal, error) {
	q := `SELECT block, COUNT(*), SUM(items), SUM(leftover) FROM extractions`
	var args []any
	if sessionID != "" {
		q += ` WHERE session_id = ?`
		args = append(args, sessionID)
	}
	q += ` GROUP BY block ORDER BY block`
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []BlockTotal
	for rows.Next() {
		var r BlockTotal
		if err := rows.Scan(&r.Block, &r.Cells, &r.Items, &r.Leftover); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteIndex) SessionEvents(ctx context.Context, sessionID string, limit int) ([]EventRow, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `SELECT tick,session_id,kind,COALESCE(reason,'') FROM session_events WHERE session_id = ? ORDER BY tick, seq LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EventRow
	for rows.Next() {
		var (
			r    EventRow
			tick int64
		)
		if err := rows.Scan(&tick, &r.SessionID, &r.Kind, &r.Reason); err != nil {
			return nil, err
		}
		r.Tick = uint64(tick)
		out = append(out, r)
	}
	return out, rows.Err()
}

func countItems(items []modelpkg.ItemStack) int {
	n := 0
	for _, it := range items {
		n += it.Count
	}
	return n
}
