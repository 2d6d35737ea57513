// Package decisionlog persists every decision the supervisor produces,
// executed or not, plus the latest risk and supervisor state records.
package decisionlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"forex-autotrader/internal/types"
)

const schema = `
PRAGMA journal_mode=WAL;

CREATE TABLE IF NOT EXISTS decisions (
    symbol TEXT NOT NULL,
    ts INTEGER NOT NULL,
    action TEXT NOT NULL,
    final_confidence REAL NOT NULL,
    weighted_scores TEXT NOT NULL,
    primary_reasons TEXT NOT NULL,
    warning_flags TEXT NOT NULL,
    executed INTEGER NOT NULL DEFAULT 0,
    PRIMARY KEY (symbol, ts)
);

CREATE INDEX IF NOT EXISTS idx_decisions_ts ON decisions(ts DESC);

CREATE TABLE IF NOT EXISTS risk_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    state TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS supervisor_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    state TEXT NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// SQLite is the sqlite-backed decision store.
type SQLite struct {
	db *sql.DB
}

// Open opens (and creates if needed) the decision log at path.
func Open(path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("decision log path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite prefers single writer.
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the underlying DB handle.
func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Append inserts one decision row. Rows are never updated except by
// MarkExecuted.
func (s *SQLite) Append(ctx context.Context, d types.Decision) error {
	scores, err := json.Marshal(d.WeightedScores)
	if err != nil {
		return fmt.Errorf("marshal weighted scores: %w", err)
	}
	reasons, err := json.Marshal(d.PrimaryReasons)
	if err != nil {
		return fmt.Errorf("marshal primary reasons: %w", err)
	}
	flags, err := json.Marshal(d.WarningFlags)
	if err != nil {
		return fmt.Errorf("marshal warning flags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO decisions (symbol, ts, action, final_confidence, weighted_scores, primary_reasons, warning_flags, executed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Symbol, d.Timestamp.UnixNano(), string(d.Action), d.FinalConfidence,
		string(scores), string(reasons), string(flags), boolInt(d.Executed),
	)
	if err != nil {
		return fmt.Errorf("insert decision %s@%d: %w", d.Symbol, d.Timestamp.UnixNano(), err)
	}
	return nil
}

// MarkExecuted flips a decision's executed flag. The WHERE clause makes the
// update idempotent but refuses to touch unknown rows.
func (s *SQLite) MarkExecuted(ctx context.Context, symbol string, ts int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE decisions SET executed = 1 WHERE symbol = ? AND ts = ?`, symbol, ts)
	if err != nil {
		return fmt.Errorf("mark executed %s@%d: %w", symbol, ts, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("mark executed: no decision %s@%d", symbol, ts)
	}
	return nil
}

// Recent returns up to limit decisions, newest first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]types.Decision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, ts, action, final_confidence, weighted_scores, primary_reasons, warning_flags, executed
		FROM decisions ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent decisions: %w", err)
	}
	defer rows.Close()

	var out []types.Decision
	for rows.Next() {
		var d types.Decision
		var ts int64
		var action, scores, reasons, flags string
		var executed int
		if err := rows.Scan(&d.Symbol, &ts, &action, &d.FinalConfidence, &scores, &reasons, &flags, &executed); err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		d.Timestamp = time.Unix(0, ts).UTC()
		d.Action = types.Action(action)
		d.Executed = executed != 0
		if err := json.Unmarshal([]byte(scores), &d.WeightedScores); err != nil {
			return nil, fmt.Errorf("unmarshal weighted scores: %w", err)
		}
		if err := json.Unmarshal([]byte(reasons), &d.PrimaryReasons); err != nil {
			return nil, fmt.Errorf("unmarshal primary reasons: %w", err)
		}
		if err := json.Unmarshal([]byte(flags), &d.WarningFlags); err != nil {
			return nil, fmt.Errorf("unmarshal warning flags: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// SaveRiskState upserts the single current risk state row.
func (s *SQLite) SaveRiskState(ctx context.Context, rs types.RiskState) error {
	return s.saveSingleton(ctx, "risk_state", rs)
}

// SaveStatus upserts the single current supervisor status row.
func (s *SQLite) SaveStatus(ctx context.Context, st types.SupervisorStatus) error {
	return s.saveSingleton(ctx, "supervisor_state", st)
}

func (s *SQLite) saveSingleton(ctx context.Context, table string, v any) error {
	blob, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", table, err)
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		INSERT INTO %s (id, state, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET state = excluded.state, updated_at = excluded.updated_at`, table),
		string(blob), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("save %s: %w", table, err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
