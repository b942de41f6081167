// Package sqlstore persists audit entries in SQLite so they can be queried
// with SQL after a run.
package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/piyushigoyal/claimtriage/internal/audit"
)

const schema = `
CREATE TABLE IF NOT EXISTS audit_entries (
	seq        INTEGER PRIMARY KEY,
	timestamp  TEXT    NOT NULL,
	entry_type TEXT    NOT NULL,
	claim_id   TEXT    NOT NULL DEFAULT '',
	data_json  TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_audit_entries_claim ON audit_entries(claim_id);
CREATE INDEX IF NOT EXISTS idx_audit_entries_type ON audit_entries(entry_type);
`

type Store struct {
	db *sql.DB
}

// OpenSQLite opens the database at dsn and applies the schema.
func OpenSQLite(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := New(db)
	if err := s.ApplySchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlstore: apply schema: %w", err)
	}
	return s, nil
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) ApplySchema() error {
	_, err := s.db.Exec(schema)
	return err
}

// Write inserts entries in one transaction. Entries already stored under the
// same sequence number are left untouched.
func (s *Store) Write(ctx context.Context, entries []audit.Entry) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT OR IGNORE INTO audit_entries (seq, timestamp, entry_type, claim_id, data_json) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close() //nolint:errcheck

	for _, e := range entries {
		data, err := json.Marshal(e.Data)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlstore: marshal entry %d: %w", e.Seq, err)
		}
		claimID := e.ClaimID
		if claimID == "" {
			claimID, _ = e.Data["claim_id"].(string)
		}
		if _, err := stmt.ExecContext(ctx, e.Seq, e.Timestamp.UTC().Format(time.RFC3339Nano), string(e.Type), claimID, string(data)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("sqlstore: insert entry %d: %w", e.Seq, err)
		}
	}
	return tx.Commit()
}

// Query returns entries matching f ordered by sequence number.
func (s *Store) Query(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
	q := `SELECT seq, timestamp, entry_type, claim_id, data_json FROM audit_entries WHERE 1=1`
	var args []any
	if f.Type != "" {
		q += ` AND entry_type = ?`
		args = append(args, string(f.Type))
	}
	if f.ClaimID != "" {
		q += ` AND claim_id = ?`
		args = append(args, f.ClaimID)
	}
	q += ` ORDER BY seq ASC`

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	out := []audit.Entry{}
	for rows.Next() {
		var (
			e        audit.Entry
			ts, typ  string
			dataJSON string
		)
		if err := rows.Scan(&e.Seq, &ts, &typ, &e.ClaimID, &dataJSON); err != nil {
			return nil, err
		}
		e.Type = audit.EntryType(typ)
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("sqlstore: entry %d timestamp: %w", e.Seq, err)
		}
		if err := json.Unmarshal([]byte(dataJSON), &e.Data); err != nil {
			return nil, fmt.Errorf("sqlstore: entry %d data: %w", e.Seq, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Count returns the number of stored entries.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries`).Scan(&n)
	return n, err
}

// LastSeq returns the highest stored sequence number.
func (s *Store) LastSeq(ctx context.Context) (int64, bool, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM audit_entries`).Scan(&seq); err != nil {
		return 0, false, fmt.Errorf("sqlstore: last seq: %w", err)
	}
	return seq.Int64, seq.Valid, nil
}
