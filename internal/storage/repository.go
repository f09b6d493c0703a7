package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ledger/internal/core"

	_ "modernc.org/sqlite"
)

// DefaultSnapshotRetention is how many saved documents the SQLite store keeps.
const DefaultSnapshotRetention = 20

// SQLiteStore saves every version of the document as a row and loads the
// newest one.
type SQLiteStore struct {
	db   *sql.DB
	keep int
	now  func() time.Time
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "path", dbPath, "version", version)

	return &SQLiteStore{
		db:   db,
		keep: DefaultSnapshotRetention,
		now:  time.Now,
	}, nil
}

// SetRetention changes how many snapshots survive each save. Values below 1
// disable pruning.
func (r *SQLiteStore) SetRetention(keep int) {
	r.keep = keep
}

func (r *SQLiteStore) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load returns the newest snapshot, or the default document when there is
// none or it cannot be read.
func (r *SQLiteStore) Load(ctx context.Context) core.Document {
	var (
		id   int64
		body string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, body FROM ledger_snapshots ORDER BY id DESC LIMIT 1`).Scan(&id, &body)
	if errors.Is(err, sql.ErrNoRows) {
		slog.InfoContext(ctx, "No ledger snapshot found, using defaults")
		return core.DefaultDocument()
	}
	if err != nil {
		slog.WarnContext(ctx, "Failed to read ledger snapshot, using defaults", "error", err)
		return core.DefaultDocument()
	}

	doc, err := Decode([]byte(body))
	if err != nil {
		slog.WarnContext(ctx, "Ledger snapshot malformed, using defaults", "snapshot_id", id, "error", err)
		return core.DefaultDocument()
	}
	return doc
}

// Save inserts the full document as a new snapshot, then prunes old ones.
func (r *SQLiteStore) Save(ctx context.Context, doc core.Document) error {
	body, err := Encode(doc)
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_snapshots (saved_at, body) VALUES (?, ?)`,
		r.now().Format(time.RFC3339), string(body))
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	id, _ := res.LastInsertId()

	if r.keep > 0 {
		pruned, err := r.PruneSnapshots(ctx, r.keep)
		if err != nil {
			slog.WarnContext(ctx, "Failed to prune ledger snapshots", "error", err)
		} else if pruned > 0 {
			slog.DebugContext(ctx, "Pruned ledger snapshots", "removed", pruned, "kept", r.keep)
		}
	}

	slog.DebugContext(ctx, "Ledger snapshot saved", "snapshot_id", id, "bytes", len(body))
	return nil
}

// PruneSnapshots deletes all but the newest keep snapshots and returns how
// many rows were removed.
func (r *SQLiteStore) PruneSnapshots(ctx context.Context, keep int) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM ledger_snapshots
		 WHERE id NOT IN (SELECT id FROM ledger_snapshots ORDER BY id DESC LIMIT ?)`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return n, nil
}

// SnapshotCount reports how many snapshots are stored.
func (r *SQLiteStore) SnapshotCount(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM ledger_snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}
