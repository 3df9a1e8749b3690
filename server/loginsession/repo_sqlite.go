package loginsession

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Carlvinchi/ams/internal/errors"
	"github.com/Carlvinchi/ams/session"
	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS browser_session (
	id         TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_browser_session_updated_at ON browser_session(updated_at);
`

// SQLiteRepo stores sessions in a SQLite database so they survive a restart.
// The session is kept as a JSON document; tokens never leave the server.
type SQLiteRepo struct {
	db      *sql.DB
	nowFunc func() time.Time
}

// OpenSQLiteRepo opens (creating if needed) the database at path. Use
// ":memory:" for a throwaway database.
func OpenSQLiteRepo(path string) (*SQLiteRepo, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create session db folder: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open session db: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is its own database
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("session db unreachable: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create session schema: %w", err)
	}

	return &SQLiteRepo{db: db, nowFunc: time.Now}, nil
}

func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

func (r *SQLiteRepo) Upsert(ctx context.Context, id string, s session.Session) error {
	if id == "" {
		return errors.ErrSessionIDRequired
	}
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	now := r.nowFunc().UnixNano()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO browser_session (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		id, string(data), now, now)
	if err != nil {
		return fmt.Errorf("failed to upsert session: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) Get(ctx context.Context, id string) (Record, error) {
	if id == "" {
		return Record{}, errors.ErrSessionIDRequired
	}

	var (
		data             string
		created, updated int64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT data, created_at, updated_at FROM browser_session WHERE id = ?", id).
		Scan(&data, &created, &updated)
	if err == sql.ErrNoRows {
		return Record{}, errors.ErrSessionNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to load session: %w", err)
	}

	rec := Record{
		ID:        id,
		CreatedAt: time.Unix(0, created),
		UpdatedAt: time.Unix(0, updated),
	}
	if err := json.Unmarshal([]byte(data), &rec.Session); err != nil {
		return Record{}, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return rec, nil
}

func (r *SQLiteRepo) Delete(ctx context.Context, id string) error {
	if id == "" {
		return errors.ErrSessionIDRequired
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM browser_session WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (r *SQLiteRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM browser_session WHERE updated_at < ?", before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}
