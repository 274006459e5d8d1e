package kvstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/feedhider/watch"
)

// Schema for the kv table.
const Schema = `
CREATE TABLE IF NOT EXISTS kv (
	namespace  TEXT NOT NULL,
	key        TEXT NOT NULL,
	value      TEXT NOT NULL,
	updated_at INTEGER NOT NULL,
	PRIMARY KEY (namespace, key)
);
`

// SQLite stores values in a single kv table. Local writes are announced
// immediately; writes from other processes are picked up by polling
// PRAGMA data_version on a dedicated connection.
type SQLite struct {
	db      *sql.DB
	path    string
	opts    options
	changes *hub

	pollOnce sync.Once
	cancel   context.CancelFunc
	done     chan struct{}
}

// OpenSQLite opens (creating if needed) the database at path with WAL
// journaling. ":memory:" gives a private database on one connection.
func OpenSQLite(path string, opts ...Option) (*SQLite, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("kvstore: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("kvstore: open: %w", err)
	}
	if path == ":memory:" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	for _, p := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("kvstore: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("kvstore: schema: %w", err)
	}

	return &SQLite{
		db:      db,
		path:    path,
		opts:    buildOptions(opts),
		changes: newHub(),
	}, nil
}

func (s *SQLite) Get(ctx context.Context, namespace string, keys ...string) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(keys))
	for _, k := range keys {
		var v string
		err := s.db.QueryRowContext(ctx,
			`SELECT value FROM kv WHERE namespace = ? AND key = ?`, namespace, k).Scan(&v)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("kvstore: get %s/%s: %w", namespace, k, err)
		}
		out[k] = json.RawMessage(v)
	}
	return out, nil
}

func (s *SQLite) Set(ctx context.Context, namespace string, values map[string]json.RawMessage) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("kvstore: begin: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	for k, v := range values {
		if !json.Valid(v) {
			return fmt.Errorf("kvstore: set %s/%s: invalid JSON", namespace, k)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
			ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			namespace, k, string(v), now); err != nil {
			return fmt.Errorf("kvstore: set %s/%s: %w", namespace, k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("kvstore: commit: %w", err)
	}

	s.changes.publish(Change{Namespace: namespace, Keys: keysOf(values)})
	return nil
}

func (s *SQLite) Delete(ctx context.Context, namespace string, keys ...string) error {
	for _, k := range keys {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM kv WHERE namespace = ? AND key = ?`, namespace, k); err != nil {
			return fmt.Errorf("kvstore: delete %s/%s: %w", namespace, k, err)
		}
	}
	s.changes.publish(Change{Namespace: namespace, Keys: keys})
	return nil
}

// Watch subscribes to changes. The first call starts the external-change
// poller; in-memory databases have no other writers and skip it.
func (s *SQLite) Watch(ctx context.Context) (<-chan Change, error) {
	ch, err := s.changes.subscribe(ctx)
	if err != nil {
		return nil, err
	}
	if s.path != ":memory:" {
		s.pollOnce.Do(s.startPoller)
	}
	return ch, nil
}

func (s *SQLite) startPoller() {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go func() {
		defer close(s.done)
		conn, err := s.db.Conn(ctx)
		if err != nil {
			s.opts.logger.Warn("kvstore: external change poller disabled", "error", err)
			return
		}
		defer conn.Close()

		known := make(map[string]struct{})
		w := watch.New(conn, watch.Options{
			Interval: 200 * time.Millisecond,
			Debounce: 100 * time.Millisecond,
			Logger:   s.opts.logger,
		})
		w.OnChange(ctx, func(ctx context.Context) error {
			return s.publishAll(ctx, conn, known)
		})
	}()
}

// publishAll announces a change for every namespace present now or seen
// before, since an external write does not say which one it touched.
func (s *SQLite) publishAll(ctx context.Context, conn *sql.Conn, known map[string]struct{}) error {
	rows, err := conn.QueryContext(ctx, `SELECT DISTINCT namespace FROM kv`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var ns string
		if err := rows.Scan(&ns); err != nil {
			rows.Close()
			return err
		}
		known[ns] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for ns := range known {
		s.changes.publish(Change{Namespace: ns})
	}
	return nil
}

func (s *SQLite) Close() error {
	if s.cancel != nil {
		s.cancel()
		<-s.done
	}
	s.changes.close()
	return s.db.Close()
}
