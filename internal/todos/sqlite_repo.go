package todos

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteRepo is the alternate Repository backend, selected with
// storage = "sqlite". Ids are still issued by the process-local generator
// so both backends produce the same id shape; since ids are monotonic,
// ORDER BY id is insertion order.
type SQLiteRepo struct {
	db  *sql.DB
	gen *idGen
}

func NewSQLiteRepo(dsn string) (*SQLiteRepo, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Reasonable pragmas for an app server
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
		PRAGMA foreign_keys=ON;
	`); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteRepo{db: db, gen: newIDGen()}, nil
}

func (r *SQLiteRepo) Close() error { return r.db.Close() }

// ApplyMigrations ensures the schema exists and bumps the id generator
// past anything already stored.
func (r *SQLiteRepo) ApplyMigrations(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS todos (
	id INTEGER PRIMARY KEY,
	text TEXT NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0,
	created_at TEXT NOT NULL,
	updated_at TEXT
);
	`); err != nil {
		return err
	}
	var max sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(id) FROM todos`).Scan(&max); err != nil {
		return err
	}
	if max.Valid {
		r.gen.seedAbove(max.Int64)
	}
	return nil
}

// List surfaces every storage fault instead of degrading to an empty
// collection; a broken store must never look like "no todos yet".
func (r *SQLiteRepo) List() ([]Todo, error) {
	rows, err := r.db.Query(`
		SELECT id, text, completed, created_at, updated_at
		FROM todos
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Todo{}
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepo) Create(rawText string) (Todo, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return Todo{}, ErrTextRequired
	}
	t := Todo{
		ID:        r.gen.next(),
		Text:      text,
		Completed: false,
		CreatedAt: time.Now().UTC(),
	}
	_, err := r.db.Exec(`
		INSERT INTO todos (id, text, completed, created_at)
		VALUES (?, ?, 0, ?)
	`, t.ID, t.Text, t.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Todo{}, err
	}
	return t, nil
}

func (r *SQLiteRepo) Toggle(id int64) (Todo, error) {
	res, err := r.db.Exec(`UPDATE todos SET completed = 1 - completed WHERE id = ?`, id)
	if err != nil {
		return Todo{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return Todo{}, ErrNotFound
	}
	return r.get(id)
}

func (r *SQLiteRepo) Edit(id int64, rawText string) (Todo, error) {
	if _, err := r.get(id); err != nil {
		return Todo{}, err
	}
	text := strings.TrimSpace(rawText)
	if text == "" {
		return Todo{}, ErrTextRequired
	}
	now := time.Now().UTC()
	_, err := r.db.Exec(`UPDATE todos SET text = ?, updated_at = ? WHERE id = ?`,
		text, now.Format(time.RFC3339Nano), id)
	if err != nil {
		return Todo{}, err
	}
	return r.get(id)
}

func (r *SQLiteRepo) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepo) CompleteAll() (BulkResult, error) {
	return r.bulkSet(true)
}

func (r *SQLiteRepo) UncompleteAll() (BulkResult, error) {
	return r.bulkSet(false)
}

func (r *SQLiteRepo) bulkSet(target bool) (BulkResult, error) {
	var total int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM todos`).Scan(&total); err != nil {
		return BulkResult{}, err
	}
	if total == 0 {
		return BulkResult{Count: 0, Message: emptyBulkMessage(target)}, nil
	}
	val := 0
	if target {
		val = 1
	}
	res, err := r.db.Exec(`UPDATE todos SET completed = ? WHERE completed != ?`, val, val)
	if err != nil {
		return BulkResult{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return BulkResult{}, err
	}
	return BulkResult{Count: int(n), Message: bulkMessage(target)}, nil
}

func (r *SQLiteRepo) get(id int64) (Todo, error) {
	row := r.db.QueryRow(`
		SELECT id, text, completed, created_at, updated_at
		FROM todos WHERE id = ?
	`, id)
	t, err := scanTodo(row)
	if err == sql.ErrNoRows {
		return Todo{}, ErrNotFound
	}
	if err != nil {
		return Todo{}, err
	}
	return t, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTodo(row rowScanner) (Todo, error) {
	var t Todo
	var created string
	var updated sql.NullString
	if err := row.Scan(&t.ID, &t.Text, &t.Completed, &created, &updated); err != nil {
		return Todo{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return Todo{}, fmt.Errorf("parse created_at: %w", err)
	}
	t.CreatedAt = ts
	if updated.Valid {
		ts, err := time.Parse(time.RFC3339Nano, updated.String)
		if err != nil {
			return Todo{}, fmt.Errorf("parse updated_at: %w", err)
		}
		t.UpdatedAt = &ts
	}
	return t, nil
}

// SQLiteFileDSN builds a DSN like: file:/absolute/path?_pragma=busy_timeout(5000)
func SQLiteFileDSN(path string) (string, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return "file:" + filepath.ToSlash(abs) + "?_pragma=busy_timeout(5000)", nil
}
