package todos

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTempDB(t *testing.T) *SQLiteRepo {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	dsn, err := SQLiteFileDSN(dbPath)
	if err != nil {
		t.Fatalf("dsn error: %v", err)
	}
	repo, err := NewSQLiteRepo(dsn)
	if err != nil {
		t.Fatalf("open error: %v", err)
	}
	t.Cleanup(func() {
		_ = repo.Close()
	})
	if err := repo.ApplyMigrations(context.Background()); err != nil {
		t.Fatalf("migrate error: %v", err)
	}
	return repo
}

func TestSQLiteRepo_CreateAndList(t *testing.T) {
	repo := newTempDB(t)

	if _, err := repo.Create("   "); !errors.Is(err, ErrTextRequired) {
		t.Fatalf("expected ErrTextRequired, got %v", err)
	}

	a, err := repo.Create("first")
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	if a.ID == 0 || a.Text != "first" || a.Completed {
		t.Fatalf("bad first todo: %+v", a)
	}

	b, err := repo.Create("second")
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if b.ID <= a.ID {
		t.Fatalf("expected monotonic IDs: a=%d b=%d", a.ID, b.ID)
	}

	list := listAll(t, repo)
	if len(list) != 2 {
		t.Fatalf("expected 2 todos, got %d", len(list))
	}
	if list[0].Text != "first" || list[1].Text != "second" {
		t.Fatalf("unexpected order: %+v", list)
	}
}

func TestSQLiteRepo_ToggleEditDelete(t *testing.T) {
	repo := newTempDB(t)

	todo, err := repo.Create("work through me")
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	toggled, err := repo.Toggle(todo.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !toggled.Completed || toggled.UpdatedAt != nil {
		t.Fatalf("bad toggled todo: %+v", toggled)
	}

	edited, err := repo.Edit(todo.ID, "  rewritten ")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if edited.Text != "rewritten" || !edited.Completed || edited.UpdatedAt == nil {
		t.Fatalf("bad edited todo: %+v", edited)
	}

	if err := repo.Delete(todo.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.Toggle(todo.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSQLiteRepo_BulkOps(t *testing.T) {
	repo := newTempDB(t)

	res, err := repo.CompleteAll()
	if err != nil {
		t.Fatalf("completeAll: %v", err)
	}
	if res.Count != 0 || res.Message != "No todos to complete" {
		t.Fatalf("unexpected empty result: %+v", res)
	}

	for _, text := range []string{"a", "b", "c"} {
		if _, err := repo.Create(text); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	res, err = repo.CompleteAll()
	if err != nil {
		t.Fatalf("completeAll: %v", err)
	}
	if res.Count != 3 || res.Message != "All todos marked as completed" {
		t.Fatalf("unexpected result: %+v", res)
	}

	res, err = repo.UncompleteAll()
	if err != nil {
		t.Fatalf("uncompleteAll: %v", err)
	}
	if res.Count != 3 || res.Message != "All todos marked as active" {
		t.Fatalf("unexpected result: %+v", res)
	}
	for _, todo := range listAll(t, repo) {
		if todo.Completed {
			t.Fatalf("expected active todos only: %+v", todo)
		}
	}
}

func TestSQLiteRepo_ListSurfacesStorageFailure(t *testing.T) {
	repo := newTempDB(t)

	if _, err := repo.Create("about to vanish"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// a broken store must not read as an empty collection
	if _, err := repo.List(); err == nil {
		t.Fatalf("expected List to fail on a closed store")
	}
}

func TestSQLiteRepo_ListRejectsBadTimestamps(t *testing.T) {
	repo := newTempDB(t)

	if _, err := repo.db.Exec(`
		INSERT INTO todos (id, text, completed, created_at)
		VALUES (1, 'mangled row', 0, 'not-a-timestamp')
	`); err != nil {
		t.Fatalf("insert fixture: %v", err)
	}

	if _, err := repo.List(); err == nil {
		t.Fatalf("expected List to reject an unparsable created_at")
	}
}
