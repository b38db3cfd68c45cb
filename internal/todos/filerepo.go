package todos

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

// todosSchema describes the on-disk document: a JSON array of todo
// objects. Load rejects files that parse but do not match, so a mangled
// data file fails loudly instead of half-loading.
const todosSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "text", "completed", "createdAt"],
    "properties": {
      "id": {"type": "integer"},
      "text": {"type": "string", "minLength": 1},
      "completed": {"type": "boolean"},
      "createdAt": {"type": "string"},
      "updatedAt": {"type": "string"}
    }
  }
}`

var compiledSchema = jsonschema.MustCompileString("todos.schema.json", todosSchema)

// FileRepo keeps the whole collection in memory and mirrors it to a single
// JSON file after every mutation. One mutex covers each read-modify-persist
// cycle; concurrent writers to the same file from other processes remain
// last-write-wins.
type FileRepo struct {
	mu    sync.Mutex
	path  string
	items []Todo
	gen   *idGen
}

// NewFileRepo loads the collection at path. A missing file means an empty
// collection; a file that exists but cannot be parsed or fails schema
// validation is a *StorageError and the caller should refuse to start.
func NewFileRepo(path string) (*FileRepo, error) {
	items, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	r := &FileRepo{path: path, items: items, gen: newIDGen()}
	for _, t := range items {
		r.gen.seedAbove(t.ID)
	}
	return r, nil
}

func loadFile(path string) ([]Todo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Todo{}, nil
		}
		return nil, &StorageError{Op: "load", Path: path, Err: err}
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &StorageError{Op: "load", Path: path, Err: fmt.Errorf("parse: %w", err)}
	}
	if err := compiledSchema.Validate(doc); err != nil {
		return nil, &StorageError{Op: "load", Path: path, Err: fmt.Errorf("schema: %w", err)}
	}

	var items []Todo
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &StorageError{Op: "load", Path: path, Err: err}
	}
	if items == nil {
		items = []Todo{}
	}
	return items, nil
}

// persistLocked writes the full collection to disk. Whole-file replacement,
// no atomic rename. Callers hold r.mu.
func (r *FileRepo) persistLocked() error {
	data, err := json.MarshalIndent(r.items, "", "  ")
	if err != nil {
		return &StorageError{Op: "save", Path: r.path, Err: err}
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return &StorageError{Op: "save", Path: r.path, Err: err}
	}
	return nil
}

func (r *FileRepo) List() ([]Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.items), nil
}

func (r *FileRepo) Create(rawText string) (Todo, error) {
	text := strings.TrimSpace(rawText)
	if text == "" {
		return Todo{}, ErrTextRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t := Todo{
		ID:        r.gen.next(),
		Text:      text,
		Completed: false,
		CreatedAt: time.Now().UTC(),
	}
	prev := r.items
	r.items = append(slices.Clone(r.items), t)
	if err := r.persistLocked(); err != nil {
		r.items = prev
		return Todo{}, err
	}
	return t, nil
}

func (r *FileRepo) Toggle(id int64) (Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return Todo{}, ErrNotFound
	}
	prev := slices.Clone(r.items)
	r.items[i].Completed = !r.items[i].Completed
	if err := r.persistLocked(); err != nil {
		r.items = prev
		return Todo{}, err
	}
	return r.items[i], nil
}

func (r *FileRepo) Edit(id int64, rawText string) (Todo, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return Todo{}, ErrNotFound
	}
	text := strings.TrimSpace(rawText)
	if text == "" {
		return Todo{}, ErrTextRequired
	}

	prev := slices.Clone(r.items)
	now := time.Now().UTC()
	r.items[i].Text = text
	r.items[i].UpdatedAt = &now
	if err := r.persistLocked(); err != nil {
		r.items = prev
		return Todo{}, err
	}
	return r.items[i], nil
}

func (r *FileRepo) Delete(id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexLocked(id)
	if i < 0 {
		return ErrNotFound
	}
	prev := r.items
	r.items = slices.Delete(slices.Clone(r.items), i, i+1)
	if err := r.persistLocked(); err != nil {
		r.items = prev
		return err
	}
	return nil
}

func (r *FileRepo) CompleteAll() (BulkResult, error) {
	return r.bulkSet(true)
}

func (r *FileRepo) UncompleteAll() (BulkResult, error) {
	return r.bulkSet(false)
}

// bulkSet flips every item whose Completed differs from target. An empty
// collection is a distinct no-op: count 0, no persist. A non-empty
// collection always persists, even when nothing needed flipping.
func (r *FileRepo) bulkSet(target bool) (BulkResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.items) == 0 {
		return BulkResult{Count: 0, Message: emptyBulkMessage(target)}, nil
	}

	prev := slices.Clone(r.items)
	count := 0
	for i := range r.items {
		if r.items[i].Completed != target {
			r.items[i].Completed = target
			count++
		}
	}
	if err := r.persistLocked(); err != nil {
		r.items = prev
		return BulkResult{}, err
	}
	return BulkResult{Count: count, Message: bulkMessage(target)}, nil
}

func emptyBulkMessage(target bool) string {
	if target {
		return "No todos to complete"
	}
	return "No todos to uncomplete"
}

func bulkMessage(target bool) string {
	if target {
		return "All todos marked as completed"
	}
	return "All todos marked as active"
}

// indexLocked returns the position of id in the collection, or -1. Ids are
// unique among live items so at most one match exists.
func (r *FileRepo) indexLocked(id int64) int {
	for i := range r.items {
		if r.items[i].ID == id {
			return i
		}
	}
	return -1
}
