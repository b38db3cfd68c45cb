package todos

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

var (
	ErrTextRequired = errors.New("Todo text is required")
	ErrNotFound     = errors.New("Todo not found")
)

// BulkResult reports the outcome of a complete-all / uncomplete-all call.
type BulkResult struct {
	Count   int    `json:"count"`
	Message string `json:"message"`
}

type Repository interface {
	List() ([]Todo, error)
	Create(rawText string) (Todo, error)
	Toggle(id int64) (Todo, error)
	Edit(id int64, rawText string) (Todo, error)
	Delete(id int64) error
	CompleteAll() (BulkResult, error)
	UncompleteAll() (BulkResult, error)
}

// StorageError marks a fault in the backing store, as opposed to a
// validation or lookup failure. A corrupt data file surfaces as one of
// these instead of being silently read as an empty collection.
type StorageError struct {
	Op   string // "load" or "save"
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// idGen issues collection-unique ids. It is seeded from the wall clock in
// milliseconds at construction, so ids stay monotonic within a run and do
// not collide with ids persisted by earlier runs under normal load. Rapid
// restarts with sub-millisecond creates could theoretically collide; see
// DESIGN.md.
type idGen struct {
	last int64
}

func newIDGen() *idGen {
	return &idGen{last: time.Now().UnixMilli()}
}

// seedAbove bumps the seed past an existing id, e.g. the highest id found
// in a loaded data file.
func (g *idGen) seedAbove(id int64) {
	for {
		cur := atomic.LoadInt64(&g.last)
		if id < cur {
			return
		}
		if atomic.CompareAndSwapInt64(&g.last, cur, id) {
			return
		}
	}
}

func (g *idGen) next() int64 {
	return atomic.AddInt64(&g.last, 1)
}
