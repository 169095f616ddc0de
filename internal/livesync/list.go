package livesync

import (
	"slices"
	"sync"
	"sync/atomic"
)

// Record is a row mirrored from a remote table. Version is assigned by the
// server and grows with every write to the row.
type Record interface {
	RecordID() string
	RecordVersion() int64
}

// Outcome tells what a list operation did.
type Outcome int

const (
	Applied Outcome = iota
	Missing
	Stale
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Missing:
		return "missing"
	case Stale:
		return "stale"
	}
	return "unknown"
}

// List is an in-memory mirror of a table. Every write builds a new slice
// and swaps it in, so a Snapshot is never modified after it is returned.
// Writers are serialized; readers never block.
type List[T Record] struct {
	mu    sync.Mutex
	items atomic.Pointer[[]T]
}

func NewList[T Record]() *List[T] {
	l := &List[T]{}
	empty := []T{}
	l.items.Store(&empty)
	return l
}

// Snapshot returns the current contents. Callers must not modify it.
func (l *List[T]) Snapshot() []T {
	return *l.items.Load()
}

func (l *List[T]) Len() int { return len(l.Snapshot()) }

func (l *List[T]) Get(id string) (T, bool) {
	for _, it := range l.Snapshot() {
		if it.RecordID() == id {
			return it, true
		}
	}
	var zero T
	return zero, false
}

// Replace swaps the whole contents for items.
func (l *List[T]) Replace(items []T) {
	next := slices.Clone(items)
	if next == nil {
		next = []T{}
	}
	l.mu.Lock()
	l.items.Store(&next)
	l.mu.Unlock()
}

func (l *List[T]) swap(fn func(cur []T) ([]T, Outcome)) Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()
	next, out := fn(*l.items.Load())
	if out == Applied {
		l.items.Store(&next)
	}
	return out
}

func indexOf[T Record](items []T, id string) int {
	return slices.IndexFunc(items, func(it T) bool { return it.RecordID() == id })
}

// Insert prepends rec. If the id is already present (an insert event for
// a row this client created itself), the newer version wins in place.
func (l *List[T]) Insert(rec T) Outcome {
	return l.swap(func(cur []T) ([]T, Outcome) {
		if i := indexOf(cur, rec.RecordID()); i >= 0 {
			if rec.RecordVersion() < cur[i].RecordVersion() {
				return nil, Stale
			}
			next := slices.Clone(cur)
			next[i] = rec
			return next, Applied
		}
		next := make([]T, 0, len(cur)+1)
		next = append(next, rec)
		return append(next, cur...), Applied
	})
}

// Update replaces the row with rec's id. Unknown ids and versions older
// than the local copy are ignored.
func (l *List[T]) Update(rec T) Outcome {
	return l.swap(func(cur []T) ([]T, Outcome) {
		i := indexOf(cur, rec.RecordID())
		if i < 0 {
			return nil, Missing
		}
		if rec.RecordVersion() < cur[i].RecordVersion() {
			return nil, Stale
		}
		next := slices.Clone(cur)
		next[i] = rec
		return next, Applied
	})
}

// Upsert updates rec in place or prepends it when unknown.
func (l *List[T]) Upsert(rec T) Outcome {
	if out := l.Update(rec); out != Missing {
		return out
	}
	return l.Insert(rec)
}

func (l *List[T]) Delete(id string) Outcome {
	return l.swap(func(cur []T) ([]T, Outcome) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, Missing
		}
		return slices.Delete(slices.Clone(cur), i, i+1), Applied
	})
}

// Modify applies fn to the row with id without touching its version. It is
// used for optimistic local changes.
func (l *List[T]) Modify(id string, fn func(T) T) Outcome {
	return l.swap(func(cur []T) ([]T, Outcome) {
		i := indexOf(cur, id)
		if i < 0 {
			return nil, Missing
		}
		next := slices.Clone(cur)
		next[i] = fn(next[i])
		return next, Applied
	})
}
