// Package disposer provides parent/child disposal scopes.
//
// A Disposable registered under a parent is disposed when the parent is
// disposed. Children are disposed before their parent, in reverse
// registration order, and every Disposable is disposed at most once.
package disposer

import (
	"fmt"
	"sync"
)

// Disposable is implemented by anything that owns resources torn down with
// its owning scope.
type Disposable interface {
	Dispose()
}

type node struct {
	parent   Disposable
	children []Disposable
	disposed bool
	busy     bool
}

var (
	mu    sync.Mutex
	nodes = make(map[Disposable]*node)
	// tombstones keeps identity of disposed objects so late registrations
	// under a dead parent are disposed immediately.
	tombstones = make(map[Disposable]struct{})
)

func nodeFor(d Disposable) *node {
	n, ok := nodes[d]
	if !ok {
		n = &node{}
		nodes[d] = n
	}
	return n
}

// Register makes child owned by parent. If parent is already disposed the
// child is disposed immediately. Registering the same child twice under the
// same parent is a no-op; moving a child to a different parent is a
// programming error.
func Register(parent, child Disposable) {
	if parent == nil || child == nil {
		panic("disposer: nil parent or child")
	}
	if parent == child {
		panic("disposer: cannot register a disposable under itself")
	}

	mu.Lock()
	if _, dead := tombstones[parent]; dead {
		mu.Unlock()
		Dispose(child)
		return
	}
	c := nodeFor(child)
	if c.parent != nil {
		same := c.parent == parent
		mu.Unlock()
		if same {
			return
		}
		panic(fmt.Sprintf("disposer: %T already registered under another parent", child))
	}
	c.parent = parent
	p := nodeFor(parent)
	p.children = append(p.children, child)
	mu.Unlock()
}

// Dispose disposes d and everything registered under it. Calling Dispose on
// an already disposed object, or re-entrantly from inside its own Dispose
// method, is a no-op.
func Dispose(d Disposable) {
	if d == nil {
		return
	}

	mu.Lock()
	if _, dead := tombstones[d]; dead {
		mu.Unlock()
		return
	}
	n := nodeFor(d)
	if n.busy || n.disposed {
		mu.Unlock()
		return
	}
	n.busy = true
	children := append([]Disposable(nil), n.children...)
	mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		Dispose(children[i])
	}

	d.Dispose()

	mu.Lock()
	n.disposed = true
	tombstones[d] = struct{}{}
	if n.parent != nil {
		if p, ok := nodes[n.parent]; ok {
			p.children = removeChild(p.children, d)
		}
	}
	delete(nodes, d)
	mu.Unlock()
}

// IsDisposed reports whether d has been disposed through this package.
func IsDisposed(d Disposable) bool {
	mu.Lock()
	defer mu.Unlock()
	_, dead := tombstones[d]
	return dead
}

// Forget drops the tombstone of a disposed object. Long-running hosts call it
// once nothing can reference d anymore so identity bookkeeping does not grow.
func Forget(d Disposable) {
	mu.Lock()
	delete(tombstones, d)
	mu.Unlock()
}

func removeChild(children []Disposable, d Disposable) []Disposable {
	for i, c := range children {
		if c == d {
			return append(children[:i], children[i+1:]...)
		}
	}
	return children
}

// Scope is a named Disposable with no resources of its own. It is used as a
// parent for grouping and as a per-computation token.
type Scope struct {
	name string
}

// NewScope creates a new named scope.
func NewScope(name string) *Scope {
	return &Scope{name: name}
}

// Dispose implements Disposable.
func (s *Scope) Dispose() {}

// String returns the scope name.
func (s *Scope) String() string {
	return s.name
}

type funcDisposable struct {
	fn func()
}

func (f *funcDisposable) Dispose() { f.fn() }

// OnDispose returns a Disposable that runs fn when disposed.
func OnDispose(fn func()) Disposable {
	return &funcDisposable{fn: fn}
}
