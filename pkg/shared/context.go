// Package shared implements the cross-view shared application state: one
// logical state object observed through cheap cloned handles, with
// multiple-reader/single-writer locking. The state lives outside the IR, so
// hot reload swaps trees without ever touching it.
package shared

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/loomui/loom/pkg/schema"
)

// ErrReentrantWrite reports an attempt to acquire a second write lock
// through a handle that already holds one. This is a programming error that
// must surface, not deadlock.
var ErrReentrantWrite = errors.New("shared: reentrant write acquisition on the same handle")

// Context is the single in-process state object. Values are stored by model
// slot; field names appear only at the handler-facing surface.
type Context struct {
	model *schema.Model
	mu    sync.RWMutex
	slots []any
}

// New creates a context holding the model's initial values. Fields missing
// from initial get their type's zero value.
func New(model *schema.Model, initial map[string]any) (*Context, error) {
	c := &Context{model: model, slots: make([]any, model.SlotCount())}
	for i := 0; i < model.SlotCount(); i++ {
		name, ft := model.FieldAt(i)
		if v, ok := initial[name]; ok {
			c.slots[i] = v
			continue
		}
		c.slots[i] = zeroValue(ft)
	}
	for name := range initial {
		if _, ok := model.Slot(name); !ok {
			return nil, fmt.Errorf("shared: initial value for undeclared field %q", name)
		}
	}
	return c, nil
}

func zeroValue(ft schema.FieldType) any {
	switch ft.Kind {
	case schema.KindNumber:
		return float64(0)
	case schema.KindBool:
		return false
	case schema.KindText:
		return ""
	case schema.KindCollection:
		return []any{}
	case schema.KindRecord:
		rec := make(map[string]any, len(ft.Fields))
		for name, sub := range ft.Fields {
			rec[name] = zeroValue(sub)
		}
		return rec
	default:
		return nil
	}
}

// Model returns the schema the context was built against.
func (c *Context) Model() *schema.Model { return c.model }

// Handle returns a new handle onto the context. Every handle observes the
// same underlying state; a write through any handle is visible to all
// handles once released. Each view holds its own handle.
func (c *Context) Handle() *Handle {
	return &Handle{ctx: c}
}

// Handle is one view's access path to the shared context.
type Handle struct {
	ctx     *Context
	writing atomic.Bool
}

// AcquireRead takes a shared read lock and returns a snapshot-consistent
// view. Any number of read handles may be live at once; Release must be
// called when done.
func (h *Handle) AcquireRead() *ReadGuard {
	h.ctx.mu.RLock()
	return &ReadGuard{ctx: h.ctx}
}

// AcquireWrite takes the exclusive write lock. It blocks until outstanding
// readers and writers release. Acquiring again through the same handle while
// the first guard is still open returns ErrReentrantWrite.
func (h *Handle) AcquireWrite() (*WriteGuard, error) {
	if !h.writing.CompareAndSwap(false, true) {
		return nil, ErrReentrantWrite
	}
	h.ctx.mu.Lock()
	return &WriteGuard{ctx: h.ctx, owner: h}, nil
}

// Read runs fn under a read lock.
func (h *Handle) Read(fn func(View)) {
	g := h.AcquireRead()
	defer g.Release()
	fn(g.View())
}

// Write runs fn under the write lock, releasing it even when fn fails. This
// is how handlers that declare shared access are invoked: the write handle
// is already held for the duration of the handler body.
func (h *Handle) Write(fn func(*Mut) error) error {
	g, err := h.AcquireWrite()
	if err != nil {
		return err
	}
	defer g.Release()
	return fn(g.Mut())
}

// ReadGuard is an open read lock.
type ReadGuard struct {
	ctx      *Context
	released bool
}

// View returns the read surface of the guard.
func (g *ReadGuard) View() View { return View{ctx: g.ctx} }

// Release drops the read lock. Safe to call once.
func (g *ReadGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.ctx.mu.RUnlock()
}

// WriteGuard is the open exclusive lock.
type WriteGuard struct {
	ctx      *Context
	owner    *Handle
	released bool
}

// Mut returns the mutable surface of the guard.
func (g *WriteGuard) Mut() *Mut { return &Mut{ctx: g.ctx} }

// Release drops the write lock, making the mutation visible to all
// subsequently acquired read or write handles.
func (g *WriteGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	g.ctx.mu.Unlock()
	g.owner.writing.Store(false)
}

// View is a read-only window onto the state. Valid only while the guard that
// produced it is held.
type View struct {
	ctx *Context
}

// Slot reads a field value by resolved slot index.
func (v View) Slot(i int) any { return v.ctx.slots[i] }

// Get reads a field value by name. Handler-facing convenience.
func (v View) Get(field string) any {
	if slot, ok := v.ctx.model.Slot(field); ok {
		return v.ctx.slots[slot]
	}
	return nil
}

// Snapshot copies the slot values. The copy stays valid after release and is
// what the interpreter evaluates a frame against.
func (v View) Snapshot() []any {
	out := make([]any, len(v.ctx.slots))
	copy(out, v.ctx.slots)
	return out
}

// Mut is the mutable state surface handed to handlers. It satisfies
// schema.StateWriter. Valid only while its write guard is held.
type Mut struct {
	ctx *Context
}

// Get reads a field by name.
func (m *Mut) Get(field string) any {
	if slot, ok := m.ctx.model.Slot(field); ok {
		return m.ctx.slots[slot]
	}
	return nil
}

// Set writes a field by name. Writes to undeclared fields are dropped; the
// resolver guarantees markup never references them, and handlers are host
// code validated at registration time.
func (m *Mut) Set(field string, value any) {
	if slot, ok := m.ctx.model.Slot(field); ok {
		m.ctx.slots[slot] = normalize(value)
	}
}

// SetSlot writes a field by resolved slot index.
func (m *Mut) SetSlot(slot int, value any) {
	m.ctx.slots[slot] = normalize(value)
}

// normalize coerces handler-supplied values to the engine's canonical
// representations, so plans compare equal regardless of which Go integer
// type a handler happened to use.
func normalize(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}
