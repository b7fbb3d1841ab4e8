package schema

import "fmt"

// HandlerShape is the fixed invocation shape of a named handler.
type HandlerShape uint8

const (
	// ShapeNoArg handlers take no event payload (e.g. on_click).
	ShapeNoArg HandlerShape = iota
	// ShapeValue handlers receive the event's value (e.g. on_input).
	ShapeValue
	// ShapeEffect handlers return a deferred effect description instead of
	// completing synchronously.
	ShapeEffect
)

func (s HandlerShape) String() string {
	switch s {
	case ShapeNoArg:
		return "no-arg"
	case ShapeValue:
		return "value-arg"
	case ShapeEffect:
		return "effect"
	default:
		return "unknown"
	}
}

// StateWriter is the mutable state surface a handler runs against. The
// shared-state runtime's write handle satisfies it; handlers never see the
// lock itself.
type StateWriter interface {
	Get(field string) any
	Set(field string, value any)
}

// Effect describes deferred asynchronous work produced by an effect handler.
// The runtime runs it off the dispatch loop and feeds the result back in as
// an ordinary event named Event.
type Effect struct {
	Event string
	Run   func() (any, error)
}

// Handler function shapes.
type (
	NoArgFunc  func(s StateWriter) error
	ValueFunc  func(s StateWriter, value any) error
	EffectFunc func(s StateWriter) (*Effect, error)
)

// Entry is one registered handler. Index is the stable handle the resolver
// embeds in the IR; dispatch never goes back through the name.
type Entry struct {
	Name   string
	Shape  HandlerShape
	Index  int
	NoArg  NoArgFunc
	Value  ValueFunc
	Effect EffectFunc
}

// Registry maps handler names to entries. It is populated once at startup;
// resolution looks names up, evaluation uses indices only.
type Registry struct {
	byName  map[string]*Entry
	entries []*Entry
}

// NewRegistry creates an empty handler registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*Entry)}
}

func (r *Registry) add(e *Entry) error {
	if _, dup := r.byName[e.Name]; dup {
		return fmt.Errorf("handler %q registered twice", e.Name)
	}
	e.Index = len(r.entries)
	r.byName[e.Name] = e
	r.entries = append(r.entries, e)
	return nil
}

// RegisterNoArg registers a handler invoked with no payload.
func (r *Registry) RegisterNoArg(name string, fn NoArgFunc) error {
	return r.add(&Entry{Name: name, Shape: ShapeNoArg, NoArg: fn})
}

// RegisterValue registers a handler invoked with the event's value.
func (r *Registry) RegisterValue(name string, fn ValueFunc) error {
	return r.add(&Entry{Name: name, Shape: ShapeValue, Value: fn})
}

// RegisterEffect registers a handler that returns a deferred effect.
func (r *Registry) RegisterEffect(name string, fn EffectFunc) error {
	return r.add(&Entry{Name: name, Shape: ShapeEffect, Effect: fn})
}

// Lookup finds a handler by name. Used during resolution only.
func (r *Registry) Lookup(name string) (*Entry, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// At returns the handler at a resolved index.
func (r *Registry) At(index int) *Entry {
	if index < 0 || index >= len(r.entries) {
		return nil
	}
	return r.entries[index]
}

// Len returns the number of registered handlers.
func (r *Registry) Len() int { return len(r.entries) }
