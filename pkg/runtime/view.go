// Package runtime drives live views: each View owns an interpreter and a
// single goroutine that serializes event dispatch and re-rendering, so
// handlers never race each other and every emitted plan reflects a
// consistent model state. Deferred effects run off the loop and feed their
// completions back in as ordinary events.
package runtime

import (
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/loomui/loom/pkg/interp"
	"github.com/loomui/loom/pkg/ir"
	"github.com/loomui/loom/pkg/plan"
	"github.com/loomui/loom/pkg/schema"
)

// PlanApplier receives each freshly rendered construction plan. It runs on
// the view loop; implementations hand the plan to the embedding UI toolkit.
type PlanApplier func(p *plan.Node)

// ErrorHandler handles dispatch and render failures.
// Returns true to keep the view running, false to stop the loop.
type ErrorHandler func(err error) bool

// View is one running markup view. Events delivered to it are dispatched
// one at a time; renders are coalesced through a dirty flag, so a burst of
// events produces a single plan.
type View struct {
	it      *interp.Interpreter
	reg     *schema.Registry
	apply   PlanApplier
	onError ErrorHandler

	events   chan interp.Event
	wake     chan struct{}
	dirty    atomic.Bool
	running  atomic.Bool
	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
}

// NewView wires an interpreter into a runnable view. The registry is used
// to route effect completions back to their named handlers.
func NewView(it *interp.Interpreter, reg *schema.Registry, apply PlanApplier) *View {
	return &View{
		it:     it,
		reg:    reg,
		apply:  apply,
		events: make(chan interp.Event, 64),
		wake:   make(chan struct{}, 1),
		quit:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// SetErrorHandler installs a custom failure handler. By default failures
// are logged and the view keeps running.
func (v *View) SetErrorHandler(h ErrorHandler) { v.onError = h }

// Start launches the view loop and renders the initial plan.
func (v *View) Start() {
	if v.running.CompareAndSwap(false, true) {
		v.MarkDirty()
		go v.loop()
	}
}

// Stop shuts the loop down and waits for it to exit. In-flight effects may
// still complete afterwards; their deliveries are dropped.
func (v *View) Stop() {
	if v.running.CompareAndSwap(true, false) {
		v.quitOnce.Do(func() { close(v.quit) })
		<-v.done
	}
}

// Deliver queues a UI event for dispatch. Safe to call from any goroutine;
// drops the event if the view has stopped.
func (v *View) Deliver(ev interp.Event) {
	select {
	case v.events <- ev:
	case <-v.quit:
	}
}

// MarkDirty schedules a re-render without an event, coalescing with any
// render already pending.
func (v *View) MarkDirty() {
	if v.dirty.CompareAndSwap(false, true) {
		select {
		case v.wake <- struct{}{}:
		default:
		}
	}
}

// SwapIR replaces the active tree and schedules a render against it.
func (v *View) SwapIR(tree *ir.Tree) {
	v.it.Swap(tree)
	v.MarkDirty()
}

// Reload runs the hot-reload pipeline on new markup source. Clean source
// swaps in and triggers a render; any failure keeps the current tree active
// and comes back as diagnostics.
func (v *View) Reload(res *ir.Resolver, filename, source string) []ir.Diagnostic {
	diags := v.it.Reload(res, filename, source)
	if len(diags) == 0 {
		v.MarkDirty()
	}
	return diags
}

func (v *View) loop() {
	defer close(v.done)

	for {
		select {
		case <-v.quit:
			return
		case ev := <-v.events:
			v.handle(ev)
			// Drain the burst before rendering so N queued events cost one
			// plan, not N.
		drain:
			for {
				select {
				case ev := <-v.events:
					v.handle(ev)
				default:
					break drain
				}
			}
			v.renderIfDirty()
		case <-v.wake:
			v.renderIfDirty()
		}
	}
}

func (v *View) handle(ev interp.Event) {
	effect, err := v.it.Dispatch(ev)
	if err != nil {
		v.fail(err)
		return
	}
	v.dirty.Store(true)
	if effect != nil {
		go v.runEffect(effect)
	}
}

// runEffect executes a deferred effect off the view loop and delivers its
// completion as the event the effect named.
func (v *View) runEffect(effect *schema.Effect) {
	out, err := effect.Run()
	if err != nil {
		v.fail(fmt.Errorf("effect %s: %w", effect.Event, err))
		return
	}
	entry, ok := v.reg.Lookup(effect.Event)
	if !ok {
		v.fail(fmt.Errorf("effect completed with unknown event %q", effect.Event))
		return
	}
	v.Deliver(interp.Event{Handler: entry.Index, Value: out})
}

func (v *View) renderIfDirty() {
	if !v.dirty.CompareAndSwap(true, false) {
		return
	}
	p, err := v.it.Render()
	if err != nil {
		v.fail(err)
		return
	}
	if v.apply != nil {
		v.apply(p)
	}
}

// fail routes a loop failure through the error handler; the default logs
// and keeps going. A false return stops the view.
func (v *View) fail(err error) {
	if v.onError != nil {
		if !v.onError(err) {
			v.running.Store(false)
			v.quitOnce.Do(func() { close(v.quit) })
		}
		return
	}
	log.Printf("[runtime] %v", err)
}
