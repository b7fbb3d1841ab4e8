package live

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/loomui/loom/pkg/ir"
	"github.com/loomui/loom/pkg/runtime"
)

// Reloader runs changed markup files through the parse/resolve pipeline,
// off the render path, and swaps clean trees into their registered views.
// Failures leave the running view on its previous tree and go out as
// diagnostics.
type Reloader struct {
	resolver *ir.Resolver
	server   *Server

	mu    sync.Mutex
	views map[string]*runtime.View // keyed by cleaned path
}

// NewReloader creates a reloader pushing results through server. A nil
// server is allowed; reloads then only log.
func NewReloader(resolver *ir.Resolver, server *Server) *Reloader {
	return &Reloader{
		resolver: resolver,
		server:   server,
		views:    make(map[string]*runtime.View),
	}
}

// Register binds a markup file to the view rendering it.
func (r *Reloader) Register(file string, view *runtime.View) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views[filepath.Clean(file)] = view
}

// HandleChanges processes one settled watcher batch.
func (r *Reloader) HandleChanges(files []string) {
	for _, f := range files {
		r.reload(f)
	}
}

func (r *Reloader) reload(file string) {
	file = filepath.Clean(file)

	r.mu.Lock()
	view := r.views[file]
	r.mu.Unlock()
	if view == nil {
		return
	}

	source, err := os.ReadFile(file)
	if err != nil {
		// Transient during editor save/rename shuffles; the next event
		// retries.
		log.Printf("[live] read %s: %v", file, err)
		return
	}

	diags := view.Reload(r.resolver, file, string(source))
	if len(diags) > 0 {
		log.Printf("[live] %s: %d diagnostics, keeping previous tree", file, len(diags))
		r.push(Message{Type: MsgDiagnostics, File: file, Diagnostics: diagPayloads(diags)})
		return
	}

	log.Printf("[live] reloaded %s", file)
	r.push(Message{Type: MsgReload, File: file})
}

func (r *Reloader) push(msg Message) {
	if r.server != nil {
		r.server.Broadcast(msg)
	}
}
