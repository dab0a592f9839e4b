package snapshot

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"depflow/internal/metrics"
)

// DefaultCacheSize is the number of reachability results kept per state.
const DefaultCacheSize = 512

// Controller owns the current state. Writers are serialized; readers load an
// atomically swapped pointer and always see a fully built state.
type Controller struct {
	mu        sync.Mutex
	current   atomic.Pointer[State]
	cacheSize int
	logger    *slog.Logger

	subMu sync.Mutex
	subs  map[chan *State]struct{}
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithCacheSize sets the per-state query cache size; 0 disables caching.
func WithCacheSize(n int) ControllerOption {
	return func(c *Controller) {
		c.cacheSize = n
	}
}

// WithLogger sets the logger used for rebuild diagnostics.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController starts with an empty snapshot and the given display options.
func NewController(opts Options, options ...ControllerOption) *Controller {
	c := &Controller{
		cacheSize: DefaultCacheSize,
		logger:    slog.Default(),
		subs:      make(map[chan *State]struct{}),
	}
	for _, o := range options {
		o(c)
	}

	initial := &State{Options: opts, Modules: map[string]Module{}}
	initial.derive(c.cacheSize, c.logger)
	c.current.Store(initial)
	return c
}

// State returns the current state.
func (c *Controller) State() *State {
	return c.current.Load()
}

// SetState merges p into the current state, rebuilds the tree, the graph and
// the children accessor, and publishes the result.
func (c *Controller) SetState(p Partial) *State {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	next := c.current.Load().next(p, c.cacheSize, c.logger)
	c.current.Store(next)
	took := time.Since(start)

	metrics.SnapshotApplied(p.Source, next.Tree.Len(), next.Graph.EdgeCount(), next.Skipped, took)
	c.logger.Info("snapshot applied",
		"version", next.Version,
		"source", p.Source,
		"nodes", next.Tree.Len(),
		"links", next.Graph.EdgeCount(),
		"skipped", next.Skipped,
		"collapse", next.Options.Collapse,
		"took", took,
	)

	c.publish(next)
	return next
}

// Apply replaces the snapshot with doc.
func (c *Controller) Apply(doc *Document, source string) *State {
	return c.SetState(PartialFromDocument(doc, source))
}

// Subscribe returns a channel receiving each new state. A subscriber that
// falls behind only sees the latest state. Call the returned func to stop.
func (c *Controller) Subscribe() (<-chan *State, func()) {
	ch := make(chan *State, 1)
	c.subMu.Lock()
	c.subs[ch] = struct{}{}
	c.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.subMu.Lock()
			delete(c.subs, ch)
			c.subMu.Unlock()
			close(ch)
		})
	}
}

func (c *Controller) publish(s *State) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for ch := range c.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		// Drop the stale state and retry once.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}
