// Package registry aggregates module descriptors from three sources —
// the compiled-in local registry, an optional local manifest file, and a
// backend-provided module list — and merges them by id with defined
// precedence. It exclusively owns the descriptor collection; consumers
// communicate through read snapshots, never shared mutable references.
package registry

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/atlasview/atlas/module"
)

// Snapshot is a read-only view of the registry state at one revision.
type Snapshot struct {
	// Revision increments on every committed change (merge or
	// capability patch).
	Revision uint64

	// LoadGeneration identifies the load cycle that produced the current
	// descriptor set. Capability patches from superseded cycles are stale.
	LoadGeneration uint64

	// Descriptors in registry order: source precedence, then source order.
	Descriptors []module.Descriptor

	// BackendIDs are the ids present in the backend-provided list.
	BackendIDs map[string]bool
}

// Listener is notified with a fresh snapshot after every committed change.
type Listener func(Snapshot)

// Registry merges module descriptors and exposes lookup by id and route.
type Registry struct {
	mu          sync.RWMutex
	hostVersion string

	local    Source
	manifest Source
	backend  Source

	descriptors []module.Descriptor
	byID        map[string]int
	byRoute     map[string]int
	backendIDs  map[string]bool

	revision uint64
	loadGen  uint64

	listeners []Listener
	logger    *zap.SugaredLogger
}

// New creates a registry over the three descriptor sources.
func New(hostVersion string, local, manifest, backend Source, logger *zap.SugaredLogger) *Registry {
	return &Registry{
		hostVersion: hostVersion,
		local:       local,
		manifest:    manifest,
		backend:     backend,
		byID:        make(map[string]int),
		byRoute:     make(map[string]int),
		backendIDs:  make(map[string]bool),
		logger:      logger,
	}
}

// Subscribe registers a listener invoked after every committed change.
// The initial state is not replayed; call Snapshot for that.
func (r *Registry) Subscribe(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Load fetches all three sources, merges them, and commits the result.
// A total failure of the manifest or backend source contributes an empty
// set from that source rather than failing the whole call. Load never
// returns an error for source failures; the error return is reserved for
// context cancellation.
func (r *Registry) Load(ctx context.Context) ([]module.Descriptor, error) {
	local := r.fetchSource(ctx, r.local)
	manifest := r.fetchSource(ctx, r.manifest)
	backend := r.fetchSource(ctx, r.backend)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	local = r.filterCompatible(local)
	manifest = r.filterCompatible(manifest)
	backend = r.filterCompatible(backend)

	merged, backendIDs := mergeLevels(local, manifest, backend)

	r.mu.Lock()
	previous := make(map[string]module.Descriptor, len(r.descriptors))
	for _, d := range r.descriptors {
		previous[d.ID] = d
	}
	carryResolved(merged, previous)

	r.descriptors = merged
	r.byID = make(map[string]int, len(merged))
	r.byRoute = make(map[string]int, len(merged))
	for i := range merged {
		r.byID[merged[i].ID] = i
		// First registration wins for a route; duplicates are logged.
		if _, dup := r.byRoute[merged[i].RoutePath]; dup {
			r.logger.Warnw("Duplicate route path",
				"route", merged[i].RoutePath,
				"module", merged[i].ID)
		} else {
			r.byRoute[merged[i].RoutePath] = i
		}
	}
	r.backendIDs = backendIDs
	r.loadGen++
	r.revision++
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.logger.Infow("Module registry loaded",
		"modules", len(merged),
		"local", len(local),
		"manifest", len(manifest),
		"backend", len(backend),
		"generation", snap.LoadGeneration)

	r.notify(snap)
	return snap.Descriptors, nil
}

// fetchSource fetches one source, mapping any failure to an empty
// contribution so a broken source never aborts the load cycle.
func (r *Registry) fetchSource(ctx context.Context, s Source) []module.Descriptor {
	if s == nil {
		return nil
	}
	entries, err := s.Fetch(ctx)
	if err != nil {
		r.logger.Warnw("Descriptor source unavailable",
			"source", s.Name(),
			"error", err)
		return nil
	}
	return entries
}

// filterCompatible drops descriptors whose host constraint is not
// satisfied. Dropped entries are logged, never fatal.
func (r *Registry) filterCompatible(entries []module.Descriptor) []module.Descriptor {
	out := entries[:0]
	for i := range entries {
		if err := module.CheckHostConstraint(&entries[i], r.hostVersion); err != nil {
			r.logger.Warnw("Dropping incompatible module",
				"module", entries[i].ID,
				"error", err)
			continue
		}
		out = append(out, entries[i])
	}
	return out
}

// GetByID retrieves a descriptor by module id.
func (r *Registry) GetByID(id string) (module.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byID[id]
	if !ok {
		return module.Descriptor{}, false
	}
	return r.descriptors[idx].Clone(), true
}

// GetByRoute retrieves a descriptor by route path.
func (r *Registry) GetByRoute(path string) (module.Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byRoute[path]
	if !ok {
		return module.Descriptor{}, false
	}
	return r.descriptors[idx].Clone(), true
}

// Snapshot returns a read-only copy of the current registry state.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

// LoadGeneration returns the current load cycle identity.
func (r *Registry) LoadGeneration() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.loadGen
}

// Pending returns descriptors that still need a remote capability load,
// plus the load generation the results must be applied against.
func (r *Registry) Pending() ([]module.Descriptor, uint64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []module.Descriptor
	for i := range r.descriptors {
		if r.descriptors[i].NeedsRemoteLoad() {
			out = append(out, r.descriptors[i].Clone())
		}
	}
	return out, r.loadGen
}

// ApplyCapabilities patches a remote load result back into the registry.
// The generation must match the load cycle the resolve was launched
// against; results from superseded cycles are discarded (stale-result
// check). Returns whether the patch was applied.
func (r *Registry) ApplyCapabilities(id string, caps *module.CapabilityMap, generation uint64) bool {
	if caps == nil {
		return false
	}

	r.mu.Lock()
	if generation != r.loadGen {
		r.mu.Unlock()
		r.logger.Debugw("Discarding stale capability result",
			"module", id,
			"result_generation", generation,
			"current_generation", r.loadGen)
		return false
	}
	idx, ok := r.byID[id]
	if !ok {
		r.mu.Unlock()
		r.logger.Debugw("Discarding capability result for unknown module",
			"module", id)
		return false
	}
	if r.descriptors[idx].Resolved() {
		r.mu.Unlock()
		return false
	}

	r.descriptors[idx].Capabilities = caps
	r.revision++
	snap := r.snapshotLocked()
	r.mu.Unlock()

	r.logger.Infow("Module capabilities resolved",
		"module", id)

	r.notify(snap)
	return true
}

func (r *Registry) snapshotLocked() Snapshot {
	descriptors := make([]module.Descriptor, len(r.descriptors))
	for i := range r.descriptors {
		descriptors[i] = r.descriptors[i].Clone()
	}
	backendIDs := make(map[string]bool, len(r.backendIDs))
	for id := range r.backendIDs {
		backendIDs[id] = true
	}
	return Snapshot{
		Revision:       r.revision,
		LoadGeneration: r.loadGen,
		Descriptors:    descriptors,
		BackendIDs:     backendIDs,
	}
}

// notify invokes listeners outside the registry lock.
func (r *Registry) notify(snap Snapshot) {
	r.mu.RLock()
	listeners := make([]Listener, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, l := range listeners {
		l(snap)
	}
}
