// Package compose tracks which modules are active and produces the
// final per-slot widget lists consumed by the rendering layer: collected
// from active modules, deterministically ordered, and filtered against
// live viewer state.
//
// The engine exclusively owns the activation set. It reads registry
// snapshots and viewer state but never mutates either: data flows one
// way, registry to engine.
package compose

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/atlasview/atlas/errors"
	"github.com/atlasview/atlas/module"
	"github.com/atlasview/atlas/registry"
)

// Engine is the slot composition engine.
type Engine struct {
	mu       sync.RWMutex
	snapshot registry.Snapshot
	active   map[string]bool
	viewer   ViewerState
	logger   *zap.SugaredLogger
}

// NewEngine creates an engine over the given viewer state. The viewer
// handle is passed in explicitly at construction; modules read derived
// state through the engine rather than ambient globals. Activation
// starts as {core}.
func NewEngine(viewer ViewerState, logger *zap.SugaredLogger) *Engine {
	return &Engine{
		active: map[string]bool{module.CoreModuleID: true},
		viewer: viewer,
		logger: logger,
	}
}

// OnRegistryChange recomputes activation from a fresh registry snapshot.
// A module is active if it is locally bundled, or present in the
// backend-provided list, or has resolved capabilities. Manual activate
// and deactivate calls are overridden here: automatic membership is
// reasserted on every registry change.
//
// Wire this to registry.Subscribe.
func (e *Engine) OnRegistryChange(snap registry.Snapshot) {
	active := map[string]bool{module.CoreModuleID: true}
	for i := range snap.Descriptors {
		d := &snap.Descriptors[i]
		if d.IsLocal || snap.BackendIDs[d.ID] || d.Resolved() {
			active[d.ID] = true
		}
	}

	e.mu.Lock()
	e.snapshot = snap
	e.active = active
	e.mu.Unlock()

	e.logger.Debugw("Activation recomputed",
		"revision", snap.Revision,
		"active", len(active))
}

// Activate marks a module eligible to contribute widgets. The override
// holds until the next automatic recomputation.
func (e *Engine) Activate(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.knownLocked(id) {
		return errors.NewNotFoundError("module %s", id)
	}
	e.active[id] = true
	return nil
}

// Deactivate removes a module from the activation set. Deactivating
// core is a no-op. The override holds until the next automatic
// recomputation: it is not sticky across registry reloads.
func (e *Engine) Deactivate(id string) error {
	if id == module.CoreModuleID {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.knownLocked(id) {
		return errors.NewNotFoundError("module %s", id)
	}
	delete(e.active, id)
	return nil
}

// IsActive reports whether the module is in the activation set.
func (e *Engine) IsActive(id string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.active[id]
}

// ActiveModules returns the activation set in sorted order.
func (e *Engine) ActiveModules() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.active))
	for id := range e.active {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func (e *Engine) knownLocked(id string) bool {
	if id == module.CoreModuleID {
		return true
	}
	for i := range e.snapshot.Descriptors {
		if e.snapshot.Descriptors[i].ID == id {
			return true
		}
	}
	return false
}

// WidgetsForSlot collects the slot's widgets from active modules in
// deterministic order: locally-bundled resolved modules first in
// registry order, then the remaining resolved actives in registry order,
// the whole list stable-sorted by ascending priority. Ties retain append
// order, so two consecutive calls with the same activation and registry
// state return identical lists.
func (e *Engine) WidgetsForSlot(slot module.Slot) []module.Widget {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var collected []module.Widget
	processed := make(map[string]bool)

	appendModule := func(d *module.Descriptor) {
		for _, w := range d.Capabilities.WidgetsFor(slot) {
			w.ModuleID = d.ID
			collected = append(collected, w)
		}
		processed[d.ID] = true
	}

	// Locally-bundled modules with resolved capabilities come first.
	for i := range e.snapshot.Descriptors {
		d := &e.snapshot.Descriptors[i]
		if !e.active[d.ID] || !d.Resolved() || !d.IsLocal {
			continue
		}
		appendModule(d)
	}

	// Remaining active modules in registry order; pending modules
	// contribute nothing until their capabilities resolve.
	for i := range e.snapshot.Descriptors {
		d := &e.snapshot.Descriptors[i]
		if !e.active[d.ID] || processed[d.ID] || !d.Resolved() {
			continue
		}
		appendModule(d)
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].Priority < collected[j].Priority
	})

	return collected
}

// VisibleWidgets filters WidgetsForSlot against live viewer state. A
// widget with no showWhen is always visible. When both conditions are
// present, both must pass. Never returns an error: the worst case of
// every upstream failure is an empty list.
func (e *Engine) VisibleWidgets(slot module.Slot) []module.Widget {
	widgets := e.WidgetsForSlot(slot)

	visible := make([]module.Widget, 0, len(widgets))
	for _, w := range widgets {
		if e.widgetVisible(&w) {
			visible = append(visible, w)
		}
	}
	return visible
}

func (e *Engine) widgetVisible(w *module.Widget) bool {
	if w.ShowWhen == nil {
		return true
	}

	if len(w.ShowWhen.EntityTypeIn) > 0 {
		selected, ok := e.viewer.SelectedEntityType()
		if !ok {
			return false
		}
		match := false
		for _, entityType := range w.ShowWhen.EntityTypeIn {
			if entityType == selected {
				match = true
				break
			}
		}
		if !match {
			return false
		}
	}

	if len(w.ShowWhen.LayerActiveAnyOf) > 0 {
		anyActive := false
		for _, layer := range w.ShowWhen.LayerActiveAnyOf {
			if e.viewer.IsLayerActive(layer) {
				anyActive = true
				break
			}
		}
		if !anyActive {
			return false
		}
	}

	return true
}
