package compose

import (
	"sort"
	"sync"
)

// ViewerState is the read-only view of shared viewer state the engine
// filters widget visibility against. The engine never mutates it.
type ViewerState interface {
	// SelectedEntityType returns the currently selected entity's type,
	// if an entity is selected.
	SelectedEntityType() (string, bool)

	// IsLayerActive reports whether the named layer is currently active.
	IsLayerActive(name string) bool
}

// MemoryViewerState is the host's mutable viewer state. It satisfies
// ViewerState for the engine; the host server owns mutation.
type MemoryViewerState struct {
	mu           sync.RWMutex
	entityType   string
	hasSelection bool
	activeLayers map[string]bool
}

// NewMemoryViewerState creates an empty viewer state: nothing selected,
// no layers active.
func NewMemoryViewerState() *MemoryViewerState {
	return &MemoryViewerState{
		activeLayers: make(map[string]bool),
	}
}

func (s *MemoryViewerState) SelectedEntityType() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entityType, s.hasSelection
}

func (s *MemoryViewerState) IsLayerActive(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeLayers[name]
}

// SetSelection records the selected entity's type.
func (s *MemoryViewerState) SetSelection(entityType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entityType = entityType
	s.hasSelection = true
}

// ClearSelection removes the current selection.
func (s *MemoryViewerState) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entityType = ""
	s.hasSelection = false
}

// SetLayerActive toggles one layer.
func (s *MemoryViewerState) SetLayerActive(name string, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if active {
		s.activeLayers[name] = true
	} else {
		delete(s.activeLayers, name)
	}
}

// ActiveLayers returns the active layer names in sorted order.
func (s *MemoryViewerState) ActiveLayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.activeLayers))
	for name := range s.activeLayers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
