package module

// Slot is one of the fixed set of named integration points in the host
// UI into which modules may contribute widgets.
type Slot string

const (
	SlotEntityTree      Slot = "entity-tree"
	SlotMapLayer        Slot = "map-layer"
	SlotContextPanel    Slot = "context-panel"
	SlotBottomPanel     Slot = "bottom-panel"
	SlotLayerToggle     Slot = "layer-toggle"
	SlotDashboardWidget Slot = "dashboard-widget"
)

var allSlots = []Slot{
	SlotEntityTree,
	SlotMapLayer,
	SlotContextPanel,
	SlotBottomPanel,
	SlotLayerToggle,
	SlotDashboardWidget,
}

// Slots returns the fixed slot set in declaration order.
func Slots() []Slot {
	out := make([]Slot, len(allSlots))
	copy(out, allSlots)
	return out
}

// Valid reports whether s is a member of the fixed slot set.
func (s Slot) Valid() bool {
	for _, known := range allSlots {
		if s == known {
			return true
		}
	}
	return false
}
