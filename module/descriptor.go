// Package module defines the extension module model for the Atlas host.
//
// A module is an independently packaged extension unit identified by a
// stable id, either compiled into the host or loaded from a remote
// bundle. Modules contribute widgets to a fixed set of named slots.
package module

// CoreModuleID is the host's own module. It is always active and cannot
// be deactivated.
const CoreModuleID = "core"

// Source identifies which descriptor source produced an entry. Sources
// are ordered by trust: lower values are more trusted.
type Source int

const (
	// SourceLocal is the compiled-in local registry (most trusted).
	SourceLocal Source = iota
	// SourceManifest is the optional local manifest file.
	SourceManifest
	// SourceBackend is the tenant module list endpoint (most current).
	SourceBackend
)

// String returns the source name for logging.
func (s Source) String() string {
	switch s {
	case SourceLocal:
		return "local"
	case SourceManifest:
		return "manifest"
	case SourceBackend:
		return "backend"
	default:
		return "unknown"
	}
}

// Descriptor carries identity and loading metadata for one extension module.
//
// A descriptor is "resolved" once Capabilities is non-nil; until then it
// is "pending". A descriptor lacking ID or RoutePath is invalid and must
// never enter the registry.
type Descriptor struct {
	// ID is unique and stable across sessions; the primary key for
	// merge and lookup.
	ID string `json:"id"`

	// RoutePath is used for route-based lookup.
	RoutePath string `json:"routePath"`

	// IsLocal marks compiled-in modules (vs. remotely hosted).
	IsLocal bool `json:"isLocal"`

	// RemoteEntryURL locates the remote capability bundle. Required when
	// the module is not local and Capabilities are not inline.
	RemoteEntryURL string `json:"remoteEntryUrl,omitempty"`

	// Capabilities is nil until loaded for remote modules.
	Capabilities *CapabilityMap `json:"capabilities,omitempty"`

	Version     string `json:"version,omitempty"`
	DisplayName string `json:"displayName,omitempty"`

	// RequiresHost is an optional semver constraint on the host version.
	RequiresHost string `json:"requiresHost,omitempty"`

	// Metadata is opaque and non-authoritative.
	Metadata map[string]interface{} `json:"metadata,omitempty"`

	// Origin records which source this descriptor (and its metadata)
	// currently reflects. Not part of the wire format.
	Origin Source `json:"-"`
}

// Resolved reports whether the module's capabilities are available.
func (d *Descriptor) Resolved() bool {
	return d.Capabilities != nil
}

// NeedsRemoteLoad reports whether this descriptor should go through the
// remote capability loader.
func (d *Descriptor) NeedsRemoteLoad() bool {
	return !d.Resolved() && d.RemoteEntryURL != ""
}

// Clone returns a copy of the descriptor safe to hand out in snapshots.
// The capability map is shared: it is immutable once resolved.
func (d *Descriptor) Clone() Descriptor {
	out := *d
	if d.Metadata != nil {
		out.Metadata = make(map[string]interface{}, len(d.Metadata))
		for k, v := range d.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

// CapabilityMap is the full set of a module's slot contributions, plus an
// optional shared-context provider reference for that module.
type CapabilityMap struct {
	// Slots maps slot name to the module's ordered widget contributions.
	Slots map[Slot][]Widget `json:"slots"`

	// ContextProvider names the module's shared-context provider, if any.
	ContextProvider string `json:"contextProvider,omitempty"`
}

// WidgetsFor returns the module's contributions for one slot.
func (c *CapabilityMap) WidgetsFor(slot Slot) []Widget {
	if c == nil || c.Slots == nil {
		return nil
	}
	return c.Slots[slot]
}

// Widget is one contribution from a module to a specific slot, carrying
// ordering and visibility metadata. The runtime never interprets Props.
type Widget struct {
	// ID is unique within the slot among currently active modules.
	ID string `json:"id"`

	// ModuleID is the owning module, used for grouping and per-module
	// fault isolation. Filled in during composition.
	ModuleID string `json:"moduleId,omitempty"`

	// Priority orders widgets within a slot: lower renders first. Ties
	// break by append order during composition.
	Priority int `json:"priority"`

	// ShowWhen gates visibility against live viewer state. Absence means
	// always visible.
	ShowWhen *ShowWhen `json:"showWhen,omitempty"`

	// Props is the opaque default-props payload.
	Props map[string]interface{} `json:"props,omitempty"`
}

// ShowWhen declares the conditions under which a widget is visible.
// When both conditions are present, both must pass.
type ShowWhen struct {
	// EntityTypeIn shows the widget only while the selected entity's
	// type is a member of this list.
	EntityTypeIn []string `json:"entityTypeIn,omitempty"`

	// LayerActiveAnyOf shows the widget only while at least one of the
	// named layers is active.
	LayerActiveAnyOf []string `json:"layerActiveAnyOf,omitempty"`
}
