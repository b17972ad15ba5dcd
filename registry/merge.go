package registry

import (
	"github.com/atlasview/atlas/module"
)

// mergeLevels combines descriptors from the three sources into a single
// ordered collection. Precedence, highest first: local, manifest, backend.
//
// When the same id appears at multiple levels, the higher-precedence
// entry's capabilities are kept, but its displayName, version and
// metadata are overlaid with the lower-precedence entry's fresher values:
// capabilities are sticky to the most trusted source; metadata is sticky
// to the most current source.
//
// The returned order is registry order: higher-precedence levels first,
// source order within a level. backendIDs records which ids appeared in
// the backend list (auto-activation input).
func mergeLevels(local, manifest, backend []module.Descriptor) (merged []module.Descriptor, backendIDs map[string]bool) {
	byID := make(map[string]int)
	backendIDs = make(map[string]bool)

	appendLevel := func(level []module.Descriptor, origin module.Source) {
		for i := range level {
			d := level[i]
			d.Origin = origin

			idx, seen := byID[d.ID]
			if !seen {
				byID[d.ID] = len(merged)
				merged = append(merged, d)
				continue
			}

			// Already present from a more trusted level: overlay the
			// fresher metadata, keep everything else.
			existing := &merged[idx]
			if d.DisplayName != "" {
				existing.DisplayName = d.DisplayName
			}
			if d.Version != "" {
				existing.Version = d.Version
			}
			if d.Metadata != nil {
				existing.Metadata = d.Metadata
			}
		}
	}

	appendLevel(local, module.SourceLocal)
	appendLevel(manifest, module.SourceManifest)
	appendLevel(backend, module.SourceBackend)

	for i := range backend {
		backendIDs[backend[i].ID] = true
	}

	return merged, backendIDs
}

// carryResolved preserves capabilities already resolved by the remote
// loader across reloads. A module that arrives pending but was resolved
// in the previous state keeps its capabilities as long as its bundle
// location has not changed, so reloads never force a re-fetch.
func carryResolved(merged []module.Descriptor, previous map[string]module.Descriptor) {
	for i := range merged {
		d := &merged[i]
		if d.Resolved() {
			continue
		}
		prev, ok := previous[d.ID]
		if !ok || !prev.Resolved() {
			continue
		}
		if prev.RemoteEntryURL == d.RemoteEntryURL {
			d.Capabilities = prev.Capabilities
		}
	}
}
