package module

import (
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/atlasview/atlas/errors"
	"github.com/atlasview/atlas/logger"
)

// Validate sanitizes an untrusted module descriptor into the canonical
// safe shape. Input may be any JSON value. Returns nil (and logs a
// diagnostic) if raw is not an object, or if id/routePath are missing or
// not non-empty strings after trimming. All optional fields are coerced
// to safe defaults. Validate never panics: callers rely on a total
// function to keep a single bad entry from discarding an entire batch.
func Validate(raw interface{}) *Descriptor {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		logger.Warnw("Dropping module descriptor: not an object")
		return nil
	}

	id := trimmedString(obj["id"])
	if id == "" {
		logger.Warnw("Dropping module descriptor: missing id")
		return nil
	}

	routePath := trimmedString(obj["routePath"])
	if routePath == "" {
		logger.Warnw("Dropping module descriptor: missing routePath",
			"module", id)
		return nil
	}

	d := &Descriptor{
		ID:             id,
		RoutePath:      routePath,
		IsLocal:        boolOrFalse(obj["isLocal"]),
		RemoteEntryURL: trimmedString(obj["remoteEntryUrl"]),
		Version:        trimmedString(obj["version"]),
		DisplayName:    trimmedString(obj["displayName"]),
		RequiresHost:   trimmedString(obj["requiresHost"]),
	}

	if meta, ok := obj["metadata"].(map[string]interface{}); ok {
		d.Metadata = meta
	}

	if rawCaps, present := obj["capabilities"]; present && rawCaps != nil {
		caps, err := DecodeCapabilityMap(rawCaps)
		if err != nil {
			// Inline capabilities that don't decode leave the module
			// pending rather than rejecting the descriptor.
			logger.Warnw("Ignoring inline capabilities",
				"module", id,
				"error", err)
		} else {
			d.Capabilities = caps
		}
	}

	// An unparseable host constraint is cleared, not fatal.
	if d.RequiresHost != "" {
		if _, err := semver.NewConstraint(d.RequiresHost); err != nil {
			logger.Warnw("Clearing unparseable host version constraint",
				"module", id,
				"constraint", d.RequiresHost)
			d.RequiresHost = ""
		}
	}

	return d
}

// CheckHostConstraint reports whether the descriptor's RequiresHost
// constraint (if any) is satisfied by the running host version.
func CheckHostConstraint(d *Descriptor, hostVersion string) error {
	if d.RequiresHost == "" {
		return nil
	}

	hostVer, err := semver.NewVersion(hostVersion)
	if err != nil {
		return errors.Wrapf(err, "invalid host version %s", hostVersion)
	}

	constraint, err := semver.NewConstraint(d.RequiresHost)
	if err != nil {
		return errors.Wrapf(err, "invalid version constraint %s", d.RequiresHost)
	}

	if !constraint.Check(hostVer) {
		return errors.Newf("module %s requires host %s, but running %s",
			d.ID, d.RequiresHost, hostVersion)
	}

	return nil
}

// DecodeCapabilityMap converts a raw capability export into a
// CapabilityMap. Accepts an already-typed *CapabilityMap or the generic
// map shape produced by JSON decoding. Unknown slot names and widgets
// without an id are dropped, not fatal.
func DecodeCapabilityMap(v interface{}) (*CapabilityMap, error) {
	switch caps := v.(type) {
	case *CapabilityMap:
		return caps, nil
	case CapabilityMap:
		return &caps, nil
	case map[string]interface{}:
		return decodeRawCapabilityMap(caps)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidCapabilityShape,
			"capability export is %T, want object", v)
	}
}

func decodeRawCapabilityMap(obj map[string]interface{}) (*CapabilityMap, error) {
	out := &CapabilityMap{Slots: make(map[Slot][]Widget)}

	out.ContextProvider = trimmedString(obj["contextProvider"])

	rawSlots, ok := obj["slots"].(map[string]interface{})
	if !ok {
		// Tolerate the flat shape where slot names sit at the top level.
		rawSlots = obj
	}

	for name, rawList := range rawSlots {
		slot := Slot(name)
		if !slot.Valid() {
			continue
		}
		list, ok := rawList.([]interface{})
		if !ok {
			continue
		}
		for _, rawWidget := range list {
			if w := decodeWidget(rawWidget); w != nil {
				out.Slots[slot] = append(out.Slots[slot], *w)
			}
		}
	}

	return out, nil
}

func decodeWidget(raw interface{}) *Widget {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil
	}

	id := trimmedString(obj["id"])
	if id == "" {
		return nil
	}

	w := &Widget{
		ID:       id,
		Priority: intOrZero(obj["priority"]),
	}

	if props, ok := obj["props"].(map[string]interface{}); ok {
		w.Props = props
	}

	if rawShow, ok := obj["showWhen"].(map[string]interface{}); ok {
		show := &ShowWhen{
			EntityTypeIn:     stringSliceOrNil(rawShow["entityTypeIn"]),
			LayerActiveAnyOf: stringSliceOrNil(rawShow["layerActiveAnyOf"]),
		}
		if show.EntityTypeIn != nil || show.LayerActiveAnyOf != nil {
			w.ShowWhen = show
		}
	}

	return w
}

func trimmedString(v interface{}) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(s)
}

func boolOrFalse(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}

func intOrZero(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		// JSON numbers decode as float64
		return int(n)
	default:
		return 0
	}
}

// stringSliceOrNil coerces a raw value to a string slice. Array fields
// that are not arrays become nil; non-string elements are skipped.
func stringSliceOrNil(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
