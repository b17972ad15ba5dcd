package remote

import (
	"context"

	"github.com/atlasview/atlas/errors"
	"github.com/atlasview/atlas/module"
)

// maxUnwrapIterations bounds the export normalization loop. Bundlers may
// emit the capability export as a plain object, a function that must be
// invoked, a deferred value, or any composition of the two wrapped an
// unspecified number of times; five levels covers every shape seen in
// the wild while keeping pathological exports from hanging the loader.
const maxUnwrapIterations = 5

// Awaitable is a deferred export value. In-process bundles use this to
// hand the loader a result that resolves asynchronously.
type Awaitable interface {
	Await(ctx context.Context) (interface{}, error)
}

// unwrapExport normalizes a capability export to a plain object. Each
// iteration calls a callable with no arguments or awaits a deferred
// value, stopping as soon as the value is a plain object. Exceeding the
// bound without reaching a plain object is a failure.
func unwrapExport(ctx context.Context, v interface{}) (interface{}, error) {
	for i := 0; i <= maxUnwrapIterations; i++ {
		if isPlainObject(v) {
			return v, nil
		}
		if i == maxUnwrapIterations {
			break
		}

		switch export := v.(type) {
		case func() interface{}:
			v = export()
		case func() (interface{}, error):
			next, err := export()
			if err != nil {
				return nil, errors.Wrapf(errors.ErrRemoteLoadFailure,
					"capability accessor returned error: %v", err)
			}
			v = next
		case Awaitable:
			next, err := export.Await(ctx)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrRemoteLoadFailure,
					"awaiting capability export: %v", err)
			}
			v = next
		case <-chan interface{}:
			select {
			case next, ok := <-export:
				if !ok {
					return nil, errors.Wrap(errors.ErrRemoteLoadFailure,
						"capability export channel closed without a value")
				}
				v = next
			case <-ctx.Done():
				return nil, errors.Wrapf(errors.ErrRemoteLoadFailure,
					"awaiting capability export: %v", ctx.Err())
			}
		default:
			return nil, errors.Wrapf(errors.ErrInvalidCapabilityShape,
				"capability export is %T: not an object, callable, or awaitable", v)
		}
	}

	return nil, errors.Wrapf(errors.ErrRemoteLoadFailure,
		"capability export did not reach a plain object within %d unwrap iterations",
		maxUnwrapIterations)
}

// isPlainObject reports whether v is a terminal object value for the
// unwrap loop.
func isPlainObject(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, *module.CapabilityMap, module.CapabilityMap:
		return true
	default:
		return false
	}
}

// extractCapabilities picks the capability object out of an unwrapped
// export, checking three nested-export shapes in order: a capabilities
// field, a default.capabilities field, or a default object itself. The
// first that is present and object-typed wins.
func extractCapabilities(v interface{}) (*module.CapabilityMap, error) {
	// A typed capability map needs no shape-guessing.
	switch caps := v.(type) {
	case *module.CapabilityMap:
		return caps, nil
	case module.CapabilityMap:
		return &caps, nil
	}

	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, errors.Wrapf(errors.ErrInvalidCapabilityShape,
			"unwrapped export is %T, want object", v)
	}

	for _, candidate := range []interface{}{
		obj["capabilities"],
		defaultCapabilities(obj),
		obj["default"],
	} {
		if candidate == nil {
			continue
		}
		if !objectTyped(candidate) {
			continue
		}
		return module.DecodeCapabilityMap(candidate)
	}

	return nil, errors.Wrap(errors.ErrInvalidCapabilityShape,
		"no recognized capability shape in export")
}

func defaultCapabilities(obj map[string]interface{}) interface{} {
	def, ok := obj["default"].(map[string]interface{})
	if !ok {
		return nil
	}
	return def["capabilities"]
}

func objectTyped(v interface{}) bool {
	switch v.(type) {
	case map[string]interface{}, *module.CapabilityMap, module.CapabilityMap:
		return true
	default:
		return false
	}
}
