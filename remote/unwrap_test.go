package remote

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atlasview/atlas/errors"
	"github.com/atlasview/atlas/module"
)

// deferred is a test Awaitable resolving to a fixed value.
type deferred struct {
	value interface{}
	err   error
}

func (d deferred) Await(ctx context.Context) (interface{}, error) {
	return d.value, d.err
}

func capsObject() map[string]interface{} {
	return map[string]interface{}{
		"capabilities": map[string]interface{}{
			"slots": map[string]interface{}{
				"map-layer": []interface{}{
					map[string]interface{}{"id": "heatmap", "priority": 10.0},
				},
			},
		},
	}
}

func TestUnwrapExport(t *testing.T) {
	ctx := context.Background()

	t.Run("plain object needs no unwrapping", func(t *testing.T) {
		obj := capsObject()
		out, err := unwrapExport(ctx, obj)
		require.NoError(t, err)
		assert.Equal(t, obj, out)
	})

	t.Run("callable returning object", func(t *testing.T) {
		export := func() interface{} { return capsObject() }
		out, err := unwrapExport(ctx, export)
		require.NoError(t, err)
		assert.NotNil(t, out)
	})

	t.Run("callable returning awaitable returning object", func(t *testing.T) {
		// The remote equivalent of () => Promise.resolve({capabilities})
		export := func() interface{} {
			return deferred{value: capsObject()}
		}
		out, err := unwrapExport(ctx, export)
		require.NoError(t, err)
		assert.NotNil(t, out)
	})

	t.Run("deeply wrapped within the bound", func(t *testing.T) {
		// Five transformations: fn -> fn -> await -> fn -> await -> object
		export := func() interface{} {
			return func() interface{} {
				return deferred{value: func() interface{} {
					return deferred{value: capsObject()}
				}}
			}
		}
		out, err := unwrapExport(ctx, export)
		require.NoError(t, err)
		assert.NotNil(t, out)
	})

	t.Run("pathological export never terminates with success", func(t *testing.T) {
		var pathological func() interface{}
		pathological = func() interface{} { return pathological }

		out, err := unwrapExport(ctx, pathological)
		assert.Nil(t, out)
		require.Error(t, err)
		assert.True(t, errors.Is(err, errors.ErrRemoteLoadFailure))
		assert.Contains(t, err.Error(), "unwrap iterations")
	})

	t.Run("channel delivers value", func(t *testing.T) {
		ch := make(chan interface{}, 1)
		ch <- capsObject()
		out, err := unwrapExport(ctx, (<-chan interface{})(ch))
		require.NoError(t, err)
		assert.NotNil(t, out)
	})

	t.Run("closed channel fails", func(t *testing.T) {
		ch := make(chan interface{})
		close(ch)
		_, err := unwrapExport(ctx, (<-chan interface{})(ch))
		assert.True(t, errors.Is(err, errors.ErrRemoteLoadFailure))
	})

	t.Run("awaitable error propagates as load failure", func(t *testing.T) {
		_, err := unwrapExport(ctx, deferred{err: errors.New("bundle exploded")})
		assert.True(t, errors.Is(err, errors.ErrRemoteLoadFailure))
	})

	t.Run("scalar export is invalid shape", func(t *testing.T) {
		_, err := unwrapExport(ctx, 42)
		assert.True(t, errors.Is(err, errors.ErrInvalidCapabilityShape))
	})
}

func TestExtractCapabilities(t *testing.T) {
	t.Run("capabilities field", func(t *testing.T) {
		caps, err := extractCapabilities(capsObject())
		require.NoError(t, err)
		require.Len(t, caps.WidgetsFor(module.SlotMapLayer), 1)
		assert.Equal(t, "heatmap", caps.WidgetsFor(module.SlotMapLayer)[0].ID)
	})

	t.Run("default.capabilities field", func(t *testing.T) {
		obj := map[string]interface{}{
			"default": capsObject(),
		}
		caps, err := extractCapabilities(obj)
		require.NoError(t, err)
		assert.Len(t, caps.WidgetsFor(module.SlotMapLayer), 1)
	})

	t.Run("default object itself", func(t *testing.T) {
		obj := map[string]interface{}{
			"default": map[string]interface{}{
				"slots": map[string]interface{}{
					"bottom-panel": []interface{}{
						map[string]interface{}{"id": "console"},
					},
				},
			},
		}
		caps, err := extractCapabilities(obj)
		require.NoError(t, err)
		assert.Len(t, caps.WidgetsFor(module.SlotBottomPanel), 1)
	})

	t.Run("capabilities field wins over default", func(t *testing.T) {
		obj := capsObject()
		obj["default"] = map[string]interface{}{
			"slots": map[string]interface{}{
				"bottom-panel": []interface{}{
					map[string]interface{}{"id": "loser"},
				},
			},
		}
		caps, err := extractCapabilities(obj)
		require.NoError(t, err)
		assert.NotEmpty(t, caps.WidgetsFor(module.SlotMapLayer))
		assert.Empty(t, caps.WidgetsFor(module.SlotBottomPanel))
	})

	t.Run("non-object capabilities field is skipped", func(t *testing.T) {
		obj := map[string]interface{}{
			"capabilities": "not-an-object",
			"default": map[string]interface{}{
				"slots": map[string]interface{}{
					"bottom-panel": []interface{}{
						map[string]interface{}{"id": "console"},
					},
				},
			},
		}
		caps, err := extractCapabilities(obj)
		require.NoError(t, err)
		assert.Len(t, caps.WidgetsFor(module.SlotBottomPanel), 1)
	})

	t.Run("typed capability map passes through", func(t *testing.T) {
		in := &module.CapabilityMap{Slots: map[module.Slot][]module.Widget{
			module.SlotEntityTree: {{ID: "tree"}},
		}}
		caps, err := extractCapabilities(in)
		require.NoError(t, err)
		assert.Same(t, in, caps)
	})

	t.Run("no recognized shape", func(t *testing.T) {
		_, err := extractCapabilities(map[string]interface{}{"other": 1.0})
		assert.True(t, errors.Is(err, errors.ErrInvalidCapabilityShape))
	})
}
