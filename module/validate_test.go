package module

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsNonObjects(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
	}{
		{"nil", nil},
		{"string", "module"},
		{"number", 42.0},
		{"bool", true},
		{"array", []interface{}{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.Nil(t, Validate(tt.raw))
			})
		})
	}
}

func TestValidateRequiresIdentityFields(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
	}{
		{"missing id", map[string]interface{}{"routePath": "/maps"}},
		{"missing routePath", map[string]interface{}{"id": "maps"}},
		{"empty id", map[string]interface{}{"id": "", "routePath": "/maps"}},
		{"whitespace id", map[string]interface{}{"id": "   ", "routePath": "/maps"}},
		{"non-string id", map[string]interface{}{"id": 7.0, "routePath": "/maps"}},
		{"non-string routePath", map[string]interface{}{"id": "maps", "routePath": []interface{}{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Nil(t, Validate(tt.raw))
		})
	}
}

func TestValidateCoercesOptionalFields(t *testing.T) {
	raw := map[string]interface{}{
		"id":             "  maps-pro  ",
		"routePath":      "/maps-pro",
		"isLocal":        "yes", // non-bool coerced to false
		"remoteEntryUrl": 12.0,  // non-string coerced to empty
		"version":        "2.1.0",
		"displayName":    "Maps Pro",
		"metadata":       map[string]interface{}{"tenant": "acme"},
	}

	d := Validate(raw)
	require.NotNil(t, d)
	assert.Equal(t, "maps-pro", d.ID)
	assert.Equal(t, "/maps-pro", d.RoutePath)
	assert.False(t, d.IsLocal)
	assert.Empty(t, d.RemoteEntryURL)
	assert.Equal(t, "2.1.0", d.Version)
	assert.Equal(t, "Maps Pro", d.DisplayName)
	assert.Equal(t, "acme", d.Metadata["tenant"])
	assert.Nil(t, d.Capabilities)
	assert.False(t, d.Resolved())
}

func TestValidateFromJSON(t *testing.T) {
	payload := `{
		"id": "telemetry",
		"routePath": "/telemetry",
		"remoteEntryUrl": "https://cdn.example.com/telemetry/remote-entry.json",
		"capabilities": {
			"slots": {
				"dashboard-widget": [
					{"id": "fleet-health", "priority": 10},
					{"id": "battery-levels", "priority": 20,
					 "showWhen": {"entityTypeIn": ["Robot"]}}
				],
				"not-a-real-slot": [
					{"id": "ghost"}
				]
			}
		}
	}`

	var raw interface{}
	require.NoError(t, json.Unmarshal([]byte(payload), &raw))

	d := Validate(raw)
	require.NotNil(t, d)
	assert.True(t, d.Resolved())
	assert.True(t, d.NeedsRemoteLoad() == false, "resolved modules skip the remote loader")

	widgets := d.Capabilities.WidgetsFor(SlotDashboardWidget)
	require.Len(t, widgets, 2)
	assert.Equal(t, "fleet-health", widgets[0].ID)
	assert.Equal(t, 10, widgets[0].Priority)
	require.NotNil(t, widgets[1].ShowWhen)
	assert.Equal(t, []string{"Robot"}, widgets[1].ShowWhen.EntityTypeIn)

	// Unknown slot names are dropped
	assert.Len(t, d.Capabilities.Slots, 1)
}

func TestValidateClearsBadHostConstraint(t *testing.T) {
	d := Validate(map[string]interface{}{
		"id":           "maps",
		"routePath":    "/maps",
		"requiresHost": "not-a-constraint-@@",
	})
	require.NotNil(t, d)
	assert.Empty(t, d.RequiresHost)
}

func TestCheckHostConstraint(t *testing.T) {
	t.Run("no constraint", func(t *testing.T) {
		d := &Descriptor{ID: "maps", RoutePath: "/maps"}
		assert.NoError(t, CheckHostConstraint(d, "1.2.0"))
	})

	t.Run("satisfied", func(t *testing.T) {
		d := &Descriptor{ID: "maps", RoutePath: "/maps", RequiresHost: ">= 1.0.0"}
		assert.NoError(t, CheckHostConstraint(d, "1.2.0"))
	})

	t.Run("unsatisfied", func(t *testing.T) {
		d := &Descriptor{ID: "maps", RoutePath: "/maps", RequiresHost: ">= 2.0.0"}
		err := CheckHostConstraint(d, "1.2.0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "requires host")
	})
}

func TestDecodeCapabilityMapShapes(t *testing.T) {
	t.Run("typed map passes through", func(t *testing.T) {
		in := &CapabilityMap{Slots: map[Slot][]Widget{
			SlotMapLayer: {{ID: "heatmap"}},
		}}
		out, err := DecodeCapabilityMap(in)
		require.NoError(t, err)
		assert.Same(t, in, out)
	})

	t.Run("flat slot shape", func(t *testing.T) {
		out, err := DecodeCapabilityMap(map[string]interface{}{
			"map-layer": []interface{}{
				map[string]interface{}{"id": "heatmap", "priority": 5.0},
			},
		})
		require.NoError(t, err)
		require.Len(t, out.WidgetsFor(SlotMapLayer), 1)
		assert.Equal(t, 5, out.WidgetsFor(SlotMapLayer)[0].Priority)
	})

	t.Run("non-object fails", func(t *testing.T) {
		_, err := DecodeCapabilityMap("nope")
		assert.Error(t, err)
	})

	t.Run("widget without id dropped", func(t *testing.T) {
		out, err := DecodeCapabilityMap(map[string]interface{}{
			"slots": map[string]interface{}{
				"map-layer": []interface{}{
					map[string]interface{}{"priority": 1.0},
					map[string]interface{}{"id": "kept"},
				},
			},
		})
		require.NoError(t, err)
		require.Len(t, out.WidgetsFor(SlotMapLayer), 1)
		assert.Equal(t, "kept", out.WidgetsFor(SlotMapLayer)[0].ID)
	})
}

func TestSlotValid(t *testing.T) {
	for _, slot := range Slots() {
		assert.True(t, slot.Valid(), slot)
	}
	assert.False(t, Slot("toolbar").Valid())
}

func TestDescriptorClone(t *testing.T) {
	d := &Descriptor{
		ID:        "maps",
		RoutePath: "/maps",
		Metadata:  map[string]interface{}{"tenant": "acme"},
	}

	clone := d.Clone()
	clone.Metadata["tenant"] = "other"

	assert.Equal(t, "acme", d.Metadata["tenant"], "clone must not share metadata")
}
