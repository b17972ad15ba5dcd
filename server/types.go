package server

import (
	"time"

	"github.com/atlasview/atlas/module"
)

const (
	// MaxClients is the maximum number of concurrent WebSocket clients
	MaxClients = 100
	// MaxClientMessageQueueSize is the size of per-client message queues
	MaxClientMessageQueueSize = 256
	// ShutdownTimeout bounds how long Stop waits for goroutines to exit
	ShutdownTimeout = 10 * time.Second
)

// ServerState represents the server lifecycle state
type ServerState int

const (
	ServerStateRunning  ServerState = iota // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

// ClientMessage is an inbound WebSocket message from a viewer client
type ClientMessage struct {
	Type       string `json:"type"`
	ModuleID   string `json:"moduleId,omitempty"`
	EntityType string `json:"entityType,omitempty"`
	Layer      string `json:"layer,omitempty"`
	Active     bool   `json:"active,omitempty"`
}

// SlotsMessage pushes the composed widget lists for every slot to clients.
// Sent on connect and after every registry or viewer-state change.
type SlotsMessage struct {
	Type     string                          `json:"type"`
	Revision uint64                          `json:"revision"`
	Slots    map[module.Slot][]module.Widget `json:"slots"`
}

// ModuleSummary is the API shape for a registered module
type ModuleSummary struct {
	ID          string `json:"id"`
	RoutePath   string `json:"routePath"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Source      string `json:"source"`
	IsLocal     bool   `json:"isLocal"`
	Resolved    bool   `json:"resolved"`
	Active      bool   `json:"active"`
}

// SelectionRequest is the body of PUT /api/viewer/selection
type SelectionRequest struct {
	EntityType string `json:"entityType"`
}

// LayerRequest is the body of PUT /api/viewer/layers
type LayerRequest struct {
	Layer  string `json:"layer"`
	Active bool   `json:"active"`
}
