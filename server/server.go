package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/atlasview/atlas/compose"
	"github.com/atlasview/atlas/config"
	"github.com/atlasview/atlas/errors"
	"github.com/atlasview/atlas/registry"
)

// Resolver resolves pending remote capability bundles for a registry.
type Resolver interface {
	ResolveAllAsync(ctx context.Context, reg *registry.Registry)
}

// HostServer serves the viewer API and pushes slot composition updates
// to connected WebSocket clients.
type HostServer struct {
	cfg      *config.Config
	registry *registry.Registry
	resolver Resolver
	engine   *compose.Engine
	viewer   *compose.MemoryViewerState

	clients    map[*Client]bool
	broadcast  chan registry.Snapshot
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex

	mux        *http.ServeMux
	httpServer *http.Server

	// lastResolvedGen tracks the newest load generation handed to the
	// resolver, so a snapshot from a capability patch does not re-trigger
	// bundle fetches.
	lastResolvedGen atomic.Uint64

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	state  atomic.Int32

	logger *zap.SugaredLogger
}

// NewHostServer wires a registry, resolver and composition engine into an
// HTTP/WebSocket host. The server subscribes to registry changes: each
// snapshot recomputes activation, kicks the resolver for newly pending
// modules, and pushes fresh slot compositions to clients.
func NewHostServer(cfg *config.Config, reg *registry.Registry, resolver Resolver, engine *compose.Engine, viewer *compose.MemoryViewerState, logger *zap.SugaredLogger) (*HostServer, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if reg == nil {
		return nil, errors.New("registry cannot be nil")
	}
	if engine == nil {
		return nil, errors.New("composition engine cannot be nil")
	}
	if viewer == nil {
		return nil, errors.New("viewer state cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &HostServer{
		cfg:        cfg,
		registry:   reg,
		resolver:   resolver,
		engine:     engine,
		viewer:     viewer,
		clients:    make(map[*Client]bool),
		broadcast:  make(chan registry.Snapshot, MaxClientMessageQueueSize),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		mux:        http.NewServeMux(),
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.Named("server"),
	}
	s.state.Store(int32(ServerStateRunning))

	reg.Subscribe(s.onRegistryChange)
	s.setupRoutes()

	return s, nil
}

// onRegistryChange reacts to every committed registry change.
func (s *HostServer) onRegistryChange(snap registry.Snapshot) {
	s.engine.OnRegistryChange(snap)

	// A new load generation may carry pending remote modules. Capability
	// patches reuse the generation and must not re-trigger fetches.
	if s.resolver != nil && snap.LoadGeneration > s.lastResolvedGen.Load() {
		s.lastResolvedGen.Store(snap.LoadGeneration)
		s.resolver.ResolveAllAsync(s.ctx, s.registry)
	}

	select {
	case s.broadcast <- snap:
	case <-s.ctx.Done():
	default:
		s.logger.Warnw("Broadcast queue full, dropping slot update",
			"revision", snap.Revision,
		)
	}
}

// handleClientRegister handles a new client connection
func (s *HostServer) handleClientRegister(client *Client) {
	s.mu.Lock()
	if len(s.clients) >= MaxClients {
		s.mu.Unlock()
		s.logger.Warnw("Max clients reached, rejecting connection",
			"client_id", client.id,
			"max_clients", MaxClients,
		)
		client.close()
		return
	}
	s.clients[client] = true
	totalClients := len(s.clients)
	s.mu.Unlock()

	s.logger.Infow("Client connected",
		"client_id", client.id,
		"total_clients", totalClients,
	)

	// Send the current composition so a reconnecting client renders
	// immediately instead of waiting for the next registry change.
	client.enqueue(s.slotsMessage(s.registry.Snapshot().Revision))
}

// handleClientUnregister handles a client disconnection
func (s *HostServer) handleClientUnregister(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; ok {
		delete(s.clients, client)
		totalClients := len(s.clients)
		s.mu.Unlock()

		client.close()

		s.logger.Infow("Client disconnected",
			"client_id", client.id,
			"total_clients", totalClients,
		)
	} else {
		s.mu.Unlock()
	}
}

// Run starts the server hub event loop
func (s *HostServer) Run() {
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debugw("Server hub stopping due to context cancellation")
			return
		case client := <-s.register:
			s.handleClientRegister(client)
		case client := <-s.unregister:
			s.handleClientUnregister(client)
		case snap := <-s.broadcast:
			s.broadcastSlots(snap.Revision)
		}
	}
}

// getState returns the current server state
func (s *HostServer) getState() ServerState {
	return ServerState(s.state.Load())
}

// setState atomically updates the server state
func (s *HostServer) setState(newState ServerState) {
	s.state.Store(int32(newState))
	s.logger.Infow("Server state changed", "new_state", stateString(newState))
}

func stateString(state ServerState) string {
	switch state {
	case ServerStateRunning:
		return "running"
	case ServerStateDraining:
		return "draining"
	case ServerStateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}
