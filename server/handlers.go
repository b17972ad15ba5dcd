package server

// HTTP handler methods for HostServer:
// - WebSocket connections (HandleWebSocket)
// - Module listing and activation (HandleModules, HandleModuleAction)
// - Slot composition (HandleSlot, HandleSlotVisible)
// - Viewer state updates (HandleSelection, HandleLayers)
// - Health checks (HandleHealth)

import (
	"fmt"
	"net/http"
	"path"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/atlasview/atlas/errors"
	"github.com/atlasview/atlas/module"
	"github.com/atlasview/atlas/version"
)

func (s *HostServer) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := s.upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Errorw("WebSocket upgrade failed", "error", err)
		return
	}

	client := &Client{
		server:  s,
		conn:    conn,
		send:    make(chan *SlotsMessage, MaxClientMessageQueueSize),
		sendMsg: make(chan interface{}, MaxClientMessageQueueSize),
		id:      fmt.Sprintf("%s_%d", r.RemoteAddr, time.Now().UnixNano()),
	}

	// Send version info BEFORE starting writePump (avoid concurrent writes)
	versionInfo := version.Get()
	versionMsg := map[string]interface{}{
		"type":       "version",
		"version":    versionInfo.Version,
		"commit":     versionInfo.Short(),
		"build_time": versionInfo.BuildTime,
	}
	if err := conn.WriteJSON(versionMsg); err != nil {
		s.logger.Debugw("Failed to send version info",
			"client_id", client.id,
			"error", err,
		)
	}

	select {
	case s.register <- client:
	case <-s.ctx.Done():
		conn.Close()
		return
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		client.readPump()
	}()
	go func() {
		defer s.wg.Done()
		client.writePump()
	}()
}

// HandleModules lists all registered modules with their activation state
func (s *HostServer) HandleModules(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	snap := s.registry.Snapshot()
	summaries := make([]ModuleSummary, 0, len(snap.Descriptors))
	for i := range snap.Descriptors {
		d := &snap.Descriptors[i]
		summaries = append(summaries, ModuleSummary{
			ID:          d.ID,
			RoutePath:   d.RoutePath,
			DisplayName: d.DisplayName,
			Version:     d.Version,
			Source:      d.Origin.String(),
			IsLocal:     d.IsLocal,
			Resolved:    d.Resolved(),
			Active:      s.engine.IsActive(d.ID),
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"revision": snap.Revision,
		"modules":  summaries,
	})
}

// HandleModuleAction activates or deactivates a module.
// Routes: POST /api/modules/{id}/activate, POST /api/modules/{id}/deactivate
func (s *HostServer) HandleModuleAction(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	id := r.PathValue("id")
	if id == "" {
		respondError(w, errors.NewInvalidRequestError("missing module id"))
		return
	}

	action := path.Base(r.URL.Path)

	var err error
	switch action {
	case "activate":
		err = s.engine.Activate(id)
	case "deactivate":
		err = s.engine.Deactivate(id)
	default:
		err = errors.NewInvalidRequestError("unknown action: %s", action)
	}

	if err != nil {
		respondError(w, err)
		return
	}

	s.logger.Infow("Module activation changed",
		"module_id", id,
		"action", action,
	)
	s.broadcastCurrent()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"id":     id,
		"active": s.engine.IsActive(id),
	})
}

// HandleSlot returns the composed widget list for a slot, before
// visibility filtering
func (s *HostServer) HandleSlot(w http.ResponseWriter, r *http.Request) {
	s.serveSlot(w, r, s.engine.WidgetsForSlot)
}

// HandleSlotVisible returns the widget list for a slot after visibility
// filtering against the current viewer state
func (s *HostServer) HandleSlotVisible(w http.ResponseWriter, r *http.Request) {
	s.serveSlot(w, r, s.engine.VisibleWidgets)
}

func (s *HostServer) serveSlot(w http.ResponseWriter, r *http.Request, widgets func(module.Slot) []module.Widget) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	slot := module.Slot(r.PathValue("slot"))
	if !slot.Valid() {
		respondError(w, errors.NewNotFoundError("unknown slot: %s", slot))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"slot":    slot,
		"widgets": widgets(slot),
	})
}

// HandleSelection updates the shared entity selection.
// PUT with {"entityType": "Robot"}; empty entityType clears the selection.
func (s *HostServer) HandleSelection(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}

	var req SelectionRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}

	if req.EntityType == "" {
		s.viewer.ClearSelection()
	} else {
		s.viewer.SetSelection(req.EntityType)
	}

	s.logger.Debugw("Selection updated", "entity_type", req.EntityType)
	s.broadcastCurrent()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entityType": req.EntityType,
	})
}

// HandleLayers toggles a map layer on or off.
// PUT with {"layer": "heatmap", "active": true}
func (s *HostServer) HandleLayers(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}

	var req LayerRequest
	if err := readJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if req.Layer == "" {
		respondError(w, errors.NewInvalidRequestError("missing layer name"))
		return
	}

	s.viewer.SetLayerActive(req.Layer, req.Active)

	s.logger.Debugw("Layer toggled",
		"layer", req.Layer,
		"active", req.Active,
	)
	s.broadcastCurrent()

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"layer":        req.Layer,
		"active":       req.Active,
		"activeLayers": s.viewer.ActiveLayers(),
	})
}

// HandleHealth serves the health check endpoint with version, registry
// and memory diagnostics
func (s *HostServer) HandleHealth(w http.ResponseWriter, r *http.Request) {
	versionInfo := version.Get()
	snap := s.registry.Snapshot()

	s.mu.RLock()
	clientCount := len(s.clients)
	s.mu.RUnlock()

	resolved := 0
	for i := range snap.Descriptors {
		if snap.Descriptors[i].Resolved() {
			resolved++
		}
	}

	health := map[string]interface{}{
		"status":           "ok",
		"state":            stateString(s.getState()),
		"version":          versionInfo.Version,
		"commit":           versionInfo.CommitHash,
		"build_time":       versionInfo.BuildTime,
		"clients":          clientCount,
		"modules":          len(snap.Descriptors),
		"modules_resolved": resolved,
		"revision":         snap.Revision,
	}

	// Memory diagnostics are best-effort
	if v, err := mem.VirtualMemory(); err == nil {
		health["memory_total_bytes"] = v.Total
		health["memory_available_bytes"] = v.Available
		health["memory_used_percent"] = v.UsedPercent
	}

	writeJSON(w, http.StatusOK, health)
}
