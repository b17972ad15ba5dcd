package server

import "github.com/atlasview/atlas/module"

// slotsMessage composes the visible widget list for every slot under the
// current viewer state.
func (s *HostServer) slotsMessage(revision uint64) *SlotsMessage {
	slots := make(map[module.Slot][]module.Widget, len(module.Slots()))
	for _, slot := range module.Slots() {
		slots[slot] = s.engine.VisibleWidgets(slot)
	}
	return &SlotsMessage{
		Type:     "slots",
		Revision: revision,
		Slots:    slots,
	}
}

// broadcastSlots pushes the current composition to all connected clients.
// Slow clients drop the update rather than blocking the hub; they catch up
// on the next change.
func (s *HostServer) broadcastSlots(revision uint64) {
	msg := s.slotsMessage(revision)

	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.send <- msg:
		default:
			s.logger.Warnw("Client send channel full, dropping slot update",
				"client_id", client.id,
				"revision", revision,
			)
		}
	}
}

// broadcastCurrent recomposes and pushes slots at the current revision.
// Used after viewer-state changes, which shift visibility without touching
// the registry.
func (s *HostServer) broadcastCurrent() {
	s.broadcastSlots(s.registry.Snapshot().Revision)
}
