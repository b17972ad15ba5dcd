package server

import "net/http"

// setupRoutes configures all HTTP handlers
func (s *HostServer) setupRoutes() {
	s.mux.HandleFunc("/ws", s.corsMiddleware(s.HandleWebSocket))
	s.mux.HandleFunc("/health", s.corsMiddleware(s.HandleHealth))
	s.mux.HandleFunc("/api/modules", s.corsMiddleware(s.HandleModules))                      // List modules (GET)
	s.mux.HandleFunc("/api/modules/{id}/activate", s.corsMiddleware(s.HandleModuleAction))   // Activate module (POST)
	s.mux.HandleFunc("/api/modules/{id}/deactivate", s.corsMiddleware(s.HandleModuleAction)) // Deactivate module (POST)
	s.mux.HandleFunc("/api/slots/{slot}", s.corsMiddleware(s.HandleSlot))                    // Composed widgets for slot (GET)
	s.mux.HandleFunc("/api/slots/{slot}/visible", s.corsMiddleware(s.HandleSlotVisible))     // Visibility-filtered widgets (GET)
	s.mux.HandleFunc("/api/viewer/selection", s.corsMiddleware(s.HandleSelection))           // Update selection (PUT)
	s.mux.HandleFunc("/api/viewer/layers", s.corsMiddleware(s.HandleLayers))                 // Toggle layer (PUT)
}

// Handler returns the server's HTTP handler for testing and embedding
func (s *HostServer) Handler() http.Handler {
	return s.mux
}

// corsMiddleware adds CORS headers to HTTP responses using configured allowed origins.
// Uses the same origin validation as WebSocket connections (server.allowed_origins config).
func (s *HostServer) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}
