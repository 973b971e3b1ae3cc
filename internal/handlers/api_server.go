// internal/handlers/api_server.go
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/jason-s-yu/crystal-clear/internal/coordinator"
	"github.com/jason-s-yu/crystal-clear/internal/middleware"
	"github.com/sirupsen/logrus"
)

// APIServer serves the HTTP endpoints and mounts the WebSocket handler.
type APIServer struct {
	coord *coordinator.Coordinator
	log   *logrus.Logger
	ws    *WSHandler
	now   func() time.Time
}

func NewAPIServer(coord *coordinator.Coordinator, ws *WSHandler, log *logrus.Logger) *APIServer {
	return &APIServer{coord: coord, ws: ws, log: log, now: time.Now}
}

// Routes builds the server's mux. HTTP endpoints are wrapped with request
// logging; the WebSocket logs its own connect and disconnect.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(s.log)
	mux.Handle("/api/health", logged(http.HandlerFunc(s.handleHealth)))
	mux.Handle("/api/lobbies", logged(http.HandlerFunc(s.handleLobbies)))
	mux.Handle("/ws", s.ws)
	return mux
}

func (s *APIServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"status":    "ok",
		"timestamp": s.now().UTC().Format(time.RFC3339),
	})
}

func (s *APIServer) handleLobbies(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.writeJSON(w, s.coord.ListLobbies())
}

func (s *APIServer) writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("failed to encode response")
	}
}
