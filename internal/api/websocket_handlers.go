package api

import (
	"fileshare/internal/auth"
	"fileshare/internal/websocket"
	"net/http"
)

// ServeWsHandler upgrades to a websocket that receives the caller's events.
// Browsers cannot set headers on the handshake, so the access token travels
// in the query string.
func (s *Server) ServeWsHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		writeError(w, http.StatusUnauthorized, "Missing token.")
		return
	}

	claims, err := auth.VerifyJWT(tokenString, s.config.JWT.Secret)
	if err != nil {
		s.logger.Debug("websocket connection with invalid token", "error", err)
		writeError(w, http.StatusUnauthorized, "Invalid or expired token.")
		return
	}

	conn, err := websocket.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	client := websocket.NewClient(s.wsHub, conn, claims.UserID)
	if !s.wsHub.Register(client) {
		conn.Close()
		return
	}

	go client.ReadPump()
	go client.WritePump()
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  ErrorResponse
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "Database unavailable.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
