package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	_ "fileshare/internal/models"
)

// @Summary      List active sessions
// @Description  Gets every unexpired session of the caller so they can review the devices they are logged in on.
// @Tags         sessions
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Session
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /sessions/ [get]
func (s *Server) ListSessionsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	sessions, err := s.store.ListSessionsForUser(r.Context(), claims.UserID)
	if err != nil {
		s.logger.Error("failed to list sessions", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	writeJSON(w, http.StatusOK, sessions)
}

// @Summary      Terminate a session
// @Description  Ends one of the caller's sessions by its ID. Sessions of other users are reported as not found.
// @Tags         sessions
// @Security     BearerAuth
// @Param        sessionId  path      string  true  "ID of the session to terminate" format(uuid)
// @Success      204        {null}    nil     "No Content"
// @Failure      400        {object}  ErrorResponse
// @Failure      401        {object}  ErrorResponse
// @Failure      404        {object}  ErrorResponse
// @Failure      500        {object}  ErrorResponse
// @Router       /sessions/{sessionId}/ [delete]
func (s *Server) DeleteSessionHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	sessionID, err := uuid.Parse(chi.URLParam(r, "sessionId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session ID format.")
		return
	}

	deleted, err := s.store.DeleteSessionByID(r.Context(), sessionID, claims.UserID)
	if err != nil {
		s.logger.Error("failed to delete session", "session_id", sessionID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "Session not found.")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// @Summary      Terminate all sessions (log out everywhere)
// @Description  Ends every session of the caller, including the current one. Access tokens already issued stay valid until they expire.
// @Tags         sessions
// @Security     BearerAuth
// @Success      204  {null}    nil "No Content"
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /sessions/terminate_all/ [post]
func (s *Server) TerminateAllSessionsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	removed, err := s.store.DeleteAllSessionsForUser(r.Context(), claims.UserID)
	if err != nil {
		s.logger.Error("failed to terminate sessions", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	s.logger.Info("all sessions terminated", "user_id", claims.UserID, "count", removed)
	w.WriteHeader(http.StatusNoContent)
}
