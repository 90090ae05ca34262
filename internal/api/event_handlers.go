package api

import (
	"net/http"
	"strconv"

	_ "fileshare/internal/database"
)

// @Summary      Get new events
// @Description  Returns up to 100 journal events newer than the given id. Clients use it to catch up on shares and deletions missed while their websocket was closed.
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        since  query     int  false  "The ID of the last event received. Omit or use 0 to get all events."
// @Success      200    {array}   database.Event
// @Failure      400    {object}  ErrorResponse
// @Failure      401    {object}  ErrorResponse
// @Failure      500    {object}  ErrorResponse
// @Router       /events/ [get]
func (s *Server) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	sinceStr := r.URL.Query().Get("since")
	if sinceStr == "" {
		sinceStr = "0"
	}

	sinceID, err := strconv.ParseInt(sinceStr, 10, 64)
	if err != nil || sinceID < 0 {
		writeError(w, http.StatusBadRequest, "Invalid 'since' parameter, must be a non-negative number.")
		return
	}

	events, err := s.store.GetEventsSince(r.Context(), claims.UserID, sinceID)
	if err != nil {
		s.logger.Error("failed to retrieve events", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	writeJSON(w, http.StatusOK, events)
}
