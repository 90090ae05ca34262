package api

import (
	"errors"
	"fileshare/internal/database"
	"fileshare/internal/sharing"
	"fmt"
	"net/http"
)

type ShareRequest struct {
	Recipient *int64 `json:"recipient" example:"2"`
}

type fileSharedPayload struct {
	FileID        int64  `json:"file_id"`
	FileName      string `json:"file_name"`
	OwnerID       int64  `json:"owner_id"`
	OwnerUsername string `json:"owner_username"`
}

// shareErrorStatus maps a sharing failure to its HTTP status and metrics
// outcome label.
func shareErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, sharing.ErrSelfShare):
		return http.StatusBadRequest, shareOutcomeSelf
	case errors.Is(err, sharing.ErrAlreadyShared):
		return http.StatusBadRequest, shareOutcomeAlready
	case errors.Is(err, sharing.ErrRecipientNotFound):
		return http.StatusBadRequest, shareOutcomeBadRecipient
	case errors.Is(err, sharing.ErrNotFoundOrForbidden):
		return http.StatusNotFound, shareOutcomeNotFound
	}
	return http.StatusInternalServerError, shareOutcomeInternalError
}

// @Summary      Share a file
// @Description  Grants another user read access to a file the caller owns. The grant and its event are written in one transaction, concurrent identical requests succeed exactly once.
// @Tags         shares
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        fileId        path      int           true  "File ID"
// @Param        shareRequest  body      ShareRequest  true  "Recipient user ID"
// @Success      200           {object}  MessageResponse
// @Failure      400           {object}  ErrorResponse  "Self share, already shared, invalid recipient or malformed body"
// @Failure      401           {object}  ErrorResponse
// @Failure      404           {object}  ErrorResponse  "File not found or not owned by the caller"
// @Failure      500           {object}  ErrorResponse
// @Router       /user/files/share/{fileId}/ [post]
func (s *Server) ShareFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	fileID, ok := int64Param(r, "fileId")
	if !ok {
		shareAttemptsTotal.WithLabelValues(shareOutcomeNotFound).Inc()
		writeError(w, http.StatusNotFound, "File not found or you do not have permission to share it.")
		return
	}

	var req ShareRequest
	if err := decodeJSON(r, &req); err != nil {
		shareAttemptsTotal.WithLabelValues(shareOutcomeBadRequest).Inc()
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if req.Recipient == nil {
		shareAttemptsTotal.WithLabelValues(shareOutcomeBadRequest).Inc()
		writeError(w, http.StatusBadRequest, "recipient: this field is required")
		return
	}

	var grant *sharing.Grant
	var payload fileSharedPayload
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		grant, err = sharing.ShareFile(r.Context(), q, sharing.Request{
			RequesterID: claims.UserID,
			FileID:      fileID,
			RecipientID: *req.Recipient,
		})
		if err != nil {
			return err
		}

		payload = fileSharedPayload{
			FileID:        grant.File.ID,
			FileName:      grant.File.Name,
			OwnerID:       claims.UserID,
			OwnerUsername: claims.Username,
		}
		return q.LogEvent(r.Context(), grant.Recipient.ID, database.EventFileSharedWithYou, payload)
	})
	if txErr != nil {
		status, outcome := shareErrorStatus(txErr)
		shareAttemptsTotal.WithLabelValues(outcome).Inc()
		if !sharing.IsClientError(txErr) {
			s.logger.Error("failed to share file", "file_id", fileID, "recipient_id", *req.Recipient, "error", txErr)
			writeError(w, status, "Internal server error.")
			return
		}
		writeError(w, status, shareErrorMessage(txErr))
		return
	}
	shareAttemptsTotal.WithLabelValues(shareOutcomeShared).Inc()

	if eventBytes, err := database.MarshalEvent(database.EventFileSharedWithYou, payload); err == nil {
		s.wsHub.PublishEvent(grant.Recipient.ID, eventBytes)
	}

	s.logger.Info("file shared", "file_id", grant.File.ID, "owner_id", claims.UserID, "recipient_id", grant.Recipient.ID)
	writeMessage(w, fmt.Sprintf("File shared with %s successfully.", grant.Recipient.Username))
}

func shareErrorMessage(err error) string {
	switch {
	case errors.Is(err, sharing.ErrSelfShare):
		return "You cannot share a file with yourself."
	case errors.Is(err, sharing.ErrAlreadyShared):
		return "This file has already been shared with the recipient."
	case errors.Is(err, sharing.ErrRecipientNotFound):
		return "Invalid recipient."
	case errors.Is(err, sharing.ErrNotFoundOrForbidden):
		return "File not found or you do not have permission to share it."
	}
	return err.Error()
}

// @Summary      List my outgoing shares
// @Description  Every grant the caller made on their own files, newest first.
// @Tags         shares
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size (default 100, max 1000)"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {array}   database.OutgoingShare
// @Failure      401     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /user/files/outgoing/ [get]
func (s *Server) ListOutgoingSharesHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	shares, err := s.store.ListOutgoingShares(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list outgoing shares", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	writeJSON(w, http.StatusOK, shares)
}
