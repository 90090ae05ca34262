package api

import (
	"errors"
	"fileshare/internal/database"
	"fileshare/internal/models"
	"fileshare/internal/storage"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	maxUploadSize   = 1 << 30
	maxUploadMemory = 32 << 20
	maxFileName     = 255
)

type sharedFileDeletedPayload struct {
	FileID    int64  `json:"file_id"`
	FileName  string `json:"file_name"`
	OwnerID   int64  `json:"owner_id"`
	OwnerName string `json:"owner_username"`
}

// @Summary      List my files
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size (default 100, max 1000)"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {array}   models.File
// @Failure      401     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /user/files/ [get]
func (s *Server) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	files, err := s.store.ListFilesByOwner(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list files", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	writeJSON(w, http.StatusOK, files)
}

// @Summary      Upload a file
// @Description  Stores the uploaded content and creates a file owned by the caller.
// @Tags         files
// @Accept       mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        file  formData  file  true  "File to upload"
// @Success      201   {object}  models.File
// @Failure      400   {object}  ErrorResponse
// @Failure      401   {object}  ErrorResponse
// @Failure      413   {object}  ErrorResponse
// @Failure      500   {object}  ErrorResponse
// @Router       /user/files/ [post]
func (s *Server) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large.")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file: this field is required")
		return
	}
	defer file.Close()

	name := filepath.Base(strings.ReplaceAll(header.Filename, `\`, "/"))
	if name == "" || name == "." || name == "/" || len(name) > maxFileName {
		writeError(w, http.StatusBadRequest, "file: invalid file name")
		return
	}

	var mimeType *string
	if ct := header.Header.Get("Content-Type"); ct != "" {
		if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
			mimeType = &mediaType
		}
	}

	key, err := storage.NewKey()
	if err != nil {
		s.logger.Error("failed to generate storage key", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	if err := s.storage.Save(r.Context(), key, file); err != nil {
		s.logger.Error("failed to store upload", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	created, err := s.store.CreateFile(r.Context(), database.CreateFileParams{
		OwnerID:    claims.UserID,
		StorageKey: key,
		Name:       name,
		SizeBytes:  header.Size,
		MimeType:   mimeType,
	})
	if err != nil {
		s.deleteBlob(key)
		if errors.Is(err, database.ErrUserNotFound) {
			writeError(w, http.StatusUnauthorized, "User no longer exists.")
			return
		}
		s.logger.Error("failed to create file record", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	s.logger.Info("file uploaded", "file_id", created.ID, "user_id", claims.UserID, "size", created.SizeBytes)
	writeJSON(w, http.StatusCreated, created)
}

// accessibleFile loads a file the caller owns or was granted. It writes the
// response itself and returns nil when the handler should stop.
func (s *Server) accessibleFile(w http.ResponseWriter, r *http.Request) *models.File {
	claims := GetUserFromContext(r.Context())

	fileID, ok := int64Param(r, "fileId")
	if !ok {
		writeError(w, http.StatusNotFound, "File not found.")
		return nil
	}

	file, err := s.store.GetFileIfAccessible(r.Context(), fileID, claims.UserID)
	if err != nil {
		s.logger.Error("failed to load file", "file_id", fileID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return nil
	}
	if file == nil {
		writeError(w, http.StatusNotFound, "File not found.")
		return nil
	}
	return file
}

// @Summary      Get file details
// @Description  Visible to the owner and to users the file was shared with.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        fileId  path      int  true  "File ID"
// @Success      200     {object}  models.File
// @Failure      401     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /user/files/{fileId}/ [get]
func (s *Server) GetFileHandler(w http.ResponseWriter, r *http.Request) {
	file := s.accessibleFile(w, r)
	if file == nil {
		return
	}
	writeJSON(w, http.StatusOK, file)
}

// @Summary      Download a file
// @Description  Streams the file content to the owner or to a user it was shared with.
// @Tags         files
// @Produce      octet-stream
// @Security     BearerAuth
// @Param        fileId  path      int  true  "File ID"
// @Success      200     {file}    file
// @Failure      401     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /user/files/{fileId}/download/ [get]
func (s *Server) DownloadFileHandler(w http.ResponseWriter, r *http.Request) {
	file := s.accessibleFile(w, r)
	if file == nil {
		return
	}

	rc, err := s.storage.Get(r.Context(), file.StorageKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			s.logger.Error("file content missing from storage", "file_id", file.ID, "key", file.StorageKey)
			writeError(w, http.StatusNotFound, "File content not found.")
			return
		}
		s.logger.Error("failed to open file content", "file_id", file.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	defer rc.Close()

	contentType := "application/octet-stream"
	if file.MimeType != nil {
		contentType = *file.MimeType
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.SizeBytes, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": file.Name}))

	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Warn("download interrupted", "file_id", file.ID, "error", err)
	}
}

// @Summary      Delete a file
// @Description  Only the owner can delete a file. Users it was shared with are notified.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        fileId  path      int  true  "File ID"
// @Success      200     {object}  MessageResponse
// @Failure      401     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /user/files/{fileId}/ [delete]
func (s *Server) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	fileID, ok := int64Param(r, "fileId")
	if !ok {
		writeError(w, http.StatusNotFound, "File not found.")
		return
	}

	var deleted *models.File
	var payload sharedFileDeletedPayload
	txErr := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		var err error
		deleted, err = q.DeleteFile(r.Context(), fileID, claims.UserID)
		if err != nil {
			return err
		}

		payload = sharedFileDeletedPayload{
			FileID:    deleted.ID,
			FileName:  deleted.Name,
			OwnerID:   claims.UserID,
			OwnerName: claims.Username,
		}
		for _, userID := range deleted.AllowedUsers {
			if err := q.LogEvent(r.Context(), userID, database.EventSharedFileDeleted, payload); err != nil {
				return err
			}
		}
		return nil
	})
	if txErr != nil {
		if errors.Is(txErr, database.ErrFileNotFound) {
			writeError(w, http.StatusNotFound, "File not found.")
			return
		}
		s.logger.Error("failed to delete file", "file_id", fileID, "error", txErr)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	s.deleteBlob(deleted.StorageKey)

	if len(deleted.AllowedUsers) > 0 {
		eventBytes, err := database.MarshalEvent(database.EventSharedFileDeleted, payload)
		if err == nil {
			for _, userID := range deleted.AllowedUsers {
				s.wsHub.PublishEvent(userID, eventBytes)
			}
		}
	}

	writeMessage(w, "File deleted successfully.")
}

// @Summary      List files shared with me
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size (default 100, max 1000)"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {array}   models.File
// @Failure      401     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /user/files/shared/ [get]
func (s *Server) ListSharedWithMeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	limit, offset := parsePagination(r)

	files, err := s.store.ListFilesSharedWith(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		s.logger.Error("failed to list shared files", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	writeJSON(w, http.StatusOK, files)
}
