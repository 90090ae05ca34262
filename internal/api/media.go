package api

import (
	"bufio"
	"context"
	"errors"
	"fileshare/internal/storage"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
)

const (
	maxAvatarSize     = 5 << 20
	blobDeleteTimeout = 10 * time.Second
	sniffLen          = 512
)

var (
	errAvatarTooLarge = errors.New("avatar: image must be at most 5 MB")
	errAvatarNotImage = errors.New("avatar: upload a valid image")
)

// saveAvatarFromForm stores the "avatar" part of an already parsed multipart
// form. It returns nil when no avatar was sent.
func (s *Server) saveAvatarFromForm(r *http.Request) (*string, error) {
	file, header, err := r.FormFile("avatar")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	if header.Size > maxAvatarSize {
		return nil, errAvatarTooLarge
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, err
	}
	if !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		return nil, errAvatarNotImage
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	key, err := storage.NewKey()
	if err != nil {
		return nil, err
	}
	if err := s.storage.Save(r.Context(), key, file); err != nil {
		return nil, err
	}
	return &key, nil
}

func (s *Server) writeAvatarError(w http.ResponseWriter, err error) {
	if errors.Is(err, errAvatarTooLarge) || errors.Is(err, errAvatarNotImage) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Error("failed to store avatar", "error", err)
	writeError(w, http.StatusInternalServerError, "Internal server error.")
}

// deleteBlob removes a blob whose database row is gone or was never written.
// It runs detached from the request so a client disconnect cannot leak it.
func (s *Server) deleteBlob(key string) {
	ctx, cancel := context.WithTimeout(context.Background(), blobDeleteTimeout)
	defer cancel()
	if err := s.storage.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete orphaned blob", "key", key, "error", err)
	}
}

// @Summary      Get an avatar image
// @Description  Streams an avatar by the key found in a user's "avatar" field.
// @Tags         users
// @Produce      octet-stream
// @Param        key  path      string  true  "Avatar key"
// @Success      200  {file}    file
// @Failure      404  {object}  ErrorResponse
// @Router       /media/avatars/{key} [get]
func (s *Server) AvatarHandler(w http.ResponseWriter, r *http.Request) {
	rc, err := s.storage.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			writeError(w, http.StatusNotFound, "Avatar not found.")
			return
		}
		s.logger.Error("failed to open avatar", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	defer rc.Close()

	br := bufio.NewReaderSize(rc, sniffLen)
	head, _ := br.Peek(sniffLen)
	w.Header().Set("Content-Type", http.DetectContentType(head))
	w.Header().Set("Cache-Control", "private, max-age=86400")
	if _, err := io.Copy(w, br); err != nil {
		s.logger.Warn("avatar stream interrupted", "error", err)
	}
}
