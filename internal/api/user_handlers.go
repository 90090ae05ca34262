package api

import (
	"errors"
	"fileshare/internal/database"
	"fileshare/internal/models"
	"net/http"
	"strings"

	"github.com/gosimple/slug"
)

const autocompleteLimit = 10

type EditProfileRequest struct {
	Username *string `json:"username,omitempty" example:"alice"`
	Email    *string `json:"email,omitempty" example:"alice@example.com"`
	Bio      *string `json:"bio,omitempty" example:"Photographer"`
}

type AutocompleteItem struct {
	Label string `json:"label" example:"alice"`
	Value int64  `json:"value" example:"1"`
}

type HomeResponse struct {
	UserFiles   []models.File `json:"user_files"`
	SharedFiles []models.File `json:"shared_files"`
	User        *models.User  `json:"user"`
}

// @Summary      Get current user profile
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.User
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /profile/ [get]
func (s *Server) ProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	user, err := s.store.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		s.logger.Error("failed to load profile", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found.")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// @Summary      Edit current user profile
// @Description  Partially updates username, email and bio. Send multipart/form-data to replace the avatar at the same time. The slug follows the username and cannot be set directly.
// @Tags         users
// @Accept       json,mpfd
// @Produce      json
// @Security     BearerAuth
// @Param        editProfileRequest  body      EditProfileRequest  true   "Fields to change"
// @Param        avatar              formData  file                false  "New avatar image (multipart only)"
// @Success      200                 {object}  models.User
// @Failure      400                 {object}  ErrorResponse
// @Failure      401                 {object}  ErrorResponse
// @Failure      500                 {object}  ErrorResponse
// @Router       /profile/edit/ [put]
func (s *Server) EditProfileHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req EditProfileRequest
	multipart := isMultipart(r)
	if multipart {
		if err := r.ParseMultipartForm(maxRegisterMemory); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid multipart form.")
			return
		}
		req.Username = formValue(r, "username")
		req.Email = formValue(r, "email")
		req.Bio = formValue(r, "bio")
	} else if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	params := database.UpdateUserParams{Bio: req.Bio}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if err := validateUsername(username); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		userSlug := slug.Make(username)
		params.Username = &username
		params.Slug = &userSlug
	}
	if req.Email != nil {
		email, err := normalizeEmail(*req.Email)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		params.Email = &email
	}

	if multipart {
		key, err := s.saveAvatarFromForm(r)
		if err != nil {
			s.writeAvatarError(w, err)
			return
		}
		params.AvatarKey = key
	}

	var previousAvatar *string
	var updated *models.User
	err := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		current, err := q.LockUser(r.Context(), claims.UserID)
		if err != nil {
			return err
		}
		if current == nil {
			return database.ErrUserNotFound
		}
		previousAvatar = current.AvatarKey

		updated, err = q.UpdateUserProfile(r.Context(), claims.UserID, params)
		return err
	})
	if err != nil {
		if params.AvatarKey != nil {
			s.deleteBlob(*params.AvatarKey)
		}
		switch {
		case errors.Is(err, database.ErrUsernameTaken), errors.Is(err, database.ErrEmailTaken):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, database.ErrUserNotFound):
			writeError(w, http.StatusNotFound, "User not found.")
		default:
			s.logger.Error("failed to update profile", "user_id", claims.UserID, "error", err)
			writeError(w, http.StatusInternalServerError, "Internal server error.")
		}
		return
	}

	if params.AvatarKey != nil && previousAvatar != nil {
		s.deleteBlob(*previousAvatar)
	}

	writeJSON(w, http.StatusOK, updated)
}

// @Summary      Autocomplete usernames
// @Description  Returns users whose username contains the term, ignoring case. Used to pick a share recipient.
// @Tags         users
// @Produce      json
// @Param        term  query     string  false  "Part of a username"
// @Success      200   {array}   AutocompleteItem
// @Failure      500   {object}  ErrorResponse
// @Router       /autocomplete/users/ [get]
func (s *Server) AutocompleteUsersHandler(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("term"))
	items := []AutocompleteItem{}
	if term == "" {
		writeJSON(w, http.StatusOK, items)
		return
	}

	users, err := s.store.SearchUsersByUsername(r.Context(), term, autocompleteLimit)
	if err != nil {
		s.logger.Error("failed to search users", "term", term, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	for _, u := range users {
		items = append(items, AutocompleteItem{Label: u.Username, Value: u.ID})
	}
	writeJSON(w, http.StatusOK, items)
}

// @Summary      Home overview
// @Description  Returns the caller's own files, the files shared with them, and their profile in one response.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  HomeResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      404  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /home/ [get]
func (s *Server) HomeHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	ctx := r.Context()

	user, err := s.store.GetUserByID(ctx, claims.UserID)
	if err != nil {
		s.logger.Error("failed to load user", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found.")
		return
	}

	userFiles, err := s.store.ListFilesByOwner(ctx, claims.UserID, maxPageSize, 0)
	if err != nil {
		s.logger.Error("failed to list files", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	sharedFiles, err := s.store.ListFilesSharedWith(ctx, claims.UserID, maxPageSize, 0)
	if err != nil {
		s.logger.Error("failed to list shared files", "user_id", claims.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	writeJSON(w, http.StatusOK, HomeResponse{
		UserFiles:   userFiles,
		SharedFiles: sharedFiles,
		User:        user,
	})
}
