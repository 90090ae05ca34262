package api

import (
	"context"
	"errors"
	"fileshare/internal/auth"
	"fileshare/internal/database"
	"fileshare/internal/models"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

const maxRegisterMemory = 8 << 20

var errInvalidRefreshToken = errors.New("invalid or expired refresh token")

type RegisterRequest struct {
	Username string `json:"username" example:"alice"`
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct-horse"`
	Bio      string `json:"bio" example:"Photographer"`
}

type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct-horse"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh" example:"V1StGXR8_Z5jdHi6B-myT78q_Z5jdHi6B-myT78q"`
}

type TokenResponse struct {
	Access  string `json:"access" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...."`
	Refresh string `json:"refresh" example:"V1StGXR8_Z5jdHi6B-myT78q_Z5jdHi6B-myT78q"`
}

type RegisterResponse struct {
	TokenResponse
	User *models.User `json:"user"`
}

type LoginResponse struct {
	TokenResponse
	Message string `json:"message" example:"Login successful."`
}

// issueTokens creates a new session row and returns the token pair for it.
func (s *Server) issueTokens(ctx context.Context, q *database.Queries, user *models.User, r *http.Request) (TokenResponse, error) {
	accessToken, err := auth.GenerateJWT(user, s.config.JWT.Secret, s.config.JWT.AccessTTL)
	if err != nil {
		return TokenResponse{}, err
	}

	refreshToken := auth.NewRefreshToken()
	err = q.CreateSession(ctx, database.CreateSessionParams{
		ID:           uuid.New(),
		UserID:       user.ID,
		RefreshToken: refreshToken,
		UserAgent:    r.UserAgent(),
		ClientIP:     r.RemoteAddr,
		ExpiresAt:    time.Now().Add(s.config.JWT.RefreshTTL),
	})
	if err != nil {
		return TokenResponse{}, err
	}

	return TokenResponse{Access: accessToken, Refresh: refreshToken}, nil
}

// @Summary      Register a new user
// @Description  Creates an account and logs it in. Accepts JSON, or multipart/form-data when an avatar image is attached.
// @Tags         auth
// @Accept       json,mpfd
// @Produce      json
// @Param        registerRequest  body      RegisterRequest  true   "Account details"
// @Param        avatar           formData  file             false  "Avatar image (multipart only)"
// @Success      201              {object}  RegisterResponse
// @Failure      400              {object}  ErrorResponse
// @Failure      500              {object}  ErrorResponse
// @Router       /register/ [post]
func (s *Server) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	var avatarKey *string

	if isMultipart(r) {
		if err := r.ParseMultipartForm(maxRegisterMemory); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid multipart form.")
			return
		}
		req.Username = r.FormValue("username")
		req.Email = r.FormValue("email")
		req.Password = r.FormValue("password")
		req.Bio = r.FormValue("bio")
	} else if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if err := validateUsername(req.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooShort) || errors.Is(err, auth.ErrPasswordTooLong) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	if isMultipart(r) {
		key, err := s.saveAvatarFromForm(r)
		if err != nil {
			s.writeAvatarError(w, err)
			return
		}
		avatarKey = key
	}

	var resp RegisterResponse
	err = s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		user, err := q.CreateUser(r.Context(), database.CreateUserParams{
			Username:     req.Username,
			Email:        email,
			Slug:         slug.Make(req.Username),
			PasswordHash: hashedPassword,
			Bio:          req.Bio,
			AvatarKey:    avatarKey,
		})
		if err != nil {
			return err
		}
		tokens, err := s.issueTokens(r.Context(), q, user, r)
		if err != nil {
			return err
		}
		resp = RegisterResponse{TokenResponse: tokens, User: user}
		return nil
	})
	if err != nil {
		if avatarKey != nil {
			s.deleteBlob(*avatarKey)
		}
		if errors.Is(err, database.ErrUsernameTaken) || errors.Is(err, database.ErrEmailTaken) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("failed to register user", "username", req.Username, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	s.logger.Info("user registered", "user_id", resp.User.ID, "username", resp.User.Username)
	writeJSON(w, http.StatusCreated, resp)
}

// @Summary      Log in
// @Description  Authenticates by email and password and returns a short-lived access token and a long-lived refresh token.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        loginRequest  body      LoginRequest  true  "Login credentials"
// @Success      200           {object}  LoginResponse
// @Failure      400           {object}  ErrorResponse
// @Failure      500           {object}  ErrorResponse
// @Router       /login/ [post]
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	user, err := s.store.GetUserByEmail(r.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		s.logger.Error("failed to look up user", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	if user == nil || user.IsDisabled || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		writeError(w, http.StatusBadRequest, "Invalid credentials. Please try again.")
		return
	}

	var tokens TokenResponse
	err = s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		if err := q.DeleteExpiredSessions(r.Context(), user.ID); err != nil {
			return err
		}
		tokens, err = s.issueTokens(r.Context(), q, user, r)
		return err
	})
	if err != nil {
		s.logger.Error("failed to create session", "user_id", user.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	writeJSON(w, http.StatusOK, LoginResponse{TokenResponse: tokens, Message: "Login successful."})
}

// @Summary      Refresh tokens
// @Description  Exchanges a valid refresh token for a new token pair. The old refresh token is invalidated.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        refreshRequest  body      RefreshRequest  true  "Refresh token"
// @Success      200             {object}  TokenResponse
// @Failure      400             {object}  ErrorResponse
// @Failure      401             {object}  ErrorResponse
// @Failure      500             {object}  ErrorResponse
// @Router       /token/refresh/ [post]
func (s *Server) RefreshTokenHandler(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := decodeJSON(r, &req); err != nil || req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	var tokens TokenResponse
	err := s.store.ExecTx(r.Context(), func(q *database.Queries) error {
		user, err := q.GetUserByRefreshToken(r.Context(), req.Refresh)
		if err != nil {
			return err
		}
		if user == nil || user.IsDisabled {
			return errInvalidRefreshToken
		}

		// Losing the delete race to a concurrent refresh means the token was
		// already spent.
		deleted, err := q.DeleteSessionByRefreshToken(r.Context(), req.Refresh)
		if err != nil {
			return err
		}
		if !deleted {
			return errInvalidRefreshToken
		}

		tokens, err = s.issueTokens(r.Context(), q, user, r)
		return err
	})
	if err != nil {
		if errors.Is(err, errInvalidRefreshToken) {
			writeError(w, http.StatusUnauthorized, "Invalid or expired refresh token.")
			return
		}
		s.logger.Error("failed to rotate refresh token", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	writeJSON(w, http.StatusOK, tokens)
}

// @Summary      Log out
// @Description  Ends the session identified by the refresh token. Only the caller's own sessions can be ended.
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        refreshRequest  body      RefreshRequest  true  "Refresh token of the session to end"
// @Success      200             {object}  MessageResponse
// @Failure      400             {object}  ErrorResponse
// @Failure      401             {object}  ErrorResponse
// @Failure      500             {object}  ErrorResponse
// @Router       /logout/ [post]
func (s *Server) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())

	var req RefreshRequest
	if err := decodeJSON(r, &req); err != nil || req.Refresh == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	session, err := s.store.GetSessionByRefreshToken(r.Context(), req.Refresh)
	if err != nil {
		s.logger.Error("failed to look up session", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}
	if session == nil || session.UserID != claims.UserID {
		writeError(w, http.StatusBadRequest, "Invalid refresh token.")
		return
	}

	if _, err := s.store.DeleteSessionByID(r.Context(), session.ID, claims.UserID); err != nil {
		s.logger.Error("failed to delete session", "session_id", session.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error.")
		return
	}

	writeMessage(w, "Logout successful.")
}
