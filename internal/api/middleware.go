package api

import (
	"context"
	"fileshare/internal/auth"
	"net/http"
	"strings"
)

type contextKey string

const userContextKey = contextKey("user")

func (s *Server) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeError(w, http.StatusUnauthorized, "Authentication credentials were not provided.")
			return
		}

		scheme, tokenString, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || tokenString == "" {
			writeError(w, http.StatusUnauthorized, "Invalid Authorization header format.")
			return
		}

		claims, err := auth.VerifyJWT(tokenString, s.config.JWT.Secret)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid or expired token.")
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetUserFromContext(ctx context.Context) *auth.AppClaims {
	if claims, ok := ctx.Value(userContextKey).(*auth.AppClaims); ok {
		return claims
	}
	return nil
}
