package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"famfin-server/src/logger"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const familyIDKey contextKey = "family_id"

// ParseTokenFromRequest extracts and validates the bearer token, returning
// its claims if valid.
func ParseTokenFromRequest(r *http.Request, secret []byte) (jwt.MapClaims, error) {
	tokenString := r.Header.Get("Authorization")
	if tokenString == "" {
		return nil, errors.New("missing token")
	}
	tokenString = strings.TrimPrefix(tokenString, "Bearer ")

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("invalid signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// JWTAuthMiddleware scopes the request to the family named by the token's
// family_id claim.
func JWTAuthMiddleware(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := ParseTokenFromRequest(r, secret)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			raw, _ := claims["family_id"].(string)
			familyID, err := uuid.Parse(raw)
			if err != nil {
				http.Error(w, "invalid token claims", http.StatusUnauthorized)
				return
			}

			ctx := WithFamilyID(r.Context(), familyID)
			log := logger.FromContext(ctx).With().Str("family_id", familyID.String()).Logger()
			ctx = logger.WithContext(ctx, log)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func WithFamilyID(ctx context.Context, familyID uuid.UUID) context.Context {
	return context.WithValue(ctx, familyIDKey, familyID)
}

func FamilyIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(familyIDKey).(uuid.UUID)
	return id, ok
}
