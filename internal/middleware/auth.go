package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/dukerupert/homequest/internal/auth"
	"github.com/dukerupert/homequest/internal/identity"
)

// SessionCookie is the http-only cookie holding the signed session token.
const SessionCookie = "homequest_session"

// SessionTTL is how long a signed-in session stays valid.
const SessionTTL = 30 * 24 * time.Hour

// Claims is the JWT payload for a session.
type Claims struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SignSession issues an HS256 session token for the identity.
func SignSession(secret []byte, ident identity.Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		Name:  ident.Name,
		Email: ident.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   ident.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(SessionTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// ParseSession validates a session token and returns its claims.
func ParseSession(secret []byte, token string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(token, &Claims{}, func(*jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, errors.New("invalid session token")
}

// RequireAuth validates the session cookie against the identity provider's
// current identity and attaches it to the request context. A valid cookie
// for an identity that is no longer signed in is rejected.
func RequireAuth(secret []byte, provider identity.Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			claims, err := ParseSession(secret, cookie.Value)
			if err != nil {
				unauthorized(w)
				return
			}

			current := provider.Current()
			if current == nil || current.ID != claims.Subject {
				unauthorized(w)
				return
			}

			ctx := auth.WithIdentity(r.Context(), *current)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
