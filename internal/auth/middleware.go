package auth

import (
	"log"
	"net/http"
)

// Middleware verifies the Bearer token on each request and injects the
// resulting claims into the request context. Requests without a valid token
// are rejected with 401.
func Middleware(fa *FirebaseAuth) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := ExtractTokenFromHeader(r.Header.Get("Authorization"))
			if err != nil {
				http.Error(w, "missing or malformed authorization header", http.StatusUnauthorized)
				return
			}

			claims, err := fa.VerifyToken(r.Context(), token)
			if err != nil {
				log.Printf("[Auth] Token verification failed: %v", err)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserClaims(r.Context(), claims)))
		})
	}
}

// LocalDevMiddleware injects a mock user for local development with the
// memory store, so no Firebase project is needed to run the server.
// Never enable outside local mode.
func LocalDevMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := &UserClaims{
				UID:         "local-dev-user",
				Email:       "dev@localhost",
				DisplayName: "Local Dev User",
				Verified:    true,
			}
			if uid := r.Header.Get("X-Debug-User-ID"); uid != "" {
				claims.UID = uid
			}
			next.ServeHTTP(w, r.WithContext(WithUserClaims(r.Context(), claims)))
		})
	}
}
