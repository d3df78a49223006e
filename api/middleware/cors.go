package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

var devCORSOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// AllowedOrigins is the configured public origin plus the local dev servers.
// The websocket upgrade checks against the same list.
func AllowedOrigins(publicOrigin string) []string {
	origins := append([]string{}, devCORSOrigins...)
	if origin := strings.TrimRight(strings.TrimSpace(publicOrigin), "/"); origin != "" {
		origins = append(origins, origin)
	}
	return origins
}

func CORS(publicOrigin string) func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   AllowedOrigins(publicOrigin),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id", "X-Requested-With"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
