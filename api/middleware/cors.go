package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"
)

var devCORSOrigins = []string{
	"http://localhost:3000",
}

// CORS allows the dashboard app origin, plus localhost outside production.
func CORS(appURL string, allowLocal bool) func(http.Handler) http.Handler {
	origins := []string{}
	if appURL = strings.TrimRight(strings.TrimSpace(appURL), "/"); appURL != "" {
		origins = append(origins, appURL)
	}
	if allowLocal {
		origins = append(origins, devCORSOrigins...)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
