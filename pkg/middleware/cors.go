package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS creates a CORS middleware for the dashboard frontend. The API is
// GET/POST only, and Content-Disposition must be exposed so the browser can
// pick up the workbook export filename.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler
}
