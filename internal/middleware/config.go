package middleware

import (
	"net/http"

	cfg "github.com/feldrin/quill/internal/config"
	"github.com/feldrin/quill/internal/ctxkeys"
)

// Config adds a sanitized copy of the app config to every request context.
func Config(c *cfg.Config) func(http.Handler) http.Handler {
	sanitized := c.Sanitized()
	// IsProduction checks need the real env, which Sanitized keeps
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := ctxkeys.WithConfig(r.Context(), sanitized)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
