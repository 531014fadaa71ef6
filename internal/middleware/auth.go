package middleware

import (
	"net/http"
	"net/url"

	"github.com/feldrin/quill/internal/ctxkeys"
	"github.com/feldrin/quill/internal/flash"
	"github.com/feldrin/quill/internal/service"
)

// AuthMiddleware resolves the session cookie to a user and adds it to the
// request context. Requests without a valid session continue anonymously.
func AuthMiddleware(authService *service.AuthService, userService *service.UserService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := authService.SessionCookie(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := authService.VerifyJWT(token)
			if err != nil {
				// Invalid or expired token, clear cookie and continue
				authService.ClearSession(w)
				next.ServeHTTP(w, r)
				return
			}

			userID, ok := claims["user_id"].(string)
			if !ok {
				authService.ClearSession(w)
				next.ServeHTTP(w, r)
				return
			}

			user, err := userService.ByID(userID)
			if err != nil {
				authService.ClearSession(w)
				next.ServeHTTP(w, r)
				return
			}

			// Keep the hash out of the request context
			user.PasswordHash = ""

			ctx := ctxkeys.WithUser(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAuth ensures the user is authenticated, otherwise redirects to the
// login page carrying the original destination in the next parameter.
func RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := ctxkeys.User(r.Context())
		if user == nil {
			flash.Add(w, r, flash.CategoryInfo, "Please log in to access this page.")
			// RequestURI keeps the query string so e.g. a page number
			// survives the login round trip
			http.Redirect(w, r, "/login?next="+url.QueryEscape(r.URL.RequestURI()), http.StatusSeeOther)
			return
		}

		next.ServeHTTP(w, r)
	}
}

// RequireGuest redirects authenticated users to the home page.
func RequireGuest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := ctxkeys.User(r.Context())
		if user != nil {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	}
}
