package routes

import (
	"net/http"

	"github.com/feldrin/quill/internal/app"
	"github.com/feldrin/quill/internal/handler"
	"github.com/feldrin/quill/internal/middleware"
	"github.com/feldrin/quill/internal/storage"
)

func SetupRoutes(app *app.App) http.Handler {
	// Handlers
	auth := handler.NewAuthHandler(app.AuthService, app.AccountService)
	account := handler.NewAccountHandler(app.AccountService, app.PictureService)
	post := handler.NewPostHandler(app.PostService)

	mux := http.NewServeMux()

	// Avatars are only served by this process with the local storage
	// driver; S3 serves its own presigned URLs
	local, ok := app.Storage.(*storage.LocalStorage)
	if ok {
		mux.Handle("GET /static/profile_pics/",
			http.StripPrefix("/static/profile_pics/", http.FileServer(http.Dir(local.Dir()))))
	}

	// Public pages
	mux.HandleFunc("GET /{$}", post.HomePage)
	mux.HandleFunc("GET /user/{username}", post.UserPosts)

	// Auth (rate limited)
	rateLimiter := middleware.RateLimitAuth()
	mux.HandleFunc("GET /register", middleware.RequireGuest(auth.RegisterPage))
	mux.HandleFunc("POST /register", rateLimiter(middleware.RequireGuest(auth.Register)))
	mux.HandleFunc("GET /login", middleware.RequireGuest(auth.LoginPage))
	mux.HandleFunc("POST /login", rateLimiter(middleware.RequireGuest(auth.Login)))
	mux.HandleFunc("POST /logout", auth.Logout)

	// Account (auth required)
	mux.HandleFunc("GET /account", middleware.RequireAuth(account.AccountPage))
	mux.HandleFunc("POST /account", middleware.RequireAuth(account.UpdateAccount))

	// 404
	mux.HandleFunc("/{path...}", post.NotFoundPage)

	// Global middleware - executed in order (top to bottom)
	return middleware.Chain(
		mux,
		middleware.Config(app.Cfg),
		middleware.RequestLogging,
		middleware.CSRFProtection,
		middleware.AuthMiddleware(app.AuthService, app.UserService),
	)
}
