package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/feldrin/quill/internal/flash"
	"github.com/feldrin/quill/internal/form"
	"github.com/feldrin/quill/internal/service"
	"github.com/feldrin/quill/internal/ui"
)

type AuthHandler struct {
	authService    *service.AuthService
	accountService *service.AccountService
}

func NewAuthHandler(authService *service.AuthService, accountService *service.AccountService) *AuthHandler {
	return &AuthHandler{
		authService:    authService,
		accountService: accountService,
	}
}

func (h *AuthHandler) RegisterPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, "register", "Register", &form.Register{})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	in := service.RegisterInput{
		Username:        r.FormValue("username"),
		Email:           r.FormValue("email"),
		Password:        r.FormValue("password"),
		ConfirmPassword: r.FormValue("confirm_password"),
	}

	user, formErrors, err := h.accountService.Register(in)
	if err != nil {
		slog.Error("registration failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if formErrors.Any() {
		ui.Render(w, r, "register", "Register", &form.Register{
			Username: in.Username,
			Email:    in.Email,
			Errors:   formErrors,
		})
		return
	}

	// Registration does not log the user in; they sign in themselves.
	slog.Info("registration complete", "user_id", user.ID, "username", user.Username)
	flash.Add(w, r, flash.CategorySuccess, "Your account has been created! You are now able to log in!")
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	ui.Render(w, r, "login", "Login", &form.Login{
		Next: safeNext(r.URL.Query().Get("next")),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	remember := r.FormValue("remember") != ""
	next := safeNext(r.URL.Query().Get("next"))

	loginForm := &form.Login{
		Email:    email,
		Remember: remember,
		Next:     next,
		Errors:   form.Errors{},
	}

	user, err := h.authService.Authenticate(email, password)
	if err != nil {
		if !errors.Is(err, service.ErrInvalidCredentials) {
			slog.Error("login failed", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		// One generic message no matter which part was wrong
		loginForm.Errors.Add("", "Login Unsuccessful! Please check email and password.")
		ui.Render(w, r, "login", "Login", loginForm)
		return
	}

	err = h.authService.IssueSession(w, user, remember)
	if err != nil {
		slog.Error("failed to issue session", "error", err, "user_id", user.ID)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	slog.Info("user logged in", "user_id", user.ID, "remember", remember)

	if next != "" {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.authService.ClearSession(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// safeNext keeps post-login redirects on this site: only rooted paths pass,
// protocol-relative URLs ("//evil.com") and absolute URLs do not.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") {
		return ""
	}
	if strings.HasPrefix(next, "//") || strings.Contains(next, "\\") {
		return ""
	}
	return next
}
