package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/feldrin/quill/internal/model"
	"github.com/feldrin/quill/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is deliberately vague: the caller must not learn
// whether the email or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid email or password")

const sessionCookieName = "auth_token"

type AuthService struct {
	userRepository repository.UserRepository
	jwtSecret      string
	isProduction   bool
	sessionExpiry  time.Duration
	rememberExpiry time.Duration
}

func NewAuthService(
	userRepository repository.UserRepository,
	jwtSecret string,
	isProduction bool,
	sessionExpiry time.Duration,
	rememberExpiry time.Duration,
) *AuthService {
	return &AuthService{
		userRepository: userRepository,
		jwtSecret:      jwtSecret,
		isProduction:   isProduction,
		sessionExpiry:  sessionExpiry,
		rememberExpiry: rememberExpiry,
	}
}

// Authenticate verifies email+password and returns the user. Lookup failure
// and hash mismatch are indistinguishable to the caller.
func (s *AuthService) Authenticate(email, password string) (*model.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))

	user, err := s.userRepository.ByEmail(email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	err = s.ComparePassword(password, user.PasswordHash)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// ComparePassword returns a non-nil error for any mismatch, including a
// malformed hash. It never panics.
func (s *AuthService) ComparePassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (s *AuthService) GenerateJWT(user *model.User, expiry time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id": user.ID,
		"exp":     time.Now().Add(expiry).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

func (s *AuthService) VerifyJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if ok && token.Valid {
		return claims, nil
	}

	return nil, fmt.Errorf("invalid token")
}

// IssueSession establishes a logged-in session for the user. Without
// remember the cookie lives only for the browsing session; with remember it
// persists for the extended expiry.
func (s *AuthService) IssueSession(w http.ResponseWriter, user *model.User, remember bool) error {
	expiry := s.sessionExpiry
	if remember {
		expiry = s.rememberExpiry
	}

	token, err := s.GenerateJWT(user, expiry)
	if err != nil {
		return fmt.Errorf("failed to generate session token: %w", err)
	}

	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	}
	if remember {
		cookie.Expires = time.Now().Add(expiry)
	}

	http.SetCookie(w, cookie)
	return nil
}

// ClearSession invalidates the session cookie. Safe to call when no session
// exists.
func (s *AuthService) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Expires:  time.Unix(0, 0),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.isProduction,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionCookie extracts the raw session token from the request, if any.
func (s *AuthService) SessionCookie(r *http.Request) (string, bool) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}
