package service

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/feldrin/quill/internal/form"
	"github.com/feldrin/quill/internal/model"
	"github.com/feldrin/quill/internal/repository"
	"github.com/feldrin/quill/internal/validation"
	"github.com/google/uuid"
)

const (
	msgUsernameTaken = "This username is already taken. Please choose a different one."
	msgEmailTaken    = "This email is already taken. Please choose a different one."
)

type RegisterInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

type UpdateAccountInput struct {
	Username string
	Email    string

	// Optional replacement avatar; nil means keep the current one.
	Picture     io.Reader
	PictureName string
}

// AccountService orchestrates registration and account updates: field
// validation, uniqueness checks, password hashing and avatar replacement.
type AccountService struct {
	userRepository repository.UserRepository
	authService    *AuthService
	pictureService *PictureService
}

func NewAccountService(
	userRepository repository.UserRepository,
	authService *AuthService,
	pictureService *PictureService,
) *AccountService {
	return &AccountService{
		userRepository: userRepository,
		authService:    authService,
		pictureService: pictureService,
	}
}

// Register validates the input in one pass, collecting an error per field,
// and creates the user when everything checks out. The returned form.Errors
// is non-empty when the submission must be re-rendered; the error return is
// reserved for server faults. A new registration is never logged in here.
func (s *AccountService) Register(in RegisterInput) (*model.User, form.Errors, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	formErrors := form.Errors{}

	err := validation.ValidateUsername(in.Username)
	if err != nil {
		formErrors.Add("username", err.Error())
	}

	err = validation.ValidateEmail(in.Email)
	if err != nil {
		formErrors.Add("email", err.Error())
	}

	err = validation.ValidatePassword(in.Password)
	if err != nil {
		formErrors.Add("password", err.Error())
	}

	if in.ConfirmPassword != in.Password {
		formErrors.Add("confirm_password", "Passwords must match.")
	}

	// Uniqueness pre-checks are a fast-path courtesy only; the UNIQUE
	// constraints enforced in Create are the actual guarantee.
	if !formErrors.Has("username") {
		_, err = s.userRepository.ByUsername(in.Username)
		if err == nil {
			formErrors.Add("username", msgUsernameTaken)
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, fmt.Errorf("failed to check username: %w", err)
		}
	}

	if !formErrors.Has("email") {
		_, err = s.userRepository.ByEmail(in.Email)
		if err == nil {
			formErrors.Add("email", msgEmailTaken)
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	if formErrors.Any() {
		return nil, formErrors, nil
	}

	passwordHash, err := s.authService.HashPassword(in.Password)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		ID:           uuid.New().String(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: passwordHash,
		ImageFile:    model.DefaultImageFile,
		CreatedAt:    time.Now(),
	}

	err = s.userRepository.Create(user)
	if err != nil {
		// A concurrent registration slipped past the pre-check; surface it
		// as a field error like any other conflict.
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			formErrors.Add("username", msgUsernameTaken)
			return nil, formErrors, nil
		case errors.Is(err, repository.ErrEmailTaken):
			formErrors.Add("email", msgEmailTaken)
			return nil, formErrors, nil
		}
		return nil, nil, fmt.Errorf("failed to create user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID, "username", user.Username)
	return user, nil, nil
}

// Update validates and persists account changes for the authenticated user.
// Uniqueness checks are skipped for values the user already owns, so
// resubmitting one's own username or email is never a conflict. The avatar,
// when submitted, goes through the picture store before the single UPDATE
// that persists all field changes.
func (s *AccountService) Update(user *model.User, in UpdateAccountInput) (form.Errors, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(strings.ToLower(in.Email))

	formErrors := form.Errors{}

	err := validation.ValidateUsername(in.Username)
	if err != nil {
		formErrors.Add("username", err.Error())
	}

	err = validation.ValidateEmail(in.Email)
	if err != nil {
		formErrors.Add("email", err.Error())
	}

	if !formErrors.Has("username") && in.Username != user.Username {
		_, err = s.userRepository.ByUsername(in.Username)
		if err == nil {
			formErrors.Add("username", msgUsernameTaken)
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
	}

	if !formErrors.Has("email") && in.Email != user.Email {
		_, err = s.userRepository.ByEmail(in.Email)
		if err == nil {
			formErrors.Add("email", msgEmailTaken)
		} else if !errors.Is(err, repository.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	if formErrors.Any() {
		return formErrors, nil
	}

	imageFile := user.ImageFile
	if in.Picture != nil {
		reference, err := s.pictureService.Save(in.Picture, in.PictureName)
		if err != nil {
			switch {
			case errors.Is(err, ErrUnsupportedMedia):
				formErrors.Add("picture", "Only jpg and png images are allowed.")
				return formErrors, nil
			case errors.Is(err, ErrPictureTooLarge):
				formErrors.Add("picture", "The picture must be 5MB or smaller.")
				return formErrors, nil
			}
			return nil, fmt.Errorf("failed to save picture: %w", err)
		}
		imageFile = reference
	}

	updated := *user
	updated.Username = in.Username
	updated.Email = in.Email
	updated.ImageFile = imageFile

	err = s.userRepository.Update(&updated)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			formErrors.Add("username", msgUsernameTaken)
			return formErrors, nil
		case errors.Is(err, repository.ErrEmailTaken):
			formErrors.Add("email", msgEmailTaken)
			return formErrors, nil
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	*user = updated
	slog.Info("account updated", "user_id", user.ID, "username", user.Username)
	return nil, nil
}
