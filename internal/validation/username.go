package validation

import (
	"errors"
)

const (
	UsernameMinLen = 5
	UsernameMaxLen = 20
)

// ValidateUsername validates username length and character set.
// Usernames appear in URLs (/user/{username}), so only letters, digits,
// underscore and hyphen are allowed.
func ValidateUsername(username string) error {
	if username == "" {
		return errors.New("username is required")
	}

	if len(username) < UsernameMinLen || len(username) > UsernameMaxLen {
		return errors.New("username must be between 5 and 20 characters")
	}

	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return errors.New("username may only contain letters, digits, underscore and hyphen")
		}
	}

	return nil
}
