package validation

import (
	"errors"
)

// ValidatePassword validates password length.
// Maximum is 72 bytes: bcrypt silently truncates anything longer.
func ValidatePassword(password string) error {
	if password == "" {
		return errors.New("password is required")
	}

	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	if len(password) > 72 {
		return errors.New("password must not exceed 72 characters")
	}

	return nil
}
