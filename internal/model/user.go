package model

import (
	"time"
)

// DefaultImageFile is the avatar reference every account starts with.
// It is never written by the picture store, so it is safe to share.
const DefaultImageFile = "default.jpg"

type User struct {
	ID           string    `db:"id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	ImageFile    string    `db:"image_file"`
	CreatedAt    time.Time `db:"created_at"`

	// Computed field (not in database)
	ImageURL string `db:"-"`
}
