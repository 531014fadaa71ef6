package repository

import (
	"database/sql"
	"errors"
	"strings"

	"github.com/feldrin/quill/internal/model"
	"github.com/jmoiron/sqlx"
)

var (
	ErrUserNotFound  = errors.New("user not found")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already exists")
)

type UserRepository interface {
	Create(user *model.User) error
	ByID(id string) (*model.User, error)
	ByUsername(username string) (*model.User, error)
	ByEmail(email string) (*model.User, error)
	Update(user *model.User) error
}

type userRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) UserRepository {
	return &userRepository{db: db}
}

// Create inserts the user. The UNIQUE constraints on username and email are
// the last line of defense against concurrent registrations: a violation is
// mapped to ErrUsernameTaken/ErrEmailTaken for the caller to surface as a
// field error, not a fatal failure.
func (r *userRepository) Create(user *model.User) error {
	query := `INSERT INTO users (id, username, email, password_hash, image_file, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(query, user.ID, user.Username, user.Email, user.PasswordHash, user.ImageFile, user.CreatedAt)
	if err != nil {
		return mapUniqueViolation(err)
	}

	return nil
}

func (r *userRepository) ByID(id string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE id = $1`

	err := r.db.Get(user, query, id)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) ByUsername(username string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE username = $1`

	err := r.db.Get(user, query, username)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

func (r *userRepository) ByEmail(email string) (*model.User, error) {
	user := &model.User{}
	query := `SELECT * FROM users WHERE email = $1`

	err := r.db.Get(user, query, email)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}

	return user, err
}

// Update persists the mutable account fields. The password hash is set at
// creation and never changed here.
func (r *userRepository) Update(user *model.User) error {
	query := `UPDATE users SET username = $1, email = $2, image_file = $3 WHERE id = $4`

	_, err := r.db.Exec(query, user.Username, user.Email, user.ImageFile, user.ID)
	if err != nil {
		return mapUniqueViolation(err)
	}

	return nil
}

// mapUniqueViolation translates driver-specific unique constraint errors
// (works for both SQLite and PostgreSQL) into repository sentinels.
func mapUniqueViolation(err error) error {
	errStr := err.Error()
	if !strings.Contains(errStr, "UNIQUE constraint failed") && !strings.Contains(errStr, "duplicate key value") {
		return err
	}
	if strings.Contains(errStr, "username") {
		return ErrUsernameTaken
	}
	return ErrEmailTaken
}
