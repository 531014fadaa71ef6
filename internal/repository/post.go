package repository

import (
	"errors"

	"github.com/feldrin/quill/internal/model"
	"github.com/jmoiron/sqlx"
)

var ErrPostNotFound = errors.New("post not found")

type PostRepository interface {
	Create(post *model.Post) error
	Recent(limit, offset int) ([]*model.Post, error)
	RecentByUser(userID string, limit, offset int) ([]*model.Post, error)
	Count() (int, error)
	CountByUser(userID string) (int, error)
}

type postRepository struct {
	db *sqlx.DB
}

func NewPostRepository(db *sqlx.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(post *model.Post) error {
	query := `INSERT INTO posts (id, user_id, title, content, created_at) VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.Exec(query, post.ID, post.UserID, post.Title, post.Content, post.CreatedAt)
	return err
}

func (r *postRepository) Recent(limit, offset int) ([]*model.Post, error) {
	var posts []*model.Post
	query := `SELECT * FROM posts ORDER BY created_at DESC LIMIT $1 OFFSET $2`

	err := r.db.Select(&posts, query, limit, offset)
	if err != nil {
		return nil, err
	}

	return posts, nil
}

func (r *postRepository) RecentByUser(userID string, limit, offset int) ([]*model.Post, error) {
	var posts []*model.Post
	query := `SELECT * FROM posts WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	err := r.db.Select(&posts, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return posts, nil
}

func (r *postRepository) Count() (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM posts`)
	return count, err
}

func (r *postRepository) CountByUser(userID string) (int, error) {
	var count int
	err := r.db.Get(&count, `SELECT COUNT(*) FROM posts WHERE user_id = $1`, userID)
	return count, err
}
