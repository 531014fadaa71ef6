package model

import (
	"html/template"
	"time"
)

type Post struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Title     string    `db:"title"`
	Content   string    `db:"content"`
	CreatedAt time.Time `db:"created_at"`

	// Computed fields (not in database)
	Author      string        `db:"-"`
	ContentHTML template.HTML `db:"-"`
}
