package service

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"time"

	"github.com/feldrin/quill/internal/model"
	"github.com/feldrin/quill/internal/repository"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
)

// PostPage is one page of a reverse-chronological post listing.
type PostPage struct {
	Posts   []*model.Post
	Number  int
	PerPage int
	Total   int
}

func (p *PostPage) TotalPages() int {
	if p.Total == 0 {
		return 1
	}
	return (p.Total + p.PerPage - 1) / p.PerPage
}

func (p *PostPage) HasPrev() bool { return p.Number > 1 }
func (p *PostPage) HasNext() bool { return p.Number < p.TotalPages() }
func (p *PostPage) Prev() int     { return p.Number - 1 }
func (p *PostPage) Next() int     { return p.Number + 1 }

type PostService struct {
	postRepository repository.PostRepository
	userRepository repository.UserRepository
	markdown       goldmark.Markdown
	perPage        int
}

func NewPostService(
	postRepository repository.PostRepository,
	userRepository repository.UserRepository,
	perPage int,
) *PostService {
	return &PostService{
		postRepository: postRepository,
		userRepository: userRepository,
		// goldmark escapes raw HTML by default, which is what we want for
		// user-authored content
		markdown: goldmark.New(),
		perPage:  perPage,
	}
}

// Create stores a new post for the given author. The web surface only lists
// posts; this is the entry point for out-of-band authoring (seed scripts,
// admin tooling).
func (s *PostService) Create(userID, title, content string) (*model.Post, error) {
	post := &model.Post{
		ID:        uuid.New().String(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now(),
	}

	err := s.postRepository.Create(post)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	return post, nil
}

// Recent returns one page of the site-wide feed, newest first.
func (s *PostService) Recent(page int) (*PostPage, error) {
	page = clampPage(page)

	total, err := s.postRepository.Count()
	if err != nil {
		return nil, fmt.Errorf("failed to count posts: %w", err)
	}

	posts, err := s.postRepository.Recent(s.perPage, (page-1)*s.perPage)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	s.decorate(posts)
	return &PostPage{Posts: posts, Number: page, PerPage: s.perPage, Total: total}, nil
}

// RecentByUser returns one page of a single author's posts, newest first.
// The author is looked up by username so callers can build the page straight
// from the URL.
func (s *PostService) RecentByUser(username string, page int) (*model.User, *PostPage, error) {
	page = clampPage(page)

	user, err := s.userRepository.ByUsername(username)
	if err != nil {
		return nil, nil, err
	}

	total, err := s.postRepository.CountByUser(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to count posts: %w", err)
	}

	posts, err := s.postRepository.RecentByUser(user.ID, s.perPage, (page-1)*s.perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list posts: %w", err)
	}

	for _, post := range posts {
		post.Author = user.Username
	}
	s.renderBodies(posts)

	return user, &PostPage{Posts: posts, Number: page, PerPage: s.perPage, Total: total}, nil
}

// decorate fills the computed fields on feed posts: author usernames and
// rendered markdown bodies.
func (s *PostService) decorate(posts []*model.Post) {
	authors := map[string]string{}
	for _, post := range posts {
		username, ok := authors[post.UserID]
		if !ok {
			user, err := s.userRepository.ByID(post.UserID)
			if err != nil {
				slog.Warn("post author missing", "post_id", post.ID, "user_id", post.UserID)
				continue
			}
			username = user.Username
			authors[post.UserID] = username
		}
		post.Author = username
	}
	s.renderBodies(posts)
}

func (s *PostService) renderBodies(posts []*model.Post) {
	for _, post := range posts {
		var buf bytes.Buffer
		err := s.markdown.Convert([]byte(post.Content), &buf)
		if err != nil {
			slog.Warn("markdown render failed", "post_id", post.ID, "error", err)
			continue
		}
		post.ContentHTML = template.HTML(buf.String())
	}
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}
