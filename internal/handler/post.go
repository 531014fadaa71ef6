package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/feldrin/quill/internal/model"
	"github.com/feldrin/quill/internal/repository"
	"github.com/feldrin/quill/internal/service"
	"github.com/feldrin/quill/internal/ui"
)

// UserPostsData is the template payload for a user's post listing.
type UserPostsData struct {
	User *model.User
	Page *service.PostPage
}

type PostHandler struct {
	postService *service.PostService
}

func NewPostHandler(postService *service.PostService) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// HomePage renders the paginated site-wide feed.
func (h *PostHandler) HomePage(w http.ResponseWriter, r *http.Request) {
	page, err := h.postService.Recent(pageParam(r))
	if err != nil {
		http.Error(w, "failed to load posts", http.StatusInternalServerError)
		return
	}

	ui.Render(w, r, "home", "", page)
}

// UserPosts renders the paginated listing of one user's posts.
func (h *PostHandler) UserPosts(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")

	user, page, err := h.postService.RecentByUser(username, pageParam(r))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			h.NotFoundPage(w, r)
			return
		}
		http.Error(w, "failed to load posts", http.StatusInternalServerError)
		return
	}

	ui.Render(w, r, "user_posts", user.Username, &UserPostsData{User: user, Page: page})
}

func (h *PostHandler) NotFoundPage(w http.ResponseWriter, r *http.Request) {
	ui.RenderStatus(w, r, http.StatusNotFound, "notfound", "Not Found", nil)
}

func pageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return page
}
