package handler

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/feldrin/quill/internal/ctxkeys"
	"github.com/feldrin/quill/internal/flash"
	"github.com/feldrin/quill/internal/model"
	"github.com/feldrin/quill/internal/repository"
	"github.com/feldrin/quill/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fixtures ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (m *memUserRepo) Create(user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Username == user.Username {
			return repository.ErrUsernameTaken
		}
		if existing.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	copied := *user
	m.users[user.ID] = &copied
	return nil
}

func (m *memUserRepo) ByID(id string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	copied := *user
	return &copied, nil
}

func (m *memUserRepo) ByUsername(username string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Username == username {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUserRepo) ByEmail(email string) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *memUserRepo) Update(user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[user.ID]
	if !ok {
		return repository.ErrUserNotFound
	}
	for id, other := range m.users {
		if id == user.ID {
			continue
		}
		if other.Username == user.Username {
			return repository.ErrUsernameTaken
		}
		if other.Email == user.Email {
			return repository.ErrEmailTaken
		}
	}
	existing.Username = user.Username
	existing.Email = user.Email
	existing.ImageFile = user.ImageFile
	return nil
}

type memPostRepo struct {
	mu    sync.Mutex
	posts []*model.Post
}

func (m *memPostRepo) Create(post *model.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *post
	m.posts = append(m.posts, &copied)
	return nil
}

func (m *memPostRepo) Recent(limit, offset int) ([]*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slicePosts(m.posts, limit, offset), nil
}

func (m *memPostRepo) RecentByUser(userID string, limit, offset int) ([]*model.Post, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var mine []*model.Post
	for _, post := range m.posts {
		if post.UserID == userID {
			mine = append(mine, post)
		}
	}
	return slicePosts(mine, limit, offset), nil
}

func (m *memPostRepo) Count() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.posts), nil
}

func (m *memPostRepo) CountByUser(userID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, post := range m.posts {
		if post.UserID == userID {
			count++
		}
	}
	return count, nil
}

func slicePosts(posts []*model.Post, limit, offset int) []*model.Post {
	if offset >= len(posts) {
		return nil
	}
	end := offset + limit
	if end > len(posts) {
		end = len(posts)
	}
	out := make([]*model.Post, 0, end-offset)
	for _, post := range posts[offset:end] {
		copied := *post
		out = append(out, &copied)
	}
	return out
}

type memStorage struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{files: make(map[string][]byte)}
}

func (m *memStorage) Save(name string, file io.Reader) error {
	data, err := io.ReadAll(file)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[name] = data
	return nil
}

func (m *memStorage) URL(name string) string {
	return "/static/profile_pics/" + name
}

type fixtures struct {
	userRepo *memUserRepo
	postRepo *memPostRepo
	storage  *memStorage

	auth     *service.AuthService
	accounts *service.AccountService
	pictures *service.PictureService
	users    *service.UserService
	posts    *service.PostService

	authHandler    *AuthHandler
	accountHandler *AccountHandler
	postHandler    *PostHandler
}

func newFixtures() *fixtures {
	f := &fixtures{
		userRepo: newMemUserRepo(),
		postRepo: &memPostRepo{},
		storage:  newMemStorage(),
	}
	f.auth = service.NewAuthService(f.userRepo, "test-secret", false, 12*time.Hour, 30*24*time.Hour)
	f.pictures = service.NewPictureService(f.storage, 125)
	f.accounts = service.NewAccountService(f.userRepo, f.auth, f.pictures)
	f.users = service.NewUserService(f.userRepo, f.pictures)
	f.posts = service.NewPostService(f.postRepo, f.userRepo, 5)

	f.authHandler = NewAuthHandler(f.auth, f.accounts)
	f.accountHandler = NewAccountHandler(f.accounts, f.pictures)
	f.postHandler = NewPostHandler(f.posts)
	return f
}

func (f *fixtures) register(t *testing.T, username, email, password string) *model.User {
	t.Helper()
	user, formErrors, err := f.accounts.Register(service.RegisterInput{
		Username:        username,
		Email:           email,
		Password:        password,
		ConfirmPassword: password,
	})
	require.NoError(t, err)
	require.False(t, formErrors.Any())
	return user
}

func postForm(target string, values url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func withUser(r *http.Request, user *model.User) *http.Request {
	return r.WithContext(ctxkeys.WithUser(r.Context(), user))
}

func cookieByName(t *testing.T, w *httptest.ResponseRecorder, name string) *http.Cookie {
	t.Helper()
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == name {
			return cookie
		}
	}
	return nil
}

// --- registration ---

func TestRegisterPage(t *testing.T) {
	f := newFixtures()
	w := httptest.NewRecorder()
	f.authHandler.RegisterPage(w, httptest.NewRequest(http.MethodGet, "/register", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Join Today")
}

func TestRegisterSuccess(t *testing.T) {
	f := newFixtures()

	w := httptest.NewRecorder()
	f.authHandler.Register(w, postForm("/register", url.Values{
		"username":         {"frodo"},
		"email":            {"frodo@shire.me"},
		"password":         {"second breakfast"},
		"confirm_password": {"second breakfast"},
	}))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))

	// success is flashed, but the new user is NOT logged in
	assert.NotNil(t, cookieByName(t, w, "flash"))
	assert.Nil(t, cookieByName(t, w, "auth_token"))

	_, err := f.userRepo.ByUsername("frodo")
	assert.NoError(t, err)
}

func TestRegisterValidationFailure(t *testing.T) {
	f := newFixtures()

	w := httptest.NewRecorder()
	f.authHandler.Register(w, postForm("/register", url.Values{
		"username":         {"abc"},
		"email":            {"frodo@shire.me"},
		"password":         {"second breakfast"},
		"confirm_password": {"second breakfast"},
	}))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "username must be between 5 and 20 characters")
	// entered values survive the round trip
	assert.Contains(t, body, `value="frodo@shire.me"`)
}

func TestRegisterDuplicate(t *testing.T) {
	f := newFixtures()
	f.register(t, "frodo", "frodo@shire.me", "second breakfast")

	w := httptest.NewRecorder()
	f.authHandler.Register(w, postForm("/register", url.Values{
		"username":         {"frodo"},
		"email":            {"other@shire.me"},
		"password":         {"second breakfast"},
		"confirm_password": {"second breakfast"},
	}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "This username is already taken.")
}

// --- login / logout ---

func TestLoginSuccess(t *testing.T) {
	f := newFixtures()
	f.register(t, "frodo", "frodo@shire.me", "second breakfast")

	w := httptest.NewRecorder()
	f.authHandler.Login(w, postForm("/login", url.Values{
		"email":    {"frodo@shire.me"},
		"password": {"second breakfast"},
	}))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	cookie := cookieByName(t, w, "auth_token")
	require.NotNil(t, cookie)
	assert.True(t, cookie.Expires.IsZero(), "no remember, no persistent cookie")
}

func TestLoginRemember(t *testing.T) {
	f := newFixtures()
	f.register(t, "frodo", "frodo@shire.me", "second breakfast")

	w := httptest.NewRecorder()
	f.authHandler.Login(w, postForm("/login", url.Values{
		"email":    {"frodo@shire.me"},
		"password": {"second breakfast"},
		"remember": {"1"},
	}))

	cookie := cookieByName(t, w, "auth_token")
	require.NotNil(t, cookie)
	assert.False(t, cookie.Expires.IsZero())
}

func TestLoginFailure(t *testing.T) {
	f := newFixtures()
	f.register(t, "frodo", "frodo@shire.me", "second breakfast")

	attempts := []url.Values{
		{"email": {"frodo@shire.me"}, "password": {"wrong password"}},
		{"email": {"nobody@shire.me"}, "password": {"second breakfast"}},
	}
	for _, values := range attempts {
		w := httptest.NewRecorder()
		f.authHandler.Login(w, postForm("/login", values))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Login Unsuccessful! Please check email and password.")
		assert.Nil(t, cookieByName(t, w, "auth_token"))
	}
}

func TestLoginRedirectsToNext(t *testing.T) {
	f := newFixtures()
	f.register(t, "frodo", "frodo@shire.me", "second breakfast")

	login := func(next string) string {
		w := httptest.NewRecorder()
		f.authHandler.Login(w, postForm("/login?next="+url.QueryEscape(next), url.Values{
			"email":    {"frodo@shire.me"},
			"password": {"second breakfast"},
		}))
		return w.Header().Get("Location")
	}

	assert.Equal(t, "/account", login("/account"))

	// off-site targets fall back to home
	assert.Equal(t, "/", login("https://evil.example"))
	assert.Equal(t, "/", login("//evil.example"))
	assert.Equal(t, "/", login(`/\evil.example`))
}

func TestLogout(t *testing.T) {
	f := newFixtures()

	w := httptest.NewRecorder()
	f.authHandler.Logout(w, httptest.NewRequest(http.MethodPost, "/logout", nil))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))

	cookie := cookieByName(t, w, "auth_token")
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.Expires.Before(time.Now()))
}

// --- account ---

func TestAccountPage(t *testing.T) {
	f := newFixtures()
	user := f.register(t, "frodo", "frodo@shire.me", "second breakfast")

	w := httptest.NewRecorder()
	r := withUser(httptest.NewRequest(http.MethodGet, "/account", nil), user)
	f.accountHandler.AccountPage(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `value="frodo"`)
	assert.Contains(t, body, `value="frodo@shire.me"`)
	assert.Contains(t, body, "/static/profile_pics/default.jpg")
}

func multipartForm(t *testing.T, fields map[string]string, pictureName string, picture []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for name, value := range fields {
		require.NoError(t, writer.WriteField(name, value))
	}
	if pictureName != "" {
		part, err := writer.CreateFormFile("picture", pictureName)
		require.NoError(t, err)
		_, err = part.Write(picture)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	return &body, writer.FormDataContentType()
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 10, 10))))
	return buf.Bytes()
}

func TestUpdateAccountSuccess(t *testing.T) {
	f := newFixtures()
	user := f.register(t, "frodo", "frodo@shire.me", "second breakfast")

	body, contentType := multipartForm(t, map[string]string{
		"username": "frodo-baggins",
		"email":    "frodo@shire.me",
	}, "", nil)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/account", body)
	r.Header.Set("Content-Type", contentType)
	f.accountHandler.UpdateAccount(w, withUser(r, user))

	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/account", w.Header().Get("Location"))
	assert.NotNil(t, cookieByName(t, w, "flash"))

	stored, err := f.userRepo.ByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "frodo-baggins", stored.Username)
}

func TestUpdateAccountWithPicture(t *testing.T) {
	f := newFixtures()
	user := f.register(t, "frodo", "frodo@shire.me", "second breakfast")

	body, contentType := multipartForm(t, map[string]string{
		"username": "frodo",
		"email":    "frodo@shire.me",
	}, "holiday.png", smallPNG(t))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/account", body)
	r.Header.Set("Content-Type", contentType)
	f.accountHandler.UpdateAccount(w, withUser(r, user))

	assert.Equal(t, http.StatusSeeOther, w.Code)

	stored, err := f.userRepo.ByID(user.ID)
	require.NoError(t, err)
	assert.NotEqual(t, model.DefaultImageFile, stored.ImageFile)
	assert.Len(t, f.storage.files, 1)
}

func TestUpdateAccountRejectsGif(t *testing.T) {
	f := newFixtures()
	user := f.register(t, "frodo", "frodo@shire.me", "second breakfast")

	body, contentType := multipartForm(t, map[string]string{
		"username": "frodo",
		"email":    "frodo@shire.me",
	}, "animated.gif", smallPNG(t))

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/account", body)
	r.Header.Set("Content-Type", contentType)
	f.accountHandler.UpdateAccount(w, withUser(r, user))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Only jpg and png images are allowed.")

	stored, err := f.userRepo.ByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultImageFile, stored.ImageFile)
}

// --- post listings ---

func TestHomePage(t *testing.T) {
	f := newFixtures()
	author := f.register(t, "frodo", "frodo@shire.me", "second breakfast")
	_, err := f.posts.Create(author.ID, "A Long-expected Party", "body")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	f.postHandler.HomePage(w, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "A Long-expected Party")
	assert.Contains(t, body, "frodo")
}

func TestUserPosts(t *testing.T) {
	f := newFixtures()
	author := f.register(t, "frodo", "frodo@shire.me", "second breakfast")
	for i := 0; i < 7; i++ {
		_, err := f.posts.Create(author.ID, "Chapter", "body")
		require.NoError(t, err)
	}

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/user/frodo", nil)
	r.SetPathValue("username", "frodo")
	f.postHandler.UserPosts(w, r)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Posts by frodo (7)")
}

func TestUserPostsUnknownUser(t *testing.T) {
	f := newFixtures()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/user/nobody", nil)
	r.SetPathValue("username", "nobody")
	f.postHandler.UserPosts(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

// pendingFlash builds the cookie a browser would carry after a flash was
// queued on a previous response.
func pendingFlash(t *testing.T, category, text string) *http.Cookie {
	t.Helper()
	w := httptest.NewRecorder()
	flash.Add(w, httptest.NewRequest(http.MethodGet, "/", nil), category, text)
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "flash" {
			return cookie
		}
	}
	t.Fatal("flash cookie not set")
	return nil
}

func TestNotFoundPageDrainsFlashes(t *testing.T) {
	f := newFixtures()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/user/nobody", nil)
	r.SetPathValue("username", "nobody")
	r.AddCookie(pendingFlash(t, flash.CategoryInfo, "Please log in to access this page."))
	f.postHandler.UserPosts(w, r)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "Please log in to access this page.")

	// headers written after the status line never reach the client, so the
	// drain cookie and Content-Type must land before it
	result := w.Result()
	assert.Equal(t, "text/html; charset=utf-8", result.Header.Get("Content-Type"))
	drained := cookieByName(t, w, "flash")
	require.NotNil(t, drained, "drain cookie must precede the 404 status")
	assert.Empty(t, drained.Value)
	assert.True(t, drained.Expires.Before(time.Now()))
}

func TestPageParam(t *testing.T) {
	for target, want := range map[string]int{
		"/?page=3":   3,
		"/?page=0":   1,
		"/?page=-2":  1,
		"/?page=abc": 1,
		"/":          1,
	} {
		r := httptest.NewRequest(http.MethodGet, target, nil)
		assert.Equal(t, want, pageParam(r), target)
	}
}
