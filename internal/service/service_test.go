package service

import (
	"bytes"
	"image"
	"image/png"
	"io"
	"sync"
	"testing"

	"github.com/feldrin/quill/internal/model"
	"github.com/feldrin/quill/internal/repository"
	"github.com/stretchr/testify/require"
)

// --- in-memory fakes shared by the service tests ---

type memUserRepo struct {
	mu    sync.Mutex
	users map[string]*model.User

	// when set, the next Create fails with this error (simulates a
	// concurrent insert winning the race)
	createErr error
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[string]*model.User)}
}

func (m *memUserRepo) Create(user *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.createErr != nil {
		err := m.createErr
		m.createErr = nil
		return err
	}

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

func (m *memUserRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
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

func (m *memStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

// pngBytes produces a decodable PNG of the given dimensions.
func pngBytes(t *testing.T, w, h int) *bytes.Buffer {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return &buf
}
