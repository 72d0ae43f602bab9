package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aaronzipp/imposter/internal/models"
)

// Key is the fixed name the signed-in session is stored under
const Key = "imposter_session"

// ErrNoSession is returned by Load when nothing has been saved
var ErrNoSession = errors.New("no saved session")

// FileStore keeps the session as JSON in <dir>/imposter_session.json
type FileStore struct {
	dir string
}

func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path() string {
	return filepath.Join(s.dir, Key+".json")
}

// Load returns the saved session or ErrNoSession
func (s *FileStore) Load() (models.Session, error) {
	b, err := os.ReadFile(s.path())
	if errors.Is(err, fs.ErrNotExist) {
		return models.Session{}, ErrNoSession
	}
	if err != nil {
		return models.Session{}, err
	}
	var sess models.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return models.Session{}, fmt.Errorf("decode %s: %w", s.path(), err)
	}
	if sess.User.ID == "" {
		return models.Session{}, ErrNoSession
	}
	return sess, nil
}

// Save writes the session atomically
func (s *FileStore) Save(sess models.Session) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path() + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path())
}

// Clear forgets the saved session
func (s *FileStore) Clear() error {
	err := os.Remove(s.path())
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// Memory keeps the session in process; used when no directory is configured
type Memory struct {
	sess *models.Session
}

func (m *Memory) Load() (models.Session, error) {
	if m.sess == nil {
		return models.Session{}, ErrNoSession
	}
	return *m.sess, nil
}

func (m *Memory) Save(sess models.Session) error {
	m.sess = &sess
	return nil
}

func (m *Memory) Clear() error {
	m.sess = nil
	return nil
}
