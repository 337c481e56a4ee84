package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/WantedChef/chefchat/internal/provider/models"
)

// Session is the persisted form of one conversation.
type Session struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Model     string           `json:"model"`
	Mode      string           `json:"mode"`
	Messages  []models.Message `json:"messages"`
	Stats     Stats            `json:"stats"`
}

// NewSession creates an empty session with a fresh ID.
func NewSession(model string) *Session {
	now := time.Now()
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
		Model:     model,
	}
}

// Store persists sessions as one JSON file each under a directory.
type Store struct {
	dir string
}

// NewStore creates a Store rooted at dir, creating it if needed. An empty dir
// defaults to ~/.local/state/chefchat/sessions.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve session directory: %w", err)
		}
		dir = filepath.Join(home, ".local", "state", "chefchat", "sessions")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes the session atomically, refreshing UpdatedAt.
func (s *Store) Save(sess *Session) error {
	sess.UpdatedAt = time.Now()

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}

	tmp := s.path(sess.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	if err := os.Rename(tmp, s.path(sess.ID)); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Load reads a session by ID.
func (s *Store) Load(id string) (*Session, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("parse session %s: %w", id, err)
	}
	return &sess, nil
}

// List returns all session IDs, most recently updated first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	type item struct {
		id      string
		modTime time.Time
	}
	var items []item
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		items = append(items, item{
			id:      strings.TrimSuffix(name, ".json"),
			modTime: info.ModTime(),
		})
	}

	sort.Slice(items, func(i, j int) bool { return items[i].modTime.After(items[j].modTime) })

	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.id
	}
	return ids, nil
}

// FindLatest loads the most recently updated session, or nil if none exist.
func (s *Store) FindLatest() (*Session, error) {
	ids, err := s.List()
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}
	return s.Load(ids[0])
}
