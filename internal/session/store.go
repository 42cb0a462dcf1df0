// Package session owns the durable slots that let the client survive a
// process restart mid-room: credentials, the active room association, and a
// one-shot game-session handoff. Every slot has a single writer; the handoff
// slot is consumed at most once.
package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/YaroslavWork/letter-game-cli/pkg/domain"
)

// state is the on-disk shape of the session file.
type state struct {
	AccessToken   string              `json:"access_token,omitempty"`
	RefreshToken  string              `json:"refresh_token,omitempty"`
	RoomID        string              `json:"room_id,omitempty"`
	RoomRole      domain.Role         `json:"room_role,omitempty"`
	StagedSession *domain.GameSession `json:"staged_session,omitempty"`
	Language      string              `json:"language,omitempty"`
}

// Store is a file-backed key/value store for session slots.
type Store struct {
	mu    sync.Mutex
	path  string
	state state
}

// DefaultPath returns ~/.letters/session.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".letters", "session.json"), nil
}

// Open loads the store at path, creating an empty one if the file is missing.
// A corrupt file is treated as empty rather than fatal — losing a stale
// session beats refusing to start.
func Open(path string) (*Store, error) {
	s := &Store{path: path}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("session.Open: %w", err)
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		s.state = state{}
	}
	return s, nil
}

// save persists the current state atomically (write to .tmp, then rename).
// Caller must hold s.mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("session.save: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("session.save: mkdir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("session.save: write: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("session.save: rename: %w", err)
	}
	return nil
}

// Tokens returns the stored access and refresh credentials.
func (s *Store) Tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.AccessToken, s.state.RefreshToken
}

// SetTokens stores both credentials.
func (s *Store) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AccessToken = access
	s.state.RefreshToken = refresh
	return s.save()
}

// SetAccessToken replaces only the access credential, keeping the refresh
// credential. Used after a successful refresh.
func (s *Store) SetAccessToken(access string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AccessToken = access
	return s.save()
}

// ClearTokens removes both credentials.
func (s *Store) ClearTokens() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.AccessToken = ""
	s.state.RefreshToken = ""
	return s.save()
}

// Room returns the persisted room association, if any.
func (s *Store) Room() (id string, role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.RoomID, s.state.RoomRole
}

// SetRoom records the active room. Slots belonging to a previous room — the
// staged session in particular — are cleared first, so a crash can never
// resume into the wrong room.
func (s *Store) SetRoom(id string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.RoomID != id {
		s.state.StagedSession = nil
	}
	s.state.RoomID = id
	s.state.RoomRole = role
	return s.save()
}

// ClearRoom removes the room association and any staged handoff.
func (s *Store) ClearRoom() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.RoomID = ""
	s.state.RoomRole = ""
	s.state.StagedSession = nil
	return s.save()
}

// StageSession stores a game session delivered by a push event for one-time
// pickup by the round view after a hard navigation.
func (s *Store) StageSession(gs *domain.GameSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.StagedSession = gs
	return s.save()
}

// TakeStagedSession returns the staged session and deletes it immediately.
// A second call returns nil: the handoff is consumed at most once.
func (s *Store) TakeStagedSession() *domain.GameSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	gs := s.state.StagedSession
	if gs == nil {
		return nil
	}
	s.state.StagedSession = nil
	_ = s.save() //nolint:errcheck // consumption must not fail the caller
	return gs
}

// Language returns the preferred display language, if set.
func (s *Store) Language() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Language
}

// SetLanguage stores the preferred display language.
func (s *Store) SetLanguage(lang string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Language = lang
	return s.save()
}
