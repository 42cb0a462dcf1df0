package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/YaroslavWork/letter-game-cli/pkg/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestStoreTokensRoundTrip(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetTokens("acc-1", "ref-1"); err != nil {
		t.Fatalf("SetTokens: %v", err)
	}

	// Reopen from disk — must survive a restart.
	s2, err := Open(s.path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	access, refresh := s2.Tokens()
	if access != "acc-1" || refresh != "ref-1" {
		t.Errorf("got (%q, %q), want (acc-1, ref-1)", access, refresh)
	}

	if err := s2.ClearTokens(); err != nil {
		t.Fatalf("ClearTokens: %v", err)
	}
	access, refresh = s2.Tokens()
	if access != "" || refresh != "" {
		t.Errorf("expected cleared tokens, got (%q, %q)", access, refresh)
	}
}

func TestStoreRoomAssociation(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetRoom("room-7", domain.RoleHost); err != nil {
		t.Fatalf("SetRoom: %v", err)
	}
	id, role := s.Room()
	if id != "room-7" || role != domain.RoleHost {
		t.Errorf("got (%q, %q), want (room-7, host)", id, role)
	}

	if err := s.ClearRoom(); err != nil {
		t.Fatalf("ClearRoom: %v", err)
	}
	id, role = s.Room()
	if id != "" || role != "" {
		t.Errorf("expected cleared room, got (%q, %q)", id, role)
	}
}

func TestStagedSessionConsumedAtMostOnce(t *testing.T) {
	s := newTestStore(t)
	gs := &domain.GameSession{ID: "gs-1", FinalLetter: "P", CurrentRound: 1}
	if err := s.StageSession(gs); err != nil {
		t.Fatalf("StageSession: %v", err)
	}

	got := s.TakeStagedSession()
	if got == nil || got.ID != "gs-1" {
		t.Fatalf("first take = %+v, want staged session", got)
	}
	if again := s.TakeStagedSession(); again != nil {
		t.Errorf("second take = %+v, want nil (one-shot)", again)
	}

	// Deletion must be durable, not just in-memory.
	s2, err := Open(s.path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if leftover := s2.TakeStagedSession(); leftover != nil {
		t.Errorf("staged session survived on disk after take: %+v", leftover)
	}
}

func TestSetRoomClearsStaleHandoff(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetRoom("room-1", domain.RoleJoin); err != nil {
		t.Fatalf("SetRoom: %v", err)
	}
	if err := s.StageSession(&domain.GameSession{ID: "gs-old"}); err != nil {
		t.Fatalf("StageSession: %v", err)
	}

	// Joining a different room must drop the previous room's handoff.
	if err := s.SetRoom("room-2", domain.RoleJoin); err != nil {
		t.Fatalf("SetRoom: %v", err)
	}
	if leftover := s.TakeStagedSession(); leftover != nil {
		t.Errorf("stale handoff survived room switch: %+v", leftover)
	}
}

func TestOpenCorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open on corrupt file: %v", err)
	}
	if access, _ := s.Tokens(); access != "" {
		t.Errorf("expected empty store from corrupt file, got access=%q", access)
	}
}

func TestStoreLanguageSlot(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetLanguage("pl"); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	s2, err := Open(s.path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if s2.Language() != "pl" {
		t.Errorf("Language = %q, want pl", s2.Language())
	}
}
