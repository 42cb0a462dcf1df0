package tui

import (
	"encoding/json"
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/YaroslavWork/letter-game-cli/internal/game"
	"github.com/YaroslavWork/letter-game-cli/internal/realtime"
	"github.com/YaroslavWork/letter-game-cli/internal/session"
	"github.com/YaroslavWork/letter-game-cli/pkg/client"
	"github.com/YaroslavWork/letter-game-cli/pkg/domain"
)

func testApp(t *testing.T) App {
	t.Helper()
	store, err := session.Open(filepath.Join(t.TempDir(), "session.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	log := zerolog.Nop()
	c := client.New("http://localhost:9", store, log, nil)
	conn := realtime.New(log)
	return NewApp(c, conn, store, log)
}

func signIn(t *testing.T, a App) App {
	t.Helper()
	m, _ := a.Update(meLoadedMsg{me: &domain.User{ID: "u-alice", Username: "alice"}})
	return m.(App)
}

func enterRoom(t *testing.T, a App) App {
	t.Helper()
	a = signIn(t, a)
	m, _ := a.Update(enterRoomMsg{roomID: "room-1", role: domain.RoleJoin})
	return m.(App)
}

func appRoom() domain.Room {
	return domain.Room{
		ID:     "room-1",
		Name:   "friday night",
		HostID: "u-host",
		Players: []domain.Player{
			{ID: "p-host", UserID: "u-host", Username: "host"},
			{ID: "p-alice", UserID: "u-alice", Username: "alice"},
		},
	}
}

func TestEnterRoomPersistsAssociation(t *testing.T) {
	a := testApp(t)
	a = enterRoom(t, a)

	if a.st.Phase != game.PhaseJoining {
		t.Errorf("phase = %v, want joining", a.st.Phase)
	}
	roomID, role := a.store.Room()
	if roomID != "room-1" || role != domain.RoleJoin {
		t.Errorf("persisted slot = %q/%q", roomID, role)
	}
}

func TestEnterRoomRequiresIdentity(t *testing.T) {
	a := testApp(t)
	m, _ := a.Update(enterRoomMsg{roomID: "room-1", role: domain.RoleJoin})
	a = m.(App)
	if a.st.Phase != game.PhaseNoRoom {
		t.Errorf("phase = %v, want no_room before the profile is known", a.st.Phase)
	}
}

func TestRemovalTearsDownAndClearsSlots(t *testing.T) {
	a := testApp(t)
	a = enterRoom(t, a)

	m, _ := a.Update(gameEventMsg{ev: game.RoomSnapshot{Room: appRoom()}})
	a = m.(App)
	if a.st.Phase != game.PhaseWaiting {
		t.Fatalf("phase = %v, want waiting", a.st.Phase)
	}

	gone := appRoom()
	gone.Players = gone.Players[:1]
	m, _ = a.Update(gameEventMsg{ev: game.RoomSnapshot{Room: gone}})
	a = m.(App)

	if a.st.Phase != game.PhaseNoRoom {
		t.Errorf("phase = %v, want no_room after removal", a.st.Phase)
	}
	if roomID, _ := a.store.Room(); roomID != "" {
		t.Errorf("room slot survived removal: %q", roomID)
	}
	if len(a.notices) == 0 {
		t.Error("removal must surface a notice")
	}
}

func TestGameStartedStagesSessionDurably(t *testing.T) {
	a := testApp(t)
	a = enterRoom(t, a)
	m, _ := a.Update(gameEventMsg{ev: game.RoomSnapshot{Room: appRoom()}})
	a = m.(App)

	gs := domain.GameSession{ID: "gs-1", IsRandomLetter: true, FinalLetter: "K", SelectedTypes: []string{"country"}, CurrentRound: 1, Rounds: 3, TimePerRound: 60}
	m, _ = a.Update(gameEventMsg{ev: game.GameStarted{Session: gs}})
	a = m.(App)

	if a.st.Phase != game.PhaseInRound {
		t.Errorf("phase = %v, want in_round", a.st.Phase)
	}
	staged := a.store.TakeStagedSession()
	if staged == nil || staged.ID != "gs-1" {
		t.Fatalf("staged session = %+v, want gs-1", staged)
	}
	if a.store.TakeStagedSession() != nil {
		t.Error("staged session must be consumed exactly once")
	}
}

func TestAuthExpiryFallsBackToLobby(t *testing.T) {
	a := testApp(t)
	a = enterRoom(t, a)
	m, _ := a.Update(authExpiredMsg{})
	a = m.(App)

	if a.st.Phase != game.PhaseNoRoom {
		t.Errorf("phase = %v, want no_room", a.st.Phase)
	}
	if a.lobby.signedIn {
		t.Error("lobby must show the anonymous menu")
	}
	if len(a.notices) == 0 {
		t.Error("expiry must surface a notice")
	}
}

func TestNoticeLifecycle(t *testing.T) {
	a := testApp(t)
	m, _ := a.Update(showNoticeMsg{text: "room id copied"})
	a = m.(App)
	if len(a.notices) != 1 || a.notices[0].text != "room id copied" {
		t.Fatalf("notices = %+v", a.notices)
	}
	m, _ = a.Update(noticeExpiredMsg{id: a.notices[0].id})
	a = m.(App)
	if len(a.notices) != 0 {
		t.Errorf("notice survived expiry: %+v", a.notices)
	}
}

func TestGameEventFromEnvelope(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"room update", `{"type":"room_update","room":{"id":"room-1"}}`, "game.RoomSnapshot"},
		{"game started", `{"type":"game_started_notification","game_session":{"id":"gs-1"}}`, "game.GameStarted"},
		{"player submitted", `{"type":"player_submitted_notification","player_id":"p-1","all_submitted":true}`, "game.PlayerSubmitted"},
		{"round advancing", `{"type":"round_advancing_notification","seconds_left":3}`, "game.RoundAdvancing"},
		{"player removed", `{"type":"player_removed_notification","player_id":"p-1","user_id":"u-1"}`, "game.PlayerRemoved"},
		{"room deleted", `{"type":"room_deleted_notification"}`, "game.RoomDeleted"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var head struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal([]byte(tc.raw), &head); err != nil {
				t.Fatal(err)
			}
			env := realtime.Envelope{Type: head.Type, Raw: json.RawMessage(tc.raw)}
			ev, ok := gameEventFromEnvelope(env)
			if !ok {
				t.Fatal("envelope not mapped")
			}
			var got string
			switch ev.(type) {
			case game.RoomSnapshot:
				got = "game.RoomSnapshot"
			case game.GameStarted:
				got = "game.GameStarted"
			case game.PlayerSubmitted:
				got = "game.PlayerSubmitted"
			case game.RoundAdvancing:
				got = "game.RoundAdvancing"
			case game.PlayerRemoved:
				got = "game.PlayerRemoved"
			case game.RoomDeleted:
				got = "game.RoomDeleted"
			}
			if got != tc.want {
				t.Errorf("mapped to %s, want %s", got, tc.want)
			}
		})
	}

	if _, ok := gameEventFromEnvelope(realtime.Envelope{Type: "presence_ping", Raw: json.RawMessage(`{"type":"presence_ping"}`)}); ok {
		t.Error("unknown kinds must not map")
	}
}

func TestSubmittedPushFlipsResults(t *testing.T) {
	a := testApp(t)
	a = enterRoom(t, a)
	room := appRoom()
	room.GameSession = &domain.GameSession{ID: "gs-1", IsRandomLetter: true, FinalLetter: "P", SelectedTypes: []string{"country"}, CurrentRound: 1, Rounds: 3, TimePerRound: 60}
	m, _ := a.Update(gameEventMsg{ev: game.RoomSnapshot{Room: room}})
	a = m.(App)

	m, _ = a.Update(gameEventMsg{ev: game.PlayerSubmitted{PlayerID: "p-host"}})
	a = m.(App)
	if a.st.Phase != game.PhaseInRound {
		t.Fatalf("phase = %v, want in_round after one of two", a.st.Phase)
	}

	m, _ = a.Update(gameEventMsg{ev: game.PlayerSubmitted{PlayerID: "p-alice", AllSubmitted: true}})
	a = m.(App)
	if a.st.Phase != game.PhaseRoundResults {
		t.Errorf("phase = %v, want round_results", a.st.Phase)
	}
}

func TestKeyRoutingRespectsEditing(t *testing.T) {
	a := testApp(t)
	a = enterRoom(t, a)
	room := appRoom()
	room.GameSession = &domain.GameSession{ID: "gs-1", IsRandomLetter: true, FinalLetter: "Q", SelectedTypes: []string{"country"}, CurrentRound: 1, Rounds: 3, TimePerRound: 60}
	m, _ := a.Update(gameEventMsg{ev: game.RoomSnapshot{Room: room}})
	a = m.(App)

	if !a.isEditing() {
		t.Fatal("typing answers counts as editing")
	}
	// "q" must be typed into the answer, not quit the program.
	m, cmd := a.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	a = m.(App)
	if cmd == nil {
		t.Fatal("expected an answer-edit command")
	}
	raw := cmd()
	if _, ok := raw.(gameEventMsg); !ok {
		t.Errorf("got %T, want gameEventMsg", raw)
	}
}
