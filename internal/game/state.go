// Package game owns the authoritative client-side view of one active room
// session. Every inbound signal — push envelope, REST response, timer — is a
// tagged Event; Apply is a pure transition function returning the next state
// plus the one-shot effects to run. No transport, no storage, no rendering:
// that keeps every reconciliation rule unit-testable without a live backend.
package game

import (
	"time"

	"github.com/YaroslavWork/letter-game-cli/pkg/domain"
)

// Phase is the coarse per-room-session state.
type Phase int

const (
	PhaseNoRoom Phase = iota
	PhaseJoining
	PhaseConfiguring // host, pre-game
	PhaseWaiting     // non-host, pre-game
	PhaseInRound
	PhaseRoundResults
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseNoRoom:
		return "no_room"
	case PhaseJoining:
		return "joining"
	case PhaseConfiguring:
		return "configuring"
	case PhaseWaiting:
		return "waiting"
	case PhaseInRound:
		return "in_round"
	case PhaseRoundResults:
		return "round_results"
	case PhaseCompleted:
		return "completed"
	}
	return "unknown"
}

// How long the just-finished round's scores stay visible after an advance.
const previousScoresWindow = time.Second

// Bounded delay before re-fetching session and scores once the backend's
// advance countdown reaches zero. The client never self-advances.
const countdownRefreshDelay = time.Second

// State is the reconciler's complete view. It is a value: Apply returns a
// new State and copies any map before mutating it, so two states never share
// a map that either will write.
type State struct {
	Phase Phase
	Me    domain.User
	Role  domain.Role

	// roomID is the room this state is bound to; snapshots for any other
	// room are stale and ignored.
	roomID string

	Room    *domain.Room
	Session *domain.GameSession

	Answers          map[string]string
	ValidationErrors map[string]string
	Submitted        map[string]bool // player ids with a recorded submission this round
	HasSubmitted     bool            // the current user, from authoritative scores

	Scores              []domain.PlayerScore
	PreviousRoundScores []domain.PlayerScore

	Countdown      int // backend-driven seconds; -1 when no countdown runs
	ResultsVisible bool
	AutoSubmitted  bool // local timer auto-submit fired for this round

	// startedSessionID guards the one-shot activation side effect: the
	// navigate fires once per session activation, not once per snapshot.
	startedSessionID string
}

// NewState returns the initial no-room state for a user.
func NewState(me domain.User) State {
	return State{Phase: PhaseNoRoom, Me: me, Countdown: -1}
}

// RoomID returns the room this state is bound to, if any.
func (s State) RoomID() string {
	return s.roomID
}

// Letter returns the round's resolved letter, or "" before activation.
func (s State) Letter() string {
	if s.Session == nil {
		return ""
	}
	return s.Session.FinalLetter
}

// MyPlayer returns the current user's player entry in the room.
func (s State) MyPlayer() (domain.Player, bool) {
	if s.Room == nil {
		return domain.Player{}, false
	}
	return s.Room.PlayerByUser(s.Me.ID)
}

// IsHost reports whether the current user owns the room.
func (s State) IsHost() bool {
	return s.Room != nil && s.Room.HostID == s.Me.ID
}

// resetRound clears all per-round transient state.
func (s State) resetRound() State {
	s.Answers = nil
	s.ValidationErrors = nil
	s.Submitted = nil
	s.HasSubmitted = false
	s.Countdown = -1
	s.ResultsVisible = false
	s.AutoSubmitted = false
	return s
}

// leaveRoom resets to the no-room state, keeping only identity.
func (s State) leaveRoom() State {
	next := NewState(s.Me)
	return next
}

func copyStringMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
