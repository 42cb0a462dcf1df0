package game

import (
	"time"

	"github.com/YaroslavWork/letter-game-cli/pkg/domain"
)

// Effect is a one-shot side effect emitted by a transition. The caller (the
// TUI) maps each effect to a command; Apply itself never performs I/O.
type Effect interface{ isEffect() }

// NavigateToRound moves the user into the round view. Emitted exactly once
// per session activation.
type NavigateToRound struct{}

// NavigateToLobby returns the user to the lobby with a user-visible notice
// (removal, deletion). Emitted exactly once per terminal transition.
type NavigateToLobby struct {
	Notice string
}

// FetchRoom re-fetches the authoritative room snapshot over REST.
type FetchRoom struct{}

// FetchSession re-fetches the game session over REST.
type FetchSession struct{}

// FetchScores re-fetches the authoritative scores for the current round.
type FetchScores struct {
	IncludeTotals bool
}

// ScheduleRefresh asks for FetchSession+FetchScores after a bounded delay.
type ScheduleRefresh struct {
	After time.Duration
}

// ClearPreviousScores schedules a PreviousScoresExpired event.
type ClearPreviousScores struct {
	After time.Duration
}

// StageHandoff stores a push-delivered session for one-time pickup across a
// hard navigation.
type StageHandoff struct {
	Session domain.GameSession
}

// SubmitAnswers sends the validated answers to the backend.
type SubmitAnswers struct {
	Answers map[string]string
}

// AutoSubmit is the timer-driven submit. Attempted even if connectivity is
// lost; a failure is surfaced but never corrupts local state.
type AutoSubmit struct {
	Answers map[string]string
}

// Disconnect tears down the push channel.
type Disconnect struct{}

// ClearRoomSlots removes the persisted room association and staged handoff.
type ClearRoomSlots struct{}

// PersistRoom records the room association for crash recovery.
type PersistRoom struct {
	RoomID string
	Role   domain.Role
}

// ShowNotice surfaces a transient user-visible message.
type ShowNotice struct {
	Text string
}

func (NavigateToRound) isEffect()     {}
func (NavigateToLobby) isEffect()     {}
func (FetchRoom) isEffect()           {}
func (FetchSession) isEffect()        {}
func (FetchScores) isEffect()         {}
func (ScheduleRefresh) isEffect()     {}
func (ClearPreviousScores) isEffect() {}
func (StageHandoff) isEffect()        {}
func (SubmitAnswers) isEffect()       {}
func (AutoSubmit) isEffect()          {}
func (Disconnect) isEffect()          {}
func (ClearRoomSlots) isEffect()      {}
func (PersistRoom) isEffect()         {}
func (ShowNotice) isEffect()          {}
