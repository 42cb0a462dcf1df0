package game

import "github.com/YaroslavWork/letter-game-cli/pkg/domain"

// Event is one inbound signal. The set is closed: every push envelope kind,
// REST completion and local timer maps to exactly one variant.
type Event interface{ isEvent() }

// RoomEntered binds the reconciler to a room after a successful create/join
// response, or when resuming a persisted room association after a restart.
type RoomEntered struct {
	RoomID string
	Role   domain.Role
}

// RoomSnapshot is a full room replace, from a room_update push or GET room.
type RoomSnapshot struct {
	Room domain.Room
}

// SessionLoaded carries a session from a REST fetch, a rule save, or the
// staged one-shot handoff.
type SessionLoaded struct {
	Session domain.GameSession
}

// GameStarted is the push notification carrying the freshly started session.
type GameStarted struct {
	Session domain.GameSession
}

// ScoresLoaded carries the authoritative scores for the current round.
type ScoresLoaded struct {
	Scores []domain.PlayerScore
}

// PlayerSubmitted announces one accepted submission, and whether the round
// now has everyone's answers.
type PlayerSubmitted struct {
	PlayerID     string
	AllSubmitted bool
}

// RoundAdvancing carries the backend's authoritative countdown value.
type RoundAdvancing struct {
	SecondsLeft int
}

// PlayerRemoved is the push notification for a forced removal.
type PlayerRemoved struct {
	PlayerID string
	UserID   string
}

// RoomDeleted is the push notification that the room is gone.
type RoomDeleted struct{}

// AnswerEdited is a local keystroke-level change to one category's answer.
type AnswerEdited struct {
	Category string
	Text     string
}

// SubmitRequested is the user's submit action; validation gates it.
type SubmitRequested struct{}

// SubmitAccepted is the backend's acceptance of this round's answers.
type SubmitAccepted struct{}

// SubmitFailed is an authoritative reject of the submit call. State is left
// unchanged; the message is surfaced once.
type SubmitFailed struct {
	Message string
}

// TimerExpired fires when the locally computed round timer reaches zero.
type TimerExpired struct{}

// PreviousScoresExpired fires when the previous-round display window ends.
type PreviousScoresExpired struct{}

// RoomLeft is a voluntary departure (leave, or host deleting the room).
type RoomLeft struct{}

func (RoomEntered) isEvent()           {}
func (RoomSnapshot) isEvent()          {}
func (SessionLoaded) isEvent()         {}
func (GameStarted) isEvent()           {}
func (ScoresLoaded) isEvent()          {}
func (PlayerSubmitted) isEvent()       {}
func (RoundAdvancing) isEvent()        {}
func (PlayerRemoved) isEvent()         {}
func (RoomDeleted) isEvent()           {}
func (AnswerEdited) isEvent()          {}
func (SubmitRequested) isEvent()       {}
func (SubmitAccepted) isEvent()        {}
func (SubmitFailed) isEvent()          {}
func (TimerExpired) isEvent()          {}
func (PreviousScoresExpired) isEvent() {}
func (RoomLeft) isEvent()              {}
