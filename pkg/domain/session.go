package domain

import (
	"time"
)

// GameSession is the configurable, stateful game instance embedded in a room.
// FinalLetter is the *resolved* letter: the backend publishes it only once
// the first round actually starts, in both fixed and random letter modes.
// Configuration-only updates never carry a speculative letter.
type GameSession struct {
	ID             string     `json:"id"`
	IsRandomLetter bool       `json:"is_random_letter"`
	FinalLetter    string     `json:"final_letter,omitempty"`
	SelectedTypes  []string   `json:"selected_types"`
	Rounds         int        `json:"rounds"`
	CurrentRound   int        `json:"current_round"`
	TimePerRound   int        `json:"time_per_round"` // seconds
	RoundStartedAt *time.Time `json:"round_started_at,omitempty"`
	IsCompleted    bool       `json:"is_completed"`
}

// GameType is one selectable answer category.
type GameType struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// Active reports whether play has begun. A session is active exactly when
// the final letter has been resolved; until then it is configuration only.
func (s *GameSession) Active() bool {
	return s != nil && s.FinalLetter != ""
}

// SameRules reports whether two sessions agree on the fields that drive the
// round display: letter mode, resolved letter, and selected categories.
// Repeated room snapshots (every join/leave re-broadcasts the room) must not
// perturb an in-progress round, so the reconciler keeps the held session
// whenever SameRules is true.
func (s *GameSession) SameRules(other *GameSession) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.IsRandomLetter != other.IsRandomLetter || s.FinalLetter != other.FinalLetter {
		return false
	}
	if len(s.SelectedTypes) != len(other.SelectedTypes) {
		return false
	}
	for i, key := range s.SelectedTypes {
		if other.SelectedTypes[i] != key {
			return false
		}
	}
	return true
}

// Remaining returns how much of the round is left at the given wall-clock
// instant. It is always recomputed from the server-provided start timestamp
// rather than accumulated ticks, so it self-corrects after any suspension.
// A session with no started round has the full duration remaining.
func (s *GameSession) Remaining(now time.Time) time.Duration {
	total := time.Duration(s.TimePerRound) * time.Second
	if s.RoundStartedAt == nil || s.RoundStartedAt.IsZero() {
		return total
	}
	left := s.RoundStartedAt.Add(total).Sub(now)
	if left < 0 {
		return 0
	}
	if left > total {
		return total
	}
	return left
}

// SessionUpdate is the host's rule-save payload for PUT game-session/update/.
type SessionUpdate struct {
	IsRandomLetter bool     `json:"is_random_letter"`
	Letter         string   `json:"letter,omitempty"`
	SelectedTypes  []string `json:"selected_types"`
	Rounds         int      `json:"rounds"`
	TimePerRound   int      `json:"time_per_round"`
}
