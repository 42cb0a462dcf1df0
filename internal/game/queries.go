package game

import "github.com/YaroslavWork/letter-game-cli/pkg/domain"

// Derived helpers: pure functions of the current state, never stored.

func (s State) scoreRow(playerID string) (domain.PlayerScore, bool) {
	for _, row := range s.Scores {
		if row.PlayerID == playerID {
			return row, true
		}
	}
	return domain.PlayerScore{}, false
}

// PlayerAnswer returns a player's recorded answer for a category.
func (s State) PlayerAnswer(playerID, category string) string {
	row, ok := s.scoreRow(playerID)
	if !ok {
		return ""
	}
	return row.Answers[category]
}

// PlayerPoints returns a player's awarded points for a category, or nil
// while the backend has not scored it yet.
func (s State) PlayerPoints(playerID, category string) *int {
	row, ok := s.scoreRow(playerID)
	if !ok {
		return nil
	}
	return row.Points[category]
}

// PlayerRoundPoints returns a player's total for the current round, or nil
// until scored or when the player has no recorded submission.
func (s State) PlayerRoundPoints(playerID string) *int {
	row, ok := s.scoreRow(playerID)
	if !ok {
		return nil
	}
	return row.RoundPoints
}

// PlayerTotalPoints returns a player's cumulative score across rounds, or
// nil until totals are available.
func (s State) PlayerTotalPoints(playerID string) *int {
	row, ok := s.scoreRow(playerID)
	if !ok {
		return nil
	}
	return row.TotalPoints
}

// AllSubmitted reports whether every currently-known room player has a
// recorded submission for the round.
func (s State) AllSubmitted() bool {
	if s.Room == nil || len(s.Room.Players) == 0 {
		return false
	}
	for _, p := range s.Room.Players {
		if !s.Submitted[p.ID] {
			return false
		}
	}
	return true
}
