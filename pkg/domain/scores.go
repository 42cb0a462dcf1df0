package domain

// PlayerScore is one player's submission and scoring for the current round.
// Points and RoundPoints stay nil until the backend has scored the round;
// TotalPoints appears only when totals are requested after completion.
// A submission is append-then-freeze: once the backend has accepted answers
// for a round, the client never edits them.
type PlayerScore struct {
	PlayerID    string            `json:"player_id"`
	UserID      string            `json:"user_id"`
	Username    string            `json:"username"`
	GameName    string            `json:"game_name,omitempty"`
	Answers     map[string]string `json:"answers"`
	Points      map[string]*int   `json:"points,omitempty"`
	RoundPoints *int              `json:"round_points,omitempty"`
	TotalPoints *int              `json:"total_points,omitempty"`
}

// DisplayName returns the score row's game name, falling back to username.
func (s PlayerScore) DisplayName() string {
	if s.GameName != "" {
		return s.GameName
	}
	return s.Username
}

// HasSubmission reports whether the player has a recorded submission for the
// round. An empty-but-present answers map still counts: the backend records
// the map on submit.
func (s PlayerScore) HasSubmission() bool {
	return s.Answers != nil
}
