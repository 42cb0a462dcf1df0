package domain

// Room is a joinable lobby grouping players under one host.
// The id is opaque and stable; the backend owns all identity.
type Room struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	HostID      string       `json:"host_id"`
	Players     []Player     `json:"players"`
	GameSession *GameSession `json:"game_session,omitempty"`
}

// Player is one member of a room.
type Player struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	GameName string `json:"game_name,omitempty"`
}

// DisplayName returns the player's game name, falling back to the username.
func (p Player) DisplayName() string {
	if p.GameName != "" {
		return p.GameName
	}
	return p.Username
}

// IsHost reports whether this player owns the room.
func (p Player) IsHost(r Room) bool {
	return p.UserID == r.HostID
}

// HasUser reports whether a user is currently a member of the room.
// Membership is always taken from the latest snapshot, never diffed.
func (r Room) HasUser(userID string) bool {
	for _, p := range r.Players {
		if p.UserID == userID {
			return true
		}
	}
	return false
}

// PlayerByUser returns the room's player entry for a user, if present.
func (r Room) PlayerByUser(userID string) (Player, bool) {
	for _, p := range r.Players {
		if p.UserID == userID {
			return p, true
		}
	}
	return Player{}, false
}

// User is the authenticated account, as returned by /me.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Role is the persisted room role of the current user.
type Role string

const (
	RoleHost Role = "host"
	RoleJoin Role = "join"
)
