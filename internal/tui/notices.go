package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// noticeTTL is how long a transient banner stays on screen.
const noticeTTL = 4 * time.Second

// notice is one transient banner line (rule saved, copy result, reject
// message, removal reason). Each carries its own id so an expiry tick only
// ever removes the notice it was scheduled for.
type notice struct {
	id   uuid.UUID
	text string
}

type noticeExpiredMsg struct {
	id uuid.UUID
}

// pushNotice appends a banner and returns the command that expires it.
func pushNotice(notices []notice, text string) ([]notice, tea.Cmd) {
	n := notice{id: uuid.New(), text: text}
	cmd := tea.Tick(noticeTTL, func(time.Time) tea.Msg {
		return noticeExpiredMsg{id: n.id}
	})
	return append(notices, n), cmd
}

// dropNotice removes the banner with the given id, if still present.
func dropNotice(notices []notice, id uuid.UUID) []notice {
	out := notices[:0]
	for _, n := range notices {
		if n.id != id {
			out = append(out, n)
		}
	}
	return out
}
