package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/YaroslavWork/letter-game-cli/internal/game"
	"github.com/YaroslavWork/letter-game-cli/pkg/client"
	"github.com/YaroslavWork/letter-game-cli/pkg/domain"
)

// -- messages --

type advanceDoneMsg struct {
	gs  *domain.GameSession
	err error
}

// -- model --

// roundModel is the in-round and results view. All round data (answers,
// validation errors, scores, countdown) lives in the reconciler state; this
// model holds only the input focus and the leave prompt.
type roundModel struct {
	client  *client.Client
	focus   int
	confirm bool
	busy    bool
	err     string
}

func newRoundModel(c *client.Client) roundModel {
	return roundModel{client: c}
}

func (m roundModel) Update(msg tea.Msg, st game.State) (roundModel, tea.Cmd) {
	switch msg := msg.(type) {
	case advanceDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err, "could not advance the round")
			return m, nil
		}
		gs := *msg.gs
		return m, func() tea.Msg { return gameEventMsg{ev: game.SessionLoaded{Session: gs}} }

	case leaveDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err, "could not leave the room")
			return m, nil
		}
		return m, func() tea.Msg { return gameEventMsg{ev: game.RoomLeft{}} }

	case tea.KeyMsg:
		return m.handleKey(msg, st)
	}
	return m, nil
}

func (m roundModel) categories(st game.State) []string {
	if st.Session == nil {
		return nil
	}
	return st.Session.SelectedTypes
}

func (m roundModel) typing(st game.State) bool {
	return st.Phase == game.PhaseInRound && !st.HasSubmitted && !m.confirm
}

func (m roundModel) handleKey(msg tea.KeyMsg, st game.State) (roundModel, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.err = ""
	key := msg.String()

	if m.confirm {
		switch key {
		case "y", "Y", "enter":
			m.confirm = false
			c := m.client
			roomID := st.RoomID()
			m.busy = true
			return m, func() tea.Msg {
				err := c.LeaveRoom(context.Background(), roomID)
				return leaveDoneMsg{err: err}
			}
		case "n", "N", "esc":
			m.confirm = false
		}
		return m, nil
	}

	if key == "esc" {
		m.confirm = true
		return m, nil
	}

	cats := m.categories(st)

	if m.typing(st) && len(cats) > 0 {
		if m.focus >= len(cats) {
			m.focus = 0
		}
		cat := cats[m.focus]

		switch key {
		case "tab", "down", "enter":
			m.focus = (m.focus + 1) % len(cats)
			return m, nil
		case "shift+tab", "up":
			m.focus = (m.focus - 1 + len(cats)) % len(cats)
			return m, nil
		case "ctrl+s":
			return m, func() tea.Msg { return gameEventMsg{ev: game.SubmitRequested{}} }
		default:
			next := editRune(st.Answers[cat], key)
			if next != st.Answers[cat] {
				ev := game.AnswerEdited{Category: cat, Text: next}
				return m, func() tea.Msg { return gameEventMsg{ev: ev} }
			}
		}
		return m, nil
	}

	// Results and completed phases.
	if key == "n" && st.IsHost() && st.Phase == game.PhaseRoundResults {
		m.busy = true
		c := m.client
		roomID := st.RoomID()
		return m, func() tea.Msg {
			gs, err := c.AdvanceRound(context.Background(), roomID)
			return advanceDoneMsg{gs: gs, err: err}
		}
	}
	return m, nil
}

func (m roundModel) View(st game.State, now time.Time) string {
	var b strings.Builder
	if st.Session == nil {
		b.WriteString("\n " + dimStyle.Render("loading the round...") + "\n")
		return b.String()
	}

	gs := st.Session
	fmt.Fprintf(&b, "\n %s %s   %s %s\n",
		metaStyle.Render("round"),
		selectedStyle.Render(fmt.Sprintf("%d/%d", gs.CurrentRound, gs.Rounds)),
		metaStyle.Render("letter"),
		letterStyle.Render(st.Letter()))

	switch st.Phase {
	case game.PhaseInRound:
		m.renderRound(&b, st, now)
	case game.PhaseRoundResults:
		m.renderScores(&b, st, false)
	case game.PhaseCompleted:
		b.WriteString("\n " + selectedStyle.Render("game over") + "\n")
		m.renderScores(&b, st, true)
	}

	if st.Countdown >= 0 {
		fmt.Fprintf(&b, "\n %s\n",
			noticeStyle.Render(fmt.Sprintf("next round in %d...", st.Countdown)))
	}

	if m.confirm {
		b.WriteString("\n " + noticeStyle.Render("leave the game? (y/n)") + "\n")
	}
	if m.busy {
		b.WriteString("\n " + dimStyle.Render("working...") + "\n")
	} else if m.err != "" {
		b.WriteString("\n " + errorStyle.Render(m.err) + "\n")
	}
	return b.String()
}

func (m roundModel) renderRound(b *strings.Builder, st game.State, now time.Time) {
	remaining := st.Session.Remaining(now)
	clock := timerStyle.Render(formatClock(remaining))
	if remaining <= 10*time.Second {
		clock = timerUrgentStyle.Render(formatClock(remaining))
	}
	fmt.Fprintf(b, " %s %s\n\n", metaStyle.Render("time"), clock)

	if st.HasSubmitted {
		b.WriteString(" " + okStyle.Render("answers in") + dimStyle.Render(" — waiting for the others") + "\n\n")
	} else {
		cats := m.categories(st)
		for i, cat := range cats {
			focused := i == m.focus
			line := renderField(cat, st.Answers[cat], focused, false)
			b.WriteString(" " + line + "\n")
			if msg := st.ValidationErrors[cat]; msg != "" {
				b.WriteString("     " + errorStyle.Render(msg) + "\n")
			}
		}
		b.WriteString("\n " + metaStyle.Render("ctrl+s to submit") + "\n")
	}

	// Who is already done.
	if st.Room != nil {
		var done []string
		for _, p := range st.Room.Players {
			if st.Submitted[p.ID] {
				done = append(done, p.DisplayName())
			}
		}
		if len(done) > 0 {
			b.WriteString("\n " + dimStyle.Render("submitted: ") + okStyle.Render(strings.Join(done, ", ")) + "\n")
		}
	}

	// The previous round's outcome stays visible briefly after an advance.
	if len(st.PreviousRoundScores) > 0 {
		b.WriteString("\n " + dimStyle.Render("last round") + "\n")
		for _, row := range st.PreviousRoundScores {
			pts := ""
			if row.RoundPoints != nil {
				pts = fmt.Sprintf("  +%d", *row.RoundPoints)
			}
			fmt.Fprintf(b, "   %s%s\n", normalStyle.Render(row.DisplayName()), okStyle.Render(pts))
		}
	}
}

// scoreLine is one player's rendered standing, sortable by points.
type scoreLine struct {
	name   string
	you    bool
	points *int
}

func (m roundModel) renderScores(b *strings.Builder, st game.State, totals bool) {
	if st.Room == nil {
		return
	}
	cats := m.categories(st)

	b.WriteString("\n")
	for _, p := range st.Room.Players {
		name := normalStyle.Render(p.DisplayName())
		if p.UserID == st.Me.ID {
			name = selectedStyle.Render(p.DisplayName())
		}
		b.WriteString(" " + name + "\n")
		for _, cat := range cats {
			answer := st.PlayerAnswer(p.ID, cat)
			if answer == "" {
				answer = dimStyle.Render("—")
			} else {
				answer = normalStyle.Render(truncStr(answer, 24))
			}
			ptsStr := dimStyle.Render("·")
			if pts := st.PlayerPoints(p.ID, cat); pts != nil {
				ptsStr = okStyle.Render(fmt.Sprintf("%d", *pts))
			}
			fmt.Fprintf(b, "   %s  %s  %s\n", metaStyle.Render(fmt.Sprintf("%-14s", cat)), answer, ptsStr)
		}
	}

	// Standings, best first. Unscored players sink to the bottom.
	lines := make([]scoreLine, 0, len(st.Room.Players))
	for _, p := range st.Room.Players {
		pts := st.PlayerRoundPoints(p.ID)
		if totals {
			pts = st.PlayerTotalPoints(p.ID)
		}
		lines = append(lines, scoreLine{name: p.DisplayName(), you: p.UserID == st.Me.ID, points: pts})
	}
	sort.SliceStable(lines, func(i, j int) bool {
		switch {
		case lines[i].points == nil:
			return false
		case lines[j].points == nil:
			return true
		default:
			return *lines[i].points > *lines[j].points
		}
	})

	label := "round"
	if totals {
		label = "total"
	}
	b.WriteString("\n " + dimStyle.Render(label+" standings") + "\n")
	for i, l := range lines {
		pts := dimStyle.Render("pending")
		if l.points != nil {
			pts = fmt.Sprintf("%d", *l.points)
		}
		name := l.name
		if l.you {
			name += " " + accentStyle.Render("<- you")
		}
		fmt.Fprintf(b, "  %s %s  %s\n", rankStyle(i+1).Render(fmt.Sprintf("#%d", i+1)), normalStyle.Render(name), pts)
	}
}

func (m roundModel) helpKeys(st game.State) string {
	switch {
	case st.Phase == game.PhaseInRound && !st.HasSubmitted:
		return helpEntry("tab", "next") + "  " + helpEntry("ctrl+s", "submit") + "  " + helpEntry("esc", "leave")
	case st.Phase == game.PhaseRoundResults && st.IsHost():
		return helpEntry("n", "next round") + "  " + helpEntry("esc", "leave")
	default:
		return helpEntry("esc", "leave") + "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
	}
}
