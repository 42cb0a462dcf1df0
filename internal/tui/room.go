package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/YaroslavWork/letter-game-cli/internal/game"
	"github.com/YaroslavWork/letter-game-cli/pkg/client"
	"github.com/YaroslavWork/letter-game-cli/pkg/domain"
)

// cfgField is one focusable slot of the host's rule form.
type cfgField int

const (
	cfgMode cfgField = iota
	cfgLetter
	cfgCategories
	cfgRounds
	cfgTime
	numCfgFields
)

// confirmKind is a pending yes/no prompt.
type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmLeave
	confirmDelete
	confirmRemove
)

const (
	minRounds = 1
	maxRounds = 10
	minTime   = 30
	maxTime   = 300
	timeStep  = 15
)

// -- messages --

type gameTypesLoadedMsg struct {
	types []domain.GameType
	err   error
}

type rulesSavedMsg struct {
	gs  *domain.GameSession
	err error
}

type startDoneMsg struct {
	gs  *domain.GameSession
	err error
}

type removeDoneMsg struct {
	err error
}

type leaveDoneMsg struct {
	err error
}

type deleteDoneMsg struct {
	err error
}

// -- model --

// roomModel is the pre-game room view: the player roster for everyone, plus
// the rule form for the host. The authoritative room/session data lives in
// the reconciler state passed into Update and View; this model only holds
// form inputs and cursors.
type roomModel struct {
	client *client.Client

	types       []domain.GameType
	typeCursor  int
	selected    map[string]bool
	randomMode  bool
	letter      string
	rounds      int
	timePerRnd  int
	focus       cfgField
	prefilled   bool
	playerCurs  int
	confirm     confirmKind
	removeAim   string // player id the pending remove prompt refers to
	removeLabel string
	busy        bool
	err         string
	saved       bool
}

func newRoomModel(c *client.Client) roomModel {
	return roomModel{
		client:     c,
		selected:   make(map[string]bool),
		randomMode: true,
		rounds:     3,
		timePerRnd: 60,
	}
}

func (m roomModel) Init() tea.Cmd {
	c := m.client
	return func() tea.Msg {
		types, err := c.GetGameTypes(context.Background())
		return gameTypesLoadedMsg{types: types, err: err}
	}
}

func (m roomModel) editing() bool {
	return m.focus == cfgLetter && m.confirm == confirmNone
}

// prefill copies the server-held rules into the form once, so the host
// resumes editing where the session left off.
func (m *roomModel) prefill(gs *domain.GameSession) {
	if m.prefilled || gs == nil {
		return
	}
	m.prefilled = true
	m.randomMode = gs.IsRandomLetter
	m.letter = gs.FinalLetter
	if gs.Rounds >= minRounds && gs.Rounds <= maxRounds {
		m.rounds = gs.Rounds
	}
	if gs.TimePerRound >= minTime && gs.TimePerRound <= maxTime {
		m.timePerRnd = gs.TimePerRound
	}
	for _, key := range gs.SelectedTypes {
		m.selected[key] = true
	}
}

func (m roomModel) Update(msg tea.Msg, st game.State) (roomModel, tea.Cmd) {
	switch msg := msg.(type) {
	case gameTypesLoadedMsg:
		if msg.err != nil {
			m.err = client.UserMessage(msg.err, "could not load categories")
			return m, nil
		}
		m.types = msg.types
		m.prefill(st.Session)
		return m, nil

	case rulesSavedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err, "could not save the rules")
			return m, nil
		}
		m.saved = true
		gs := *msg.gs
		return m, func() tea.Msg { return gameEventMsg{ev: game.SessionLoaded{Session: gs}} }

	case startDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err, "could not start the game")
			return m, nil
		}
		gs := *msg.gs
		return m, func() tea.Msg { return gameEventMsg{ev: game.SessionLoaded{Session: gs}} }

	case removeDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err, "could not remove the player")
		}
		// The refreshed roster arrives through the room snapshot.
		return m, nil

	case leaveDoneMsg, deleteDoneMsg:
		m.busy = false
		var err error
		switch msg := msg.(type) {
		case leaveDoneMsg:
			err = msg.err
		case deleteDoneMsg:
			err = msg.err
		}
		if err != nil {
			m.err = client.UserMessage(err, "could not leave the room")
			return m, nil
		}
		return m, func() tea.Msg { return gameEventMsg{ev: game.RoomLeft{}} }

	case tea.KeyMsg:
		return m.handleKey(msg, st)
	}
	return m, nil
}

func (m roomModel) handleKey(msg tea.KeyMsg, st game.State) (roomModel, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.err = ""

	if m.confirm != confirmNone {
		return m.handleConfirm(msg, st)
	}

	key := msg.String()

	// Keys shared by host and guests.
	switch key {
	case "esc":
		m.confirm = confirmLeave
		return m, nil
	case "c":
		if !m.editing() {
			return m.copyRoomID(st)
		}
	}

	if !st.IsHost() && st.Role != domain.RoleHost {
		return m, nil
	}

	// Host-only keys from here on.
	switch key {
	case "D":
		if !m.editing() {
			m.confirm = confirmDelete
			return m, nil
		}
	case "x":
		if !m.editing() {
			return m.askRemove(st)
		}
	case "tab":
		m.focus = m.nextField(m.focus, 1)
		return m, nil
	case "shift+tab":
		m.focus = m.nextField(m.focus, -1)
		return m, nil
	case "ctrl+s":
		return m.saveRules(st)
	case "s":
		if !m.editing() {
			return m.startGame(st)
		}
	}

	switch m.focus {
	case cfgMode:
		if key == "h" || key == "l" || key == "left" || key == "right" || key == " " {
			m.randomMode = !m.randomMode
			m.saved = false
		}
	case cfgLetter:
		switch key {
		case "backspace":
			m.letter = ""
			m.saved = false
		default:
			if r := []rune(key); len(r) == 1 && isLetterRune(r[0]) {
				m.letter = strings.ToUpper(key)
				m.saved = false
			}
		}
	case cfgCategories:
		switch key {
		case "j", "down":
			if m.typeCursor < len(m.types)-1 {
				m.typeCursor++
			}
		case "k", "up":
			if m.typeCursor > 0 {
				m.typeCursor--
			}
		case " ":
			if m.typeCursor < len(m.types) {
				k := m.types[m.typeCursor].Key
				m.selected[k] = !m.selected[k]
				m.saved = false
			}
		}
	case cfgRounds:
		switch key {
		case "h", "left":
			if m.rounds > minRounds {
				m.rounds--
				m.saved = false
			}
		case "l", "right":
			if m.rounds < maxRounds {
				m.rounds++
				m.saved = false
			}
		}
	case cfgTime:
		switch key {
		case "h", "left":
			if m.timePerRnd-timeStep >= minTime {
				m.timePerRnd -= timeStep
				m.saved = false
			}
		case "l", "right":
			if m.timePerRnd+timeStep <= maxTime {
				m.timePerRnd += timeStep
				m.saved = false
			}
		}
	}

	// Player cursor for removal moves regardless of form focus.
	if st.Room != nil {
		switch key {
		case "J":
			if m.playerCurs < len(st.Room.Players)-1 {
				m.playerCurs++
			}
		case "K":
			if m.playerCurs > 0 {
				m.playerCurs--
			}
		}
	}
	return m, nil
}

func isLetterRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func (m roomModel) nextField(f cfgField, dir int) cfgField {
	for {
		f = cfgField((int(f) + dir + int(numCfgFields)) % int(numCfgFields))
		// The letter slot only exists in chosen-letter mode.
		if f == cfgLetter && m.randomMode {
			continue
		}
		return f
	}
}

func (m roomModel) handleConfirm(msg tea.KeyMsg, st game.State) (roomModel, tea.Cmd) {
	switch msg.String() {
	case "y", "Y", "enter":
		kind := m.confirm
		m.confirm = confirmNone
		switch kind {
		case confirmLeave:
			return m.leave(st)
		case confirmDelete:
			return m.deleteRoom(st)
		case confirmRemove:
			return m.removePlayer(st)
		}
	case "n", "N", "esc":
		m.confirm = confirmNone
		m.removeAim = ""
	}
	return m, nil
}

func (m roomModel) copyRoomID(st game.State) (roomModel, tea.Cmd) {
	roomID := st.RoomID()
	return m, func() tea.Msg {
		if err := clipboard.WriteAll(roomID); err != nil {
			return showNoticeMsg{text: "could not copy the room id"}
		}
		return showNoticeMsg{text: "room id copied"}
	}
}

func (m roomModel) askRemove(st game.State) (roomModel, tea.Cmd) {
	if st.Room == nil || m.playerCurs >= len(st.Room.Players) {
		return m, nil
	}
	p := st.Room.Players[m.playerCurs]
	if p.UserID == st.Me.ID {
		return m, nil
	}
	m.confirm = confirmRemove
	m.removeAim = p.ID
	m.removeLabel = p.DisplayName()
	return m, nil
}

func (m roomModel) saveRules(st game.State) (roomModel, tea.Cmd) {
	var selected []string
	for _, t := range m.types {
		if m.selected[t.Key] {
			selected = append(selected, t.Key)
		}
	}
	if len(selected) == 0 {
		m.err = "select at least one category"
		return m, nil
	}
	if !m.randomMode && m.letter == "" {
		m.err = "pick a letter or switch to random"
		return m, nil
	}

	update := domain.SessionUpdate{
		IsRandomLetter: m.randomMode,
		SelectedTypes:  selected,
		Rounds:         m.rounds,
		TimePerRound:   m.timePerRnd,
	}
	if !m.randomMode {
		update.Letter = m.letter
	}

	m.busy = true
	c := m.client
	roomID := st.RoomID()
	return m, func() tea.Msg {
		gs, err := c.UpdateGameSession(context.Background(), roomID, update)
		return rulesSavedMsg{gs: gs, err: err}
	}
}

func (m roomModel) startGame(st game.State) (roomModel, tea.Cmd) {
	m.busy = true
	c := m.client
	roomID := st.RoomID()
	return m, func() tea.Msg {
		gs, err := c.StartGameSession(context.Background(), roomID)
		return startDoneMsg{gs: gs, err: err}
	}
}

func (m roomModel) leave(st game.State) (roomModel, tea.Cmd) {
	m.busy = true
	c := m.client
	roomID := st.RoomID()
	return m, func() tea.Msg {
		err := c.LeaveRoom(context.Background(), roomID)
		return leaveDoneMsg{err: err}
	}
}

func (m roomModel) deleteRoom(st game.State) (roomModel, tea.Cmd) {
	m.busy = true
	c := m.client
	roomID := st.RoomID()
	return m, func() tea.Msg {
		err := c.DeleteRoom(context.Background(), roomID)
		return deleteDoneMsg{err: err}
	}
}

func (m roomModel) removePlayer(st game.State) (roomModel, tea.Cmd) {
	if m.removeAim == "" {
		return m, nil
	}
	m.busy = true
	c := m.client
	roomID := st.RoomID()
	playerID := m.removeAim
	m.removeAim = ""
	return m, func() tea.Msg {
		err := c.RemovePlayer(context.Background(), roomID, playerID)
		return removeDoneMsg{err: err}
	}
}

func (m roomModel) View(st game.State) string {
	var b strings.Builder
	isHost := st.IsHost() || st.Role == domain.RoleHost

	if st.Room == nil {
		b.WriteString("\n " + dimStyle.Render("joining the room...") + "\n")
		return b.String()
	}

	fmt.Fprintf(&b, "\n %s  %s\n",
		selectedStyle.Render(st.Room.Name),
		metaStyle.Render(st.Room.ID+"  (c to copy)"))

	b.WriteString("\n " + dimStyle.Render("players") + "\n")
	for i, p := range st.Room.Players {
		cursor := "  "
		if isHost && i == m.playerCurs {
			cursor = " " + accentStyle.Render("▸")
		}
		name := normalStyle.Render(p.DisplayName())
		if p.UserID == st.Me.ID {
			name = selectedStyle.Render(p.DisplayName())
		}
		badge := ""
		if p.IsHost(*st.Room) {
			badge = " " + hostBadgeStyle.Render("host")
		}
		fmt.Fprintf(&b, "%s %s%s\n", cursor, name, badge)
	}

	if isHost {
		b.WriteString("\n " + dimStyle.Render("rules") + "\n")
		b.WriteString(" " + m.renderForm() + "\n")
		status := metaStyle.Render("ctrl+s save · s start · x remove · D delete room")
		if m.saved {
			status = okStyle.Render("rules saved") + "  " + status
		}
		b.WriteString("\n " + status + "\n")
	} else {
		b.WriteString("\n " + dimStyle.Render("waiting for the host to start the game...") + "\n")
	}

	switch m.confirm {
	case confirmLeave:
		b.WriteString("\n " + noticeStyle.Render("leave the room? (y/n)") + "\n")
	case confirmDelete:
		b.WriteString("\n " + noticeStyle.Render("delete the room for everyone? (y/n)") + "\n")
	case confirmRemove:
		b.WriteString("\n " + noticeStyle.Render("remove "+m.removeLabel+"? (y/n)") + "\n")
	}

	if m.busy {
		b.WriteString("\n " + dimStyle.Render("working...") + "\n")
	} else if m.err != "" {
		b.WriteString("\n " + errorStyle.Render(m.err) + "\n")
	}
	return b.String()
}

func (m roomModel) renderForm() string {
	var lines []string

	mode := "random letter"
	if !m.randomMode {
		mode = "chosen letter"
	}
	lines = append(lines, renderField("mode", mode+"  (h/l)", m.focus == cfgMode, false))

	if !m.randomMode {
		lines = append(lines, renderField("letter", m.letter, m.focus == cfgLetter, false))
	}

	var cats strings.Builder
	if len(m.types) == 0 {
		cats.WriteString(dimStyle.Render("loading categories..."))
	}
	for i, t := range m.types {
		mark := metaStyle.Render("·")
		label := dimStyle.Render(t.Label)
		if m.selected[t.Key] {
			mark = okStyle.Render("✓")
			label = normalStyle.Render(t.Label)
		}
		if m.focus == cfgCategories && i == m.typeCursor {
			label = selectedStyle.Render(t.Label)
		}
		if i > 0 {
			cats.WriteString("  ")
		}
		cats.WriteString(mark + " " + label)
	}
	lines = append(lines, renderField("categories", cats.String(), m.focus == cfgCategories, false))
	lines = append(lines, renderField("rounds", fmt.Sprintf("%d  (h/l)", m.rounds), m.focus == cfgRounds, false))
	lines = append(lines, renderField("seconds per round", fmt.Sprintf("%d  (h/l)", m.timePerRnd), m.focus == cfgTime, false))

	return strings.Join(lines, "\n ")
}

func (m roomModel) helpKeys(st game.State) string {
	if st.IsHost() || st.Role == domain.RoleHost {
		return helpEntry("tab", "field") + "  " + helpEntry("space", "toggle") + "  " + helpEntry("ctrl+s", "save") + "  " + helpEntry("s", "start") + "  " + helpEntry("esc", "leave")
	}
	return helpEntry("c", "copy id") + "  " + helpEntry("esc", "leave") + "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
}
