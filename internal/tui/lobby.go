package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/YaroslavWork/letter-game-cli/internal/session"
	"github.com/YaroslavWork/letter-game-cli/pkg/client"
	"github.com/YaroslavWork/letter-game-cli/pkg/domain"
)

// lobbyMode is the lobby's input state.
type lobbyMode int

const (
	lobbyMenu lobbyMode = iota
	lobbyLogin
	lobbyRegister
	lobbyCreate
	lobbyJoin
)

type lobbyField int

const (
	lobbyFieldUser lobbyField = iota
	lobbyFieldPass
	numLobbyFields
)

// -- messages --

type authDoneMsg struct {
	err error
}

type registerDoneMsg struct {
	username string
	password string
	err      error
}

type roomCreatedMsg struct {
	room *domain.Room
	err  error
}

type roomJoinedMsg struct {
	room *domain.Room
	err  error
}

// -- model --

type lobbyModel struct {
	client *client.Client
	store  *session.Store

	mode  lobbyMode
	menu  []menuItem
	curs  int
	auth  [numLobbyFields]string
	focus lobbyField
	text  string // room name or room id, depending on mode
	busy  bool
	err   string

	signedIn bool
}

type menuItem struct {
	label  string
	action string
}

func newLobbyModel(c *client.Client, store *session.Store) lobbyModel {
	m := lobbyModel{client: c, store: store}
	access, _ := store.Tokens()
	m.signedIn = access != ""
	m.rebuildMenu()
	return m
}

func (m *lobbyModel) rebuildMenu() {
	var items []menuItem
	if m.signedIn {
		items = append(items,
			menuItem{"create a room", "create"},
			menuItem{"join a room", "join"},
		)
		if roomID, _ := m.store.Room(); roomID != "" {
			items = append(items, menuItem{"resume " + truncStr(roomID, 12), "resume"})
		}
		items = append(items, menuItem{"switch account", "login"})
	} else {
		items = append(items,
			menuItem{"sign in", "login"},
			menuItem{"create an account", "register"},
		)
	}
	items = append(items, menuItem{"quit", "quit"})
	m.menu = items
	if m.curs >= len(items) {
		m.curs = 0
	}
}

// setSignedIn flips the lobby between its anonymous and signed-in menus.
func (m *lobbyModel) setSignedIn(on bool) {
	m.signedIn = on
	m.mode = lobbyMenu
	m.rebuildMenu()
}

func (m lobbyModel) editing() bool {
	return m.mode != lobbyMenu
}

func (m lobbyModel) Update(msg tea.Msg) (lobbyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case authDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err, "sign-in failed")
			return m, nil
		}
		m.auth = [numLobbyFields]string{}
		m.setSignedIn(true)
		return m, nil

	case registerDoneMsg:
		m.busy = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err, "registration failed")
			return m, nil
		}
		// Account created: sign in with the same credentials right away.
		m.busy = true
		c := m.client
		return m, func() tea.Msg {
			_, err := c.Login(context.Background(), msg.username, msg.password)
			return authDoneMsg{err: err}
		}

	case roomCreatedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err, "could not create the room")
			return m, nil
		}
		m.text = ""
		m.mode = lobbyMenu
		roomID := msg.room.ID
		return m, func() tea.Msg { return enterRoomMsg{roomID: roomID, role: domain.RoleHost} }

	case roomJoinedMsg:
		m.busy = false
		if msg.err != nil {
			m.err = client.UserMessage(msg.err, "could not join the room")
			return m, nil
		}
		m.text = ""
		m.mode = lobbyMenu
		roomID := msg.room.ID
		return m, func() tea.Msg { return enterRoomMsg{roomID: roomID, role: domain.RoleJoin} }

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m lobbyModel) handleKey(msg tea.KeyMsg) (lobbyModel, tea.Cmd) {
	if m.busy {
		return m, nil
	}
	m.err = ""

	switch m.mode {
	case lobbyMenu:
		switch msg.String() {
		case "j", "down":
			if m.curs < len(m.menu)-1 {
				m.curs++
			}
		case "k", "up":
			if m.curs > 0 {
				m.curs--
			}
		case "enter":
			return m.activate(m.menu[m.curs].action)
		}
		return m, nil

	case lobbyLogin, lobbyRegister:
		switch msg.String() {
		case "esc":
			m.mode = lobbyMenu
		case "tab", "down":
			m.focus = (m.focus + 1) % numLobbyFields
		case "shift+tab", "up":
			m.focus = (m.focus - 1 + numLobbyFields) % numLobbyFields
		case "enter":
			if m.focus == lobbyFieldUser {
				m.focus = lobbyFieldPass
				return m, nil
			}
			return m.submitAuth()
		default:
			m.auth[m.focus] = editRune(m.auth[m.focus], msg.String())
		}
		return m, nil

	case lobbyCreate, lobbyJoin:
		switch msg.String() {
		case "esc":
			m.mode = lobbyMenu
			m.text = ""
		case "enter":
			return m.submitRoom()
		default:
			m.text = editRune(m.text, msg.String())
		}
		return m, nil
	}
	return m, nil
}

func (m lobbyModel) activate(action string) (lobbyModel, tea.Cmd) {
	switch action {
	case "login":
		m.mode = lobbyLogin
		m.focus = lobbyFieldUser
		m.auth = [numLobbyFields]string{}
	case "register":
		m.mode = lobbyRegister
		m.focus = lobbyFieldUser
		m.auth = [numLobbyFields]string{}
	case "create":
		m.mode = lobbyCreate
		m.text = ""
	case "join":
		m.mode = lobbyJoin
		m.text = ""
	case "resume":
		roomID, role := m.store.Room()
		if roomID != "" {
			return m, func() tea.Msg { return enterRoomMsg{roomID: roomID, role: role} }
		}
	case "quit":
		return m, tea.Quit
	}
	return m, nil
}

func (m lobbyModel) submitAuth() (lobbyModel, tea.Cmd) {
	username := strings.TrimSpace(m.auth[lobbyFieldUser])
	password := m.auth[lobbyFieldPass]
	if username == "" || password == "" {
		m.err = "username and password are required"
		return m, nil
	}

	m.busy = true
	c := m.client
	if m.mode == lobbyRegister {
		return m, func() tea.Msg {
			err := c.Register(context.Background(), username, password)
			return registerDoneMsg{username: username, password: password, err: err}
		}
	}
	return m, func() tea.Msg {
		_, err := c.Login(context.Background(), username, password)
		return authDoneMsg{err: err}
	}
}

func (m lobbyModel) submitRoom() (lobbyModel, tea.Cmd) {
	text := strings.TrimSpace(m.text)
	c := m.client

	if m.mode == lobbyCreate {
		if msg := domain.ValidateRoomName(text); msg != "" {
			m.err = msg
			return m, nil
		}
		m.busy = true
		return m, func() tea.Msg {
			room, err := c.CreateRoom(context.Background(), text)
			return roomCreatedMsg{room: room, err: err}
		}
	}

	if text == "" {
		m.err = "room id is required"
		return m, nil
	}
	m.busy = true
	return m, func() tea.Msg {
		room, err := c.JoinRoom(context.Background(), text)
		return roomJoinedMsg{room: room, err: err}
	}
}

func (m lobbyModel) View() string {
	var b strings.Builder
	b.WriteString("\n")

	switch m.mode {
	case lobbyMenu:
		for i, item := range m.menu {
			cursor := "  "
			style := normalStyle
			if i == m.curs {
				cursor = " " + accentStyle.Render("▸")
				style = selectedStyle
			}
			fmt.Fprintf(&b, "%s %s\n", cursor, style.Render(item.label))
		}

	case lobbyLogin, lobbyRegister:
		title := "sign in"
		if m.mode == lobbyRegister {
			title = "create an account"
		}
		b.WriteString(" " + selectedStyle.Render(title) + "\n\n")
		b.WriteString(" " + renderField("username", m.auth[lobbyFieldUser], m.focus == lobbyFieldUser, false) + "\n")
		b.WriteString(" " + renderField("password", m.auth[lobbyFieldPass], m.focus == lobbyFieldPass, true) + "\n")

	case lobbyCreate:
		b.WriteString(" " + selectedStyle.Render("create a room") + "\n\n")
		b.WriteString(" " + renderField("room name", m.text, true, false) + "\n")

	case lobbyJoin:
		b.WriteString(" " + selectedStyle.Render("join a room") + "\n\n")
		b.WriteString(" " + renderField("room id", m.text, true, false) + "\n")
	}

	b.WriteString("\n")
	if m.busy {
		b.WriteString(" " + dimStyle.Render("working...") + "\n")
	} else if m.err != "" {
		b.WriteString(" " + errorStyle.Render(m.err) + "\n")
	}
	return b.String()
}

func (m lobbyModel) helpKeys() string {
	if m.editing() {
		return helpEntry("tab", "next") + "  " + helpEntry("enter", "submit") + "  " + helpEntry("esc", "back")
	}
	return helpEntry("j/k", "nav") + "  " + helpEntry("enter", "select") + "  " + helpEntry("h", "help") + "  " + helpEntry("q", "quit")
}
