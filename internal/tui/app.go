// Package tui is the terminal front-end. The root model owns the reconciler
// state and the push channel; sub-models (lobby, room, round) own only their
// input focus and prompts, and turn user actions into API calls or reconciler
// events.
package tui

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/YaroslavWork/letter-game-cli/internal/game"
	"github.com/YaroslavWork/letter-game-cli/internal/realtime"
	"github.com/YaroslavWork/letter-game-cli/internal/session"
	"github.com/YaroslavWork/letter-game-cli/pkg/client"
	"github.com/YaroslavWork/letter-game-cli/pkg/domain"
)

// eventBuffer sizes the inbound pump. Push handlers never block the read
// loop: if the UI falls this far behind, frames are dropped and the next
// REST resync repairs the state.
const eventBuffer = 64

// roundTickInterval drives the wall-clock round timer display.
const roundTickInterval = 500 * time.Millisecond

// -- messages --

// gameEventMsg feeds one event through the reconciler.
type gameEventMsg struct {
	ev game.Event
}

// connEventMsg is one push-channel lifecycle or message event.
type connEventMsg struct {
	ev realtime.Event
}

// meLoadedMsg carries the result of GetMe at startup or after sign-in.
type meLoadedMsg struct {
	me  *domain.User
	err error
}

// enterRoomMsg binds the app to a room after create, join or resume.
type enterRoomMsg struct {
	roomID string
	role   domain.Role
}

// showNoticeMsg surfaces a transient banner.
type showNoticeMsg struct {
	text string
}

type roomFetchedMsg struct {
	room *domain.Room
	err  error
}

type sessionFetchedMsg struct {
	gs  *domain.GameSession
	err error
}

type scoresFetchedMsg struct {
	scores        []domain.PlayerScore
	includeTotals bool
	err           error
}

type submitResultMsg struct {
	err error
}

type refreshDueMsg struct{}

type prevScoresExpiredMsg struct{}

type roundTickMsg time.Time

type authExpiredMsg struct{}

// App is the root Bubbletea model.
type App struct {
	client *client.Client
	conn   *realtime.Conn
	store  *session.Store
	log    zerolog.Logger

	st game.State
	me *domain.User

	events chan tea.Msg

	lobby lobbyModel
	room  roomModel
	round roundModel

	notices  []notice
	helpOpen bool
	ticking  bool
	width    int
	height   int
	frame    int
}

// NewApp creates the root model and subscribes it to the push channel.
func NewApp(c *client.Client, conn *realtime.Conn, store *session.Store, log zerolog.Logger) App {
	a := App{
		client: c,
		conn:   conn,
		store:  store,
		log:    log,
		st:     game.NewState(domain.User{}),
		events: make(chan tea.Msg, eventBuffer),
		lobby:  newLobbyModel(c, store),
		room:   newRoomModel(c),
		round:  newRoundModel(c),
	}
	for _, kind := range []string{realtime.EventOpen, realtime.EventMessage, realtime.EventError, realtime.EventClose} {
		conn.On(kind, a.pump)
	}
	return a
}

// pump forwards a connection event into the UI without ever blocking the
// read loop.
func (a App) pump(ev realtime.Event) {
	select {
	case a.events <- connEventMsg{ev: ev}:
	default:
		a.log.Warn().Str("kind", ev.Kind).Msg("ui event buffer full, frame dropped")
	}
}

// NotifyAuthExpired is handed to the API client as its auth-expired callback.
func (a App) NotifyAuthExpired() {
	select {
	case a.events <- authExpiredMsg{}:
	default:
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.waitMsg(), shimmerTickCmd(), a.loadMe())
}

// waitMsg re-arms the channel receive; every channel-delivered message must
// chain it again.
func (a App) waitMsg() tea.Cmd {
	ch := a.events
	return func() tea.Msg {
		return <-ch
	}
}

func (a App) loadMe() tea.Cmd {
	access, _ := a.store.Tokens()
	if access == "" {
		return nil
	}
	c := a.client
	return func() tea.Msg {
		me, err := c.GetMe(context.Background())
		return meLoadedMsg{me: me, err: err}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case shimmerTickMsg:
		a.frame++
		return a, shimmerTickCmd()

	case meLoadedMsg:
		if msg.err != nil {
			a.log.Warn().Err(msg.err).Msg("profile load failed")
			var cmd tea.Cmd
			if !client.IsStatus(msg.err, http.StatusUnauthorized) {
				a.notices, cmd = pushNotice(a.notices, client.UserMessage(msg.err, "could not reach the server"))
			}
			return a, cmd
		}
		a.me = msg.me
		if a.st.Phase == game.PhaseNoRoom {
			a.st = game.NewState(*msg.me)
		}
		a.lobby.setSignedIn(true)
		// Crash recovery: a persisted room association re-enters the room.
		if roomID, role := a.store.Room(); roomID != "" {
			return a, func() tea.Msg { return enterRoomMsg{roomID: roomID, role: role} }
		}
		return a, nil

	case authExpiredMsg:
		a.lobby.setSignedIn(false)
		a.st = game.NewState(domain.User{})
		a.me = nil
		a.conn.Disconnect()
		var cmd tea.Cmd
		a.notices, cmd = pushNotice(a.notices, "session expired, sign in again")
		return a, tea.Batch(cmd, a.waitMsg())

	case authDoneMsg:
		// Routed to the lobby below; a successful sign-in also reloads the
		// profile so identity-dependent rules work.
		var cmds []tea.Cmd
		var cmd tea.Cmd
		a.lobby, cmd = a.lobby.Update(msg)
		cmds = append(cmds, cmd)
		if msg.err == nil {
			cmds = append(cmds, a.loadMe())
		}
		return a, tea.Batch(cmds...)

	case enterRoomMsg:
		if a.me == nil {
			// Identity must be known before binding to a room.
			var cmd tea.Cmd
			a.notices, cmd = pushNotice(a.notices, "profile not loaded yet, try again")
			return a, cmd
		}
		a.room = newRoomModel(a.client)
		cmd := a.applyGame(game.RoomEntered{RoomID: msg.roomID, Role: msg.role})
		return a, tea.Batch(cmd, a.room.Init())

	case gameEventMsg:
		cmd := a.applyGame(msg.ev)
		return a, cmd

	case connEventMsg:
		cmd := a.handleConn(msg.ev)
		return a, tea.Batch(cmd, a.waitMsg())

	case roomFetchedMsg:
		if msg.err != nil {
			if client.IsStatus(msg.err, http.StatusNotFound) {
				// The room is gone; same teardown as the push notification.
				cmd := a.applyGame(game.RoomDeleted{})
				return a, cmd
			}
			a.log.Warn().Err(msg.err).Msg("room fetch failed")
			return a, nil
		}
		cmd := a.applyGame(game.RoomSnapshot{Room: *msg.room})
		return a, cmd

	case sessionFetchedMsg:
		if msg.err != nil {
			a.log.Warn().Err(msg.err).Msg("session fetch failed")
			return a, nil
		}
		cmd := a.applyGame(game.SessionLoaded{Session: *msg.gs})
		return a, cmd

	case scoresFetchedMsg:
		if msg.err != nil {
			a.log.Warn().Err(msg.err).Msg("scores fetch failed")
			return a, nil
		}
		cmd := a.applyGame(game.ScoresLoaded{Scores: msg.scores})
		return a, cmd

	case submitResultMsg:
		if msg.err != nil {
			cmd := a.applyGame(game.SubmitFailed{Message: client.UserMessage(msg.err, "submission failed")})
			return a, cmd
		}
		cmd := a.applyGame(game.SubmitAccepted{})
		return a, cmd

	case refreshDueMsg:
		return a, tea.Batch(a.fetchSession(), a.fetchScores(false))

	case prevScoresExpiredMsg:
		cmd := a.applyGame(game.PreviousScoresExpired{})
		return a, cmd

	case roundTickMsg:
		a.ticking = false
		if a.st.Phase != game.PhaseInRound || a.st.Session == nil {
			return a, nil
		}
		if a.st.Session.Remaining(time.Now()) <= 0 {
			cmd := a.applyGame(game.TimerExpired{})
			return a, cmd
		}
		a.ticking = true
		return a, roundTickCmd()

	case showNoticeMsg:
		var cmd tea.Cmd
		a.notices, cmd = pushNotice(a.notices, msg.text)
		return a, cmd

	case noticeExpiredMsg:
		a.notices = dropNotice(a.notices, msg.id)
		return a, nil

	case tea.KeyMsg:
		if a.helpOpen {
			switch msg.String() {
			case "h", "esc":
				a.helpOpen = false
			case "q", "ctrl+c":
				return a, tea.Quit
			}
			return a, nil
		}
		if msg.String() == "ctrl+c" {
			return a, tea.Quit
		}
		if !a.isEditing() {
			switch msg.String() {
			case "q":
				return a, tea.Quit
			case "h":
				a.helpOpen = true
				return a, nil
			}
		}
	}

	return a.route(msg)
}

// route delivers a message to the sub-model that owns it.
func (a App) route(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.(type) {
	case authDoneMsg, registerDoneMsg, roomCreatedMsg, roomJoinedMsg:
		a.lobby, cmd = a.lobby.Update(msg)
		return a, cmd
	case gameTypesLoadedMsg, rulesSavedMsg, startDoneMsg, removeDoneMsg, deleteDoneMsg:
		a.room, cmd = a.room.Update(msg, a.st)
		return a, cmd
	case advanceDoneMsg:
		a.round, cmd = a.round.Update(msg, a.st)
		return a, cmd
	case leaveDoneMsg:
		if a.inRound() {
			a.round, cmd = a.round.Update(msg, a.st)
		} else {
			a.room, cmd = a.room.Update(msg, a.st)
		}
		return a, cmd
	}

	// Keystrokes go to the active view.
	switch {
	case a.st.Phase == game.PhaseNoRoom:
		a.lobby, cmd = a.lobby.Update(msg)
	case a.inRound():
		a.round, cmd = a.round.Update(msg, a.st)
	default:
		a.room, cmd = a.room.Update(msg, a.st)
	}
	return a, cmd
}

func (a App) inRound() bool {
	switch a.st.Phase {
	case game.PhaseInRound, game.PhaseRoundResults, game.PhaseCompleted:
		return true
	}
	return false
}

func (a App) isEditing() bool {
	switch {
	case a.st.Phase == game.PhaseNoRoom:
		return a.lobby.editing()
	case a.inRound():
		return a.round.typing(a.st)
	default:
		return a.room.editing()
	}
}

// applyGame runs one event through the reconciler and maps the resulting
// effects to commands.
func (a *App) applyGame(ev game.Event) tea.Cmd {
	st, effects := game.Apply(a.st, ev)
	a.st = st

	var cmds []tea.Cmd
	for _, eff := range effects {
		cmds = append(cmds, a.runEffect(eff))
	}
	if a.st.Phase == game.PhaseInRound && !a.ticking && a.st.Session != nil && a.st.Session.Active() {
		a.ticking = true
		cmds = append(cmds, roundTickCmd())
	}
	return tea.Batch(cmds...)
}

func (a *App) runEffect(eff game.Effect) tea.Cmd {
	switch eff := eff.(type) {
	case game.NavigateToRound:
		a.round = newRoundModel(a.client)
		return nil

	case game.NavigateToLobby:
		a.lobby = newLobbyModel(a.client, a.store)
		var cmd tea.Cmd
		a.notices, cmd = pushNotice(a.notices, eff.Notice)
		return cmd

	case game.FetchRoom:
		return a.fetchRoom()

	case game.FetchSession:
		return a.fetchSession()

	case game.FetchScores:
		return a.fetchScores(eff.IncludeTotals)

	case game.ScheduleRefresh:
		return tea.Tick(eff.After, func(time.Time) tea.Msg { return refreshDueMsg{} })

	case game.ClearPreviousScores:
		return tea.Tick(eff.After, func(time.Time) tea.Msg { return prevScoresExpiredMsg{} })

	case game.StageHandoff:
		if err := a.store.StageSession(&eff.Session); err != nil {
			a.log.Warn().Err(err).Msg("stage session handoff")
		}
		return nil

	case game.SubmitAnswers:
		return a.submit(eff.Answers)

	case game.AutoSubmit:
		return a.submit(eff.Answers)

	case game.Disconnect:
		a.conn.Disconnect()
		return nil

	case game.ClearRoomSlots:
		if err := a.store.ClearRoom(); err != nil {
			a.log.Warn().Err(err).Msg("clear room slot")
		}
		return nil

	case game.PersistRoom:
		if err := a.store.SetRoom(eff.RoomID, eff.Role); err != nil {
			a.log.Warn().Err(err).Msg("persist room slot")
		}
		var cmds []tea.Cmd
		cmds = append(cmds, a.connect(eff.RoomID))
		// A staged session handoff is consumed exactly once, on entry.
		if gs := a.store.TakeStagedSession(); gs != nil {
			staged := *gs
			cmds = append(cmds, func() tea.Msg { return gameEventMsg{ev: game.SessionLoaded{Session: staged}} })
		}
		return tea.Batch(cmds...)

	case game.ShowNotice:
		var cmd tea.Cmd
		a.notices, cmd = pushNotice(a.notices, eff.Text)
		return cmd
	}
	return nil
}

func roundTickCmd() tea.Cmd {
	return tea.Tick(roundTickInterval, func(t time.Time) tea.Msg { return roundTickMsg(t) })
}

func (a App) connect(roomID string) tea.Cmd {
	conn := a.conn
	url := a.client.ChannelURL(roomID)
	return func() tea.Msg {
		// Dial failures surface as connection events and retries.
		conn.Connect(context.Background(), roomID, url) //nolint:errcheck // reported via events
		return nil
	}
}

func (a App) fetchRoom() tea.Cmd {
	c := a.client
	roomID := a.st.RoomID()
	return func() tea.Msg {
		room, err := c.GetRoom(context.Background(), roomID)
		return roomFetchedMsg{room: room, err: err}
	}
}

func (a App) fetchSession() tea.Cmd {
	c := a.client
	roomID := a.st.RoomID()
	return func() tea.Msg {
		gs, err := c.GetGameSession(context.Background(), roomID)
		return sessionFetchedMsg{gs: gs, err: err}
	}
}

func (a App) fetchScores(includeTotals bool) tea.Cmd {
	c := a.client
	roomID := a.st.RoomID()
	return func() tea.Msg {
		scores, err := c.GetScores(context.Background(), roomID, includeTotals)
		return scoresFetchedMsg{scores: scores, includeTotals: includeTotals, err: err}
	}
}

func (a App) submit(answers map[string]string) tea.Cmd {
	c := a.client
	roomID := a.st.RoomID()
	return func() tea.Msg {
		err := c.SubmitAnswers(context.Background(), roomID, answers)
		return submitResultMsg{err: err}
	}
}

// handleConn folds one connection event into the UI.
func (a *App) handleConn(ev realtime.Event) tea.Cmd {
	switch ev.Kind {
	case realtime.EventOpen:
		// Fresh socket: pushes may have been missed, resync over REST.
		if a.st.Phase == game.PhaseNoRoom {
			return nil
		}
		return tea.Batch(a.fetchRoom(), a.fetchSession(), a.fetchScores(false))

	case realtime.EventMessage:
		if ev2, ok := gameEventFromEnvelope(ev.Envelope); ok {
			return a.applyGame(ev2)
		}
		a.log.Debug().Str("type", ev.Envelope.Type).Msg("unhandled push kind")
		return nil

	case realtime.EventError:
		a.log.Warn().Err(ev.Err).Msg("push channel error")
		return nil

	case realtime.EventClose:
		if a.st.Phase != game.PhaseNoRoom && a.conn.State() == realtime.StateClosed {
			var cmd tea.Cmd
			a.notices, cmd = pushNotice(a.notices, "connection lost — showing the last known state")
			return cmd
		}
		return nil
	}
	return nil
}

// gameEventFromEnvelope maps a push envelope to a reconciler event.
func gameEventFromEnvelope(env realtime.Envelope) (game.Event, bool) {
	switch env.Type {
	case realtime.KindRoomUpdate:
		var p realtime.RoomUpdatePayload
		if err := env.Decode(&p); err != nil {
			return nil, false
		}
		return game.RoomSnapshot{Room: p.Room}, true
	case realtime.KindGameStarted:
		var p realtime.GameStartedPayload
		if err := env.Decode(&p); err != nil {
			return nil, false
		}
		return game.GameStarted{Session: p.GameSession}, true
	case realtime.KindPlayerSubmitted:
		var p realtime.PlayerSubmittedPayload
		if err := env.Decode(&p); err != nil {
			return nil, false
		}
		return game.PlayerSubmitted{PlayerID: p.PlayerID, AllSubmitted: p.AllSubmitted}, true
	case realtime.KindRoundAdvancing:
		var p realtime.RoundAdvancingPayload
		if err := env.Decode(&p); err != nil {
			return nil, false
		}
		return game.RoundAdvancing{SecondsLeft: p.SecondsLeft}, true
	case realtime.KindPlayerRemoved:
		var p realtime.PlayerRemovedPayload
		if err := env.Decode(&p); err != nil {
			return nil, false
		}
		return game.PlayerRemoved{PlayerID: p.PlayerID, UserID: p.UserID}, true
	case realtime.KindRoomDeleted:
		return game.RoomDeleted{}, true
	}
	return nil, false
}

func (a App) View() string {
	logo := renderShimmerLogo(a.frame)
	logoWidth := lipgloss.Width(logo)
	logoPad := (a.width - logoWidth) / 2
	if logoPad < 0 {
		logoPad = 0
	}
	header := strings.Repeat(" ", logoPad) + logo + "\n" + a.statusLine()

	var body, help string
	switch {
	case a.helpOpen:
		body = helpView()
		help = " " + helpEntry("esc", "close") + "  " + helpEntry("q", "quit")
	case a.st.Phase == game.PhaseNoRoom:
		body = a.lobby.View()
		help = " " + a.lobby.helpKeys()
	case a.inRound():
		body = a.round.View(a.st, time.Now())
		help = " " + a.round.helpKeys(a.st)
	default:
		body = a.room.View(a.st)
		help = " " + a.room.helpKeys(a.st)
	}

	noticeLine := ""
	if len(a.notices) > 0 {
		texts := make([]string, 0, len(a.notices))
		for _, n := range a.notices {
			texts = append(texts, n.text)
		}
		noticeLine = " " + noticeStyle.Render(strings.Join(texts, " · "))
	}

	// Chrome budget: header(2) + notices(1) + help(1) = 4 lines + body
	chrome := 4
	body = strings.TrimRight(truncateToHeight(body, a.height-chrome), "\n")

	return fmt.Sprintf("%s\n%s\n%s\n%s", header, noticeLine, body, help)
}

// statusLine shows identity, the bound room and the push channel health.
func (a App) statusLine() string {
	var parts []string
	if a.me != nil {
		parts = append(parts, normalStyle.Render(a.me.Username))
	}
	if roomID := a.st.RoomID(); roomID != "" {
		parts = append(parts, metaStyle.Render(truncStr(roomID, 12)))
		switch a.conn.State() {
		case realtime.StateOpen:
			parts = append(parts, connUpStyle.Render("●")+dimStyle.Render(" live"))
		case realtime.StateConnecting:
			parts = append(parts, connRetryStyle.Render("◌")+dimStyle.Render(fmt.Sprintf(" reconnecting %d/5", a.conn.Attempts())))
		default:
			parts = append(parts, connDownStyle.Render("○")+dimStyle.Render(" offline"))
		}
	}
	line := strings.Join(parts, dimStyle.Render("  ·  "))
	pad := (a.width - lipgloss.Width(line)) / 2
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + line
}
